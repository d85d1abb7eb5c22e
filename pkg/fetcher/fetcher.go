// Package fetcher acquires pages with a cheap HTTP strategy first and a real
// browser only when the HTTP path is blocked or exhausted.
//
// A Coordinator owns one FastStrategy (colly, shared cookie jar and identity
// rotator) and one BrowserStrategy (a lazily started Engine). Every
// Coordinator.FetchPage call yields exactly one Outcome and increments
// exactly one statistics counter.
package fetcher

import (
	"errors"
	"fmt"
	"time"
)

// Strategy identifies which acquisition path produced a document.
type Strategy int

const (
	StrategyNone Strategy = iota
	StrategyFast
	StrategyBrowser
)

// String returns the lowercase strategy name used in records and logs.
func (s Strategy) String() string {
	switch s {
	case StrategyFast:
		return "fast"
	case StrategyBrowser:
		return "browser"
	default:
		return "none"
	}
}

// Outcome is the result of a single fetch call. It is built once and never
// modified afterwards.
type Outcome struct {
	URL         string
	Document    string
	Strategy    Strategy
	Err         error
	StatusCode  int
	Attempts    int
	CompletedAt time.Time
}

// OK reports whether the outcome carries a usable document.
func (o Outcome) OK() bool {
	return o.Err == nil && o.Strategy != StrategyNone
}

// Error types for distinguishing failure reasons.
// Check with errors.Is(outcome.Err, fetcher.ErrBlocked).
var (
	// ErrTimeout indicates the request or navigation did not finish in time.
	ErrTimeout = errors.New("timeout")
	// ErrConnectionFailed indicates the connection was refused or reset.
	ErrConnectionFailed = errors.New("connection failed")
	// ErrRateLimited indicates HTTP 429 from the destination.
	ErrRateLimited = errors.New("rate limited")
	// ErrBlocked indicates HTTP 403 or an anti-bot challenge page.
	ErrBlocked = errors.New("blocked")
	// ErrUnexpectedStatus indicates a non-200 status other than 403/429.
	ErrUnexpectedStatus = errors.New("unexpected status")
	// ErrExhausted indicates every attempt of one strategy failed.
	ErrExhausted = errors.New("attempts exhausted")
	// ErrDriver indicates the browser engine failed to navigate or render.
	ErrDriver = errors.New("browser driver failure")
	// ErrEngineUnavailable indicates the browser engine could not be started.
	ErrEngineUnavailable = errors.New("browser engine unavailable")
)

func statusError(code int) error {
	switch code {
	case 403:
		return fmt.Errorf("%w: HTTP %d", ErrBlocked, code)
	case 429:
		return fmt.Errorf("%w: HTTP %d", ErrRateLimited, code)
	default:
		return fmt.Errorf("%w: HTTP %d", ErrUnexpectedStatus, code)
	}
}

func success(url, doc string, s Strategy, status, attempts int, now time.Time) Outcome {
	return Outcome{
		URL:         url,
		Document:    doc,
		Strategy:    s,
		StatusCode:  status,
		Attempts:    attempts,
		CompletedAt: now,
	}
}

func failure(url string, err error, status, attempts int, now time.Time) Outcome {
	return Outcome{
		URL:         url,
		Strategy:    StrategyNone,
		Err:         err,
		StatusCode:  status,
		Attempts:    attempts,
		CompletedAt: now,
	}
}
