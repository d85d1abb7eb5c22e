package fetcher

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"net"
	"net/http"
	"net/http/cookiejar"
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/jmylchreest/vetprice/internal/logger"
)

// FastConfig holds configuration for the HTTP strategy.
type FastConfig struct {
	Timeout             time.Duration
	MaxAttempts         int
	BackoffBase         time.Duration
	BackoffStep         time.Duration
	Jitter              time.Duration
	RateLimitCooldown   time.Duration
	MaxRateLimitRetries int
}

// DefaultFastConfig returns sensible defaults.
func DefaultFastConfig() FastConfig {
	return FastConfig{
		Timeout:             12 * time.Second,
		MaxAttempts:         2,
		BackoffBase:         time.Second,
		BackoffStep:         time.Second,
		Jitter:              500 * time.Millisecond,
		RateLimitCooldown:   30 * time.Second,
		MaxRateLimitRetries: 1,
	}
}

// SleepFunc blocks for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Sleep is the default SleepFunc.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// FastStrategy fetches pages with plain HTTP GETs through colly. A new
// collector is built per attempt; the cookie jar and identity rotator are
// shared, so the session lives as long as the strategy.
type FastStrategy struct {
	config  FastConfig
	rotator *Rotator
	jar     http.CookieJar
	sleep   SleepFunc
	now     func() time.Time
}

// FastOption configures a FastStrategy.
type FastOption func(*FastStrategy)

// WithFastSleep replaces the sleep used for backoff and cooldown.
func WithFastSleep(fn SleepFunc) FastOption {
	return func(f *FastStrategy) {
		f.sleep = fn
	}
}

// WithCookieJar replaces the session cookie jar.
func WithCookieJar(jar http.CookieJar) FastOption {
	return func(f *FastStrategy) {
		f.jar = jar
	}
}

// NewFastStrategy creates an HTTP strategy. Zero config fields take defaults.
func NewFastStrategy(cfg FastConfig, rotator *Rotator, opts ...FastOption) *FastStrategy {
	def := DefaultFastConfig()
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = def.MaxAttempts
	}
	if rotator == nil {
		rotator = NewRotator(nil, nil)
	}

	f := &FastStrategy{
		config:  cfg,
		rotator: rotator,
		sleep:   Sleep,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.jar == nil {
		jar, _ := cookiejar.New(nil)
		f.jar = jar
	}
	return f
}

type attemptResult struct {
	status int
	body   []byte
	err    error
}

// Fetch issues up to maxAttempts GETs for targetURL. A value below one uses
// the configured MaxAttempts.
//
// 403 returns at once so the caller can escalate. 429 waits out the cooldown;
// the first MaxRateLimitRetries cooldowns do not consume an attempt. Other
// statuses and timeouts move to the next attempt. A refused or reset
// connection stops immediately.
func (f *FastStrategy) Fetch(ctx context.Context, targetURL string, maxAttempts int) Outcome {
	if maxAttempts <= 0 {
		maxAttempts = f.config.MaxAttempts
	}

	var (
		last       error
		lastStatus int
		used       int
		calls      int
		rateLimits int
		cooledDown bool
	)

	for used < maxAttempts {
		if calls > 0 && !cooledDown {
			if err := f.sleep(ctx, f.backoff(used+1)); err != nil {
				return failure(targetURL, err, lastStatus, calls, f.now())
			}
		}
		cooledDown = false
		used++
		calls++

		res := f.once(ctx, targetURL)
		lastStatus = res.status

		switch {
		case res.err == nil && res.status == http.StatusOK:
			logger.Debug("fast fetch succeeded", "url", targetURL, "attempt", calls, "bytes", len(res.body))
			return success(targetURL, string(res.body), StrategyFast, res.status, calls, f.now())

		case ctx.Err() != nil:
			return failure(targetURL, ctx.Err(), res.status, calls, f.now())

		case res.status == http.StatusForbidden:
			logger.Debug("fast fetch blocked", "url", targetURL, "attempt", calls)
			return failure(targetURL, statusError(res.status), res.status, calls, f.now())

		case res.status == http.StatusTooManyRequests:
			last = statusError(res.status)
			if rateLimits < f.config.MaxRateLimitRetries {
				rateLimits++
				used--
				logger.Warn("rate limited, cooling down", "url", targetURL, "cooldown", f.config.RateLimitCooldown)
				if err := f.sleep(ctx, f.config.RateLimitCooldown); err != nil {
					return failure(targetURL, err, res.status, calls, f.now())
				}
				cooledDown = true
			}

		case res.status != 0:
			last = statusError(res.status)
			logger.Debug("fast fetch unexpected status", "url", targetURL, "status", res.status, "attempt", calls)

		default:
			last = classifyTransport(res.err)
			if !errors.Is(last, ErrTimeout) {
				logger.Debug("fast fetch connection failed", "url", targetURL, "error", res.err)
				return failure(targetURL, last, 0, calls, f.now())
			}
			logger.Debug("fast fetch timed out", "url", targetURL, "attempt", calls)
		}
	}

	return failure(targetURL, fmt.Errorf("%w after %d attempts: %w", ErrExhausted, calls, last), lastStatus, calls, f.now())
}

// Warmup requests the site's home page so the session picks up cookies
// before the first search. Failures are reported but harmless.
func (f *FastStrategy) Warmup(ctx context.Context, baseURL string) error {
	res := f.once(ctx, baseURL)
	if res.err == nil && res.status == http.StatusOK {
		logger.Debug("session warmed up", "url", baseURL)
		return nil
	}
	if res.status != 0 {
		return statusError(res.status)
	}
	return classifyTransport(res.err)
}

func (f *FastStrategy) once(ctx context.Context, targetURL string) attemptResult {
	identity := f.rotator.Next()
	headers := f.rotator.HeadersFor(targetURL)

	c := colly.NewCollector(
		colly.UserAgent(identity),
		colly.AllowURLRevisit(),
		colly.StdlibContext(ctx),
	)
	c.SetRequestTimeout(f.config.Timeout)
	c.SetCookieJar(f.jar)

	c.OnRequest(func(r *colly.Request) {
		for k, v := range headers {
			r.Headers.Set(k, v)
		}
	})

	var res attemptResult
	c.OnResponse(func(r *colly.Response) {
		res.status = r.StatusCode
		res.body = r.Body
	})
	c.OnError(func(r *colly.Response, err error) {
		if r != nil {
			res.status = r.StatusCode
		}
		res.err = err
	})

	if err := c.Visit(targetURL); err != nil && res.err == nil {
		res.err = err
	}
	return res
}

func (f *FastStrategy) backoff(attempt int) time.Duration {
	d := f.config.BackoffBase + time.Duration(attempt-1)*f.config.BackoffStep
	if f.config.Jitter > 0 {
		d += rand.N(f.config.Jitter)
	}
	return d
}

// classifyTransport maps a transport error onto the error taxonomy.
// Anything that is not a timeout is treated as a failed connection.
func classifyTransport(err error) error {
	if err == nil {
		return ErrConnectionFailed
	}
	var ne net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &ne) && ne.Timeout()) {
		return fmt.Errorf("%w: %w", ErrTimeout, err)
	}
	return fmt.Errorf("%w: %w", ErrConnectionFailed, err)
}
