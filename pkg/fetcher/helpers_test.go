package fetcher

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"
)

// sleepRecorder records requested sleeps without blocking.
type sleepRecorder struct {
	mu     sync.Mutex
	sleeps []time.Duration
}

func (s *sleepRecorder) sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	s.sleeps = append(s.sleeps, d)
	s.mu.Unlock()
	return ctx.Err()
}

func (s *sleepRecorder) recorded() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]time.Duration(nil), s.sleeps...)
}

// fakeEngine is a scripted Engine.
type fakeEngine struct {
	mu       sync.Mutex
	startErr error
	results  []renderResult // consumed in order; the last one repeats
	starts   int
	renders  int
	closes   int
	identity string
}

type renderResult struct {
	html string
	err  error
}

func (e *fakeEngine) Name() string { return "fake" }

func (e *fakeEngine) Start(_ context.Context, identity string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.starts++
	e.identity = identity
	return e.startErr
}

func (e *fakeEngine) Render(_ context.Context, _ string, _ time.Duration) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.renders++
	if len(e.results) == 0 {
		return "<html><head><title>ok</title></head><body>rendered</body></html>", nil
	}
	r := e.results[0]
	if len(e.results) > 1 {
		e.results = e.results[1:]
	}
	return r.html, r.err
}

func (e *fakeEngine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closes++
	return nil
}

func (e *fakeEngine) counts() (starts, renders, closes int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.starts, e.renders, e.closes
}

func fixedRotator() *Rotator {
	return NewRotator([]string{"test-agent/1.0"}, rand.New(rand.NewPCG(1, 2)))
}

func testFastConfig() FastConfig {
	return FastConfig{
		Timeout:             2 * time.Second,
		MaxAttempts:         2,
		BackoffBase:         time.Second,
		BackoffStep:         time.Second,
		RateLimitCooldown:   30 * time.Second,
		MaxRateLimitRetries: 1,
	}
}
