package fetcher

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jmylchreest/vetprice/internal/logger"
)

// Engine drives a real browser. Implementations must map navigation
// deadlines onto ErrTimeout so the strategy can tell them from driver
// failures.
type Engine interface {
	// Name identifies the engine in logs.
	Name() string

	// Start launches the browser with the given user agent.
	Start(ctx context.Context, identity string) error

	// Render navigates to url, waits until the document body is present and
	// returns the serialized document.
	Render(ctx context.Context, url string, timeout time.Duration) (string, error)

	// Close releases the browser.
	Close() error
}

// BrowserConfig holds configuration for the browser strategy.
type BrowserConfig struct {
	Timeout     time.Duration
	MaxAttempts int
	RetryDelay  time.Duration
}

// DefaultBrowserConfig returns sensible defaults.
func DefaultBrowserConfig() BrowserConfig {
	return BrowserConfig{
		Timeout:     8 * time.Second,
		MaxAttempts: 2,
		RetryDelay:  2 * time.Second,
	}
}

// BrowserStrategy renders pages through an Engine. The engine is started at
// most once, on first use, and released at most once.
type BrowserStrategy struct {
	engine  Engine
	rotator *Rotator
	config  BrowserConfig
	sleep   SleepFunc
	now     func() time.Time

	mu        sync.Mutex
	attempted bool
	started   bool
	startErr  error

	shutdownOnce sync.Once
	shutdownErr  error
}

// BrowserOption configures a BrowserStrategy.
type BrowserOption func(*BrowserStrategy)

// WithBrowserSleep replaces the sleep used between attempts.
func WithBrowserSleep(fn SleepFunc) BrowserOption {
	return func(b *BrowserStrategy) {
		b.sleep = fn
	}
}

// NewBrowserStrategy creates a browser strategy. The engine is not started.
func NewBrowserStrategy(engine Engine, cfg BrowserConfig, rotator *Rotator, opts ...BrowserOption) *BrowserStrategy {
	def := DefaultBrowserConfig()
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = def.MaxAttempts
	}
	if rotator == nil {
		rotator = NewRotator(nil, nil)
	}
	b := &BrowserStrategy{
		engine:  engine,
		rotator: rotator,
		config:  cfg,
		sleep:   Sleep,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// EnsureStarted starts the engine on the first call and reports whether it
// is running. A failed start is remembered; the engine is not retried for
// the lifetime of the strategy.
func (b *BrowserStrategy) EnsureStarted(ctx context.Context) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.attempted {
		return b.started
	}
	b.attempted = true

	if b.engine == nil {
		b.startErr = fmt.Errorf("%w: no engine configured", ErrEngineUnavailable)
	} else if err := b.engine.Start(ctx, b.rotator.Next()); err != nil {
		b.startErr = fmt.Errorf("%w: %w", ErrEngineUnavailable, err)
	} else {
		b.started = true
		logger.Info("browser engine started", "engine", b.engine.Name())
		return true
	}

	logger.Warn("browser engine could not start, continuing with HTTP only", "error", b.startErr)
	return false
}

// Started reports whether the engine is running.
func (b *BrowserStrategy) Started() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.started
}

// Fetch renders targetURL, retrying timeouts with a growing delay. Driver
// errors and challenge pages are not retried. A value below one uses the
// configured MaxAttempts.
func (b *BrowserStrategy) Fetch(ctx context.Context, targetURL string, maxAttempts int) Outcome {
	if maxAttempts <= 0 {
		maxAttempts = b.config.MaxAttempts
	}

	b.mu.Lock()
	started, startErr := b.started, b.startErr
	b.mu.Unlock()
	if !started {
		if startErr == nil {
			startErr = fmt.Errorf("%w: not started", ErrEngineUnavailable)
		}
		return failure(targetURL, startErr, 0, 0, b.now())
	}

	var last error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if attempt > 1 {
			if err := b.sleep(ctx, time.Duration(attempt-1)*b.config.RetryDelay); err != nil {
				return failure(targetURL, err, 0, attempt-1, b.now())
			}
		}

		html, err := b.engine.Render(ctx, targetURL, b.config.Timeout)
		if err != nil {
			if ctx.Err() != nil {
				return failure(targetURL, ctx.Err(), 0, attempt, b.now())
			}
			if errors.Is(err, ErrTimeout) {
				last = err
				logger.Debug("browser render timed out", "url", targetURL, "attempt", attempt)
				continue
			}
			logger.Debug("browser render failed", "url", targetURL, "error", err)
			return failure(targetURL, fmt.Errorf("%w: %w", ErrDriver, err), 0, attempt, b.now())
		}

		if challenge := DetectChallenge(html); challenge != "" {
			logger.Warn("challenge page detected", "url", targetURL, "type", challenge)
			return failure(targetURL, fmt.Errorf("%w: %s challenge", ErrBlocked, challenge), 0, attempt, b.now())
		}

		return success(targetURL, html, StrategyBrowser, 200, attempt, b.now())
	}

	return failure(targetURL, fmt.Errorf("%w after %d attempts: %w", ErrExhausted, maxAttempts, last), 0, maxAttempts, b.now())
}

// Shutdown releases the engine. Only the first call has any effect.
func (b *BrowserStrategy) Shutdown() error {
	b.shutdownOnce.Do(func() {
		b.mu.Lock()
		started := b.started
		b.started = false
		b.attempted = true
		if b.startErr == nil {
			b.startErr = fmt.Errorf("%w: shut down", ErrEngineUnavailable)
		}
		b.mu.Unlock()

		if started {
			b.shutdownErr = b.engine.Close()
			logger.Debug("browser engine released", "engine", b.engine.Name())
		}
	})
	return b.shutdownErr
}

// Engine names accepted by NewEngine.
const (
	EngineChromedp = "chromedp"
	EngineRod      = "rod"
)

// NewEngine returns the named engine. bin overrides browser discovery.
func NewEngine(name, bin string, headless bool) (Engine, error) {
	switch name {
	case "", EngineChromedp:
		return NewChromedpEngine(bin, headless), nil
	case EngineRod:
		return NewRodEngine(bin, headless), nil
	default:
		return nil, fmt.Errorf("unknown browser engine %q", name)
	}
}
