package fetcher

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/jmylchreest/vetprice/internal/logger"
)

// FastFetcher is the cheap strategy tried first.
type FastFetcher interface {
	Fetch(ctx context.Context, url string, maxAttempts int) Outcome
	Warmup(ctx context.Context, baseURL string) error
}

// BrowserFetcher is the expensive fallback strategy.
type BrowserFetcher interface {
	EnsureStarted(ctx context.Context) bool
	Started() bool
	Fetch(ctx context.Context, url string, maxAttempts int) Outcome
	Shutdown() error
}

// Config holds configuration for a Coordinator built with New.
type Config struct {
	Fast    FastConfig
	Browser BrowserConfig

	// MinHostInterval is the minimum spacing between two requests to the
	// same host. Zero disables the limiter.
	MinHostInterval time.Duration

	// Identities overrides the client signature pool.
	Identities []string
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Fast:            DefaultFastConfig(),
		Browser:         DefaultBrowserConfig(),
		MinHostInterval: 500 * time.Millisecond,
	}
}

// Statistics is a snapshot of the acquisition counters.
type Statistics struct {
	FastSuccesses    int     `json:"fast_successes" yaml:"fast_successes"`
	BrowserFallbacks int     `json:"browser_fallbacks" yaml:"browser_fallbacks"`
	TotalFailures    int     `json:"total_failures" yaml:"total_failures"`
	Total            int     `json:"total" yaml:"total"`
	FastRate         float64 `json:"fast_rate" yaml:"fast_rate"`
	BrowserRate      float64 `json:"browser_rate" yaml:"browser_rate"`
	FailureRate      float64 `json:"failure_rate" yaml:"failure_rate"`
}

// String renders the counters and rates on one line.
func (s Statistics) String() string {
	return fmt.Sprintf("fast=%d (%.1f%%) browser=%d (%.1f%%) failed=%d (%.1f%%)",
		s.FastSuccesses, s.FastRate, s.BrowserFallbacks, s.BrowserRate, s.TotalFailures, s.FailureRate)
}

// Coordinator fetches pages fast-first with a browser fallback. It owns the
// HTTP session, the browser and the statistics; one Coordinator serves one
// run.
type Coordinator struct {
	fast     FastFetcher
	browser  BrowserFetcher
	attempts struct{ fast, browser int }
	interval time.Duration

	limMu    sync.Mutex
	limiters map[string]*rate.Limiter

	statsMu sync.Mutex
	stats   Statistics

	closeOnce sync.Once
	closeErr  error
}

// CoordinatorOption configures a Coordinator.
type CoordinatorOption func(*Coordinator)

// WithHostInterval sets the minimum spacing between requests to one host.
func WithHostInterval(d time.Duration) CoordinatorOption {
	return func(c *Coordinator) {
		c.interval = d
	}
}

// WithAttempts sets the attempt budget passed to each strategy.
func WithAttempts(fast, browser int) CoordinatorOption {
	return func(c *Coordinator) {
		c.attempts.fast = fast
		c.attempts.browser = browser
	}
}

// NewCoordinator wires two strategies together.
func NewCoordinator(fast FastFetcher, browser BrowserFetcher, opts ...CoordinatorOption) *Coordinator {
	c := &Coordinator{
		fast:     fast,
		browser:  browser,
		limiters: make(map[string]*rate.Limiter),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// New builds a Coordinator with a colly fast strategy and a browser
// strategy over engine. The strategies share one identity rotator.
func New(cfg Config, engine Engine) *Coordinator {
	rotator := NewRotator(cfg.Identities, nil)
	fast := NewFastStrategy(cfg.Fast, rotator)
	browser := NewBrowserStrategy(engine, cfg.Browser, rotator)
	return NewCoordinator(fast, browser,
		WithHostInterval(cfg.MinHostInterval),
		WithAttempts(cfg.Fast.MaxAttempts, cfg.Browser.MaxAttempts),
	)
}

// FetchPage acquires targetURL. The fast strategy always runs first; the
// browser is started lazily and only tried once the fast strategy has
// given up. Exactly one statistics counter is incremented per call.
func (c *Coordinator) FetchPage(ctx context.Context, targetURL string) Outcome {
	if err := c.waitHost(ctx, targetURL); err != nil {
		c.record(StrategyNone)
		return failure(targetURL, err, 0, 0, time.Now())
	}

	fast := c.fast.Fetch(ctx, targetURL, c.attempts.fast)
	if fast.OK() {
		c.record(StrategyFast)
		return fast
	}
	if ctx.Err() != nil {
		c.record(StrategyNone)
		return failure(targetURL, ctx.Err(), fast.StatusCode, fast.Attempts, time.Now())
	}

	logger.Debug("fast strategy failed, escalating to browser", "url", targetURL, "error", fast.Err)

	if !c.browser.EnsureStarted(ctx) {
		c.record(StrategyNone)
		return failure(targetURL, fmt.Errorf("%w (browser unavailable)", fast.Err), fast.StatusCode, fast.Attempts, time.Now())
	}

	out := c.browser.Fetch(ctx, targetURL, c.attempts.browser)
	if out.OK() {
		c.record(StrategyBrowser)
		return out
	}

	c.record(StrategyNone)
	logger.Debug("browser strategy failed", "url", targetURL, "error", out.Err)
	return failure(targetURL,
		fmt.Errorf("browser: %w; fast: %w", out.Err, fast.Err),
		fast.StatusCode, fast.Attempts+out.Attempts, out.CompletedAt)
}

// PrepareSite warms the HTTP session up against a site's home page.
func (c *Coordinator) PrepareSite(ctx context.Context, baseURL string) {
	if err := c.waitHost(ctx, baseURL); err != nil {
		return
	}
	if err := c.fast.Warmup(ctx, baseURL); err != nil {
		logger.Debug("session warmup failed", "url", baseURL, "error", err)
	}
}

// Statistics returns a snapshot of the counters. Rates are percentages of
// all calls and are zero before the first call.
func (c *Coordinator) Statistics() Statistics {
	c.statsMu.Lock()
	s := c.stats
	c.statsMu.Unlock()

	s.Total = s.FastSuccesses + s.BrowserFallbacks + s.TotalFailures
	if s.Total == 0 {
		return s
	}
	total := float64(s.Total)
	s.FastRate = float64(s.FastSuccesses) / total * 100
	s.BrowserRate = float64(s.BrowserFallbacks) / total * 100
	s.FailureRate = float64(s.TotalFailures) / total * 100
	return s
}

// Close releases the browser if it was ever started and logs the final
// statistics. Later calls return the first result.
func (c *Coordinator) Close() error {
	c.closeOnce.Do(func() {
		if c.browser.Started() {
			c.closeErr = c.browser.Shutdown()
		}
		s := c.Statistics()
		logger.Info("acquisition statistics",
			"fast", s.FastSuccesses,
			"browser", s.BrowserFallbacks,
			"failed", s.TotalFailures,
			"fast_rate", fmt.Sprintf("%.1f%%", s.FastRate),
			"browser_rate", fmt.Sprintf("%.1f%%", s.BrowserRate),
			"failure_rate", fmt.Sprintf("%.1f%%", s.FailureRate))
	})
	return c.closeErr
}

func (c *Coordinator) record(s Strategy) {
	c.statsMu.Lock()
	defer c.statsMu.Unlock()
	switch s {
	case StrategyFast:
		c.stats.FastSuccesses++
	case StrategyBrowser:
		c.stats.BrowserFallbacks++
	default:
		c.stats.TotalFailures++
	}
}

func (c *Coordinator) waitHost(ctx context.Context, rawURL string) error {
	if c.interval <= 0 {
		return ctx.Err()
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return ctx.Err()
	}

	c.limMu.Lock()
	lim, ok := c.limiters[u.Host]
	if !ok {
		lim = rate.NewLimiter(rate.Every(c.interval), 1)
		c.limiters[u.Host] = lim
	}
	c.limMu.Unlock()

	return lim.Wait(ctx)
}
