package fetcher

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"

	"github.com/jmylchreest/vetprice/internal/logger"
)

// ChromedpEngine renders pages in a Chrome instance driven over the DevTools
// protocol. One browser is kept warm; each Render opens a fresh tab.
type ChromedpEngine struct {
	// ExecPath overrides Chrome discovery. Empty uses FindChromePath.
	ExecPath string
	Headless bool

	allocCtx      context.Context
	cancelAlloc   context.CancelFunc
	browserCtx    context.Context
	cancelBrowser context.CancelFunc
}

// NewChromedpEngine creates an engine. Nothing is launched until Start.
func NewChromedpEngine(execPath string, headless bool) *ChromedpEngine {
	return &ChromedpEngine{ExecPath: execPath, Headless: headless}
}

// Name implements Engine.
func (e *ChromedpEngine) Name() string {
	return "chromedp"
}

// Start implements Engine.
func (e *ChromedpEngine) Start(ctx context.Context, identity string) error {
	opts := append(chromedp.DefaultExecAllocatorOptions[:], StealthExecAllocatorOptions(e.Headless)...)

	execPath := e.ExecPath
	if execPath == "" {
		execPath = FindChromePath()
	}
	if execPath != "" {
		opts = append(opts, chromedp.ExecPath(execPath))
	}
	opts = append(opts, chromedp.UserAgent(identity))

	// The browser must outlive ctx, which only bounds the launch.
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), opts...)
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(func(format string, args ...any) {
			logger.Debug("chromedp", "msg", fmt.Sprintf(format, args...))
		}),
	)

	launched := make(chan error, 1)
	go func() { launched <- chromedp.Run(browserCtx) }()

	select {
	case err := <-launched:
		if err != nil {
			cancelBrowser()
			cancelAlloc()
			return fmt.Errorf("launch chrome: %w", err)
		}
	case <-ctx.Done():
		cancelBrowser()
		cancelAlloc()
		return ctx.Err()
	}

	e.allocCtx, e.cancelAlloc = allocCtx, cancelAlloc
	e.browserCtx, e.cancelBrowser = browserCtx, cancelBrowser
	logger.Debug("chromedp browser launched", "headless", e.Headless, "exec_path", execPath)
	return nil
}

// Render implements Engine.
func (e *ChromedpEngine) Render(ctx context.Context, targetURL string, timeout time.Duration) (string, error) {
	if e.browserCtx == nil {
		return "", errors.New("chromedp engine not started")
	}

	tabCtx, cancelTab := chromedp.NewContext(e.browserCtx)
	defer cancelTab()
	stop := context.AfterFunc(ctx, cancelTab)
	defer stop()

	timeoutCtx, cancelTimeout := context.WithTimeout(tabCtx, timeout)
	defer cancelTimeout()

	var html string
	err := chromedp.Run(timeoutCtx,
		InjectStealthScript(),
		chromedp.Navigate(targetURL),
		// WaitVisible polls forever on some layouts; WaitReady is enough.
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err != nil {
		if ctx.Err() == nil && errors.Is(timeoutCtx.Err(), context.DeadlineExceeded) {
			return "", fmt.Errorf("%w: render %s after %s", ErrTimeout, targetURL, timeout)
		}
		return "", err
	}
	return html, nil
}

// Close implements Engine.
func (e *ChromedpEngine) Close() error {
	if e.browserCtx == nil {
		return nil
	}
	err := chromedp.Cancel(e.browserCtx)
	e.cancelBrowser()
	e.cancelAlloc()
	e.browserCtx = nil
	if errors.Is(err, context.Canceled) {
		err = nil
	}
	return err
}
