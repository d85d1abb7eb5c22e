package fetcher

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"

	"github.com/jmylchreest/vetprice/internal/logger"
)

// heavyResources are URL patterns the rod engine refuses to load.
var heavyResources = []string{
	"*.png", "*.jpg", "*.jpeg", "*.gif", "*.webp", "*.avif", "*.svg",
	"*.woff", "*.woff2", "*.ttf", "*.otf",
	"*.mp4", "*.webm",
	"*google-analytics*", "*googletagmanager*", "*doubleclick*", "*facebook*", "*hotjar*",
}

// RodEngine renders pages with go-rod. Pages are created through
// go-rod/stealth so the usual automation markers are already patched.
type RodEngine struct {
	// Bin overrides browser discovery. Empty uses FindChromePath and then
	// rod's own lookup.
	Bin      string
	Headless bool

	proc     browserProcess
	browser  *rod.Browser
	identity string
}

// browserProcess is the launched browser process. *launcher.Launcher
// satisfies it; Cleanup waits for exit and removes the profile directory.
type browserProcess interface {
	Kill()
	Cleanup()
}

func stopProcess(p browserProcess) {
	p.Kill()
	p.Cleanup()
}

// NewRodEngine creates an engine. Nothing is launched until Start.
func NewRodEngine(bin string, headless bool) *RodEngine {
	return &RodEngine{Bin: bin, Headless: headless}
}

// Name implements Engine.
func (e *RodEngine) Name() string {
	return "rod"
}

// Start implements Engine.
func (e *RodEngine) Start(ctx context.Context, identity string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	l := launcher.New().
		Headless(e.Headless).
		NoSandbox(true).
		Set("disable-blink-features", "AutomationControlled").
		Set("disable-dev-shm-usage").
		Set("blink-settings", "imagesEnabled=false").
		Set("window-size", "1024,768").
		Set("lang", "pt-BR")

	bin := e.Bin
	if bin == "" {
		bin = FindChromePath()
	}
	if bin != "" {
		l = l.Bin(bin)
	}

	controlURL, err := l.Launch()
	if err != nil {
		return fmt.Errorf("launch browser: %w", err)
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		stopProcess(l)
		return fmt.Errorf("connect browser: %w", err)
	}

	e.proc = l
	e.browser = browser
	e.identity = identity
	logger.Debug("rod browser launched", "headless", e.Headless, "bin", bin)
	return nil
}

// Render implements Engine.
func (e *RodEngine) Render(ctx context.Context, targetURL string, timeout time.Duration) (string, error) {
	if e.browser == nil {
		return "", errors.New("rod engine not started")
	}

	page, err := stealth.Page(e.browser)
	if err != nil {
		return "", fmt.Errorf("open page: %w", err)
	}
	defer func() { _ = page.Close() }()

	if err := (proto.NetworkSetBlockedURLs{Urls: heavyResources}).Call(page); err != nil {
		logger.Debug("set blocked urls failed", "error", err)
	}
	if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{
		UserAgent:      e.identity,
		AcceptLanguage: "pt-BR,pt;q=0.9",
	}); err != nil {
		logger.Debug("set user agent failed", "error", err)
	}

	p := page.Context(ctx).Timeout(timeout)
	html, err := render(p, targetURL)
	if err != nil {
		if ctx.Err() == nil && errors.Is(err, context.DeadlineExceeded) {
			return "", fmt.Errorf("%w: render %s after %s", ErrTimeout, targetURL, timeout)
		}
		return "", err
	}
	return html, nil
}

func render(p *rod.Page, targetURL string) (string, error) {
	if err := p.Navigate(targetURL); err != nil {
		return "", err
	}
	if _, err := p.Element("body"); err != nil {
		return "", err
	}
	return p.HTML()
}

// Close implements Engine. It is safe to call more than once.
func (e *RodEngine) Close() error {
	var err error
	if e.browser != nil {
		err = e.browser.Close()
		e.browser = nil
	}
	if e.proc != nil {
		stopProcess(e.proc)
		e.proc = nil
	}
	return err
}
