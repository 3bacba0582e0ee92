// Package headless contains fetchers that render pages in a headless browser.
package headless

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/JakeFAU/mbfc-scraper/internal/policy/ratelimit"
	"github.com/JakeFAU/mbfc-scraper/internal/scrape"
)

const (
	defaultNavTimeout   = 10 * time.Second
	defaultWaitSelector = ".entry-content"
)

// Config controls the behavior of the headless fetcher.
type Config struct {
	UserAgent         string
	NavigationTimeout time.Duration
	WaitSelector      string
	DisableJavaScript bool
	// DomainQPS paces navigations per host; zero disables pacing.
	DomainQPS float64
	Logger    *zap.Logger
}

// Fetcher implements scrape.Fetcher using chromedp and headless Chrome. Every Fetch
// launches its own browser from the shared allocator options and tears it down before
// returning, so no rendering state is shared between attempts.
type Fetcher struct {
	cfg         Config
	allocator   context.Context
	allocCancel context.CancelFunc
	limiter     *ratelimit.Limiter
	logger      *zap.Logger
}

// NewChromedp creates a headless fetcher backed by chromedp.
func NewChromedp(cfg Config) (*Fetcher, error) {
	if cfg.NavigationTimeout < 0 {
		return nil, fmt.Errorf("navigation timeout must be >= 0")
	}
	if cfg.DomainQPS < 0 {
		return nil, fmt.Errorf("domain qps must be >= 0")
	}
	if cfg.NavigationTimeout == 0 {
		cfg.NavigationTimeout = defaultNavTimeout
	}
	if strings.TrimSpace(cfg.WaitSelector) == "" {
		cfg.WaitSelector = defaultWaitSelector
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", "new"),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("hide-scrollbars", true),
		chromedp.Flag("enable-automation", false),
	)
	if cfg.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(cfg.UserAgent))
	}
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)

	return &Fetcher{
		cfg:         cfg,
		allocator:   allocCtx,
		allocCancel: allocCancel,
		limiter:     ratelimit.New(ratelimit.Config{RPS: cfg.DomainQPS}),
		logger:      logger,
	}, nil
}

// Close cancels the allocator context.
func (f *Fetcher) Close() {
	f.allocCancel()
}

// Fetch renders rawURL, waits for the content region and returns its visible text.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (string, error) {
	if err := f.limiter.Wait(ctx, rawURL); err != nil {
		return "", &scrape.FetchError{URL: rawURL, Op: "rate limit", Err: err}
	}

	// The browser lives exactly as long as browserCtx; cancel kills the process.
	browserCtx, browserCancel := chromedp.NewContext(f.allocator)
	defer browserCancel()

	stopForward := forwardCancel(ctx, browserCancel)
	defer stopForward()

	taskCtx, cancel := context.WithTimeout(browserCtx, f.navTimeout())
	defer cancel()

	start := time.Now()
	text, err := f.runHeadless(taskCtx, rawURL)
	if err != nil {
		return "", f.classify(rawURL, err)
	}
	f.logger.Debug("rendered page",
		zap.String("url", rawURL),
		zap.Int("chars", len(text)),
		zap.Duration("duration", time.Since(start)),
	)
	return text, nil
}

func (f *Fetcher) runHeadless(ctx context.Context, rawURL string) (string, error) {
	var text string
	actions := []chromedp.Action{
		f.browserSetupAction(),
		chromedp.Navigate(rawURL),
		chromedp.WaitReady(f.cfg.WaitSelector, chromedp.ByQuery),
		chromedp.Text(f.cfg.WaitSelector, &text, chromedp.ByQuery),
	}
	if err := chromedp.Run(ctx, actions...); err != nil {
		return "", fmt.Errorf("chromedp run: %w", err)
	}
	return text, nil
}

func (f *Fetcher) browserSetupAction() chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		if err := network.Enable().Do(ctx); err != nil {
			return fmt.Errorf("enable network domain: %w", err)
		}
		if f.cfg.UserAgent != "" {
			if err := emulation.SetUserAgentOverride(f.cfg.UserAgent).Do(ctx); err != nil {
				return fmt.Errorf("set user-agent: %w", err)
			}
		}
		if f.cfg.DisableJavaScript {
			if err := emulation.SetScriptExecutionDisabled(true).Do(ctx); err != nil {
				return fmt.Errorf("disable javascript: %w", err)
			}
		}
		return nil
	})
}

func (f *Fetcher) classify(rawURL string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return &scrape.FetchError{
			URL: rawURL,
			Op:  "wait " + f.cfg.WaitSelector,
			Err: fmt.Errorf("%w: %w", scrape.ErrContentNotFound, err),
		}
	}
	return &scrape.FetchError{URL: rawURL, Op: "render", Err: err}
}

func (f *Fetcher) navTimeout() time.Duration {
	if f.cfg.NavigationTimeout > 0 {
		return f.cfg.NavigationTimeout
	}
	return defaultNavTimeout
}

func forwardCancel(parent context.Context, cancel context.CancelFunc) func() {
	if parent == nil {
		return func() {}
	}
	done := make(chan struct{})
	go func() {
		select {
		case <-parent.Done():
			cancel()
		case <-done:
		}
	}()
	return func() { close(done) }
}
