// Package collyfetcher implements scrape.Fetcher with a plain HTTP collector for pages
// whose content region is present in the server-rendered HTML.
package collyfetcher

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"

	"github.com/JakeFAU/mbfc-scraper/internal/policy/ratelimit"
	"github.com/JakeFAU/mbfc-scraper/internal/scrape"
)

const defaultSelector = ".entry-content"

// Config controls collector behavior.
type Config struct {
	UserAgent string
	Timeout   time.Duration
	Selector  string
	// DomainQPS paces requests per host; zero disables pacing.
	DomainQPS float64
}

// Fetcher implements scrape.Fetcher using the Colly collector.
type Fetcher struct {
	cfg           Config
	baseCollector *colly.Collector
	limiter       *ratelimit.Limiter
}

type collectorHooks interface {
	OnHTML(string, colly.HTMLCallback)
	OnError(colly.ErrorCallback)
}

// New builds a Fetcher.
func New(cfg Config) *Fetcher {
	if strings.TrimSpace(cfg.Selector) == "" {
		cfg.Selector = defaultSelector
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	c := colly.NewCollector(colly.Async(false))
	c.WithTransport(newHTTPTransport())
	return &Fetcher{
		cfg:           cfg,
		baseCollector: c,
		limiter:       ratelimit.New(ratelimit.Config{RPS: cfg.DomainQPS}),
	}
}

// Fetch executes a single GET and returns the text of the first element matching the selector.
func (f *Fetcher) Fetch(ctx context.Context, url string) (string, error) {
	var (
		text     string
		found    bool
		fetchErr error
	)
	if err := f.limiter.Wait(ctx, url); err != nil {
		return "", &scrape.FetchError{URL: url, Op: "rate limit", Err: err}
	}
	collector := f.baseCollector.Clone()
	collector.AllowURLRevisit = true
	collector.SetRequestTimeout(f.cfg.Timeout)
	if f.cfg.UserAgent != "" {
		collector.UserAgent = f.cfg.UserAgent
	}
	f.configureCollectorHooks(collector, &text, &found, &fetchErr)

	if err := runCollector(ctx, collector, url); err != nil {
		return "", &scrape.FetchError{URL: url, Op: "visit", Err: err}
	}
	if fetchErr != nil {
		return "", &scrape.FetchError{URL: url, Op: "response", Err: fetchErr}
	}
	if !found {
		return "", &scrape.FetchError{URL: url, Op: "select " + f.cfg.Selector, Err: scrape.ErrContentNotFound}
	}
	return text, nil
}

func (f *Fetcher) configureCollectorHooks(hooks collectorHooks, text *string, found *bool, fetchErr *error) {
	hooks.OnHTML(f.cfg.Selector, func(e *colly.HTMLElement) {
		if *found {
			return
		}
		*found = true
		*text = VisibleText(e.DOM)
	})
	hooks.OnError(func(r *colly.Response, err error) {
		if r != nil && r.StatusCode != 0 {
			*fetchErr = fmt.Errorf("status %d: %w", r.StatusCode, err)
			return
		}
		*fetchErr = err
	})
}

func runCollector(ctx context.Context, collector *colly.Collector, url string) error {
	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(url)
	}()

	select {
	case <-ctx.Done():
		return fmt.Errorf("colly fetch canceled: %w", ctx.Err())
	case err := <-done:
		if err != nil {
			return fmt.Errorf("colly visit failed: %w", err)
		}
		return nil
	}
}

var blockElements = map[string]bool{
	"address": true, "article": true, "aside": true, "blockquote": true, "br": true,
	"dd": true, "div": true, "dl": true, "dt": true, "figcaption": true, "footer": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true, "header": true,
	"hr": true, "li": true, "ol": true, "p": true, "section": true, "table": true,
	"td": true, "th": true, "tr": true, "ul": true,
}

// VisibleText flattens a selection into text, starting a new line at block boundaries the
// way a browser's innerText does, so "Label: value" lines survive tag-only separators.
func VisibleText(sel *goquery.Selection) string {
	var b strings.Builder
	writeText(&b, sel)
	lines := strings.Split(b.String(), "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}

func writeText(b *strings.Builder, sel *goquery.Selection) {
	sel.Contents().Each(func(_ int, s *goquery.Selection) {
		name := goquery.NodeName(s)
		switch name {
		case "#text":
			b.WriteString(s.Text())
			return
		case "script", "style", "noscript", "#comment":
			return
		}
		block := blockElements[name]
		if block {
			b.WriteByte('\n')
		}
		writeText(b, s)
		if block {
			b.WriteByte('\n')
		}
	})
}

func newHTTPTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
	}
}
