// Package discovery builds the candidate URL table by crawling the category listing
// pages of the fact-check site.
package discovery

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"

	"github.com/JakeFAU/mbfc-scraper/internal/storage"
)

// ErrTableNotFound is returned when a category page lacks the listing table.
var ErrTableNotFound = errors.New("listing table not found")

// DefaultCategories are the listing pages crawled when none are configured.
var DefaultCategories = []string{
	"left", "leftcenter", "center", "right-center",
	"right", "conspiracy", "fake-news", "pro-science", "satire",
}

// Header is the column layout of discovery output.
var Header = []string{"Group", "Link", "Type"}

// Config controls the crawl.
type Config struct {
	BaseURL       string
	Categories    []string
	TableSelector string
	UserAgent     string
	Timeout       time.Duration
}

// Entry is one listed source.
type Entry struct {
	Group string
	Link  string
	Type  string
}

// Discoverer crawls category listings.
type Discoverer struct {
	cfg       Config
	collector *colly.Collector
	logger    *zap.Logger
}

// New validates cfg and builds a Discoverer.
func New(cfg Config, logger *zap.Logger) (*Discoverer, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, fmt.Errorf("discovery base url is required")
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if len(cfg.Categories) == 0 {
		cfg.Categories = DefaultCategories
	}
	if cfg.TableSelector == "" {
		cfg.TableSelector = "table#mbfc-table"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	c := colly.NewCollector(colly.Async(false))
	c.AllowURLRevisit = true
	if cfg.UserAgent != "" {
		c.UserAgent = cfg.UserAgent
	}
	c.SetRequestTimeout(cfg.Timeout)
	return &Discoverer{cfg: cfg, collector: c, logger: logger}, nil
}

// Discover crawls every configured category. A category that fails is logged and
// skipped; the error is returned only when every category failed.
func (d *Discoverer) Discover(ctx context.Context) ([]Entry, error) {
	var (
		all  []Entry
		errs []error
	)
	for _, category := range d.cfg.Categories {
		if err := ctx.Err(); err != nil {
			return all, fmt.Errorf("discovery canceled: %w", err)
		}
		entries, err := d.Category(ctx, category)
		if err != nil {
			d.logger.Warn("category skipped", zap.String("category", category), zap.Error(err))
			errs = append(errs, err)
			continue
		}
		d.logger.Info("category discovered", zap.String("category", category), zap.Int("sources", len(entries)))
		all = append(all, entries...)
	}
	if len(errs) == len(d.cfg.Categories) {
		return nil, fmt.Errorf("every category failed: %w", errors.Join(errs...))
	}
	return all, nil
}

// Category crawls one listing page. Rows without a link (adverts, headers) are dropped.
func (d *Discoverer) Category(ctx context.Context, category string) ([]Entry, error) {
	var (
		entries  []Entry
		found    bool
		visitErr error
	)
	c := d.collector.Clone()
	c.AllowURLRevisit = true
	c.OnHTML(d.cfg.TableSelector, func(e *colly.HTMLElement) {
		if found {
			return
		}
		found = true
		e.DOM.Find("tr").Each(func(_ int, row *goquery.Selection) {
			href, ok := row.Find("a").First().Attr("href")
			href = strings.TrimSpace(href)
			if !ok || href == "" {
				return
			}
			entries = append(entries, Entry{
				Group: strings.Join(strings.Fields(row.Text()), " "),
				Link:  e.Request.AbsoluteURL(href),
				Type:  category,
			})
		})
	})
	c.OnError(func(r *colly.Response, err error) {
		if r != nil && r.StatusCode != 0 {
			visitErr = fmt.Errorf("status %d: %w", r.StatusCode, err)
			return
		}
		visitErr = err
	})

	url := fmt.Sprintf("%s/%s/", d.cfg.BaseURL, category)
	if err := visit(ctx, c, url); err != nil {
		if visitErr != nil {
			return nil, fmt.Errorf("category %s: %w", category, visitErr)
		}
		return nil, fmt.Errorf("category %s: %w", category, err)
	}
	if visitErr != nil {
		return nil, fmt.Errorf("category %s: %w", category, visitErr)
	}
	if !found {
		return nil, fmt.Errorf("category %s: %w", category, ErrTableNotFound)
	}
	return entries, nil
}

func visit(ctx context.Context, c *colly.Collector, url string) error {
	done := make(chan error, 1)
	go func() {
		done <- c.Visit(url)
	}()
	select {
	case <-ctx.Done():
		return fmt.Errorf("visit canceled: %w", ctx.Err())
	case err := <-done:
		if err != nil {
			return fmt.Errorf("visit %s: %w", url, err)
		}
		return nil
	}
}

// EncodeCSV renders entries with the Group,Link,Type header.
func EncodeCSV(entries []Entry) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(Header); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}
	for _, e := range entries {
		if err := w.Write([]string{e.Group, e.Link, e.Type}); err != nil {
			return nil, fmt.Errorf("write entry %s: %w", e.Link, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}

// Save writes the consolidated table to outputPath and, when perCategory is set, one
// table per category next to it.
func Save(ctx context.Context, blobs storage.BlobStore, outputPath string, entries []Entry, perCategory bool) ([]string, error) {
	var written []string
	put := func(p string, subset []Entry) error {
		data, err := EncodeCSV(subset)
		if err != nil {
			return err
		}
		uri, err := blobs.PutObject(ctx, p, "text/csv", bytes.NewReader(data))
		if err != nil {
			return fmt.Errorf("write %s: %w", p, err)
		}
		written = append(written, uri)
		return nil
	}

	if err := put(outputPath, entries); err != nil {
		return written, err
	}
	if !perCategory {
		return written, nil
	}
	byType := make(map[string][]Entry)
	var order []string
	for _, e := range entries {
		if _, ok := byType[e.Type]; !ok {
			order = append(order, e.Type)
		}
		byType[e.Type] = append(byType[e.Type], e)
	}
	dir := path.Dir(outputPath)
	for _, category := range order {
		if err := put(path.Join(dir, category+".csv"), byType[category]); err != nil {
			return written, err
		}
	}
	return written, nil
}
