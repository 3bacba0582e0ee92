// Package extract pulls the labeled rating fields out of a fact-check page's text.
package extract

import (
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/JakeFAU/mbfc-scraper/internal/scrape"
)

// Marker anchors the section the rating lines are expected in.
const Marker = "Detailed Report"

// Extractor turns a text block into a scrape.Record. It is safe for concurrent use.
type Extractor struct {
	patterns map[scrape.Field]*regexp.Regexp
	logger   *zap.Logger
}

// New builds an Extractor with one compiled pattern per field.
func New(logger *zap.Logger) *Extractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	patterns := make(map[scrape.Field]*regexp.Regexp, len(scrape.Fields()))
	for _, f := range scrape.Fields() {
		// `.` stops at the newline, so the capture is the rest of the label's line.
		patterns[f] = regexp.MustCompile(regexp.QuoteMeta(f.Label()) + `:[ \t]*(.*)`)
	}
	return &Extractor{patterns: patterns, logger: logger}
}

// Extract returns the fields found after the first Marker. A missing marker, field or value is not
// an error; the corresponding values are simply left unset.
func (e *Extractor) Extract(url, text string) (record scrape.Record) {
	logger := e.logger.With(zap.String("url", url))
	defer func() {
		if r := recover(); r != nil {
			logger.Error("extraction panicked", zap.Any("panic", r))
			record = scrape.Record{}
		}
	}()

	start := strings.Index(text, Marker)
	if start == -1 {
		logger.Info("detailed report section not found")
		return scrape.Record{}
	}
	section := text[start:]

	for _, f := range scrape.Fields() {
		match := e.patterns[f].FindStringSubmatch(section)
		if match == nil {
			logger.Debug("field not found in detailed report", zap.String("field", f.Label()))
			continue
		}
		value := strings.TrimSpace(match[1])
		if value == "" {
			logger.Debug("field has no value in detailed report", zap.String("field", f.Label()))
			continue
		}
		record = record.With(f, value)
	}
	return record
}
