// Package input loads the candidate URL table produced by discovery.
package input

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/JakeFAU/mbfc-scraper/internal/checkpoint"
	"github.com/JakeFAU/mbfc-scraper/internal/scrape"
	"github.com/JakeFAU/mbfc-scraper/internal/storage"
)

// ErrMissingKeyColumn is returned when the input has neither the configured key column
// nor one of the accepted aliases.
var ErrMissingKeyColumn = errors.New("input has no key column")

// Load reads the table at path from blobs. Every column other than the key is carried
// through as metadata in header order. Rows with an empty key are dropped.
func Load(ctx context.Context, blobs storage.BlobStore, path, keyColumn string) ([]scrape.InputRow, error) {
	data, err := blobs.GetObject(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("read input %s: %w", path, err)
	}
	rows, err := Parse(bytes.NewReader(data), keyColumn)
	if err != nil {
		return nil, fmt.Errorf("parse input %s: %w", path, err)
	}
	return rows, nil
}

// Parse decodes CSV input rows.
func Parse(r io.Reader, keyColumn string) ([]scrape.InputRow, error) {
	if strings.TrimSpace(keyColumn) == "" {
		keyColumn = checkpoint.DefaultKeyColumn
	}
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	header[0] = strings.TrimPrefix(header[0], "\ufeff")
	keyIdx := checkpoint.FindKeyColumn(header, keyColumn)
	if keyIdx < 0 {
		return nil, fmt.Errorf("%w: want %q in %v", ErrMissingKeyColumn, keyColumn, header)
	}

	var rows []scrape.InputRow
	for line := 2; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read line %d: %w", line, err)
		}
		if keyIdx >= len(record) {
			continue
		}
		url := strings.TrimSpace(record[keyIdx])
		if url == "" {
			continue
		}
		row := scrape.InputRow{URL: url}
		for i, col := range header {
			if i == keyIdx || i >= len(record) {
				continue
			}
			row.Meta = append(row.Meta, scrape.Attr{Name: col, Value: record[i]})
		}
		rows = append(rows, row)
	}
	return rows, nil
}
