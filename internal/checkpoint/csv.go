package checkpoint

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/JakeFAU/mbfc-scraper/internal/scrape"
)

// ErrMissingKeyColumn is returned when a table has no recognizable URL column.
var ErrMissingKeyColumn = errors.New("table has no key column")

// DefaultKeyColumn names the URL column in tables produced by discovery.
const DefaultKeyColumn = "Link"

// KeyColumnAliases are accepted as the URL column when the configured one is absent.
var KeyColumnAliases = []string{DefaultKeyColumn, "url"}

// Codec converts between rows and the CSV table layout: the key column, then
// passthrough columns, then one column per rating field.
type Codec struct {
	KeyColumn string
}

func (c Codec) keyColumn() string {
	if strings.TrimSpace(c.KeyColumn) == "" {
		return DefaultKeyColumn
	}
	return c.KeyColumn
}

// Header returns the column layout used to encode rows.
func (c Codec) Header(rows []scrape.Row) []string {
	key := c.keyColumn()
	header := []string{key}
	for _, col := range MetaColumns(rows) {
		if col == key || isFieldColumn(col) {
			continue
		}
		header = append(header, col)
	}
	for _, f := range scrape.Fields() {
		header = append(header, f.Label())
	}
	return header
}

// Encode renders rows as CSV. Unset fields become empty cells.
func (c Codec) Encode(rows []scrape.Row) ([]byte, error) {
	header := c.Header(rows)
	metaCols := header[1 : len(header)-len(scrape.Fields())]

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(header); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}
	record := make([]string, len(header))
	for _, row := range rows {
		record[0] = row.URL
		for i, col := range metaCols {
			v, _ := row.MetaValue(col)
			record[1+i] = v
		}
		offset := 1 + len(metaCols)
		for i, f := range scrape.Fields() {
			v, _ := row.Record.Value(f)
			record[offset+i] = v
		}
		if err := w.Write(record); err != nil {
			return nil, fmt.Errorf("write row %s: %w", row.URL, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}

// Decode parses a CSV table. Empty field cells decode as unset; rows with an empty key
// are skipped. Empty input decodes to no rows.
func (c Codec) Decode(data []byte) ([]scrape.Row, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	header, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	header[0] = strings.TrimPrefix(header[0], "\ufeff")
	keyIdx := FindKeyColumn(header, c.keyColumn())
	if keyIdx < 0 {
		return nil, fmt.Errorf("%w: want %q", ErrMissingKeyColumn, c.keyColumn())
	}

	var rows []scrape.Row
	for line := 2; ; line++ {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read line %d: %w", line, err)
		}
		if keyIdx >= len(record) || strings.TrimSpace(record[keyIdx]) == "" {
			continue
		}
		row := scrape.Row{URL: strings.TrimSpace(record[keyIdx])}
		for i, col := range header {
			if i == keyIdx || i >= len(record) {
				continue
			}
			if f, ok := scrape.FieldByLabel(col); ok {
				if record[i] != "" {
					row.Record = row.Record.With(f, record[i])
				}
				continue
			}
			row.Meta = append(row.Meta, scrape.Attr{Name: col, Value: record[i]})
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// FindKeyColumn returns the index of the preferred key column, falling back to the
// known aliases, or -1.
func FindKeyColumn(header []string, preferred string) int {
	candidates := append([]string{preferred}, KeyColumnAliases...)
	for _, want := range candidates {
		for i, col := range header {
			if strings.EqualFold(strings.TrimSpace(col), want) {
				return i
			}
		}
	}
	return -1
}

func isFieldColumn(col string) bool {
	_, ok := scrape.FieldByLabel(col)
	return ok
}
