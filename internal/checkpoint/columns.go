package checkpoint

import (
	"encoding/json"
	"fmt"
	"regexp"

	"github.com/JakeFAU/mbfc-scraper/internal/scrape"
)

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

var sqlColumns = [...]string{
	scrape.FieldBiasRating:        "bias_rating",
	scrape.FieldFactualReporting:  "factual_reporting",
	scrape.FieldCountry:           "country",
	scrape.FieldMediaType:         "media_type",
	scrape.FieldTrafficPopularity: "traffic_popularity",
	scrape.FieldCredibilityRating: "credibility_rating",
}

// SQLColumns returns the SQL column names for the rating fields, in table order.
func SQLColumns() []string {
	return append([]string(nil), sqlColumns[:]...)
}

// ValidateTableName rejects names that cannot be interpolated into SQL safely.
func ValidateTableName(table string) error {
	if !validTableName.MatchString(table) {
		return fmt.Errorf("invalid table name %q", table)
	}
	return nil
}

type metaEntry struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// EncodeMeta serializes passthrough columns for SQL backends, preserving order.
func EncodeMeta(attrs []scrape.Attr) ([]byte, error) {
	entries := make([]metaEntry, 0, len(attrs))
	for _, a := range attrs {
		entries = append(entries, metaEntry(a))
	}
	data, err := json.Marshal(entries)
	if err != nil {
		return nil, fmt.Errorf("marshal meta: %w", err)
	}
	return data, nil
}

// DecodeMeta reverses EncodeMeta. Empty input yields no columns.
func DecodeMeta(data []byte) ([]scrape.Attr, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var entries []metaEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("unmarshal meta: %w", err)
	}
	if len(entries) == 0 {
		return nil, nil
	}
	attrs := make([]scrape.Attr, 0, len(entries))
	for _, e := range entries {
		attrs = append(attrs, scrape.Attr(e))
	}
	return attrs, nil
}

// FieldArgs returns the record's field values as SQL arguments; unset fields are nil.
func FieldArgs(rec scrape.Record) []any {
	args := make([]any, 0, len(sqlColumns))
	for _, f := range scrape.Fields() {
		args = append(args, rec.Get(f))
	}
	return args
}

// RecordFromColumns builds a record from scanned nullable columns in table order.
func RecordFromColumns(values []*string) scrape.Record {
	var rec scrape.Record
	for i, f := range scrape.Fields() {
		if i < len(values) && values[i] != nil {
			rec = rec.With(f, *values[i])
		}
	}
	return rec
}
