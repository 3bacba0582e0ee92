// Package checkpoint implements the durable, URL-keyed table of scraped rows.
//
// The table is both the pipeline's output and its resume marker: Load yields the URLs
// that are already done, and Merge is the only way rows get in. Merge collapses
// duplicate URLs so the persisted table never holds two rows for one key.
package checkpoint

import (
	"github.com/JakeFAU/mbfc-scraper/internal/scrape"
)

// Merge concatenates incoming onto existing and collapses duplicate URLs. The last row
// for a URL wins, and it takes the position where that URL first appeared, so repeated
// merges never reorder the table.
func Merge(existing, incoming []scrape.Row) []scrape.Row {
	out := make([]scrape.Row, 0, len(existing)+len(incoming))
	index := make(map[string]int, len(existing)+len(incoming))
	for _, batch := range [][]scrape.Row{existing, incoming} {
		for _, row := range batch {
			if i, ok := index[row.URL]; ok {
				out[i] = row
				continue
			}
			index[row.URL] = len(out)
			out = append(out, row)
		}
	}
	return out
}

// Keys returns the set of URLs present in rows.
func Keys(rows []scrape.Row) map[string]struct{} {
	keys := make(map[string]struct{}, len(rows))
	for _, row := range rows {
		keys[row.URL] = struct{}{}
	}
	return keys
}

// MetaColumns returns the union of passthrough column names in first-seen order.
func MetaColumns(rows []scrape.Row) []string {
	var cols []string
	seen := make(map[string]struct{})
	for _, row := range rows {
		for _, attr := range row.Meta {
			if _, ok := seen[attr.Name]; ok {
				continue
			}
			seen[attr.Name] = struct{}{}
			cols = append(cols, attr.Name)
		}
	}
	return cols
}
