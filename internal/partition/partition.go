// Package partition computes the pending work set and splits it into chunks.
package partition

import (
	"github.com/JakeFAU/mbfc-scraper/internal/scrape"
)

// Pending returns the input rows whose URL is not in done, keeping input order. A URL
// listed twice in the input is kept once, at its first position.
func Pending(input []scrape.InputRow, done map[string]struct{}) []scrape.InputRow {
	out := make([]scrape.InputRow, 0, len(input))
	seen := make(map[string]struct{}, len(input))
	for _, row := range input {
		if _, ok := done[row.URL]; ok {
			continue
		}
		if _, ok := seen[row.URL]; ok {
			continue
		}
		seen[row.URL] = struct{}{}
		out = append(out, row)
	}
	return out
}

// Chunks splits rows into consecutive slices of at most size elements. A non-positive
// size yields a single chunk.
func Chunks[T any](rows []T, size int) [][]T {
	if len(rows) == 0 {
		return nil
	}
	if size <= 0 {
		size = len(rows)
	}
	chunks := make([][]T, 0, (len(rows)+size-1)/size)
	for start := 0; start < len(rows); start += size {
		end := min(start+size, len(rows))
		chunks = append(chunks, rows[start:end:end])
	}
	return chunks
}

// WorkItems maps rows to the items handed to workers.
func WorkItems(rows []scrape.InputRow) []scrape.WorkItem {
	items := make([]scrape.WorkItem, len(rows))
	for i, row := range rows {
		items[i] = scrape.WorkItem{URL: row.URL}
	}
	return items
}
