// Package uuid provides run ID generation.
package uuid

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/JakeFAU/mbfc-scraper/internal/scrape"
)

var _ scrape.IDGenerator = (*Generator)(nil)

// Generator creates time-ordered UUIDv7 strings, so run IDs sort by start time.
type Generator struct{}

// New creates a new Generator.
func New() *Generator {
	return &Generator{}
}

// NewID returns the next run ID.
func (Generator) NewID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("generate run id: %w", err)
	}
	return id.String(), nil
}
