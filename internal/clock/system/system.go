// Package system provides the wall clock used outside tests.
package system

import (
	"time"

	"github.com/JakeFAU/mbfc-scraper/internal/scrape"
)

var _ scrape.Clock = (*Clock)(nil)

// Clock implements scrape.Clock with UTC wall time, so run timestamps and progress
// snapshots never carry the host's zone.
type Clock struct{}

// New creates a new Clock.
func New() *Clock {
	return &Clock{}
}

// Now returns the current UTC time.
func (Clock) Now() time.Time {
	return time.Now().UTC()
}
