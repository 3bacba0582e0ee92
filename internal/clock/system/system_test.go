package system

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestClockNowUTC(t *testing.T) {
	t.Parallel()

	before := time.Now().Add(-time.Second)
	got := New().Now()
	after := time.Now().Add(time.Second)

	require.Equal(t, time.UTC, got.Location())
	require.True(t, got.After(before) && got.Before(after), "now %v outside [%v, %v]", got, before, after)
}

func TestClockDurationsNonNegative(t *testing.T) {
	t.Parallel()

	clk := New()
	start := clk.Now()
	require.GreaterOrEqual(t, clk.Now().Sub(start), time.Duration(0))
}
