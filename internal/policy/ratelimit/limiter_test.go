package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNewDisabled(t *testing.T) {
	t.Parallel()

	l := New(Config{})
	require.Nil(t, l)
	require.NoError(t, l.Wait(context.Background(), "http://%zz"))
}

func TestLimiter_WaitPacesSameHost(t *testing.T) {
	t.Parallel()

	// 10 RPS with burst 1: one token every 100ms.
	l := New(Config{RPS: 10, Burst: 1})
	ctx := context.Background()

	require.NoError(t, l.Wait(ctx, "https://mediabiasfactcheck.com/a/"))

	start := time.Now()
	require.NoError(t, l.Wait(ctx, "https://MediaBiasFactCheck.com/b/"))
	require.GreaterOrEqual(t, time.Since(start), 80*time.Millisecond)
}

func TestLimiter_HostsAreIndependent(t *testing.T) {
	t.Parallel()

	l := New(Config{RPS: 1, Burst: 1})
	ctx := context.Background()

	require.NoError(t, l.Wait(ctx, "https://a.example/"))
	start := time.Now()
	require.NoError(t, l.Wait(ctx, "https://b.example/"))
	require.Less(t, time.Since(start), 500*time.Millisecond)
}

func TestLimiter_WaitHonorsContext(t *testing.T) {
	t.Parallel()

	l := New(Config{RPS: 0.1, Burst: 1})
	require.NoError(t, l.Wait(context.Background(), "https://a.example/"))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	require.Error(t, l.Wait(ctx, "https://a.example/"))
}

func TestLimiter_InvalidURL(t *testing.T) {
	t.Parallel()

	l := New(Config{RPS: 1000})
	require.Error(t, l.Wait(context.Background(), "http://%zz"))
}
