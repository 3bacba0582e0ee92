package memory

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/mbfc-scraper/internal/storage"
)

func TestBlobStoreRoundTripCopiesData(t *testing.T) {
	t.Parallel()

	store := NewBlobStore()
	ctx := context.Background()
	uri, err := store.PutObject(ctx, "bias_data/results.csv", "text/csv", bytes.NewReader([]byte("content")))
	require.NoError(t, err)
	require.Equal(t, "memory://bias_data/results.csv", uri)

	got, err := store.GetObject(ctx, "bias_data/results.csv")
	require.NoError(t, err)
	got[0] = 'C'

	again, err := store.GetObject(ctx, "bias_data/results.csv")
	require.NoError(t, err)
	require.Equal(t, "content", string(again))
}

func TestBlobStoreMissingAndFailure(t *testing.T) {
	t.Parallel()

	store := NewBlobStore()
	_, err := store.GetObject(context.Background(), "nope")
	require.ErrorIs(t, err, storage.ErrNotFound)

	boom := errors.New("disk full")
	store.FailPut = boom
	_, err = store.PutObject(context.Background(), "x", "", bytes.NewReader(nil))
	require.ErrorIs(t, err, boom)
	_, err = store.GetObject(context.Background(), "x")
	require.ErrorIs(t, err, storage.ErrNotFound)
}
