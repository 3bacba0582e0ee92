// Package local_test tests the local filesystem blob store.
package local_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/mbfc-scraper/internal/storage"
	"github.com/JakeFAU/mbfc-scraper/internal/storage/local"
)

func TestNew(t *testing.T) {
	t.Run("ValidConfig", func(t *testing.T) {
		store, err := local.New(local.Config{BaseDir: t.TempDir()})
		require.NoError(t, err)
		assert.NotNil(t, store)
	})

	t.Run("CreatesMissingDir", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "nested", "bias_data")
		_, err := local.New(local.Config{BaseDir: dir})
		require.NoError(t, err)
		info, err := os.Stat(dir)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	})

	t.Run("MissingBaseDir", func(t *testing.T) {
		_, err := local.New(local.Config{})
		assert.Error(t, err)
	})

	t.Run("BaseDirIsNotADirectory", func(t *testing.T) {
		file := filepath.Join(t.TempDir(), "testfile")
		require.NoError(t, os.WriteFile(file, []byte("x"), 0o600))
		_, err := local.New(local.Config{BaseDir: file})
		assert.Error(t, err)
	})
}

func TestResolveConfinesPaths(t *testing.T) {
	t.Parallel()

	store, err := local.New(local.Config{BaseDir: t.TempDir()})
	require.NoError(t, err)
	ctx := context.Background()

	for _, p := range []string{"../escape.csv", "sub/../../escape.csv", ".", "  "} {
		_, err := store.PutObject(ctx, p, "text/csv", bytes.NewReader([]byte("x")))
		assert.Error(t, err, p)
	}
	_, err = store.PutObject(ctx, "sub/../inside.csv", "text/csv", bytes.NewReader([]byte("x")))
	assert.NoError(t, err)
}

func TestRelativeBaseDir(t *testing.T) {
	t.Chdir(t.TempDir())

	store, err := local.New(local.Config{BaseDir: "."})
	require.NoError(t, err)
	ctx := context.Background()

	_, err = store.PutObject(ctx, "scraped_results.csv", "text/csv", bytes.NewReader([]byte("Link\n")))
	require.NoError(t, err)
	got, err := store.GetObject(ctx, "scraped_results.csv")
	require.NoError(t, err)
	assert.Equal(t, "Link\n", string(got))
	assert.FileExists(t, "scraped_results.csv")
}

func TestPutAndGetObject(t *testing.T) {
	tempDir := t.TempDir()
	store, err := local.New(local.Config{BaseDir: tempDir})
	require.NoError(t, err)
	ctx := context.Background()

	t.Run("MissingObject", func(t *testing.T) {
		_, err := store.GetObject(ctx, "absent.csv")
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("RoundTrip", func(t *testing.T) {
		uri, err := store.PutObject(ctx, "results.csv", "text/csv", bytes.NewReader([]byte("a,b\n")))
		require.NoError(t, err)
		assert.Equal(t, "file://"+filepath.Join(tempDir, "results.csv"), uri)

		got, err := store.GetObject(ctx, "results.csv")
		require.NoError(t, err)
		assert.Equal(t, "a,b\n", string(got))
	})

	t.Run("ReplaceLeavesNoTempFiles", func(t *testing.T) {
		_, err := store.PutObject(ctx, "sub/results.csv", "text/csv", bytes.NewReader([]byte("one")))
		require.NoError(t, err)
		_, err = store.PutObject(ctx, "sub/results.csv", "text/csv", bytes.NewReader([]byte("two")))
		require.NoError(t, err)

		got, err := store.GetObject(ctx, "sub/results.csv")
		require.NoError(t, err)
		assert.Equal(t, "two", string(got))

		entries, err := os.ReadDir(filepath.Join(tempDir, "sub"))
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, "results.csv", entries[0].Name())
	})

	t.Run("EmptyPath", func(t *testing.T) {
		_, err := store.PutObject(ctx, "", "text/plain", bytes.NewReader([]byte("data")))
		assert.Error(t, err)
	})

	t.Run("PathTraversal", func(t *testing.T) {
		_, err := store.GetObject(ctx, "../escape.csv")
		assert.Error(t, err)
	})
}
