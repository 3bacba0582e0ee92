package app_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JakeFAU/mbfc-scraper/internal/app"
	"github.com/JakeFAU/mbfc-scraper/internal/checkpoint"
	"github.com/JakeFAU/mbfc-scraper/internal/checkpoint/sqlite"
	"github.com/JakeFAU/mbfc-scraper/internal/config"
	"github.com/JakeFAU/mbfc-scraper/internal/scrape"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()
	return config.Config{
		Checkpoint: config.CheckpointConfig{
			Backend:   config.BackendCSV,
			Path:      filepath.Join(t.TempDir(), "out", "scraped_results.csv"),
			KeyColumn: "Link",
			Table:     "mbfc_checkpoint",
		},
	}
}

func TestOpenCheckpoint_CSV(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	cfg := testConfig(t)

	a := app.New(cfg, zap.NewNop())
	defer a.Close()

	store, err := a.OpenCheckpoint(ctx)
	require.NoError(t, err)
	assert.IsType(t, &checkpoint.TableStore{}, store)

	require.NoError(t, store.Merge(ctx, []scrape.Row{{URL: "https://a.example/"}}))
	assert.FileExists(t, cfg.Checkpoint.Path)
}

func TestOpenCheckpoint_SQLite(t *testing.T) {
	t.Parallel()
	cfg := testConfig(t)
	cfg.Checkpoint.Backend = config.BackendSQLite
	cfg.Checkpoint.DSN = filepath.Join(t.TempDir(), "checkpoint.db")

	a := app.New(cfg, nil)
	defer a.Close()

	store, err := a.OpenCheckpoint(context.Background())
	require.NoError(t, err)
	assert.IsType(t, &sqlite.Store{}, store)
}

func TestOpenCheckpoint_UnknownBackend(t *testing.T) {
	t.Parallel()
	cfg := testConfig(t)
	cfg.Checkpoint.Backend = "redis"

	_, err := app.New(cfg, nil).OpenCheckpoint(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown checkpoint backend")
}

func TestOpenPublisher_Disabled(t *testing.T) {
	t.Parallel()

	pub, err := app.New(testConfig(t), nil).OpenPublisher(context.Background())
	require.NoError(t, err)
	assert.Nil(t, pub)
}

func TestOpenFile(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "bias_data", "all.csv")

	blobs, name, err := app.OpenFile(path)
	require.NoError(t, err)
	assert.Equal(t, "all.csv", name)

	_, err = blobs.PutObject(ctx, name, "text/csv", strings.NewReader("Group,Link,Type\n"))
	require.NoError(t, err)
	assert.FileExists(t, path)

	data, err := blobs.GetObject(ctx, name)
	require.NoError(t, err)
	assert.Equal(t, "Group,Link,Type\n", string(data))
}

func TestOpenFile_BareName(t *testing.T) {
	t.Chdir(t.TempDir())
	ctx := context.Background()

	blobs, name, err := app.OpenFile("scraped_results.csv")
	require.NoError(t, err)
	assert.Equal(t, "scraped_results.csv", name)

	_, err = blobs.PutObject(ctx, name, "text/csv", strings.NewReader("Link\n"))
	require.NoError(t, err)
	assert.FileExists(t, "scraped_results.csv")

	data, err := blobs.GetObject(ctx, name)
	require.NoError(t, err)
	assert.Equal(t, "Link\n", string(data))
}

func TestOpenCheckpoint_SQLiteBesideCSVCheckpoint(t *testing.T) {
	t.Parallel()
	cfg := testConfig(t)
	cfg.Checkpoint.Backend = config.BackendSQLite
	csvPath := cfg.Checkpoint.Path
	require.NoError(t, os.MkdirAll(filepath.Dir(csvPath), 0o750))
	require.NoError(t, os.WriteFile(csvPath, []byte("Link,Bias Rating\n"), 0o600))

	a := app.New(cfg, nil)
	defer a.Close()

	store, err := a.OpenCheckpoint(context.Background())
	require.NoError(t, err)
	assert.IsType(t, &sqlite.Store{}, store)
	assert.FileExists(t, filepath.Join(filepath.Dir(csvPath), "scraped_results.db"))

	data, err := os.ReadFile(csvPath)
	require.NoError(t, err)
	assert.Equal(t, "Link,Bias Rating\n", string(data))
}
