// Package config loads and validates scraper configuration via Viper.
package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/JakeFAU/mbfc-scraper/internal/checkpoint"
	"github.com/JakeFAU/mbfc-scraper/internal/discovery"
)

// Checkpoint backends.
const (
	BackendCSV      = "csv"
	BackendGCS      = "gcs"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

// Config captures all configuration knobs loaded via Viper.
type Config struct {
	Input      InputConfig      `mapstructure:"input"`
	Checkpoint CheckpointConfig `mapstructure:"checkpoint"`
	Scraper    ScraperConfig    `mapstructure:"scraper"`
	Retry      RetryConfig      `mapstructure:"retry"`
	Headless   HeadlessConfig   `mapstructure:"headless"`
	HTTP       HTTPConfig       `mapstructure:"http"`
	Discovery  DiscoveryConfig  `mapstructure:"discovery"`
	PubSub     PubSubConfig     `mapstructure:"pubsub"`
	Status     StatusConfig     `mapstructure:"status"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

// InputConfig locates the table of source URLs.
type InputConfig struct {
	Path      string `mapstructure:"path"`
	KeyColumn string `mapstructure:"key_column"`
}

// CheckpointConfig selects and parameterizes the checkpoint backend.
type CheckpointConfig struct {
	Backend   string `mapstructure:"backend"`
	Path      string `mapstructure:"path"`
	KeyColumn string `mapstructure:"key_column"`
	DSN       string `mapstructure:"dsn"`
	Table     string `mapstructure:"table"`
	Bucket    string `mapstructure:"bucket"`
	Object    string `mapstructure:"object"`
}

// ScraperConfig governs chunking and pool sizing.
type ScraperConfig struct {
	ChunkSize      int     `mapstructure:"chunk_size"`
	Workers        int     `mapstructure:"workers"`
	WorkerFraction float64 `mapstructure:"worker_fraction"`
}

// RetryConfig bounds attempts per URL.
type RetryConfig struct {
	MaxAttempts int           `mapstructure:"max_attempts"`
	MinDelay    time.Duration `mapstructure:"min_delay"`
	MaxDelay    time.Duration `mapstructure:"max_delay"`
}

// HeadlessConfig configures the headless rendering subsystem.
type HeadlessConfig struct {
	Enabled           bool          `mapstructure:"enabled"`
	WaitSelector      string        `mapstructure:"wait_selector"`
	NavTimeout        time.Duration `mapstructure:"nav_timeout"`
	DisableJavaScript bool          `mapstructure:"disable_javascript"`
	DomainQPS         float64       `mapstructure:"domain_qps"`
}

// HTTPConfig configures plain HTTP fetches and the shared user agent.
type HTTPConfig struct {
	Timeout   time.Duration `mapstructure:"timeout"`
	UserAgent string        `mapstructure:"user_agent"`
}

// DiscoveryConfig drives the category listing crawl.
type DiscoveryConfig struct {
	BaseURL       string   `mapstructure:"base_url"`
	Categories    []string `mapstructure:"categories"`
	OutputPath    string   `mapstructure:"output_path"`
	TableSelector string   `mapstructure:"table_selector"`
	PerCategory   bool     `mapstructure:"per_category"`
}

// PubSubConfig holds metadata for chunk notifications.
type PubSubConfig struct {
	ProjectID string `mapstructure:"project_id"`
	TopicName string `mapstructure:"topic_name"`
}

// Enabled reports whether notifications should be published.
func (p PubSubConfig) Enabled() bool {
	return p.ProjectID != "" && p.TopicName != ""
}

// StatusConfig controls the optional status server.
type StatusConfig struct {
	Addr string `mapstructure:"addr"`
}

// LoggingConfig toggles zap development features and file output.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	File        string `mapstructure:"file"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("MBFC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("input.path", "bias_data/all.csv")
	v.SetDefault("input.key_column", checkpoint.DefaultKeyColumn)
	v.SetDefault("checkpoint.backend", BackendCSV)
	v.SetDefault("checkpoint.path", "bias_data/scraped_results.csv")
	v.SetDefault("checkpoint.key_column", checkpoint.DefaultKeyColumn)
	v.SetDefault("checkpoint.dsn", "")
	v.SetDefault("checkpoint.table", "mbfc_checkpoint")
	v.SetDefault("checkpoint.bucket", "")
	v.SetDefault("checkpoint.object", "scraped_results.csv")
	v.SetDefault("scraper.chunk_size", 10)
	v.SetDefault("scraper.workers", 0)
	v.SetDefault("scraper.worker_fraction", 0.25)
	v.SetDefault("retry.max_attempts", 3)
	v.SetDefault("retry.min_delay", "1s")
	v.SetDefault("retry.max_delay", "3s")
	v.SetDefault("headless.enabled", true)
	v.SetDefault("headless.wait_selector", ".entry-content")
	v.SetDefault("headless.nav_timeout", "10s")
	v.SetDefault("headless.disable_javascript", false)
	v.SetDefault("headless.domain_qps", 0.0)
	v.SetDefault("http.timeout", "10s")
	v.SetDefault("http.user_agent", "mbfc-scraper/1.0")
	v.SetDefault("discovery.base_url", "https://mediabiasfactcheck.com")
	v.SetDefault("discovery.categories", discovery.DefaultCategories)
	v.SetDefault("discovery.output_path", "bias_data/all.csv")
	v.SetDefault("discovery.table_selector", "table#mbfc-table")
	v.SetDefault("discovery.per_category", true)
	v.SetDefault("pubsub.project_id", "")
	v.SetDefault("pubsub.topic_name", "")
	v.SetDefault("status.addr", "")
	v.SetDefault("logging.development", true)
	v.SetDefault("logging.file", "")
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Input.Path) == "" {
		return fmt.Errorf("input.path is required")
	}
	if c.Scraper.ChunkSize <= 0 {
		return fmt.Errorf("scraper.chunk_size must be > 0")
	}
	if c.Scraper.Workers < 0 {
		return fmt.Errorf("scraper.workers must be >= 0")
	}
	if c.Scraper.WorkerFraction <= 0 || c.Scraper.WorkerFraction > 1 {
		return fmt.Errorf("scraper.worker_fraction must be in (0, 1]")
	}
	if c.Retry.MaxAttempts <= 0 {
		return fmt.Errorf("retry.max_attempts must be > 0")
	}
	if c.Retry.MinDelay < 0 || c.Retry.MaxDelay < c.Retry.MinDelay {
		return fmt.Errorf("retry delays must satisfy 0 <= min_delay <= max_delay")
	}
	if c.Headless.Enabled && c.Headless.NavTimeout <= 0 {
		return fmt.Errorf("headless.nav_timeout must be > 0 when headless is enabled")
	}
	if c.Headless.DomainQPS < 0 {
		return fmt.Errorf("headless.domain_qps must be >= 0")
	}
	if c.HTTP.Timeout <= 0 {
		return fmt.Errorf("http.timeout must be > 0")
	}
	return c.Checkpoint.validate()
}

func (c CheckpointConfig) validate() error {
	switch c.Backend {
	case BackendCSV:
		if strings.TrimSpace(c.Path) == "" {
			return fmt.Errorf("checkpoint.path is required for the csv backend")
		}
	case BackendGCS:
		if c.Bucket == "" || c.Object == "" {
			return fmt.Errorf("checkpoint.bucket and checkpoint.object are required for the gcs backend")
		}
	case BackendSQLite:
		if c.DSN == "" && strings.TrimSpace(c.Path) == "" {
			return fmt.Errorf("checkpoint.dsn or checkpoint.path is required for the sqlite backend")
		}
	case BackendPostgres:
		if c.DSN == "" {
			return fmt.Errorf("checkpoint.dsn is required for the postgres backend")
		}
	default:
		return fmt.Errorf("unknown checkpoint.backend %q", c.Backend)
	}
	if c.Backend == BackendSQLite || c.Backend == BackendPostgres {
		if err := checkpoint.ValidateTableName(c.Table); err != nil {
			return fmt.Errorf("checkpoint.table: %w", err)
		}
	}
	return nil
}

// SQLiteDSN returns the configured DSN, falling back to a .db file beside the checkpoint
// path so an existing CSV checkpoint there is never opened as a database.
func (c CheckpointConfig) SQLiteDSN() string {
	if c.DSN != "" {
		return c.DSN
	}
	return strings.TrimSuffix(c.Path, filepath.Ext(c.Path)) + ".db"
}
