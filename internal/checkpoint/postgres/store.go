// Package postgres persists the checkpoint table in Postgres.
package postgres

import (
	"context"
	"fmt"
	"hash/fnv"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/JakeFAU/mbfc-scraper/internal/checkpoint"
	"github.com/JakeFAU/mbfc-scraper/internal/scrape"
)

const defaultTable = "mbfc_checkpoint"

// Config controls the Postgres connection pool used for checkpoint rows.
type Config struct {
	DSN             string
	Table           string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

type pool interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Query(context.Context, string, ...any) (pgx.Rows, error)
	Begin(context.Context) (pgx.Tx, error)
	Close()
}

// Store writes checkpoint rows into Postgres. Merge holds a transaction-scoped advisory
// lock, so separate processes sharing one table also serialize.
type Store struct {
	mu      sync.Mutex
	pool    pool
	table   string
	lockKey int64
	logger  *zap.Logger
}

var _ scrape.CheckpointStore = (*Store)(nil)

// Open creates a Postgres-backed Store and migrates its table.
func Open(ctx context.Context, cfg Config, logger *zap.Logger) (*Store, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("checkpoint.dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	p, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	s, err := NewWithPool(p, cfg.Table, logger)
	if err != nil {
		p.Close()
		return nil, err
	}
	if err := s.Migrate(ctx); err != nil {
		p.Close()
		return nil, err
	}
	return s, nil
}

// NewWithPool constructs a store from an existing pool (primarily for testing).
func NewWithPool(p pool, table string, logger *zap.Logger) (*Store, error) {
	if p == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if table == "" {
		table = defaultTable
	}
	if err := checkpoint.ValidateTableName(table); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{pool: p, table: table, lockKey: advisoryKey(table), logger: logger}, nil
}

// Migrate creates the checkpoint table if it does not exist.
func (s *Store) Migrate(ctx context.Context) error {
	cols := checkpoint.SQLColumns()
	defs := make([]string, 0, len(cols))
	for _, c := range cols {
		defs = append(defs, "\t"+c+" TEXT")
	}
	ddl := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
	seq        BIGSERIAL,
	url        TEXT PRIMARY KEY,
%s,
	meta       JSONB NOT NULL DEFAULT '[]'::jsonb,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`, s.table, strings.Join(defs, ",\n"))
	if _, err := s.pool.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("migrate checkpoint table: %w", err)
	}
	return nil
}

// Load returns every URL in the table.
func (s *Store) Load(ctx context.Context) (map[string]struct{}, error) {
	rows, err := s.pool.Query(ctx, fmt.Sprintf(`SELECT url FROM %s`, s.table))
	if err != nil {
		return nil, fmt.Errorf("load checkpoint keys: %w", err)
	}
	defer rows.Close()
	keys := make(map[string]struct{})
	for rows.Next() {
		var url string
		if err := rows.Scan(&url); err != nil {
			return nil, fmt.Errorf("scan checkpoint key: %w", err)
		}
		keys[url] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate checkpoint keys: %w", err)
	}
	return keys, nil
}

// Merge upserts rows in order inside one transaction.
func (s *Store) Merge(ctx context.Context, rows []scrape.Row) error {
	if len(rows) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin checkpoint merge: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback(ctx)
		}
	}()

	if _, err := tx.Exec(ctx, "SELECT pg_advisory_xact_lock($1)", s.lockKey); err != nil {
		return fmt.Errorf("lock checkpoint table: %w", err)
	}
	query := s.upsertQuery()
	for _, row := range rows {
		meta, err := checkpoint.EncodeMeta(row.Meta)
		if err != nil {
			return fmt.Errorf("row %s: %w", row.URL, err)
		}
		args := append([]any{row.URL}, checkpoint.FieldArgs(row.Record)...)
		args = append(args, meta)
		if _, err := tx.Exec(ctx, query, args...); err != nil {
			return fmt.Errorf("upsert checkpoint row %s: %w", row.URL, err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit checkpoint merge: %w", err)
	}
	committed = true
	s.logger.Debug("checkpoint rows upserted", zap.Int("rows", len(rows)))
	return nil
}

// Rows returns the table in first-insert order.
func (s *Store) Rows(ctx context.Context) ([]scrape.Row, error) {
	cols := checkpoint.SQLColumns()
	query := fmt.Sprintf(`SELECT url, %s, meta FROM %s ORDER BY seq`, strings.Join(cols, ", "), s.table)
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query checkpoint rows: %w", err)
	}
	defer rows.Close()

	var out []scrape.Row
	for rows.Next() {
		var (
			url    string
			meta   []byte
			values = make([]*string, len(cols))
		)
		dest := []any{&url}
		for i := range values {
			dest = append(dest, &values[i])
		}
		dest = append(dest, &meta)
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scan checkpoint row: %w", err)
		}
		attrs, err := checkpoint.DecodeMeta(meta)
		if err != nil {
			return nil, fmt.Errorf("row %s: %w", url, err)
		}
		out = append(out, scrape.Row{URL: url, Record: checkpoint.RecordFromColumns(values), Meta: attrs})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate checkpoint rows: %w", err)
	}
	return out, nil
}

// Close releases the underlying pool resources.
func (s *Store) Close() error {
	if s == nil || s.pool == nil {
		return nil
	}
	s.pool.Close()
	return nil
}

func (s *Store) upsertQuery() string {
	cols := checkpoint.SQLColumns()
	placeholders := make([]string, 0, len(cols))
	updates := make([]string, 0, len(cols)+2)
	for i := range cols {
		placeholders = append(placeholders, fmt.Sprintf("$%d", i+2))
	}
	for _, c := range append(cols, "meta") {
		updates = append(updates, fmt.Sprintf("%s = EXCLUDED.%s", c, c))
	}
	updates = append(updates, "updated_at = now()")
	return fmt.Sprintf(`INSERT INTO %s (url, %s, meta) VALUES ($1, %s, $%d)
ON CONFLICT (url) DO UPDATE SET %s`,
		s.table, strings.Join(cols, ", "), strings.Join(placeholders, ", "), len(cols)+2, strings.Join(updates, ", "))
}

func advisoryKey(table string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte("mbfc-checkpoint:" + table))
	return int64(h.Sum64())
}
