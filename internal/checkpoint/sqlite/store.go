// Package sqlite persists the checkpoint table in a SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/JakeFAU/mbfc-scraper/internal/checkpoint"
	"github.com/JakeFAU/mbfc-scraper/internal/scrape"
)

// Store implements scrape.CheckpointStore using modernc.org/sqlite.
type Store struct {
	mu     sync.Mutex
	db     *sql.DB
	table  string
	logger *zap.Logger
}

var _ scrape.CheckpointStore = (*Store)(nil)

// Open opens the database at dsn, applies pragmas, and migrates the table.
func Open(ctx context.Context, dsn, table string, logger *zap.Logger) (*Store, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("sqlite: dsn is required")
	}
	if err := checkpoint.ValidateTableName(table); err != nil {
		return nil, fmt.Errorf("sqlite: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=FULL",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("sqlite: exec %s: %w", pragma, err)
		}
	}
	s := &Store{db: db, table: table, logger: logger}
	if err := s.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
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
	seq        INTEGER PRIMARY KEY AUTOINCREMENT,
	url        TEXT NOT NULL UNIQUE,
%s,
	meta       TEXT NOT NULL DEFAULT '[]',
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);`, s.table, strings.Join(defs, ",\n"))
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("sqlite: migrate: %w", err)
	}
	return nil
}

// Load returns every URL in the table.
func (s *Store) Load(ctx context.Context) (map[string]struct{}, error) {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`SELECT url FROM %s`, s.table))
	if err != nil {
		return nil, fmt.Errorf("sqlite: load keys: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()
	keys := make(map[string]struct{})
	for rows.Next() {
		var url string
		if err := rows.Scan(&url); err != nil {
			return nil, fmt.Errorf("sqlite: scan key: %w", err)
		}
		keys[url] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterate keys: %w", err)
	}
	return keys, nil
}

// Merge upserts rows in order inside one transaction. A URL that already exists keeps
// its position and takes the new row's content.
func (s *Store) Merge(ctx context.Context, rows []scrape.Row) error {
	if len(rows) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: begin: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	stmt, err := tx.PrepareContext(ctx, s.upsertQuery())
	if err != nil {
		return fmt.Errorf("sqlite: prepare upsert: %w", err)
	}
	defer func() {
		_ = stmt.Close()
	}()
	for _, row := range rows {
		args, err := upsertArgs(row)
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("sqlite: upsert %s: %w", row.URL, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: commit: %w", err)
	}
	committed = true
	s.logger.Debug("checkpoint rows upserted", zap.Int("rows", len(rows)))
	return nil
}

// Rows returns the table in first-insert order.
func (s *Store) Rows(ctx context.Context) ([]scrape.Row, error) {
	query := fmt.Sprintf(`SELECT url, %s, meta FROM %s ORDER BY seq`,
		strings.Join(checkpoint.SQLColumns(), ", "), s.table)
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("sqlite: query rows: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var out []scrape.Row
	for rows.Next() {
		var (
			url    string
			meta   string
			values = make([]*string, len(checkpoint.SQLColumns()))
		)
		dest := []any{&url}
		for i := range values {
			dest = append(dest, &values[i])
		}
		dest = append(dest, &meta)
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("sqlite: scan row: %w", err)
		}
		attrs, err := checkpoint.DecodeMeta([]byte(meta))
		if err != nil {
			return nil, fmt.Errorf("sqlite: row %s: %w", url, err)
		}
		out = append(out, scrape.Row{URL: url, Record: checkpoint.RecordFromColumns(values), Meta: attrs})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterate rows: %w", err)
	}
	return out, nil
}

// Close closes the database.
func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("sqlite: close: %w", err)
	}
	return nil
}

func (s *Store) upsertQuery() string {
	cols := checkpoint.SQLColumns()
	placeholders := make([]string, 0, len(cols)+2)
	updates := make([]string, 0, len(cols)+2)
	for range cols {
		placeholders = append(placeholders, "?")
	}
	for _, c := range append(cols, "meta") {
		updates = append(updates, fmt.Sprintf("%s = excluded.%s", c, c))
	}
	updates = append(updates, "updated_at = datetime('now')")
	return fmt.Sprintf(`INSERT INTO %s (url, %s, meta) VALUES (?, %s, ?)
ON CONFLICT(url) DO UPDATE SET %s`,
		s.table, strings.Join(cols, ", "), strings.Join(placeholders, ", "), strings.Join(updates, ", "))
}

func upsertArgs(row scrape.Row) ([]any, error) {
	meta, err := checkpoint.EncodeMeta(row.Meta)
	if err != nil {
		return nil, fmt.Errorf("sqlite: row %s: %w", row.URL, err)
	}
	args := append([]any{row.URL}, checkpoint.FieldArgs(row.Record)...)
	return append(args, string(meta)), nil
}
