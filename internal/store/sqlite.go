package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/mscandco/distribution-api/internal/apperr"
)

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

// schemaVersion is bumped whenever the documents table changes shape.
const schemaVersion = 1

const schemaSQL = `
CREATE TABLE IF NOT EXISTS schema_version (version INTEGER NOT NULL);
CREATE TABLE IF NOT EXISTS documents (
    kind       TEXT    NOT NULL,
    id         TEXT    NOT NULL,
    status     TEXT    NOT NULL,
    artist_id  TEXT    NOT NULL DEFAULT '',
    label_id   TEXT    NOT NULL DEFAULT '',
    version    INTEGER NOT NULL,
    created_at TEXT    NOT NULL,
    data       TEXT    NOT NULL,
    PRIMARY KEY (kind, id)
);
CREATE INDEX IF NOT EXISTS idx_documents_artist ON documents (kind, artist_id);
CREATE INDEX IF NOT EXISTS idx_documents_label ON documents (kind, label_id);
`

// ErrSchemaMismatch indicates the database was written by an incompatible build.
var ErrSchemaMismatch = errors.New("schema version mismatch")

type sqliteBackend struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) the database at path. ":memory:" is
// accepted for tests; the pool is pinned to one connection so every query
// sees the same in-memory database.
func OpenSQLite(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.ExecContext(ctx, pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	b := &sqliteBackend{db: db}
	if err := b.initSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{b: b, driver: "sqlite"}, nil
}

func (s *sqliteBackend) initSchema(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}

	var version int
	err = tx.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		if _, err := tx.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
			return fmt.Errorf("record schema version: %w", err)
		}
	case err != nil:
		return fmt.Errorf("read schema version: %w", err)
	case version != schemaVersion:
		return fmt.Errorf("%w: database has version %d, expected %d", ErrSchemaMismatch, version, schemaVersion)
	}
	return tx.Commit()
}

func (s *sqliteBackend) get(ctx context.Context, kind, id string) (*document, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT status, artist_id, label_id, version, created_at, data FROM documents WHERE kind = ? AND id = ?`,
		kind, id,
	)
	d := &document{Kind: kind, ID: id}
	if err := scanDocument(row, d); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.NotFound(kind, id)
		}
		return nil, fmt.Errorf("get %s %s: %w", kind, id, err)
	}
	return d, nil
}

func (s *sqliteBackend) list(ctx context.Context, kind string, f Filter) ([]*document, error) {
	query := `SELECT id, status, artist_id, label_id, version, created_at, data FROM documents WHERE kind = ?`
	args := []any{kind}
	if f.Status != "" {
		query += " AND status = ?"
		args = append(args, f.Status)
	}
	if f.ArtistID != "" {
		query += " AND artist_id = ?"
		args = append(args, f.ArtistID)
	}
	if f.LabelID != "" {
		query += " AND label_id = ?"
		args = append(args, f.LabelID)
	}
	query += " ORDER BY created_at, id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", kind, err)
	}
	defer rows.Close()

	var out []*document
	for rows.Next() {
		d := &document{Kind: kind}
		var createdAt, data string
		if err := rows.Scan(&d.ID, &d.Status, &d.ArtistID, &d.LabelID, &d.Version, &createdAt, &data); err != nil {
			return nil, fmt.Errorf("scan %s: %w", kind, err)
		}
		if d.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
			return nil, fmt.Errorf("parse created_at: %w", err)
		}
		d.Data = []byte(data)
		out = append(out, d)
	}
	return out, rows.Err()
}

func (s *sqliteBackend) put(ctx context.Context, d *document, expected int64) error {
	var (
		res sql.Result
		err error
	)
	if expected == 0 {
		res, err = s.execWithRetry(ctx,
			`INSERT INTO documents (kind, id, status, artist_id, label_id, version, created_at, data)
             VALUES (?, ?, ?, ?, ?, ?, ?, ?)
             ON CONFLICT (kind, id) DO NOTHING`,
			d.Kind, d.ID, d.Status, d.ArtistID, d.LabelID, d.Version,
			d.CreatedAt.Format(time.RFC3339Nano), string(d.Data),
		)
	} else {
		res, err = s.execWithRetry(ctx,
			`UPDATE documents
             SET status = ?, artist_id = ?, label_id = ?, version = ?, data = ?
             WHERE kind = ? AND id = ? AND version = ?`,
			d.Status, d.ArtistID, d.LabelID, d.Version, string(d.Data),
			d.Kind, d.ID, expected,
		)
	}
	if err != nil {
		return fmt.Errorf("write %s %s: %w", d.Kind, d.ID, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 1 {
		return nil
	}

	var actual int64
	err = s.db.QueryRowContext(ctx, `SELECT version FROM documents WHERE kind = ? AND id = ?`, d.Kind, d.ID).Scan(&actual)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("read version after conflict: %w", err)
	}
	return conflict(d, expected, actual)
}

func (s *sqliteBackend) ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *sqliteBackend) close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *sqliteBackend) execWithRetry(ctx context.Context, query string, args ...any) (sql.Result, error) {
	var (
		res     sql.Result
		execErr error
	)
	if err := retryOnBusy(ctx, func() error {
		res, execErr = s.db.ExecContext(ctx, query, args...)
		return execErr
	}); err != nil {
		return nil, err
	}
	return res, nil
}

func scanDocument(row *sql.Row, d *document) error {
	var createdAt, data string
	if err := row.Scan(&d.Status, &d.ArtistID, &d.LabelID, &d.Version, &createdAt, &data); err != nil {
		return err
	}
	t, err := time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return fmt.Errorf("parse created_at: %w", err)
	}
	d.CreatedAt = t
	d.Data = []byte(data)
	return nil
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}
