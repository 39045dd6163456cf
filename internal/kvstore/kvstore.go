// Package kvstore provides the durable key-value record that carries the
// rotating refresh token across runs. The store supports exactly point read
// and point overwrite — no history, no append. The system assumes a single
// writer (one run at a time); concurrent runs racing on the same key is a
// known, unhandled hazard.
package kvstore

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite" // Pure Go SQLite driver, registers as "sqlite".
)

// RefreshTokenKey is the fixed identifier under which the rotating refresh
// token is stored.
const RefreshTokenKey = "refresh-token"

// passwordPlaceholder in a DSN is replaced with the store password from the
// secrets file. DSNs for the default file-backed store don't use it.
const passwordPlaceholder = "${STORE_PASSWORD}"

// ErrNotFound is returned by Get when the key has no value.
var ErrNotFound = errors.New("kvstore: key not found")

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Store is the narrow interface the rest of the system depends on.
// Implemented by SQLStore; tests substitute in-memory fakes.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Put(ctx context.Context, key, value string) error
	Close() error
}

// SQLStore implements Store on a SQLite database, reusing the durable-state
// stack the rest of the deployment already runs on.
type SQLStore struct {
	db     *sql.DB
	logger *slog.Logger

	getStmt *sql.Stmt
	putStmt *sql.Stmt
}

const (
	sqlGetValue = `SELECT value FROM kvstore WHERE key = ?`

	// Overwrite, never merge: the store must only ever hold the most
	// recently written value for a key.
	sqlPutValue = `INSERT INTO kvstore (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE
		SET value = excluded.value, updated_at = excluded.updated_at`
)

// ExpandDSN substitutes the store password into a DSN template. DSNs
// without the placeholder pass through unchanged.
func ExpandDSN(dsn, password string) string {
	return strings.ReplaceAll(dsn, passwordPlaceholder, password)
}

// Open opens the store at the given DSN, applies pending schema migrations,
// and prepares the point-read and point-overwrite statements.
// Use ":memory:" for tests.
func Open(ctx context.Context, dsn string, logger *slog.Logger) (*SQLStore, error) {
	if logger == nil {
		logger = slog.Default()
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("kvstore: open sqlite: %w", err)
	}

	if err := setPragmas(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	if err := runMigrations(ctx, db, logger); err != nil {
		db.Close()
		return nil, err
	}

	s := &SQLStore{db: db, logger: logger}

	if s.getStmt, err = db.PrepareContext(ctx, sqlGetValue); err != nil {
		db.Close()
		return nil, fmt.Errorf("kvstore: prepare get: %w", err)
	}

	if s.putStmt, err = db.PrepareContext(ctx, sqlPutValue); err != nil {
		db.Close()
		return nil, fmt.Errorf("kvstore: prepare put: %w", err)
	}

	logger.Debug("kvstore ready")

	return s, nil
}

// setPragmas configures SQLite for WAL mode and full synchronous writes.
// A torn refresh-token write locks the system out of the provider, so
// durability is worth the write cost.
func setPragmas(ctx context.Context, db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = FULL",
	}

	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			return fmt.Errorf("kvstore: set pragma %q: %w", p, err)
		}
	}

	return nil
}

// runMigrations applies all pending schema migrations to the database.
// Uses the goose v3 Provider API (no global state, context-aware).
func runMigrations(ctx context.Context, db *sql.DB, logger *slog.Logger) error {
	subFS, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("kvstore: creating migration sub-filesystem: %w", err)
	}

	provider, err := goose.NewProvider(goose.DialectSQLite3, db, subFS)
	if err != nil {
		return fmt.Errorf("kvstore: creating migration provider: %w", err)
	}

	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("kvstore: running migrations: %w", err)
	}

	for _, r := range results {
		logger.Info("applied migration",
			slog.String("source", r.Source.Path),
			slog.Int64("duration_ms", r.Duration.Milliseconds()),
		)
	}

	return nil
}

// Get returns the value stored under key, or ErrNotFound.
// The value itself is never logged — it may be a credential.
func (s *SQLStore) Get(ctx context.Context, key string) (string, error) {
	s.logger.Debug("kvstore get", slog.String("key", key))

	var value string

	err := s.getStmt.QueryRowContext(ctx, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("%w: %s", ErrNotFound, key)
	}

	if err != nil {
		return "", fmt.Errorf("kvstore: get %s: %w", key, err)
	}

	return value, nil
}

// Put overwrites the value stored under key. The UPSERT is a single
// statement, so readers can never observe a partially-written value.
func (s *SQLStore) Put(ctx context.Context, key, value string) error {
	s.logger.Debug("kvstore put", slog.String("key", key))

	if _, err := s.putStmt.ExecContext(ctx, key, value, time.Now().UnixNano()); err != nil {
		return fmt.Errorf("kvstore: put %s: %w", key, err)
	}

	return nil
}

// Close closes the prepared statements and the database connection.
func (s *SQLStore) Close() error {
	for _, stmt := range []*sql.Stmt{s.getStmt, s.putStmt} {
		if stmt != nil {
			_ = stmt.Close()
		}
	}

	if err := s.db.Close(); err != nil {
		return fmt.Errorf("kvstore: close database: %w", err)
	}

	return nil
}

// Compile-time interface check.
var _ Store = (*SQLStore)(nil)
