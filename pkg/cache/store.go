package cache

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/datanorm/datanorm/pkg/frame"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// ErrNotFound is returned when no entry exists for a loader and selector.
var ErrNotFound = errors.New("cache entry not found")

// Config holds store configuration.
type Config struct {
	// Path is the SQLite database file path.
	Path string

	// MaxOpenConns is the maximum number of open connections.
	MaxOpenConns int

	// MaxIdleConns is the maximum number of idle connections.
	MaxIdleConns int

	// ConnMaxLifetime is the maximum connection lifetime.
	ConnMaxLifetime time.Duration
}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig(path string) *Config {
	return &Config{
		Path:            path,
		MaxOpenConns:    25,
		MaxIdleConns:    5,
		ConnMaxLifetime: 5 * time.Minute,
	}
}

// Store persists processed datasets in SQLite.
type Store struct {
	db     *sql.DB
	config *Config
}

// NewStore creates a store from the given config.
func NewStore(config *Config) (*Store, error) {
	if config == nil {
		return nil, fmt.Errorf("config is required")
	}
	if config.Path == "" {
		return nil, fmt.Errorf("database path is required")
	}
	return &Store{config: config}, nil
}

// Init opens the database connection and applies pragmas.
func (s *Store) Init(ctx context.Context) error {
	dsn := fmt.Sprintf("%s?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL&_txlock=immediate", s.config.Path)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}

	db.SetMaxOpenConns(s.config.MaxOpenConns)
	db.SetMaxIdleConns(s.config.MaxIdleConns)
	db.SetConnMaxLifetime(s.config.ConnMaxLifetime)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return fmt.Errorf("pinging database: %w", err)
	}

	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return fmt.Errorf("enabling foreign keys: %w", err)
	}

	s.db = db
	return nil
}

// Migrate applies the embedded schema migrations.
func (s *Store) Migrate() error {
	if s.db == nil {
		return fmt.Errorf("store not initialized")
	}

	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("creating migration source: %w", err)
	}

	driver, err := sqlite3.WithInstance(s.db, &sqlite3.Config{})
	if err != nil {
		return fmt.Errorf("creating migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "sqlite3", driver)
	if err != nil {
		return fmt.Errorf("creating migrator: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("applying migrations: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// HealthCheck verifies the database is reachable.
func (s *Store) HealthCheck(ctx context.Context) error {
	if s.db == nil {
		return fmt.Errorf("store not initialized")
	}
	return s.db.PingContext(ctx)
}

// Put stores a processed dataset for a loader and selector, replacing any
// existing entry for the same pair.
func (s *Store) Put(ctx context.Context, loader, selector, runID string, f *frame.Frame) (*Entry, error) {
	payload, indexColumns, err := encodeFrame(f)
	if err != nil {
		return nil, fmt.Errorf("encoding frame: %w", err)
	}

	entry := &Entry{
		ID:        uuid.New().String(),
		Loader:    loader,
		Selector:  selector,
		RunID:     runID,
		Rows:      f.NumRows(),
		CreatedAt: time.Now().UTC(),
	}

	query := `
		INSERT INTO entries (id, loader, selector, run_id, rows, index_columns, payload, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(loader, selector) DO UPDATE SET
			id = excluded.id,
			run_id = excluded.run_id,
			rows = excluded.rows,
			index_columns = excluded.index_columns,
			payload = excluded.payload,
			created_at = excluded.created_at
	`
	_, err = s.db.ExecContext(ctx, query,
		entry.ID, entry.Loader, entry.Selector, entry.RunID, entry.Rows,
		encodeIndexColumns(indexColumns), payload, entry.CreatedAt.Format(time.RFC3339Nano))
	if err != nil {
		return nil, fmt.Errorf("storing cache entry: %w", err)
	}
	return entry, nil
}

// Get returns the cached table and its entry metadata for a loader and
// selector, or ErrNotFound.
func (s *Store) Get(ctx context.Context, loader, selector string) (*frame.Frame, *Entry, error) {
	query := `
		SELECT id, loader, selector, run_id, rows, index_columns, payload, created_at
		FROM entries
		WHERE loader = ? AND selector = ?
	`
	var (
		entry     Entry
		indexCols string
		payload   string
		createdAt string
	)
	err := s.db.QueryRowContext(ctx, query, loader, selector).Scan(
		&entry.ID, &entry.Loader, &entry.Selector, &entry.RunID, &entry.Rows,
		&indexCols, &payload, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil, ErrNotFound
	}
	if err != nil {
		return nil, nil, fmt.Errorf("reading cache entry: %w", err)
	}
	entry.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return nil, nil, fmt.Errorf("parsing created_at: %w", err)
	}

	f, err := decodeFrame(payload, decodeIndexColumns(indexCols))
	if err != nil {
		return nil, nil, fmt.Errorf("decoding cached payload: %w", err)
	}
	return f, &entry, nil
}

// List returns entry metadata ordered newest first.
func (s *Store) List(ctx context.Context, limit, offset int) ([]*Entry, error) {
	query := `
		SELECT id, loader, selector, run_id, rows, created_at
		FROM entries
		ORDER BY created_at DESC
		LIMIT ? OFFSET ?
	`
	rows, err := s.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("listing cache entries: %w", err)
	}
	defer rows.Close()

	var entries []*Entry
	for rows.Next() {
		var (
			entry     Entry
			createdAt string
		)
		if err := rows.Scan(&entry.ID, &entry.Loader, &entry.Selector, &entry.RunID, &entry.Rows, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning cache entry: %w", err)
		}
		entry.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt)
		if err != nil {
			return nil, fmt.Errorf("parsing created_at: %w", err)
		}
		entries = append(entries, &entry)
	}
	return entries, rows.Err()
}

// Evict removes the entry for a loader and selector. Returns ErrNotFound if
// no entry exists.
func (s *Store) Evict(ctx context.Context, loader, selector string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM entries WHERE loader = ? AND selector = ?", loader, selector)
	if err != nil {
		return fmt.Errorf("evicting cache entry: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// EvictOlderThan removes every entry created before the cutoff and returns
// how many were removed.
func (s *Store) EvictOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx, "DELETE FROM entries WHERE created_at < ?", cutoff.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return 0, fmt.Errorf("evicting cache entries: %w", err)
	}
	return result.RowsAffected()
}
