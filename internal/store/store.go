// Package store persists feed items in SQLite (default) or PostgreSQL.
// Both backends satisfy feed.Store and keep items in import order.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/abelbrown/reel/internal/feed"
	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when an update names an unknown item.
var ErrNotFound = errors.New("store: item not found")

// Backend is what the commands need from a store.
type Backend interface {
	feed.Store
	SaveItems(ctx context.Context, items []feed.Item, source string) (int, error)
	SetPreview(ctx context.Context, id, ref string) error
	Count(ctx context.Context) (int, error)
	Close() error
}

// Store handles SQLite persistence.
// Thread-safety: all methods are safe for concurrent use via internal mutex.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// Open creates a Store at dbPath and ensures the schema exists.
// ":memory:" opens a shared in-memory database.
func Open(dbPath string) (*Store, error) {
	connStr := dbPath
	if dbPath == ":memory:" {
		// Shared cache so every pooled connection sees the same database.
		connStr = "file::memory:?cache=shared"
	}

	db, err := sql.Open("sqlite", connStr)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if dbPath != ":memory:" {
		if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
			db.Close()
			return nil, fmt.Errorf("enable WAL mode: %w", err)
		}
	}

	s := &Store{db: db}
	if err := s.createTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}
	return s, nil
}

func (s *Store) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS feed_items (
		id            TEXT PRIMARY KEY,
		position      INTEGER NOT NULL,
		media_ref     TEXT NOT NULL,
		preview_ref   TEXT NOT NULL DEFAULT '',
		cover_ref     TEXT NOT NULL DEFAULT '',
		caption       TEXT NOT NULL DEFAULT '',
		author_name   TEXT NOT NULL DEFAULT '',
		author_avatar TEXT NOT NULL DEFAULT '',
		source        TEXT NOT NULL DEFAULT '',
		imported_at   DATETIME NOT NULL
	);

	CREATE UNIQUE INDEX IF NOT EXISTS idx_feed_items_position ON feed_items(position);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("execute schema: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

// SaveItems appends items to the end of the feed, returning how many were
// new. Known ids keep their original position.
func (s *Store) SaveItems(ctx context.Context, items []feed.Item, source string) (int, error) {
	if len(items) == 0 {
		return 0, nil
	}
	if err := feed.Validate(items); err != nil {
		return 0, err
	}
	if err := feed.RequireMedia(items); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	var next int64
	if err := tx.QueryRowContext(ctx, "SELECT COALESCE(MAX(position), -1) + 1 FROM feed_items").Scan(&next); err != nil {
		return 0, err
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR IGNORE INTO feed_items (
			id, position, media_ref, preview_ref, cover_ref, caption,
			author_name, author_avatar, source, imported_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	now := time.Now().UTC()
	newCount := 0
	for _, it := range items {
		res, err := stmt.ExecContext(ctx, it.ID, next, it.MediaRef, it.PreviewImageRef, it.CoverImageRef,
			it.Caption, it.AuthorName, it.AuthorAvatarRef, source, now)
		if err != nil {
			return 0, err
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return 0, err
		}
		if affected > 0 {
			newCount++
			next++
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return newCount, nil
}

const selectItems = `
	SELECT id, media_ref, preview_ref, cover_ref, caption, author_name, author_avatar
	FROM feed_items`

// List returns every item in feed order.
func (s *Store) List(ctx context.Context) ([]feed.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, selectItems+" ORDER BY position")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []feed.Item
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// Get returns the item with id, or nil when it does not exist.
func (s *Store) Get(ctx context.Context, id string) (*feed.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	it, err := scanItem(s.db.QueryRowContext(ctx, selectItems+" WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &it, nil
}

// Count returns the number of stored items.
func (s *Store) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM feed_items").Scan(&n)
	return n, err
}

// SetPreview records the preview image ref for id.
func (s *Store) SetPreview(ctx context.Context, id, ref string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, err := s.db.ExecContext(ctx, "UPDATE feed_items SET preview_ref = ? WHERE id = ?", ref, id)
	if err != nil {
		return fmt.Errorf("set preview %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("set preview %s: %w", id, ErrNotFound)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanItem(row scanner) (feed.Item, error) {
	var it feed.Item
	err := row.Scan(&it.ID, &it.MediaRef, &it.PreviewImageRef, &it.CoverImageRef,
		&it.Caption, &it.AuthorName, &it.AuthorAvatarRef)
	return it, err
}

// OpenBackend opens the store named by driver. sqlite takes a file path
// in dsn, memory ignores it, postgres takes a connection string.
func OpenBackend(ctx context.Context, driver, dsn string) (Backend, error) {
	switch driver {
	case "memory":
		return Open(":memory:")
	case "", "sqlite":
		return Open(dsn)
	case "postgres":
		return OpenPostgres(ctx, dsn)
	default:
		return nil, fmt.Errorf("store: unknown driver %q", driver)
	}
}

// SeedIfEmpty saves items when the store has none. Returns the number added.
func SeedIfEmpty(ctx context.Context, b Backend, items []feed.Item, source string) (int, error) {
	n, err := b.Count(ctx)
	if err != nil || n > 0 {
		return 0, err
	}
	return b.SaveItems(ctx, items, source)
}
