package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/abelbrown/reel/internal/feed"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore keeps feed items in PostgreSQL.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore wraps an existing pool.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// OpenPostgres connects to dsn and ensures the schema exists.
func OpenPostgres(ctx context.Context, dsn string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	s := NewPostgresStore(pool)
	if err := s.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// EnsureSchema creates the feed_items table when it does not already exist.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	const schema = `
CREATE TABLE IF NOT EXISTS feed_items (
	id            TEXT PRIMARY KEY,
	position      BIGINT NOT NULL UNIQUE,
	media_ref     TEXT NOT NULL,
	preview_ref   TEXT NOT NULL DEFAULT '',
	cover_ref     TEXT NOT NULL DEFAULT '',
	caption       TEXT NOT NULL DEFAULT '',
	author_name   TEXT NOT NULL DEFAULT '',
	author_avatar TEXT NOT NULL DEFAULT '',
	source        TEXT NOT NULL DEFAULT '',
	imported_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);`
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// SaveItems appends new items in one transaction.
func (s *PostgresStore) SaveItems(ctx context.Context, items []feed.Item, source string) (n int, err error) {
	if len(items) == 0 {
		return 0, nil
	}
	if err := feed.Validate(items); err != nil {
		return 0, err
	}
	if err := feed.RequireMedia(items); err != nil {
		return 0, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	// Serialize appenders so positions stay unique.
	if _, err = tx.Exec(ctx, "LOCK TABLE feed_items IN SHARE ROW EXCLUSIVE MODE"); err != nil {
		return 0, err
	}
	var next int64
	if err = tx.QueryRow(ctx, "SELECT COALESCE(MAX(position), -1) + 1 FROM feed_items").Scan(&next); err != nil {
		return 0, err
	}

	const insert = `
INSERT INTO feed_items (id, position, media_ref, preview_ref, cover_ref, caption, author_name, author_avatar, source)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
ON CONFLICT (id) DO NOTHING`
	for _, it := range items {
		tag, execErr := tx.Exec(ctx, insert, it.ID, next, it.MediaRef, it.PreviewImageRef, it.CoverImageRef,
			it.Caption, it.AuthorName, it.AuthorAvatarRef, source)
		if execErr != nil {
			err = execErr
			return 0, err
		}
		if tag.RowsAffected() > 0 {
			n++
			next++
		}
	}
	if err = tx.Commit(ctx); err != nil {
		return 0, err
	}
	return n, nil
}

const pgSelectItems = `
SELECT id, media_ref, preview_ref, cover_ref, caption, author_name, author_avatar
FROM feed_items`

// List returns every item in feed order.
func (s *PostgresStore) List(ctx context.Context) ([]feed.Item, error) {
	rows, err := s.pool.Query(ctx, pgSelectItems+" ORDER BY position")
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
func (s *PostgresStore) Get(ctx context.Context, id string) (*feed.Item, error) {
	it, err := scanItem(s.pool.QueryRow(ctx, pgSelectItems+" WHERE id = $1", id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &it, nil
}

// SetPreview records the preview image ref for id.
func (s *PostgresStore) SetPreview(ctx context.Context, id, ref string) error {
	tag, err := s.pool.Exec(ctx, "UPDATE feed_items SET preview_ref = $1 WHERE id = $2", ref, id)
	if err != nil {
		return fmt.Errorf("set preview %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("set preview %s: %w", id, ErrNotFound)
	}
	return nil
}

// Count returns the number of stored items.
func (s *PostgresStore) Count(ctx context.Context) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM feed_items").Scan(&n)
	return n, err
}

// Close releases the pool.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
