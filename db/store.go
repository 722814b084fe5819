// Package db is the SQLite backend of the feed cache
package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"feedbridge/cache"

	sqlbuilder "github.com/huandu/go-sqlbuilder"
)

const table = "feed_cache"

// CacheStore keeps feed blobs in an SQLite table. Expired rows are invisible
// to reads and removed by Tidy.
type CacheStore struct {
	db  *sql.DB
	now func() time.Time
}

var _ cache.Store = (*CacheStore)(nil)

// Open migrates the database at path and opens a store on it
func Open(path string) (*CacheStore, error) {
	if err := Migrate(path); err != nil {
		return nil, fmt.Errorf("error migrating cache database: %w", err)
	}

	db, err := connection(path)
	if err != nil {
		return nil, fmt.Errorf("error opening cache database: %w", err)
	}

	return &CacheStore{db: db, now: time.Now}, nil
}

func (s *CacheStore) Get(ctx context.Context, key cache.Key) ([]byte, error) {
	sb := sqlbuilder.SQLite.NewSelectBuilder()
	sb.Select("blob").From(table).Where(
		sb.Equal("cache_key", key.String()),
		sb.GreaterThan("expires_at", s.now().UnixMilli()),
	)
	query, args := sb.Build()

	var blob []byte
	err := s.db.QueryRowContext(ctx, query, args...).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, cache.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", cache.ErrUnavailable, err)
	}
	return blob, nil
}

func (s *CacheStore) Set(ctx context.Context, key cache.Key, blob []byte, ttl time.Duration) error {
	now := s.now()

	ib := sqlbuilder.SQLite.NewInsertBuilder()
	ib.ReplaceInto(table).
		Cols("cache_key", "source", "subject", "blob", "expires_at", "updated_at").
		Values(key.String(), key.Source, key.Subject, blob, now.Add(ttl).UnixMilli(), now.UnixMilli())
	query, args := ib.Build()

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("%w: %v", cache.ErrUnavailable, err)
	}
	return nil
}

// DeleteAll removes every row inside one transaction
func (s *CacheStore) DeleteAll(ctx context.Context) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", cache.ErrUnavailable, err)
	}
	defer tx.Rollback()

	del := sqlbuilder.SQLite.NewDeleteBuilder()
	del.DeleteFrom(table).Where(del.Like("cache_key", cache.KeyPrefix+"%"))
	query, args := del.Build()

	result, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", cache.ErrUnavailable, err)
	}
	count, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", cache.ErrUnavailable, err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("%w: %v", cache.ErrUnavailable, err)
	}
	return int(count), nil
}

func (s *CacheStore) Close() error {
	return s.db.Close()
}
