// Package postgres provides the Postgres-backed persistence gateway.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/asibalo/netflix-critic/internal/critic"
)

// TitleStoreConfig controls the Postgres connection pool.
type TitleStoreConfig struct {
	DSN             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

// pgxPool is the pool subset the store needs; satisfied by *pgxpool.Pool
// and by pgxmock in tests.
type pgxPool interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// TitleStore persists enrichment batches into Postgres with
// conflict-ignore semantics per entity kind, all inside one transaction.
type TitleStore struct {
	pool pgxPool
}

// NewTitleStore creates a Postgres-backed TitleStore using the provided
// config.
func NewTitleStore(ctx context.Context, cfg TitleStoreConfig) (*TitleStore, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("db.dsn is required")
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
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &TitleStore{pool: pool}, nil
}

// NewTitleStoreWithPool constructs a store from an existing pool
// (primarily for testing).
func NewTitleStoreWithPool(pool pgxPool) (*TitleStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	return &TitleStore{pool: pool}, nil
}

// Close releases the underlying pool resources.
func (s *TitleStore) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// SaveBatch applies the batch atomically. Rows whose unique keys already
// exist are silently skipped, never errors; re-running a batch is safe.
func (s *TitleStore) SaveBatch(ctx context.Context, batch critic.EnrichmentBatch) error {
	if s == nil || s.pool == nil {
		return fmt.Errorf("title store is not configured")
	}
	if batch.Empty() {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin batch transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if err := insertTitles(ctx, tx, batch.Titles); err != nil {
		return err
	}
	if err := insertAvailability(ctx, tx, batch.Availability); err != nil {
		return err
	}
	if err := insertRatings(ctx, tx, batch.Ratings); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit batch: %w", err)
	}
	return nil
}

// GetTitle returns the persisted title joined with its "Google users"
// rating when one exists.
func (s *TitleStore) GetTitle(ctx context.Context, netflixID int) (critic.StoredTitle, error) {
	if s == nil || s.pool == nil {
		return critic.StoredTitle{}, fmt.Errorf("title store is not configured")
	}
	const query = `
SELECT t.netflix_id, t.title, t.content_type, t.release_year, t.runtime, r.rating
FROM title t
LEFT JOIN rating r ON r.netflix_id = t.netflix_id AND r.vendor = 'Google users'
WHERE t.netflix_id = $1`

	var out critic.StoredTitle
	err := s.pool.QueryRow(ctx, query, netflixID).Scan(
		&out.NetflixID,
		&out.Title,
		&out.ContentType,
		&out.ReleaseYear,
		&out.Runtime,
		&out.GoogleUsersRating,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return critic.StoredTitle{}, critic.ErrTitleNotFound
		}
		return critic.StoredTitle{}, fmt.Errorf("select title %d: %w", netflixID, err)
	}
	return out, nil
}

func insertTitles(ctx context.Context, tx pgx.Tx, titles []critic.Title) error {
	if len(titles) == 0 {
		return nil
	}
	var (
		sb   strings.Builder
		args []any
	)
	sb.WriteString("INSERT INTO title (netflix_id, title, content_type, release_year, runtime, meta_data) VALUES ")
	for i, t := range titles {
		metadata, err := json.Marshal(t.Metadata)
		if err != nil {
			return fmt.Errorf("marshal metadata for %d: %w", t.NetflixID, err)
		}
		writeValuesRow(&sb, i, 6)
		args = append(args, t.NetflixID, t.Title, t.ContentType, t.ReleaseYear, t.Runtime, metadata)
	}
	sb.WriteString(" ON CONFLICT (netflix_id) DO NOTHING")
	if _, err := tx.Exec(ctx, sb.String(), args...); err != nil {
		return fmt.Errorf("insert titles: %w", err)
	}
	return nil
}

func insertAvailability(ctx context.Context, tx pgx.Tx, rows []critic.Availability) error {
	if len(rows) == 0 {
		return nil
	}
	var (
		sb   strings.Builder
		args []any
	)
	sb.WriteString("INSERT INTO availability (netflix_id, country, titlepage_reachable, available, checked_at) VALUES ")
	for i, a := range rows {
		writeValuesRow(&sb, i, 5)
		args = append(args, a.NetflixID, a.Country, a.TitlepageReachable, a.Available, a.CheckedAt)
	}
	sb.WriteString(" ON CONFLICT (netflix_id, country) DO NOTHING")
	if _, err := tx.Exec(ctx, sb.String(), args...); err != nil {
		return fmt.Errorf("insert availability: %w", err)
	}
	return nil
}

func insertRatings(ctx context.Context, tx pgx.Tx, rows []critic.Rating) error {
	if len(rows) == 0 {
		return nil
	}
	var (
		sb   strings.Builder
		args []any
	)
	sb.WriteString("INSERT INTO rating (netflix_id, vendor, url, rating, ratings_count) VALUES ")
	for i, r := range rows {
		writeValuesRow(&sb, i, 5)
		args = append(args, r.NetflixID, r.Vendor, r.URL, r.Rating, r.RatingsCount)
	}
	sb.WriteString(" ON CONFLICT (netflix_id, vendor) DO NOTHING")
	if _, err := tx.Exec(ctx, sb.String(), args...); err != nil {
		return fmt.Errorf("insert ratings: %w", err)
	}
	return nil
}

// writeValuesRow appends "($n,$n+1,...)" for row i with width columns.
func writeValuesRow(sb *strings.Builder, i, width int) {
	if i > 0 {
		sb.WriteString(", ")
	}
	sb.WriteByte('(')
	for c := 0; c < width; c++ {
		if c > 0 {
			sb.WriteByte(',')
		}
		fmt.Fprintf(sb, "$%d", i*width+c+1)
	}
	sb.WriteByte(')')
}
