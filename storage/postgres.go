package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"apt_crawler/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore mirrors crawls and their records into Postgres.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, connString string) (*PostgresStore, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	config.MaxConns = 10
	config.MinConns = 2
	config.MaxConnLifetime = 30 * time.Minute
	config.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}

	store := &PostgresStore{pool: pool}
	if err := store.migrate(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return store, nil
}

func (s *PostgresStore) Close() {
	s.pool.Close()
}

func (s *PostgresStore) migrate(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS crawls (
		id UUID PRIMARY KEY,
		search_id TEXT NOT NULL,
		start_url TEXT NOT NULL,
		feed_uri TEXT,
		started_at TIMESTAMPTZ NOT NULL,
		finished_at TIMESTAMPTZ,
		status TEXT NOT NULL,
		list_records INTEGER NOT NULL DEFAULT 0,
		post_records INTEGER NOT NULL DEFAULT 0,
		errors_count INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS crawl_records (
		id UUID PRIMARY KEY,
		crawl_id UUID NOT NULL REFERENCES crawls(id) ON DELETE CASCADE,
		pid TEXT,
		type TEXT NOT NULL,
		payload JSONB NOT NULL,
		scraped_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_crawl_records_crawl ON crawl_records(crawl_id);
	CREATE INDEX IF NOT EXISTS idx_crawl_records_pid ON crawl_records(pid, type);
	`
	_, err := s.pool.Exec(ctx, schema)
	return err
}

// =============================================================================
// Crawls
// =============================================================================

func (s *PostgresStore) CreateCrawl(ctx context.Context, c *models.Crawl) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO crawls (id, search_id, start_url, feed_uri, started_at, status)
		VALUES (@id, @search_id, @start_url, @feed_uri, @started_at, @status)`,
		pgx.NamedArgs{
			"id":         c.ID,
			"search_id":  c.SearchID,
			"start_url":  c.StartURL,
			"feed_uri":   c.FeedURI,
			"started_at": c.StartedAt,
			"status":     c.Status,
		})
	return err
}

func (s *PostgresStore) FinishCrawl(ctx context.Context, c *models.Crawl) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE crawls SET
			feed_uri = $2, finished_at = $3, status = $4,
			list_records = $5, post_records = $6, errors_count = $7
		WHERE id = $1`,
		c.ID, c.FeedURI, c.FinishedAt, c.Status, c.ListRecords, c.PostRecords, c.ErrorsCount)
	return err
}

// =============================================================================
// Records
// =============================================================================

func (s *PostgresStore) InsertRecord(ctx context.Context, crawlID uuid.UUID, rec models.Record) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}

	var pid *string
	if id := rec.PostID(); id != "" {
		pid = &id
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO crawl_records (id, crawl_id, pid, type, payload, scraped_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		uuid.New(), crawlID, pid, string(rec.Type()), payload, time.Now())
	return err
}

// CountRecords counts mirrored records of a crawl by type.
func (s *PostgresStore) CountRecords(ctx context.Context, crawlID uuid.UUID) (map[models.RecordType]int, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT type, COUNT(*) FROM crawl_records WHERE crawl_id = $1 GROUP BY type`, crawlID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[models.RecordType]int)
	for rows.Next() {
		var t string
		var n int
		if err := rows.Scan(&t, &n); err != nil {
			return nil, err
		}
		counts[models.RecordType(t)] = n
	}
	return counts, rows.Err()
}

// CrawlSink writes records of one crawl into crawl_records.
type CrawlSink struct {
	store   *PostgresStore
	crawlID uuid.UUID
}

func (s *PostgresStore) Sink(crawlID uuid.UUID) *CrawlSink {
	return &CrawlSink{store: s, crawlID: crawlID}
}

func (c *CrawlSink) Emit(ctx context.Context, rec models.Record) error {
	if err := c.store.InsertRecord(ctx, c.crawlID, rec); err != nil {
		return fmt.Errorf("mirror %s record %s: %w", rec.Type(), rec.PostID(), err)
	}
	return nil
}
