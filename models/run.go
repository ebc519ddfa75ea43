package models

import (
	"time"

	"github.com/google/uuid"
)

type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// ScrapeRun is the SQLite bookkeeping row for one search crawl.
type ScrapeRun struct {
	ID          int64      `json:"id" db:"id"`
	CrawlID     uuid.UUID  `json:"crawl_id" db:"crawl_id"`
	SearchID    string     `json:"search_id" db:"search_id"`
	StartURL    string     `json:"start_url" db:"start_url"`
	FeedPath    string     `json:"feed_path" db:"feed_path"`
	StartedAt   time.Time  `json:"started_at" db:"started_at"`
	FinishedAt  *time.Time `json:"finished_at" db:"finished_at"`
	Status      RunStatus  `json:"status" db:"status"`
	Requests    int        `json:"requests" db:"requests"`
	ListRecords int        `json:"list_records" db:"list_records"`
	PostRecords int        `json:"post_records" db:"post_records"`
	ErrorsCount int        `json:"errors_count" db:"errors_count"`
}

// Crawl is the Postgres row for one crawl, referenced by every mirrored record.
type Crawl struct {
	ID          uuid.UUID  `json:"id" db:"id"`
	SearchID    string     `json:"search_id" db:"search_id"`
	StartURL    string     `json:"start_url" db:"start_url"`
	FeedURI     string     `json:"feed_uri" db:"feed_uri"`
	StartedAt   time.Time  `json:"started_at" db:"started_at"`
	FinishedAt  *time.Time `json:"finished_at" db:"finished_at"`
	Status      RunStatus  `json:"status" db:"status"`
	ListRecords int        `json:"list_records" db:"list_records"`
	PostRecords int        `json:"post_records" db:"post_records"`
	ErrorsCount int        `json:"errors_count" db:"errors_count"`
}

type SearchStats struct {
	SearchID     string     `json:"search_id" db:"search_id"`
	LastRunAt    *time.Time `json:"last_run_at" db:"last_run_at"`
	LastStatus   string     `json:"last_status" db:"last_status"`
	TotalRuns    int        `json:"total_runs" db:"total_runs"`
	TotalRecords int        `json:"total_records" db:"total_records"`
}
