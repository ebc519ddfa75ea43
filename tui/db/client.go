package db

import (
	"database/sql"
	"encoding/json"
	"time"

	_ "modernc.org/sqlite"
)

// Client reads the crawler's SQLite file and writes commands the daemon polls.
type Client struct {
	db *sql.DB
}

type SearchStats struct {
	SearchID     string
	LastRunAt    *time.Time
	LastStatus   *string
	TotalRuns    int
	TotalRecords int
}

type ScrapeRun struct {
	ID          int
	SearchID    string
	FeedPath    string
	StartedAt   time.Time
	FinishedAt  *time.Time
	Status      string
	Requests    int
	ListRecords int
	PostRecords int
	ErrorsCount int
}

type ScrapeLog struct {
	ID        int
	RunID     *int
	Timestamp time.Time
	Level     string
	Message   string
	SearchID  *string
}

func New(sqlitePath string) (*Client, error) {
	db, err := sql.Open("sqlite", sqlitePath+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}
	return &Client{db: db}, nil
}

func (c *Client) Close() error {
	return c.db.Close()
}

func (c *Client) GetSearchStats() ([]SearchStats, error) {
	rows, err := c.db.Query(`
		SELECT search_id, last_run_at, last_status, COALESCE(total_runs, 0), COALESCE(total_records, 0)
		FROM search_stats ORDER BY search_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stats []SearchStats
	for rows.Next() {
		var s SearchStats
		var lastRun sql.NullTime
		if err := rows.Scan(&s.SearchID, &lastRun, &s.LastStatus, &s.TotalRuns, &s.TotalRecords); err != nil {
			return nil, err
		}
		if lastRun.Valid {
			s.LastRunAt = &lastRun.Time
		}
		stats = append(stats, s)
	}
	return stats, rows.Err()
}

func (c *Client) GetRecentRuns(limit int) ([]ScrapeRun, error) {
	rows, err := c.db.Query(`
		SELECT id, search_id, COALESCE(feed_path, ''), started_at, finished_at, status,
			requests, list_records, post_records, errors_count
		FROM scrape_runs ORDER BY started_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []ScrapeRun
	for rows.Next() {
		var r ScrapeRun
		var finished sql.NullTime
		if err := rows.Scan(&r.ID, &r.SearchID, &r.FeedPath, &r.StartedAt, &finished, &r.Status,
			&r.Requests, &r.ListRecords, &r.PostRecords, &r.ErrorsCount); err != nil {
			return nil, err
		}
		if finished.Valid {
			r.FinishedAt = &finished.Time
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// GetRecentLogs returns the newest logs first. A nil level means all levels.
func (c *Client) GetRecentLogs(limit int, level *string) ([]ScrapeLog, error) {
	var rows *sql.Rows
	var err error
	if level != nil {
		rows, err = c.db.Query(`
			SELECT id, run_id, timestamp, level, message, search_id
			FROM scrape_logs WHERE level = ? ORDER BY timestamp DESC, id DESC LIMIT ?`, *level, limit)
	} else {
		rows, err = c.db.Query(`
			SELECT id, run_id, timestamp, level, message, search_id
			FROM scrape_logs ORDER BY timestamp DESC, id DESC LIMIT ?`, limit)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []ScrapeLog
	for rows.Next() {
		var l ScrapeLog
		if err := rows.Scan(&l.ID, &l.RunID, &l.Timestamp, &l.Level, &l.Message, &l.SearchID); err != nil {
			return nil, err
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}

func (c *Client) SendCommand(command string, params map[string]interface{}) error {
	var raw interface{}
	if params != nil {
		b, err := json.Marshal(params)
		if err != nil {
			return err
		}
		raw = string(b)
	}
	_, err := c.db.Exec(`INSERT INTO commands (command, params, created_at) VALUES (?, ?, ?)`,
		command, raw, time.Now())
	return err
}

func (c *Client) ScrapeNow() error {
	return c.SendCommand("scrape_now", nil)
}

func (c *Client) ScrapeSearch(searchID string) error {
	return c.SendCommand("scrape_search", map[string]interface{}{"search": searchID})
}

func (c *Client) Pause() error {
	return c.SendCommand("pause", nil)
}

func (c *Client) Resume() error {
	return c.SendCommand("resume", nil)
}

// Paused reports whether the last processed pause/resume command was a pause.
func (c *Client) Paused() (bool, error) {
	var cmd string
	err := c.db.QueryRow(`
		SELECT command FROM commands
		WHERE command IN ('pause', 'resume') AND processed_at IS NOT NULL
		ORDER BY processed_at DESC, id DESC LIMIT 1`).Scan(&cmd)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return cmd == "pause", nil
}
