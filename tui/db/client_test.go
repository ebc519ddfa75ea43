package db

import (
	"path/filepath"
	"testing"
	"time"
)

const testSchema = `
CREATE TABLE scrape_runs (
	id INTEGER PRIMARY KEY, crawl_id TEXT, search_id TEXT, start_url TEXT, feed_path TEXT,
	started_at DATETIME, finished_at DATETIME, status TEXT,
	requests INTEGER DEFAULT 0, list_records INTEGER DEFAULT 0, post_records INTEGER DEFAULT 0, errors_count INTEGER DEFAULT 0
);
CREATE TABLE scrape_logs (id INTEGER PRIMARY KEY, run_id INTEGER, timestamp DATETIME, level TEXT, message TEXT, search_id TEXT);
CREATE TABLE search_stats (search_id TEXT PRIMARY KEY, last_run_at DATETIME, last_status TEXT, total_runs INTEGER, total_records INTEGER);
CREATE TABLE commands (id INTEGER PRIMARY KEY, command TEXT, params JSON, created_at DATETIME DEFAULT CURRENT_TIMESTAMP, processed_at DATETIME);
`

func newTestClient(t *testing.T) *Client {
	t.Helper()
	c, err := New(filepath.Join(t.TempDir(), "crawler.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	if _, err := c.db.Exec(testSchema); err != nil {
		t.Fatalf("schema: %v", err)
	}
	return c
}

func TestRunsAndLogs(t *testing.T) {
	c := newTestClient(t)
	now := time.Now()

	_, err := c.db.Exec(`INSERT INTO scrape_runs (search_id, feed_path, started_at, status, list_records, post_records)
		VALUES ('richmond', 'data/a.jl', ?, 'completed', 10, 8), ('mission', 'data/b.jl', ?, 'running', 0, 0)`,
		now.Add(-time.Hour), now)
	if err != nil {
		t.Fatalf("insert runs: %v", err)
	}
	_, err = c.db.Exec(`INSERT INTO scrape_logs (run_id, timestamp, level, message, search_id)
		VALUES (1, ?, 'info', 'started', 'richmond'), (1, ?, 'error', 'missing container', 'richmond')`,
		now.Add(-time.Minute), now)
	if err != nil {
		t.Fatalf("insert logs: %v", err)
	}

	runs, err := c.GetRecentRuns(10)
	if err != nil {
		t.Fatalf("runs: %v", err)
	}
	if len(runs) != 2 || runs[0].SearchID != "mission" {
		t.Fatalf("expected newest run first, got %+v", runs)
	}
	if runs[1].ListRecords != 10 || runs[1].FinishedAt != nil {
		t.Fatalf("unexpected run %+v", runs[1])
	}

	logs, err := c.GetRecentLogs(10, nil)
	if err != nil || len(logs) != 2 {
		t.Fatalf("expected 2 logs, got %d (%v)", len(logs), err)
	}
	level := "error"
	logs, err = c.GetRecentLogs(10, &level)
	if err != nil || len(logs) != 1 || logs[0].Message != "missing container" {
		t.Fatalf("expected only the error log, got %+v (%v)", logs, err)
	}
}

func TestCommands(t *testing.T) {
	c := newTestClient(t)

	if err := c.ScrapeSearch("richmond"); err != nil {
		t.Fatalf("scrape search: %v", err)
	}
	if err := c.Pause(); err != nil {
		t.Fatalf("pause: %v", err)
	}

	var params string
	if err := c.db.QueryRow(`SELECT params FROM commands WHERE command = 'scrape_search'`).Scan(&params); err != nil {
		t.Fatalf("read params: %v", err)
	}
	if params != `{"search":"richmond"}` {
		t.Fatalf("unexpected params %s", params)
	}

	paused, err := c.Paused()
	if err != nil || paused {
		t.Fatalf("unprocessed pause should not count, got %v (%v)", paused, err)
	}

	if _, err := c.db.Exec(`UPDATE commands SET processed_at = ? WHERE command = 'pause'`, time.Now()); err != nil {
		t.Fatalf("mark: %v", err)
	}
	paused, err = c.Paused()
	if err != nil || !paused {
		t.Fatalf("expected paused, got %v (%v)", paused, err)
	}
}
