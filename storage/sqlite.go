package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"apt_crawler/models"

	_ "github.com/mattn/go-sqlite3"
)

type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, err
	}

	store := &SQLiteStore{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS scrape_runs (
		id INTEGER PRIMARY KEY,
		crawl_id TEXT,
		search_id TEXT,
		start_url TEXT,
		feed_path TEXT,
		started_at DATETIME,
		finished_at DATETIME,
		status TEXT,
		requests INTEGER DEFAULT 0,
		list_records INTEGER DEFAULT 0,
		post_records INTEGER DEFAULT 0,
		errors_count INTEGER DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS scrape_logs (
		id INTEGER PRIMARY KEY,
		run_id INTEGER,
		timestamp DATETIME,
		level TEXT,
		message TEXT,
		search_id TEXT
	);

	CREATE TABLE IF NOT EXISTS search_stats (
		search_id TEXT PRIMARY KEY,
		last_run_at DATETIME,
		last_status TEXT,
		total_runs INTEGER,
		total_records INTEGER
	);

	CREATE TABLE IF NOT EXISTS commands (
		id INTEGER PRIMARY KEY,
		command TEXT,
		params JSON,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		processed_at DATETIME
	);

	CREATE INDEX IF NOT EXISTS idx_commands_pending ON commands(processed_at) WHERE processed_at IS NULL;
	CREATE INDEX IF NOT EXISTS idx_logs_run ON scrape_logs(run_id, timestamp);
	CREATE INDEX IF NOT EXISTS idx_runs_search ON scrape_runs(search_id, started_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteStore) CreateRun(run *models.ScrapeRun) (int64, error) {
	result, err := s.db.Exec(`
		INSERT INTO scrape_runs (crawl_id, search_id, start_url, feed_path, started_at, status)
		VALUES (?, ?, ?, ?, ?, ?)`,
		run.CrawlID.String(), run.SearchID, run.StartURL, run.FeedPath, run.StartedAt, run.Status)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

func (s *SQLiteStore) UpdateRun(run *models.ScrapeRun) error {
	_, err := s.db.Exec(`
		UPDATE scrape_runs SET finished_at = ?, status = ?, requests = ?,
			list_records = ?, post_records = ?, errors_count = ?
		WHERE id = ?`,
		run.FinishedAt, run.Status, run.Requests, run.ListRecords,
		run.PostRecords, run.ErrorsCount, run.ID)
	return err
}

func (s *SQLiteStore) GetRun(id int64) (*models.ScrapeRun, error) {
	row := s.db.QueryRow(`
		SELECT id, crawl_id, search_id, start_url, feed_path, started_at, finished_at, status,
			requests, list_records, post_records, errors_count
		FROM scrape_runs WHERE id = ?`, id)

	var run models.ScrapeRun
	var crawlID string
	err := row.Scan(&run.ID, &crawlID, &run.SearchID, &run.StartURL, &run.FeedPath, &run.StartedAt,
		&run.FinishedAt, &run.Status, &run.Requests, &run.ListRecords, &run.PostRecords, &run.ErrorsCount)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := run.CrawlID.UnmarshalText([]byte(crawlID)); err != nil {
		return nil, fmt.Errorf("run %d crawl id: %w", id, err)
	}
	return &run, nil
}

func (s *SQLiteStore) Log(runID *int64, level models.LogLevel, message, searchID string) error {
	_, err := s.db.Exec(`
		INSERT INTO scrape_logs (run_id, timestamp, level, message, search_id)
		VALUES (?, ?, ?, ?, ?)`,
		runID, time.Now(), level, message, searchID)
	return err
}

func (s *SQLiteStore) GetLogs(runID int64) ([]models.ScrapeLog, error) {
	rows, err := s.db.Query(`
		SELECT id, run_id, timestamp, level, message, search_id
		FROM scrape_logs WHERE run_id = ? ORDER BY timestamp, id`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []models.ScrapeLog
	for rows.Next() {
		var l models.ScrapeLog
		if err := rows.Scan(&l.ID, &l.RunID, &l.Timestamp, &l.Level, &l.Message, &l.SearchID); err != nil {
			return nil, err
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}

func (s *SQLiteStore) UpdateSearchStats(searchID string) error {
	_, err := s.db.Exec(`
		INSERT INTO search_stats (search_id, last_run_at, last_status, total_runs, total_records)
		SELECT
			?,
			(SELECT started_at FROM scrape_runs WHERE search_id = ? ORDER BY started_at DESC, id DESC LIMIT 1),
			(SELECT status FROM scrape_runs WHERE search_id = ? ORDER BY started_at DESC, id DESC LIMIT 1),
			(SELECT COUNT(*) FROM scrape_runs WHERE search_id = ?),
			(SELECT COALESCE(SUM(list_records + post_records), 0) FROM scrape_runs WHERE search_id = ?)
		WHERE true
		ON CONFLICT(search_id) DO UPDATE SET
			last_run_at = excluded.last_run_at,
			last_status = excluded.last_status,
			total_runs = excluded.total_runs,
			total_records = excluded.total_records`,
		searchID, searchID, searchID, searchID, searchID)
	return err
}

func (s *SQLiteStore) GetSearchStats(searchID string) (*models.SearchStats, error) {
	row := s.db.QueryRow(`
		SELECT search_id, last_run_at, last_status, total_runs, total_records
		FROM search_stats WHERE search_id = ?`, searchID)

	var st models.SearchStats
	var status sql.NullString
	err := row.Scan(&st.SearchID, &st.LastRunAt, &status, &st.TotalRuns, &st.TotalRecords)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	st.LastStatus = status.String
	return &st, nil
}

func (s *SQLiteStore) EnqueueCommand(cmd models.CommandType, params *models.CommandParams) (int64, error) {
	var raw []byte
	if params != nil {
		var err error
		if raw, err = json.Marshal(params); err != nil {
			return 0, err
		}
	}
	result, err := s.db.Exec(`INSERT INTO commands (command, params, created_at) VALUES (?, ?, ?)`,
		cmd, nullableJSON(raw), time.Now())
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

func nullableJSON(raw []byte) interface{} {
	if raw == nil {
		return nil
	}
	return string(raw)
}

func (s *SQLiteStore) GetPendingCommands() ([]models.Command, error) {
	rows, err := s.db.Query(`
		SELECT id, command, params, created_at, processed_at
		FROM commands WHERE processed_at IS NULL ORDER BY created_at, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cmds []models.Command
	for rows.Next() {
		var cmd models.Command
		var params sql.NullString
		if err := rows.Scan(&cmd.ID, &cmd.Command, &params, &cmd.CreatedAt, &cmd.ProcessedAt); err != nil {
			return nil, err
		}
		if params.Valid {
			cmd.Params = json.RawMessage(params.String)
		}
		cmds = append(cmds, cmd)
	}
	return cmds, rows.Err()
}

func (s *SQLiteStore) MarkCommandProcessed(id int64) error {
	_, err := s.db.Exec(`UPDATE commands SET processed_at = ? WHERE id = ?`, time.Now(), id)
	return err
}

func (s *SQLiteStore) ParseCommandParams(cmd *models.Command) (*models.CommandParams, error) {
	if cmd.Params == nil || string(cmd.Params) == "null" {
		return &models.CommandParams{}, nil
	}
	var params models.CommandParams
	if err := json.Unmarshal(cmd.Params, &params); err != nil {
		return nil, err
	}
	return &params, nil
}

// ResetAllData deletes every run, log, search stat and command in one
// transaction. Feed files are left alone.
func (s *SQLiteStore) ResetAllData() error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, table := range []string{"scrape_logs", "scrape_runs", "search_stats", "commands"} {
		if _, err := tx.Exec("DELETE FROM " + table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}
	return tx.Commit()
}
