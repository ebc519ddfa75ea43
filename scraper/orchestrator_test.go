package scraper

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"apt_crawler/config"
	"apt_crawler/models"
	"apt_crawler/storage"
)

type fakeUploader struct {
	uploaded []string
	err      error
}

func (f *fakeUploader) UploadFeed(_ context.Context, feedPath, searchID string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.uploaded = append(f.uploaded, feedPath)
	return "feeds/" + searchID + "/" + filepath.Base(feedPath), nil
}

func (f *fakeUploader) PublicURL(key string) string {
	return "https://bucket.example/" + key
}

func newTestOrchestrator(t *testing.T, searches ...*config.Search) (*Orchestrator, *storage.SQLiteStore) {
	t.Helper()
	dir := t.TempDir()

	store, err := storage.NewSQLiteStore(filepath.Join(dir, "crawler.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	cfg := &config.Config{
		Crawler:  testCrawlerConfig(),
		Output:   config.OutputConfig{Dir: filepath.Join(dir, "data")},
		Default:  config.NewSearch("", "", config.AvailabilityAny),
		Searches: make(map[string]*config.Search),
	}
	for _, s := range searches {
		cfg.Searches[s.ID] = s
	}
	return NewOrchestrator(cfg, store, nil), store
}

func TestOrchestratorRunSearch(t *testing.T) {
	srv := newListingServer(t)
	search := config.NewSearch("sfbay", "94121", config.AvailabilityWithin30)
	search.URL = srv.URL + "/search/apa"

	orch, store := newTestOrchestrator(t, &search)
	uploader := &fakeUploader{}
	orch.SetBackends(nil, uploader)

	run, err := orch.RunSearch(context.Background(), search)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if run.Status != models.RunStatusCompleted {
		t.Fatalf("expected completed run, got %s", run.Status)
	}
	if run.ListRecords != 6 || run.PostRecords != 2 {
		t.Fatalf("unexpected counts %+v", run)
	}
	if !strings.Contains(filepath.Base(run.FeedPath), "apt_crawler-sfbay-94121-1-") {
		t.Fatalf("unexpected feed path %s", run.FeedPath)
	}

	data, err := os.ReadFile(run.FeedPath)
	if err != nil {
		t.Fatalf("read feed: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 8 {
		t.Fatalf("expected 8 feed lines, got %d", len(lines))
	}
	for _, line := range lines {
		var rec map[string]interface{}
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			t.Fatalf("bad feed line %q: %v", line, err)
		}
		if rec["type"] != "list" && rec["type"] != "post" {
			t.Fatalf("unexpected record type in %q", line)
		}
	}

	if len(uploader.uploaded) != 1 || uploader.uploaded[0] != run.FeedPath {
		t.Fatalf("expected feed uploaded once, got %v", uploader.uploaded)
	}

	saved, err := store.GetRun(run.ID)
	if err != nil || saved == nil {
		t.Fatalf("get run: %v", err)
	}
	if saved.Status != models.RunStatusCompleted || saved.ErrorsCount != 2 {
		t.Fatalf("unexpected saved run %+v", saved)
	}

	stats, err := store.GetSearchStats(search.ID)
	if err != nil || stats == nil || stats.TotalRuns != 1 {
		t.Fatalf("unexpected stats %+v (%v)", stats, err)
	}
}

func TestOrchestratorUploadFailureKeepsRun(t *testing.T) {
	srv := newListingServer(t)
	search := config.NewSearch("sfbay", "94110", config.AvailabilityAny)
	search.URL = srv.URL + "/search/apa"

	orch, store := newTestOrchestrator(t, &search)
	orch.SetBackends(nil, &fakeUploader{err: errors.New("no bucket")})

	run, err := orch.RunSearch(context.Background(), search)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	logs, err := store.GetLogs(run.ID)
	if err != nil {
		t.Fatalf("get logs: %v", err)
	}
	found := false
	for _, l := range logs {
		if l.Level == models.LogLevelError && strings.Contains(l.Message, "no bucket") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected upload failure in run logs, got %+v", logs)
	}
}

func TestOrchestratorCommands(t *testing.T) {
	orch, store := newTestOrchestrator(t)

	if _, err := store.EnqueueCommand(models.CmdPause, nil); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	cmds, _ := store.GetPendingCommands()
	if err := orch.HandleCommand(context.Background(), &cmds[0]); err != nil {
		t.Fatalf("pause: %v", err)
	}
	if !orch.IsPaused() {
		t.Fatalf("expected paused")
	}

	// paused runs are skipped without touching the network
	if err := orch.RunAll(context.Background()); err != nil {
		t.Fatalf("run all while paused: %v", err)
	}

	if err := orch.HandleCommand(context.Background(), &models.Command{Command: models.CmdResume}); err != nil {
		t.Fatalf("resume: %v", err)
	}
	if orch.IsPaused() {
		t.Fatalf("expected resumed")
	}

	err := orch.HandleCommand(context.Background(), &models.Command{
		Command: models.CmdScrapeSearch,
		Params:  json.RawMessage(`{"search":"nope"}`),
	})
	if err == nil || !strings.Contains(err.Error(), "unknown search") {
		t.Fatalf("expected unknown search error, got %v", err)
	}

	if err := orch.HandleCommand(context.Background(), &models.Command{Command: "reboot"}); err == nil {
		t.Fatalf("expected unknown command error")
	}
}

func TestOrchestratorRejectsInvalidSearch(t *testing.T) {
	orch, _ := newTestOrchestrator(t)
	bad := config.Search{ID: "bad", AreaCode: "sfbay", AreaZip: "94121", Availability: 9}
	if _, err := orch.RunSearch(context.Background(), bad); !errors.Is(err, config.ErrInvalidAvailability) {
		t.Fatalf("expected ErrInvalidAvailability, got %v", err)
	}
}
