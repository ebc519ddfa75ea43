package scraper

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"apt_crawler/config"
	"apt_crawler/models"
	"apt_crawler/storage"

	"github.com/google/uuid"
)

// FeedUploader exports a finished feed and returns where it ended up.
type FeedUploader interface {
	UploadFeed(ctx context.Context, feedPath, searchID string) (string, error)
	PublicURL(key string) string
}

type Orchestrator struct {
	cfg       *config.Config
	store     *storage.SQLiteStore
	transport http.RoundTripper

	mu     sync.Mutex
	paused bool

	// optional backends
	pgStore  *storage.PostgresStore
	uploader FeedUploader
}

func NewOrchestrator(cfg *config.Config, store *storage.SQLiteStore, transport http.RoundTripper) *Orchestrator {
	return &Orchestrator{
		cfg:       cfg,
		store:     store,
		transport: transport,
	}
}

// SetBackends injects the Postgres mirror and the S3 uploader. Either may be nil.
func (o *Orchestrator) SetBackends(pgStore *storage.PostgresStore, uploader FeedUploader) {
	o.pgStore = pgStore
	o.uploader = uploader
}

// RunAll crawls every saved search, or the default search when none are saved.
func (o *Orchestrator) RunAll(ctx context.Context) error {
	if o.IsPaused() {
		log.Println("Scraper is paused, skipping run")
		return nil
	}

	ids := o.cfg.SearchIDs()
	if len(ids) == 0 {
		_, err := o.RunSearch(ctx, o.cfg.Default)
		return err
	}

	for _, id := range ids {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if _, err := o.RunSearch(ctx, *o.cfg.Searches[id]); err != nil {
			log.Printf("Error running search %s: %v", id, err)
		}
	}
	return nil
}

// RunSearchID runs a saved search by id.
func (o *Orchestrator) RunSearchID(ctx context.Context, id string) error {
	search, ok := o.cfg.Searches[id]
	if !ok {
		if id != o.cfg.Default.ID {
			return fmt.Errorf("unknown search: %s", id)
		}
		search = &o.cfg.Default
	}
	_, err := o.RunSearch(ctx, *search)
	return err
}

// RunSearch crawls one search into a fresh feed file and records the run.
func (o *Orchestrator) RunSearch(ctx context.Context, search config.Search) (*models.ScrapeRun, error) {
	if err := search.Validate(); err != nil {
		return nil, fmt.Errorf("search %s: %w", search.ID, err)
	}

	startedAt := time.Now()
	run := &models.ScrapeRun{
		CrawlID:   uuid.New(),
		SearchID:  search.ID,
		StartURL:  search.StartURL(),
		FeedPath:  storage.FeedPath(o.cfg.Output.Dir, search.AreaCode, search.AreaZip, int(search.Availability), startedAt),
		StartedAt: startedAt,
		Status:    models.RunStatusRunning,
	}

	runID, err := o.store.CreateRun(run)
	if err != nil {
		return nil, fmt.Errorf("create run: %w", err)
	}
	run.ID = runID

	feed, err := storage.OpenFeed(run.FeedPath)
	if err != nil {
		o.finish(ctx, run, nil, models.RunStatusFailed)
		return run, err
	}

	var mirror storage.Sink
	var crawl *models.Crawl
	if o.pgStore != nil {
		crawl = &models.Crawl{
			ID:        run.CrawlID,
			SearchID:  search.ID,
			StartURL:  run.StartURL,
			FeedURI:   run.FeedPath,
			StartedAt: startedAt,
			Status:    models.RunStatusRunning,
		}
		if err := o.pgStore.CreateCrawl(ctx, crawl); err != nil {
			o.log(run.ID, models.LogLevelWarn, fmt.Sprintf("Postgres mirror disabled for this run: %v", err), search.ID)
			crawl = nil
		} else {
			mirror = o.pgStore.Sink(crawl.ID)
		}
	}

	o.log(run.ID, models.LogLevelInfo, fmt.Sprintf("Starting crawl %s -> %s", run.StartURL, run.FeedPath), search.ID)

	crawler := NewCrawler(o.cfg.Crawler, o.cfg.HTTP.Timeout, o.transport, feed)
	if mirror != nil {
		crawler.SetMirror(mirror)
	}
	stats, crawlErr := crawler.Run(ctx, run.StartURL)
	if stats.MirrorErrors > 0 {
		o.log(run.ID, models.LogLevelWarn, fmt.Sprintf("%d records failed to mirror to Postgres", stats.MirrorErrors), search.ID)
	}
	run.Requests = stats.Requests
	run.ListRecords = stats.ListRecords
	run.PostRecords = stats.PostRecords
	run.ErrorsCount = stats.Errors

	if err := feed.Close(); err != nil {
		o.log(run.ID, models.LogLevelError, fmt.Sprintf("Closing feed: %v", err), search.ID)
	}

	status := models.RunStatusCompleted
	if crawlErr != nil {
		status = models.RunStatusFailed
		o.log(run.ID, models.LogLevelError, fmt.Sprintf("Crawl error: %v", crawlErr), search.ID)
	}

	if o.uploader != nil && crawlErr == nil {
		key, err := o.uploader.UploadFeed(ctx, run.FeedPath, search.ID)
		if err != nil {
			o.log(run.ID, models.LogLevelError, fmt.Sprintf("Feed upload failed: %v", err), search.ID)
		} else {
			feedURL := o.uploader.PublicURL(key)
			o.log(run.ID, models.LogLevelInfo, fmt.Sprintf("Feed uploaded to %s", feedURL), search.ID)
			if crawl != nil {
				crawl.FeedURI = feedURL
			}
		}
	}

	o.finish(ctx, run, crawl, status)

	o.log(run.ID, models.LogLevelInfo,
		fmt.Sprintf("Completed: %d requests, %d list records, %d post records, %d errors",
			run.Requests, run.ListRecords, run.PostRecords, run.ErrorsCount), search.ID)

	return run, crawlErr
}

func (o *Orchestrator) finish(ctx context.Context, run *models.ScrapeRun, crawl *models.Crawl, status models.RunStatus) {
	now := time.Now()
	run.FinishedAt = &now
	run.Status = status
	if err := o.store.UpdateRun(run); err != nil {
		log.Printf("Warning: failed to update run %d: %v", run.ID, err)
	}
	if err := o.store.UpdateSearchStats(run.SearchID); err != nil {
		log.Printf("Warning: failed to update stats for %s: %v", run.SearchID, err)
	}

	if crawl == nil {
		return
	}
	crawl.FinishedAt = &now
	crawl.Status = status
	crawl.ListRecords = run.ListRecords
	crawl.PostRecords = run.PostRecords
	crawl.ErrorsCount = run.ErrorsCount
	// the run context may already be cancelled
	pgCtx := context.WithoutCancel(ctx)
	if err := o.pgStore.FinishCrawl(pgCtx, crawl); err != nil {
		log.Printf("Warning: failed to finish Postgres crawl %s: %v", crawl.ID, err)
		return
	}

	counts, err := o.pgStore.CountRecords(pgCtx, crawl.ID)
	if err != nil {
		log.Printf("Warning: failed to count Postgres records for %s: %v", crawl.ID, err)
		return
	}
	if counts[models.RecordTypeList] != crawl.ListRecords || counts[models.RecordTypePost] != crawl.PostRecords {
		o.log(run.ID, models.LogLevelWarn, fmt.Sprintf("Postgres mirror has %d list / %d post records, feed has %d / %d",
			counts[models.RecordTypeList], counts[models.RecordTypePost], crawl.ListRecords, crawl.PostRecords), run.SearchID)
	}
}

func (o *Orchestrator) HandleCommand(ctx context.Context, cmd *models.Command) error {
	params, err := o.store.ParseCommandParams(cmd)
	if err != nil {
		return err
	}

	switch cmd.Command {
	case models.CmdScrapeNow:
		return o.RunAll(ctx)
	case models.CmdScrapeSearch:
		if params.Search != "" {
			return o.RunSearchID(ctx, params.Search)
		}
		return o.RunAll(ctx)
	case models.CmdPause:
		o.setPaused(true)
		log.Println("Scraper paused")
	case models.CmdResume:
		o.setPaused(false)
		log.Println("Scraper resumed")
	default:
		return fmt.Errorf("unknown command: %s", cmd.Command)
	}

	return nil
}

func (o *Orchestrator) IsPaused() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.paused
}

func (o *Orchestrator) setPaused(p bool) {
	o.mu.Lock()
	o.paused = p
	o.mu.Unlock()
}

func (o *Orchestrator) log(runID int64, level models.LogLevel, message, searchID string) {
	log.Printf("[%s] %s: %s", level, searchID, message)
	if !level.Enabled(models.LogLevel(o.cfg.LogLevel)) {
		return
	}
	if err := o.store.Log(&runID, level, message, searchID); err != nil {
		log.Printf("Warning: failed to store log: %v", err)
	}
}
