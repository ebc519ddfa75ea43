package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"syscall"

	"apt_crawler/config"
	"apt_crawler/httputil"
	"apt_crawler/logging"
	"apt_crawler/scheduler"
	"apt_crawler/scraper"
	"apt_crawler/storage"
)

var (
	scrapeNow    = flag.Bool("scrape", false, "Run one crawl and exit")
	searchID     = flag.String("search", "", "Saved search to crawl with -scrape (default: all saved searches)")
	areaCode     = flag.String("area_code", "", "Craigslist area subdomain, e.g. sfbay")
	areaZip      = flag.String("area_zip", "", "Zip code to search")
	availability = flag.String("availability", "", "0 any, 1 within 30 days, 2 beyond 30 days")
	resetData    = flag.Bool("reset", false, "Delete all runs, logs, search stats and queued commands, then exit")
)

func main() {
	flag.Parse()
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logFile, err := logging.Setup(cfg.LogPath)
	if err != nil {
		log.Printf("Warning: could not set up file logging: %v", err)
	} else {
		defer logFile.Close()
	}

	log.Println("Starting apt_crawler...")

	adHoc, err := searchFromFlags(cfg)
	if err != nil {
		log.Fatalf("Invalid start parameters: %v", err)
	}

	log.Printf("Loaded %d saved searches", len(cfg.Searches))
	for _, id := range cfg.SearchIDs() {
		log.Printf("  - %s (%s)", cfg.Searches[id].Name, cfg.Searches[id].StartURL())
	}

	transport, err := httputil.NewTransport(&cfg.HTTP)
	if err != nil {
		log.Fatalf("Failed to build HTTP transport: %v", err)
	}
	if cfg.HTTP.ProxyURL != "" {
		log.Printf("Proxy: %s", maskConnectionString(cfg.HTTP.ProxyURL))
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	sqliteStore, err := storage.NewSQLiteStore(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to open SQLite: %v", err)
	}
	defer sqliteStore.Close()
	log.Printf("SQLite database: %s", cfg.DBPath)

	if *resetData {
		if err := sqliteStore.ResetAllData(); err != nil {
			log.Fatalf("Reset failed: %v", err)
		}
		log.Println("Cleared runs, logs, search stats and commands")
		return
	}

	orchestrator := scraper.NewOrchestrator(cfg, sqliteStore, transport)

	var pgStore *storage.PostgresStore
	if cfg.Output.DatabaseURL != "" {
		pgStore, err = storage.NewPostgresStore(ctx, cfg.Output.DatabaseURL)
		if err != nil {
			log.Fatalf("Failed to connect to Postgres: %v", err)
		}
		defer pgStore.Close()
		log.Printf("Connected to Postgres: %s", maskConnectionString(cfg.Output.DatabaseURL))
	}

	var uploader scraper.FeedUploader
	if cfg.S3.Enabled() {
		s3Uploader, err := storage.NewS3Uploader(ctx, cfg.S3, httputil.NewAPIClient(cfg.HTTP.Timeout))
		if err != nil {
			log.Fatalf("Failed to configure S3: %v", err)
		}
		uploader = s3Uploader
		log.Printf("Feeds will be uploaded to s3://%s/%s", cfg.S3.Bucket, cfg.S3.Prefix)
	}
	orchestrator.SetBackends(pgStore, uploader)

	// One-shot mode
	if *scrapeNow || adHoc != nil {
		log.Println("Running crawl...")
		switch {
		case adHoc != nil:
			_, err = orchestrator.RunSearch(ctx, *adHoc)
		case *searchID != "":
			err = orchestrator.RunSearchID(ctx, *searchID)
		default:
			err = orchestrator.RunAll(ctx)
		}
		if err != nil {
			log.Fatalf("Crawl failed: %v", err)
		}
		log.Println("Crawl complete!")
		return
	}

	// Daemon mode
	sched := scheduler.New(cfg.Scheduler, orchestrator, sqliteStore)
	if err := sched.Start(ctx); err != nil {
		log.Fatalf("Failed to start scheduler: %v", err)
	}

	log.Println("Daemon running. Press Ctrl+C to stop.")
	<-ctx.Done()

	log.Println("Shutting down...")
	sched.Stop()
	log.Println("Goodbye!")
}

// searchFromFlags builds a one-off search when any start parameter is given
// on the command line. Missing parameters fall back to the env defaults.
func searchFromFlags(cfg *config.Config) (*config.Search, error) {
	if *areaCode == "" && *areaZip == "" && *availability == "" {
		return nil, nil
	}

	code, zip, avail := cfg.Default.AreaCode, cfg.Default.AreaZip, cfg.Default.Availability
	if *areaCode != "" {
		code = *areaCode
	}
	if *areaZip != "" {
		zip = *areaZip
	}
	if *availability != "" {
		a, err := config.ParseAvailability(*availability)
		if err != nil {
			return nil, err
		}
		avail = a
	}

	s := config.NewSearch(code, zip, avail)
	return &s, nil
}

// maskConnectionString masks password in connection string for logging
func maskConnectionString(connStr string) string {
	// Simple mask - find :// and mask until @
	start := 0
	for i := 0; i < len(connStr)-3; i++ {
		if connStr[i:i+3] == "://" {
			start = i + 3
			break
		}
	}
	if start == 0 {
		return connStr
	}

	// Find : after user
	colonIdx := -1
	atIdx := -1
	for i := start; i < len(connStr); i++ {
		if connStr[i] == ':' && colonIdx == -1 {
			colonIdx = i
		}
		if connStr[i] == '@' {
			atIdx = i
			break
		}
	}

	if colonIdx > 0 && atIdx > colonIdx {
		return connStr[:colonIdx+1] + "****" + connStr[atIdx:]
	}
	return connStr
}
