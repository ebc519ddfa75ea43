package scheduler

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"apt_crawler/config"
	"apt_crawler/models"

	"github.com/robfig/cron/v3"
)

// Runner is what the scheduler drives; *scraper.Orchestrator satisfies it.
type Runner interface {
	RunAll(ctx context.Context) error
	HandleCommand(ctx context.Context, cmd *models.Command) error
}

// CommandStore is the queue commands are read from.
type CommandStore interface {
	GetPendingCommands() ([]models.Command, error)
	MarkCommandProcessed(id int64) error
}

const defaultPollInterval = 2 * time.Second

type Scheduler struct {
	cfg    config.SchedulerConfig
	runner Runner
	store  CommandStore
	cron   *cron.Cron
	ticker *time.Ticker
	stopCh chan struct{}
	once   sync.Once

	// one crawl at a time, whoever triggered it
	runMu sync.Mutex

	pollInterval time.Duration
}

func New(cfg config.SchedulerConfig, runner Runner, store CommandStore) *Scheduler {
	return &Scheduler{
		cfg:          cfg,
		runner:       runner,
		store:        store,
		cron:         cron.New(),
		stopCh:       make(chan struct{}),
		pollInterval: defaultPollInterval,
	}
}

func (s *Scheduler) Start(ctx context.Context) error {
	go s.pollCommands(ctx)

	if s.cfg.Cron != "" {
		log.Printf("Starting scheduler with cron: %s", s.cfg.Cron)
		_, err := s.cron.AddFunc(s.cfg.Cron, func() { s.runScheduled(ctx) })
		if err != nil {
			return fmt.Errorf("invalid cron expression: %w", err)
		}
		s.cron.Start()
	} else if s.cfg.Interval > 0 {
		log.Printf("Starting scheduler with interval: %s", s.cfg.Interval)
		s.ticker = time.NewTicker(s.cfg.Interval)
		go func() {
			for {
				select {
				case <-s.ticker.C:
					s.runScheduled(ctx)
				case <-s.stopCh:
					return
				case <-ctx.Done():
					return
				}
			}
		}()
	} else {
		log.Println("No schedule configured, daemon will only respond to commands")
	}

	return nil
}

func (s *Scheduler) Stop() {
	s.once.Do(func() {
		if s.cron != nil {
			<-s.cron.Stop().Done()
		}
		if s.ticker != nil {
			s.ticker.Stop()
		}
		close(s.stopCh)
	})
}

func (s *Scheduler) runScheduled(ctx context.Context) {
	if !s.runMu.TryLock() {
		log.Println("Previous run still in progress, skipping scheduled run")
		return
	}
	defer s.runMu.Unlock()

	if err := s.runner.RunAll(ctx); err != nil {
		log.Printf("Scheduled run error: %v", err)
	}
}

func (s *Scheduler) pollCommands(ctx context.Context) {
	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.processCommands(ctx)
		case <-s.stopCh:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (s *Scheduler) processCommands(ctx context.Context) {
	cmds, err := s.store.GetPendingCommands()
	if err != nil {
		log.Printf("Error getting commands: %v", err)
		return
	}

	for _, cmd := range cmds {
		log.Printf("Processing command: %s", cmd.Command)
		if err := s.handleCommand(ctx, &cmd); err != nil {
			log.Printf("Command error: %v", err)
		}
		if err := s.store.MarkCommandProcessed(cmd.ID); err != nil {
			log.Printf("Error marking command processed: %v", err)
		}
	}
}

func (s *Scheduler) handleCommand(ctx context.Context, cmd *models.Command) error {
	switch cmd.Command {
	case models.CmdScrapeNow, models.CmdScrapeSearch:
		s.runMu.Lock()
		defer s.runMu.Unlock()
	}
	return s.runner.HandleCommand(ctx, cmd)
}

func (s *Scheduler) TriggerNow(ctx context.Context) error {
	s.runMu.Lock()
	defer s.runMu.Unlock()
	return s.runner.RunAll(ctx)
}
