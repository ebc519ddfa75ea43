package scraper

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"regexp"
	"sync/atomic"
	"time"

	"apt_crawler/config"
	"apt_crawler/models"
	"apt_crawler/storage"

	"github.com/gocolly/colly/v2"
)

var ErrUnknownCallback = errors.New("unknown callback")

const callbackKey = "callback"

// Stats summarizes one crawl. ListRecords and PostRecords count records the
// primary sink accepted; mirror failures only show up in MirrorErrors.
type Stats struct {
	Requests     int
	ListRecords  int
	PostRecords  int
	Errors       int
	MirrorErrors int
}

type counters struct {
	requests, list, post, errors, mirrorErrors atomic.Int64
}

func (c *counters) snapshot() Stats {
	return Stats{
		Requests:     int(c.requests.Load()),
		ListRecords:  int(c.list.Load()),
		PostRecords:  int(c.post.Load()),
		Errors:       int(c.errors.Load()),
		MirrorErrors: int(c.mirrorErrors.Load()),
	}
}

// Crawler drives the list and post handlers over a colly collector.
type Crawler struct {
	cfg       config.CrawlerConfig
	timeout   time.Duration
	transport http.RoundTripper
	sink      storage.Sink
	mirror    storage.Sink
}

func NewCrawler(cfg config.CrawlerConfig, timeout time.Duration, transport http.RoundTripper, sink storage.Sink) *Crawler {
	return &Crawler{
		cfg:       cfg,
		timeout:   timeout,
		transport: transport,
		sink:      sink,
	}
}

// SetMirror adds a best-effort copy of every record the primary sink accepts.
func (c *Crawler) SetMirror(mirror storage.Sink) {
	c.mirror = mirror
}

// domainFilter matches URLs on domain or any of its subdomains.
func domainFilter(domain string) *regexp.Regexp {
	return regexp.MustCompile(`^https?://([^/?#]+\.)?` + regexp.QuoteMeta(domain) + `(:\d+)?([/?#]|$)`)
}

func (c *Crawler) newCollector() (*colly.Collector, error) {
	opts := []colly.CollectorOption{
		colly.Async(true),
		colly.URLFilters(domainFilter(c.cfg.AllowedDomain)),
	}
	if c.cfg.UserAgent != "" {
		opts = append(opts, colly.UserAgent(c.cfg.UserAgent))
	}
	collector := colly.NewCollector(opts...)

	parallelism := c.cfg.Concurrency
	if parallelism < 1 {
		parallelism = 1
	}
	if err := collector.Limit(&colly.LimitRule{
		DomainGlob:  "*",
		Delay:       c.cfg.DownloadDelay,
		Parallelism: parallelism,
	}); err != nil {
		return nil, fmt.Errorf("limit rule: %w", err)
	}

	if c.transport != nil {
		collector.WithTransport(c.transport)
	}
	if c.timeout > 0 {
		collector.SetRequestTimeout(c.timeout)
	}
	return collector, nil
}

// Run crawls from startURL until no requests remain or ctx is cancelled.
func (c *Crawler) Run(ctx context.Context, startURL string) (Stats, error) {
	collector, err := c.newCollector()
	if err != nil {
		return Stats{}, err
	}

	var st counters

	enqueue := func(url string, cb Callback) error {
		rctx := colly.NewContext()
		rctx.Put(callbackKey, string(cb))
		return collector.Request(http.MethodGet, url, nil, rctx, nil)
	}

	collector.OnRequest(func(r *colly.Request) {
		if ctx.Err() != nil {
			r.Abort()
			return
		}
		st.requests.Add(1)
		log.Printf("[crawl] GET %s (%s)", r.URL, r.Ctx.Get(callbackKey))
	})

	collector.OnError(func(r *colly.Response, err error) {
		st.errors.Add(1)
		log.Printf("[crawl] fetch %s failed (status %d): %v", r.Request.URL, r.StatusCode, err)
	})

	collector.OnResponse(func(r *colly.Response) {
		pageURL := r.Request.URL.String()

		items, err := c.handle(r.Ctx.Get(callbackKey), r.Body, pageURL)
		if err != nil {
			st.errors.Add(1)
			log.Printf("[crawl] skipping %s: %v", pageURL, err)
			return
		}

		for _, it := range items {
			switch {
			case it.Request != nil:
				abs := r.Request.AbsoluteURL(it.Request.URL)
				if abs == "" {
					log.Printf("[crawl] bad link %q on %s", it.Request.URL, pageURL)
					continue
				}
				if err := enqueue(abs, it.Request.Callback); err != nil {
					logEnqueueError(abs, err)
				}
			case it.Record != nil:
				if err := c.sink.Emit(ctx, it.Record); err != nil {
					st.errors.Add(1)
					log.Printf("[crawl] emit %s: %v", it.Record.Type(), err)
					continue
				}
				switch it.Record.Type() {
				case models.RecordTypeList:
					st.list.Add(1)
				case models.RecordTypePost:
					st.post.Add(1)
				}
				if c.mirror == nil {
					continue
				}
				if err := c.mirror.Emit(ctx, it.Record); err != nil {
					st.mirrorErrors.Add(1)
					log.Printf("[crawl] mirror %s: %v", it.Record.Type(), err)
				}
			}
		}
	})

	if err := enqueue(startURL, CallbackList); err != nil {
		return Stats{}, fmt.Errorf("start %s: %w", startURL, err)
	}
	collector.Wait()

	if err := ctx.Err(); err != nil {
		return st.snapshot(), fmt.Errorf("crawl interrupted: %w", err)
	}
	return st.snapshot(), nil
}

func (c *Crawler) handle(callback string, body []byte, pageURL string) ([]Item, error) {
	page, err := ParseDocument(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	switch Callback(callback) {
	case CallbackList:
		return ParseList(page)
	case CallbackPost:
		return ParsePost(page, pageURL)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownCallback, callback)
}

func logEnqueueError(url string, err error) {
	switch {
	case errors.Is(err, colly.ErrAlreadyVisited):
	case errors.Is(err, colly.ErrNoURLFiltersMatch), errors.Is(err, colly.ErrForbiddenDomain):
		log.Printf("[crawl] off-site link skipped: %s", url)
	default:
		log.Printf("[crawl] enqueue %s: %v", url, err)
	}
}
