package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	DefaultAreaCode     = "sfbay"
	DefaultAreaZip      = "94121"
	DefaultAvailability = AvailabilityAny

	startURLTemplate = "https://%s.craigslist.org/search/apa?query=%s&availabilityMode=%d&sale_date=all+dates"
)

// Availability is craigslist's availabilityMode query parameter.
type Availability int

const (
	AvailabilityAny      Availability = 0
	AvailabilityWithin30 Availability = 1
	AvailabilityBeyond30 Availability = 2
)

var ErrInvalidAvailability = errors.New("availability must be 0, 1 or 2")

func ParseAvailability(s string) (Availability, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAvailability, s)
	}
	a := Availability(n)
	if err := a.Validate(); err != nil {
		return 0, err
	}
	return a, nil
}

func (a Availability) Validate() error {
	switch a {
	case AvailabilityAny, AvailabilityWithin30, AvailabilityBeyond30:
		return nil
	}
	return fmt.Errorf("%w: %d", ErrInvalidAvailability, int(a))
}

type Config struct {
	Crawler   CrawlerConfig
	HTTP      HTTPConfig
	Output    OutputConfig
	S3        S3Config
	Scheduler SchedulerConfig
	Default   Search
	DBPath    string
	LogPath   string
	LogLevel  string
	Searches  map[string]*Search
}

type CrawlerConfig struct {
	AllowedDomain string
	DownloadDelay time.Duration
	Concurrency   int
	UserAgent     string
}

type HTTPConfig struct {
	ProxyURL string
	Timeout  time.Duration
}

type OutputConfig struct {
	Dir         string
	DatabaseURL string
}

type S3Config struct {
	Bucket          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	Prefix          string
}

func (c S3Config) Enabled() bool {
	return c.Bucket != ""
}

type SchedulerConfig struct {
	Interval time.Duration
	Cron     string
}

// Search is one saved craigslist apartment query.
type Search struct {
	ID           string       `yaml:"id"`
	Name         string       `yaml:"name"`
	AreaCode     string       `yaml:"area_code"`
	AreaZip      string       `yaml:"area_zip"`
	Availability Availability `yaml:"availability"`
	// URL replaces the generated search URL when set.
	URL string `yaml:"url"`
}

// StartURL builds the first search results page for s.
func (s Search) StartURL() string {
	if s.URL != "" {
		return s.URL
	}
	return fmt.Sprintf(startURLTemplate, s.AreaCode, url.QueryEscape(s.AreaZip), int(s.Availability))
}

func (s Search) Validate() error {
	if s.AreaCode == "" {
		return errors.New("area_code is required")
	}
	if s.AreaZip == "" {
		return errors.New("area_zip is required")
	}
	return s.Availability.Validate()
}

func (s *Search) applyDefaults() {
	if s.AreaCode == "" {
		s.AreaCode = DefaultAreaCode
	}
	if s.AreaZip == "" {
		s.AreaZip = DefaultAreaZip
	}
	if s.ID == "" {
		s.ID = fmt.Sprintf("%s-%s-%d", s.AreaCode, s.AreaZip, int(s.Availability))
	}
	if s.Name == "" {
		s.Name = s.ID
	}
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Crawler: CrawlerConfig{
			AllowedDomain: getEnv("ALLOWED_DOMAIN", "craigslist.org"),
			DownloadDelay: getEnvDuration("DOWNLOAD_DELAY", 100*time.Millisecond),
			Concurrency:   getEnvInt("CONCURRENCY", 4),
			UserAgent:     getEnv("USER_AGENT", "apt_crawler (+https://github.com/gocolly/colly)"),
		},
		HTTP: HTTPConfig{
			ProxyURL: os.Getenv("PROXY_URL"),
			Timeout:  getEnvDuration("REQUEST_TIMEOUT", 30*time.Second),
		},
		Output: OutputConfig{
			Dir:         getEnv("OUTPUT_DIR", "data"),
			DatabaseURL: os.Getenv("DATABASE_URL"),
		},
		S3: S3Config{
			Bucket:          os.Getenv("S3_BUCKET"),
			Region:          getEnv("S3_REGION", "us-east-1"),
			Endpoint:        os.Getenv("S3_ENDPOINT"),
			AccessKeyID:     os.Getenv("S3_ACCESS_KEY_ID"),
			SecretAccessKey: os.Getenv("S3_SECRET_ACCESS_KEY"),
			Prefix:          getEnv("S3_PREFIX", "feeds"),
		},
		Scheduler: SchedulerConfig{
			Cron: os.Getenv("SCRAPE_CRON"),
		},
		DBPath:   getEnv("DB_PATH", "crawler.db"),
		LogPath:  getEnv("LOG_PATH", "crawler.log"),
		LogLevel: getEnv("LOG_LEVEL", "info"),
		Searches: make(map[string]*Search),
	}

	if interval := os.Getenv("SCRAPE_INTERVAL"); interval != "" {
		d, err := time.ParseDuration(interval)
		if err == nil {
			cfg.Scheduler.Interval = d
		}
	}

	cfg.Default = Search{
		AreaCode: getEnv("AREA_CODE", DefaultAreaCode),
		AreaZip:  getEnv("AREA_ZIP", DefaultAreaZip),
	}
	if v := os.Getenv("AVAILABILITY"); v != "" {
		a, err := ParseAvailability(v)
		if err != nil {
			return nil, err
		}
		cfg.Default.Availability = a
	}
	cfg.Default.applyDefaults()

	if err := cfg.loadSearches("config/searches"); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) loadSearches(configDir string) error {
	entries, err := os.ReadDir(configDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	for _, entry := range entries {
		ext := filepath.Ext(entry.Name())
		if entry.IsDir() || (ext != ".yaml" && ext != ".yml") {
			continue
		}

		path := filepath.Join(configDir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}

		var search Search
		if err := yaml.Unmarshal(data, &search); err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		search.applyDefaults()
		if err := search.Validate(); err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}

		c.Searches[search.ID] = &search
	}

	return nil
}

// SearchIDs returns the saved search ids in a stable order.
func (c *Config) SearchIDs() []string {
	ids := make([]string, 0, len(c.Searches))
	for id := range c.Searches {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// NewSearch fills defaults for a search built from command line arguments.
func NewSearch(areaCode, areaZip string, availability Availability) Search {
	s := Search{AreaCode: areaCode, AreaZip: areaZip, Availability: availability}
	s.applyDefaults()
	return s
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}
