package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"apt_crawler/models"
)

const feedTimeLayout = "2006-01-02T15-04-05"

// FeedPath names the JSON-lines file for one crawl of a search.
func FeedPath(dir, areaCode, areaZip string, availability int, startedAt time.Time) string {
	name := fmt.Sprintf("apt_crawler-%s-%s-%d-%s.jl",
		areaCode, areaZip, availability, startedAt.UTC().Format(feedTimeLayout))
	return filepath.Join(dir, name)
}

// FeedWriter appends one JSON object per line. Existing content is kept.
type FeedWriter struct {
	mu    sync.Mutex
	file  *os.File
	enc   *json.Encoder
	count int
}

func OpenFeed(path string) (*FeedWriter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create feed dir: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("open feed: %w", err)
	}

	enc := json.NewEncoder(f)
	enc.SetEscapeHTML(false)

	return &FeedWriter{file: f, enc: enc}, nil
}

func (w *FeedWriter) Emit(_ context.Context, rec models.Record) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.file == nil {
		return os.ErrClosed
	}
	if err := w.enc.Encode(rec); err != nil {
		return fmt.Errorf("write %s record %s: %w", rec.Type(), rec.PostID(), err)
	}
	w.count++
	return nil
}

// Count is the number of records written through this writer.
func (w *FeedWriter) Count() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.count
}

func (w *FeedWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.file == nil {
		return nil
	}
	err := w.file.Close()
	w.file = nil
	return err
}
