package storage

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"apt_crawler/models"
)

func TestFeedPath(t *testing.T) {
	start := time.Date(2019, 3, 1, 18, 4, 5, 0, time.FixedZone("PST", -8*3600))
	got := FeedPath("data", "sfbay", "94121", 1, start)
	want := filepath.Join("data", "apt_crawler-sfbay-94121-1-2019-03-02T02-04-05.jl")
	if got != want {
		t.Fatalf("expected %s, got %s", want, got)
	}
}

func TestFeedWriterJSONLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "feed.jl")
	w, err := OpenFeed(path)
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}

	pid := "123"
	price := "1,500"
	list := models.NewListRecord()
	list.PID = &pid
	list.Price = &price
	list.HousingType = []string{"2br", "900ft2"}

	post := models.NewPostRecord("123")

	ctx := context.Background()
	if err := w.Emit(ctx, list); err != nil {
		t.Fatalf("emit list failed: %v", err)
	}
	if err := w.Emit(ctx, post); err != nil {
		t.Fatalf("emit post failed: %v", err)
	}
	if w.Count() != 2 {
		t.Fatalf("expected count 2, got %d", w.Count())
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}
	if err := w.Emit(ctx, post); err == nil {
		t.Fatalf("expected error after close")
	}

	lines := readLines(t, path)
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}

	wantList := `{"pid":"123","type":"list","price":"1,500","housing-type":["2br","900ft2"],"neighborhood":null,"title":null}`
	if lines[0] != wantList {
		t.Fatalf("unexpected list line:\n%s\nwant:\n%s", lines[0], wantList)
	}
	wantPost := `{"pid":"123","type":"post","housing":[],"tags":[],"available-date":null,"latitude":null,"longitude":null}`
	if lines[1] != wantPost {
		t.Fatalf("unexpected post line:\n%s\nwant:\n%s", lines[1], wantPost)
	}
}

func TestFeedWriterAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "feed.jl")
	if err := os.WriteFile(path, []byte("{\"existing\":true}\n"), 0644); err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	w, err := OpenFeed(path)
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	defer w.Close()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w.Emit(context.Background(), models.NewPostRecord("x"))
		}()
	}
	wg.Wait()
	w.Close()

	lines := readLines(t, path)
	if len(lines) != 21 {
		t.Fatalf("expected 21 lines, got %d", len(lines))
	}
	for i, line := range lines {
		var v map[string]interface{}
		if err := json.Unmarshal([]byte(line), &v); err != nil {
			t.Fatalf("line %d is not valid json: %q", i, line)
		}
	}
}

func readLines(t *testing.T, path string) []string {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	defer f.Close()

	var lines []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	if err := sc.Err(); err != nil {
		t.Fatalf("scan %s: %v", path, err)
	}
	return lines
}
