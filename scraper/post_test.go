package scraper

import (
	"errors"
	"reflect"
	"testing"

	"apt_crawler/models"
)

const postURL = "https://sfbay.craigslist.org/sfc/apa/d/sunny-2br-richmond/7001000001.html"

func parsePostFixture(t *testing.T, name, url string) *models.PostRecord {
	t.Helper()
	items, err := ParsePost(loadPage(t, name), url)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(items))
	}
	rec, ok := items[0].Record.(*models.PostRecord)
	if !ok {
		t.Fatalf("expected PostRecord, got %+v", items[0])
	}
	return rec
}

func TestParsePost_Full(t *testing.T) {
	rec := parsePostFixture(t, "post_full.html", postURL)

	if rec.PID != "7001000001" {
		t.Fatalf("expected pid 7001000001, got %s", rec.PID)
	}
	if rec.Kind != models.RecordTypePost {
		t.Fatalf("expected type post, got %s", rec.Kind)
	}
	if !reflect.DeepEqual(rec.Housing, []string{"2BR", "1Ba", "950"}) {
		t.Fatalf("unexpected housing %q", rec.Housing)
	}
	wantTags := []string{"cats are OK - purrr", "apartment", "w/d in unit", "no smoking"}
	if !reflect.DeepEqual(rec.Tags, wantTags) {
		t.Fatalf("expected tags %q, got %q", wantTags, rec.Tags)
	}
	assertStr(t, "available-date", rec.AvailableDate, "2019-03-15")
	assertStr(t, "latitude", rec.Latitude, "37.779300")
	assertStr(t, "longitude", rec.Longitude, "-122.464500")
}

func TestParsePost_OneGroup(t *testing.T) {
	rec := parsePostFixture(t, "post_one_group.html", "https://sfbay.craigslist.org/sfc/apa/7002")

	if rec.PID != "7002" {
		t.Fatalf("expected pid 7002, got %s", rec.PID)
	}
	if !reflect.DeepEqual(rec.Housing, []string{"1BR", "1Ba"}) {
		t.Fatalf("unexpected housing %q", rec.Housing)
	}
	// First and last group are the same element.
	if !reflect.DeepEqual(rec.Tags, []string{" / ", "laundry in bldg"}) {
		t.Fatalf("unexpected tags %q", rec.Tags)
	}
	assertNil(t, "available-date", rec.AvailableDate)
	assertStr(t, "longitude", rec.Longitude, "-122.4700")
}

func TestParsePost_NoGroups(t *testing.T) {
	rec := parsePostFixture(t, "post_no_groups.html", postURL)

	if rec.Housing == nil || len(rec.Housing) != 0 {
		t.Fatalf("expected empty housing, got %v", rec.Housing)
	}
	if rec.Tags == nil || len(rec.Tags) != 0 {
		t.Fatalf("expected empty tags, got %v", rec.Tags)
	}
	assertNil(t, "available-date", rec.AvailableDate)
	assertStr(t, "latitude", rec.Latitude, "37.7750")
	assertNil(t, "longitude", rec.Longitude)
}

func TestParsePost_MissingContainer(t *testing.T) {
	for _, name := range []string{"post_no_map.html", "post_removed.html"} {
		items, err := ParsePost(loadPage(t, name), postURL)
		if !errors.Is(err, ErrMissingContainer) {
			t.Fatalf("%s: expected ErrMissingContainer, got %v", name, err)
		}
		if items != nil {
			t.Fatalf("%s: expected no items, got %d", name, len(items))
		}
	}
}

func TestParsePost_NestedTagSpans(t *testing.T) {
	rec := parsePostFixture(t, "post_nested_tags.html", postURL)

	wantTags := []string{"cats", "dogs", "no smoking", "street parking"}
	if !reflect.DeepEqual(rec.Tags, wantTags) {
		t.Fatalf("expected tags %q, got %q", wantTags, rec.Tags)
	}
	if !reflect.DeepEqual(rec.Housing, []string{"Studio"}) {
		t.Fatalf("unexpected housing %q", rec.Housing)
	}
}
