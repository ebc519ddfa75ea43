package scraper

import (
	"errors"
	"fmt"

	"apt_crawler/models"
)

// ErrMissingContainer means a detail page lacks the attributes block or the
// map inside it. The listing is skipped.
var ErrMissingContainer = errors.New("missing container")

const (
	mapAndAttrsSelector = ".mapAndAttrs"
	mapSelector         = "#map"
	attrGroupSelector   = ".attrgroup"
	bubbleSelector      = ".shared-line-bubble"
	bubbleLabelSelector = ".shared-line-bubble>b"
	tagSelector         = "span"
)

// ParsePost handles a listing detail page. The pid comes from pageURL, not
// from the page content.
func ParsePost(page Node, pageURL string) ([]Item, error) {
	containers := page.Find(mapAndAttrsSelector)
	if len(containers) == 0 {
		return nil, fmt.Errorf("%s: %w: %s", pageURL, ErrMissingContainer, mapAndAttrsSelector)
	}
	container := containers[0]

	maps := container.Find(mapSelector)
	if len(maps) == 0 {
		return nil, fmt.Errorf("%s: %w: %s", pageURL, ErrMissingContainer, mapSelector)
	}
	mapTag := maps[0]

	rec := models.NewPostRecord(PostIDFromURL(pageURL))

	// Only the first and last groups matter; with one group they coincide.
	if groups := container.Find(attrGroupSelector); len(groups) > 0 {
		first, last := groups[0], groups[len(groups)-1]
		rec.Housing = AllText(first, bubbleLabelSelector)
		rec.AvailableDate = FirstAttr(first, bubbleSelector, "data-date")
		rec.Tags = AllText(last, tagSelector)
	}

	rec.Latitude = ownAttr(mapTag, "data-latitude")
	rec.Longitude = ownAttr(mapTag, "data-longitude")

	return []Item{recordItem(rec)}, nil
}
