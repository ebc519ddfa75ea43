package storage

import (
	"context"

	"apt_crawler/models"
)

// Sink receives every record a crawl emits. Implementations must be safe for
// concurrent use; the crawler calls Emit from colly's worker goroutines.
type Sink interface {
	Emit(ctx context.Context, rec models.Record) error
}
