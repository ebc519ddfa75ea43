package scraper

import "apt_crawler/models"

// Callback names the handler a scheduled request is routed to.
type Callback string

const (
	CallbackList Callback = "list"
	CallbackPost Callback = "post"
)

type Request struct {
	URL      string
	Callback Callback
}

// Item is one output of a page handler: either a follow-up request or a
// record to emit, never both.
type Item struct {
	Request *Request
	Record  models.Record
}

func requestItem(url string, cb Callback) Item {
	return Item{Request: &Request{URL: url, Callback: cb}}
}

func recordItem(rec models.Record) Item {
	return Item{Record: rec}
}

// Split separates a handler's output into requests and records, keeping order.
func Split(items []Item) ([]Request, []models.Record) {
	var reqs []Request
	var recs []models.Record
	for _, it := range items {
		switch {
		case it.Request != nil:
			reqs = append(reqs, *it.Request)
		case it.Record != nil:
			recs = append(recs, it.Record)
		}
	}
	return reqs, recs
}
