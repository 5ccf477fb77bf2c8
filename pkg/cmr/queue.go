package cmr

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"net/http"

	"github.com/donaldgifford/cmr-client/internal/metrics"
)

// QueueState is where a SearchConceptQueue is in its lifecycle.
type QueueState int

// Queue states.
const (
	// StateIdle: nothing buffered, nothing fetched yet.
	StateIdle QueueState = iota
	// StateFetching: waiting on a page.
	StateFetching
	// StateBuffered: items (possibly zero, pending the next fetch) held.
	StateBuffered
	// StateExhausted: terminal, every item has been handed out.
	StateExhausted
	// StateFailed: terminal, a fetch failed and the error is returned again.
	StateFailed
)

func (s QueueState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateFetching:
		return "fetching"
	case StateBuffered:
		return "buffered"
	case StateExhausted:
		return "exhausted"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// SearchConceptQueue is a lazy cursor over every item of a search, fetching
// one page at a time and never handing out more than the query's
// RecordLimit. It is not restartable and not safe for concurrent use.
type SearchConceptQueue struct {
	fetcher PageFetcher
	query   SearchQuery
	headers http.Header
	logger  *slog.Logger

	state     QueueState
	buf       []Item
	nextPage  int
	collected int
	hits      int
	fetches   int
	last      bool
	err       error
}

// QueueOption configures the SearchConceptQueue.
type QueueOption func(*SearchConceptQueue)

// WithQueueHeaders sets headers (typically auth) sent with every page fetch.
func WithQueueHeaders(h http.Header) QueueOption {
	return func(q *SearchConceptQueue) {
		q.headers = h.Clone()
	}
}

// WithQueueLogger sets the logger.
func WithQueueLogger(l *slog.Logger) QueueOption {
	return func(q *SearchConceptQueue) {
		if l != nil {
			q.logger = l
		}
	}
}

// NewSearchConceptQueue creates a queue over query. The query's PageNumber is
// ignored; fetching always starts at page 1.
func NewSearchConceptQueue(
	fetcher PageFetcher,
	query SearchQuery,
	opts ...QueueOption,
) *SearchConceptQueue {
	query.Params = query.Params.Clone()
	q := &SearchConceptQueue{
		fetcher:  fetcher,
		query:    query,
		logger:   slog.Default(),
		state:    StateIdle,
		nextPage: 1,
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Peek returns the next item without consuming it, fetching a page only when
// nothing is buffered. ok is false once the queue is exhausted.
func (q *SearchConceptQueue) Peek(ctx context.Context) (item Item, ok bool, err error) {
	if err := q.fill(ctx); err != nil {
		return nil, false, err
	}
	if len(q.buf) == 0 {
		return nil, false, nil
	}
	return q.buf[0], true, nil
}

// Shift returns and consumes the next item. ok is false once the queue is
// exhausted.
func (q *SearchConceptQueue) Shift(ctx context.Context) (item Item, ok bool, err error) {
	if err := q.fill(ctx); err != nil {
		return nil, false, err
	}
	if len(q.buf) == 0 {
		return nil, false, nil
	}

	item = q.buf[0]
	q.buf[0] = nil
	q.buf = q.buf[1:]
	if len(q.buf) == 0 && q.last {
		q.state = StateExhausted
	}
	metrics.QueueItemsTotal.Inc()
	return item, true, nil
}

// All ranges over the remaining items. Iteration stops after the first error,
// which is yielded with a nil item.
func (q *SearchConceptQueue) All(ctx context.Context) iter.Seq2[Item, error] {
	return func(yield func(Item, error) bool) {
		for {
			item, ok, err := q.Shift(ctx)
			if err != nil {
				yield(nil, err)
				return
			}
			if !ok || !yield(item, nil) {
				return
			}
		}
	}
}

// State reports the queue's lifecycle state.
func (q *SearchConceptQueue) State() QueueState {
	return q.state
}

// Fetches is the number of pages fetched so far.
func (q *SearchConceptQueue) Fetches() int {
	return q.fetches
}

// TotalHits is the hit count the server reported on the last fetch.
func (q *SearchConceptQueue) TotalHits() int {
	return q.hits
}

// fill fetches the next page when the buffer is empty and more may exist.
func (q *SearchConceptQueue) fill(ctx context.Context) error {
	if q.err != nil {
		return q.err
	}
	if len(q.buf) > 0 {
		return nil
	}
	if q.last {
		q.state = StateExhausted
		return nil
	}

	q.state = StateFetching
	query := q.query
	query.PageNumber = q.nextPage

	page, err := q.fetcher.FetchPage(ctx, query, q.headers)
	if err != nil {
		q.state = StateFailed
		q.err = fmt.Errorf("fetching %s page %d: %w", query.ConceptType.Plural(), query.PageNumber, err)
		return q.err
	}

	q.fetches++
	q.nextPage++
	q.hits = page.TotalHits
	metrics.QueuePagesTotal.Inc()

	items := page.Items
	if len(items) == 0 {
		q.last = true
		q.state = StateExhausted
		return nil
	}

	limit := q.query.RecordLimit
	if limit > 0 && q.collected+len(items) > limit {
		items = items[:limit-q.collected]
	}
	q.collected += len(items)
	q.buf = append(q.buf, items...)
	q.state = StateBuffered

	switch {
	case limit > 0 && q.collected >= limit:
		q.last = true
		if q.hits > q.collected {
			metrics.QueueLimitReachedTotal.Inc()
			q.logger.Debug("search record limit reached",
				"concept_type", q.query.ConceptType,
				"limit", limit,
				"hits", q.hits,
			)
		}
	case q.collected >= q.hits:
		q.last = true
	}

	return nil
}
