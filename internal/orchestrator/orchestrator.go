// Package orchestrator coordinates the client-facing async operations against
// the movie database: last-request-wins search and detail fetches, best-effort
// trending aggregation, and random-episode selection. It is independent of any
// UI framework: each operation kind is a small Idle/Pending/Settled state
// machine owning its own cancellation handle.
package orchestrator

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/example/watchdeck/internal/omdb"
)

// DefaultSearchTimeout is the search self-cancel deadline. Hitting it is a
// silent cancellation, not a user-visible error.
const DefaultSearchTimeout = 10 * time.Second

// MovieAPI is what the orchestrator needs from the movie database. Satisfied
// by *omdb.Client (direct) and *ProxyClient (through the proxy endpoint).
type MovieAPI interface {
	Search(ctx context.Context, query string, page int) (omdb.SearchPage, error)
	Detail(ctx context.Context, imdbID string) (omdb.Detail, error)
	Season(ctx context.Context, imdbID string, season int) (omdb.Season, error)
}

// Notifier receives user-facing notices. Cancellations never reach it.
type Notifier interface {
	Info(msg string)
	Error(msg string)
}

// NopNotifier discards all notices.
type NopNotifier struct{}

func (NopNotifier) Info(string)  {}
func (NopNotifier) Error(string) {}

// Phase of one async operation kind.
type Phase int

const (
	PhaseIdle Phase = iota
	PhasePending
	PhaseSettled
)

type op[T any] struct {
	phase  Phase
	value  T
	cancel context.CancelFunc
	seq    uint64
}

// begin supersedes any in-flight run of this operation and registers a new
// one. Caller must hold the orchestrator lock.
func (o *op[T]) begin(parent context.Context, timeout time.Duration) (context.Context, uint64) {
	if o.cancel != nil {
		o.cancel()
	}
	var ctx context.Context
	if timeout > 0 {
		ctx, o.cancel = context.WithTimeout(parent, timeout)
	} else {
		ctx, o.cancel = context.WithCancel(parent)
	}
	o.phase = PhasePending
	o.seq++
	return ctx, o.seq
}

func isCancellation(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// Orchestrator holds one state machine per operation kind. Operations of
// different kinds never cancel each other.
type Orchestrator struct {
	api    MovieAPI
	notify Notifier

	SearchTimeout   time.Duration
	TrendingQueries []string
	randIntN        func(int) int

	mu       sync.Mutex
	search   op[[]omdb.SearchResult]
	detail   op[*omdb.Detail]
	trending op[[]omdb.SearchResult]
	episode  op[*EpisodePick]
}

func New(api MovieAPI, notify Notifier) *Orchestrator {
	if notify == nil {
		notify = NopNotifier{}
	}
	return &Orchestrator{
		api:             api,
		notify:          notify,
		SearchTimeout:   DefaultSearchTimeout,
		TrendingQueries: DefaultTrendingQueries,
	}
}

// Search runs a title search, superseding any in-flight search. An empty or
// whitespace-only query settles to an empty result set without a request.
// A superseded or timed-out run returns context.Canceled and changes nothing.
func (o *Orchestrator) Search(ctx context.Context, query string) ([]omdb.SearchResult, error) {
	query = strings.TrimSpace(query)

	o.mu.Lock()
	if query == "" {
		if o.search.cancel != nil {
			o.search.cancel()
			o.search.cancel = nil
		}
		o.search.phase = PhaseSettled
		o.search.value = nil
		o.search.seq++
		o.mu.Unlock()
		return nil, nil
	}
	runCtx, seq := o.search.begin(ctx, o.SearchTimeout)
	o.mu.Unlock()

	page, err := o.api.Search(runCtx, query, 0)

	o.mu.Lock()
	defer o.mu.Unlock()
	if o.search.seq != seq {
		// Superseded while in flight; the newer run owns the state now.
		return nil, context.Canceled
	}
	o.search.cancel = nil
	o.search.phase = PhaseSettled
	if err != nil {
		if isCancellation(err) {
			return nil, context.Canceled
		}
		o.search.value = nil
		var apiErr *omdb.APIError
		if errors.As(err, &apiErr) {
			o.notify.Error(apiErr.Message)
		} else {
			o.notify.Error("Search failed")
		}
		return nil, err
	}
	o.search.value = page.Results
	return page.Results, nil
}

// SearchResults reports the current search state.
func (o *Orchestrator) SearchResults() ([]omdb.SearchResult, Phase) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.search.value, o.search.phase
}

// Detail fetches full metadata for one title, superseding any in-flight
// detail fetch. A logical upstream error clears the detail silently (the
// view simply has nothing to show); transport errors also notify.
func (o *Orchestrator) Detail(ctx context.Context, imdbID string) (*omdb.Detail, error) {
	o.mu.Lock()
	runCtx, seq := o.detail.begin(ctx, 0)
	o.mu.Unlock()

	d, err := o.api.Detail(runCtx, imdbID)

	o.mu.Lock()
	defer o.mu.Unlock()
	if o.detail.seq != seq {
		return nil, context.Canceled
	}
	o.detail.cancel = nil
	o.detail.phase = PhaseSettled
	if err != nil {
		if isCancellation(err) {
			return nil, context.Canceled
		}
		o.detail.value = nil
		var apiErr *omdb.APIError
		if !errors.As(err, &apiErr) {
			o.notify.Error("Failed to load details")
		}
		return nil, err
	}
	o.detail.value = &d
	return &d, nil
}

// ClearDetail drops the current detail record, e.g. when the view closes.
func (o *Orchestrator) ClearDetail() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.detail.cancel != nil {
		o.detail.cancel()
		o.detail.cancel = nil
	}
	o.detail.phase = PhaseIdle
	o.detail.value = nil
	o.detail.seq++
}

// DetailRecord reports the current detail state.
func (o *Orchestrator) DetailRecord() (*omdb.Detail, Phase) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.detail.value, o.detail.phase
}
