// Package store owns the in-memory cache for one remote resource family:
// the fetched page, loading/error flags, active filters and the pagination
// cursor. Each store is the sole mutable owner of its family's cache; no
// two stores share state, and nothing here survives a process restart.
package store

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"trafficshield/internal/api"
	"trafficshield/internal/models"
)

// ErrStale marks a refresh whose response arrived after a newer request
// had already been issued. The response is discarded, never applied.
var ErrStale = errors.New("stale response discarded")

// userMessage returns the backend's own message when the error carries
// one. Recorded errors surface to users unchanged, so the transport
// decoration must not leak into them.
func userMessage(err error) string {
	if apiErr, ok := api.AsAPIError(err); ok {
		return apiErr.Message
	}
	return err.Error()
}

// Filters is the active query-parameter set narrowing a list request.
// Keys are absent when unset, never empty-valued.
type Filters map[string]string

// HasActive reports whether any filter is set.
func (f Filters) HasActive() bool {
	return len(f) > 0
}

func (f Filters) clone() Filters {
	out := make(Filters, len(f))
	for k, v := range f {
		out[k] = v
	}
	return out
}

// FetchFunc loads one page from the backend for the given query state.
type FetchFunc[T any] func(ctx context.Context, filters Filters, page, limit int) (*models.Page[T], error)

// EventKind classifies store change notifications.
type EventKind string

const (
	EventRefreshed EventKind = "refreshed"
	EventPatched   EventKind = "patched"
	EventRemoved   EventKind = "removed"
	EventError     EventKind = "error"
)

// Event is pushed to subscribers whenever the store's visible state
// changes.
type Event struct {
	Kind     EventKind `json:"kind"`
	Resource string    `json:"resource"`
	Error    string    `json:"error,omitempty"`
}

// Snapshot is a point-in-time copy of the store state, safe to read after
// the store moves on.
type Snapshot[T any] struct {
	Data    *models.Page[T]
	Loading bool
	Error   string
	Filters Filters
	Page    int
	Limit   int
}

// Store caches one paginated remote collection.
type Store[T any] struct {
	name   string
	fetch  FetchFunc[T]
	id     func(T) string
	logger *zap.Logger

	mu      sync.RWMutex
	data    *models.Page[T]
	loading bool
	lastErr string
	filters Filters
	page    int
	limit   int
	seq     uint64

	subMu   sync.Mutex
	subs    map[int]chan Event
	nextSub int
}

// New creates a store for one resource family. id extracts a record's
// identity for in-place patching.
func New[T any](name string, limit int, fetch FetchFunc[T], id func(T) string, logger *zap.Logger) *Store[T] {
	return &Store[T]{
		name:    name,
		fetch:   fetch,
		id:      id,
		logger:  logger,
		filters: Filters{},
		page:    1,
		limit:   limit,
		subs:    make(map[int]chan Event),
	}
}

// Name returns the resource family name.
func (s *Store[T]) Name() string {
	return s.name
}

// State returns a snapshot of the current store state.
func (s *Store[T]) State() Snapshot[T] {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := Snapshot[T]{
		Loading: s.loading,
		Error:   s.lastErr,
		Filters: s.filters.clone(),
		Page:    s.page,
		Limit:   s.limit,
	}
	if s.data != nil {
		page := *s.data
		page.Items = append([]T(nil), s.data.Items...)
		snap.Data = &page
	}
	return snap
}

// Find returns the cached record with the given id, if present.
func (s *Store[T]) Find(id string) (T, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var zero T
	if s.data == nil {
		return zero, false
	}
	for _, item := range s.data.Items {
		if s.id(item) == id {
			return item, true
		}
	}
	return zero, false
}

// Refresh fetches the page described by the current filters and cursor.
// Every call is fenced by a monotonically increasing sequence number; a
// response that settles after a newer request was issued is discarded, so
// the displayed page always belongs to the latest-issued request, not the
// latest-settled one. On failure the previous data stays visible
// (stale-but-present) while the error is recorded.
func (s *Store[T]) Refresh(ctx context.Context) error {
	s.mu.Lock()
	s.seq++
	seq := s.seq
	s.loading = true
	filters := s.filters.clone()
	page, limit := s.page, s.limit
	s.mu.Unlock()

	result, err := s.fetch(ctx, filters, page, limit)

	s.mu.Lock()
	if seq != s.seq {
		s.mu.Unlock()
		s.logger.Debug("discarding stale response",
			zap.String("resource", s.name),
			zap.Uint64("seq", seq))
		return ErrStale
	}
	s.loading = false
	if err != nil {
		msg := userMessage(err)
		s.lastErr = msg
		s.mu.Unlock()
		s.notify(Event{Kind: EventError, Resource: s.name, Error: msg})
		return err
	}
	s.data = result
	s.lastErr = ""
	s.mu.Unlock()

	s.notify(Event{Kind: EventRefreshed, Resource: s.name})
	return nil
}

// SetFilters shallow-merges partial into the active filter set. Entries
// with empty values clear their key. Any filter change resets the page
// cursor to 1. No fetch is triggered; callers re-dispatch Refresh.
func (s *Store[T]) SetFilters(partial Filters) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for k, v := range partial {
		if v == "" {
			delete(s.filters, k)
		} else {
			s.filters[k] = v
		}
	}
	s.page = 1
}

// ClearFilters empties the filter set and resets the page cursor to 1.
func (s *Store[T]) ClearFilters() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.filters = Filters{}
	s.page = 1
}

// SetPage moves the pagination cursor. It never fetches by itself.
func (s *Store[T]) SetPage(page int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if page < 1 {
		page = 1
	}
	s.page = page
}

// Patch replaces the cached record matching updated's id. Used for
// status-only toggles where the server response returns the updated
// record; list-shape mutations go through Refresh instead.
func (s *Store[T]) Patch(updated T) bool {
	s.mu.Lock()
	patched := false
	if s.data != nil {
		want := s.id(updated)
		for i, item := range s.data.Items {
			if s.id(item) == want {
				s.data.Items[i] = updated
				patched = true
				break
			}
		}
	}
	s.mu.Unlock()

	if patched {
		s.notify(Event{Kind: EventPatched, Resource: s.name})
	}
	return patched
}

// Remove drops a record locally after a confirmed DELETE, adjusting the
// totals to match.
func (s *Store[T]) Remove(id string) bool {
	s.mu.Lock()
	removed := false
	if s.data != nil {
		for i, item := range s.data.Items {
			if s.id(item) == id {
				s.data.Items = append(s.data.Items[:i], s.data.Items[i+1:]...)
				if s.data.Total > 0 {
					s.data.Total--
				}
				s.data.TotalPages = models.TotalPagesFor(s.data.Total, s.data.Limit)
				removed = true
				break
			}
		}
	}
	s.mu.Unlock()

	if removed {
		s.notify(Event{Kind: EventRemoved, Resource: s.name})
	}
	return removed
}

// Optimistic applies patch to the cached record immediately and returns a
// rollback restoring the prior version. Callers invoke rollback when the
// server rejects the mutation.
func (s *Store[T]) Optimistic(id string, patch func(T) T) (rollback func(), ok bool) {
	s.mu.Lock()
	var prior T
	idx := -1
	if s.data != nil {
		for i, item := range s.data.Items {
			if s.id(item) == id {
				prior = item
				idx = i
				s.data.Items[i] = patch(item)
				break
			}
		}
	}
	s.mu.Unlock()

	if idx == -1 {
		return nil, false
	}

	s.notify(Event{Kind: EventPatched, Resource: s.name})

	return func() {
		s.mu.Lock()
		if s.data != nil && idx < len(s.data.Items) && s.id(s.data.Items[idx]) == id {
			s.data.Items[idx] = prior
		}
		s.mu.Unlock()
		s.notify(Event{Kind: EventPatched, Resource: s.name})
	}, true
}

// Subscribe returns a channel of change events and a cancel func. Events
// are dropped rather than blocking a slow subscriber.
func (s *Store[T]) Subscribe() (<-chan Event, func()) {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	id := s.nextSub
	s.nextSub++
	ch := make(chan Event, 16)
	s.subs[id] = ch

	return ch, func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		if c, exists := s.subs[id]; exists {
			delete(s.subs, id)
			close(c)
		}
	}
}

func (s *Store[T]) notify(event Event) {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	for _, ch := range s.subs {
		select {
		case ch <- event:
		default:
		}
	}
}
