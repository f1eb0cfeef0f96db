package store

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// SingleFetchFunc loads a non-paginated remote value, such as the stats
// summary.
type SingleFetchFunc[T any] func(ctx context.Context) (*T, error)

// Single caches one non-collection remote value with the same async state
// and fencing semantics as Store.
type Single[T any] struct {
	name   string
	fetch  SingleFetchFunc[T]
	logger *zap.Logger

	mu      sync.RWMutex
	value   *T
	loading bool
	lastErr string
	seq     uint64

	subMu   sync.Mutex
	subs    map[int]chan Event
	nextSub int
}

// NewSingle creates a single-value store.
func NewSingle[T any](name string, fetch SingleFetchFunc[T], logger *zap.Logger) *Single[T] {
	return &Single[T]{
		name:   name,
		fetch:  fetch,
		logger: logger,
		subs:   make(map[int]chan Event),
	}
}

// Name returns the resource name.
func (s *Single[T]) Name() string {
	return s.name
}

// Value returns the cached value and the loading/error flags.
func (s *Single[T]) Value() (*T, bool, string) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.value == nil {
		return nil, s.loading, s.lastErr
	}
	v := *s.value
	return &v, s.loading, s.lastErr
}

// Refresh fetches the value, fenced the same way Store.Refresh is. On
// failure the previous value stays visible while the error is recorded.
func (s *Single[T]) Refresh(ctx context.Context) error {
	s.mu.Lock()
	s.seq++
	seq := s.seq
	s.loading = true
	s.mu.Unlock()

	value, err := s.fetch(ctx)

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
	s.value = value
	s.lastErr = ""
	s.mu.Unlock()

	s.notify(Event{Kind: EventRefreshed, Resource: s.name})
	return nil
}

// Subscribe mirrors Store.Subscribe for single-value stores.
func (s *Single[T]) Subscribe() (<-chan Event, func()) {
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

func (s *Single[T]) notify(event Event) {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	for _, ch := range s.subs {
		select {
		case ch <- event:
		default:
		}
	}
}
