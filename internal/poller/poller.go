// Package poller runs the periodic refresh tasks behind the dashboards.
// Every task is held through a cancellable handle: acquired when
// scheduled, released explicitly or when the poller's context ends, so no
// timer outlives its owner.
package poller

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// TaskFunc is one scheduled refresh.
type TaskFunc func(ctx context.Context) error

// Poller schedules refresh tasks on fixed intervals.
type Poller struct {
	cron   *cron.Cron
	logger *zap.Logger

	mu    sync.Mutex
	tasks map[string]*task
}

type task struct {
	name       string
	interval   time.Duration
	fn         TaskFunc
	entryID    cron.EntryID
	runCount   int64
	errorCount int64
}

// Handle releases one scheduled task. Release is idempotent.
type Handle struct {
	once    sync.Once
	release func()
}

// Release stops the task; no further runs are dispatched after it returns.
func (h *Handle) Release() {
	h.once.Do(h.release)
}

// New creates a poller. Tasks run on the cron's goroutine pool; each run
// gets a timeout-bounded context derived from ctx.
func New(logger *zap.Logger) *Poller {
	return &Poller{
		cron:   cron.New(),
		logger: logger,
		tasks:  make(map[string]*task),
	}
}

// Add schedules fn every interval and returns its handle.
func (p *Poller) Add(ctx context.Context, name string, interval time.Duration, fn TaskFunc) (*Handle, error) {
	if interval <= 0 {
		return nil, fmt.Errorf("interval for task %s must be positive", name)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if _, exists := p.tasks[name]; exists {
		return nil, fmt.Errorf("task %s already scheduled", name)
	}

	t := &task{name: name, interval: interval, fn: fn}
	spec := fmt.Sprintf("@every %s", interval)
	entryID, err := p.cron.AddFunc(spec, func() {
		p.run(ctx, t)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to schedule task %s: %w", name, err)
	}
	t.entryID = entryID
	p.tasks[name] = t

	p.logger.Debug("task scheduled",
		zap.String("task", name),
		zap.Duration("interval", interval))

	return &Handle{release: func() { p.remove(name) }}, nil
}

// Start begins dispatching and stops everything when ctx ends.
func (p *Poller) Start(ctx context.Context) {
	p.cron.Start()
	go func() {
		<-ctx.Done()
		p.Stop()
	}()
	p.logger.Info("poller started", zap.Int("tasks", len(p.tasks)))
}

// Stop halts dispatching and waits for in-flight runs to finish.
func (p *Poller) Stop() {
	stopCtx := p.cron.Stop()
	<-stopCtx.Done()
	p.logger.Info("poller stopped")
}

// Stats returns run/error counts per task.
func (p *Poller) Stats() map[string]map[string]int64 {
	p.mu.Lock()
	defer p.mu.Unlock()

	stats := make(map[string]map[string]int64, len(p.tasks))
	for name, t := range p.tasks {
		stats[name] = map[string]int64{
			"runs":   t.runCount,
			"errors": t.errorCount,
		}
	}
	return stats
}

func (p *Poller) run(ctx context.Context, t *task) {
	if ctx.Err() != nil {
		return
	}

	runCtx, cancel := context.WithTimeout(ctx, t.interval)
	defer cancel()

	start := time.Now()
	err := t.fn(runCtx)

	p.mu.Lock()
	t.runCount++
	if err != nil {
		t.errorCount++
	}
	p.mu.Unlock()

	if err != nil {
		p.logger.Warn("poll task failed",
			zap.String("task", t.name),
			zap.Error(err),
			zap.Duration("elapsed", time.Since(start)))
		return
	}
	p.logger.Debug("poll task completed",
		zap.String("task", t.name),
		zap.Duration("elapsed", time.Since(start)))
}

func (p *Poller) remove(name string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	t, exists := p.tasks[name]
	if !exists {
		return
	}
	p.cron.Remove(t.entryID)
	delete(p.tasks, name)

	p.logger.Debug("task released", zap.String("task", name))
}
