package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Job is a recurring task. Returned errors are logged; they never stop the schedule.
type Job func(ctx context.Context) error

type entry struct {
	name     string
	interval time.Duration
	job      Job
}

// Scheduler runs named recurring jobs. Each job runs once immediately, then
// every interval, in its own goroutine; runs of the same job never overlap.
type Scheduler struct {
	mu     sync.Mutex
	jobs   map[string]*entry
	order  []string
	runCtx context.Context
	wg     sync.WaitGroup
	logger *slog.Logger
}

// NewScheduler creates an empty scheduler.
func NewScheduler(logger *slog.Logger) *Scheduler {
	return &Scheduler{
		jobs:   make(map[string]*entry),
		logger: logger,
	}
}

// IsScheduled reports whether a job with this name is registered.
func (s *Scheduler) IsScheduled(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.jobs[name]
	return ok
}

// Schedule registers job under name. It returns false and changes nothing if
// the name is already scheduled or interval is not positive. Jobs added while
// Run is active start at once.
func (s *Scheduler) Schedule(name string, interval time.Duration, job Job) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.jobs[name]; ok {
		return false
	}
	if interval <= 0 {
		s.logger.Error("refusing to schedule job with non-positive interval", "job", name, "interval", interval.String())
		return false
	}
	e := &entry{name: name, interval: interval, job: job}
	s.jobs[name] = e
	s.order = append(s.order, name)

	s.logger.Info("scheduled job", "job", name, "interval", interval.String())

	if s.runCtx != nil && s.runCtx.Err() == nil {
		s.start(s.runCtx, e)
	}
	return true
}

// Jobs returns the names of all scheduled jobs in registration order.
func (s *Scheduler) Jobs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.order...)
}

// Run starts every scheduled job and blocks until ctx is cancelled and all
// in-flight runs have returned. It returns nil on graceful shutdown.
func (s *Scheduler) Run(ctx context.Context) error {
	s.mu.Lock()
	s.runCtx = ctx
	s.logger.Info("starting scheduler", "jobs", len(s.order))
	for _, name := range s.order {
		s.start(ctx, s.jobs[name])
	}
	s.mu.Unlock()

	<-ctx.Done()
	s.logger.Info("shutting down scheduler")
	s.wg.Wait()

	s.mu.Lock()
	s.runCtx = nil
	s.mu.Unlock()
	return nil
}

// start must be called with s.mu held.
func (s *Scheduler) start(ctx context.Context, e *entry) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop(ctx, e)
	}()
}

func (s *Scheduler) loop(ctx context.Context, e *entry) {
	s.runOnce(ctx, e)

	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runOnce(ctx, e)
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context, e *entry) {
	if ctx.Err() != nil {
		return
	}
	start := time.Now()
	if err := e.job(ctx); err != nil {
		s.logger.Error("job failed",
			"job", e.name,
			"error", err,
		)
		return
	}
	s.logger.Debug("job finished", "job", e.name, "duration", time.Since(start).Round(time.Millisecond))
}
