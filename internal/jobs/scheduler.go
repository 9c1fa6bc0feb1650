// Package jobs runs the background machinery: a ticker-driven scheduler
// for the periodic detectors and a worker pool draining a deferred task
// queue.
package jobs

import (
	"context"
	"log"
	"runtime/debug"
	"sync"
	"time"
)

// JobFunc is one periodic job invocation. The context carries the
// per-run deadline.
type JobFunc func(ctx context.Context) error

type job struct {
	name     string
	interval time.Duration
	fn       JobFunc
}

// Scheduler runs registered jobs on their own tickers. A failing or
// panicking run is logged and never blocks future runs.
type Scheduler struct {
	timeout time.Duration
	jobs    []job

	mu      sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	started bool
}

// NewScheduler creates a scheduler with the given per-run wall-clock
// cap.
func NewScheduler(timeout time.Duration) *Scheduler {
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	return &Scheduler{timeout: timeout}
}

// Register adds a periodic job. Must be called before Start.
func (s *Scheduler) Register(name string, interval time.Duration, fn JobFunc) {
	s.jobs = append(s.jobs, job{name: name, interval: interval, fn: fn})
}

// Start launches one goroutine per registered job.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return
	}
	s.started = true

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	for _, j := range s.jobs {
		s.wg.Add(1)
		go s.loop(ctx, j)
	}
	log.Printf("jobs: scheduler started with %d jobs", len(s.jobs))
}

func (s *Scheduler) loop(ctx context.Context, j job) {
	defer s.wg.Done()

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runOnce(ctx, j)
		}
	}
}

// runOnce executes one job invocation under the wall-clock cap, with
// panic recovery.
func (s *Scheduler) runOnce(ctx context.Context, j job) {
	runCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			log.Printf("jobs: %s panicked: %v\n%s", j.name, r, debug.Stack())
		}
	}()

	start := time.Now()
	if err := j.fn(runCtx); err != nil {
		log.Printf("jobs: %s failed after %v: %v", j.name, time.Since(start).Round(time.Millisecond), err)
		return
	}
	log.Printf("jobs: %s completed in %v", j.name, time.Since(start).Round(time.Millisecond))
}

// RunNow executes every registered job once, immediately. Used at
// startup so a freshly booted server does not wait a full interval.
func (s *Scheduler) RunNow(ctx context.Context) {
	for _, j := range s.jobs {
		s.runOnce(ctx, j)
	}
}

// Stop cancels the job loops and waits for in-flight runs.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.started = false
	cancel := s.cancel
	s.mu.Unlock()

	cancel()
	s.wg.Wait()
	log.Println("jobs: scheduler stopped")
}
