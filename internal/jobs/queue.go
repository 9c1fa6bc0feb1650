package jobs

import (
	"context"
	"log"
	"runtime/debug"
	"sync"
	"time"
)

// Task is a deferred unit of work, typically embedding generation
// queued by the pipeline.
type Task struct {
	Name string
	Fn   func(ctx context.Context) error
}

// Queue is a buffered task queue drained by a small worker pool.
// Enqueue never blocks: when the queue is full the task is dropped and
// logged.
type Queue struct {
	tasks   chan Task
	timeout time.Duration

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
	closed bool
}

// NewQueue creates a task queue with the given capacity, worker count,
// and per-task wall-clock cap, and starts the workers.
func NewQueue(capacity, workers int, timeout time.Duration) *Queue {
	if capacity <= 0 {
		capacity = 100
	}
	if workers <= 0 {
		workers = 2
	}
	if timeout <= 0 {
		timeout = time.Minute
	}

	q := &Queue{
		tasks:   make(chan Task, capacity),
		timeout: timeout,
	}

	ctx, cancel := context.WithCancel(context.Background())
	q.cancel = cancel
	for i := 0; i < workers; i++ {
		q.wg.Add(1)
		go q.worker(ctx, i)
	}
	log.Printf("jobs: started %d queue workers (capacity %d)", workers, capacity)
	return q
}

// Enqueue submits a task. Returns false when the queue is full or shut
// down; the caller decides whether to run the work inline instead.
func (q *Queue) Enqueue(name string, fn func(ctx context.Context) error) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return false
	}

	select {
	case q.tasks <- Task{Name: name, Fn: fn}:
		return true
	default:
		log.Printf("jobs: queue full (capacity %d), dropping task %s", cap(q.tasks), name)
		return false
	}
}

// Len returns the number of queued tasks.
func (q *Queue) Len() int {
	return len(q.tasks)
}

func (q *Queue) worker(ctx context.Context, id int) {
	defer q.wg.Done()

	for task := range q.tasks {
		q.runTask(ctx, id, task)
	}
	log.Printf("jobs: queue worker %d stopped", id)
}

func (q *Queue) runTask(ctx context.Context, workerID int, task Task) {
	taskCtx, cancel := context.WithTimeout(ctx, q.timeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			log.Printf("jobs: worker %d: task %s panicked: %v\n%s", workerID, task.Name, r, debug.Stack())
		}
	}()

	if err := task.Fn(taskCtx); err != nil {
		log.Printf("jobs: worker %d: task %s failed: %v", workerID, task.Name, err)
	}
}

// Shutdown stops accepting tasks and waits for the workers to drain the
// queue, up to the context deadline.
func (q *Queue) Shutdown(ctx context.Context) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	close(q.tasks)
	q.mu.Unlock()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		log.Println("jobs: queue drained")
		return nil
	case <-ctx.Done():
		q.cancel()
		log.Printf("jobs: queue shutdown timed out, %d tasks may be dropped", len(q.tasks))
		return ctx.Err()
	}
}
