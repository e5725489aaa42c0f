package tools

import (
	"context"
	"log/slog"
	"sync"

	"github.com/sourcegraph/conc/panics"
)

// Job is one deferred unit of work.
type Job func() error

type queuedJob struct {
	name string
	fn   Job
}

// WriteQueue runs jobs on a single background goroutine in submission order.
//
// Enqueue never waits for the job. Whatever a job returns, including a panic,
// is logged and discarded: callers get no completion signal. Wait exists for
// tests and shutdown, not for the request path.
type WriteQueue struct {
	logger *slog.Logger

	mu        sync.Mutex
	cond      *sync.Cond
	jobs      []queuedJob
	submitted uint64
	completed uint64
	failed    uint64
	closed    bool
	progress  chan struct{}
	stopped   chan struct{}
}

// NewWriteQueue starts the worker. A nil logger uses slog.Default().
func NewWriteQueue(logger *slog.Logger) *WriteQueue {
	if logger == nil {
		logger = slog.Default()
	}
	q := &WriteQueue{
		logger:   logger,
		progress: make(chan struct{}),
		stopped:  make(chan struct{}),
	}
	q.cond = sync.NewCond(&q.mu)
	go q.run()
	return q
}

// Enqueue schedules fn and returns immediately. Jobs submitted after Close
// are dropped with a warning.
func (q *WriteQueue) Enqueue(name string, fn Job) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		q.logger.Warn("write queue closed, dropping job", slog.String("job", name))
		return
	}
	q.jobs = append(q.jobs, queuedJob{name: name, fn: fn})
	q.submitted++
	q.cond.Signal()
}

// Pending returns the number of jobs submitted but not yet finished.
func (q *WriteQueue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return int(q.submitted - q.completed)
}

// Failed returns how many jobs have returned an error or panicked.
func (q *WriteQueue) Failed() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return int(q.failed)
}

// Wait blocks until every job enqueued before the call has finished, or ctx
// is done.
func (q *WriteQueue) Wait(ctx context.Context) error {
	q.mu.Lock()
	target := q.submitted
	for q.completed < target {
		ch := q.progress
		q.mu.Unlock()
		select {
		case <-ch:
		case <-ctx.Done():
			return ctx.Err()
		}
		q.mu.Lock()
	}
	q.mu.Unlock()
	return nil
}

// Close stops accepting jobs, runs the ones already queued and waits for the
// worker to exit.
func (q *WriteQueue) Close() {
	q.mu.Lock()
	q.closed = true
	q.cond.Signal()
	q.mu.Unlock()
	<-q.stopped
}

func (q *WriteQueue) run() {
	defer close(q.stopped)
	for {
		q.mu.Lock()
		for len(q.jobs) == 0 && !q.closed {
			q.cond.Wait()
		}
		if len(q.jobs) == 0 {
			q.mu.Unlock()
			return
		}
		job := q.jobs[0]
		q.jobs[0] = queuedJob{}
		q.jobs = q.jobs[1:]
		q.mu.Unlock()

		err := q.execute(job)

		q.mu.Lock()
		q.completed++
		if err != nil {
			q.failed++
		}
		close(q.progress)
		q.progress = make(chan struct{})
		q.mu.Unlock()
	}
}

func (q *WriteQueue) execute(job queuedJob) (err error) {
	var pc panics.Catcher
	pc.Try(func() { err = job.fn() })
	if r := pc.Recovered(); r != nil {
		err = r.AsError()
	}
	if err != nil {
		q.logger.Warn("deferred write failed", slog.String("job", job.name), slog.Any("error", err))
		return err
	}
	q.logger.Debug("deferred write applied", slog.String("job", job.name))
	return nil
}
