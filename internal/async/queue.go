// Package async runs document processing on a bounded worker pool.
package async

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/finextract/internal/common"
	"github.com/joseph-ayodele/finextract/internal/pipeline"
)

// ErrClosed is returned by Enqueue once Shutdown has started.
var ErrClosed = errors.New("queue is shutting down")

// Job is the smallest useful unit.
type Job struct {
	DocumentID  uuid.UUID
	SubmittedAt time.Time
	RequestID   string
}

// Processor is the work a queued job triggers.
type Processor interface {
	ProcessDocument(ctx context.Context, docID uuid.UUID) (pipeline.Outcome, error)
}

type Queue struct {
	proc    Processor
	logger  *slog.Logger
	workers int
	timeout time.Duration
	done    func(Job, pipeline.Outcome, error)

	ch   chan Job
	wg   sync.WaitGroup
	once sync.Once

	// mu is held for reading by senders and for writing while ch is closed.
	mu       sync.RWMutex
	closing  chan struct{}
	stopOnce sync.Once
}

type Option func(*Queue)

func WithWorkers(n int) Option {
	return func(q *Queue) {
		if n > 0 {
			q.workers = n
		}
	}
}

func WithQueueSize(n int) Option {
	return func(q *Queue) {
		if n > 0 {
			q.ch = make(chan Job, n)
		}
	}
}

func WithProcessTimeout(d time.Duration) Option {
	return func(q *Queue) {
		if d > 0 {
			q.timeout = d
		}
	}
}

// WithOnDone is called from the worker after each job.
func WithOnDone(fn func(Job, pipeline.Outcome, error)) Option {
	return func(q *Queue) { q.done = fn }
}

func NewQueue(proc Processor, logger *slog.Logger, opts ...Option) *Queue {
	if logger == nil {
		logger = slog.Default()
	}
	q := &Queue{
		proc:    proc,
		logger:  logger,
		workers: 4,
		timeout: 3 * time.Minute,
		ch:      make(chan Job, 256),
		closing: make(chan struct{}),
	}
	for _, o := range opts {
		o(q)
	}
	q.start()
	return q
}

func (q *Queue) start() {
	q.once.Do(func() {
		for i := 0; i < q.workers; i++ {
			q.wg.Add(1)
			go q.work(i + 1)
		}
	})
}

func (q *Queue) work(workerID int) {
	defer q.wg.Done()
	q.logger.Debug("worker started", "worker_id", workerID)

	for job := range q.ch {
		ctx, cancel := context.WithTimeout(context.Background(), q.timeout)
		if job.RequestID != "" {
			ctx = common.WithRequestID(ctx, job.RequestID)
		}
		out, err := q.proc.ProcessDocument(ctx, job.DocumentID)
		cancel()

		elapsed := time.Since(job.SubmittedAt)
		if err != nil {
			q.logger.Error("queue.job.failed", "worker_id", workerID, "document_id", job.DocumentID, "error", err)
		} else {
			q.logger.Info("queue.job.ok", "worker_id", workerID, "document_id", job.DocumentID, "job_id", out.JobID,
				"duration_ms", elapsed.Milliseconds())
		}
		if q.done != nil {
			q.done(job, out, err)
		}
	}

	q.logger.Debug("worker stopped", "worker_id", workerID)
}

// Enqueue hands job to a worker. When the buffer is full it blocks until a
// slot frees up, ctx ends or Shutdown starts.
func (q *Queue) Enqueue(ctx context.Context, job Job) error {
	if job.SubmittedAt.IsZero() {
		job.SubmittedAt = time.Now()
	}
	q.mu.RLock()
	defer q.mu.RUnlock()
	select {
	case <-q.closing:
		q.logger.Warn("cannot enqueue: queue is shutting down", "document_id", job.DocumentID)
		return ErrClosed
	default:
	}
	select {
	case q.ch <- job:
		q.logger.Debug("queued document for processing", "document_id", job.DocumentID)
		return nil
	default:
	}
	q.logger.Warn("queue full, applying backpressure", "document_id", job.DocumentID, "capacity", cap(q.ch))
	select {
	case q.ch <- job:
		return nil
	case <-q.closing:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Submit enqueues docID, carrying the request id found on ctx. It has the
// shape of ingest.SubmitFunc.
func (q *Queue) Submit(ctx context.Context, docID uuid.UUID) error {
	return q.Enqueue(ctx, Job{DocumentID: docID, SubmittedAt: time.Now(), RequestID: common.RequestIDFromContext(ctx)})
}

// Len is the number of jobs waiting for a worker.
func (q *Queue) Len() int { return len(q.ch) }

// Shutdown stops intake and waits for queued jobs to finish or ctx to end.
// Senders blocked on a full buffer are released with ErrClosed.
func (q *Queue) Shutdown(ctx context.Context) error {
	first := false
	q.stopOnce.Do(func() {
		first = true
		close(q.closing)
	})
	if !first {
		return nil
	}
	q.mu.Lock()
	close(q.ch)
	q.mu.Unlock()

	done := make(chan struct{})
	go func() { defer close(done); q.wg.Wait() }()

	select {
	case <-ctx.Done():
		q.logger.Warn("shutdown interrupted by context", "pending", len(q.ch))
		return ctx.Err()
	case <-done:
		q.logger.Info("queue drained, shutdown complete")
		return nil
	}
}
