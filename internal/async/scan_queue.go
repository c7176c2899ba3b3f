package async

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/joseph-ayodele/roster-scan/internal/common"
	"github.com/joseph-ayodele/roster-scan/internal/entity"
	"github.com/joseph-ayodele/roster-scan/internal/pipeline"
)

// Scanner is the pipeline entry point the workers call.
type Scanner interface {
	Process(ctx context.Context, in pipeline.LegacyInput) (*entity.ProcessResult, error)
}

type ScanQueue struct {
	scanner  Scanner
	logger   *slog.Logger
	workers  int
	timeout  time.Duration
	onResult func(Result)

	ch   chan Job
	wg   sync.WaitGroup
	once sync.Once

	mu     sync.RWMutex
	closed bool
}

type Option func(*ScanQueue)

func WithWorkers(n int) Option {
	return func(q *ScanQueue) {
		if n > 0 {
			q.workers = n
		}
	}
}

func WithQueueSize(n int) Option {
	return func(q *ScanQueue) {
		if n > 0 {
			q.ch = make(chan Job, n)
		}
	}
}

func WithProcessTimeout(d time.Duration) Option {
	return func(q *ScanQueue) {
		if d > 0 {
			q.timeout = d
		}
	}
}

// WithResultHandler receives every result. It is called from worker goroutines.
func WithResultHandler(fn func(Result)) Option {
	return func(q *ScanQueue) {
		if fn != nil {
			q.onResult = fn
		}
	}
}

func NewScanQueue(scanner Scanner, logger *slog.Logger, opts ...Option) *ScanQueue {
	q := &ScanQueue{
		scanner:  scanner,
		logger:   common.LoggerOr(logger),
		workers:  2,
		timeout:  2 * time.Minute,
		onResult: func(Result) {},
		ch:       make(chan Job, 64),
	}
	for _, o := range opts {
		o(q)
	}
	q.start()
	return q
}

func (q *ScanQueue) start() {
	q.once.Do(func() {
		for i := 0; i < q.workers; i++ {
			q.wg.Add(1)
			go func(workerID int) {
				defer q.wg.Done()
				q.logger.Debug("worker started", "worker_id", workerID)
				for job := range q.ch {
					q.run(workerID, job)
				}
				q.logger.Debug("worker stopped", "worker_id", workerID)
			}(i + 1)
		}
	})
}

func (q *ScanQueue) run(workerID int, job Job) {
	start := time.Now()
	ctx, cancel := context.WithTimeout(context.Background(), q.timeout)
	defer cancel()

	out, err := q.scanner.Process(ctx, pipeline.LegacyInput{
		Image:      job.Image,
		MIMEType:   job.MIMEType,
		JobConfigs: job.JobConfigs,
		JobAliases: job.JobAliases,
		Identifier: job.Identifier,
	})
	res := Result{Job: job, Output: out, Err: err, Elapsed: time.Since(start)}

	switch {
	case err != nil:
		q.logger.Error("scan failed", "worker_id", workerID, "source", job.Source, "error", err)
	case !out.Success:
		q.logger.Info("scan produced no shifts", "worker_id", workerID, "source", job.Source, "error_type", out.ErrorType)
	default:
		q.logger.Info("scanned roster", "worker_id", workerID, "source", job.Source, "shifts", len(out.Shifts),
			"elapsed_ms", res.Elapsed.Milliseconds())
	}
	q.onResult(res)
}

// Enqueue blocks while the queue is full, until ctx is done.
func (q *ScanQueue) Enqueue(ctx context.Context, job Job) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		q.logger.Warn("cannot enqueue: queue is shutting down", "source", job.Source)
		return ErrQueueClosed
	}
	if job.SubmittedAt.IsZero() {
		job.SubmittedAt = time.Now()
	}
	select {
	case q.ch <- job:
		q.logger.Debug("queued image for scanning", "source", job.Source)
		return nil
	default:
	}
	q.logger.Warn("queue full, applying backpressure", "source", job.Source)
	select {
	case q.ch <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Shutdown stops intake and waits for queued jobs to finish, or for ctx.
func (q *ScanQueue) Shutdown(ctx context.Context) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.ch)
	q.mu.Unlock()

	done := make(chan struct{})
	go func() { defer close(done); q.wg.Wait() }()

	select {
	case <-ctx.Done():
		q.logger.Warn("shutdown interrupted by context")
	case <-done:
		q.logger.Info("queue drained, shutdown complete")
	}
}

var _ Queue = (*ScanQueue)(nil)
