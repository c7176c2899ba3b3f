package async

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/roster-scan/internal/entity"
	"github.com/joseph-ayodele/roster-scan/internal/pipeline"
)

type scannerFunc func(ctx context.Context, in pipeline.LegacyInput) (*entity.ProcessResult, error)

func (f scannerFunc) Process(ctx context.Context, in pipeline.LegacyInput) (*entity.ProcessResult, error) {
	return f(ctx, in)
}

func TestScanQueue_ProcessesAllJobs(t *testing.T) {
	var calls atomic.Int32
	scanner := scannerFunc(func(_ context.Context, in pipeline.LegacyInput) (*entity.ProcessResult, error) {
		calls.Add(1)
		if in.Identifier == "fail" {
			return nil, errors.New("model down")
		}
		return &entity.ProcessResult{Success: true, Shifts: []entity.ParsedShift{{Date: "2026-10-19"}}}, nil
	})

	var (
		mu      sync.Mutex
		results = map[string]Result{}
	)
	q := NewScanQueue(scanner, nil,
		WithWorkers(3),
		WithQueueSize(1),
		WithResultHandler(func(r Result) {
			mu.Lock()
			results[r.Job.Source] = r
			mu.Unlock()
		}),
	)

	ctx := context.Background()
	for _, src := range []string{"a.png", "b.png", "c.png", "d.png"} {
		require.NoError(t, q.Enqueue(ctx, Job{Source: src, MIMEType: "image/png"}))
	}
	require.NoError(t, q.Enqueue(ctx, Job{Source: "bad.png", Identifier: "fail"}))
	q.Shutdown(ctx)

	assert.EqualValues(t, 5, calls.Load())
	require.Len(t, results, 5)
	assert.NoError(t, results["a.png"].Err)
	assert.Len(t, results["a.png"].Output.Shifts, 1)
	assert.False(t, results["a.png"].Job.SubmittedAt.IsZero())
	assert.Error(t, results["bad.png"].Err)
}

func TestScanQueue_EnqueueAfterShutdown(t *testing.T) {
	q := NewScanQueue(scannerFunc(func(context.Context, pipeline.LegacyInput) (*entity.ProcessResult, error) {
		return &entity.ProcessResult{Success: true}, nil
	}), nil)
	q.Shutdown(context.Background())
	q.Shutdown(context.Background())
	assert.ErrorIs(t, q.Enqueue(context.Background(), Job{Source: "late.png"}), ErrQueueClosed)
}

func TestScanQueue_EnqueueHonoursContextWhenFull(t *testing.T) {
	release := make(chan struct{})
	q := NewScanQueue(scannerFunc(func(context.Context, pipeline.LegacyInput) (*entity.ProcessResult, error) {
		<-release
		return &entity.ProcessResult{Success: true}, nil
	}), nil, WithWorkers(1), WithQueueSize(1))

	require.NoError(t, q.Enqueue(context.Background(), Job{Source: "1"}))
	// wait for the worker to pick up job 1 so job 2 fills the buffer
	require.Eventually(t, func() bool { return len(q.ch) == 0 }, time.Second, 5*time.Millisecond)
	require.NoError(t, q.Enqueue(context.Background(), Job{Source: "2"}))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, q.Enqueue(ctx, Job{Source: "3"}), context.DeadlineExceeded)

	close(release)
	q.Shutdown(context.Background())
}

func TestScanQueue_ProcessTimeout(t *testing.T) {
	done := make(chan Result, 1)
	q := NewScanQueue(scannerFunc(func(ctx context.Context, _ pipeline.LegacyInput) (*entity.ProcessResult, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}), nil, WithProcessTimeout(10*time.Millisecond), WithResultHandler(func(r Result) { done <- r }))

	require.NoError(t, q.Enqueue(context.Background(), Job{Source: "slow.png"}))
	r := <-done
	assert.ErrorIs(t, r.Err, context.DeadlineExceeded)
	q.Shutdown(context.Background())
}
