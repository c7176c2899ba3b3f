// Package async runs legacy scans on a bounded worker pool.
package async

import (
	"context"
	"errors"
	"time"

	"github.com/joseph-ayodele/roster-scan/internal/entity"
)

// ErrQueueClosed is returned by Enqueue after Shutdown.
var ErrQueueClosed = errors.New("queue is shutting down")

// Job is one roster image to scan.
type Job struct {
	Source      string
	Image       []byte
	MIMEType    string
	Identifier  string
	JobConfigs  []entity.JobConfig
	JobAliases  []entity.JobAlias
	SubmittedAt time.Time
}

// Result is delivered once per accepted job.
type Result struct {
	Job     Job
	Output  *entity.ProcessResult
	Err     error
	Elapsed time.Duration
}

type Queue interface {
	Enqueue(ctx context.Context, job Job) error
	Shutdown(ctx context.Context)
}
