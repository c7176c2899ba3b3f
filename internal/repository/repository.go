// Package repository persists usage quotas and scan audit records.
package repository

import (
	"context"

	"github.com/joseph-ayodele/roster-scan/internal/entity"
)

// QuotaRepository reads and writes a caller's usage quota. Get returns common.ErrNotFound
// when the caller has no record yet.
type QuotaRepository interface {
	Get(ctx context.Context, userID string) (*entity.UsageQuota, error)
	Save(ctx context.Context, q *entity.UsageQuota) error
}

// AuditRepository appends and lists scan audit records.
type AuditRepository interface {
	Append(ctx context.Context, rec *entity.AuditRecord) error
	ListByUser(ctx context.Context, userID string, limit int) ([]entity.AuditRecord, error)
}

// Store is a quota and audit backend.
type Store interface {
	QuotaRepository
	AuditRepository
	EnsureSchema(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}

const (
	quotaTable = "usage_quotas"
	auditTable = "scan_audit"

	defaultAuditLimit = 50
)
