package repository

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/joseph-ayodele/roster-scan/internal/common"
	"github.com/joseph-ayodele/roster-scan/internal/entity"
)

var (
	quotaColumns = []string{"user_id", "scans_used", "scan_limit", "period_key", "updated_at_ms"}
	auditColumns = []string{"id", "user_id", "request_id", "phase", "success", "error_type", "shift_count", "question_count", "processing_ms", "created_at_ms"}
)

// sqlStore keeps quotas and audit records in Postgres or SQLite. Times are stored as unix
// milliseconds so both dialects scan them the same way.
type sqlStore struct {
	drv    *entsql.Driver
	pool   *pgxpool.Pool
	logger *slog.Logger
}

func (s *sqlStore) builder() *entsql.DialectBuilder {
	return entsql.Dialect(s.drv.Dialect())
}

// schemaDDL is portable across Postgres and SQLite.
var schemaDDL = []string{
	`CREATE TABLE IF NOT EXISTS ` + quotaTable + ` (
		user_id       TEXT    NOT NULL PRIMARY KEY,
		scans_used    INTEGER NOT NULL,
		scan_limit    INTEGER NOT NULL,
		period_key    TEXT    NOT NULL,
		updated_at_ms BIGINT  NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS ` + auditTable + ` (
		id             TEXT    NOT NULL PRIMARY KEY,
		user_id        TEXT    NOT NULL,
		request_id     TEXT    NOT NULL,
		phase          TEXT    NOT NULL,
		success        BOOLEAN NOT NULL,
		error_type     TEXT    NOT NULL,
		shift_count    INTEGER NOT NULL,
		question_count INTEGER NOT NULL,
		processing_ms  BIGINT  NOT NULL,
		created_at_ms  BIGINT  NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS scan_audit_user_created ON ` + auditTable + ` (user_id, created_at_ms)`,
}

// EnsureSchema creates the quota and audit tables when missing. Safe to run repeatedly.
func (s *sqlStore) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schemaDDL {
		if err := s.drv.Exec(ctx, stmt, []any{}, nil); err != nil {
			s.logger.Error("failed to ensure schema", "error", err)
			return common.WrapError(err, "ensure schema")
		}
	}
	return nil
}

func (s *sqlStore) Get(ctx context.Context, userID string) (*entity.UsageQuota, error) {
	query, args := s.builder().
		Select(quotaColumns...).
		From(entsql.Table(quotaTable)).
		Where(entsql.EQ("user_id", userID)).
		Query()

	var rows entsql.Rows
	if err := s.drv.Query(ctx, query, args, &rows); err != nil {
		s.logger.Error("failed to read quota", "user_id", userID, "error", err)
		return nil, common.WrapError(err, "read quota")
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, common.WrapError(err, "read quota")
		}
		return nil, common.ErrNotFound
	}
	var (
		q         entity.UsageQuota
		updatedMs int64
	)
	if err := rows.Scan(&q.UserID, &q.ScansUsedThisPeriod, &q.ScanLimit, &q.PeriodKey, &updatedMs); err != nil {
		return nil, common.WrapError(err, "scan quota")
	}
	q.UpdatedAt = time.UnixMilli(updatedMs).UTC()
	return &q, nil
}

// Save writes the quota as given, replacing any stored row.
func (s *sqlStore) Save(ctx context.Context, q *entity.UsageQuota) error {
	if q.UpdatedAt.IsZero() {
		q.UpdatedAt = time.Now().UTC()
	}
	query, args := s.builder().
		Insert(quotaTable).
		Columns(quotaColumns...).
		Values(q.UserID, q.ScansUsedThisPeriod, q.ScanLimit, q.PeriodKey, q.UpdatedAt.UnixMilli()).
		OnConflict(
			entsql.ConflictColumns("user_id"),
			entsql.ResolveWithNewValues(),
		).
		Query()
	if err := s.drv.Exec(ctx, query, args, nil); err != nil {
		s.logger.Error("failed to save quota", "user_id", q.UserID, "error", err)
		return common.WrapError(err, "save quota")
	}
	return nil
}

func (s *sqlStore) Append(ctx context.Context, rec *entity.AuditRecord) error {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	query, args := s.builder().
		Insert(auditTable).
		Columns(auditColumns...).
		Values(rec.ID.String(), rec.UserID, rec.RequestID, rec.Phase, rec.Success, rec.ErrorType,
			rec.ShiftCount, rec.QuestionCnt, rec.ProcessingMs, rec.CreatedAt.UnixMilli()).
		Query()
	if err := s.drv.Exec(ctx, query, args, nil); err != nil {
		s.logger.Error("failed to append audit record", "request_id", rec.RequestID, "error", err)
		return common.WrapError(err, "append audit record")
	}
	return nil
}

// ListByUser returns the caller's most recent audit records, newest first.
func (s *sqlStore) ListByUser(ctx context.Context, userID string, limit int) ([]entity.AuditRecord, error) {
	if limit <= 0 {
		limit = defaultAuditLimit
	}
	query, args := s.builder().
		Select(auditColumns...).
		From(entsql.Table(auditTable)).
		Where(entsql.EQ("user_id", userID)).
		OrderBy(entsql.Desc("created_at_ms")).
		Limit(limit).
		Query()

	var rows entsql.Rows
	if err := s.drv.Query(ctx, query, args, &rows); err != nil {
		s.logger.Error("failed to list audit records", "user_id", userID, "error", err)
		return nil, common.WrapError(err, "list audit records")
	}
	defer rows.Close()

	out := make([]entity.AuditRecord, 0, limit)
	for rows.Next() {
		var (
			rec       entity.AuditRecord
			id        string
			createdMs int64
		)
		if err := rows.Scan(&id, &rec.UserID, &rec.RequestID, &rec.Phase, &rec.Success, &rec.ErrorType,
			&rec.ShiftCount, &rec.QuestionCnt, &rec.ProcessingMs, &createdMs); err != nil {
			return nil, common.WrapError(err, "scan audit record")
		}
		parsed, err := uuid.Parse(id)
		if err != nil {
			return nil, fmt.Errorf("audit record id %q: %w", id, err)
		}
		rec.ID = parsed
		rec.CreatedAt = time.UnixMilli(createdMs).UTC()
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, common.WrapError(err, "list audit records")
	}
	return out, nil
}

// Ping checks connectivity.
func (s *sqlStore) Ping(ctx context.Context) error {
	if s.pool != nil {
		return s.pool.Ping(ctx)
	}
	return s.drv.DB().PingContext(ctx)
}

// Close closes the driver and, for Postgres, the underlying pool.
func (s *sqlStore) Close() error {
	err := s.drv.Close()
	if s.pool != nil {
		s.pool.Close()
	}
	return err
}
