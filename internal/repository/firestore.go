package repository

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/joseph-ayodele/roster-scan/internal/common"
	"github.com/joseph-ayodele/roster-scan/internal/entity"
)

type quotaDoc struct {
	UserID    string    `firestore:"user_id"`
	ScansUsed int       `firestore:"scans_used"`
	ScanLimit int       `firestore:"scan_limit"`
	PeriodKey string    `firestore:"period_key"`
	UpdatedAt time.Time `firestore:"updated_at"`
}

type auditDoc struct {
	ID            string    `firestore:"id"`
	UserID        string    `firestore:"user_id"`
	RequestID     string    `firestore:"request_id"`
	Phase         string    `firestore:"phase"`
	Success       bool      `firestore:"success"`
	ErrorType     string    `firestore:"error_type"`
	ShiftCount    int       `firestore:"shift_count"`
	QuestionCount int       `firestore:"question_count"`
	ProcessingMs  int64     `firestore:"processing_ms"`
	CreatedAt     time.Time `firestore:"created_at"`
}

// FirestoreStore keeps quotas keyed by user id and audit records keyed by record id.
type FirestoreStore struct {
	client *firestore.Client
	logger *slog.Logger
}

// OpenFirestore connects to the project in cfg. FIRESTORE_EMULATOR_HOST is honoured by the client.
func OpenFirestore(ctx context.Context, cfg common.StoreConfig, logger *slog.Logger) (*FirestoreStore, error) {
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	client, err := firestore.NewClient(ctx, cfg.FirestoreProject, opts...)
	if err != nil {
		return nil, common.WrapError(err, "create firestore client")
	}
	return &FirestoreStore{client: client, logger: common.LoggerOr(logger)}, nil
}

// EnsureSchema is a no-op; collections are created on first write.
func (s *FirestoreStore) EnsureSchema(context.Context) error { return nil }

func (s *FirestoreStore) Get(ctx context.Context, userID string) (*entity.UsageQuota, error) {
	snap, err := s.client.Collection(quotaTable).Doc(userID).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, common.ErrNotFound
	}
	if err != nil {
		s.logger.Error("failed to read quota", "user_id", userID, "error", err)
		return nil, common.WrapError(err, "read quota")
	}
	var d quotaDoc
	if err := snap.DataTo(&d); err != nil {
		return nil, common.WrapError(err, "decode quota")
	}
	return &entity.UsageQuota{
		UserID:              userID,
		ScansUsedThisPeriod: d.ScansUsed,
		ScanLimit:           d.ScanLimit,
		PeriodKey:           d.PeriodKey,
		UpdatedAt:           d.UpdatedAt,
	}, nil
}

func (s *FirestoreStore) Save(ctx context.Context, q *entity.UsageQuota) error {
	if q.UpdatedAt.IsZero() {
		q.UpdatedAt = time.Now().UTC()
	}
	_, err := s.client.Collection(quotaTable).Doc(q.UserID).Set(ctx, quotaDoc{
		UserID:    q.UserID,
		ScansUsed: q.ScansUsedThisPeriod,
		ScanLimit: q.ScanLimit,
		PeriodKey: q.PeriodKey,
		UpdatedAt: q.UpdatedAt,
	})
	if err != nil {
		s.logger.Error("failed to save quota", "user_id", q.UserID, "error", err)
		return common.WrapError(err, "save quota")
	}
	return nil
}

func (s *FirestoreStore) Append(ctx context.Context, rec *entity.AuditRecord) error {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	_, err := s.client.Collection(auditTable).Doc(rec.ID.String()).Set(ctx, auditDoc{
		ID:            rec.ID.String(),
		UserID:        rec.UserID,
		RequestID:     rec.RequestID,
		Phase:         rec.Phase,
		Success:       rec.Success,
		ErrorType:     rec.ErrorType,
		ShiftCount:    rec.ShiftCount,
		QuestionCount: rec.QuestionCnt,
		ProcessingMs:  rec.ProcessingMs,
		CreatedAt:     rec.CreatedAt,
	})
	if err != nil {
		s.logger.Error("failed to append audit record", "request_id", rec.RequestID, "error", err)
		return common.WrapError(err, "append audit record")
	}
	return nil
}

func (s *FirestoreStore) ListByUser(ctx context.Context, userID string, limit int) ([]entity.AuditRecord, error) {
	if limit <= 0 {
		limit = defaultAuditLimit
	}
	iter := s.client.Collection(auditTable).
		Where("user_id", "==", userID).
		OrderBy("created_at", firestore.Desc).
		Limit(limit).
		Documents(ctx)
	defer iter.Stop()

	out := make([]entity.AuditRecord, 0, limit)
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			s.logger.Error("failed to list audit records", "user_id", userID, "error", err)
			return nil, common.WrapError(err, "list audit records")
		}
		var d auditDoc
		if err := snap.DataTo(&d); err != nil {
			return nil, common.WrapError(err, "decode audit record")
		}
		id, err := uuid.Parse(d.ID)
		if err != nil {
			return nil, common.WrapError(err, "audit record id")
		}
		out = append(out, entity.AuditRecord{
			ID:           id,
			UserID:       d.UserID,
			RequestID:    d.RequestID,
			Phase:        d.Phase,
			Success:      d.Success,
			ErrorType:    d.ErrorType,
			ShiftCount:   d.ShiftCount,
			QuestionCnt:  d.QuestionCount,
			ProcessingMs: d.ProcessingMs,
			CreatedAt:    d.CreatedAt,
		})
	}
	return out, nil
}

// Ping reads a sentinel document; a missing document still proves connectivity.
func (s *FirestoreStore) Ping(ctx context.Context) error {
	_, err := s.client.Collection(quotaTable).Doc("_ping").Get(ctx)
	if err == nil || status.Code(err) == codes.NotFound {
		return nil
	}
	return common.WrapError(err, "firestore ping")
}

func (s *FirestoreStore) Close() error {
	return s.client.Close()
}
