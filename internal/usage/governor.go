// Package usage enforces the per-caller monthly scan quota.
package usage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/joseph-ayodele/roster-scan/constants"
	"github.com/joseph-ayodele/roster-scan/internal/common"
	"github.com/joseph-ayodele/roster-scan/internal/entity"
	"github.com/joseph-ayodele/roster-scan/internal/repository"
)

const periodLayout = "2006-01"

// PeriodKey is the calendar month of t in UTC.
func PeriodKey(t time.Time) string {
	return t.UTC().Format(periodLayout)
}

// Governor reads, resets and increments quota records. Updates are read-then-write with no
// lock, so two concurrent scans from one caller at the limit boundary can both pass.
type Governor struct {
	repo         repository.QuotaRepository
	defaultLimit int
	logger       *slog.Logger
	now          func() time.Time
}

func NewGovernor(repo repository.QuotaRepository, defaultLimit int, logger *slog.Logger) *Governor {
	return &Governor{
		repo:         repo,
		defaultLimit: defaultLimit,
		logger:       common.LoggerOr(logger),
		now:          time.Now,
	}
}

// WithClock overrides the clock used for period keys.
func (g *Governor) WithClock(now func() time.Time) *Governor {
	g.now = now
	return g
}

// Check returns the caller's current quota, resetting usage when the period has rolled over.
// When the limit is reached it returns the quota together with a limit_exceeded AppError.
func (g *Governor) Check(ctx context.Context, userID string) (*entity.UsageQuota, error) {
	q, err := g.current(ctx, userID)
	if err != nil {
		return nil, err
	}
	if q.Remaining() == 0 {
		g.logger.Info("usage.limit_exceeded",
			"request_id", common.RequestIDFromContext(ctx),
			"user_id", userID, "scans_used", q.ScansUsedThisPeriod, "scan_limit", q.ScanLimit)
		return q, common.NewAppError(constants.ErrLimitExceeded,
			fmt.Sprintf("monthly scan limit reached (%d/%d)", q.ScansUsedThisPeriod, q.ScanLimit),
			common.ErrLimitExceeded)
	}
	return q, nil
}

// Record counts one scan against the caller and returns the updated quota.
func (g *Governor) Record(ctx context.Context, userID string) (*entity.UsageQuota, error) {
	q, err := g.current(ctx, userID)
	if err != nil {
		return nil, err
	}
	q.ScansUsedThisPeriod++
	q.UpdatedAt = g.now().UTC()
	if err := g.repo.Save(ctx, q); err != nil {
		return nil, fmt.Errorf("record scan: %w", err)
	}
	g.logger.Debug("usage.recorded",
		"user_id", userID,
		"scans_used", q.ScansUsedThisPeriod,
		"remaining", q.Remaining(),
		"period", q.PeriodKey)
	return q, nil
}

// current loads the quota, creating or resetting it when needed.
func (g *Governor) current(ctx context.Context, userID string) (*entity.UsageQuota, error) {
	period := PeriodKey(g.now())
	q, err := g.repo.Get(ctx, userID)
	switch {
	case errors.Is(err, common.ErrNotFound):
		q = &entity.UsageQuota{UserID: userID, ScanLimit: g.defaultLimit, PeriodKey: period, UpdatedAt: g.now().UTC()}
		if err := g.repo.Save(ctx, q); err != nil {
			return nil, fmt.Errorf("create quota: %w", err)
		}
		return q, nil
	case err != nil:
		return nil, fmt.Errorf("load quota: %w", err)
	}

	if q.ScanLimit <= 0 {
		q.ScanLimit = g.defaultLimit
	}
	if q.PeriodKey != period {
		g.logger.Info("usage.period_reset", "user_id", userID, "from", q.PeriodKey, "to", period)
		q.ScansUsedThisPeriod = 0
		q.PeriodKey = period
		q.UpdatedAt = g.now().UTC()
		if err := g.repo.Save(ctx, q); err != nil {
			return nil, fmt.Errorf("reset quota: %w", err)
		}
	}
	return q, nil
}
