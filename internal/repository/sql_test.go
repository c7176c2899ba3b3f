package repository

import (
	"context"
	"os"
	"testing"
	"time"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/roster-scan/internal/common"
	"github.com/joseph-ayodele/roster-scan/internal/entity"
)

func newTestStore(t *testing.T) Store {
	t.Helper()
	drv, err := OpenSQLite(":memory:")
	require.NoError(t, err)
	st := NewSQLStore(drv, nil)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.EnsureSchema(context.Background()))
	return st
}

func TestSQLStore_EnsureSchemaIsIdempotent(t *testing.T) {
	st := newTestStore(t)
	require.NoError(t, st.EnsureSchema(context.Background()))
	require.NoError(t, st.Ping(context.Background()))

	drv := st.(*sqlStore).drv
	var rows entsql.Rows
	require.NoError(t, drv.Query(context.Background(),
		"SELECT name FROM sqlite_master WHERE type = 'index' AND name = ?", []any{"scan_audit_user_created"}, &rows))
	defer rows.Close()
	assert.True(t, rows.Next(), "audit index created")
}

func TestSQLStore_Quota(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	_, err := st.Get(ctx, "u1")
	require.ErrorIs(t, err, common.ErrNotFound)

	updated := time.Date(2026, 10, 19, 8, 0, 0, 0, time.UTC)
	q := &entity.UsageQuota{UserID: "u1", ScansUsedThisPeriod: 3, ScanLimit: 30, PeriodKey: "2026-10", UpdatedAt: updated}
	require.NoError(t, st.Save(ctx, q))

	got, err := st.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "u1", got.UserID)
	assert.Equal(t, 3, got.ScansUsedThisPeriod)
	assert.Equal(t, 30, got.ScanLimit)
	assert.Equal(t, "2026-10", got.PeriodKey)
	assert.True(t, updated.Equal(got.UpdatedAt))

	q.ScansUsedThisPeriod = 4
	q.PeriodKey = "2026-11"
	require.NoError(t, st.Save(ctx, q))
	got, err = st.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 4, got.ScansUsedThisPeriod)
	assert.Equal(t, "2026-11", got.PeriodKey)
}

func TestSQLStore_Audit(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 10, 19, 8, 0, 0, 0, time.UTC)

	for i := range 3 {
		require.NoError(t, st.Append(ctx, &entity.AuditRecord{
			UserID:     "u1",
			RequestID:  "req",
			Phase:      "questions",
			Success:    i%2 == 0,
			ShiftCount: i,
			CreatedAt:  base.Add(time.Duration(i) * time.Minute),
		}))
	}
	other := &entity.AuditRecord{UserID: "u2", Phase: "filter", ErrorType: "no_shifts", CreatedAt: base}
	require.NoError(t, st.Append(ctx, other))
	assert.NotEqual(t, uuid.Nil, other.ID)

	recs, err := st.ListByUser(ctx, "u1", 2)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, 2, recs[0].ShiftCount)
	assert.Equal(t, 1, recs[1].ShiftCount)
	assert.True(t, recs[0].Success)
	assert.False(t, recs[1].Success)
	assert.True(t, base.Add(2*time.Minute).Equal(recs[0].CreatedAt))

	recs, err = st.ListByUser(ctx, "u2", 0)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, other.ID, recs[0].ID)
	assert.Equal(t, "no_shifts", recs[0].ErrorType)
}

func TestOpen_UnsupportedDriver(t *testing.T) {
	_, err := Open(context.Background(), common.StoreConfig{Driver: "mysql"}, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrInvalidInput)
}

func TestFirestoreStore_Emulator(t *testing.T) {
	if os.Getenv("FIRESTORE_EMULATOR_HOST") == "" {
		t.Skip("FIRESTORE_EMULATOR_HOST not set")
	}
	ctx := context.Background()
	st, err := OpenFirestore(ctx, common.StoreConfig{FirestoreProject: "roster-scan-test"}, nil)
	require.NoError(t, err)
	defer st.Close()

	user := "fs-" + uuid.NewString()
	_, err = st.Get(ctx, user)
	require.ErrorIs(t, err, common.ErrNotFound)

	require.NoError(t, st.Save(ctx, &entity.UsageQuota{UserID: user, ScansUsedThisPeriod: 1, ScanLimit: 5, PeriodKey: "2026-10"}))
	got, err := st.Get(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, 1, got.ScansUsedThisPeriod)

	require.NoError(t, st.Append(ctx, &entity.AuditRecord{UserID: user, Phase: "legacy", Success: true}))
	recs, err := st.ListByUser(ctx, user, 10)
	require.NoError(t, err)
	assert.Len(t, recs, 1)
}
