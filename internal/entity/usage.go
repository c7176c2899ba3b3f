package entity

import (
	"time"

	"github.com/google/uuid"
)

// UsageQuota represents a caller's metered scan usage for data transfer between layers.
type UsageQuota struct {
	UserID              string    `json:"user_id"`
	ScansUsedThisPeriod int       `json:"scans_used_this_period"`
	ScanLimit           int       `json:"scan_limit"`
	PeriodKey           string    `json:"period_key"`
	UpdatedAt           time.Time `json:"updated_at"`
}

// Remaining returns the scans left in the period, never negative.
func (q *UsageQuota) Remaining() int {
	if q.ScansUsedThisPeriod >= q.ScanLimit {
		return 0
	}
	return q.ScanLimit - q.ScansUsedThisPeriod
}

// AuditRecord is one completed pipeline call.
type AuditRecord struct {
	ID           uuid.UUID `json:"id"`
	UserID       string    `json:"user_id"`
	RequestID    string    `json:"request_id"`
	Phase        string    `json:"phase"`
	Success      bool      `json:"success"`
	ErrorType    string    `json:"error_type,omitempty"`
	ShiftCount   int       `json:"shift_count"`
	QuestionCnt  int       `json:"question_count"`
	ProcessingMs int64     `json:"processing_ms"`
	CreatedAt    time.Time `json:"created_at"`
}

// User is the authenticated caller.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email,omitempty"`
}
