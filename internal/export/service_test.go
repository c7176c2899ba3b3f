package export

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/roster-scan/internal/entity"
)

func open(t *testing.T, data []byte) *excelize.File {
	t.Helper()
	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.Close() })
	return f
}

func strPtr(s string) *string { return &s }

func TestShiftsXLSX(t *testing.T) {
	job := "job-1"
	data, err := ShiftsXLSX([]entity.ParsedShift{
		{Date: "2026-10-19", StartTime: strPtr("09:00"), EndTime: strPtr("17:00"), TotalHours: 8, RosterJobName: "Bar", MappedJobID: &job, Confidence: 0.95},
		{Date: "2026-10-20", StartTime: strPtr("10:00")},
	})
	require.NoError(t, err)

	f := open(t, data)
	assert.Equal(t, []string{shiftsSheet}, f.GetSheetList())

	rows, err := f.GetRows(shiftsSheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "Date", rows[0][0])
	assert.Equal(t, []string{"2026-10-19", "09:00", "17:00", "8", "Bar", "job-1", "0.95"}, rows[1][:7])
	assert.Equal(t, "10:00", rows[2][1])
	assert.Equal(t, "", rows[2][2])
}

func TestWorkbook_SourcesAndFailures(t *testing.T) {
	data, err := NewService(nil).Workbook(
		[]Row{{Source: "week1.png", Shift: entity.ParsedShift{Date: "2026-10-19"}}},
		[]Failure{{Source: "cat.jpg", ErrorType: "no_shifts", Message: "no roster detected"}},
	)
	require.NoError(t, err)

	f := open(t, data)
	assert.Equal(t, []string{shiftsSheet, errorsSheet}, f.GetSheetList())

	rows, err := f.GetRows(shiftsSheet)
	require.NoError(t, err)
	assert.Equal(t, "Source", rows[0][0])
	assert.Equal(t, "week1.png", rows[1][0])
	assert.Equal(t, "2026-10-19", rows[1][1])

	failures, err := f.GetRows(errorsSheet)
	require.NoError(t, err)
	require.Len(t, failures, 2)
	assert.Equal(t, []string{"cat.jpg", "no_shifts", "no roster detected"}, failures[1])
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 5))
	assert.Equal(t, "ab…", truncate("abcdef", 3))
	assert.Equal(t, "한국…", truncate("한국어입니다", 3))
}
