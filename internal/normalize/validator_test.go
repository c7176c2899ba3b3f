package normalize

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/roster-scan/internal/entity"
)

func TestValidateShifts(t *testing.T) {
	raw := []entity.AIExtractedShift{
		{Date: "15/01", StartTime: "9am", EndTime: "5pm", JobName: "  Front   Desk "},
		{Date: "garbled", RawDateText: "16 Jan", StartTime: "10:00", EndTime: "later"},
		{Date: "who knows"},
		{Date: "2026-01-18"},
	}
	res := ValidateShifts(raw, 2026)

	require.Len(t, res.ValidShifts, 3)
	assert.Len(t, res.Errors, 1)
	assert.Len(t, res.Warnings, 2)

	first := res.ValidShifts[0]
	assert.Equal(t, "2026-01-15", first.Date)
	assert.Equal(t, "09:00", *first.StartTime)
	assert.Equal(t, "17:00", *first.EndTime)
	assert.Equal(t, "Front Desk", first.JobName)
	assert.Equal(t, "15/01", first.RawDateText)
	assert.Equal(t, "9am-5pm", first.RawTimeText)

	second := res.ValidShifts[1]
	assert.Equal(t, "2026-01-16", second.Date)
	assert.Equal(t, "16 Jan", second.RawDateText)
	assert.Equal(t, "10:00", *second.StartTime)
	assert.Nil(t, second.EndTime)

	third := res.ValidShifts[2]
	assert.Nil(t, third.StartTime)
	assert.Empty(t, third.RawDateText)
	assert.Empty(t, third.RawTimeText)
}

func TestValidateShifts_Idempotent(t *testing.T) {
	raw := []entity.AIExtractedShift{
		{Date: "Thursday 15th January 2026", StartTime: "9:30pm", EndTime: "0200", Location: "Bar"},
		{Date: "bad", RawDateText: "3/2", StartTime: "noon", EndTime: "oops"},
		{Date: "2026-01-20", StartTime: "08:00", Note: " bring apron "},
	}
	first := ValidateShifts(raw, 2026)
	second := Revalidate(first.ValidShifts, 2026)

	assert.Equal(t, first.ValidShifts, second.ValidShifts)
	assert.Empty(t, second.Errors)
	assert.Empty(t, second.Warnings)
}

func TestShiftHours(t *testing.T) {
	s := func(v string) *string { return &v }
	assert.Equal(t, 8.0, ShiftHours(s("09:00"), s("17:00")))
	assert.Equal(t, 7.5, ShiftHours(s("22:00"), s("05:30")))
	assert.Equal(t, 0.0, ShiftHours(nil, s("17:00")))
	assert.Equal(t, 0.0, ShiftHours(s("x"), s("17:00")))
}

func TestReferenceYear(t *testing.T) {
	ref := time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, 2027, ReferenceYear("Jan 4 - Jan 10, 2027", ref))
	assert.Equal(t, 2027, ReferenceYear("2027년 1월", ref))
	assert.Equal(t, 2026, ReferenceYear("week 3", ref))
}

func TestResolveWeekday(t *testing.T) {
	// 2026-10-19 is a Monday
	ref := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)

	got, ok := ResolveWeekday("Mon", ref)
	require.True(t, ok)
	assert.Equal(t, "2026-10-19", got)

	got, ok = ResolveWeekday("tuesday", ref)
	require.True(t, ok)
	assert.Equal(t, "2026-10-20", got)

	got, ok = ResolveWeekday("일요일", ref)
	require.True(t, ok)
	assert.Equal(t, "2026-10-25", got)

	_, ok = ResolveWeekday("Monday 5th", ref)
	assert.False(t, ok)
}

func TestResolveWeekdayDates(t *testing.T) {
	ref := time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC)
	out := ResolveWeekdayDates([]entity.AIExtractedShift{
		{Date: "Tue"},
		{Date: "", RawDateText: "Wed"},
		{Date: "2026-10-30"},
	}, ref)

	assert.Equal(t, "2026-10-20", out[0].Date)
	assert.Equal(t, "Tue", out[0].RawDateText)
	assert.Equal(t, "2026-10-21", out[1].Date)
	assert.Equal(t, "Wed", out[1].RawDateText)
	assert.Equal(t, "2026-10-30", out[2].Date)
}

func TestNormalizeText(t *testing.T) {
	assert.Equal(t, "Front Desk 9:00", NormalizeText("  Ｆｒｏｎｔ\tDesk  ９：００ "))
	assert.Equal(t, "", NormalizeText(""))
}

func TestCleanRawText(t *testing.T) {
	in := "Ana\t\tMon  9-5\r\n-----\r\n\r\n\r\n\r\nBen   Tue 10-6  \n"
	assert.Equal(t, "Ana Mon 9-5\n\nBen Tue 10-6", CleanRawText(in))
	assert.Equal(t, "", CleanRawText(""))
}
