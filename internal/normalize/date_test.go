package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeDate(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"2026-01-15", "2026-01-15"},
		{"2024-02-29", "2024-02-29"},
		{"Thursday 15th January 2026", "2026-01-15"},
		{"15 Jan 2026", "2026-01-15"},
		{"1st of March", "2026-03-01"},
		{"15th January", "2026-01-15"},
		{"January 15", "2026-01-15"},
		{"Jan 15, 2027", "2027-01-15"},
		{"Mon, Sept 7", "2026-09-07"},
		{"15-Jan", "2026-01-15"},
		{"15-Jan-27", "2027-01-15"},
		{"Jan-15", "2026-01-15"},
		{"03/04", "2026-04-03"},
		{"13/04", "2026-04-13"},
		{"04/13", "2026-04-13"},
		{"15/01/2026", "2026-01-15"},
		{"15.01.2026", "2026-01-15"},
		{"2026/1/5", "2026-01-05"},
		{"2026년 1월 15일", "2026-01-15"},
		{"3월 7일 (토)", "2026-03-07"},
		{"2026年1月15日", "2026-01-15"},
		{"２０２６-０１-１５", "2026-01-15"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := NormalizeDate(tt.in, 2026)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizeDate_Failures(t *testing.T) {
	_, err := NormalizeDate("2026-02-30", 2026)
	assert.ErrorIs(t, err, ErrInvalidDate)

	_, err = NormalizeDate("2026-13-01", 2026)
	assert.ErrorIs(t, err, ErrInvalidDate)

	_, err = NormalizeDate("31 Feb", 2026)
	assert.ErrorIs(t, err, ErrInvalidDate)

	_, err = NormalizeDate("13/13", 2026)
	assert.ErrorIs(t, err, ErrInvalidDate)

	_, err = NormalizeDate("next tuesday-ish", 2026)
	assert.ErrorIs(t, err, ErrUnrecognizedDate)

	_, err = NormalizeDate("   ", 2026)
	assert.ErrorIs(t, err, ErrEmptyDate)
}

func TestNormalizeDate_ISOPassThrough(t *testing.T) {
	for y := 2020; y <= 2030; y++ {
		for m := 1; m <= 12; m++ {
			for _, d := range []int{1, 15, 28, 29, 30, 31} {
				iso := format(y, m, d)
				got, err := NormalizeDate(iso, 1999)
				if IsValidCalendarDate(y, m, d) {
					require.NoError(t, err, iso)
					assert.Equal(t, iso, got)
				} else {
					assert.Error(t, err, iso)
				}
			}
		}
	}
}

func TestIsValidCalendarDate(t *testing.T) {
	assert.True(t, IsValidCalendarDate(2024, 2, 29))
	assert.False(t, IsValidCalendarDate(2025, 2, 29))
	assert.False(t, IsValidCalendarDate(2026, 4, 31))
	assert.False(t, IsValidCalendarDate(2026, 0, 10))
	assert.False(t, IsValidCalendarDate(2026, 1, 0))
}
