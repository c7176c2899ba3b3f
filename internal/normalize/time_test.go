package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeTime(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"17:00", "17:00"},
		{"9:05", "09:05"},
		{"09:30:00", "09:30"},
		{"9am", "09:00"},
		{"12am", "00:00"},
		{"12pm", "12:00"},
		{"9:30pm", "21:30"},
		{"9 AM", "09:00"},
		{"5:15 p.m.", "17:15"},
		{"930", "09:30"},
		{"0900", "09:00"},
		{"1700", "17:00"},
		{"noon", "12:00"},
		{"Midday", "12:00"},
		{"midnight", "00:00"},
		{"오전 9시", "09:00"},
		{"오후 2시 30분", "14:30"},
		{"오후 6시 반", "18:30"},
		{"午後3時", "15:00"},
		{"１７：００", "17:00"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := NormalizeTime(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizeTime_Failures(t *testing.T) {
	for _, in := range []string{"25:00", "12:60", "13pm", "0am", "2400", "soon", "99"} {
		_, err := NormalizeTime(in)
		assert.Error(t, err, in)
	}
	_, err := NormalizeTime("")
	assert.ErrorIs(t, err, ErrEmptyTime)
}
