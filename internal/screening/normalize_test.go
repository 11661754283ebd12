package screening_test

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"invscreen/internal/screening"
)

func TestNormalizeText(t *testing.T) {
	for _, in := range []string{"INV-1002", "inv 1002", "INV/1002", " Inv_1002. ", "INV\\1002", "inv,1002"} {
		assert.Equal(t, "inv1002", screening.NormalizeText(in), in)
	}
	assert.Equal(t, "", screening.NormalizeText(""))
	assert.Equal(t, "", screening.NormalizeText(" - / "))
	assert.Equal(t, "acmesupplies", screening.NormalizeText("Acme Supplies"))
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
	}{
		{"15-01-2025", time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)},
		{"15/01/2025", time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)},
		{"2025-01-15", time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)},
		{"15.01.2025", time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)},
		{"5-1-2025", time.Date(2025, 1, 5, 0, 0, 0, 0, time.UTC)},
		{"2025-01-15T18:30:00Z", time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)},
		{"2025-01-15 09:15", time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)},
		{"20250115", time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := screening.ParseDate(tt.in)
			assert.True(t, ok)
			assert.True(t, tt.want.Equal(got), "got %s", got)
		})
	}

	t.Run("ambiguous day-month is read day first", func(t *testing.T) {
		got, ok := screening.ParseDate("03-04-2025")
		assert.True(t, ok)
		assert.Equal(t, time.April, got.Month())
		assert.Equal(t, 3, got.Day())
	})

	t.Run("unparseable", func(t *testing.T) {
		for _, in := range []string{"", "  ", "yesterday", "31-02-2025", "13/25/2025"} {
			_, ok := screening.ParseDate(in)
			assert.False(t, ok, in)
		}
	})
}

func TestDateDiffDays(t *testing.T) {
	assert.Equal(t, 10.0, screening.DateDiffDays("01-01-2025", "2025-01-11"))
	assert.Equal(t, 10.0, screening.DateDiffDays("2025-01-11", "01-01-2025"))
	assert.Equal(t, 0.0, screening.DateDiffDays("2025-03-01", "01.03.2025"))
	assert.Equal(t, 365.0, screening.DateDiffDays("2024-03-01", "2025-03-01"))

	assert.True(t, math.IsNaN(screening.DateDiffDays("2025-01-11", "not a date")))
	assert.True(t, math.IsNaN(screening.DateDiffDays("", "2025-01-11")))
	assert.True(t, math.IsNaN(screening.DateDiffDays("", "")))
}
