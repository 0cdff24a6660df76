package day

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestOfNormalizesToUTCMidnight(t *testing.T) {
	loc := time.FixedZone("UTC+5", 5*60*60)
	// 02:30 local on the 10th is 21:30 UTC on the 9th
	in := time.Date(2025, 3, 10, 2, 30, 0, 0, loc)

	got := Of(in)

	assert.Equal(t, time.Date(2025, 3, 9, 0, 0, 0, 0, time.UTC), got)
}

func TestSameAndYesterday(t *testing.T) {
	today := time.Date(2025, 3, 1, 15, 0, 0, 0, time.UTC)

	assert.True(t, Same(today, time.Date(2025, 3, 1, 0, 0, 1, 0, time.UTC)))
	assert.False(t, Same(today, time.Date(2025, 2, 28, 23, 59, 59, 0, time.UTC)))
	assert.True(t, IsYesterday(time.Date(2025, 2, 28, 8, 0, 0, 0, time.UTC), today))
	assert.False(t, IsYesterday(time.Date(2025, 2, 27, 8, 0, 0, 0, time.UTC), today))
}

func TestRangeAndBetween(t *testing.T) {
	start := time.Date(2024, 12, 30, 0, 0, 0, 0, time.UTC)

	days := Range(start, 3)

	assert.Len(t, days, 3)
	assert.Equal(t, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), days[2])
	assert.Equal(t, 2, Between(start, days[2]))
	assert.Equal(t, -2, Between(days[2], start))
	assert.Nil(t, Range(start, 0))
}

func TestBounds(t *testing.T) {
	from, to := Bounds(time.Date(2025, 6, 15, 23, 0, 0, 0, time.UTC))

	assert.Equal(t, time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC), from)
	assert.Equal(t, time.Date(2025, 6, 16, 0, 0, 0, 0, time.UTC), to)
}
