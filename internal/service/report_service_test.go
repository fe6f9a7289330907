package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeRangeValidatesDates(t *testing.T) {
	start, end, err := normalizeRange("2026-08-01", "2026-08-30")
	require.NoError(t, err)
	assert.Equal(t, "2026-08-01", start)
	assert.Equal(t, "2026-08-30", end)

	// Timestamps are truncated to the calendar date.
	start, end, err = normalizeRange("2026-08-01T10:30:00Z", "2026-08-02")
	require.NoError(t, err)
	assert.Equal(t, "2026-08-01", start)
	assert.Equal(t, "2026-08-02", end)

	_, _, err = normalizeRange("not-a-date", "2026-08-30")
	assert.Error(t, err)

	_, _, err = normalizeRange("2026-08-30", "2026-08-01")
	assert.Error(t, err)
}

func TestNormalizeRangeDefaultsToTrailingWeek(t *testing.T) {
	start, end, err := normalizeRange("", "")
	require.NoError(t, err)

	from, parseErr := time.Parse("2006-01-02", start)
	require.NoError(t, parseErr)
	to, parseErr := time.Parse("2006-01-02", end)
	require.NoError(t, parseErr)

	assert.Equal(t, 6, int(to.Sub(from).Hours()/24))
}
