package cache

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wb-unit/backend-go/internal/config"
	"github.com/wb-unit/backend-go/internal/domain"
)

func TestNoopReportCacheAlwaysMisses(t *testing.T) {
	ctx := context.Background()
	c := NewNoopReportCache()

	report, ok, err := c.GetRange(ctx, "2026-08-01", "2026-08-07")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, report)

	require.NoError(t, c.SetRange(ctx, &domain.RangeReport{}))
	require.NoError(t, c.InvalidateAll(ctx))

	_, ok, err = c.GetDaily(ctx, 7, "2026-08-01", "2026-08-07")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestNewReportCacheDisabledFallsBackToNoop(t *testing.T) {
	c, err := NewReportCache(config.CacheConfig{Enabled: false})
	require.NoError(t, err)

	_, ok, err := c.GetRange(context.Background(), "2026-08-01", "2026-08-07")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestReportCacheKeysDistinguishRanges(t *testing.T) {
	assert.NotEqual(t, rangeKey("2026-08-01", "2026-08-07"), rangeKey("2026-08-01", "2026-08-08"))
	assert.NotEqual(t, bundleKey("daily", 7, "a", "b"), bundleKey("variants", 7, "a", "b"))
	assert.NotEqual(t, bundleKey("daily", 7, "a", "b"), bundleKey("daily", 8, "a", "b"))
}
