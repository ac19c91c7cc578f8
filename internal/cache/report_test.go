package cache

import (
	"context"
	"testing"
	"time"

	"github.com/smallbiznis/recipecost/internal/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryReportCache_ExpiresAfterTTL(t *testing.T) {
	ctx := context.Background()
	fake := clock.NewFakeClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	c := NewMemoryReportCache(30*time.Second, fake)
	key := NewReportKey(1, ReportCMV, time.Time{}, time.Time{})

	require.NoError(t, c.Set(ctx, key, []byte(`{"average":"30"}`)))
	payload, ok, err := c.Get(ctx, key)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.JSONEq(t, `{"average":"30"}`, string(payload))

	fake.Advance(31 * time.Second)
	_, ok, err = c.Get(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryReportCache_PrunesExpiredKeysFromIndex(t *testing.T) {
	ctx := context.Background()
	fake := clock.NewFakeClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	c := NewMemoryReportCache(30*time.Second, fake)
	mem := c.(*memoryReportCache)

	january := NewReportKey(1, ReportPurchaseSummary,
		time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC))
	february := NewReportKey(1, ReportPurchaseSummary,
		time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC), time.Date(2026, 2, 28, 0, 0, 0, 0, time.UTC))
	cmv := NewReportKey(2, ReportCMV, time.Time{}, time.Time{})

	require.NoError(t, c.Set(ctx, january, []byte("jan")))
	require.NoError(t, c.Set(ctx, cmv, []byte("cmv")))
	fake.Advance(31 * time.Second)

	// Writing another period for org 1 sweeps its expired siblings.
	require.NoError(t, c.Set(ctx, february, []byte("feb")))
	assert.Len(t, mem.index[1], 1)
	assert.Contains(t, mem.index[1], february)

	// A read miss drops the key, and the org once it has none left.
	_, ok, err := c.Get(ctx, cmv)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NotContains(t, mem.index, int64(2))
}

func TestMemoryReportCache_InvalidateOrgOnlyDropsThatOrg(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryReportCache(time.Minute, clock.NewFakeClock(time.Now()))

	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC)
	orgA := NewReportKey(1, ReportPurchaseSummary, from, to)
	orgACMV := NewReportKey(1, ReportCMV, time.Time{}, time.Time{})
	orgB := NewReportKey(2, ReportCMV, time.Time{}, time.Time{})

	require.NoError(t, c.Set(ctx, orgA, []byte("a")))
	require.NoError(t, c.Set(ctx, orgACMV, []byte("a2")))
	require.NoError(t, c.Set(ctx, orgB, []byte("b")))

	require.NoError(t, c.InvalidateOrg(ctx, 1))

	_, ok, _ := c.Get(ctx, orgA)
	assert.False(t, ok)
	_, ok, _ = c.Get(ctx, orgACMV)
	assert.False(t, ok)
	_, ok, _ = c.Get(ctx, orgB)
	assert.True(t, ok)
}

func TestReportKey_TruncatesToDay(t *testing.T) {
	a := NewReportKey(7, ReportPurchaseSummary,
		time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC),
		time.Date(2026, 2, 28, 23, 0, 0, 0, time.UTC))
	b := NewReportKey(7, ReportPurchaseSummary,
		time.Date(2026, 2, 1, 17, 30, 0, 0, time.UTC),
		time.Date(2026, 2, 28, 1, 0, 0, 0, time.UTC))

	assert.Equal(t, a, b)
	assert.Equal(t, "7:purchase_summary:2026-02-01:2026-02-28", a.String())
	assert.Equal(t, "recipecost:report:7:purchase_summary:2026-02-01:2026-02-28", redisEntryKey(a))
	assert.Equal(t, "recipecost:report-index:7", redisIndexKey(7))
}
