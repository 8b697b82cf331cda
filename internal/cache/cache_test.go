package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowline-analytics/flowline/internal/models"
)

func testCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return New(client, true, time.Hour), mr
}

func TestKey(t *testing.T) {
	assert.Equal(t, "flowline:littles_law:2026-03-14:front_desk", Key("littles_law", "2026-03-14", "front_desk"))
	assert.Equal(t, "flowline:summary:2026-03-14:all", Key("summary", "2026-03-14", ""))
}

func TestGetSetRoundTrip(t *testing.T) {
	c, _ := testCache(t)
	ctx := context.Background()

	in := models.DailyMetricsSummary{
		Status: models.StatusCalculated,
		Date:   "2026-03-14",
		Flow:   models.FlowMetrics{TotalArrivals: 18, TotalDepartures: 17, NetFlow: 1},
	}
	key := Key("summary", "2026-03-14", "front_desk")
	require.NoError(t, c.Set(ctx, key, in))

	var out models.DailyMetricsSummary
	require.NoError(t, c.Get(ctx, "summary", key, &out))
	assert.Equal(t, in, out)
}

func TestGetMiss(t *testing.T) {
	c, _ := testCache(t)
	var out models.DailyMetricsSummary
	err := c.Get(context.Background(), "summary", Key("summary", "2026-03-14", "front_desk"), &out)
	assert.ErrorIs(t, err, ErrMiss)
}

func TestDisabledCacheAlwaysMisses(t *testing.T) {
	c := New(nil, false, time.Hour)
	ctx := context.Background()

	key := Key("summary", "2026-03-14", "front_desk")
	require.NoError(t, c.Set(ctx, key, "anything"))

	var out string
	assert.ErrorIs(t, c.Get(ctx, "summary", key, &out), ErrMiss)
}

func TestInvalidateDay(t *testing.T) {
	c, _ := testCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, Key("summary", "2026-03-14", "front_desk"), "a"))
	require.NoError(t, c.Set(ctx, Key("littles_law", "2026-03-14", "lobby"), "b"))
	require.NoError(t, c.Set(ctx, Key("summary", "2026-03-15", "front_desk"), "keep"))

	require.NoError(t, c.InvalidateDay(ctx, "2026-03-14"))

	var out string
	assert.ErrorIs(t, c.Get(ctx, "summary", Key("summary", "2026-03-14", "front_desk"), &out), ErrMiss)
	assert.ErrorIs(t, c.Get(ctx, "littles_law", Key("littles_law", "2026-03-14", "lobby"), &out), ErrMiss)
	assert.NoError(t, c.Get(ctx, "summary", Key("summary", "2026-03-15", "front_desk"), &out))
	assert.Equal(t, "keep", out)
}

func TestSetRespectsTTL(t *testing.T) {
	c, mr := testCache(t)
	ctx := context.Background()

	key := Key("summary", "2026-03-14", "front_desk")
	require.NoError(t, c.Set(ctx, key, "value"))

	mr.FastForward(2 * time.Hour)

	var out string
	assert.ErrorIs(t, c.Get(ctx, "summary", key, &out), ErrMiss)
}
