package kv

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/okpiyush/pulse-monitor/model"
)

func testClient(t *testing.T) (*Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	return New(redis.NewClient(&redis.Options{Addr: mr.Addr()})), mr
}

func TestHealthRingBoundedAndNewestFirst(t *testing.T) {
	c, _ := testClient(t)
	ctx := context.Background()

	for i := 0; i < HistoryLen+5; i++ {
		err := c.PushHealthPoint(ctx, model.HealthPoint{Time: float64(i), CPU: float64(i)})
		require.NoError(t, err)
	}

	points, err := c.HealthHistory(ctx)
	require.NoError(t, err)
	require.Len(t, points, HistoryLen)

	// Newest first: the last pushed point heads the ring.
	require.Equal(t, float64(HistoryLen+4), points[0].Time)
	require.Equal(t, float64(5), points[HistoryLen-1].Time)
}

func TestHealthHistorySkipsCorruptEntries(t *testing.T) {
	c, mr := testClient(t)
	ctx := context.Background()

	require.NoError(t, c.PushHealthPoint(ctx, model.HealthPoint{Time: 1, CPU: 50}))
	mr.Lpush("system_health_history", "{not json")

	points, err := c.HealthHistory(ctx)
	require.NoError(t, err)
	require.Len(t, points, 1)
	require.Equal(t, 50.0, points[0].CPU)
}

func TestLastAlertRoundTrip(t *testing.T) {
	c, _ := testClient(t)
	ctx := context.Background()

	_, ok, err := c.LastAlertAt(ctx)
	require.NoError(t, err)
	require.False(t, ok, "fresh store must have no cooldown key")

	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, c.SetLastAlert(ctx, at))

	got, ok, err := c.LastAlertAt(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	require.True(t, got.Equal(at))
}

func TestLastAlertExpires(t *testing.T) {
	c, mr := testClient(t)
	ctx := context.Background()

	require.NoError(t, c.SetLastAlert(ctx, time.Now()))

	ttl := mr.TTL(lastAlertKey)
	require.Equal(t, AlertCooldown, ttl)

	mr.FastForward(AlertCooldown + time.Minute)
	_, ok, err := c.LastAlertAt(ctx)
	require.NoError(t, err)
	require.False(t, ok, "cooldown key must expire")
}
