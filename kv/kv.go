// Package kv holds the best-effort side state in Redis: the bounded ring
// of recent host telemetry points and the resource-spike alert cooldown.
package kv

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/okpiyush/pulse-monitor/model"
)

const (
	healthHistoryKey = "system_health_history"
	lastAlertKey     = "system_health_last_alert"

	// HistoryLen bounds the health ring to the most recent points.
	HistoryLen = 20

	// AlertCooldown is the TTL of the resource-spike cooldown key.
	AlertCooldown = time.Hour
)

// Client wraps the Redis connection.
type Client struct {
	rdb *redis.Client
}

// Open connects to Redis at the given URL (redis://host:port/db).
func Open(url string) (*Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse kv url: %w", err)
	}
	return &Client{rdb: redis.NewClient(opts)}, nil
}

// New wraps an existing Redis client. Used by tests with miniredis.
func New(rdb *redis.Client) *Client { return &Client{rdb: rdb} }

// Close closes the connection.
func (c *Client) Close() error { return c.rdb.Close() }

// Ping verifies the connection.
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// PushHealthPoint pushes a point to the head of the health ring and trims
// it to HistoryLen entries.
func (c *Client) PushHealthPoint(ctx context.Context, p model.HealthPoint) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal health point: %w", err)
	}
	pipe := c.rdb.TxPipeline()
	pipe.LPush(ctx, healthHistoryKey, data)
	pipe.LTrim(ctx, healthHistoryKey, 0, HistoryLen-1)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("push health point: %w", err)
	}
	return nil
}

// HealthHistory returns the ring contents, most recent first. Entries
// that fail to parse are skipped.
func (c *Client) HealthHistory(ctx context.Context) ([]model.HealthPoint, error) {
	raw, err := c.rdb.LRange(ctx, healthHistoryKey, 0, HistoryLen-1).Result()
	if err != nil {
		return nil, fmt.Errorf("health history: %w", err)
	}
	points := make([]model.HealthPoint, 0, len(raw))
	for _, item := range raw {
		var p model.HealthPoint
		if err := json.Unmarshal([]byte(item), &p); err != nil {
			continue
		}
		points = append(points, p)
	}
	return points, nil
}

// LastAlertAt returns the time of the last resource-spike alert. The
// second return is false when no cooldown key is present.
func (c *Client) LastAlertAt(ctx context.Context) (time.Time, bool, error) {
	val, err := c.rdb.Get(ctx, lastAlertKey).Result()
	if err == redis.Nil {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("last alert: %w", err)
	}
	unix, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("last alert value %q: %w", val, err)
	}
	return time.Unix(unix, 0).UTC(), true, nil
}

// SetLastAlert records the time of a resource-spike alert with the
// cooldown TTL.
func (c *Client) SetLastAlert(ctx context.Context, t time.Time) error {
	err := c.rdb.Set(ctx, lastAlertKey, strconv.FormatInt(t.Unix(), 10), AlertCooldown).Err()
	if err != nil {
		return fmt.Errorf("set last alert: %w", err)
	}
	return nil
}
