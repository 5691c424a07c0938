package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sayyara-app/backend/internal/domain"
	apperrors "github.com/sayyara-app/backend/pkg/errors"
)

// SnapshotCache stores the last known authenticated state per device. It is
// the fallback consulted when a presented access token no longer validates.
type SnapshotCache interface {
	Save(ctx context.Context, deviceID string, snap *domain.Snapshot) error
	Load(ctx context.Context, deviceID string) (*domain.Snapshot, error)
	Clear(ctx context.Context, deviceID string) error
}

// RedisSnapshotCache implements SnapshotCache on Redis. Entries expire with
// the refresh token they contain, so stale snapshots cannot outlive the
// credentials needed to use them.
type RedisSnapshotCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisSnapshotCache creates a snapshot cache with the given entry TTL.
func NewRedisSnapshotCache(client *redis.Client, ttl time.Duration) *RedisSnapshotCache {
	return &RedisSnapshotCache{client: client, ttl: ttl}
}

func snapshotKey(deviceID string) string {
	return "session:snapshot:" + deviceID
}

// Save serializes and stores the snapshot for the device.
func (c *RedisSnapshotCache) Save(ctx context.Context, deviceID string, snap *domain.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	if err := c.client.Set(ctx, snapshotKey(deviceID), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}

	return nil
}

// Load retrieves the snapshot for the device, or ErrNotFound.
func (c *RedisSnapshotCache) Load(ctx context.Context, deviceID string) (*domain.Snapshot, error) {
	data, err := c.client.Get(ctx, snapshotKey(deviceID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("load snapshot: %w", err)
	}

	var snap domain.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}

	return &snap, nil
}

// Clear removes the snapshot for the device. Clearing a missing entry is not
// an error.
func (c *RedisSnapshotCache) Clear(ctx context.Context, deviceID string) error {
	if err := c.client.Del(ctx, snapshotKey(deviceID)).Err(); err != nil {
		return fmt.Errorf("clear snapshot: %w", err)
	}
	return nil
}
