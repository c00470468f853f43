// Package cache provides the redis-backed participant count cache.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"eventrsvp/internal/services"
)

// countTTL bounds staleness of a cached count. The capacity policy is
// advisory, so a slightly stale value is acceptable.
const countTTL = 30 * time.Second

type participantCache struct {
	client *redis.Client
}

// NewParticipantCache returns a ParticipantCache backed by the given redis
// client.
func NewParticipantCache(client *redis.Client) services.ParticipantCache {
	return &participantCache{client: client}
}

// NewClient connects to redis and verifies the connection.
func NewClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

func key(eventID string) string {
	return "event:" + eventID + ":participants"
}

func (c *participantCache) Get(ctx context.Context, eventID string) (int, bool, error) {
	count, err := c.client.Get(ctx, key(eventID)).Int()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, false, nil
		}
		return 0, false, err
	}
	return count, true, nil
}

func (c *participantCache) Set(ctx context.Context, eventID string, count int) error {
	return c.client.Set(ctx, key(eventID), count, countTTL).Err()
}

func (c *participantCache) Invalidate(ctx context.Context, eventID string) error {
	return c.client.Del(ctx, key(eventID)).Err()
}
