package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// IssueLock serialises ticket issuance per order across service replicas.
type IssueLock struct {
	Client *redis.Client
	ttl    time.Duration
}

func NewIssueLock(client *redis.Client, ttl time.Duration) *IssueLock {
	return &IssueLock{Client: client, ttl: ttl}
}

func issueKey(orderID string) string {
	return "ticket_issue_lock:" + orderID
}

// Acquire takes the lock for orderID on behalf of owner.
func (r *IssueLock) Acquire(ctx context.Context, orderID, owner string) (bool, error) {
	ok, err := r.Client.SetNX(ctx, issueKey(orderID), owner, r.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire issue lock: %w", err)
	}
	return ok, nil
}

// Release drops the lock only if owner still holds it.
func (r *IssueLock) Release(ctx context.Context, orderID, owner string) error {
	key := issueKey(orderID)
	val, err := r.Client.Get(ctx, key).Result()
	if err == redis.Nil {
		return nil // already expired
	}
	if err != nil {
		return fmt.Errorf("failed to read issue lock: %w", err)
	}
	if val != owner {
		return nil
	}
	return r.Client.Del(ctx, key).Err()
}

// Ping reports whether Redis is reachable; used by the health check.
func (r *IssueLock) Ping(ctx context.Context) error {
	return r.Client.Ping(ctx).Err()
}
