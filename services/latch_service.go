// services/latch_service.go
package services

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// latchTTL keeps latch keys around long enough to absorb client retries
// without blocking a legitimate re-confirmation forever
const latchTTL = 10 * time.Minute

// RedisConfirmationLatch implements ConfirmationLatch with SETNX. The first
// confirmation of a payment wins the key; racing duplicates see it taken.
type RedisConfirmationLatch struct {
	rdb *redis.Client
}

// NewRedisConfirmationLatch creates a latch backed by the given client
func NewRedisConfirmationLatch(rdb *redis.Client) *RedisConfirmationLatch {
	return &RedisConfirmationLatch{rdb: rdb}
}

// TryLock reports whether this caller is the first to confirm the payment
func (l *RedisConfirmationLatch) TryLock(ctx context.Context, paymentIntentID string) (bool, error) {
	acquired, err := l.rdb.SetNX(ctx, "payment:confirm:"+paymentIntentID, "1", latchTTL).Result()
	if err != nil {
		return false, fmt.Errorf("latch setnx failed: %w", err)
	}
	return acquired, nil
}

// Unlock releases the key after a failed confirmation so the next attempt
// is processed instead of suppressed
func (l *RedisConfirmationLatch) Unlock(ctx context.Context, paymentIntentID string) error {
	if err := l.rdb.Del(ctx, "payment:confirm:"+paymentIntentID).Err(); err != nil {
		return fmt.Errorf("latch release failed: %w", err)
	}
	return nil
}
