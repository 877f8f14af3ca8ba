package services

import (
	"context"
	"fmt"
	"time"

	"billing-bridge/internal/database"
	"billing-bridge/pkg/logging"
)

// RateLimiter provides per-project request rate limiting backed by Redis
type RateLimiter struct {
	window time.Duration
}

// NewRateLimiter creates a rate limiter with a one-minute window
func NewRateLimiter() *RateLimiter {
	return &RateLimiter{window: time.Minute}
}

// Allow reports whether the project may make another billing request this
// window. limit <= 0 means unlimited. Redis failures allow the request
// through: rate limiting protects capacity, it must not take billing down.
func (rl *RateLimiter) Allow(ctx context.Context, projectID string, limit int) bool {
	if limit <= 0 {
		return true
	}

	key := fmt.Sprintf("rate_limit:billing:%s", projectID)
	client := database.GetRedis()

	count, err := client.Incr(ctx, key).Result()
	if err != nil {
		logging.Errorf("Rate limit check failed - project: %s: %v", projectID, err)
		return true
	}
	if count == 1 {
		if err := client.Expire(ctx, key, rl.window).Err(); err != nil {
			logging.Errorf("Rate limit expire failed - project: %s: %v", projectID, err)
		}
	}

	if count > int64(limit) {
		logging.Infof("Rate limit exceeded - project: %s, count: %d, limit: %d", projectID, count, limit)
		return false
	}
	return true
}
