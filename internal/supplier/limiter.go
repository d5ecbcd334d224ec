// AngelaMos | 2026
// limiter.go

package supplier

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const issueKeyPrefix = "supplier:issue:"

// slidingWindowLua keeps one sorted-set member per issued token, scored by
// issue time in milliseconds.
// KEYS[1] = window key
// ARGV[1] = now (ms)
// ARGV[2] = window (ms)
// ARGV[3] = limit
// ARGV[4] = member
//
// Returns {allowed, count, oldest score}.
var slidingWindowLua = redis.NewScript(`
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])

redis.call('ZREMRANGEBYSCORE', KEYS[1], '-inf', now - window)

local count = redis.call('ZCARD', KEYS[1])
if count >= limit then
  local oldest = redis.call('ZRANGE', KEYS[1], 0, 0, 'WITHSCORES')
  return {0, count, tonumber(oldest[2])}
end

redis.call('ZADD', KEYS[1], now, ARGV[4])
redis.call('PEXPIRE', KEYS[1], window)
return {1, count + 1, now}
`)

// IssueLimiter bounds how many tokens one supplier is sent inside a
// rolling window.
type IssueLimiter struct {
	rdb    redis.Scripter
	limit  int
	window time.Duration
}

func NewIssueLimiter(rdb redis.Scripter, limit int, window time.Duration) *IssueLimiter {
	return &IssueLimiter{rdb: rdb, limit: limit, window: window}
}

// Allow records an issue for supplierID at now when the window has room.
// When it does not, the returned duration is the wait until it will.
func (l *IssueLimiter) Allow(
	ctx context.Context,
	supplierID string,
	now time.Time,
) (bool, time.Duration, error) {
	nowMs := now.UnixMilli()
	windowMs := l.window.Milliseconds()

	res, err := slidingWindowLua.Run(ctx, l.rdb,
		[]string{issueKeyPrefix + supplierID},
		nowMs, windowMs, l.limit, uuid.New().String(),
	).Int64Slice()
	if err != nil {
		return false, 0, fmt.Errorf("supplier issue limiter: %w", err)
	}
	if len(res) != 3 {
		return false, 0, fmt.Errorf("supplier issue limiter: unexpected reply %v", res)
	}

	if res[0] == 1 {
		return true, 0, nil
	}

	retryAfter := time.Duration(res[2]+windowMs-nowMs) * time.Millisecond
	if retryAfter < 0 {
		retryAfter = 0
	}
	return false, retryAfter, nil
}
