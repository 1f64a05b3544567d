package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/biodoia/marketmind/pkg/cache"
	"github.com/redis/go-redis/v9"
)

// fixedWindowScript atomically checks and increments the window counter
var fixedWindowScript = redis.NewScript(`
	local key = KEYS[1]
	local limit = tonumber(ARGV[1])
	local requested = tonumber(ARGV[2])
	local ttl = tonumber(ARGV[3])

	local current = tonumber(redis.call('GET', key)) or 0
	local allowed = current + requested <= limit

	if allowed then
		current = redis.call('INCRBY', key, requested)
		redis.call('EXPIRE', key, ttl)
	end

	return {allowed and 1 or 0, current}
`)

// DistributedLimiter implements a fixed window limiter in Redis, shared
// by every replica of the service
type DistributedLimiter struct {
	config Config
	redis  *cache.RedisClient
	now    func() time.Time
}

// NewDistributedLimiter creates a new distributed limiter
func NewDistributedLimiter(config Config, redisClient *cache.RedisClient) *DistributedLimiter {
	return &DistributedLimiter{
		config: config,
		redis:  redisClient,
		now:    time.Now,
	}
}

// Allow checks if a request is allowed
func (d *DistributedLimiter) Allow(ctx context.Context, key string) (*LimitInfo, error) {
	now := d.now()
	windowStart := now.Truncate(d.config.Window)
	keyStr := d.windowKey(key, windowStart)

	ttl := int(d.config.Window.Seconds()) + 1

	result, err := fixedWindowScript.Run(ctx, d.redis.Client(), []string{keyStr},
		d.config.Limit,
		1,
		ttl,
	).Result()
	if err != nil {
		return nil, fmt.Errorf("fixed window script failed: %w", err)
	}

	allowed, current, err := parseWindowReply(result)
	if err != nil {
		return nil, err
	}

	remaining := d.config.Limit - current
	if remaining < 0 {
		remaining = 0
	}

	reset := windowStart.Add(d.config.Window)

	var retryAfter time.Duration
	if !allowed {
		retryAfter = reset.Sub(now)
		if retryAfter < time.Second {
			retryAfter = time.Second
		}
	}

	return &LimitInfo{
		Allowed:    allowed,
		Limit:      d.config.Limit,
		Remaining:  remaining,
		Reset:      reset,
		RetryAfter: retryAfter,
	}, nil
}

// parseWindowReply decodes the {allowed, current} pair returned by the script
func parseWindowReply(result interface{}) (bool, int64, error) {
	values, ok := result.([]interface{})
	if !ok || len(values) != 2 {
		return false, 0, fmt.Errorf("unexpected fixed window result: %v", result)
	}

	allowed, ok := values[0].(int64)
	if !ok {
		return false, 0, fmt.Errorf("unexpected fixed window allowed flag: %v", values[0])
	}
	current, ok := values[1].(int64)
	if !ok {
		return false, 0, fmt.Errorf("unexpected fixed window counter: %v", values[1])
	}

	return allowed == 1, current, nil
}

// Reset resets the current window of a key
func (d *DistributedLimiter) Reset(ctx context.Context, key string) error {
	windowStart := d.now().Truncate(d.config.Window)
	return d.redis.Del(ctx, d.windowKey(key, windowStart))
}

func (d *DistributedLimiter) windowKey(key string, windowStart time.Time) string {
	return d.config.KeyPrefix + ":" + key + ":" + strconv.FormatInt(windowStart.Unix(), 10)
}
