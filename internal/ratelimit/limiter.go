package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/biodoia/marketmind/pkg/cache"
)

// Backend identifies where limiter state lives
type Backend string

const (
	// BackendMemory keeps counters in-process. State is lost on restart and
	// is not shared between replicas.
	BackendMemory Backend = "memory"

	// BackendRedis keeps counters in Redis, shared by every replica
	BackendRedis Backend = "redis"
)

// Default limits for the multi-agent endpoint
const (
	DefaultLimit  = 30
	DefaultWindow = time.Hour
)

// Config represents rate limit configuration
type Config struct {
	// Backend to use
	Backend Backend

	// Rate limit (requests per window)
	Limit int64

	// Window duration
	Window time.Duration

	// Key prefix for Redis
	KeyPrefix string
}

// DefaultConfig returns the per-IP policy: 30 requests per hour
func DefaultConfig() Config {
	return Config{
		Backend:   BackendMemory,
		Limit:     DefaultLimit,
		Window:    DefaultWindow,
		KeyPrefix: "marketmind:ratelimit",
	}
}

// LimitInfo contains information about current limit state
type LimitInfo struct {
	// Allowed indicates if the request is allowed
	Allowed bool

	// Limit is the maximum number of requests allowed
	Limit int64

	// Remaining is the number of requests remaining
	Remaining int64

	// Reset is when the limit will reset
	Reset time.Time

	// RetryAfter is how long to wait before retrying (if not allowed)
	RetryAfter time.Duration
}

// Limiter is the rate limiter interface. Implementations are safe for concurrent use.
type Limiter interface {
	// Allow consumes one request for key and reports whether it is allowed
	Allow(ctx context.Context, key string) (*LimitInfo, error)

	// Reset clears the state of key
	Reset(ctx context.Context, key string) error
}

// NewLimiter creates the limiter for the configured backend
func NewLimiter(config Config, redisClient *cache.RedisClient) (Limiter, error) {
	if config.Limit <= 0 {
		config.Limit = DefaultLimit
	}
	if config.Window <= 0 {
		config.Window = DefaultWindow
	}

	switch config.Backend {
	case BackendMemory, "":
		return NewMemoryLimiter(config), nil
	case BackendRedis:
		if redisClient == nil {
			return nil, fmt.Errorf("redis backend requires a redis client")
		}
		return NewDistributedLimiter(config, redisClient), nil
	default:
		return nil, fmt.Errorf("unknown rate limit backend: %s", config.Backend)
	}
}
