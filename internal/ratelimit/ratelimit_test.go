package ratelimit

import (
	"context"
	"fmt"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/biodoia/marketmind/pkg/cache"
	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(limit int64) Config {
	cfg := DefaultConfig()
	cfg.Limit = limit
	return cfg
}

func TestMemoryLimiter_Allow(t *testing.T) {
	limiter := NewMemoryLimiter(testConfig(3))
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		info, err := limiter.Allow(ctx, "ip:1.2.3.4")
		require.NoError(t, err)
		assert.True(t, info.Allowed, "request %d", i)
		assert.Equal(t, int64(3), info.Limit)
		assert.Equal(t, int64(2-i), info.Remaining)
	}

	info, err := limiter.Allow(ctx, "ip:1.2.3.4")
	require.NoError(t, err)
	assert.False(t, info.Allowed)
	assert.Zero(t, info.Remaining)
	assert.GreaterOrEqual(t, info.RetryAfter, time.Second)

	// Keys are independent
	info, err = limiter.Allow(ctx, "ip:5.6.7.8")
	require.NoError(t, err)
	assert.True(t, info.Allowed)
}

func TestMemoryLimiter_Refill(t *testing.T) {
	limiter := NewMemoryLimiter(testConfig(30))
	now := time.Now()
	limiter.now = func() time.Time { return now }
	ctx := context.Background()

	for i := 0; i < 30; i++ {
		info, _ := limiter.Allow(ctx, "k")
		require.True(t, info.Allowed)
	}
	info, _ := limiter.Allow(ctx, "k")
	require.False(t, info.Allowed)

	// 30 per hour: one token every two minutes
	now = now.Add(3 * time.Minute)
	info, _ = limiter.Allow(ctx, "k")
	assert.True(t, info.Allowed)

	info, _ = limiter.Allow(ctx, "k")
	assert.False(t, info.Allowed)
}

func TestMemoryLimiter_ResetAndCleanup(t *testing.T) {
	limiter := NewMemoryLimiter(testConfig(1))
	now := time.Now()
	limiter.now = func() time.Time { return now }
	ctx := context.Background()

	_, _ = limiter.Allow(ctx, "a")
	info, _ := limiter.Allow(ctx, "a")
	require.False(t, info.Allowed)

	require.NoError(t, limiter.Reset(ctx, "a"))
	info, _ = limiter.Allow(ctx, "a")
	assert.True(t, info.Allowed)

	_, _ = limiter.Allow(ctx, "b")
	assert.Equal(t, 2, limiter.Len())

	now = now.Add(2 * time.Hour)
	assert.Equal(t, 2, limiter.Cleanup())
	assert.Zero(t, limiter.Len())
}

func TestNewLimiter(t *testing.T) {
	l, err := NewLimiter(Config{}, nil)
	require.NoError(t, err)
	assert.IsType(t, &MemoryLimiter{}, l)

	_, err = NewLimiter(Config{Backend: BackendRedis}, nil)
	assert.Error(t, err)

	_, err = NewLimiter(Config{Backend: "etcd"}, nil)
	assert.Error(t, err)
}

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *cache.RedisClient) {
	mr := miniredis.RunT(t)

	client, err := cache.NewRedisClient(mr.Addr(), "", 0)
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	return mr, client
}

func newTestDistributedLimiter(t *testing.T, limit int64) (*DistributedLimiter, *miniredis.Miniredis, *time.Time) {
	mr, client := setupTestRedis(t)

	cfg := testConfig(limit)
	cfg.Backend = BackendRedis
	cfg.KeyPrefix = "test:" + uuid.New().String()

	limiter := NewDistributedLimiter(cfg, client)
	now := time.Date(2026, 3, 1, 10, 15, 0, 0, time.UTC)
	limiter.now = func() time.Time { return now }

	return limiter, mr, &now
}

func TestDistributedLimiter(t *testing.T) {
	limiter, _, now := newTestDistributedLimiter(t, 2)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		info, err := limiter.Allow(ctx, "ip:10.0.0.1")
		require.NoError(t, err)
		assert.True(t, info.Allowed)
		assert.Equal(t, int64(2), info.Limit)
		assert.Equal(t, int64(1-i), info.Remaining)
		assert.Zero(t, info.RetryAfter)
	}

	info, err := limiter.Allow(ctx, "ip:10.0.0.1")
	require.NoError(t, err)
	assert.False(t, info.Allowed)
	assert.Zero(t, info.Remaining)
	// Window of one hour started at 10:00, we are at 10:15
	assert.Equal(t, 45*time.Minute, info.RetryAfter)
	assert.Equal(t, now.Truncate(time.Hour).Add(time.Hour), info.Reset)

	// Other keys have their own window
	info, err = limiter.Allow(ctx, "ip:10.0.0.2")
	require.NoError(t, err)
	assert.True(t, info.Allowed)

	require.NoError(t, limiter.Reset(ctx, "ip:10.0.0.1"))
	info, err = limiter.Allow(ctx, "ip:10.0.0.1")
	require.NoError(t, err)
	assert.True(t, info.Allowed)
}

func TestDistributedLimiter_WindowRollover(t *testing.T) {
	limiter, mr, now := newTestDistributedLimiter(t, 1)
	ctx := context.Background()

	info, err := limiter.Allow(ctx, "k")
	require.NoError(t, err)
	require.True(t, info.Allowed)

	info, err = limiter.Allow(ctx, "k")
	require.NoError(t, err)
	require.False(t, info.Allowed)

	// The counter expires with its window
	windowKey := limiter.windowKey("k", now.Truncate(time.Hour))
	assert.True(t, mr.Exists(windowKey))
	assert.Greater(t, mr.TTL(windowKey), 45*time.Minute)

	*now = now.Add(time.Hour)
	info, err = limiter.Allow(ctx, "k")
	require.NoError(t, err)
	assert.True(t, info.Allowed)
	assert.Zero(t, info.Remaining)

	mr.FastForward(2 * time.Hour)
	assert.False(t, mr.Exists(windowKey))
}

func TestDistributedLimiter_SharedAcrossReplicas(t *testing.T) {
	mr, first := setupTestRedis(t)
	second, err := cache.NewRedisClient(mr.Addr(), "", 0)
	require.NoError(t, err)
	t.Cleanup(func() { second.Close() })

	cfg := testConfig(2)
	cfg.Backend = BackendRedis

	now := time.Date(2026, 3, 1, 10, 15, 0, 0, time.UTC)
	replica := func(client *cache.RedisClient) *DistributedLimiter {
		l, err := NewLimiter(cfg, client)
		require.NoError(t, err)
		require.IsType(t, &DistributedLimiter{}, l)
		d := l.(*DistributedLimiter)
		d.now = func() time.Time { return now }
		return d
	}
	a, b := replica(first), replica(second)
	ctx := context.Background()

	info, err := a.Allow(ctx, "ip:203.0.113.7")
	require.NoError(t, err)
	assert.True(t, info.Allowed)

	info, err = b.Allow(ctx, "ip:203.0.113.7")
	require.NoError(t, err)
	assert.True(t, info.Allowed)

	info, err = a.Allow(ctx, "ip:203.0.113.7")
	require.NoError(t, err)
	assert.False(t, info.Allowed)
}

func TestDistributedLimiter_BackendDown(t *testing.T) {
	limiter, mr, _ := newTestDistributedLimiter(t, 2)
	mr.Close()

	_, err := limiter.Allow(context.Background(), "k")
	assert.Error(t, err)
}

func TestParseWindowReply(t *testing.T) {
	tests := []struct {
		name    string
		reply   interface{}
		allowed bool
		current int64
		wantErr bool
	}{
		{"allowed", []interface{}{int64(1), int64(3)}, true, 3, false},
		{"denied", []interface{}{int64(0), int64(30)}, false, 30, false},
		{"not a list", "OK", false, 0, true},
		{"short list", []interface{}{int64(1)}, false, 0, true},
		{"string flag", []interface{}{"1", int64(3)}, false, 0, true},
		{"nil counter", []interface{}{int64(1), nil}, false, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			allowed, current, err := parseWindowReply(tt.reply)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.allowed, allowed)
			assert.Equal(t, tt.current, current)
		})
	}
}

func TestMiddleware_RedisBackend(t *testing.T) {
	limiter, _, _ := newTestDistributedLimiter(t, 1)

	app := fiber.New()
	app.Use(Middleware(MiddlewareConfig{Limiter: limiter}))
	app.Post("/", func(c fiber.Ctx) error { return c.SendString("ok") })

	resp, err := app.Test(httptest.NewRequest(fiber.MethodPost, "/", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "1", resp.Header.Get("X-RateLimit-Limit"))
	assert.Equal(t, "0", resp.Header.Get("X-RateLimit-Remaining"))

	resp, err = app.Test(httptest.NewRequest(fiber.MethodPost, "/", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, "2700", resp.Header.Get(fiber.HeaderRetryAfter))
}

func TestMiddleware(t *testing.T) {
	app := fiber.New()
	app.Use(Middleware(MiddlewareConfig{Limiter: NewMemoryLimiter(testConfig(2))}))
	app.Post("/", func(c fiber.Ctx) error {
		return c.SendString("ok")
	})

	send := func() (int, string) {
		resp, err := app.Test(httptest.NewRequest(fiber.MethodPost, "/", nil))
		require.NoError(t, err)
		return resp.StatusCode, resp.Header.Get(fiber.HeaderRetryAfter)
	}

	for i := 0; i < 2; i++ {
		status, _ := send()
		assert.Equal(t, fiber.StatusOK, status)
	}

	status, retryAfter := send()
	assert.Equal(t, fiber.StatusTooManyRequests, status)
	assert.NotEmpty(t, retryAfter)

	// Preflight requests are not counted
	resp, err := app.Test(httptest.NewRequest(fiber.MethodOptions, "/", nil))
	require.NoError(t, err)
	assert.NotEqual(t, fiber.StatusTooManyRequests, resp.StatusCode)
}

func TestMiddleware_IgnoresSpoofedForwardingHeaders(t *testing.T) {
	app := fiber.New()
	app.Use(Middleware(MiddlewareConfig{Limiter: NewMemoryLimiter(testConfig(2))}))
	app.Post("/", func(c fiber.Ctx) error {
		return c.SendString("ok")
	})

	allowed := 0
	for i := 0; i < 10; i++ {
		req := httptest.NewRequest(fiber.MethodPost, "/", nil)
		req.Header.Set(fiber.HeaderXForwardedFor, fmt.Sprintf("10.0.0.%d", i))
		req.Header.Set("X-Real-IP", fmt.Sprintf("192.0.2.%d", i))
		resp, err := app.Test(req)
		require.NoError(t, err)
		if resp.StatusCode == fiber.StatusOK {
			allowed++
		}
	}

	assert.Equal(t, 2, allowed)
}

func TestMiddleware_CustomKey(t *testing.T) {
	app := fiber.New()
	app.Use(Middleware(MiddlewareConfig{
		Limiter: NewMemoryLimiter(testConfig(1)),
		KeyFunc: func(c fiber.Ctx) string { return "tenant:" + c.Get("X-Tenant") },
	}))
	app.Get("/", func(c fiber.Ctx) error { return c.SendString("ok") })

	send := func(tenant string) int {
		req := httptest.NewRequest(fiber.MethodGet, "/", nil)
		req.Header.Set("X-Tenant", tenant)
		resp, err := app.Test(req)
		require.NoError(t, err)
		return resp.StatusCode
	}

	assert.Equal(t, fiber.StatusOK, send("a"))
	assert.Equal(t, fiber.StatusTooManyRequests, send("a"))
	assert.Equal(t, fiber.StatusOK, send("b"))
}

type failingLimiter struct{}

func (failingLimiter) Allow(context.Context, string) (*LimitInfo, error) {
	return nil, fmt.Errorf("redis: connection refused")
}

func (failingLimiter) Reset(context.Context, string) error { return nil }

func TestMiddleware_FailOpen(t *testing.T) {
	app := fiber.New()
	app.Use(Middleware(MiddlewareConfig{Limiter: failingLimiter{}, FailOpen: true}))
	app.Get("/", func(c fiber.Ctx) error { return c.SendString("ok") })

	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}
