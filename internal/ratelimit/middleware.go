package ratelimit

import (
	"fmt"
	"strconv"

	"github.com/gofiber/fiber/v3"
	"github.com/rs/zerolog/log"
)

// ExceededMessage is the error body returned on 429
const ExceededMessage = "Rate limit exceeded. Please try again later."

// MiddlewareConfig represents middleware configuration
type MiddlewareConfig struct {
	// Limiter to use
	Limiter Limiter

	// KeyFunc generates the rate limit key from the request
	KeyFunc func(c fiber.Ctx) string

	// OnRateLimitExceeded is called when rate limit is exceeded
	OnRateLimitExceeded func(c fiber.Ctx, info *LimitInfo) error

	// FailOpen lets requests through when the limiter backend errors
	FailOpen bool
}

// Middleware returns a Fiber middleware for rate limiting
func Middleware(config MiddlewareConfig) fiber.Handler {
	if config.KeyFunc == nil {
		config.KeyFunc = ClientIPKey
	}

	if config.OnRateLimitExceeded == nil {
		config.OnRateLimitExceeded = DefaultRateLimitExceeded
	}

	return func(c fiber.Ctx) error {
		// Preflight requests are never counted
		if c.Method() == fiber.MethodOptions {
			return c.Next()
		}

		key := config.KeyFunc(c)

		info, err := config.Limiter.Allow(c.Context(), key)
		if err != nil {
			if config.FailOpen {
				log.Warn().Err(err).Str("key", key).Msg("Rate limit check failed, allowing request")
				return c.Next()
			}
			return fmt.Errorf("rate limit check failed: %w", err)
		}

		setRateLimitHeaders(c, info)

		if !info.Allowed {
			log.Debug().Str("key", key).Msg("Rate limit exceeded")
			return config.OnRateLimitExceeded(c, info)
		}

		return c.Next()
	}
}

// ClientIPKey keys requests by c.IP(). Forwarding headers count only when
// the app trusts the proxy that sent them (fiber TrustProxy/ProxyHeader).
func ClientIPKey(c fiber.Ctx) string {
	if ip := c.IP(); ip != "" {
		return "ip:" + ip
	}
	return "ip:unknown"
}

// DefaultRateLimitExceeded is the default handler for rate limit exceeded
func DefaultRateLimitExceeded(c fiber.Ctx, info *LimitInfo) error {
	if info.RetryAfter > 0 {
		c.Set(fiber.HeaderRetryAfter, strconv.Itoa(int(info.RetryAfter.Seconds())))
	}

	return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
		"error": ExceededMessage,
	})
}

// setRateLimitHeaders sets rate limit headers on response
func setRateLimitHeaders(c fiber.Ctx, info *LimitInfo) {
	if info.Limit > 0 {
		c.Set("X-RateLimit-Limit", strconv.FormatInt(info.Limit, 10))
	}

	if info.Remaining >= 0 {
		c.Set("X-RateLimit-Remaining", strconv.FormatInt(info.Remaining, 10))
	}

	if !info.Reset.IsZero() {
		c.Set("X-RateLimit-Reset", strconv.FormatInt(info.Reset.Unix(), 10))
	}
}
