package middleware

import (
	"slices"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v3"
)

// CORSConfig configurazione CORS.
// Il token viaggia nell'header Authorization, quindi niente credenziali/cookie.
type CORSConfig struct {
	// AllowedOrigins origin permessi: "*" li permette tutti,
	// "*.example.com" ogni sottodominio
	AllowedOrigins []string
	AllowedMethods []string
	AllowedHeaders []string
	ExposedHeaders []string

	// MaxAge cache delle preflight in secondi
	MaxAge int
}

// DefaultCORSConfig configurazione CORS di default: gli header sono quelli
// inviati dai client web (Authorization, X-Client-Info, Apikey)
func DefaultCORSConfig() CORSConfig {
	return CORSConfig{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{
			fiber.MethodGet,
			fiber.MethodPost,
			fiber.MethodOptions,
		},
		AllowedHeaders: []string{
			fiber.HeaderAuthorization,
			"X-Client-Info",
			"Apikey",
			fiber.HeaderContentType,
			fiber.HeaderXRequestID,
		},
		ExposedHeaders: []string{
			fiber.HeaderXRequestID,
			fiber.HeaderRetryAfter,
			"X-RateLimit-Limit",
			"X-RateLimit-Remaining",
			"X-RateLimit-Reset",
		},
		MaxAge: 86400, // 24 ore
	}
}

// CORSWithConfig crea il middleware CORS; i campi vuoti prendono il default
func CORSWithConfig(config CORSConfig) fiber.Handler {
	def := DefaultCORSConfig()
	if len(config.AllowedOrigins) == 0 {
		config.AllowedOrigins = def.AllowedOrigins
	}
	if len(config.AllowedMethods) == 0 {
		config.AllowedMethods = def.AllowedMethods
	}
	if len(config.AllowedHeaders) == 0 {
		config.AllowedHeaders = def.AllowedHeaders
	}
	if len(config.ExposedHeaders) == 0 {
		config.ExposedHeaders = def.ExposedHeaders
	}
	if config.MaxAge == 0 {
		config.MaxAge = def.MaxAge
	}

	return CORS(config)
}

// CORS middleware per le richieste cross-origin
func CORS(config CORSConfig) fiber.Handler {
	anyOrigin := slices.Contains(config.AllowedOrigins, "*")
	allowMethods := strings.Join(config.AllowedMethods, ", ")
	allowHeaders := strings.Join(config.AllowedHeaders, ", ")
	exposeHeaders := strings.Join(config.ExposedHeaders, ", ")
	maxAge := strconv.Itoa(config.MaxAge)

	return func(c fiber.Ctx) error {
		origin := c.Get(fiber.HeaderOrigin)
		if origin == "" {
			return c.Next()
		}

		if !anyOrigin && !originAllowed(config.AllowedOrigins, origin) {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "origin not allowed",
			})
		}

		if anyOrigin {
			c.Set(fiber.HeaderAccessControlAllowOrigin, "*")
		} else {
			c.Set(fiber.HeaderAccessControlAllowOrigin, origin)
			c.Vary(fiber.HeaderOrigin)
		}

		// Preflight
		if c.Method() == fiber.MethodOptions {
			c.Set(fiber.HeaderAccessControlAllowMethods, allowMethods)
			c.Set(fiber.HeaderAccessControlAllowHeaders, allowHeaders)
			if config.MaxAge > 0 {
				c.Set(fiber.HeaderAccessControlMaxAge, maxAge)
			}
			return c.SendStatus(fiber.StatusNoContent)
		}

		if exposeHeaders != "" {
			c.Set(fiber.HeaderAccessControlExposeHeaders, exposeHeaders)
		}

		return c.Next()
	}
}

func originAllowed(allowed []string, origin string) bool {
	for _, candidate := range allowed {
		if candidate == origin {
			return true
		}
		// *.example.com
		if suffix, ok := strings.CutPrefix(candidate, "*"); ok && strings.HasPrefix(suffix, ".") {
			if strings.HasSuffix(origin, suffix) {
				return true
			}
		}
	}
	return false
}
