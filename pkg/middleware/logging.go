package middleware

import (
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// LoggingConfig configurazione del middleware di logging.
// I body non vengono mai loggati: contengono prompt e documenti degli utenti.
type LoggingConfig struct {
	// Path esclusi (probe e metriche)
	SkipPaths []string
}

// RequestIDKey chiave per il request ID nel context
const RequestIDKey ContextKey = "request_id"

// RequestID riusa X-Request-ID del client o ne genera uno nuovo
func RequestID() fiber.Handler {
	return func(c fiber.Ctx) error {
		requestID := c.Get(fiber.HeaderXRequestID)
		if requestID == "" {
			requestID = uuid.New().String()
		}

		c.Locals(string(RequestIDKey), requestID)
		c.Set(fiber.HeaderXRequestID, requestID)

		return c.Next()
	}
}

// Logging registra una riga per richiesta, con livello scelto dallo status
func Logging(config LoggingConfig) fiber.Handler {
	skip := make(map[string]struct{}, len(config.SkipPaths))
	for _, path := range config.SkipPaths {
		skip[path] = struct{}{}
	}

	return func(c fiber.Ctx) error {
		if _, ok := skip[c.Path()]; ok {
			return c.Next()
		}

		start := time.Now()
		requestID := GetRequestID(c)

		log.Debug().
			Str("request_id", requestID).
			Str("method", c.Method()).
			Str("path", c.Path()).
			Str("user_agent", c.Get(fiber.HeaderUserAgent)).
			Msg("request started")

		err := c.Next()

		status := c.Response().StatusCode()
		event := levelFor(status).
			Str("request_id", requestID).
			Str("method", c.Method()).
			Str("path", c.Path()).
			Int("status", status).
			Dur("latency", time.Since(start)).
			Int("bytes_sent", len(c.Response().Body())).
			Str("ip", c.IP())

		// L'utente è noto solo dopo OptionalAuth
		if userID := GetUserID(c); userID != "" {
			event = event.Str("user_id", userID)
		}
		if err != nil {
			event = event.Err(err)
		}

		event.Msg("request completed")
		return err
	}
}

func levelFor(status int) *zerolog.Event {
	switch {
	case status >= fiber.StatusInternalServerError:
		return log.Error()
	case status >= fiber.StatusBadRequest:
		return log.Warn()
	default:
		return log.Info()
	}
}

// GetRequestID estrae il request ID dal context
func GetRequestID(c fiber.Ctx) string {
	requestID, _ := c.Locals(string(RequestIDKey)).(string)
	return requestID
}
