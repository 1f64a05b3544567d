package middleware

import (
	"fmt"
	"runtime/debug"

	"github.com/gofiber/fiber/v3"
	"github.com/rs/zerolog/log"
)

// Recovery cattura i panic di un handler, li registra con lo stack e
// risponde 500 nello stesso formato JSON degli altri errori del gateway.
func Recovery() fiber.Handler {
	return func(c fiber.Ctx) (err error) {
		defer func() {
			r := recover()
			if r == nil {
				return
			}

			event := log.Error().
				Str("request_id", GetRequestID(c)).
				Str("method", c.Method()).
				Str("path", c.Path()).
				Str("ip", c.IP()).
				Interface("panic", r).
				Bytes("stack", debug.Stack())
			if userID := GetUserID(c); userID != "" {
				event = event.Str("user_id", userID)
			}
			event.Msg("panic recovered")

			err = c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error":      "Internal Server Error",
				"details":    panicMessage(r),
				"request_id": GetRequestID(c),
			})
		}()

		return c.Next()
	}
}

func panicMessage(r any) string {
	if e, ok := r.(error); ok {
		return e.Error()
	}
	return fmt.Sprintf("%v", r)
}
