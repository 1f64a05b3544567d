package middleware

import (
	"context"

	"github.com/biodoia/marketmind/pkg/auth"
	"github.com/gofiber/fiber/v3"
)

// ContextKey tipo per le chiavi del context
type ContextKey string

const (
	// UserIDKey chiave per l'ID utente nel context
	UserIDKey ContextKey = "user_id"
)

// OptionalAuth middleware per autenticazione opzionale.
// Un bearer valido inietta l'ID utente, altrimenti la richiesta resta anonima:
// header assente, token non valido e chiave anonima non sono mai un errore.
func OptionalAuth(manager *auth.JWTManager) fiber.Handler {
	return func(c fiber.Ctx) error {
		userID := manager.UserFromAuthorization(c.Get(fiber.HeaderAuthorization))
		if userID == "" {
			return c.Next()
		}

		c.Locals(string(UserIDKey), userID)
		c.SetContext(context.WithValue(c.Context(), UserIDKey, userID))
		c.Set("X-User-ID", userID)

		return c.Next()
	}
}

// GetUserID estrae l'ID utente, "" per le richieste anonime
func GetUserID(c fiber.Ctx) string {
	userID, _ := c.Locals(string(UserIDKey)).(string)
	return userID
}
