package auth

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	// ErrInvalidToken indica che il token non è valido
	ErrInvalidToken = errors.New("invalid token")
	// ErrExpiredToken indica che il token è scaduto
	ErrExpiredToken = errors.New("token expired")
	// ErrInvalidClaims indica che i claims non sono validi
	ErrInvalidClaims = errors.New("invalid claims")
	// ErrAnonymousToken indica che il token è la chiave pubblica anonima
	ErrAnonymousToken = errors.New("anonymous token")
)

// JWTConfig configurazione JWT
type JWTConfig struct {
	SecretKey      string
	Issuer         string
	AccessDuration time.Duration
	// AnonKey è la chiave pubblica del frontend: chi la usa resta anonimo
	AnonKey string
}

// Claims rappresenta i claims JWT
type Claims struct {
	UserID string `json:"user_id,omitempty"`
	Email  string `json:"email,omitempty"`
	Role   string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// User restituisce l'id utente, dal claim user_id o in alternativa da sub
func (c *Claims) User() string {
	if c.UserID != "" {
		return c.UserID
	}
	return c.RegisteredClaims.Subject
}

// JWTManager gestisce la creazione e validazione di token JWT
type JWTManager struct {
	config JWTConfig
}

// NewJWTManager crea un nuovo JWT manager
func NewJWTManager(config JWTConfig) *JWTManager {
	// Set defaults if not provided
	if config.AccessDuration == 0 {
		config.AccessDuration = time.Hour
	}
	if config.Issuer == "" {
		config.Issuer = "marketmind"
	}

	return &JWTManager{
		config: config,
	}
}

// Enabled indica se è configurato un secret per la validazione
func (m *JWTManager) Enabled() bool {
	return m != nil && m.config.SecretKey != ""
}

// GenerateAccessToken genera un access token JWT
func (m *JWTManager) GenerateAccessToken(userID, email, role string) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID: userID,
		Email:  email,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(m.config.AccessDuration)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    m.config.Issuer,
			Subject:   userID,
			ID:        uuid.New().String(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(m.config.SecretKey))
}

// ValidateToken valida un token JWT e restituisce i claims
func (m *JWTManager) ValidateToken(tokenString string) (*Claims, error) {
	if !m.Enabled() {
		return nil, ErrInvalidToken
	}
	if m.config.AnonKey != "" && tokenString == m.config.AnonKey {
		return nil, ErrAnonymousToken
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		// Verifica che il signing method sia corretto
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return []byte(m.config.SecretKey), nil
	})

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.User() == "" {
		return nil, ErrInvalidClaims
	}

	return claims, nil
}

// UserFromAuthorization risolve l'header Authorization in un id utente.
// Header assente, token non valido o chiave anonima restituiscono "".
func (m *JWTManager) UserFromAuthorization(header string) string {
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return ""
	}

	claims, err := m.ValidateToken(strings.TrimSpace(token))
	if err != nil {
		return ""
	}
	return claims.User()
}
