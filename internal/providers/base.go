package providers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// Ruoli dei messaggi supportati dall'endpoint di completion
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

var (
	// ErrEmptyResponse indica che l'endpoint ha risposto con successo ma senza contenuto utilizzabile
	ErrEmptyResponse = errors.New("empty response from completion endpoint")

	// ErrMissingAPIKey indica che la chiave per il gateway non è configurata
	ErrMissingAPIKey = errors.New("completion API key is not configured")
)

// Message rappresenta un messaggio nella conversazione
type Message struct {
	Role    string `json:"role"` // system, user, assistant
	Content string `json:"content"`
}

// Completer è il contratto minimo verso un endpoint di chat completion.
// Nessun retry interno: è il chiamante a decidere se un errore è fatale.
type Completer interface {
	Complete(ctx context.Context, messages []Message, model string) (string, error)
}

// CompleterFunc adatta una funzione all'interfaccia Completer
type CompleterFunc func(ctx context.Context, messages []Message, model string) (string, error)

// Complete implementa Completer
func (f CompleterFunc) Complete(ctx context.Context, messages []Message, model string) (string, error) {
	return f(ctx, messages, model)
}

// UpstreamError è restituito quando l'endpoint risponde con uno status non 2xx
type UpstreamError struct {
	StatusCode int
	Body       string
}

// Error implementa l'interfaccia error
func (e *UpstreamError) Error() string {
	return fmt.Sprintf("AI error: %d", e.StatusCode)
}

// IsRateLimited indica un 429 dal gateway
func (e *UpstreamError) IsRateLimited() bool {
	return e.StatusCode == http.StatusTooManyRequests
}

// IsPaymentRequired indica un 402 (crediti esauriti)
func (e *UpstreamError) IsPaymentRequired() bool {
	return e.StatusCode == http.StatusPaymentRequired
}

// AsUpstreamError estrae un *UpstreamError dalla catena di errori
func AsUpstreamError(err error) (*UpstreamError, bool) {
	var upstream *UpstreamError
	if errors.As(err, &upstream) {
		return upstream, true
	}
	return nil, false
}
