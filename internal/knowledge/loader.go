// Package knowledge costruisce il contesto testuale dai documenti dell'utente.
package knowledge

import (
	"context"
	"strings"

	"github.com/biodoia/marketmind/pkg/models"
	"github.com/rs/zerolog/log"
)

const (
	header           = "\n=== KNOWLEDGE BASE ===\n"
	truncationMarker = "\n\n[... truncated ...]"
)

// Scope restringe i documenti a un workspace o a un progetto
type Scope struct {
	WorkspaceID string
	ProjectID   string
}

// DocumentSource fornisce i documenti più recenti di un utente
type DocumentSource interface {
	RecentDocuments(ctx context.Context, filter models.DocumentFilter) ([]models.Document, error)
}

// Config limiti del contesto generato
type Config struct {
	MaxDocuments     int
	PerDocumentChars int
	MaxTotalChars    int
}

// DefaultConfig restituisce i limiti di default
func DefaultConfig() Config {
	return Config{
		MaxDocuments:     5,
		PerDocumentChars: 1500,
		MaxTotalChars:    4000,
	}
}

// Loader costruisce il contesto di knowledge
type Loader struct {
	source DocumentSource
	config Config
}

// NewLoader crea un nuovo Loader. I limiti non positivi prendono il default.
func NewLoader(source DocumentSource, cfg Config) *Loader {
	def := DefaultConfig()
	if cfg.MaxDocuments <= 0 {
		cfg.MaxDocuments = def.MaxDocuments
	}
	if cfg.PerDocumentChars <= 0 {
		cfg.PerDocumentChars = def.PerDocumentChars
	}
	if cfg.MaxTotalChars <= 0 {
		cfg.MaxTotalChars = def.MaxTotalChars
	}

	return &Loader{
		source: source,
		config: cfg,
	}
}

// Load restituisce il contesto per l'utente. Un utente vuoto produce "",
// così come un errore della sorgente (loggato): il contesto è opzionale.
func (l *Loader) Load(ctx context.Context, userID string, scope Scope) (string, error) {
	if userID == "" {
		return "", nil
	}

	docs, err := l.source.RecentDocuments(ctx, models.DocumentFilter{
		UserID:      userID,
		WorkspaceID: scope.WorkspaceID,
		ProjectID:   scope.ProjectID,
		Limit:       l.config.MaxDocuments,
	})
	if err != nil {
		log.Warn().
			Err(err).
			Str("user_id", userID).
			Msg("Failed to load knowledge documents")
		return "", nil
	}

	if len(docs) == 0 {
		return "", nil
	}

	var b strings.Builder
	b.WriteString(header)
	for _, doc := range docs {
		if !doc.HasContent() {
			continue
		}
		b.WriteString("📄 ")
		b.WriteString(doc.FileName)
		b.WriteString(":\n")
		b.WriteString(cut(doc.Content, l.config.PerDocumentChars))
		b.WriteString("\n---\n")
	}

	log.Debug().
		Str("user_id", userID).
		Int("documents", len(docs)).
		Msg("Knowledge context loaded")

	return l.capTotal(b.String()), nil
}

// capTotal taglia il testo così che, marker incluso, non superi MaxTotalChars
func (l *Loader) capTotal(s string) string {
	runes := []rune(s)
	if len(runes) <= l.config.MaxTotalChars {
		return s
	}

	marker := []rune(truncationMarker)
	keep := l.config.MaxTotalChars - len(marker)
	if keep < 0 {
		return string(marker[:l.config.MaxTotalChars])
	}
	return string(runes[:keep]) + truncationMarker
}

func cut(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
