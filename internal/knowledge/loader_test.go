package knowledge

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/biodoia/marketmind/pkg/database"
	"github.com/biodoia/marketmind/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	docs   []models.Document
	err    error
	filter models.DocumentFilter
	calls  int
}

func (f *fakeSource) RecentDocuments(_ context.Context, filter models.DocumentFilter) ([]models.Document, error) {
	f.calls++
	f.filter = filter
	return f.docs, f.err
}

func setupTestDB(t *testing.T) *database.DB {
	db, err := database.New(&database.Config{
		Type:       "sqlite",
		Connection: ":memory:",
		LogLevel:   "silent",
	})
	require.NoError(t, err)

	sqlDB, err := db.DB.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate())
	t.Cleanup(func() { db.Close() })
	return db
}

func TestLoader_AnonymousUser(t *testing.T) {
	source := &fakeSource{docs: []models.Document{{FileName: "a", Content: "x"}}}
	loader := NewLoader(source, DefaultConfig())

	text, err := loader.Load(context.Background(), "", Scope{WorkspaceID: "ws"})
	require.NoError(t, err)
	assert.Empty(t, text)
	assert.Zero(t, source.calls)
}

func TestLoader_Format(t *testing.T) {
	source := &fakeSource{docs: []models.Document{
		{FileName: "pricing.xlsx", Content: "SAR 120 per unit"},
		{FileName: "empty.pdf"},
		{FileName: "notes.txt", Content: "Competitor opened in Dammam"},
	}}
	loader := NewLoader(source, DefaultConfig())

	text, err := loader.Load(context.Background(), "user-1", Scope{ProjectID: "p-1"})
	require.NoError(t, err)

	assert.Equal(t,
		"\n=== KNOWLEDGE BASE ===\n"+
			"📄 pricing.xlsx:\nSAR 120 per unit\n---\n"+
			"📄 notes.txt:\nCompetitor opened in Dammam\n---\n",
		text)

	assert.Equal(t, models.DocumentFilter{UserID: "user-1", ProjectID: "p-1", Limit: 5}, source.filter)
}

func TestLoader_NoDocuments(t *testing.T) {
	loader := NewLoader(&fakeSource{}, DefaultConfig())

	text, err := loader.Load(context.Background(), "user-1", Scope{})
	require.NoError(t, err)
	assert.Empty(t, text)
}

func TestLoader_SourceErrorDegrades(t *testing.T) {
	loader := NewLoader(&fakeSource{err: errors.New("connection refused")}, DefaultConfig())

	text, err := loader.Load(context.Background(), "user-1", Scope{})
	assert.NoError(t, err)
	assert.Empty(t, text)
}

func TestLoader_PerDocumentCap(t *testing.T) {
	source := &fakeSource{docs: []models.Document{
		{FileName: "big.txt", Content: strings.Repeat("a", 1500) + "HIDDEN"},
	}}
	loader := NewLoader(source, DefaultConfig())

	text, err := loader.Load(context.Background(), "user-1", Scope{})
	require.NoError(t, err)
	assert.Contains(t, text, strings.Repeat("a", 1500)+"\n---\n")
	assert.NotContains(t, text, "HIDDEN")
}

func TestLoader_TotalCap(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	// 10.000 caratteri di testo distribuiti su cinque documenti
	for i := 0; i < 5; i++ {
		require.NoError(t, db.CreateDocument(ctx, &models.Document{
			UserID:   "user-1",
			FileName: "report.txt",
			Content:  strings.Repeat("x", 2000),
		}))
	}

	loader := NewLoader(db, DefaultConfig())
	text, err := loader.Load(ctx, "user-1", Scope{})
	require.NoError(t, err)

	assert.LessOrEqual(t, utf8.RuneCountInString(text), 4000)
	assert.True(t, strings.HasSuffix(text, truncationMarker))
	assert.True(t, strings.HasPrefix(text, header))
}

func TestLoader_CapIsRuneSafe(t *testing.T) {
	source := &fakeSource{docs: []models.Document{
		{FileName: "ar.txt", Content: strings.Repeat("سوق", 400)},
		{FileName: "ar2.txt", Content: strings.Repeat("سوق", 400)},
		{FileName: "ar3.txt", Content: strings.Repeat("سوق", 400)},
	}}
	loader := NewLoader(source, Config{MaxTotalChars: 1000})

	text, err := loader.Load(context.Background(), "user-1", Scope{})
	require.NoError(t, err)

	assert.True(t, utf8.ValidString(text))
	assert.Equal(t, 1000, utf8.RuneCountInString(text))
	assert.True(t, strings.HasSuffix(text, truncationMarker))
}

func TestNewLoader_Defaults(t *testing.T) {
	loader := NewLoader(&fakeSource{}, Config{MaxDocuments: 3})

	assert.Equal(t, 3, loader.config.MaxDocuments)
	assert.Equal(t, 1500, loader.config.PerDocumentChars)
	assert.Equal(t, 4000, loader.config.MaxTotalChars)
}
