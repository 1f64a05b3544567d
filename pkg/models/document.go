package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Document rappresenta un file di knowledge caricato dall'utente.
// Content contiene il testo già estratto (OCR/parsing avvengono altrove).
type Document struct {
	ID          uuid.UUID `json:"id" gorm:"type:uuid;primary_key"`
	UserID      string    `json:"user_id" gorm:"not null;index"`
	WorkspaceID *string   `json:"workspace_id,omitempty" gorm:"index"`
	ProjectID   *string   `json:"project_id,omitempty" gorm:"index"`

	FileName string `json:"file_name" gorm:"not null"`
	FileType string `json:"file_type"`
	Content  string `json:"content"`

	CreatedAt time.Time `json:"created_at" gorm:"index"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BeforeCreate hook
func (d *Document) BeforeCreate(tx *gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return nil
}

// HasContent indica se il documento ha testo utilizzabile
func (d *Document) HasContent() bool {
	return d.Content != ""
}

// TableName specifica il nome della tabella
func (Document) TableName() string {
	return "documents"
}

// DocumentFilter seleziona i documenti recenti di un utente.
// ProjectID ha precedenza su WorkspaceID.
type DocumentFilter struct {
	UserID      string
	WorkspaceID string
	ProjectID   string
	Limit       int
}
