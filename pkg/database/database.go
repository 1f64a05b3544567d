package database

import (
	"context"
	"fmt"
	"time"

	"github.com/biodoia/marketmind/pkg/models"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Config contiene la configurazione del database
type Config struct {
	Type       string `yaml:"type" mapstructure:"type"`             // "postgres" or "sqlite"
	Connection string `yaml:"connection" mapstructure:"connection"` // Connection string
	MaxConns   int    `yaml:"max_conns" mapstructure:"max_conns"`
	LogLevel   string `yaml:"log_level" mapstructure:"log_level"`
}

// DB wrappa la connessione GORM
type DB struct {
	*gorm.DB
}

// New crea una nuova connessione al database
func New(cfg *Config) (*DB, error) {
	var dialector gorm.Dialector

	switch cfg.Type {
	case "postgres":
		dialector = postgres.Open(cfg.Connection)
	case "sqlite":
		dialector = sqlite.Open(cfg.Connection)
	default:
		return nil, fmt.Errorf("unsupported database type: %s", cfg.Type)
	}

	// Configure logger
	logLevel := logger.Silent
	switch cfg.LogLevel {
	case "info":
		logLevel = logger.Info
	case "warn":
		logLevel = logger.Warn
	case "error":
		logLevel = logger.Error
	}

	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	}

	db, err := gorm.Open(dialector, gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Configure connection pool
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}

	if cfg.MaxConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxConns)
		sqlDB.SetMaxIdleConns(cfg.MaxConns / 2)
	}
	sqlDB.SetConnMaxLifetime(time.Hour)

	return &DB{DB: db}, nil
}

// migratedModels elenca i modelli gestiti da AutoMigrate
func migratedModels() []interface{} {
	return []interface{}{
		&models.Document{},
		&models.WorkflowRun{},
	}
}

// AutoMigrate esegue le migrazioni del database
func (db *DB) AutoMigrate() error {
	return db.DB.AutoMigrate(migratedModels()...)
}

// Reset elimina le tabelle gestite e ricrea lo schema. Tutti i dati vanno persi.
func (db *DB) Reset() error {
	if err := db.Migrator().DropTable(migratedModels()...); err != nil {
		return fmt.Errorf("failed to drop tables: %w", err)
	}
	return db.AutoMigrate()
}

// TableStatus riporta se la tabella di un modello esiste
type TableStatus struct {
	Table  string
	Exists bool
}

// MigrationStatus restituisce lo stato delle tabelle gestite
func (db *DB) MigrationStatus() ([]TableStatus, error) {
	migrator := db.Migrator()
	out := make([]TableStatus, 0, 2)

	for _, m := range migratedModels() {
		stmt := &gorm.Statement{DB: db.DB}
		if err := stmt.Parse(m); err != nil {
			return nil, fmt.Errorf("failed to parse model: %w", err)
		}
		out = append(out, TableStatus{
			Table:  stmt.Schema.Table,
			Exists: migrator.HasTable(m),
		})
	}

	return out, nil
}

// Ping verifica la connessione
func (db *DB) Ping(ctx context.Context) error {
	sqlDB, err := db.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close chiude la connessione al database
func (db *DB) Close() error {
	sqlDB, err := db.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// RecentDocuments restituisce i documenti più recenti di un utente.
// Il filtro per progetto ha precedenza su quello per workspace.
func (db *DB) RecentDocuments(ctx context.Context, filter models.DocumentFilter) ([]models.Document, error) {
	query := db.WithContext(ctx).
		Where("user_id = ?", filter.UserID)

	if filter.ProjectID != "" {
		query = query.Where("project_id = ?", filter.ProjectID)
	} else if filter.WorkspaceID != "" {
		query = query.Where("workspace_id = ?", filter.WorkspaceID)
	}

	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}

	var docs []models.Document
	err := query.Order("created_at DESC").Find(&docs).Error
	return docs, err
}

// CreateDocument inserisce un documento di knowledge
func (db *DB) CreateDocument(ctx context.Context, doc *models.Document) error {
	return db.WithContext(ctx).Create(doc).Error
}

// CreateWorkflowRuns inserisce un batch di run
func (db *DB) CreateWorkflowRuns(ctx context.Context, runs []*models.WorkflowRun) error {
	if len(runs) == 0 {
		return nil
	}
	return db.WithContext(ctx).CreateInBatches(runs, 100).Error
}

// GetWorkflowRun ottiene un run per ID
func (db *DB) GetWorkflowRun(ctx context.Context, id string) (*models.WorkflowRun, error) {
	var run models.WorkflowRun
	err := db.WithContext(ctx).Where("id = ?", id).First(&run).Error
	return &run, err
}

// RecentWorkflowRuns restituisce i run più recenti, opzionalmente di un solo utente
func (db *DB) RecentWorkflowRuns(ctx context.Context, userID string, limit int) ([]models.WorkflowRun, error) {
	query := db.WithContext(ctx).Order("created_at DESC")
	if userID != "" {
		query = query.Where("user_id = ?", userID)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}

	var runs []models.WorkflowRun
	err := query.Find(&runs).Error
	return runs, err
}
