package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// MigrateCmd rappresenta il comando migrate
var MigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage database migrations",
	Long: `Manage the database schema (knowledge documents and workflow runs).

Migrations are applied with GORM AutoMigrate, which only adds missing
tables and columns.`,
	Example: `  # Run all pending migrations
  marketmind migrate up

  # Show migration status
  marketmind migrate status

  # Reset database (drop and recreate)
  marketmind migrate reset --confirm`,
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Run pending migrations",
	Long:  `Run all pending database migrations to bring the schema up to date.`,
	Example: `  # Run migrations
  marketmind migrate up

  # Run migrations with specific config
  marketmind migrate up -c config.yaml`,
	RunE: runMigrateUp,
}

var migrateResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Reset database",
	Long:  `Drop all tables and recreate the schema. This will delete all data.`,
	Example: `  # Reset database (requires confirmation)
  marketmind migrate reset --confirm`,
	RunE: runMigrateReset,
}

var migrateStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show migration status",
	Long:  `Display the current status of database migrations.`,
	Example: `  # Show migration status
  marketmind migrate status`,
	RunE: runMigrateStatus,
}

var migrateConfirm bool

func init() {
	migrateResetCmd.Flags().BoolVar(&migrateConfirm, "confirm", false, "Confirm reset action")

	MigrateCmd.AddCommand(migrateUpCmd)
	MigrateCmd.AddCommand(migrateResetCmd)
	MigrateCmd.AddCommand(migrateStatusCmd)
}

func runMigrateUp(cmd *cobra.Command, args []string) error {
	db, err := initDB(cmd)
	if err != nil {
		return err
	}
	defer db.Close()

	fmt.Println("Running database migrations...")

	if err := db.AutoMigrate(); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	fmt.Println("✓ Migrations completed successfully")
	return nil
}

func runMigrateReset(cmd *cobra.Command, args []string) error {
	if !migrateConfirm {
		return fmt.Errorf("reset requires --confirm flag to proceed")
	}

	db, err := initDB(cmd)
	if err != nil {
		return err
	}
	defer db.Close()

	fmt.Println("⚠️  Resetting database - ALL DATA WILL BE LOST!")

	if err := db.Reset(); err != nil {
		return err
	}

	fmt.Println("✓ Database reset successfully")
	return nil
}

func runMigrateStatus(cmd *cobra.Command, args []string) error {
	db, err := initDB(cmd)
	if err != nil {
		return err
	}
	defer db.Close()

	fmt.Println("Database Migration Status")
	fmt.Println("=========================")
	fmt.Println()

	tables, err := db.MigrationStatus()
	if err != nil {
		return err
	}

	for _, table := range tables {
		status := "✗ Not created"

		if table.Exists {
			var count int64
			db.Table(table.Table).Count(&count)
			status = fmt.Sprintf("✓ Created (%d records)", count)
		}

		fmt.Printf("%-20s %s\n", table.Table+":", status)
	}

	fmt.Println()

	// Get database info
	sqlDB, err := db.DB.DB()
	if err != nil {
		return err
	}

	stats := sqlDB.Stats()
	fmt.Println("Database Connection:")
	fmt.Printf("  Open connections:   %d\n", stats.OpenConnections)
	fmt.Printf("  In use:             %d\n", stats.InUse)
	fmt.Printf("  Idle:               %d\n", stats.Idle)
	fmt.Printf("  Max open:           %d\n", stats.MaxOpenConnections)

	return nil
}
