package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/biodoia/marketmind/pkg/cache"
	"github.com/biodoia/marketmind/pkg/config"
	"github.com/biodoia/marketmind/pkg/database"
	"github.com/go-resty/resty/v2"
	"github.com/spf13/cobra"
)

// DoctorCmd rappresenta il comando doctor
var DoctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Run health diagnostics",
	Long: `Run health checks on the MarketMind dependencies.

This command checks database connectivity and schema, the Redis connection
used by the distributed rate limiter and the reachability of the AI gateway.`,
	Example: `  # Run full diagnostic
  marketmind doctor

  # Check only database
  marketmind doctor --check database

  # Verbose output
  marketmind doctor --verbose`,
	RunE: runDoctor,
}

var (
	doctorCheck   string
	doctorVerbose bool
)

func init() {
	DoctorCmd.Flags().StringVar(&doctorCheck, "check", "", "Run specific check (database, redis, gateway)")
	DoctorCmd.Flags().BoolVarP(&doctorVerbose, "verbose", "v", false, "Verbose output")
}

type doctorCheckFunc func(cfg *config.Config) error

func runDoctor(cmd *cobra.Command, args []string) error {
	fmt.Println("MarketMind System Health Check")
	fmt.Println("==============================")
	fmt.Println()

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	names := []string{"database", "redis", "gateway"}
	checks := map[string]doctorCheckFunc{
		"database": checkDatabase,
		"redis":    checkRedis,
		"gateway":  checkGateway,
	}

	// Run specific check or all checks
	if doctorCheck != "" {
		if checkFunc, ok := checks[doctorCheck]; ok {
			return checkFunc(cfg)
		}
		return fmt.Errorf("unknown check: %s", doctorCheck)
	}

	// Run all checks
	results := make(map[string]bool)
	for i, name := range names {
		fmt.Printf("[%d/%d] ", i+1, len(names))
		err := checks[name](cfg)
		results[name] = err == nil
		fmt.Println()
	}

	// Print summary
	fmt.Println("Summary")
	fmt.Println("-------")
	allPassed := true
	for _, name := range names {
		status := "✓ PASS"
		if !results[name] {
			status = "✗ FAIL"
			allPassed = false
		}
		fmt.Printf("%-15s %s\n", name+":", status)
	}

	fmt.Println()
	if !allPassed {
		fmt.Println("✗ Some checks failed - please review errors above")
		return fmt.Errorf("health check failed")
	}

	fmt.Println("✓ All checks passed - system is healthy")
	return nil
}

func checkDatabase(cfg *config.Config) error {
	fmt.Println("Database Health Check")
	fmt.Println("---------------------")

	db, err := database.New(&cfg.Database)
	if err != nil {
		fmt.Printf("✗ Failed to connect: %v\n", err)
		return err
	}
	defer db.Close()

	fmt.Println("✓ Database connection established")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.Ping(ctx); err != nil {
		fmt.Printf("✗ Ping failed: %v\n", err)
		return err
	}

	fmt.Println("✓ Database ping successful")

	// Check connection stats
	if doctorVerbose {
		if sqlDB, err := db.DB.DB(); err == nil {
			stats := sqlDB.Stats()
			fmt.Printf("  Open connections: %d\n", stats.OpenConnections)
			fmt.Printf("  In use: %d\n", stats.InUse)
			fmt.Printf("  Idle: %d\n", stats.Idle)
			fmt.Printf("  Wait count: %d\n", stats.WaitCount)
		}
	}

	// Check if tables exist
	tables, err := db.MigrationStatus()
	if err != nil {
		return err
	}
	for _, table := range tables {
		if !table.Exists {
			fmt.Printf("✗ Missing table: %s - run 'marketmind migrate up'\n", table.Table)
			return fmt.Errorf("database schema incomplete")
		}
	}

	fmt.Println("✓ All required tables present")
	return nil
}

func checkRedis(cfg *config.Config) error {
	fmt.Println("Redis Health Check")
	fmt.Println("------------------")

	if cfg.Redis.Host == "" {
		fmt.Println("⚠️  Redis not configured")
		fmt.Println("   (Redis is only needed by the distributed rate limiter)")
		if cfg.RateLimit.Enabled && cfg.RateLimit.Backend == "redis" {
			return fmt.Errorf("rate_limit backend redis requires redis.host")
		}
		return nil
	}

	client, err := cache.New(cache.Config{
		Host:     cfg.Redis.Host,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		fmt.Printf("✗ %v\n", err)
		return err
	}
	defer client.Close()

	fmt.Printf("✓ Redis reachable at %s\n", cfg.Redis.Host)
	return nil
}

func checkGateway(cfg *config.Config) error {
	fmt.Println("AI Gateway Health Check")
	fmt.Println("-----------------------")

	if cfg.Gateway.APIKey == "" {
		fmt.Println("✗ API key not configured (MARKETMIND_GATEWAY_API_KEY or LOVABLE_API_KEY)")
		return fmt.Errorf("missing gateway api key")
	}
	fmt.Println("✓ API key configured")

	// Una richiesta senza body basta a verificare che l'endpoint risponda
	resp, err := resty.New().
		SetTimeout(10*time.Second).
		R().
		Head(cfg.Gateway.Endpoint)
	if err != nil {
		fmt.Printf("✗ Endpoint unreachable: %v\n", err)
		return err
	}

	fmt.Printf("✓ Endpoint reachable: %s (HTTP %d)\n", cfg.Gateway.Endpoint, resp.StatusCode())
	if doctorVerbose {
		fmt.Printf("  Model: %s\n", cfg.Gateway.Model)
		fmt.Printf("  Timeout: %s\n", cfg.Gateway.Timeout)
	}
	return nil
}
