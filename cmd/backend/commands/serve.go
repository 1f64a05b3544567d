package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/biodoia/marketmind/internal/gateway"
	"github.com/biodoia/marketmind/internal/ratelimit"
	"github.com/biodoia/marketmind/pkg/auth"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	devMode     bool
	verbose     bool
	autoMigrate bool
)

// ServeCmd rappresenta il comando serve
var ServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MarketMind multi-agent server",
	Long: `Start the MarketMind HTTP server.

The server exposes the multi-agent endpoint (agent catalog, single agent
chat, autonomous workflows, suggested questions), the workflow run history,
health and readiness probes and Prometheus metrics.`,
	Example: `  # Start server with default settings
  marketmind serve

  # Start in development mode with verbose logging
  marketmind serve --dev --verbose

  # Start with custom config
  marketmind serve -c /path/to/config.yaml`,
	RunE: runServe,
}

func init() {
	ServeCmd.Flags().BoolVar(&devMode, "dev", false, "Enable development mode (pretty logging)")
	ServeCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging (debug level)")
	ServeCmd.Flags().BoolVar(&autoMigrate, "migrate", true, "Auto-run database migrations on startup")
}

func runServe(cmd *cobra.Command, args []string) error {
	// Setup logger
	setupLogger(verbose, devMode)

	log.Info().Msg("🚀 Starting MarketMind")

	// Load configuration
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	applyLogConfig(cfg, verbose, devMode)

	log.Info().
		Str("host", cfg.Server.Host).
		Int("port", cfg.Server.Port).
		Str("model", cfg.Gateway.Model).
		Bool("dev_mode", devMode).
		Msg("Configuration loaded")

	svc, err := newServices(cfg, autoMigrate)
	if err != nil {
		return err
	}
	defer svc.Close()

	log.Info().
		Str("type", cfg.Database.Type).
		Msg("Database connected")

	limiter, err := svc.newLimiter(cfg)
	if err != nil {
		return fmt.Errorf("failed to create rate limiter: %w", err)
	}
	if memory, ok := limiter.(*ratelimit.MemoryLimiter); ok {
		memory.Start(10 * time.Minute)
		defer memory.Stop()
	}

	deps := gateway.Deps{
		Orchestrator: svc.orchestrator,
		JWT: auth.NewJWTManager(auth.JWTConfig{
			SecretKey: cfg.Auth.JWTSecret,
			Issuer:    cfg.Auth.Issuer,
			AnonKey:   cfg.Auth.AnonKey,
		}),
		Limiter:  limiter,
		Metrics:  svc.metrics,
		Gatherer: svc.registry,
		History:  svc.db,
		Database: svc.db,
	}
	if svc.redis != nil {
		deps.Redis = svc.redis
	}
	if cfg.Auth.JWTSecret == "" {
		log.Warn().Msg("auth.jwt_secret not set: every request is anonymous")
	}

	// Create gateway instance
	gw, err := gateway.New(cfg, deps)
	if err != nil {
		return fmt.Errorf("failed to create gateway: %w", err)
	}

	// Start gateway in background
	errCh := make(chan error, 1)
	go func() {
		errCh <- gw.Start()
	}()

	// Log startup information
	log.Info().Msg("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	log.Info().Msgf("🌐 Server running on http://%s:%d", cfg.Server.Host, cfg.Server.Port)
	log.Info().Msgf("🤖 Multi-agent: POST http://%s:%d/v1/multi-agent", cfg.Server.Host, cfg.Server.Port)
	log.Info().Msgf("📊 Health check: http://%s:%d/health", cfg.Server.Host, cfg.Server.Port)
	if cfg.Monitoring.Prometheus.Enabled {
		log.Info().Msgf("📈 Metrics: http://%s:%d/metrics", cfg.Server.Host, cfg.Server.Port)
	}
	log.Info().Msg("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	log.Info().Msg("Press Ctrl+C to stop")

	// Setup graceful shutdown
	return waitForShutdown(gw, errCh)
}

func waitForShutdown(gw *gateway.Gateway, errCh <-chan error) error {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	}

	log.Info().Msg("⏳ Shutting down gracefully...")

	// Create shutdown context with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Shutdown gateway
	if err := gw.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Error during shutdown")
		return err
	}

	log.Info().Msg("✓ MarketMind stopped cleanly")
	return nil
}
