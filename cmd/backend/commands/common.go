package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/biodoia/marketmind/internal/agents"
	"github.com/biodoia/marketmind/internal/knowledge"
	"github.com/biodoia/marketmind/internal/providers/openai"
	"github.com/biodoia/marketmind/internal/ratelimit"
	"github.com/biodoia/marketmind/internal/stats"
	"github.com/biodoia/marketmind/pkg/cache"
	"github.com/biodoia/marketmind/pkg/config"
	"github.com/biodoia/marketmind/pkg/database"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// jsonOutput è condiviso dai comandi con flag --json
var jsonOutput bool

func printJSON(data interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}

// loadConfig carica la configurazione dal flag globale --config
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	configPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

func initDB(cmd *cobra.Command) (*database.DB, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	return database.New(&cfg.Database)
}

// services raccoglie i componenti condivisi da serve e workflow
type services struct {
	db           *database.DB
	redis        *cache.RedisClient
	registry     *prometheus.Registry
	metrics      *stats.WorkflowMetrics
	collector    *stats.Collector
	orchestrator *agents.Orchestrator
}

// newServices costruisce database, redis, metriche e orchestratore.
// Redis è opzionale: host vuoto o connessione fallita lo disattivano.
func newServices(cfg *config.Config, migrate bool) (*services, error) {
	db, err := database.New(&cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	if migrate {
		if err := db.AutoMigrate(); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
		log.Info().Msg("✓ Database migrations completed")
	}

	rt := &services{db: db}

	if cfg.Redis.Host != "" {
		client, err := cache.New(cache.Config{
			Host:     cfg.Redis.Host,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			log.Warn().Err(err).Str("host", cfg.Redis.Host).Msg("Redis unavailable")
		} else {
			rt.redis = client
			log.Info().Str("host", cfg.Redis.Host).Msg("Redis connected")
		}
	}

	rt.registry = prometheus.NewRegistry()
	rt.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	rt.metrics = stats.NewWorkflowMetrics(rt.registry, "marketmind")
	rt.collector = stats.NewCollector(db)

	completer := openai.NewClient(openai.Config{
		Endpoint: cfg.Gateway.Endpoint,
		APIKey:   cfg.Gateway.APIKey,
		Timeout:  cfg.Gateway.Timeout,
	})

	loader := knowledge.NewLoader(db, knowledge.Config{
		MaxDocuments:     cfg.Knowledge.MaxDocuments,
		PerDocumentChars: cfg.Knowledge.PerDocumentChars,
		MaxTotalChars:    cfg.Knowledge.MaxTotalChars,
	})

	rt.orchestrator = agents.NewOrchestrator(
		agents.NewDefaultRegistry(cfg.Gateway.Model),
		completer,
		agents.WithContextLoader(loader),
		agents.WithRunRecorder(rt.collector),
		agents.WithObserver(agents.MultiObserver{rt.metrics, rt.collector}),
	)

	return rt, nil
}

// newLimiter crea il rate limiter configurato, nil se disabilitato
func (rt *services) newLimiter(cfg *config.Config) (ratelimit.Limiter, error) {
	if !cfg.RateLimit.Enabled {
		return nil, nil
	}

	limiterCfg := ratelimit.DefaultConfig()
	limiterCfg.Backend = ratelimit.Backend(cfg.RateLimit.Backend)
	limiterCfg.Limit = cfg.RateLimit.Requests
	limiterCfg.Window = cfg.RateLimit.Window

	// Senza Redis si ripiega sul limiter in memoria
	if limiterCfg.Backend == ratelimit.BackendRedis && rt.redis == nil {
		log.Warn().Msg("Redis rate limiter requested but Redis is unavailable, using memory backend")
		limiterCfg.Backend = ratelimit.BackendMemory
	}

	return ratelimit.NewLimiter(limiterCfg, rt.redis)
}

// Close rilascia le risorse
func (rt *services) Close() {
	if rt.redis != nil {
		rt.redis.Close()
	}
	rt.db.Close()
}

func setupLogger(verbose, dev bool) {
	// Set log level
	if verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	// Pretty console output in development
	if dev {
		log.Logger = log.Output(zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: time.RFC3339,
		})
	} else {
		// JSON output for production
		zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	}
}

// applyLogConfig usa monitoring.logging quando i flag non lo impongono
func applyLogConfig(cfg *config.Config, verbose, dev bool) {
	if !dev && cfg.Monitoring.Logging.Format == "console" {
		setupLogger(verbose, true)
	}
	if !verbose {
		if level, err := zerolog.ParseLevel(cfg.Monitoring.Logging.Level); err == nil && level != zerolog.NoLevel {
			zerolog.SetGlobalLevel(level)
		}
	}
}
