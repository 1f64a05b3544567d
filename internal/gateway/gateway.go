package gateway

import (
	"context"
	"fmt"
	"time"

	"github.com/biodoia/marketmind/internal/agents"
	"github.com/biodoia/marketmind/internal/ratelimit"
	"github.com/biodoia/marketmind/internal/stats"
	"github.com/biodoia/marketmind/pkg/auth"
	"github.com/biodoia/marketmind/pkg/config"
	"github.com/biodoia/marketmind/pkg/middleware"
	"github.com/biodoia/marketmind/pkg/models"
	"github.com/gofiber/fiber/v3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"github.com/valyala/fasthttp/fasthttpadaptor"
)

// Version riportata da /health
const Version = "1.0.0"

// Pinger è una dipendenza verificata da /ready
type Pinger interface {
	Ping(ctx context.Context) error
}

// RunHistory legge i run persistiti
type RunHistory interface {
	GetWorkflowRun(ctx context.Context, id string) (*models.WorkflowRun, error)
	RecentWorkflowRuns(ctx context.Context, userID string, limit int) ([]models.WorkflowRun, error)
}

// Deps raccoglie i componenti costruiti dal comando serve.
// I campi opzionali nil disattivano la funzionalità corrispondente.
type Deps struct {
	Orchestrator *agents.Orchestrator
	JWT          *auth.JWTManager

	// Opzionali
	Limiter  ratelimit.Limiter
	Metrics  *stats.WorkflowMetrics
	Gatherer prometheus.Gatherer
	History  RunHistory
	Database Pinger
	Redis    Pinger
}

// Gateway è il server HTTP multi-agent
type Gateway struct {
	config *config.Config
	deps   Deps
	app    *fiber.App
}

// New crea una nuova istanza del gateway
func New(cfg *config.Config, deps Deps) (*Gateway, error) {
	if deps.Orchestrator == nil {
		return nil, fmt.Errorf("orchestrator is required")
	}

	app := fiber.New(appConfig(cfg))

	gw := &Gateway{
		config: cfg,
		deps:   deps,
		app:    app,
	}

	// Setup middlewares
	gw.setupMiddlewares()

	// Setup routes
	gw.setupRoutes()

	return gw, nil
}

// appConfig costruisce la configurazione fiber. Senza proxy fidati c.IP() è
// l'indirizzo della connessione e gli header X-Forwarded-For/X-Real-IP
// inviati dal client vengono ignorati.
func appConfig(cfg *config.Config) fiber.Config {
	fcfg := fiber.Config{
		AppName:      "MarketMind Gateway",
		ServerHeader: "MarketMind/" + Version,
		ErrorHandler: customErrorHandler,
	}

	if len(cfg.Server.TrustedProxies) > 0 {
		fcfg.TrustProxy = true
		fcfg.TrustProxyConfig = fiber.TrustProxyConfig{
			Proxies: cfg.Server.TrustedProxies,
		}
		fcfg.ProxyHeader = cfg.Server.ProxyHeader
		if fcfg.ProxyHeader == "" {
			fcfg.ProxyHeader = fiber.HeaderXForwardedFor
		}
		fcfg.EnableIPValidation = true
	}

	return fcfg
}

// App restituisce l'applicazione fiber (usata nei test)
func (g *Gateway) App() *fiber.App {
	return g.app
}

// customErrorHandler gestisce gli errori globali
func customErrorHandler(c fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	requestID := middleware.GetRequestID(c)

	return c.Status(code).JSON(fiber.Map{
		"error":      message,
		"request_id": requestID,
	})
}

// setupMiddlewares configura i middleware globali
func (g *Gateway) setupMiddlewares() {
	// Recovery middleware (primo, per catturare tutti i panic)
	g.app.Use(middleware.Recovery())

	// Request ID middleware
	g.app.Use(middleware.RequestID())

	// CORS middleware
	g.app.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowedOrigins: g.config.Server.CORSOrigins,
	}))

	// Logging middleware
	g.app.Use(middleware.Logging(middleware.LoggingConfig{
		SkipPaths: []string{"/health", "/ready", "/metrics"},
	}))
}

// setupRoutes configura le route HTTP
func (g *Gateway) setupRoutes() {
	// Public endpoints (no auth)
	g.app.Get("/health", g.handleHealth)
	g.app.Get("/ready", g.handleReady)

	// Metrics (Prometheus)
	if g.config.Monitoring.Prometheus.Enabled && g.deps.Gatherer != nil {
		handler := fasthttpadaptor.NewFastHTTPHandler(
			promhttp.HandlerFor(g.deps.Gatherer, promhttp.HandlerOpts{}),
		)
		g.app.Get("/metrics", func(c fiber.Ctx) error {
			handler(c.RequestCtx())
			return nil
		})
	}

	// API v1: autenticazione opzionale
	api := g.app.Group("/v1", middleware.OptionalAuth(g.deps.JWT))

	// Il rate limit per IP copre solo le chiamate al modello
	if g.deps.Limiter != nil {
		limiter := ratelimit.Middleware(ratelimit.MiddlewareConfig{
			Limiter:  g.deps.Limiter,
			FailOpen: g.config.RateLimit.FailOpen,
		})
		api.Post("/multi-agent", limiter, g.handleMultiAgent)
	} else {
		api.Post("/multi-agent", g.handleMultiAgent)
	}

	if g.deps.History != nil {
		api.Get("/workflows", g.handleListRuns)
		api.Get("/workflows/:id", g.handleGetRun)
	}
}

// Start avvia il gateway
func (g *Gateway) Start() error {
	// Build server address
	addr := fmt.Sprintf("%s:%d", g.config.Server.Host, g.config.Server.Port)

	return g.app.Listen(addr, fiber.ListenConfig{DisableStartupMessage: true})
}

// Shutdown esegue lo shutdown graceful del gateway
func (g *Gateway) Shutdown(ctx context.Context) error {
	// Shutdown HTTP server
	if err := g.app.ShutdownWithContext(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}

	log.Info().Msg("Gateway shutdown completed")
	return nil
}

// handleHealth endpoint di health check
func (g *Gateway) handleHealth(c fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":    "healthy",
		"timestamp": time.Now().Unix(),
		"version":   Version,
		"agents":    len(g.deps.Orchestrator.Registry().List()),
	})
}

// handleReady endpoint di readiness check
func (g *Gateway) handleReady(c fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), 2*time.Second)
	defer cancel()

	checks := []struct {
		name   string
		pinger Pinger
	}{
		{"database", g.deps.Database},
		{"redis", g.deps.Redis},
	}

	for _, check := range checks {
		if check.pinger == nil {
			continue
		}
		if err := check.pinger.Ping(ctx); err != nil {
			log.Warn().Err(err).Str("dependency", check.name).Msg("Readiness check failed")
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"ready": false,
				"error": check.name + " ping failed",
			})
		}
	}

	return c.JSON(fiber.Map{
		"ready":     true,
		"timestamp": time.Now().Unix(),
	})
}
