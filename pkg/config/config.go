package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/biodoia/marketmind/pkg/database"
	"github.com/spf13/viper"
)

// EnvPrefix prefisso delle variabili d'ambiente (MARKETMIND_SERVER_PORT, ...)
const EnvPrefix = "MARKETMIND"

// Config rappresenta la configurazione completa dell'applicazione
type Config struct {
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Database   database.Config  `yaml:"database" mapstructure:"database"`
	Redis      RedisConfig      `yaml:"redis" mapstructure:"redis"`
	Gateway    GatewayConfig    `yaml:"gateway" mapstructure:"gateway"`
	Knowledge  KnowledgeConfig  `yaml:"knowledge" mapstructure:"knowledge"`
	RateLimit  RateLimitConfig  `yaml:"rate_limit" mapstructure:"rate_limit"`
	Auth       AuthConfig       `yaml:"auth" mapstructure:"auth"`
	Monitoring MonitoringConfig `yaml:"monitoring" mapstructure:"monitoring"`
}

// ServerConfig configurazione del server
type ServerConfig struct {
	Port        int      `yaml:"port" mapstructure:"port"`
	Host        string   `yaml:"host" mapstructure:"host"`
	CORSOrigins []string `yaml:"cors_origins" mapstructure:"cors_origins"`

	// TrustedProxies sono gli indirizzi (IP o CIDR) dei proxy davanti al
	// server. Solo da questi ProxyHeader viene usato come IP del client,
	// quindi il proxy deve sovrascriverlo, non accodarlo.
	TrustedProxies []string `yaml:"trusted_proxies" mapstructure:"trusted_proxies"`
	ProxyHeader    string   `yaml:"proxy_header" mapstructure:"proxy_header"`
}

// RedisConfig configurazione Redis. Host vuoto disabilita Redis.
type RedisConfig struct {
	Host     string `yaml:"host" mapstructure:"host"`
	Password string `yaml:"password" mapstructure:"password"`
	DB       int    `yaml:"db" mapstructure:"db"`
}

// GatewayConfig configurazione dell'AI gateway OpenAI-compatibile
type GatewayConfig struct {
	Endpoint string        `yaml:"endpoint" mapstructure:"endpoint"`
	APIKey   string        `yaml:"api_key" mapstructure:"api_key"`
	Model    string        `yaml:"model" mapstructure:"model"`
	Timeout  time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// KnowledgeConfig limiti del contesto costruito dai documenti
type KnowledgeConfig struct {
	MaxDocuments     int `yaml:"max_documents" mapstructure:"max_documents"`
	PerDocumentChars int `yaml:"per_document_chars" mapstructure:"per_document_chars"`
	MaxTotalChars    int `yaml:"max_total_chars" mapstructure:"max_total_chars"`
}

// RateLimitConfig configurazione del rate limit per IP
type RateLimitConfig struct {
	Enabled  bool          `yaml:"enabled" mapstructure:"enabled"`
	Backend  string        `yaml:"backend" mapstructure:"backend"` // "memory" o "redis"
	Requests int64         `yaml:"requests" mapstructure:"requests"`
	Window   time.Duration `yaml:"window" mapstructure:"window"`
	FailOpen bool          `yaml:"fail_open" mapstructure:"fail_open"`
}

// AuthConfig configurazione dell'autenticazione bearer
type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret" mapstructure:"jwt_secret"`
	AnonKey   string `yaml:"anon_key" mapstructure:"anon_key"`
	Issuer    string `yaml:"issuer" mapstructure:"issuer"`
}

// MonitoringConfig configurazione monitoring
type MonitoringConfig struct {
	Prometheus struct {
		Enabled bool `yaml:"enabled" mapstructure:"enabled"`
	} `yaml:"prometheus" mapstructure:"prometheus"`
	Logging struct {
		Level  string `yaml:"level" mapstructure:"level"`
		Format string `yaml:"format" mapstructure:"format"`
	} `yaml:"logging" mapstructure:"logging"`
}

// Load carica la configurazione da file
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set defaults
	setDefaults(v)

	// Read config file
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	// Read environment variables
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// La chiave del gateway si legge anche dal nome storico
	if err := v.BindEnv("gateway.api_key", EnvPrefix+"_GATEWAY_API_KEY", "LOVABLE_API_KEY"); err != nil {
		return nil, fmt.Errorf("failed to bind env: %w", err)
	}

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// Config file not found, use defaults
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// setDefaults imposta i valori di default
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("server.proxy_header", "X-Real-IP")

	// Database defaults
	v.SetDefault("database.type", "sqlite")
	v.SetDefault("database.connection", "./data/marketmind.db")
	v.SetDefault("database.max_conns", 25)
	v.SetDefault("database.log_level", "warn")

	// Redis defaults
	v.SetDefault("redis.host", "")
	v.SetDefault("redis.db", 0)

	// Gateway defaults
	v.SetDefault("gateway.endpoint", "https://ai.gateway.lovable.dev/v1/chat/completions")
	v.SetDefault("gateway.model", "google/gemini-2.5-flash")
	v.SetDefault("gateway.timeout", "120s")

	// Knowledge defaults
	v.SetDefault("knowledge.max_documents", 5)
	v.SetDefault("knowledge.per_document_chars", 1500)
	v.SetDefault("knowledge.max_total_chars", 4000)

	// Rate limit defaults
	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.backend", "memory")
	v.SetDefault("rate_limit.requests", 30)
	v.SetDefault("rate_limit.window", "1h")
	v.SetDefault("rate_limit.fail_open", true)

	// Auth defaults
	v.SetDefault("auth.issuer", "marketmind")

	// Monitoring defaults
	v.SetDefault("monitoring.prometheus.enabled", true)
	v.SetDefault("monitoring.logging.level", "info")
	v.SetDefault("monitoring.logging.format", "json")
}

// Validate valida la configurazione
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	switch c.Database.Type {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("unsupported database type: %s", c.Database.Type)
	}

	if c.Gateway.Endpoint == "" {
		return fmt.Errorf("gateway endpoint is required")
	}
	if c.Gateway.APIKey == "" {
		return fmt.Errorf("gateway api key is required (set %s_GATEWAY_API_KEY or LOVABLE_API_KEY)", EnvPrefix)
	}

	if c.RateLimit.Enabled {
		switch c.RateLimit.Backend {
		case "memory":
		case "redis":
			if c.Redis.Host == "" {
				return fmt.Errorf("rate_limit backend redis requires redis.host")
			}
		default:
			return fmt.Errorf("unsupported rate limit backend: %s", c.RateLimit.Backend)
		}
		if c.RateLimit.Requests <= 0 {
			return fmt.Errorf("invalid rate limit requests: %d", c.RateLimit.Requests)
		}
		if c.RateLimit.Window <= 0 {
			return fmt.Errorf("invalid rate limit window: %s", c.RateLimit.Window)
		}
	}

	return nil
}
