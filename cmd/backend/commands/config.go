package commands

import (
	"fmt"
	"os"
	"time"

	"github.com/biodoia/marketmind/internal/agents"
	"github.com/biodoia/marketmind/internal/providers/openai"
	"github.com/biodoia/marketmind/internal/ratelimit"
	"github.com/biodoia/marketmind/pkg/config"
	"github.com/biodoia/marketmind/pkg/database"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// ConfigCmd rappresenta il comando config
var ConfigCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long: `Manage MarketMind configuration files.

This command allows you to view, validate, and generate configuration files
for the MarketMind server. Every key can be overridden by an environment
variable with the MARKETMIND_ prefix (e.g. MARKETMIND_SERVER_PORT).`,
	Example: `  # Show current configuration
  marketmind config show

  # Validate configuration file
  marketmind config validate -c config.yaml

  # Generate template configuration
  marketmind config generate -o config.yaml`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long:  `Display the currently loaded configuration with all values.`,
	Example: `  # Show default config
  marketmind config show

  # Show specific config file
  marketmind config show -c /path/to/config.yaml`,
	RunE: runConfigShow,
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration file",
	Long:  `Validate a configuration file for syntax and semantic errors.`,
	Example: `  # Validate default config
  marketmind config validate

  # Validate specific config
  marketmind config validate -c config.yaml`,
	RunE: runConfigValidate,
}

var configGenerateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate template configuration",
	Long:  `Generate a template configuration file with all available options.`,
	Example: `  # Generate to stdout
  marketmind config generate

  # Generate to file
  marketmind config generate -o config.yaml

  # Generate production config
  marketmind config generate --env production -o prod.yaml`,
	RunE: runConfigGenerate,
}

var (
	configOutput string
	configEnv    string
)

func init() {
	configGenerateCmd.Flags().StringVarP(&configOutput, "output", "o", "", "Output file path (stdout if not specified)")
	configGenerateCmd.Flags().StringVar(&configEnv, "env", "development", "Environment (development, production)")

	ConfigCmd.AddCommand(configShowCmd)
	ConfigCmd.AddCommand(configValidateCmd)
	ConfigCmd.AddCommand(configGenerateCmd)
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	// I segreti non vengono mai stampati
	cfg.Gateway.APIKey = mask(cfg.Gateway.APIKey)
	cfg.Auth.JWTSecret = mask(cfg.Auth.JWTSecret)
	cfg.Redis.Password = mask(cfg.Redis.Password)

	// Marshal to YAML for pretty printing
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	fmt.Println("# Current Configuration")
	fmt.Println("# =====================")
	fmt.Println()
	fmt.Print(string(data))

	return nil
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")

	fmt.Printf("Validating configuration: %s\n\n", configPath)

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Println("✗ Failed to load configuration")
		return err
	}

	fmt.Println("✓ Configuration loaded successfully")

	if err := cfg.Validate(); err != nil {
		fmt.Println("✗ Configuration validation failed")
		return err
	}

	fmt.Println("✓ Configuration is valid")
	fmt.Println()
	fmt.Println("Configuration summary:")
	fmt.Printf("  Server:     %s:%d\n", cfg.Server.Host, cfg.Server.Port)
	fmt.Printf("  Database:   %s\n", cfg.Database.Type)
	fmt.Printf("  Gateway:    %s (%s)\n", cfg.Gateway.Endpoint, cfg.Gateway.Model)
	fmt.Printf("  Knowledge:  %d docs, %d chars/doc, %d chars total\n",
		cfg.Knowledge.MaxDocuments, cfg.Knowledge.PerDocumentChars, cfg.Knowledge.MaxTotalChars)
	if cfg.RateLimit.Enabled {
		fmt.Printf("  Rate limit: %d req / %s (%s)\n", cfg.RateLimit.Requests, cfg.RateLimit.Window, cfg.RateLimit.Backend)
	} else {
		fmt.Println("  Rate limit: disabled")
	}
	fmt.Printf("  Auth:       %v\n", cfg.Auth.JWTSecret != "")
	fmt.Printf("  Prometheus: %v\n", cfg.Monitoring.Prometheus.Enabled)

	return nil
}

func runConfigGenerate(cmd *cobra.Command, args []string) error {
	cfg := generateTemplateConfig(configEnv)

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// Add header comments
	output := `# MarketMind Configuration File
# =============================
#
# This is a template configuration for the MarketMind server.
# Adjust the values according to your environment. Secrets are better
# provided through MARKETMIND_GATEWAY_API_KEY and MARKETMIND_AUTH_JWT_SECRET.
#
# Environment: ` + configEnv + `

`
	output += string(data)

	// Write to file or stdout
	if configOutput != "" {
		if err := os.WriteFile(configOutput, []byte(output), 0644); err != nil {
			return fmt.Errorf("failed to write config file: %w", err)
		}
		fmt.Printf("✓ Configuration template generated: %s\n", configOutput)
	} else {
		fmt.Print(output)
	}

	return nil
}

func generateTemplateConfig(env string) *config.Config {
	cfg := &config.Config{
		Server: config.ServerConfig{
			Port:        8080,
			Host:        "0.0.0.0",
			CORSOrigins: []string{"*"},
			ProxyHeader: "X-Real-IP",
		},
		Database: database.Config{
			Type:       "sqlite",
			Connection: "./data/marketmind.db",
			MaxConns:   25,
			LogLevel:   "warn",
		},
		Gateway: config.GatewayConfig{
			Endpoint: openai.DefaultEndpoint,
			Model:    agents.DefaultModel,
			Timeout:  120 * time.Second,
		},
		Knowledge: config.KnowledgeConfig{
			MaxDocuments:     5,
			PerDocumentChars: 1500,
			MaxTotalChars:    4000,
		},
		RateLimit: config.RateLimitConfig{
			Enabled:  true,
			Backend:  string(ratelimit.BackendMemory),
			Requests: ratelimit.DefaultLimit,
			Window:   ratelimit.DefaultWindow,
			FailOpen: true,
		},
		Auth: config.AuthConfig{
			Issuer: "marketmind",
		},
	}

	// Environment-specific settings
	if env == "production" {
		cfg.Database.Type = "postgres"
		cfg.Database.Connection = "host=localhost user=marketmind password=changeme dbname=marketmind sslmode=require"
		cfg.Database.MaxConns = 100
		cfg.Redis.Host = "localhost:6379"
		cfg.Server.TrustedProxies = []string{"10.0.0.0/8"}
		cfg.RateLimit.Backend = string(ratelimit.BackendRedis)
		cfg.Monitoring.Logging.Level = "info"
		cfg.Monitoring.Logging.Format = "json"
	} else {
		cfg.Monitoring.Logging.Level = "debug"
		cfg.Monitoring.Logging.Format = "console"
	}

	cfg.Monitoring.Prometheus.Enabled = true

	return cfg
}

func mask(secret string) string {
	if secret == "" {
		return ""
	}
	if len(secret) <= 8 {
		return "****"
	}
	return secret[:4] + "****"
}
