package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix is prepended to every variable name, e.g. MOMENTO_BIND_ADDR.
const EnvPrefix = "MOMENTO"

// Store drivers accepted by STORE_DRIVER.
const (
	DriverAuto     = "auto"
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverHosted   = "hosted"
)

// MaxChatContextTurns caps the prior turns sent with each completion request.
const MaxChatContextTurns = 10

// Config contains all runtime settings for the journaling service.
type Config struct {
	BindAddr         string        `envconfig:"BIND_ADDR" default:":8080"`
	ShutdownTimeout  time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"15s"`
	MetricsNamespace string        `envconfig:"METRICS_NAMESPACE" default:"momento"`
	LogLevel         string        `envconfig:"LOG_LEVEL" default:"info"`
	AllowAnyOrigin   bool          `envconfig:"ALLOW_ANY_ORIGIN" default:"false"`

	StoreDriver      string        `envconfig:"STORE_DRIVER" default:"auto"`
	DatabaseURL      string        `envconfig:"DATABASE_URL"`
	SQLitePath       string        `envconfig:"SQLITE_PATH" default:"data/momento.db"`
	HostedURL        string        `envconfig:"HOSTED_URL"`
	HostedProjectID  string        `envconfig:"HOSTED_PROJECT_ID"`
	HostedPublicKey  string        `envconfig:"HOSTED_PUBLIC_KEY"`
	HostedTimeout    time.Duration `envconfig:"HOSTED_TIMEOUT" default:"10s"`
	HostedMaxRetries int           `envconfig:"HOSTED_MAX_RETRIES" default:"3"`
	PageLimit        int           `envconfig:"PAGE_LIMIT" default:"100"`

	CompletionMode    string        `envconfig:"COMPLETION_MODE" default:"auto"`
	OpenAIAPIKey      string        `envconfig:"OPENAI_API_KEY"`
	OpenAIBaseURL     string        `envconfig:"OPENAI_BASE_URL"`
	OpenAIModel       string        `envconfig:"OPENAI_MODEL" default:"gpt-4-turbo-preview"`
	CompletionHTTPURL string        `envconfig:"COMPLETION_HTTP_URL"`
	CompletionTimeout time.Duration `envconfig:"COMPLETION_TIMEOUT" default:"30s"`
	ChatContextTurns  int           `envconfig:"CHAT_CONTEXT_TURNS" default:"10"`
	ChatMemoryContext int           `envconfig:"CHAT_MEMORY_CONTEXT" default:"3"`

	SeedDefaultUser  bool   `envconfig:"SEED_DEFAULT_USER" default:"true"`
	DefaultUserName  string `envconfig:"DEFAULT_USER_NAME" default:"Friend"`
	DefaultUserEmail string `envconfig:"DEFAULT_USER_EMAIL"`
}

// Load reads MOMENTO_* environment variables, applies defaults and validates the result.
func Load() (Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return Config{}, fmt.Errorf("process environment: %w", err)
	}
	if err := cfg.Resolve(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Resolve normalizes derived settings and rejects invalid combinations.
func (c *Config) Resolve() error {
	c.StoreDriver = strings.ToLower(strings.TrimSpace(c.StoreDriver))
	c.DatabaseURL = strings.TrimSpace(c.DatabaseURL)
	c.HostedURL = strings.TrimSpace(c.HostedURL)
	c.CompletionMode = strings.ToLower(strings.TrimSpace(c.CompletionMode))

	switch c.StoreDriver {
	case "", DriverAuto:
		switch {
		case c.DatabaseURL != "":
			c.StoreDriver = DriverPostgres
		case c.HostedURL != "":
			c.StoreDriver = DriverHosted
		default:
			c.StoreDriver = DriverMemory
		}
	case DriverMemory, DriverSQLite:
	case DriverPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("STORE_DRIVER=postgres requires DATABASE_URL")
		}
	case DriverHosted:
		if c.HostedURL == "" {
			return fmt.Errorf("STORE_DRIVER=hosted requires HOSTED_URL")
		}
	default:
		return fmt.Errorf("invalid STORE_DRIVER: %q (expected auto|memory|sqlite|postgres|hosted)", c.StoreDriver)
	}

	if c.StoreDriver == DriverSQLite && strings.TrimSpace(c.SQLitePath) == "" {
		return fmt.Errorf("STORE_DRIVER=sqlite requires SQLITE_PATH")
	}
	if c.PageLimit <= 0 {
		return fmt.Errorf("PAGE_LIMIT must be positive")
	}
	if c.HostedMaxRetries < 0 {
		return fmt.Errorf("HOSTED_MAX_RETRIES must be >= 0")
	}
	if c.CompletionTimeout <= 0 {
		return fmt.Errorf("COMPLETION_TIMEOUT must be positive")
	}
	if c.ChatContextTurns <= 0 || c.ChatContextTurns > MaxChatContextTurns {
		return fmt.Errorf("CHAT_CONTEXT_TURNS must be between 1 and %d", MaxChatContextTurns)
	}
	if c.ChatMemoryContext < 0 {
		return fmt.Errorf("CHAT_MEMORY_CONTEXT must be >= 0")
	}
	return nil
}
