package config

import (
	"fmt"
	"net/url"
	"os"
	"sync"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds all configuration for ekaya-lakehouse.
// Configuration comes from config.yaml with environment variable overrides.
// Secrets (tokens, passwords, signing keys) must only come from environment variables.
type Config struct {
	// Server configuration
	BindAddr string `yaml:"bind_addr" env:"BIND_ADDR" env-default:"127.0.0.1"`
	Port     string `yaml:"port" env:"PORT" env-default:"8000"`
	Env      string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	BaseURL  string `yaml:"base_url" env:"BASE_URL" env-default:""` // Auto-derived from Port if empty
	Version  string `yaml:"-"`                                      // Set at load time, not from config

	// FrontendDir is the directory of the built single-page app.
	// When empty, the embedded ui/dist bundle is served.
	FrontendDir string `yaml:"frontend_dir" env:"FRONTEND_DIR" env-default:""`

	// CookieDomain is the domain for the session cookie (optional).
	// If empty, it will be auto-derived from BaseURL.
	CookieDomain string `yaml:"cookie_domain" env:"COOKIE_DOMAIN" env-default:""`

	// CORSOrigins lists browser origins allowed to call the API with credentials.
	// "*" echoes any origin.
	CORSOrigins []string `yaml:"cors_origins" env:"CORS_ORIGINS" env-separator:"," env-default:"*"`

	Warehouse WarehouseConfig `yaml:"warehouse"`
	LLM       LLMConfig       `yaml:"llm"`
	Auth      AuthConfig      `yaml:"auth"`
	Timeouts  TimeoutConfig   `yaml:"timeouts"`

	// Database is optional. Enrichment runs are persisted only when Host is set.
	Database DatabaseConfig `yaml:"database"`

	// Redis is optional. Sessions are kept in memory when Host is empty.
	Redis RedisConfig `yaml:"redis"`
}

// WarehouseConfig describes the SQL warehouse and how statements reach it.
type WarehouseConfig struct {
	// ServerHostname is the workspace host, e.g. "dbc-1234.cloud.databricks.com".
	ServerHostname string `yaml:"server_hostname" env:"DATABRICKS_SERVER_HOSTNAME" env-default:""`
	// HTTPPath is the warehouse resource path; its last segment is the warehouse id.
	HTTPPath string `yaml:"http_path" env:"DATABRICKS_HTTP_PATH" env-default:""`

	// Mode selects the statement executor: "rest" (statement poller) or "driver".
	Mode string `yaml:"mode" env:"WAREHOUSE_MODE" env-default:"rest"`

	PollInterval time.Duration `yaml:"poll_interval" env:"WAREHOUSE_POLL_INTERVAL" env-default:"2s"`
	MaxPolls     int           `yaml:"max_polls" env:"WAREHOUSE_MAX_POLLS" env-default:"60"`
	WaitTimeout  time.Duration `yaml:"wait_timeout" env:"WAREHOUSE_WAIT_TIMEOUT" env-default:"50s"`

	// ClientID enables OAuth machine-to-machine auth together with ClientSecret.
	ClientID     string `yaml:"client_id" env:"DATABRICKS_CLIENT_ID" env-default:""`
	ClientSecret string `yaml:"-" env:"DATABRICKS_CLIENT_SECRET"` // Secret - not in YAML
	// Token is a personal access token, used when no OAuth client is configured.
	Token string `yaml:"-" env:"DATABRICKS_TOKEN"` // Secret - not in YAML
}

// LLMConfig configures the model used to draft descriptions.
type LLMConfig struct {
	// Provider is "openai" (OpenAI-compatible serving endpoints) or "anthropic".
	Provider string `yaml:"provider" env:"LLM_PROVIDER" env-default:"openai"`
	Model    string `yaml:"model" env:"LLM_MODEL" env-default:"databricks-meta-llama-3-3-70b-instruct"`
	// Endpoint overrides the base URL. Defaults to https://{server_hostname}/serving-endpoints.
	Endpoint    string  `yaml:"endpoint" env:"LLM_ENDPOINT" env-default:""`
	APIKey      string  `yaml:"-" env:"LLM_API_KEY"` // Secret - not in YAML; falls back to the warehouse token
	Temperature float64 `yaml:"temperature" env:"LLM_TEMPERATURE" env-default:"0.3"`
	MaxTokens   int     `yaml:"max_tokens" env:"LLM_MAX_TOKENS" env-default:"2048"`
	// PromptsFile optionally overrides the built-in prompt templates.
	PromptsFile string `yaml:"prompts_file" env:"LLM_PROMPTS_FILE" env-default:""`
}

// AuthConfig holds login and session settings.
type AuthConfig struct {
	// RequireLogin guards the browse and enrichment API behind a session.
	RequireLogin bool          `yaml:"require_login" env:"AUTH_REQUIRE_LOGIN" env-default:"true"`
	SessionTTL   time.Duration `yaml:"session_ttl" env:"AUTH_SESSION_TTL" env-default:"8h"`
	// SessionSecret signs the session cookie. Any passphrase; it is hashed to a key.
	SessionSecret string `yaml:"-" env:"SESSION_SECRET"` // Secret - not in YAML
}

// TimeoutConfig holds the per-route deadlines applied by the HTTP handlers.
type TimeoutConfig struct {
	Browse   time.Duration `yaml:"browse" env:"TIMEOUT_BROWSE" env-default:"60s"`
	Metadata time.Duration `yaml:"metadata" env:"TIMEOUT_METADATA" env-default:"30s"`
	Generate time.Duration `yaml:"generate" env:"TIMEOUT_GENERATE" env-default:"120s"`
}

// DatabaseConfig holds PostgreSQL database configuration.
type DatabaseConfig struct {
	Host           string `yaml:"host" env:"PGHOST" env-default:""`
	Port           int    `yaml:"port" env:"PGPORT" env-default:"5432"`
	User           string `yaml:"user" env:"PGUSER" env-default:"ekaya"`
	Password       string `yaml:"-" env:"PGPASSWORD"` // Secret - not in YAML
	Database       string `yaml:"database" env:"PGDATABASE" env-default:"ekaya_lakehouse"`
	MaxConnections int32  `yaml:"max_connections" env:"PGMAX_CONNECTIONS" env-default:"10"`
	SSLMode        string `yaml:"ssl_mode" env:"PGSSLMODE" env-default:"disable"`
	MigrationsPath string `yaml:"migrations_path" env:"MIGRATIONS_PATH" env-default:""` // Empty uses the embedded migrations
}

// RedisConfig holds Redis configuration for the session store.
type RedisConfig struct {
	Host     string `yaml:"host" env:"REDIS_HOST" env-default:""`
	Port     int    `yaml:"port" env:"REDIS_PORT" env-default:"6379"`
	Password string `yaml:"-" env:"REDIS_PASSWORD"` // Secret - not in YAML
	DB       int    `yaml:"db" env:"REDIS_DB" env-default:"0"`
}

// Load reads configuration from config.yaml with environment variable overrides.
// A missing config.yaml is not an error; defaults and environment apply.
func Load(version string) (*Config, error) {
	cfg := &Config{
		Version: version,
	}

	if _, err := os.Stat("config.yaml"); err == nil {
		if err := cleanenv.ReadConfig("config.yaml", cfg); err != nil {
			return nil, fmt.Errorf("failed to read config.yaml: %w", err)
		}
	} else if err := cleanenv.ReadEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	if cfg.BaseURL == "" {
		cfg.BaseURL = (&url.URL{
			Scheme: "http",
			Host:   "localhost:" + cfg.Port,
		}).String()
	}

	cfg.Database.Host = resolveHostForDocker(cfg.Database.Host)
	cfg.Redis.Host = resolveHostForDocker(cfg.Redis.Host)

	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Warehouse.Mode {
	case "rest", "driver":
	default:
		return fmt.Errorf("warehouse.mode must be \"rest\" or \"driver\", got %q", c.Warehouse.Mode)
	}

	switch c.LLM.Provider {
	case "openai", "anthropic":
	default:
		return fmt.Errorf("llm.provider must be \"openai\" or \"anthropic\", got %q", c.LLM.Provider)
	}

	if c.Warehouse.MaxPolls <= 0 {
		return fmt.Errorf("warehouse.max_polls must be positive")
	}
	if c.Warehouse.PollInterval <= 0 {
		return fmt.Errorf("warehouse.poll_interval must be positive")
	}

	if c.Auth.RequireLogin && c.Auth.SessionSecret == "" {
		return fmt.Errorf("SESSION_SECRET is required when auth.require_login is true")
	}

	return nil
}

// UsesOAuth reports whether machine-to-machine OAuth credentials are configured.
func (w *WarehouseConfig) UsesOAuth() bool {
	return w.ClientID != "" && w.ClientSecret != ""
}

// LLMEndpoint returns the configured LLM base URL or the workspace serving endpoints.
func (c *Config) LLMEndpoint() string {
	if c.LLM.Endpoint != "" {
		return c.LLM.Endpoint
	}
	return "https://" + c.Warehouse.ServerHostname + "/serving-endpoints"
}

// ConnectionString returns a PostgreSQL connection URL.
func (c *DatabaseConfig) ConnectionString() string {
	u := &url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:     "/" + c.Database,
		RawQuery: "sslmode=" + c.SSLMode,
	}
	return u.String()
}

// IsConfigured reports whether a PostgreSQL host was provided.
func (c *DatabaseConfig) IsConfigured() bool {
	return c.Host != ""
}

var (
	inDockerOnce sync.Once
	inDocker     bool
)

// resolveHostForDocker maps loopback hosts to host.docker.internal when running in a container.
func resolveHostForDocker(host string) string {
	inDockerOnce.Do(func() {
		_, err := os.Stat("/.dockerenv")
		inDocker = err == nil
	})
	if inDocker && (host == "localhost" || host == "127.0.0.1") {
		return "host.docker.internal"
	}
	return host
}
