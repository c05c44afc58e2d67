package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port                  string        `mapstructure:"PORT"`
	Env                   string        `mapstructure:"ENV"`
	DatabaseURL           string        `mapstructure:"DATABASE_URL"`
	DBMaxConns            int32         `mapstructure:"DB_MAX_CONNS"`
	DBMinConns            int32         `mapstructure:"DB_MIN_CONNS"`
	DefaultCompany        string        `mapstructure:"DEFAULT_COMPANY"`
	CORSOrigins           []string      `mapstructure:"CORS_ORIGINS"`
	AuthIssuer            string        `mapstructure:"AUTH_ISSUER"`
	AuthJWKSURL           string        `mapstructure:"AUTH_JWKS_URL"`
	AuthAudience          string        `mapstructure:"AUTH_AUDIENCE"`
	AuthSigningKey        string        `mapstructure:"AUTH_SIGNING_KEY"`
	SessionTTL            time.Duration `mapstructure:"SESSION_TTL"`
	SessionIdleTimeout    time.Duration `mapstructure:"SESSION_IDLE_TIMEOUT"`
	SessionWarningSeconds int           `mapstructure:"SESSION_WARNING_SECONDS"`
	RateLimitRPS          float64       `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst        int           `mapstructure:"RATE_LIMIT_BURST"`
	ChatAPIKey            string        `mapstructure:"CHAT_API_KEY"`
	ChatAPIURL            string        `mapstructure:"CHAT_API_URL"`
	ChatModel             string        `mapstructure:"CHAT_MODEL"`
	ChatResponsesFile     string        `mapstructure:"CHAT_RESPONSES_FILE"`
	NPIRegistryURL        string        `mapstructure:"NPI_REGISTRY_URL"`
	DocumentStore         string        `mapstructure:"DOCUMENT_STORE"`
	DocumentDir           string        `mapstructure:"DOCUMENT_DIR"`
	MaxUploadMB           int64         `mapstructure:"MAX_UPLOAD_MB"`
	ReminderInterval      time.Duration `mapstructure:"REMINDER_INTERVAL"`
	ReminderLead          time.Duration `mapstructure:"REMINDER_LEAD"`
	MetricsEnabled        bool          `mapstructure:"METRICS_ENABLED"`
}

var envKeys = []string{
	"PORT", "ENV", "DATABASE_URL", "DB_MAX_CONNS", "DB_MIN_CONNS", "DEFAULT_COMPANY",
	"CORS_ORIGINS", "AUTH_ISSUER", "AUTH_JWKS_URL", "AUTH_AUDIENCE", "AUTH_SIGNING_KEY",
	"SESSION_TTL", "SESSION_IDLE_TIMEOUT", "SESSION_WARNING_SECONDS",
	"RATE_LIMIT_RPS", "RATE_LIMIT_BURST",
	"CHAT_API_KEY", "CHAT_API_URL", "CHAT_MODEL", "CHAT_RESPONSES_FILE",
	"NPI_REGISTRY_URL", "DOCUMENT_STORE", "DOCUMENT_DIR", "MAX_UPLOAD_MB",
	"REMINDER_INTERVAL", "REMINDER_LEAD", "METRICS_ENABLED",
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 5)
	v.SetDefault("DEFAULT_COMPANY", "default")
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("SESSION_TTL", "12h")
	v.SetDefault("SESSION_IDLE_TIMEOUT", "15m")
	v.SetDefault("SESSION_WARNING_SECONDS", 60)
	v.SetDefault("RATE_LIMIT_RPS", 100)
	v.SetDefault("RATE_LIMIT_BURST", 200)
	v.SetDefault("CHAT_API_URL", "https://api.openai.com/v1/chat/completions")
	v.SetDefault("CHAT_MODEL", "gpt-4o-mini")
	v.SetDefault("NPI_REGISTRY_URL", "https://npiregistry.cms.hhs.gov/api/")
	v.SetDefault("DOCUMENT_STORE", "memory")
	v.SetDefault("DOCUMENT_DIR", "./data/documents")
	v.SetDefault("MAX_UPLOAD_MB", 25)
	v.SetDefault("REMINDER_INTERVAL", "15m")
	v.SetDefault("REMINDER_LEAD", "24h")
	v.SetDefault("METRICS_ENABLED", true)

	// Bind env vars explicitly so Unmarshal picks them up
	for _, k := range envKeys {
		_ = v.BindEnv(k)
	}

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if origins := v.GetString("CORS_ORIGINS"); origins != "" {
		cfg.CORSOrigins = splitList(origins)
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.IsDev() {
		log.Println("WARNING: running in DEVELOPMENT mode (ENV=development); unauthenticated requests get admin access.")
	}

	return cfg, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// IsProduction returns true when the server is configured for production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// ChatEnabled reports whether replies are forwarded to the completion API.
func (c *Config) ChatEnabled() bool {
	return strings.TrimSpace(c.ChatAPIKey) != ""
}

// Validate checks that the configuration is safe to run. Outside development
// either an external issuer or a local signing key must be configured.
func (c *Config) Validate() error {
	if !c.IsDev() && c.AuthIssuer == "" && c.AuthSigningKey == "" {
		return fmt.Errorf("AUTH_ISSUER or AUTH_SIGNING_KEY must be set when ENV=%q", c.Env)
	}
	if c.AuthSigningKey != "" && len(c.AuthSigningKey) < 32 {
		return fmt.Errorf("AUTH_SIGNING_KEY must be at least 32 characters, got %d", len(c.AuthSigningKey))
	}
	if c.SessionWarningSeconds < 1 || c.SessionWarningSeconds > 600 {
		return fmt.Errorf("SESSION_WARNING_SECONDS must be between 1 and 600, got %d", c.SessionWarningSeconds)
	}
	if c.SessionIdleTimeout <= 0 {
		return fmt.Errorf("SESSION_IDLE_TIMEOUT must be positive")
	}
	switch c.DocumentStore {
	case "memory", "disk":
	default:
		return fmt.Errorf("DOCUMENT_STORE must be \"memory\" or \"disk\", got %q", c.DocumentStore)
	}
	if c.DocumentStore == "disk" && c.DocumentDir == "" {
		return fmt.Errorf("DOCUMENT_DIR is required when DOCUMENT_STORE is \"disk\"")
	}
	return nil
}
