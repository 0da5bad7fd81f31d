package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config holds all application configuration.
type Config struct {
	Env      string
	HTTPAddr string
	BaseURL  string

	// Multi-tenant host resolution
	RootDomain    string
	PreviewSuffix string

	DBDSN     string
	JWTSecret string

	LogLevel string

	RateLimitRPM int
	SessionDays  int

	MaxUploadBytes int64

	// Blob storage (S3-compatible)
	StorageEndpoint  string
	StorageAccessKey string
	StorageSecretKey string
	StorageBucket    string
	StorageUseTLS    bool
	SignedURLTTLMin  int

	// Email dispatch
	EmailAPIURL    string
	EmailAPIKey    string
	EmailFrom      string
	EmailTimeoutMS int
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}

	cfg.Env = strings.TrimSpace(os.Getenv("DG_ENV"))
	if cfg.Env == "" {
		return nil, fmt.Errorf("DG_ENV is required")
	}
	if cfg.Env != "dev" && cfg.Env != "prod" {
		return nil, fmt.Errorf("DG_ENV must be one of: dev, prod (got: %s)", cfg.Env)
	}

	cfg.HTTPAddr = getEnvOrDefault("DG_HTTP_ADDR", ":8080")

	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(os.Getenv("DG_BASE_URL")), "/")
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("DG_BASE_URL is required")
	}

	cfg.RootDomain = strings.ToLower(strings.TrimSpace(os.Getenv("DG_ROOT_DOMAIN")))
	if cfg.RootDomain == "" {
		return nil, fmt.Errorf("DG_ROOT_DOMAIN is required")
	}
	cfg.PreviewSuffix = strings.ToLower(getEnvOrDefault("DG_PREVIEW_SUFFIX", ".vercel.app"))

	cfg.DBDSN = strings.TrimSpace(os.Getenv("DG_DB_DSN"))
	if cfg.DBDSN == "" {
		return nil, fmt.Errorf("DG_DB_DSN is required")
	}

	cfg.JWTSecret = os.Getenv("DG_JWT_SECRET")
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("DG_JWT_SECRET is required")
	}
	if cfg.Env == "prod" && len(cfg.JWTSecret) < 32 {
		return nil, fmt.Errorf("DG_JWT_SECRET must be at least 32 characters (currently %d)", len(cfg.JWTSecret))
	}

	cfg.LogLevel = getEnvOrDefault("DG_LOG_LEVEL", "info")
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return nil, fmt.Errorf("DG_LOG_LEVEL must be one of: debug, info, warn, error (got: %s)", cfg.LogLevel)
	}

	var err error
	cfg.RateLimitRPM, err = getEnvIntOrDefault("DG_RATE_LIMIT_RPM", 120)
	if err != nil {
		return nil, err
	}

	cfg.SessionDays, err = getEnvIntOrDefault("DG_SESSION_DAYS", 7)
	if err != nil {
		return nil, err
	}

	cfg.MaxUploadBytes, err = getEnvInt64OrDefault("DG_MAX_UPLOAD_BYTES", 25*1024*1024)
	if err != nil {
		return nil, err
	}

	cfg.StorageEndpoint = strings.TrimSpace(os.Getenv("DG_STORAGE_ENDPOINT"))
	if cfg.StorageEndpoint == "" {
		return nil, fmt.Errorf("DG_STORAGE_ENDPOINT is required")
	}
	cfg.StorageAccessKey = strings.TrimSpace(os.Getenv("DG_STORAGE_ACCESS_KEY"))
	if cfg.StorageAccessKey == "" {
		return nil, fmt.Errorf("DG_STORAGE_ACCESS_KEY is required")
	}
	cfg.StorageSecretKey = os.Getenv("DG_STORAGE_SECRET_KEY")
	if cfg.StorageSecretKey == "" {
		return nil, fmt.Errorf("DG_STORAGE_SECRET_KEY is required")
	}
	cfg.StorageBucket = getEnvOrDefault("DG_STORAGE_BUCKET", "docgate-documents")
	cfg.StorageUseTLS = getEnvOrDefault("DG_STORAGE_USE_TLS", "true") == "true"

	cfg.SignedURLTTLMin, err = getEnvIntOrDefault("DG_SIGNED_URL_TTL_MIN", 15)
	if err != nil {
		return nil, err
	}
	if cfg.SignedURLTTLMin <= 0 || cfg.SignedURLTTLMin > 7*24*60 {
		return nil, fmt.Errorf("DG_SIGNED_URL_TTL_MIN must be between 1 and 10080 (got: %d)", cfg.SignedURLTTLMin)
	}

	cfg.EmailAPIURL = strings.TrimSpace(os.Getenv("DG_EMAIL_API_URL"))
	cfg.EmailAPIKey = os.Getenv("DG_EMAIL_API_KEY")
	cfg.EmailFrom = getEnvOrDefault("DG_EMAIL_FROM", "no-reply@"+cfg.RootDomain)

	cfg.EmailTimeoutMS, err = getEnvIntOrDefault("DG_EMAIL_TIMEOUT_MS", 3000)
	if err != nil {
		return nil, err
	}
	if cfg.EmailTimeoutMS <= 0 || cfg.EmailTimeoutMS > 30000 {
		return nil, fmt.Errorf("DG_EMAIL_TIMEOUT_MS must be between 1 and 30000 (got: %d)", cfg.EmailTimeoutMS)
	}

	return cfg, nil
}

// IsDev returns true if running in development mode.
func (c *Config) IsDev() bool {
	return c.Env == "dev"
}

// RedactedValues returns a map of config values with secrets redacted.
func (c *Config) RedactedValues() map[string]string {
	return map[string]string{
		"DG_ENV":                c.Env,
		"DG_HTTP_ADDR":          c.HTTPAddr,
		"DG_BASE_URL":           c.BaseURL,
		"DG_ROOT_DOMAIN":        c.RootDomain,
		"DG_PREVIEW_SUFFIX":     c.PreviewSuffix,
		"DG_DB_DSN":             redactDSN(c.DBDSN),
		"DG_JWT_SECRET":         "[REDACTED]",
		"DG_LOG_LEVEL":          c.LogLevel,
		"DG_RATE_LIMIT_RPM":     fmt.Sprintf("%d", c.RateLimitRPM),
		"DG_SESSION_DAYS":       fmt.Sprintf("%d", c.SessionDays),
		"DG_MAX_UPLOAD_BYTES":   fmt.Sprintf("%d", c.MaxUploadBytes),
		"DG_STORAGE_ENDPOINT":   c.StorageEndpoint,
		"DG_STORAGE_ACCESS_KEY": "[REDACTED]",
		"DG_STORAGE_SECRET_KEY": "[REDACTED]",
		"DG_STORAGE_BUCKET":     c.StorageBucket,
		"DG_SIGNED_URL_TTL_MIN": fmt.Sprintf("%d", c.SignedURLTTLMin),
		"DG_EMAIL_API_URL":      c.EmailAPIURL,
		"DG_EMAIL_API_KEY":      "[REDACTED]",
		"DG_EMAIL_FROM":         c.EmailFrom,
		"DG_EMAIL_TIMEOUT_MS":   fmt.Sprintf("%d", c.EmailTimeoutMS),
	}
}

func redactDSN(dsn string) string {
	if start := strings.Index(dsn, "://"); start != -1 {
		if end := strings.Index(dsn[start+3:], "@"); end != -1 {
			return dsn[:start+3] + "[REDACTED]" + dsn[start+3+end:]
		}
	}
	return dsn
}

func getEnvOrDefault(key, defaultValue string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvIntOrDefault(key string, defaultValue int) (int, error) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer (got: %q)", key, value)
	}
	return parsed, nil
}

func getEnvInt64OrDefault(key string, defaultValue int64) (int64, error) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue, nil
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer (got: %q)", key, value)
	}
	return parsed, nil
}
