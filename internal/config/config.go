package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Storage backend modes.
const (
	StorageFilesystem = "filesystem"
	StorageObject     = "object"
)

type Config struct {
	// ConnectorID identifies this gateway deployment; inbound tokens must
	// carry it as their audience.
	ConnectorID    string
	DatabaseURL    string
	HTTPListenAddr string
	LogLevel       string
	ServiceName    string

	// Mode is "demo" or "production"; surfaced on /healthz.
	Mode string

	// AdminAPIKey guards the local operator endpoints (rotation, enable,
	// disable). Empty disables the admin surface entirely.
	AdminAPIKey string

	// AllowedRoots are the path prefixes the gateway will ever serve from,
	// separated by ";" in the environment (UNC roots contain no semicolons).
	AllowedRoots []string

	MaxImageBytes  int64
	CacheTTL       time.Duration
	RequestTimeout time.Duration

	HealthInterval     time.Duration
	DegradedThreshold  int
	UnhealthyThreshold int

	AuditBuffer int

	// Object-store settings, used when StorageBackend is "object".
	StorageBackend string
	S3Endpoint     string
	S3Bucket       string
	S3AccessKey    string
	S3SecretKey    string
}

func Load() (*Config, error) {
	cfg := &Config{
		ConnectorID:        getEnv("CONNECTOR_ID", ""),
		DatabaseURL:        getEnv("DATABASE_URL", ""),
		HTTPListenAddr:     getEnv("HTTP_LISTEN_ADDR", ":8443"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		ServiceName:        getEnv("SERVICE_NAME", "image-connector-gateway"),
		Mode:               getEnv("GATEWAY_MODE", "demo"),
		AdminAPIKey:        getEnv("ADMIN_API_KEY", ""),
		AllowedRoots:       splitList(getEnv("ALLOWED_ROOTS", "")),
		StorageBackend:     getEnv("STORAGE_BACKEND", StorageFilesystem),
		S3Endpoint:         getEnv("S3_ENDPOINT", ""),
		S3Bucket:           getEnv("S3_BUCKET", ""),
		S3AccessKey:        getEnv("S3_ACCESS_KEY", ""),
		S3SecretKey:        getEnv("S3_SECRET_KEY", ""),
	}

	var err error
	if cfg.MaxImageBytes, err = getEnvInt64("MAX_IMAGE_BYTES", 50<<20); err != nil {
		return nil, err
	}
	if cfg.CacheTTL, err = getEnvDuration("CACHE_TTL", 60*time.Second); err != nil {
		return nil, err
	}
	if cfg.RequestTimeout, err = getEnvDuration("REQUEST_TIMEOUT", 30*time.Second); err != nil {
		return nil, err
	}
	if cfg.HealthInterval, err = getEnvDuration("HEALTH_INTERVAL", 30*time.Second); err != nil {
		return nil, err
	}
	if cfg.DegradedThreshold, err = getEnvInt("DEGRADED_THRESHOLD", 3); err != nil {
		return nil, err
	}
	if cfg.UnhealthyThreshold, err = getEnvInt("UNHEALTHY_THRESHOLD", 6); err != nil {
		return nil, err
	}
	if cfg.AuditBuffer, err = getEnvInt("AUDIT_BUFFER", 1024); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks the settings the gateway daemon cannot run without.
func (c *Config) Validate() error {
	if c.ConnectorID == "" {
		return fmt.Errorf("CONNECTOR_ID is required")
	}
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if len(c.AllowedRoots) == 0 {
		return fmt.Errorf("ALLOWED_ROOTS is required: the gateway refuses to serve without a path allowlist")
	}
	if c.MaxImageBytes <= 0 {
		return fmt.Errorf("MAX_IMAGE_BYTES must be positive")
	}
	if c.DegradedThreshold <= 0 || c.UnhealthyThreshold <= c.DegradedThreshold {
		return fmt.Errorf("health thresholds must satisfy 0 < degraded < unhealthy")
	}
	if c.StorageBackend != StorageFilesystem && c.StorageBackend != StorageObject {
		return fmt.Errorf("unknown STORAGE_BACKEND %q", c.StorageBackend)
	}
	if c.StorageBackend == StorageObject && (c.S3Endpoint == "" || c.S3Bucket == "") {
		return fmt.Errorf("S3_ENDPOINT and S3_BUCKET are required for the object storage backend")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getEnvInt64(key string, fallback int64) (int64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ";") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
