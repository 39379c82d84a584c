package config

import (
	"os"
	"time"
)

type Config struct {
	Port        string
	Environment string
	DatabaseURL string
	CORSOrigins string
	// Remote file-search index
	FileSearchBaseURL string
	FileSearchAPIKey  string
	// Content cache
	CacheDir string
	// Extension->MIME overrides, "ext:type,ext:type" (merged over embedded defaults)
	UploadMIMETypes string
	// Auth. Empty JWKS URL runs the server in anonymous mode.
	AuthJWKSURL string
	// Upload worker
	WorkerPollTimeout time.Duration
	// Logging
	LogDir string
	// Debug flags
	Debug bool
}

func Load() *Config {
	env := getEnv("ENVIRONMENT", "dev")

	return &Config{
		Port:              getEnv("PORT", "8080"),
		Environment:       env,
		DatabaseURL:       getEnv("DATABASE_URL", ""),
		CORSOrigins:       getEnv("CORS_ORIGINS", "http://localhost:3000"),
		FileSearchBaseURL: getEnv("FILESEARCH_BASE_URL", "https://generativelanguage.googleapis.com"),
		FileSearchAPIKey:  getEnv("FILESEARCH_API_KEY", ""),
		CacheDir:          getEnv("CACHE_DIR", "data/cache"),
		UploadMIMETypes:   getEnv("UPLOAD_MIME_TYPES", ""),
		AuthJWKSURL:       getEnv("AUTH_JWKS_URL", ""),
		WorkerPollTimeout: getDuration("WORKER_POLL_TIMEOUT", 10*time.Minute),
		LogDir:            getEnv("LOG_DIR", ""),
		// Debug flags - default to true in dev/test, false in production
		Debug: getEnv("DEBUG", getDefaultDebug(env)) == "true",
	}
}

// getDefaultDebug returns the default debug setting based on environment
func getDefaultDebug(env string) string {
	if env == "prod" {
		return "false"
	}
	return "true" // Enable DEBUG in dev/test by default
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getDuration parses a Go duration string from the environment, falling
// back to the default when unset or malformed.
func getDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return d
}
