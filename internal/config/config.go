package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application.
type Config struct {
	VaultPath      string
	StorageDir     string
	APIPort        string
	LogLevel       slog.Level
	LogFormat      string
	PollInterval   time.Duration
	GCIdleInterval time.Duration
	SearchLimit    int
	RenameSettle   time.Duration
}

// Load reads configuration from environment variables and returns a Config struct.
// It applies defaults for optional fields and validates required fields.
// If a .env file exists in the current directory or a parent, it is loaded first.
// Environment variables already set take precedence over .env file values.
func Load() (*Config, error) {
	loadDotEnv()

	cfg := &Config{
		VaultPath:  getEnv("VAULT_PATH", ""),
		StorageDir: getEnv("STORAGE_DIR", ".EvoNotDB"),
		APIPort:    getEnv("API_PORT", "9000"),
		LogFormat:  strings.ToLower(getEnv("LOG_FORMAT", "text")),
	}

	if cfg.VaultPath == "" {
		return nil, fmt.Errorf("VAULT_PATH is required")
	}
	if strings.ContainsAny(cfg.StorageDir, `/\`) || cfg.StorageDir == "." || cfg.StorageDir == ".." {
		return nil, fmt.Errorf("STORAGE_DIR must be a single directory name, got %q", cfg.StorageDir)
	}
	if cfg.LogFormat != "text" && cfg.LogFormat != "json" {
		return nil, fmt.Errorf("LOG_FORMAT must be text or json, got %q", cfg.LogFormat)
	}

	if err := cfg.LogLevel.UnmarshalText([]byte(getEnv("LOG_LEVEL", "info"))); err != nil {
		return nil, fmt.Errorf("LOG_LEVEL is invalid: %w", err)
	}

	var err error
	if cfg.PollInterval, err = getDuration("POLL_INTERVAL", time.Second); err != nil {
		return nil, err
	}
	if cfg.GCIdleInterval, err = getDuration("GC_IDLE_INTERVAL", 5*time.Minute); err != nil {
		return nil, err
	}
	if cfg.RenameSettle, err = getDuration("RENAME_SETTLE", 100*time.Millisecond); err != nil {
		return nil, err
	}

	limitStr := getEnv("SEARCH_LIMIT", "20")
	limit, err := strconv.Atoi(limitStr)
	if err != nil {
		return nil, fmt.Errorf("SEARCH_LIMIT must be a valid integer: %w", err)
	}
	if limit <= 0 {
		return nil, fmt.Errorf("SEARCH_LIMIT must be greater than 0")
	}
	cfg.SearchLimit = limit

	return cfg, nil
}

// loadDotEnv loads the first .env found in the working directory or up to four
// of its parents. Variables already set to a non-empty value win; an empty one
// counts as unset, matching getEnv.
func loadDotEnv() {
	wd, err := os.Getwd()
	if err != nil {
		return
	}
	dir := wd
	for i := 0; i < 5; i++ {
		envPath := filepath.Join(dir, ".env")
		if _, err := os.Stat(envPath); err == nil {
			applyDotEnv(envPath)
			return
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return
		}
		dir = parent
	}
}

// getEnv gets an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getDuration parses a positive duration such as "250ms" or "5m".
func getDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	raw := getEnv(key, "")
	if raw == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be a valid duration: %w", key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be greater than 0", key)
	}
	return d, nil
}

func applyDotEnv(path string) {
	values, err := godotenv.Read(path)
	if err != nil {
		return
	}
	for key, value := range values {
		if os.Getenv(key) == "" {
			_ = os.Setenv(key, value)
		}
	}
}
