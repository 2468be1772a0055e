package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

var envVars = []string{
	"VAULT_PATH", "STORAGE_DIR", "API_PORT", "LOG_LEVEL", "LOG_FORMAT",
	"POLL_INTERVAL", "GC_IDLE_INTERVAL", "SEARCH_LIMIT", "RENAME_SETTLE",
}

// unsetEnv removes every config variable for the duration of the test. t.Setenv
// registers the restore of the original value.
func unsetEnv(t *testing.T) {
	t.Helper()
	for _, key := range envVars {
		t.Setenv(key, "")
		_ = os.Unsetenv(key)
	}
}

// isolateEnv clears every config variable and moves into an empty directory so
// no .env file is picked up.
func isolateEnv(t *testing.T) {
	t.Helper()
	unsetEnv(t)
	t.Chdir(t.TempDir())
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name        string
		env         map[string]string
		wantErr     bool
		checkConfig func(*Config) bool
	}{
		{
			name:    "missing VAULT_PATH",
			env:     map[string]string{},
			wantErr: true,
		},
		{
			name: "default values for optional fields",
			env:  map[string]string{"VAULT_PATH": "/notes"},
			checkConfig: func(cfg *Config) bool {
				return cfg.VaultPath == "/notes" &&
					cfg.StorageDir == ".EvoNotDB" &&
					cfg.APIPort == "9000" &&
					cfg.LogLevel == slog.LevelInfo &&
					cfg.LogFormat == "text" &&
					cfg.PollInterval == time.Second &&
					cfg.GCIdleInterval == 5*time.Minute &&
					cfg.SearchLimit == 20 &&
					cfg.RenameSettle == 100*time.Millisecond
			},
		},
		{
			name: "custom optional values",
			env: map[string]string{
				"VAULT_PATH":       "/notes",
				"STORAGE_DIR":      ".index",
				"API_PORT":         "8088",
				"LOG_LEVEL":        "debug",
				"LOG_FORMAT":       "JSON",
				"POLL_INTERVAL":    "250ms",
				"GC_IDLE_INTERVAL": "1m",
				"SEARCH_LIMIT":     "5",
				"RENAME_SETTLE":    "50ms",
			},
			checkConfig: func(cfg *Config) bool {
				return cfg.StorageDir == ".index" &&
					cfg.APIPort == "8088" &&
					cfg.LogLevel == slog.LevelDebug &&
					cfg.LogFormat == "json" &&
					cfg.PollInterval == 250*time.Millisecond &&
					cfg.GCIdleInterval == time.Minute &&
					cfg.SearchLimit == 5 &&
					cfg.RenameSettle == 50*time.Millisecond
			},
		},
		{
			name:    "storage dir with separator",
			env:     map[string]string{"VAULT_PATH": "/notes", "STORAGE_DIR": "a/b"},
			wantErr: true,
		},
		{
			name:    "unknown log format",
			env:     map[string]string{"VAULT_PATH": "/notes", "LOG_FORMAT": "xml"},
			wantErr: true,
		},
		{
			name:    "invalid log level",
			env:     map[string]string{"VAULT_PATH": "/notes", "LOG_LEVEL": "loud"},
			wantErr: true,
		},
		{
			name:    "invalid poll interval",
			env:     map[string]string{"VAULT_PATH": "/notes", "POLL_INTERVAL": "soon"},
			wantErr: true,
		},
		{
			name:    "zero gc interval",
			env:     map[string]string{"VAULT_PATH": "/notes", "GC_IDLE_INTERVAL": "0s"},
			wantErr: true,
		},
		{
			name:    "invalid SEARCH_LIMIT",
			env:     map[string]string{"VAULT_PATH": "/notes", "SEARCH_LIMIT": "many"},
			wantErr: true,
		},
		{
			name:    "negative SEARCH_LIMIT",
			env:     map[string]string{"VAULT_PATH": "/notes", "SEARCH_LIMIT": "-1"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolateEnv(t)
			for key, value := range tt.env {
				t.Setenv(key, value)
			}

			cfg, err := Load()

			if tt.wantErr {
				if err == nil {
					t.Errorf("Load() expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("Load() unexpected error: %v", err)
			}
			if tt.checkConfig != nil && !tt.checkConfig(cfg) {
				t.Errorf("Load() config validation failed: %+v", cfg)
			}
		})
	}
}

func TestLoad_DotEnvInParentDirectory(t *testing.T) {
	unsetEnv(t)
	root := t.TempDir()
	env := "VAULT_PATH=/from/dotenv\nAPI_PORT=7000\n"
	if err := os.WriteFile(filepath.Join(root, ".env"), []byte(env), 0644); err != nil {
		t.Fatal(err)
	}
	nested := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(nested, 0755); err != nil {
		t.Fatal(err)
	}
	t.Chdir(nested)
	// Already-set variables win over the file.
	t.Setenv("API_PORT", "7001")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.VaultPath != "/from/dotenv" {
		t.Errorf("Load() VaultPath = %q, want /from/dotenv", cfg.VaultPath)
	}
	if cfg.APIPort != "7001" {
		t.Errorf("Load() APIPort = %q, want 7001", cfg.APIPort)
	}
}

func TestLoad_DotEnvFillsEmptyVariables(t *testing.T) {
	unsetEnv(t)
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("VAULT_PATH=/from/dotenv\n"), 0644); err != nil {
		t.Fatal(err)
	}
	t.Chdir(dir)
	t.Setenv("VAULT_PATH", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.VaultPath != "/from/dotenv" {
		t.Errorf("Load() VaultPath = %q, want /from/dotenv", cfg.VaultPath)
	}
}

func TestGetEnv(t *testing.T) {
	tests := []struct {
		name         string
		value        string
		defaultValue string
		want         string
	}{
		{name: "env var set", value: "set-value", defaultValue: "default", want: "set-value"},
		{name: "empty env var uses default", value: "", defaultValue: "default", want: "default"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("TEST_ENV_VAR", tt.value)
			if got := getEnv("TEST_ENV_VAR", tt.defaultValue); got != tt.want {
				t.Errorf("getEnv(%q) = %q, want %q", tt.value, got, tt.want)
			}
		})
	}
}

func TestGetDuration(t *testing.T) {
	t.Setenv("TEST_DURATION", "")
	if d, err := getDuration("TEST_DURATION", time.Second); err != nil || d != time.Second {
		t.Errorf("getDuration() unset = %v, %v; want 1s, nil", d, err)
	}

	t.Setenv("TEST_DURATION", "-5s")
	if _, err := getDuration("TEST_DURATION", time.Second); err == nil {
		t.Error("getDuration() should reject negative durations")
	}
}
