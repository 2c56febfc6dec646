package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"

	"tasksync/internal/store"
)

// Config holds server settings.
type Config struct {
	Addr      string `yaml:"addr" json:"addr"`             // Listen address, e.g. ":8080"
	DBPath    string `yaml:"db_path" json:"db_path"`       // SQLite database file
	APIPrefix string `yaml:"api_prefix" json:"api_prefix"` // Route prefix applied to all endpoints

	// Request timeout in seconds, enforced at the HTTP boundary.
	RequestTimeoutSec int `yaml:"request_timeout_sec" json:"request_timeout_sec"`

	// Logging configuration
	LogLevel   string `yaml:"log_level" json:"log_level"`     // DEBUG, INFO, WARN, ERROR
	LogFile    string `yaml:"log_file" json:"log_file"`       // Path to log file
	LogConsole bool   `yaml:"log_console" json:"log_console"` // Also log to stderr
}

// DefaultConfig returns default settings, with environment variables
// taking precedence over the built-in values.
func DefaultConfig() *Config {
	dbPath := "tasksync.db"
	if p, err := store.DefaultDBPath(); err == nil {
		dbPath = p
	}

	home, _ := os.UserHomeDir()
	logPath := ""
	if home != "" {
		logPath = filepath.Join(home, ".tasksync", "logs", "tasksync.log")
	}

	return &Config{
		Addr:              getEnv("TASKSYNC_ADDR", ":8080"),
		DBPath:            getEnv("TASKSYNC_DB_PATH", dbPath),
		APIPrefix:         getEnv("TASKSYNC_API_PREFIX", "/api"),
		RequestTimeoutSec: getEnvInt("TASKSYNC_REQUEST_TIMEOUT_SEC", 30),
		LogLevel:          getEnv("TASKSYNC_LOG_LEVEL", "INFO"),
		LogFile:           getEnv("TASKSYNC_LOG_FILE", logPath),
		LogConsole:        getEnv("TASKSYNC_LOG_CONSOLE", "false") == "true",
	}
}

// getEnv gets an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

// DefaultPath returns the default config file location
// (~/.tasksync/config.yaml).
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".tasksync", "config.yaml"), nil
}

// Load reads the config file at path, falling back to defaults when the
// file does not exist. An empty path means the default location.
func Load(path string) (*Config, error) {
	if path == "" {
		var err error
		path, err = DefaultPath()
		if err != nil {
			return nil, err
		}
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return DefaultConfig(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return cfg, nil
}

// Save writes the config to path (default location when empty).
func (c *Config) Save(path string) error {
	if path == "" {
		var err error
		path, err = DefaultPath()
		if err != nil {
			return err
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}
