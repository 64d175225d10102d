package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config contains all runtime settings for the stream task tracker.
type Config struct {
	BindAddr         string
	ShutdownTimeout  time.Duration
	MetricsNamespace string

	AllowAnyOrigin bool
	EnableTestAPI  bool

	StoreBackend         string
	StoreKey             string
	DatabaseURL          string
	SQLitePath           string
	MySQLDSN             string
	DataDir              string
	StoreConnectAttempts int
	StoreWriteTimeout    time.Duration

	FieldsPath    string
	SweepInterval time.Duration
	SaveDebounce  time.Duration
}

// Load reads environment variables and applies safe defaults.
func Load() (Config, error) {
	cfg := Config{
		BindAddr:             envOrDefault("APP_BIND_ADDR", ":8080"),
		MetricsNamespace:     envOrDefault("APP_METRICS_NAMESPACE", "streamtasks"),
		AllowAnyOrigin:       false,
		EnableTestAPI:        true,
		StoreBackend:         strings.ToLower(envOrDefault("STORE_BACKEND", "auto")),
		StoreKey:             envOrDefault("STORE_KEY", "cst_data"),
		DatabaseURL:          stringsTrimSpace("DATABASE_URL"),
		SQLitePath:           stringsTrimSpace("SQLITE_PATH"),
		MySQLDSN:             stringsTrimSpace("MYSQL_DSN"),
		DataDir:              stringsTrimSpace("DATA_DIR"),
		StoreConnectAttempts: 5,
		StoreWriteTimeout:    2 * time.Second,
		FieldsPath:           stringsTrimSpace("FIELDS_PATH"),
		ShutdownTimeout:      15 * time.Second,
		SweepInterval:        60 * time.Second,
		SaveDebounce:         time.Second,
	}
	var err error
	cfg.ShutdownTimeout, err = durationFromEnv("APP_SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.SweepInterval, err = durationFromEnv("SWEEP_INTERVAL", cfg.SweepInterval)
	if err != nil {
		return Config{}, err
	}
	cfg.SaveDebounce, err = durationFromEnv("SAVE_DEBOUNCE", cfg.SaveDebounce)
	if err != nil {
		return Config{}, err
	}
	cfg.StoreWriteTimeout, err = durationFromEnv("STORE_WRITE_TIMEOUT", cfg.StoreWriteTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.StoreConnectAttempts, err = intFromEnv("STORE_CONNECT_ATTEMPTS", cfg.StoreConnectAttempts)
	if err != nil {
		return Config{}, err
	}
	cfg.AllowAnyOrigin, err = boolFromEnv("APP_ALLOW_ANY_ORIGIN", cfg.AllowAnyOrigin)
	if err != nil {
		return Config{}, err
	}
	cfg.EnableTestAPI, err = boolFromEnv("APP_ENABLE_TEST_API", cfg.EnableTestAPI)
	if err != nil {
		return Config{}, err
	}

	switch cfg.StoreBackend {
	case "auto", "memory", "file", "postgres", "sqlite", "mysql":
	default:
		return Config{}, fmt.Errorf("STORE_BACKEND must be one of auto, memory, file, postgres, sqlite, mysql")
	}
	if cfg.StoreBackend == "file" && cfg.DataDir == "" {
		return Config{}, fmt.Errorf("DATA_DIR is required when STORE_BACKEND=file")
	}
	if cfg.SweepInterval < time.Second {
		return Config{}, fmt.Errorf("SWEEP_INTERVAL must be at least 1s")
	}
	if cfg.SaveDebounce < 0 {
		return Config{}, fmt.Errorf("SAVE_DEBOUNCE must be >= 0")
	}
	if cfg.StoreWriteTimeout <= 0 {
		return Config{}, fmt.Errorf("STORE_WRITE_TIMEOUT must be positive")
	}
	if cfg.StoreConnectAttempts <= 0 {
		return Config{}, fmt.Errorf("STORE_CONNECT_ATTEMPTS must be positive")
	}
	if strings.TrimSpace(cfg.StoreKey) == "" {
		return Config{}, fmt.Errorf("STORE_KEY must not be blank")
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func stringsTrimSpace(key string) string {
	return trimSpace(os.Getenv(key))
}

func trimSpace(v string) string {
	for len(v) > 0 && (v[0] == ' ' || v[0] == '\n' || v[0] == '\t' || v[0] == '\r') {
		v = v[1:]
	}
	for len(v) > 0 {
		c := v[len(v)-1]
		if c == ' ' || c == '\n' || c == '\t' || c == '\r' {
			v = v[:len(v)-1]
			continue
		}
		break
	}
	return v
}

func durationFromEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := stringsTrimSpace(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return d, nil
}

func intFromEnv(key string, fallback int) (int, error) {
	v := stringsTrimSpace(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return n, nil
}

func boolFromEnv(key string, fallback bool) (bool, error) {
	v := strings.ToLower(stringsTrimSpace(key))
	if v == "" {
		return fallback, nil
	}
	switch v {
	case "1", "true", "t", "yes", "y", "on":
		return true, nil
	case "0", "false", "f", "no", "n", "off":
		return false, nil
	default:
		return false, fmt.Errorf("%s parse error: expected bool", key)
	}
}
