package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultPort             = 8080
	defaultRequestTimeout   = 15 * time.Second
	defaultRougeoleTimeout  = 30 * time.Second
	defaultSeverityWindow   = 52
	defaultSyncRunListLimit = 20
)

// Config holds environment-driven settings shared by the API server and
// the one-shot sync job.
type Config struct {
	DatabaseURL string

	// Endpoint overrides; empty means the published government URLs.
	IndicatorsPrimaryURL  string
	IndicatorsFallbackURL string
	StationsPrimaryURL    string
	StationsFallbackURL   string
	OdisseBaseURL         string
	RougeoleURL           string

	RequestTimeout  time.Duration
	RougeoleTimeout time.Duration

	Port      int
	SyncToken string

	// SeverityWindow is how many recent weeks feed the severity
	// classification history.
	SeverityWindow int

	SyncRunListLimit int
}

// Load reads configuration from environment variables (optionally .env).
func Load() (Config, error) {
	_ = godotenv.Load() // ignore missing file

	cfg := Config{
		Port:             defaultPort,
		RequestTimeout:   defaultRequestTimeout,
		RougeoleTimeout:  defaultRougeoleTimeout,
		SeverityWindow:   defaultSeverityWindow,
		SyncRunListLimit: defaultSyncRunListLimit,
	}

	cfg.DatabaseURL = strings.TrimSpace(os.Getenv("DATABASE_URL"))
	if cfg.DatabaseURL == "" {
		return cfg, errors.New("DATABASE_URL is required")
	}

	cfg.IndicatorsPrimaryURL = os.Getenv("SUMEAU_INDICATORS_URL")
	cfg.IndicatorsFallbackURL = os.Getenv("SUMEAU_INDICATORS_FALLBACK_URL")
	cfg.StationsPrimaryURL = os.Getenv("SUMEAU_STATIONS_URL")
	cfg.StationsFallbackURL = os.Getenv("SUMEAU_STATIONS_FALLBACK_URL")
	cfg.OdisseBaseURL = os.Getenv("ODISSE_API_BASE")
	cfg.RougeoleURL = os.Getenv("ROUGEOLE_EXPORT_URL")

	if v := strings.TrimSpace(os.Getenv("REQUEST_TIMEOUT")); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return cfg, fmt.Errorf("invalid REQUEST_TIMEOUT: %w", err)
		}
		cfg.RequestTimeout = d
	}

	if v := strings.TrimSpace(os.Getenv("ROUGEOLE_TIMEOUT")); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return cfg, fmt.Errorf("invalid ROUGEOLE_TIMEOUT: %w", err)
		}
		cfg.RougeoleTimeout = d
	}

	if portStr := os.Getenv("PORT"); portStr != "" {
		port, err := strconv.Atoi(portStr)
		if err != nil || port <= 0 {
			return cfg, fmt.Errorf("invalid PORT: %s", portStr)
		}
		cfg.Port = port
	}

	if v := os.Getenv("SEVERITY_WINDOW"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return cfg, fmt.Errorf("invalid SEVERITY_WINDOW: %s", v)
		}
		cfg.SeverityWindow = n
	}

	cfg.SyncToken = os.Getenv("SYNC_TOKEN")

	return cfg, nil
}

// ListenAddr returns the host:port string for the HTTP server.
func (c Config) ListenAddr() string {
	return fmt.Sprintf(":%d", c.Port)
}
