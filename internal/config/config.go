// Package config loads and validates environment variables at startup.
// Fail-fast: an invalid setting stops the process before anything connects.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Store drivers.
const (
	DriverRedis    = "redis"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// BackendConfig locates the remote applications API.
type BackendConfig struct {
	// URL is the single base URL every component talks to.
	URL string `env:"BACKEND_URL" envDefault:"http://localhost:3001"`
	// FallbackURL is tried by capture when URL fails. Optional.
	FallbackURL string        `env:"FALLBACK_URL"`
	Timeout     time.Duration `env:"HTTP_TIMEOUT" envDefault:"15s"`
}

// StoreConfig selects local persistence.
type StoreConfig struct {
	Driver      string `env:"STORE_DRIVER" envDefault:"redis"`
	RedisURL    string `env:"REDIS_URL" envDefault:"redis://localhost:6379/0"`
	DatabaseURL string `env:"DATABASE_URL"`
	KeyPrefix   string `env:"STORE_PREFIX" envDefault:"jobtracker:"`
}

// CaptureConfig drives the capture daemon.
type CaptureConfig struct {
	Port           string        `env:"CAPTURE_PORT" envDefault:"8090"`
	GRPCPort       string        `env:"CAPTURE_GRPC_PORT" envDefault:"9090"`
	SyncInterval   time.Duration `env:"SYNC_INTERVAL" envDefault:"5m"`
	SettleDelay    time.Duration `env:"SETTLE_DELAY" envDefault:"1500ms"`
	ClickDelay     time.Duration `env:"CLICK_DELAY" envDefault:"1000ms"`
	RescanDebounce time.Duration `env:"RESCAN_DEBOUNCE" envDefault:"500ms"`
	WatchInterval  time.Duration `env:"WATCH_INTERVAL" envDefault:"2s"`
	FetchRate      float64       `env:"FETCH_RATE" envDefault:"1"`
	FetchBurst     int           `env:"FETCH_BURST" envDefault:"2"`
	UserAgent      string        `env:"FETCH_USER_AGENT" envDefault:"Mozilla/5.0 (X11; Linux x86_64) jobtracker/1.0"`
	// DashboardHosts are the host[:port] patterns a registered dashboard
	// URL must match to receive records directly.
	DashboardHosts []string `env:"DASHBOARD_HOSTS" envSeparator:"," envDefault:"localhost:5173,127.0.0.1:5173,preview--application-ace-platform.lovable.app"`
}

// DashboardConfig drives the dashboard process.
type DashboardConfig struct {
	Port string `env:"DASHBOARD_PORT" envDefault:"5173"`
	// URL is how this dashboard announces itself in the registry.
	URL string `env:"DASHBOARD_URL" envDefault:"http://localhost:5173/"`
	// LiveURL is the backend push channel. Derived from BACKEND_URL when empty.
	LiveURL       string        `env:"LIVE_URL"`
	LiveReconnect time.Duration `env:"LIVE_RECONNECT" envDefault:"5s"`
	Heartbeat     time.Duration `env:"REGISTRY_HEARTBEAT" envDefault:"10s"`
}

// LogConfig selects the slog handler.
type LogConfig struct {
	Level  string `env:"LOG_LEVEL" envDefault:"info"`
	Format string `env:"LOG_FORMAT" envDefault:"text"`
}

// Config holds all runtime configuration for both processes.
type Config struct {
	Backend   BackendConfig
	Store     StoreConfig
	Capture   CaptureConfig
	Dashboard DashboardConfig
	Log       LogConfig
}

// Load reads an optional .env file, then environment variables, and returns
// a validated Config.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		var pathErr *os.PathError
		if !errors.As(err, &pathErr) {
			return nil, fmt.Errorf("load .env file: %w", err)
		}
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks cross-field constraints and fills derived values.
func (c *Config) Validate() error {
	if err := checkURL("BACKEND_URL", c.Backend.URL); err != nil {
		return err
	}
	if c.Backend.FallbackURL != "" {
		if err := checkURL("FALLBACK_URL", c.Backend.FallbackURL); err != nil {
			return err
		}
	}

	switch c.Store.Driver {
	case DriverRedis, DriverMemory:
	case DriverPostgres:
		if c.Store.DatabaseURL == "" {
			return errors.New("DATABASE_URL is required when STORE_DRIVER=postgres")
		}
	default:
		return fmt.Errorf("STORE_DRIVER must be redis, postgres or memory, got %q", c.Store.Driver)
	}
	if c.Store.RedisURL == "" && c.Store.Driver == DriverRedis {
		return errors.New("REDIS_URL is required when STORE_DRIVER=redis")
	}

	if c.Capture.SyncInterval < time.Second {
		return fmt.Errorf("SYNC_INTERVAL must be at least 1s, got %s", c.Capture.SyncInterval)
	}
	for _, d := range []struct {
		name  string
		value time.Duration
	}{
		{"WATCH_INTERVAL", c.Capture.WatchInterval},
		{"REGISTRY_HEARTBEAT", c.Dashboard.Heartbeat},
		{"LIVE_RECONNECT", c.Dashboard.LiveReconnect},
	} {
		if d.value <= 0 {
			return fmt.Errorf("%s must be positive, got %s", d.name, d.value)
		}
	}
	if c.Capture.FetchRate <= 0 || c.Capture.FetchBurst < 1 {
		return errors.New("FETCH_RATE must be positive and FETCH_BURST at least 1")
	}

	if c.Dashboard.LiveURL == "" {
		c.Dashboard.LiveURL = LiveURLFor(c.Backend.URL)
	}
	return nil
}

// LiveURLFor derives the push-channel URL from a backend base URL by
// switching http(s) to ws(s).
func LiveURLFor(backendURL string) string {
	u, err := url.Parse(backendURL)
	if err != nil {
		return ""
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = strings.TrimRight(u.Path, "/")
	return u.String()
}

func checkURL(name, raw string) error {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("%s must be an absolute http(s) URL, got %q", name, raw)
	}
	return nil
}
