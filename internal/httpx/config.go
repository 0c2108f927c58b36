package httpx

import (
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"newswire/internal/search"
)

const (
	defaultHTTPAddr        = ":8000"
	defaultShutdownTimeout = 5 * time.Second
	defaultTypesenseHost   = "localhost"
	defaultTypesensePort   = 8108
	defaultTypesenseProto  = "http"
	defaultProfileDBPath   = "user_profiles.db"
)

type RuntimeConfig struct {
	Service   string
	HTTP      HTTPConfig
	Search    search.Config
	ProfileDB string
	Expose    bool
}

type HTTPConfig struct {
	Addr            string
	ShutdownTimeout time.Duration
}

func LoadRuntimeConfig(service string) (RuntimeConfig, error) {
	cfg := RuntimeConfig{
		Service: service,
		HTTP: HTTPConfig{
			Addr:            defaultHTTPAddr,
			ShutdownTimeout: defaultShutdownTimeout,
		},
		Search: search.Config{
			Host:     defaultTypesenseHost,
			Port:     defaultTypesensePort,
			Protocol: defaultTypesenseProto,
		},
		ProfileDB: defaultProfileDBPath,
	}

	if v := envString("NEWSWIRE_SERVICE_NAME"); v != "" {
		cfg.Service = v
	}

	cfg.HTTP.Addr = stringWithDefault("API_ADDR", cfg.HTTP.Addr)

	shutdownTimeout, err := durationFromEnv("NEWSWIRE_HTTP_SHUTDOWN_TIMEOUT", cfg.HTTP.ShutdownTimeout)
	if err != nil {
		return cfg, err
	}
	if shutdownTimeout <= 0 {
		return cfg, fmt.Errorf("NEWSWIRE_HTTP_SHUTDOWN_TIMEOUT must be greater than zero")
	}
	cfg.HTTP.ShutdownTimeout = shutdownTimeout

	cfg.Search.Host = stringWithDefault("TYPESENSE_HOST", cfg.Search.Host)

	port, err := intFromEnv("TYPESENSE_PORT", cfg.Search.Port)
	if err != nil {
		return cfg, err
	}
	if port <= 0 || port > 65535 {
		return cfg, fmt.Errorf("TYPESENSE_PORT must be a valid port number")
	}
	cfg.Search.Port = port

	proto := stringWithDefault("TYPESENSE_PROTOCOL", cfg.Search.Protocol)
	if proto != "http" && proto != "https" {
		return cfg, fmt.Errorf("TYPESENSE_PROTOCOL must be http or https")
	}
	cfg.Search.Protocol = proto

	cfg.Search.APIKey = envString("TYPESENSE_API_KEY")

	cfg.ProfileDB = stringWithDefault("USER_PROFILE_DB", cfg.ProfileDB)

	if v := envString("NEWSWIRE_EXPOSE_CONFIG"); v != "" {
		expose, err := strconv.ParseBool(v)
		if err != nil {
			return cfg, fmt.Errorf("invalid NEWSWIRE_EXPOSE_CONFIG: %w", err)
		}
		cfg.Expose = expose
	}

	return cfg, nil
}

type RuntimeConfigSnapshot struct {
	Service   string         `json:"service"`
	HTTP      HTTPSnapshot   `json:"http"`
	Search    SearchSnapshot `json:"search"`
	ProfileDB string         `json:"profile_db"`
}

type HTTPSnapshot struct {
	Addr            string `json:"addr"`
	ShutdownTimeout string `json:"shutdown_timeout"`
}

type SearchSnapshot struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Protocol string `json:"protocol"`
	APIKey   string `json:"api_key"`
}

func (cfg RuntimeConfig) Snapshot() RuntimeConfigSnapshot {
	return RuntimeConfigSnapshot{
		Service: cfg.Service,
		HTTP: HTTPSnapshot{
			Addr:            cfg.HTTP.Addr,
			ShutdownTimeout: cfg.HTTP.ShutdownTimeout.String(),
		},
		Search: SearchSnapshot{
			Host:     cfg.Search.Host,
			Port:     cfg.Search.Port,
			Protocol: cfg.Search.Protocol,
			APIKey:   maskSecret(cfg.Search.APIKey),
		},
		ProfileDB: cfg.ProfileDB,
	}
}

func RegisterConfigRoute(e *echo.Echo, cfg RuntimeConfig) {
	if !cfg.Expose {
		return
	}

	e.GET("/config", func(c echo.Context) error {
		return c.JSON(http.StatusOK, cfg.Snapshot())
	})
}

func maskSecret(v string) string {
	if v == "" {
		return ""
	}
	return "<redacted>"
}

func envString(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func stringWithDefault(key, fallback string) string {
	if v := envString(key); v != "" {
		return v
	}
	return fallback
}

func durationFromEnv(key string, fallback time.Duration) (time.Duration, error) {
	if v := envString(key); v != "" {
		duration, err := time.ParseDuration(v)
		if err != nil {
			return 0, fmt.Errorf("invalid %s: %w", key, err)
		}
		return duration, nil
	}
	return fallback, nil
}

func intFromEnv(key string, fallback int) (int, error) {
	if v := envString(key); v != "" {
		value, err := strconv.Atoi(v)
		if err != nil {
			return 0, fmt.Errorf("invalid %s: %w", key, err)
		}
		return value, nil
	}
	return fallback, nil
}
