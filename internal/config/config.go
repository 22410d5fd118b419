package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/i474232898/weatherornot/internal/store"
)

type AppConfig struct {
	Port        string
	HTTPTimeout time.Duration

	WeatherAPIKey     string
	OpenWeatherAPIKey string
	// GeocoderAPIKey enables Open-Meteo, which needs coordinates.
	GeocoderAPIKey string

	// DBDriver is store.DriverSQLite or store.DriverPostgres.
	DBDriver    string
	SQLitePath  string
	DatabaseURL string

	// Dashboard.
	BackendURL      string
	DefaultLocation string
	RefreshInterval time.Duration // 0 disables periodic refresh
	PersistTimeout  time.Duration

	LogLevel  zapcore.Level
	LogFormat string

	// DotEnvLoaded reports whether a .env file was found and applied.
	DotEnvLoaded bool
}

// Load reads configuration from .env and the environment with sensible defaults.
func Load() (*AppConfig, error) {
	cfg := &AppConfig{}
	err := godotenv.Load()
	switch {
	case err == nil:
		cfg.DotEnvLoaded = true
	case errors.Is(err, fs.ErrNotExist):
	default:
		return nil, fmt.Errorf("invalid .env: %w", err)
	}

	cfg.Port = getenvDefault("PORT", "8080")
	if cfg.HTTPTimeout, err = getenvDuration("HTTP_TIMEOUT", "10s"); err != nil {
		return nil, err
	}

	cfg.WeatherAPIKey = os.Getenv("WEATHERAPI_API_KEY")
	cfg.OpenWeatherAPIKey = os.Getenv("OPENWEATHER_API_KEY")
	cfg.GeocoderAPIKey = os.Getenv("GEOCODER_API_KEY")

	cfg.DBDriver = getenvDefault("DB_DRIVER", store.DriverSQLite)
	switch cfg.DBDriver {
	case store.DriverSQLite, store.DriverPostgres:
	default:
		return nil, fmt.Errorf("invalid DB_DRIVER %q: want %s or %s", cfg.DBDriver, store.DriverSQLite, store.DriverPostgres)
	}
	cfg.SQLitePath = getenvDefault("SQLITE_PATH", "weatherornot.db")
	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = store.PostgresDSN(
			getenvDefault("DB_HOST", "localhost"),
			strconv.Itoa(getenvInt("DB_PORT", 5432)),
			getenvDefault("DB_NAME", "weatherornot"),
			getenvDefault("DB_USER", "postgres"),
			os.Getenv("DB_PASSWORD"),
		)
	}

	cfg.BackendURL = getenvDefault("BACKEND_URL", "http://127.0.0.1:8080")
	cfg.DefaultLocation = os.Getenv("DEFAULT_LOCATION")
	if cfg.RefreshInterval, err = getenvDuration("REFRESH_INTERVAL", "0"); err != nil {
		return nil, err
	}
	if cfg.PersistTimeout, err = getenvDuration("PERSIST_TIMEOUT", "5s"); err != nil {
		return nil, err
	}

	if cfg.LogLevel, err = zapcore.ParseLevel(getenvDefault("LOG_LEVEL", "info")); err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}
	cfg.LogFormat = getenvDefault("LOG_FORMAT", "console")
	if cfg.LogFormat != "console" && cfg.LogFormat != "json" {
		return nil, fmt.Errorf("invalid LOG_FORMAT %q: want console or json", cfg.LogFormat)
	}

	return cfg, nil
}

// DSN returns the data source name for the configured driver.
func (c *AppConfig) DSN() string {
	if c.DBDriver == store.DriverPostgres {
		return c.DatabaseURL
	}
	return c.SQLitePath
}

// Logger builds the process logger. Logs go to stderr so they do not
// interleave with dashboard output on stdout.
func (c *AppConfig) Logger() (*zap.Logger, error) {
	var zc zap.Config
	if c.LogFormat == "json" {
		zc = zap.NewProductionConfig()
	} else {
		zc = zap.NewDevelopmentConfig()
		zc.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	zc.Level = zap.NewAtomicLevelAt(c.LogLevel)
	zc.OutputPaths = []string{"stderr"}
	zc.ErrorOutputPaths = []string{"stderr"}
	return zc.Build()
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return def
}

func getenvDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(getenvDefault(key, def))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("invalid %s: must not be negative", key)
	}
	return d, nil
}
