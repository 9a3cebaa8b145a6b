package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration loaded from the environment.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Provider ProviderConfig
	Pipeline PipelineConfig
	Logging  LoggingConfig
	Cities   []string
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	Database        string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// ProviderConfig holds settings for the upstream weather provider.
type ProviderConfig struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

// PipelineConfig holds settings for the collection/training pipeline.
type PipelineConfig struct {
	TrainingWindow  int
	MinObservations int
	HistoricalDays  int
	DailySchedule   string
	ModelDir        string
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string
}

// LoadConfig reads configuration from the environment with fixed defaults.
// A .env file is honoured when present but is not required.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Host:         getenvDefault("SERVER_HOST", "0.0.0.0"),
			Port:         getenvInt("SERVER_PORT", 8000),
			ReadTimeout:  getenvDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout: getenvDuration("SERVER_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:  getenvDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
		},
		Database: DatabaseConfig{
			Host:            getenvDefault("POSTGRES_HOST", "postgres"),
			Port:            getenvInt("POSTGRES_PORT", 5432),
			User:            getenvDefault("POSTGRES_USER", "airflow"),
			Password:        getenvDefault("POSTGRES_PASSWORD", "airflow"),
			Database:        getenvDefault("POSTGRES_DB", "airflow"),
			SSLMode:         getenvDefault("POSTGRES_SSLMODE", "disable"),
			MaxOpenConns:    getenvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getenvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getenvDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
			ConnMaxIdleTime: getenvDuration("DB_CONN_MAX_IDLE_TIME", 5*time.Minute),
		},
		Provider: ProviderConfig{
			APIKey:  os.Getenv("OPENWEATHERMAP_API_KEY"),
			BaseURL: getenvDefault("PROVIDER_BASE_URL", "https://api.openweathermap.org/data/3.0"),
			Timeout: getenvDuration("PROVIDER_TIMEOUT", 10*time.Second),
		},
		Pipeline: PipelineConfig{
			TrainingWindow:  getenvInt("PIPELINE_TRAINING_WINDOW", 5),
			MinObservations: getenvInt("PIPELINE_MIN_OBSERVATIONS", 3),
			HistoricalDays:  getenvInt("PIPELINE_HISTORICAL_DAYS", 5),
			DailySchedule:   getenvDefault("PIPELINE_DAILY_SCHEDULE", "0 1 * * *"),
			ModelDir:        getenvDefault("MODEL_DIR", "./models"),
		},
		Logging: LoggingConfig{
			Level: getenvDefault("LOG_LEVEL", "info"),
		},
		Cities: splitList(getenvDefault("CITIES", "Berlin,Munich,Hamburg,Frankfurt,Cologne")),
	}

	return cfg, nil
}

// Validate checks the configuration for values that cannot work at runtime.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Database.Host == "" {
		return fmt.Errorf("database host must not be empty")
	}
	if c.Database.Port <= 0 || c.Database.Port > 65535 {
		return fmt.Errorf("invalid database port: %d", c.Database.Port)
	}
	if c.Database.MaxOpenConns <= 0 {
		return fmt.Errorf("db max open connections must be positive, got %d", c.Database.MaxOpenConns)
	}
	if c.Pipeline.TrainingWindow < c.Pipeline.MinObservations {
		return fmt.Errorf("training window (%d) must be at least the minimum observation count (%d)",
			c.Pipeline.TrainingWindow, c.Pipeline.MinObservations)
	}
	if c.Pipeline.MinObservations < 1 {
		return fmt.Errorf("minimum observation count must be positive, got %d", c.Pipeline.MinObservations)
	}
	if c.Pipeline.HistoricalDays < 1 {
		return fmt.Errorf("historical days must be positive, got %d", c.Pipeline.HistoricalDays)
	}
	if len(c.Cities) == 0 {
		return fmt.Errorf("at least one city must be configured")
	}
	return nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getenvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
