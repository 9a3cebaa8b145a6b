package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.Server.Port != 8000 {
		t.Errorf("Server.Port = %d, want 8000", cfg.Server.Port)
	}
	if cfg.Database.Host != "postgres" || cfg.Database.Port != 5432 {
		t.Errorf("Database = %s:%d, want postgres:5432", cfg.Database.Host, cfg.Database.Port)
	}
	if cfg.Database.User != "airflow" || cfg.Database.Database != "airflow" {
		t.Errorf("Database user/db = %s/%s, want airflow/airflow", cfg.Database.User, cfg.Database.Database)
	}
	if cfg.Pipeline.TrainingWindow != 5 || cfg.Pipeline.MinObservations != 3 {
		t.Errorf("Pipeline window/min = %d/%d, want 5/3", cfg.Pipeline.TrainingWindow, cfg.Pipeline.MinObservations)
	}
	if cfg.Pipeline.DailySchedule != "0 1 * * *" {
		t.Errorf("DailySchedule = %q, want \"0 1 * * *\"", cfg.Pipeline.DailySchedule)
	}
	if len(cfg.Cities) != 5 {
		t.Errorf("Cities = %v, want the five default cities", cfg.Cities)
	}
	if cfg.Provider.Timeout != 10*time.Second {
		t.Errorf("Provider.Timeout = %v, want 10s", cfg.Provider.Timeout)
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("POSTGRES_HOST", "db.internal")
	t.Setenv("OPENWEATHERMAP_API_KEY", "secret")
	t.Setenv("CITIES", "Berlin, Hamburg")
	t.Setenv("PIPELINE_TRAINING_WINDOW", "7")
	t.Setenv("PROVIDER_TIMEOUT", "30s")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("Server.Port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.Database.Host != "db.internal" {
		t.Errorf("Database.Host = %q, want db.internal", cfg.Database.Host)
	}
	if cfg.Provider.APIKey != "secret" {
		t.Errorf("Provider.APIKey = %q, want secret", cfg.Provider.APIKey)
	}
	if cfg.Provider.Timeout != 30*time.Second {
		t.Errorf("Provider.Timeout = %v, want 30s", cfg.Provider.Timeout)
	}
	if cfg.Pipeline.TrainingWindow != 7 {
		t.Errorf("TrainingWindow = %d, want 7", cfg.Pipeline.TrainingWindow)
	}
	if len(cfg.Cities) != 2 || cfg.Cities[0] != "Berlin" || cfg.Cities[1] != "Hamburg" {
		t.Errorf("Cities = %v, want [Berlin Hamburg] with whitespace trimmed", cfg.Cities)
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg, err := LoadConfig()
		if err != nil {
			t.Fatalf("LoadConfig() error = %v", err)
		}
		return cfg
	}

	tests := []struct {
		name     string
		mutate   func(*Config)
		wantErr  bool
		errMatch string
	}{
		{
			name:    "defaults are valid",
			mutate:  func(c *Config) {},
			wantErr: false,
		},
		{
			name:     "bad server port",
			mutate:   func(c *Config) { c.Server.Port = 0 },
			wantErr:  true,
			errMatch: "server port",
		},
		{
			name:     "empty database host",
			mutate:   func(c *Config) { c.Database.Host = "" },
			wantErr:  true,
			errMatch: "database host",
		},
		{
			name:     "window below minimum observations",
			mutate:   func(c *Config) { c.Pipeline.TrainingWindow = 2 },
			wantErr:  true,
			errMatch: "training window",
		},
		{
			name:     "zero minimum observations",
			mutate:   func(c *Config) { c.Pipeline.MinObservations = 0 },
			wantErr:  true,
			errMatch: "observation count",
		},
		{
			name:     "no cities",
			mutate:   func(c *Config) { c.Cities = nil },
			wantErr:  true,
			errMatch: "city",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)

			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr && !strings.Contains(err.Error(), tt.errMatch) {
				t.Errorf("Validate() error = %q, want it to mention %q", err, tt.errMatch)
			}
		})
	}
}
