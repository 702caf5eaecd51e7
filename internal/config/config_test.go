package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.HTTP.Port)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "./tcg_market.db", cfg.Database.DSN())
	assert.Equal(t, []string{"http://localhost:5173", "http://localhost:3000"}, cfg.HTTP.CORSAllowedOrigins)
	assert.Equal(t, 23, cfg.Workers.SnapshotHour)
	assert.Equal(t, 15*time.Minute, cfg.Workers.SnapshotInterval)
	assert.Equal(t, 30*time.Second, cfg.HTTP.ShutdownTimeout)
	assert.Equal(t, 5*time.Minute, cfg.Workers.ValuationCacheTTL)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example,https://b.example")
	t.Setenv("DB_DRIVER", "postgres")
	t.Setenv("DATABASE_URL", "postgres://localhost/tcg")
	t.Setenv("SNAPSHOT_HOUR", "6")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.HTTP.Port)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.HTTP.CORSAllowedOrigins)
	assert.Equal(t, "postgres://localhost/tcg", cfg.Database.DSN())
	assert.Equal(t, 6, cfg.Workers.SnapshotHour)
}

func TestValidate(t *testing.T) {
	base := func() Config {
		return Config{
			Database: DBConfig{Driver: "sqlite", Path: "x.db"},
			Workers:  WorkerConfig{SnapshotHour: 23, ValuationCacheSize: 10, ValuationCacheTTL: time.Minute},
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"valid sqlite", func(c *Config) {}, false},
		{"postgres without url", func(c *Config) { c.Database.Driver = "postgres" }, true},
		{"unknown driver", func(c *Config) { c.Database.Driver = "mysql" }, true},
		{"snapshot hour out of range", func(c *Config) { c.Workers.SnapshotHour = 24 }, true},
		{"zero cache size", func(c *Config) { c.Workers.ValuationCacheSize = 0 }, true},
		{"zero cache ttl", func(c *Config) { c.Workers.ValuationCacheTTL = 0 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
