package config

import (
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

type Config struct {
	Env      string `env:"ENV" env-default:"local"`
	LogLevel string `env:"LOG_LEVEL" env-default:"info"`
	HTTP     HTTPConfig
	Database DBConfig
	Security SecConfig
	Catalog  CatalogConfig
	Workers  WorkerConfig
}

type HTTPConfig struct {
	Port               string        `env:"PORT" env-default:"8080"`
	ShutdownTimeout    time.Duration `env:"SHUTDOWN_TIMEOUT" env-default:"30s"`
	CORSAllowedOrigins []string      `env:"CORS_ALLOWED_ORIGINS" env-separator:"," env-default:"http://localhost:5173,http://localhost:3000"`
	FrontendDistPath   string        `env:"FRONTEND_DIST_PATH"`
	RateLimitRPS       float64       `env:"RATE_LIMIT_RPS" env-default:"10"`
	RateLimitBurst     int           `env:"RATE_LIMIT_BURST" env-default:"20"`
}

type DBConfig struct {
	Driver      string `env:"DB_DRIVER" env-default:"sqlite"`
	Path        string `env:"DB_PATH" env-default:"./tcg_market.db"`
	DatabaseURL string `env:"DATABASE_URL"`
}

// DSN returns the connection string for the configured driver
func (c DBConfig) DSN() string {
	if c.Driver == "postgres" {
		return c.DatabaseURL
	}
	return c.Path
}

type SecConfig struct {
	// JWTSecret signs session tokens. Empty means local development: the
	// X-User-ID header is trusted instead.
	JWTSecret string `env:"JWT_SECRET"`
}

type CatalogConfig struct {
	DataDir string `env:"CATALOG_DATA_DIR"`
}

type WorkerConfig struct {
	SnapshotHour       int           `env:"SNAPSHOT_HOUR" env-default:"23"`
	SnapshotInterval   time.Duration `env:"SNAPSHOT_CHECK_INTERVAL" env-default:"15m"`
	ValuationCacheSize int           `env:"VALUATION_CACHE_SIZE" env-default:"1024"`
	ValuationCacheTTL  time.Duration `env:"VALUATION_CACHE_TTL" env-default:"5m"`
}

// Load reads an optional .env file and then the environment
func Load() (*Config, error) {
	// A missing .env file is fine; the environment is authoritative
	_ = godotenv.Load()

	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("read environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "sqlite":
	case "postgres":
		if c.Database.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required when DB_DRIVER=postgres")
		}
	default:
		return fmt.Errorf("DB_DRIVER must be 'sqlite' or 'postgres', got %q", c.Database.Driver)
	}
	if c.Workers.SnapshotHour < 0 || c.Workers.SnapshotHour > 23 {
		return fmt.Errorf("SNAPSHOT_HOUR must be between 0 and 23, got %d", c.Workers.SnapshotHour)
	}
	if c.Workers.ValuationCacheSize <= 0 {
		return fmt.Errorf("VALUATION_CACHE_SIZE must be positive, got %d", c.Workers.ValuationCacheSize)
	}
	if c.Workers.ValuationCacheTTL <= 0 {
		return fmt.Errorf("VALUATION_CACHE_TTL must be positive, got %s", c.Workers.ValuationCacheTTL)
	}
	return nil
}
