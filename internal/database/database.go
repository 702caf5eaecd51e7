package database

import (
	"fmt"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/codyseavey/tcg-market/internal/models"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Options selects the database backend. For sqlite DSN is a file path (or
// a "file::memory:" URI); for postgres it is a connection string.
type Options struct {
	Driver   string
	DSN      string
	LogLevel logger.LogLevel
}

// Open connects to the configured database and migrates the schema
func Open(opts Options, log *zap.Logger) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch opts.Driver {
	case DriverSQLite, "":
		dialector = sqlite.Open(opts.DSN)
	case DriverPostgres:
		dialector = postgres.Open(opts.DSN)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", opts.Driver)
	}

	logLevel := opts.LogLevel
	if logLevel == 0 {
		logLevel = logger.Warn
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	})
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", opts.Driver, err)
	}
	log.Info("database connected", zap.String("driver", opts.Driver))

	if err := Migrate(db, log); err != nil {
		return nil, err
	}
	return db, nil
}

// Migrate creates or updates every table and then runs data migrations
func Migrate(db *gorm.DB, log *zap.Logger) error {
	err := db.AutoMigrate(
		&models.Edition{},
		&models.Card{},
		&models.Holding{},
		&models.PriceSnapshot{},
		&models.CollectionValueSnapshot{},
	)
	if err != nil {
		return fmt.Errorf("auto-migrate schema: %w", err)
	}

	if err := RunMigrations(db, log); err != nil {
		return fmt.Errorf("run data migrations: %w", err)
	}

	log.Info("database migration completed")
	return nil
}
