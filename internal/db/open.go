package db

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/terraincognita07/lifelog/internal/config"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const (
	dialectSQLite   = "sqlite"
	dialectPostgres = "postgres"
)

// Open connects to the configured database and applies embedded migrations.
func Open(cfg config.DatabaseConfig, log *zap.Logger) (*gorm.DB, error) {
	switch cfg.Driver {
	case config.DriverPostgres:
		return OpenPostgres(cfg, log)
	case config.DriverSQLite, "":
		return OpenSQLite(cfg.Path, log)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

func OpenSQLite(dbPath string, log *zap.Logger) (*gorm.DB, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	dsn := fmt.Sprintf("%s?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)", dbPath)
	database, err := gorm.Open(sqlite.Open(dsn), gormConfig(log))
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if err := applyEmbeddedMigrations(database, dialectSQLite); err != nil {
		return nil, fmt.Errorf("apply embedded migrations: %w", err)
	}
	return database, nil
}

func OpenPostgres(cfg config.DatabaseConfig, log *zap.Logger) (*gorm.DB, error) {
	database, err := gorm.Open(postgres.New(postgres.Config{
		DSN:                  cfg.DSN(),
		PreferSimpleProtocol: true,
	}), gormConfig(log))
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	sqlDB, err := database.DB()
	if err != nil {
		return nil, fmt.Errorf("get postgres handle: %w", err)
	}
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	if err := applyEmbeddedMigrations(database, dialectPostgres); err != nil {
		return nil, fmt.Errorf("apply embedded migrations: %w", err)
	}
	return database, nil
}

func gormConfig(log *zap.Logger) *gorm.Config {
	if log == nil {
		log = zap.NewNop()
	}
	return &gorm.Config{
		TranslateError: true,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
		Logger: gormlogger.New(
			zapWriter{log: log.Named("gorm").Sugar()},
			gormlogger.Config{
				SlowThreshold:             time.Second,
				LogLevel:                  gormlogger.Warn,
				IgnoreRecordNotFoundError: true,
				Colorful:                  false,
			},
		),
	}
}

type zapWriter struct {
	log *zap.SugaredLogger
}

func (writer zapWriter) Printf(format string, args ...any) {
	writer.log.Warnf(format, args...)
}
