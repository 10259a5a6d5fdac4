// Package gormdb implements the relational persistence layer on gorm. It
// serves PostgreSQL in production and SQLite for local runs and tests.
package gormdb

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"

	defaultTimeout = 10 * time.Second
)

// Config captures the settings required to open the database.
type Config struct {
	Driver  string
	DSN     string
	Timeout time.Duration
	// Debug logs every statement; meant for development.
	Debug bool
}

// Connect opens the database, configures the pool, verifies connectivity and
// migrates the schema.
func Connect(ctx context.Context, cfg Config) (*gorm.DB, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	var dialector gorm.Dialector
	switch cfg.Driver {
	case DriverPostgres, "":
		if cfg.DSN == "" {
			return nil, fmt.Errorf("gorm connect: empty postgres DSN")
		}
		dialector = postgres.Open(cfg.DSN)
	case DriverSQLite:
		dialector = sqlite.Open(cfg.DSN)
	default:
		return nil, fmt.Errorf("gorm connect: unsupported driver %q", cfg.Driver)
	}

	logLevel := logger.Silent
	if cfg.Debug {
		logLevel = logger.Info
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		TranslateError: true,
		NowFunc:        func() time.Time { return time.Now().UTC() },
		Logger:         logger.Default.LogMode(logLevel),
	})
	if err != nil {
		return nil, fmt.Errorf("gorm connect: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("gorm connect: %w", err)
	}
	configurePool(sqlDB, cfg.Driver)

	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := sqlDB.PingContext(pingCtx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("gorm ping: %w", err)
	}

	if err := Migrate(db.WithContext(ctx)); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	return db, nil
}

// Migrate creates or updates the tables owned by this package.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&userModel{}, &authEventModel{}); err != nil {
		return fmt.Errorf("gorm migrate: %w", err)
	}
	return nil
}

// Close releases the underlying connection pool.
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func configurePool(sqlDB *sql.DB, driver string) {
	// An in-memory SQLite database lives and dies with its connection.
	if driver == DriverSQLite {
		sqlDB.SetMaxOpenConns(1)
		return
	}

	const (
		maxOpenConns    = 20
		maxIdleConns    = 10
		connMaxLifetime = 30 * time.Minute
		connMaxIdleTime = 5 * time.Minute
	)
	sqlDB.SetMaxOpenConns(maxOpenConns)
	sqlDB.SetMaxIdleConns(maxIdleConns)
	sqlDB.SetConnMaxLifetime(connMaxLifetime)
	sqlDB.SetConnMaxIdleTime(connMaxIdleTime)
}
