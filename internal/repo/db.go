// Package repo implements the embedded listing store, backed by GORM over a
// pure-Go SQLite driver. This file contains database bootstrapping helpers and
// schema migrations.
package repo

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/plugin/opentelemetry/tracing"

	"github.com/tbourn/go-listings/internal/domain"
)

type options struct {
	tracing bool
	logMode logger.LogLevel
}

// Option tunes OpenSQLite.
type Option func(*options)

// WithTracing installs the GORM OpenTelemetry plugin so each query becomes a span.
func WithTracing() Option { return func(o *options) { o.tracing = true } }

// WithLogLevel sets the GORM logger level (default: Warn).
func WithLogLevel(l logger.LogLevel) Option { return func(o *options) { o.logMode = l } }

// OpenSQLite opens (or creates) a SQLite database and applies PRAGMAs.
func OpenSQLite(path string, opts ...Option) (*gorm.DB, error) {
	o := options{logMode: logger.Warn}
	for _, fn := range opts {
		fn(&o)
	}

	// Fail early if parent directory does not exist (instead of sqlite "out of memory (14)" on Windows).
	if dir := filepath.Dir(path); dir != "." {
		if _, err := os.Stat(dir); err != nil {
			return nil, err
		}
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(o.logMode),
	})
	if err != nil {
		return nil, err
	}

	if o.tracing {
		if err := db.Use(tracing.NewPlugin()); err != nil {
			return nil, fmt.Errorf("install gorm tracing: %w", err)
		}
	}

	// PRAGMAs
	db.Exec("PRAGMA journal_mode=WAL;")
	db.Exec("PRAGMA synchronous=NORMAL;")
	db.Exec("PRAGMA busy_timeout=5000;")

	// Pool
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(10)
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetConnMaxIdleTime(5 * time.Minute)
		sqlDB.SetConnMaxLifetime(30 * time.Minute)
	}

	return db, nil
}

// AutoMigrate creates or updates the listings table.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&domain.Listing{})
}
