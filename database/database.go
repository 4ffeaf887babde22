package database

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"macroclock/config"
	"macroclock/models"

	"github.com/glebarez/sqlite"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open opens the SQLite settings database described by settings, applies the
// connection pool limits and PRAGMAs, and migrates the app_settings table.
func Open(settings *config.Config, lg *logrus.Logger) (*gorm.DB, error) {
	if lg == nil {
		lg = logrus.StandardLogger()
	}

	gormLevel := logger.Warn
	if strings.EqualFold(settings.LogLevel, "DEBUG") {
		gormLevel = logger.Info
	}

	base, _, _ := strings.Cut(settings.DatabaseURL, "?")
	if dir := filepath.Dir(base); dir != "." && dir != "" && !strings.HasPrefix(base, "file:") {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	pragmas := pragmasFor(settings)
	db, err := gorm.Open(sqlite.Open(withPragmas(settings.DatabaseURL, pragmas)), &gorm.Config{
		Logger: newGormLogger(lg, gormLevel),
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	poolLimitsFor(settings).apply(sqlDB)
	applyPragmas(db, pragmas, lg)

	if err := db.AutoMigrate(&models.AppSetting{}); err != nil {
		return nil, err
	}

	lg.WithField("dsn", base).Info("Settings database initialized")
	return db, nil
}

// Close closes the database connection and releases resources
func Close(db *gorm.DB) error {
	if db == nil {
		return nil
	}

	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
