package database

import (
	"context"
	"errors"
	"strings"

	"macroclock/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrEmptyKey is returned for blank setting keys.
var ErrEmptyKey = errors.New("empty setting key")

var errNotInitialized = errors.New("database not initialized")

// SettingStore persists key/value settings in the app_settings table.
type SettingStore struct {
	db *gorm.DB
}

// NewSettingStore wraps an opened database.
func NewSettingStore(db *gorm.DB) *SettingStore {
	return &SettingStore{db: db}
}

// Get returns a persisted key/value setting.
// ok is false when the key does not exist.
func (s *SettingStore) Get(ctx context.Context, key string) (value string, ok bool, err error) {
	if s.db == nil {
		return "", false, errNotInitialized
	}

	key = strings.TrimSpace(key)
	if key == "" {
		return "", false, ErrEmptyKey
	}

	var row models.AppSetting
	if err := s.db.WithContext(ctx).First(&row, "key = ?", key).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", false, nil
		}
		return "", false, err
	}
	return row.Value, true, nil
}

// Set persists a key/value setting, replacing any previous value.
// The value is stored verbatim.
func (s *SettingStore) Set(ctx context.Context, key, value string) error {
	if s.db == nil {
		return errNotInitialized
	}

	key = strings.TrimSpace(key)
	if key == "" {
		return ErrEmptyKey
	}

	row := models.AppSetting{Key: key, Value: value}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&row).Error
}

// Ping reports whether the database answers.
func (s *SettingStore) Ping(ctx context.Context) error {
	if !SQLiteUp(ctx, s.db) {
		return errors.New("sqlite unavailable")
	}
	return nil
}

// Close closes the underlying database.
func (s *SettingStore) Close() error {
	return Close(s.db)
}
