package store

import (
	"fmt"
	"path/filepath"
	"strings"

	"macroclock/config"
	"macroclock/database"

	"github.com/sirupsen/logrus"
)

// Backend names accepted by STORE_BACKEND.
const (
	BackendSQLite = "sqlite"
	BackendBadger = "badger"
	BackendPebble = "pebble"
	BackendMemory = "memory"
)

// Open creates the store selected by settings.StoreBackend.
func Open(settings *config.Config, lg *logrus.Logger) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(settings.StoreBackend)) {
	case "", BackendSQLite:
		db, err := database.Open(settings, lg)
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite store: %w", err)
		}
		return database.NewSettingStore(db), nil
	case BackendBadger:
		return NewBadgerStore(BadgerOptions{
			Dir:        filepath.Join(settings.DataDir, "badger"),
			SyncWrites: settings.BadgerSyncWrites,
			Logger:     lg,
		})
	case BackendPebble:
		return NewPebbleStore(PebbleOptions{
			Dir:    filepath.Join(settings.DataDir, "pebble"),
			Logger: lg,
		})
	case BackendMemory:
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, settings.StoreBackend)
	}
}
