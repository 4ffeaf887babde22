// Package store provides the key-value backends the settings bridge can
// persist its record in.
package store

import (
	"context"
	"errors"
	"strings"

	"macroclock/database"
)

var (
	// ErrEmptyKey is returned for blank keys by every backend.
	ErrEmptyKey = database.ErrEmptyKey
	// ErrClosed is returned after Close.
	ErrClosed = errors.New("store closed")
	// ErrUnknownBackend is returned by Open for an unsupported backend name.
	ErrUnknownBackend = errors.New("unknown store backend")
)

// Store is an application-scoped key-value store. Get reports ok=false for
// a key that was never set; Set overwrites unconditionally.
type Store interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	Ping(ctx context.Context) error
	Close() error
}

func normalizeKey(key string) (string, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return "", ErrEmptyKey
	}
	return key, nil
}

// compile-time interface checks
var (
	_ Store = (*database.SettingStore)(nil)
	_ Store = (*MemoryStore)(nil)
	_ Store = (*BadgerStore)(nil)
	_ Store = (*PebbleStore)(nil)
)
