package database

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"time"

	"gorm.io/gorm"
)

const (
	contentionBusy   = "busy"
	contentionLocked = "locked"
)

var (
	busyErrors   atomic.Uint64
	lockedErrors atomic.Uint64
)

// contentionOf reports whether err is SQLite lock contention. A cancelled
// or expired context is the caller giving up, not contention.
func contentionOf(err error) string {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return ""
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "sqlite_busy"),
		strings.Contains(msg, "database is locked"),
		strings.Contains(msg, "busy timeout"):
		return contentionBusy
	case strings.Contains(msg, "sqlite_locked"),
		strings.Contains(msg, "database table is locked"):
		return contentionLocked
	}
	return ""
}

// countContention bumps the matching counter and returns the contention kind.
func countContention(err error) string {
	kind := contentionOf(err)
	switch kind {
	case contentionBusy:
		busyErrors.Add(1)
	case contentionLocked:
		lockedErrors.Add(1)
	}
	return kind
}

// SQLiteBusyErrorsTotal is the number of settings queries that hit SQLITE_BUSY.
func SQLiteBusyErrorsTotal() uint64 { return busyErrors.Load() }

// SQLiteLockedErrorsTotal is the number of settings queries that hit SQLITE_LOCKED.
func SQLiteLockedErrorsTotal() uint64 { return lockedErrors.Load() }

// SQLiteUp pings the settings database. Without a deadline on ctx the ping
// gets 200ms.
func SQLiteUp(ctx context.Context, db *gorm.DB) bool {
	if db == nil {
		return false
	}
	sqlDB, err := db.DB()
	if err != nil {
		return false
	}

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, 200*time.Millisecond)
		defer cancel()
	}
	return sqlDB.PingContext(ctx) == nil
}
