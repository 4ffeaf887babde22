package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func TestContentionOf(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{errors.New("SQLITE_BUSY: database is locked"), contentionBusy},
		{errors.New("SQLITE_LOCKED: database table is locked"), contentionLocked},
		{errors.New("no such table: app_settings"), ""},
		{context.Canceled, ""},
		{nil, ""},
	}
	for _, tt := range tests {
		if got := contentionOf(tt.err); got != tt.want {
			t.Fatalf("contentionOf(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}

func TestGormLogger_CountsContentionWhenSilent(t *testing.T) {
	lg, hook := test.NewNullLogger()
	l := newGormLogger(lg, logger.Silent)

	before := SQLiteBusyErrorsTotal()
	sql := func() (string, int64) { return "SELECT 1", 0 }
	l.Trace(context.Background(), time.Now(), sql, gorm.ErrRecordNotFound)
	l.Trace(context.Background(), time.Now(), sql, errors.New("database is locked"))

	if got := SQLiteBusyErrorsTotal(); got != before+1 {
		t.Fatalf("expected busy counter to grow by 1, got %d -> %d", before, got)
	}
	if n := len(hook.AllEntries()); n != 0 {
		t.Fatalf("silent logger wrote %d entries", n)
	}
}

func TestGormLogger_LogsFailures(t *testing.T) {
	lg, hook := test.NewNullLogger()
	l := newGormLogger(lg, logger.Warn)
	sql := func() (string, int64) { return "UPDATE app_settings", 0 }

	l.Trace(context.Background(), time.Now(), sql, errors.New("SQLITE_LOCKED: database table is locked"))
	entry := hook.LastEntry()
	if entry == nil || entry.Level != logrus.WarnLevel || entry.Data["contention"] != contentionLocked {
		t.Fatalf("expected contention warning, got %+v", entry)
	}

	l.Trace(context.Background(), time.Now(), sql, errors.New("disk I/O error"))
	entry = hook.LastEntry()
	if entry == nil || entry.Level != logrus.ErrorLevel || entry.Data["sql"] != "UPDATE app_settings" {
		t.Fatalf("expected query error entry, got %+v", entry)
	}

	hook.Reset()
	l.Trace(context.Background(), time.Now(), sql, nil)
	if n := len(hook.AllEntries()); n != 0 {
		t.Fatalf("fast successful query logged %d entries at warn level", n)
	}
}
