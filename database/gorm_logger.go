package database

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const slowQueryThreshold = 200 * time.Millisecond

// gormLogger sends GORM output to logrus and counts lock contention on every
// failed query, whatever the log level. A missing settings row is not a failure.
type gormLogger struct {
	entry *logrus.Entry
	level logger.LogLevel
}

func newGormLogger(lg *logrus.Logger, level logger.LogLevel) gormLogger {
	return gormLogger{entry: lg.WithField("component", "settings-db"), level: level}
}

func (l gormLogger) LogMode(level logger.LogLevel) logger.Interface {
	l.level = level
	return l
}

func (l gormLogger) Info(_ context.Context, msg string, args ...interface{}) {
	if l.level >= logger.Info {
		l.entry.Infof(msg, args...)
	}
}

func (l gormLogger) Warn(_ context.Context, msg string, args ...interface{}) {
	if l.level >= logger.Warn {
		l.entry.Warnf(msg, args...)
	}
}

func (l gormLogger) Error(_ context.Context, msg string, args ...interface{}) {
	if l.level >= logger.Error {
		l.entry.Errorf(msg, args...)
	}
}

func (l gormLogger) Trace(_ context.Context, begin time.Time, fc func() (string, int64), err error) {
	failed := err != nil && !errors.Is(err, gorm.ErrRecordNotFound)
	var kind string
	if failed {
		kind = countContention(err)
	}
	if l.level <= logger.Silent {
		return
	}

	elapsed := time.Since(begin)
	sql, rows := fc()
	entry := l.entry.WithFields(logrus.Fields{
		"sql":        sql,
		"rows":       rows,
		"elapsed_ms": elapsed.Milliseconds(),
	})

	switch {
	case failed && l.level >= logger.Error:
		if kind != "" {
			entry.WithError(err).WithField("contention", kind).Warn("Settings query hit lock contention")
			return
		}
		entry.WithError(err).Error("Settings query failed")
	case elapsed > slowQueryThreshold && l.level >= logger.Warn:
		entry.Warn("Slow settings query")
	case l.level >= logger.Info:
		entry.Debug("Settings query")
	}
}
