package database

import (
	"database/sql"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"macroclock/config"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

var (
	journalModes = []string{"WAL", "DELETE", "TRUNCATE", "PERSIST", "MEMORY", "OFF"}
	syncLevels   = []string{"OFF", "NORMAL", "FULL", "EXTRA", "0", "1", "2", "3"}
)

type pragma struct {
	name  string
	value string
}

// pragmasFor lists the PRAGMAs the settings database runs with. Unknown
// journal or synchronous values are dropped so SQLite keeps its own default.
func pragmasFor(cfg *config.Config) []pragma {
	if !cfg.SQLitePragmasEnabled {
		return nil
	}

	var out []pragma
	if cfg.SQLiteBusyTimeoutMS > 0 {
		out = append(out, pragma{"busy_timeout", strconv.Itoa(cfg.SQLiteBusyTimeoutMS)})
	}
	if mode := oneOf(cfg.SQLiteJournalMode, journalModes); mode != "" {
		out = append(out, pragma{"journal_mode", mode})
	}
	if level := oneOf(cfg.SQLiteSynchronous, syncLevels); level != "" {
		out = append(out, pragma{"synchronous", level})
	}
	return out
}

func oneOf(value string, allowed []string) string {
	value = strings.ToUpper(strings.TrimSpace(value))
	if slices.Contains(allowed, value) {
		return value
	}
	return ""
}

// withPragmas adds one _pragma parameter per entry to the database path.
// Parameters already on the path are kept.
func withPragmas(path string, pragmas []pragma) string {
	base, rawQuery, _ := strings.Cut(path, "?")
	query, _ := url.ParseQuery(rawQuery)
	for _, p := range pragmas {
		query.Add("_pragma", p.name+"("+p.value+")")
	}
	if len(query) == 0 {
		return base
	}
	return base + "?" + query.Encode()
}

// applyPragmas runs the pragmas on an open handle. DSN parameters only reach
// new connections, and an existing file keeps its journal mode until told.
func applyPragmas(db *gorm.DB, pragmas []pragma, lg *logrus.Logger) {
	for _, p := range pragmas {
		if err := db.Exec("PRAGMA " + p.name + " = " + p.value).Error; err != nil {
			lg.WithError(err).WithField("pragma", p.name).Warn("Failed to apply SQLite pragma")
		}
	}
}

type poolLimits struct {
	maxOpen  int
	maxIdle  int
	idleTime time.Duration
	lifetime time.Duration
}

// poolLimitsFor reads the pool settings, keeping at least one open
// connection and never more idle connections than open ones.
func poolLimitsFor(cfg *config.Config) poolLimits {
	p := poolLimits{
		maxOpen:  max(cfg.SQLiteMaxOpenConns, 1),
		maxIdle:  max(cfg.SQLiteMaxIdleConns, 0),
		idleTime: time.Duration(max(cfg.SQLiteConnMaxIdleSec, 0)) * time.Second,
		lifetime: time.Duration(max(cfg.SQLiteConnMaxLifeSec, 0)) * time.Second,
	}
	p.maxIdle = min(p.maxIdle, p.maxOpen)
	return p
}

func (p poolLimits) apply(db *sql.DB) {
	db.SetMaxOpenConns(p.maxOpen)
	db.SetMaxIdleConns(p.maxIdle)
	db.SetConnMaxIdleTime(p.idleTime)
	db.SetConnMaxLifetime(p.lifetime)
}
