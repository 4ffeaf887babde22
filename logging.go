package main

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// setupLogging routes logrus (and the standard logger) to path, keeping a
// single rotated history file. With console set, entries are also written
// to stderr. It returns the opened log file so callers can close it on
// shutdown.
func setupLogging(path, level string, console bool) (*os.File, error) {
	if path == "" {
		return nil, fmt.Errorf("log file path is empty")
	}

	// Remove existing history to keep only one backup
	_ = os.Remove(path + ".1")

	// Rotate current log to .1 if present
	if _, err := os.Stat(path); err == nil {
		if err := os.Rename(path, path+".1"); err != nil {
			return nil, fmt.Errorf("failed to rotate existing log: %w", err)
		}
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file %s: %w", path, err)
	}

	var out io.Writer = f
	if console {
		out = io.MultiWriter(f, os.Stderr)
	}

	logrus.SetOutput(out)
	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: time.RFC3339,
		DisableColors:   true,
	})
	logrus.SetLevel(parseLogLevel(level))

	log.SetFlags(0)
	log.SetOutput(logrus.StandardLogger().Writer())
	return f, nil
}

// parseLogLevel maps DEBUG/INFO/WARN/ERROR to logrus levels, defaulting to info.
func parseLogLevel(level string) logrus.Level {
	lvl, err := logrus.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil {
		return logrus.InfoLevel
	}
	return lvl
}
