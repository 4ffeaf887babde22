package main

import (
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
)

func TestSetupLoggingRotatesOnce(t *testing.T) {
	prevOut := logrus.StandardLogger().Out
	prevLevel := logrus.GetLevel()
	t.Cleanup(func() {
		logrus.SetOutput(prevOut)
		logrus.SetLevel(prevLevel)
		log.SetOutput(os.Stderr)
	})

	path := filepath.Join(t.TempDir(), "macroclock.log")
	if err := os.WriteFile(path, []byte("first run\n"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := os.WriteFile(path+".1", []byte("older run\n"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	f, err := setupLogging(path, "WARN", false)
	if err != nil {
		t.Fatalf("setupLogging: %v", err)
	}
	defer f.Close()

	history, err := os.ReadFile(path + ".1")
	if err != nil {
		t.Fatalf("read history: %v", err)
	}
	if string(history) != "first run\n" {
		t.Fatalf("history = %q, want previous log", history)
	}

	logrus.Info("dropped")
	logrus.Warn("kept")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if got := string(data); !strings.Contains(got, "kept") || strings.Contains(got, "dropped") {
		t.Fatalf("unexpected log contents %q", got)
	}
}

func TestSetupLoggingRejectsEmptyPath(t *testing.T) {
	if _, err := setupLogging("", "INFO", false); err == nil {
		t.Fatalf("expected error for empty path")
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := map[string]logrus.Level{
		"DEBUG":   logrus.DebugLevel,
		"info":    logrus.InfoLevel,
		"WARN":    logrus.WarnLevel,
		"ERROR":   logrus.ErrorLevel,
		"bogus":   logrus.InfoLevel,
		" debug ": logrus.DebugLevel,
	}
	for in, want := range tests {
		if got := parseLogLevel(in); got != want {
			t.Fatalf("parseLogLevel(%q) = %v, want %v", in, got, want)
		}
	}
}
