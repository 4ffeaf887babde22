package main

import (
	"context"
	"io"
	"testing"
	"time"

	"macroclock/config"
	"macroclock/host"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
)

func TestDeliveryWaitTimeout(t *testing.T) {
	cfg := &config.Config{AckTimeoutSeconds: 10, DeliveryMaxBackoffMS: 8000}
	if got, want := deliveryWaitTimeout(cfg), 15*time.Second; got != want {
		t.Fatalf("no retries: got %v, want %v", got, want)
	}

	cfg.DeliveryMaxRetries = 2
	if got, want := deliveryWaitTimeout(cfg), 30*time.Second+16*time.Second+5*time.Second; got != want {
		t.Fatalf("two retries: got %v, want %v", got, want)
	}

	cfg.DeliveryMaxRetries = -1
	if got, want := deliveryWaitTimeout(cfg), 15*time.Second; got != want {
		t.Fatalf("negative retries: got %v, want %v", got, want)
	}
}

func TestListenFirstFree_SkipsBusyPort(t *testing.T) {
	busy, port, err := listenFirstFree(20000 + int(time.Now().UnixNano()%20000))
	if err != nil {
		t.Fatalf("listenFirstFree: %v", err)
	}
	defer busy.Close()

	next, got, err := listenFirstFree(port)
	if err != nil {
		t.Fatalf("listenFirstFree: %v", err)
	}
	defer next.Close()
	if got <= port {
		t.Fatalf("expected a port above %d, got %d", port, got)
	}
}

func TestDiagnosticLogsKeepWarningsOnly(t *testing.T) {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	logs := newDiagnosticLogs()
	logger.AddHook(logs)

	logger.Info("Settings store ready")
	logger.Warn("JSON options not sent to watchface: busy")

	entries := logs.Entries()
	if len(entries) != 1 || entries[0].Message != "JSON options not sent to watchface: busy" {
		t.Fatalf("unexpected entries %+v", entries)
	}
}

func TestAnnouncePageOnOpen(t *testing.T) {
	logger, hook := test.NewNullLogger()
	webview := host.NewWebview(64, logger)
	webview.SetOnOpenCallback(announcePage(logger))

	url := "http://dustinhu.com/projects/library/MacroClock/Configuration.html"
	if err := webview.OpenURL(context.Background(), url); err != nil {
		t.Fatalf("OpenURL: %v", err)
	}

	entry := hook.LastEntry()
	if entry == nil || entry.Level != logrus.InfoLevel || entry.Data["url"] != url {
		t.Fatalf("expected page announcement, got %+v", entry)
	}
}
