package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFromEnvDefaults(t *testing.T) {
	for _, key := range []string{"PORT", "STORE_BACKEND", "CONFIG_LAYOUT", "STORAGE_KEY", "ACK_TIMEOUT_SECONDS", "DELIVERY_MAX_RETRIES"} {
		t.Setenv(key, "")
	}

	cfg := FromEnv()
	if cfg.Port != 7790 {
		t.Fatalf("Port = %d, want 7790", cfg.Port)
	}
	if cfg.StoreBackend != "sqlite" {
		t.Fatalf("StoreBackend = %q", cfg.StoreBackend)
	}
	if cfg.ConfigHost != "dustinhu.com/projects/library/MacroClock" {
		t.Fatalf("ConfigHost = %q", cfg.ConfigHost)
	}
	if cfg.ConfigLayout != "classic" || cfg.StorageKey != "macroClockOptions" {
		t.Fatalf("layout/key = %q/%q", cfg.ConfigLayout, cfg.StorageKey)
	}
	if cfg.AckTimeoutSeconds != 10 || cfg.DeliveryMaxRetries != 0 {
		t.Fatalf("delivery defaults = %d/%d", cfg.AckTimeoutSeconds, cfg.DeliveryMaxRetries)
	}
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("STORE_BACKEND", "pebble")
	t.Setenv("CONFIG_LAYOUT", "beta")
	t.Setenv("BADGER_SYNC_WRITES", "false")
	t.Setenv("DELIVERY_MAX_RETRIES", "3")
	t.Setenv("ACK_TIMEOUT_SECONDS", "not-a-number")

	cfg := FromEnv()
	if cfg.Port != 9000 || cfg.StoreBackend != "pebble" || cfg.ConfigLayout != "beta" {
		t.Fatalf("unexpected overrides %+v", cfg)
	}
	if cfg.BadgerSyncWrites {
		t.Fatalf("BadgerSyncWrites should be false")
	}
	if cfg.DeliveryMaxRetries != 3 {
		t.Fatalf("DeliveryMaxRetries = %d", cfg.DeliveryMaxRetries)
	}
	if cfg.AckTimeoutSeconds != 10 {
		t.Fatalf("invalid int should fall back to default, got %d", cfg.AckTimeoutSeconds)
	}
}

func TestLoadDotEnv(t *testing.T) {
	if err := LoadDotEnv(filepath.Join(t.TempDir(), "missing.env")); err != nil {
		t.Fatalf("missing file should be ignored: %v", err)
	}

	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("STORAGE_KEY=fromDotEnv\nPORT=7801\n"), 0600); err != nil {
		t.Fatalf("write: %v", err)
	}
	// godotenv never overrides variables that are already present.
	t.Setenv("STORAGE_KEY", "")
	os.Unsetenv("STORAGE_KEY")
	t.Setenv("PORT", "7802")

	if err := LoadDotEnv(path); err != nil {
		t.Fatalf("LoadDotEnv: %v", err)
	}
	cfg := FromEnv()
	if cfg.StorageKey != "fromDotEnv" {
		t.Fatalf("StorageKey = %q", cfg.StorageKey)
	}
	if cfg.Port != 7802 {
		t.Fatalf("existing env must win over .env, Port = %d", cfg.Port)
	}
}
