package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "server:\n  addr: \":8080\"\n"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Schedule.CheckInHour != 8 {
		t.Errorf("CheckInHour = %d, want 8", cfg.Schedule.CheckInHour)
	}
	if cfg.Schedule.MaintenanceHour != 1 {
		t.Errorf("MaintenanceHour = %d, want 1", cfg.Schedule.MaintenanceHour)
	}
	if cfg.Schedule.ResinThreshold != 140 {
		t.Errorf("ResinThreshold = %d, want 140", cfg.Schedule.ResinThreshold)
	}
	if got := cfg.Schedule.TickInterval(); got != 10*time.Minute {
		t.Errorf("TickInterval = %v, want 10m", got)
	}
	if got := cfg.Schedule.Expiry(); got != 30*24*time.Hour {
		t.Errorf("Expiry = %v, want 720h", got)
	}
	if got := cfg.Schedule.SubscriberGap(); got != 2*time.Second {
		t.Errorf("SubscriberGap = %v, want 2s", got)
	}
}

func TestLoadRejectsNonDividingTick(t *testing.T) {
	_, err := Load(writeConfig(t, "schedule:\n  tickIntervalMin: 7\n"))
	if err == nil {
		t.Fatal("tick interval of 7 minutes accepted; it cannot divide the hour evenly")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("missing config file accepted")
	}
}
