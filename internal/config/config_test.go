package config

import (
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.IngestAddr != ":5001" {
		t.Errorf("expected ingest addr :5001, got %q", cfg.IngestAddr)
	}
	if cfg.APIAddr != ":5000" {
		t.Errorf("expected api addr :5000, got %q", cfg.APIAddr)
	}
	if cfg.ReadTimeout != 10*time.Second {
		t.Errorf("expected 10s read timeout, got %v", cfg.ReadTimeout)
	}
	if cfg.MaxConns != 64 {
		t.Errorf("expected 64 max conns, got %d", cfg.MaxConns)
	}
	if cfg.AlertLogCap != 1000 {
		t.Errorf("expected alert log cap 1000, got %d", cfg.AlertLogCap)
	}

	want := map[string]float64{"battery": 20, "ram_used": 85, "storage_used": 90}
	for k, v := range want {
		if cfg.Thresholds[k] != v {
			t.Errorf("expected threshold %s=%v, got %v", k, v, cfg.Thresholds[k])
		}
	}

	if cfg.Notify.Workers != 2 {
		t.Errorf("expected 2 notify workers, got %d", cfg.Notify.Workers)
	}
	if cfg.Notify.KafkaBrokers != "" {
		t.Errorf("expected kafka disabled by default, got %q", cfg.Notify.KafkaBrokers)
	}
}
