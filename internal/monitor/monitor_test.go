package monitor

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/Kunal-1304/Android-device-monitoring/internal/config"
	"github.com/Kunal-1304/Android-device-monitoring/internal/logger"
)

func TestMain(m *testing.M) {
	logger.Init("error")
	os.Exit(m.Run())
}

func testConfig() *config.Config {
	cfg := config.Default()
	// Ephemeral ports so tests do not collide
	cfg.IngestAddr = "127.0.0.1:0"
	cfg.APIAddr = "127.0.0.1:0"
	return cfg
}

func TestMonitor_GracefulShutdown(t *testing.T) {
	m := New(testConfig())

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		done <- m.Run(ctx)
	}()

	// Give it time to start
	time.Sleep(100 * time.Millisecond)

	if m.IngestAddr() == "" {
		t.Error("expected ingest listener to be bound")
	}

	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("expected nil error on graceful shutdown, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("monitor did not shut down in time")
	}
}
