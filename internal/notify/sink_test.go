package notify

import (
	"context"
	"testing"
)

func TestLogSink_Send(t *testing.T) {
	s := NewLogSink()

	if err := s.Send(context.Background(), "A1", "alert from A1: battery low: 15%"); err != nil {
		t.Errorf("log sink delivery must not fail: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Errorf("close: %v", err)
	}
}
