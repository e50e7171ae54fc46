package state

import (
	"fmt"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/Kunal-1304/Android-device-monitoring/internal/models"
)

func newTestStore() *Store {
	return New(map[string]float64{
		"battery":      20,
		"ram_used":     85,
		"storage_used": 90,
	}, 100)
}

func snapshot(deviceID string, batteryPct float64) *models.Snapshot {
	return &models.Snapshot{
		DeviceID: deviceID,
		Groups: map[string]interface{}{
			"battery": map[string]interface{}{"percentage": batteryPct},
		},
		IngestedAt: time.Now().UTC(),
	}
}

func event(deviceID, rule string) models.AlertEvent {
	return models.AlertEvent{
		Timestamp: time.Now().UTC(),
		DeviceID:  deviceID,
		Rule:      rule,
		Message:   rule,
		Value:     1,
	}
}

func TestRecordSnapshot_LastWriteWins(t *testing.T) {
	s := newTestStore()

	s.RecordSnapshot("A1", snapshot("A1", 50))
	s.RecordSnapshot("A1", snapshot("A1", 15))

	reg := s.Registry()
	if len(reg) != 1 {
		t.Fatalf("expected 1 device, got %d", len(reg))
	}
	if v, _ := reg["A1"].Metric("battery", "percentage"); v != 15 {
		t.Errorf("expected latest snapshot to win, got battery %v", v)
	}
}

func TestRegistry_ReturnsCopies(t *testing.T) {
	s := newTestStore()
	s.RecordSnapshot("A1", snapshot("A1", 50))

	reg := s.Registry()
	reg["A1"].Groups["battery"].(map[string]interface{})["percentage"] = 1.0
	delete(reg, "A1")

	reg2 := s.Registry()
	if len(reg2) != 1 {
		t.Fatal("mutating a returned registry changed the store")
	}
	if v, _ := reg2["A1"].Metric("battery", "percentage"); v != 50 {
		t.Errorf("mutating a returned snapshot changed the store: got %v", v)
	}
}

func TestRecordSnapshot_CallerCannotMutateStore(t *testing.T) {
	s := newTestStore()
	snap := snapshot("A1", 50)
	s.RecordSnapshot("A1", snap)

	snap.Groups["battery"].(map[string]interface{})["percentage"] = 1.0

	if v, _ := s.Registry()["A1"].Metric("battery", "percentage"); v != 50 {
		t.Errorf("mutating the recorded snapshot changed the store: got %v", v)
	}
}

func TestRecentAlerts_Idempotent(t *testing.T) {
	s := newTestStore()
	s.AppendAlerts([]models.AlertEvent{
		event("A1", "battery-low"),
		event("A2", "ram-high"),
		event("A3", "storage-high"),
	})

	first := s.RecentAlerts(2)
	second := s.RecentAlerts(2)

	if !reflect.DeepEqual(first, second) {
		t.Error("two reads with no intervening writes returned different results")
	}
	if len(first) != 2 {
		t.Fatalf("expected 2 alerts, got %d", len(first))
	}
	if first[0].Rule != "ram-high" || first[1].Rule != "storage-high" {
		t.Errorf("expected the two newest alerts oldest-first, got %+v", first)
	}
}

func TestAppendAlerts_CapEviction(t *testing.T) {
	s := New(nil, 5)

	for i := 0; i < 8; i++ {
		s.AppendAlerts([]models.AlertEvent{event("A1", fmt.Sprintf("rule-%d", i))})
	}

	all := s.AllAlerts()
	if len(all) != 5 {
		t.Fatalf("expected log capped at 5, got %d", len(all))
	}
	if all[0].Rule != "rule-3" || all[4].Rule != "rule-7" {
		t.Errorf("expected oldest entries evicted, got %+v", all)
	}
}

func TestUpdateThresholds_Merge(t *testing.T) {
	s := newTestStore()

	limits, err := s.UpdateThresholds(map[string]float64{"battery": 10})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if limits["battery"] != 10 {
		t.Errorf("expected battery 10, got %v", limits["battery"])
	}
	if limits["ram_used"] != 85 || limits["storage_used"] != 90 {
		t.Errorf("untouched keys changed: %v", limits)
	}
	if s.Thresholds()["battery"] != 10 {
		t.Error("update not visible to a subsequent read")
	}
}

func TestUpdateThresholds_UnknownKeyRejected(t *testing.T) {
	s := newTestStore()

	_, err := s.UpdateThresholds(map[string]float64{"battery": 10, "bogus": 1})
	if err == nil {
		t.Fatal("expected unknown key to be rejected")
	}
	if s.Thresholds()["battery"] != 20 {
		t.Error("rejected update must leave all limits untouched")
	}
}

func TestThresholds_ReturnsCopy(t *testing.T) {
	s := newTestStore()

	limits := s.Thresholds()
	limits["battery"] = 1

	if s.Thresholds()["battery"] != 20 {
		t.Error("mutating a returned threshold map changed the store")
	}
}

func TestConcurrentRecording_DistinctDevices(t *testing.T) {
	s := newTestStore()
	const n = 50

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("device-%d", i)
			s.RecordSnapshot(id, snapshot(id, float64(i)))
		}(i)
	}
	wg.Wait()

	reg := s.Registry()
	if len(reg) != n {
		t.Fatalf("expected %d devices, got %d (lost updates)", n, len(reg))
	}
	for i := 0; i < n; i++ {
		id := fmt.Sprintf("device-%d", i)
		snap, ok := reg[id]
		if !ok {
			t.Fatalf("device %s missing from registry", id)
		}
		if v, _ := snap.Metric("battery", "percentage"); v != float64(i) {
			t.Errorf("device %s has wrong snapshot: battery %v", id, v)
		}
	}
}

func TestConcurrentAppendAlerts(t *testing.T) {
	s := New(nil, 1000)
	const writers = 10
	const perWriter = 20

	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < perWriter; j++ {
				s.AppendAlerts([]models.AlertEvent{event(fmt.Sprintf("d-%d", i), "battery-low")})
			}
		}(i)
	}
	wg.Wait()

	if got := s.AlertCount(); got != writers*perWriter {
		t.Errorf("expected %d alerts, got %d", writers*perWriter, got)
	}
}
