package state

import (
	"fmt"
	"sync"

	"github.com/Kunal-1304/Android-device-monitoring/internal/models"
)

// DefaultAlertCap bounds the in-memory alert log when the caller passes
// a non-positive capacity.
const DefaultAlertCap = 1000

// Store holds the mutable shared state of the monitoring server: the
// latest snapshot per device, a bounded alert log, and the live
// thresholds. Each structure has its own lock; no method takes more
// than one, and no lock is ever held across I/O. Every read returns
// copies, never references into live state.
type Store struct {
	regMu    sync.RWMutex
	registry map[string]*models.Snapshot

	alertMu  sync.RWMutex
	alerts   []models.AlertEvent
	alertCap int

	limitMu    sync.RWMutex
	thresholds map[string]float64
}

// New creates a store with the given initial thresholds and alert log
// capacity. The threshold map is copied; the caller's map stays theirs.
func New(thresholds map[string]float64, alertCap int) *Store {
	if alertCap <= 0 {
		alertCap = DefaultAlertCap
	}

	limits := make(map[string]float64, len(thresholds))
	for k, v := range thresholds {
		limits[k] = v
	}

	return &Store{
		registry:   make(map[string]*models.Snapshot),
		alerts:     make([]models.AlertEvent, 0, alertCap),
		alertCap:   alertCap,
		thresholds: limits,
	}
}

// RecordSnapshot replaces the device's snapshot. Last write by arrival
// wins; there is no merging with the previous snapshot. Keys are never
// removed, a device disappears only by ceasing to update.
func (s *Store) RecordSnapshot(deviceID string, snap *models.Snapshot) {
	s.regMu.Lock()
	defer s.regMu.Unlock()
	s.registry[deviceID] = snap.Clone()
}

// AppendAlerts adds events to the alert log in order, evicting the
// oldest entries once the capacity is reached.
func (s *Store) AppendAlerts(events []models.AlertEvent) {
	if len(events) == 0 {
		return
	}

	s.alertMu.Lock()
	defer s.alertMu.Unlock()

	s.alerts = append(s.alerts, events...)
	if over := len(s.alerts) - s.alertCap; over > 0 {
		s.alerts = append(s.alerts[:0], s.alerts[over:]...)
	}
}

// Registry returns a copy of the device table. Mutating the result has
// no effect on the store.
func (s *Store) Registry() map[string]*models.Snapshot {
	s.regMu.RLock()
	defer s.regMu.RUnlock()

	out := make(map[string]*models.Snapshot, len(s.registry))
	for id, snap := range s.registry {
		out[id] = snap.Clone()
	}
	return out
}

// RecentAlerts returns up to n of the newest alert events, oldest
// first. n <= 0 returns the whole retained log.
func (s *Store) RecentAlerts(n int) []models.AlertEvent {
	s.alertMu.RLock()
	defer s.alertMu.RUnlock()

	if n <= 0 || n > len(s.alerts) {
		n = len(s.alerts)
	}
	out := make([]models.AlertEvent, n)
	copy(out, s.alerts[len(s.alerts)-n:])
	return out
}

// AllAlerts returns a copy of the retained alert log, oldest first.
func (s *Store) AllAlerts() []models.AlertEvent {
	return s.RecentAlerts(0)
}

// AlertCount reports how many alert events are currently retained.
func (s *Store) AlertCount() int {
	s.alertMu.RLock()
	defer s.alertMu.RUnlock()
	return len(s.alerts)
}

// CurrentState returns the registry and the newest n alerts as one
// read. The two are copied under separate locks, so a snapshot may be
// visible before its alerts; alerts are advisory and that gap is
// accepted.
func (s *Store) CurrentState(recentAlerts int) (map[string]*models.Snapshot, []models.AlertEvent) {
	return s.Registry(), s.RecentAlerts(recentAlerts)
}

// Thresholds returns a copy of the live limits.
func (s *Store) Thresholds() map[string]float64 {
	s.limitMu.RLock()
	defer s.limitMu.RUnlock()

	out := make(map[string]float64, len(s.thresholds))
	for k, v := range s.thresholds {
		out[k] = v
	}
	return out
}

// UpdateThresholds merges the given keys into the live limits and
// returns the resulting full set. Unknown keys are rejected and leave
// the limits untouched. The update is visible to the next evaluation;
// evaluations already in flight keep the values they read.
func (s *Store) UpdateThresholds(partial map[string]float64) (map[string]float64, error) {
	s.limitMu.Lock()
	defer s.limitMu.Unlock()

	for k := range partial {
		if _, ok := s.thresholds[k]; !ok {
			return nil, fmt.Errorf("unknown threshold %q", k)
		}
	}
	for k, v := range partial {
		s.thresholds[k] = v
	}

	out := make(map[string]float64, len(s.thresholds))
	for k, v := range s.thresholds {
		out[k] = v
	}
	return out, nil
}
