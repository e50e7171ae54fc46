package models

import (
	"time"
)

// Snapshot is the latest metric bundle reported by a single device.
// Groups maps a metric-group name ("battery", "ram", "full_storage", ...)
// to whatever structure the device sent for it. Devices are free to send
// groups the server has no rules for; they are stored as-is.
type Snapshot struct {
	// Device-supplied identifier, empty if the payload carried none
	DeviceID string `json:"device_id,omitempty"`

	// Metric groups exactly as decoded from the payload
	Groups map[string]interface{} `json:"groups"`

	// Server-assigned receive time (devices do not set this)
	IngestedAt time.Time `json:"ingested_at"`
}

// AlertEvent is a single rule violation, immutable once created.
type AlertEvent struct {
	// When the triggering snapshot was ingested
	Timestamp time.Time `json:"timestamp"`

	// Device the snapshot came from (id or address fallback)
	DeviceID string `json:"device_id"`

	// Name of the rule that fired, e.g. "battery-low"
	Rule string `json:"rule"`

	// Human-readable description, e.g. "battery low: 15%"
	Message string `json:"message"`

	// The metric value that tripped the rule
	Value float64 `json:"value"`
}

// Metric extracts a numeric field from a snapshot group. The second
// return is false when the group or field is missing or the value is
// not numeric; callers cannot distinguish the two, and neither case is
// an error. Heterogeneous device payloads make absence routine.
func (s *Snapshot) Metric(group, field string) (float64, bool) {
	raw, ok := s.Groups[group]
	if !ok {
		return 0, false
	}

	fields, ok := raw.(map[string]interface{})
	if !ok {
		return 0, false
	}

	return toFloat(fields[field])
}

// toFloat converts the numeric types a decoded payload or an in-process
// caller can plausibly hand us. Everything else is "no value".
func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

// Clone returns a deep copy of the snapshot so readers never share
// mutable structure with the store.
func (s *Snapshot) Clone() *Snapshot {
	c := &Snapshot{
		DeviceID:   s.DeviceID,
		Groups:     cloneValue(s.Groups).(map[string]interface{}),
		IngestedAt: s.IngestedAt,
	}
	return c
}

func cloneValue(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		m := make(map[string]interface{}, len(t))
		for k, e := range t {
			m[k] = cloneValue(e)
		}
		return m
	case []interface{}:
		s := make([]interface{}, len(t))
		for i, e := range t {
			s[i] = cloneValue(e)
		}
		return s
	default:
		return v
	}
}
