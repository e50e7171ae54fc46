package rules

import (
	"fmt"
	"sort"

	"github.com/Kunal-1304/Android-device-monitoring/internal/models"
)

// Direction says which side of the limit trips a rule.
type Direction int

const (
	// Below triggers when value < limit (e.g. battery percentage)
	Below Direction = iota
	// Above triggers when value > limit (e.g. RAM usage)
	Above
)

// Rule is one threshold check. Rules are data: adding a metric means
// adding a table entry, not new branching logic.
type Rule struct {
	// Rule name, used in alert events and logs, e.g. "battery-low"
	Name string

	// Key into the threshold map for this rule's limit
	ThresholdKey string

	// Metric path within a snapshot
	Group string
	Field string

	// Which side of the limit fires the rule
	Direction Direction

	// Message format, receives the metric value
	Template string
}

// Evaluator applies a fixed rule table against live thresholds.
// Evaluation order is stable (alphabetical by rule name) so the alert
// log ordering is reproducible.
type Evaluator struct {
	rules []Rule
}

// DefaultRules covers the three metric groups the stock device client
// reports. Threshold keys match the original limit names.
func DefaultRules() []Rule {
	return []Rule{
		{
			Name:         "battery-low",
			ThresholdKey: "battery",
			Group:        "battery",
			Field:        "percentage",
			Direction:    Below,
			Template:     "battery low: %.0f%%",
		},
		{
			Name:         "ram-high",
			ThresholdKey: "ram_used",
			Group:        "ram",
			Field:        "used_percent",
			Direction:    Above,
			Template:     "ram high: %.0f%%",
		},
		{
			Name:         "storage-high",
			ThresholdKey: "storage_used",
			Group:        "full_storage",
			Field:        "used_percent",
			Direction:    Above,
			Template:     "storage high: %.0f%%",
		},
	}
}

// NewEvaluator builds an evaluator from a rule table. The table is
// copied and sorted by rule name.
func NewEvaluator(table []Rule) *Evaluator {
	rules := make([]Rule, len(table))
	copy(rules, table)
	sort.Slice(rules, func(i, j int) bool { return rules[i].Name < rules[j].Name })
	return &Evaluator{rules: rules}
}

// Evaluate runs every rule against the snapshot. Missing or non-numeric
// metrics are skipped silently; a rule whose threshold key is absent
// from the map is skipped too. Comparison is strict: a value exactly at
// the limit does not trigger.
func (e *Evaluator) Evaluate(snap *models.Snapshot, thresholds map[string]float64) []models.AlertEvent {
	var events []models.AlertEvent

	for _, r := range e.rules {
		value, ok := snap.Metric(r.Group, r.Field)
		if !ok {
			continue
		}

		limit, ok := thresholds[r.ThresholdKey]
		if !ok {
			continue
		}

		triggered := false
		switch r.Direction {
		case Below:
			triggered = value < limit
		case Above:
			triggered = value > limit
		}
		if !triggered {
			continue
		}

		events = append(events, models.AlertEvent{
			Timestamp: snap.IngestedAt,
			DeviceID:  snap.DeviceID,
			Rule:      r.Name,
			Message:   fmt.Sprintf(r.Template, value),
			Value:     value,
		})
	}

	return events
}
