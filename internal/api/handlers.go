package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/Kunal-1304/Android-device-monitoring/internal/models"
	"github.com/Kunal-1304/Android-device-monitoring/internal/state"
)

// recentAlertCount is how many alerts the dashboard summary shows.
const recentAlertCount = 10

// Handler exposes the read-only query surface over the state store,
// plus the one mutation: partial threshold updates. All responses are
// built from store copies, so the dashboard can always render
// last-known-good state whatever the ingest side is doing.
type Handler struct {
	store *state.Store
}

// NewHandler creates the query handler.
func NewHandler(store *state.Store) *Handler {
	return &Handler{store: store}
}

// DataResponse is the dashboard summary payload.
type DataResponse struct {
	Devices map[string]*models.Snapshot `json:"devices"`
	Alerts  []models.AlertEvent         `json:"alerts"`
	Status  string                      `json:"status"`
}

// LogsResponse carries the retained alert log.
type LogsResponse struct {
	Alerts []models.AlertEvent `json:"alerts"`
}

// LimitsResponse carries the full threshold set.
type LimitsResponse struct {
	Status string             `json:"status"`
	Limits map[string]float64 `json:"limits"`
}

// Data handles GET /data: device registry + recent alerts + status.
func (h *Handler) Data(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	devices, alerts := h.store.CurrentState(recentAlertCount)
	h.writeJSON(w, http.StatusOK, DataResponse{
		Devices: devices,
		Alerts:  alerts,
		Status:  "ok",
	})
}

// Logs handles GET /logs: the full retained alert log.
func (h *Handler) Logs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	h.writeJSON(w, http.StatusOK, LogsResponse{Alerts: h.store.AllAlerts()})
}

// Limits handles GET /limits (current thresholds) and POST /limits
// (partial update). Unknown keys are rejected and nothing changes; an
// accepted update is effective for the very next evaluation.
func (h *Handler) Limits(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.writeJSON(w, http.StatusOK, LimitsResponse{
			Status: "ok",
			Limits: h.store.Thresholds(),
		})

	case http.MethodPost:
		var partial map[string]float64
		if err := json.NewDecoder(r.Body).Decode(&partial); err != nil {
			h.writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON: %v", err))
			return
		}
		if len(partial) == 0 {
			h.writeError(w, http.StatusBadRequest, "no limits provided")
			return
		}

		limits, err := h.store.UpdateThresholds(partial)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		h.writeJSON(w, http.StatusOK, LimitsResponse{
			Status: "ok",
			Limits: limits,
		})

	default:
		h.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// Health handles liveness checks.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, `{"status":"healthy","timestamp":"%s"}`, time.Now().Format(time.RFC3339))
}

// writeJSON writes a JSON response
func (h *Handler) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes an error response
func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status": "error",
		"error":  message,
	})
}
