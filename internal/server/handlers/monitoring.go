package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"git.home.luguber.info/inful/aliasdoc/internal/foundation/errors"
	"git.home.luguber.info/inful/aliasdoc/internal/server/responses"
	"git.home.luguber.info/inful/aliasdoc/internal/version"
)

// MonitoringHandlers contains monitoring-related HTTP handlers.
type MonitoringHandlers struct {
	start        time.Time
	ledger       bool
	notify       bool
	errorAdapter *errors.HTTPErrorAdapter
}

// NewMonitoringHandlers creates a new monitoring handlers instance. The flags
// report which optional backends are enabled.
func NewMonitoringHandlers(start time.Time, ledgerEnabled, notifyEnabled bool) *MonitoringHandlers {
	return &MonitoringHandlers{
		start:        start,
		ledger:       ledgerEnabled,
		notify:       notifyEnabled,
		errorAdapter: errors.NewHTTPErrorAdapter(slog.Default()),
	}
}

func enabled(on bool) string {
	if on {
		return "enabled"
	}
	return "disabled"
}

// HandleHealthCheck handles the health check endpoint.
func (h *MonitoringHandlers) HandleHealthCheck(w http.ResponseWriter, r *http.Request) {
	health := &responses.HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC(),
		Version:   version.Version,
		Uptime:    time.Since(h.start).Seconds(),
		Ledger:    enabled(h.ledger),
		Notify:    enabled(h.notify),
	}
	if err := writeJSON(w, http.StatusOK, health); err != nil {
		h.errorAdapter.WriteErrorResponse(w, r,
			errors.WrapError(err, errors.CategoryInternal, "failed to write health response").Build())
	}
}
