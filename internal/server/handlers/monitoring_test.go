package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/aliasdoc/internal/server/responses"
)

func TestHandleHealthCheck(t *testing.T) {
	h := NewMonitoringHandlers(time.Now().Add(-time.Minute), true, false)

	w := httptest.NewRecorder()
	h.HandleHealthCheck(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var health responses.HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &health))
	assert.Equal(t, "healthy", health.Status)
	assert.Equal(t, "enabled", health.Ledger)
	assert.Equal(t, "disabled", health.Notify)
	assert.GreaterOrEqual(t, health.Uptime, 60.0)
}
