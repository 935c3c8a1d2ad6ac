package errors

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// HTTPErrorAdapter writes classified errors as JSON responses.
type HTTPErrorAdapter struct {
	logger *slog.Logger
}

// NewHTTPErrorAdapter returns an adapter logging to logger, or slog.Default.
func NewHTTPErrorAdapter(logger *slog.Logger) *HTTPErrorAdapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &HTTPErrorAdapter{logger: logger}
}

// HTTPErrorResponse is the JSON body of every error response.
type HTTPErrorResponse struct {
	Error     string         `json:"error"`
	Code      string         `json:"code,omitempty"`
	Details   map[string]any `json:"details,omitempty"`
	Retryable bool           `json:"retryable,omitempty"`
}

// StatusCodeFor maps err to a status via its category. Unclassified errors are 500.
func (a *HTTPErrorAdapter) StatusCodeFor(err error) int {
	if err == nil {
		return http.StatusOK
	}
	return routeFor(err).status
}

// WriteErrorResponse writes err and logs it at the level of its severity.
func (a *HTTPErrorAdapter) WriteErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	if err == nil {
		w.WriteHeader(http.StatusOK)
		return
	}
	status := a.StatusCodeFor(err)

	body, jerr := json.Marshal(a.FormatErrorResponse(err))
	if jerr != nil {
		body = []byte(`{"error":"internal error"}`)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)

	level := slog.LevelError
	if c, ok := AsClassified(err); ok {
		level = severityLevel(c.severity)
	}
	a.logger.Log(r.Context(), level, err.Error(), slog.Int("status", status))
}

// FormatErrorResponse builds the payload. Context entries become details.
func (a *HTTPErrorAdapter) FormatErrorResponse(err error) HTTPErrorResponse {
	if err == nil {
		return HTTPErrorResponse{}
	}
	c, ok := AsClassified(err)
	if !ok {
		return HTTPErrorResponse{Error: err.Error()}
	}
	resp := HTTPErrorResponse{Error: c.message, Code: string(c.category)}
	if len(c.context) > 0 {
		resp.Details = make(map[string]any, len(c.context)+1)
		for k, v := range c.context {
			resp.Details[k] = v
		}
	}
	if c.CanRetry() {
		resp.Retryable = true
		if resp.Details == nil {
			resp.Details = make(map[string]any, 1)
		}
		resp.Details["retryable"] = true
	}
	return resp
}
