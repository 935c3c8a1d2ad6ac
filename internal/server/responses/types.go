// Package responses defines API response types used by the aliasdoc HTTP handlers.
package responses

import (
	"time"

	"git.home.luguber.info/inful/aliasdoc/internal/bundle"
	"git.home.luguber.info/inful/aliasdoc/internal/ledger"
)

// HealthResponse represents the health check API response.
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Version   string    `json:"version"`
	Uptime    float64   `json:"uptime"`
	Ledger    string    `json:"ledger"`
	Notify    string    `json:"notify"`
}

// ParseRequest is the body of POST /api/parse.
type ParseRequest struct {
	RawDocument string `json:"rawDocument"`
}

// BundleRequest is the body of POST /bundle_document. parsedDocument is
// accepted for compatibility and ignored: documents are always re-validated.
type BundleRequest struct {
	RawDocument    string      `json:"rawDocument"`
	ParsedDocument any         `json:"parsedDocument,omitempty"`
	DocumentMeta   bundle.Meta `json:"documentMeta"`
}

// BundleResponse acknowledges a written archive.
type BundleResponse struct {
	TimeStamp string `json:"timeStamp"`
	OutputDir string `json:"outputDir"`
	ID        string `json:"id"`
}

// NewBundleResponse converts a bundle result.
func NewBundleResponse(res *bundle.Result) BundleResponse {
	return BundleResponse{TimeStamp: res.Timestamp, OutputDir: res.OutputPath, ID: res.ID}
}

// BundleListResponse lists ledger records, newest first.
type BundleListResponse struct {
	Bundles []ledger.Record `json:"bundles"`
	Count   int             `json:"count"`
}
