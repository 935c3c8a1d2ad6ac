// Package ledger keeps a persistent record of every bundle written.
package ledger

import (
	"context"
	"time"

	"git.home.luguber.info/inful/aliasdoc/internal/bundle"
)

// DefaultListLimit caps List when no positive limit is given.
const DefaultListLimit = 50

// Record is one ledger row.
type Record struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Fingerprint string    `json:"fingerprint"`
	Path        string    `json:"outputDir"`
	Images      int       `json:"images"`
	Tags        []string  `json:"tags,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// FromBundle builds the record for a freshly written bundle.
func FromBundle(res *bundle.Result, tags []string) Record {
	return Record{
		ID:          res.ID,
		Title:       res.Title,
		Fingerprint: res.Fingerprint,
		Path:        res.OutputPath,
		Images:      res.Images,
		Tags:        tags,
		CreatedAt:   res.CreatedAt,
	}
}

// Store persists bundle records.
type Store interface {
	// Append adds a record. IDs are unique.
	Append(ctx context.Context, rec Record) error

	// List returns the newest records first.
	List(ctx context.Context, limit int) ([]Record, error)

	// Get returns one record or a not_found classified error.
	Get(ctx context.Context, id string) (Record, error)

	// Close releases the underlying database.
	Close() error
}
