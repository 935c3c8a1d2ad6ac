// Package notify announces written bundles to other systems.
package notify

import (
	"context"
	"time"

	"git.home.luguber.info/inful/aliasdoc/internal/bundle"
)

// EventBundleCreated is the type of BundleCreated events.
const EventBundleCreated = "bundle.created"

// BundleCreated is published once per archive.
type BundleCreated struct {
	Type        string    `json:"type"`
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Fingerprint string    `json:"fingerprint"`
	OutputPath  string    `json:"outputDir"`
	Images      int       `json:"images"`
	Tags        []string  `json:"tags,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// NewBundleCreated builds the event for res.
func NewBundleCreated(res *bundle.Result, tags []string) BundleCreated {
	return BundleCreated{
		Type:        EventBundleCreated,
		ID:          res.ID,
		Title:       res.Title,
		Fingerprint: res.Fingerprint,
		OutputPath:  res.OutputPath,
		Images:      res.Images,
		Tags:        tags,
		Timestamp:   res.CreatedAt,
	}
}

// Publisher delivers bundle events.
type Publisher interface {
	PublishBundleCreated(ctx context.Context, event BundleCreated) error
	Close() error
}

// NoopPublisher drops every event.
type NoopPublisher struct{}

func (NoopPublisher) PublishBundleCreated(context.Context, BundleCreated) error { return nil }
func (NoopPublisher) Close() error                                              { return nil }
