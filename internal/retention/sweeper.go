// Package retention removes stale bundle output on a schedule.
package retention

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"git.home.luguber.info/inful/aliasdoc/internal/bundle"
	"git.home.luguber.info/inful/aliasdoc/internal/foundation/errors"
	"git.home.luguber.info/inful/aliasdoc/internal/logfields"
)

// DefaultStagingMaxAge is how long a staging directory may live before it
// is considered abandoned.
const DefaultStagingMaxAge = time.Hour

// Policy says what a sweep removes. A zero ArchiveMaxAge keeps archives.
type Policy struct {
	ArchiveMaxAge time.Duration
	StagingMaxAge time.Duration
}

// Stats summarizes one sweep.
type Stats struct {
	Archives int
	Staging  int
	Failed   int
}

// Sweeper removes stale entries from one output directory.
type Sweeper struct {
	dir    string
	policy Policy
	now    func() time.Time
	logger *slog.Logger
}

// NewSweeper returns a sweeper for dir.
func NewSweeper(dir string, policy Policy, logger *slog.Logger) *Sweeper {
	if policy.StagingMaxAge <= 0 {
		policy.StagingMaxAge = DefaultStagingMaxAge
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Sweeper{dir: dir, policy: policy, now: time.Now, logger: logger}
}

// Sweep removes abandoned staging directories and expired archives.
// A missing output directory is not an error.
func (s *Sweeper) Sweep(ctx context.Context) (Stats, error) {
	var stats Stats

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return stats, nil
		}
		return stats, errors.WrapError(err, errors.CategoryFileSystem, "read output directory").
			WithContext("path", s.dir).Build()
	}

	now := s.now()
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		name := entry.Name()
		var maxAge time.Duration
		switch {
		case entry.IsDir() && strings.HasPrefix(name, bundle.StagingPrefix):
			maxAge = s.policy.StagingMaxAge
		case !entry.IsDir() && strings.HasSuffix(name, bundle.ArchiveExt) && s.policy.ArchiveMaxAge > 0:
			maxAge = s.policy.ArchiveMaxAge
		default:
			continue
		}

		info, err := entry.Info()
		if err != nil {
			// removed concurrently
			continue
		}
		if now.Sub(info.ModTime()) < maxAge {
			continue
		}

		path := filepath.Join(s.dir, name)
		if err := os.RemoveAll(path); err != nil {
			stats.Failed++
			s.logger.Warn("Failed to remove stale output", logfields.Path(path), logfields.Error(err))
			continue
		}
		if entry.IsDir() {
			stats.Staging++
		} else {
			stats.Archives++
		}
		s.logger.Debug("Removed stale output", logfields.Path(path))
	}

	if stats.Archives+stats.Staging+stats.Failed > 0 {
		s.logger.Info("Retention sweep finished",
			slog.Int("archives", stats.Archives),
			slog.Int("staging", stats.Staging),
			slog.Int("failed", stats.Failed))
	}
	return stats, nil
}
