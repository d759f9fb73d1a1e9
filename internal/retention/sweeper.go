// Package retention deletes historical snapshots and change artifacts
// that fall outside the retention window.
package retention

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"go.uber.org/multierr"

	"github.com/bcnelson/servicetag-watcher/internal/domain"
	"github.com/bcnelson/servicetag-watcher/internal/storage"
)

// Dated change artifacts swept from the changes directory.
var artifactSuffixes = []string{"-changes.json", "-changes.patch"}

// Sweeper removes data older than a retention window.
type Sweeper struct {
	store      storage.SnapshotStore
	changesDir string
	keep       time.Duration
	logger     log.Logger
}

// SweepResult reports what a sweep removed. Err aggregates every
// per-item failure; a non-nil Err does not mean the sweep stopped early.
type SweepResult struct {
	Cutoff           time.Time
	DeletedSnapshots []string
	DeletedFiles     []string
	Skipped          []string
	Err              error
}

// NewSweeper creates a sweeper. changesDir may be empty to sweep only the store.
func NewSweeper(store storage.SnapshotStore, changesDir string, keepWeeks int, logger log.Logger) *Sweeper {
	return &Sweeper{
		store:      store,
		changesDir: changesDir,
		keep:       time.Duration(keepWeeks) * 7 * 24 * time.Hour,
		logger:     logger,
	}
}

// Sweep deletes snapshots and change artifacts dated before now minus the
// retention window. Failures are logged and collected in the result.
func (s *Sweeper) Sweep(ctx context.Context, now time.Time) *SweepResult {
	res := &SweepResult{Cutoff: now.Add(-s.keep)}

	s.sweepStore(ctx, res)
	if s.changesDir != "" {
		s.sweepChanges(ctx, res)
	}

	level.Info(s.logger).Log(
		"msg", "retention sweep finished",
		"cutoff", res.Cutoff.Format(domain.DateLayout),
		"snapshots", len(res.DeletedSnapshots),
		"files", len(res.DeletedFiles),
		"skipped", len(res.Skipped),
		"errors", len(multierr.Errors(res.Err)),
	)
	return res
}

func (s *Sweeper) expired(date string, cutoff time.Time) (bool, error) {
	t, err := time.Parse(domain.DateLayout, date)
	if err != nil {
		return false, err
	}
	return t.Before(cutoff), nil
}

func (s *Sweeper) sweepStore(ctx context.Context, res *SweepResult) {
	dates, err := s.store.ListHistorical(ctx)
	if err != nil {
		level.Warn(s.logger).Log("msg", "could not list historical snapshots", "err", err)
		res.Err = multierr.Append(res.Err, fmt.Errorf("listing snapshots: %w", err))
		return
	}

	for _, date := range dates {
		if ctx.Err() != nil {
			res.Err = multierr.Append(res.Err, ctx.Err())
			return
		}
		old, err := s.expired(date, res.Cutoff)
		if err != nil {
			level.Warn(s.logger).Log("msg", "skipping snapshot with malformed date", "date", date, "err", err)
			res.Skipped = append(res.Skipped, date)
			continue
		}
		if !old {
			continue
		}
		if err := s.store.DeleteHistorical(ctx, date); err != nil {
			level.Warn(s.logger).Log("msg", "could not delete snapshot", "date", date, "err", err)
			res.Err = multierr.Append(res.Err, fmt.Errorf("deleting snapshot %s: %w", date, err))
			continue
		}
		level.Info(s.logger).Log("msg", "deleted old snapshot", "date", date)
		res.DeletedSnapshots = append(res.DeletedSnapshots, date)
	}
}

func (s *Sweeper) sweepChanges(ctx context.Context, res *SweepResult) {
	entries, err := os.ReadDir(s.changesDir)
	if err != nil {
		if os.IsNotExist(err) {
			return
		}
		level.Warn(s.logger).Log("msg", "could not read changes directory", "dir", s.changesDir, "err", err)
		res.Err = multierr.Append(res.Err, fmt.Errorf("reading changes directory: %w", err))
		return
	}

	for _, e := range entries {
		if ctx.Err() != nil {
			res.Err = multierr.Append(res.Err, ctx.Err())
			return
		}
		if e.IsDir() {
			continue
		}
		name := e.Name()
		date, ok := artifactDate(name)
		if !ok {
			continue
		}
		old, err := s.expired(date, res.Cutoff)
		if err != nil {
			level.Warn(s.logger).Log("msg", "skipping artifact with malformed name", "file", name, "err", err)
			res.Skipped = append(res.Skipped, name)
			continue
		}
		if !old {
			continue
		}
		path := filepath.Join(s.changesDir, name)
		if err := os.Remove(path); err != nil {
			level.Warn(s.logger).Log("msg", "could not delete artifact", "path", path, "err", err)
			res.Err = multierr.Append(res.Err, fmt.Errorf("deleting %s: %w", name, err))
			continue
		}
		level.Info(s.logger).Log("msg", "deleted old artifact", "path", path)
		res.DeletedFiles = append(res.DeletedFiles, name)
	}
}

// artifactDate returns the date part of a dated change artifact name.
// Names like latest-changes.json that do not start with a digit are not
// dated artifacts.
func artifactDate(name string) (string, bool) {
	for _, suffix := range artifactSuffixes {
		if stem, ok := strings.CutSuffix(name, suffix); ok {
			if stem == "" || stem[0] < '0' || stem[0] > '9' {
				return "", false
			}
			return stem, true
		}
	}
	return "", false
}
