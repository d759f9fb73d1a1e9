package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/google/uuid"

	"github.com/bcnelson/servicetag-watcher/internal/dashboard"
	"github.com/bcnelson/servicetag-watcher/internal/detector"
	"github.com/bcnelson/servicetag-watcher/internal/domain"
	"github.com/bcnelson/servicetag-watcher/internal/metrics"
	"github.com/bcnelson/servicetag-watcher/internal/retention"
	"github.com/bcnelson/servicetag-watcher/internal/source"
	"github.com/bcnelson/servicetag-watcher/internal/storage"
	"github.com/bcnelson/servicetag-watcher/internal/summary"
	"github.com/bcnelson/servicetag-watcher/internal/validation"
)

// maxLoggedValidationErrors bounds the validation warnings logged per run.
const maxLoggedValidationErrors = 20

// Publisher uploads the data directory after a run.
type Publisher interface {
	Publish(ctx context.Context, dir string) (int, error)
}

// Dependencies are the collaborators of an UpdateService. Source, Store
// and Writer are required; the rest are optional.
type Dependencies struct {
	Source    source.Source
	Store     storage.SnapshotStore
	Writer    *dashboard.Writer
	Sweeper   *retention.Sweeper
	Recorder  metrics.Recorder
	Publisher Publisher
	Logger    log.Logger

	// Clock returns the current time. Defaults to time.Now.
	Clock func() time.Time
}

// RunOptions controls a single update run.
type RunOptions struct {
	// Baseline skips loading the prior snapshot, so no changes are reported.
	Baseline bool
}

// UpdateService fetches the dataset, detects changes against the stored
// snapshot and writes every dashboard artifact.
type UpdateService struct {
	deps Dependencies

	// mu serializes runs.
	mu sync.Mutex
}

// NewUpdateService creates a new UpdateService.
func NewUpdateService(deps Dependencies) *UpdateService {
	if deps.Logger == nil {
		deps.Logger = log.NewNopLogger()
	}
	if deps.Clock == nil {
		deps.Clock = time.Now
	}
	return &UpdateService{deps: deps}
}

// Run performs one update. A fetch failure or a failure to persist the
// snapshot, change log or summary aborts the run; everything after that is
// best-effort and only logged.
func (s *UpdateService) Run(ctx context.Context, opts RunOptions) (*domain.RunResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	logger := log.With(s.deps.Logger, "component", "update")
	startedAt := s.deps.Clock().UTC()
	res := &domain.RunResult{
		RunID:     uuid.New().String(),
		Date:      startedAt.Format(domain.DateLayout),
		Baseline:  opts.Baseline,
		StartedAt: startedAt,
	}
	logger = log.With(logger, "run_id", res.RunID)
	level.Info(logger).Log("msg", "update started", "date", res.Date, "baseline", opts.Baseline)

	latest, err := s.deps.Source.Fetch(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching dataset: %w", err)
	}

	if errs := validation.ValidateDataset(latest); errs.HasErrors() {
		for _, e := range errs.First(maxLoggedValidationErrors) {
			level.Warn(logger).Log("msg", "dataset validation", "field", e.Field, "value", e.Value, "err", e.Message)
		}
		level.Warn(logger).Log("msg", "dataset has validation problems", "count", len(errs))
	}

	var prior *domain.Dataset
	if !opts.Baseline {
		prior = s.loadPrior(ctx, logger)
	}
	res.HadPrior = prior != nil

	res.Changes = detector.Detect(prior, latest)
	if prior == nil && !opts.Baseline {
		level.Info(logger).Log("msg", "no prior snapshot, treating as first run")
	}

	dates := s.availableDates(ctx, logger, res.Date)
	res.Summary = summary.Generate(latest, res.Changes, dates, startedAt)

	if err := s.deps.Store.PutCurrent(ctx, latest); err != nil {
		return nil, fmt.Errorf("saving current snapshot: %w", err)
	}
	if err := s.deps.Store.PutHistorical(ctx, res.Date, latest); err != nil {
		return nil, fmt.Errorf("saving historical snapshot: %w", err)
	}
	level.Info(logger).Log("msg", "saved snapshot", "date", res.Date, "services", len(latest.Values))

	if _, err := s.deps.Writer.WriteChangeLog(dashboard.ChangeLogInput{
		Date:    res.Date,
		RunID:   res.RunID,
		Changes: res.Changes,
		Latest:  latest,
		Now:     startedAt,
	}); err != nil {
		return nil, err
	}
	if err := s.deps.Writer.WritePatch(res.Date, prior, latest, res.Changes); err != nil {
		level.Warn(logger).Log("msg", "could not write patch", "err", err)
	}
	if err := s.deps.Writer.WriteSummary(res.Summary); err != nil {
		return nil, err
	}

	if s.deps.Sweeper != nil {
		s.deps.Sweeper.Sweep(ctx, startedAt)
	}

	// The manifest is built after the sweep so it never lists deleted logs.
	if _, err := s.deps.Writer.WriteManifest(startedAt); err != nil {
		level.Warn(logger).Log("msg", "could not update manifest", "err", err)
	}

	res.CompletedAt = s.deps.Clock().UTC()

	if s.deps.Recorder != nil {
		if err := s.deps.Recorder.Record(ctx, res); err != nil {
			level.Warn(logger).Log("msg", "could not record metrics", "err", err)
		}
	}
	if s.deps.Publisher != nil {
		if _, err := s.deps.Publisher.Publish(ctx, s.deps.Writer.Dir()); err != nil {
			level.Warn(logger).Log("msg", "could not publish data directory", "err", err)
		}
	}

	level.Info(logger).Log(
		"msg", "update completed",
		"total_services", res.Summary.TotalServices,
		"total_ip_ranges", res.Summary.TotalIPRanges,
		"changes", res.Summary.ChangesThisWeek,
		"ip_changes", res.Summary.IPChanges,
		"service_additions", res.Summary.ServiceAdditions,
		"service_removals", res.Summary.ServiceRemovals,
		"duration", res.CompletedAt.Sub(res.StartedAt),
	)
	return res, nil
}

// loadPrior returns the stored current snapshot, or nil when there is none
// or it cannot be read.
func (s *UpdateService) loadPrior(ctx context.Context, logger log.Logger) *domain.Dataset {
	prior, err := s.deps.Store.GetCurrent(ctx)
	switch {
	case err == nil:
		level.Info(logger).Log("msg", "loaded prior snapshot", "services", len(prior.Values), "change_number", prior.ChangeNumber)
		return prior
	case errors.Is(err, domain.ErrNotFound):
		return nil
	case errors.Is(err, domain.ErrCorrupt):
		level.Warn(logger).Log("msg", "prior snapshot is corrupt, ignoring it", "err", err)
		return nil
	default:
		level.Warn(logger).Log("msg", "could not load prior snapshot", "err", err)
		return nil
	}
}

// availableDates lists stored snapshot dates plus today, which is about to
// be written. A listing failure yields an empty list.
func (s *UpdateService) availableDates(ctx context.Context, logger log.Logger, today string) []string {
	dates, err := s.deps.Store.ListHistorical(ctx)
	if err != nil {
		level.Warn(logger).Log("msg", "could not list historical snapshots", "err", err)
		return []string{}
	}
	for _, d := range dates {
		if d == today {
			return dates
		}
	}
	return append(dates, today)
}
