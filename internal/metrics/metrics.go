// Package metrics exports per-run statistics to Prometheus and InfluxDB.
package metrics

import (
	"context"

	"go.uber.org/multierr"

	"github.com/bcnelson/servicetag-watcher/internal/domain"
)

// Recorder records the outcome of an update run.
type Recorder interface {
	Record(ctx context.Context, res *domain.RunResult) error
}

// Multi fans a run out to several recorders. Every recorder is called even
// when an earlier one fails.
type Multi []Recorder

// Record implements Recorder.
func (m Multi) Record(ctx context.Context, res *domain.RunResult) error {
	var err error
	for _, r := range m {
		err = multierr.Append(err, r.Record(ctx, res))
	}
	return err
}

// changeCounts returns the number of changes per type, with every type present.
func changeCounts(changes []domain.Change) map[domain.ChangeType]int {
	counts := map[domain.ChangeType]int{
		domain.ChangeServiceAdded:   0,
		domain.ChangeServiceRemoved: 0,
		domain.ChangeIPChanges:      0,
	}
	for _, c := range changes {
		counts[c.Type()]++
	}
	return counts
}
