package storage

import (
	"context"
	"fmt"

	"github.com/bcnelson/servicetag-watcher/internal/domain"
)

// SnapshotStore defines the interface for snapshot persistence.
// Dates are YYYY-MM-DD strings. Missing snapshots are reported as
// domain.ErrNotFound and unreadable ones as domain.ErrCorrupt.
type SnapshotStore interface {
	// Close closes the storage connection.
	Close() error

	// Current snapshot
	GetCurrent(ctx context.Context) (*domain.Dataset, error)
	PutCurrent(ctx context.Context, ds *domain.Dataset) error

	// Historical snapshots
	GetHistorical(ctx context.Context, date string) (*domain.Dataset, error)
	PutHistorical(ctx context.Context, date string, ds *domain.Dataset) error
	ListHistorical(ctx context.Context) ([]string, error)
	DeleteHistorical(ctx context.Context, date string) error
}

// CheckDate returns domain.ErrInvalidInput unless date is YYYY-MM-DD.
func CheckDate(date string) error {
	if !domain.ValidDate(date) {
		return fmt.Errorf("snapshot date %q: %w", date, domain.ErrInvalidInput)
	}
	return nil
}
