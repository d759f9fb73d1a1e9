// Package storagetest provides a conformance suite run against every
// storage.SnapshotStore implementation.
package storagetest

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bcnelson/servicetag-watcher/internal/domain"
	"github.com/bcnelson/servicetag-watcher/internal/storage"
)

// Dataset returns a small dataset whose change number is n.
func Dataset(n int) *domain.Dataset {
	return &domain.Dataset{
		ChangeNumber: n,
		Cloud:        "Public",
		Values: []domain.ServiceTag{
			{
				Name: "AzureCloud.eastus",
				ID:   "AzureCloud.eastus",
				Properties: domain.ServiceTagProperties{
					ChangeNumber:    n,
					Region:          "eastus",
					RegionID:        32,
					Platform:        "Azure",
					SystemService:   "",
					AddressPrefixes: []string{"13.68.128.0/17", "2603:1030:210::/47"},
					NetworkFeatures: []string{"API", "NSG"},
				},
			},
			{
				Name: "Storage",
				ID:   "Storage",
				Properties: domain.ServiceTagProperties{
					ChangeNumber:    n,
					Platform:        "Azure",
					SystemService:   "AzureStorage",
					AddressPrefixes: []string{"20.38.96.0/19"},
				},
			},
		},
	}
}

// Run exercises the full SnapshotStore contract. newStore must return an
// empty store; it is closed when the subtest finishes.
func Run(t *testing.T, newStore func(t *testing.T) storage.SnapshotStore) {
	t.Run("CurrentMissing", func(t *testing.T) {
		s := open(t, newStore)
		_, err := s.GetCurrent(context.Background())
		assert.True(t, errors.Is(err, domain.ErrNotFound), "expected ErrNotFound, got %v", err)
	})

	t.Run("CurrentRoundTrip", func(t *testing.T) {
		s := open(t, newStore)
		ctx := context.Background()

		require.NoError(t, s.PutCurrent(ctx, Dataset(1)))
		require.NoError(t, s.PutCurrent(ctx, Dataset(2)))

		got, err := s.GetCurrent(ctx)
		require.NoError(t, err)
		assert.Equal(t, Dataset(2), got)
	})

	t.Run("HistoricalRoundTrip", func(t *testing.T) {
		s := open(t, newStore)
		ctx := context.Background()

		require.NoError(t, s.PutHistorical(ctx, "2025-10-09", Dataset(7)))

		got, err := s.GetHistorical(ctx, "2025-10-09")
		require.NoError(t, err)
		assert.Equal(t, Dataset(7), got)

		_, err = s.GetHistorical(ctx, "2025-10-02")
		assert.True(t, errors.Is(err, domain.ErrNotFound), "expected ErrNotFound, got %v", err)
	})

	t.Run("ListSorted", func(t *testing.T) {
		s := open(t, newStore)
		ctx := context.Background()

		dates, err := s.ListHistorical(ctx)
		require.NoError(t, err)
		assert.Empty(t, dates)

		for _, d := range []string{"2025-10-09", "2025-09-25", "2025-10-02"} {
			require.NoError(t, s.PutHistorical(ctx, d, Dataset(1)))
		}
		// Rewriting a date must not duplicate it.
		require.NoError(t, s.PutHistorical(ctx, "2025-10-02", Dataset(3)))

		dates, err = s.ListHistorical(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"2025-09-25", "2025-10-02", "2025-10-09"}, dates)
	})

	t.Run("Delete", func(t *testing.T) {
		s := open(t, newStore)
		ctx := context.Background()

		require.NoError(t, s.PutHistorical(ctx, "2025-10-02", Dataset(1)))
		require.NoError(t, s.PutHistorical(ctx, "2025-10-09", Dataset(2)))
		require.NoError(t, s.DeleteHistorical(ctx, "2025-10-02"))

		dates, err := s.ListHistorical(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"2025-10-09"}, dates)

		err = s.DeleteHistorical(ctx, "2025-10-02")
		assert.True(t, errors.Is(err, domain.ErrNotFound), "expected ErrNotFound, got %v", err)
	})

	t.Run("RejectsBadDate", func(t *testing.T) {
		s := open(t, newStore)
		err := s.PutHistorical(context.Background(), "../current", Dataset(1))
		assert.True(t, errors.Is(err, domain.ErrInvalidInput), "expected ErrInvalidInput, got %v", err)
	})
}

func open(t *testing.T, newStore func(t *testing.T) storage.SnapshotStore) storage.SnapshotStore {
	t.Helper()
	s := newStore(t)
	t.Cleanup(func() { _ = s.Close() })
	return s
}
