// Package summary aggregates a dataset and its detected changes into the
// statistics document shown on the dashboard.
package summary

import (
	"sort"
	"time"

	"github.com/bcnelson/servicetag-watcher/internal/domain"
)

// Generate builds the summary for latest and the changes detected against it.
// dates lists the historical snapshots available in the store; it is copied
// and sorted ascending.
func Generate(latest *domain.Dataset, changes []domain.Change, dates []string, now time.Time) *domain.Summary {
	s := &domain.Summary{
		LastUpdated:       now.UTC().Format(time.RFC3339Nano),
		ChangesThisWeek:   len(changes),
		RegionalChanges:   make(map[string]int),
		TopActiveServices: make([]domain.ActiveService, 0),
		AvailableDates:    sortedCopy(dates),
	}
	if latest != nil {
		s.TotalServices = len(latest.Values)
		s.TotalIPRanges = latest.PrefixCount()
	}

	activity := make(map[string]int)
	for _, c := range changes {
		switch v := c.(type) {
		case domain.IPChange:
			s.IPChanges++
			activity[v.Name] += v.Activity()
		case domain.ServiceAdded:
			s.ServiceAdditions++
		case domain.ServiceRemoved:
			s.ServiceRemovals++
		}

		region := c.Ref().Region
		if region == "" {
			region = domain.GlobalRegion
		}
		s.RegionalChanges[region]++
	}

	s.TopActiveServices = topActive(activity, domain.MaxActiveServices)
	return s
}

// topActive ranks services by descending activity, breaking ties by name,
// and keeps at most limit entries.
func topActive(activity map[string]int, limit int) []domain.ActiveService {
	ranked := make([]domain.ActiveService, 0, len(activity))
	for name, n := range activity {
		ranked = append(ranked, domain.ActiveService{Service: name, ChangeCount: n})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].ChangeCount != ranked[j].ChangeCount {
			return ranked[i].ChangeCount > ranked[j].ChangeCount
		}
		return ranked[i].Service < ranked[j].Service
	})
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}

func sortedCopy(in []string) []string {
	out := make([]string, len(in))
	copy(out, in)
	sort.Strings(out)
	return out
}
