// Package detector computes the differences between two service tag datasets.
package detector

import (
	"sort"

	"github.com/bcnelson/servicetag-watcher/internal/domain"
)

// Detect returns the changes that turn prior into latest.
//
// A nil prior means there is nothing to compare against and yields no changes.
// Added and prefix-changed services come first in latest's order, followed by
// removed services in prior's order.
func Detect(prior, latest *domain.Dataset) []domain.Change {
	changes := make([]domain.Change, 0)
	if prior == nil || latest == nil {
		return changes
	}

	priorIdx := indexByName(prior.Values)
	latestIdx := indexByName(latest.Values)

	for _, name := range latestIdx.order {
		cur := latestIdx.tags[name]
		old, ok := priorIdx.tags[name]
		if !ok {
			changes = append(changes, domain.ServiceAdded{
				ServiceRef: cur.Ref(),
				IPCount:    len(cur.Properties.AddressPrefixes),
			})
			continue
		}

		added, removed := prefixDiff(old.Properties.AddressPrefixes, cur.Properties.AddressPrefixes)
		if len(added) == 0 && len(removed) == 0 {
			continue
		}
		changes = append(changes, domain.IPChange{
			ServiceRef:      cur.Ref(),
			AddedPrefixes:   added,
			RemovedPrefixes: removed,
			AddedCount:      len(added),
			RemovedCount:    len(removed),
		})
	}

	for _, name := range priorIdx.order {
		if _, ok := latestIdx.tags[name]; ok {
			continue
		}
		changes = append(changes, domain.ServiceRemoved{ServiceRef: priorIdx.tags[name].Ref()})
	}

	return changes
}

// index maps names to tags and remembers first-insertion order.
type index struct {
	tags  map[string]domain.ServiceTag
	order []string
}

// indexByName keys tags by name. A repeated name keeps its first position
// but takes the value of its last occurrence.
func indexByName(tags []domain.ServiceTag) index {
	idx := index{
		tags:  make(map[string]domain.ServiceTag, len(tags)),
		order: make([]string, 0, len(tags)),
	}
	for _, t := range tags {
		if _, seen := idx.tags[t.Name]; !seen {
			idx.order = append(idx.order, t.Name)
		}
		idx.tags[t.Name] = t
	}
	return idx
}

// prefixDiff returns the sorted prefixes only in cur and only in old.
func prefixDiff(old, cur []string) (added, removed []string) {
	oldSet := toSet(old)
	curSet := toSet(cur)

	added = make([]string, 0)
	for p := range curSet {
		if _, ok := oldSet[p]; !ok {
			added = append(added, p)
		}
	}
	removed = make([]string, 0)
	for p := range oldSet {
		if _, ok := curSet[p]; !ok {
			removed = append(removed, p)
		}
	}
	sort.Strings(added)
	sort.Strings(removed)
	return added, removed
}

func toSet(list []string) map[string]struct{} {
	m := make(map[string]struct{}, len(list))
	for _, v := range list {
		m[v] = struct{}{}
	}
	return m
}
