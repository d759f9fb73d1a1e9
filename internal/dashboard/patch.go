package dashboard

import (
	"sort"
	"strings"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/bcnelson/servicetag-watcher/internal/domain"
)

const devNull = "/dev/null"

// Patch renders changes as a unified diff. Each changed service is one
// file whose lines are its sorted address prefixes; added services diff
// against /dev/null and removed services diff to it.
func Patch(prior, latest *domain.Dataset, changes []domain.Change) (string, error) {
	before := prefixIndex(prior)
	after := prefixIndex(latest)

	var b strings.Builder
	for _, c := range changes {
		name := c.Ref().Name
		u := difflib.UnifiedDiff{
			FromFile: "a/" + name,
			ToFile:   "b/" + name,
			Context:  3,
		}
		switch c.Type() {
		case domain.ChangeServiceAdded:
			u.FromFile = devNull
			u.A = []string{}
			u.B = lines(after[name])
		case domain.ChangeServiceRemoved:
			u.ToFile = devNull
			u.A = lines(before[name])
			u.B = []string{}
		default:
			u.A = lines(before[name])
			u.B = lines(after[name])
		}
		s, err := difflib.GetUnifiedDiffString(u)
		if err != nil {
			return "", err
		}
		b.WriteString(s)
	}
	return b.String(), nil
}

// prefixIndex maps each service name to its prefixes. Later duplicates win.
func prefixIndex(ds *domain.Dataset) map[string][]string {
	idx := map[string][]string{}
	if ds == nil {
		return idx
	}
	for _, tag := range ds.Values {
		idx[tag.Name] = tag.Properties.AddressPrefixes
	}
	return idx
}

// lines returns the sorted, de-duplicated prefixes, one per line.
func lines(prefixes []string) []string {
	seen := make(map[string]struct{}, len(prefixes))
	out := make([]string, 0, len(prefixes))
	for _, p := range prefixes {
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p+"\n")
	}
	sort.Strings(out)
	return out
}
