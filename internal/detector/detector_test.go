package detector_test

import (
	"reflect"
	"testing"

	"github.com/bcnelson/servicetag-watcher/internal/detector"
	"github.com/bcnelson/servicetag-watcher/internal/domain"
)

func tag(name, region string, prefixes ...string) domain.ServiceTag {
	return domain.ServiceTag{
		Name: name,
		ID:   name,
		Properties: domain.ServiceTagProperties{
			Region:          region,
			SystemService:   "Azure" + name,
			AddressPrefixes: prefixes,
		},
	}
}

func dataset(tags ...domain.ServiceTag) *domain.Dataset {
	return &domain.Dataset{ChangeNumber: 1, Cloud: "Public", Values: tags}
}

func TestDetect_NoPrior(t *testing.T) {
	latest := dataset(tag("Storage", "", "10.0.0.0/8"))

	changes := detector.Detect(nil, latest)
	if len(changes) != 0 {
		t.Errorf("Expected no changes without prior data, got %d", len(changes))
	}
}

func TestDetect_Identical(t *testing.T) {
	ds := dataset(
		tag("Storage", "", "10.0.0.0/8", "10.1.0.0/16"),
		tag("Sql", "westeurope", "20.0.0.0/24"),
		tag("Empty", ""),
	)

	changes := detector.Detect(ds, ds)
	if len(changes) != 0 {
		t.Errorf("Expected no changes for identical datasets, got %v", changes)
	}
}

func TestDetect_PrefixOrderIgnored(t *testing.T) {
	prior := dataset(tag("Storage", "", "10.0.0.0/8", "10.1.0.0/16"))
	latest := dataset(tag("Storage", "", "10.1.0.0/16", "10.0.0.0/8"))

	if changes := detector.Detect(prior, latest); len(changes) != 0 {
		t.Errorf("Expected reordered prefixes to produce no change, got %v", changes)
	}
}

func TestDetect_AddedAndIPChanged(t *testing.T) {
	prior := dataset(tag("Storage", "", "10.0.0.0/8"))
	latest := dataset(
		tag("Storage", "", "10.0.0.0/8", "10.1.0.0/16"),
		tag("NewSvc", "eastus", "1.2.3.0/24"),
	)

	changes := detector.Detect(prior, latest)
	if len(changes) != 2 {
		t.Fatalf("Expected 2 changes, got %d: %v", len(changes), changes)
	}

	ipc, ok := changes[0].(domain.IPChange)
	if !ok {
		t.Fatalf("Expected first change to be IPChange, got %T", changes[0])
	}
	if ipc.Name != "Storage" {
		t.Errorf("Expected Storage, got %s", ipc.Name)
	}
	if !reflect.DeepEqual(ipc.AddedPrefixes, []string{"10.1.0.0/16"}) {
		t.Errorf("Unexpected added prefixes: %v", ipc.AddedPrefixes)
	}
	if len(ipc.RemovedPrefixes) != 0 || ipc.RemovedCount != 0 {
		t.Errorf("Expected no removed prefixes, got %v", ipc.RemovedPrefixes)
	}
	if ipc.AddedCount != 1 {
		t.Errorf("Expected added count 1, got %d", ipc.AddedCount)
	}

	added, ok := changes[1].(domain.ServiceAdded)
	if !ok {
		t.Fatalf("Expected second change to be ServiceAdded, got %T", changes[1])
	}
	if added.Name != "NewSvc" || added.IPCount != 1 || added.Region != "eastus" {
		t.Errorf("Unexpected service added record: %+v", added)
	}
}

func TestDetect_Removed(t *testing.T) {
	prior := dataset(
		tag("Old", "northeurope", "5.5.5.0/24"),
		tag("Keep", "", "1.1.1.0/24"),
	)
	latest := dataset(tag("Keep", "", "1.1.1.0/24"))

	changes := detector.Detect(prior, latest)
	if len(changes) != 1 {
		t.Fatalf("Expected 1 change, got %d", len(changes))
	}
	removed, ok := changes[0].(domain.ServiceRemoved)
	if !ok {
		t.Fatalf("Expected ServiceRemoved, got %T", changes[0])
	}
	if removed.Name != "Old" || removed.Region != "northeurope" || removed.SystemService != "AzureOld" {
		t.Errorf("Removed record should carry prior metadata, got %+v", removed)
	}
}

func TestDetect_SortedDiffLists(t *testing.T) {
	prior := dataset(tag("Svc", "", "9.0.0.0/8", "3.0.0.0/8", "1.0.0.0/8"))
	latest := dataset(tag("Svc", "", "1.0.0.0/8", "8.0.0.0/8", "2.0.0.0/8"))

	changes := detector.Detect(prior, latest)
	if len(changes) != 1 {
		t.Fatalf("Expected 1 change, got %d", len(changes))
	}
	ipc := changes[0].(domain.IPChange)
	if !reflect.DeepEqual(ipc.AddedPrefixes, []string{"2.0.0.0/8", "8.0.0.0/8"}) {
		t.Errorf("Added prefixes not sorted: %v", ipc.AddedPrefixes)
	}
	if !reflect.DeepEqual(ipc.RemovedPrefixes, []string{"3.0.0.0/8", "9.0.0.0/8"}) {
		t.Errorf("Removed prefixes not sorted: %v", ipc.RemovedPrefixes)
	}
	if ipc.Activity() != 4 {
		t.Errorf("Expected activity 4, got %d", ipc.Activity())
	}
}

func TestDetect_Ordering(t *testing.T) {
	prior := dataset(
		tag("GoneB", "", "1.0.0.0/8"),
		tag("Changed", "", "2.0.0.0/8"),
		tag("GoneA", "", "3.0.0.0/8"),
	)
	latest := dataset(
		tag("NewZ", "", "4.0.0.0/8"),
		tag("Changed", "", "5.0.0.0/8"),
		tag("NewA", "", "6.0.0.0/8"),
	)

	changes := detector.Detect(prior, latest)
	var got []string
	for _, c := range changes {
		got = append(got, string(c.Type())+":"+c.Ref().Name)
	}
	want := []string{
		"service_added:NewZ",
		"ip_changes:Changed",
		"service_added:NewA",
		"service_removed:GoneB",
		"service_removed:GoneA",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Unexpected order:\n got  %v\n want %v", got, want)
	}
}

func TestDetect_OneRecordPerService(t *testing.T) {
	prior := dataset(
		tag("A", "", "1.0.0.0/8"),
		tag("B", "", "2.0.0.0/8"),
		tag("C", "", "3.0.0.0/8"),
	)
	latest := dataset(
		tag("B", "", "2.0.0.0/8", "2.1.0.0/16"),
		tag("C", "", "3.0.0.0/8"),
		tag("D", "", "4.0.0.0/8"),
	)

	seen := make(map[string]int)
	for _, c := range detector.Detect(prior, latest) {
		seen[c.Ref().Name]++
	}
	for name, n := range seen {
		if n != 1 {
			t.Errorf("Service %s appears in %d records", name, n)
		}
	}
	if _, ok := seen["C"]; ok {
		t.Error("Unchanged service C should not produce a record")
	}
	if len(seen) != 3 {
		t.Errorf("Expected records for A, B and D, got %v", seen)
	}
}

func TestDetect_DuplicateNamesLastWins(t *testing.T) {
	prior := dataset(tag("Dup", "", "1.0.0.0/8"))
	latest := dataset(
		tag("Dup", "", "9.9.9.0/24"),
		tag("Dup", "", "1.0.0.0/8"),
	)

	if changes := detector.Detect(prior, latest); len(changes) != 0 {
		t.Errorf("Expected last occurrence to win, got %v", changes)
	}
}
