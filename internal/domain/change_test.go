package domain_test

import (
	"encoding/json"
	"testing"

	"github.com/bcnelson/servicetag-watcher/internal/domain"
)

func TestChangeMarshalIncludesType(t *testing.T) {
	c := domain.IPChange{
		ServiceRef:      domain.ServiceRef{Name: "Storage", Region: "eastus", SystemService: "AzureStorage"},
		AddedPrefixes:   []string{"10.1.0.0/16"},
		RemovedPrefixes: []string{},
		AddedCount:      1,
	}

	data, err := json.Marshal(c)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if fields["type"] != "ip_changes" {
		t.Errorf("Expected type ip_changes, got %v", fields["type"])
	}
	if fields["service"] != "Storage" || fields["system_service"] != "AzureStorage" {
		t.Errorf("Expected flattened service reference, got %v", fields)
	}
	if fields["added_count"] != float64(1) {
		t.Errorf("Expected added_count 1, got %v", fields["added_count"])
	}
}

func TestChangeListDecodesVariants(t *testing.T) {
	input := `[
		{"type":"service_added","service":"New","ip_count":3,"region":"","system_service":""},
		{"type":"ip_changes","service":"Storage","added_prefixes":["1.0.0.0/8"],"removed_prefixes":[],"added_count":1,"removed_count":0,"region":"eastus","system_service":"AzureStorage"},
		{"type":"service_removed","service":"Old","region":"westus","system_service":""}
	]`

	var list domain.ChangeList
	if err := json.Unmarshal([]byte(input), &list); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("Expected 3 changes, got %d", len(list))
	}
	if a, ok := list[0].(domain.ServiceAdded); !ok || a.IPCount != 3 {
		t.Errorf("Unexpected first change: %#v", list[0])
	}
	if c, ok := list[1].(domain.IPChange); !ok || c.Region != "eastus" || c.AddedCount != 1 {
		t.Errorf("Unexpected second change: %#v", list[1])
	}
	if r, ok := list[2].(domain.ServiceRemoved); !ok || r.Name != "Old" {
		t.Errorf("Unexpected third change: %#v", list[2])
	}
}

func TestChangeListRejectsUnknownType(t *testing.T) {
	var list domain.ChangeList
	if err := json.Unmarshal([]byte(`[{"type":"renamed","service":"x"}]`), &list); err == nil {
		t.Error("Expected error for unknown change type")
	}
}

func TestValidDate(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"2025-10-09", true},
		{"2025-13-01", false},
		{"2025-1-01", false},
		{"latest", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := domain.ValidDate(tt.in); got != tt.want {
			t.Errorf("ValidDate(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
