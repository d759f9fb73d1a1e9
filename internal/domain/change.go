package domain

import (
	"encoding/json"
	"fmt"
)

// ChangeType discriminates the variants of a Change.
type ChangeType string

const (
	ChangeServiceAdded   ChangeType = "service_added"
	ChangeServiceRemoved ChangeType = "service_removed"
	ChangeIPChanges      ChangeType = "ip_changes"
)

// Change is a single difference between two datasets.
// Implementations are ServiceAdded, ServiceRemoved and IPChange.
type Change interface {
	Type() ChangeType
	Ref() ServiceRef
}

// ServiceRef identifies the service a change applies to.
type ServiceRef struct {
	Name          string `json:"service"`
	Region        string `json:"region"`
	SystemService string `json:"system_service"`
}

// Ref returns the reference itself so embedding types satisfy Change.
func (r ServiceRef) Ref() ServiceRef { return r }

// ServiceAdded reports a service present only in the latest dataset.
type ServiceAdded struct {
	ServiceRef
	IPCount int `json:"ip_count"`
}

func (ServiceAdded) Type() ChangeType { return ChangeServiceAdded }

// MarshalJSON adds the type discriminator.
func (c ServiceAdded) MarshalJSON() ([]byte, error) {
	type plain ServiceAdded
	return json.Marshal(struct {
		Type ChangeType `json:"type"`
		plain
	}{ChangeServiceAdded, plain(c)})
}

// ServiceRemoved reports a service present only in the prior dataset.
// Region and SystemService come from the prior dataset.
type ServiceRemoved struct {
	ServiceRef
}

func (ServiceRemoved) Type() ChangeType { return ChangeServiceRemoved }

// MarshalJSON adds the type discriminator.
func (c ServiceRemoved) MarshalJSON() ([]byte, error) {
	type plain ServiceRemoved
	return json.Marshal(struct {
		Type ChangeType `json:"type"`
		plain
	}{ChangeServiceRemoved, plain(c)})
}

// IPChange reports a service whose prefix set differs between datasets.
// Both prefix lists are sorted lexically.
type IPChange struct {
	ServiceRef
	AddedPrefixes   []string `json:"added_prefixes"`
	RemovedPrefixes []string `json:"removed_prefixes"`
	AddedCount      int      `json:"added_count"`
	RemovedCount    int      `json:"removed_count"`
}

func (IPChange) Type() ChangeType { return ChangeIPChanges }

// Activity is the number of prefixes touched by the change.
func (c IPChange) Activity() int { return c.AddedCount + c.RemovedCount }

// MarshalJSON adds the type discriminator.
func (c IPChange) MarshalJSON() ([]byte, error) {
	type plain IPChange
	return json.Marshal(struct {
		Type ChangeType `json:"type"`
		plain
	}{ChangeIPChanges, plain(c)})
}

// ChangeList is a sequence of changes that can be decoded from JSON.
type ChangeList []Change

// UnmarshalJSON decodes each element according to its type field.
func (l *ChangeList) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make(ChangeList, 0, len(raw))
	for i, msg := range raw {
		var head struct {
			Type ChangeType `json:"type"`
		}
		if err := json.Unmarshal(msg, &head); err != nil {
			return fmt.Errorf("change %d: %w", i, err)
		}
		var c Change
		switch head.Type {
		case ChangeServiceAdded:
			var v ServiceAdded
			if err := json.Unmarshal(msg, &v); err != nil {
				return fmt.Errorf("change %d: %w", i, err)
			}
			c = v
		case ChangeServiceRemoved:
			var v ServiceRemoved
			if err := json.Unmarshal(msg, &v); err != nil {
				return fmt.Errorf("change %d: %w", i, err)
			}
			c = v
		case ChangeIPChanges:
			var v IPChange
			if err := json.Unmarshal(msg, &v); err != nil {
				return fmt.Errorf("change %d: %w", i, err)
			}
			c = v
		default:
			return fmt.Errorf("change %d: unknown type %q", i, head.Type)
		}
		out = append(out, c)
	}
	*l = out
	return nil
}
