// Package source downloads the service tag dataset.
package source

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/bcnelson/servicetag-watcher/internal/domain"
)

// Source defines the interface for obtaining the latest dataset.
type Source interface {
	Fetch(ctx context.Context) (*domain.Dataset, error)
}

// decode parses a dataset document. The document must be a non-empty
// object carrying a "values" key.
func decode(data []byte) (*domain.Dataset, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing dataset: %w", err)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("dataset document is empty")
	}
	if _, ok := raw["values"]; !ok {
		return nil, fmt.Errorf("dataset document has no values key")
	}

	var ds domain.Dataset
	if err := json.Unmarshal(data, &ds); err != nil {
		return nil, fmt.Errorf("parsing dataset: %w", err)
	}
	return &ds, nil
}
