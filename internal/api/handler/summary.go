package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"

	"github.com/bcnelson/servicetag-watcher/internal/dashboard"
	"github.com/bcnelson/servicetag-watcher/internal/domain"
)

// SummaryHandler serves the summary written by the last run.
type SummaryHandler struct {
	dataDir string
}

// NewSummaryHandler creates a new SummaryHandler.
func NewSummaryHandler(dataDir string) *SummaryHandler {
	return &SummaryHandler{dataDir: dataDir}
}

// Get returns summary.json.
func (h *SummaryHandler) Get(w http.ResponseWriter, r *http.Request) {
	s, err := ReadSummary(h.dataDir)
	if err != nil {
		handleError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, s)
}

// ReadSummary loads summary.json from dataDir.
func ReadSummary(dataDir string) (*domain.Summary, error) {
	data, err := os.ReadFile(filepath.Join(dataDir, dashboard.SummaryFile))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var s domain.Summary
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parsing summary: %w: %w", domain.ErrCorrupt, err)
	}
	return &s, nil
}
