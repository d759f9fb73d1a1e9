package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/bcnelson/servicetag-watcher/internal/domain"
	"github.com/bcnelson/servicetag-watcher/internal/storage"
)

// SnapshotHandler handles snapshot endpoints.
type SnapshotHandler struct {
	store storage.SnapshotStore
}

// NewSnapshotHandler creates a new SnapshotHandler.
func NewSnapshotHandler(store storage.SnapshotStore) *SnapshotHandler {
	return &SnapshotHandler{store: store}
}

// Current returns the current snapshot.
func (h *SnapshotHandler) Current(w http.ResponseWriter, r *http.Request) {
	ds, err := h.store.GetCurrent(r.Context())
	if err != nil {
		handleError(w, err)
		return
	}
	respondSnapshot(w, r, "current", ds)
}

// List returns the dates of the stored historical snapshots.
func (h *SnapshotHandler) List(w http.ResponseWriter, r *http.Request) {
	dates, err := h.store.ListHistorical(r.Context())
	if err != nil {
		handleError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"dates": dates,
		"total": len(dates),
	})
}

// Get returns the historical snapshot for a date.
func (h *SnapshotHandler) Get(w http.ResponseWriter, r *http.Request) {
	date := chi.URLParam(r, "date")
	if !domain.ValidDate(date) {
		respondError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return
	}

	ds, err := h.store.GetHistorical(r.Context(), date)
	if err != nil {
		handleError(w, err)
		return
	}
	respondSnapshot(w, r, date, ds)
}

func respondSnapshot(w http.ResponseWriter, r *http.Request, key string, ds *domain.Dataset) {
	SetETagHeader(w, key, ds.ChangeNumber)
	if CheckIfNoneMatch(r, key, ds.ChangeNumber) {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	respondJSON(w, http.StatusOK, ds)
}
