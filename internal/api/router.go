package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-kit/log"

	"github.com/bcnelson/servicetag-watcher/internal/api/handler"
	"github.com/bcnelson/servicetag-watcher/internal/api/middleware"
	"github.com/bcnelson/servicetag-watcher/internal/storage"
)

// NewRouter creates a new HTTP router with all routes configured.
// metrics may be nil to leave /metrics unmounted.
func NewRouter(store storage.SnapshotStore, dataDir string, metrics http.Handler, logger log.Logger) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(middleware.Logging(logger))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	if metrics != nil {
		r.Method(http.MethodGet, "/metrics", metrics)
	}

	// Dashboard files
	r.Handle("/data/*", http.StripPrefix("/data", handler.DataFiles(dataDir)))

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.ContentType)

		snapshotHandler := handler.NewSnapshotHandler(store)
		r.Get("/current", snapshotHandler.Current)
		r.Get("/snapshots", snapshotHandler.List)
		r.Get("/snapshots/{date}", snapshotHandler.Get)

		summaryHandler := handler.NewSummaryHandler(dataDir)
		r.Get("/summary", summaryHandler.Get)
	})

	return r
}
