package dashboard

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/go-kit/log/level"

	"github.com/bcnelson/servicetag-watcher/internal/domain"
	"github.com/bcnelson/servicetag-watcher/internal/fsutil"
)

// BuildManifest lists the dated change logs in the changes directory,
// newest first. A missing directory yields an empty manifest.
func (w *Writer) BuildManifest(now time.Time) (*domain.Manifest, error) {
	m := &domain.Manifest{
		GeneratedAt: now.UTC().Format(time.RFC3339Nano),
		Files:       []domain.ManifestFile{},
	}

	entries, err := os.ReadDir(filepath.Join(w.dir, ChangesDir))
	if err != nil {
		if os.IsNotExist(err) {
			return m, nil
		}
		return nil, fmt.Errorf("reading changes directory: %w", err)
	}

	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, changeLogSuffix) || name == LatestChangesFile {
			continue
		}
		date := strings.TrimSuffix(name, changeLogSuffix)
		if !domain.ValidDate(date) {
			level.Warn(w.logger).Log("msg", "skipping change log with malformed name", "file", name)
			continue
		}
		info, err := e.Info()
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", name, err)
		}
		m.Files = append(m.Files, domain.ManifestFile{
			Date:     date,
			Filename: name,
			Size:     info.Size(),
		})
	}

	sort.Slice(m.Files, func(i, j int) bool {
		return m.Files[i].Date > m.Files[j].Date
	})
	m.TotalFiles = len(m.Files)
	if m.TotalFiles > 0 {
		m.DateRange = domain.DateRange{
			Newest: m.Files[0].Date,
			Oldest: m.Files[m.TotalFiles-1].Date,
		}
	}
	return m, nil
}

// WriteManifest builds the manifest and writes changes/manifest.json.
func (w *Writer) WriteManifest(now time.Time) (*domain.Manifest, error) {
	m, err := w.BuildManifest(now)
	if err != nil {
		return nil, err
	}
	path := w.ChangesPath(ManifestFile)
	if err := fsutil.WriteJSON(path, m); err != nil {
		return nil, fmt.Errorf("writing manifest: %w", err)
	}
	level.Info(w.logger).Log("msg", "saved manifest", "path", path, "files", m.TotalFiles)
	return m, nil
}
