// Package dashboard writes the files read by the static dashboard:
// change logs, unified patches, the summary and the change log manifest.
//
// Layout under the data directory:
//
//	summary.json
//	changes/<date>-changes.json
//	changes/<date>-changes.patch
//	changes/latest-changes.json
//	changes/manifest.json
package dashboard

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"

	"github.com/bcnelson/servicetag-watcher/internal/domain"
	"github.com/bcnelson/servicetag-watcher/internal/fsutil"
)

const (
	ChangesDir        = "changes"
	SummaryFile       = "summary.json"
	LatestChangesFile = "latest-changes.json"
	ManifestFile      = "manifest.json"
	changeLogSuffix   = "-changes.json"
	patchSuffix       = "-changes.patch"
)

// ChangeLogName returns the dated change log file name for date.
func ChangeLogName(date string) string {
	return date + changeLogSuffix
}

// PatchName returns the dated patch file name for date.
func PatchName(date string) string {
	return date + patchSuffix
}

// Writer writes dashboard artifacts under a data directory.
type Writer struct {
	dir    string
	logger log.Logger
}

// NewWriter creates a writer rooted at dir.
func NewWriter(dir string, logger log.Logger) *Writer {
	return &Writer{dir: dir, logger: logger}
}

// Dir returns the data directory.
func (w *Writer) Dir() string {
	return w.dir
}

// ChangesPath returns the path of name inside the changes directory.
func (w *Writer) ChangesPath(name string) string {
	return filepath.Join(w.dir, ChangesDir, name)
}

// ChangeLogInput describes one run's change log.
type ChangeLogInput struct {
	Date    string
	RunID   string
	Changes []domain.Change
	Latest  *domain.Dataset
	Now     time.Time
}

// WriteChangeLog writes the dated change log when there are changes and
// always rewrites latest-changes.json. With no changes the latest file
// carries domain.NoChangesMessage.
func (w *Writer) WriteChangeLog(in ChangeLogInput) (*domain.ChangeLog, error) {
	cl := &domain.ChangeLog{
		Date:         in.Date,
		RunID:        in.RunID,
		Changes:      domain.ChangeList(in.Changes),
		TotalChanges: len(in.Changes),
		GeneratedAt:  in.Now.UTC().Format(time.RFC3339Nano),
	}
	if cl.Changes == nil {
		cl.Changes = domain.ChangeList{}
	}
	if in.Latest != nil {
		cl.Metadata = &domain.DatasetMetadata{
			ChangeNumber: in.Latest.ChangeNumber,
			Cloud:        in.Latest.Cloud,
		}
	}

	if len(in.Changes) > 0 {
		path := w.ChangesPath(ChangeLogName(in.Date))
		if err := fsutil.WriteJSON(path, cl); err != nil {
			return nil, fmt.Errorf("writing change log: %w", err)
		}
		level.Info(w.logger).Log("msg", "saved change log", "path", path, "changes", len(in.Changes))
	} else {
		cl.Message = domain.NoChangesMessage
	}

	if err := fsutil.WriteJSON(w.ChangesPath(LatestChangesFile), cl); err != nil {
		return nil, fmt.Errorf("writing latest change log: %w", err)
	}
	level.Debug(w.logger).Log("msg", "saved latest change log", "changes", len(in.Changes))
	return cl, nil
}

// WritePatch writes the unified diff of every changed service's prefix
// list. Nothing is written when there are no changes.
func (w *Writer) WritePatch(date string, prior, latest *domain.Dataset, changes []domain.Change) error {
	if len(changes) == 0 {
		return nil
	}
	patch, err := Patch(prior, latest, changes)
	if err != nil {
		return fmt.Errorf("building patch: %w", err)
	}
	path := w.ChangesPath(PatchName(date))
	if err := fsutil.WriteFile(path, []byte(patch)); err != nil {
		return fmt.Errorf("writing patch: %w", err)
	}
	level.Info(w.logger).Log("msg", "saved patch", "path", path)
	return nil
}

// WriteSummary writes summary.json.
func (w *Writer) WriteSummary(s *domain.Summary) error {
	path := filepath.Join(w.dir, SummaryFile)
	if err := fsutil.WriteJSON(path, s); err != nil {
		return fmt.Errorf("writing summary: %w", err)
	}
	level.Info(w.logger).Log("msg", "saved summary", "path", path)
	return nil
}
