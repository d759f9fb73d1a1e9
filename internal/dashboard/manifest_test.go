package dashboard

import (
	"encoding/json"
	"os"
	"testing"

	"github.com/go-kit/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bcnelson/servicetag-watcher/internal/domain"
)

func writeChangesFile(t *testing.T, w *Writer, name, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(w.ChangesPath(""), 0o755))
	require.NoError(t, os.WriteFile(w.ChangesPath(name), []byte(content), 0o644))
}

func TestBuildManifest(t *testing.T) {
	w := NewWriter(t.TempDir(), log.NewNopLogger())
	writeChangesFile(t, w, "2024-01-01-changes.json", "{}")
	writeChangesFile(t, w, "2024-03-04-changes.json", "{\"a\":1}")
	writeChangesFile(t, w, "2024-02-12-changes.json", "{}")
	writeChangesFile(t, w, "2024-03-04-changes.patch", "")
	writeChangesFile(t, w, LatestChangesFile, "{}")
	writeChangesFile(t, w, "notes-changes.json", "{}")

	m, err := w.BuildManifest(testNow)
	require.NoError(t, err)

	assert.Equal(t, 3, m.TotalFiles)
	assert.Equal(t, "2024-01-01", m.DateRange.Oldest)
	assert.Equal(t, "2024-03-04", m.DateRange.Newest)
	require.Len(t, m.Files, 3)
	assert.Equal(t, []string{"2024-03-04", "2024-02-12", "2024-01-01"},
		[]string{m.Files[0].Date, m.Files[1].Date, m.Files[2].Date})
	assert.Equal(t, "2024-03-04-changes.json", m.Files[0].Filename)
	assert.Equal(t, int64(7), m.Files[0].Size)
	assert.Equal(t, "2024-03-04T12:00:00Z", m.GeneratedAt)
}

func TestBuildManifestEmpty(t *testing.T) {
	w := NewWriter(t.TempDir(), log.NewNopLogger())

	m, err := w.BuildManifest(testNow)
	require.NoError(t, err)
	assert.Equal(t, 0, m.TotalFiles)
	assert.NotNil(t, m.Files)
	assert.Empty(t, m.DateRange.Oldest)
}

func TestWriteManifest(t *testing.T) {
	w := NewWriter(t.TempDir(), log.NewNopLogger())
	writeChangesFile(t, w, "2024-03-04-changes.json", "{}")

	_, err := w.WriteManifest(testNow)
	require.NoError(t, err)

	data, err := os.ReadFile(w.ChangesPath(ManifestFile))
	require.NoError(t, err)
	var m domain.Manifest
	require.NoError(t, json.Unmarshal(data, &m))
	assert.Equal(t, 1, m.TotalFiles)
	assert.Equal(t, "2024-03-04-changes.json", m.Files[0].Filename)
}
