package publish

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/go-kit/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeUploader struct {
	mu      sync.Mutex
	objects map[string]string
	fail    string
}

func (f *fakeUploader) Upload(ctx context.Context, localPath, object, contentType string) error {
	if object == f.fail {
		return errors.New("bucket unavailable")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.objects == nil {
		f.objects = map[string]string{}
	}
	f.objects[object] = contentType
	return nil
}

func writeTree(t *testing.T, dir string, files ...string) {
	t.Helper()
	for _, name := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte("{}"), 0o644))
	}
}

func TestPublish(t *testing.T) {
	dir := t.TempDir()
	writeTree(t, dir,
		"current.json",
		"summary.json",
		"history/2024-03-04.json",
		"changes/2024-03-04-changes.json",
		"changes/2024-03-04-changes.patch",
		"changes/.tmp-summary.json-123",
		"snapshots.db",
		"badger/000001.vlog",
	)
	up := &fakeUploader{}

	n, err := NewPublisher(up, "/data/", 2, log.NewNopLogger()).Publish(context.Background(), dir)
	require.NoError(t, err)

	assert.Equal(t, 5, n)
	assert.Equal(t, map[string]string{
		"data/current.json":                     "application/json",
		"data/summary.json":                     "application/json",
		"data/history/2024-03-04.json":          "application/json",
		"data/changes/2024-03-04-changes.json":  "application/json",
		"data/changes/2024-03-04-changes.patch": "text/x-diff; charset=utf-8",
	}, up.objects)
}

func TestPublishUploadError(t *testing.T) {
	dir := t.TempDir()
	writeTree(t, dir, "current.json", "summary.json")
	up := &fakeUploader{fail: "summary.json"}

	_, err := NewPublisher(up, "", 1, log.NewNopLogger()).Publish(context.Background(), dir)
	assert.ErrorContains(t, err, "bucket unavailable")
}

func TestPublishMissingDir(t *testing.T) {
	_, err := NewPublisher(&fakeUploader{}, "", 1, log.NewNopLogger()).Publish(context.Background(), filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}
