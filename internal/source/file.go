package source

import (
	"context"
	"fmt"
	"os"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"

	"github.com/bcnelson/servicetag-watcher/internal/domain"
)

// FileSource reads the dataset from a local JSON file.
type FileSource struct {
	path   string
	logger log.Logger
}

// Ensure FileSource implements Source.
var _ Source = (*FileSource)(nil)

// NewFileSource creates a source backed by path.
func NewFileSource(path string, logger log.Logger) *FileSource {
	return &FileSource{path: path, logger: logger}
}

// Fetch reads and parses the file.
func (f *FileSource) Fetch(ctx context.Context) (*domain.Dataset, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(f.path)
	if err != nil {
		return nil, fmt.Errorf("reading dataset file: %w: %w", domain.ErrFetchFailed, err)
	}
	ds, err := decode(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", f.path, domain.ErrFetchFailed, err)
	}

	level.Info(f.logger).Log("msg", "loaded dataset from file", "path", f.path, "services", len(ds.Values))
	return ds, nil
}
