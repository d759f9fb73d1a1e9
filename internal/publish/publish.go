// Package publish uploads the dashboard data directory to object storage.
package publish

import (
	"context"
	"fmt"
	"io/fs"
	"path"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"golang.org/x/sync/errgroup"
)

// Uploader copies a single local file to an object.
type Uploader interface {
	Upload(ctx context.Context, localPath, object, contentType string) error
}

// contentTypes maps published extensions to content types. Files with any
// other extension (databases, temp files) are not published.
var contentTypes = map[string]string{
	".json":  "application/json",
	".patch": "text/x-diff; charset=utf-8",
}

// Publisher uploads dashboard files with bounded parallelism.
type Publisher struct {
	uploader    Uploader
	prefix      string
	parallelism int
	logger      log.Logger
}

// NewPublisher creates a publisher. Objects are named prefix/<relative path>.
func NewPublisher(uploader Uploader, prefix string, parallelism int, logger log.Logger) *Publisher {
	if parallelism < 1 {
		parallelism = 1
	}
	return &Publisher{
		uploader:    uploader,
		prefix:      strings.Trim(prefix, "/"),
		parallelism: parallelism,
		logger:      logger,
	}
}

// Publish uploads every dashboard file under dir and returns the number of
// files uploaded. The first upload error cancels the remaining uploads.
func (p *Publisher) Publish(ctx context.Context, dir string) (int, error) {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(p.parallelism)

	var uploaded atomic.Int64
	walkErr := filepath.WalkDir(dir, func(localPath string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() {
			return nil
		}
		name := d.Name()
		contentType, ok := contentTypes[filepath.Ext(name)]
		if !ok || strings.HasPrefix(name, ".") {
			return nil
		}

		rel, err := filepath.Rel(dir, localPath)
		if err != nil {
			return err
		}
		object := path.Join(p.prefix, filepath.ToSlash(rel))

		g.Go(func() error {
			if err := p.uploader.Upload(ctx, localPath, object, contentType); err != nil {
				return fmt.Errorf("uploading %s: %w", rel, err)
			}
			level.Debug(p.logger).Log("msg", "uploaded file", "object", object)
			uploaded.Add(1)
			return nil
		})
		return nil
	})

	err := g.Wait()
	if walkErr != nil && err == nil {
		err = fmt.Errorf("walking %s: %w", dir, walkErr)
	}
	n := int(uploaded.Load())
	if err != nil {
		return n, err
	}
	level.Info(p.logger).Log("msg", "published data directory", "dir", dir, "files", n)
	return n, nil
}
