package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/sethvargo/go-retry"

	"github.com/bcnelson/servicetag-watcher/internal/domain"
)

// jsonLinkPattern matches the first JSON download link on the confirmation page.
var jsonLinkPattern = regexp.MustCompile(`(?i)href="(https?://[^"]+\.json)"`)

// HTTPClient is the subset of *http.Client used by HTTPSource.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// HTTPConfig configures an HTTPSource.
type HTTPConfig struct {
	// PageURL is the download confirmation page that links to the JSON file.
	PageURL string

	// DirectURL, when set, is fetched directly and PageURL is ignored.
	DirectURL string

	UserAgent   string
	MaxRetries  int
	RetryDelay  time.Duration
	PageTimeout time.Duration
	JSONTimeout time.Duration
}

// HTTPSource downloads the dataset over HTTP.
type HTTPSource struct {
	cfg    HTTPConfig
	client HTTPClient
	logger log.Logger
}

// Ensure HTTPSource implements Source.
var _ Source = (*HTTPSource)(nil)

// NewHTTPSource creates a new HTTP source. A nil client uses http.DefaultClient.
func NewHTTPSource(cfg HTTPConfig, client HTTPClient, logger log.Logger) *HTTPSource {
	if client == nil {
		client = http.DefaultClient
	}
	if cfg.MaxRetries < 1 {
		cfg.MaxRetries = 1
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = time.Millisecond
	}
	return &HTTPSource{cfg: cfg, client: client, logger: logger}
}

// Fetch downloads the dataset, retrying the whole sequence on failure.
// After the last attempt fails the error wraps domain.ErrFetchFailed.
func (s *HTTPSource) Fetch(ctx context.Context) (*domain.Dataset, error) {
	backoff := retry.WithMaxRetries(uint64(s.cfg.MaxRetries-1), retry.NewConstant(s.cfg.RetryDelay))

	var (
		ds      *domain.Dataset
		attempt int
	)
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		level.Info(s.logger).Log("msg", "fetching service tags", "attempt", attempt, "max_attempts", s.cfg.MaxRetries)

		var err error
		ds, err = s.fetchOnce(ctx)
		if err != nil {
			level.Warn(s.logger).Log("msg", "fetch attempt failed", "attempt", attempt, "err", err)
			if ctx.Err() != nil {
				return err
			}
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		level.Error(s.logger).Log("msg", "all fetch attempts failed", "attempts", attempt)
		return nil, fmt.Errorf("%w after %d attempts: %w", domain.ErrFetchFailed, attempt, err)
	}

	level.Info(s.logger).Log("msg", "fetched service tags", "services", len(ds.Values), "change_number", ds.ChangeNumber)
	return ds, nil
}

func (s *HTTPSource) fetchOnce(ctx context.Context) (*domain.Dataset, error) {
	jsonURL := s.cfg.DirectURL
	if jsonURL == "" {
		page, err := s.get(ctx, s.cfg.PageURL, s.cfg.PageTimeout)
		if err != nil {
			return nil, fmt.Errorf("fetching download page: %w", err)
		}
		jsonURL, err = extractJSONURL(page)
		if err != nil {
			return nil, err
		}
		level.Debug(s.logger).Log("msg", "found dataset link", "url", jsonURL)
	}

	data, err := s.get(ctx, jsonURL, s.cfg.JSONTimeout)
	if err != nil {
		return nil, fmt.Errorf("fetching dataset: %w", err)
	}
	return decode(data)
}

func (s *HTTPSource) get(ctx context.Context, url string, timeout time.Duration) ([]byte, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	if s.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", s.cfg.UserAgent)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("GET %s: unexpected status %d", url, resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

// extractJSONURL returns the first JSON link on the download page.
func extractJSONURL(page []byte) (string, error) {
	m := jsonLinkPattern.FindSubmatch(page)
	if m == nil {
		return "", errors.New("no JSON download link found on page")
	}
	return string(m[1]), nil
}
