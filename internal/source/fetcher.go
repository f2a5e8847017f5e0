// internal/source/fetcher.go - HTTP document fetching
package source

import (
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/valpere/mapml_features/internal"
	"github.com/valpere/mapml_features/internal/config"
)

// Fetcher retrieves the raw bytes of a MapML document
type Fetcher interface {
	Fetch(ctx context.Context, location string) ([]byte, error)
}

// HTTPFetcher implements the Fetcher interface using HTTP requests
type HTTPFetcher struct {
	client  *http.Client
	config  *config.SourceConfig
	logger  *slog.Logger
	backoff func(attempt int) time.Duration
}

// NewHTTPFetcher creates a new HTTP-based document fetcher
func NewHTTPFetcher(cfg *config.Config, logger *slog.Logger) *HTTPFetcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &HTTPFetcher{
		client: &http.Client{Timeout: cfg.Source.Timeout},
		config: &cfg.Source,
		logger: logger,
		backoff: func(attempt int) time.Duration {
			return time.Duration(attempt*attempt) * time.Second
		},
	}
}

// statusError reports a non-200 response
type statusError struct {
	code   int
	status string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.code, e.status)
}

// Fetch retrieves a document, retrying network failures and 5xx responses
func (f *HTTPFetcher) Fetch(ctx context.Context, location string) ([]byte, error) {
	target, err := f.resolve(location)
	if err != nil {
		return nil, internal.NewError(internal.ErrorCodeValidation, "invalid document location", err)
	}

	var lastErr error
	for attempt := 0; attempt <= f.config.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, internal.NewError(internal.ErrorCodeTimeout, "fetch cancelled", ctx.Err())
			case <-time.After(f.backoff(attempt)):
			}
			f.logger.Debug("retrying document fetch", "url", target, "attempt", attempt)
		}

		data, err := f.fetchOnce(ctx, target)
		if err == nil {
			return data, nil
		}
		lastErr = err

		if !shouldRetry(err) {
			break
		}
	}

	return nil, internal.NewError(internal.ErrorCodeNetwork,
		fmt.Sprintf("failed to fetch %s after %d attempts", target, f.config.MaxRetries+1), lastErr)
}

// fetchOnce performs a single GET request
func (f *HTTPFetcher) fetchOnce(ctx context.Context, target string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}

	req.Header.Set("Accept", "text/mapml, text/html;q=0.9, */*;q=0.5")
	req.Header.Set("Accept-Encoding", "gzip")
	if f.config.UserAgent != "" {
		req.Header.Set("User-Agent", f.config.UserAgent)
	}
	for key, value := range f.config.Headers {
		req.Header.Set(key, value)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &statusError{code: resp.StatusCode, status: resp.Status}
	}

	var reader io.Reader = resp.Body
	if strings.Contains(resp.Header.Get("Content-Encoding"), "gzip") {
		gzipReader, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to create gzip reader: %w", err)
		}
		defer gzipReader.Close()
		reader = gzipReader
	}

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	return data, nil
}

// resolve joins relative locations onto the configured base URL
func (f *HTTPFetcher) resolve(location string) (string, error) {
	u, err := url.Parse(location)
	if err != nil {
		return "", err
	}
	if u.IsAbs() {
		return u.String(), nil
	}
	if f.config.BaseURL == "" {
		return "", fmt.Errorf("relative location %q requires base_url", location)
	}
	base, err := url.Parse(f.config.BaseURL)
	if err != nil {
		return "", err
	}
	if !strings.HasSuffix(base.Path, "/") {
		base.Path += "/"
	}
	return base.ResolveReference(u).String(), nil
}

// shouldRetry determines whether a failed request should be retried
func shouldRetry(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var se *statusError
	if errors.As(err, &se) {
		// Don't retry on client errors (4xx)
		return se.code >= 500
	}

	// Network errors are retried
	return true
}
