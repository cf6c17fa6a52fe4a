// Package registry implements the npm registry HTTP client used to list
// published versions of a package.
//
// The client retries transient failures (network errors, 5xx responses)
// with exponential backoff and reads through a [cache.Cache] so repeated
// runs against the same packages don't hit the registry again.
package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/packsmith/packsmith/pkg/cache"
	"github.com/packsmith/packsmith/pkg/observability"
)

// DefaultBaseURL is the public npm registry.
const DefaultBaseURL = "https://registry.npmjs.org"

const (
	httpTimeout   = 10 * time.Second
	retryAttempts = 3
	retryDelay    = time.Second
)

var (
	// ErrNotFound is returned when a package doesn't exist in the registry.
	ErrNotFound = errors.New("package not found")

	// ErrNetwork is returned for HTTP failures (timeouts, connection
	// errors, 5xx responses).
	ErrNetwork = errors.New("network error")
)

// retryableError marks an error as worth retrying.
type retryableError struct{ err error }

func (e *retryableError) Error() string { return e.err.Error() }
func (e *retryableError) Unwrap() error { return e.err }

// Client lists published versions from an npm registry.
type Client struct {
	http     *http.Client
	baseURL  string
	cache    cache.Cache
	cacheTTL time.Duration
}

// NewClient creates a registry client. An empty baseURL means the public
// npm registry; a nil c disables caching.
func NewClient(baseURL string, c cache.Cache, cacheTTL time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	return &Client{
		http:     &http.Client{Timeout: httpTimeout},
		baseURL:  strings.TrimSuffix(baseURL, "/"),
		cache:    c,
		cacheTTL: cacheTTL,
	}
}

// Versions returns every published version string of a package, sorted.
// Unpublished packages return ErrNotFound.
func (c *Client) Versions(ctx context.Context, pkg string) ([]string, error) {
	pkg = NormalizeName(pkg)
	key := "npm:versions:" + pkg

	if data, hit, _ := c.cache.Get(ctx, key); hit {
		var versions []string
		if err := json.Unmarshal(data, &versions); err == nil {
			observability.Cache().OnCacheHit(ctx, "versions")
			return versions, nil
		}
		// Corrupt entry, refetch
		_ = c.cache.Delete(ctx, key)
	}
	observability.Cache().OnCacheMiss(ctx, "versions")

	var versions []string
	err := retry(ctx, retryAttempts, retryDelay, func() error {
		var fetchErr error
		versions, fetchErr = c.fetchVersions(ctx, pkg)
		return fetchErr
	})
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(versions); err == nil {
		_ = c.cache.Set(ctx, key, data, c.cacheTTL)
		observability.Cache().OnCacheSet(ctx, "versions", len(data))
	}
	return versions, nil
}

// packumentVersions is the slice of the registry packument this client
// cares about: just the keys of the versions object.
type packumentVersions struct {
	Versions map[string]json.RawMessage `json:"versions"`
}

func (c *Client) fetchVersions(ctx context.Context, pkg string) ([]string, error) {
	// Scoped package names keep their slash but encode everything else.
	escaped := strings.ReplaceAll(url.PathEscape(pkg), "%2F", "/")
	reqURL := c.baseURL + "/" + escaped

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	observability.HTTP().OnRequest(ctx, http.MethodGet, req.URL.Host, req.URL.Path)
	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		observability.HTTP().OnError(ctx, http.MethodGet, req.URL.Host, req.URL.Path, err)
		return nil, &retryableError{err: fmt.Errorf("%w: %v", ErrNetwork, err)}
	}
	defer resp.Body.Close()
	observability.HTTP().OnResponse(ctx, http.MethodGet, req.URL.Host, req.URL.Path, resp.StatusCode, time.Since(start))

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%w: %s", ErrNotFound, pkg)
	case resp.StatusCode >= 500:
		return nil, &retryableError{err: fmt.Errorf("%w: status %d", ErrNetwork, resp.StatusCode)}
	default:
		return nil, fmt.Errorf("%w: status %d", ErrNetwork, resp.StatusCode)
	}

	var doc packumentVersions
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decoding registry response for %s: %w", pkg, err)
	}
	return slices.Sorted(maps.Keys(doc.Versions)), nil
}

// NormalizeName converts a package name to its canonical registry form.
func NormalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// retry executes fn up to attempts times with exponential backoff. Only
// errors marked retryable trigger another attempt; other errors return
// immediately. Returns ctx.Err() if cancelled while waiting.
func retry(ctx context.Context, attempts int, delay time.Duration, fn func() error) error {
	attempts = max(attempts, 1)
	var lastErr error

	for i := range attempts {
		if err := fn(); err == nil {
			return nil
		} else if lastErr = err; !errors.As(err, new(*retryableError)) {
			return err
		}

		if i < attempts-1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
				delay *= 2
			}
		}
	}
	return lastErr
}
