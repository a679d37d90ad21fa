// Package source reads the raw bytes of documents named by continuation
// tokens: local files (bare paths or file:// URLs) and http(s) URLs.
//
// Remote documents are fetched with retry and kept in a [cache.Cache], so
// repeated mount resolutions against the same URL do not hit the network.
// Local files are always read fresh.
package source

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/graftwood/pkg/buildinfo"
	"github.com/matzehuels/graftwood/pkg/cache"
	errs "github.com/matzehuels/graftwood/pkg/errors"
	"github.com/matzehuels/graftwood/pkg/httputil"
	"github.com/matzehuels/graftwood/pkg/mount"
	"github.com/matzehuels/graftwood/pkg/observability"
)

const (
	httpTimeout = 10 * time.Second

	// DefaultTTL is how long fetched remote documents stay cached.
	DefaultTTL = 24 * time.Hour

	// maxDocumentSize bounds a single fetched document.
	maxDocumentSize = 64 << 20
)

// Fetcher reads documents. The zero value is not usable; use [NewFetcher].
type Fetcher struct {
	http    *http.Client
	cache   cache.Cache
	keyer   cache.Keyer
	ttl     time.Duration
	headers map[string]string
	backoff httputil.Backoff

	// Refresh bypasses the cache for reads (results are still stored).
	Refresh bool

	// Logger receives retry diagnostics. Nil uses the default logger.
	Logger *log.Logger
}

// NewFetcher creates a fetcher that caches remote documents in c for ttl.
// A nil cache disables caching.
func NewFetcher(c cache.Cache, ttl time.Duration) *Fetcher {
	if c == nil {
		c = cache.NewNullCache()
	}
	return &Fetcher{
		http:    &http.Client{Timeout: httpTimeout},
		cache:   c,
		keyer:   cache.NewDefaultKeyer(),
		ttl:     ttl,
		headers: map[string]string{"User-Agent": buildinfo.UserAgent()},
		backoff: httputil.DefaultBackoff,
	}
}

// WithKeyer replaces the cache keyer (for example a [cache.ScopedKeyer]).
func (f *Fetcher) WithKeyer(k cache.Keyer) *Fetcher {
	if k != nil {
		f.keyer = k
	}
	return f
}

// WithHTTPClient replaces the HTTP client.
func (f *Fetcher) WithHTTPClient(c *http.Client) *Fetcher {
	if c != nil {
		f.http = c
	}
	return f
}

// WithBackoff replaces the retry schedule for remote documents.
func (f *Fetcher) WithBackoff(b httputil.Backoff) *Fetcher {
	f.backoff = b
	return f
}

// Fetch returns the content of the document part of a continuation.
func (f *Fetcher) Fetch(ctx context.Context, document string) ([]byte, error) {
	if path, ok := mount.FilePath(document); ok {
		return readFile(path)
	}
	u, err := url.Parse(document)
	if err != nil {
		return nil, errs.Wrap(errs.ErrCodeInvalidSource, err, "invalid document %q", document)
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		return f.fetchRemote(ctx, u.String())
	default:
		return nil, errs.New(errs.ErrCodeUnsupportedSource, "cannot fetch %s documents", u.Scheme)
	}
}

func (f *Fetcher) fetchRemote(ctx context.Context, rawURL string) ([]byte, error) {
	key := f.keyer.DocumentKey(mount.Canonical(rawURL))
	hooks := observability.Cache()
	if !f.Refresh {
		if data, hit, err := f.cache.Get(ctx, key); err == nil && hit {
			hooks.OnCacheHit(ctx, "document")
			return data, nil
		}
		hooks.OnCacheMiss(ctx, "document")
	}

	var body []byte
	err := f.backoff.Do(ctx, func(attempt int) error {
		var err error
		body, err = f.get(ctx, rawURL)
		if err != nil && httputil.Retryable(err) && attempt < f.backoff.Attempts-1 {
			f.logger().Debug("retrying fetch", "url", rawURL, "attempt", attempt+1, "err", err)
		}
		return err
	})
	if err != nil {
		var se *httputil.StatusError
		if errors.As(err, &se) && se.StatusCode == http.StatusNotFound {
			return nil, errs.Wrap(errs.ErrCodeNotFound, err, "document %s not found", rawURL)
		}
		return nil, errs.Wrap(errs.ErrCodeNetwork, err, "fetch %s", rawURL)
	}

	if err := f.cache.Set(ctx, key, body, f.ttl); err == nil {
		hooks.OnCacheSet(ctx, "document", len(body))
	}
	return body, nil
}

func (f *Fetcher) get(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	for k, v := range f.headers {
		req.Header.Set(k, v)
	}

	hooks := observability.HTTP()
	hooks.OnRequest(ctx, req.Method, req.URL.Host, req.URL.Path)
	start := time.Now()
	resp, err := f.http.Do(req)
	if err != nil {
		hooks.OnError(ctx, req.Method, req.URL.Host, req.URL.Path, err)
		return nil, &httputil.RetryableError{Err: err}
	}
	defer resp.Body.Close()
	hooks.OnResponse(ctx, req.Method, req.URL.Host, req.URL.Path, resp.StatusCode, time.Since(start))

	if err := httputil.CheckResponse(resp); err != nil {
		return nil, err
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxDocumentSize))
}

func (f *Fetcher) logger() *log.Logger {
	if f.Logger != nil {
		return f.Logger
	}
	return log.Default()
}

func readFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return nil, errs.Wrap(errs.ErrCodeNotFound, err, "document %s not found", path)
	case err != nil:
		return nil, errs.Wrap(errs.ErrCodeBackendUnavailable, err, "read %s", path)
	}
	return data, nil
}
