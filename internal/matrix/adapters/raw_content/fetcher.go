// Package rawcontent reads single files from the raw content host.
package rawcontent

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"

	"github.com/nathantilsley/sysdeps-matrix/internal/matrix/domain"
)

// DefaultBaseURL is the public raw content host.
const DefaultBaseURL = "https://raw.githubusercontent.com"

// DefaultCacheSize bounds the number of remembered lookups.
const DefaultCacheSize = 4096

const maxBodySize = 4 << 20

// RateObserver is notified of the headers of every response.
type RateObserver interface {
	ObserveAndWarn(h http.Header)
}

type lookup struct {
	body     []byte
	notFound bool
}

// Fetcher performs raw file reads. A file requested by several resolutions
// of the same run (one PR touching two variant folders of a package) is
// fetched once: concurrent requests for a URL share one upstream call and
// later ones are served from the cache.
type Fetcher struct {
	client    *http.Client
	baseURL   string
	token     string
	observer  RateObserver
	cacheSize int
	cache     *lru.Cache[string, lookup]
	inflight  singleflight.Group
	logger    *slog.Logger
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithBaseURL overrides the raw content host.
func WithBaseURL(u string) Option {
	return func(f *Fetcher) {
		f.baseURL = strings.TrimSuffix(u, "/")
	}
}

// WithToken sends token with every request. Credentials applied by the
// client's transport need no option.
func WithToken(token string) Option {
	return func(f *Fetcher) {
		f.token = token
	}
}

// WithRateObserver passes the headers of every response to o. Only
// authenticated responses carry a meaningful quota.
func WithRateObserver(o RateObserver) Option {
	return func(f *Fetcher) {
		f.observer = o
	}
}

// WithCacheSize sets the lookup cache size; 0 or less disables caching.
func WithCacheSize(n int) Option {
	return func(f *Fetcher) {
		f.cacheSize = n
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(f *Fetcher) {
		f.logger = l
	}
}

// New creates a fetcher sharing client with the rest of the run.
func New(client *http.Client, opts ...Option) (*Fetcher, error) {
	f := &Fetcher{
		client:    client,
		baseURL:   DefaultBaseURL,
		cacheSize: DefaultCacheSize,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.cacheSize > 0 {
		cache, err := lru.New[string, lookup](f.cacheSize)
		if err != nil {
			return nil, fmt.Errorf("creating content cache: %w", err)
		}
		f.cache = cache
	}
	return f, nil
}

// Fetch returns the content of path at loc. A missing file yields a
// domain.NotFoundError, any other non-200 answer a domain.UpstreamError.
func (f *Fetcher) Fetch(ctx context.Context, loc domain.SourceLocation, path string) ([]byte, error) {
	u := fmt.Sprintf("%s/%s/%s/%s", f.baseURL, loc.Repo, loc.Ref, strings.TrimPrefix(path, "/"))

	v, err, _ := f.inflight.Do(u, func() (any, error) {
		return f.lookup(ctx, u)
	})
	if err != nil {
		return nil, err
	}
	l := v.(lookup)
	if l.notFound {
		return nil, domain.NewNotFoundError(path, loc.Ref)
	}
	return l.body, nil
}

func (f *Fetcher) lookup(ctx context.Context, u string) (lookup, error) {
	if f.cache != nil {
		if hit, ok := f.cache.Get(u); ok {
			return hit, nil
		}
	}

	body, err := f.get(ctx, u)
	if domain.IsNotFound(err) {
		l := lookup{notFound: true}
		f.remember(u, l)
		return l, nil
	}
	if err != nil {
		return lookup{}, err
	}
	l := lookup{body: body}
	f.remember(u, l)
	return l, nil
}

func (f *Fetcher) remember(u string, l lookup) {
	if f.cache != nil {
		f.cache.Add(u, l)
	}
}

func (f *Fetcher) get(ctx context.Context, u string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if f.token != "" {
		req.Header.Set("Authorization", "token "+f.token)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &domain.UpstreamError{URL: u, Err: err}
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			f.logger.Warn("failed to close response body", "error", err)
		}
	}()

	if f.observer != nil {
		f.observer.ObserveAndWarn(resp.Header)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, domain.NewNotFoundError(u, "")
	case resp.StatusCode != http.StatusOK:
		return nil, &domain.UpstreamError{URL: u, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, &domain.UpstreamError{URL: u, Err: fmt.Errorf("reading body: %w", err)}
	}
	return body, nil
}
