package githubapi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	gogithub "github.com/google/go-github/v68/github"

	"github.com/nathantilsley/sysdeps-matrix/internal/matrix/domain"
)

// Request describes one API call. Path is relative to the API base URL.
type Request struct {
	Method    string
	Path      string
	Query     url.Values
	Accept    string
	Anonymous bool // send without credentials; needs WithAnonymousClient
}

func (r Request) method() string {
	if r.Method == "" {
		return http.MethodGet
	}
	return r.Method
}

func (r Request) mutating() bool {
	switch r.method() {
	case http.MethodPost, http.MethodPatch, http.MethodPut, http.MethodDelete:
		return true
	}
	return false
}

// Executor is the single primitive every API call goes through. It observes
// rate-limit headers on each response and suppresses mutating calls in dry
// run mode.
type Executor struct {
	client    *gogithub.Client
	anonymous *gogithub.Client
	monitor   *RateMonitor
	dryRun    bool
	logger    *slog.Logger
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// WithDryRun suppresses POST, PATCH, PUT and DELETE requests.
func WithDryRun(dryRun bool) ExecutorOption {
	return func(e *Executor) {
		e.dryRun = dryRun
	}
}

// WithRateMonitor replaces the default rate monitor.
func WithRateMonitor(m *RateMonitor) ExecutorOption {
	return func(e *Executor) {
		e.monitor = m
	}
}

// WithAnonymousClient sets the client used for requests marked Anonymous.
// Its HTTP client must not share a credential-bearing transport with the
// authenticated client.
func WithAnonymousClient(c *gogithub.Client) ExecutorOption {
	return func(e *Executor) {
		e.anonymous = c
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) ExecutorOption {
	return func(e *Executor) {
		e.logger = l
	}
}

// NewExecutor creates an executor around an authenticated (or not) client.
func NewExecutor(client *gogithub.Client, opts ...ExecutorOption) *Executor {
	e := &Executor{
		client: client,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.monitor == nil {
		e.monitor = NewRateMonitor(DefaultRateLimitThreshold, e.logger)
	}
	return e
}

// Monitor returns the rate monitor shared with other adapters.
func (e *Executor) Monitor() *RateMonitor {
	return e.monitor
}

// Do executes r and decodes the JSON body into v. When v is an io.Writer the
// raw body is copied into it instead. Failures are classified as
// domain.NotFoundError, domain.UpstreamError or domain.RateLimitExceededError.
func (e *Executor) Do(ctx context.Context, r Request, v any) (*gogithub.Response, error) {
	if e.dryRun && r.mutating() {
		e.logger.Info("dry run, request suppressed", "method", r.method(), "path", r.Path)
		return &gogithub.Response{Response: &http.Response{
			StatusCode: http.StatusNoContent,
			Header:     http.Header{},
			Request:    &http.Request{Method: r.method()},
		}}, nil
	}

	client := e.client
	if r.Anonymous {
		if e.anonymous == nil {
			return nil, fmt.Errorf("%s %s: no anonymous client configured", r.method(), r.Path)
		}
		client = e.anonymous
	}

	target := r.Path
	if len(r.Query) > 0 {
		target += "?" + r.Query.Encode()
	}
	req, err := client.NewRequest(r.method(), target, nil)
	if err != nil {
		return nil, fmt.Errorf("building request %s %s: %w", r.method(), r.Path, err)
	}
	if r.Accept != "" {
		req.Header.Set("Accept", r.Accept)
	}

	resp, err := client.Do(ctx, req, v)
	if resp != nil && resp.Response != nil {
		e.monitor.ObserveAndWarn(resp.Header)
	}
	if err != nil {
		return resp, classify(req.URL, r.Path, resp, err)
	}
	return resp, nil
}

func classify(u *url.URL, path string, resp *gogithub.Response, err error) error {
	var rateErr *gogithub.RateLimitError
	if errors.As(err, &rateErr) {
		return &domain.RateLimitExceededError{Limit: rateErr.Rate.Limit, Reset: rateErr.Rate.Reset.Time}
	}

	if resp == nil || resp.Response == nil {
		return &domain.UpstreamError{URL: u.String(), Err: err}
	}
	if resp.StatusCode == http.StatusNotFound {
		return domain.NewNotFoundError(path, "")
	}
	return &domain.UpstreamError{URL: u.String(), StatusCode: resp.StatusCode, Err: err}
}
