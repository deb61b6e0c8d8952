package app

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/nathantilsley/sysdeps-matrix/internal/matrix/domain"
)

// fakeContent serves files keyed by "repo@ref:path".
type fakeContent struct {
	files map[string]string
	errs  map[string]error

	mu    sync.Mutex
	calls []string
}

func newFakeContent() *fakeContent {
	return &fakeContent{files: map[string]string{}, errs: map[string]error{}}
}

func contentKey(loc domain.SourceLocation, path string) string {
	return loc.Repo + "@" + loc.Ref + ":" + path
}

func (f *fakeContent) put(loc domain.SourceLocation, path, body string) {
	f.files[contentKey(loc, path)] = body
}

func (f *fakeContent) fail(loc domain.SourceLocation, path string, err error) {
	f.errs[contentKey(loc, path)] = err
}

func (f *fakeContent) Fetch(_ context.Context, loc domain.SourceLocation, path string) ([]byte, error) {
	key := contentKey(loc, path)
	f.mu.Lock()
	f.calls = append(f.calls, key)
	f.mu.Unlock()

	if err, ok := f.errs[key]; ok {
		return nil, err
	}
	body, ok := f.files[key]
	if !ok {
		return nil, domain.NewNotFoundError(path, loc.Ref)
	}
	return []byte(body), nil
}

func (f *fakeContent) fetched(loc domain.SourceLocation, path string) bool {
	key := contentKey(loc, path)
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.calls {
		if c == key {
			return true
		}
	}
	return false
}

type fakePRSource struct {
	prs     []domain.PullRequest
	listErr error
	changes map[int]domain.ChangeSet
	errs    map[int]error

	mu      sync.Mutex
	queried []int
}

func (f *fakePRSource) ListOpenPullRequests(_ context.Context) ([]domain.PullRequest, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]domain.PullRequest, len(f.prs))
	copy(out, f.prs)
	return out, nil
}

func (f *fakePRSource) ChangedPackages(_ context.Context, n int) (domain.ChangeSet, error) {
	f.mu.Lock()
	f.queried = append(f.queried, n)
	f.mu.Unlock()
	if err := f.errs[n]; err != nil {
		return domain.ChangeSet{}, err
	}
	return f.changes[n], nil
}

type fakeRecipes struct {
	names []string
	err   error
}

func (f *fakeRecipes) ListRecipes(_ context.Context, _ domain.SourceLocation) ([]string, error) {
	return f.names, f.err
}

// countingResolver wraps a resolver and records the peak number of
// concurrent calls.
type countingResolver struct {
	next    PackageResolver
	active  atomic.Int32
	peak    atomic.Int32
	release chan struct{}
}

func (c *countingResolver) Resolve(ctx context.Context, pkg string, loc domain.SourceLocation, sub string) (*domain.PackageConfig, error) {
	n := c.active.Add(1)
	defer c.active.Add(-1)
	for {
		p := c.peak.Load()
		if n <= p || c.peak.CompareAndSwap(p, n) {
			break
		}
	}
	if c.release != nil {
		<-c.release
	}
	return c.next.Resolve(ctx, pkg, loc, sub)
}
