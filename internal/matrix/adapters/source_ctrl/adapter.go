// Package sourcectrl enumerates the recipes present at a source location,
// either from a local checkout or from the GitHub git tree API.
package sourcectrl

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"sort"

	gogithub "github.com/google/go-github/v68/github"

	githubapi "github.com/nathantilsley/sysdeps-matrix/internal/matrix/adapters/github_api"
	"github.com/nathantilsley/sysdeps-matrix/internal/matrix/domain"
)

// Doer executes GitHub API requests.
type Doer interface {
	Do(ctx context.Context, r githubapi.Request, v any) (*gogithub.Response, error)
}

// Adapter lists recipe directories.
type Adapter struct {
	api      Doer
	root     string
	localDir string
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithLocalCheckout lists recipes from dir, a local copy of the recipe root,
// instead of calling the API.
func WithLocalCheckout(dir string) Option {
	return func(a *Adapter) {
		a.localDir = dir
	}
}

// New creates a recipe lister reading the tree under root.
func New(api Doer, root string, opts ...Option) *Adapter {
	if root == "" {
		root = domain.DefaultRecipesRoot
	}
	a := &Adapter{api: api, root: root}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// ListRecipes returns the sorted recipe names at loc.
func (a *Adapter) ListRecipes(ctx context.Context, loc domain.SourceLocation) ([]string, error) {
	if a.localDir != "" {
		return a.listLocal()
	}
	return a.listTree(ctx, loc)
}

func (a *Adapter) listLocal() ([]string, error) {
	entries, err := os.ReadDir(a.localDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, domain.NewNotFoundError(a.localDir, "")
		}
		return nil, fmt.Errorf("reading recipes dir: %w", err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// listTree reads the non-recursive tree "{ref}:{root}", which is not
// subject to the 1000 entry cap of the contents API.
func (a *Adapter) listTree(ctx context.Context, loc domain.SourceLocation) ([]string, error) {
	var tree gogithub.Tree
	path := fmt.Sprintf("repos/%s/git/trees/%s", loc.Repo, url.PathEscape(loc.Ref+":"+a.root))
	_, err := a.api.Do(ctx, githubapi.Request{Path: path}, &tree)
	if deniedCredentials(err) {
		// An app installation scoped to other repos is refused even on a
		// public tree; the tree is still readable without credentials.
		tree = gogithub.Tree{}
		_, err = a.api.Do(ctx, githubapi.Request{Path: path, Anonymous: true}, &tree)
	}
	if err != nil {
		if domain.IsNotFound(err) {
			return nil, domain.NewNotFoundError(a.root, loc.Ref)
		}
		return nil, fmt.Errorf("reading recipe tree of %s: %w", loc, err)
	}
	if tree.GetTruncated() {
		return nil, fmt.Errorf("recipe tree of %s is truncated", loc)
	}

	var names []string
	for _, entry := range tree.Entries {
		if entry.GetType() == "tree" {
			names = append(names, entry.GetPath())
		}
	}
	sort.Strings(names)
	return names, nil
}

func deniedCredentials(err error) bool {
	return domain.IsUpstreamStatus(err, http.StatusUnauthorized) || domain.IsUpstreamStatus(err, http.StatusForbidden)
}
