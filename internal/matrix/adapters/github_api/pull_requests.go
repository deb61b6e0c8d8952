package githubapi

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"

	gogithub "github.com/google/go-github/v68/github"

	"github.com/nathantilsley/sysdeps-matrix/internal/matrix/domain"
)

// PageSize is the number of pull requests requested per listing page.
const PageSize = 100

const diffMediaType = "application/vnd.github.v3.diff"

// ChangeSource selects how a PR's changed packages are determined.
type ChangeSource string

const (
	// ChangeSourceDiff parses the raw unified diff of the PR.
	ChangeSourceDiff ChangeSource = "diff"
	// ChangeSourceFiles uses the API's changed-file listing.
	ChangeSourceFiles ChangeSource = "files"
)

// ChangedFilesLister lists the paths touched by a PR.
type ChangedFilesLister interface {
	GetChangedFiles(ctx context.Context, prNumber int) ([]string, error)
}

// DirectoryOptions configures a Directory.
type DirectoryOptions struct {
	Owner       string
	Repo        string
	RecipesRoot string
	Source      ChangeSource
	Logger      *slog.Logger
}

// Directory discovers open pull requests and the packages they change.
type Directory struct {
	api   *Executor
	files ChangedFilesLister
	opts  DirectoryOptions
}

// NewDirectory creates a pull-request directory. files may be nil when the
// change source is the diff; it is then also unavailable as a fallback for
// diffs the API refuses to render.
func NewDirectory(api *Executor, files ChangedFilesLister, opts DirectoryOptions) *Directory {
	if opts.RecipesRoot == "" {
		opts.RecipesRoot = domain.DefaultRecipesRoot
	}
	if opts.Source == "" {
		opts.Source = ChangeSourceDiff
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Directory{api: api, files: files, opts: opts}
}

// ListOpenPullRequests pages through open PRs, newest first, until a page
// comes back empty. Any failed page aborts the listing.
func (d *Directory) ListOpenPullRequests(ctx context.Context) ([]domain.PullRequest, error) {
	byNumber := make(map[int]domain.PullRequest)
	path := fmt.Sprintf("repos/%s/%s/pulls", d.opts.Owner, d.opts.Repo)

	for page := 1; ; page++ {
		var prs []*gogithub.PullRequest
		_, err := d.api.Do(ctx, Request{
			Path: path,
			Query: url.Values{
				"state":     {"open"},
				"sort":      {"created"},
				"direction": {"desc"},
				"per_page":  {strconv.Itoa(PageSize)},
				"page":      {strconv.Itoa(page)},
			},
		}, &prs)
		if domain.IsNotFound(err) {
			d.opts.Logger.Warn("pull request listing not found, stopping pagination", "page", page)
			break
		}
		if err != nil {
			return nil, fmt.Errorf("listing open pull requests (page %d): %w", page, err)
		}
		if len(prs) == 0 {
			break
		}
		// PRs opened during pagination shift older ones onto the next page.
		for _, pr := range prs {
			byNumber[pr.GetNumber()] = toPullRequest(pr)
		}
	}

	out := make([]domain.PullRequest, 0, len(byNumber))
	for _, pr := range byNumber {
		out = append(out, pr)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number > out[j].Number })

	d.opts.Logger.Info("discovered open pull requests", "count", len(out))
	return out, nil
}

func toPullRequest(pr *gogithub.PullRequest) domain.PullRequest {
	head := pr.GetHead()
	return domain.PullRequest{
		Number:   pr.GetNumber(),
		HeadRepo: head.GetRepo().GetFullName(),
		HeadRef:  head.GetRef(),
	}
}

// ChangedPackages returns the recipes touched by PR number n.
func (d *Directory) ChangedPackages(ctx context.Context, n int) (domain.ChangeSet, error) {
	if d.opts.Source == ChangeSourceFiles {
		return d.changedFromFiles(ctx, n)
	}

	var diff strings.Builder
	_, err := d.api.Do(ctx, Request{
		Path:   fmt.Sprintf("repos/%s/%s/pulls/%d", d.opts.Owner, d.opts.Repo, n),
		Accept: diffMediaType,
	}, &diff)
	if domain.IsUpstreamStatus(err, http.StatusNotAcceptable) && d.files != nil {
		d.opts.Logger.Info("diff too large, using changed-file listing", "pr", n)
		return d.changedFromFiles(ctx, n)
	}
	if err != nil {
		return domain.ChangeSet{}, fmt.Errorf("fetching diff of #%d: %w", n, err)
	}

	set, err := domain.ExtractChangedPackagesFromDiff(d.opts.RecipesRoot, diff.String())
	if err != nil {
		return domain.ChangeSet{}, fmt.Errorf("analysing diff of #%d: %w", n, err)
	}
	return set, nil
}

func (d *Directory) changedFromFiles(ctx context.Context, n int) (domain.ChangeSet, error) {
	if d.files == nil {
		return domain.ChangeSet{}, fmt.Errorf("listing files of #%d: no changed-files lister configured", n)
	}
	files, err := d.files.GetChangedFiles(ctx, n)
	if err != nil {
		return domain.ChangeSet{}, fmt.Errorf("listing files of #%d: %w", n, err)
	}
	return domain.ExtractChangedPackagesFromFiles(d.opts.RecipesRoot, files), nil
}
