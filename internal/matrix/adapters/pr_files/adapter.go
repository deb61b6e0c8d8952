package prfiles

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/google/go-github/v68/github"

	githubapi "github.com/nathantilsley/sysdeps-matrix/internal/matrix/adapters/github_api"
)

const perPage = 100

// Doer executes GitHub API requests.
type Doer interface {
	Do(ctx context.Context, r githubapi.Request, v any) (*github.Response, error)
}

// Adapter implements githubapi.ChangedFilesLister by querying the GitHub API
// for files changed in a pull request.
type Adapter struct {
	api   Doer
	owner string
	repo  string
}

// New creates a new PR files adapter.
func New(api Doer, owner, repo string) *Adapter {
	return &Adapter{api: api, owner: owner, repo: repo}
}

// GetChangedFiles returns a list of files modified in the PR.
func (a *Adapter) GetChangedFiles(ctx context.Context, prNumber int) ([]string, error) {
	var changedFiles []string
	path := fmt.Sprintf("repos/%s/%s/pulls/%d/files", a.owner, a.repo, prNumber)
	page := 1

	for {
		var files []*github.CommitFile
		resp, err := a.api.Do(ctx, githubapi.Request{
			Path: path,
			Query: url.Values{
				"per_page": {strconv.Itoa(perPage)},
				"page":     {strconv.Itoa(page)},
			},
		}, &files)
		if err != nil {
			return nil, fmt.Errorf("listing PR files: %w", err)
		}

		for _, file := range files {
			changedFiles = append(changedFiles, file.GetFilename())
		}

		if resp.NextPage == 0 {
			break
		}
		page = resp.NextPage
	}

	return changedFiles, nil
}
