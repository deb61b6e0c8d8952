package domain

import (
	"fmt"
	"net/url"
)

// MainlinePR is the PR number used for sources read from the mainline branch.
const MainlinePR = 0

// PullRequest holds the details of an open pull request.
type PullRequest struct {
	Number   int
	HeadRepo string // owner/name, empty when the fork was deleted
	HeadRef  string
	Changes  ChangeSet
}

// HasHeadRepo reports whether the head repository still exists.
func (pr PullRequest) HasHeadRepo() bool {
	return pr.HeadRepo != ""
}

// Source returns the location the PR's recipe files are read from.
func (pr PullRequest) Source() SourceLocation {
	return SourceLocation{
		Repo: pr.HeadRepo,
		Ref:  url.QueryEscape(pr.HeadRef),
		PR:   pr.Number,
	}
}

// SourceLocation identifies where a package's files are read from.
type SourceLocation struct {
	Repo string
	Ref  string
	PR   int
}

// Mainline returns the source location of the mainline branch.
func Mainline(repo, ref string) SourceLocation {
	return SourceLocation{Repo: repo, Ref: ref, PR: MainlinePR}
}

// IsMainline reports whether the location points at mainline rather than a PR.
func (s SourceLocation) IsMainline() bool {
	return s.PR == MainlinePR
}

func (s SourceLocation) String() string {
	if s.IsMainline() {
		return fmt.Sprintf("%s@%s", s.Repo, s.Ref)
	}
	return fmt.Sprintf("%s@%s (#%d)", s.Repo, s.Ref, s.PR)
}
