// Package app wires the matrix pipeline: pull-request discovery, change
// analysis, per-package config resolution and final assembly.
package app

import (
	"context"

	"github.com/nathantilsley/sysdeps-matrix/internal/matrix/domain"
)

// PullRequestSource discovers open PRs and what they change.
type PullRequestSource interface {
	ListOpenPullRequests(ctx context.Context) ([]domain.PullRequest, error)
	ChangedPackages(ctx context.Context, prNumber int) (domain.ChangeSet, error)
}

// RecipeLister enumerates every recipe at a source location.
type RecipeLister interface {
	ListRecipes(ctx context.Context, loc domain.SourceLocation) ([]string, error)
}

// ContentFetcher reads one file at a source location.
type ContentFetcher interface {
	Fetch(ctx context.Context, loc domain.SourceLocation, path string) ([]byte, error)
}

// PackageResolver decides whether a package has a system variant at a source.
type PackageResolver interface {
	Resolve(ctx context.Context, pkg string, loc domain.SourceLocation, modifiedSubfolder string) (*domain.PackageConfig, error)
}

// Differ renders a unified diff between two documents.
type Differ interface {
	ComputeDiff(baseName, headName string, base, head []byte) string
}
