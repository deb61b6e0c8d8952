package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hashicorp/go-multierror"
	"golang.org/x/sync/errgroup"

	"github.com/nathantilsley/sysdeps-matrix/internal/matrix/domain"
)

// Options configures a Generator.
type Options struct {
	Repo           string // owner/name of the recipe monorepo
	MainlineRef    string
	Environments   []domain.Environment
	MaxConcurrency int // 0 means one goroutine per task
	Logger         *slog.Logger
}

// Generator runs one matrix generation.
type Generator struct {
	prs      PullRequestSource
	recipes  RecipeLister
	resolver PackageResolver
	opts     Options
}

// Result is the outcome of a run.
type Result struct {
	Matrix       *domain.Matrix
	PullRequests []domain.PullRequest
	Resolved     int // package configs that made it into the matrix
	Skipped      int // packages without a matching system variant
	Failed       int // resolutions lost to network or parse errors
}

type target struct {
	pkg    domain.ChangedPackage
	source domain.SourceLocation
}

type resolution struct {
	config *domain.PackageConfig
	err    error
}

// NewGenerator creates a generator.
func NewGenerator(prs PullRequestSource, recipes RecipeLister, resolver PackageResolver, opts Options) *Generator {
	if opts.MainlineRef == "" {
		opts.MainlineRef = "master"
	}
	if len(opts.Environments) == 0 {
		opts.Environments = domain.DefaultEnvironments
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Generator{prs: prs, recipes: recipes, resolver: resolver, opts: opts}
}

// Generate discovers open PRs, resolves every affected package on mainline
// and on each PR, and assembles the matrix. Only a failure to list PRs
// aborts the run; every other failure drops the affected item.
func (g *Generator) Generate(ctx context.Context) (*Result, error) {
	logger := g.opts.Logger

	prs, err := g.prs.ListOpenPullRequests(ctx)
	if err != nil {
		return nil, fmt.Errorf("discovering pull requests: %w", err)
	}

	g.analyseChanges(ctx, prs)
	targets := g.collectTargets(ctx, prs)
	results := g.resolveAll(ctx, targets)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	res := &Result{PullRequests: prs}
	configs := make([]domain.PackageConfig, 0, len(results))
	seen := make(map[string]struct{}, len(results))
	var failures *multierror.Error
	for i, r := range results {
		switch {
		case r.err == nil:
			// A PR touching two folders of one package resolves it twice.
			if _, dup := seen[r.config.Key()]; dup {
				continue
			}
			seen[r.config.Key()] = struct{}{}
			configs = append(configs, *r.config)
		case domain.IsSkip(r.err):
			res.Skipped++
		default:
			failures = multierror.Append(failures, fmt.Errorf("%s at %s: %w", targets[i].pkg, targets[i].source, r.err))
		}
	}
	if err := failures.ErrorOrNil(); err != nil {
		res.Failed = failures.Len()
		logger.Warn("some packages could not be resolved", "count", res.Failed, "error", err)
	}

	res.Matrix = domain.Assemble(configs, g.opts.Environments)
	res.Resolved = len(configs)

	logger.Info("matrix generated",
		"pull_requests", len(prs),
		"resolved", res.Resolved,
		"skipped", res.Skipped,
		"failed", res.Failed,
		"entries", res.Matrix.Len(),
	)
	return res, nil
}

func (g *Generator) limit() int {
	if g.opts.MaxConcurrency > 0 {
		return g.opts.MaxConcurrency
	}
	return -1
}

// analyseChanges fills in Changes for every PR. Each task writes only its
// own element of prs.
func (g *Generator) analyseChanges(ctx context.Context, prs []domain.PullRequest) {
	var eg errgroup.Group
	eg.SetLimit(g.limit())

	for i := range prs {
		if !prs[i].HasHeadRepo() {
			prs[i].Changes = domain.ChangeSet{}
			continue
		}
		eg.Go(func() error {
			set, err := g.prs.ChangedPackages(ctx, prs[i].Number)
			if err != nil {
				g.opts.Logger.Warn("could not determine changed packages", "pr", prs[i].Number, "error", err)
				set = domain.ChangeSet{}
			}
			prs[i].Changes = set
			return nil
		})
	}
	_ = eg.Wait()
}

// collectTargets lists every (package, source) pair to resolve: all mainline
// recipes, plus each package changed by a PR.
func (g *Generator) collectTargets(ctx context.Context, prs []domain.PullRequest) []target {
	var targets []target

	mainline := domain.Mainline(g.opts.Repo, g.opts.MainlineRef)
	names, err := g.recipes.ListRecipes(ctx, mainline)
	if err != nil {
		g.opts.Logger.Warn("could not list mainline recipes", "source", mainline.String(), "error", err)
	}
	for _, name := range names {
		targets = append(targets, target{pkg: domain.ChangedPackage{Name: name}, source: mainline})
	}

	for _, pr := range prs {
		if !pr.HasHeadRepo() {
			g.opts.Logger.Warn("no repo detected for pull request", "pr", pr.Number)
			continue
		}
		src := pr.Source()
		for _, c := range pr.Changes.Sorted() {
			targets = append(targets, target{pkg: c, source: src})
		}
	}
	return targets
}

// resolveAll resolves every target concurrently. A failing task never
// cancels its siblings; its outcome is kept in its own result slot.
func (g *Generator) resolveAll(ctx context.Context, targets []target) []resolution {
	results := make([]resolution, len(targets))

	var eg errgroup.Group
	eg.SetLimit(g.limit())

	for i, t := range targets {
		eg.Go(func() error {
			cfg, err := g.resolver.Resolve(ctx, t.pkg.Name, t.source, t.pkg.Subfolder)
			results[i] = resolution{config: cfg, err: err}
			g.logResolution(t, err)
			return nil
		})
	}
	_ = eg.Wait()
	return results
}

func (g *Generator) logResolution(t target, err error) {
	logger := g.opts.Logger.With("package", t.pkg.String(), "pr", t.source.PR)
	switch {
	case err == nil:
		logger.Debug("resolved system variant")
	case domain.IsSkip(err):
		logger.Debug("package skipped", "reason", err)
	default:
		logger.Warn("package resolution failed", "source", t.source.String(), "error", err)
	}
}
