package app

import (
	"fmt"
	"log/slog"

	githubapi "github.com/nathantilsley/sysdeps-matrix/internal/matrix/adapters/github_api"
	prfiles "github.com/nathantilsley/sysdeps-matrix/internal/matrix/adapters/pr_files"
	rawcontent "github.com/nathantilsley/sysdeps-matrix/internal/matrix/adapters/raw_content"
	sourcectrl "github.com/nathantilsley/sysdeps-matrix/internal/matrix/adapters/source_ctrl"

	"github.com/nathantilsley/sysdeps-matrix/internal/config"
)

// Build wires the adapters described by cfg into a Generator. One HTTP
// client and one rate monitor are shared by every request of the run.
func Build(cfg *config.Config, logger *slog.Logger) (*Generator, error) {
	auth := githubapi.Auth{
		Token:          cfg.GitHub.Token,
		User:           cfg.GitHub.User,
		Password:       cfg.GitHub.Password,
		AppID:          cfg.GitHub.AppID,
		InstallationID: cfg.GitHub.InstallationID,
		PrivateKeyPath: cfg.GitHub.PrivateKeyPath,
	}
	if !auth.Authenticated() {
		logger.Warn("no github credentials configured, using the unauthenticated quota")
	}

	hc, err := githubapi.NewHTTPClient(auth, cfg.HTTP.RequestTimeout)
	if err != nil {
		return nil, err
	}
	client, err := githubapi.NewClient(hc, auth, cfg.GitHub.APIBaseURL)
	if err != nil {
		return nil, err
	}
	anonymous, err := githubapi.NewClient(githubapi.NewAnonymousHTTPClient(cfg.HTTP.RequestTimeout), githubapi.Auth{}, cfg.GitHub.APIBaseURL)
	if err != nil {
		return nil, err
	}

	monitor := githubapi.NewRateMonitor(cfg.RateLimit.Threshold, logger)
	exec := githubapi.NewExecutor(client,
		githubapi.WithRateMonitor(monitor),
		githubapi.WithAnonymousClient(anonymous),
		githubapi.WithDryRun(cfg.DryRun),
		githubapi.WithLogger(logger),
	)

	files := prfiles.New(exec, cfg.GitHub.Owner, cfg.GitHub.Repo)
	directory := githubapi.NewDirectory(exec, files, githubapi.DirectoryOptions{
		Owner:       cfg.GitHub.Owner,
		Repo:        cfg.GitHub.Repo,
		RecipesRoot: cfg.Matrix.RecipesRoot,
		Source:      githubapi.ChangeSource(cfg.GitHub.ChangeSource),
		Logger:      logger,
	})

	var listerOpts []sourcectrl.Option
	if cfg.Matrix.RecipesDir != "" {
		listerOpts = append(listerOpts, sourcectrl.WithLocalCheckout(cfg.Matrix.RecipesDir))
	}
	recipes := sourcectrl.New(exec, cfg.Matrix.RecipesRoot, listerOpts...)

	fetchOpts := []rawcontent.Option{
		rawcontent.WithCacheSize(cfg.HTTP.CacheSize),
		rawcontent.WithLogger(logger),
	}
	if cfg.GitHub.RawBaseURL != "" {
		fetchOpts = append(fetchOpts, rawcontent.WithBaseURL(cfg.GitHub.RawBaseURL))
	}
	if auth.Token != "" {
		fetchOpts = append(fetchOpts, rawcontent.WithToken(auth.Token))
	}
	if auth.Authenticated() {
		fetchOpts = append(fetchOpts, rawcontent.WithRateObserver(monitor))
	}
	content, err := rawcontent.New(hc, fetchOpts...)
	if err != nil {
		return nil, fmt.Errorf("creating content fetcher: %w", err)
	}

	return NewGenerator(directory, recipes, NewResolver(content, cfg.Matrix.RecipesRoot), Options{
		Repo:           cfg.RepoFullName(),
		MainlineRef:    cfg.GitHub.MainlineRef,
		Environments:   cfg.Matrix.EnvironmentList(),
		MaxConcurrency: cfg.HTTP.MaxConcurrency,
		Logger:         logger,
	}), nil
}
