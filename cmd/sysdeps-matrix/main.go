// Package main provides the CLI that generates the system-package CI matrix.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/nathantilsley/sysdeps-matrix/internal/config"
	linediff "github.com/nathantilsley/sysdeps-matrix/internal/matrix/adapters/line_diff"
	"github.com/nathantilsley/sysdeps-matrix/internal/matrix/app"
	"github.com/nathantilsley/sysdeps-matrix/internal/matrix/domain"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %s\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return newApp().RunContext(ctx, os.Args)
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "sysdeps-matrix",
		Usage: "generate the CI matrix of system package variants for mainline and open pull requests",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "path to a YAML config file",
				EnvVars: []string{"SYSDEPS_CONFIG"},
			},
			&cli.StringFlag{
				Name:  "token",
				Usage: "GitHub token (or use GH_TOKEN / GITHUB_TOKEN env var)",
			},
			&cli.StringFlag{
				Name:    "output-dir",
				Aliases: []string{"o"},
				Usage:   "directory the matrix artifacts are written to",
			},
			&cli.StringFlag{
				Name:  "recipes-dir",
				Usage: "local checkout of the recipes directory used to list mainline packages",
			},
			&cli.StringSliceFlag{
				Name:  "environment",
				Usage: "build environment, repeatable; replaces the configured set",
			},
			&cli.IntFlag{
				Name:  "max-concurrency",
				Usage: "maximum concurrent requests per stage, 0 for unbounded",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "debug, info, warn or error",
			},
			&cli.BoolFlag{
				Name:  "dry-run",
				Usage: "print the artifacts instead of writing them",
			},
			&cli.BoolFlag{
				Name:  "compare",
				Usage: "show how the new matrix differs from the artifacts in the output dir, without writing",
			},
		},
		Action: generate,
	}
}

func generate(c *cli.Context) error {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return err
	}
	applyFlags(c, cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	level, err := cfg.Logging.SlogLevel()
	if err != nil {
		return err
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	g, err := app.Build(cfg, logger)
	if err != nil {
		return err
	}
	res, err := g.Generate(c.Context)
	if err != nil {
		return err
	}

	files := cfg.Output.Files()
	switch {
	case c.Bool("compare"):
		return printDrift(c, cfg, res.Matrix, files, logger)
	case cfg.DryRun:
		return printArtifacts(c, res.Matrix, files)
	}

	if err := app.WriteArtifacts(cfg.Output.Dir, res.Matrix, files); err != nil {
		return err
	}
	logger.Info("artifacts written", "dir", cfg.Output.Dir, "entries", res.Matrix.Len())
	return nil
}

// applyFlags lets explicitly set flags override file and environment values.
func applyFlags(c *cli.Context, cfg *config.Config) {
	if c.IsSet("token") {
		cfg.GitHub.Token = c.String("token")
	}
	if c.IsSet("output-dir") {
		cfg.Output.Dir = c.String("output-dir")
	}
	if c.IsSet("recipes-dir") {
		cfg.Matrix.RecipesDir = c.String("recipes-dir")
	}
	if c.IsSet("environment") {
		cfg.Matrix.Environments = c.StringSlice("environment")
	}
	if c.IsSet("max-concurrency") {
		cfg.HTTP.MaxConcurrency = c.Int("max-concurrency")
	}
	if c.IsSet("log-level") {
		cfg.Logging.Level = c.String("log-level")
	}
	if c.IsSet("dry-run") {
		cfg.DryRun = c.Bool("dry-run")
	}
}

func printDrift(c *cli.Context, cfg *config.Config, m *domain.Matrix, files map[string]string, logger *slog.Logger) error {
	diffs, err := app.CompareWithPrevious(linediff.New(), cfg.Output.Dir, m, files)
	if err != nil {
		return err
	}
	if len(diffs) == 0 {
		logger.Info("matrix unchanged", "dir", cfg.Output.Dir)
		return nil
	}

	names := make([]string, 0, len(diffs))
	for name := range diffs {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintln(c.App.Writer, diffs[name])
	}
	return nil
}

func printArtifacts(c *cli.Context, m *domain.Matrix, files map[string]string) error {
	for _, group := range []string{domain.GroupLinux, domain.GroupBSD} {
		if _, ok := files[group]; !ok {
			continue
		}
		data, err := app.EncodeArtifact(m, group)
		if err != nil {
			return err
		}
		fmt.Fprintf(c.App.Writer, "# %s\n%s", files[group], data)
	}
	return nil
}
