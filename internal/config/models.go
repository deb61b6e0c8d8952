package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nathantilsley/sysdeps-matrix/internal/matrix/domain"
)

// Config holds application configuration.
type Config struct {
	GitHub    GitHubConfig    `mapstructure:"github"`
	Matrix    MatrixConfig    `mapstructure:"matrix"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	HTTP      HTTPConfig      `mapstructure:"http"`
	Output    OutputConfig    `mapstructure:"output"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	DryRun    bool            `mapstructure:"dry_run"`
}

// Validate ensures required fields are present and consistent.
func (c Config) Validate() error {
	if c.GitHub.Owner == "" || c.GitHub.Repo == "" {
		return errors.New("github.owner and github.repo are required")
	}
	if c.GitHub.ChangeSource != "diff" && c.GitHub.ChangeSource != "files" {
		return fmt.Errorf("github.change_source must be diff or files, got %q", c.GitHub.ChangeSource)
	}
	if (c.GitHub.User == "") != (c.GitHub.Password == "") {
		return errors.New("github.user and github.password must be set together")
	}
	if c.GitHub.AppID != 0 && (c.GitHub.InstallationID == 0 || c.GitHub.PrivateKeyPath == "") {
		return errors.New("github.app_id requires github.installation_id and github.private_key_path")
	}
	if c.Matrix.RecipesRoot == "" || strings.Contains(c.Matrix.RecipesRoot, "/") {
		return fmt.Errorf("matrix.recipes_root must be a single directory name, got %q", c.Matrix.RecipesRoot)
	}
	if len(c.Matrix.EnvironmentList()) == 0 {
		return errors.New("matrix.environments must not be empty")
	}
	if c.HTTP.MaxConcurrency < 0 {
		return errors.New("http.max_concurrency must not be negative")
	}
	if _, err := c.Logging.SlogLevel(); err != nil {
		return err
	}
	return nil
}

// RepoFullName returns owner/name of the recipe monorepo.
func (c Config) RepoFullName() string {
	return c.GitHub.Owner + "/" + c.GitHub.Repo
}

// GitHubConfig describes the hosting API and credentials.
type GitHubConfig struct {
	Owner          string `mapstructure:"owner"`
	Repo           string `mapstructure:"repo"`
	Token          string `mapstructure:"token"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	AppID          int64  `mapstructure:"app_id"`
	InstallationID int64  `mapstructure:"installation_id"`
	PrivateKeyPath string `mapstructure:"private_key_path"`
	APIBaseURL     string `mapstructure:"api_base_url"`
	RawBaseURL     string `mapstructure:"raw_base_url"`
	MainlineRef    string `mapstructure:"mainline_ref"`
	ChangeSource   string `mapstructure:"change_source"`
}

// MatrixConfig describes the recipe tree and the target environments.
type MatrixConfig struct {
	RecipesRoot  string   `mapstructure:"recipes_root"`
	RecipesDir   string   `mapstructure:"recipes_dir"`
	Environments []string `mapstructure:"environments"`
}

// EnvironmentList returns the configured environments, deduplicated.
func (m MatrixConfig) EnvironmentList() []domain.Environment {
	return domain.ParseEnvironments(m.Environments)
}

// RateLimitConfig contains API quota settings.
type RateLimitConfig struct {
	Threshold int `mapstructure:"threshold"`
}

// HTTPConfig contains transport settings.
type HTTPConfig struct {
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	MaxConcurrency int           `mapstructure:"max_concurrency"`
	CacheSize      int           `mapstructure:"cache_size"`
}

// OutputConfig names the artifacts written per group.
type OutputConfig struct {
	Dir       string `mapstructure:"dir"`
	LinuxFile string `mapstructure:"linux_file"`
	BSDFile   string `mapstructure:"bsd_file"`
}

// Files maps output groups to file names.
func (o OutputConfig) Files() map[string]string {
	return map[string]string{
		domain.GroupLinux: o.LinuxFile,
		domain.GroupBSD:   o.BSDFile,
	}
}

// LoggingConfig contains logger preferences.
type LoggingConfig struct {
	Level string `mapstructure:"level"`
}

// SlogLevel parses the configured level.
func (l LoggingConfig) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(l.Level)); err != nil {
		return 0, fmt.Errorf("logging.level: %w", err)
	}
	return level, nil
}
