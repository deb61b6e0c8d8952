// Package config loads the generator configuration.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/nathantilsley/sysdeps-matrix/internal/matrix/domain"
)

const (
	envFile   = ".env"
	envPrefix = "SYSDEPS"
)

// Load reads configuration from defaults, an optional YAML file at path and
// the environment, in increasing order of precedence. A .env file in the
// working directory is loaded without overriding variables already set.
// The result is not validated: callers apply their own overrides first and
// then call Validate.
func Load(path string) (*Config, error) {
	_ = godotenv.Load(envFile)

	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)
	bindEnvs(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.GitHub.Token == "" {
		cfg.GitHub.Token = firstEnv("GH_TOKEN", "GITHUB_TOKEN")
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("logging.level", "info")
	v.SetDefault("dry_run", false)

	v.SetDefault("github.owner", "conan-io")
	v.SetDefault("github.repo", "conan-center-index")
	v.SetDefault("github.mainline_ref", "master")
	v.SetDefault("github.raw_base_url", "https://raw.githubusercontent.com")
	v.SetDefault("github.change_source", "diff")

	v.SetDefault("matrix.recipes_root", domain.DefaultRecipesRoot)
	environments := make([]string, 0, len(domain.DefaultEnvironments))
	for _, e := range domain.DefaultEnvironments {
		environments = append(environments, string(e))
	}
	v.SetDefault("matrix.environments", environments)

	v.SetDefault("rate_limit.threshold", 10)

	v.SetDefault("http.request_timeout", 30*time.Second)
	v.SetDefault("http.max_concurrency", 0)
	v.SetDefault("http.cache_size", 4096)

	v.SetDefault("output.dir", ".")
	v.SetDefault("output.linux_file", "matrixLinux.yml")
	v.SetDefault("output.bsd_file", "matrixBSD.yml")
}

func bindEnvs(v *viper.Viper) {
	keys := []string{
		"logging.level",
		"dry_run",
		"github.owner",
		"github.repo",
		"github.token",
		"github.user",
		"github.password",
		"github.app_id",
		"github.installation_id",
		"github.private_key_path",
		"github.api_base_url",
		"github.raw_base_url",
		"github.mainline_ref",
		"github.change_source",
		"matrix.recipes_root",
		"matrix.recipes_dir",
		"matrix.environments",
		"rate_limit.threshold",
		"http.request_timeout",
		"http.max_concurrency",
		"http.cache_size",
		"output.dir",
		"output.linux_file",
		"output.bsd_file",
	}

	for _, k := range keys {
		_ = v.BindEnv(k)
	}
}

func firstEnv(keys ...string) string {
	for _, k := range keys {
		if val := os.Getenv(k); val != "" {
			return val
		}
	}
	return ""
}
