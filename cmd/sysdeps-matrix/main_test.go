package main

import (
	"bytes"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newUpstream(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/repos/acme/recipes/pulls":
			fmt.Fprint(w, `[]`)
		case "/api/repos/acme/recipes/git/trees/main:recipes":
			fmt.Fprint(w, `{"tree": [{"path": "zlib", "type": "tree"}]}`)
		case "/raw/acme/recipes/main/recipes/zlib/config.yml":
			fmt.Fprint(w, "versions:\n  system:\n    folder: all\n")
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func setupEnv(t *testing.T, srv *httptest.Server) {
	t.Helper()
	for k, v := range map[string]string{
		"SYSDEPS_GITHUB_OWNER":        "acme",
		"SYSDEPS_GITHUB_REPO":         "recipes",
		"SYSDEPS_GITHUB_MAINLINE_REF": "main",
		"SYSDEPS_GITHUB_API_BASE_URL": srv.URL + "/api/",
		"SYSDEPS_GITHUB_RAW_BASE_URL": srv.URL + "/raw",
		"SYSDEPS_LOGGING_LEVEL":       "error",
		"GH_TOKEN":                    "",
		"GITHUB_TOKEN":                "",
	} {
		t.Setenv(k, v)
	}
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	a := newApp()
	a.Writer = &out
	err := a.RunContext(t.Context(), append([]string{"sysdeps-matrix"}, args...))
	return out.String(), err
}

func TestCLI_WritesArtifacts(t *testing.T) {
	setupEnv(t, newUpstream(t))
	dir := t.TempDir()

	_, err := runCLI(t, "--output-dir", dir, "--environment", "fedora", "--environment", "freebsd")
	require.NoError(t, err)

	linux, err := os.ReadFile(filepath.Join(dir, "matrixLinux.yml"))
	require.NoError(t, err)
	assert.Contains(t, string(linux), `"package":"zlib"`)
	assert.Contains(t, string(linux), `"environment":"fedora"`)

	bsd, err := os.ReadFile(filepath.Join(dir, "matrixBSD.yml"))
	require.NoError(t, err)
	assert.Contains(t, string(bsd), `"environment":"freebsd"`)
}

func TestCLI_DryRunPrintsInsteadOfWriting(t *testing.T) {
	setupEnv(t, newUpstream(t))
	dir := t.TempDir()

	out, err := runCLI(t, "--output-dir", dir, "--environment", "fedora", "--dry-run")
	require.NoError(t, err)

	assert.Contains(t, out, "# matrixLinux.yml\n")
	assert.Contains(t, out, `"job_id":"0"`)
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestCLI_Compare(t *testing.T) {
	setupEnv(t, newUpstream(t))
	dir := t.TempDir()

	_, err := runCLI(t, "--output-dir", dir, "--environment", "fedora")
	require.NoError(t, err)

	out, err := runCLI(t, "--output-dir", dir, "--environment", "fedora", "--compare")
	require.NoError(t, err)
	assert.Empty(t, out)

	out, err = runCLI(t, "--output-dir", dir, "--environment", "fedora", "--environment", "archlinux", "--compare")
	require.NoError(t, err)
	assert.Contains(t, out, "+pr=0 package=zlib folder=all environment=archlinux")
}

func TestCLI_FlagOverridesInvalidEnvValue(t *testing.T) {
	setupEnv(t, newUpstream(t))
	t.Setenv("SYSDEPS_LOGGING_LEVEL", "bogus")

	out, err := runCLI(t, "--output-dir", t.TempDir(), "--environment", "fedora", "--log-level", "error", "--dry-run")
	require.NoError(t, err)
	assert.Contains(t, out, `"package":"zlib"`)
}

func TestCLI_InvalidFlagValue(t *testing.T) {
	setupEnv(t, newUpstream(t))

	_, err := runCLI(t, "--log-level", "loud")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "logging.level")
}
