package app

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nathantilsley/sysdeps-matrix/internal/matrix/domain"
)

const testRepo = "conan-io/conan-center-index"

var (
	mainline = domain.Mainline(testRepo, "master")
	pr42     = domain.SourceLocation{Repo: "alice/cci", Ref: "zlib-system", PR: 42}
)

const (
	zlibConfig = "recipes/zlib/config.yml"
	zlibSystem = "recipes/zlib/system/conanfile.py"
)

func TestResolver_Resolve(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		loc        domain.SourceLocation
		subfolder  string
		setup      func(c *fakeContent)
		wantFolder string
		wantSkip   bool
		wantParse  bool
	}{
		{
			name: "config declares system variant",
			loc:  mainline,
			setup: func(c *fakeContent) {
				c.put(mainline, zlibConfig, "versions:\n  \"1.3\":\n    folder: all\n  system:\n    folder: all\n")
			},
			wantFolder: "all",
		},
		{
			name: "config without system variant",
			loc:  mainline,
			setup: func(c *fakeContent) {
				c.put(mainline, zlibConfig, "versions:\n  \"1.3\":\n    folder: all\n")
			},
			wantSkip: true,
		},
		{
			name: "modified subfolder matches declared folder",
			loc:  pr42,
			setup: func(c *fakeContent) {
				c.put(pr42, zlibConfig, "versions:\n  system:\n    folder: system\n")
			},
			subfolder:  "system",
			wantFolder: "system",
		},
		{
			name: "modified subfolder differs from declared folder",
			loc:  pr42,
			setup: func(c *fakeContent) {
				c.put(pr42, zlibConfig, "versions:\n  system:\n    folder: all\n")
			},
			subfolder: "system",
			wantSkip:  true,
		},
		{
			name: "malformed yaml",
			loc:  mainline,
			setup: func(c *fakeContent) {
				c.put(mainline, zlibConfig, "versions:\n  system: [\n")
			},
			wantParse: true,
		},
		{
			name: "versions of the wrong shape",
			loc:  mainline,
			setup: func(c *fakeContent) {
				c.put(mainline, zlibConfig, "versions: [1, 2]\n")
			},
			wantParse: true,
		},
		{
			name: "system variant without folder",
			loc:  mainline,
			setup: func(c *fakeContent) {
				c.put(mainline, zlibConfig, "versions:\n  system: {}\n")
			},
			wantParse: true,
		},
		{
			name: "no config but system recipe present",
			loc:  mainline,
			setup: func(c *fakeContent) {
				c.put(mainline, zlibSystem, "class ZlibConan: pass\n")
			},
			wantFolder: "system",
		},
		{
			name:     "no config and no system recipe",
			loc:      mainline,
			setup:    func(*fakeContent) {},
			wantSkip: true,
		},
		{
			name: "no config, system change probes the fallback",
			loc:  pr42,
			setup: func(c *fakeContent) {
				c.put(pr42, zlibSystem, "class ZlibConan: pass\n")
			},
			subfolder:  "system",
			wantFolder: "system",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			content := newFakeContent()
			tt.setup(content)
			r := NewResolver(content, "")

			cfg, err := r.Resolve(t.Context(), "zlib", tt.loc, tt.subfolder)

			switch {
			case tt.wantSkip:
				assert.True(t, domain.IsSkip(err), "want skip, got %v", err)
				assert.Nil(t, cfg)
			case tt.wantParse:
				var parseErr *domain.ConfigParseError
				require.True(t, errors.As(err, &parseErr), "want parse error, got %v", err)
				assert.Equal(t, "zlib", parseErr.Package)
				assert.False(t, domain.IsSkip(err))
			default:
				require.NoError(t, err)
				assert.Equal(t, domain.PackageConfig{Package: "zlib", Folder: tt.wantFolder, Source: tt.loc}, *cfg)
			}
		})
	}
}

func TestResolver_NoConfigOtherSubfolderSkipsWithoutProbe(t *testing.T) {
	t.Parallel()

	content := newFakeContent()
	content.put(pr42, zlibSystem, "class ZlibConan: pass\n")
	r := NewResolver(content, "")

	cfg, err := r.Resolve(t.Context(), "zlib", pr42, "all")
	assert.True(t, domain.IsSkip(err), "got %v", err)
	assert.Nil(t, cfg)
	assert.True(t, content.fetched(pr42, zlibConfig))
	assert.False(t, content.fetched(pr42, zlibSystem), "fallback must not be probed")
}

func TestResolver_UpstreamErrorsAreNotSkips(t *testing.T) {
	t.Parallel()

	upstream := &domain.UpstreamError{URL: "https://raw.example/x", StatusCode: http.StatusBadGateway}

	t.Run("config fetch", func(t *testing.T) {
		t.Parallel()
		content := newFakeContent()
		content.fail(mainline, zlibConfig, upstream)

		_, err := NewResolver(content, "").Resolve(t.Context(), "zlib", mainline, "")
		require.Error(t, err)
		assert.False(t, domain.IsSkip(err))
		assert.True(t, domain.IsUpstreamStatus(err, http.StatusBadGateway))
	})

	t.Run("fallback probe", func(t *testing.T) {
		t.Parallel()
		content := newFakeContent()
		content.fail(mainline, zlibSystem, upstream)

		_, err := NewResolver(content, "").Resolve(t.Context(), "zlib", mainline, "")
		require.Error(t, err)
		assert.False(t, domain.IsSkip(err))
		assert.True(t, domain.IsUpstreamStatus(err, http.StatusBadGateway))
	})
}

func TestResolver_CustomRoot(t *testing.T) {
	t.Parallel()

	content := newFakeContent()
	content.put(mainline, "ports/zlib/config.yml", "versions:\n  system:\n    folder: all\n")

	cfg, err := NewResolver(content, "ports").Resolve(t.Context(), "zlib", mainline, "")
	require.NoError(t, err)
	assert.Equal(t, "all", cfg.Folder)
}
