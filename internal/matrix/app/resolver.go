package app

import (
	"context"
	"errors"
	"fmt"
	"path"

	"gopkg.in/yaml.v3"

	"github.com/nathantilsley/sysdeps-matrix/internal/matrix/domain"
)

const (
	configFile     = "config.yml"
	fallbackRecipe = "conanfile.py"
)

// Resolver finds the folder implementing a package's system variant.
type Resolver struct {
	content ContentFetcher
	root    string
}

// NewResolver creates a resolver reading recipes under root.
func NewResolver(content ContentFetcher, root string) *Resolver {
	if root == "" {
		root = domain.DefaultRecipesRoot
	}
	return &Resolver{content: content, root: root}
}

// Resolve returns the package's system variant at loc. When modifiedSubfolder
// is set, only a variant living in that folder qualifies. Expected absences
// are reported as *domain.SkipError.
func (r *Resolver) Resolve(ctx context.Context, pkg string, loc domain.SourceLocation, modifiedSubfolder string) (*domain.PackageConfig, error) {
	configPath := path.Join(r.root, pkg, configFile)
	data, err := r.content.Fetch(ctx, loc, configPath)
	if domain.IsNotFound(err) {
		return r.resolveFallback(ctx, pkg, loc, modifiedSubfolder)
	}
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", configPath, err)
	}

	var desc domain.Descriptor
	if err := yaml.Unmarshal(data, &desc); err != nil {
		return nil, &domain.ConfigParseError{Package: pkg, Source: loc, Err: err}
	}

	folder, ok := desc.SystemFolder()
	if !ok {
		return nil, &domain.SkipError{Package: pkg, Source: loc, Reason: "no system variant declared"}
	}
	if folder == "" {
		return nil, &domain.ConfigParseError{Package: pkg, Source: loc, Err: errors.New("system variant declares no folder")}
	}
	if modifiedSubfolder != "" && modifiedSubfolder != folder {
		return nil, &domain.SkipError{
			Package: pkg,
			Source:  loc,
			Reason:  fmt.Sprintf("change touches %s, system variant lives in %s", modifiedSubfolder, folder),
		}
	}

	return &domain.PackageConfig{Package: pkg, Folder: folder, Source: loc}, nil
}

// resolveFallback probes recipes/{pkg}/system/conanfile.py for packages
// without a config descriptor.
func (r *Resolver) resolveFallback(ctx context.Context, pkg string, loc domain.SourceLocation, modifiedSubfolder string) (*domain.PackageConfig, error) {
	folder := domain.SystemVariant
	if modifiedSubfolder != "" && modifiedSubfolder != folder {
		return nil, &domain.SkipError{
			Package: pkg,
			Source:  loc,
			Reason:  fmt.Sprintf("no %s and change touches %s", configFile, modifiedSubfolder),
		}
	}

	recipePath := path.Join(r.root, pkg, folder, fallbackRecipe)
	_, err := r.content.Fetch(ctx, loc, recipePath)
	if domain.IsNotFound(err) {
		return nil, &domain.SkipError{Package: pkg, Source: loc, Reason: "no system folder found"}
	}
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", recipePath, err)
	}

	return &domain.PackageConfig{Package: pkg, Folder: folder, Source: loc}, nil
}
