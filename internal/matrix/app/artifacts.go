package app

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/nathantilsley/sysdeps-matrix/internal/matrix/domain"
)

// DefaultArtifactFiles maps output groups to the files the CI workflow reads.
var DefaultArtifactFiles = map[string]string{
	domain.GroupLinux: "matrixLinux.yml",
	domain.GroupBSD:   "matrixBSD.yml",
}

// EncodeArtifact serializes one group of m.
func EncodeArtifact(m *domain.Matrix, group string) ([]byte, error) {
	data, err := json.Marshal(m.Artifact(group))
	if err != nil {
		return nil, fmt.Errorf("encoding %s artifact: %w", group, err)
	}
	return append(data, '\n'), nil
}

// WriteArtifacts writes one file per configured group into dir, groups
// without entries included.
func WriteArtifacts(dir string, m *domain.Matrix, files map[string]string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating output dir: %w", err)
	}
	for _, group := range sortedGroups(files) {
		data, err := EncodeArtifact(m, group)
		if err != nil {
			return err
		}
		//nolint:gosec // G306: artifacts are consumed by the CI runner
		if err := os.WriteFile(filepath.Join(dir, files[group]), data, 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", files[group], err)
		}
	}
	return nil
}

// CompareWithPrevious returns, per artifact file that changed, a unified diff
// between the file currently in dir and what m would write.
func CompareWithPrevious(d Differ, dir string, m *domain.Matrix, files map[string]string) (map[string]string, error) {
	out := make(map[string]string)
	for _, group := range sortedGroups(files) {
		name := files[group]
		previous, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("reading %s: %w", name, err)
		}
		current, err := EncodeArtifact(m, group)
		if err != nil {
			return nil, err
		}
		diff, err := CompareArtifacts(d, name, previous, current)
		if err != nil {
			return nil, err
		}
		if diff != "" {
			out[name] = diff
		}
	}
	return out, nil
}

// CompareArtifacts diffs two serialized artifacts. Job ids and entry order
// are ignored, so two runs over unchanged upstream state compare equal.
func CompareArtifacts(d Differ, name string, previous, current []byte) (string, error) {
	prev, err := normalizeArtifact(previous)
	if err != nil {
		return "", fmt.Errorf("reading previous %s: %w", name, err)
	}
	cur, err := normalizeArtifact(current)
	if err != nil {
		return "", fmt.Errorf("reading generated %s: %w", name, err)
	}
	return d.ComputeDiff(name+" (previous)", name+" (generated)", prev, cur), nil
}

func normalizeArtifact(data []byte) ([]byte, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}
	var a domain.Artifact
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, err
	}
	if len(a.Include) == 0 {
		return nil, nil
	}

	lines := make([]string, 0, len(a.Include))
	for _, e := range a.Include {
		lines = append(lines, fmt.Sprintf("pr=%s package=%s folder=%s environment=%s repository=%s ref=%s",
			e.PR, e.Package, e.Folder, e.Environment, e.Repository, e.Ref))
	}
	sort.Strings(lines)
	return []byte(strings.Join(lines, "\n") + "\n"), nil
}

func sortedGroups(files map[string]string) []string {
	groups := make([]string, 0, len(files))
	for g := range files {
		groups = append(groups, g)
	}
	sort.Strings(groups)
	return groups
}
