package domain

import (
	"sort"
	"strconv"
)

// MatrixEntry is one CI job: a package's system variant, read from one
// source, built in one environment.
type MatrixEntry struct {
	Package     string `json:"package"`
	Repository  string `json:"repository"`
	Ref         string `json:"ref"`
	Folder      string `json:"folder"`
	PR          string `json:"pr"`
	Environment string `json:"environment"`
	JobID       string `json:"job_id"`
}

// Artifact is the wrapper object consumed by the CI dispatcher.
type Artifact struct {
	Include []MatrixEntry `json:"include"`
}

// Matrix holds the assembled entries partitioned by output group.
type Matrix struct {
	groups map[string][]MatrixEntry
	total  int
}

// Assemble crosses every resolved config with every environment. Configs
// sharing a (package, pr) pair are collapsed. Job ids are assigned
// sequentially over the emitted entries, so they are unique across groups.
func Assemble(configs []PackageConfig, envs []Environment) *Matrix {
	sorted := make([]PackageConfig, len(configs))
	copy(sorted, configs)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.Source.PR != b.Source.PR {
			return a.Source.PR < b.Source.PR
		}
		if a.Package != b.Package {
			return a.Package < b.Package
		}
		return a.Folder < b.Folder
	})

	m := &Matrix{groups: make(map[string][]MatrixEntry)}
	seen := make(map[string]struct{}, len(sorted))
	jobID := 0
	for _, c := range sorted {
		if _, dup := seen[c.Key()]; dup {
			continue
		}
		seen[c.Key()] = struct{}{}

		for _, env := range envs {
			entry := MatrixEntry{
				Package:     c.Package,
				Repository:  c.Source.Repo,
				Ref:         c.Source.Ref,
				Folder:      c.Folder,
				PR:          strconv.Itoa(c.Source.PR),
				Environment: string(env),
				JobID:       strconv.Itoa(jobID),
			}
			jobID++
			g := env.Group()
			m.groups[g] = append(m.groups[g], entry)
		}
	}
	m.total = jobID
	return m
}

// Len returns the number of entries across all groups.
func (m *Matrix) Len() int {
	return m.total
}

// Group returns the entries of one output group, never nil.
func (m *Matrix) Group(name string) []MatrixEntry {
	entries := m.groups[name]
	if entries == nil {
		return []MatrixEntry{}
	}
	return entries
}

// GroupNames returns the groups that hold at least one entry, sorted.
func (m *Matrix) GroupNames() []string {
	names := make([]string, 0, len(m.groups))
	for name := range m.groups {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Entries returns all entries in job id order.
func (m *Matrix) Entries() []MatrixEntry {
	all := make([]MatrixEntry, 0, m.total)
	for _, name := range m.GroupNames() {
		all = append(all, m.groups[name]...)
	}
	sort.SliceStable(all, func(i, j int) bool {
		a, _ := strconv.Atoi(all[i].JobID)
		b, _ := strconv.Atoi(all[j].JobID)
		return a < b
	})
	return all
}

// Artifact wraps one group for serialization.
func (m *Matrix) Artifact(group string) Artifact {
	return Artifact{Include: m.Group(group)}
}
