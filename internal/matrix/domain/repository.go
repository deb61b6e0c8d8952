package domain

import (
	"bufio"
	"errors"
	"sort"
	"strings"
	"unicode/utf8"
)

// DefaultRecipesRoot is the top-level directory holding one folder per recipe.
const DefaultRecipesRoot = "recipes"

// ChangedPackage is a recipe touched by a change. Subfolder is set when the
// change is confined to one variant folder (recipes/{name}/{subfolder}/...).
type ChangedPackage struct {
	Name      string
	Subfolder string
}

func (c ChangedPackage) String() string {
	if c.Subfolder == "" {
		return c.Name
	}
	return c.Name + "/" + c.Subfolder
}

// ChangeSet is a deduplicated set of changed packages.
type ChangeSet map[string]ChangedPackage

// Add inserts a changed package; duplicates collapse.
func (s ChangeSet) Add(c ChangedPackage) {
	s[c.String()] = c
}

// Sorted returns the members ordered by their string form.
func (s ChangeSet) Sorted() []ChangedPackage {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]ChangedPackage, 0, len(keys))
	for _, k := range keys {
		out = append(out, s[k])
	}
	return out
}

// Names returns the distinct package names, sorted.
func (s ChangeSet) Names() []string {
	seen := make(map[string]struct{}, len(s))
	var names []string
	for _, c := range s {
		if _, ok := seen[c.Name]; ok {
			continue
		}
		seen[c.Name] = struct{}{}
		names = append(names, c.Name)
	}
	sort.Strings(names)
	return names
}

var errInvalidUTF8 = errors.New("payload is not valid utf-8")

// ExtractChangedPackagesFromDiff parses unified-diff text and returns the
// recipes named by its ---/+++ file headers under root.
// recipes/{name}/{subfolder}/{file} yields "name/subfolder",
// recipes/{name}/{file} yields "name".
// File sections git emits without ---/+++ headers (pure renames, mode
// changes, binary files) contribute the paths on their "diff --git" line.
func ExtractChangedPackagesFromDiff(root, diff string) (ChangeSet, error) {
	if !utf8.ValidString(diff) {
		return ChangeSet{}, &DecodeError{What: "diff", Err: errInvalidUTF8}
	}

	set := ChangeSet{}
	add := func(path string) {
		if c, ok := changedPackageFromHeader(root, path); ok {
			set.Add(c)
		}
	}

	var sectionPaths []string
	sectionHasHeaders := false
	endSection := func() {
		if !sectionHasHeaders {
			for _, p := range sectionPaths {
				add(p)
			}
		}
		sectionPaths, sectionHasHeaders = nil, false
	}

	sc := bufio.NewScanner(strings.NewReader(diff))
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for sc.Scan() {
		line := sc.Text()
		switch {
		case strings.HasPrefix(line, "diff --git "):
			endSection()
			sectionPaths = gitHeaderPaths(strings.TrimPrefix(line, "diff --git "))
		case strings.HasPrefix(line, "--- "):
			sectionHasHeaders = true
			add(strings.TrimPrefix(line, "--- "))
		case strings.HasPrefix(line, "+++ "):
			sectionHasHeaders = true
			add(strings.TrimPrefix(line, "+++ "))
		}
	}
	if err := sc.Err(); err != nil {
		return ChangeSet{}, &DecodeError{What: "diff", Err: err}
	}
	endSection()
	return set, nil
}

// gitHeaderPaths splits "a/{old} b/{new}". Paths containing " b/" are
// ambiguous and split at the first occurrence.
func gitHeaderPaths(rest string) []string {
	i := strings.Index(rest, " b/")
	if i < 0 || !strings.HasPrefix(rest, "a/") {
		return nil
	}
	return []string{rest[:i], rest[i+1:]}
}

func changedPackageFromHeader(root, path string) (ChangedPackage, bool) {
	// git may append a tab and timestamp after the file name
	path, _, _ = strings.Cut(path, "\t")
	path = strings.TrimSpace(path)
	if path == "/dev/null" {
		return ChangedPackage{}, false
	}
	if strings.HasPrefix(path, "a/") || strings.HasPrefix(path, "b/") {
		path = path[2:]
	}

	parts := strings.Split(path, "/")
	if len(parts) < 3 || parts[0] != root || parts[1] == "" {
		return ChangedPackage{}, false
	}
	c := ChangedPackage{Name: parts[1]}
	if len(parts) >= 4 {
		c.Subfolder = parts[2]
	}
	return c, true
}

// ExtractChangedPackagesFromFiles maps a PR's changed-file listing to
// "name/subfolder" entries. Only paths at least four segments deep under
// root are considered, matching the layout recipes/{name}/{subfolder}/{file}.
func ExtractChangedPackagesFromFiles(root string, files []string) ChangeSet {
	set := ChangeSet{}
	for _, f := range files {
		parts := strings.Split(f, "/")
		if len(parts) < 4 || parts[0] != root || parts[1] == "" {
			continue
		}
		set.Add(ChangedPackage{Name: parts[1], Subfolder: parts[2]})
	}
	return set
}
