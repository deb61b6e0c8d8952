package domain

import "strconv"

// SystemVariant is the version key and canonical folder of the variant built
// against OS-provided dependencies.
const SystemVariant = "system"

// PackageConfig is a package whose system variant was resolved at a source.
type PackageConfig struct {
	Package string
	Folder  string
	Source  SourceLocation
}

// Key identifies a resolved package within one run. A package appears at
// most once per PR.
func (c PackageConfig) Key() string {
	return c.Package + "#" + strconv.Itoa(c.Source.PR)
}

// Descriptor is the subset of a recipe's config.yml read by the resolver.
type Descriptor struct {
	Versions map[string]struct {
		Folder string `yaml:"folder"`
	} `yaml:"versions"`
}

// SystemFolder returns the folder declared for the system variant.
func (d Descriptor) SystemFolder() (string, bool) {
	v, ok := d.Versions[SystemVariant]
	if !ok {
		return "", false
	}
	return v.Folder, true
}
