// Package linediff renders line-based unified diffs with go-difflib.
package linediff

import (
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

// Adapter computes unified diffs between two text documents.
type Adapter struct {
	context int
}

// New creates a diff adapter showing 3 lines of context.
func New() *Adapter {
	return &Adapter{context: 3}
}

// ComputeDiff returns the unified diff from base to head, or an empty string
// when both are identical.
func (a *Adapter) ComputeDiff(baseName, headName string, base, head []byte) string {
	diff := difflib.UnifiedDiff{
		A:        difflib.SplitLines(string(base)),
		B:        difflib.SplitLines(string(head)),
		FromFile: baseName,
		ToFile:   headName,
		Context:  a.context,
	}
	out, err := difflib.GetUnifiedDiffString(diff)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(out)
}
