// Package preview renders the change a formatter run would make to a file.
package preview

import (
	"bytes"
	"fmt"

	"github.com/pmezard/go-difflib/difflib"
)

const (
	beforeLabel = "(before formatting)"
	afterLabel  = "(after formatting)"

	contextLines = 3
)

// Unified returns a line-based unified diff from before to after, labeled
// with path on both sides. It returns an empty string if they are identical.
func Unified(path string, before, after []byte) (string, error) {
	if bytes.Equal(before, after) {
		return "", nil
	}

	d := difflib.UnifiedDiff{
		A:        splitLines(before),
		B:        splitLines(after),
		FromFile: path,
		FromDate: beforeLabel,
		ToFile:   path,
		ToDate:   afterLabel,
		Context:  contextLines,
	}

	text, err := difflib.GetUnifiedDiffString(d)
	if err != nil {
		return "", fmt.Errorf("rendering diff for %s: %w", path, err)
	}
	return text, nil
}

// splitLines keeps line terminators so the diff reproduces them, and marks
// a missing final newline the way diff(1) does.
func splitLines(b []byte) []string {
	if len(b) == 0 {
		return nil
	}

	lines := difflib.SplitLines(string(b))
	// SplitLines always appends "\n" to the last element, which leaves a
	// lone "\n" when the input already ended with one.
	if last := len(lines) - 1; lines[last] == "\n" && b[len(b)-1] == '\n' {
		return lines[:last]
	}
	if b[len(b)-1] != '\n' {
		lines[len(lines)-1] += "\\ No newline at end of file\n"
	}
	return lines
}
