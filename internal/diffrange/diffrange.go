// Package diffrange recovers the changed line ranges of each file from
// unified diff text.
package diffrange

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// DefaultStrip removes the "b/" prefix git puts on new-file paths
const DefaultStrip = 1

var hunkHeader = regexp.MustCompile(`^@@\s[^+]*\+(\d+)(?:,(\d+))?`)

// Range is an inclusive, 1-based line interval in the post-patch file
type Range struct {
	Start int
	End   int
}

// Arg renders the range as a formatter line restriction
func (r Range) Arg() string {
	return fmt.Sprintf("-lines=%d:%d", r.Start, r.End)
}

func (r Range) String() string {
	return fmt.Sprintf("%d:%d", r.Start, r.End)
}

// ChangeSet maps a file path to its changed ranges in hunk order.
// Overlapping and duplicate ranges are kept as they appear.
type ChangeSet map[string][]Range

// Files returns the paths in sorted order
func (cs ChangeSet) Files() []string {
	files := make([]string, 0, len(cs))
	for f := range cs {
		files = append(files, f)
	}
	sort.Strings(files)
	return files
}

// Options controls how file markers are interpreted
type Options struct {
	// Strip is the number of leading path components removed from "+++" paths
	Strip int
	// Include reports whether a stripped path should be collected.
	// A nil Include accepts every path.
	Include func(path string) bool
}

// Parse reads diff text from r and collects the changed ranges per file.
// Lines that are not file markers or hunk headers are ignored, so malformed
// input yields an empty or partial ChangeSet rather than an error. The only
// error returned is a read failure.
func Parse(r io.Reader, opts Options) (ChangeSet, error) {
	cs := make(ChangeSet)
	br := bufio.NewReader(r)

	// current is the target of the most recent "+++" marker; empty means
	// hunks are discarded.
	current := ""
	for {
		line, err := br.ReadString('\n')
		if line != "" {
			current = fold(cs, current, strings.TrimRight(line, "\r\n"), opts)
		}
		if errors.Is(err, io.EOF) {
			return cs, nil
		}
		if err != nil {
			return nil, fmt.Errorf("reading diff: %w", err)
		}
	}
}

// ParseString is Parse over an in-memory diff
func ParseString(diff string, opts Options) ChangeSet {
	cs, _ := Parse(strings.NewReader(diff), opts)
	return cs
}

// fold applies a single diff line to cs and returns the new current target
func fold(cs ChangeSet, current, line string, opts Options) string {
	if rest, ok := strings.CutPrefix(line, "+++ "); ok {
		p, ok := stripPath(rest, opts.Strip)
		if !ok || (opts.Include != nil && !opts.Include(p)) {
			return ""
		}
		return p
	}

	if current == "" {
		return current
	}

	m := hunkHeader.FindStringSubmatch(line)
	if m == nil {
		return current
	}

	start, err := strconv.Atoi(m[1])
	if err != nil {
		return current
	}
	count := 1
	if m[2] != "" {
		if count, err = strconv.Atoi(m[2]); err != nil {
			return current
		}
	}
	if count == 0 || start < 1 || count > math.MaxInt-start+1 {
		return current
	}

	cs[current] = append(cs[current], Range{Start: start, End: start + count - 1})
	return current
}

// stripPath takes the path token of a "+++" marker and removes n leading
// components. It fails when the path has no more than n components.
func stripPath(marker string, n int) (string, bool) {
	fields := strings.Fields(marker)
	if len(fields) == 0 {
		return "", false
	}
	p := fields[0]

	for i := 0; i < n; i++ {
		_, rest, ok := strings.Cut(p, "/")
		if !ok {
			return "", false
		}
		p = rest
	}
	if p == "" {
		return "", false
	}
	return p, true
}
