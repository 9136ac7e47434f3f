// Package style resolves which formatter style applies to a path from a
// list of file and directory overrides.
package style

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"unicode"
)

// DefaultStyle makes the formatter look for its own configuration file
const DefaultStyle = "file"

// DefaultFileName is the well-known override list kept beside the executable
const DefaultFileName = ".fmtdiff-styles"

// ErrNotFound is returned when the override list does not exist
var ErrNotFound = errors.New("style override file not found")

// Entry is a single "<style> <path>" line of the override list
type Entry struct {
	Style string
	Path  string
	Line  int
}

// Table is an immutable path to style lookup
type Table struct {
	files        map[string]string
	dirs         map[string]string
	defaultStyle string
}

// ParseEntries reads override lines. Blank lines and lines starting with
// "#" are skipped; any other line must hold a style name and a path.
func ParseEntries(r io.Reader) ([]Entry, error) {
	var entries []Entry

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		i := strings.IndexFunc(line, unicode.IsSpace)
		if i < 0 {
			return nil, fmt.Errorf("line %d: expected \"<style> <path>\", got %q", lineNo, line)
		}
		name, p := line[:i], strings.TrimSpace(line[i:])

		entries = append(entries, Entry{Style: name, Path: normalize(p), Line: lineNo})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading overrides: %w", err)
	}

	return entries, nil
}

// Build classifies each entry with isDir and returns the resulting table.
// isDir is consulted once per entry; the table never touches it again.
// Later entries for the same path replace earlier ones.
func Build(entries []Entry, isDir func(path string) bool, defaultStyle string) *Table {
	if defaultStyle == "" {
		defaultStyle = DefaultStyle
	}

	t := &Table{
		files:        make(map[string]string),
		dirs:         make(map[string]string),
		defaultStyle: defaultStyle,
	}
	for _, e := range entries {
		if isDir(e.Path) {
			t.dirs[e.Path] = e.Style
		} else {
			t.files[e.Path] = e.Style
		}
	}
	return t
}

// Load parses overrides from r and classifies them against the filesystem
// under root as it is right now.
func Load(r io.Reader, root, defaultStyle string) (*Table, error) {
	entries, err := ParseEntries(r)
	if err != nil {
		return nil, err
	}
	return Build(entries, dirChecker(root), defaultStyle), nil
}

// LoadFile is Load over the override list at path
func LoadFile(path, root, defaultStyle string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("failed to open style overrides: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()

	t, err := Load(f, root, defaultStyle)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

// Resolve returns the style for p. An exact file override wins, then the
// nearest enclosing directory override, then the default style.
// Directories are checked from the containing one up through its ancestors
// to the root ".".
func (t *Table) Resolve(p string) string {
	p = normalize(p)
	if s, ok := t.files[p]; ok {
		return s
	}

	for dir := path.Dir(p); ; dir = path.Dir(dir) {
		if s, ok := t.dirs[dir]; ok {
			return s
		}
		if dir == "." || dir == "/" {
			break
		}
	}

	return t.defaultStyle
}

// Default returns the fallback style
func (t *Table) Default() string {
	return t.defaultStyle
}

// Len returns the number of overrides in the table
func (t *Table) Len() int {
	return len(t.files) + len(t.dirs)
}

func dirChecker(root string) func(string) bool {
	return func(p string) bool {
		if !filepath.IsAbs(p) {
			p = filepath.Join(root, filepath.FromSlash(p))
		}
		info, err := os.Stat(p)
		return err == nil && info.IsDir()
	}
}

func normalize(p string) string {
	return path.Clean(filepath.ToSlash(p))
}
