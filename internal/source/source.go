package source

import (
	"path"
	"sort"
	"strings"
)

// DefaultExtensions are the C and C++ header and implementation extensions
// accepted when no allow-list is configured
var DefaultExtensions = []string{
	"cpp",
	"cc",
	"c++",
	"cxx",
	"c",
	"h",
	"hpp",
}

// Filter decides which paths from a diff are handed to the formatter
type Filter struct {
	exts map[string]struct{}
}

// NewFilter builds a filter from an extension allow-list. Extensions may be
// given with or without the leading dot and are matched case-insensitively.
// An empty list falls back to DefaultExtensions.
func NewFilter(extensions []string) *Filter {
	if len(extensions) == 0 {
		extensions = DefaultExtensions
	}

	f := &Filter{exts: make(map[string]struct{}, len(extensions))}
	for _, ext := range extensions {
		ext = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
		if ext == "" {
			continue
		}
		f.exts[ext] = struct{}{}
	}
	return f
}

// IsSourceFile returns true if the path has an allow-listed extension
func (f *Filter) IsSourceFile(p string) bool {
	ext := path.Ext(p)
	if ext == "" {
		return false
	}
	_, ok := f.exts[strings.ToLower(ext[1:])]
	return ok
}

// Extensions returns the normalized allow-list in sorted order
func (f *Filter) Extensions() []string {
	exts := make([]string, 0, len(f.exts))
	for ext := range f.exts {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}
