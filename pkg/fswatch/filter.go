package fswatch

import (
	"fmt"
	"strings"

	"github.com/gobwas/glob"

	"github.com/sidkik/treemirror/pkg/errors"
	"github.com/sidkik/treemirror/pkg/mirror"
)

// FilterConfig selects which notifications are delivered to subscribers.
type FilterConfig struct {
	// Patterns are shell globs matched against the full path. A notification
	// is delivered only if one of its paths matches. `*` also matches path
	// separators.
	Patterns []string

	// IgnorePatterns drop any notification with a matching path, even if it
	// matches Patterns.
	IgnorePatterns []string

	// IgnoreDirectories drops notifications about directories.
	IgnoreDirectories bool

	CaseSensitive bool
}

// DefaultFilterConfig delivers every notification.
func DefaultFilterConfig() FilterConfig {
	return FilterConfig{
		Patterns:      []string{"*"},
		CaseSensitive: true,
	}
}

// Filter is a compiled FilterConfig.
type Filter struct {
	patterns          []glob.Glob
	ignorePatterns    []glob.Glob
	ignoreDirectories bool
	caseSensitive     bool
}

// NewFilter compiles the patterns in `config`. An empty pattern list matches
// everything.
func NewFilter(config FilterConfig) (*Filter, error) {
	patterns := config.Patterns
	if len(patterns) == 0 {
		patterns = []string{"*"}
	}

	f := &Filter{
		ignoreDirectories: config.IgnoreDirectories,
		caseSensitive:     config.CaseSensitive,
	}

	var err error
	f.patterns, err = f.compile(patterns)
	if err != nil {
		return nil, err
	}
	f.ignorePatterns, err = f.compile(config.IgnorePatterns)
	if err != nil {
		return nil, err
	}
	return f, nil
}

func (f *Filter) compile(patterns []string) ([]glob.Glob, error) {
	var compiled []glob.Glob
	for _, pattern := range patterns {
		// No separators are passed so that wildcards cross directory
		// boundaries, like fnmatch.
		g, err := glob.Compile(f.fold(pattern))
		if err != nil {
			return nil, errors.WithContext(err, fmt.Sprintf("compile pattern %q", pattern))
		}
		compiled = append(compiled, g)
	}
	return compiled, nil
}

func (f *Filter) fold(s string) string {
	if f.caseSensitive {
		return s
	}
	return strings.ToLower(s)
}

// Allows returns whether `n` should be delivered.
func (f *Filter) Allows(n mirror.Notification) bool {
	if f.ignoreDirectories && n.IsDirectory {
		return false
	}

	paths := n.Paths()
	for _, path := range paths {
		if matchesAny(f.ignorePatterns, f.fold(path)) {
			return false
		}
	}

	for _, path := range paths {
		if matchesAny(f.patterns, f.fold(path)) {
			return true
		}
	}
	return false
}

func matchesAny(globs []glob.Glob, path string) bool {
	for _, g := range globs {
		if g.Match(path) {
			return true
		}
	}
	return false
}
