package mirror

import (
	"path/filepath"
	"strings"

	"github.com/sidkik/treemirror/pkg/errors"
)

// Side identifies one of the two mirrored trees.
type Side int

const (
	// Neither is returned for paths outside both roots.
	Neither Side = iota
	Left
	Right
)

func (s Side) String() string {
	switch s {
	case Left:
		return "left"
	case Right:
		return "right"
	default:
		return "neither"
	}
}

// Translate replaces the `fromRoot` prefix of `path` with `toRoot`.
// For example, translating `/left/src/index.js` from `/left` to `/right`
// returns `/right/src/index.js`.
func Translate(path, fromRoot, toRoot string) (string, error) {
	rel, ok := relativeTo(fromRoot, path)
	if !ok {
		return "", errors.NotUnderRoot{Path: path, Root: fromRoot}
	}

	if rel == "" {
		return filepath.Clean(toRoot), nil
	}
	return filepath.Join(toRoot, rel), nil
}

// relativeTo returns the path of `path` relative to `root`, or "" if they're
// the same path. Only whole path segments match, so `/a/left2` is not under
// `/a/left`.
func relativeTo(root, path string) (string, bool) {
	root = filepath.Clean(root)
	path = filepath.Clean(path)
	if path == root {
		return "", true
	}

	prefix := root
	if !strings.HasSuffix(prefix, string(filepath.Separator)) {
		prefix += string(filepath.Separator)
	}
	if !strings.HasPrefix(path, prefix) {
		return "", false
	}
	return strings.TrimPrefix(path, prefix), true
}

// Roots is a validated pair of tree roots.
type Roots struct {
	Left  string
	Right string
}

// NewRoots cleans the given roots and checks that they are distinct and that
// neither is nested inside the other.
func NewRoots(left, right string) (Roots, error) {
	left = filepath.Clean(left)
	right = filepath.Clean(right)

	if left == right {
		return Roots{}, errors.SameRoot{Root: left}
	}
	if _, ok := relativeTo(left, right); ok {
		return Roots{}, errors.NestedRoots{Outer: left, Inner: right}
	}
	if _, ok := relativeTo(right, left); ok {
		return Roots{}, errors.NestedRoots{Outer: right, Inner: left}
	}
	return Roots{Left: left, Right: right}, nil
}

// Contains returns whether `path` is under either root.
func (r Roots) Contains(path string) bool {
	return r.Origin(path) != Neither
}

// Origin returns which tree `path` belongs to.
func (r Roots) Origin(path string) Side {
	if _, ok := relativeTo(r.Left, path); ok {
		return Left
	}
	if _, ok := relativeTo(r.Right, path); ok {
		return Right
	}
	return Neither
}

// Opposite translates `path` onto the other tree.
func (r Roots) Opposite(path string) (string, Side, error) {
	switch r.Origin(path) {
	case Left:
		dst, err := Translate(path, r.Left, r.Right)
		return dst, Left, err
	case Right:
		dst, err := Translate(path, r.Right, r.Left)
		return dst, Right, err
	default:
		return "", Neither, errors.NotUnderRoot{Path: path, Root: r.Left}
	}
}
