package mirror

import (
	"os"
	"path/filepath"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/sidkik/treemirror/pkg/errors"
)

// Entry is a directory or file found while walking a tree root.
type Entry struct {
	// AbsPath is the path that can be opened by the process.
	AbsPath string

	// RelPath is the path relative to the tree root. Entries in different
	// trees with the same RelPath are the same logical object.
	RelPath string
}

// Inventory is a point-in-time listing of a tree root. Entries are kept in
// walk order, which is lexical.
type Inventory struct {
	Root  string
	Dirs  []Entry
	Files []Entry

	dirIndex  map[string]Entry
	fileIndex map[string]Entry
}

// Dir returns the directory entry with the given relative path.
func (inv Inventory) Dir(relPath string) (Entry, bool) {
	e, ok := inv.dirIndex[relPath]
	return e, ok
}

// File returns the file entry with the given relative path.
func (inv Inventory) File(relPath string) (Entry, bool) {
	e, ok := inv.fileIndex[relPath]
	return e, ok
}

// TakeInventory walks `root` and records every directory and regular file
// beneath it. The root itself isn't included.
func TakeInventory(root string) (Inventory, error) {
	inv := Inventory{
		Root:      root,
		dirIndex:  map[string]Entry{},
		fileIndex: map[string]Entry{},
	}

	err := afero.Walk(fs, root, func(path string, fi os.FileInfo, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			// The entry most likely disappeared mid-walk. It'll be picked
			// up by the next pass if it comes back.
			log.WithError(err).WithField("path", path).Warn("Skipping unreadable entry")
			if fi != nil && fi.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if path == root {
			if !fi.IsDir() {
				return errors.New("not a directory")
			}
			return nil
		}

		relPath, err := filepath.Rel(root, path)
		if err != nil {
			return errors.WithContext(err, "relative path")
		}
		entry := Entry{AbsPath: path, RelPath: relPath}

		switch {
		case fi.IsDir():
			inv.Dirs = append(inv.Dirs, entry)
			inv.dirIndex[relPath] = entry
		case fi.Mode().IsRegular():
			inv.Files = append(inv.Files, entry)
			inv.fileIndex[relPath] = entry
		default:
			log.WithField("path", path).Debug("Skipping non-regular file")
		}
		return nil
	})
	if err != nil {
		return Inventory{}, errors.NewFilesystemError("walk", root, err)
	}
	return inv, nil
}
