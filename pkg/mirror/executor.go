package mirror

import (
	"io"
	"os"
	"path/filepath"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/sidkik/treemirror/pkg/errors"
)

// Action is the filesystem mutation performed by Replicate.
type Action int

const (
	// ActionNone means the destination already matched the source.
	ActionNone Action = iota
	ActionCreateDir
	ActionCopy
	ActionUpdate
)

func (a Action) String() string {
	switch a {
	case ActionCreateDir:
		return "create-dir"
	case ActionCopy:
		return "copy"
	case ActionUpdate:
		return "update"
	default:
		return "none"
	}
}

// ownerWrite is the permission bit that must be set for us to modify or
// delete an entry.
const ownerWrite = 0200

// Executor performs the filesystem operations that make one tree's entry match
// the other's.
type Executor struct {
	opts options
}

// NewExecutor returns an Executor that reports its actions to the configured
// log sink.
func NewExecutor(opts ...Option) *Executor {
	return &Executor{opts: newOptions(opts)}
}

// Replicate makes `dst` match `src`. Directories are created if they're
// missing. Files are copied if they're missing, and overwritten if their
// contents differ. Nothing is written if `dst` already matches.
func (e *Executor) Replicate(src, dst string, isDirectory bool) (Action, error) {
	dstInfo, err := fs.Stat(dst)
	if err != nil && !os.IsNotExist(err) {
		return ActionNone, errors.NewFilesystemError("stat", dst, err)
	}
	dstExists := err == nil

	if isDirectory {
		if dstExists {
			if !dstInfo.IsDir() {
				return ActionNone, errors.NewFilesystemError("replicate", dst,
					errors.New("destination exists and is not a directory"))
			}
			return ActionNone, nil
		}

		if err := fs.MkdirAll(dst, 0755); err != nil {
			return ActionNone, errors.NewFilesystemError("mkdir", dst, err)
		}
		e.opts.logf("creating %s", dst)
		return ActionCreateDir, nil
	}

	if !dstExists {
		if err := copyFile(src, dst); err != nil {
			return ActionNone, err
		}
		e.opts.logf("copying %s to %s", src, dst)
		return ActionCopy, nil
	}

	if dstInfo.IsDir() {
		return ActionNone, errors.NewFilesystemError("replicate", dst,
			errors.New("destination exists and is a directory"))
	}

	equal, err := filesEqual(src, dst)
	if err != nil {
		return ActionNone, err
	}
	if equal {
		return ActionNone, nil
	}

	if err := copyFile(src, dst); err != nil {
		return ActionNone, err
	}
	e.opts.logf("updating %s to %s", src, dst)
	return ActionUpdate, nil
}

// Remove deletes the file or directory subtree at `path`. If the removal is
// refused, write permission is restored on the read-only entries in the way
// and the removal is retried once.
func (e *Executor) Remove(path string, isDirectory bool) error {
	info, err := fs.Stat(path)
	if err != nil {
		return errors.NewFilesystemError("remove", path, err)
	}
	isDirectory = isDirectory || info.IsDir()

	err = removePath(path, isDirectory)
	if err != nil && os.IsPermission(err) {
		if restoreErr := restoreRemovePermission(path, isDirectory); restoreErr != nil {
			log.WithError(restoreErr).WithField("path", path).Debug("Failed to restore write permission")
		} else {
			err = removePath(path, isDirectory)
		}
	}
	if err != nil {
		return errors.NewFilesystemError("remove", path, err)
	}

	e.opts.logf("removing %s", path)
	return nil
}

func removePath(path string, isDirectory bool) error {
	if isDirectory {
		return fs.RemoveAll(path)
	}
	return fs.Remove(path)
}

func restoreRemovePermission(path string, isDirectory bool) error {
	if err := restoreWritePermission(filepath.Dir(path)); err != nil {
		return err
	}
	if isDirectory {
		return restoreSubtreeWritePermission(path)
	}
	return restoreWritePermission(path)
}

func restoreSubtreeWritePermission(root string) error {
	return afero.Walk(fs, root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return errors.NewFilesystemError("walk", path, err)
		}
		return restoreWritePermissionInfo(path, info)
	})
}

// restoreWritePermission makes `path` writable by its owner. Missing paths are
// ignored.
func restoreWritePermission(path string) error {
	info, err := fs.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return errors.NewFilesystemError("stat", path, err)
	}
	return restoreWritePermissionInfo(path, info)
}

func restoreWritePermissionInfo(path string, info os.FileInfo) error {
	mode := info.Mode()
	want := mode | ownerWrite
	if info.IsDir() {
		// Directories also need the search bit for their children to be
		// removed.
		want |= 0100
	}
	if want == mode {
		return nil
	}

	log.WithField("path", path).Debug("Restoring write permission before modifying")
	if err := fs.Chmod(path, want); err != nil {
		return errors.NewFilesystemError("chmod", path, err)
	}
	return nil
}

// copyFile copies the contents, mode and modification time of `src` to
// `dst`, creating any missing parent directories.
func copyFile(src, dst string) error {
	srcFile, err := fs.Open(src)
	if err != nil {
		return errors.NewFilesystemError("open", src, err)
	}
	defer srcFile.Close()

	fileInfo, err := srcFile.Stat()
	if err != nil {
		return errors.NewFilesystemError("stat", src, err)
	}

	dstParent := filepath.Dir(dst)
	dstParentExists, err := afero.DirExists(fs, dstParent)
	if err != nil {
		return errors.NewFilesystemError("stat", dstParent, err)
	}

	if !dstParentExists {
		if err := fs.MkdirAll(dstParent, 0755); err != nil {
			return errors.NewFilesystemError("mkdir", dstParent, err)
		}
	}

	// An existing read-only destination can't be truncated.
	if err := restoreWritePermission(dst); err != nil {
		return err
	}

	dstFile, err := fs.Create(dst)
	if err != nil {
		return errors.NewFilesystemError("create", dst, err)
	}

	if err := fs.Chmod(dst, fileInfo.Mode()); err != nil {
		dstFile.Close()
		return errors.NewFilesystemError("chmod", dst, err)
	}

	if _, err := io.Copy(dstFile, srcFile); err != nil {
		dstFile.Close()
		return errors.NewFilesystemError("copy", dst, err)
	}

	// Close before setting the modification time, since closing a written
	// file may bump it.
	if err := dstFile.Close(); err != nil {
		return errors.NewFilesystemError("close", dst, err)
	}

	// Change the modification time as the last step so that it doesn't get
	// reset by other file operations.
	if err := fs.Chtimes(dst, time.Now(), fileInfo.ModTime()); err != nil {
		return errors.NewFilesystemError("chtimes", dst, err)
	}
	return nil
}
