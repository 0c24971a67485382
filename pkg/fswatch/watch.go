package fswatch

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/sidkik/treemirror/pkg/errors"
	"github.com/sidkik/treemirror/pkg/mirror"
)

var fs = afero.NewOsFs()

// eventBuffer is the number of notifications that can be queued before the
// watch goroutine blocks on the subscriber.
const eventBuffer = 256

// Source creates recursive fsnotify watches.
type Source struct {
	filter *Filter
}

// NewSource returns a Source whose subscriptions only deliver notifications
// allowed by `filter`. A nil filter allows everything.
func NewSource(filter *Filter) *Source {
	return &Source{filter: filter}
}

// Subscribe watches each root and all of its subdirectories with a single
// fsnotify watcher, so notifications from every root share one arrival-ordered
// channel. Directories created after the subscription started are watched as
// they appear.
func (src *Source) Subscribe(roots ...string) (mirror.Subscription, error) {
	if len(roots) == 0 {
		return nil, errors.New("no roots to watch")
	}

	var cleaned, dirs []string
	for _, root := range roots {
		root = filepath.Clean(root)
		rootDirs, err := getDirsToWatch(root)
		if err != nil {
			return nil, err
		}
		cleaned = append(cleaned, root)
		dirs = append(dirs, rootDirs...)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.WithContext(err, "create watcher")
	}

	for _, dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			// Close the watcher so that we release the file handlers for the
			// previously added paths.
			if err := watcher.Close(); err != nil {
				log.WithError(err).Warn("Failed to close file watcher")
			}

			return nil, errors.WithContext(err, fmt.Sprintf("watch %q", dir))
		}
	}

	sub := &subscription{
		roots:   strings.Join(cleaned, ", "),
		watcher: watcher,
		filter:  src.filter,
		dirs:    map[string]struct{}{},
		events:  make(chan mirror.Notification, eventBuffer),
		errs:    make(chan error, eventBuffer),
		done:    make(chan struct{}),
		exited:  make(chan struct{}),
	}
	for _, dir := range dirs {
		sub.dirs[dir] = struct{}{}
	}

	go sub.run()
	log.WithField("roots", sub.roots).WithField("dirs", len(dirs)).Debug("Started watching")
	return sub, nil
}

type subscription struct {
	roots   string
	watcher *fsnotify.Watcher
	filter  *Filter

	// dirs is the set of directories known to exist under the roots. fsnotify
	// doesn't say whether a removed path was a directory, so it's tracked
	// here. Only accessed by the run goroutine once the watch is started.
	dirs map[string]struct{}

	events chan mirror.Notification
	errs   chan error

	closeOnce sync.Once
	done      chan struct{}
	exited    chan struct{}
}

func (sub *subscription) Events() <-chan mirror.Notification {
	return sub.events
}

func (sub *subscription) Errors() <-chan error {
	return sub.errs
}

// Close stops the watch and waits for the watch goroutine to exit. Both
// channels are closed once it returns.
func (sub *subscription) Close() (err error) {
	sub.closeOnce.Do(func() {
		close(sub.done)
		err = sub.watcher.Close()
		<-sub.exited
	})
	return err
}

func (sub *subscription) run() {
	defer close(sub.exited)
	defer close(sub.errs)
	defer close(sub.events)

	for {
		select {
		case <-sub.done:
			return
		case event, ok := <-sub.watcher.Events:
			if !ok {
				return
			}
			for _, n := range sub.toNotifications(event) {
				if !sub.send(n) {
					return
				}
			}
		case err, ok := <-sub.watcher.Errors:
			if !ok {
				return
			}
			select {
			case sub.errs <- errors.WithContext(err, fmt.Sprintf("watch %s", sub.roots)):
			case <-sub.done:
				return
			}
		}
	}
}

// send delivers `n` unless it's filtered out. It returns false if the
// subscription was closed while waiting for the subscriber.
func (sub *subscription) send(n mirror.Notification) bool {
	if sub.filter != nil && !sub.filter.Allows(n) {
		return true
	}

	select {
	case sub.events <- n:
		return true
	case <-sub.done:
		return false
	}
}

func (sub *subscription) toNotifications(event fsnotify.Event) []mirror.Notification {
	path := filepath.Clean(event.Name)

	switch {
	case event.Has(fsnotify.Create):
		return sub.created(path)
	case event.Has(fsnotify.Remove):
		isDir := sub.forget(path)
		return []mirror.Notification{{Kind: mirror.Deleted, IsDirectory: isDir, SrcPath: path}}
	case event.Has(fsnotify.Rename):
		// The new name arrives as a separate Create event, so the destination
		// is unknown here.
		isDir := sub.forget(path)
		if isDir {
			// The watch may have been carried along to the new name, or
			// already dropped by fsnotify.
			if err := sub.watcher.Remove(path); err != nil {
				log.WithError(err).WithField("path", path).Debug("Failed to remove watch for moved directory")
			}
		}
		return []mirror.Notification{{Kind: mirror.Moved, IsDirectory: isDir, SrcPath: path}}
	case event.Has(fsnotify.Write), event.Has(fsnotify.Chmod):
		_, isDir := sub.dirs[path]
		return []mirror.Notification{{Kind: mirror.Modified, IsDirectory: isDir, SrcPath: path}}
	default:
		return nil
	}
}

// created handles a new path. New directories are watched, and their
// existing contents are reported as created since they may have been written
// before the watch was added.
func (sub *subscription) created(path string) []mirror.Notification {
	fi, err := fs.Stat(path)
	if err != nil {
		// The path was removed again before we could look at it. The Remove
		// event that follows will be reported.
		log.WithError(err).WithField("path", path).Debug("Failed to stat created path")
		return []mirror.Notification{{Kind: mirror.Created, SrcPath: path}}
	}

	if !fi.IsDir() {
		return []mirror.Notification{{Kind: mirror.Created, SrcPath: path}}
	}

	var notifications []mirror.Notification
	err = afero.Walk(fs, path, func(child string, fi os.FileInfo, err error) error {
		if err != nil {
			log.WithError(err).WithField("path", child).Debug("Failed to walk created directory")
			return nil
		}

		if fi.IsDir() {
			if err := sub.watcher.Add(child); err != nil {
				log.WithError(err).WithField("path", child).Warn("Failed to watch new directory")
			}
			sub.dirs[child] = struct{}{}
		} else if !fi.Mode().IsRegular() {
			return nil
		}

		notifications = append(notifications, mirror.Notification{
			Kind:        mirror.Created,
			IsDirectory: fi.IsDir(),
			SrcPath:     child,
		})
		return nil
	})
	if err != nil {
		log.WithError(err).WithField("path", path).Warn("Failed to walk created directory")
	}
	return notifications
}

// forget removes `path` and everything below it from the known directories.
// It returns whether `path` was a known directory.
func (sub *subscription) forget(path string) bool {
	_, isDir := sub.dirs[path]
	if !isDir {
		return false
	}

	prefix := path + string(filepath.Separator)
	for dir := range sub.dirs {
		if dir == path || strings.HasPrefix(dir, prefix) {
			delete(sub.dirs, dir)
		}
	}
	return true
}

// getDirsToWatch returns `root` and every directory below it. fsnotify
// doesn't watch directories recursively, so each one needs its own watch.
func getDirsToWatch(root string) (dirs []string, err error) {
	fi, err := fs.Stat(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.FileNotFound{Path: root}
		}
		return nil, errors.WithContext(err, "stat")
	}

	if !fi.IsDir() {
		return nil, errors.NewFilesystemError("watch", root,
			errors.New("not a directory"))
	}

	err = afero.Walk(fs, root, func(path string, fi os.FileInfo, err error) error {
		if err != nil {
			return errors.WithContext(err, "walk error")
		}

		if fi.IsDir() {
			dirs = append(dirs, path)
		}
		return nil
	})
	return dirs, err
}
