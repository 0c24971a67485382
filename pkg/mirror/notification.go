package mirror

import "fmt"

// Kind is the type of change a Notification reports.
type Kind int

const (
	Created Kind = iota
	Modified
	Deleted
	Moved
)

func (k Kind) String() string {
	switch k {
	case Created:
		return "created"
	case Modified:
		return "modified"
	case Deleted:
		return "deleted"
	case Moved:
		return "moved"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Notification is a single change reported by a Source.
type Notification struct {
	Kind        Kind
	IsDirectory bool
	SrcPath     string

	// DestPath is only set for Moved notifications, and only when the
	// source was able to pair the old and new names.
	DestPath string
}

// Paths returns the paths the notification refers to.
func (n Notification) Paths() []string {
	if n.DestPath == "" {
		return []string{n.SrcPath}
	}
	return []string{n.SrcPath, n.DestPath}
}

func (n Notification) String() string {
	if n.Kind == Moved && n.DestPath != "" {
		return fmt.Sprintf("%s %s to %s", n.Kind, n.SrcPath, n.DestPath)
	}
	return fmt.Sprintf("%s %s", n.Kind, n.SrcPath)
}

// Subscription is a recursive watch on one or more tree roots.
type Subscription interface {
	// Events delivers notifications for all of the watched roots in the
	// order they were observed.
	Events() <-chan Notification

	// Errors delivers problems reported by the underlying watcher.
	Errors() <-chan error

	// Close releases the watch. No events are delivered after it returns.
	Close() error
}

// Source creates Subscriptions. pkg/fswatch provides the implementation
// backed by the OS.
type Source interface {
	// Subscribe watches every root through a single Subscription, so that
	// changes to different roots stay in arrival order relative to each
	// other.
	Subscribe(roots ...string) (Subscription, error)
}
