package mirror

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	log "github.com/sirupsen/logrus"

	"github.com/sidkik/treemirror/pkg/errors"
)

// State is the lifecycle state of a Router.
type State int

const (
	Stopped State = iota
	Running
)

func (s State) String() string {
	if s == Running {
		return "running"
	}
	return "stopped"
}

// maxFailures bounds the number of failures remembered by a Router.
const maxFailures = 100

// Stats counts how the notifications handled by a Router were resolved.
type Stats struct {
	// Replicated is the number of notifications that changed the opposite
	// tree.
	Replicated int

	// Unchanged is the number of notifications where the opposite tree
	// already matched. Every replicated change or removal is echoed back as
	// one of these.
	Unchanged int

	Removed     int
	Ignored     int
	Failed      int
	WatchErrors int
	Reconciles  int
}

// Router mirrors change notifications from each tree onto the other.
type Router struct {
	roots    Roots
	source   Source
	opts     options
	executor *Executor

	lock      sync.Mutex
	state     State
	startedAt time.Time
	sub       Subscription
	stop      chan struct{}
	done      chan struct{}

	statsLock sync.Mutex
	stats     Stats
	failures  []error
}

// NewRouter returns a stopped Router for the given roots.
func NewRouter(roots Roots, source Source, opts ...Option) *Router {
	o := newOptions(opts)
	return &Router{
		roots:    roots,
		source:   source,
		opts:     o,
		executor: &Executor{opts: o},
	}
}

// Start subscribes to both roots and begins handling notifications in the
// background.
func (r *Router) Start() error {
	r.lock.Lock()
	defer r.lock.Unlock()

	if r.state == Running {
		r.opts.logf("monitoring already started")
		return nil
	}

	sub, err := r.source.Subscribe(r.roots.Left, r.roots.Right)
	if err != nil {
		return errors.WithContext(err, "watch roots")
	}

	var ticks <-chan time.Time
	var ticker clockwork.Ticker
	if r.opts.reconcileInterval > 0 {
		ticker = r.opts.clock.NewTicker(r.opts.reconcileInterval)
		ticks = ticker.Chan()
	}

	r.sub = sub
	r.stop = make(chan struct{})
	r.done = make(chan struct{})
	r.state = Running
	r.startedAt = r.opts.clock.Now()

	go func(stop, done chan struct{}) {
		defer close(done)
		if ticker != nil {
			defer ticker.Stop()
		}
		r.run(sub, ticks, stop)
	}(r.stop, r.done)

	r.opts.logf("started monitoring %s and %s", r.roots.Left, r.roots.Right)
	return nil
}

// Stop waits for the notification currently being handled, if any, and then
// releases the subscription. No notifications are handled after Stop
// returns. It's safe to call Stop on a stopped Router.
func (r *Router) Stop() {
	r.lock.Lock()
	defer r.lock.Unlock()

	if r.state != Running {
		r.opts.logf("monitoring is not running")
		return
	}

	close(r.stop)
	<-r.done

	if err := r.sub.Close(); err != nil {
		log.WithError(err).Warn("Failed to close watch")
	}
	r.sub = nil
	r.state = Stopped
	r.opts.logf("stopped monitoring %s and %s", r.roots.Left, r.roots.Right)
}

// State returns whether the Router is running.
func (r *Router) State() State {
	r.lock.Lock()
	defer r.lock.Unlock()
	return r.state
}

// StartedAt returns when the Router was last started.
func (r *Router) StartedAt() time.Time {
	r.lock.Lock()
	defer r.lock.Unlock()
	return r.startedAt
}

// Stats returns a snapshot of the Router's counters.
func (r *Router) Stats() Stats {
	r.statsLock.Lock()
	defer r.statsLock.Unlock()
	return r.stats
}

// Failures returns the most recent errors hit while handling notifications.
func (r *Router) Failures() []error {
	r.statsLock.Lock()
	defer r.statsLock.Unlock()
	return append([]error{}, r.failures...)
}

func (r *Router) run(sub Subscription, ticks <-chan time.Time, stop chan struct{}) {
	events, errs := sub.Events(), sub.Errors()
	for {
		// Check for a stop first so that a busy watch can't delay it.
		select {
		case <-stop:
			return
		default:
		}

		select {
		case <-stop:
			return
		case n, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			r.Handle(n)
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			r.watchError(err)
		case <-ticks:
			r.reconcile()
		}
	}
}

// Handle replays a single notification onto the opposite tree. Errors are
// logged and recorded rather than returned so that one bad path doesn't stop
// the rest of the notifications from being mirrored.
func (r *Router) Handle(n Notification) {
	if !r.roots.Contains(n.SrcPath) {
		log.WithField("path", n.SrcPath).Debug("Ignoring notification outside both roots")
		r.update(func(s *Stats) { s.Ignored++ })
		return
	}

	r.opts.logf("%s", n)

	switch {
	case n.Kind == Moved:
		// Moves aren't mirrored. The opposite tree keeps the old name until
		// the next reconciliation pass.
		r.update(func(s *Stats) { s.Ignored++ })
		return
	case n.Kind == Modified && n.IsDirectory:
		r.update(func(s *Stats) { s.Ignored++ })
		return
	}

	dst, _, err := r.roots.Opposite(n.SrcPath)
	if err != nil {
		r.fail(n, err)
		return
	}

	switch n.Kind {
	case Created, Modified:
		action, err := r.executor.Replicate(n.SrcPath, dst, n.IsDirectory)
		if err != nil {
			r.fail(n, err)
			return
		}

		if action == ActionNone {
			r.update(func(s *Stats) { s.Unchanged++ })
		} else {
			r.update(func(s *Stats) { s.Replicated++ })
		}
	case Deleted:
		if err := r.executor.Remove(dst, n.IsDirectory); err != nil {
			// Mirrored deletions are echoed back from the opposite tree,
			// where the path is already gone.
			if fsErr, ok := errors.IsFilesystemError(err); ok && fsErr.Kind() == "not-exist" {
				log.WithField("path", dst).Debug("Mirrored path already removed")
				r.update(func(s *Stats) { s.Unchanged++ })
				return
			}
			r.fail(n, err)
			return
		}
		r.update(func(s *Stats) { s.Removed++ })
	default:
		r.update(func(s *Stats) { s.Ignored++ })
	}
}

func (r *Router) reconcile() {
	rec := reconciler{roots: r.roots, opts: r.opts, executor: r.executor}
	report, err := rec.run()
	if err != nil {
		log.WithError(err).Error("Periodic reconciliation failed")
		r.update(func(s *Stats) { s.Reconciles++; s.Failed++ })
		r.remember(err)
		return
	}

	r.update(func(s *Stats) { s.Reconciles++ })
	for _, err := range report.Failures {
		r.remember(err)
	}
}

func (r *Router) watchError(err error) {
	log.WithError(err).Warn("File watcher reported an error")
	r.update(func(s *Stats) { s.WatchErrors++ })
}

func (r *Router) fail(n Notification, err error) {
	fields := log.Fields{
		"event": n.Kind.String(),
		"path":  n.SrcPath,
	}
	if fsErr, ok := errors.IsFilesystemError(err); ok {
		fields["path"] = fsErr.Path
		fields["kind"] = fsErr.Kind()
	}
	log.WithError(err).WithFields(fields).Warn("Failed to mirror change")

	r.update(func(s *Stats) { s.Failed++ })
	r.remember(err)
}

func (r *Router) remember(err error) {
	r.statsLock.Lock()
	defer r.statsLock.Unlock()

	r.failures = append(r.failures, err)
	if len(r.failures) > maxFailures {
		r.failures = r.failures[len(r.failures)-maxFailures:]
	}
}

func (r *Router) update(f func(*Stats)) {
	r.statsLock.Lock()
	defer r.statsLock.Unlock()
	f(&r.stats)
}
