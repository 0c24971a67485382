package util

import (
	"fmt"
	"io"
	"os"
	"runtime/debug"
	"strings"
	"sync"

	"github.com/buger/goterm"
	log "github.com/sirupsen/logrus"

	"github.com/sidkik/treemirror/pkg/config"
	"github.com/sidkik/treemirror/pkg/errors"
	"github.com/sidkik/treemirror/pkg/mirror"
)

// Mocked for unit testing.
var exit = os.Exit

type friendlyError interface {
	FriendlyMessage() string
}

// HandleFatalError prints `err` and exits. Errors with a user facing message
// are printed as is, without the context added while they propagated.
func HandleFatalError(err error) {
	if friendlyErr, ok := errors.RootCause(err).(friendlyError); ok {
		fmt.Fprintln(os.Stderr, friendlyErr.FriendlyMessage())
		log.WithError(err).Debug("Full error")
	} else {
		log.WithError(err).Error("Fatal error")
	}
	exit(1)
}

// HandlePanic logs a panic before crashing, so that the stack trace ends up
// in the log.
func HandlePanic() {
	if r := recover(); r != nil {
		log.WithField("panic", r).WithField("stack", string(debug.Stack())).
			Error("Unexpected panic")
		panic(r)
	}
}

// colors maps the first word of an action log line to its color.
var colors = map[string]int{
	"creating": goterm.GREEN,
	"copying":  goterm.GREEN,
	"updating": goterm.YELLOW,
	"removing": goterm.RED,
	"created":  goterm.CYAN,
	"modified": goterm.CYAN,
	"deleted":  goterm.CYAN,
	"moved":    goterm.MAGENTA,
	"started":  goterm.BLUE,
	"stopped":  goterm.BLUE,
	"sync":     goterm.BLUE,
}

func colorFor(msg string) (int, bool) {
	verb := msg
	if i := strings.IndexByte(msg, ' '); i >= 0 {
		verb = msg[:i]
	}
	color, ok := colors[verb]
	return color, ok
}

// ActionLog returns a log sink that writes each action to `out` on its own
// line, colored by the kind of action.
func ActionLog(out io.Writer) mirror.LogFunc {
	var lock sync.Mutex
	return func(msg string) {
		if color, ok := colorFor(msg); ok {
			msg = goterm.Color(msg, color)
		}

		lock.Lock()
		defer lock.Unlock()
		fmt.Fprintln(out, msg)
	}
}

// GetRoots returns the tree roots given as arguments, or the ones in the
// config if no arguments were given.
func GetRoots(args []string, cfg config.Mirror) (mirror.Roots, error) {
	var left, right string
	switch len(args) {
	case 0:
		left, right = cfg.Left, cfg.Right
	case 2:
		left, right = args[0], args[1]
	default:
		return mirror.Roots{}, errors.NewFriendlyError(
			"Expected both a LEFT and a RIGHT directory, but got %d argument(s).", len(args))
	}

	if left == "" || right == "" {
		return mirror.Roots{}, errors.NewFriendlyError(
			"The directories to mirror aren't configured.\n" +
				"Pass them as arguments, or run `treemirror config` to save them.")
	}

	var err error
	if left, err = config.ExpandRoot(left); err != nil {
		return mirror.Roots{}, errors.WithContext(err, "left root")
	}
	if right, err = config.ExpandRoot(right); err != nil {
		return mirror.Roots{}, errors.WithContext(err, "right root")
	}

	roots, err := mirror.NewRoots(left, right)
	if err != nil {
		return mirror.Roots{}, errors.NewFriendlyError("Invalid directories: %s", err)
	}
	return roots, nil
}
