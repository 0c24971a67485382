package mirror

import (
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"
)

// Mocked out for unit testing.
var fs = afero.NewOsFs()

// LogFunc receives one human readable line per state transition and
// filesystem action, e.g. "creating /right/src" or
// "copying /left/a.txt to /right/a.txt".
type LogFunc func(msg string)

func defaultLog(msg string) {
	log.Info(msg)
}

type options struct {
	log               LogFunc
	clock             clockwork.Clock
	reconcileInterval time.Duration
}

// Option configures a Router or a Reconcile pass.
type Option func(*options)

// WithLog sets the sink for the action log.
func WithLog(f LogFunc) Option {
	return func(o *options) {
		if f != nil {
			o.log = f
		}
	}
}

// WithClock overrides the clock used for the Router's start time and for
// periodic reconciliation.
func WithClock(c clockwork.Clock) Option {
	return func(o *options) {
		o.clock = c
	}
}

// WithReconcileInterval makes a running Router reconcile both trees every
// `interval`. Zero disables periodic reconciliation.
func WithReconcileInterval(interval time.Duration) Option {
	return func(o *options) {
		o.reconcileInterval = interval
	}
}

func newOptions(opts []Option) options {
	o := options{
		log:   defaultLog,
		clock: clockwork.NewRealClock(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func (o options) logf(format string, args ...interface{}) {
	o.log(fmt.Sprintf(format, args...))
}
