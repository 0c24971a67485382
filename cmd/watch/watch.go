package watch

import (
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/sidkik/treemirror/cmd/util"
	"github.com/sidkik/treemirror/pkg/config"
	"github.com/sidkik/treemirror/pkg/errors"
	"github.com/sidkik/treemirror/pkg/fswatch"
	"github.com/sidkik/treemirror/pkg/mirror"
)

// Mocked for unit testing.
var (
	stdout      io.Writer = os.Stdout
	parseConfig           = config.ParseMirror
	waitForExit           = waitForSignal
)

type options struct {
	initialSync       bool
	reconcileInterval time.Duration
}

// New creates a new `watch` command.
func New() *cobra.Command {
	var opts options
	cmd := &cobra.Command{
		Use:   "watch [LEFT RIGHT]",
		Short: "Mirror changes between two directories until interrupted",
		Long: `Watch both directories and mirror every change made in one onto the other.

If LEFT and RIGHT aren't given, the directories saved by "treemirror config"
are used. Renames aren't mirrored directly. Run "treemirror sync", or use
--reconcile-interval, to bring renamed entries across.`,
		Args: cobra.MaximumNArgs(2),
		Run: func(cmd *cobra.Command, args []string) {
			if err := run(cmd, args, opts); err != nil {
				util.HandleFatalError(err)
			}
		},
	}
	cmd.Flags().BoolVar(&opts.initialSync, "initial-sync", false,
		"Reconcile both directories before watching them.")
	cmd.Flags().DurationVar(&opts.reconcileInterval, "reconcile-interval", 0,
		"Reconcile both directories this often while watching, e.g. 5m. "+
			"Overrides reconcileInterval in the config file. 0 disables it.")
	return cmd
}

func run(cmd *cobra.Command, args []string, opts options) error {
	cfg, err := parseConfig()
	if err != nil {
		return errors.WithContext(err, "read config")
	}

	roots, err := util.GetRoots(args, cfg)
	if err != nil {
		return err
	}

	interval := opts.reconcileInterval
	if !cmd.Flags().Changed("reconcile-interval") {
		if interval, err = cfg.GetReconcileInterval(); err != nil {
			return errors.WithContext(err, "parse reconcile interval")
		}
	}

	filter, err := fswatch.NewFilter(cfg.FilterConfig())
	if err != nil {
		return errors.NewFriendlyError("Invalid pattern in config: %s", err)
	}

	logFn := util.ActionLog(stdout)
	if opts.initialSync {
		report, err := mirror.Reconcile(roots.Left, roots.Right, mirror.WithLog(logFn))
		if err != nil {
			return errors.WithContext(err, "initial sync")
		}
		if len(report.Failures) != 0 {
			log.WithField("failures", len(report.Failures)).
				Warn("Some entries couldn't be synced. Continuing to watch.")
		}
	}

	router := mirror.NewRouter(roots, fswatch.NewSource(filter),
		mirror.WithLog(logFn),
		mirror.WithReconcileInterval(interval))
	if err := router.Start(); err != nil {
		return errors.WithContext(err, "start watching")
	}

	waitForExit()
	router.Stop()

	stats := router.Stats()
	log.WithFields(log.Fields{
		"replicated":  stats.Replicated,
		"unchanged":   stats.Unchanged,
		"removed":     stats.Removed,
		"ignored":     stats.Ignored,
		"failed":      stats.Failed,
		"watchErrors": stats.WatchErrors,
		"reconciles":  stats.Reconciles,
		"uptime":      time.Since(router.StartedAt()).Round(time.Second),
	}).Debug("Finished watching")
	return nil
}

// waitForSignal blocks until the process is interrupted or terminated.
func waitForSignal() {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(c)
	<-c
}
