package sync

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sidkik/treemirror/cmd/util"
	"github.com/sidkik/treemirror/pkg/config"
	"github.com/sidkik/treemirror/pkg/errors"
	"github.com/sidkik/treemirror/pkg/mirror"
)

// Mocked for unit testing.
var (
	stdout      io.Writer = os.Stdout
	stdin       io.Reader = os.Stdin
	parseConfig           = config.ParseMirror
)

// New creates a new `sync` command.
func New() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "sync [LEFT RIGHT]",
		Short: "Reconcile two directories once",
		Long: `Copy entries that only exist in one directory to the other, and resolve
files that differ in favor of the most recently modified copy. If both copies
were modified at the same time, LEFT wins. Nothing is deleted.

If LEFT and RIGHT aren't given, the directories saved by "treemirror config"
are used.`,
		Args: cobra.MaximumNArgs(2),
		Run: func(_ *cobra.Command, args []string) {
			if err := run(args, yes); err != nil {
				util.HandleFatalError(err)
			}
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Don't ask for confirmation.")
	return cmd
}

func run(args []string, yes bool) error {
	cfg, err := parseConfig()
	if err != nil {
		return errors.WithContext(err, "read config")
	}

	roots, err := util.GetRoots(args, cfg)
	if err != nil {
		return err
	}

	if !yes {
		fmt.Fprintf(stdout, "Syncing %s and %s.\n", roots.Left, roots.Right)
		confirmed, err := confirm("Are you sure you want to sync?")
		if err != nil {
			return errors.WithContext(err, "read response")
		}
		if !confirmed {
			fmt.Fprintln(stdout, "Aborted.")
			return nil
		}
	}

	report, err := mirror.Reconcile(roots.Left, roots.Right, mirror.WithLog(util.ActionLog(stdout)))
	if err != nil {
		return errors.WithContext(err, "sync")
	}

	fmt.Fprintf(stdout, "Created %d directories, copied %d files and updated %d files.\n",
		report.CreatedDirs, report.CopiedFiles, report.UpdatedFiles)
	if n := len(report.Failures); n != 0 {
		return errors.NewFriendlyError("%d entries could not be synced. "+
			"See the warnings above for details.", n)
	}
	return nil
}

// confirm asks a yes or no question. Anything other than "y" or "yes" is a
// no.
func confirm(question string) (bool, error) {
	fmt.Fprintf(stdout, "%s [y/N]: ", question)
	resp, err := bufio.NewReader(stdin).ReadString('\n')
	if err != nil && err != io.EOF {
		return false, err
	}

	switch strings.ToLower(strings.TrimSpace(resp)) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}
