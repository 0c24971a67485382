package cmd

import (
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	configCmd "github.com/sidkik/treemirror/cmd/config"
	syncCmd "github.com/sidkik/treemirror/cmd/sync"
	"github.com/sidkik/treemirror/cmd/util"
	"github.com/sidkik/treemirror/cmd/version"
	"github.com/sidkik/treemirror/cmd/watch"
)

// verboseLogKey is the environment variable used to enable verbose logging.
// When it's set to `true`, Debug events are logged, rather than just Info and
// above.
const verboseLogKey = "TREEMIRROR_LOG_VERBOSE"

// Execute runs the main CLI process.
func Execute() {
	if os.Getenv(verboseLogKey) == "true" {
		log.SetLevel(log.DebugLevel)
	}

	var verbose bool
	rootCmd := &cobra.Command{
		Use:   "treemirror",
		Short: "Keep two directory trees identical",
		Long: "treemirror mirrors changes made in either of two directory trees\n" +
			"onto the other, and reconciles trees that have drifted apart.",
		SilenceUsage: true,

		// The call to rootCmd.Execute prints the error, so we silence errors
		// here to avoid double printing.
		SilenceErrors: true,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			if verbose {
				log.SetLevel(log.DebugLevel)
			}
		},
	}
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false,
		"Log debug information. Equivalent to setting "+verboseLogKey+"=true.")
	rootCmd.AddCommand(
		configCmd.New(),
		syncCmd.New(),
		version.New(),
		watch.New(),
	)

	if err := rootCmd.Execute(); err != nil {
		util.HandleFatalError(err)
	}
}
