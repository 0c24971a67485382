package config

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/sidkik/treemirror/cmd/util"
	"github.com/sidkik/treemirror/pkg/config"
	"github.com/sidkik/treemirror/pkg/errors"
	"github.com/sidkik/treemirror/pkg/fswatch"
)

// Mocked for unit testing.
var (
	stdout         io.Writer = os.Stdout
	stdin          io.Reader = os.Stdin
	parseConfig              = config.ParseMirror
	writeConfig              = config.WriteMirror
	getConfigPath            = config.GetUserConfigPath
	guessDirectory           = guessDirectoryImpl
)

// New creates a new `config` command.
func New() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Save the directories to mirror and the watch settings",
		Long: `Save the directories to mirror and the watch settings to ` + config.UserConfigPath + `.

Only the settings passed as flags are changed. If no directories are saved
yet, and none are passed as flags, "treemirror config" prompts for them.`,
		Run: func(cmd *cobra.Command, _ []string) {
			if err := SetupConfig(cmd.Flags()); err != nil {
				err = errors.NewFriendlyError("Failed to setup configuration:\n%s", err)
				util.HandleFatalError(err)
			}
		},
	}

	defaults := config.Default()
	cmd.Flags().String("left", "", "The left directory.")
	cmd.Flags().String("right", "", "The right directory.")
	cmd.Flags().StringSlice("pattern", defaults.Patterns,
		"Only mirror changes to paths matching these shell patterns.")
	cmd.Flags().StringSlice("ignore", nil,
		"Don't mirror changes to paths matching these shell patterns.")
	cmd.Flags().Bool("ignore-directories", false,
		"Don't mirror changes to directories.")
	cmd.Flags().Bool("case-sensitive", defaults.CaseSensitive,
		"Match patterns case sensitively.")
	cmd.Flags().String("reconcile-interval", "",
		"Reconcile both directories this often while watching, e.g. 5m.")

	// Setup the commands for querying the contents of the config.
	type getterSpec struct {
		use, short string
		fn         func(config.Mirror) string
	}

	getters := []getterSpec{
		{
			use:   "get-left",
			short: "Get the configured left directory",
			fn:    func(cfg config.Mirror) string { return cfg.Left },
		},
		{
			use:   "get-right",
			short: "Get the configured right directory",
			fn:    func(cfg config.Mirror) string { return cfg.Right },
		},
	}
	for _, getter := range getters {
		getter := getter
		cmd.AddCommand(&cobra.Command{
			Use:   getter.use,
			Short: getter.short,
			Run: func(_ *cobra.Command, _ []string) {
				cfg, err := parseConfig()
				if err != nil {
					err = errors.WithContext(err, "read config")
					util.HandleFatalError(err)
				}

				fmt.Fprintln(stdout, getter.fn(cfg))
			},
		})
	}

	return cmd
}

// SetupConfig writes the current config, updated with the flags that were
// set, to disk.
func SetupConfig(flags *pflag.FlagSet) error {
	cfg, err := generateConfig(flags)
	if err != nil {
		return errors.WithContext(err, "generate config")
	}

	if err := writeConfig(cfg); err != nil {
		return errors.WithContext(err, "write config")
	}

	path, err := getConfigPath()
	if err != nil {
		return errors.WithContext(err, "get config path")
	}

	fmt.Fprintf(stdout, "Wrote config to %s\n", path)
	return nil
}

func generateConfig(flags *pflag.FlagSet) (config.Mirror, error) {
	cfg, err := parseConfig()
	if err != nil {
		log.WithError(err).Debug("Failed to read current config")
		cfg = config.Default()
	}

	// Only the flags that were explicitly set override the saved config.
	// The lookups can't fail since the flags are all defined by New.
	flags.Visit(func(flag *pflag.Flag) {
		switch flag.Name {
		case "left":
			cfg.Left, _ = flags.GetString(flag.Name)
		case "right":
			cfg.Right, _ = flags.GetString(flag.Name)
		case "pattern":
			cfg.Patterns, _ = flags.GetStringSlice(flag.Name)
		case "ignore":
			cfg.IgnorePatterns, _ = flags.GetStringSlice(flag.Name)
		case "ignore-directories":
			cfg.IgnoreDirectories, _ = flags.GetBool(flag.Name)
		case "case-sensitive":
			cfg.CaseSensitive, _ = flags.GetBool(flag.Name)
		case "reconcile-interval":
			cfg.ReconcileInterval, _ = flags.GetString(flag.Name)
		}
	})

	prompts := []struct {
		prompt string
		field  *string
	}{
		{"Left directory", &cfg.Left},
		{"Right directory", &cfg.Right},
	}
	stdinReader := bufio.NewReader(stdin)
	for _, p := range prompts {
		if *p.field != "" {
			continue
		}

		resp, err := promptUser(stdinReader, p.prompt, guessDirectory())
		if err != nil {
			return config.Mirror{}, errors.WithContext(err, "read response")
		}
		*p.field = resp
	}

	// Store absolute paths so that the config works from any directory.
	for _, root := range []*string{&cfg.Left, &cfg.Right} {
		if *root == "" {
			continue
		}
		if *root, err = config.ExpandRoot(*root); err != nil {
			return config.Mirror{}, err
		}
	}

	if _, err := util.GetRoots(nil, cfg); err != nil {
		return config.Mirror{}, err
	}
	if _, err := cfg.GetReconcileInterval(); err != nil {
		return config.Mirror{}, errors.NewFriendlyError(
			"%q is not a valid reconcile interval. Durations look like \"30s\" or \"5m\".",
			cfg.ReconcileInterval)
	}
	if _, err := fswatch.NewFilter(cfg.FilterConfig()); err != nil {
		return config.Mirror{}, errors.NewFriendlyError("Invalid pattern: %s", err)
	}
	return cfg, nil
}

// guessDirectoryImpl suggests the current directory.
func guessDirectoryImpl() string {
	dir, err := os.Getwd()
	if err != nil {
		log.WithError(err).Debug("Failed to get current directory")
		return ""
	}
	return dir
}

func promptUser(stdinReader *bufio.Reader, prompt, defaultAnswer string) (string, error) {
	// Display a new line at the end to separate different fields to make it
	// look clearer.
	defer fmt.Fprintln(stdout)

	if defaultAnswer != "" {
		fmt.Fprintf(stdout, "%s:\n\n", prompt)
		fmt.Fprintf(stdout, "\t1. %s (current directory)\n", defaultAnswer)
		fmt.Fprint(stdout, "\t2. (Enter manually)\n\n")

		for {
			fmt.Fprint(stdout, "Please choose one [1-2]: ")
			choiceStr, err := stdinReader.ReadString('\n')
			if err != nil {
				return "", err
			}

			choiceStr = strings.TrimRight(choiceStr, "\n")

			// Default to the first choice if user doesn't enter anything.
			if choiceStr == "" {
				return defaultAnswer, nil
			}

			choice, err := strconv.Atoi(choiceStr)
			if err != nil || choice < 1 || choice > 2 {
				// Try again if the input is invalid.
				continue
			}
			if choice == 1 {
				return defaultAnswer, nil
			}
			break
		}
	} else {
		fmt.Fprintf(stdout, "%s:\n", prompt)
	}

	fmt.Fprint(stdout, "Please enter manually: ")
	resp, err := stdinReader.ReadString('\n')
	if err != nil {
		return "", err
	}

	return strings.TrimRight(resp, "\n"), nil
}
