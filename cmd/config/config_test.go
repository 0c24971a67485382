package config

import (
	"bufio"
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sidkik/treemirror/pkg/config"
	"github.com/sidkik/treemirror/pkg/errors"
)

func TestPromptUser(t *testing.T) {
	tests := []struct {
		name                  string
		prompt, defaultAnswer string
		stdin                 string
		expPrompt, expResult  string
	}{
		{
			name:      "No default answer",
			prompt:    "Left directory",
			stdin:     "/data/left\n",
			expPrompt: "Left directory:\n" + "Please enter manually: \n",
			expResult: "/data/left",
		},
		{
			name:          "Chose default answer",
			prompt:        "Left directory",
			defaultAnswer: "/home/user/src",
			stdin:         "1\n",
			expPrompt: "Left directory:\n" +
				"\n" +
				"\t1. /home/user/src (current directory)\n" +
				"\t2. (Enter manually)\n" +
				"\n" +
				"Please choose one [1-2]: \n",
			expResult: "/home/user/src",
		},
		{
			name:          "Empty choice picks default answer",
			prompt:        "Left directory",
			defaultAnswer: "/home/user/src",
			stdin:         "\n",
			expPrompt: "Left directory:\n" +
				"\n" +
				"\t1. /home/user/src (current directory)\n" +
				"\t2. (Enter manually)\n" +
				"\n" +
				"Please choose one [1-2]: \n",
			expResult: "/home/user/src",
		},
		{
			name:          "Invalid choice, then enter manually",
			prompt:        "Right directory",
			defaultAnswer: "/home/user/src",
			stdin: "3\n" +
				"2\n" +
				"/data/right\n",
			expPrompt: "Right directory:\n" +
				"\n" +
				"\t1. /home/user/src (current directory)\n" +
				"\t2. (Enter manually)\n" +
				"\n" +
				"Please choose one [1-2]: " +
				"Please choose one [1-2]: " +
				"Please enter manually: \n",
			expResult: "/data/right",
		},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			var out bytes.Buffer
			stdout = &out

			reader := bufio.NewReader(strings.NewReader(test.stdin))
			result, err := promptUser(reader, test.prompt, test.defaultAnswer)
			assert.NoError(t, err)
			assert.Equal(t, test.expResult, result)
			assert.Equal(t, test.expPrompt, out.String())
		})
	}
}

func TestSetupConfig(t *testing.T) {
	var written config.Mirror
	parseConfig = func() (config.Mirror, error) {
		cfg := config.Default()
		cfg.Left = "/saved/left"
		cfg.ReconcileInterval = "1m"
		return cfg, nil
	}
	writeConfig = func(cfg config.Mirror) error {
		written = cfg
		return nil
	}
	getConfigPath = func() (string, error) {
		return "/home/user/.treemirror.yaml", nil
	}
	guessDirectory = func() string { return "" }

	var out bytes.Buffer
	stdout = &out
	stdin = strings.NewReader("/typed/right\n")

	cmd := New()
	require.NoError(t, cmd.Flags().Parse([]string{"--ignore", "*.swp,*/.git/*", "--case-sensitive=false"}))
	assert.NoError(t, SetupConfig(cmd.Flags()))

	exp := config.Default()
	exp.Left = "/saved/left"
	exp.Right = "/typed/right"
	exp.IgnorePatterns = []string{"*.swp", "*/.git/*"}
	exp.CaseSensitive = false
	exp.ReconcileInterval = "1m"
	assert.Equal(t, exp, written)
	assert.Contains(t, out.String(), "Wrote config to /home/user/.treemirror.yaml\n")
}

func TestSetupConfigInvalid(t *testing.T) {
	parseConfig = func() (config.Mirror, error) {
		return config.Default(), nil
	}
	writeConfig = func(cfg config.Mirror) error {
		t.Fatal("invalid config should not be written")
		return nil
	}
	stdout = &bytes.Buffer{}

	cmd := New()
	require.NoError(t, cmd.Flags().Parse([]string{"--left", "/data", "--right", "/data/inner"}))
	err := SetupConfig(cmd.Flags())
	assert.IsType(t, errors.FriendlyError{}, errors.RootCause(err))

	cmd = New()
	require.NoError(t, cmd.Flags().Parse([]string{"--left", "/a", "--right", "/b",
		"--reconcile-interval", "often"}))
	err = SetupConfig(cmd.Flags())
	assert.IsType(t, errors.FriendlyError{}, errors.RootCause(err))
}
