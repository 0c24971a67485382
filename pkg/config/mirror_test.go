package config

import (
	"fmt"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sidkik/treemirror/pkg/errors"
	"github.com/sidkik/treemirror/pkg/fswatch"
)

func mockConfigPath(t *testing.T, path string) {
	fs = afero.NewMemMapFs()
	homedirExpand = func(_ string) (string, error) {
		return path, nil
	}
}

func TestParseMirror(t *testing.T) {
	out := "/home/user/.treemirror.yaml"

	tests := []struct {
		name      string
		input     string
		expConfig Mirror
		expError  error
	}{
		{
			name:  "DefaultsForMissingFields",
			input: "left: /data/left\nright: /data/right\n",
			expConfig: Mirror{
				Version:       InitialConfigVersion,
				Left:          "/data/left",
				Right:         "/data/right",
				Patterns:      []string{"*"},
				CaseSensitive: true,
			},
		},
		{
			name: "AllFields",
			input: fmt.Sprintf(`
version: %s
left: /data/left
right: /data/right
patterns: ["*.go", "*.md"]
ignorePatterns: ["*/.git/*"]
ignoreDirectories: true
caseSensitive: false
reconcileInterval: 5m
`, SupportedConfigVersion),
			expConfig: Mirror{
				Version:           SupportedConfigVersion,
				Left:              "/data/left",
				Right:             "/data/right",
				Patterns:          []string{"*.go", "*.md"},
				IgnorePatterns:    []string{"*/.git/*"},
				IgnoreDirectories: true,
				CaseSensitive:     false,
				ReconcileInterval: "5m",
			},
		},
		{
			name:  "RelativeRoots",
			input: "left: trees/left\nright: /data/right\n",
			expConfig: Mirror{
				Version:       InitialConfigVersion,
				Left:          "/home/user/trees/left",
				Right:         "/data/right",
				Patterns:      []string{"*"},
				CaseSensitive: true,
			},
		},
		{
			name:  "IncorrectVersion",
			input: "version: incorrect_version\nextra: fields\n",
			expError: errors.WithContext(incompatibleVersionError{
				path:   out,
				exp:    SupportedConfigVersion,
				actual: "incorrect_version",
			}, "parse"),
		},
		{
			name:  "ExtraFields",
			input: fmt.Sprintf("version: %s\nextra: fields", SupportedConfigVersion),
			expError: errors.WithContext(
				errors.NewFriendlyError(parseConfigErrTemplate, out,
					errors.New("error unmarshaling JSON: while decoding JSON: "+
						`json: unknown field "extra"`)),
				"parse"),
		},
		{
			name:  "BadInterval",
			input: "reconcileInterval: often\n",
			expError: errors.NewFriendlyError(
				"The reconcileInterval %q in %q is not a valid duration. "+
					"Durations look like \"30s\" or \"5m\".",
				"often", out),
		},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			mockConfigPath(t, out)
			require.NoError(t, afero.WriteFile(fs, out, []byte(test.input), 0644))

			config, err := ParseMirror()
			assert.Equal(t, test.expError, err)
			assert.Equal(t, test.expConfig, config)
		})
	}
}

func TestParseMissingMirror(t *testing.T) {
	mockConfigPath(t, "/home/user/.treemirror.yaml")

	config, err := ParseMirror()
	assert.NoError(t, err)
	assert.Equal(t, Default(), config)
}

func TestParseWrittenMirror(t *testing.T) {
	mockConfigPath(t, "/home/user/.treemirror.yaml")

	config := Mirror{
		Left:           "/data/left",
		Right:          "/data/right",
		Patterns:       []string{"*"},
		IgnorePatterns: []string{"*.swp"},
	}

	// Write the config to disk, and assert that we get the same config when
	// we parse it. CaseSensitive is false, so it must survive being written
	// even though it differs from the default.
	assert.NoError(t, WriteMirror(config))

	parsed, err := ParseMirror()
	assert.NoError(t, err)

	config.Version = SupportedConfigVersion
	assert.Equal(t, config, parsed)
}

func TestGetReconcileInterval(t *testing.T) {
	interval, err := Mirror{}.GetReconcileInterval()
	assert.NoError(t, err)
	assert.Zero(t, interval)

	interval, err = Mirror{ReconcileInterval: "90s"}.GetReconcileInterval()
	assert.NoError(t, err)
	assert.Equal(t, 90*time.Second, interval)

	_, err = Mirror{ReconcileInterval: "-1m"}.GetReconcileInterval()
	assert.Error(t, err)
}

func TestFilterConfig(t *testing.T) {
	assert.Equal(t, fswatch.DefaultFilterConfig(), Default().FilterConfig())

	config := Mirror{
		Patterns:          []string{"*.go"},
		IgnorePatterns:    []string{"vendor/*"},
		IgnoreDirectories: true,
	}
	assert.Equal(t, fswatch.FilterConfig{
		Patterns:          []string{"*.go"},
		IgnorePatterns:    []string{"vendor/*"},
		IgnoreDirectories: true,
	}, config.FilterConfig())
}
