package config

import (
	"path/filepath"
	"time"

	"github.com/ghodss/yaml"
	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/afero"

	"github.com/sidkik/treemirror/pkg/errors"
	"github.com/sidkik/treemirror/pkg/fswatch"
)

const (
	// UserConfigPath is the default path to the mirror config.
	UserConfigPath = "~/.treemirror.yaml"

	// InitialConfigVersion is the first version of the config. Config files
	// that do not specify a version default to this version.
	InitialConfigVersion = "v1alpha1"

	// SupportedConfigVersion is the config version understood by this
	// binary.
	SupportedConfigVersion = "v1alpha1"
)

// Mirror is the persisted configuration for a pair of mirrored trees.
type Mirror struct {
	Version string `json:"version,omitempty"`

	Left  string `json:"left,omitempty"`
	Right string `json:"right,omitempty"`

	// Patterns and IgnorePatterns are shell globs matched against the full
	// path of each changed entry.
	Patterns          []string `json:"patterns,omitempty"`
	IgnorePatterns    []string `json:"ignorePatterns,omitempty"`
	IgnoreDirectories bool     `json:"ignoreDirectories,omitempty"`

	// CaseSensitive isn't omitted when false, since it defaults to true.
	CaseSensitive bool `json:"caseSensitive"`

	// ReconcileInterval is a duration such as "5m". While watching, both
	// trees are fully reconciled this often. Empty disables periodic
	// reconciliation.
	ReconcileInterval string `json:"reconcileInterval,omitempty"`
}

func (m Mirror) getVersion() string {
	return m.Version
}

// Default returns the configuration used for fields that aren't set in the
// config file.
func Default() Mirror {
	filter := fswatch.DefaultFilterConfig()
	return Mirror{
		Version:       InitialConfigVersion,
		Patterns:      filter.Patterns,
		CaseSensitive: filter.CaseSensitive,
	}
}

// homedirExpand will be overridden in mock tests
var homedirExpand = homedir.Expand

// ParseMirror parses the config stored in the default path. If there is no
// config file, the defaults are returned.
func ParseMirror() (Mirror, error) {
	path, err := GetUserConfigPath()
	if err != nil {
		return Mirror{}, errors.WithContext(err, "expand config path")
	}

	config := Default()
	if err := parseConfig(path, &config, SupportedConfigVersion); err != nil {
		if _, ok := err.(errors.FileNotFound); ok {
			return Default(), nil
		}
		return Mirror{}, errors.WithContext(err, "parse")
	}

	// Evaluate relative roots relative to the config path.
	for _, root := range []*string{&config.Left, &config.Right} {
		if *root == "" {
			continue
		}

		*root, err = homedir.Expand(*root)
		if err != nil {
			return Mirror{}, errors.WithContext(err, "expand root")
		}
		if !filepath.IsAbs(*root) {
			*root = filepath.Join(filepath.Dir(path), *root)
		}
	}

	if _, err := config.GetReconcileInterval(); err != nil {
		return Mirror{}, errors.NewFriendlyError(
			"The reconcileInterval %q in %q is not a valid duration. "+
				"Durations look like \"30s\" or \"5m\".",
			config.ReconcileInterval, path)
	}
	return config, nil
}

// WriteMirror writes the given config to disk.
func WriteMirror(cfg Mirror) error {
	cfg.Version = SupportedConfigVersion
	path, err := GetUserConfigPath()
	if err != nil {
		return errors.WithContext(err, "expand config path")
	}

	yamlBytes, err := yaml.Marshal(cfg)
	if err != nil {
		return errors.WithContext(err, "marshal")
	}

	if err := afero.WriteFile(fs, path, yamlBytes, 0644); err != nil {
		return errors.WithContext(err, "write")
	}
	return nil
}

// GetUserConfigPath returns the path to the config file. This path is
// expanded, so it can be directly passed to file operations.
func GetUserConfigPath() (string, error) {
	return homedirExpand(UserConfigPath)
}

// GetReconcileInterval parses ReconcileInterval. Zero means periodic
// reconciliation is disabled.
func (m Mirror) GetReconcileInterval() (time.Duration, error) {
	if m.ReconcileInterval == "" {
		return 0, nil
	}

	interval, err := time.ParseDuration(m.ReconcileInterval)
	if err != nil {
		return 0, err
	}
	if interval < 0 {
		return 0, errors.New("negative interval")
	}
	return interval, nil
}

// FilterConfig returns the event filter settings.
func (m Mirror) FilterConfig() fswatch.FilterConfig {
	return fswatch.FilterConfig{
		Patterns:          m.Patterns,
		IgnorePatterns:    m.IgnorePatterns,
		IgnoreDirectories: m.IgnoreDirectories,
		CaseSensitive:     m.CaseSensitive,
	}
}

// ExpandRoot resolves `~` and relative paths in a root given on the command
// line.
func ExpandRoot(root string) (string, error) {
	expanded, err := homedir.Expand(root)
	if err != nil {
		return "", errors.WithContext(err, "expand home directory")
	}

	abs, err := filepath.Abs(expanded)
	if err != nil {
		return "", errors.WithContext(err, "get absolute path")
	}
	return abs, nil
}
