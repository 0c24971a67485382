package config

import (
	"fmt"
	"os"

	"github.com/ghodss/yaml"
	"github.com/spf13/afero"

	"github.com/sidkik/treemirror/pkg/errors"
)

// fs is swapped for an in-memory filesystem in tests.
var fs = afero.NewOsFs()

// parseConfigErrTemplate wraps yaml decoding errors. The decoder doesn't
// report which field was wrong, so its message is shown as-is.
const parseConfigErrTemplate = "Configuration file could not be parsed. " +
	"Please review %q.\n" +
	"Common pitfalls include:\n" +
	" - Using the wrong types for fields\n" +
	" - Misspelled or extra fields inside the config file\n\n" +
	"For reference, here is the error from the parser:\n" +
	"%s"

// versioned is implemented by every config file format.
type versioned interface {
	getVersion() string
}

type incompatibleVersionError struct {
	path, exp, actual string
}

func (err incompatibleVersionError) Error() string {
	return err.FriendlyMessage()
}

func (err incompatibleVersionError) FriendlyMessage() string {
	return fmt.Sprintf("The configuration file %q is incompatible "+
		"with this version of treemirror.\n"+
		"Expected version %q, but got %q.", err.path, err.exp, err.actual)
}

// parseConfig decodes the yaml file at `path` over `config`, so fields missing
// from the file keep their defaults.
func parseConfig(path string, config versioned, expVersion string) error {
	contents, err := readConfigFile(path)
	if err != nil {
		return err
	}

	// Decode leniently first so that a file written for another version
	// reports the version mismatch instead of its unknown fields.
	if err := decode(path, contents, config, false); err != nil {
		return err
	}
	if actual := config.getVersion(); actual != expVersion {
		return incompatibleVersionError{path: path, exp: expVersion, actual: actual}
	}
	return decode(path, contents, config, true)
}

func readConfigFile(path string) ([]byte, error) {
	contents, err := afero.ReadFile(fs, path)
	switch {
	case os.IsNotExist(err):
		return nil, errors.FileNotFound{Path: path}
	case err != nil:
		return nil, errors.WithContext(err, "read file")
	}
	return contents, nil
}

func decode(path string, contents []byte, config versioned, strict bool) error {
	var err error
	if strict {
		err = yaml.UnmarshalStrict(contents, config, yaml.DisallowUnknownFields)
	} else {
		err = yaml.Unmarshal(contents, config)
	}
	if err != nil {
		return errors.NewFriendlyError(parseConfigErrTemplate, path, err)
	}
	return nil
}
