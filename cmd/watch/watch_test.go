package watch

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sidkik/treemirror/pkg/config"
	"github.com/sidkik/treemirror/pkg/errors"
)

func TestRun(t *testing.T) {
	left, right := t.TempDir(), t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(left, "before.txt"), []byte("before"), 0644))

	parseConfig = func() (config.Mirror, error) {
		cfg := config.Default()
		cfg.IgnorePatterns = []string{"*.swp"}
		return cfg, nil
	}
	var out bytes.Buffer
	stdout = &out

	waitForExit = func() {
		// The initial sync already ran.
		_, err := os.Stat(filepath.Join(right, "before.txt"))
		assert.NoError(t, err)

		require.NoError(t, os.WriteFile(filepath.Join(left, "during.txt"), []byte("during"), 0644))
		require.NoError(t, os.WriteFile(filepath.Join(left, "during.swp"), []byte("swap"), 0644))
		assert.Eventually(t, func() bool {
			contents, err := os.ReadFile(filepath.Join(right, "during.txt"))
			return err == nil && string(contents) == "during"
		}, 10*time.Second, 50*time.Millisecond)
	}
	defer func() { waitForExit = waitForSignal }()

	err := run(New(), []string{left, right}, options{initialSync: true})
	assert.NoError(t, err)

	_, err = os.Stat(filepath.Join(right, "during.swp"))
	assert.True(t, os.IsNotExist(err))
	assert.Contains(t, out.String(), "sync finished")
	assert.Contains(t, out.String(), "stopped monitoring")
}

func TestRunInvalidRoots(t *testing.T) {
	parseConfig = func() (config.Mirror, error) {
		return config.Default(), nil
	}

	err := run(New(), nil, options{})
	assert.IsType(t, errors.FriendlyError{}, err)

	dir := t.TempDir()
	err = run(New(), []string{dir, dir}, options{})
	assert.IsType(t, errors.FriendlyError{}, err)
}
