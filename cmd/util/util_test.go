package util

import (
	"bytes"
	"os"
	"testing"

	"github.com/buger/goterm"
	"github.com/stretchr/testify/assert"

	"github.com/sidkik/treemirror/pkg/config"
	"github.com/sidkik/treemirror/pkg/errors"
	"github.com/sidkik/treemirror/pkg/mirror"
)

func TestActionLog(t *testing.T) {
	tests := []struct {
		msg string
		exp string
	}{
		{
			msg: "copying /left/a.txt to /right/a.txt",
			exp: goterm.Color("copying /left/a.txt to /right/a.txt", goterm.GREEN),
		},
		{
			msg: "removing /right/a.txt",
			exp: goterm.Color("removing /right/a.txt", goterm.RED),
		},
		{
			msg: "moved /left/a to /left/b",
			exp: goterm.Color("moved /left/a to /left/b", goterm.MAGENTA),
		},
		{
			msg: "sync finished",
			exp: goterm.Color("sync finished", goterm.BLUE),
		},
		{
			msg: "monitoring already started",
			exp: "monitoring already started",
		},
	}

	for _, test := range tests {
		var out bytes.Buffer
		ActionLog(&out)(test.msg)
		assert.Equal(t, test.exp+"\n", out.String(), test.msg)
	}
}

func TestGetRoots(t *testing.T) {
	cfg := config.Mirror{Left: "/cfg/left", Right: "/cfg/right"}

	roots, err := GetRoots(nil, cfg)
	assert.NoError(t, err)
	assert.Equal(t, mirror.Roots{Left: "/cfg/left", Right: "/cfg/right"}, roots)

	roots, err = GetRoots([]string{"/args/left/", "/args/right"}, cfg)
	assert.NoError(t, err)
	assert.Equal(t, mirror.Roots{Left: "/args/left", Right: "/args/right"}, roots)

	_, err = GetRoots([]string{"/only/one"}, cfg)
	assert.IsType(t, errors.FriendlyError{}, err)

	_, err = GetRoots(nil, config.Mirror{Left: "/cfg/left"})
	assert.IsType(t, errors.FriendlyError{}, err)

	_, err = GetRoots([]string{"/data", "/data/inner"}, cfg)
	assert.IsType(t, errors.FriendlyError{}, err)
}

func TestHandleFatalError(t *testing.T) {
	var code int
	exit = func(c int) { code = c }
	defer func() { exit = os.Exit }()

	HandleFatalError(errors.WithContext(errors.NewFriendlyError("friendly"), "context"))
	assert.Equal(t, 1, code)
}
