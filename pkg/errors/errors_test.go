package errors

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRootCause(t *testing.T) {
	base := New("base")
	wrapped := WithContext(WithContext(base, "inner"), "outer")

	assert.Equal(t, "outer: inner: base", wrapped.Error())
	assert.Equal(t, base, RootCause(wrapped))
	assert.True(t, Is(wrapped, base))
	assert.Nil(t, WithContext(nil, "ignored"))
}

func TestFilesystemError(t *testing.T) {
	tests := []struct {
		name    string
		cause   error
		expKind string
	}{
		{"NotExist", &os.PathError{Op: "remove", Path: "/x", Err: os.ErrNotExist}, "not-exist"},
		{"Permission", &os.PathError{Op: "open", Path: "/x", Err: os.ErrPermission}, "permission"},
		{"Exist", os.ErrExist, "exist"},
		{"Other", New("disk on fire"), "*errors.errorString"},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			err := WithContext(NewFilesystemError("copy", "/left/a", test.cause), "replicate")

			fsErr, ok := IsFilesystemError(err)
			assert.True(t, ok)
			assert.Equal(t, "copy", fsErr.Op)
			assert.Equal(t, "/left/a", fsErr.Path)
			assert.Equal(t, test.expKind, fsErr.Kind())
			assert.True(t, Is(err, test.cause))
		})
	}

	assert.Nil(t, NewFilesystemError("copy", "/left/a", nil))
	_, ok := IsFilesystemError(New("plain"))
	assert.False(t, ok)
}

func TestRootErrors(t *testing.T) {
	assert.EqualError(t, NotUnderRoot{Path: "/x/a", Root: "/left"},
		`"/x/a" is not under root "/left"`)
	assert.EqualError(t, SameRoot{Root: "/left"}, `cannot mirror "/left" onto itself`)
	assert.EqualError(t, NestedRoots{Outer: "/a", Inner: "/a/b"}, `"/a/b" is nested inside "/a"`)
	assert.EqualError(t, NewFriendlyError("hello %s", "world"), "hello world")
}
