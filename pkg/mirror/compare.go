package mirror

import (
	"bytes"
	"io"

	"github.com/sidkik/treemirror/pkg/errors"
)

const compareChunkSize = 32 * 1024

// filesEqual does a byte-for-byte comparison of two files. Only a size
// mismatch is used as a shortcut, and only to decide that the files differ.
func filesEqual(a, b string) (bool, error) {
	aInfo, err := fs.Stat(a)
	if err != nil {
		return false, errors.NewFilesystemError("stat", a, err)
	}
	bInfo, err := fs.Stat(b)
	if err != nil {
		return false, errors.NewFilesystemError("stat", b, err)
	}
	if aInfo.Size() != bInfo.Size() {
		return false, nil
	}

	aFile, err := fs.Open(a)
	if err != nil {
		return false, errors.NewFilesystemError("open", a, err)
	}
	defer aFile.Close()

	bFile, err := fs.Open(b)
	if err != nil {
		return false, errors.NewFilesystemError("open", b, err)
	}
	defer bFile.Close()

	aBuf := make([]byte, compareChunkSize)
	bBuf := make([]byte, compareChunkSize)
	for {
		aN, aErr := io.ReadFull(aFile, aBuf)
		bN, bErr := io.ReadFull(bFile, bBuf)
		if !bytes.Equal(aBuf[:aN], bBuf[:bN]) {
			return false, nil
		}

		aDone := aErr == io.EOF || aErr == io.ErrUnexpectedEOF
		bDone := bErr == io.EOF || bErr == io.ErrUnexpectedEOF
		switch {
		case aErr != nil && !aDone:
			return false, errors.NewFilesystemError("read", a, aErr)
		case bErr != nil && !bDone:
			return false, errors.NewFilesystemError("read", b, bErr)
		case aDone || bDone:
			// The chunks matched, so both files ended at the same offset
			// unless one of them grew after the size check.
			return aDone && bDone, nil
		}
	}
}
