// Package unityerr defines the error kinds shared by the UnityFS reader packages.
//
// Every error returned by the reader wraps one or more of the sentinel values
// below, so callers can classify failures with errors.Is:
//
//	if errors.Is(err, unityerr.ErrUnsupported) {
//		// skip this asset
//	}
package unityerr

import (
	"errors"
	"fmt"
)

var (
	// ErrFormat reports data that is not in a format this reader understands,
	// e.g. a bad magic or an unimplemented compression or texture format.
	ErrFormat = errors.New("unity: format error")

	// ErrInvalidData reports sizes, offsets or encodings that are inconsistent
	// with the buffer they describe.
	ErrInvalidData = errors.New("unity: invalid data")

	// ErrUnexpectedEOF reports a read past the end of a buffer.
	// It is a kind of ErrInvalidData.
	ErrUnexpectedEOF = fmt.Errorf("%w: unexpected end of data", ErrInvalidData)

	// ErrUnsupported reports a recognized feature that is not implemented.
	ErrUnsupported = errors.New("unity: unsupported")

	// ErrMismatch reports a type tree whose type name differs from the
	// class being decoded. See MismatchError.
	ErrMismatch = errors.New("unity: type mismatch")
)

// MismatchError is returned when a type tree node does not have the type name
// the decoder expected.
type MismatchError struct {
	Expected string
	Received string
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("unity: type mismatch: expected %q, got %q", e.Expected, e.Received)
}

// Is reports whether target is ErrMismatch.
func (e *MismatchError) Is(target error) bool {
	return target == ErrMismatch
}
