// Package errs defines the sentinel errors returned by digitrace packages.
//
// Callers should compare with errors.Is; most errors are wrapped with context
// (section, field, byte offset) before they reach the caller.
package errs

import (
	"errors"
	"fmt"
)

var (
	// Header errors.
	ErrTruncatedHeader = errors.New("truncated capture header")
	ErrMalformedHeader = errors.New("malformed capture header")

	// Event errors.
	ErrTruncatedEvent = errors.New("truncated event record")

	// Stream errors.
	ErrStreamFailed     = errors.New("event stream already failed")
	ErrInvalidChunkSize = errors.New("invalid chunk size")

	// Random access errors.
	ErrNotSeekable            = errors.New("source is not seekable")
	ErrEventIndexOutOfRange   = errors.New("event index out of range")
	ErrUnalignedPayload       = errors.New("event payload size is not a multiple of the record size")
	ErrUnsupportedCompression = errors.New("unsupported compression type")

	// Configuration errors.
	ErrInvalidConfig = errors.New("invalid configuration")
)

// DecodeError describes where in a capture a decode failure happened.
//
// It unwraps to both the sentinel (Kind) and the underlying cause, so
// errors.Is(err, ErrTruncatedHeader) and errors.Is(err, io.ErrUnexpectedEOF)
// both hold for a short header read.
type DecodeError struct {
	Kind    error  // one of the sentinel errors above
	Section string // "header" or "event"
	Field   string // wire field name, e.g. "volts_scale[2]"
	Offset  int64  // byte offset where the field starts
	Err     error  // underlying cause, may be nil
}

func (e *DecodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s field %q at offset %d: %v", e.Kind, e.Section, e.Field, e.Offset, e.Err)
	}

	return fmt.Sprintf("%s: %s field %q at offset %d", e.Kind, e.Section, e.Field, e.Offset)
}

func (e *DecodeError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}

	return []error{e.Kind, e.Err}
}
