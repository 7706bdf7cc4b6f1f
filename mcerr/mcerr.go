// Package mcerr provides the typed error kinds used throughout mcworld.
//
// Every fallible operation in nbt, anvil, and world returns an *Error tagged
// with one of the Kind values below, so callers can branch on Kind instead of
// matching error message text.
package mcerr

import (
	"fmt"

	"golang.org/x/xerrors"
)

// Kind classifies the failure of a mcworld operation.
type Kind int

const (
	// Io covers file open/read/write/stat/seek failures.
	Io Kind = iota
	// Decompress covers inflate failures.
	Decompress
	// Compress covers deflate failures.
	Compress
	// NbtDecode covers unknown tag ids, zero-length compound keys, and
	// truncated buffers.
	NbtDecode
	// SchemaUnknownKey covers a compound key with no schema entry.
	SchemaUnknownKey
	// SchemaBadType covers a value whose type disagrees with its schema entry.
	SchemaBadType
	// CoordinateOutOfRange covers a block/chunk/region coordinate outside its
	// valid range.
	CoordinateOutOfRange
	// BufferOverflow covers a region buffer that could not grow to fit a
	// relocated or resized chunk.
	BufferOverflow
)

func (k Kind) String() string {
	switch k {
	case Io:
		return "io"
	case Decompress:
		return "decompress"
	case Compress:
		return "compress"
	case NbtDecode:
		return "nbt decode"
	case SchemaUnknownKey:
		return "schema: unknown key"
	case SchemaBadType:
		return "schema: bad type"
	case CoordinateOutOfRange:
		return "coordinate out of range"
	case BufferOverflow:
		return "buffer overflow"
	default:
		return "unknown"
	}
}

// Error is a typed, wrapped mcworld error.
type Error struct {
	Kind Kind
	msg  string
	err  error
}

func (e *Error) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %v", e.Kind, e.err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.msg)
}

// Unwrap exposes the wrapped cause, if any, for errors.Is/errors.As.
func (e *Error) Unwrap() error {
	return e.err
}

// New constructs a kinded error with no wrapped cause.
func New(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, msg: fmt.Sprintf(format, args...)}
}

// Wrap constructs a kinded error that preserves cause via %w-style chaining
// (golang.org/x/xerrors, matching the distr1-distri convention of wrapping
// with xerrors rather than bare fmt.Errorf("%v")).
func Wrap(kind Kind, cause error, format string, args ...interface{}) *Error {
	msg := fmt.Sprintf(format, args...)
	return &Error{Kind: kind, msg: msg, err: xerrors.Errorf("%s: %w", msg, cause)}
}

// Is reports whether err is an *Error of the given kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if !xerrors.As(err, &e) {
		return false
	}
	return e.Kind == kind
}
