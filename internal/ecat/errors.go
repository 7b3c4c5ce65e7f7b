// Package ecat decodes the ECAT 7.3 binary container produced by PET
// scanners: the 512-byte main header, the linked matrix directory blocks,
// the per-frame image subheaders and the raw pixel blocks.
package ecat

import (
	"errors"
	"fmt"
)

// Sentinel errors for every failure class of the decode chain. Callers match
// them with errors.Is; the concrete error always carries the stage and byte
// offset that violated the invariant.
var (
	ErrTruncatedFile      = errors.New("ecat: truncated file")
	ErrUnrecognizedFormat = errors.New("ecat: unrecognized format")
	ErrInvalidHeader      = errors.New("ecat: invalid main header")
	ErrCorruptDirectory   = errors.New("ecat: corrupt matrix directory")
	ErrInvalidSubheader   = errors.New("ecat: invalid frame subheader")
	ErrTruncatedPixelData = errors.New("ecat: truncated pixel data")
)

// DecodeError wraps a sentinel with the decode stage and the byte offset at
// which the condition was detected.
type DecodeError struct {
	Stage  string
	Offset int64
	Err    error
	Detail string
}

func (e *DecodeError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%v: %s at offset %d: %s", e.Err, e.Stage, e.Offset, e.Detail)
	}
	return fmt.Sprintf("%v: %s at offset %d", e.Err, e.Stage, e.Offset)
}

func (e *DecodeError) Unwrap() error { return e.Err }

func decodeErr(sentinel error, stage string, offset int64, format string, args ...any) error {
	return &DecodeError{
		Stage:  stage,
		Offset: offset,
		Err:    sentinel,
		Detail: fmt.Sprintf(format, args...),
	}
}
