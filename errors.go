package structures

import (
	"fmt"

	"github.com/pkg/errors"
)

// Error taxonomy (spec §7). Each sentinel identifies a distinct failure
// kind; callers compare with errors.Is, which pkg/errors re-exports from
// the standard library's errors package.
var (
	ErrUnexpectedEnd    = errors.New("structures: unexpected end of stream")
	ErrConstMismatch    = errors.New("structures: const mismatch")
	ErrLengthMismatch   = errors.New("structures: length mismatch")
	ErrOutOfRange       = errors.New("structures: value out of range")
	ErrFramingError     = errors.New("structures: framing error")
	ErrSwitchNoMatch    = errors.New("structures: switch: no matching case")
	ErrUnknownEnumValue = errors.New("structures: enum: unknown raw value")
	ErrUnknownEnumLabel = errors.New("structures: enum: unknown label")
	ErrChecksumMismatch = errors.New("structures: checksum mismatch")
	ErrAdapterFailure   = errors.New("structures: adapter transform failed")
	ErrSizeofUnknown    = errors.New("structures: sizeof: size depends on data not yet known")
)

// sentinelError pairs a taxonomy sentinel with the user-callback error that
// triggered it, so errors.Is(err, ErrAdapterFailure) still succeeds while
// errors.Unwrap(err) reaches the original cause (spec §7 "AdapterFailure —
// user transform raised; the cause is attached").
type sentinelError struct {
	sentinel error
	cause    error
}

func wrapSentinel(sentinel, cause error) error {
	if cause == nil {
		return sentinel
	}
	return &sentinelError{sentinel: sentinel, cause: cause}
}

func (e *sentinelError) Error() string {
	return fmt.Sprintf("%s: %s", e.sentinel.Error(), e.cause.Error())
}

func (e *sentinelError) Unwrap() error { return e.cause }

func (e *sentinelError) Is(target error) bool { return target == e.sentinel }

// PositionalError attaches the stream position at failure (spec §7
// "Errors carry a path ... and the stream position at failure").
type PositionalError struct {
	Err    error
	Offset int64
}

func (e *PositionalError) Error() string {
	return fmt.Sprintf("%s (at offset %d)", e.Err.Error(), e.Offset)
}

func (e *PositionalError) Unwrap() error { return e.Err }

func atOffset(err error, offset int64) error {
	if err == nil {
		return nil
	}
	return &PositionalError{Err: err, Offset: offset}
}

// withPath prefixes err with a dotted-path segment as it unwinds through
// nested constructs (spec §7 "Errors carry a path"), preserving the
// original cause and stack trace via pkg/errors.WithMessage.
func withPath(err error, segment string) error {
	if err == nil || segment == "" {
		return err
	}
	return errors.WithMessage(err, segment)
}
