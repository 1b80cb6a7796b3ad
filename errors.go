package mdmp

import (
	"errors"
	"fmt"
)

// Error represents an mdmp error with an error code
type Error struct {
	Code    ErrorCode
	Message string
	Err     error // wrapped error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("mdmp: %s: %v", e.Message, e.Err)
	}
	return fmt.Sprintf("mdmp: %s", e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error with the same code, so that
// errors.Is(err, ErrOutOfBoundsError) matches regardless of message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// ErrorCode classifies reader failures.
type ErrorCode int

// Error codes
const (
	// Success indicates the operation completed successfully
	Success ErrorCode = iota

	// ErrFileNotFound indicates the dump file could not be opened
	ErrFileNotFound

	// ErrIO indicates the dump file could not be mapped
	ErrIO

	// ErrMalformed indicates the container header is truncated or invalid
	ErrMalformed

	// ErrDirectoryCorrupt indicates the stream directory is unreadable
	ErrDirectoryCorrupt

	// ErrStreamMissing indicates the requested stream is absent
	ErrStreamMissing

	// ErrStreamCorrupt indicates the requested stream is present but malformed
	ErrStreamCorrupt

	// ErrMemoryStreamUnavailable indicates the dump captured no memory
	ErrMemoryStreamUnavailable

	// ErrAddressNotMapped indicates no captured region contains the address
	ErrAddressNotMapped

	// ErrOutOfBounds indicates the request runs past the end of its region
	ErrOutOfBounds

	// ErrClosed indicates the reader has been closed
	ErrClosed

	// ErrProblem indicates an unexpected internal error
	ErrProblem
)

// Error descriptions
var errorMessages = map[ErrorCode]string{
	Success:                    "success",
	ErrFileNotFound:            "file not found",
	ErrIO:                      "cannot map file",
	ErrMalformed:               "malformed minidump",
	ErrDirectoryCorrupt:        "stream directory corrupt",
	ErrStreamMissing:           "stream missing",
	ErrStreamCorrupt:           "stream corrupt",
	ErrMemoryStreamUnavailable: "no memory captured in dump",
	ErrAddressNotMapped:        "address not mapped",
	ErrOutOfBounds:             "read out of region bounds",
	ErrClosed:                  "reader closed",
	ErrProblem:                 "unexpected internal error",
}

func (c ErrorCode) String() string {
	if msg, ok := errorMessages[c]; ok {
		return msg
	}
	return fmt.Sprintf("unknown error code %d", int(c))
}

// NewError creates a new Error with the given code
func NewError(code ErrorCode) *Error {
	return &Error{Code: code, Message: code.String()}
}

// WrapError creates a new Error wrapping another error
func WrapError(code ErrorCode, err error) *Error {
	e := NewError(code)
	e.Err = err
	return e
}

// errorf creates an Error whose message carries request details.
func errorf(code ErrorCode, format string, args ...interface{}) *Error {
	return &Error{Code: code, Message: code.String() + ": " + fmt.Sprintf(format, args...)}
}

// Common error variables for errors.Is comparisons
var (
	ErrFileNotFoundError            = NewError(ErrFileNotFound)
	ErrIOError                      = NewError(ErrIO)
	ErrMalformedError               = NewError(ErrMalformed)
	ErrDirectoryCorruptError        = NewError(ErrDirectoryCorrupt)
	ErrStreamMissingError           = NewError(ErrStreamMissing)
	ErrStreamCorruptError           = NewError(ErrStreamCorrupt)
	ErrMemoryStreamUnavailableError = NewError(ErrMemoryStreamUnavailable)
	ErrAddressNotMappedError        = NewError(ErrAddressNotMapped)
	ErrOutOfBoundsError             = NewError(ErrOutOfBounds)
	ErrClosedError                  = NewError(ErrClosed)
)

// IsFormatError returns true if the error means the file is not a usable
// minidump.
func IsFormatError(err error) bool {
	c := Code(err)
	return c == ErrMalformed || c == ErrDirectoryCorrupt
}

// IsStreamMissing returns true if the error is ErrStreamMissing
func IsStreamMissing(err error) bool {
	return Code(err) == ErrStreamMissing
}

// IsNotMapped returns true if the error is ErrAddressNotMapped
func IsNotMapped(err error) bool {
	return Code(err) == ErrAddressNotMapped
}

// IsOutOfBounds returns true if the error is ErrOutOfBounds
func IsOutOfBounds(err error) bool {
	return Code(err) == ErrOutOfBounds
}

// Code returns the error code from an error, or ErrProblem if not an mdmp error
func Code(err error) ErrorCode {
	if err == nil {
		return Success
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ErrProblem
}
