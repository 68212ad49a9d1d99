// Package sdkerrors defines the error taxonomy of the metrics pipeline.
//
// Configuration problems are returned from constructors, serialization and
// transport failures are returned to the collecting reader, and the
// measurement hot path never returns an error at all.
package sdkerrors

import (
	"errors"
	"fmt"
)

// Error is a coded SDK error.
type Error struct {
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches two coded errors by code, so sentinel values below work with
// errors.Is even after wrapping with additional context.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return e.Code == t.Code
}

// New creates a coded error.
func New(code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf creates a coded error with a formatted message.
func Newf(code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to an underlying error.
func Wrap(err error, code, message string) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

// Sentinel errors surfaced by the SDK.
var (
	// ErrNotSupportedContentType is returned by the serializer for any
	// transport content type outside the supported set.
	ErrNotSupportedContentType = New(CodeContentTypeInvalid, "Not supported content type")

	// ErrReaderShutdown is returned by reader operations after Shutdown.
	ErrReaderShutdown = New(CodeReaderShutdown, "reader is shut down")

	// ErrExporterShutdown is returned by exporter operations after Shutdown.
	ErrExporterShutdown = New(CodeReaderShutdown, "exporter is shut down")
)
