// Package errors provides structured error handling for Tabular
package errors

import (
	"errors"
	"runtime"

	"github.com/ajitpratap0/tabular/pkg/strs"
)

// ErrorType represents the category of error
type ErrorType string

const (
	// ErrorTypeValue represents malformed construction arguments
	// (bad slice triples, negative row indices, mismatched buffer sizes)
	ErrorTypeValue ErrorType = "value"
	// ErrorTypeType represents storage-type mismatches with no coercion path
	ErrorTypeType ErrorType = "type"
	// ErrorTypeNotImpl represents valid but currently unsupported
	// accessor/operation combinations
	ErrorTypeNotImpl ErrorType = "not_implemented"
	// ErrorTypeMemory represents allocation or resize failures
	ErrorTypeMemory ErrorType = "memory"
	// ErrorTypeIO represents file and memory-mapping failures
	ErrorTypeIO ErrorType = "io"
	// ErrorTypeAssertion represents internal invariant violations found by
	// an integrity-checking pass; fatal for the calling operation
	ErrorTypeAssertion ErrorType = "assertion"
	// ErrorTypeInterrupt represents a computation cancelled at a chunk boundary
	ErrorTypeInterrupt ErrorType = "interrupt"
)

// Error represents a structured error with context
type Error struct {
	Type    ErrorType
	Message string
	Cause   error
	Details map[string]interface{}
	Stack   []StackFrame
}

// StackFrame represents a single frame in the call stack
type StackFrame struct {
	Function string
	File     string
	Line     int
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Cause != nil {
		return strs.Sprintf("%s: %s: %v", e.Type, e.Message, e.Cause)
	}
	return strs.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// WithDetail adds a key-value detail to the error
func (e *Error) WithDetail(key string, value interface{}) *Error {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// New creates a new error with the given type and message
func New(errType ErrorType, message string) *Error {
	return &Error{
		Type:    errType,
		Message: message,
		Stack:   captureStack(2),
	}
}

// Newf creates a new error with a formatted message
func Newf(errType ErrorType, format string, args ...interface{}) *Error {
	return &Error{
		Type:    errType,
		Message: strs.Sprintf(format, args...),
		Stack:   captureStack(2),
	}
}

// Wrap wraps an existing error with additional context
func Wrap(err error, errType ErrorType, message string) *Error {
	if err == nil {
		return nil
	}

	// If already our error type, preserve the stack
	var existingErr *Error
	if errors.As(err, &existingErr) {
		return &Error{
			Type:    errType,
			Message: message,
			Cause:   err,
			Stack:   existingErr.Stack,
		}
	}

	return &Error{
		Type:    errType,
		Message: message,
		Cause:   err,
		Stack:   captureStack(2),
	}
}

// ValueError creates a value error with a formatted message
func ValueError(format string, args ...interface{}) *Error {
	return &Error{
		Type:    ErrorTypeValue,
		Message: strs.Sprintf(format, args...),
		Stack:   captureStack(2),
	}
}

// TypeError creates a type error with a formatted message
func TypeError(format string, args ...interface{}) *Error {
	return &Error{
		Type:    ErrorTypeType,
		Message: strs.Sprintf(format, args...),
		Stack:   captureStack(2),
	}
}

// NotImplError creates a not-implemented error with a formatted message
func NotImplError(format string, args ...interface{}) *Error {
	return &Error{
		Type:    ErrorTypeNotImpl,
		Message: strs.Sprintf(format, args...),
		Stack:   captureStack(2),
	}
}

// MemoryError creates a memory error with a formatted message
func MemoryError(format string, args ...interface{}) *Error {
	return &Error{
		Type:    ErrorTypeMemory,
		Message: strs.Sprintf(format, args...),
		Stack:   captureStack(2),
	}
}

// IOError wraps an I/O failure
func IOError(err error, format string, args ...interface{}) *Error {
	return &Error{
		Type:    ErrorTypeIO,
		Message: strs.Sprintf(format, args...),
		Cause:   err,
		Stack:   captureStack(2),
	}
}

// AssertionError creates an assertion error with a formatted message.
// Raised only by integrity checks; never expected in normal operation.
func AssertionError(format string, args ...interface{}) *Error {
	return &Error{
		Type:    ErrorTypeAssertion,
		Message: strs.Sprintf(format, args...),
		Stack:   captureStack(2),
	}
}

// IsType checks if the error is of the given type
func IsType(err error, errType ErrorType) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Type == errType
}

// IsValue reports whether err is a value error
func IsValue(err error) bool { return IsType(err, ErrorTypeValue) }

// IsNotImpl reports whether err is a not-implemented error
func IsNotImpl(err error) bool { return IsType(err, ErrorTypeNotImpl) }

// IsAssertion reports whether err is an assertion error
func IsAssertion(err error) bool { return IsType(err, ErrorTypeAssertion) }

// captureStack captures the current call stack
func captureStack(skip int) []StackFrame {
	const maxFrames = 32
	frames := make([]StackFrame, 0, maxFrames)

	for i := skip; i < maxFrames+skip; i++ {
		pc, file, line, ok := runtime.Caller(i)
		if !ok {
			break
		}

		fn := runtime.FuncForPC(pc)
		if fn == nil {
			continue
		}

		frames = append(frames, StackFrame{
			Function: fn.Name(),
			File:     file,
			Line:     line,
		})
	}

	return frames
}
