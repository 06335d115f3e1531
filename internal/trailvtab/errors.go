package trailvtab

import (
	"errors"
	"fmt"
)

// Error is returned by every adapter entry point that can fail.
// The message is what the host engine shows to the user.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// Err is the underlying store or host error, if any.
	Err error
}

// ErrorCode categorizes adapter errors.
type ErrorCode string

const (
	// ErrCodeArgument indicates a wrong number of module arguments.
	ErrCodeArgument ErrorCode = "ARGUMENT_ERROR"

	// ErrCodeResourceExhaustion indicates a construction step exceeded a limit.
	ErrCodeResourceExhaustion ErrorCode = "RESOURCE_EXHAUSTION"

	// ErrCodeStore indicates the store failed to open, position or allocate a cursor.
	ErrCodeStore ErrorCode = "STORE_ERROR"

	// ErrCodeProtocol indicates the host called an entry point out of order.
	ErrCodeProtocol ErrorCode = "PROTOCOL_ERROR"
)

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// IsArgumentError returns true if the error is an argument count error.
func IsArgumentError(err error) bool {
	return hasCode(err, ErrCodeArgument)
}

// IsResourceExhaustion returns true if a construction step ran out of room.
func IsResourceExhaustion(err error) bool {
	return hasCode(err, ErrCodeResourceExhaustion)
}

// IsStoreError returns true if the error came from the backing store.
func IsStoreError(err error) bool {
	return hasCode(err, ErrCodeStore)
}

// IsProtocolError returns true if the host violated the cursor protocol.
func IsProtocolError(err error) bool {
	return hasCode(err, ErrCodeProtocol)
}

func hasCode(err error, code ErrorCode) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

func newArgumentError() *Error {
	return &Error{
		Code:    ErrCodeArgument,
		Message: ModuleName + " requires one argument exactly",
	}
}

func newResourceError(format string, args ...any) *Error {
	return &Error{
		Code:    ErrCodeResourceExhaustion,
		Message: fmt.Sprintf(format, args...),
	}
}

func newStoreError(err error, format string, args ...any) *Error {
	return &Error{
		Code:    ErrCodeStore,
		Message: fmt.Sprintf(format, args...),
		Err:     err,
	}
}

func newProtocolError(format string, args ...any) *Error {
	return &Error{
		Code:    ErrCodeProtocol,
		Message: fmt.Sprintf(format, args...),
	}
}
