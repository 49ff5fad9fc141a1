package types

import (
	"errors"
	"fmt"
)

// ErrorCode classifies switch interrogation failures
type ErrorCode string

const (
	// Fatal to the session
	CodeConnection     ErrorCode = "CONNECTION"
	CodeAuthentication ErrorCode = "AUTHENTICATION"

	// Scoped to a single command
	CodeCommandTimeout ErrorCode = "COMMAND_TIMEOUT"
	CodeResponseParse  ErrorCode = "RESPONSE_PARSE"
	CodeSessionBusy    ErrorCode = "SESSION_BUSY"

	// Logged and counted, never returned to callers
	CodeProtocolParse ErrorCode = "PROTOCOL_PARSE"
	CodeTableParse    ErrorCode = "TABLE_PARSE"

	CodeConnectionClosed ErrorCode = "CONNECTION_CLOSED"
	CodeInvalidInput     ErrorCode = "INVALID_INPUT"
	CodeUnsupported      ErrorCode = "UNSUPPORTED"
	CodeUnknown          ErrorCode = "UNKNOWN"
)

// Error is a classified error with the operation that produced it
type Error struct {
	// Code identifies the error class
	Code ErrorCode

	// Op describes the operation that failed
	Op string

	// Message provides human-readable details
	Message string

	// Cause is the underlying error
	Cause error
}

// Sentinels for errors.Is; matching compares codes only.
var (
	ErrConnection       = &Error{Code: CodeConnection}
	ErrAuthentication   = &Error{Code: CodeAuthentication}
	ErrCommandTimeout   = &Error{Code: CodeCommandTimeout}
	ErrResponseParse    = &Error{Code: CodeResponseParse}
	ErrSessionBusy      = &Error{Code: CodeSessionBusy}
	ErrProtocolParse    = &Error{Code: CodeProtocolParse}
	ErrTableParse       = &Error{Code: CodeTableParse}
	ErrConnectionClosed = &Error{Code: CodeConnectionClosed}
	ErrInvalidInput     = &Error{Code: CodeInvalidInput}
	ErrUnsupported      = &Error{Code: CodeUnsupported}
)

// NewError creates a classified error
func NewError(code ErrorCode, op, message string, cause error) *Error {
	return &Error{Code: code, Op: op, Message: message, Cause: cause}
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Code)
	}
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

// Unwrap implements the errors.Unwrap interface
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is implements the errors.Is interface
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// CodeOf returns the code of the outermost classified error in the chain
func CodeOf(err error) ErrorCode {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeUnknown
}

// IsFatal reports whether the error terminates the session that produced it
func IsFatal(err error) bool {
	switch CodeOf(err) {
	case CodeConnection, CodeAuthentication, CodeConnectionClosed:
		return true
	default:
		return false
	}
}
