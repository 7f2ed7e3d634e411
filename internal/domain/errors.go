package domain

import (
	"errors"
	"fmt"
)

// Application error codes
const (
	EINVALID      = "invalid"        // Invalid input or validation failure
	EUNAUTHORIZED = "unauthorized"   // Authentication required
	ENOTFOUND     = "not_found"      // Resource not found
	ESAFETY       = "safety_blocked" // Content matched the safety block-list
	EUPSTREAM     = "upstream"       // Analysis backend failed or returned garbage
	ERATELIMIT    = "rate_limit"     // Rate limit exceeded
	EUNAVAILABLE  = "unavailable"    // Optional integration is not configured
	EINTERNAL     = "internal"       // Internal server error
)

// SafetyMessage is shown to the user instead of a generic error when a
// scan is rejected by the safety filter.
const SafetyMessage = "🛑 This app is for entertainment only. If you need help, please reach out to a trusted person."

// Error is a coded application error. Op and Err are for logs; Code and
// Message are what handlers send.
type Error struct {
	Code    string
	Op      string // e.g. "scan.submit"
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Errorf builds an Error with a formatted message.
func Errorf(code, op, format string, args ...any) *Error {
	return newError(code, op, fmt.Sprintf(format, args...), nil)
}

// genericInternalMessage replaces the message of any EINTERNAL or non-domain
// error before it reaches a client.
const genericInternalMessage = "An internal error occurred. Please try again later."

// describe resolves the first *Error or *ValidationError in err's chain.
func describe(err error) (code, op, message string) {
	var e *Error
	if errors.As(err, &e) {
		message = e.Message
		if e.Code == EINTERNAL {
			message = genericInternalMessage
		}
		return e.Code, e.Op, message
	}
	var ve *ValidationError
	if errors.As(err, &ve) {
		return EINVALID, ve.Op, ve.Error()
	}
	return EINTERNAL, "", genericInternalMessage
}

// ErrorCode returns the code carried by err, EINTERNAL for foreign errors
// and "" for nil.
func ErrorCode(err error) string {
	if err == nil {
		return ""
	}
	code, _, _ := describe(err)
	return code
}

// ErrorMessage returns the client-safe message for err.
func ErrorMessage(err error) string {
	if err == nil {
		return ""
	}
	_, _, message := describe(err)
	return message
}

// ErrorOp returns the failing operation recorded on err, if any.
func ErrorOp(err error) string {
	if err == nil {
		return ""
	}
	_, op, _ := describe(err)
	return op
}

func newError(code, op, message string, cause error) *Error {
	return &Error{Code: code, Op: op, Message: message, Err: cause}
}

// NotFound reports a missing resource by kind and id.
func NotFound(op, resource, id string) *Error {
	return newError(ENOTFOUND, op, fmt.Sprintf("%s with ID %q not found", resource, id), nil)
}

func Invalid(op, message string) *Error {
	return newError(EINVALID, op, message, nil)
}

func Unauthorized(op, message string) *Error {
	return newError(EUNAUTHORIZED, op, message, nil)
}

// SafetyBlocked is returned when scan content trips the block-list.
func SafetyBlocked(op string) *Error {
	return newError(ESAFETY, op, SafetyMessage, nil)
}

// Upstream wraps a failed or unparseable analysis call. Clients only see
// the fixed message.
func Upstream(err error, op string) *Error {
	return newError(EUPSTREAM, op, "We couldn't read the vibes right now. Please try again in a moment.", err)
}

// Internal wraps an unexpected failure. Message is for logs; clients get
// genericInternalMessage.
func Internal(err error, op, message string) *Error {
	return newError(EINTERNAL, op, message, err)
}

func RateLimit(op string) *Error {
	return newError(ERATELIMIT, op, "Too many requests. Please try again later.", nil)
}

// Unavailable reports a feature whose backing service is not configured.
func Unavailable(op, message string) *Error {
	return newError(EUNAVAILABLE, op, message, nil)
}

// ValidationError carries per-field messages. With a single field its
// message doubles as the error text.
type ValidationError struct {
	Op     string
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 1 {
		for _, msg := range e.Fields {
			return msg
		}
	}
	return "validation failed"
}

// NewValidationError returns a ValidationError for a single field.
func NewValidationError(op, field, message string) *ValidationError {
	return &ValidationError{Op: op, Fields: map[string]string{field: message}}
}
