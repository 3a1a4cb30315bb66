package apierrors

import (
	"errors"
	"fmt"
)

// Error is a taxonomy error returned by services. Handlers turn it into the
// JSON error envelope with Abort.
type Error struct {
	Code    string
	Message string
	Errors  []string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return e.Code + ": " + e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Status returns the HTTP status registered for the error's code.
func (e *Error) Status() int { return Registry.HTTPStatus(e.Code) }

// New creates an Error. An empty message falls back to the registered default.
func New(code, message string) *Error {
	if message == "" {
		message = Registry.Message(code)
	}
	return &Error{Code: code, Message: message}
}

func BadRequest(message string) *Error   { return New(CodeBadRequest, message) }
func Unauthorized(message string) *Error { return New(CodeUnauthorized, message) }
func Forbidden(message string) *Error    { return New(CodeForbidden, message) }
func NotFound(message string) *Error     { return New(CodeNotFound, message) }
func Conflict(message string) *Error     { return New(CodeConflict, message) }

// Internal wraps an unexpected failure. The caller only ever sees the generic
// message; err is kept for logging.
func Internal(err error) *Error {
	return &Error{Code: CodeServerError, Message: Registry.Message(CodeServerError), Err: err}
}

// WithErrors attaches field level details.
func (e *Error) WithErrors(details ...string) *Error {
	e.Errors = append(e.Errors, details...)
	return e
}

// As extracts an *Error from err's chain.
func As(err error) (*Error, bool) {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// CodeOf returns the taxonomy code of err, SERVER_ERROR for anything that is
// not an *Error.
func CodeOf(err error) string {
	if apiErr, ok := As(err); ok {
		return apiErr.Code
	}
	return CodeServerError
}

// Is reports whether err carries the given code.
func Is(err error, code string) bool {
	return err != nil && CodeOf(err) == code
}
