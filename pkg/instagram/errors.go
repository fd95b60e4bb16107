package instagram

import (
	"errors"
	"fmt"

	"instacomments/pkg/comments"
)

// ErrorType classifies a failed request. Every type is fatal for the stream it
// happened on; none of them is retried.
type ErrorType string

const (
	ErrorTypeAuth      ErrorType = "auth"
	ErrorTypeRateLimit ErrorType = "rate_limit"
	ErrorTypeNotFound  ErrorType = "not_found"
	ErrorTypeTransport ErrorType = "transport"
)

// Sentinels for errors.Is
var (
	ErrAuth      = errors.New("instagram auth error")
	ErrRateLimit = errors.New("instagram rate limit")
	ErrNotFound  = errors.New("instagram media not found")
	ErrTransport = errors.New("instagram transport error")
)

// Error represents an Instagram API error
type Error struct {
	Type    ErrorType
	Message string
	Code    int
	// Err is the underlying cause, if any
	Err error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("instagram %s error (code %d): %s", e.Type, e.Code, e.Message)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if e.Type == ErrorTypeAuth {
		msg += " (refresh SESSIONID, DS_USER_ID, CSRFTOKEN and MID from a logged-in browser)"
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Fatal reports whether the error must end the whole run rather than a single
// reply stream. A rate limit or a rejected session affects every later request.
func (e *Error) Fatal() bool {
	return e.Type == ErrorTypeRateLimit || e.Type == ErrorTypeAuth
}

// Is matches the sentinel of the error's type
func (e *Error) Is(target error) bool {
	switch target {
	case ErrAuth:
		return e.Type == ErrorTypeAuth
	case ErrRateLimit:
		return e.Type == ErrorTypeRateLimit
	case ErrNotFound:
		return e.Type == ErrorTypeNotFound
	case ErrTransport:
		return e.Type == ErrorTypeTransport
	}
	return false
}

var _ comments.FatalError = (*Error)(nil)

func newError(t ErrorType, code int, msg string, cause error) *Error {
	return &Error{Type: t, Message: msg, Code: code, Err: cause}
}

// TypeOf returns the ErrorType of the first *Error in err's chain, or "" when there is none
func TypeOf(err error) ErrorType {
	var igErr *Error
	if errors.As(err, &igErr) {
		return igErr.Type
	}
	return ""
}

func IsAuth(err error) bool      { return errors.Is(err, ErrAuth) }
func IsRateLimit(err error) bool { return errors.Is(err, ErrRateLimit) }
func IsNotFound(err error) bool  { return errors.Is(err, ErrNotFound) }
func IsTransport(err error) bool { return errors.Is(err, ErrTransport) }
