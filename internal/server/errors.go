package server

import (
	"errors"
	"fmt"
	"net/http"
)

// Server-specific errors
var (
	ErrServerClosed         = errors.New("server is closed")
	ErrServerNotRunning     = errors.New("server is not running")
	ErrServerAlreadyRunning = errors.New("server is already running")
	ErrListenerFailed       = errors.New("failed to create listener")
	ErrInvalidBoneMethod    = errors.New("unknown bone update method")
)

// Kind classifies a request failure.
type Kind uint8

const (
	KindInternal Kind = iota
	KindNotFound
	KindMethodNotAllowed
	KindInvalidPayload
	KindBackendUnavailable
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "NotFound"
	case KindMethodNotAllowed:
		return "MethodNotAllowed"
	case KindInvalidPayload:
		return "InvalidPayload"
	case KindBackendUnavailable:
		return "BackendUnavailable"
	default:
		return "Internal"
	}
}

// Status is the HTTP status code reported for the kind.
func (k Kind) Status() int {
	switch k {
	case KindNotFound:
		return http.StatusNotFound
	case KindMethodNotAllowed:
		return http.StatusMethodNotAllowed
	case KindInvalidPayload:
		return http.StatusBadRequest
	case KindBackendUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Error is a request failure carrying its kind.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(kind Kind, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

func notFound(format string, args ...any) *Error {
	return newError(KindNotFound, nil, format, args...)
}

func invalidPayload(err error, format string, args ...any) *Error {
	return newError(KindInvalidPayload, err, format, args...)
}

func backendUnavailable(err error, format string, args ...any) *Error {
	return newError(KindBackendUnavailable, err, format, args...)
}

// kindOf maps any error onto a Kind; unknown errors are internal.
func kindOf(err error) (Kind, string) {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Kind, apiErr.Message
	}
	return KindInternal, "internal error"
}

type errorResponse struct {
	Error      string `json:"error"`
	StatusCode int    `json:"statusCode"`
}
