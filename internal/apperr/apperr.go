// Package apperr defines the error taxonomy shared by the roadmap and fluency flows.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a flow failure
type Kind string

// Kind values. The string form is the code returned in JSON error bodies.
const (
	GenerationFailed Kind = "generation_failed"
	ProviderError    Kind = "provider_error"
	ValidationError  Kind = "validation_error"
	PermissionDenied Kind = "permission_denied"
	NotReady         Kind = "not_ready"
	TranscodeError   Kind = "transcode_error"
	NetworkError     Kind = "network_error"
	ParseError       Kind = "parse_error"
	BadRequest       Kind = "bad_request"
	Unknown          Kind = "unknown"
)

// Kinds lists every declared Kind except Unknown
var Kinds = []Kind{
	GenerationFailed, ProviderError, ValidationError, PermissionDenied,
	NotReady, TranscodeError, NetworkError, ParseError, BadRequest,
}

// ParseKind maps a code back to its Kind, or Unknown
func ParseKind(code string) Kind {
	for _, k := range Kinds {
		if string(k) == code {
			return k
		}
	}
	return Unknown
}

var defaultMessages = map[Kind]string{
	GenerationFailed: "An error occurred on creating Roadmap",
	ProviderError:    "The roadmap service is unavailable, please try again",
	ValidationError:  "The generated roadmap was malformed, please try again",
	PermissionDenied: "Microphone access was denied",
	NotReady:         "Audio converter is still loading, please wait",
	TranscodeError:   "Failed to convert the recording",
	NetworkError:     "Failed to analyze pronunciation",
	ParseError:       "The scoring service returned an unreadable response",
	BadRequest:       "Invalid request",
}

// Error is a classified failure. Message is safe to show to users; Cause is for logs only.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches another *Error of the same Kind, so errors.Is(err, &Error{Kind: NotReady}) works.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Message == "" || t.Message == e.Message)
}

// New returns an Error with the default message for kind
func New(kind Kind, cause error) *Error {
	return &Error{Kind: kind, Message: DefaultMessage(kind), Cause: cause}
}

// Newf returns an Error with a formatted user message
func Newf(kind Kind, cause error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// DefaultMessage returns the generic user message for kind
func DefaultMessage(kind Kind) string {
	if m, ok := defaultMessages[kind]; ok {
		return m
	}
	return "Something went wrong"
}

// KindOf returns the Kind of the first *Error in err's chain, or Unknown
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Unknown
}

// IsKind reports whether err carries the given kind
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// UserMessage returns the single message to display for err.
// Errors outside the taxonomy never leak their text.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		if e.Message != "" {
			return e.Message
		}
		return DefaultMessage(e.Kind)
	}
	return DefaultMessage(Unknown)
}

// HTTPStatus returns the appropriate HTTP status code for an error
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case BadRequest:
		return http.StatusBadRequest
	case PermissionDenied:
		return http.StatusForbidden
	case NotReady:
		return http.StatusServiceUnavailable
	case TranscodeError:
		return http.StatusUnprocessableEntity
	case NetworkError, ParseError:
		return http.StatusBadGateway
	default:
		// generation failures report 500 to match the generation endpoint contract
		return http.StatusInternalServerError
	}
}
