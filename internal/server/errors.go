package server

import (
	"errors"
	"net/http"

	"github.com/jonathan/career-roadmap/internal/apperr"
)

// ErrorResponse is the body of every failed API call
type ErrorResponse struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

// errorBody builds the single user-facing message and kind code for err
func errorBody(err error) ErrorResponse {
	return ErrorResponse{
		Message: apperr.UserMessage(err),
		Error:   string(apperr.KindOf(err)),
	}
}

// HTTPStatus returns the status for err, treating oversized bodies as 413
func HTTPStatus(err error) int {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return http.StatusRequestEntityTooLarge
	}
	return apperr.HTTPStatus(err)
}

// badRequest wraps a body decoding failure
func badRequest(cause error, message string) error {
	return &apperr.Error{Kind: apperr.BadRequest, Message: message, Cause: cause}
}
