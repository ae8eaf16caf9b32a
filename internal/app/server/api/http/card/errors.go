package card

import (
	"errors"
	"net/http"

	"doorkeeper/internal/domain/card"
)

// apiError is the {"status":"error","message":...} body the web UI reads. huma writes
// it with the status from GetStatus.
type apiError struct {
	status  int
	Status  string `json:"status"`
	Message string `json:"message"`
}

func (e *apiError) Error() string {
	return e.Message
}

func (e *apiError) GetStatus() int {
	return e.status
}

func httpStatus(err error) int {
	switch {
	case errors.Is(err, card.ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, card.ErrUnsupported):
		return http.StatusForbidden
	case errors.Is(err, card.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, card.ErrAlreadyExists):
		return http.StatusConflict
	case errors.Is(err, card.ErrFull), errors.Is(err, card.ErrInsufficientCapacity):
		return http.StatusInsufficientStorage
	case errors.Is(err, card.ErrStorageUnavailable), errors.Is(err, card.ErrLockFailure):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func newAPIError(err error) *apiError {
	status := httpStatus(err)

	msg := err.Error()
	if status >= http.StatusInternalServerError {
		// internal detail stays in the log
		msg = http.StatusText(status) + ": " + card.Code(err)
	}

	return &apiError{status: status, Status: statusError, Message: msg}
}
