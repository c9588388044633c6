package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	obscontext "github.com/renatoambrosi/backmercadopro/internal/observability/context"
)

// ErrNotFound is returned for unknown routes and missing resources.
var ErrNotFound = &apiError{Status: http.StatusNotFound, Code: "not_found", Message: "resource not found"}

type apiError struct {
	Status    int    `json:"-"`
	Code      string `json:"error"`
	Message   string `json:"details,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

func (e *apiError) Error() string { return e.Code }

func newValidationError(msg string) *apiError {
	return &apiError{Status: http.StatusBadRequest, Code: "validation_error", Message: msg}
}

func invalidRequestError() *apiError {
	return &apiError{Status: http.StatusBadRequest, Code: "invalid_request", Message: "request body could not be parsed"}
}

// AbortWithError writes the error envelope, tagged with the request id so a
// caller can quote it back, and stops handler execution.
func AbortWithError(c *gin.Context, err error) {
	requestID := obscontext.RequestIDFromGin(c)

	var apiErr *apiError
	if errors.As(err, &apiErr) {
		body := *apiErr
		body.RequestID = requestID
		c.AbortWithStatusJSON(apiErr.Status, &body)
		return
	}
	c.AbortWithStatusJSON(http.StatusInternalServerError, &apiError{
		Code:      "internal_error",
		Message:   "an unexpected error occurred",
		RequestID: requestID,
	})
}
