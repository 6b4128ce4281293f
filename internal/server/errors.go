package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	placedomain "github.com/jep-hq/tools/internal/place/domain"
	projectdomain "github.com/jep-hq/tools/internal/project/domain"
)

// APIError is the wire shape of every error response.
type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

func (e *APIError) Error() string { return e.Code }

var (
	ErrUnauthorized = &APIError{Status: http.StatusUnauthorized, Code: "unauthorized", Message: "invalid or missing API key"}
	ErrNotFound     = &APIError{Status: http.StatusNotFound, Code: "not_found", Message: "resource not found"}
	ErrRateLimited  = &APIError{Status: http.StatusTooManyRequests, Code: "rate_limited", Message: "too many requests"}
)

func invalidRequestError() *APIError {
	return &APIError{Status: http.StatusBadRequest, Code: "invalid_request", Message: "malformed request body"}
}

func newValidationError(field, code, message string) *APIError {
	return &APIError{Status: http.StatusBadRequest, Code: code, Field: field, Message: message}
}

// AbortWithError maps domain errors to HTTP statuses and writes the
// error envelope.
func AbortWithError(c *gin.Context, err error) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		c.AbortWithStatusJSON(apiErr.Status, gin.H{"error": apiErr})
		return
	}

	status := http.StatusInternalServerError
	code := "internal_error"
	message := "internal error"

	switch {
	case errors.Is(err, projectdomain.ErrMissingToken),
		errors.Is(err, projectdomain.ErrMissingThumbnail),
		errors.Is(err, projectdomain.ErrMissingProduct),
		errors.Is(err, projectdomain.ErrMissingCustomer),
		errors.Is(err, projectdomain.ErrInvalidID),
		errors.Is(err, placedomain.ErrMissingPlaceID):
		status = http.StatusBadRequest
		code = err.Error()
		message = "invalid request"
	case errors.Is(err, projectdomain.ErrNotFound),
		errors.Is(err, placedomain.ErrPlaceNotFound):
		status = http.StatusNotFound
		code = err.Error()
		message = "resource not found"
	case errors.Is(err, projectdomain.ErrOwnershipMismatch):
		status = http.StatusForbidden
		code = err.Error()
		message = "project belongs to a different customer"
	case errors.Is(err, projectdomain.ErrWriteConflict):
		status = http.StatusConflict
		code = err.Error()
		message = "concurrent write detected, retry the request"
	case errors.Is(err, projectdomain.ErrUpdateFailed),
		errors.Is(err, projectdomain.ErrUnknownWriteFailure):
		status = http.StatusInternalServerError
		code = err.Error()
		message = "write could not be confirmed"
	case errors.Is(err, placedomain.ErrUpstream):
		status = http.StatusBadGateway
		code = "places_upstream_failure"
		message = "upstream place lookup failed"
	}

	c.AbortWithStatusJSON(status, gin.H{"error": &APIError{
		Status:  status,
		Code:    code,
		Message: message,
	}})
}
