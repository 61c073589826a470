package server

import (
	"errors"
	"net/http"

	approvaldomain "github.com/casalist/casalist/internal/approval/domain"
	lifecycledomain "github.com/casalist/casalist/internal/lifecycle/domain"
	listingdomain "github.com/casalist/casalist/internal/listing/domain"
	"github.com/gin-gonic/gin"
)

type errorPayload struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	// Retryable marks errors a well-behaved caller resolves by reloading
	// state and retrying (optimistic lock losses).
	Retryable bool `json:"retryable,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func mapError(err error) (int, errorPayload) {
	switch {
	case errors.Is(err, listingdomain.ErrListingNotFound),
		errors.Is(err, approvaldomain.ErrSessionNotFound):
		return http.StatusNotFound, errorPayload{Type: "not_found", Message: err.Error()}

	case errors.Is(err, listingdomain.ErrInvalidStateTransition),
		errors.Is(err, approvaldomain.ErrDuplicateActiveSession),
		errors.Is(err, approvaldomain.ErrSessionNotOpen),
		errors.Is(err, approvaldomain.ErrSessionAlreadyClosed):
		return http.StatusConflict, errorPayload{Type: "conflict", Message: err.Error()}

	case errors.Is(err, listingdomain.ErrConcurrencyConflict):
		return http.StatusConflict, errorPayload{Type: "conflict", Message: err.Error(), Retryable: true}

	case errors.Is(err, lifecycledomain.ErrAmountMismatch):
		return http.StatusUnprocessableEntity, errorPayload{Type: "amount_mismatch", Message: err.Error()}

	case errors.Is(err, lifecycledomain.ErrValidationFailed):
		return http.StatusBadRequest, errorPayload{Type: "validation_error", Message: err.Error()}

	default:
		return http.StatusInternalServerError, errorPayload{Type: "internal_error", Message: "internal server error"}
	}
}
