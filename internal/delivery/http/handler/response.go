package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gdugdh24/swipematch/internal/domain"
	"github.com/gin-gonic/gin"
)

// retryAfterSeconds is sent with every 503 answer.
const retryAfterSeconds = "1"

// ErrorResponse represents error response
type ErrorResponse struct {
	Error     string `json:"error"`
	Retryable bool   `json:"retryable,omitempty"`
}

// writeError maps the domain error taxonomy onto HTTP statuses.
func writeError(c *gin.Context, err error) {
	_ = c.Error(err)

	switch {
	case errors.Is(err, domain.ErrUserNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: err.Error()})
	case errors.Is(err, domain.ErrReswipeForbidden), errors.Is(err, domain.ErrReswipeCooldown):
		c.JSON(http.StatusConflict, ErrorResponse{Error: err.Error()})
	case domain.IsValidation(err):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	case domain.IsRetryable(err), errors.Is(err, context.DeadlineExceeded):
		c.Header("Retry-After", retryAfterSeconds)
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "temporarily unavailable, please retry", Retryable: true})
	case errors.Is(err, context.Canceled):
		c.Status(499)
	default:
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
	}
}
