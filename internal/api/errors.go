package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"careerbridge/internal/placement"
)

// serviceError translates lifecycle guard failures into HTTP responses.
// Anything not on the list is an internal error and gets logged.
func serviceError(c *gin.Context, logger *slog.Logger, err error) {
	switch {
	case errors.Is(err, placement.ErrNotFound):
		NotFound(c, err.Error())
	case errors.Is(err, placement.ErrNotOwner):
		Forbidden(c, err.Error())
	case errors.Is(err, placement.ErrAlreadyApplied):
		Conflict(c, err.Error())
	case errors.Is(err, placement.ErrProfileIncomplete),
		errors.Is(err, placement.ErrNotEligible),
		errors.Is(err, placement.ErrInvalidStatus),
		errors.Is(err, placement.ErrNotSelected),
		errors.Is(err, placement.ErrInterviewNotScheduled),
		errors.Is(err, placement.ErrMissingField):
		BadRequest(c, err.Error())
	default:
		logger.Error("lifecycle operation failed", slog.Any("error", err))
		Error(c, http.StatusInternalServerError, "internal error")
	}
}
