package handlers

import (
	"errors"
	"net/http"

	"github.com/SscSPs/loan_ledger/internal/apperrors"
	"github.com/SscSPs/loan_ledger/internal/middleware"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// statusFor maps an engine error to an HTTP status. Repair outranks every other kind.
func statusFor(err error) int {
	switch {
	case apperrors.NeedsRepair(err):
		return http.StatusInternalServerError
	case errors.Is(err, apperrors.ErrUndoLimit):
		return http.StatusTooManyRequests
	case errors.Is(err, apperrors.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, apperrors.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperrors.ErrDuplicate),
		errors.Is(err, apperrors.ErrStateConflict),
		errors.Is(err, apperrors.ErrNotUndoable),
		errors.Is(err, apperrors.ErrLockHeld):
		return http.StatusConflict
	case apperrors.IsRetryable(err):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// respondError logs err and writes the matching status with the outcome in the body.
func respondError(c *gin.Context, err error, action string) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	status := statusFor(err)
	outcome := apperrors.OutcomeOf(err)

	body := gin.H{"error": err.Error(), "outcome": outcome}
	if outcome == apperrors.OutcomeRepair {
		body["repair"] = true
	}

	if status >= http.StatusInternalServerError {
		logger.Error("Failed to "+action, zap.Error(err), zap.String("outcome", string(outcome)))
	} else {
		logger.Warn("Rejected request to "+action, zap.Error(err), zap.String("outcome", string(outcome)))
	}
	c.JSON(status, body)
}

func badRequest(c *gin.Context, err error, action string) {
	middleware.GetLoggerFromCtx(c.Request.Context()).Warn("Failed to bind request for "+action, zap.Error(err))
	c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
}

// actorFrom reads the actor set by ActorMiddleware.
func actorFrom(c *gin.Context) (string, bool) {
	actorID, ok := middleware.GetActorIDFromContext(c)
	if !ok {
		middleware.GetLoggerFromCtx(c.Request.Context()).Error("Actor ID not found in context")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
	}
	return actorID, ok
}
