package handlers

import (
	"fmt"
	"net/http"

	"github.com/SscSPs/loan_ledger/internal/apperrors"
	"github.com/SscSPs/loan_ledger/internal/core/domain"
	portssvc "github.com/SscSPs/loan_ledger/internal/core/ports/services"
	"github.com/SscSPs/loan_ledger/internal/dto"
	"github.com/SscSPs/loan_ledger/internal/middleware"
	"github.com/SscSPs/loan_ledger/internal/platform/clock"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// historyHandler handles HTTP requests related to operation history and undo.
type historyHandler struct {
	history  portssvc.HistorySvcFacade
	calendar *clock.Calendar
}

// registerHistoryRoutes registers routes related to history.
func registerHistoryRoutes(rg *gin.RouterGroup, hs portssvc.HistorySvcFacade, calendar *clock.Calendar) {
	h := &historyHandler{history: hs, calendar: calendar}

	history := rg.Group("/history")
	{
		history.GET("/last", h.getLast)
		history.POST("/undo", h.undo)
	}
}

func (h *historyHandler) getLast(c *gin.Context) {
	var params dto.LastOperationParams
	if err := c.ShouldBindQuery(&params); err != nil {
		badRequest(c, err, "get last operation")
		return
	}
	actorID, ok := actorFrom(c)
	if !ok {
		return
	}

	day := h.calendar.Today()
	if params.Date != "" {
		parsed, err := domain.ParseBusinessDate(params.Date)
		if err != nil {
			respondError(c, fmt.Errorf("%w: date must be YYYY-MM-DD", apperrors.ErrValidation), "get last operation")
			return
		}
		day = parsed
	}

	entry, err := h.history.GetLast(c.Request.Context(), actorID, params.ChatID, day)
	if err != nil {
		respondError(c, err, "get last operation")
		return
	}
	c.JSON(http.StatusOK, dto.ToHistoryEntryResponse(entry))
}

func (h *historyHandler) undo(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	var req dto.UndoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err, "undo")
		return
	}
	actorID, ok := actorFrom(c)
	if !ok {
		return
	}

	var (
		entry *domain.HistoryEntry
		err   error
	)
	if req.EntryID != "" {
		entry, err = h.history.Undo(c.Request.Context(), req.EntryID, actorID)
	} else {
		entry, err = h.history.UndoLast(c.Request.Context(), actorID, req.ChatID)
	}
	if err != nil {
		respondError(c, err, "undo")
		return
	}

	logger.Info("Operation undone", zap.String("undo_entry_id", entry.ID), zap.String("undone_entry_id", entry.Payload.UndoneEntryID))
	c.JSON(http.StatusOK, dto.ToHistoryEntryResponse(entry))
}
