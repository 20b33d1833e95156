package handlers

import (
	"net/http"

	portssvc "github.com/SscSPs/loan_ledger/internal/core/ports/services"
	"github.com/SscSPs/loan_ledger/internal/dto"
	"github.com/SscSPs/loan_ledger/internal/middleware"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// reconciliationHandler exposes audit and repair.
type reconciliationHandler struct {
	reconciliation portssvc.ReconciliationSvcFacade
}

// registerReconciliationRoutes registers routes related to reconciliation.
func registerReconciliationRoutes(rg *gin.RouterGroup, rs portssvc.ReconciliationSvcFacade) {
	h := &reconciliationHandler{reconciliation: rs}

	rec := rg.Group("/reconciliation")
	{
		rec.GET("/audit", h.audit)
		rec.POST("/repair", h.repair)
	}
}

func (h *reconciliationHandler) audit(c *gin.Context) {
	var params dto.ReconcileParams
	if err := c.ShouldBindQuery(&params); err != nil {
		badRequest(c, err, "audit")
		return
	}
	req, err := params.ToRequest()
	if err != nil {
		respondError(c, err, "audit")
		return
	}

	report, err := h.reconciliation.Audit(c.Request.Context(), req)
	if err != nil {
		respondError(c, err, "audit")
		return
	}
	c.JSON(http.StatusOK, report)
}

func (h *reconciliationHandler) repair(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	var params dto.ReconcileParams
	if err := c.ShouldBindJSON(&params); err != nil {
		badRequest(c, err, "repair")
		return
	}
	req, err := params.ToRequest()
	if err != nil {
		respondError(c, err, "repair")
		return
	}

	report, err := h.reconciliation.Repair(c.Request.Context(), req)
	if err != nil {
		respondError(c, err, "repair")
		return
	}

	logger.Info("Repair finished",
		zap.Int("corrected", len(report.Corrected)),
		zap.Int("manual_review", len(report.ManualReview)),
		zap.Int("partitions_fixed", report.PartitionsFixed),
	)
	c.JSON(http.StatusOK, report)
}
