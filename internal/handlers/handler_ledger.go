package handlers

import (
	"net/http"

	portssvc "github.com/SscSPs/loan_ledger/internal/core/ports/services"
	"github.com/SscSPs/loan_ledger/internal/dto"
	"github.com/gin-gonic/gin"
)

const defaultIncomePageSize = 50

// ledgerHandler handles HTTP requests related to the income ledger and the counters.
type ledgerHandler struct {
	lifecycle portssvc.LifecycleSvcFacade
}

// registerLedgerRoutes registers ledger, adjustment and counter routes.
func registerLedgerRoutes(rg *gin.RouterGroup, ls portssvc.LifecycleSvcFacade) {
	h := &ledgerHandler{lifecycle: ls}

	rg.POST("/adjustments", h.recordAdjustment)
	rg.GET("/income", h.listIncome)
	rg.GET("/counters", h.getCounters)
}

func (h *ledgerHandler) recordAdjustment(c *gin.Context) {
	var req dto.RecordAdjustmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err, "record adjustment")
		return
	}
	actorID, ok := actorFrom(c)
	if !ok {
		return
	}

	record, err := h.lifecycle.RecordAdjustment(c.Request.Context(), req, actorID)
	if err != nil {
		respondError(c, err, "record adjustment")
		return
	}
	c.JSON(http.StatusCreated, dto.ToIncomeRecordResponse(record))
}

func (h *ledgerHandler) listIncome(c *gin.Context) {
	var params dto.ListIncomeParams
	if err := c.ShouldBindQuery(&params); err != nil {
		badRequest(c, err, "list income")
		return
	}
	filter, err := params.ToFilter()
	if err != nil {
		respondError(c, err, "list income")
		return
	}
	limit := params.Limit
	if limit == 0 {
		limit = defaultIncomePageSize
	}

	records, next, err := h.lifecycle.GetIncomeRecords(c.Request.Context(), filter, limit, params.NextToken)
	if err != nil {
		respondError(c, err, "list income")
		return
	}

	resp := dto.ListIncomeResponse{Records: make([]dto.IncomeRecordResponse, len(records)), NextToken: next}
	for i := range records {
		resp.Records[i] = dto.ToIncomeRecordResponse(&records[i])
	}
	c.JSON(http.StatusOK, resp)
}

func (h *ledgerHandler) getCounters(c *gin.Context) {
	var params dto.GetCountersParams
	if err := c.ShouldBindQuery(&params); err != nil {
		badRequest(c, err, "get counters")
		return
	}
	query, err := params.ToQuery()
	if err != nil {
		respondError(c, err, "get counters")
		return
	}

	report, err := h.lifecycle.GetCounters(c.Request.Context(), query)
	if err != nil {
		respondError(c, err, "get counters")
		return
	}
	c.JSON(http.StatusOK, dto.ToCountersResponse(report))
}
