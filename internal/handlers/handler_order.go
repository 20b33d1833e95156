package handlers

import (
	"net/http"

	portssvc "github.com/SscSPs/loan_ledger/internal/core/ports/services"
	"github.com/SscSPs/loan_ledger/internal/dto"
	"github.com/SscSPs/loan_ledger/internal/middleware"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// orderHandler handles HTTP requests related to orders.
type orderHandler struct {
	lifecycle portssvc.LifecycleSvcFacade
}

// newOrderHandler creates a new orderHandler.
func newOrderHandler(ls portssvc.LifecycleSvcFacade) *orderHandler {
	return &orderHandler{lifecycle: ls}
}

// registerOrderRoutes registers routes related to orders.
func registerOrderRoutes(rg *gin.RouterGroup, ls portssvc.LifecycleSvcFacade) {
	h := newOrderHandler(ls)

	orders := rg.Group("/orders")
	{
		orders.POST("", h.createOrder)
		orders.GET("", h.searchOrders)
		orders.GET("/:orderID", h.getOrder)
		orders.POST("/:orderID/transitions", h.transitionState)
		orders.POST("/:orderID/interest", h.recordInterest)
		orders.POST("/:orderID/reductions", h.reducePrincipal)
	}
}

func (h *orderHandler) createOrder(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	var req dto.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err, "create order")
		return
	}
	actorID, ok := actorFrom(c)
	if !ok {
		return
	}

	order, err := h.lifecycle.CreateOrder(c.Request.Context(), req, actorID)
	if err != nil {
		respondError(c, err, "create order")
		return
	}

	logger.Info("Order created successfully", zap.String("order_id", order.OrderID))
	c.JSON(http.StatusCreated, dto.ToOrderResponse(order))
}

func (h *orderHandler) getOrder(c *gin.Context) {
	order, err := h.lifecycle.GetOrder(c.Request.Context(), c.Param("orderID"))
	if err != nil {
		respondError(c, err, "get order")
		return
	}
	c.JSON(http.StatusOK, dto.ToOrderResponse(order))
}

func (h *orderHandler) searchOrders(c *gin.Context) {
	var params dto.SearchOrdersParams
	if err := c.ShouldBindQuery(&params); err != nil {
		badRequest(c, err, "search orders")
		return
	}
	criteria, err := params.ToCriteria()
	if err != nil {
		respondError(c, err, "search orders")
		return
	}

	orders, err := h.lifecycle.SearchOrders(c.Request.Context(), criteria)
	if err != nil {
		respondError(c, err, "search orders")
		return
	}
	c.JSON(http.StatusOK, dto.ToOrderResponses(orders))
}

func (h *orderHandler) transitionState(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	var req dto.TransitionStateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err, "transition order")
		return
	}
	actorID, ok := actorFrom(c)
	if !ok {
		return
	}

	order, err := h.lifecycle.TransitionState(c.Request.Context(), c.Param("orderID"), req.TargetState, actorID)
	if err != nil {
		respondError(c, err, "transition order")
		return
	}

	logger.Info("Order transitioned", zap.String("order_id", order.OrderID), zap.String("state", string(order.State)))
	c.JSON(http.StatusOK, dto.ToOrderResponse(order))
}

func (h *orderHandler) recordInterest(c *gin.Context) {
	var req dto.AmountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err, "record interest")
		return
	}
	actorID, ok := actorFrom(c)
	if !ok {
		return
	}

	record, err := h.lifecycle.RecordInterest(c.Request.Context(), c.Param("orderID"), req.Amount, actorID)
	if err != nil {
		respondError(c, err, "record interest")
		return
	}
	c.JSON(http.StatusCreated, dto.ToIncomeRecordResponse(record))
}

func (h *orderHandler) reducePrincipal(c *gin.Context) {
	var req dto.AmountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err, "reduce principal")
		return
	}
	actorID, ok := actorFrom(c)
	if !ok {
		return
	}

	record, err := h.lifecycle.ReducePrincipal(c.Request.Context(), c.Param("orderID"), req.Amount, actorID)
	if err != nil {
		respondError(c, err, "reduce principal")
		return
	}
	c.JSON(http.StatusCreated, dto.ToIncomeRecordResponse(record))
}
