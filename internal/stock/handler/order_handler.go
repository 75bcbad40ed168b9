package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/pickt972/stock-wise-fleet-sub001/internal/stock/service"
)

// OrderHandler purchase order lifecycle
type OrderHandler struct {
	svc *service.OrderService
}

func NewOrderHandler(svc *service.OrderService) *OrderHandler {
	return &OrderHandler{svc: svc}
}

// List GET /purchase-orders
func (h *OrderHandler) List(c *gin.Context) {
	page, pageSize := GetPagination(c)
	filters := map[string]string{
		"supplier_id": c.Query("supplier_id"),
		"status":      c.Query("status"),
		"search":      c.Query("search"),
	}
	items, total, err := h.svc.List(c.Request.Context(), page, pageSize, filters)
	if err != nil {
		handleError(c, err)
		return
	}
	listResponse(c, items, total, page, pageSize)
}

// Get GET /purchase-orders/:id
func (h *OrderHandler) Get(c *gin.Context) {
	po, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	Success(c, po)
}

// Send POST /purchase-orders/:id/send
func (h *OrderHandler) Send(c *gin.Context) {
	po, err := h.svc.Send(c.Request.Context(), c.Param("id"), GetUserID(c))
	if err != nil {
		handleError(c, err)
		return
	}
	Success(c, po)
}

// Confirm POST /purchase-orders/:id/confirm
func (h *OrderHandler) Confirm(c *gin.Context) {
	po, err := h.svc.Confirm(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	Success(c, po)
}

// Cancel POST /purchase-orders/:id/cancel
func (h *OrderHandler) Cancel(c *gin.Context) {
	po, err := h.svc.Cancel(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	Success(c, po)
}

// Receive POST /purchase-orders/:id/receive
func (h *OrderHandler) Receive(c *gin.Context) {
	var req service.ReceiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Paramètres invalides: "+err.Error())
		return
	}
	po, err := h.svc.Receive(c.Request.Context(), c.Param("id"), req, GetUserID(c))
	if err != nil {
		handleError(c, err)
		return
	}
	Success(c, po)
}
