package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/pickt972/stock-wise-fleet-sub001/internal/stock/service"
)

// ReorderHandler smart reorder endpoints
type ReorderHandler struct {
	svc    *service.ReorderService
	report *service.ReportService
}

func NewReorderHandler(svc *service.ReorderService, report *service.ReportService) *ReorderHandler {
	return &ReorderHandler{svc: svc, report: report}
}

// Plan GET /reorder/plan
func (h *ReorderHandler) Plan(c *gin.Context) {
	plan, err := h.svc.Plan(c.Request.Context())
	if err != nil {
		handleError(c, err)
		return
	}
	Success(c, plan)
}

// ExportPlan GET /reorder/plan/export
func (h *ReorderHandler) ExportPlan(c *gin.Context) {
	f, filename, err := h.report.ExportPlan(c.Request.Context())
	if err != nil {
		handleError(c, err)
		return
	}
	defer f.Close()
	writeXLSX(c, filename, f)
}

type createOrdersRequest struct {
	SupplierIDs []string `json:"supplier_ids"`
}

// CreateAll POST /reorder/orders
func (h *ReorderHandler) CreateAll(c *gin.Context) {
	var req createOrdersRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			BadRequest(c, "Paramètres invalides: "+err.Error())
			return
		}
	}

	result, err := h.svc.CreateAllOrders(c.Request.Context(), GetUserID(c), req.SupplierIDs)
	if err != nil && (result == nil || len(result.Orders) == 0) {
		handleError(c, err)
		return
	}
	if err != nil {
		// partial success: report both sides
		c.Error(err)
	}
	c.JSON(201, Response{Code: 0, Message: result.Message, Data: result})
}

// CreateForSupplier POST /reorder/orders/:supplierId
func (h *ReorderHandler) CreateForSupplier(c *gin.Context) {
	po, err := h.svc.CreateOrderForSupplier(c.Request.Context(), GetUserID(c), c.Param("supplierId"))
	if err != nil {
		handleError(c, err)
		return
	}
	Created(c, po)
}
