package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/pickt972/stock-wise-fleet-sub001/internal/stock/service"
)

type SupplierHandler struct {
	svc *service.SupplierService
}

func NewSupplierHandler(svc *service.SupplierService) *SupplierHandler {
	return &SupplierHandler{svc: svc}
}

// List GET /suppliers
func (h *SupplierHandler) List(c *gin.Context) {
	page, pageSize := GetPagination(c)
	items, total, err := h.svc.List(c.Request.Context(), page, pageSize, c.Query("search"), c.Query("active") == "true")
	if err != nil {
		handleError(c, err)
		return
	}
	listResponse(c, items, total, page, pageSize)
}

// Create POST /suppliers
func (h *SupplierHandler) Create(c *gin.Context) {
	var req service.CreateSupplierRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Paramètres invalides: "+err.Error())
		return
	}
	sup, err := h.svc.Create(c.Request.Context(), req)
	if err != nil {
		handleError(c, err)
		return
	}
	Created(c, sup)
}

// Get GET /suppliers/:id
func (h *SupplierHandler) Get(c *gin.Context) {
	sup, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	Success(c, sup)
}

// AddLink POST /suppliers/:id/links
func (h *SupplierHandler) AddLink(c *gin.Context) {
	var req service.AddLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Paramètres invalides: "+err.Error())
		return
	}
	link, err := h.svc.AddLink(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		handleError(c, err)
		return
	}
	Created(c, link)
}

// SetPrincipal POST /supplier-links/:id/principal
func (h *SupplierHandler) SetPrincipal(c *gin.Context) {
	link, err := h.svc.SetPrincipal(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	Success(c, link)
}

// DeactivateLink DELETE /supplier-links/:id
func (h *SupplierHandler) DeactivateLink(c *gin.Context) {
	if err := h.svc.DeactivateLink(c.Request.Context(), c.Param("id")); err != nil {
		handleError(c, err)
		return
	}
	Success(c, nil)
}
