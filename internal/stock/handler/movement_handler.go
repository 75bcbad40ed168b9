package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/pickt972/stock-wise-fleet-sub001/internal/stock/repository"
	"github.com/pickt972/stock-wise-fleet-sub001/internal/stock/service"
)

// MovementHandler stock entries and exits
type MovementHandler struct {
	svc *service.LedgerService
}

func NewMovementHandler(svc *service.LedgerService) *MovementHandler {
	return &MovementHandler{svc: svc}
}

// List GET /movements
func (h *MovementHandler) List(c *gin.Context) {
	page, pageSize := GetPagination(c)
	items, total, err := h.svc.List(c.Request.Context(), page, pageSize, repository.MovementFilter{
		ArticleID:     c.Query("article_id"),
		Direction:     c.Query("direction"),
		ReferenceType: c.Query("reference_type"),
		ReferenceID:   c.Query("reference_id"),
	})
	if err != nil {
		handleError(c, err)
		return
	}
	listResponse(c, items, total, page, pageSize)
}

// Create POST /movements
func (h *MovementHandler) Create(c *gin.Context) {
	var req service.MovementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Paramètres invalides: "+err.Error())
		return
	}
	m, err := h.svc.Record(c.Request.Context(), req, GetUserID(c))
	if err != nil {
		handleError(c, err)
		return
	}
	Created(c, m)
}

type reverseRequest struct {
	Reason string `json:"reason"`
}

// Reverse POST /movements/:id/reverse
func (h *MovementHandler) Reverse(c *gin.Context) {
	var req reverseRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			BadRequest(c, "Paramètres invalides: "+err.Error())
			return
		}
	}
	m, err := h.svc.Reverse(c.Request.Context(), c.Param("id"), GetUserID(c), req.Reason)
	if err != nil {
		handleError(c, err)
		return
	}
	Created(c, m)
}
