package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/pickt972/stock-wise-fleet-sub001/internal/stock/repository"
	"github.com/pickt972/stock-wise-fleet-sub001/internal/stock/service"
)

// ArticleHandler articles and their per-article views
type ArticleHandler struct {
	svc      *service.ArticleService
	supplier *service.SupplierService
	ledger   *service.LedgerService
	reorder  *service.ReorderService
}

func NewArticleHandler(svc *service.ArticleService, supplier *service.SupplierService, ledger *service.LedgerService, reorder *service.ReorderService) *ArticleHandler {
	return &ArticleHandler{svc: svc, supplier: supplier, ledger: ledger, reorder: reorder}
}

// List GET /articles
func (h *ArticleHandler) List(c *gin.Context) {
	page, pageSize := GetPagination(c)
	items, total, err := h.svc.List(c.Request.Context(), page, pageSize, repository.ArticleFilter{
		Search:     c.Query("search"),
		Category:   c.Query("category"),
		LocationID: c.Query("location_id"),
		LowStock:   c.Query("low_stock") == "true",
	})
	if err != nil {
		handleError(c, err)
		return
	}
	listResponse(c, items, total, page, pageSize)
}

// Create POST /articles
func (h *ArticleHandler) Create(c *gin.Context) {
	var req service.CreateArticleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Paramètres invalides: "+err.Error())
		return
	}
	article, err := h.svc.Create(c.Request.Context(), req, GetUserID(c))
	if err != nil {
		handleError(c, err)
		return
	}
	Created(c, article)
}

// Get GET /articles/:id
func (h *ArticleHandler) Get(c *gin.Context) {
	article, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	Success(c, article)
}

// Alerts GET /articles/alerts
func (h *ArticleHandler) Alerts(c *gin.Context) {
	items, err := h.svc.Alerts(c.Request.Context())
	if err != nil {
		handleError(c, err)
		return
	}
	Success(c, items)
}

// Categories GET /articles/categories
func (h *ArticleHandler) Categories(c *gin.Context) {
	cats, err := h.svc.Categories(c.Request.Context())
	if err != nil {
		handleError(c, err)
		return
	}
	Success(c, cats)
}

// Suppliers GET /articles/:id/suppliers
func (h *ArticleHandler) Suppliers(c *gin.Context) {
	links, err := h.supplier.SuppliersFor(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	Success(c, links)
}

// PrincipalSupplier GET /articles/:id/principal-supplier
func (h *ArticleHandler) PrincipalSupplier(c *gin.Context) {
	sup, err := h.supplier.PrincipalSupplierFor(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	Success(c, gin.H{"supplier": sup})
}

// LedgerCheck GET /articles/:id/ledger-check
func (h *ArticleHandler) LedgerCheck(c *gin.Context) {
	check, err := h.ledger.Verify(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	Success(c, check)
}

// Reorder POST /articles/:id/reorder
func (h *ArticleHandler) Reorder(c *gin.Context) {
	po, err := h.reorder.CreateOrderForArticle(c.Request.Context(), GetUserID(c), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	Created(c, po)
}
