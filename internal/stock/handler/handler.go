package handler

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/pickt972/stock-wise-fleet-sub001/internal/middleware"
	"github.com/pickt972/stock-wise-fleet-sub001/internal/stock/service"
	"github.com/pickt972/stock-wise-fleet-sub001/internal/stock/sse"
)

// Handlers stock HTTP handlers
type Handlers struct {
	Article   *ArticleHandler
	Supplier  *SupplierHandler
	Reorder   *ReorderHandler
	Order     *OrderHandler
	Movement  *MovementHandler
	Inventory *InventoryHandler
	Events    *SSEHandler
}

func NewHandlers(svc *service.Services, hub *sse.Hub) *Handlers {
	return &Handlers{
		Article:   NewArticleHandler(svc.Article, svc.Supplier, svc.Ledger, svc.Reorder),
		Supplier:  NewSupplierHandler(svc.Supplier),
		Reorder:   NewReorderHandler(svc.Reorder, svc.Report),
		Order:     NewOrderHandler(svc.Order),
		Movement:  NewMovementHandler(svc.Ledger),
		Inventory: NewInventoryHandler(svc.Reconciliation, svc.Report),
		Events:    NewSSEHandler(hub),
	}
}

// Register mounts every route on an authenticated group
func (h *Handlers) Register(api *gin.RouterGroup) {
	manager := middleware.RequireRole(middleware.RoleStockManager)

	articles := api.Group("/articles")
	{
		articles.GET("", h.Article.List)
		articles.POST("", h.Article.Create)
		articles.GET("/alerts", h.Article.Alerts)
		articles.GET("/categories", h.Article.Categories)
		articles.GET("/:id", h.Article.Get)
		articles.GET("/:id/suppliers", h.Article.Suppliers)
		articles.GET("/:id/principal-supplier", h.Article.PrincipalSupplier)
		articles.GET("/:id/ledger-check", h.Article.LedgerCheck)
		articles.POST("/:id/reorder", h.Article.Reorder)
	}

	suppliers := api.Group("/suppliers")
	{
		suppliers.GET("", h.Supplier.List)
		suppliers.POST("", h.Supplier.Create)
		suppliers.GET("/:id", h.Supplier.Get)
		suppliers.POST("/:id/links", h.Supplier.AddLink)
	}
	links := api.Group("/supplier-links")
	{
		links.POST("/:id/principal", h.Supplier.SetPrincipal)
		links.DELETE("/:id", h.Supplier.DeactivateLink)
	}

	reorder := api.Group("/reorder")
	{
		reorder.GET("/plan", h.Reorder.Plan)
		reorder.GET("/plan/export", h.Reorder.ExportPlan)
		reorder.POST("/orders", h.Reorder.CreateAll)
		reorder.POST("/orders/:supplierId", h.Reorder.CreateForSupplier)
	}

	orders := api.Group("/purchase-orders")
	{
		orders.GET("", h.Order.List)
		orders.GET("/:id", h.Order.Get)
		orders.POST("/:id/send", manager, h.Order.Send)
		orders.POST("/:id/confirm", h.Order.Confirm)
		orders.POST("/:id/cancel", h.Order.Cancel)
		orders.POST("/:id/receive", h.Order.Receive)
	}

	movements := api.Group("/movements")
	{
		movements.GET("", h.Movement.List)
		movements.POST("", h.Movement.Create)
		movements.POST("/:id/reverse", manager, h.Movement.Reverse)
	}

	sessions := api.Group("/inventory-sessions")
	{
		sessions.GET("", h.Inventory.List)
		sessions.POST("", h.Inventory.Create)
		sessions.GET("/:id", h.Inventory.Get)
		sessions.GET("/:id/summary", h.Inventory.Summary)
		sessions.POST("/:id/counts", h.Inventory.RecordCounts)
		sessions.POST("/:id/close", h.Inventory.Close)
		sessions.POST("/:id/validate", manager, h.Inventory.Validate)
		sessions.GET("/:id/export", h.Inventory.Export)
		sessions.POST("/:id/import", h.Inventory.Import)
		sessions.POST("/:id/archive", h.Inventory.Archive)
	}
	api.PUT("/inventory-lines/:id/count", h.Inventory.RecordCount)

	api.GET("/events", h.Events.Stream)
}

// === response helpers ===

type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

type ListResponse struct {
	Items      interface{} `json:"items"`
	Pagination *Pagination `json:"pagination"`
}

type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

func Success(c *gin.Context, data interface{}) {
	c.JSON(200, Response{
		Code:    0,
		Message: "success",
		Data:    data,
	})
}

// SuccessMessage success with a user-facing summary
func SuccessMessage(c *gin.Context, message string, data interface{}) {
	c.JSON(200, Response{
		Code:    0,
		Message: message,
		Data:    data,
	})
}

func Created(c *gin.Context, data interface{}) {
	c.JSON(201, Response{
		Code:    0,
		Message: "success",
		Data:    data,
	})
}

func Error(c *gin.Context, code int, message string) {
	statusCode := code / 100
	if statusCode < 100 || statusCode > 599 {
		statusCode = 500
	}
	c.JSON(statusCode, Response{
		Code:    code,
		Message: message,
	})
}

func BadRequest(c *gin.Context, message string) {
	Error(c, 40000, message)
}

func NotFound(c *gin.Context, message string) {
	Error(c, 40400, message)
}

func Conflict(c *gin.Context, message string) {
	Error(c, 40900, message)
}

func InternalError(c *gin.Context, message string) {
	Error(c, 50000, message)
}

// handleError maps service errors to a response
func handleError(c *gin.Context, err error) {
	c.Error(err)
	switch {
	case errors.Is(err, service.ErrNotFound),
		errors.Is(err, service.ErrSupplierNotPlanned):
		NotFound(c, err.Error())
	case errors.Is(err, service.ErrInvalidQuantity),
		errors.Is(err, service.ErrInvalidDirection),
		errors.Is(err, service.ErrMissingReason),
		errors.Is(err, service.ErrMissingSupplierEmail),
		errors.Is(err, service.ErrEmptySession),
		errors.Is(err, service.ErrNothingToOrder),
		errors.Is(err, service.ErrNoSupplier):
		BadRequest(c, err.Error())
	case errors.Is(err, service.ErrNotAllCounted):
		var nac *service.NotAllCountedError
		if errors.As(err, &nac) {
			c.JSON(409, Response{Code: 40901, Message: err.Error(), Data: gin.H{"remaining": nac.Remaining}})
			return
		}
		Conflict(c, err.Error())
	case errors.Is(err, service.ErrStockDrifted):
		var drift *service.StockDriftError
		if errors.As(err, &drift) {
			c.JSON(409, Response{Code: 40902, Message: err.Error(), Data: gin.H{"references": drift.References}})
			return
		}
		Conflict(c, err.Error())
	case errors.Is(err, service.ErrInsufficientStock),
		errors.Is(err, service.ErrConcurrentUpdate),
		errors.Is(err, service.ErrAlreadyReversed),
		errors.Is(err, service.ErrCannotReverse),
		errors.Is(err, service.ErrSessionNotInProgress),
		errors.Is(err, service.ErrSessionNotClosed),
		errors.Is(err, service.ErrOrderNotDraft),
		errors.Is(err, service.ErrInvalidTransition):
		Conflict(c, err.Error())
	case errors.Is(err, service.ErrLocked):
		Error(c, 42300, err.Error())
	case errors.Is(err, service.ErrMailNotConfigured),
		errors.Is(err, service.ErrStorageNotConfigured):
		Error(c, 50300, err.Error())
	default:
		InternalError(c, err.Error())
	}
}

func GetUserID(c *gin.Context) string {
	userID, _ := c.Get("user_id")
	if id, ok := userID.(string); ok {
		return id
	}
	return ""
}

func GetPagination(c *gin.Context) (page, pageSize int) {
	page = 1
	pageSize = 20

	if p := c.Query("page"); p != "" {
		if v, err := strconv.Atoi(p); err == nil && v > 0 {
			page = v
		}
	}

	if ps := c.Query("page_size"); ps != "" {
		if v, err := strconv.Atoi(ps); err == nil && v > 0 && v <= 100 {
			pageSize = v
		}
	}

	return page, pageSize
}

func listResponse(c *gin.Context, items interface{}, total int64, page, pageSize int) {
	totalPages := int(total) / pageSize
	if int(total)%pageSize > 0 {
		totalPages++
	}
	Success(c, ListResponse{
		Items: items,
		Pagination: &Pagination{
			Page:       page,
			PageSize:   pageSize,
			Total:      int(total),
			TotalPages: totalPages,
		},
	})
}
