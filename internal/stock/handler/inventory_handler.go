package handler

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/pickt972/stock-wise-fleet-sub001/internal/stock/service"
	"github.com/xuri/excelize/v2"
)

// InventoryHandler stock reconciliation sessions
type InventoryHandler struct {
	svc    *service.ReconciliationService
	report *service.ReportService
}

func NewInventoryHandler(svc *service.ReconciliationService, report *service.ReportService) *InventoryHandler {
	return &InventoryHandler{svc: svc, report: report}
}

// List GET /inventory-sessions
func (h *InventoryHandler) List(c *gin.Context) {
	page, pageSize := GetPagination(c)
	items, total, err := h.svc.List(c.Request.Context(), page, pageSize, c.Query("status"))
	if err != nil {
		handleError(c, err)
		return
	}
	listResponse(c, items, total, page, pageSize)
}

// Create POST /inventory-sessions
func (h *InventoryHandler) Create(c *gin.Context) {
	var req service.CreateSessionRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			BadRequest(c, "Paramètres invalides: "+err.Error())
			return
		}
	}
	session, err := h.svc.CreateSession(c.Request.Context(), req, GetUserID(c))
	if err != nil {
		handleError(c, err)
		return
	}
	Created(c, session)
}

// Get GET /inventory-sessions/:id
func (h *InventoryHandler) Get(c *gin.Context) {
	session, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	Success(c, session)
}

// Summary GET /inventory-sessions/:id/summary
func (h *InventoryHandler) Summary(c *gin.Context) {
	sum, err := h.svc.Summary(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	Success(c, sum)
}

type recordCountRequest struct {
	Counted *int `json:"counted" binding:"required"`
}

// RecordCount PUT /inventory-lines/:id/count
func (h *InventoryHandler) RecordCount(c *gin.Context) {
	var req recordCountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Paramètres invalides: "+err.Error())
		return
	}
	line, err := h.svc.RecordCount(c.Request.Context(), c.Param("id"), *req.Counted, GetUserID(c))
	if err != nil {
		handleError(c, err)
		return
	}
	Success(c, line)
}

type recordCountsRequest struct {
	Entries []service.CountEntry `json:"entries" binding:"required,min=1"`
}

// RecordCounts POST /inventory-sessions/:id/counts
func (h *InventoryHandler) RecordCounts(c *gin.Context) {
	var req recordCountsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Paramètres invalides: "+err.Error())
		return
	}
	n, msg, err := h.svc.RecordCounts(c.Request.Context(), c.Param("id"), req.Entries, GetUserID(c))
	if err != nil {
		handleError(c, err)
		return
	}
	SuccessMessage(c, msg, gin.H{"recorded": n})
}

// Close POST /inventory-sessions/:id/close
func (h *InventoryHandler) Close(c *gin.Context) {
	result, err := h.svc.CloseSession(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	SuccessMessage(c, result.Message, result)
}

// Validate POST /inventory-sessions/:id/validate
func (h *InventoryHandler) Validate(c *gin.Context) {
	result, err := h.svc.ValidateSession(c.Request.Context(), c.Param("id"), GetUserID(c))
	if err != nil {
		handleError(c, err)
		return
	}
	SuccessMessage(c, result.Message, result)
}

// Export GET /inventory-sessions/:id/export
func (h *InventoryHandler) Export(c *gin.Context) {
	f, filename, err := h.report.ExportSession(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	defer f.Close()
	writeXLSX(c, filename, f)
}

// Import POST /inventory-sessions/:id/import (multipart field "file")
func (h *InventoryHandler) Import(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		BadRequest(c, "Fichier manquant")
		return
	}
	file, err := fh.Open()
	if err != nil {
		BadRequest(c, "Lecture du fichier impossible: "+err.Error())
		return
	}
	defer file.Close()

	f, err := excelize.OpenReader(file)
	if err != nil {
		BadRequest(c, "Fichier Excel illisible: "+err.Error())
		return
	}
	defer f.Close()

	entries, err := h.report.ParseCountSheet(f)
	if err != nil {
		handleError(c, err)
		return
	}
	if len(entries) == 0 {
		BadRequest(c, "Aucun comptage dans le fichier")
		return
	}
	n, msg, err := h.svc.RecordCounts(c.Request.Context(), c.Param("id"), entries, GetUserID(c))
	if err != nil {
		handleError(c, err)
		return
	}
	SuccessMessage(c, msg, gin.H{"recorded": n})
}

// Archive POST /inventory-sessions/:id/archive
func (h *InventoryHandler) Archive(c *gin.Context) {
	key, err := h.report.ArchiveSession(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	Success(c, gin.H{"key": key})
}

func writeXLSX(c *gin.Context, filename string, f *excelize.File) {
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Header("Content-Transfer-Encoding", "binary")
	if err := f.Write(c.Writer); err != nil {
		InternalError(c, "write xlsx: "+err.Error())
	}
}
