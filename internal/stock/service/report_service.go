package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/pickt972/stock-wise-fleet-sub001/internal/shared/storage"
	"github.com/pickt972/stock-wise-fleet-sub001/internal/stock/repository"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

const (
	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	countSheetName  = "Inventaire"
	planSheetName   = "Réassort"
)

var (
	planExportHeaders = []string{"Fournisseur", "Référence", "Désignation", "Stock", "Stock min", "Quantité", "Prix unitaire HT", "Total HT"}
	countSheetHeaders = []string{"Référence", "Désignation", "Théorique", "Compté", "Écart"}
	planColumnWidths  = []float64{28, 16, 36, 8, 10, 10, 16, 14}
	countColumnWidths = []float64{16, 36, 12, 12, 10}
)

// ReportService spreadsheet exports/imports and report archiving
type ReportService struct {
	repos   *repository.Repositories
	reorder *ReorderService
	store   storage.ObjectStore
	logger  *zap.Logger
}

// NewReportService store may be nil when object storage is not configured
func NewReportService(repos *repository.Repositories, reorder *ReorderService, store storage.ObjectStore, logger *zap.Logger) *ReportService {
	return &ReportService{repos: repos, reorder: reorder, store: store, logger: logger}
}

func headerStyle(f *excelize.File) int {
	style, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 11},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#D9E1F2"}},
		Border: []excelize.Border{
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})
	return style
}

func writeHeaders(f *excelize.File, sheet string, headers []string, widths []float64) {
	style := headerStyle(f)
	for i, h := range headers {
		col, _ := excelize.ColumnNumberToName(i + 1)
		cell := col + "1"
		f.SetCellValue(sheet, cell, h)
		f.SetCellStyle(sheet, cell, cell, style)
	}
	for i, w := range widths {
		col, _ := excelize.ColumnNumberToName(i + 1)
		f.SetColWidth(sheet, col, col, w)
	}
}

// ExportPlan current reorder plan, one block per supplier with a subtotal row
func (s *ReportService) ExportPlan(ctx context.Context) (*excelize.File, string, error) {
	plan, err := s.reorder.Plan(ctx)
	if err != nil {
		return nil, "", err
	}

	f := excelize.NewFile()
	f.SetSheetName("Sheet1", planSheetName)
	sheet := planSheetName
	writeHeaders(f, sheet, planExportHeaders, planColumnWidths)

	totalStyle, _ := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	row := 2
	for _, g := range plan {
		for _, l := range g.Lines {
			f.SetCellValue(sheet, fmt.Sprintf("A%d", row), g.SupplierName)
			f.SetCellValue(sheet, fmt.Sprintf("B%d", row), l.Reference)
			f.SetCellValue(sheet, fmt.Sprintf("C%d", row), l.Designation)
			f.SetCellValue(sheet, fmt.Sprintf("D%d", row), l.Stock)
			f.SetCellValue(sheet, fmt.Sprintf("E%d", row), l.StockMin)
			f.SetCellValue(sheet, fmt.Sprintf("F%d", row), l.Quantity)
			f.SetCellValue(sheet, fmt.Sprintf("G%d", row), l.UnitPrice.InexactFloat64())
			f.SetCellValue(sheet, fmt.Sprintf("H%d", row), l.LineTotal.InexactFloat64())
			row++
		}
		f.SetCellValue(sheet, fmt.Sprintf("A%d", row), "Total "+g.SupplierName)
		f.SetCellValue(sheet, fmt.Sprintf("G%d", row), "HT / TTC")
		f.SetCellValue(sheet, fmt.Sprintf("H%d", row), fmt.Sprintf("%s / %s", g.TotalHT.StringFixed(2), g.TotalTTC.StringFixed(2)))
		f.SetCellStyle(sheet, fmt.Sprintf("A%d", row), fmt.Sprintf("H%d", row), totalStyle)
		row += 2
	}

	return f, "reassort.xlsx", nil
}

// ExportSession count sheet of an inventory session
func (s *ReportService) ExportSession(ctx context.Context, sessionID string) (*excelize.File, string, error) {
	session, err := s.repos.Inventory.FindByID(ctx, sessionID)
	if err != nil {
		return nil, "", lookupErr("session", sessionID, err)
	}

	f := excelize.NewFile()
	f.SetSheetName("Sheet1", countSheetName)
	sheet := countSheetName
	writeHeaders(f, sheet, countSheetHeaders, countColumnWidths)

	for i, l := range session.Lines {
		row := i + 2
		f.SetCellValue(sheet, fmt.Sprintf("A%d", row), l.Reference)
		f.SetCellValue(sheet, fmt.Sprintf("B%d", row), l.Designation)
		f.SetCellValue(sheet, fmt.Sprintf("C%d", row), l.Theoretical)
		if l.Counted != nil {
			f.SetCellValue(sheet, fmt.Sprintf("D%d", row), *l.Counted)
		}
		if l.Variance != nil {
			f.SetCellValue(sheet, fmt.Sprintf("E%d", row), *l.Variance)
		}
	}

	filename := fmt.Sprintf("inventaire_%s.xlsx", session.CountDate.Format("2006-01-02"))
	return f, filename, nil
}

// ParseCountSheet reads reference and counted columns; rows without a count are skipped
func (s *ReportService) ParseCountSheet(f *excelize.File) ([]CountEntry, error) {
	sheet := f.GetSheetName(0)
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("lecture du fichier: %w", err)
	}

	var entries []CountEntry
	if len(rows) < 2 {
		return entries, nil
	}
	for i, row := range rows[1:] {
		if len(row) < 4 || strings.TrimSpace(row[0]) == "" || strings.TrimSpace(row[3]) == "" {
			continue
		}
		counted, err := strconv.Atoi(strings.TrimSpace(row[3]))
		if err != nil {
			return nil, fmt.Errorf("ligne %d : quantité %q: %w", i+2, row[3], ErrInvalidQuantity)
		}
		entries = append(entries, CountEntry{Reference: strings.TrimSpace(row[0]), Counted: counted})
	}
	return entries, nil
}

// ArchiveSession uploads the count sheet to object storage and records its key
func (s *ReportService) ArchiveSession(ctx context.Context, sessionID string) (string, error) {
	if s.store == nil {
		return "", ErrStorageNotConfigured
	}
	f, _, err := s.ExportSession(ctx, sessionID)
	if err != nil {
		return "", err
	}
	defer f.Close()

	buf, err := f.WriteToBuffer()
	if err != nil {
		return "", fmt.Errorf("génération du rapport: %w", err)
	}

	session, err := s.repos.Inventory.FindByID(ctx, sessionID)
	if err != nil {
		return "", lookupErr("session", sessionID, err)
	}
	key := fmt.Sprintf("inventory/%s/%s.xlsx", session.CountDate.Format("2006"), session.ID)
	if err := s.store.Put(ctx, key, xlsxContentType, buf.Bytes()); err != nil {
		return "", fmt.Errorf("archivage du rapport: %w", err)
	}
	if err := s.repos.Inventory.SetArchiveKey(ctx, sessionID, key); err != nil {
		return "", err
	}

	s.logger.Info("Inventory report archived", zap.String("session_id", sessionID), zap.String("key", key))
	return key, nil
}
