package service

import (
	"sort"

	"github.com/pickt972/stock-wise-fleet-sub001/internal/config"
	"github.com/pickt972/stock-wise-fleet-sub001/internal/stock/entity"
	"github.com/shopspring/decimal"
)

// ReorderSettings quantity and pricing rules of the reorder planner
type ReorderSettings struct {
	VATRate            decimal.Decimal
	StockoutMultiplier int
	StockoutMinQty     int
	LowStockBuffer     int
	RoundToMinOrderQty bool
}

// DefaultReorderSettings 20% VAT, max(min*2, 10) on stockout, min-stock+5 otherwise
func DefaultReorderSettings() ReorderSettings {
	return ReorderSettings{
		VATRate:            decimal.RequireFromString("0.20"),
		StockoutMultiplier: 2,
		StockoutMinQty:     10,
		LowStockBuffer:     5,
	}
}

func ReorderSettingsFromConfig(cfg config.ReorderConfig) ReorderSettings {
	return ReorderSettings{
		VATRate:            decimal.NewFromFloat(cfg.VATRate),
		StockoutMultiplier: cfg.StockoutMultiplier,
		StockoutMinQty:     cfg.StockoutMinQty,
		LowStockBuffer:     cfg.LowStockBuffer,
		RoundToMinOrderQty: cfg.RoundToMinOrderQty,
	}
}

// Quantity to order for an article through the given link
func (s ReorderSettings) Quantity(a *entity.Article, minOrderQty int) int {
	var qty int
	if a.Stock == 0 {
		qty = a.StockMin * s.StockoutMultiplier
		if qty < s.StockoutMinQty {
			qty = s.StockoutMinQty
		}
	} else {
		qty = a.StockMin - a.Stock + s.LowStockBuffer
	}
	if s.RoundToMinOrderQty && minOrderQty > 0 && qty < minOrderQty {
		qty = minOrderQty
	}
	return qty
}

// TTC amount including VAT, rounded to cents
func (s ReorderSettings) TTC(ht decimal.Decimal) decimal.Decimal {
	return ht.Mul(decimal.NewFromInt(1).Add(s.VATRate)).Round(2)
}

// PlannedLine one article to order
type PlannedLine struct {
	ArticleID   string          `json:"article_id"`
	Reference   string          `json:"reference"`
	Designation string          `json:"designation"`
	Stock       int             `json:"stock"`
	StockMin    int             `json:"stock_min"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	LineTotal   decimal.Decimal `json:"line_total"`
	Principal   bool            `json:"principal"`
}

// PlannedOrder draft purchase order for one supplier
type PlannedOrder struct {
	SupplierID      string          `json:"supplier_id"`
	SupplierName    string          `json:"supplier_name"`
	SupplierEmail   string          `json:"supplier_email"`
	SupplierPhone   string          `json:"supplier_phone"`
	SupplierAddress string          `json:"supplier_address"`
	Lines           []PlannedLine   `json:"lines"`
	TotalHT         decimal.Decimal `json:"total_ht"`
	TotalTTC        decimal.Decimal `json:"total_ttc"`
}

func (o *PlannedOrder) removeArticle(articleID string) {
	for i, l := range o.Lines {
		if l.ArticleID == articleID {
			o.TotalHT = o.TotalHT.Sub(l.LineTotal)
			o.Lines = append(o.Lines[:i], o.Lines[i+1:]...)
			return
		}
	}
}

// BuildPlan groups low-stock articles by supplier. Principal links are placed
// first and take the article away from any other supplier; other links only
// place articles not yet grouped. Each article ends in at most one group.
// links must be in the order suppliers should be considered.
func BuildPlan(links []entity.ArticleSupplier, settings ReorderSettings) map[string]*PlannedOrder {
	plan := make(map[string]*PlannedOrder)
	owner := make(map[string]string) // article id -> supplier id

	var principals, others []*entity.ArticleSupplier
	for i := range links {
		l := &links[i]
		if l.Article == nil || l.Supplier == nil || !l.Article.NeedsReorder() {
			continue
		}
		if l.IsPrincipal {
			principals = append(principals, l)
		} else {
			others = append(others, l)
		}
	}

	add := func(l *entity.ArticleSupplier) {
		group, ok := plan[l.SupplierID]
		if !ok {
			group = &PlannedOrder{
				SupplierID:      l.SupplierID,
				SupplierName:    l.Supplier.Name,
				SupplierEmail:   l.Supplier.Email,
				SupplierPhone:   l.Supplier.Phone,
				SupplierAddress: l.Supplier.Address,
				TotalHT:         decimal.Zero,
			}
			plan[l.SupplierID] = group
		}
		qty := settings.Quantity(l.Article, l.MinOrderQty)
		price := l.EffectivePrice()
		total := price.Mul(decimal.NewFromInt(int64(qty))).Round(2)
		group.Lines = append(group.Lines, PlannedLine{
			ArticleID:   l.ArticleID,
			Reference:   l.Article.Reference,
			Designation: l.Article.Designation,
			Stock:       l.Article.Stock,
			StockMin:    l.Article.StockMin,
			Quantity:    qty,
			UnitPrice:   price,
			LineTotal:   total,
			Principal:   l.IsPrincipal,
		})
		group.TotalHT = group.TotalHT.Add(total)
		owner[l.ArticleID] = l.SupplierID
	}

	for _, l := range principals {
		if prev, ok := owner[l.ArticleID]; ok {
			plan[prev].removeArticle(l.ArticleID)
		}
		add(l)
	}
	for _, l := range others {
		if _, ok := owner[l.ArticleID]; ok {
			continue
		}
		add(l)
	}

	for id, group := range plan {
		if len(group.Lines) == 0 {
			delete(plan, id)
			continue
		}
		group.TotalTTC = settings.TTC(group.TotalHT)
	}
	return plan
}

// SortedPlan groups ordered by supplier name
func SortedPlan(plan map[string]*PlannedOrder) []*PlannedOrder {
	out := make([]*PlannedOrder, 0, len(plan))
	for _, g := range plan {
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SupplierName != out[j].SupplierName {
			return out[i].SupplierName < out[j].SupplierName
		}
		return out[i].SupplierID < out[j].SupplierID
	})
	return out
}
