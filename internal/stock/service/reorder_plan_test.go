package service

import (
	"testing"

	"github.com/pickt972/stock-wise-fleet-sub001/internal/stock/entity"
	"github.com/shopspring/decimal"
)

func TestReorderQuantity(t *testing.T) {
	s := DefaultReorderSettings()
	tests := []struct {
		name     string
		stock    int
		stockMin int
		moq      int
		want     int
	}{
		{"stockout uses floor", 0, 4, 0, 10},
		{"stockout doubles minimum", 0, 7, 0, 14},
		{"low stock tops up with buffer", 2, 5, 0, 8},
		{"at minimum", 5, 5, 0, 5},
		{"negative stock after correction", -2, 3, 0, 10},
		{"moq ignored by default", 2, 5, 12, 8},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := &entity.Article{Stock: tt.stock, StockMin: tt.stockMin}
			if got := s.Quantity(a, tt.moq); got != tt.want {
				t.Errorf("Quantity() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestReorderQuantityRoundsToMinOrderQty(t *testing.T) {
	s := DefaultReorderSettings()
	s.RoundToMinOrderQty = true

	a := &entity.Article{Stock: 2, StockMin: 5}
	if got := s.Quantity(a, 12); got != 12 {
		t.Errorf("expected 12, got %d", got)
	}
	if got := s.Quantity(a, 4); got != 8 {
		t.Errorf("expected 8 when above moq, got %d", got)
	}
}

func TestTTC(t *testing.T) {
	s := DefaultReorderSettings()
	if got := s.TTC(decimal.NewFromInt(100)); !got.Equal(decimal.NewFromInt(120)) {
		t.Errorf("TTC(100) = %s, want 120", got)
	}
	if got := s.TTC(decimal.RequireFromString("10.33")); !got.Equal(decimal.RequireFromString("12.40")) {
		t.Errorf("TTC(10.33) = %s, want 12.40", got)
	}
}

func planLink(a *entity.Article, s *entity.Supplier, principal bool, price string) entity.ArticleSupplier {
	l := entity.ArticleSupplier{
		ID:          a.ID + "-" + s.ID,
		ArticleID:   a.ID,
		SupplierID:  s.ID,
		IsPrincipal: principal,
		Active:      true,
		Article:     a,
		Supplier:    s,
	}
	if price != "" {
		p := decimal.RequireFromString(price)
		l.Price = &p
	}
	return l
}

func TestBuildPlanGroupsBySupplier(t *testing.T) {
	s1 := &entity.Supplier{ID: "s1", Name: "Garage Pièces", Email: "cmd@garage.fr"}
	a := &entity.Article{ID: "a", Reference: "FLT-001", Stock: 0, StockMin: 4, PurchasePrice: decimal.RequireFromString("10")}
	b := &entity.Article{ID: "b", Reference: "PLQ-002", Stock: 3, StockMin: 10, PurchasePrice: decimal.RequireFromString("5")}

	plan := BuildPlan([]entity.ArticleSupplier{
		planLink(a, s1, true, ""),
		planLink(b, s1, true, ""),
	}, DefaultReorderSettings())

	if len(plan) != 1 {
		t.Fatalf("expected 1 group, got %d", len(plan))
	}
	g := plan["s1"]
	if g == nil || len(g.Lines) != 2 {
		t.Fatalf("expected 2 lines for s1, got %+v", g)
	}
	if g.Lines[0].Quantity != 10 || g.Lines[1].Quantity != 12 {
		t.Errorf("unexpected quantities %d, %d", g.Lines[0].Quantity, g.Lines[1].Quantity)
	}
	if !g.TotalHT.Equal(decimal.NewFromInt(160)) {
		t.Errorf("expected total HT 160, got %s", g.TotalHT)
	}
	if !g.TotalTTC.Equal(decimal.NewFromInt(192)) {
		t.Errorf("expected total TTC 192, got %s", g.TotalTTC)
	}
	if g.SupplierEmail != "cmd@garage.fr" {
		t.Errorf("supplier snapshot missing email: %q", g.SupplierEmail)
	}
}

func TestBuildPlanFirstSupplierWins(t *testing.T) {
	s1 := &entity.Supplier{ID: "s1", Name: "Alpha"}
	s2 := &entity.Supplier{ID: "s2", Name: "Beta"}
	a := &entity.Article{ID: "a", Reference: "A", Stock: 1, StockMin: 2}

	plan := BuildPlan([]entity.ArticleSupplier{
		planLink(a, s1, false, "3"),
		planLink(a, s2, false, "2"),
	}, DefaultReorderSettings())

	if len(plan) != 1 || plan["s1"] == nil {
		t.Fatalf("expected only s1 in plan, got %v", SortedPlan(plan))
	}
	if !plan["s1"].Lines[0].UnitPrice.Equal(decimal.NewFromInt(3)) {
		t.Errorf("expected link price 3, got %s", plan["s1"].Lines[0].UnitPrice)
	}
}

func TestBuildPlanPrincipalTakesPrecedence(t *testing.T) {
	s1 := &entity.Supplier{ID: "s1", Name: "Alpha"}
	s2 := &entity.Supplier{ID: "s2", Name: "Beta"}
	a := &entity.Article{ID: "a", Reference: "A", Stock: 0, StockMin: 1}
	b := &entity.Article{ID: "b", Reference: "B", Stock: 0, StockMin: 1}

	plan := BuildPlan([]entity.ArticleSupplier{
		planLink(a, s1, false, "1"),
		planLink(b, s1, false, "1"),
		planLink(a, s2, true, "1"),
	}, DefaultReorderSettings())

	if len(plan) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(plan))
	}
	if n := len(plan["s1"].Lines); n != 1 || plan["s1"].Lines[0].ArticleID != "b" {
		t.Errorf("s1 should only keep b, got %+v", plan["s1"].Lines)
	}
	if n := len(plan["s2"].Lines); n != 1 || !plan["s2"].Lines[0].Principal {
		t.Errorf("s2 should hold a as principal, got %+v", plan["s2"].Lines)
	}
	if !plan["s1"].TotalHT.Equal(decimal.NewFromInt(10)) {
		t.Errorf("s1 total should exclude a, got %s", plan["s1"].TotalHT)
	}
}

func TestBuildPlanDropsEmptyGroups(t *testing.T) {
	s1 := &entity.Supplier{ID: "s1", Name: "Alpha"}
	s2 := &entity.Supplier{ID: "s2", Name: "Beta"}
	a := &entity.Article{ID: "a", Reference: "A", Stock: 0, StockMin: 1}

	plan := BuildPlan([]entity.ArticleSupplier{
		planLink(a, s1, false, "1"),
		planLink(a, s2, true, "1"),
	}, DefaultReorderSettings())

	if _, ok := plan["s1"]; ok {
		t.Error("s1 should be dropped once its only article moved to the principal")
	}
	if len(plan) != 1 {
		t.Errorf("expected 1 group, got %d", len(plan))
	}
}

func TestBuildPlanSkipsHealthyStock(t *testing.T) {
	s1 := &entity.Supplier{ID: "s1", Name: "Alpha"}
	a := &entity.Article{ID: "a", Reference: "A", Stock: 20, StockMin: 5}

	plan := BuildPlan([]entity.ArticleSupplier{planLink(a, s1, true, "1")}, DefaultReorderSettings())
	if len(plan) != 0 {
		t.Errorf("expected empty plan, got %d groups", len(plan))
	}
}

func TestSortedPlanByName(t *testing.T) {
	plan := map[string]*PlannedOrder{
		"x": {SupplierID: "x", SupplierName: "Zeta"},
		"y": {SupplierID: "y", SupplierName: "Alpha"},
	}
	sorted := SortedPlan(plan)
	if sorted[0].SupplierName != "Alpha" || sorted[1].SupplierName != "Zeta" {
		t.Errorf("unexpected order: %s, %s", sorted[0].SupplierName, sorted[1].SupplierName)
	}
}
