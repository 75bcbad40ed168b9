package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/pickt972/stock-wise-fleet-sub001/internal/shared/lock"
	"github.com/pickt972/stock-wise-fleet-sub001/internal/stock/entity"
	"github.com/pickt972/stock-wise-fleet-sub001/internal/stock/sse"
	"github.com/pickt972/stock-wise-fleet-sub001/internal/stock/testutil"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
)

func TestCreateAllOrders(t *testing.T) {
	events := &recordingPublisher{}
	db, svc := setupServices(t, Deps{Events: events})
	ctx := context.Background()

	// A: principal S1. B: no principal, offered by S1 first then S2.
	base := time.Now().Add(-time.Hour)
	a := testutil.SeedArticle(t, db, "FLT-001", 0, 5, "10.00")
	b := testutil.SeedArticle(t, db, "PLQ-002", 3, 10, "5.00")
	c := testutil.SeedArticle(t, db, "AMP-003", 20, 5, "2.00")
	s1 := testutil.SeedSupplier(t, db, "Garage Pièces", "cmd@garage.fr")
	s2 := testutil.SeedSupplier(t, db, "Auto Distribution", "cmd@autodis.fr")
	testutil.SeedLink(t, db, a.ID, s1.ID, true, "", base)
	testutil.SeedLink(t, db, b.ID, s1.ID, false, "", base.Add(time.Second))
	testutil.SeedLink(t, db, b.ID, s2.ID, false, "", base.Add(2*time.Second))
	testutil.SeedLink(t, db, c.ID, s1.ID, true, "", base.Add(3*time.Second))

	plan, err := svc.Reorder.PlanReorders(ctx)
	if err != nil {
		t.Fatalf("PlanReorders: %v", err)
	}
	if len(plan) != 1 || plan[s1.ID] == nil {
		t.Fatalf("expected a single group for S1, got %d groups", len(plan))
	}
	planned := map[string]int{}
	for _, l := range plan[s1.ID].Lines {
		planned[l.ArticleID] = l.Quantity
	}
	if len(planned) != 2 || planned[a.ID] != 10 || planned[b.ID] != 12 {
		t.Fatalf("expected A=10 and B=12 for S1, got %v", planned)
	}

	result, err := svc.Reorder.CreateAllOrders(ctx, "user-1", nil)
	if err != nil {
		t.Fatalf("CreateAllOrders: %v", err)
	}
	if len(result.Orders) != 1 {
		t.Fatalf("expected 1 order, got %d", len(result.Orders))
	}
	if result.Message != "1 commande créée" {
		t.Errorf("unexpected message %q", result.Message)
	}

	po, err := svc.Order.Get(ctx, result.Orders[0].ID)
	if err != nil {
		t.Fatalf("Get order: %v", err)
	}
	if po.Status != entity.POStatusDraft || po.Source != entity.POSourceReorder {
		t.Errorf("expected reorder draft, got %s/%s", po.Status, po.Source)
	}
	wantNumber := fmt.Sprintf("BC-%s-0001", time.Now().Format("2006"))
	if po.Number != wantNumber {
		t.Errorf("expected number %s, got %s", wantNumber, po.Number)
	}
	if po.SupplierEmail != "cmd@garage.fr" {
		t.Errorf("supplier email not snapshotted: %q", po.SupplierEmail)
	}
	if len(po.Lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(po.Lines))
	}
	qty := map[string]int{}
	for _, l := range po.Lines {
		qty[l.ArticleID] = l.QuantityOrdered
	}
	if qty[a.ID] != 10 || qty[b.ID] != 12 {
		t.Errorf("unexpected quantities %v", qty)
	}
	if !po.TotalHT.Equal(decimal.NewFromInt(160)) || !po.TotalTTC.Equal(decimal.NewFromInt(192)) {
		t.Errorf("unexpected totals HT %s TTC %s", po.TotalHT, po.TotalTTC)
	}

	// creating orders never touches stock
	if got := reloadArticle(t, db, a.ID).Stock; got != 0 {
		t.Errorf("stock changed to %d", got)
	}
	if events.count(sse.EventOrdersCreated) != 1 {
		t.Errorf("expected one orders_created event, got %d", events.count(sse.EventOrdersCreated))
	}

	var orders int64
	db.Model(&entity.PurchaseOrder{}).Count(&orders)
	if orders != 1 {
		t.Errorf("expected exactly one draft order, got %d", orders)
	}
}

func TestCreateAllOrdersPartialFailure(t *testing.T) {
	events := &recordingPublisher{}
	db, svc := setupServices(t, Deps{Events: events})
	ctx := context.Background()

	now := time.Now()
	a := testutil.SeedArticle(t, db, "A", 0, 1, "1.00")
	b := testutil.SeedArticle(t, db, "B", 0, 1, "1.00")
	alpha := testutil.SeedSupplier(t, db, "Alpha", "")
	beta := testutil.SeedSupplier(t, db, "Beta", "")
	testutil.SeedLink(t, db, a.ID, alpha.ID, true, "", now)
	testutil.SeedLink(t, db, b.ID, beta.ID, true, "", now)

	// groups are created by supplier name: Alpha succeeds, Beta fails
	testutil.FailNthCreate(t, db, "purchase_orders", 2)

	result, err := svc.Reorder.CreateAllOrders(ctx, "user-1", nil)
	if err == nil {
		t.Fatal("expected the Beta failure to be reported")
	}
	errs := multierr.Errors(err)
	if len(errs) != 1 || !errors.Is(errs[0], testutil.ErrInjected) || !strings.HasPrefix(errs[0].Error(), "Beta: ") {
		t.Errorf("unexpected combined error %v", err)
	}
	if result == nil || len(result.Orders) != 1 || result.Orders[0].SupplierID != alpha.ID {
		t.Fatalf("expected the Alpha order to be kept, got %+v", result)
	}
	if len(result.Failed) != 1 || result.Failed[0].SupplierID != beta.ID || result.Failed[0].SupplierName != "Beta" {
		t.Errorf("unexpected failures %+v", result.Failed)
	}
	if result.Message != "1 commande créée, 1 fournisseur en échec" {
		t.Errorf("unexpected message %q", result.Message)
	}

	var orders, lines int64
	db.Model(&entity.PurchaseOrder{}).Where("supplier_id = ?", beta.ID).Count(&orders)
	db.Model(&entity.PurchaseOrderLine{}).Where("article_id = ?", b.ID).Count(&lines)
	if orders != 0 || lines != 0 {
		t.Errorf("failed supplier must leave nothing behind, got %d orders %d lines", orders, lines)
	}
	if events.count(sse.EventOrdersCreated) != 1 {
		t.Errorf("created orders should still be announced")
	}

	// Beta is still planned and can be retried
	po, err := svc.Reorder.CreateOrderForSupplier(ctx, "user-1", beta.ID)
	if err != nil {
		t.Fatalf("retry: %v", err)
	}
	if len(po.Lines) != 1 || po.Lines[0].ArticleID != b.ID {
		t.Errorf("unexpected retried order %+v", po.Lines)
	}
}

func TestCreateAllOrdersOnePerSupplier(t *testing.T) {
	db, svc := setupServices(t, Deps{})
	ctx := context.Background()

	now := time.Now()
	a := testutil.SeedArticle(t, db, "A", 0, 1, "1.00")
	b := testutil.SeedArticle(t, db, "B", 0, 1, "1.00")
	s1 := testutil.SeedSupplier(t, db, "Alpha", "a@alpha.fr")
	s2 := testutil.SeedSupplier(t, db, "Beta", "b@beta.fr")
	testutil.SeedLink(t, db, a.ID, s1.ID, false, "", now)
	testutil.SeedLink(t, db, a.ID, s2.ID, false, "", now.Add(time.Second))
	testutil.SeedLink(t, db, b.ID, s2.ID, false, "", now.Add(2*time.Second))

	result, err := svc.Reorder.CreateAllOrders(ctx, "user-1", nil)
	if err != nil {
		t.Fatalf("CreateAllOrders: %v", err)
	}
	if len(result.Orders) != 2 {
		t.Fatalf("expected 2 orders, got %d", len(result.Orders))
	}
	if result.Message != "2 commandes créées" {
		t.Errorf("unexpected message %q", result.Message)
	}

	seen := map[string]int{}
	for _, po := range result.Orders {
		for _, l := range po.Lines {
			seen[l.ArticleID]++
		}
	}
	if seen[a.ID] != 1 || seen[b.ID] != 1 {
		t.Errorf("each article must be ordered once, got %v", seen)
	}
	if result.Orders[0].Number == result.Orders[1].Number {
		t.Error("order numbers must be unique")
	}
}

func TestCreateAllOrdersFilteredBySupplier(t *testing.T) {
	db, svc := setupServices(t, Deps{})
	now := time.Now()
	a := testutil.SeedArticle(t, db, "A", 0, 1, "1.00")
	b := testutil.SeedArticle(t, db, "B", 0, 1, "1.00")
	s1 := testutil.SeedSupplier(t, db, "Alpha", "")
	s2 := testutil.SeedSupplier(t, db, "Beta", "")
	testutil.SeedLink(t, db, a.ID, s1.ID, true, "", now)
	testutil.SeedLink(t, db, b.ID, s2.ID, true, "", now)

	result, err := svc.Reorder.CreateAllOrders(context.Background(), "user-1", []string{s2.ID})
	if err != nil {
		t.Fatalf("CreateAllOrders: %v", err)
	}
	if len(result.Orders) != 1 || result.Orders[0].SupplierID != s2.ID {
		t.Fatalf("expected a single order for s2, got %+v", result.Orders)
	}
}

func TestCreateAllOrdersNothingToOrder(t *testing.T) {
	db, svc := setupServices(t, Deps{})
	a := testutil.SeedArticle(t, db, "A", 50, 5, "1.00")
	s1 := testutil.SeedSupplier(t, db, "Alpha", "")
	testutil.SeedLink(t, db, a.ID, s1.ID, true, "", time.Now())

	_, err := svc.Reorder.CreateAllOrders(context.Background(), "user-1", nil)
	mustErr(t, err, ErrNothingToOrder)
}

func TestCreateAllOrdersSkipsInactive(t *testing.T) {
	db, svc := setupServices(t, Deps{})
	a := testutil.SeedArticle(t, db, "A", 0, 1, "1.00")
	s1 := testutil.SeedSupplier(t, db, "Alpha", "")
	link := testutil.SeedLink(t, db, a.ID, s1.ID, true, "", time.Now())
	if err := svc.Supplier.DeactivateLink(context.Background(), link.ID); err != nil {
		t.Fatalf("DeactivateLink: %v", err)
	}

	_, err := svc.Reorder.CreateAllOrders(context.Background(), "user-1", nil)
	mustErr(t, err, ErrNothingToOrder)
}

func TestCreateAllOrdersLocked(t *testing.T) {
	locker := lock.NewLocalLocker()
	db, svc := setupServices(t, Deps{Locker: locker})
	a := testutil.SeedArticle(t, db, "A", 0, 1, "1.00")
	s1 := testutil.SeedSupplier(t, db, "Alpha", "")
	testutil.SeedLink(t, db, a.ID, s1.ID, true, "", time.Now())

	release, err := locker.Acquire(context.Background(), reorderLockKey, time.Minute)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	defer release()

	_, err = svc.Reorder.CreateAllOrders(context.Background(), "user-1", nil)
	mustErr(t, err, ErrLocked)
}

func TestCreateOrderForArticleLocked(t *testing.T) {
	locker := lock.NewLocalLocker()
	db, svc := setupServices(t, Deps{Locker: locker})
	a := testutil.SeedArticle(t, db, "A", 0, 1, "1.00")
	s1 := testutil.SeedSupplier(t, db, "Alpha", "")
	testutil.SeedLink(t, db, a.ID, s1.ID, true, "", time.Now())

	release, err := locker.Acquire(context.Background(), reorderLockKey, time.Minute)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}

	_, err = svc.Reorder.CreateOrderForArticle(context.Background(), "user-1", a.ID)
	mustErr(t, err, ErrLocked)

	release()
	if _, err := svc.Reorder.CreateOrderForArticle(context.Background(), "user-1", a.ID); err != nil {
		t.Fatalf("CreateOrderForArticle after release: %v", err)
	}
}

func TestCreateOrderForSupplier(t *testing.T) {
	db, svc := setupServices(t, Deps{})
	ctx := context.Background()
	a := testutil.SeedArticle(t, db, "A", 0, 1, "1.00")
	s1 := testutil.SeedSupplier(t, db, "Alpha", "")
	s2 := testutil.SeedSupplier(t, db, "Beta", "")
	testutil.SeedLink(t, db, a.ID, s1.ID, true, "", time.Now())

	po, err := svc.Reorder.CreateOrderForSupplier(ctx, "user-1", s1.ID)
	if err != nil {
		t.Fatalf("CreateOrderForSupplier: %v", err)
	}
	if po.SupplierID != s1.ID || len(po.Lines) != 1 {
		t.Errorf("unexpected order %+v", po)
	}

	_, err = svc.Reorder.CreateOrderForSupplier(ctx, "user-1", s2.ID)
	mustErr(t, err, ErrSupplierNotPlanned)
}

func TestCreateOrderForArticle(t *testing.T) {
	db, svc := setupServices(t, Deps{})
	ctx := context.Background()
	now := time.Now()
	a := testutil.SeedArticle(t, db, "A", 1, 3, "4.00")
	healthy := testutil.SeedArticle(t, db, "H", 30, 3, "4.00")
	orphan := testutil.SeedArticle(t, db, "O", 0, 3, "4.00")
	s1 := testutil.SeedSupplier(t, db, "Alpha", "")
	s2 := testutil.SeedSupplier(t, db, "Beta", "")
	testutil.SeedLink(t, db, a.ID, s1.ID, false, "", now)
	testutil.SeedLink(t, db, a.ID, s2.ID, true, "3.50", now.Add(time.Second))
	testutil.SeedLink(t, db, healthy.ID, s1.ID, true, "", now)

	po, err := svc.Reorder.CreateOrderForArticle(ctx, "user-1", a.ID)
	if err != nil {
		t.Fatalf("CreateOrderForArticle: %v", err)
	}
	if po.SupplierID != s2.ID {
		t.Errorf("expected principal supplier, got %s", po.SupplierName)
	}
	if po.Source != entity.POSourceAlert {
		t.Errorf("expected alert source, got %s", po.Source)
	}
	// 3 - 1 + 5
	if len(po.Lines) != 1 || po.Lines[0].QuantityOrdered != 7 {
		t.Errorf("unexpected lines %+v", po.Lines)
	}

	_, err = svc.Reorder.CreateOrderForArticle(ctx, "user-1", healthy.ID)
	mustErr(t, err, ErrNothingToOrder)
	_, err = svc.Reorder.CreateOrderForArticle(ctx, "user-1", orphan.ID)
	mustErr(t, err, ErrNoSupplier)
	_, err = svc.Reorder.CreateOrderForArticle(ctx, "user-1", "missing")
	mustErr(t, err, ErrNotFound)
}

func TestPlanIgnoresInactiveSupplier(t *testing.T) {
	db, svc := setupServices(t, Deps{})
	a := testutil.SeedArticle(t, db, "A", 0, 1, "1.00")
	s1 := testutil.SeedSupplier(t, db, "Alpha", "")
	testutil.SeedLink(t, db, a.ID, s1.ID, true, "", time.Now())
	if err := db.Model(&entity.Supplier{}).Where("id = ?", s1.ID).Update("active", false).Error; err != nil {
		t.Fatalf("deactivate supplier: %v", err)
	}

	plan, err := svc.Reorder.Plan(context.Background())
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if len(plan) != 0 {
		t.Errorf("expected empty plan, got %d groups", len(plan))
	}
}
