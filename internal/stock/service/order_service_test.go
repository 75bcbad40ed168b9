package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/pickt972/stock-wise-fleet-sub001/internal/stock/entity"
	"github.com/pickt972/stock-wise-fleet-sub001/internal/stock/repository"
	"github.com/pickt972/stock-wise-fleet-sub001/internal/stock/testutil"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// draftOrder seeds one low-stock article linked to a supplier and creates its order
func draftOrder(t *testing.T, db *gorm.DB, svc *Services, email string) (*entity.PurchaseOrder, *entity.Article) {
	t.Helper()
	a := testutil.SeedArticle(t, db, "FLT-001", 0, 4, "10.00")
	s := testutil.SeedSupplier(t, db, "Garage Pièces", email)
	testutil.SeedLink(t, db, a.ID, s.ID, true, "", time.Now())

	po, err := svc.Reorder.CreateOrderForSupplier(context.Background(), "user-1", s.ID)
	if err != nil {
		t.Fatalf("CreateOrderForSupplier: %v", err)
	}
	return po, a
}

func TestSendOrder(t *testing.T) {
	mailer := &fakeMailer{}
	db, svc := setupServices(t, Deps{Mailer: mailer})
	ctx := context.Background()
	po, _ := draftOrder(t, db, svc, "cmd@garage.fr")

	sent, err := svc.Order.Send(ctx, po.ID, "manager-1")
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if sent.Status != entity.POStatusSent || sent.SentAt == nil {
		t.Errorf("expected sent order with timestamp, got %s", sent.Status)
	}
	if len(mailer.sent) != 1 {
		t.Fatalf("expected 1 mail, got %d", len(mailer.sent))
	}
	msg := mailer.sent[0]
	if msg.To != "cmd@garage.fr" || !strings.Contains(msg.Subject, po.Number) {
		t.Errorf("unexpected mail %s / %s", msg.To, msg.Subject)
	}
	if !strings.Contains(msg.HTML, "FLT-001") || !strings.Contains(msg.HTML, "120.00") {
		t.Errorf("mail body misses order content")
	}

	stored, _ := svc.Order.Get(ctx, po.ID)
	if stored.Status != entity.POStatusSent {
		t.Errorf("status not persisted: %s", stored.Status)
	}

	_, err = svc.Order.Send(ctx, po.ID, "manager-1")
	mustErr(t, err, ErrOrderNotDraft)
	if len(mailer.sent) != 1 {
		t.Errorf("a sent order must not be mailed twice")
	}
}

func TestSendOrderPreconditions(t *testing.T) {
	t.Run("no supplier email", func(t *testing.T) {
		db, svc := setupServices(t, Deps{Mailer: &fakeMailer{}})
		po, _ := draftOrder(t, db, svc, "")
		_, err := svc.Order.Send(context.Background(), po.ID, "manager-1")
		mustErr(t, err, ErrMissingSupplierEmail)
	})

	t.Run("mail not configured", func(t *testing.T) {
		db, svc := setupServices(t, Deps{})
		po, _ := draftOrder(t, db, svc, "cmd@garage.fr")
		_, err := svc.Order.Send(context.Background(), po.ID, "manager-1")
		mustErr(t, err, ErrMailNotConfigured)
	})

	t.Run("relay failure keeps draft", func(t *testing.T) {
		db, svc := setupServices(t, Deps{Mailer: &fakeMailer{err: errors.New("smtp down")}})
		po, _ := draftOrder(t, db, svc, "cmd@garage.fr")
		if _, err := svc.Order.Send(context.Background(), po.ID, "manager-1"); err == nil {
			t.Fatal("expected error")
		}
		stored, _ := svc.Order.Get(context.Background(), po.ID)
		if stored.Status != entity.POStatusDraft {
			t.Errorf("expected draft, got %s", stored.Status)
		}
	})

	t.Run("unknown order", func(t *testing.T) {
		_, svc := setupServices(t, Deps{Mailer: &fakeMailer{}})
		_, err := svc.Order.Send(context.Background(), "missing", "manager-1")
		mustErr(t, err, ErrNotFound)
	})
}

func TestReceiveOrder(t *testing.T) {
	db, svc := setupServices(t, Deps{Mailer: &fakeMailer{}})
	ctx := context.Background()
	po, a := draftOrder(t, db, svc, "cmd@garage.fr")
	lineID := po.Lines[0].ID

	_, err := svc.Order.Receive(ctx, po.ID, ReceiveRequest{Lines: []ReceiveLine{{LineID: lineID, Quantity: 1}}}, "user-1")
	mustErr(t, err, ErrInvalidTransition)

	if _, err := svc.Order.Send(ctx, po.ID, "manager-1"); err != nil {
		t.Fatalf("Send: %v", err)
	}

	got, err := svc.Order.Receive(ctx, po.ID, ReceiveRequest{Lines: []ReceiveLine{{LineID: lineID, Quantity: 4}}}, "user-1")
	if err != nil {
		t.Fatalf("Receive: %v", err)
	}
	if got.Status != entity.POStatusPartiallyReceived || got.Lines[0].QuantityReceived != 4 {
		t.Errorf("unexpected order after partial receipt: %s %d", got.Status, got.Lines[0].QuantityReceived)
	}
	if stock := reloadArticle(t, db, a.ID).Stock; stock != 4 {
		t.Errorf("expected stock 4, got %d", stock)
	}

	_, err = svc.Order.Receive(ctx, po.ID, ReceiveRequest{Lines: []ReceiveLine{{LineID: lineID, Quantity: 7}}}, "user-1")
	mustErr(t, err, ErrInvalidQuantity)

	got, err = svc.Order.Receive(ctx, po.ID, ReceiveRequest{Lines: []ReceiveLine{{LineID: lineID, Quantity: 6}}}, "user-1")
	if err != nil {
		t.Fatalf("Receive: %v", err)
	}
	if got.Status != entity.POStatusReceived {
		t.Errorf("expected received, got %s", got.Status)
	}
	if stock := reloadArticle(t, db, a.ID).Stock; stock != 10 {
		t.Errorf("expected stock 10, got %d", stock)
	}

	items, total, err := svc.Ledger.List(ctx, 1, 20, repository.MovementFilter{ReferenceType: entity.RefTypePurchaseOrder, ReferenceID: po.ID})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if total != 2 || items[0].Reason != entity.ReasonPurchaseReception {
		t.Errorf("expected 2 reception movements, got %d", total)
	}
	assertLedgerConsistent(t, svc, a.ID)

	_, err = svc.Order.Cancel(ctx, po.ID)
	mustErr(t, err, ErrInvalidTransition)
}

func TestOrderTransitions(t *testing.T) {
	db, svc := setupServices(t, Deps{Mailer: &fakeMailer{}})
	ctx := context.Background()
	po, _ := draftOrder(t, db, svc, "cmd@garage.fr")

	_, err := svc.Order.Confirm(ctx, po.ID)
	mustErr(t, err, ErrInvalidTransition)

	cancelled, err := svc.Order.Cancel(ctx, po.ID)
	if err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if cancelled.Status != entity.POStatusCancelled {
		t.Errorf("expected cancelled, got %s", cancelled.Status)
	}
	_, err = svc.Order.Confirm(ctx, po.ID)
	mustErr(t, err, ErrInvalidTransition)

	list, total, err := svc.Order.List(ctx, 1, 20, map[string]string{"status": entity.POStatusCancelled})
	if err != nil || total != 1 || list[0].ID != po.ID {
		t.Errorf("expected cancelled order in list, got %d (%v)", total, err)
	}
}

func TestRenderOrderHTMLEscapes(t *testing.T) {
	po := &entity.PurchaseOrder{
		Number:       "BC-2026-0001",
		SupplierName: "<script>alert(1)</script>",
		TotalHT:      decimal.NewFromInt(100),
		TotalTTC:     decimal.NewFromInt(120),
		CreatedAt:    time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC),
		Lines: []entity.PurchaseOrderLine{
			{Reference: "A", Designation: "Filtre", QuantityOrdered: 2, UnitPrice: decimal.NewFromInt(50), LineTotal: decimal.NewFromInt(100)},
		},
	}
	html, err := RenderOrderHTML(po)
	if err != nil {
		t.Fatalf("RenderOrderHTML: %v", err)
	}
	if strings.Contains(html, "<script>") {
		t.Error("supplier name must be escaped")
	}
	for _, want := range []string{"BC-2026-0001", "09/03/2026", "50.00", "120.00"} {
		if !strings.Contains(html, want) {
			t.Errorf("missing %q in body", want)
		}
	}
}
