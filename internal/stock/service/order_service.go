package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"time"

	"github.com/pickt972/stock-wise-fleet-sub001/internal/shared/mail"
	"github.com/pickt972/stock-wise-fleet-sub001/internal/stock/entity"
	"github.com/pickt972/stock-wise-fleet-sub001/internal/stock/repository"
	"github.com/pickt972/stock-wise-fleet-sub001/internal/stock/sse"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// OrderService purchase order lifecycle
type OrderService struct {
	repos  *repository.Repositories
	ledger *LedgerService
	mailer mail.Sender
	events sse.Publisher
	logger *zap.Logger
}

// NewOrderService mailer may be nil when no SMTP relay is configured
func NewOrderService(repos *repository.Repositories, ledger *LedgerService, mailer mail.Sender, events sse.Publisher, logger *zap.Logger) *OrderService {
	return &OrderService{repos: repos, ledger: ledger, mailer: mailer, events: events, logger: logger}
}

func (s *OrderService) List(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.PurchaseOrder, int64, error) {
	return s.repos.PO.FindAll(ctx, page, pageSize, filters)
}

func (s *OrderService) Get(ctx context.Context, id string) (*entity.PurchaseOrder, error) {
	po, err := s.repos.PO.FindByID(ctx, id)
	if err != nil {
		return nil, lookupErr("commande", id, err)
	}
	return po, nil
}

// Send mails the draft order to its supplier, then marks it sent
func (s *OrderService) Send(ctx context.Context, id, actor string) (*entity.PurchaseOrder, error) {
	po, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if po.Status != entity.POStatusDraft {
		return nil, ErrOrderNotDraft
	}
	if po.SupplierEmail == "" {
		return nil, ErrMissingSupplierEmail
	}
	if s.mailer == nil {
		return nil, ErrMailNotConfigured
	}

	body, err := RenderOrderHTML(po)
	if err != nil {
		return nil, fmt.Errorf("génération de l'email: %w", err)
	}
	if err := s.mailer.Send(ctx, mail.Message{
		To:      po.SupplierEmail,
		ToName:  po.SupplierName,
		Subject: fmt.Sprintf("Bon de commande %s", po.Number),
		HTML:    body,
	}); err != nil {
		return nil, fmt.Errorf("envoi de l'email: %w", err)
	}

	now := time.Now()
	if err := s.repos.PO.UpdateStatus(ctx, po.ID, entity.POStatusDraft, entity.POStatusSent, map[string]interface{}{"sent_at": now}); err != nil {
		// the supplier already has the mail; only the status is stale
		s.logger.Error("Purchase order mailed but status not updated", zap.String("po_id", po.ID), zap.Error(err))
		return nil, fmt.Errorf("mise à jour du statut: %w", err)
	}
	po.Status = entity.POStatusSent
	po.SentAt = &now

	s.logger.Info("Purchase order sent",
		zap.String("po_id", po.ID),
		zap.String("number", po.Number),
		zap.String("to", po.SupplierEmail),
		zap.String("actor", actor))
	s.events.Publish(sse.EventOrderSent, map[string]interface{}{"order_id": po.ID, "number": po.Number})
	return po, nil
}

// Confirm supplier acknowledged the order
func (s *OrderService) Confirm(ctx context.Context, id string) (*entity.PurchaseOrder, error) {
	return s.transition(ctx, id, entity.POStatusConfirmed)
}

// Cancel abandons an order not yet received
func (s *OrderService) Cancel(ctx context.Context, id string) (*entity.PurchaseOrder, error) {
	return s.transition(ctx, id, entity.POStatusCancelled)
}

func (s *OrderService) transition(ctx context.Context, id, to string) (*entity.PurchaseOrder, error) {
	po, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !entity.CanTransitionPO(po.Status, to) {
		return nil, fmt.Errorf("%s -> %s: %w", po.Status, to, ErrInvalidTransition)
	}
	if err := s.repos.PO.UpdateStatus(ctx, po.ID, po.Status, to, nil); err != nil {
		if errors.Is(err, repository.ErrVersionConflict) {
			return nil, ErrConcurrentUpdate
		}
		return nil, err
	}
	po.Status = to
	return po, nil
}

// ReceiveLine quantity received for one order line
type ReceiveLine struct {
	LineID   string `json:"line_id" binding:"required"`
	Quantity int    `json:"quantity" binding:"required"`
}

type ReceiveRequest struct {
	Lines []ReceiveLine `json:"lines" binding:"required,min=1,dive"`
}

// Receive books received quantities into stock. Order status becomes
// received once every line is complete, partially_received otherwise.
func (s *OrderService) Receive(ctx context.Context, id string, req ReceiveRequest, actor string) (*entity.PurchaseOrder, error) {
	for _, rl := range req.Lines {
		if rl.Quantity <= 0 {
			return nil, ErrInvalidQuantity
		}
	}

	var touched []*entity.Article
	err := s.repos.DB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		r := s.repos.WithTx(tx)
		po, err := r.PO.FindByID(ctx, id)
		if err != nil {
			return lookupErr("commande", id, err)
		}
		if !entity.CanTransitionPO(po.Status, entity.POStatusPartiallyReceived) {
			return fmt.Errorf("%s: %w", po.Status, ErrInvalidTransition)
		}

		lines := make(map[string]*entity.PurchaseOrderLine, len(po.Lines))
		for i := range po.Lines {
			lines[po.Lines[i].ID] = &po.Lines[i]
		}
		for _, rl := range req.Lines {
			line, ok := lines[rl.LineID]
			if !ok {
				return fmt.Errorf("ligne %s: %w", rl.LineID, ErrNotFound)
			}
			if rl.Quantity > line.Remaining() {
				return fmt.Errorf("%s : reste %d à recevoir: %w", line.Reference, line.Remaining(), ErrInvalidQuantity)
			}
			line.QuantityReceived += rl.Quantity
			if err := r.PO.UpdateLineReceived(ctx, line.ID, line.QuantityReceived); err != nil {
				return err
			}
			_, article, err := s.ledger.record(ctx, r, MovementRequest{
				ArticleID:     line.ArticleID,
				Direction:     entity.DirectionIn,
				Quantity:      rl.Quantity,
				Reason:        entity.ReasonPurchaseReception,
				ReferenceType: entity.RefTypePurchaseOrder,
				ReferenceID:   po.ID,
			}, actor, movementOptions{})
			if err != nil {
				return err
			}
			touched = append(touched, article)
		}

		next := entity.POStatusReceived
		for i := range po.Lines {
			if po.Lines[i].Remaining() > 0 {
				next = entity.POStatusPartiallyReceived
				break
			}
		}
		return r.PO.UpdateStatus(ctx, po.ID, po.Status, next, nil)
	})
	if err != nil {
		if errors.Is(err, repository.ErrVersionConflict) {
			return nil, ErrConcurrentUpdate
		}
		return nil, err
	}

	for _, a := range touched {
		s.ledger.publishStock(a)
	}
	s.logger.Info("Purchase order received", zap.String("po_id", id), zap.Int("lines", len(req.Lines)))
	return s.Get(ctx, id)
}

var orderMailTemplate = template.Must(template.New("order").Parse(`<!DOCTYPE html>
<html lang="fr">
<head><meta charset="utf-8"><title>Bon de commande {{.Number}}</title></head>
<body style="font-family: Arial, sans-serif; color: #222;">
<h2>Bon de commande {{.Number}}</h2>
<p>Bonjour {{.SupplierName}},</p>
<p>Veuillez trouver ci-dessous notre commande du {{.CreatedAt.Format "02/01/2006"}}.</p>
<table cellpadding="6" cellspacing="0" border="1" style="border-collapse: collapse;">
<thead><tr><th>Référence</th><th>Désignation</th><th>Quantité</th><th>Prix unitaire HT</th><th>Total HT</th></tr></thead>
<tbody>
{{- range .Lines}}
<tr><td>{{.Reference}}</td><td>{{.Designation}}</td><td align="right">{{.QuantityOrdered}}</td><td align="right">{{.UnitPrice.StringFixed 2}} €</td><td align="right">{{.LineTotal.StringFixed 2}} €</td></tr>
{{- end}}
</tbody>
</table>
<p><strong>Total HT :</strong> {{.TotalHT.StringFixed 2}} €<br>
<strong>Total TTC :</strong> {{.TotalTTC.StringFixed 2}} €</p>
<p>Cordialement.</p>
</body>
</html>`))

// RenderOrderHTML email body of a purchase order
func RenderOrderHTML(po *entity.PurchaseOrder) (string, error) {
	var buf bytes.Buffer
	if err := orderMailTemplate.Execute(&buf, po); err != nil {
		return "", err
	}
	return buf.String(), nil
}
