package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pickt972/stock-wise-fleet-sub001/internal/shared/lock"
	"github.com/pickt972/stock-wise-fleet-sub001/internal/stock/entity"
	"github.com/pickt972/stock-wise-fleet-sub001/internal/stock/repository"
	"github.com/pickt972/stock-wise-fleet-sub001/internal/stock/sse"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	reorderLockKey = "reorder:create"
	reorderLockTTL = 2 * time.Minute
)

// ReorderService smart reorder planner
type ReorderService struct {
	repos    *repository.Repositories
	settings ReorderSettings
	locker   lock.Locker
	events   sse.Publisher
	logger   *zap.Logger
}

func NewReorderService(repos *repository.Repositories, settings ReorderSettings, locker lock.Locker, events sse.Publisher, logger *zap.Logger) *ReorderService {
	return &ReorderService{repos: repos, settings: settings, locker: locker, events: events, logger: logger}
}

// PlanReorders current plan keyed by supplier id
func (s *ReorderService) PlanReorders(ctx context.Context) (map[string]*PlannedOrder, error) {
	links, err := s.repos.Supplier.FindReorderCandidates(ctx)
	if err != nil {
		return nil, fmt.Errorf("lecture des articles à commander: %w", err)
	}
	return BuildPlan(links, s.settings), nil
}

// Plan current plan ordered by supplier name
func (s *ReorderService) Plan(ctx context.Context) ([]*PlannedOrder, error) {
	plan, err := s.PlanReorders(ctx)
	if err != nil {
		return nil, err
	}
	return SortedPlan(plan), nil
}

// SupplierFailure a supplier whose order could not be created
type SupplierFailure struct {
	SupplierID   string `json:"supplier_id"`
	SupplierName string `json:"supplier_name"`
	Error        string `json:"error"`
}

// CreateOrdersResult outcome of a multi-supplier creation
type CreateOrdersResult struct {
	Orders  []*entity.PurchaseOrder `json:"orders"`
	Failed  []SupplierFailure       `json:"failed,omitempty"`
	Message string                  `json:"message"`
}

// CreateAllOrders creates one draft order per planned supplier, optionally
// restricted to supplierIDs. Each order is its own transaction; failures are
// collected and returned alongside the orders that were created.
func (s *ReorderService) CreateAllOrders(ctx context.Context, actor string, supplierIDs []string) (*CreateOrdersResult, error) {
	release, err := s.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	plan, err := s.PlanReorders(ctx)
	if err != nil {
		return nil, err
	}

	groups := SortedPlan(plan)
	if len(supplierIDs) > 0 {
		wanted := make(map[string]bool, len(supplierIDs))
		for _, id := range supplierIDs {
			wanted[id] = true
		}
		filtered := groups[:0]
		for _, g := range groups {
			if wanted[g.SupplierID] {
				filtered = append(filtered, g)
			}
		}
		groups = filtered
	}
	if len(groups) == 0 {
		return nil, ErrNothingToOrder
	}

	result := &CreateOrdersResult{}
	var errs error
	for _, g := range groups {
		po, err := s.createOrder(ctx, g, actor, entity.POSourceReorder)
		if err != nil {
			s.logger.Error("Failed to create reorder purchase order",
				zap.String("supplier_id", g.SupplierID), zap.Error(err))
			result.Failed = append(result.Failed, SupplierFailure{
				SupplierID:   g.SupplierID,
				SupplierName: g.SupplierName,
				Error:        err.Error(),
			})
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", g.SupplierName, err))
			continue
		}
		result.Orders = append(result.Orders, po)
	}

	result.Message = summary(msgOrdersCreated, len(result.Orders))
	if len(result.Failed) > 0 {
		result.Message += ", " + summary(msgOrdersFailed, len(result.Failed))
	}
	s.publishCreated(result.Orders)
	return result, errs
}

// CreateOrderForSupplier creates the planned order of a single supplier
func (s *ReorderService) CreateOrderForSupplier(ctx context.Context, actor, supplierID string) (*entity.PurchaseOrder, error) {
	release, err := s.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	plan, err := s.PlanReorders(ctx)
	if err != nil {
		return nil, err
	}
	group, ok := plan[supplierID]
	if !ok {
		return nil, ErrSupplierNotPlanned
	}
	po, err := s.createOrder(ctx, group, actor, entity.POSourceReorder)
	if err != nil {
		return nil, err
	}
	s.publishCreated([]*entity.PurchaseOrder{po})
	return po, nil
}

// CreateOrderForArticle one-line draft order for a low-stock alert, placed
// with the article's principal supplier or its first active one.
func (s *ReorderService) CreateOrderForArticle(ctx context.Context, actor, articleID string) (*entity.PurchaseOrder, error) {
	release, err := s.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	article, err := s.repos.Article.FindByID(ctx, articleID)
	if err != nil {
		return nil, lookupErr("article", articleID, err)
	}
	if !article.NeedsReorder() {
		return nil, ErrNothingToOrder
	}
	links, err := s.repos.Supplier.FindLinksByArticle(ctx, articleID)
	if err != nil {
		return nil, err
	}
	if len(links) == 0 {
		return nil, ErrNoSupplier
	}

	// principal first, then creation order
	link := links[0]
	link.Article = article
	plan := BuildPlan([]entity.ArticleSupplier{link}, s.settings)
	group, ok := plan[link.SupplierID]
	if !ok {
		return nil, ErrNothingToOrder
	}

	po, err := s.createOrder(ctx, group, actor, entity.POSourceAlert)
	if err != nil {
		return nil, err
	}
	s.publishCreated([]*entity.PurchaseOrder{po})
	return po, nil
}

// createOrder writes the order and its lines atomically
func (s *ReorderService) createOrder(ctx context.Context, g *PlannedOrder, actor, source string) (*entity.PurchaseOrder, error) {
	now := time.Now()
	po := &entity.PurchaseOrder{
		ID:              uuid.New().String(),
		SupplierID:      g.SupplierID,
		SupplierName:    g.SupplierName,
		SupplierEmail:   g.SupplierEmail,
		SupplierPhone:   g.SupplierPhone,
		SupplierAddress: g.SupplierAddress,
		Status:          entity.POStatusDraft,
		Source:          source,
		TotalHT:         g.TotalHT.Round(2),
		TotalTTC:        g.TotalTTC,
		VATRate:         s.settings.VATRate,
		CreatedBy:       actor,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	for i, l := range g.Lines {
		po.Lines = append(po.Lines, entity.PurchaseOrderLine{
			ID:              uuid.New().String(),
			OrderID:         po.ID,
			ArticleID:       l.ArticleID,
			Reference:       l.Reference,
			Designation:     l.Designation,
			QuantityOrdered: l.Quantity,
			UnitPrice:       l.UnitPrice,
			LineTotal:       l.LineTotal,
			SortOrder:       i + 1,
		})
	}

	err := s.repos.DB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return s.repos.WithTx(tx).PO.Create(ctx, po)
	})
	if err != nil {
		return nil, fmt.Errorf("création de la commande: %w", err)
	}

	s.logger.Info("Purchase order created",
		zap.String("po_id", po.ID),
		zap.String("number", po.Number),
		zap.String("supplier_id", po.SupplierID),
		zap.Int("lines", len(po.Lines)),
		zap.String("total_ttc", po.TotalTTC.StringFixed(2)))
	return po, nil
}

func (s *ReorderService) acquire(ctx context.Context) (func(), error) {
	release, err := s.locker.Acquire(ctx, reorderLockKey, reorderLockTTL)
	if err != nil {
		if errors.Is(err, lock.ErrNotAcquired) {
			return nil, ErrLocked
		}
		return nil, fmt.Errorf("verrou de commande: %w", err)
	}
	return release, nil
}

func (s *ReorderService) publishCreated(orders []*entity.PurchaseOrder) {
	if len(orders) == 0 {
		return
	}
	ids := make([]string, 0, len(orders))
	total := decimal.Zero
	for _, po := range orders {
		ids = append(ids, po.ID)
		total = total.Add(po.TotalTTC)
	}
	s.events.Publish(sse.EventOrdersCreated, map[string]interface{}{
		"order_ids": ids,
		"total_ttc": total.StringFixed(2),
	})
}
