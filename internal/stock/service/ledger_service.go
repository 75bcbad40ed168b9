package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pickt972/stock-wise-fleet-sub001/internal/stock/entity"
	"github.com/pickt972/stock-wise-fleet-sub001/internal/stock/repository"
	"github.com/pickt972/stock-wise-fleet-sub001/internal/stock/sse"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// casRetries attempts for a standalone movement losing a version race
const casRetries = 3

// LedgerService audit movement ledger. It is the only writer of Article.Stock.
type LedgerService struct {
	repos  *repository.Repositories
	events sse.Publisher
	logger *zap.Logger
}

func NewLedgerService(repos *repository.Repositories, events sse.Publisher, logger *zap.Logger) *LedgerService {
	return &LedgerService{repos: repos, events: events, logger: logger}
}

// MovementRequest manual stock entry or exit
type MovementRequest struct {
	ArticleID     string `json:"article_id" binding:"required"`
	Direction     string `json:"direction" binding:"required"`
	Quantity      int    `json:"quantity" binding:"required"`
	Reason        string `json:"reason" binding:"required"`
	ReferenceType string `json:"reference_type"`
	ReferenceID   string `json:"reference_id"`
}

// movementOptions internal knobs for service-initiated movements
type movementOptions struct {
	allowNegative bool
	reversalOf    *string
}

func validateMovement(req *MovementRequest) error {
	if req.Quantity <= 0 {
		return ErrInvalidQuantity
	}
	if req.Direction != entity.DirectionIn && req.Direction != entity.DirectionOut {
		return ErrInvalidDirection
	}
	if strings.TrimSpace(req.Reason) == "" {
		return ErrMissingReason
	}
	return nil
}

// Record writes one manual movement and updates the article stock atomically.
// Exits may not take stock below zero.
func (s *LedgerService) Record(ctx context.Context, req MovementRequest, actor string) (*entity.StockMovement, error) {
	if err := validateMovement(&req); err != nil {
		return nil, err
	}
	if req.ReferenceType == "" {
		req.ReferenceType = entity.RefTypeManual
	}

	var (
		m       *entity.StockMovement
		article *entity.Article
		err     error
	)
	for i := 0; i < casRetries; i++ {
		err = s.repos.DB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			m, article, err = s.record(ctx, s.repos.WithTx(tx), req, actor, movementOptions{})
			return err
		})
		if !errors.Is(err, ErrConcurrentUpdate) {
			break
		}
	}
	if err != nil {
		return nil, err
	}

	s.logger.Info("Stock movement recorded",
		zap.String("article_id", article.ID),
		zap.String("direction", m.Direction),
		zap.Int("quantity", m.Quantity),
		zap.Int("stock", article.Stock),
		zap.String("actor", actor))
	s.publishStock(article)
	return m, nil
}

// record applies a movement with the given repositories, which callers bind
// to their own transaction.
func (s *LedgerService) record(ctx context.Context, r *repository.Repositories, req MovementRequest, actor string, opts movementOptions) (*entity.StockMovement, *entity.Article, error) {
	if err := validateMovement(&req); err != nil {
		return nil, nil, err
	}

	article, err := r.Article.FindByID(ctx, req.ArticleID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil, fmt.Errorf("article %s: %w", req.ArticleID, ErrNotFound)
		}
		return nil, nil, fmt.Errorf("lecture article: %w", err)
	}

	m := &entity.StockMovement{
		ID:            uuid.New().String(),
		ArticleID:     article.ID,
		Direction:     req.Direction,
		Quantity:      req.Quantity,
		Reason:        req.Reason,
		ActorID:       actor,
		ReferenceType: req.ReferenceType,
		ReferenceID:   req.ReferenceID,
		StockBefore:   article.Stock,
		ReversalOf:    opts.reversalOf,
		CreatedAt:     time.Now(),
	}
	newStock := article.Stock + m.Signed()
	if newStock < 0 && !opts.allowNegative {
		return nil, nil, fmt.Errorf("%s : disponible %d, demandé %d: %w", article.Reference, article.Stock, req.Quantity, ErrInsufficientStock)
	}
	m.StockAfter = newStock

	if err := r.Article.UpdateStock(ctx, article, newStock); err != nil {
		if errors.Is(err, repository.ErrVersionConflict) {
			return nil, nil, ErrConcurrentUpdate
		}
		return nil, nil, fmt.Errorf("mise à jour du stock: %w", err)
	}
	if err := r.Movement.Create(ctx, m); err != nil {
		return nil, nil, fmt.Errorf("écriture du mouvement: %w", err)
	}
	return m, article, nil
}

// Reverse writes a compensating movement for a previous one
func (s *LedgerService) Reverse(ctx context.Context, movementID, actor, reason string) (*entity.StockMovement, error) {
	var (
		m       *entity.StockMovement
		article *entity.Article
	)
	err := s.repos.DB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		r := s.repos.WithTx(tx)
		orig, err := r.Movement.FindByID(ctx, movementID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return fmt.Errorf("mouvement %s: %w", movementID, ErrNotFound)
			}
			return err
		}
		if orig.ReversalOf != nil {
			return ErrCannotReverse
		}
		reversed, err := r.Movement.ExistsReversalOf(ctx, orig.ID)
		if err != nil {
			return err
		}
		if reversed {
			return ErrAlreadyReversed
		}

		direction := entity.DirectionIn
		if orig.Direction == entity.DirectionIn {
			direction = entity.DirectionOut
		}
		label := entity.ReasonReversal
		if reason = strings.TrimSpace(reason); reason != "" {
			label += ": " + reason
		}
		m, article, err = s.record(ctx, r, MovementRequest{
			ArticleID:     orig.ArticleID,
			Direction:     direction,
			Quantity:      orig.Quantity,
			Reason:        label,
			ReferenceType: entity.RefTypeMovement,
			ReferenceID:   orig.ID,
		}, actor, movementOptions{reversalOf: &orig.ID})
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Stock movement reversed", zap.String("movement_id", movementID), zap.String("reversal_id", m.ID))
	s.publishStock(article)
	return m, nil
}

// List ledger entries, newest first
func (s *LedgerService) List(ctx context.Context, page, pageSize int, f repository.MovementFilter) ([]entity.StockMovement, int64, error) {
	return s.repos.Movement.FindAll(ctx, page, pageSize, f)
}

// LedgerCheck article stock against the signed sum of its movements
type LedgerCheck struct {
	ArticleID   string `json:"article_id"`
	Stock       int    `json:"stock"`
	MovementSum int    `json:"movement_sum"`
	Consistent  bool   `json:"consistent"`
}

// Verify compares current stock with the ledger
func (s *LedgerService) Verify(ctx context.Context, articleID string) (*LedgerCheck, error) {
	article, err := s.repos.Article.FindByID(ctx, articleID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	sum, err := s.repos.Movement.SignedSum(ctx, articleID)
	if err != nil {
		return nil, fmt.Errorf("somme des mouvements: %w", err)
	}
	return &LedgerCheck{
		ArticleID:   articleID,
		Stock:       article.Stock,
		MovementSum: sum,
		Consistent:  sum == article.Stock,
	}, nil
}

func (s *LedgerService) publishStock(a *entity.Article) {
	s.events.Publish(sse.EventStockChanged, map[string]interface{}{
		"article_id": a.ID,
		"reference":  a.Reference,
		"stock":      a.Stock,
	})
}
