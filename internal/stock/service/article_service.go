package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pickt972/stock-wise-fleet-sub001/internal/stock/entity"
	"github.com/pickt972/stock-wise-fleet-sub001/internal/stock/repository"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ArticleService article catalogue
type ArticleService struct {
	repos  *repository.Repositories
	ledger *LedgerService
	logger *zap.Logger
}

func NewArticleService(repos *repository.Repositories, ledger *LedgerService, logger *zap.Logger) *ArticleService {
	return &ArticleService{repos: repos, ledger: ledger, logger: logger}
}

type CreateArticleRequest struct {
	Reference     string          `json:"reference" binding:"required"`
	Designation   string          `json:"designation" binding:"required"`
	Brand         string          `json:"brand"`
	Category      string          `json:"category"`
	StockMin      int             `json:"stock_min"`
	StockMax      int             `json:"stock_max"`
	PurchasePrice decimal.Decimal `json:"purchase_price"`
	LocationID    string          `json:"location_id"`
	InitialStock  int             `json:"initial_stock"`
}

// Create registers an article. Initial stock goes through the ledger.
func (s *ArticleService) Create(ctx context.Context, req CreateArticleRequest, actor string) (*entity.Article, error) {
	if req.StockMin < 0 || req.StockMax < 0 || req.InitialStock < 0 {
		return nil, ErrInvalidQuantity
	}
	if req.PurchasePrice.IsNegative() {
		return nil, fmt.Errorf("prix d'achat négatif: %w", ErrInvalidQuantity)
	}

	now := time.Now()
	article := &entity.Article{
		ID:            uuid.New().String(),
		Reference:     strings.TrimSpace(req.Reference),
		Designation:   req.Designation,
		Brand:         req.Brand,
		Category:      req.Category,
		StockMin:      req.StockMin,
		StockMax:      req.StockMax,
		PurchasePrice: req.PurchasePrice,
		Version:       1,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if req.LocationID != "" {
		loc := req.LocationID
		article.LocationID = &loc
	}

	err := s.repos.DB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		r := s.repos.WithTx(tx)
		if err := r.Article.Create(ctx, article); err != nil {
			return fmt.Errorf("création de l'article: %w", err)
		}
		if req.InitialStock == 0 {
			return nil
		}
		_, updated, err := s.ledger.record(ctx, r, MovementRequest{
			ArticleID:     article.ID,
			Direction:     entity.DirectionIn,
			Quantity:      req.InitialStock,
			Reason:        entity.ReasonInitialStock,
			ReferenceType: entity.RefTypeManual,
		}, actor, movementOptions{})
		if err != nil {
			return err
		}
		*article = *updated
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Article created", zap.String("article_id", article.ID), zap.String("reference", article.Reference))
	return article, nil
}

func (s *ArticleService) List(ctx context.Context, page, pageSize int, f repository.ArticleFilter) ([]entity.Article, int64, error) {
	return s.repos.Article.FindAll(ctx, page, pageSize, f)
}

func (s *ArticleService) Get(ctx context.Context, id string) (*entity.Article, error) {
	a, err := s.repos.Article.FindByID(ctx, id)
	if err != nil {
		return nil, lookupErr("article", id, err)
	}
	return a, nil
}

// Alerts articles out of stock or at/below their minimum
func (s *ArticleService) Alerts(ctx context.Context) ([]entity.Article, error) {
	return s.repos.Article.FindInScope(ctx, repository.ArticleFilter{LowStock: true})
}

func (s *ArticleService) Categories(ctx context.Context) ([]string, error) {
	return s.repos.Article.Categories(ctx)
}
