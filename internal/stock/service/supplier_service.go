package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pickt972/stock-wise-fleet-sub001/internal/stock/entity"
	"github.com/pickt972/stock-wise-fleet-sub001/internal/stock/repository"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// SupplierService suppliers and the per-article supplier preference index
type SupplierService struct {
	repos  *repository.Repositories
	logger *zap.Logger
}

func NewSupplierService(repos *repository.Repositories, logger *zap.Logger) *SupplierService {
	return &SupplierService{repos: repos, logger: logger}
}

type CreateSupplierRequest struct {
	Name        string `json:"name" binding:"required"`
	ContactName string `json:"contact_name"`
	Email       string `json:"email" binding:"omitempty,email"`
	Phone       string `json:"phone"`
	Address     string `json:"address"`
}

func (s *SupplierService) Create(ctx context.Context, req CreateSupplierRequest) (*entity.Supplier, error) {
	now := time.Now()
	sup := &entity.Supplier{
		ID:          uuid.New().String(),
		Name:        req.Name,
		ContactName: req.ContactName,
		Email:       req.Email,
		Phone:       req.Phone,
		Address:     req.Address,
		Active:      true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repos.Supplier.Create(ctx, sup); err != nil {
		return nil, fmt.Errorf("création du fournisseur: %w", err)
	}
	return sup, nil
}

func (s *SupplierService) List(ctx context.Context, page, pageSize int, search string, activeOnly bool) ([]entity.Supplier, int64, error) {
	return s.repos.Supplier.FindAll(ctx, page, pageSize, search, activeOnly)
}

func (s *SupplierService) Get(ctx context.Context, id string) (*entity.Supplier, error) {
	sup, err := s.repos.Supplier.FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNotFound
	}
	return sup, err
}

// PrincipalSupplierFor the principal supplier of an article, nil when none
func (s *SupplierService) PrincipalSupplierFor(ctx context.Context, articleID string) (*entity.Supplier, error) {
	links, err := s.repos.Supplier.FindLinksByArticle(ctx, articleID)
	if err != nil {
		return nil, err
	}
	var principal *entity.Supplier
	for i := range links {
		if links[i].IsPrincipal {
			principal = links[i].Supplier
		}
	}
	return principal, nil
}

// SuppliersFor active links of an article, principal first
func (s *SupplierService) SuppliersFor(ctx context.Context, articleID string) ([]entity.ArticleSupplier, error) {
	return s.repos.Supplier.FindLinksByArticle(ctx, articleID)
}

type AddLinkRequest struct {
	ArticleID         string           `json:"article_id" binding:"required"`
	SupplierReference string           `json:"supplier_reference"`
	Price             *decimal.Decimal `json:"price"`
	MinOrderQty       int              `json:"min_order_qty"`
	LeadTimeDays      int              `json:"lead_time_days"`
	IsPrincipal       bool             `json:"is_principal"`
}

// AddLink attaches an article to a supplier. A principal link demotes the
// article's previous principal in the same transaction.
func (s *SupplierService) AddLink(ctx context.Context, supplierID string, req AddLinkRequest) (*entity.ArticleSupplier, error) {
	if req.MinOrderQty < 0 || req.LeadTimeDays < 0 {
		return nil, ErrInvalidQuantity
	}
	if req.Price != nil && req.Price.IsNegative() {
		return nil, fmt.Errorf("prix négatif: %w", ErrInvalidQuantity)
	}

	now := time.Now()
	link := &entity.ArticleSupplier{
		ID:                uuid.New().String(),
		ArticleID:         req.ArticleID,
		SupplierID:        supplierID,
		SupplierReference: req.SupplierReference,
		Price:             req.Price,
		MinOrderQty:       req.MinOrderQty,
		LeadTimeDays:      req.LeadTimeDays,
		IsPrincipal:       req.IsPrincipal,
		Active:            true,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	err := s.repos.DB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		r := s.repos.WithTx(tx)
		if _, err := r.Article.FindByID(ctx, req.ArticleID); err != nil {
			return lookupErr("article", req.ArticleID, err)
		}
		if _, err := r.Supplier.FindByID(ctx, supplierID); err != nil {
			return lookupErr("fournisseur", supplierID, err)
		}
		if link.IsPrincipal {
			if err := r.Supplier.DemotePrincipals(ctx, req.ArticleID); err != nil {
				return err
			}
		}
		return r.Supplier.CreateLink(ctx, link)
	})
	if err != nil {
		return nil, err
	}
	return link, nil
}

// SetPrincipal makes the link the only principal of its article
func (s *SupplierService) SetPrincipal(ctx context.Context, linkID string) (*entity.ArticleSupplier, error) {
	err := s.repos.DB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		r := s.repos.WithTx(tx)
		link, err := r.Supplier.FindLinkByID(ctx, linkID)
		if err != nil {
			return lookupErr("lien fournisseur", linkID, err)
		}
		if err := r.Supplier.DemotePrincipals(ctx, link.ArticleID); err != nil {
			return err
		}
		return r.Supplier.SetLinkFlags(ctx, link.ID, true, true)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("Principal supplier changed", zap.String("link_id", linkID))
	return s.repos.Supplier.FindLinkByID(ctx, linkID)
}

// DeactivateLink removes the link from planning; it also loses principal status
func (s *SupplierService) DeactivateLink(ctx context.Context, linkID string) error {
	if _, err := s.repos.Supplier.FindLinkByID(ctx, linkID); err != nil {
		return lookupErr("lien fournisseur", linkID, err)
	}
	return s.repos.Supplier.SetLinkFlags(ctx, linkID, false, false)
}

func lookupErr(kind, id string, err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("%s %s: %w", kind, id, ErrNotFound)
	}
	return err
}
