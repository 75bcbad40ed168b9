package repository

import (
	"context"

	"github.com/pickt972/stock-wise-fleet-sub001/internal/stock/entity"
	"gorm.io/gorm"
)

// SupplierRepository suppliers and article supply links
type SupplierRepository struct {
	db *gorm.DB
}

func NewSupplierRepository(db *gorm.DB) *SupplierRepository {
	return &SupplierRepository{db: db}
}

// FindAll paginated supplier list
func (r *SupplierRepository) FindAll(ctx context.Context, page, pageSize int, search string, activeOnly bool) ([]entity.Supplier, int64, error) {
	var items []entity.Supplier
	var total int64

	query := r.db.WithContext(ctx).Model(&entity.Supplier{})
	if search != "" {
		query = query.Where("name LIKE ?", "%"+search+"%")
	}
	if activeOnly {
		query = query.Where("active = ?", true)
	}
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset, limit := paginate(page, pageSize)
	err := query.Order("name ASC").Offset(offset).Limit(limit).Find(&items).Error
	return items, total, err
}

func (r *SupplierRepository) FindByID(ctx context.Context, id string) (*entity.Supplier, error) {
	var s entity.Supplier
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&s).Error; err != nil {
		return nil, notFound(err)
	}
	return &s, nil
}

func (r *SupplierRepository) Create(ctx context.Context, s *entity.Supplier) error {
	return r.db.WithContext(ctx).Create(s).Error
}

func (r *SupplierRepository) Update(ctx context.Context, s *entity.Supplier) error {
	return r.db.WithContext(ctx).Save(s).Error
}

// === links ===

// activeLinks active links whose supplier is active, in creation order
func (r *SupplierRepository) activeLinks(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Model(&entity.ArticleSupplier{}).
		Select("article_suppliers.*").
		Joins("JOIN suppliers ON suppliers.id = article_suppliers.supplier_id").
		Where("article_suppliers.active = ? AND suppliers.active = ?", true, true).
		Preload("Supplier").
		Preload("Article")
}

// FindLinksByArticle principal first, then creation order
func (r *SupplierRepository) FindLinksByArticle(ctx context.Context, articleID string) ([]entity.ArticleSupplier, error) {
	var links []entity.ArticleSupplier
	err := r.activeLinks(ctx).
		Where("article_suppliers.article_id = ?", articleID).
		Order("article_suppliers.is_principal DESC").
		Order("article_suppliers.created_at ASC").
		Order("article_suppliers.id ASC").
		Find(&links).Error
	return links, err
}

// FindReorderCandidates links of articles out of stock or at/below minimum,
// in creation order.
func (r *SupplierRepository) FindReorderCandidates(ctx context.Context) ([]entity.ArticleSupplier, error) {
	var links []entity.ArticleSupplier
	err := r.activeLinks(ctx).
		Joins("JOIN articles ON articles.id = article_suppliers.article_id").
		Where("(articles.stock = 0 OR articles.stock <= articles.stock_min)").
		Order("article_suppliers.created_at ASC").
		Order("article_suppliers.id ASC").
		Find(&links).Error
	return links, err
}

func (r *SupplierRepository) FindLinkByID(ctx context.Context, id string) (*entity.ArticleSupplier, error) {
	var l entity.ArticleSupplier
	err := r.db.WithContext(ctx).
		Preload("Supplier").
		Preload("Article").
		Where("id = ?", id).
		First(&l).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &l, nil
}

func (r *SupplierRepository) CreateLink(ctx context.Context, l *entity.ArticleSupplier) error {
	return r.db.WithContext(ctx).Omit("Article", "Supplier").Create(l).Error
}

// SetLinkFlags updates principal/active flags of one link
func (r *SupplierRepository) SetLinkFlags(ctx context.Context, id string, principal, active bool) error {
	return r.db.WithContext(ctx).
		Model(&entity.ArticleSupplier{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"is_principal": principal, "active": active}).Error
}

// DemotePrincipals clears the principal flag on every link of the article
func (r *SupplierRepository) DemotePrincipals(ctx context.Context, articleID string) error {
	return r.db.WithContext(ctx).
		Model(&entity.ArticleSupplier{}).
		Where("article_id = ? AND is_principal = ?", articleID, true).
		Update("is_principal", false).Error
}
