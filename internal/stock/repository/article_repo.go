package repository

import (
	"context"
	"time"

	"github.com/pickt972/stock-wise-fleet-sub001/internal/stock/entity"
	"gorm.io/gorm"
)

// ArticleRepository article store
type ArticleRepository struct {
	db *gorm.DB
}

func NewArticleRepository(db *gorm.DB) *ArticleRepository {
	return &ArticleRepository{db: db}
}

// ArticleFilter list filters
type ArticleFilter struct {
	Search     string
	Category   string
	LocationID string
	LowStock   bool
}

// FindAll paginated article list
func (r *ArticleRepository) FindAll(ctx context.Context, page, pageSize int, f ArticleFilter) ([]entity.Article, int64, error) {
	var items []entity.Article
	var total int64

	query := r.filtered(ctx, f)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset, limit := paginate(page, pageSize)
	err := query.Order("reference ASC").Offset(offset).Limit(limit).Find(&items).Error
	return items, total, err
}

// FindInScope every article matching the filter, unpaginated
func (r *ArticleRepository) FindInScope(ctx context.Context, f ArticleFilter) ([]entity.Article, error) {
	var items []entity.Article
	err := r.filtered(ctx, f).Order("reference ASC").Find(&items).Error
	return items, err
}

func (r *ArticleRepository) filtered(ctx context.Context, f ArticleFilter) *gorm.DB {
	query := r.db.WithContext(ctx).Model(&entity.Article{})
	if f.Search != "" {
		like := "%" + f.Search + "%"
		query = query.Where("(reference LIKE ? OR designation LIKE ?)", like, like)
	}
	if f.Category != "" {
		query = query.Where("category = ?", f.Category)
	}
	if f.LocationID != "" {
		query = query.Where("location_id = ?", f.LocationID)
	}
	if f.LowStock {
		query = query.Where("(stock = 0 OR stock <= stock_min)")
	}
	return query
}

func (r *ArticleRepository) FindByID(ctx context.Context, id string) (*entity.Article, error) {
	var a entity.Article
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&a).Error; err != nil {
		return nil, notFound(err)
	}
	return &a, nil
}

func (r *ArticleRepository) FindByReference(ctx context.Context, ref string) (*entity.Article, error) {
	var a entity.Article
	if err := r.db.WithContext(ctx).Where("reference = ?", ref).First(&a).Error; err != nil {
		return nil, notFound(err)
	}
	return &a, nil
}

// FindByIDs keyed by id
func (r *ArticleRepository) FindByIDs(ctx context.Context, ids []string) (map[string]*entity.Article, error) {
	var items []entity.Article
	if len(ids) > 0 {
		if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&items).Error; err != nil {
			return nil, err
		}
	}
	out := make(map[string]*entity.Article, len(items))
	for i := range items {
		out[items[i].ID] = &items[i]
	}
	return out, nil
}

func (r *ArticleRepository) Create(ctx context.Context, a *entity.Article) error {
	return r.db.WithContext(ctx).Create(a).Error
}

// UpdateStock compare-and-swap on version. The struct is refreshed on success.
func (r *ArticleRepository) UpdateStock(ctx context.Context, a *entity.Article, newStock int) error {
	now := time.Now()
	res := r.db.WithContext(ctx).
		Model(&entity.Article{}).
		Where("id = ? AND version = ?", a.ID, a.Version).
		Updates(map[string]interface{}{
			"stock":      newStock,
			"version":    a.Version + 1,
			"updated_at": now,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrVersionConflict
	}
	a.Stock = newStock
	a.Version++
	a.UpdatedAt = now
	return nil
}

// Categories distinct non-empty categories
func (r *ArticleRepository) Categories(ctx context.Context) ([]string, error) {
	var cats []string
	err := r.db.WithContext(ctx).
		Model(&entity.Article{}).
		Where("category <> ''").
		Distinct("category").
		Order("category ASC").
		Pluck("category", &cats).Error
	return cats, err
}
