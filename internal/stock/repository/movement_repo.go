package repository

import (
	"context"

	"github.com/pickt972/stock-wise-fleet-sub001/internal/stock/entity"
	"gorm.io/gorm"
)

// MovementRepository append-only stock ledger
type MovementRepository struct {
	db *gorm.DB
}

func NewMovementRepository(db *gorm.DB) *MovementRepository {
	return &MovementRepository{db: db}
}

// MovementFilter list filters
type MovementFilter struct {
	ArticleID     string
	Direction     string
	ReferenceType string
	ReferenceID   string
}

func (r *MovementRepository) Create(ctx context.Context, m *entity.StockMovement) error {
	return r.db.WithContext(ctx).Create(m).Error
}

func (r *MovementRepository) FindByID(ctx context.Context, id string) (*entity.StockMovement, error) {
	var m entity.StockMovement
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&m).Error; err != nil {
		return nil, notFound(err)
	}
	return &m, nil
}

// FindAll newest first
func (r *MovementRepository) FindAll(ctx context.Context, page, pageSize int, f MovementFilter) ([]entity.StockMovement, int64, error) {
	var items []entity.StockMovement
	var total int64

	query := r.db.WithContext(ctx).Model(&entity.StockMovement{})
	if f.ArticleID != "" {
		query = query.Where("article_id = ?", f.ArticleID)
	}
	if f.Direction != "" {
		query = query.Where("direction = ?", f.Direction)
	}
	if f.ReferenceType != "" {
		query = query.Where("reference_type = ?", f.ReferenceType)
	}
	if f.ReferenceID != "" {
		query = query.Where("reference_id = ?", f.ReferenceID)
	}
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset, limit := paginate(page, pageSize)
	err := query.Order("created_at DESC").Order("id DESC").Offset(offset).Limit(limit).Find(&items).Error
	return items, total, err
}

// ExistsReversalOf whether a compensating movement already exists
func (r *MovementRepository) ExistsReversalOf(ctx context.Context, id string) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&entity.StockMovement{}).
		Where("reversal_of = ?", id).
		Count(&n).Error
	return n > 0, err
}

// SignedSum entries minus exits for an article
func (r *MovementRepository) SignedSum(ctx context.Context, articleID string) (int, error) {
	var sum int
	err := r.db.WithContext(ctx).
		Model(&entity.StockMovement{}).
		Select("COALESCE(SUM(CASE WHEN direction = 'out' THEN -quantity ELSE quantity END), 0)").
		Where("article_id = ?", articleID).
		Scan(&sum).Error
	return sum, err
}
