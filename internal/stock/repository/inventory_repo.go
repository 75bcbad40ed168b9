package repository

import (
	"context"
	"time"

	"github.com/pickt972/stock-wise-fleet-sub001/internal/stock/entity"
	"gorm.io/gorm"
)

// InventoryRepository inventory sessions and count lines
type InventoryRepository struct {
	db *gorm.DB
}

func NewInventoryRepository(db *gorm.DB) *InventoryRepository {
	return &InventoryRepository{db: db}
}

func (r *InventoryRepository) FindAll(ctx context.Context, page, pageSize int, status string) ([]entity.InventorySession, int64, error) {
	var items []entity.InventorySession
	var total int64

	query := r.db.WithContext(ctx).Model(&entity.InventorySession{})
	if status != "" {
		query = query.Where("status = ?", status)
	}
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset, limit := paginate(page, pageSize)
	err := query.Order("created_at DESC").Offset(offset).Limit(limit).Find(&items).Error
	return items, total, err
}

// FindByID session with lines ordered by reference
func (r *InventoryRepository) FindByID(ctx context.Context, id string) (*entity.InventorySession, error) {
	var s entity.InventorySession
	err := r.db.WithContext(ctx).
		Preload("Lines", func(db *gorm.DB) *gorm.DB {
			return db.Order("reference ASC")
		}).
		Where("id = ?", id).
		First(&s).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &s, nil
}

// Create inserts the session and its seeded lines
func (r *InventoryRepository) Create(ctx context.Context, s *entity.InventorySession) error {
	return r.db.WithContext(ctx).Create(s).Error
}

func (r *InventoryRepository) FindLineByID(ctx context.Context, id string) (*entity.InventoryLine, error) {
	var l entity.InventoryLine
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&l).Error; err != nil {
		return nil, notFound(err)
	}
	return &l, nil
}

// UpdateCount stores counted quantity and variance of a line
func (r *InventoryRepository) UpdateCount(ctx context.Context, l *entity.InventoryLine) error {
	return r.db.WithContext(ctx).
		Model(&entity.InventoryLine{}).
		Where("id = ?", l.ID).
		Updates(map[string]interface{}{
			"counted":    l.Counted,
			"variance":   l.Variance,
			"counted_by": l.CountedBy,
			"counted_at": l.CountedAt,
		}).Error
}

// CountUncounted lines still waiting for a count
func (r *InventoryRepository) CountUncounted(ctx context.Context, sessionID string) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&entity.InventoryLine{}).
		Where("session_id = ? AND counted IS NULL", sessionID).
		Count(&n).Error
	return n, err
}

// CountVariances counted lines with a non-zero variance
func (r *InventoryRepository) CountVariances(ctx context.Context, sessionID string) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&entity.InventoryLine{}).
		Where("session_id = ? AND variance IS NOT NULL AND variance <> 0", sessionID).
		Count(&n).Error
	return n, err
}

// Transition moves the session forward only from the expected status
func (r *InventoryRepository) Transition(ctx context.Context, id, from, to string, extra map[string]interface{}) error {
	fields := map[string]interface{}{"status": to, "updated_at": time.Now()}
	for k, v := range extra {
		fields[k] = v
	}
	res := r.db.WithContext(ctx).
		Model(&entity.InventorySession{}).
		Where("id = ? AND status = ?", id, from).
		Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrVersionConflict
	}
	return nil
}

// SetArchiveKey records where the count report was archived
func (r *InventoryRepository) SetArchiveKey(ctx context.Context, id, key string) error {
	return r.db.WithContext(ctx).
		Model(&entity.InventorySession{}).
		Where("id = ?", id).
		Update("archive_key", key).Error
}
