package repository

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/pickt972/stock-wise-fleet-sub001/internal/stock/entity"
	"gorm.io/gorm"
)

// PORepository purchase orders
type PORepository struct {
	db *gorm.DB
}

func NewPORepository(db *gorm.DB) *PORepository {
	return &PORepository{db: db}
}

// FindAll paginated purchase orders, newest first
func (r *PORepository) FindAll(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.PurchaseOrder, int64, error) {
	var items []entity.PurchaseOrder
	var total int64

	query := r.db.WithContext(ctx).Model(&entity.PurchaseOrder{})
	if supplierID := filters["supplier_id"]; supplierID != "" {
		query = query.Where("supplier_id = ?", supplierID)
	}
	if status := filters["status"]; status != "" {
		query = query.Where("status = ?", status)
	}
	if search := filters["search"]; search != "" {
		query = query.Where("(number LIKE ? OR supplier_name LIKE ?)", "%"+search+"%", "%"+search+"%")
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset, limit := paginate(page, pageSize)
	err := query.
		Preload("Lines", func(db *gorm.DB) *gorm.DB {
			return db.Order("sort_order ASC")
		}).
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&items).Error
	return items, total, err
}

// FindByID order with its lines
func (r *PORepository) FindByID(ctx context.Context, id string) (*entity.PurchaseOrder, error) {
	var po entity.PurchaseOrder
	err := r.db.WithContext(ctx).
		Preload("Lines", func(db *gorm.DB) *gorm.DB {
			return db.Order("sort_order ASC")
		}).
		Where("id = ?", id).
		First(&po).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &po, nil
}

// Create inserts the order and its lines. An empty number is replaced by the next one.
func (r *PORepository) Create(ctx context.Context, po *entity.PurchaseOrder) error {
	if po.Number == "" {
		number, err := r.GenerateNumber(ctx)
		if err != nil {
			return fmt.Errorf("generate number: %w", err)
		}
		po.Number = number
	}
	return r.db.WithContext(ctx).Create(po).Error
}

// UpdateStatus moves the order only if it is still in the expected status
func (r *PORepository) UpdateStatus(ctx context.Context, id, from, to string, extra map[string]interface{}) error {
	fields := map[string]interface{}{"status": to, "updated_at": time.Now()}
	for k, v := range extra {
		fields[k] = v
	}
	res := r.db.WithContext(ctx).
		Model(&entity.PurchaseOrder{}).
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

// UpdateLineReceived sets the received quantity of a line
func (r *PORepository) UpdateLineReceived(ctx context.Context, lineID string, received int) error {
	return r.db.WithContext(ctx).
		Model(&entity.PurchaseOrderLine{}).
		Where("id = ?", lineID).
		Update("quantity_received", received).Error
}

// GenerateNumber BC-{year}-{at least 4 digits}. Longer numbers sort after
// shorter ones so the sequence keeps growing past 9999.
func (r *PORepository) GenerateNumber(ctx context.Context) (string, error) {
	year := time.Now().Format("2006")
	prefix := fmt.Sprintf("BC-%s-", year)

	var last []string
	err := r.db.WithContext(ctx).
		Model(&entity.PurchaseOrder{}).
		Where("number LIKE ?", prefix+"%").
		Order("LENGTH(number) DESC, number DESC").
		Limit(1).
		Pluck("number", &last).Error
	if err != nil {
		return "", err
	}

	var seq int
	if len(last) > 0 {
		if seq, err = strconv.Atoi(strings.TrimPrefix(last[0], prefix)); err != nil {
			return "", fmt.Errorf("unexpected order number %q: %w", last[0], err)
		}
	}
	seq++
	return fmt.Sprintf("%s%04d", prefix, seq), nil
}
