package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Article stocked part
type Article struct {
	ID            string          `json:"id" gorm:"primaryKey;size:36"`
	Reference     string          `json:"reference" gorm:"size:64;not null;uniqueIndex"`
	Designation   string          `json:"designation" gorm:"size:256;not null"`
	Brand         string          `json:"brand" gorm:"size:128"`
	Category      string          `json:"category" gorm:"size:64;index"`
	Stock         int             `json:"stock" gorm:"not null;default:0"`
	StockMin      int             `json:"stock_min" gorm:"not null;default:0"`
	StockMax      int             `json:"stock_max" gorm:"not null;default:0"`
	PurchasePrice decimal.Decimal `json:"purchase_price" gorm:"type:decimal(12,2);not null;default:0"`
	LocationID    *string         `json:"location_id" gorm:"size:36;index"`
	Version       int             `json:"version" gorm:"not null;default:1"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

func (Article) TableName() string {
	return "articles"
}

// NeedsReorder stock out or at/below the minimum threshold
func (a *Article) NeedsReorder() bool {
	return a.Stock == 0 || a.Stock <= a.StockMin
}

// IsStockout no unit left
func (a *Article) IsStockout() bool {
	return a.Stock <= 0
}
