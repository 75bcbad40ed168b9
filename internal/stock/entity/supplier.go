package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Supplier vendor of articles
type Supplier struct {
	ID          string    `json:"id" gorm:"primaryKey;size:36"`
	Name        string    `json:"name" gorm:"size:256;not null"`
	ContactName string    `json:"contact_name" gorm:"size:128"`
	Email       string    `json:"email" gorm:"size:256"`
	Phone       string    `json:"phone" gorm:"size:32"`
	Address     string    `json:"address" gorm:"type:text"`
	Active      bool      `json:"active" gorm:"not null"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (Supplier) TableName() string {
	return "suppliers"
}

// ArticleSupplier supply link between an article and a supplier.
// At most one active link per article may be principal.
type ArticleSupplier struct {
	ID                string           `json:"id" gorm:"primaryKey;size:36"`
	ArticleID         string           `json:"article_id" gorm:"size:36;not null;index"`
	SupplierID        string           `json:"supplier_id" gorm:"size:36;not null;index"`
	SupplierReference string           `json:"supplier_reference" gorm:"size:64"`
	Price             *decimal.Decimal `json:"price" gorm:"type:decimal(12,2)"`
	MinOrderQty       int              `json:"min_order_qty" gorm:"not null;default:0"`
	LeadTimeDays      int              `json:"lead_time_days" gorm:"not null;default:0"`
	IsPrincipal       bool             `json:"is_principal" gorm:"not null"`
	Active            bool             `json:"active" gorm:"not null"`
	CreatedAt         time.Time        `json:"created_at"`
	UpdatedAt         time.Time        `json:"updated_at"`

	Article  *Article  `json:"article,omitempty" gorm:"foreignKey:ArticleID"`
	Supplier *Supplier `json:"supplier,omitempty" gorm:"foreignKey:SupplierID"`
}

func (ArticleSupplier) TableName() string {
	return "article_suppliers"
}

// EffectivePrice link price, falling back to the article purchase price
func (l *ArticleSupplier) EffectivePrice() decimal.Decimal {
	if l.Price != nil {
		return *l.Price
	}
	if l.Article != nil {
		return l.Article.PurchasePrice
	}
	return decimal.Zero
}
