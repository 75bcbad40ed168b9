package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Purchase order status
const (
	POStatusDraft             = "draft"
	POStatusSent              = "sent"
	POStatusConfirmed         = "confirmed"
	POStatusPartiallyReceived = "partially_received"
	POStatusReceived          = "received"
	POStatusCancelled         = "cancelled"
)

// Purchase order source
const (
	POSourceReorder = "reorder"
	POSourceAlert   = "alert"
)

// poTransitions allowed status moves
var poTransitions = map[string][]string{
	POStatusDraft:             {POStatusSent, POStatusCancelled},
	POStatusSent:              {POStatusConfirmed, POStatusPartiallyReceived, POStatusReceived, POStatusCancelled},
	POStatusConfirmed:         {POStatusPartiallyReceived, POStatusReceived, POStatusCancelled},
	POStatusPartiallyReceived: {POStatusPartiallyReceived, POStatusReceived},
}

// CanTransitionPO reports whether a purchase order may move from one status to another
func CanTransitionPO(from, to string) bool {
	for _, s := range poTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// PurchaseOrder supplier order. Supplier details are a snapshot taken at creation.
type PurchaseOrder struct {
	ID              string          `json:"id" gorm:"primaryKey;size:36"`
	Number          string          `json:"number" gorm:"size:32;not null;uniqueIndex"`
	SupplierID      string          `json:"supplier_id" gorm:"size:36;not null;index"`
	SupplierName    string          `json:"supplier_name" gorm:"size:256"`
	SupplierEmail   string          `json:"supplier_email" gorm:"size:256"`
	SupplierPhone   string          `json:"supplier_phone" gorm:"size:32"`
	SupplierAddress string          `json:"supplier_address" gorm:"type:text"`
	Status          string          `json:"status" gorm:"size:20;not null;default:draft;index"`
	Source          string          `json:"source" gorm:"size:20"`
	TotalHT         decimal.Decimal `json:"total_ht" gorm:"type:decimal(12,2);not null;default:0"`
	TotalTTC        decimal.Decimal `json:"total_ttc" gorm:"type:decimal(12,2);not null;default:0"`
	VATRate         decimal.Decimal `json:"vat_rate" gorm:"type:decimal(5,4);not null;default:0"`
	Notes           string          `json:"notes" gorm:"type:text"`
	CreatedBy       string          `json:"created_by" gorm:"size:64"`
	SentAt          *time.Time      `json:"sent_at"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`

	Lines []PurchaseOrderLine `json:"lines,omitempty" gorm:"foreignKey:OrderID"`
}

func (PurchaseOrder) TableName() string {
	return "purchase_orders"
}

// PurchaseOrderLine ordered article
type PurchaseOrderLine struct {
	ID               string          `json:"id" gorm:"primaryKey;size:36"`
	OrderID          string          `json:"order_id" gorm:"size:36;not null;index"`
	ArticleID        string          `json:"article_id" gorm:"size:36;not null;index"`
	Reference        string          `json:"reference" gorm:"size:64"`
	Designation      string          `json:"designation" gorm:"size:256"`
	QuantityOrdered  int             `json:"quantity_ordered" gorm:"not null"`
	QuantityReceived int             `json:"quantity_received" gorm:"not null;default:0"`
	UnitPrice        decimal.Decimal `json:"unit_price" gorm:"type:decimal(12,2);not null"`
	LineTotal        decimal.Decimal `json:"line_total" gorm:"type:decimal(12,2);not null"`
	SortOrder        int             `json:"sort_order" gorm:"not null;default:0"`
}

func (PurchaseOrderLine) TableName() string {
	return "purchase_order_lines"
}

// Remaining quantity still expected from the supplier
func (l *PurchaseOrderLine) Remaining() int {
	if r := l.QuantityOrdered - l.QuantityReceived; r > 0 {
		return r
	}
	return 0
}
