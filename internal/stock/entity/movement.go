package entity

import (
	"time"
)

// Movement direction
const (
	DirectionIn  = "in"
	DirectionOut = "out"
)

// Movement reasons written by the service itself
const (
	ReasonInventoryCorrection = "inventory correction"
	ReasonPurchaseReception   = "purchase reception"
	ReasonInitialStock        = "initial stock"
	ReasonReversal            = "reversal"
)

// Movement reference types
const (
	RefTypeManual           = "manual"
	RefTypePurchaseOrder    = "purchase_order"
	RefTypeInventorySession = "inventory_session"
	RefTypeMovement         = "movement"
)

// StockMovement append-only ledger entry, never updated nor deleted
type StockMovement struct {
	ID            string    `json:"id" gorm:"primaryKey;size:36"`
	ArticleID     string    `json:"article_id" gorm:"size:36;not null;index"`
	Direction     string    `json:"direction" gorm:"size:8;not null"`
	Quantity      int       `json:"quantity" gorm:"not null"`
	Reason        string    `json:"reason" gorm:"size:128;not null"`
	ActorID       string    `json:"actor_id" gorm:"size:64"`
	ReferenceType string    `json:"reference_type" gorm:"size:32"`
	ReferenceID   string    `json:"reference_id" gorm:"size:64;index"`
	StockBefore   int       `json:"stock_before"`
	StockAfter    int       `json:"stock_after"`
	ReversalOf    *string   `json:"reversal_of" gorm:"size:36;index"`
	CreatedAt     time.Time `json:"created_at" gorm:"index"`
}

func (StockMovement) TableName() string {
	return "stock_movements"
}

// Signed quantity, negative for exits
func (m *StockMovement) Signed() int {
	if m.Direction == DirectionOut {
		return -m.Quantity
	}
	return m.Quantity
}
