package entity

import (
	"time"
)

// Inventory session status, strictly forward
const (
	SessionStatusInProgress = "in_progress"
	SessionStatusClosed     = "closed"
	SessionStatusValidated  = "validated"
)

// InventorySession physical count campaign
type InventorySession struct {
	ID          string     `json:"id" gorm:"primaryKey;size:36"`
	CountDate   time.Time  `json:"count_date"`
	Status      string     `json:"status" gorm:"size:20;not null;default:in_progress;index"`
	Category    string     `json:"category" gorm:"size:64"`
	LocationID  *string    `json:"location_id" gorm:"size:36"`
	Notes       string     `json:"notes" gorm:"type:text"`
	CreatedBy   string     `json:"created_by" gorm:"size:64"`
	ClosedAt    *time.Time `json:"closed_at"`
	ValidatedAt *time.Time `json:"validated_at"`
	ValidatedBy string     `json:"validated_by" gorm:"size:64"`
	ArchiveKey  string     `json:"archive_key" gorm:"size:512"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`

	Lines []InventoryLine `json:"lines,omitempty" gorm:"foreignKey:SessionID"`
}

func (InventorySession) TableName() string {
	return "inventory_sessions"
}

// InventoryLine one article counted within a session.
// Variance is always Counted - Theoretical.
type InventoryLine struct {
	ID          string     `json:"id" gorm:"primaryKey;size:36"`
	SessionID   string     `json:"session_id" gorm:"size:36;not null;index"`
	ArticleID   string     `json:"article_id" gorm:"size:36;not null;index"`
	Reference   string     `json:"reference" gorm:"size:64"`
	Designation string     `json:"designation" gorm:"size:256"`
	Theoretical int        `json:"theoretical" gorm:"not null"`
	Counted     *int       `json:"counted"`
	Variance    *int       `json:"variance"`
	CountedBy   string     `json:"counted_by" gorm:"size:64"`
	CountedAt   *time.Time `json:"counted_at"`
}

func (InventoryLine) TableName() string {
	return "inventory_lines"
}

// HasVariance counted and different from the theoretical quantity
func (l *InventoryLine) HasVariance() bool {
	return l.Variance != nil && *l.Variance != 0
}
