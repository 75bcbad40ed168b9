package repository

import (
	"errors"

	"gorm.io/gorm"
)

var (
	ErrNotFound = errors.New("record not found")
	// ErrVersionConflict a compare-and-swap update matched no row
	ErrVersionConflict = errors.New("version conflict")
)

// Repositories stock repositories
type Repositories struct {
	db        *gorm.DB
	Article   *ArticleRepository
	Supplier  *SupplierRepository
	PO        *PORepository
	Inventory *InventoryRepository
	Movement  *MovementRepository
}

// NewRepositories builds every repository on the same handle
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		db:        db,
		Article:   NewArticleRepository(db),
		Supplier:  NewSupplierRepository(db),
		PO:        NewPORepository(db),
		Inventory: NewInventoryRepository(db),
		Movement:  NewMovementRepository(db),
	}
}

// DB underlying handle
func (r *Repositories) DB() *gorm.DB {
	return r.db
}

// WithTx repositories bound to an open transaction
func (r *Repositories) WithTx(tx *gorm.DB) *Repositories {
	return NewRepositories(tx)
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

func paginate(page, pageSize int) (offset, limit int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	return (page - 1) * pageSize, pageSize
}
