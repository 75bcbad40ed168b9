package entity

import "gorm.io/gorm"

// AutoMigrate creates or updates all stock tables
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&Article{},
		&Supplier{},
		&ArticleSupplier{},
		&PurchaseOrder{},
		&PurchaseOrderLine{},
		&InventorySession{},
		&InventoryLine{},
		&StockMovement{},
	); err != nil {
		return err
	}

	// one active principal supplier per article
	return db.Exec(`CREATE UNIQUE INDEX IF NOT EXISTS uniq_article_principal_supplier
		ON article_suppliers (article_id) WHERE is_principal AND active`).Error
}
