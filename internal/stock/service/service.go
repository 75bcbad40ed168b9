package service

import (
	"github.com/pickt972/stock-wise-fleet-sub001/internal/shared/lock"
	"github.com/pickt972/stock-wise-fleet-sub001/internal/shared/mail"
	"github.com/pickt972/stock-wise-fleet-sub001/internal/shared/storage"
	"github.com/pickt972/stock-wise-fleet-sub001/internal/stock/repository"
	"github.com/pickt972/stock-wise-fleet-sub001/internal/stock/sse"
	"go.uber.org/zap"
)

// Services stock services
type Services struct {
	Article        *ArticleService
	Supplier       *SupplierService
	Ledger         *LedgerService
	Reorder        *ReorderService
	Reconciliation *ReconciliationService
	Order          *OrderService
	Report         *ReportService
}

// Deps external collaborators. Mailer and Store are optional.
type Deps struct {
	Logger      *zap.Logger
	Locker      lock.Locker
	Events      sse.Publisher
	Mailer      mail.Sender
	Store       storage.ObjectStore
	Reorder     ReorderSettings
	DriftPolicy string
	AutoArchive bool
}

// NewServices wires every service on the given repositories
func NewServices(repos *repository.Repositories, deps Deps) *Services {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Locker == nil {
		deps.Locker = lock.NewLocalLocker()
	}
	if deps.Events == nil {
		deps.Events = sse.Nop{}
	}

	ledger := NewLedgerService(repos, deps.Events, deps.Logger)
	reorder := NewReorderService(repos, deps.Reorder, deps.Locker, deps.Events, deps.Logger)
	report := NewReportService(repos, reorder, deps.Store, deps.Logger)
	reconciliation := NewReconciliationService(repos, ledger, deps.Locker, deps.Events, ReconciliationOptions{
		DriftPolicy: deps.DriftPolicy,
		AutoArchive: deps.AutoArchive,
		Archiver:    report,
	}, deps.Logger)

	return &Services{
		Article:        NewArticleService(repos, ledger, deps.Logger),
		Supplier:       NewSupplierService(repos, deps.Logger),
		Ledger:         ledger,
		Reorder:        reorder,
		Reconciliation: reconciliation,
		Order:          NewOrderService(repos, ledger, deps.Mailer, deps.Events, deps.Logger),
		Report:         report,
	}
}
