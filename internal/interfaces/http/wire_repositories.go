package http

import (
	"gorm.io/gorm"

	"github.com/corates/billing/internal/domain/grant"
	"github.com/corates/billing/internal/domain/ledger"
	"github.com/corates/billing/internal/domain/subscription"
	"github.com/corates/billing/internal/infrastructure/repository"
	"github.com/corates/billing/internal/shared/db"
	"github.com/corates/billing/internal/shared/logger"
)

// repositories holds the three billing stores and the transaction runner.
type repositories struct {
	subscriptionRepo subscription.Repository
	grantRepo        grant.Repository
	ledgerRepo       ledger.Repository
	txRunner         db.TxRunner
}

func newRepositories(gormDB *gorm.DB, log logger.Interface) *repositories {
	return &repositories{
		subscriptionRepo: repository.NewSubscriptionRepository(gormDB, log),
		grantRepo:        repository.NewGrantRepository(gormDB, log),
		ledgerRepo:       repository.NewLedgerRepository(gormDB, log),
		txRunner:         db.NewTransactionManager(gormDB),
	}
}
