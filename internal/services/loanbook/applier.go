package loanbook

import (
	"context"

	"github.com/lendaworks/paybridge/internal/models"
	"github.com/lendaworks/paybridge/internal/services/reconcile"
	"gorm.io/gorm"
)

// Applier posts repayments to the loan ledger. The unique index on the
// ledger's external id column is the idempotency guarantee: re-applying a
// provider transaction id fails with a unique violation, which surfaces as
// reconcile.ErrDuplicateApplication.
type Applier struct {
	db *gorm.DB
}

// NewApplier creates a ledger applier backed by the loan book database.
func NewApplier(db *gorm.DB) *Applier {
	return &Applier{db: db}
}

// Apply writes one ledger transaction and returns its id.
func (a *Applier) Apply(ctx context.Context, req reconcile.RepaymentRequest) (uint, error) {
	txn := models.LoanTransaction{
		LoanID:          req.LoanID,
		Type:            req.Type,
		Amount:          req.Amount,
		ExternalID:      req.ExternalID,
		PayerRef:        req.PayerRef,
		Note:            req.Note,
		TransactionDate: req.TransactionDate,
		IsRecovery:      req.IsRecovery,
	}
	if err := a.db.WithContext(ctx).Create(&txn).Error; err != nil {
		return 0, translateApplyError(err)
	}
	return txn.ID, nil
}
