package loanbook

import (
	"context"
	"errors"
	"fmt"

	"github.com/lendaworks/paybridge/internal/models"
	"github.com/lendaworks/paybridge/internal/services/reconcile"
	"gorm.io/gorm"
)

// Resolver answers the two lookup questions the reconciliation engine asks
// of the loan book: which account does a billing reference belong to, and
// which open loan does that account owe against.
type Resolver struct {
	db *gorm.DB
}

// NewResolver creates a resolver backed by the loan book database.
func NewResolver(db *gorm.DB) *Resolver {
	return &Resolver{db: db}
}

// FindAccountIDByExternalReference maps a billing reference to an active
// account id.
func (r *Resolver) FindAccountIDByExternalReference(ctx context.Context, ref string) (uint, error) {
	var account models.Account
	err := r.db.WithContext(ctx).
		Select("id").
		Where("external_ref = ? AND status = ?", ref, models.AccountStatusActive).
		First(&account).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, fmt.Errorf("%w: %q", reconcile.ErrAccountNotFound, ref)
	}
	if err != nil {
		return 0, fmt.Errorf("look up account by reference %q: %w", ref, err)
	}
	return account.ID, nil
}

// FindOpenLoanIDForAccount returns the account's single active loan. The
// partial unique index on loans guarantees there is at most one.
func (r *Resolver) FindOpenLoanIDForAccount(ctx context.Context, accountID uint) (uint, error) {
	var loan models.Loan
	err := r.db.WithContext(ctx).
		Select("id").
		Where("account_id = ? AND status = ?", accountID, models.LoanStatusActive).
		First(&loan).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, fmt.Errorf("%w: account %d", reconcile.ErrNoOpenLoan, accountID)
	}
	if err != nil {
		return 0, fmt.Errorf("look up open loan for account %d: %w", accountID, err)
	}
	return loan.ID, nil
}
