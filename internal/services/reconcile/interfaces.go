package reconcile

import (
	"context"
	"time"

	"github.com/lendaworks/paybridge/internal/models"
	"github.com/shopspring/decimal"
)

// AccountResolver maps a payer-supplied billing reference to an internal
// account id. Returns ErrAccountNotFound when no account matches.
type AccountResolver interface {
	FindAccountIDByExternalReference(ctx context.Context, ref string) (uint, error)
}

// ObligationResolver finds the single open loan for an account. Returns
// ErrNoOpenLoan when the account has nothing to apply against. The backing
// store guarantees at most one active loan per account.
type ObligationResolver interface {
	FindOpenLoanIDForAccount(ctx context.Context, accountID uint) (uint, error)
}

// RepaymentRequest carries everything the ledger needs to apply one payment
// against a loan. ExternalID is the provider transaction id and doubles as
// the idempotency key: applying the same ExternalID twice must fail with
// ErrDuplicateApplication.
type RepaymentRequest struct {
	LoanID          uint
	Type            string
	Amount          decimal.Decimal
	ExternalID      string
	PayerRef        string
	Note            string
	TransactionDate time.Time
	IsRecovery      bool
}

// TransactionApplier applies a repayment and returns the durable ledger
// transaction id. Failure kinds the engine recovers from locally are
// ErrDuplicateApplication and ErrLedgerUnavailable; anything else is fatal.
type TransactionApplier interface {
	Apply(ctx context.Context, req RepaymentRequest) (uint, error)
}

// NotificationStore persists the audit record. Single insert, no update.
// A Save failure is fatal to the call: losing the audit record is not
// acceptable, so the provider must be told to retry.
type NotificationStore interface {
	Save(ctx context.Context, n *models.PaymentNotification) error
}

// GapReporter is notified when a payment was recorded but could not be
// applied because the ledger was unavailable. Implementations alert and
// schedule a replay; they must not fail the reconciliation call.
type GapReporter interface {
	ReportGap(ctx context.Context, notificationRef, reason string)
}
