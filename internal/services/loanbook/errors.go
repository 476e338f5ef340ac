package loanbook

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lendaworks/paybridge/internal/services/reconcile"
	"gorm.io/gorm"
)

// SQLSTATE classes that indicate the store itself is in trouble rather than
// the statement being wrong: connection failures, admin shutdown, resource
// exhaustion.
const (
	pgUniqueViolation        = "23505"
	pgClassConnection        = "08"
	pgClassOperatorIntervene = "57"
	pgClassInsufficientRes   = "53"
)

// translateApplyError maps a ledger write failure onto the reconciliation
// taxonomy: duplicate key means the repayment was already applied,
// store-availability failures are transient, everything else passes through
// untouched and is treated as fatal upstream.
func translateApplyError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("%w: %v", reconcile.ErrDuplicateApplication, err)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case pgErr.Code == pgUniqueViolation:
			return fmt.Errorf("%w: %v", reconcile.ErrDuplicateApplication, err)
		case hasClass(pgErr.Code, pgClassConnection),
			hasClass(pgErr.Code, pgClassOperatorIntervene),
			hasClass(pgErr.Code, pgClassInsufficientRes):
			return fmt.Errorf("%w: %v", reconcile.ErrLedgerUnavailable, err)
		}
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %v", reconcile.ErrLedgerUnavailable, err)
	}
	return err
}

func hasClass(code, class string) bool {
	return len(code) >= 2 && code[:2] == class
}
