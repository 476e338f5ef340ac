package loanbook

import (
	"context"
	"errors"
	"fmt"

	"github.com/lendaworks/paybridge/internal/models"
	"gorm.io/gorm"
)

// ErrNotificationNotFound is returned when a notification reference does
// not exist, e.g. a replay job racing a persist that never happened.
var ErrNotificationNotFound = errors.New("payment notification not found")

// NotificationStore persists payment notifications. The table is
// append-only: one insert per inbound call and no updates, so every row is
// permanent evidence of what the provider sent and how far resolution got.
type NotificationStore struct {
	db *gorm.DB
}

// NewNotificationStore creates a store backed by the database.
func NewNotificationStore(db *gorm.DB) *NotificationStore {
	return &NotificationStore{db: db}
}

// Save inserts the record. Failures propagate: a notification that cannot
// be recorded must not be acknowledged.
func (s *NotificationStore) Save(ctx context.Context, n *models.PaymentNotification) error {
	if err := s.db.WithContext(ctx).Create(n).Error; err != nil {
		return fmt.Errorf("insert payment notification: %w", err)
	}
	return nil
}

// FindByReference loads a notification by its internal reference. Used by
// the replay worker to rebuild the original confirmation.
func (s *NotificationStore) FindByReference(ctx context.Context, ref string) (*models.PaymentNotification, error) {
	var n models.PaymentNotification
	err := s.db.WithContext(ctx).Where("reference = ?", ref).First(&n).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNotificationNotFound, ref)
	}
	if err != nil {
		return nil, fmt.Errorf("load payment notification %s: %w", ref, err)
	}
	return &n, nil
}

// notYetAppliedClause filters out rows whose provider transaction id
// already reached the ledger through another audit row. Replays and
// duplicate deliveries record a new row next to the original, so a healed
// gap would otherwise keep counting forever.
const notYetAppliedClause = "NOT EXISTS (SELECT 1 FROM loan_transactions lt" +
	" WHERE lt.external_id = payment_notifications.transaction_id)"

func unmatchedGapScope(db *gorm.DB) *gorm.DB {
	return db.Where("account_id IS NULL").Where(notYetAppliedClause)
}

func unappliedGapScope(db *gorm.DB) *gorm.DB {
	return db.Where("loan_id IS NOT NULL AND loan_transaction_id IS NULL").
		Where(notYetAppliedClause)
}

// CountGaps reports how many persisted notifications still represent
// missing money: unmatched rows never resolved to an account, and unapplied
// rows that resolved to a loan but never produced a ledger transaction.
// Rows whose transaction was applied through a later audit row are not
// counted. Feeds the scheduled gap reporter.
func (s *NotificationStore) CountGaps(ctx context.Context) (unmatched, unapplied int64, err error) {
	if err = s.db.WithContext(ctx).Model(&models.PaymentNotification{}).
		Scopes(unmatchedGapScope).Count(&unmatched).Error; err != nil {
		return 0, 0, fmt.Errorf("count unmatched notifications: %w", err)
	}
	if err = s.db.WithContext(ctx).Model(&models.PaymentNotification{}).
		Scopes(unappliedGapScope).Count(&unapplied).Error; err != nil {
		return 0, 0, fmt.Errorf("count unapplied notifications: %w", err)
	}
	return unmatched, unapplied, nil
}
