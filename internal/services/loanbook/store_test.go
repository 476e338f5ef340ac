package loanbook

import (
	"testing"

	"github.com/lendaworks/paybridge/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func dryRunDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN: "host=localhost user=paybridge dbname=paybridge sslmode=disable",
	}), &gorm.Config{DryRun: true, DisableAutomaticPing: true})
	require.NoError(t, err)
	return db
}

func TestUnappliedGapScopeExcludesHealedRows(t *testing.T) {
	db := dryRunDB(t)

	var rows []models.PaymentNotification
	stmt := unappliedGapScope(db.Model(&models.PaymentNotification{})).
		Find(&rows).Statement

	sql := stmt.SQL.String()
	assert.Contains(t, sql, "loan_id IS NOT NULL AND loan_transaction_id IS NULL")
	// A gap row whose transaction was applied through a later audit row
	// (replay or duplicate delivery) must drop out of the count.
	assert.Contains(t, sql, "NOT EXISTS (SELECT 1 FROM loan_transactions lt")
	assert.Contains(t, sql, "lt.external_id = payment_notifications.transaction_id")
}

func TestUnmatchedGapScopeExcludesHealedRows(t *testing.T) {
	db := dryRunDB(t)

	var rows []models.PaymentNotification
	stmt := unmatchedGapScope(db.Model(&models.PaymentNotification{})).
		Find(&rows).Statement

	sql := stmt.SQL.String()
	assert.Contains(t, sql, "account_id IS NULL")
	assert.Contains(t, sql, "NOT EXISTS (SELECT 1 FROM loan_transactions lt")
}
