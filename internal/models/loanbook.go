package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// AccountStatus represents the lifecycle state of a borrower account
type AccountStatus string

const (
	AccountStatusActive AccountStatus = "active"
	AccountStatusClosed AccountStatus = "closed"
)

// LoanStatus represents the lifecycle state of a loan
type LoanStatus string

const (
	LoanStatusActive LoanStatus = "active"
	LoanStatusClosed LoanStatus = "closed"
)

// Account is a borrower that payments can be correlated to. ExternalRef is
// the billing reference payers quote when sending money.
type Account struct {
	ID          uint          `gorm:"primaryKey" json:"id"`
	ExternalRef string        `gorm:"type:varchar(12);not null;uniqueIndex" json:"external_ref"`
	FirstName   string        `gorm:"type:varchar(50)" json:"first_name"`
	LastName    string        `gorm:"type:varchar(50)" json:"last_name"`
	MSISDN      string        `gorm:"type:varchar(20)" json:"msisdn"`
	Status      AccountStatus `gorm:"type:varchar(20);not null;default:'active'" json:"status"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// Loan is an open obligation an account owes against. The loan book keeps
// at most one active loan per account (enforced by a partial unique index).
type Loan struct {
	ID        uint            `gorm:"primaryKey" json:"id"`
	AccountID uint            `gorm:"not null;index" json:"account_id"`
	Principal decimal.Decimal `gorm:"type:decimal(19,6);not null" json:"principal"`
	Currency  string          `gorm:"type:varchar(3);not null;default:'KES'" json:"currency"`
	Status    LoanStatus      `gorm:"type:varchar(20);not null;default:'active'" json:"status"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// LoanTransaction is the durable ledger entry created when a payment is
// applied against a loan. ExternalID carries the provider transaction id;
// its unique index is what makes application idempotent across provider
// retries.
type LoanTransaction struct {
	ID              uint            `gorm:"primaryKey" json:"id"`
	LoanID          uint            `gorm:"not null;index" json:"loan_id"`
	Type            string          `gorm:"type:varchar(20);not null" json:"type"`
	Amount          decimal.Decimal `gorm:"type:decimal(19,6);not null" json:"amount"`
	ExternalID      string          `gorm:"type:varchar(40);not null;uniqueIndex" json:"external_id"`
	PayerRef        string          `gorm:"type:varchar(20)" json:"payer_ref"`
	Note            string          `gorm:"type:text" json:"note"`
	TransactionDate time.Time       `gorm:"not null" json:"transaction_date"`
	IsRecovery      bool            `gorm:"not null;default:false" json:"is_recovery"`
	CreatedAt       time.Time       `json:"created_at"`
}
