package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentNotification is the durable record of one inbound C2B payment
// confirmation. A row is written exactly once per inbound call, whether or
// not the payment could be reconciled, and is never updated afterwards. The
// nullable correlation columns mark how far resolution got: a row with a
// nil LoanTransactionID is a reconciliation gap.
type PaymentNotification struct {
	ID        uint   `gorm:"primaryKey" json:"id"`
	Reference string `gorm:"type:varchar(64);not null;uniqueIndex" json:"reference"`

	// Correlation, filled in as resolution steps succeed.
	AccountID         *uint `gorm:"index" json:"account_id,omitempty"`
	LoanID            *uint `gorm:"index" json:"loan_id,omitempty"`
	LoanTransactionID *uint `json:"loan_transaction_id,omitempty"`

	// Provider-reported facts, stored verbatim apart from decimal rounding.
	TransactionType   string              `gorm:"type:varchar(40);not null" json:"transaction_type"`
	TransactionID     string              `gorm:"type:varchar(40);not null;index" json:"transaction_id"`
	TransactionTime   time.Time           `gorm:"not null" json:"transaction_time"`
	Amount            decimal.Decimal     `gorm:"type:decimal(19,6);not null" json:"amount"`
	BusinessShortCode string              `gorm:"type:varchar(12);not null" json:"business_short_code"`
	BillRefNumber     string              `gorm:"type:varchar(12);not null;index" json:"bill_ref_number"`
	InvoiceNumber     string              `gorm:"type:varchar(100)" json:"invoice_number,omitempty"`
	OrgAccountBalance decimal.NullDecimal `gorm:"type:decimal(19,6)" json:"org_account_balance,omitempty"`
	ThirdPartyTransID string              `gorm:"type:varchar(20)" json:"third_party_trans_id,omitempty"`
	MSISDN            string              `gorm:"type:varchar(20)" json:"msisdn,omitempty"`
	FirstName         string              `gorm:"type:varchar(50)" json:"first_name,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}
