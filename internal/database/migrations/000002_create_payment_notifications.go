package migrations

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"
)

func createPaymentNotificationsMigration() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000002_create_payment_notifications",
		Migrate: func(tx *gorm.DB) error {
			// Append-only audit table. transaction_id is indexed but NOT
			// unique: provider retries must produce distinct rows.
			if err := tx.Exec(`
				CREATE TABLE IF NOT EXISTS payment_notifications (
					id SERIAL PRIMARY KEY,
					reference VARCHAR(64) NOT NULL UNIQUE,
					account_id INT,
					loan_id INT,
					loan_transaction_id INT,
					transaction_type VARCHAR(40) NOT NULL,
					transaction_id VARCHAR(40) NOT NULL,
					transaction_time TIMESTAMP WITH TIME ZONE NOT NULL,
					amount DECIMAL(19,6) NOT NULL,
					business_short_code VARCHAR(12) NOT NULL,
					bill_ref_number VARCHAR(12) NOT NULL,
					invoice_number VARCHAR(100),
					org_account_balance DECIMAL(19,6),
					third_party_trans_id VARCHAR(20),
					msisdn VARCHAR(20),
					first_name VARCHAR(50),
					created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
				)
			`).Error; err != nil {
				return err
			}
			if err := tx.Exec(`
				CREATE INDEX IF NOT EXISTS idx_payment_notifications_transaction_id
				ON payment_notifications (transaction_id)
			`).Error; err != nil {
				return err
			}
			return tx.Exec(`
				CREATE INDEX IF NOT EXISTS idx_payment_notifications_bill_ref_number
				ON payment_notifications (bill_ref_number)
			`).Error
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Exec("DROP TABLE IF EXISTS payment_notifications").Error
		},
	}
}

func init() {
	migrationsList = append(migrationsList, createPaymentNotificationsMigration())
}
