package migrations

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"
)

func createLoanBookMigration() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000001_create_loan_book",
		Migrate: func(tx *gorm.DB) error {
			if err := tx.Exec(`
				CREATE TABLE IF NOT EXISTS accounts (
					id SERIAL PRIMARY KEY,
					external_ref VARCHAR(12) NOT NULL UNIQUE,
					first_name VARCHAR(50),
					last_name VARCHAR(50),
					msisdn VARCHAR(20),
					status VARCHAR(20) NOT NULL DEFAULT 'active',
					created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
					updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
				)
			`).Error; err != nil {
				return err
			}
			if err := tx.Exec(`
				CREATE TABLE IF NOT EXISTS loans (
					id SERIAL PRIMARY KEY,
					account_id INT NOT NULL REFERENCES accounts(id),
					principal DECIMAL(19,6) NOT NULL,
					currency VARCHAR(3) NOT NULL DEFAULT 'KES',
					status VARCHAR(20) NOT NULL DEFAULT 'active',
					created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
					updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
				)
			`).Error; err != nil {
				return err
			}
			// One open loan per account; payments would otherwise be
			// ambiguous to apply.
			if err := tx.Exec(`
				CREATE UNIQUE INDEX IF NOT EXISTS idx_loans_one_active_per_account
				ON loans (account_id) WHERE status = 'active'
			`).Error; err != nil {
				return err
			}
			// external_id is the provider transaction id; the unique
			// constraint is what makes repayment application idempotent.
			return tx.Exec(`
				CREATE TABLE IF NOT EXISTS loan_transactions (
					id SERIAL PRIMARY KEY,
					loan_id INT NOT NULL REFERENCES loans(id),
					type VARCHAR(20) NOT NULL,
					amount DECIMAL(19,6) NOT NULL,
					external_id VARCHAR(40) NOT NULL UNIQUE,
					payer_ref VARCHAR(20),
					note TEXT,
					transaction_date TIMESTAMP WITH TIME ZONE NOT NULL,
					is_recovery BOOLEAN NOT NULL DEFAULT FALSE,
					created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
				)
			`).Error
		},
		Rollback: func(tx *gorm.DB) error {
			if err := tx.Exec("DROP TABLE IF EXISTS loan_transactions").Error; err != nil {
				return err
			}
			if err := tx.Exec("DROP TABLE IF EXISTS loans").Error; err != nil {
				return err
			}
			return tx.Exec("DROP TABLE IF EXISTS accounts").Error
		},
	}
}

func init() {
	migrationsList = append(migrationsList, createLoanBookMigration())
}
