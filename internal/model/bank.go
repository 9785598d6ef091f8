package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// BankTransaction represents a parsed bank statement row awaiting
// reconciliation. It is never persisted as-is; posting it produces a
// Transaction against the resolved member.
type BankTransaction struct {
	Date        time.Time
	AccountName string
	Description string
	IBAN        string
	BIC         string
	IBANHash    string
	Amount      decimal.Decimal
}
