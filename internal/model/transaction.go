package model

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

// Transaction is a single append-only ledger entry. Every change to a
// member's account balance is recorded as exactly one transaction with a
// matching amount; an undo posts a compensating entry instead of
// mutating history.
type Transaction struct {
	bun.BaseModel `bun:"table:transactions"`

	ID          int64           `bun:"id,pk,autoincrement"`
	MemberID    int64           `bun:"member_id,notnull"`
	Date        time.Time       `bun:"date,notnull"`
	Amount      decimal.Decimal `bun:"amount,notnull,type:text"`
	Description string          `bun:"description,notnull"`
	AccountName string          `bun:"account_name,notnull"` // sender label from the bank statement
}
