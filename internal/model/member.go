package model

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

// Member is a membership record. The account balance is negative while
// the member still owes fees to the organization. Members are never
// deleted; a membership is ended by setting MembershipEnd.
type Member struct {
	bun.BaseModel `bun:"table:members"`

	ID              int64           `bun:"id,pk,autoincrement"`
	Name            string          `bun:"name,notnull"`
	Email           string          `bun:"email,notnull"`
	Notes           string          `bun:"notes,notnull"`
	Interval        int             `bun:"interval,notnull"` // billing interval in months
	Fee             decimal.Decimal `bun:"fee,notnull,type:text"`
	Account         decimal.Decimal `bun:"account,notnull,type:text"`
	MembershipStart time.Time       `bun:"membership_start,notnull"`
	MembershipEnd   *time.Time      `bun:"membership_end,nullzero"`
	LastPayment     time.Time       `bun:"last_payment,notnull"`
}

// Inactive reports whether the membership has ended as of the given day.
func (m Member) Inactive(today time.Time) bool {
	return m.MembershipEnd != nil && m.MembershipEnd.Before(today)
}

// Ended reports whether an end date is set at all, regardless of whether
// it lies in the past or the future. Accrual stops for ended members.
func (m Member) Ended() bool {
	return m.MembershipEnd != nil
}
