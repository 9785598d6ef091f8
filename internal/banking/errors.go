package banking

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/eris-dev/eris/internal/model"
)

// UnresolvedMemberError marks a bank transaction that matched no import
// rule and no member name. The candidate is kept so the operator can
// create a rule and replay the import.
type UnresolvedMemberError struct {
	Candidate model.BankTransaction
}

func (e *UnresolvedMemberError) Error() string {
	return fmt.Sprintf("no member resolved for %q (%s)", e.Candidate.AccountName, e.Candidate.IBANHash)
}

// ValidationError rejects a payment dated on or before the member's
// last recorded payment. The operator can override it by re-running the
// import with force.
type ValidationError struct {
	MemberID    int64
	MemberName  string
	Date        time.Time
	LastPayment time.Time
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("date %s is not after last payment %s for member %s (%d)",
		e.Date.Format("2006-01-02"), e.LastPayment.Format("2006-01-02"), e.MemberName, e.MemberID)
}

// ConfigError reports a split rule whose fixed shares exceed the
// incoming amount. Nothing is posted for such a transaction.
type ConfigError struct {
	IBANHash string
	Total    decimal.Decimal
	Amount   decimal.Decimal
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("split rule %s: total of shares %s exceeds incoming amount %s",
		e.IBANHash, e.Total.StringFixed(2), e.Amount.StringFixed(2))
}
