package accounting

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/eris-dev/eris/internal/model"
	"github.com/eris-dev/eris/internal/store"
)

// Confirm asks the operator to approve an action described by summary
// and reports the answer. Injecting it keeps the engines testable
// without a terminal.
type Confirm func(summary string) bool

// ErrAborted is returned when the operator declines a confirmation
// prompt. The store is left untouched in that case.
var ErrAborted = errors.New("aborted by operator")

// Adjust sets a member's account balance to target exactly and records
// the delta as an audit transaction. Posting is gated on confirm.
func (s *Service) Adjust(ctx context.Context, memberID int64, target decimal.Decimal, comment string, confirm Confirm) error {
	m, err := s.store.Member(ctx, memberID)
	if err != nil {
		return err
	}

	diff := target.Sub(m.Account)
	draft := model.Transaction{
		MemberID:    m.ID,
		AccountName: m.Name,
		Date:        s.today(),
		Amount:      diff,
		Description: fmt.Sprintf("manual account adjustment, from %s %s: %s", m.Account.StringFixed(2), s.currency, comment),
	}

	summary := fmt.Sprintf("adjust account of %s (%d): %s -> %s %s (delta %s)",
		m.Name, m.ID, m.Account.StringFixed(2), target.StringFixed(2), s.currency, diff.StringFixed(2))
	if !confirm(summary) {
		return ErrAborted
	}

	return s.store.Atomic(ctx, func(st store.Store) error {
		if err := st.SetBalance(ctx, m.ID, target); err != nil {
			return err
		}
		_, err := st.AppendTransaction(ctx, &draft)
		return err
	})
}

// Undo compensates a posted transaction: it subtracts the amount from
// the member's account again and appends a reversing ledger entry. The
// original transaction is never mutated.
func (s *Service) Undo(ctx context.Context, txID int64, confirm Confirm) error {
	tx, err := s.store.Transaction(ctx, txID)
	if err != nil {
		return err
	}
	m, err := s.store.Member(ctx, tx.MemberID)
	if err != nil {
		return err
	}

	next := m.Account.Sub(tx.Amount)
	summary := fmt.Sprintf("undo transaction %d (%s, %s %s) for %s (%d): account %s -> %s %s",
		tx.ID, tx.Date.Format("2006-01-02"), tx.Amount.StringFixed(2), s.currency,
		m.Name, m.ID, m.Account.StringFixed(2), next.StringFixed(2), s.currency)
	if !confirm(summary) {
		return ErrAborted
	}

	undo := model.Transaction{
		MemberID:    m.ID,
		AccountName: tx.AccountName,
		Date:        s.today(),
		Amount:      tx.Amount.Neg(),
		Description: "[UNDO] " + tx.Description,
	}

	return s.store.Atomic(ctx, func(st store.Store) error {
		if err := st.SetBalance(ctx, m.ID, next); err != nil {
			return err
		}
		_, err := st.AppendTransaction(ctx, &undo)
		return err
	})
}
