// Package accounting implements the fee accrual engine and the manual
// account correction paths. Every balance change it makes is paired with
// an append-only ledger transaction.
package accounting

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"k8s.io/klog"

	"github.com/eris-dev/eris/internal/model"
	"github.com/eris-dev/eris/internal/store"
)

// Service runs accrual and adjustment operations against a store.
type Service struct {
	store    store.Store
	currency string
	now      func() time.Time
}

// NewService creates an accounting Service.
func NewService(st store.Store, currency string) *Service {
	return &Service{store: st, currency: currency, now: time.Now}
}

// NumMonths returns the number of calendar months between two dates.
// Day-of-month is ignored: Jan 31 to Feb 1 counts as one month.
func NumMonths(start, end time.Time) int {
	years := end.Year() - start.Year()
	return years*12 + int(end.Month()) - int(start.Month())
}

// Accrue computes the next account value for a member and the matching
// ledger entry. The accrual base is the later of the member's last
// payment and the global watermark, so a fresh payment is never charged
// for months the previous run already covered.
func Accrue(m *model.Member, watermark, today time.Time) (decimal.Decimal, model.Transaction) {
	base := watermark
	if m.LastPayment.After(watermark) {
		base = m.LastPayment
	}

	months := NumMonths(base, today)
	fee := m.Fee.Mul(decimal.NewFromInt(int64(months)))
	next := m.Account.Sub(fee)

	draft := model.Transaction{
		MemberID:    m.ID,
		AccountName: m.Name,
		Date:        today,
		Amount:      fee.Neg(),
		Description: fmt.Sprintf("membership fee (%d month)", months),
	}
	return next, draft
}

// RunAccrual charges the membership fee for every member whose
// membership has not ended. The whole pass, including the watermark
// advance, is one atomic unit: a failure for any member aborts the run
// without advancing the watermark.
func (s *Service) RunAccrual(ctx context.Context) error {
	today := s.today()

	watermark, err := s.store.Watermark(ctx)
	if err != nil {
		return fmt.Errorf("reading watermark: %w", err)
	}
	if NumMonths(watermark, today) < 1 {
		klog.Info("member account calculation is up to date")
		return nil
	}
	klog.Info("calculating member accounts")

	return s.store.Atomic(ctx, func(st store.Store) error {
		members, err := st.Members(ctx)
		if err != nil {
			return err
		}

		for i := range members {
			m := &members[i]
			if m.Ended() {
				klog.Infof("skipping ended membership: %s (%d)", m.Name, m.ID)
				continue
			}

			next, draft := Accrue(m, watermark, today)
			klog.Infof("%s - old: %s new: %s", m.Name, m.Account.StringFixed(2), next.StringFixed(2))

			if err := st.SetBalance(ctx, m.ID, next); err != nil {
				return fmt.Errorf("updating account of member %d: %w", m.ID, err)
			}
			if _, err := st.AppendTransaction(ctx, &draft); err != nil {
				return fmt.Errorf("recording fee for member %d: %w", m.ID, err)
			}
		}

		if err := st.SetWatermark(ctx, today); err != nil {
			return fmt.Errorf("advancing watermark: %w", err)
		}
		return nil
	})
}

func (s *Service) today() time.Time {
	y, m, d := s.now().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
