package banking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"k8s.io/klog"

	"github.com/eris-dev/eris/internal/model"
	"github.com/eris-dev/eris/internal/store"
)

const dateFormat = "2006-01-02"

// Engine resolves bank transaction candidates to members and posts the
// resulting payments.
type Engine struct {
	store    store.Store
	currency string
}

// NewEngine creates a reconciliation Engine.
func NewEngine(st store.Store, currency string) *Engine {
	return &Engine{store: st, currency: currency}
}

// Rejection pairs a candidate with the reason it did not post.
type Rejection struct {
	Candidate model.BankTransaction
	Reason    string
}

// Report summarizes one statement import. Unresolved candidates are
// returned whole so they can be replayed after rules are created.
type Report struct {
	Posted     int
	Unresolved []model.BankTransaction
	Rejected   []Rejection
}

// ImportTransactions reconciles candidates one by one. Unresolved
// identities, validation rejections and split misconfigurations are
// collected into the report; storage failures abort the import.
func (e *Engine) ImportTransactions(ctx context.Context, candidates []model.BankTransaction, force bool) (*Report, error) {
	report := &Report{}
	for _, candidate := range candidates {
		err := e.Reconcile(ctx, candidate, force)

		var unresolved *UnresolvedMemberError
		var rejected *ValidationError
		var misconfigured *ConfigError
		switch {
		case err == nil:
			report.Posted++
		case errors.As(err, &unresolved):
			report.Unresolved = append(report.Unresolved, unresolved.Candidate)
		case errors.As(err, &rejected):
			report.Rejected = append(report.Rejected, Rejection{Candidate: candidate, Reason: rejected.Error()})
		case errors.As(err, &misconfigured):
			report.Rejected = append(report.Rejected, Rejection{Candidate: candidate, Reason: misconfigured.Error()})
		default:
			return nil, err
		}
	}
	return report, nil
}

// Reconcile resolves one candidate and posts the payment. Resolution
// order: import rule by identity hash, then exact member name match.
func (e *Engine) Reconcile(ctx context.Context, candidate model.BankTransaction, force bool) error {
	rule, err := e.store.ImportRule(ctx, candidate.IBANHash)
	if errors.Is(err, store.ErrNotFound) {
		return e.reconcileByName(ctx, candidate, force)
	}
	if err != nil {
		return err
	}

	switch rule.Kind {
	case model.RuleDirect:
		return e.reconcileDirect(ctx, candidate, rule, force)
	case model.RuleSplit:
		return e.reconcileSplit(ctx, candidate, rule, force)
	default:
		return fmt.Errorf("rule %s has unknown kind %q", rule.IBANHash, rule.Kind)
	}
}

func (e *Engine) reconcileByName(ctx context.Context, candidate model.BankTransaction, force bool) error {
	m, err := e.store.MemberByName(ctx, candidate.AccountName)
	if errors.Is(err, store.ErrNotFound) {
		return &UnresolvedMemberError{Candidate: candidate}
	}
	if err != nil {
		return err
	}
	return e.post(ctx, m, candidate, candidate.Amount, force)
}

func (e *Engine) reconcileDirect(ctx context.Context, candidate model.BankTransaction, rule *model.ImportRule, force bool) error {
	m, err := e.store.Member(ctx, rule.MemberID)
	if errors.Is(err, store.ErrNotFound) {
		return &UnresolvedMemberError{Candidate: candidate}
	}
	if err != nil {
		return err
	}
	return e.post(ctx, m, candidate, candidate.Amount, force)
}

// reconcileSplit divides the amount along the rule's fixed shares, with
// the remainder going to the rule's fallback member. A validation
// failure without force stops at the failing share: earlier shares stay
// posted, the rest remains unposted for a forced rerun.
func (e *Engine) reconcileSplit(ctx context.Context, candidate model.BankTransaction, rule *model.ImportRule, force bool) error {
	total := decimal.Zero
	for _, share := range rule.Splits {
		m, err := e.store.Member(ctx, share.MemberID)
		if errors.Is(err, store.ErrNotFound) {
			return &UnresolvedMemberError{Candidate: candidate}
		}
		if err != nil {
			return err
		}
		klog.Infof("split assigns %s of %s %s to %s (%d)",
			share.Amount.StringFixed(2), candidate.Amount.StringFixed(2), e.currency, m.Name, m.ID)
		total = total.Add(share.Amount)
	}
	if total.GreaterThan(candidate.Amount) {
		return &ConfigError{IBANHash: rule.IBANHash, Total: total, Amount: candidate.Amount}
	}

	rest := candidate.Amount
	for _, share := range rule.Splits {
		m, err := e.store.Member(ctx, share.MemberID)
		if err != nil {
			return err
		}
		if err := e.post(ctx, m, candidate, share.Amount, force); err != nil {
			return err
		}
		rest = rest.Sub(share.Amount)
	}

	if rest.IsPositive() {
		fallback, err := e.store.Member(ctx, rule.MemberID)
		if errors.Is(err, store.ErrNotFound) {
			return &UnresolvedMemberError{Candidate: candidate}
		}
		if err != nil {
			return err
		}
		klog.Infof("split remainder of %s %s goes to %s (%d)",
			rest.StringFixed(2), e.currency, fallback.Name, fallback.ID)
		return e.post(ctx, fallback, candidate, rest, force)
	}
	return nil
}

// post validates a payment and applies it as one atomic unit: balance
// update, last-payment advance and ledger entry commit together.
func (e *Engine) post(ctx context.Context, m *model.Member, candidate model.BankTransaction, amount decimal.Decimal, force bool) error {
	if verr := validate(m, candidate.Date); verr != nil {
		if !force {
			return verr
		}
		klog.Warningf("posting despite failed validation: %v", verr)
	}

	return e.store.Atomic(ctx, func(st store.Store) error {
		current, err := st.Member(ctx, m.ID)
		if err != nil {
			return err
		}

		// The last-payment watermark never moves backwards.
		last := current.LastPayment
		if candidate.Date.After(last) {
			last = candidate.Date
		} else {
			klog.Warningf("last payment of %s (%d) is more recent than %s, keeping %s",
				current.Name, current.ID, candidate.Date.Format(dateFormat), last.Format(dateFormat))
		}

		if err := st.SetBalance(ctx, current.ID, current.Account.Add(amount)); err != nil {
			return err
		}
		if err := st.SetLastPayment(ctx, current.ID, last); err != nil {
			return err
		}
		tx := model.Transaction{
			MemberID:    current.ID,
			Date:        candidate.Date,
			Amount:      amount,
			Description: candidate.Description,
			AccountName: candidate.AccountName,
		}
		if _, err := st.AppendTransaction(ctx, &tx); err != nil {
			return err
		}

		klog.Infof("added payment from %s (%s): %s %s, %s (%s)",
			current.Name, candidate.AccountName, amount.StringFixed(2), e.currency,
			candidate.Date.Format(dateFormat), candidate.Description)
		return nil
	})
}

// validate rejects payments dated on or before the member's last
// recorded payment, the sign of a back-dated or replayed statement row.
func validate(m *model.Member, date time.Time) *ValidationError {
	if !date.After(m.LastPayment) {
		return &ValidationError{
			MemberID:    m.ID,
			MemberName:  m.Name,
			Date:        date,
			LastPayment: m.LastPayment,
		}
	}
	return nil
}
