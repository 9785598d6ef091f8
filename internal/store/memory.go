package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/eris-dev/eris/internal/model"
)

// Memory is a map-backed Store used in tests and for dry runs. It is not
// safe for concurrent use; the system assumes exclusive access anyway.
type Memory struct {
	nextMemberID int64
	nextTxID     int64
	members      map[int64]*model.Member
	transactions []model.Transaction
	rules        map[string]*model.ImportRule
	watermark    time.Time
	hasWatermark bool
}

var _ Store = (*Memory)(nil)

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		nextMemberID: 1,
		nextTxID:     1,
		members:      make(map[int64]*model.Member),
		rules:        make(map[string]*model.ImportRule),
	}
}

// Member returns a member by id.
func (s *Memory) Member(_ context.Context, id int64) (*model.Member, error) {
	m, ok := s.members[id]
	if !ok {
		return nil, fmt.Errorf("loading member %d: %w", id, ErrNotFound)
	}
	copied := *m
	return &copied, nil
}

// MemberByName returns the member whose name matches exactly
// (case-insensitive).
func (s *Memory) MemberByName(_ context.Context, name string) (*model.Member, error) {
	for _, m := range s.members {
		if strings.EqualFold(m.Name, name) {
			copied := *m
			return &copied, nil
		}
	}
	return nil, fmt.Errorf("loading member %q: %w", name, ErrNotFound)
}

// SearchMembers returns all members whose name contains the substring.
func (s *Memory) SearchMembers(_ context.Context, name string) ([]model.Member, error) {
	var members []model.Member
	for _, m := range s.members {
		if strings.Contains(strings.ToLower(m.Name), strings.ToLower(name)) {
			members = append(members, *m)
		}
	}
	sortMembers(members)
	return members, nil
}

// Members returns all members ordered by name.
func (s *Memory) Members(_ context.Context) ([]model.Member, error) {
	members := make([]model.Member, 0, len(s.members))
	for _, m := range s.members {
		members = append(members, *m)
	}
	sortMembers(members)
	return members, nil
}

// AddMember inserts a member, assigning the next id.
func (s *Memory) AddMember(_ context.Context, m *model.Member) (*model.Member, error) {
	copied := *m
	copied.ID = s.nextMemberID
	s.nextMemberID++
	s.members[copied.ID] = &copied
	m.ID = copied.ID
	result := copied
	return &result, nil
}

// SetBalance sets the account balance of a member.
func (s *Memory) SetBalance(ctx context.Context, id int64, value decimal.Decimal) error {
	return s.update(id, func(m *model.Member) { m.Account = value })
}

// SetLastPayment sets the last-payment watermark of a member.
func (s *Memory) SetLastPayment(ctx context.Context, id int64, date time.Time) error {
	return s.update(id, func(m *model.Member) { m.LastPayment = date })
}

// SetName updates the display name of a member.
func (s *Memory) SetName(ctx context.Context, id int64, name string) error {
	return s.update(id, func(m *model.Member) { m.Name = name })
}

// SetEmail updates the email address of a member.
func (s *Memory) SetEmail(ctx context.Context, id int64, email string) error {
	return s.update(id, func(m *model.Member) { m.Email = email })
}

// SetNotes updates the notes of a member.
func (s *Memory) SetNotes(ctx context.Context, id int64, notes string) error {
	return s.update(id, func(m *model.Member) { m.Notes = notes })
}

// SetFee updates the membership fee of a member.
func (s *Memory) SetFee(ctx context.Context, id int64, fee decimal.Decimal) error {
	return s.update(id, func(m *model.Member) { m.Fee = fee })
}

// SetInterval updates the billing interval of a member.
func (s *Memory) SetInterval(ctx context.Context, id int64, months int) error {
	return s.update(id, func(m *model.Member) { m.Interval = months })
}

// EndMembership sets the membership end date of a member.
func (s *Memory) EndMembership(ctx context.Context, id int64, end time.Time) error {
	return s.update(id, func(m *model.Member) { m.MembershipEnd = &end })
}

func (s *Memory) update(id int64, apply func(*model.Member)) error {
	m, ok := s.members[id]
	if !ok {
		return fmt.Errorf("updating member %d: %w", id, ErrNotFound)
	}
	apply(m)
	return nil
}

// AppendTransaction appends a ledger entry.
func (s *Memory) AppendTransaction(_ context.Context, tx *model.Transaction) (*model.Transaction, error) {
	copied := *tx
	copied.ID = s.nextTxID
	s.nextTxID++
	s.transactions = append(s.transactions, copied)
	tx.ID = copied.ID
	result := copied
	return &result, nil
}

// Transaction returns a ledger entry by id.
func (s *Memory) Transaction(_ context.Context, id int64) (*model.Transaction, error) {
	for i := range s.transactions {
		if s.transactions[i].ID == id {
			copied := s.transactions[i]
			return &copied, nil
		}
	}
	return nil, fmt.Errorf("loading transaction %d: %w", id, ErrNotFound)
}

// Transactions lists ledger entries, optionally filtered.
func (s *Memory) Transactions(_ context.Context, f TransactionFilter) ([]model.Transaction, error) {
	var txs []model.Transaction
	for _, tx := range s.transactions {
		if f.MemberID != 0 && tx.MemberID != f.MemberID {
			continue
		}
		if !f.Since.IsZero() && tx.Date.Before(f.Since) {
			continue
		}
		txs = append(txs, tx)
	}
	sort.SliceStable(txs, func(i, j int) bool {
		if !txs[i].Date.Equal(txs[j].Date) {
			return txs[i].Date.Before(txs[j].Date)
		}
		return txs[i].ID < txs[j].ID
	})
	return txs, nil
}

// Watermark returns the date of the last global accrual run.
func (s *Memory) Watermark(_ context.Context) (time.Time, error) {
	if !s.hasWatermark {
		return time.Time{}, fmt.Errorf("reading watermark: %w", ErrNotFound)
	}
	return s.watermark, nil
}

// SetWatermark records the date of a completed global accrual run.
func (s *Memory) SetWatermark(_ context.Context, date time.Time) error {
	s.watermark = date
	s.hasWatermark = true
	return nil
}

// ImportRule returns the bank import rule for an identity hash.
func (s *Memory) ImportRule(_ context.Context, ibanHash string) (*model.ImportRule, error) {
	r, ok := s.rules[ibanHash]
	if !ok {
		return nil, fmt.Errorf("loading import rule %s: %w", ibanHash, ErrNotFound)
	}
	copied := *r
	copied.Splits = append([]model.SplitShare(nil), r.Splits...)
	return &copied, nil
}

// ImportRules returns all bank import rules ordered by hash.
func (s *Memory) ImportRules(_ context.Context) ([]model.ImportRule, error) {
	rules := make([]model.ImportRule, 0, len(s.rules))
	for _, r := range s.rules {
		copied := *r
		copied.Splits = append([]model.SplitShare(nil), r.Splits...)
		rules = append(rules, copied)
	}
	sort.Slice(rules, func(i, j int) bool { return rules[i].IBANHash < rules[j].IBANHash })
	return rules, nil
}

// AddImportRule inserts a bank import rule.
func (s *Memory) AddImportRule(_ context.Context, r *model.ImportRule) (*model.ImportRule, error) {
	if _, ok := s.rules[r.IBANHash]; ok {
		return nil, fmt.Errorf("adding import rule %s: already exists", r.IBANHash)
	}
	copied := *r
	copied.Splits = append([]model.SplitShare(nil), r.Splits...)
	s.rules[r.IBANHash] = &copied
	result := copied
	return &result, nil
}

// Atomic snapshots the store, runs fn, and restores the snapshot if fn
// fails.
func (s *Memory) Atomic(_ context.Context, fn func(Store) error) error {
	snapshot := s.clone()
	if err := fn(s); err != nil {
		*s = *snapshot
		return err
	}
	return nil
}

func (s *Memory) clone() *Memory {
	c := &Memory{
		nextMemberID: s.nextMemberID,
		nextTxID:     s.nextTxID,
		members:      make(map[int64]*model.Member, len(s.members)),
		transactions: append([]model.Transaction(nil), s.transactions...),
		rules:        make(map[string]*model.ImportRule, len(s.rules)),
		watermark:    s.watermark,
		hasWatermark: s.hasWatermark,
	}
	for id, m := range s.members {
		copied := *m
		c.members[id] = &copied
	}
	for hash, r := range s.rules {
		copied := *r
		copied.Splits = append([]model.SplitShare(nil), r.Splits...)
		c.rules[hash] = &copied
	}
	return c
}

func sortMembers(members []model.Member) {
	sort.Slice(members, func(i, j int) bool { return members[i].Name < members[j].Name })
}
