// Package store persists members, transactions, bank import rules and
// the global accrual watermark. The engines depend only on the Store
// interface; the SQLite implementation is the production backend.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/eris-dev/eris/internal/model"
)

// ErrNotFound is returned when a referenced member, transaction or rule
// does not exist.
var ErrNotFound = errors.New("not found")

// TransactionFilter narrows a transaction listing.
type TransactionFilter struct {
	MemberID int64     // 0 = all members
	Since    time.Time // zero = no lower bound
}

// Store is the storage collaborator consumed by the accounting and
// banking engines. Monetary values are exact decimals throughout.
type Store interface {
	Member(ctx context.Context, id int64) (*model.Member, error)
	MemberByName(ctx context.Context, name string) (*model.Member, error)
	SearchMembers(ctx context.Context, name string) ([]model.Member, error)
	Members(ctx context.Context) ([]model.Member, error)
	AddMember(ctx context.Context, m *model.Member) (*model.Member, error)

	SetBalance(ctx context.Context, id int64, value decimal.Decimal) error
	SetLastPayment(ctx context.Context, id int64, date time.Time) error
	SetName(ctx context.Context, id int64, name string) error
	SetEmail(ctx context.Context, id int64, email string) error
	SetNotes(ctx context.Context, id int64, notes string) error
	SetFee(ctx context.Context, id int64, fee decimal.Decimal) error
	SetInterval(ctx context.Context, id int64, months int) error
	EndMembership(ctx context.Context, id int64, end time.Time) error

	AppendTransaction(ctx context.Context, tx *model.Transaction) (*model.Transaction, error)
	Transaction(ctx context.Context, id int64) (*model.Transaction, error)
	Transactions(ctx context.Context, f TransactionFilter) ([]model.Transaction, error)

	Watermark(ctx context.Context) (time.Time, error)
	SetWatermark(ctx context.Context, date time.Time) error

	ImportRule(ctx context.Context, ibanHash string) (*model.ImportRule, error)
	ImportRules(ctx context.Context) ([]model.ImportRule, error)
	AddImportRule(ctx context.Context, r *model.ImportRule) (*model.ImportRule, error)

	// Atomic runs fn against a store view whose writes commit together
	// or not at all. A balance update and its ledger entry must share
	// one atomic unit.
	Atomic(ctx context.Context, fn func(Store) error) error
}
