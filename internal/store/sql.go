package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	"github.com/eris-dev/eris/internal/model"
)

// SQL is the SQLite-backed Store.
type SQL struct {
	db bun.IDB
}

var _ Store = (*SQL)(nil)

// ruleRow is the persisted shape of an import rule; split parameters are
// stored as a JSON text column.
type ruleRow struct {
	bun.BaseModel `bun:"table:bank_import_rules"`

	IBANHash string `bun:"iban_hash,pk"`
	MemberID int64  `bun:"member_id,notnull"`
	Handler  string `bun:"handler,notnull"`
	Params   string `bun:"params,nullzero"`
}

// stateRow holds the single global accrual watermark.
type stateRow struct {
	bun.BaseModel `bun:"table:state"`

	ID                   int64     `bun:"id,pk"`
	AccountsCalculatedAt time.Time `bun:"accounts_calculated_at,notnull"`
}

// Open opens (or creates) the SQLite ledger database at path.
func Open(path string) (*SQL, error) {
	sqldb, err := sql.Open(sqliteshim.ShimName, path)
	if err != nil {
		return nil, fmt.Errorf("opening database %s: %w", path, err)
	}
	// The store assumes exclusive access for the duration of a command.
	sqldb.SetMaxOpenConns(1)
	return &SQL{db: bun.NewDB(sqldb, sqlitedialect.New())}, nil
}

// Close releases the underlying database handle.
func (s *SQL) Close() error {
	if db, ok := s.db.(*bun.DB); ok {
		return db.Close()
	}
	return nil
}

// Init creates the schema if needed and seeds the accrual watermark.
func (s *SQL) Init(ctx context.Context, watermark time.Time) error {
	models := []any{
		(*model.Member)(nil),
		(*model.Transaction)(nil),
		(*ruleRow)(nil),
		(*stateRow)(nil),
	}
	for _, m := range models {
		if _, err := s.db.NewCreateTable().Model(m).IfNotExists().Exec(ctx); err != nil {
			return fmt.Errorf("creating schema: %w", err)
		}
	}

	count, err := s.db.NewSelect().Model((*stateRow)(nil)).Count(ctx)
	if err != nil {
		return fmt.Errorf("reading state: %w", err)
	}
	if count == 0 {
		row := &stateRow{ID: 1, AccountsCalculatedAt: watermark}
		if _, err := s.db.NewInsert().Model(row).Exec(ctx); err != nil {
			return fmt.Errorf("seeding watermark: %w", err)
		}
	}
	return nil
}

// Member returns a member by id.
func (s *SQL) Member(ctx context.Context, id int64) (*model.Member, error) {
	m := new(model.Member)
	err := s.db.NewSelect().Model(m).Where("id = ?", id).Scan(ctx)
	if err != nil {
		return nil, wrapNotFound(fmt.Errorf("loading member %d: %w", id, err), err)
	}
	return m, nil
}

// MemberByName returns the member whose name matches exactly
// (case-insensitive).
func (s *SQL) MemberByName(ctx context.Context, name string) (*model.Member, error) {
	m := new(model.Member)
	err := s.db.NewSelect().Model(m).Where("lower(name) = lower(?)", name).Limit(1).Scan(ctx)
	if err != nil {
		return nil, wrapNotFound(fmt.Errorf("loading member %q: %w", name, err), err)
	}
	return m, nil
}

// SearchMembers returns all members whose name contains the given
// substring.
func (s *SQL) SearchMembers(ctx context.Context, name string) ([]model.Member, error) {
	var members []model.Member
	err := s.db.NewSelect().Model(&members).
		Where("name LIKE ?", "%"+name+"%").
		Order("name ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("searching members %q: %w", name, err)
	}
	return members, nil
}

// Members returns all members ordered by name.
func (s *SQL) Members(ctx context.Context) ([]model.Member, error) {
	var members []model.Member
	if err := s.db.NewSelect().Model(&members).Order("name ASC").Scan(ctx); err != nil {
		return nil, fmt.Errorf("listing members: %w", err)
	}
	return members, nil
}

// AddMember inserts a member and returns the stored record.
func (s *SQL) AddMember(ctx context.Context, m *model.Member) (*model.Member, error) {
	if _, err := s.db.NewInsert().Model(m).Exec(ctx); err != nil {
		return nil, fmt.Errorf("adding member %q: %w", m.Name, err)
	}
	return s.Member(ctx, m.ID)
}

// SetBalance sets the account balance of a member.
func (s *SQL) SetBalance(ctx context.Context, id int64, value decimal.Decimal) error {
	return s.updateMember(ctx, id, "account = ?", value)
}

// SetLastPayment sets the last-payment watermark of a member.
func (s *SQL) SetLastPayment(ctx context.Context, id int64, date time.Time) error {
	return s.updateMember(ctx, id, "last_payment = ?", date)
}

// SetName updates the display name of a member.
func (s *SQL) SetName(ctx context.Context, id int64, name string) error {
	return s.updateMember(ctx, id, "name = ?", name)
}

// SetEmail updates the email address of a member.
func (s *SQL) SetEmail(ctx context.Context, id int64, email string) error {
	return s.updateMember(ctx, id, "email = ?", email)
}

// SetNotes updates the notes of a member.
func (s *SQL) SetNotes(ctx context.Context, id int64, notes string) error {
	return s.updateMember(ctx, id, "notes = ?", notes)
}

// SetFee updates the membership fee of a member.
func (s *SQL) SetFee(ctx context.Context, id int64, fee decimal.Decimal) error {
	return s.updateMember(ctx, id, "fee = ?", fee)
}

// SetInterval updates the billing interval of a member.
func (s *SQL) SetInterval(ctx context.Context, id int64, months int) error {
	return s.updateMember(ctx, id, "interval = ?", months)
}

// EndMembership sets the membership end date of a member.
func (s *SQL) EndMembership(ctx context.Context, id int64, end time.Time) error {
	return s.updateMember(ctx, id, "membership_end = ?", end)
}

func (s *SQL) updateMember(ctx context.Context, id int64, set string, arg any) error {
	res, err := s.db.NewUpdate().Model((*model.Member)(nil)).
		Set(set, arg).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("updating member %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("updating member %d: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("updating member %d: %w", id, ErrNotFound)
	}
	return nil
}

// AppendTransaction appends a ledger entry and returns the stored row.
func (s *SQL) AppendTransaction(ctx context.Context, tx *model.Transaction) (*model.Transaction, error) {
	if _, err := s.db.NewInsert().Model(tx).Exec(ctx); err != nil {
		return nil, fmt.Errorf("appending transaction: %w", err)
	}
	return s.Transaction(ctx, tx.ID)
}

// Transaction returns a ledger entry by id.
func (s *SQL) Transaction(ctx context.Context, id int64) (*model.Transaction, error) {
	tx := new(model.Transaction)
	err := s.db.NewSelect().Model(tx).Where("id = ?", id).Scan(ctx)
	if err != nil {
		return nil, wrapNotFound(fmt.Errorf("loading transaction %d: %w", id, err), err)
	}
	return tx, nil
}

// Transactions lists ledger entries, optionally filtered by member and
// lower date bound.
func (s *SQL) Transactions(ctx context.Context, f TransactionFilter) ([]model.Transaction, error) {
	var txs []model.Transaction
	q := s.db.NewSelect().Model(&txs)
	if f.MemberID != 0 {
		q = q.Where("member_id = ?", f.MemberID)
	}
	if !f.Since.IsZero() {
		q = q.Where("date >= ?", f.Since)
	}
	if err := q.Order("date ASC", "id ASC").Scan(ctx); err != nil {
		return nil, fmt.Errorf("listing transactions: %w", err)
	}
	return txs, nil
}

// Watermark returns the date of the last global accrual run.
func (s *SQL) Watermark(ctx context.Context) (time.Time, error) {
	row := new(stateRow)
	err := s.db.NewSelect().Model(row).Limit(1).Scan(ctx)
	if err != nil {
		return time.Time{}, wrapNotFound(fmt.Errorf("reading watermark: %w", err), err)
	}
	return row.AccountsCalculatedAt, nil
}

// SetWatermark records the date of a completed global accrual run.
func (s *SQL) SetWatermark(ctx context.Context, date time.Time) error {
	res, err := s.db.NewUpdate().Model((*stateRow)(nil)).
		Set("accounts_calculated_at = ?", date).
		Where("1 = 1").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("setting watermark: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("setting watermark: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("setting watermark: %w", ErrNotFound)
	}
	return nil
}

// ImportRule returns the bank import rule for an identity hash.
func (s *SQL) ImportRule(ctx context.Context, ibanHash string) (*model.ImportRule, error) {
	row := new(ruleRow)
	err := s.db.NewSelect().Model(row).Where("iban_hash = ?", ibanHash).Scan(ctx)
	if err != nil {
		return nil, wrapNotFound(fmt.Errorf("loading import rule %s: %w", ibanHash, err), err)
	}
	return decodeRule(row)
}

// ImportRules returns all bank import rules.
func (s *SQL) ImportRules(ctx context.Context) ([]model.ImportRule, error) {
	var rows []ruleRow
	if err := s.db.NewSelect().Model(&rows).Order("iban_hash ASC").Scan(ctx); err != nil {
		return nil, fmt.Errorf("listing import rules: %w", err)
	}
	rules := make([]model.ImportRule, 0, len(rows))
	for i := range rows {
		rule, err := decodeRule(&rows[i])
		if err != nil {
			return nil, err
		}
		rules = append(rules, *rule)
	}
	return rules, nil
}

// AddImportRule inserts a bank import rule and returns the stored rule.
func (s *SQL) AddImportRule(ctx context.Context, r *model.ImportRule) (*model.ImportRule, error) {
	row, err := encodeRule(r)
	if err != nil {
		return nil, err
	}
	if _, err := s.db.NewInsert().Model(row).Exec(ctx); err != nil {
		return nil, fmt.Errorf("adding import rule %s: %w", r.IBANHash, err)
	}
	return s.ImportRule(ctx, r.IBANHash)
}

// Atomic runs fn inside a database transaction. Nested calls reuse the
// enclosing transaction.
func (s *SQL) Atomic(ctx context.Context, fn func(Store) error) error {
	db, ok := s.db.(*bun.DB)
	if !ok {
		return fn(s)
	}
	return db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		return fn(&SQL{db: tx})
	})
}

func encodeRule(r *model.ImportRule) (*ruleRow, error) {
	row := &ruleRow{
		IBANHash: r.IBANHash,
		MemberID: r.MemberID,
		Handler:  string(r.Kind),
	}
	if len(r.Splits) > 0 {
		data, err := json.Marshal(r.Splits)
		if err != nil {
			return nil, fmt.Errorf("encoding split shares: %w", err)
		}
		row.Params = string(data)
	}
	return row, nil
}

func decodeRule(row *ruleRow) (*model.ImportRule, error) {
	rule := &model.ImportRule{
		IBANHash: row.IBANHash,
		MemberID: row.MemberID,
		Kind:     model.RuleKind(row.Handler),
	}
	if row.Params != "" {
		if err := json.Unmarshal([]byte(row.Params), &rule.Splits); err != nil {
			return nil, fmt.Errorf("decoding split shares for %s: %w", row.IBANHash, err)
		}
	}
	return rule, nil
}

func wrapNotFound(wrapped, cause error) error {
	if errors.Is(cause, sql.ErrNoRows) {
		return fmt.Errorf("%w: %w", ErrNotFound, wrapped)
	}
	return wrapped
}
