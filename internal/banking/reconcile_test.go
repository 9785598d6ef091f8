package banking

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eris-dev/eris/internal/model"
	"github.com/eris-dev/eris/internal/store"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func addMember(t *testing.T, st store.Store, name string, lastPayment time.Time) *model.Member {
	t.Helper()
	m, err := st.AddMember(context.Background(), &model.Member{
		Name:            name,
		Fee:             dec("20.00"),
		Account:         dec("-20.00"),
		MembershipStart: day(2024, 1, 1),
		LastPayment:     lastPayment,
	})
	require.NoError(t, err)
	return m
}

func candidate(name string, amount string, date time.Time) model.BankTransaction {
	iban := "DE02120300000000202051"
	return model.BankTransaction{
		Date:        date,
		AccountName: name,
		Description: "membership dues",
		IBAN:        iban,
		BIC:         "BYLADEM1001",
		IBANHash:    HashIBAN(name, iban),
		Amount:      dec(amount),
	}
}

func TestReconcileByName(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	m := addMember(t, st, "Ada Lovelace", day(2024, 1, 1))

	e := NewEngine(st, "EUR")
	require.NoError(t, e.Reconcile(ctx, candidate("Ada Lovelace", "20.00", day(2024, 2, 5)), false))

	got, err := st.Member(ctx, m.ID)
	require.NoError(t, err)
	assert.True(t, got.Account.IsZero(), "payment credited")
	assert.True(t, got.LastPayment.Equal(day(2024, 2, 5)), "last payment advanced")

	txs, err := st.Transactions(ctx, store.TransactionFilter{MemberID: m.ID})
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.True(t, txs[0].Amount.Equal(dec("20.00")))
	assert.Equal(t, "membership dues", txs[0].Description)
	assert.Equal(t, "Ada Lovelace", txs[0].AccountName)
}

func TestReconcileUnresolved(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	addMember(t, st, "Ada Lovelace", day(2024, 1, 1))

	e := NewEngine(st, "EUR")
	err := e.Reconcile(ctx, candidate("STRANGER, JOHN", "20.00", day(2024, 2, 5)), false)

	var unresolved *UnresolvedMemberError
	require.ErrorAs(t, err, &unresolved)
	assert.Equal(t, "STRANGER, JOHN", unresolved.Candidate.AccountName)

	txs, err := st.Transactions(ctx, store.TransactionFilter{})
	require.NoError(t, err)
	assert.Empty(t, txs, "nothing posted")
}

func TestReconcileDirectRule(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	m := addMember(t, st, "Ada Lovelace", day(2024, 1, 1))

	// Sender label does not match any member name; the rule resolves it.
	c := candidate("LOVELACE GBR", "40.00", day(2024, 2, 5))
	_, err := st.AddImportRule(ctx, &model.ImportRule{IBANHash: c.IBANHash, MemberID: m.ID, Kind: model.RuleDirect})
	require.NoError(t, err)

	e := NewEngine(st, "EUR")
	require.NoError(t, e.Reconcile(ctx, c, false))

	got, err := st.Member(ctx, m.ID)
	require.NoError(t, err)
	assert.True(t, got.Account.Equal(dec("20.00")))
}

func TestReconcileDirectRuleMissingMember(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()

	c := candidate("LOVELACE GBR", "40.00", day(2024, 2, 5))
	_, err := st.AddImportRule(ctx, &model.ImportRule{IBANHash: c.IBANHash, MemberID: 999, Kind: model.RuleDirect})
	require.NoError(t, err)

	e := NewEngine(st, "EUR")
	var unresolved *UnresolvedMemberError
	require.ErrorAs(t, e.Reconcile(ctx, c, false), &unresolved)
}

func TestReconcileRejectsBackdatedPayment(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	m := addMember(t, st, "Ada Lovelace", day(2024, 3, 1))

	e := NewEngine(st, "EUR")
	err := e.Reconcile(ctx, candidate("Ada Lovelace", "20.00", day(2024, 2, 5)), false)

	var rejected *ValidationError
	require.ErrorAs(t, err, &rejected)
	assert.Equal(t, m.ID, rejected.MemberID)

	got, err := st.Member(ctx, m.ID)
	require.NoError(t, err)
	assert.True(t, got.Account.Equal(dec("-20.00")), "rejected payment not credited")

	txs, err := st.Transactions(ctx, store.TransactionFilter{})
	require.NoError(t, err)
	assert.Empty(t, txs)
}

func TestReconcileForcePostsWithoutRewindingLastPayment(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	m := addMember(t, st, "Ada Lovelace", day(2024, 3, 1))

	e := NewEngine(st, "EUR")
	require.NoError(t, e.Reconcile(ctx, candidate("Ada Lovelace", "20.00", day(2024, 2, 5)), true))

	got, err := st.Member(ctx, m.ID)
	require.NoError(t, err)
	assert.True(t, got.Account.IsZero(), "forced payment credited")
	assert.True(t, got.LastPayment.Equal(day(2024, 3, 1)), "last payment kept, not rewound")

	txs, err := st.Transactions(ctx, store.TransactionFilter{MemberID: m.ID})
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.True(t, txs[0].Date.Equal(day(2024, 2, 5)), "ledger keeps the real statement date")
}

func splitFixture(t *testing.T, st store.Store) (a, b, c *model.Member, cand model.BankTransaction) {
	t.Helper()
	ctx := context.Background()
	a = addMember(t, st, "Ada Lovelace", day(2024, 1, 1))
	b = addMember(t, st, "Grace Hopper", day(2024, 1, 1))
	c = addMember(t, st, "Adele Goldberg", day(2024, 1, 1))

	cand = candidate("SHARED FLAT GBR", "100.00", day(2024, 2, 5))
	_, err := st.AddImportRule(ctx, &model.ImportRule{
		IBANHash: cand.IBANHash,
		MemberID: c.ID, // fallback for the remainder
		Kind:     model.RuleSplit,
		Splits: []model.SplitShare{
			{MemberID: a.ID, Amount: dec("30.00")},
			{MemberID: b.ID, Amount: dec("20.00")},
		},
	})
	require.NoError(t, err)
	return a, b, c, cand
}

func TestReconcileSplit(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	a, b, c, cand := splitFixture(t, st)

	e := NewEngine(st, "EUR")
	require.NoError(t, e.Reconcile(ctx, cand, false))

	for _, tc := range []struct {
		member *model.Member
		want   string
	}{
		{a, "10.00"},  // -20 + 30
		{b, "0.00"},   // -20 + 20
		{c, "30.00"},  // -20 + 50 remainder
	} {
		got, err := st.Member(ctx, tc.member.ID)
		require.NoError(t, err)
		assert.True(t, got.Account.Equal(dec(tc.want)), "%s: want %s, got %s", tc.member.Name, tc.want, got.Account)
		assert.True(t, got.LastPayment.Equal(day(2024, 2, 5)))
	}

	txs, err := st.Transactions(ctx, store.TransactionFilter{})
	require.NoError(t, err)
	require.Len(t, txs, 3, "one ledger entry per allocation")

	sum := decimal.Zero
	for _, tx := range txs {
		sum = sum.Add(tx.Amount)
	}
	assert.True(t, sum.Equal(dec("100.00")), "allocations cover the full amount")
}

func TestReconcileSplitOverflow(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	a := addMember(t, st, "Ada Lovelace", day(2024, 1, 1))
	b := addMember(t, st, "Grace Hopper", day(2024, 1, 1))

	cand := candidate("SHARED FLAT GBR", "100.00", day(2024, 2, 5))
	_, err := st.AddImportRule(ctx, &model.ImportRule{
		IBANHash: cand.IBANHash,
		MemberID: a.ID,
		Kind:     model.RuleSplit,
		Splits: []model.SplitShare{
			{MemberID: a.ID, Amount: dec("70.00")},
			{MemberID: b.ID, Amount: dec("50.00")},
		},
	})
	require.NoError(t, err)

	e := NewEngine(st, "EUR")
	var misconfigured *ConfigError
	require.ErrorAs(t, e.Reconcile(ctx, cand, false), &misconfigured)
	assert.True(t, misconfigured.Total.Equal(dec("120.00")))

	txs, err := st.Transactions(ctx, store.TransactionFilter{})
	require.NoError(t, err)
	assert.Empty(t, txs, "overflow posts nothing")

	got, err := st.Member(ctx, a.ID)
	require.NoError(t, err)
	assert.True(t, got.Account.Equal(dec("-20.00")))
}

func TestReconcileSplitStopsAtFirstRejectedShare(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	a := addMember(t, st, "Ada Lovelace", day(2024, 1, 1))
	b := addMember(t, st, "Grace Hopper", day(2024, 3, 1)) // newer than the statement row
	c := addMember(t, st, "Adele Goldberg", day(2024, 1, 1))

	cand := candidate("SHARED FLAT GBR", "100.00", day(2024, 2, 5))
	_, err := st.AddImportRule(ctx, &model.ImportRule{
		IBANHash: cand.IBANHash,
		MemberID: c.ID,
		Kind:     model.RuleSplit,
		Splits: []model.SplitShare{
			{MemberID: a.ID, Amount: dec("30.00")},
			{MemberID: b.ID, Amount: dec("20.00")},
		},
	})
	require.NoError(t, err)

	e := NewEngine(st, "EUR")
	var rejected *ValidationError
	require.ErrorAs(t, e.Reconcile(ctx, cand, false), &rejected)
	assert.Equal(t, b.ID, rejected.MemberID)

	gotA, err := st.Member(ctx, a.ID)
	require.NoError(t, err)
	assert.True(t, gotA.Account.Equal(dec("10.00")), "share before the failure stays posted")

	gotB, err := st.Member(ctx, b.ID)
	require.NoError(t, err)
	assert.True(t, gotB.Account.Equal(dec("-20.00")), "rejected share unposted")

	gotC, err := st.Member(ctx, c.ID)
	require.NoError(t, err)
	assert.True(t, gotC.Account.Equal(dec("-20.00")), "remainder unposted after the failure")
}

func TestImportTransactionsReport(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	addMember(t, st, "Ada Lovelace", day(2024, 1, 1))
	addMember(t, st, "Grace Hopper", day(2024, 3, 1))

	e := NewEngine(st, "EUR")
	report, err := e.ImportTransactions(ctx, []model.BankTransaction{
		candidate("Ada Lovelace", "20.00", day(2024, 2, 5)),
		candidate("Grace Hopper", "20.00", day(2024, 2, 5)),  // back-dated
		candidate("STRANGER, JOHN", "20.00", day(2024, 2, 5)), // unknown
	}, false)
	require.NoError(t, err)

	assert.Equal(t, 1, report.Posted)
	require.Len(t, report.Rejected, 1)
	assert.Contains(t, report.Rejected[0].Reason, "Grace Hopper")
	require.Len(t, report.Unresolved, 1)
	assert.Equal(t, "STRANGER, JOHN", report.Unresolved[0].AccountName)
	assert.NotEmpty(t, report.Unresolved[0].IBANHash, "unresolved candidates keep their hash for rule creation")
}
