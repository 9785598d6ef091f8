package accounting

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eris-dev/eris/internal/model"
	"github.com/eris-dev/eris/internal/store"
)

func approve(string) bool { return true }
func decline(string) bool { return false }

func TestAdjust(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	m := addMember(t, st, model.Member{
		Name:        "Ada Lovelace",
		Fee:         dec("20.00"),
		Account:     dec("-30.00"),
		LastPayment: day(2024, 1, 1),
	})

	svc := newTestService(st, day(2024, 3, 10))
	require.NoError(t, svc.Adjust(ctx, m.ID, dec("0.00"), "waived arrears", approve))

	got, err := st.Member(ctx, m.ID)
	require.NoError(t, err)
	assert.True(t, got.Account.IsZero(), "balance set to target exactly")

	txs, err := st.Transactions(ctx, store.TransactionFilter{MemberID: m.ID})
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.True(t, txs[0].Amount.Equal(dec("30.00")), "delta recorded")
	assert.Contains(t, txs[0].Description, "manual account adjustment")
	assert.Contains(t, txs[0].Description, "from -30.00 EUR")
	assert.Contains(t, txs[0].Description, "waived arrears")
}

func TestAdjustDeclined(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	m := addMember(t, st, model.Member{
		Name:        "Ada Lovelace",
		Account:     dec("-30.00"),
		Fee:         dec("20.00"),
		LastPayment: day(2024, 1, 1),
	})

	svc := newTestService(st, day(2024, 3, 10))
	err := svc.Adjust(ctx, m.ID, dec("0.00"), "", decline)
	require.ErrorIs(t, err, ErrAborted)

	got, err := st.Member(ctx, m.ID)
	require.NoError(t, err)
	assert.True(t, got.Account.Equal(dec("-30.00")), "decline leaves balance untouched")

	txs, err := st.Transactions(ctx, store.TransactionFilter{})
	require.NoError(t, err)
	assert.Empty(t, txs, "decline posts nothing")
}

func TestAdjustUnknownMember(t *testing.T) {
	svc := newTestService(store.NewMemory(), day(2024, 3, 10))
	err := svc.Adjust(context.Background(), 42, dec("0.00"), "", approve)
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestUndo(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	m := addMember(t, st, model.Member{
		Name:        "Ada Lovelace",
		Fee:         dec("20.00"),
		Account:     dec("20.00"),
		LastPayment: day(2024, 2, 1),
	})
	paid, err := st.AppendTransaction(ctx, &model.Transaction{
		MemberID:    m.ID,
		Date:        day(2024, 2, 1),
		Amount:      dec("20.00"),
		Description: "payment",
		AccountName: "LOVELACE, ADA",
	})
	require.NoError(t, err)

	svc := newTestService(st, day(2024, 3, 10))
	require.NoError(t, svc.Undo(ctx, paid.ID, approve))

	got, err := st.Member(ctx, m.ID)
	require.NoError(t, err)
	assert.True(t, got.Account.IsZero(), "payment amount subtracted again")

	txs, err := st.Transactions(ctx, store.TransactionFilter{MemberID: m.ID})
	require.NoError(t, err)
	require.Len(t, txs, 2, "original entry kept, compensating entry appended")
	undo := txs[1]
	assert.True(t, undo.Amount.Equal(dec("-20.00")))
	assert.Equal(t, "[UNDO] payment", undo.Description)
	assert.True(t, undo.Date.Equal(day(2024, 3, 10)), "undo dated today")
}

func TestUndoDeclined(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	m := addMember(t, st, model.Member{
		Name:        "Ada Lovelace",
		Fee:         dec("20.00"),
		Account:     dec("20.00"),
		LastPayment: day(2024, 2, 1),
	})
	paid, err := st.AppendTransaction(ctx, &model.Transaction{
		MemberID: m.ID,
		Date:     day(2024, 2, 1),
		Amount:   dec("20.00"),
	})
	require.NoError(t, err)

	svc := newTestService(st, day(2024, 3, 10))
	require.ErrorIs(t, svc.Undo(ctx, paid.ID, decline), ErrAborted)

	got, err := st.Member(ctx, m.ID)
	require.NoError(t, err)
	assert.True(t, got.Account.Equal(dec("20.00")))

	txs, err := st.Transactions(ctx, store.TransactionFilter{})
	require.NoError(t, err)
	assert.Len(t, txs, 1)
}

func TestUndoUnknownTransaction(t *testing.T) {
	svc := newTestService(store.NewMemory(), day(2024, 3, 10))
	err := svc.Undo(context.Background(), 42, approve)
	require.ErrorIs(t, err, store.ErrNotFound)
}
