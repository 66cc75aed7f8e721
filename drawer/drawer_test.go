package drawer

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"licoreria-pos/model"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

var t0 = time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

func opened(t *testing.T, float string) *Drawer {
	t.Helper()
	d := New()
	require.NoError(t, d.Open(1, dec(float), t0))
	return d
}

func cashSale(amount string) Movement {
	return Movement{Kind: model.Income, Amount: dec(amount), Method: model.MethodCash, Source: model.SourceSale}
}

func TestOpenTwiceFails(t *testing.T) {
	d := opened(t, "100")
	err := d.Open(2, dec("50"), t0)
	assert.True(t, errors.Is(err, ErrAlreadyOpen))
	assert.Equal(t, int64(1), d.Session().ID)
}

func TestOpenRejectsNegativeFloat(t *testing.T) {
	d := New()
	assert.True(t, errors.Is(d.Open(1, dec("-1"), t0), ErrNegativeFloat))
	assert.Equal(t, NoSession, d.Status())
}

func TestRecordRequiresOpenSession(t *testing.T) {
	d := New()
	assert.True(t, errors.Is(d.Record(cashSale("10")), ErrNoOpenSession))

	d = opened(t, "0")
	assert.True(t, errors.Is(d.Record(cashSale("0")), ErrInvalidMovement))
	assert.Empty(t, d.Movements())
}

func TestCloseBalanced(t *testing.T) {
	d := opened(t, "100")
	require.NoError(t, d.Record(cashSale("60")))

	rec, err := d.Close(dec("160"), t0.Add(8*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, Balanced, rec.Outcome)
	assert.True(t, rec.Expected.Equal(dec("160")))
	assert.True(t, rec.Variance.IsZero())
	assert.Equal(t, Closed, d.Status())
}

func TestCloseShortage(t *testing.T) {
	d := opened(t, "100")

	rec, err := d.Close(dec("90"), t0)
	require.NoError(t, err)
	assert.Equal(t, Shortage, rec.Outcome)
	assert.True(t, rec.Variance.Equal(dec("-10")))
	assert.True(t, rec.Magnitude.Equal(dec("10.00")))
}

func TestCloseErrors(t *testing.T) {
	d := New()
	_, err := d.Close(dec("10"), t0)
	assert.True(t, errors.Is(err, ErrNoOpenSession))

	d = opened(t, "10")
	_, err = d.Close(dec("-0.01"), t0)
	assert.True(t, errors.Is(err, ErrNegativeCount))
	assert.Equal(t, Open, d.Status(), "rejected close keeps the session open")

	_, err = d.Close(dec("10"), t0)
	require.NoError(t, err)
	_, err = d.Close(dec("10"), t0)
	assert.True(t, errors.Is(err, ErrNoOpenSession))
}

func TestReopenAfterClose(t *testing.T) {
	d := opened(t, "10")
	require.NoError(t, d.Record(cashSale("5")))
	_, err := d.Close(dec("15"), t0)
	require.NoError(t, err)

	require.NoError(t, d.Open(2, dec("20"), t0))
	assert.Empty(t, d.Movements())
	assert.True(t, d.Summary().CurrentCash.Equal(dec("20")))
}

func TestSummaryOnlyCashMovesCurrentCash(t *testing.T) {
	d := opened(t, "100")
	for _, m := range []Movement{
		cashSale("60"),
		{Kind: model.Income, Amount: dec("40"), Method: model.MethodQR, Source: model.SourceSale},
		{Kind: model.Expense, Amount: dec("25"), Method: model.MethodCash, Source: model.SourcePurchase},
		{Kind: model.Income, Amount: dec("15"), Method: model.MethodCash, Source: model.SourceCreditPayment},
		{Kind: model.Expense, Amount: dec("30"), Method: model.MethodCash, Concept: "Retiro de efectivo"},
	} {
		require.NoError(t, d.Record(m))
	}

	s := d.Summary()
	// 100 + 60 − 25 + 15 − 30
	assert.True(t, s.CurrentCash.Equal(dec("120")), "current cash %s", s.CurrentCash)
	assert.True(t, s.TotalIncome.Equal(dec("115")))
	assert.True(t, s.TotalExpense.Equal(dec("55")))
	assert.True(t, s.Balance.Equal(dec("60")))
	assert.True(t, s.IncomeByMethod[model.MethodQR].Equal(dec("40")))
	assert.True(t, s.ExpenseByMethod[model.MethodCash].Equal(dec("55")))
	assert.Equal(t, 2, s.Sales)
	assert.Equal(t, 1, s.Purchases)
	assert.Equal(t, 1, s.CreditPayments)
	assert.Equal(t, 1, s.Manual)
	assert.Equal(t, 4, s.Operations())
}

func TestClassify(t *testing.T) {
	cases := map[string]Outcome{
		"0":      Balanced,
		"0.009":  Balanced,
		"-0.009": Balanced,
		"0.01":   Surplus,
		"-0.01":  Shortage,
		"12.5":   Surplus,
	}
	for v, want := range cases {
		assert.Equal(t, want, Classify(dec(v)), "variance %s", v)
	}
}

func TestRestore(t *testing.T) {
	d, err := Restore(nil, nil)
	require.NoError(t, err)
	assert.Equal(t, NoSession, d.Status())

	session := &model.DrawerSession{
		ID:           7,
		OpenedAt:     model.Timestamp{Time: t0},
		OpeningFloat: dec("100"),
		Status:       model.DrawerOpen,
	}
	movements := []model.Movement{
		{ID: 1, Kind: model.Income, Amount: dec("60"), Method: model.MethodCash, ReferenceType: model.SourceSale, ReferenceID: 3},
		{ID: 2, Kind: model.Income, Amount: dec("0"), Method: model.MethodCash},
		{ID: 3, Kind: model.Expense, Amount: dec("10"), Method: model.MethodCash},
	}
	d, err = Restore(session, movements)
	require.NoError(t, err)
	assert.Equal(t, Open, d.Status())
	assert.Len(t, d.Movements(), 2, "zero-amount movement is skipped")
	assert.True(t, d.Summary().CurrentCash.Equal(dec("150")))

	closedAt := model.Timestamp{Time: t0.Add(time.Hour)}
	session.Status = model.DrawerClosed
	session.ClosedAt = &closedAt
	d, err = Restore(session, movements)
	require.NoError(t, err)
	assert.Equal(t, Closed, d.Status())
	assert.Equal(t, closedAt.Time, d.Session().ClosedAt)
}
