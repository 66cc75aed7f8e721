package checkout

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"licoreria-pos/apperr"
	"licoreria-pos/cart"
	"licoreria-pos/model"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// 2 × 15.00 + 1 × 30.00 = 60.00
func sixtyCart() *cart.Cart {
	return cart.New(
		cart.Line{ProductID: 1, Name: "Paceña 620ml", Quantity: 2, UnitPrice: dec("15.00"), ReferencePrice: dec("15.00"), StockCeiling: 10},
		cart.Line{ProductID: 2, Name: "Singani Casa Real", Quantity: 1, UnitPrice: dec("30.00"), ReferencePrice: dec("30.00"), StockCeiling: 4},
	)
}

func TestResolveRejectsEmptyCart(t *testing.T) {
	_, err := Resolve(cart.New(), Payment{Method: model.MethodQR})
	assert.True(t, errors.Is(err, ErrEmptyCart))
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestResolveCash(t *testing.T) {
	res, err := Resolve(sixtyCart(), Payment{Method: model.MethodCash, Tendered: dec("100")})
	require.NoError(t, err)

	assert.True(t, res.Change.Equal(dec("40")))
	req := res.Request
	assert.Equal(t, model.MethodCash, req.PaymentMethod)
	assert.True(t, req.Total.Equal(dec("60")))
	assert.True(t, req.CashAmount.Equal(dec("60")), "cash attributed is the total, not the tender")
	assert.True(t, req.QRAmount.IsZero())
	require.Len(t, req.Items, 2)
	assert.Equal(t, "Paceña 620ml", req.Items[0].ProductName)
	assert.Equal(t, 2, req.Items[0].Quantity)
	assert.True(t, req.Items[0].Subtotal.Equal(dec("30")))
	require.NoError(t, model.Validate(req))
}

func TestResolveCashExactAndShort(t *testing.T) {
	res, err := Resolve(sixtyCart(), Payment{Method: model.MethodCash, Tendered: dec("60")})
	require.NoError(t, err)
	assert.True(t, res.Change.IsZero())

	_, err = Resolve(sixtyCart(), Payment{Method: model.MethodCash, Tendered: dec("59.99")})
	assert.True(t, errors.Is(err, ErrInsufficientTender))
	assert.Equal(t, apperr.KindBusinessRule, apperr.KindOf(err))
	assert.Contains(t, err.Error(), "Bs. 60.00")
}

func TestResolveQR(t *testing.T) {
	res, err := Resolve(sixtyCart(), Payment{Method: model.MethodQR})
	require.NoError(t, err)
	assert.True(t, res.Request.QRAmount.Equal(dec("60")))
	assert.True(t, res.Request.CashAmount.IsZero())
	assert.True(t, res.Change.IsZero())
}

func TestResolveCredit(t *testing.T) {
	_, err := Resolve(sixtyCart(), Payment{Method: model.MethodCredit, CustomerName: "   "})
	assert.True(t, errors.Is(err, ErrCustomerRequired))

	res, err := Resolve(sixtyCart(), Payment{Method: model.MethodCredit, CustomerName: "  Don Pedro ", CustomerPhone: " 70012345 "})
	require.NoError(t, err)
	assert.Equal(t, "Don Pedro", res.Request.CustomerName)
	assert.Equal(t, "70012345", res.Request.CustomerPhone)
	assert.True(t, res.Request.CashAmount.IsZero())
	assert.True(t, res.Request.QRAmount.IsZero())
}

func TestResolveSplit(t *testing.T) {
	cases := []struct {
		name     string
		cash, qr string
		ok       bool
	}{
		{"exact", "20", "40", true},
		{"over", "50", "40", true},
		{"under by a cent", "20", "39.99", false},
		{"nothing", "0", "0", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res, err := Resolve(sixtyCart(), Payment{Method: model.MethodSplit, Cash: dec(tc.cash), QR: dec(tc.qr)})
			if !tc.ok {
				assert.True(t, errors.Is(err, ErrSplitUnderpaid))
				return
			}
			require.NoError(t, err)
			assert.True(t, res.Request.CashAmount.Equal(dec(tc.cash)))
			assert.True(t, res.Request.QRAmount.Equal(dec(tc.qr)))
			assert.True(t, res.Change.IsZero(), "split never computes change")
		})
	}
}

func TestResolveRejectsUnknownAndNegative(t *testing.T) {
	_, err := Resolve(sixtyCart(), Payment{Method: "tarjeta"})
	assert.True(t, errors.Is(err, ErrUnknownMethod))

	_, err = Resolve(sixtyCart(), Payment{Method: model.MethodSplit, Cash: dec("-10"), QR: dec("80")})
	assert.True(t, errors.Is(err, ErrNegativeAmount))
}

func TestPreview(t *testing.T) {
	q := Preview(sixtyCart(), Payment{Method: model.MethodCash, Tendered: dec("50")})
	assert.True(t, q.Change.Equal(dec("-10")))
	assert.False(t, q.Covered)
	assert.Equal(t, 3, q.Units)

	q = Preview(sixtyCart(), Payment{Method: model.MethodSplit, Cash: dec("10"), QR: dec("20")})
	assert.True(t, q.Shortfall.Equal(dec("30")))
	assert.False(t, q.Covered)

	q = Preview(cart.New(), Payment{Method: model.MethodQR})
	assert.False(t, q.Covered)
}
