package cart

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"licoreria-pos/model"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

var (
	pacena  = model.Product{ID: 1, Name: "Paceña 620ml", Stock: 3, SalePrice: dec("15.00")}
	singani = model.Product{ID: 2, Name: "Singani Casa Real", Stock: 5, SalePrice: dec("30.00")}
)

func TestTotalScenario(t *testing.T) {
	c := New()
	_, err := c.Add(pacena, pacena.SalePrice)
	require.NoError(t, err)
	_, err = c.Add(pacena, pacena.SalePrice)
	require.NoError(t, err)
	_, err = c.Add(singani, singani.SalePrice)
	require.NoError(t, err)

	assert.True(t, c.Total().Equal(dec("60.00")), "total %s", c.Total())
	assert.Equal(t, 2, c.ItemCount())
	assert.Equal(t, 3, c.UnitCount())
}

func TestTotalIsExactSum(t *testing.T) {
	c := New(
		Line{ProductID: 1, Quantity: 3, UnitPrice: dec("0.333"), StockCeiling: 10},
		Line{ProductID: 2, Quantity: 7, UnitPrice: dec("1.4285"), StockCeiling: 10},
	)
	want := dec("0.999").Add(dec("9.9995"))
	assert.True(t, c.Total().Equal(want), "total %s", c.Total())
}

func TestAddAtCeilingIsRejected(t *testing.T) {
	c := New()
	for i := 0; i < pacena.Stock; i++ {
		_, err := c.Add(pacena, pacena.SalePrice)
		require.NoError(t, err)
	}
	before := c.Lines()

	_, err := c.Add(pacena, pacena.SalePrice)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrStockExceeded))
	assert.Equal(t, before, c.Lines(), "cart must be unchanged")
}

func TestAddOutOfStockProduct(t *testing.T) {
	c := New()
	_, err := c.Add(model.Product{ID: 9, Name: "Vino", Stock: 0}, dec("50"))
	assert.True(t, errors.Is(err, ErrStockExceeded))
	assert.True(t, c.IsEmpty())
}

func TestAddKeepsInsertionOrder(t *testing.T) {
	c := New()
	_, _ = c.Add(singani, singani.SalePrice)
	_, _ = c.Add(pacena, pacena.SalePrice)
	_, _ = c.Add(singani, singani.SalePrice)

	lines := c.Lines()
	require.Len(t, lines, 2)
	assert.Equal(t, int64(2), lines[0].ProductID)
	assert.Equal(t, 2, lines[0].Quantity)
	assert.Equal(t, int64(1), lines[1].ProductID)
}

func TestSetQuantity(t *testing.T) {
	c := New(Line{ProductID: 1, Quantity: 1, UnitPrice: dec("15"), ReferencePrice: dec("15"), StockCeiling: 3})

	require.NoError(t, c.SetQuantity(1, 3))
	l, _ := c.Line(1)
	assert.Equal(t, 3, l.Quantity)

	err := c.SetQuantity(1, 4)
	assert.True(t, errors.Is(err, ErrStockExceeded))
	l, _ = c.Line(1)
	assert.Equal(t, 3, l.Quantity, "rejected update leaves quantity")

	require.NoError(t, c.SetQuantity(1, 0))
	assert.True(t, c.IsEmpty(), "quantity below 1 removes the line")

	assert.True(t, errors.Is(c.SetQuantity(42, 1), ErrLineNotFound))
}

func TestSetQuantityNeverLeavesBounds(t *testing.T) {
	c := New(Line{ProductID: 1, Quantity: 2, UnitPrice: dec("1"), StockCeiling: 4})
	for q := -3; q <= 8; q++ {
		_ = c.SetQuantity(1, q)
		if l, ok := c.Line(1); ok {
			assert.GreaterOrEqual(t, l.Quantity, 1)
			assert.LessOrEqual(t, l.Quantity, l.StockCeiling)
		} else {
			c = New(Line{ProductID: 1, Quantity: 2, UnitPrice: dec("1"), StockCeiling: 4})
		}
	}
}

func TestAdjust(t *testing.T) {
	c := New(Line{ProductID: 1, Quantity: 2, UnitPrice: dec("15"), StockCeiling: 2})

	assert.True(t, errors.Is(c.Adjust(1, 1), ErrStockExceeded))
	require.NoError(t, c.Adjust(1, -1))
	l, _ := c.Line(1)
	assert.Equal(t, 1, l.Quantity)

	require.NoError(t, c.Adjust(1, -1))
	assert.True(t, c.IsEmpty())
}

func TestSetUnitPrice(t *testing.T) {
	c := New(Line{ProductID: 1, Quantity: 2, UnitPrice: dec("15"), ReferencePrice: dec("15"), StockCeiling: 5})

	got, err := c.SetUnitPrice(1, dec("12.50"))
	require.NoError(t, err)
	assert.True(t, got.Equal(dec("12.50")))
	assert.True(t, c.Total().Equal(dec("25")))

	got, err = c.SetUnitPrice(1, dec("0"))
	assert.True(t, errors.Is(err, ErrInvalidPrice))
	assert.True(t, got.Equal(dec("15")), "invalid price reverts to the reference price")
	l, _ := c.Line(1)
	assert.True(t, l.UnitPrice.Equal(dec("15")))

	_, err = c.SetUnitPrice(1, dec("-3"))
	assert.True(t, errors.Is(err, ErrInvalidPrice))
}

func TestRemoveAndClear(t *testing.T) {
	c := New(
		Line{ProductID: 1, Quantity: 1, UnitPrice: dec("1"), StockCeiling: 1},
		Line{ProductID: 2, Quantity: 1, UnitPrice: dec("1"), StockCeiling: 1},
	)
	assert.True(t, c.Remove(1))
	assert.False(t, c.Remove(1))
	assert.Equal(t, 1, c.ItemCount())

	c.Clear()
	assert.True(t, c.IsEmpty())
	assert.True(t, c.Total().IsZero())
}
