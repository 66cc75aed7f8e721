// Package cart is the point-of-sale cart ledger: an ordered set of lines,
// unique by product, each capped by the stock seen when it was added.
package cart

import (
	"fmt"

	"github.com/shopspring/decimal"

	"licoreria-pos/apperr"
	"licoreria-pos/model"
	"licoreria-pos/money"
)

var (
	ErrStockExceeded = apperr.Validation("stock_exceeded", "quantity exceeds available stock")
	ErrInvalidPrice  = apperr.Validation("invalid_price", "unit price must be greater than 0")
	ErrLineNotFound  = apperr.NotFound("line_not_found", "product is not in the cart")
)

// Line is one product in the cart. UnitPrice is editable at the counter and
// independent of the catalog; ReferencePrice is the catalog price at add time.
type Line struct {
	ProductID      int64
	Name           string
	Quantity       int
	UnitPrice      decimal.Decimal
	ReferencePrice decimal.Decimal
	StockCeiling   int
}

func (l Line) Subtotal() decimal.Decimal {
	return money.Subtotal(l.Quantity, l.UnitPrice)
}

// Cart is not safe for concurrent use; the owner serializes access.
type Cart struct {
	lines []Line
}

// New rebuilds a cart from persisted lines, keeping their order.
func New(lines ...Line) *Cart {
	c := &Cart{lines: make([]Line, 0, len(lines))}
	c.lines = append(c.lines, lines...)
	return c
}

// Lines returns a copy of the lines in insertion order.
func (c *Cart) Lines() []Line {
	out := make([]Line, len(c.lines))
	copy(out, c.lines)
	return out
}

func (c *Cart) Line(productID int64) (Line, bool) {
	if i := c.index(productID); i >= 0 {
		return c.lines[i], true
	}
	return Line{}, false
}

func (c *Cart) index(productID int64) int {
	for i := range c.lines {
		if c.lines[i].ProductID == productID {
			return i
		}
	}
	return -1
}

// Add puts one unit of p in the cart. A product already in the cart is
// incremented; the cart is left unchanged when that would pass the stock
// ceiling.
func (c *Cart) Add(p model.Product, referencePrice decimal.Decimal) (Line, error) {
	if i := c.index(p.ID); i >= 0 {
		l := &c.lines[i]
		if l.Quantity+1 > l.StockCeiling {
			return *l, fmt.Errorf("%w: max %d", ErrStockExceeded, l.StockCeiling)
		}
		l.Quantity++
		return *l, nil
	}
	if p.Stock < 1 {
		return Line{}, fmt.Errorf("%w: max %d", ErrStockExceeded, p.Stock)
	}
	l := Line{
		ProductID:      p.ID,
		Name:           p.Name,
		Quantity:       1,
		UnitPrice:      referencePrice,
		ReferencePrice: referencePrice,
		StockCeiling:   p.Stock,
	}
	c.lines = append(c.lines, l)
	return l, nil
}

// SetQuantity sets an absolute quantity. Anything under 1 removes the line.
func (c *Cart) SetQuantity(productID int64, quantity int) error {
	i := c.index(productID)
	if i < 0 {
		return ErrLineNotFound
	}
	if quantity < 1 {
		c.Remove(productID)
		return nil
	}
	if quantity > c.lines[i].StockCeiling {
		return fmt.Errorf("%w: max %d", ErrStockExceeded, c.lines[i].StockCeiling)
	}
	c.lines[i].Quantity = quantity
	return nil
}

// Adjust moves the quantity by delta (the +/- buttons).
func (c *Cart) Adjust(productID int64, delta int) error {
	i := c.index(productID)
	if i < 0 {
		return ErrLineNotFound
	}
	return c.SetQuantity(productID, c.lines[i].Quantity+delta)
}

// SetUnitPrice overrides the line price. A non-positive price puts the line
// back on its reference price and reports ErrInvalidPrice.
func (c *Cart) SetUnitPrice(productID int64, price decimal.Decimal) (decimal.Decimal, error) {
	i := c.index(productID)
	if i < 0 {
		return decimal.Zero, ErrLineNotFound
	}
	l := &c.lines[i]
	if !price.IsPositive() {
		l.UnitPrice = l.ReferencePrice
		return l.UnitPrice, ErrInvalidPrice
	}
	l.UnitPrice = price
	return l.UnitPrice, nil
}

// Remove drops the line; it reports whether one was there.
func (c *Cart) Remove(productID int64) bool {
	i := c.index(productID)
	if i < 0 {
		return false
	}
	c.lines = append(c.lines[:i], c.lines[i+1:]...)
	return true
}

func (c *Cart) Clear() { c.lines = c.lines[:0] }

func (c *Cart) IsEmpty() bool { return len(c.lines) == 0 }

// ItemCount is the number of distinct lines.
func (c *Cart) ItemCount() int { return len(c.lines) }

// UnitCount is the sum of quantities.
func (c *Cart) UnitCount() int {
	n := 0
	for _, l := range c.lines {
		n += l.Quantity
	}
	return n
}

// Total is Σ quantity × unit price at full precision.
func (c *Cart) Total() decimal.Decimal {
	total := decimal.Zero
	for _, l := range c.lines {
		total = total.Add(l.Subtotal())
	}
	return total
}
