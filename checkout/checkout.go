// Package checkout turns a cart and a chosen payment into the sale request
// sent to the upstream Sales API. Validation fails fast and reports the first
// violation; nothing here performs I/O.
package checkout

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"licoreria-pos/apperr"
	"licoreria-pos/cart"
	"licoreria-pos/model"
	"licoreria-pos/money"
)

var (
	ErrEmptyCart          = apperr.Validation("empty_cart", "cart is empty")
	ErrUnknownMethod      = apperr.Validation("unknown_payment_method", "unknown payment method")
	ErrNegativeAmount     = apperr.Validation("negative_amount", "payment amounts cannot be negative")
	ErrCustomerRequired   = apperr.Validation("customer_required", "customer name is required for credit sales")
	ErrInsufficientTender = apperr.BusinessRule("insufficient_tender", "amount received must cover the total")
	ErrSplitUnderpaid     = apperr.BusinessRule("split_underpaid", "cash plus QR must cover the total")
)

// Payment is the method chosen at the counter plus the fields that method
// needs. Tendered is used by cash; Cash and QR by split; the customer fields
// by credit.
type Payment struct {
	Method        model.PaymentMethod
	Tendered      decimal.Decimal
	Cash          decimal.Decimal
	QR            decimal.Decimal
	CustomerName  string
	CustomerPhone string
}

// Resolution is a validated sale ready for submission.
type Resolution struct {
	Request model.SaleRequest
	// Change owed to the customer; always zero except for cash.
	Change decimal.Decimal
}

// Resolve validates p against c and builds the sale request.
func Resolve(c *cart.Cart, p Payment) (Resolution, error) {
	if c == nil || c.IsEmpty() {
		return Resolution{}, ErrEmptyCart
	}
	if p.Tendered.IsNegative() || p.Cash.IsNegative() || p.QR.IsNegative() {
		return Resolution{}, ErrNegativeAmount
	}

	total := c.Total()
	req := model.SaleRequest{
		Total:         total,
		PaymentMethod: p.Method,
		CashAmount:    decimal.Zero,
		QRAmount:      decimal.Zero,
		Items:         items(c),
	}
	res := Resolution{Change: decimal.Zero}

	switch p.Method {
	case model.MethodCash:
		change, ok := money.Change(p.Tendered, total)
		if !ok {
			return Resolution{}, fmt.Errorf("%w: received %s, total %s",
				ErrInsufficientTender, money.Display(p.Tendered), money.Display(total))
		}
		req.CashAmount = total
		res.Change = change
	case model.MethodQR:
		req.QRAmount = total
	case model.MethodCredit:
		name := strings.TrimSpace(p.CustomerName)
		if name == "" {
			return Resolution{}, ErrCustomerRequired
		}
		req.CustomerName = name
		req.CustomerPhone = strings.TrimSpace(p.CustomerPhone)
	case model.MethodSplit:
		if p.Cash.Add(p.QR).LessThan(total) {
			return Resolution{}, fmt.Errorf("%w: missing %s",
				ErrSplitUnderpaid, money.Display(money.Shortfall(p.Cash, p.QR, total)))
		}
		// overpayment is accepted as entered; split sales give no change
		req.CashAmount = p.Cash
		req.QRAmount = p.QR
	default:
		return Resolution{}, fmt.Errorf("%w: %q", ErrUnknownMethod, p.Method)
	}

	res.Request = req
	return res, nil
}

func items(c *cart.Cart) []model.SaleItem {
	lines := c.Lines()
	out := make([]model.SaleItem, 0, len(lines))
	for _, l := range lines {
		out = append(out, model.SaleItem{
			ProductID:   l.ProductID,
			ProductName: l.Name,
			Quantity:    l.Quantity,
			UnitPrice:   l.UnitPrice,
			Subtotal:    l.Subtotal(),
		})
	}
	return out
}

// Quote is the live preview shown while the cashier types amounts.
type Quote struct {
	Total     decimal.Decimal
	Units     int
	Change    decimal.Decimal
	Shortfall decimal.Decimal
	// Covered reports whether Resolve would accept the amounts.
	Covered bool
}

// Preview computes the figures for the checkout screen without rejecting
// anything. Change may be negative while the tender is still short.
func Preview(c *cart.Cart, p Payment) Quote {
	q := Quote{Total: c.Total(), Units: c.UnitCount(), Change: decimal.Zero, Shortfall: decimal.Zero}
	switch p.Method {
	case model.MethodCash:
		q.Change, q.Covered = money.Change(p.Tendered, q.Total)
	case model.MethodSplit:
		q.Shortfall = money.Shortfall(p.Cash, p.QR, q.Total)
		q.Covered = q.Shortfall.IsZero()
	case model.MethodQR:
		q.Covered = true
	case model.MethodCredit:
		q.Covered = strings.TrimSpace(p.CustomerName) != ""
	}
	if c.IsEmpty() {
		q.Covered = false
	}
	return q
}
