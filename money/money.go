// Package money holds the point-of-sale arithmetic. Amounts keep full
// decimal precision; rounding to two fraction digits happens only for
// display.
package money

import (
	"github.com/shopspring/decimal"
)

// Cent is the smallest amount the drawer distinguishes. Differences below it
// count as zero when reconciling.
var Cent = decimal.New(1, -2)

// Currency prefix used by the store (bolivianos).
const Currency = "Bs."

// Subtotal returns quantity × unitPrice.
func Subtotal(quantity int, unitPrice decimal.Decimal) decimal.Decimal {
	return unitPrice.Mul(decimal.NewFromInt(int64(quantity)))
}

// Sum adds amounts in order.
func Sum(amounts ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, a := range amounts {
		total = total.Add(a)
	}
	return total
}

// Change is tendered − total. ok is false when the tender does not cover the
// total; the returned change is then the (negative) raw difference, for
// preview screens only.
func Change(tendered, total decimal.Decimal) (change decimal.Decimal, ok bool) {
	change = tendered.Sub(total)
	return change, !change.IsNegative()
}

// Shortfall is what is still owed on a split payment, never negative.
func Shortfall(cash, qr, total decimal.Decimal) decimal.Decimal {
	missing := total.Sub(cash.Add(qr))
	if missing.IsNegative() {
		return decimal.Zero
	}
	return missing
}

// NegligibleDiff reports whether |d| is under one cent.
func NegligibleDiff(d decimal.Decimal) bool {
	return d.Abs().LessThan(Cent)
}

// Round2 rounds half away from zero to two fraction digits.
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// Display renders an amount the way the receipts and screens show it,
// e.g. "Bs. 60.00".
func Display(d decimal.Decimal) string {
	return Currency + " " + d.StringFixed(2)
}
