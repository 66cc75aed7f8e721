package model

// PaymentMethod is the settlement method as the upstream API spells it.
type PaymentMethod string

const (
	MethodCash   PaymentMethod = "efectivo"
	MethodQR     PaymentMethod = "qr"
	MethodCredit PaymentMethod = "credito"
	MethodSplit  PaymentMethod = "mixto"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case MethodCash, MethodQR, MethodCredit, MethodSplit:
		return true
	}
	return false
}

// MovementKind is the direction of a drawer movement.
type MovementKind string

const (
	Income  MovementKind = "ingreso"
	Expense MovementKind = "egreso"
)

// MovementSource names what produced a drawer movement (referencia_tipo).
// Manual movements such as withdrawals carry no source.
type MovementSource string

const (
	SourceSale          MovementSource = "venta"
	SourcePurchase      MovementSource = "compra"
	SourceCreditPayment MovementSource = "pago_credito"
	SourceManual        MovementSource = ""
)
