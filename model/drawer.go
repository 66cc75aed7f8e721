package model

import (
	"github.com/shopspring/decimal"
)

// DrawerSession is a row of the upstream caja table.
type DrawerSession struct {
	ID           int64           `json:"id" validate:"gt=0"`
	OpenedAt     Timestamp       `json:"fecha_apertura"`
	ClosedAt     *Timestamp      `json:"fecha_cierre,omitempty"`
	OpeningFloat decimal.Decimal `json:"monto_inicial" validate:"gte=0"`
	Status       string          `json:"estado" validate:"required,oneof=abierta cerrada"`
	User         string          `json:"usuario,omitempty"`

	// Populated on closed sessions only.
	ExpectedCash decimal.Decimal `json:"efectivo_esperado"`
	CountedCash  decimal.Decimal `json:"efectivo_contado"`
	Difference   decimal.Decimal `json:"diferencia"`
	TotalIncome  decimal.Decimal `json:"total_ingresos"`
	TotalExpense decimal.Decimal `json:"total_egresos"`
}

const (
	DrawerOpen   = "abierta"
	DrawerClosed = "cerrada"
)

// Movement is a row of the upstream movimientos_caja table.
type Movement struct {
	ID            int64           `json:"id"`
	DrawerID      int64           `json:"caja_id"`
	Kind          MovementKind    `json:"tipo" validate:"required,oneof=ingreso egreso"`
	Concept       string          `json:"concepto"`
	Amount        decimal.Decimal `json:"monto" validate:"gt=0"`
	Method        PaymentMethod   `json:"metodo_pago,omitempty"`
	ReferenceID   int64           `json:"referencia_id,omitempty"`
	ReferenceType MovementSource  `json:"referencia_tipo,omitempty"`
	Date          Timestamp       `json:"fecha"`
}

// DrawerReport is the upstream's own summary (resumen). It is only used to
// cross-check the locally recomputed figures.
type DrawerReport struct {
	OpeningFloat   decimal.Decimal `json:"monto_inicial"`
	CurrentCash    decimal.Decimal `json:"efectivo_actual"`
	TotalIncome    decimal.Decimal `json:"total_ingresos"`
	TotalExpense   decimal.Decimal `json:"total_egresos"`
	Sales          int             `json:"num_ventas"`
	Purchases      int             `json:"num_compras"`
	CreditPayments int             `json:"num_pagos"`
}

// CurrentDrawer is the answer of GET /api/caja/actual. Session is nil when
// no drawer is open.
type CurrentDrawer struct {
	Session   *DrawerSession `json:"caja"`
	Movements []Movement     `json:"movimientos" validate:"dive"`
	Report    DrawerReport   `json:"resumen"`
}

// CloseResult is the upstream's answer to closing a drawer.
type CloseResult struct {
	ExpectedCash decimal.Decimal `json:"efectivo_esperado"`
	CountedCash  decimal.Decimal `json:"efectivo_contado"`
	Difference   decimal.Decimal `json:"diferencia"`
	TotalIncome  decimal.Decimal `json:"total_ingresos"`
	TotalExpense decimal.Decimal `json:"total_egresos"`
}

// Withdrawal is the body of POST /api/caja/retiro.
type Withdrawal struct {
	Amount  decimal.Decimal `json:"monto" validate:"gt=0"`
	Concept string          `json:"concepto"`
}
