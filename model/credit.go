package model

import (
	"github.com/shopspring/decimal"
)

// Credit is a customer debt created by a sale on store credit (fiado).
type Credit struct {
	ID            int64           `json:"id" validate:"gt=0"`
	SaleID        int64           `json:"venta_id"`
	CustomerName  string          `json:"cliente_nombre" validate:"required"`
	CustomerPhone string          `json:"cliente_telefono,omitempty"`
	Total         decimal.Decimal `json:"monto_total"`
	Paid          decimal.Decimal `json:"monto_pagado"`
	Outstanding   decimal.Decimal `json:"saldo_pendiente"`
	Status        string          `json:"estado"`
	CreatedAt     Timestamp       `json:"fecha_credito"`
	LastPaymentAt *Timestamp      `json:"fecha_ultimo_pago,omitempty"`
}

// CreditPayment is the body of POST /api/creditos/{id}/pagar.
type CreditPayment struct {
	Amount decimal.Decimal `json:"monto" validate:"gt=0"`
	Method PaymentMethod   `json:"metodo_pago" validate:"required,oneof=efectivo qr"`
}
