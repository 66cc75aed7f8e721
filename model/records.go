package model

import (
	"github.com/shopspring/decimal"
)

// Product is a catalog entry as served by GET /api/productos.
type Product struct {
	ID            int64           `json:"id" validate:"gt=0"`
	Name          string          `json:"nombre" validate:"required"`
	Description   string          `json:"descripcion,omitempty"`
	Category      string          `json:"categoria"`
	Unit          string          `json:"unidad,omitempty"`
	SalePrice     decimal.Decimal `json:"precio_venta" validate:"gte=0"`
	PurchasePrice decimal.Decimal `json:"precio_compra" validate:"gte=0"`
	Stock         int             `json:"stock"`
	StockMinimum  int             `json:"stock_minimo"`
	Image         string          `json:"imagen,omitempty"`
}

// LowStock mirrors the catalog badge: at or under the configured minimum.
func (p Product) LowStock() bool { return p.Stock <= p.StockMinimum }

// SaleItem is one line of a sale submission.
type SaleItem struct {
	ProductID   int64           `json:"producto_id" validate:"gt=0"`
	ProductName string          `json:"producto_nombre" validate:"required"`
	Quantity    int             `json:"cantidad" validate:"gte=1"`
	UnitPrice   decimal.Decimal `json:"precio_unitario" validate:"gt=0"`
	Subtotal    decimal.Decimal `json:"subtotal" validate:"gt=0"`
}

// SaleRequest is the body of POST /api/ventas.
type SaleRequest struct {
	Total         decimal.Decimal `json:"total" validate:"gt=0"`
	PaymentMethod PaymentMethod   `json:"metodo_pago" validate:"required,oneof=efectivo qr credito mixto"`
	CashAmount    decimal.Decimal `json:"monto_efectivo" validate:"gte=0"`
	QRAmount      decimal.Decimal `json:"monto_qr" validate:"gte=0"`
	CustomerName  string          `json:"cliente_nombre,omitempty"`
	CustomerPhone string          `json:"cliente_telefono,omitempty"`
	Items         []SaleItem      `json:"items" validate:"required,min=1,dive"`
}

// SaleResult is what the upstream answers to a sale submission.
type SaleResult struct {
	Success bool   `json:"success"`
	SaleID  int64  `json:"venta_id"`
	Message string `json:"message,omitempty"`
}

// Sale is a row of the sales history.
type Sale struct {
	ID            int64           `json:"id" validate:"gt=0"`
	Total         decimal.Decimal `json:"total"`
	PaymentMethod PaymentMethod   `json:"metodo_pago" validate:"required"`
	CashAmount    decimal.Decimal `json:"monto_efectivo"`
	QRAmount      decimal.Decimal `json:"monto_qr"`
	CustomerName  string          `json:"cliente_nombre,omitempty"`
	CustomerPhone string          `json:"cliente_telefono,omitempty"`
	Date          Timestamp       `json:"fecha"`
	Status        string          `json:"estado,omitempty"`
}

// SaleLine is a row of a sale's detail.
type SaleLine struct {
	ID          int64           `json:"id"`
	SaleID      int64           `json:"venta_id"`
	ProductID   int64           `json:"producto_id"`
	ProductName string          `json:"producto_nombre" validate:"required"`
	Quantity    int             `json:"cantidad" validate:"gte=1"`
	UnitPrice   decimal.Decimal `json:"precio_unitario"`
	Subtotal    decimal.Decimal `json:"subtotal"`
}

// SaleDetail is a sale with its lines.
type SaleDetail struct {
	Sale  Sale       `json:"venta"`
	Lines []SaleLine `json:"detalles" validate:"dive"`
}
