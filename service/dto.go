package service

import (
	"time"

	"github.com/shopspring/decimal"

	"licoreria-pos/cart"
	"licoreria-pos/checkout"
	"licoreria-pos/drawer"
	"licoreria-pos/model"
	"licoreria-pos/store"
)

// DTOs
type ProductDTO struct {
	ID       int64           `json:"id"`
	Name     string          `json:"name"`
	Category string          `json:"category"`
	Price    decimal.Decimal `json:"price"`
	Stock    int             `json:"stock"`
	LowStock bool            `json:"low_stock"`
	Image    string          `json:"image,omitempty"`
}

func productDTO(p model.Product) ProductDTO {
	return ProductDTO{
		ID:       p.ID,
		Name:     p.Name,
		Category: p.Category,
		Price:    p.SalePrice,
		Stock:    p.Stock,
		LowStock: p.LowStock(),
		Image:    p.Image,
	}
}

type CartLineDTO struct {
	ProductID      int64           `json:"product_id"`
	Name           string          `json:"name"`
	Quantity       int             `json:"quantity"`
	UnitPrice      decimal.Decimal `json:"unit_price"`
	ReferencePrice decimal.Decimal `json:"reference_price"`
	StockCeiling   int             `json:"stock_ceiling"`
	Subtotal       decimal.Decimal `json:"subtotal"`
}

type CartDTO struct {
	Terminal string          `json:"terminal"`
	Lines    []CartLineDTO   `json:"lines"`
	Items    int             `json:"items"`
	Units    int             `json:"units"`
	Total    decimal.Decimal `json:"total"`
}

func cartDTO(terminal string, c *cart.Cart) CartDTO {
	out := CartDTO{
		Terminal: terminal,
		Lines:    []CartLineDTO{},
		Items:    c.ItemCount(),
		Units:    c.UnitCount(),
		Total:    c.Total(),
	}
	for _, l := range c.Lines() {
		out.Lines = append(out.Lines, CartLineDTO{
			ProductID:      l.ProductID,
			Name:           l.Name,
			Quantity:       l.Quantity,
			UnitPrice:      l.UnitPrice,
			ReferencePrice: l.ReferencePrice,
			StockCeiling:   l.StockCeiling,
			Subtotal:       l.Subtotal(),
		})
	}
	return out
}

func cartFromRows(rows []store.CartLineRow) *cart.Cart {
	lines := make([]cart.Line, 0, len(rows))
	for _, r := range rows {
		lines = append(lines, cart.Line{
			ProductID:      r.ProductID,
			Name:           r.Name,
			Quantity:       r.Quantity,
			UnitPrice:      r.UnitPrice,
			ReferencePrice: r.ReferencePrice,
			StockCeiling:   r.StockCeiling,
		})
	}
	return cart.New(lines...)
}

func rowsFromCart(c *cart.Cart) []store.CartLineRow {
	lines := c.Lines()
	out := make([]store.CartLineRow, 0, len(lines))
	for _, l := range lines {
		out = append(out, store.CartLineRow{
			ProductID:      l.ProductID,
			Name:           l.Name,
			Quantity:       l.Quantity,
			UnitPrice:      l.UnitPrice,
			ReferencePrice: l.ReferencePrice,
			StockCeiling:   l.StockCeiling,
		})
	}
	return out
}

type QuoteDTO struct {
	Total     decimal.Decimal `json:"total"`
	Units     int             `json:"units"`
	Change    decimal.Decimal `json:"change"`
	Shortfall decimal.Decimal `json:"shortfall"`
	Covered   bool            `json:"covered"`
}

func quoteDTO(q checkout.Quote) QuoteDTO {
	return QuoteDTO{Total: q.Total, Units: q.Units, Change: q.Change, Shortfall: q.Shortfall, Covered: q.Covered}
}

type CheckoutDTO struct {
	SaleID        int64               `json:"sale_id"`
	Total         decimal.Decimal     `json:"total"`
	PaymentMethod model.PaymentMethod `json:"payment_method"`
	CashAmount    decimal.Decimal     `json:"cash_amount"`
	QRAmount      decimal.Decimal     `json:"qr_amount"`
	Change        decimal.Decimal     `json:"change"`
	Message       string              `json:"message,omitempty"`
}

type ReceiptDTO struct {
	SaleID        int64           `json:"sale_id"`
	Total         decimal.Decimal `json:"total"`
	PaymentMethod string          `json:"payment_method"`
	Change        decimal.Decimal `json:"change"`
	CreatedAt     time.Time       `json:"created_at"`
}

type SessionDTO struct {
	ID           int64           `json:"id"`
	OpenedAt     time.Time       `json:"opened_at"`
	OpeningFloat decimal.Decimal `json:"opening_float"`
	Status       string          `json:"status"`
}

type SummaryDTO struct {
	OpeningFloat    decimal.Decimal            `json:"opening_float"`
	CurrentCash     decimal.Decimal            `json:"current_cash"`
	IncomeByMethod  map[string]decimal.Decimal `json:"income_by_method"`
	ExpenseByMethod map[string]decimal.Decimal `json:"expense_by_method"`
	TotalIncome     decimal.Decimal            `json:"total_income"`
	TotalExpense    decimal.Decimal            `json:"total_expense"`
	Balance         decimal.Decimal            `json:"balance"`
	Sales           int                        `json:"sales"`
	Purchases       int                        `json:"purchases"`
	CreditPayments  int                        `json:"credit_payments"`
	Operations      int                        `json:"operations"`
}

type DrawerDTO struct {
	Open      bool             `json:"open"`
	Session   *SessionDTO      `json:"session"`
	Movements []model.Movement `json:"movements"`
	Summary   SummaryDTO       `json:"summary"`
}

func drawerDTO(d *drawer.Drawer, movements []model.Movement) DrawerDTO {
	s := d.Summary()
	out := DrawerDTO{
		Open:      d.Status() == drawer.Open,
		Movements: movements,
		Summary: SummaryDTO{
			OpeningFloat:    s.OpeningFloat,
			CurrentCash:     s.CurrentCash,
			IncomeByMethod:  byMethod(s.IncomeByMethod),
			ExpenseByMethod: byMethod(s.ExpenseByMethod),
			TotalIncome:     s.TotalIncome,
			TotalExpense:    s.TotalExpense,
			Balance:         s.Balance,
			Sales:           s.Sales,
			Purchases:       s.Purchases,
			CreditPayments:  s.CreditPayments,
			Operations:      s.Operations(),
		},
	}
	if out.Movements == nil {
		out.Movements = []model.Movement{}
	}
	if d.Status() != drawer.NoSession {
		sess := d.Session()
		out.Session = &SessionDTO{
			ID:           sess.ID,
			OpenedAt:     sess.OpenedAt,
			OpeningFloat: sess.OpeningFloat,
			Status:       sess.Status.String(),
		}
	}
	return out
}

func byMethod(m map[model.PaymentMethod]decimal.Decimal) map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal, len(m))
	for k, v := range m {
		out[string(k)] = v
	}
	return out
}

type CloseDTO struct {
	Expected  decimal.Decimal `json:"expected_cash"`
	Counted   decimal.Decimal `json:"counted_cash"`
	Variance  decimal.Decimal `json:"variance"`
	Magnitude decimal.Decimal `json:"magnitude"`
	Outcome   drawer.Outcome  `json:"outcome"`
	// Upstream is the Sales API's own figures for the same close.
	Upstream model.CloseResult `json:"upstream"`
}
