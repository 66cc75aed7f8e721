package service

import (
	"context"

	"github.com/shopspring/decimal"

	"licoreria-pos/checkout"
	"licoreria-pos/events"
	"licoreria-pos/model"
)

// ServiceInterface is what the HTTP layer needs from the terminal service.
type ServiceInterface interface {
	ListProducts(ctx context.Context, query string) ([]ProductDTO, error)

	GetCart(ctx context.Context, terminal string) (CartDTO, error)
	AddToCart(ctx context.Context, terminal string, productID int64) (CartDTO, error)
	SetQuantity(ctx context.Context, terminal string, productID int64, quantity int) (CartDTO, error)
	AdjustQuantity(ctx context.Context, terminal string, productID int64, delta int) (CartDTO, error)
	SetUnitPrice(ctx context.Context, terminal string, productID int64, price decimal.Decimal) (CartDTO, error)
	RemoveFromCart(ctx context.Context, terminal string, productID int64) (CartDTO, error)
	ClearCart(ctx context.Context, terminal string) (CartDTO, error)

	QuoteCheckout(ctx context.Context, terminal string, p checkout.Payment) (QuoteDTO, error)
	Checkout(ctx context.Context, terminal string, p checkout.Payment, idempotencyKey string) (CheckoutDTO, error)
	Receipts(ctx context.Context, terminal string) ([]ReceiptDTO, error)

	CurrentDrawer(ctx context.Context) (DrawerDTO, error)
	OpenDrawer(ctx context.Context, openingFloat decimal.Decimal) (DrawerDTO, error)
	CloseDrawer(ctx context.Context, counted decimal.Decimal) (CloseDTO, error)
	Withdraw(ctx context.Context, amount decimal.Decimal, concept string) (DrawerDTO, error)
	DrawerHistory(ctx context.Context, from, to string) ([]model.DrawerSession, error)

	ListSales(ctx context.Context) ([]model.Sale, error)
	GetSale(ctx context.Context, id int64) (model.SaleDetail, error)

	ListCredits(ctx context.Context, status, search string) ([]model.Credit, error)
	PayCredit(ctx context.Context, creditID int64, p model.CreditPayment) (int64, error)

	HandleEvent(ctx context.Context, name events.Name) error
}

// SalesAPI is the upstream system of record. *upstream.Client satisfies it.
type SalesAPI interface {
	ListProducts(ctx context.Context) ([]model.Product, error)
	SubmitSale(ctx context.Context, req model.SaleRequest, idempotencyKey string) (model.SaleResult, error)
	ListSales(ctx context.Context) ([]model.Sale, error)
	GetSale(ctx context.Context, id int64) (model.SaleDetail, error)

	CurrentDrawer(ctx context.Context) (model.CurrentDrawer, error)
	OpenDrawer(ctx context.Context, openingFloat decimal.Decimal) (int64, error)
	CloseDrawer(ctx context.Context, counted decimal.Decimal) (model.CloseResult, error)
	Withdraw(ctx context.Context, w model.Withdrawal) (int64, error)
	DrawerHistory(ctx context.Context, from, to string) ([]model.DrawerSession, error)

	ListCredits(ctx context.Context, status, search string) ([]model.Credit, error)
	PayCredit(ctx context.Context, creditID int64, p model.CreditPayment) (int64, error)
}
