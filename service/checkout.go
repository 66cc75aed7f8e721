package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"licoreria-pos/apperr"
	"licoreria-pos/checkout"
	"licoreria-pos/model"
	"licoreria-pos/store"
)

const (
	receiptsLimit     = 50
	maxIdempotencyKey = 128
)

var ErrInvalidIdempotencyKey = apperr.Validation("invalid_idempotency_key", "idempotency key is too long")

func (s *Service) QuoteCheckout(ctx context.Context, terminal string, p checkout.Payment) (QuoteDTO, error) {
	if err := checkTerminal(terminal); err != nil {
		return QuoteDTO{}, err
	}
	rows, err := s.store.LoadCart(ctx, terminal)
	if err != nil {
		return QuoteDTO{}, err
	}
	return quoteDTO(checkout.Preview(cartFromRows(rows), p)), nil
}

// Checkout submits the terminal's cart as a sale. Only one checkout per
// terminal may be outstanding; the payment is validated before anything
// leaves the process. Once the Sales API accepts, the sold lines leave the
// cart. A caller retrying after a timeout passes the same idempotencyKey;
// an empty key gets a fresh one.
func (s *Service) Checkout(ctx context.Context, terminal string, p checkout.Payment, idempotencyKey string) (CheckoutDTO, error) {
	if err := checkTerminal(terminal); err != nil {
		return CheckoutDTO{}, err
	}
	key := strings.TrimSpace(idempotencyKey)
	if len(key) > maxIdempotencyKey {
		return CheckoutDTO{}, ErrInvalidIdempotencyKey
	}
	if key == "" {
		key = s.newKey()
	}
	release, err := s.latch.Acquire(ctx, "checkout:"+terminal)
	if err != nil {
		return CheckoutDTO{}, err
	}
	defer release()

	rows, err := s.store.LoadCart(ctx, terminal)
	if err != nil {
		return CheckoutDTO{}, err
	}
	res, err := checkout.Resolve(cartFromRows(rows), p)
	if err != nil {
		return CheckoutDTO{}, err
	}

	log := s.log.With(zap.String("terminal", terminal), zap.String("idempotency_key", key))
	result, err := s.api.SubmitSale(ctx, res.Request, key)
	if err != nil {
		log.Warn("sale rejected", zap.Error(err))
		return CheckoutDTO{}, err
	}
	log.Info("sale accepted",
		zap.Int64("sale_id", result.SaleID),
		zap.String("method", string(res.Request.PaymentMethod)),
		zap.String("total", res.Request.Total.StringFixed(2)))

	// the sale exists upstream from here on; local failures are logged only
	_, err = s.store.UpdateCart(ctx, terminal, func(rows []store.CartLineRow) ([]store.CartLineRow, error) {
		return removeSold(rows, res.Request.Items), nil
	})
	if err != nil {
		log.Error("remove sold lines after sale", zap.Error(err))
	}
	err = s.store.RecordSale(ctx, store.JournalRow{
		Terminal:       terminal,
		SaleID:         result.SaleID,
		IdempotencyKey: key,
		Total:          res.Request.Total,
		PaymentMethod:  string(res.Request.PaymentMethod),
		Change:         res.Change,
	})
	if err != nil {
		log.Error("journal sale", zap.Int64("sale_id", result.SaleID), zap.Error(err))
	}
	if _, err := s.refreshCatalog(ctx); err != nil {
		log.Warn("catalog refetch after sale", zap.Error(err))
	}

	return CheckoutDTO{
		SaleID:        result.SaleID,
		Total:         res.Request.Total,
		PaymentMethod: res.Request.PaymentMethod,
		CashAmount:    res.Request.CashAmount,
		QRAmount:      res.Request.QRAmount,
		Change:        res.Change,
		Message:       result.Message,
	}, nil
}

// removeSold takes the sold quantities out of the cart. Lines added or
// grown while the sale was in flight keep what was not sold.
func removeSold(rows []store.CartLineRow, sold []model.SaleItem) []store.CartLineRow {
	soldQty := make(map[int64]int, len(sold))
	for _, it := range sold {
		soldQty[it.ProductID] += it.Quantity
	}
	out := rows[:0]
	for _, r := range rows {
		r.Quantity -= soldQty[r.ProductID]
		if r.Quantity > 0 {
			out = append(out, r)
		}
	}
	return out
}

// Receipts lists the sales this terminal got accepted, newest first.
func (s *Service) Receipts(ctx context.Context, terminal string) ([]ReceiptDTO, error) {
	if err := checkTerminal(terminal); err != nil {
		return nil, err
	}
	rows, err := s.store.ListJournal(ctx, terminal, receiptsLimit)
	if err != nil {
		return nil, err
	}
	out := make([]ReceiptDTO, 0, len(rows))
	for _, r := range rows {
		out = append(out, ReceiptDTO{
			SaleID:        r.SaleID,
			Total:         r.Total,
			PaymentMethod: r.PaymentMethod,
			Change:        r.Change,
			CreatedAt:     r.CreatedAt,
		})
	}
	return out, nil
}
