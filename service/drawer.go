package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"licoreria-pos/apperr"
	"licoreria-pos/drawer"
	"licoreria-pos/events"
	"licoreria-pos/model"
	"licoreria-pos/money"
)

const (
	drawerLatchKey        = "drawer"
	defaultWithdrawalNote = "Retiro de efectivo"
)

var (
	ErrInvalidAmount = apperr.Validation("invalid_amount", "amount must be greater than 0")
	ErrInvalidDate   = apperr.Validation("invalid_date", "dates must be YYYY-MM-DD")
	ErrInvalidID     = apperr.Validation("invalid_id", "id must be greater than 0")
)

// loadDrawer fetches the drawer and rebuilds it locally. The local current
// cash is compared to the figure the Sales API reports.
func (s *Service) loadDrawer(ctx context.Context) (*drawer.Drawer, model.CurrentDrawer, error) {
	cur, err := s.api.CurrentDrawer(ctx)
	if err != nil {
		return nil, model.CurrentDrawer{}, err
	}
	d, err := drawer.Restore(cur.Session, cur.Movements)
	if err != nil {
		return nil, model.CurrentDrawer{}, err
	}
	if cur.Session != nil {
		local := d.Summary().CurrentCash
		if diff := local.Sub(cur.Report.CurrentCash); !money.NegligibleDiff(diff) {
			s.log.Error("drawer current cash diverges from sales api",
				zap.Int64("drawer_id", cur.Session.ID),
				zap.String("local", local.StringFixed(2)),
				zap.String("upstream", cur.Report.CurrentCash.StringFixed(2)))
		}
	}
	return d, cur, nil
}

func (s *Service) CurrentDrawer(ctx context.Context) (DrawerDTO, error) {
	d, cur, err := s.loadDrawer(ctx)
	if err != nil {
		return DrawerDTO{}, err
	}
	return drawerDTO(d, cur.Movements), nil
}

func (s *Service) OpenDrawer(ctx context.Context, openingFloat decimal.Decimal) (DrawerDTO, error) {
	if openingFloat.IsNegative() {
		return DrawerDTO{}, drawer.ErrNegativeFloat
	}
	release, err := s.latch.Acquire(ctx, drawerLatchKey)
	if err != nil {
		return DrawerDTO{}, err
	}
	defer release()

	d, _, err := s.loadDrawer(ctx)
	if err != nil {
		return DrawerDTO{}, err
	}
	// checked locally first so an open drawer never reaches the api
	if err := d.Open(0, openingFloat, s.now()); err != nil {
		return DrawerDTO{}, err
	}
	id, err := s.api.OpenDrawer(ctx, openingFloat)
	if err != nil {
		return DrawerDTO{}, err
	}
	s.log.Info("drawer opened", zap.Int64("drawer_id", id), zap.String("opening_float", openingFloat.StringFixed(2)))
	return s.CurrentDrawer(ctx)
}

// CloseDrawer reconciles the counted cash against the movements and closes
// the session upstream.
func (s *Service) CloseDrawer(ctx context.Context, counted decimal.Decimal) (CloseDTO, error) {
	if counted.IsNegative() {
		return CloseDTO{}, drawer.ErrNegativeCount
	}
	release, err := s.latch.Acquire(ctx, drawerLatchKey)
	if err != nil {
		return CloseDTO{}, err
	}
	defer release()

	d, cur, err := s.loadDrawer(ctx)
	if err != nil {
		return CloseDTO{}, err
	}
	rec, err := d.Close(counted, s.now())
	if err != nil {
		return CloseDTO{}, err
	}
	up, err := s.api.CloseDrawer(ctx, counted)
	if err != nil {
		return CloseDTO{}, err
	}

	log := s.log.With(zap.Int64("drawer_id", cur.Session.ID))
	if !money.NegligibleDiff(up.ExpectedCash.Sub(rec.Expected)) {
		log.Error("close expected cash diverges from sales api",
			zap.String("local", rec.Expected.StringFixed(2)),
			zap.String("upstream", up.ExpectedCash.StringFixed(2)))
	}
	log.Info("drawer closed",
		zap.String("outcome", string(rec.Outcome)),
		zap.String("expected", rec.Expected.StringFixed(2)),
		zap.String("counted", rec.Counted.StringFixed(2)),
		zap.String("variance", rec.Variance.StringFixed(2)))

	return CloseDTO{
		Expected:  rec.Expected,
		Counted:   rec.Counted,
		Variance:  rec.Variance,
		Magnitude: rec.Magnitude,
		Outcome:   rec.Outcome,
		Upstream:  up,
	}, nil
}

// Withdraw takes cash out of the open drawer.
func (s *Service) Withdraw(ctx context.Context, amount decimal.Decimal, concept string) (DrawerDTO, error) {
	if !amount.IsPositive() {
		return DrawerDTO{}, ErrInvalidAmount
	}
	concept = strings.TrimSpace(concept)
	if concept == "" {
		concept = defaultWithdrawalNote
	}
	release, err := s.latch.Acquire(ctx, drawerLatchKey)
	if err != nil {
		return DrawerDTO{}, err
	}
	defer release()

	d, _, err := s.loadDrawer(ctx)
	if err != nil {
		return DrawerDTO{}, err
	}
	err = d.Record(drawer.Movement{
		Kind:    model.Expense,
		Amount:  amount,
		Concept: concept,
		Method:  model.MethodCash,
		At:      s.now(),
	})
	if err != nil {
		return DrawerDTO{}, err
	}
	id, err := s.api.Withdraw(ctx, model.Withdrawal{Amount: amount, Concept: concept})
	if err != nil {
		return DrawerDTO{}, err
	}
	s.log.Info("drawer withdrawal", zap.Int64("movement_id", id), zap.String("amount", amount.StringFixed(2)))
	return s.CurrentDrawer(ctx)
}

func (s *Service) DrawerHistory(ctx context.Context, from, to string) ([]model.DrawerSession, error) {
	for _, v := range []string{from, to} {
		if v == "" {
			continue
		}
		if _, err := time.Parse("2006-01-02", v); err != nil {
			return nil, fmt.Errorf("%w: %q", ErrInvalidDate, v)
		}
	}
	return s.api.DrawerHistory(ctx, from, to)
}

func (s *Service) ListSales(ctx context.Context) ([]model.Sale, error) {
	return s.api.ListSales(ctx)
}

func (s *Service) GetSale(ctx context.Context, id int64) (model.SaleDetail, error) {
	if id <= 0 {
		return model.SaleDetail{}, ErrInvalidID
	}
	return s.api.GetSale(ctx, id)
}

func (s *Service) ListCredits(ctx context.Context, status, search string) ([]model.Credit, error) {
	return s.api.ListCredits(ctx, strings.TrimSpace(status), strings.TrimSpace(search))
}

// PayCredit records a payment against a credit. Only cash and QR settle a
// credit.
func (s *Service) PayCredit(ctx context.Context, creditID int64, p model.CreditPayment) (int64, error) {
	if creditID <= 0 {
		return 0, ErrInvalidID
	}
	if err := model.Validate(p); err != nil {
		return 0, apperr.Wrap(apperr.KindValidation, "invalid_payment", "credit payment needs an amount over 0 and method efectivo or qr", err)
	}
	id, err := s.api.PayCredit(ctx, creditID, p)
	if err != nil {
		return 0, err
	}
	s.log.Info("credit payment", zap.Int64("credit_id", creditID), zap.Int64("payment_id", id),
		zap.String("method", string(p.Method)), zap.String("amount", p.Amount.StringFixed(2)))
	return id, nil
}

// HandleEvent refetches what a push cue says changed.
func (s *Service) HandleEvent(ctx context.Context, name events.Name) error {
	switch name {
	case events.SaleCreated, events.PurchaseCreated:
		if _, err := s.refreshCatalog(ctx); err != nil {
			return err
		}
	case events.CreditPaymentRecorded, events.DrawerWithdrawal, events.DrawerOpened, events.DrawerClosed:
	default:
		return nil
	}
	_, _, err := s.loadDrawer(ctx)
	return err
}
