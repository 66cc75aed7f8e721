package upstream

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"licoreria-pos/apperr"
	"licoreria-pos/model"
)

func validateAll[T any](records []T) error {
	for i := range records {
		if err := model.Validate(records[i]); err != nil {
			return malformed(fmt.Errorf("record %d: %w", i, err))
		}
	}
	return nil
}

func (c *Client) ListProducts(ctx context.Context) ([]model.Product, error) {
	rep, err := c.do(ctx, http.MethodGet, "/api/productos", nil, nil, nil)
	if err != nil {
		return nil, err
	}
	var out struct {
		Products []model.Product `json:"productos"`
	}
	if err := decode(rep, &out); err != nil {
		return nil, err
	}
	if err := validateAll(out.Products); err != nil {
		return nil, err
	}
	return out.Products, nil
}

// SubmitSale posts a sale. A refusal that mentions the drawer (caja) is
// reported as apperr.ErrDrawerClosed.
func (c *Client) SubmitSale(ctx context.Context, req model.SaleRequest, idempotencyKey string) (model.SaleResult, error) {
	h := http.Header{}
	if idempotencyKey != "" {
		h.Set(HeaderIdempotencyKey, idempotencyKey)
	}
	rep, err := c.do(ctx, http.MethodPost, "/api/ventas", nil, req, h)
	if err != nil {
		if isDrawerClosed(err) {
			return model.SaleResult{}, fmt.Errorf("%w: %s", apperr.ErrDrawerClosed, err.Error())
		}
		return model.SaleResult{}, err
	}
	var res model.SaleResult
	if err := decode(rep, &res); err != nil {
		return model.SaleResult{}, err
	}
	if res.SaleID <= 0 {
		return model.SaleResult{}, malformed(errors.New("sale accepted without venta_id"))
	}
	return res, nil
}

func isDrawerClosed(err error) bool {
	e, ok := apperr.As(err)
	if !ok {
		return false
	}
	switch e.Code {
	case CodeRejected, CodeServerError:
		return strings.Contains(strings.ToLower(e.Message), "caja")
	}
	return false
}

func (c *Client) ListSales(ctx context.Context) ([]model.Sale, error) {
	rep, err := c.do(ctx, http.MethodGet, "/api/ventas", nil, nil, nil)
	if err != nil {
		return nil, err
	}
	var out struct {
		Sales []model.Sale `json:"ventas"`
	}
	if err := decode(rep, &out); err != nil {
		return nil, err
	}
	if err := validateAll(out.Sales); err != nil {
		return nil, err
	}
	return out.Sales, nil
}

func (c *Client) GetSale(ctx context.Context, id int64) (model.SaleDetail, error) {
	rep, err := c.do(ctx, http.MethodGet, "/api/venta/"+strconv.FormatInt(id, 10), nil, nil, nil)
	if err != nil {
		return model.SaleDetail{}, err
	}
	var out model.SaleDetail
	if err := decode(rep, &out); err != nil {
		return model.SaleDetail{}, err
	}
	if err := model.Validate(out); err != nil {
		return model.SaleDetail{}, malformed(err)
	}
	return out, nil
}

// CurrentDrawer returns the open session with its movements and the
// upstream's own summary. Session is nil when the drawer is closed.
func (c *Client) CurrentDrawer(ctx context.Context) (model.CurrentDrawer, error) {
	rep, err := c.do(ctx, http.MethodGet, "/api/caja/actual", nil, nil, nil)
	if err != nil {
		return model.CurrentDrawer{}, err
	}
	var out model.CurrentDrawer
	if err := decode(rep, &out); err != nil {
		return model.CurrentDrawer{}, err
	}
	if out.Session != nil {
		if err := model.Validate(out.Session); err != nil {
			return model.CurrentDrawer{}, malformed(err)
		}
	}
	if err := validateAll(out.Movements); err != nil {
		return model.CurrentDrawer{}, err
	}
	return out, nil
}

func (c *Client) OpenDrawer(ctx context.Context, openingFloat decimal.Decimal) (int64, error) {
	body := map[string]decimal.Decimal{"monto_inicial": openingFloat}
	rep, err := c.do(ctx, http.MethodPost, "/api/caja/abrir", nil, body, nil)
	if err != nil {
		return 0, err
	}
	var out struct {
		DrawerID int64 `json:"caja_id"`
	}
	if err := decode(rep, &out); err != nil {
		return 0, err
	}
	return out.DrawerID, nil
}

func (c *Client) CloseDrawer(ctx context.Context, counted decimal.Decimal) (model.CloseResult, error) {
	body := map[string]decimal.Decimal{"efectivo_contado": counted}
	rep, err := c.do(ctx, http.MethodPost, "/api/caja/cerrar", nil, body, nil)
	if err != nil {
		return model.CloseResult{}, err
	}
	var out struct {
		Result model.CloseResult `json:"resultado"`
	}
	if err := decode(rep, &out); err != nil {
		return model.CloseResult{}, err
	}
	return out.Result, nil
}

func (c *Client) Withdraw(ctx context.Context, w model.Withdrawal) (int64, error) {
	rep, err := c.do(ctx, http.MethodPost, "/api/caja/retiro", nil, w, nil)
	if err != nil {
		return 0, err
	}
	var out struct {
		MovementID int64 `json:"movimiento_id"`
	}
	if err := decode(rep, &out); err != nil {
		return 0, err
	}
	return out.MovementID, nil
}

// DrawerHistory lists past sessions; from and to are YYYY-MM-DD and optional.
func (c *Client) DrawerHistory(ctx context.Context, from, to string) ([]model.DrawerSession, error) {
	q := url.Values{}
	if from != "" {
		q.Set("fecha_desde", from)
	}
	if to != "" {
		q.Set("fecha_hasta", to)
	}
	rep, err := c.do(ctx, http.MethodGet, "/api/caja/historial", q, nil, nil)
	if err != nil {
		return nil, err
	}
	var out []model.DrawerSession
	if err := decode(rep, &out); err != nil {
		return nil, err
	}
	if err := validateAll(out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) ListCredits(ctx context.Context, status, search string) ([]model.Credit, error) {
	q := url.Values{}
	if status != "" {
		q.Set("estado", status)
	}
	if search != "" {
		q.Set("busqueda", search)
	}
	rep, err := c.do(ctx, http.MethodGet, "/api/creditos", q, nil, nil)
	if err != nil {
		return nil, err
	}
	var out []model.Credit
	if err := decode(rep, &out); err != nil {
		return nil, err
	}
	if err := validateAll(out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) PayCredit(ctx context.Context, creditID int64, p model.CreditPayment) (int64, error) {
	path := "/api/creditos/" + strconv.FormatInt(creditID, 10) + "/pagar"
	rep, err := c.do(ctx, http.MethodPost, path, nil, p, nil)
	if err != nil {
		return 0, err
	}
	var out struct {
		PaymentID int64 `json:"pago_id"`
	}
	if err := decode(rep, &out); err != nil {
		return 0, err
	}
	return out.PaymentID, nil
}
