package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"licoreria-pos/apperr"
	"licoreria-pos/cart"
	"licoreria-pos/checkout"
	"licoreria-pos/model"
	"licoreria-pos/service"
)

// fakeService overrides the calls a test needs; anything else panics on the
// nil embedded interface.
type fakeService struct {
	service.ServiceInterface

	addFn      func(terminal string, productID int64) (service.CartDTO, error)
	priceFn    func(terminal string, productID int64, price decimal.Decimal) (service.CartDTO, error)
	checkoutFn func(terminal string, p checkout.Payment, key string) (service.CheckoutDTO, error)
	closeFn    func(counted decimal.Decimal) (service.CloseDTO, error)
	saleFn     func(id int64) (model.SaleDetail, error)
	payFn      func(id int64, p model.CreditPayment) (int64, error)
}

func (f *fakeService) AddToCart(_ context.Context, terminal string, productID int64) (service.CartDTO, error) {
	return f.addFn(terminal, productID)
}

func (f *fakeService) SetUnitPrice(_ context.Context, terminal string, productID int64, price decimal.Decimal) (service.CartDTO, error) {
	return f.priceFn(terminal, productID, price)
}

func (f *fakeService) Checkout(_ context.Context, terminal string, p checkout.Payment, key string) (service.CheckoutDTO, error) {
	return f.checkoutFn(terminal, p, key)
}

func (f *fakeService) CloseDrawer(_ context.Context, counted decimal.Decimal) (service.CloseDTO, error) {
	return f.closeFn(counted)
}

func (f *fakeService) GetSale(_ context.Context, id int64) (model.SaleDetail, error) {
	return f.saleFn(id)
}

func (f *fakeService) PayCredit(_ context.Context, id int64, p model.CreditPayment) (int64, error) {
	return f.payFn(id, p)
}

func serve(t *testing.T, svc service.ServiceInterface, method, path, body string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	r := mux.NewRouter()
	NewHandler(svc, nil).RegisterRoutes(r)

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	out := map[string]interface{}{}
	if rec.Body.Len() > 0 && strings.HasPrefix(strings.TrimSpace(rec.Body.String()), "{") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	}
	return rec, out
}

func TestHealth(t *testing.T) {
	rec, body := serve(t, &fakeService{}, "GET", "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", body["status"])
}

func TestAddToCartPassesTerminalAndProduct(t *testing.T) {
	svc := &fakeService{addFn: func(terminal string, productID int64) (service.CartDTO, error) {
		assert.Equal(t, "t1", terminal)
		assert.Equal(t, int64(4), productID)
		return service.CartDTO{Terminal: terminal, Items: 1, Units: 1, Total: decimal.NewFromInt(15)}, nil
	}}
	rec, body := serve(t, svc, "POST", "/terminals/t1/cart/add", `{"product_id":4}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "t1", body["terminal"])
	assert.EqualValues(t, 1, body["units"])
}

func TestRequestValidation(t *testing.T) {
	rec, body := serve(t, &fakeService{}, "POST", "/terminals/t1/cart/add", `{"product_id":0}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_request", body["error"])
	assert.Contains(t, body["fields"], "productReq.product_id")

	rec, body = serve(t, &fakeService{}, "POST", "/terminals/t1/cart/add", `{`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_json", body["error"])

	rec, _ = serve(t, &fakeService{}, "POST", "/terminals/t1/checkout", `{"payment_method":"tarjeta"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, body = serve(t, &fakeService{}, "GET", "/sales/abc", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_id", body["error"])
}

func TestErrorStatusMapping(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"validation", checkout.ErrCustomerRequired, http.StatusBadRequest, "customer_required"},
		{"business rule", checkout.ErrInsufficientTender, http.StatusUnprocessableEntity, "insufficient_tender"},
		{"in flight", apperr.ErrInFlight, http.StatusConflict, "operation_in_flight"},
		{"not found", cart.ErrLineNotFound, http.StatusNotFound, "line_not_found"},
		{"transport", apperr.Transport("sales api unreachable", errors.New("dial tcp")), http.StatusBadGateway, apperr.CodeTransport},
		{"internal", errors.New("boom"), http.StatusInternalServerError, "internal"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := &fakeService{checkoutFn: func(string, checkout.Payment, string) (service.CheckoutDTO, error) {
				return service.CheckoutDTO{}, tc.err
			}}
			rec, body := serve(t, svc, "POST", "/terminals/t1/checkout", `{"payment_method":"efectivo","tendered":10}`)
			assert.Equal(t, tc.status, rec.Code)
			assert.Equal(t, tc.code, body["error"])
			assert.NotEmpty(t, body["message"])
		})
	}
}

func TestCheckoutDrawerClosedRedirects(t *testing.T) {
	svc := &fakeService{checkoutFn: func(_ string, p checkout.Payment, _ string) (service.CheckoutDTO, error) {
		assert.Equal(t, model.MethodSplit, p.Method)
		assert.True(t, p.Cash.Equal(decimal.NewFromInt(20)))
		assert.True(t, p.QR.Equal(decimal.NewFromInt(40)))
		return service.CheckoutDTO{}, apperr.ErrDrawerClosed
	}}
	rec, body := serve(t, svc, "POST", "/terminals/t1/checkout", `{"payment_method":"mixto","cash_amount":20,"qr_amount":"40"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "drawer_closed", body["error"])
	assert.Equal(t, "/caja", body["redirect"])
}

func TestCheckoutCreated(t *testing.T) {
	var gotKey string
	svc := &fakeService{checkoutFn: func(_ string, _ checkout.Payment, key string) (service.CheckoutDTO, error) {
		gotKey = key
		return service.CheckoutDTO{SaleID: 42, Total: decimal.NewFromInt(60), Change: decimal.NewFromInt(40)}, nil
	}}
	rec, body := serve(t, svc, "POST", "/terminals/t1/checkout", `{"payment_method":"efectivo","tendered":100}`)
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.EqualValues(t, 42, body["sale_id"])
	assert.Empty(t, gotKey)
}

func TestCheckoutForwardsIdempotencyKey(t *testing.T) {
	var gotKey string
	svc := &fakeService{checkoutFn: func(_ string, _ checkout.Payment, key string) (service.CheckoutDTO, error) {
		gotKey = key
		return service.CheckoutDTO{SaleID: 42}, nil
	}}
	r := mux.NewRouter()
	NewHandler(svc, nil).RegisterRoutes(r)
	req := httptest.NewRequest("POST", "/terminals/t1/checkout", strings.NewReader(`{"payment_method":"qr"}`))
	req.Header.Set("Idempotency-Key", "retry-7")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "retry-7", gotKey)
}

func TestSetUnitPriceRejectionReturnsCart(t *testing.T) {
	svc := &fakeService{priceFn: func(terminal string, _ int64, price decimal.Decimal) (service.CartDTO, error) {
		assert.True(t, price.IsZero())
		return service.CartDTO{Terminal: terminal, Total: decimal.NewFromInt(15)}, cart.ErrInvalidPrice
	}}
	rec, body := serve(t, svc, "POST", "/terminals/t1/cart/price", `{"product_id":1,"unit_price":0}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_price", body["error"])
	require.IsType(t, map[string]interface{}{}, body["cart"])
	assert.Equal(t, "t1", body["cart"].(map[string]interface{})["terminal"])
}

func TestCloseDrawer(t *testing.T) {
	svc := &fakeService{closeFn: func(counted decimal.Decimal) (service.CloseDTO, error) {
		assert.True(t, counted.Equal(decimal.RequireFromString("90.5")))
		return service.CloseDTO{Outcome: "faltante"}, nil
	}}
	rec, body := serve(t, svc, "POST", "/drawer/close", `{"counted_cash":"90.5"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "faltante", body["outcome"])
}

func TestPayCredit(t *testing.T) {
	svc := &fakeService{payFn: func(id int64, p model.CreditPayment) (int64, error) {
		assert.Equal(t, int64(9), id)
		assert.Equal(t, model.MethodQR, p.Method)
		return 5, nil
	}}
	rec, body := serve(t, svc, "POST", "/credits/9/payments", `{"amount":10,"payment_method":"qr"}`)
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.EqualValues(t, 5, body["payment_id"])
}

func TestGetSaleNotFound(t *testing.T) {
	svc := &fakeService{saleFn: func(int64) (model.SaleDetail, error) {
		return model.SaleDetail{}, apperr.NotFound("upstream_not_found", "sale not found")
	}}
	rec, body := serve(t, svc, "GET", "/sales/3", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "upstream_not_found", body["error"])
}

func TestMethodNotAllowed(t *testing.T) {
	rec, _ := serve(t, &fakeService{}, "GET", "/drawer/close", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
