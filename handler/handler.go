package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"licoreria-pos/apperr"
	"licoreria-pos/checkout"
	"licoreria-pos/model"
	"licoreria-pos/service"
)

const (
	// drawerPage is where the UI sends the cashier when a sale needs an open drawer.
	drawerPage = "/caja"
	// headerIdempotencyKey lets the UI retry a checkout without selling twice.
	headerIdempotencyKey = "Idempotency-Key"
)

// Handler is the HTTP layer that talks to service.Service
type Handler struct {
	svc service.ServiceInterface
	log *zap.Logger
}

// NewHandler returns a Handler instance
func NewHandler(s service.ServiceInterface, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{svc: s, log: log}
}

// RegisterRoutes registers all routes on the provided router
func (h *Handler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/health", h.Health).Methods("GET")

	// Products
	r.HandleFunc("/products/list", h.ListProducts).Methods("GET")

	// Cart
	t := r.PathPrefix("/terminals/{terminal}").Subrouter()
	t.HandleFunc("/cart", h.GetCart).Methods("GET")
	t.HandleFunc("/cart/add", h.AddToCart).Methods("POST")
	t.HandleFunc("/cart/quantity", h.SetQuantity).Methods("POST")
	t.HandleFunc("/cart/adjust", h.AdjustQuantity).Methods("POST")
	t.HandleFunc("/cart/price", h.SetUnitPrice).Methods("POST")
	t.HandleFunc("/cart/remove", h.RemoveFromCart).Methods("POST")
	t.HandleFunc("/cart/clear", h.ClearCart).Methods("POST")

	// Checkout
	t.HandleFunc("/checkout/quote", h.QuoteCheckout).Methods("POST")
	t.HandleFunc("/checkout", h.Checkout).Methods("POST")
	t.HandleFunc("/receipts", h.Receipts).Methods("GET")

	// Drawer
	r.HandleFunc("/drawer", h.CurrentDrawer).Methods("GET")
	r.HandleFunc("/drawer/open", h.OpenDrawer).Methods("POST")
	r.HandleFunc("/drawer/close", h.CloseDrawer).Methods("POST")
	r.HandleFunc("/drawer/withdrawals", h.Withdraw).Methods("POST")
	r.HandleFunc("/drawer/history", h.DrawerHistory).Methods("GET")

	// Sales and credits
	r.HandleFunc("/sales", h.ListSales).Methods("GET")
	r.HandleFunc("/sales/{id}", h.GetSale).Methods("GET")
	r.HandleFunc("/credits", h.ListCredits).Methods("GET")
	r.HandleFunc("/credits/{id}/payments", h.PayCredit).Methods("POST")
}

// --- request shapes ---
type productReq struct {
	ProductID int64 `json:"product_id" validate:"gt=0"`
}

type quantityReq struct {
	ProductID int64 `json:"product_id" validate:"gt=0"`
	Quantity  int   `json:"quantity" validate:"gte=0"`
}

type adjustReq struct {
	ProductID int64 `json:"product_id" validate:"gt=0"`
	Delta     int   `json:"delta" validate:"ne=0"`
}

type priceReq struct {
	ProductID int64           `json:"product_id" validate:"gt=0"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

type paymentReq struct {
	Method        model.PaymentMethod `json:"payment_method" validate:"required,oneof=efectivo qr credito mixto"`
	Tendered      decimal.Decimal     `json:"tendered"`
	Cash          decimal.Decimal     `json:"cash_amount"`
	QR            decimal.Decimal     `json:"qr_amount"`
	CustomerName  string              `json:"customer_name"`
	CustomerPhone string              `json:"customer_phone"`
}

func (p paymentReq) payment() checkout.Payment {
	return checkout.Payment{
		Method:        p.Method,
		Tendered:      p.Tendered,
		Cash:          p.Cash,
		QR:            p.QR,
		CustomerName:  p.CustomerName,
		CustomerPhone: p.CustomerPhone,
	}
}

type openReq struct {
	OpeningFloat decimal.Decimal `json:"opening_float"`
}

type closeReq struct {
	CountedCash decimal.Decimal `json:"counted_cash"`
}

type withdrawReq struct {
	Amount  decimal.Decimal `json:"amount"`
	Concept string          `json:"concept"`
}

type creditPaymentReq struct {
	Amount decimal.Decimal     `json:"amount"`
	Method model.PaymentMethod `json:"payment_method"`
}

// --- helpers ---
func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, code int, errCode, msg string) {
	writeJSON(w, code, map[string]string{"error": errCode, "message": msg})
}

func statusOf(kind apperr.Kind) int {
	switch kind {
	case apperr.KindValidation:
		return http.StatusBadRequest
	case apperr.KindBusinessRule:
		return http.StatusUnprocessableEntity
	case apperr.KindConflict:
		return http.StatusConflict
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindTransport:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// fail maps err to its status and writes the error body.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, apperr.ErrDrawerClosed) {
		writeJSON(w, http.StatusConflict, map[string]string{
			"error":    apperr.ErrDrawerClosed.Code,
			"message":  apperr.ErrDrawerClosed.Message,
			"redirect": drawerPage,
		})
		return
	}
	e, ok := apperr.As(err)
	if !ok {
		h.log.Error("request failed", zap.String("path", r.URL.Path), zap.Error(err))
		writeErr(w, http.StatusInternalServerError, "internal", "internal server error")
		return
	}
	code := statusOf(e.Kind)
	if code >= http.StatusInternalServerError {
		h.log.Error("request failed", zap.String("path", r.URL.Path), zap.Error(err))
	}
	writeErr(w, code, e.Code, err.Error())
}

// decode reads the JSON body into v and runs its validate tags.
func decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid_json", "invalid json")
		return false
	}
	if err := model.Validator().Struct(v); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{
			"error":   "invalid_request",
			"message": "request failed validation",
			"fields":  model.FieldErrors(err),
		})
		return false
	}
	return true
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil || id <= 0 {
		writeErr(w, http.StatusBadRequest, "invalid_id", "id must be a positive integer")
		return 0, false
	}
	return id, true
}

func terminal(r *http.Request) string { return mux.Vars(r)["terminal"] }

// --- Handler ---

// Health handles GET /health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ListProducts handles GET /products/list?q=
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	ps, err := h.svc.ListProducts(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ps)
}

func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	c, err := h.svc.GetCart(r.Context(), terminal(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// AddToCart handles POST /terminals/{terminal}/cart/add
// body: { "product_id": 1 }
func (h *Handler) AddToCart(w http.ResponseWriter, r *http.Request) {
	var req productReq
	if !decode(w, r, &req) {
		return
	}
	c, err := h.svc.AddToCart(r.Context(), terminal(r), req.ProductID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *Handler) SetQuantity(w http.ResponseWriter, r *http.Request) {
	var req quantityReq
	if !decode(w, r, &req) {
		return
	}
	c, err := h.svc.SetQuantity(r.Context(), terminal(r), req.ProductID, req.Quantity)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *Handler) AdjustQuantity(w http.ResponseWriter, r *http.Request) {
	var req adjustReq
	if !decode(w, r, &req) {
		return
	}
	c, err := h.svc.AdjustQuantity(r.Context(), terminal(r), req.ProductID, req.Delta)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// SetUnitPrice handles POST /terminals/{terminal}/cart/price. A rejected
// price still answers with the cart, whose line is back on its reference
// price.
func (h *Handler) SetUnitPrice(w http.ResponseWriter, r *http.Request) {
	var req priceReq
	if !decode(w, r, &req) {
		return
	}
	c, err := h.svc.SetUnitPrice(r.Context(), terminal(r), req.ProductID, req.UnitPrice)
	if err != nil {
		if e, ok := apperr.As(err); ok && e.Kind == apperr.KindValidation && c.Terminal != "" {
			writeJSON(w, http.StatusBadRequest, map[string]interface{}{
				"error":   e.Code,
				"message": err.Error(),
				"cart":    c,
			})
			return
		}
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// RemoveFromCart handles POST /terminals/{terminal}/cart/remove
// body: { "product_id": 1 }
func (h *Handler) RemoveFromCart(w http.ResponseWriter, r *http.Request) {
	var req productReq
	if !decode(w, r, &req) {
		return
	}
	c, err := h.svc.RemoveFromCart(r.Context(), terminal(r), req.ProductID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *Handler) ClearCart(w http.ResponseWriter, r *http.Request) {
	c, err := h.svc.ClearCart(r.Context(), terminal(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *Handler) QuoteCheckout(w http.ResponseWriter, r *http.Request) {
	var req paymentReq
	if !decode(w, r, &req) {
		return
	}
	q, err := h.svc.QuoteCheckout(r.Context(), terminal(r), req.payment())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, q)
}

// Checkout handles POST /terminals/{terminal}/checkout
// body: { "payment_method": "efectivo", "tendered": 100 }
// An optional Idempotency-Key header is forwarded to the Sales API.
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	var req paymentReq
	if !decode(w, r, &req) {
		return
	}
	out, err := h.svc.Checkout(r.Context(), terminal(r), req.payment(), r.Header.Get(headerIdempotencyKey))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, out)
}

func (h *Handler) Receipts(w http.ResponseWriter, r *http.Request) {
	out, err := h.svc.Receipts(r.Context(), terminal(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// CurrentDrawer handles GET /drawer
func (h *Handler) CurrentDrawer(w http.ResponseWriter, r *http.Request) {
	d, err := h.svc.CurrentDrawer(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (h *Handler) OpenDrawer(w http.ResponseWriter, r *http.Request) {
	var req openReq
	if !decode(w, r, &req) {
		return
	}
	d, err := h.svc.OpenDrawer(r.Context(), req.OpeningFloat)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, d)
}

// CloseDrawer handles POST /drawer/close
// body: { "counted_cash": 160 }
func (h *Handler) CloseDrawer(w http.ResponseWriter, r *http.Request) {
	var req closeReq
	if !decode(w, r, &req) {
		return
	}
	out, err := h.svc.CloseDrawer(r.Context(), req.CountedCash)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) Withdraw(w http.ResponseWriter, r *http.Request) {
	var req withdrawReq
	if !decode(w, r, &req) {
		return
	}
	d, err := h.svc.Withdraw(r.Context(), req.Amount, req.Concept)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, d)
}

// DrawerHistory handles GET /drawer/history?from=YYYY-MM-DD&to=YYYY-MM-DD
func (h *Handler) DrawerHistory(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	out, err := h.svc.DrawerHistory(r.Context(), q.Get("from"), q.Get("to"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) ListSales(w http.ResponseWriter, r *http.Request) {
	out, err := h.svc.ListSales(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) GetSale(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	out, err := h.svc.GetSale(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// ListCredits handles GET /credits?estado=&busqueda=
func (h *Handler) ListCredits(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	out, err := h.svc.ListCredits(r.Context(), q.Get("estado"), q.Get("busqueda"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// PayCredit handles POST /credits/{id}/payments
// body: { "amount": 20, "payment_method": "qr" }
func (h *Handler) PayCredit(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req creditPaymentReq
	if !decode(w, r, &req) {
		return
	}
	paymentID, err := h.svc.PayCredit(r.Context(), id, model.CreditPayment{Amount: req.Amount, Method: req.Method})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]int64{"payment_id": paymentID})
}
