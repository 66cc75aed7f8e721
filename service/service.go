package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"licoreria-pos/apperr"
	"licoreria-pos/cart"
	"licoreria-pos/latch"
	"licoreria-pos/model"
	"licoreria-pos/store"
)

var (
	ErrTerminalRequired = apperr.Validation("terminal_required", "terminal is required")
	ErrProductNotFound  = apperr.NotFound("product_not_found", "product not found")
)

// Service runs one gateway: it owns the per-terminal carts and a snapshot of
// the catalog, and defers everything else to the Sales API.
type Service struct {
	store store.Store
	api   SalesAPI
	latch latch.Latch
	log   *zap.Logger

	// catalog is replaced wholesale on every refetch
	mu      sync.RWMutex
	catalog []model.Product

	now    func() time.Time
	newKey func() string
}

func NewService(s store.Store, api SalesAPI, l latch.Latch, log *zap.Logger) *Service {
	if l == nil {
		l = latch.NewLocal()
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		store:  s,
		api:    api,
		latch:  l,
		log:    log,
		now:    time.Now,
		newKey: uuid.NewString,
	}
}

func (s *Service) refreshCatalog(ctx context.Context) ([]model.Product, error) {
	products, err := s.api.ListProducts(ctx)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.catalog = products
	s.mu.Unlock()
	return products, nil
}

func (s *Service) snapshot() []model.Product {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.catalog
}

// ListProducts refetches the catalog and returns what can be sold, filtered
// by a case-insensitive match on name or category.
func (s *Service) ListProducts(ctx context.Context, query string) ([]ProductDTO, error) {
	products, err := s.refreshCatalog(ctx)
	if err != nil {
		return nil, err
	}
	q := strings.ToLower(strings.TrimSpace(query))
	out := make([]ProductDTO, 0, len(products))
	for _, p := range products {
		if p.Stock <= 0 {
			continue
		}
		if q != "" && !strings.Contains(strings.ToLower(p.Name), q) && !strings.Contains(strings.ToLower(p.Category), q) {
			continue
		}
		out = append(out, productDTO(p))
	}
	return out, nil
}

// product resolves from the snapshot, refetching once on a miss.
func (s *Service) product(ctx context.Context, id int64) (model.Product, error) {
	for _, p := range s.snapshot() {
		if p.ID == id {
			return p, nil
		}
	}
	products, err := s.refreshCatalog(ctx)
	if err != nil {
		return model.Product{}, err
	}
	for _, p := range products {
		if p.ID == id {
			return p, nil
		}
	}
	return model.Product{}, ErrProductNotFound
}

func checkTerminal(terminal string) error {
	if strings.TrimSpace(terminal) == "" {
		return ErrTerminalRequired
	}
	return nil
}

// mutateCart runs fn on the terminal's persisted cart and stores the result.
func (s *Service) mutateCart(ctx context.Context, terminal string, fn func(*cart.Cart) error) (CartDTO, error) {
	if err := checkTerminal(terminal); err != nil {
		return CartDTO{}, err
	}
	rows, err := s.store.UpdateCart(ctx, terminal, func(rows []store.CartLineRow) ([]store.CartLineRow, error) {
		c := cartFromRows(rows)
		if err := fn(c); err != nil {
			return nil, err
		}
		return rowsFromCart(c), nil
	})
	if err != nil {
		return CartDTO{}, err
	}
	return cartDTO(terminal, cartFromRows(rows)), nil
}

func (s *Service) GetCart(ctx context.Context, terminal string) (CartDTO, error) {
	if err := checkTerminal(terminal); err != nil {
		return CartDTO{}, err
	}
	rows, err := s.store.LoadCart(ctx, terminal)
	if err != nil {
		return CartDTO{}, err
	}
	return cartDTO(terminal, cartFromRows(rows)), nil
}

func (s *Service) AddToCart(ctx context.Context, terminal string, productID int64) (CartDTO, error) {
	if err := checkTerminal(terminal); err != nil {
		return CartDTO{}, err
	}
	p, err := s.product(ctx, productID)
	if err != nil {
		return CartDTO{}, err
	}
	dto, err := s.mutateCart(ctx, terminal, func(c *cart.Cart) error {
		_, err := c.Add(p, p.SalePrice)
		return err
	})
	if err != nil {
		return CartDTO{}, err
	}
	s.log.Debug("cart add", zap.String("terminal", terminal), zap.Int64("product_id", productID))
	return dto, nil
}

func (s *Service) SetQuantity(ctx context.Context, terminal string, productID int64, quantity int) (CartDTO, error) {
	return s.mutateCart(ctx, terminal, func(c *cart.Cart) error {
		return c.SetQuantity(productID, quantity)
	})
}

func (s *Service) AdjustQuantity(ctx context.Context, terminal string, productID int64, delta int) (CartDTO, error) {
	return s.mutateCart(ctx, terminal, func(c *cart.Cart) error {
		return c.Adjust(productID, delta)
	})
}

// SetUnitPrice keeps the reverted price when the new one is rejected, so the
// cart is saved and the rejection is still reported.
func (s *Service) SetUnitPrice(ctx context.Context, terminal string, productID int64, price decimal.Decimal) (CartDTO, error) {
	var rejected error
	dto, err := s.mutateCart(ctx, terminal, func(c *cart.Cart) error {
		_, err := c.SetUnitPrice(productID, price)
		if errors.Is(err, cart.ErrInvalidPrice) {
			rejected = err
			return nil
		}
		return err
	})
	if err != nil {
		return CartDTO{}, err
	}
	return dto, rejected
}

func (s *Service) RemoveFromCart(ctx context.Context, terminal string, productID int64) (CartDTO, error) {
	return s.mutateCart(ctx, terminal, func(c *cart.Cart) error {
		c.Remove(productID)
		return nil
	})
}

func (s *Service) ClearCart(ctx context.Context, terminal string) (CartDTO, error) {
	if err := checkTerminal(terminal); err != nil {
		return CartDTO{}, err
	}
	if err := s.store.ClearCart(ctx, terminal); err != nil {
		return CartDTO{}, err
	}
	return cartDTO(terminal, cart.New()), nil
}
