// Package events receives the Sales API's push cues. A cue only says that
// something changed; its payload is never trusted and handlers refetch the
// authoritative state instead.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// Name is a push cue as the Sales API emits it.
type Name string

const (
	SaleCreated           Name = "venta_creada"
	PurchaseCreated       Name = "compra_creada"
	CreditPaymentRecorded Name = "pago_credito_registrado"
	DrawerWithdrawal      Name = "retiro_caja"
	DrawerOpened          Name = "caja_abierta"
	DrawerClosed          Name = "caja_cerrada"
)

var known = map[Name]bool{
	SaleCreated:           true,
	PurchaseCreated:       true,
	CreditPaymentRecorded: true,
	DrawerWithdrawal:      true,
	DrawerOpened:          true,
	DrawerClosed:          true,
}

func (n Name) Known() bool { return known[n] }

type Handler func(ctx context.Context, name Name) error

// Dispatcher routes cues to handlers. Unknown cues are dropped.
type Dispatcher struct {
	mu       sync.RWMutex
	handlers map[Name][]Handler
	log      *zap.Logger
}

func NewDispatcher(log *zap.Logger) *Dispatcher {
	if log == nil {
		log = zap.NewNop()
	}
	return &Dispatcher{handlers: map[Name][]Handler{}, log: log}
}

func (d *Dispatcher) Register(h Handler, names ...Name) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, n := range names {
		d.handlers[n] = append(d.handlers[n], h)
	}
}

// Dispatch runs every handler for name and returns the first error.
func (d *Dispatcher) Dispatch(ctx context.Context, name Name) error {
	d.mu.RLock()
	hs := d.handlers[name]
	d.mu.RUnlock()
	if len(hs) == 0 {
		d.log.Debug("push cue ignored", zap.String("event", string(name)))
		return nil
	}
	var first error
	for _, h := range hs {
		if err := h(ctx, name); err != nil && first == nil {
			first = fmt.Errorf("handle %s: %w", name, err)
		}
	}
	return first
}

// nameFromMessage reads the cue from the routing key, falling back to an
// "event" field in the body for publishers that use a single key.
func nameFromMessage(routingKey string, body []byte) (Name, bool) {
	if n := Name(strings.TrimSpace(routingKey)); n.Known() {
		return n, true
	}
	var env struct {
		Event string `json:"event"`
	}
	if err := json.Unmarshal(body, &env); err == nil {
		if n := Name(strings.TrimSpace(env.Event)); n.Known() {
			return n, true
		}
	}
	return "", false
}
