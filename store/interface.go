package store

import "context"

// Store persists what the gateway owns: one open cart per terminal and a
// journal of the sales each terminal submitted. Everything else lives in the
// Sales API.
type Store interface {
	LoadCart(ctx context.Context, terminal string) ([]CartLineRow, error)
	// UpdateCart reads the terminal's cart under lock, hands it to mutate and
	// writes back what mutate returns. A mutate error rolls back.
	UpdateCart(ctx context.Context, terminal string, mutate func([]CartLineRow) ([]CartLineRow, error)) ([]CartLineRow, error)
	ClearCart(ctx context.Context, terminal string) error

	RecordSale(ctx context.Context, j JournalRow) error
	ListJournal(ctx context.Context, terminal string, limit int) ([]JournalRow, error)

	Close() error
}
