package store

import (
	"context"
	"database/sql"
	"sync"
	"time"

	_ "github.com/lib/pq"
	"github.com/shopspring/decimal"
)

// CartLineRow is one persisted cart line. Rows come back in insertion order.
type CartLineRow struct {
	ProductID      int64
	Name           string
	Quantity       int
	UnitPrice      decimal.Decimal
	ReferencePrice decimal.Decimal
	StockCeiling   int
}

// JournalRow records a sale this terminal got accepted upstream.
type JournalRow struct {
	ID             int64
	Terminal       string
	SaleID         int64
	IdempotencyKey string
	Total          decimal.Decimal
	PaymentMethod  string
	Change         decimal.Decimal
	CreatedAt      time.Time
}

const (
	sqlEnsureCart  = `INSERT INTO terminal_carts (terminal) VALUES ($1) ON CONFLICT (terminal) DO NOTHING`
	sqlLockCart    = `SELECT terminal FROM terminal_carts WHERE terminal = $1 FOR UPDATE`
	sqlSelectLines = `SELECT product_id, name, quantity, unit_price, reference_price, stock_ceiling FROM cart_lines WHERE terminal = $1 ORDER BY position`
	sqlDeleteLines = `DELETE FROM cart_lines WHERE terminal = $1`
	sqlInsertLine  = `INSERT INTO cart_lines (terminal, position, product_id, name, quantity, unit_price, reference_price, stock_ceiling) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`
	sqlTouchCart   = `UPDATE terminal_carts SET updated_at = now() WHERE terminal = $1`
)

// PostgresStore is a Store backed by Postgres with in-process locks.
type PostgresStore struct {
	DB *sql.DB

	// per-terminal mutexes so goroutines of this process queue up before
	// reaching the row lock. Keys are terminal -> *sync.Mutex
	locks sync.Map
}

func NewPostgresStore(dsn string) (*PostgresStore, error) {
	DB, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	if err := DB.Ping(); err != nil {
		return nil, err
	}
	return &PostgresStore{DB: DB}, nil
}

func (s *PostgresStore) Close() error { return s.DB.Close() }

// helper: acquire per-terminal lock (process-local). Returns unlock func.
func (s *PostgresStore) lockForTerminal(terminal string) func() {
	if v, ok := s.locks.Load(terminal); ok {
		m := v.(*sync.Mutex)
		m.Lock()
		return m.Unlock
	}

	m := &sync.Mutex{}
	actual, _ := s.locks.LoadOrStore(terminal, m)
	mtx := actual.(*sync.Mutex)
	mtx.Lock()
	return mtx.Unlock
}

func (s *PostgresStore) LoadCart(ctx context.Context, terminal string) ([]CartLineRow, error) {
	return loadLines(ctx, s.DB, terminal)
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
}

func loadLines(ctx context.Context, q queryer, terminal string) ([]CartLineRow, error) {
	rows, err := q.QueryContext(ctx, sqlSelectLines, terminal)
	if err != nil {
		return nil, err
	}
	return scanLines(rows)
}

func scanLines(rows *sql.Rows) ([]CartLineRow, error) {
	defer rows.Close()
	out := []CartLineRow{}
	for rows.Next() {
		var l CartLineRow
		if err := rows.Scan(&l.ProductID, &l.Name, &l.Quantity, &l.UnitPrice, &l.ReferencePrice, &l.StockCeiling); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (s *PostgresStore) UpdateCart(ctx context.Context, terminal string, mutate func([]CartLineRow) ([]CartLineRow, error)) ([]CartLineRow, error) {
	unlock := s.lockForTerminal(terminal)
	defer unlock()

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	// ensure rollback on early return
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if _, err := tx.ExecContext(ctx, sqlEnsureCart, terminal); err != nil {
		return nil, err
	}
	var locked string
	if err := tx.QueryRowContext(ctx, sqlLockCart, terminal).Scan(&locked); err != nil {
		return nil, err
	}

	current, err := loadLines(ctx, tx, terminal)
	if err != nil {
		return nil, err
	}
	next, err := mutate(current)
	if err != nil {
		return nil, err
	}

	if err := writeLines(ctx, tx, terminal, next); err != nil {
		return nil, err
	}
	if _, err := tx.ExecContext(ctx, sqlTouchCart, terminal); err != nil {
		return nil, err
	}
	// callers get what was stored, not what they handed in
	stored, err := loadLines(ctx, tx, terminal)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	committed = true
	return stored, nil
}

func writeLines(ctx context.Context, tx *sql.Tx, terminal string, lines []CartLineRow) error {
	if _, err := tx.ExecContext(ctx, sqlDeleteLines, terminal); err != nil {
		return err
	}
	if len(lines) == 0 {
		return nil
	}
	stmt, err := tx.PrepareContext(ctx, sqlInsertLine)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, l := range lines {
		if _, err := stmt.ExecContext(ctx, terminal, i, l.ProductID, l.Name, l.Quantity, l.UnitPrice, l.ReferencePrice, l.StockCeiling); err != nil {
			return err
		}
	}
	return nil
}

// ClearCart empties the terminal's cart. Clearing an absent cart is not an
// error.
func (s *PostgresStore) ClearCart(ctx context.Context, terminal string) error {
	unlock := s.lockForTerminal(terminal)
	defer unlock()

	_, err := s.DB.ExecContext(ctx, sqlDeleteLines, terminal)
	return err
}
