package store

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

const (
	sqlInsertJournal = `INSERT INTO sale_journal (terminal, sale_id, idempotency_key, total, payment_method, change_given) VALUES ($1,$2,$3,$4,$5,$6) ON CONFLICT (idempotency_key) DO NOTHING`
	sqlListJournal   = `SELECT id, terminal, sale_id, idempotency_key, total, payment_method, change_given, created_at FROM sale_journal WHERE terminal = $1 ORDER BY created_at DESC, id DESC LIMIT $2`
)

// RecordSale journals an accepted sale. Recording the same idempotency key
// twice keeps the first row.
func (s *PostgresStore) RecordSale(ctx context.Context, j JournalRow) error {
	if j.Terminal == "" || j.IdempotencyKey == "" {
		return errors.New("journal row needs terminal and idempotency key")
	}
	_, err := s.DB.ExecContext(ctx, sqlInsertJournal,
		j.Terminal, j.SaleID, j.IdempotencyKey, j.Total, j.PaymentMethod, j.Change)
	return err
}

// ListJournal returns the terminal's most recent sales, newest first.
func (s *PostgresStore) ListJournal(ctx context.Context, terminal string, limit int) ([]JournalRow, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.DB.QueryContext(ctx, sqlListJournal, terminal, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []JournalRow{}
	for rows.Next() {
		var j JournalRow
		if err := rows.Scan(&j.ID, &j.Terminal, &j.SaleID, &j.IdempotencyKey, &j.Total, &j.PaymentMethod, &j.Change, &j.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, j)
	}
	return out, rows.Err()
}

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Migrate applies the embedded schema migrations.
func Migrate(db *sql.DB) error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("migration source: %w", err)
	}
	drv, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("migration driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "postgres", drv)
	if err != nil {
		return fmt.Errorf("migrate init: %w", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate up: %w", err)
	}
	return nil
}
