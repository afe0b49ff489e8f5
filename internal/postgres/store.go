package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/ariefcatur/go-commerce-api/internal/catalog"
	"github.com/ariefcatur/go-commerce-api/internal/clients"
	"github.com/ariefcatur/go-commerce-api/internal/inventory"
	"github.com/ariefcatur/go-commerce-api/internal/orders"
	"github.com/ariefcatur/go-commerce-api/internal/users"
)

// Store is the record store on Postgres. Monetary columns are NUMERIC and
// travel as text so no precision is lost on either side.
type Store struct{ DB *pgxpool.Pool }

var (
	_ catalog.Repo    = (*Store)(nil)
	_ clients.Repo    = (*Store)(nil)
	_ users.Repo      = (*Store)(nil)
	_ orders.Repo     = (*Store)(nil)
	_ inventory.Store = (*Store)(nil)
)

type scanner interface {
	Scan(dest ...any) error
}

func parseMoney(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("parse amount %q: %w", s, err)
	}
	return d, nil
}

func (s *Store) exec(ctx context.Context, sql string, args ...any) (int64, error) {
	ct, err := s.DB.Exec(ctx, sql, args...)
	if err != nil {
		return 0, err
	}
	return ct.RowsAffected(), nil
}
