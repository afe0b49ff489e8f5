package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/ariefcatur/go-commerce-api/internal/apperr"
	"github.com/ariefcatur/go-commerce-api/internal/catalog"
	"github.com/ariefcatur/go-commerce-api/internal/inventory"
)

type stockTx struct{ tx pgx.Tx }

// LockProduct takes the row lock; concurrent reconciles touching the same
// product queue behind it until commit or rollback.
func (t stockTx) LockProduct(ctx context.Context, id string) (catalog.Product, error) {
	p, err := scanProduct(t.tx.QueryRow(ctx, `SELECT `+productCols+` FROM products WHERE id=$1 FOR UPDATE`, id))
	if err != nil {
		return catalog.Product{}, notFound(err, "product")
	}
	return p, nil
}

func (t stockTx) SetExistence(ctx context.Context, id string, existence int) error {
	ct, err := t.tx.Exec(ctx, `UPDATE products SET existence=$2 WHERE id=$1`, id, existence)
	if err != nil {
		return err
	}
	if ct.RowsAffected() != 1 {
		return apperr.NotFound("product not found")
	}
	return nil
}

func (s *Store) WithStockTx(ctx context.Context, fn func(tx inventory.Tx) error) error {
	tx, err := s.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(stockTx{tx: tx}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// DecrementStock is a single conditional update, so the availability check
// and the write cannot interleave with another request.
func (s *Store) DecrementStock(ctx context.Context, id string, amount int) (catalog.Product, bool, error) {
	p, err := scanProduct(s.DB.QueryRow(ctx, `UPDATE products SET existence = existence - $2
		WHERE id=$1 AND existence >= $2
		RETURNING `+productCols, id, amount))
	if err == nil {
		return p, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return catalog.Product{}, false, err
	}
	// Either the product is missing or it has too little stock.
	p, err = s.Product(ctx, id)
	if err != nil {
		return catalog.Product{}, false, err
	}
	return p, false, nil
}
