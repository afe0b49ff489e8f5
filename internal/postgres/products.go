package postgres

import (
	"context"
	"strings"

	"github.com/ariefcatur/go-commerce-api/internal/apperr"
	"github.com/ariefcatur/go-commerce-api/internal/catalog"
)

const productCols = `id, name, existence, price::text, created_at`

func scanProduct(row scanner) (catalog.Product, error) {
	var (
		p     catalog.Product
		price string
	)
	if err := row.Scan(&p.ID, &p.Name, &p.Existence, &price, &p.CreatedAt); err != nil {
		return catalog.Product{}, err
	}
	var err error
	p.Price, err = parseMoney(price)
	return p, err
}

func (s *Store) queryProducts(ctx context.Context, sql string, args ...any) ([]catalog.Product, error) {
	rows, err := s.DB.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]catalog.Product, 0)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Store) ListProducts(ctx context.Context) ([]catalog.Product, error) {
	return s.queryProducts(ctx, `SELECT `+productCols+` FROM products ORDER BY created_at, id`)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func (s *Store) SearchProducts(ctx context.Context, text string, limit int) ([]catalog.Product, error) {
	return s.queryProducts(ctx, `SELECT `+productCols+` FROM products
		WHERE lower(name) LIKE '%' || lower($1) || '%'
		ORDER BY created_at, id LIMIT $2`, likeEscaper.Replace(text), limit)
}

func (s *Store) Product(ctx context.Context, id string) (catalog.Product, error) {
	p, err := scanProduct(s.DB.QueryRow(ctx, `SELECT `+productCols+` FROM products WHERE id=$1`, id))
	if err != nil {
		return catalog.Product{}, notFound(err, "product")
	}
	return p, nil
}

func (s *Store) InsertProduct(ctx context.Context, p catalog.Product) error {
	_, err := s.exec(ctx, `INSERT INTO products(id, name, existence, price, created_at)
		VALUES ($1, $2, $3, $4::numeric, $5)`, p.ID, p.Name, p.Existence, p.Price.String(), p.CreatedAt)
	return err
}

func (s *Store) UpdateProduct(ctx context.Context, p catalog.Product) error {
	n, err := s.exec(ctx, `UPDATE products SET name=$2, existence=$3, price=$4::numeric WHERE id=$1`,
		p.ID, p.Name, p.Existence, p.Price.String())
	if err != nil {
		return err
	}
	if n == 0 {
		return apperr.NotFound("product not found")
	}
	return nil
}

func (s *Store) DeleteProduct(ctx context.Context, id string) error {
	n, err := s.exec(ctx, `DELETE FROM products WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if n == 0 {
		return apperr.NotFound("product not found")
	}
	return nil
}
