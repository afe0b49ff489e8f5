package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ariefcatur/go-commerce-api/internal/apperr"
	"github.com/ariefcatur/go-commerce-api/internal/clients"
	"github.com/ariefcatur/go-commerce-api/internal/orders"
)

const orderCols = `o.id, o.items, o.total::text, o.client_id, o.seller_id, o.state, o.created_at`

func scanOrder(row scanner, extra ...any) (orders.Order, error) {
	var (
		o     orders.Order
		items []byte
		total string
		state string
	)
	dest := append([]any{&o.ID, &items, &total, &o.ClientID, &o.Seller, &state, &o.CreatedAt}, extra...)
	if err := row.Scan(dest...); err != nil {
		return orders.Order{}, err
	}
	if err := json.Unmarshal(items, &o.Items); err != nil {
		return orders.Order{}, fmt.Errorf("decode items of order %s: %w", o.ID, err)
	}
	var err error
	if o.Total, err = parseMoney(total); err != nil {
		return orders.Order{}, err
	}
	o.State = orders.State(state)
	return o, nil
}

func encodeItems(items []orders.LineItem) ([]byte, error) {
	if items == nil {
		items = []orders.LineItem{}
	}
	return json.Marshal(items)
}

func (s *Store) queryOrders(ctx context.Context, sql string, args ...any) ([]orders.Order, error) {
	rows, err := s.DB.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]orders.Order, 0)
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (s *Store) Order(ctx context.Context, id string) (orders.Order, error) {
	o, err := scanOrder(s.DB.QueryRow(ctx, `SELECT `+orderCols+` FROM orders o WHERE o.id=$1`, id))
	if err != nil {
		return orders.Order{}, notFound(err, "order")
	}
	return o, nil
}

func (s *Store) InsertOrder(ctx context.Context, o orders.Order) error {
	items, err := encodeItems(o.Items)
	if err != nil {
		return err
	}
	_, err = s.exec(ctx, `INSERT INTO orders(id, items, total, client_id, seller_id, state, created_at)
		VALUES ($1, $2, $3::numeric, $4, $5, $6, $7)`,
		o.ID, items, o.Total.String(), o.ClientID, o.Seller, string(o.State), o.CreatedAt)
	return err
}

func (s *Store) UpdateOrder(ctx context.Context, o orders.Order) error {
	items, err := encodeItems(o.Items)
	if err != nil {
		return err
	}
	n, err := s.exec(ctx, `UPDATE orders SET items=$2, total=$3::numeric, client_id=$4, state=$5 WHERE id=$1`,
		o.ID, items, o.Total.String(), o.ClientID, string(o.State))
	if err != nil {
		return err
	}
	if n == 0 {
		return apperr.NotFound("order not found")
	}
	return nil
}

func (s *Store) DeleteOrder(ctx context.Context, id string) error {
	n, err := s.exec(ctx, `DELETE FROM orders WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if n == 0 {
		return apperr.NotFound("order not found")
	}
	return nil
}

func (s *Store) ListOrders(ctx context.Context) ([]orders.Order, error) {
	return s.queryOrders(ctx, `SELECT `+orderCols+` FROM orders o ORDER BY o.created_at, o.id`)
}

func (s *Store) ListOrdersBySellerState(ctx context.Context, seller string, st orders.State) ([]orders.Order, error) {
	return s.queryOrders(ctx, `SELECT `+orderCols+` FROM orders o
		WHERE o.seller_id=$1 AND o.state=$2 ORDER BY o.created_at, o.id`, seller, string(st))
}

// ListOrdersBySeller joins the client of each order. Orders whose client was
// deleted come back with a nil Client.
func (s *Store) ListOrdersBySeller(ctx context.Context, seller string) ([]orders.Order, error) {
	rows, err := s.DB.Query(ctx, `SELECT `+orderCols+`,
			c.id, c.name, c.surname, c.company, c.email, c.telephone, c.seller_id, c.created_at
		FROM orders o LEFT JOIN clients c ON c.id = o.client_id
		WHERE o.seller_id=$1 ORDER BY o.created_at, o.id`, seller)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]orders.Order, 0)
	for rows.Next() {
		var (
			cid, name, surname, company, email, tel, cseller *string
			ccreated                                         *time.Time
		)
		o, err := scanOrder(rows, &cid, &name, &surname, &company, &email, &tel, &cseller, &ccreated)
		if err != nil {
			return nil, err
		}
		if cid != nil {
			o.Client = &clients.Client{
				ID:        *cid,
				Name:      deref(name),
				Surname:   deref(surname),
				Company:   deref(company),
				Email:     deref(email),
				Telephone: deref(tel),
				Seller:    deref(cseller),
			}
			if ccreated != nil {
				o.Client.CreatedAt = *ccreated
			}
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
