package postgres

import (
	"context"

	"github.com/ariefcatur/go-commerce-api/internal/apperr"
	"github.com/ariefcatur/go-commerce-api/internal/clients"
)

const clientCols = `id, name, surname, company, email, telephone, seller_id, created_at`

func scanClient(row scanner) (clients.Client, error) {
	var c clients.Client
	err := row.Scan(&c.ID, &c.Name, &c.Surname, &c.Company, &c.Email, &c.Telephone, &c.Seller, &c.CreatedAt)
	return c, err
}

func (s *Store) queryClients(ctx context.Context, sql string, args ...any) ([]clients.Client, error) {
	rows, err := s.DB.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]clients.Client, 0)
	for rows.Next() {
		c, err := scanClient(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) ListClients(ctx context.Context) ([]clients.Client, error) {
	return s.queryClients(ctx, `SELECT `+clientCols+` FROM clients ORDER BY created_at, id`)
}

func (s *Store) ListClientsBySeller(ctx context.Context, seller string) ([]clients.Client, error) {
	return s.queryClients(ctx, `SELECT `+clientCols+` FROM clients WHERE seller_id=$1 ORDER BY created_at, id`, seller)
}

func (s *Store) Client(ctx context.Context, id string) (clients.Client, error) {
	c, err := scanClient(s.DB.QueryRow(ctx, `SELECT `+clientCols+` FROM clients WHERE id=$1`, id))
	if err != nil {
		return clients.Client{}, notFound(err, "client")
	}
	return c, nil
}

func (s *Store) ClientByEmail(ctx context.Context, email string) (clients.Client, error) {
	c, err := scanClient(s.DB.QueryRow(ctx, `SELECT `+clientCols+` FROM clients WHERE email=$1`, email))
	if err != nil {
		return clients.Client{}, notFound(err, "client")
	}
	return c, nil
}

func (s *Store) InsertClient(ctx context.Context, c clients.Client) error {
	_, err := s.exec(ctx, `INSERT INTO clients(`+clientCols+`) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		c.ID, c.Name, c.Surname, c.Company, c.Email, c.Telephone, c.Seller, c.CreatedAt)
	return conflict(err, "client is already registered")
}

func (s *Store) UpdateClient(ctx context.Context, c clients.Client) error {
	n, err := s.exec(ctx, `UPDATE clients SET name=$2, surname=$3, company=$4, email=$5, telephone=$6 WHERE id=$1`,
		c.ID, c.Name, c.Surname, c.Company, c.Email, c.Telephone)
	if err != nil {
		return conflict(err, "client is already registered")
	}
	if n == 0 {
		return apperr.NotFound("client not found")
	}
	return nil
}

func (s *Store) DeleteClient(ctx context.Context, id string) error {
	n, err := s.exec(ctx, `DELETE FROM clients WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if n == 0 {
		return apperr.NotFound("client not found")
	}
	return nil
}

// SetClientSeller reassigns a client. Administrative only.
func (s *Store) SetClientSeller(ctx context.Context, id, seller string) error {
	n, err := s.exec(ctx, `UPDATE clients SET seller_id=$2 WHERE id=$1`, id, seller)
	if err != nil {
		return err
	}
	if n == 0 {
		return apperr.NotFound("client not found")
	}
	return nil
}
