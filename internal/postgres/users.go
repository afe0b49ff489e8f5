package postgres

import (
	"context"

	"github.com/ariefcatur/go-commerce-api/internal/users"
)

const userCols = `id, name, surname, email, password_hash, created_at`

func scanUser(row scanner) (users.User, error) {
	var u users.User
	err := row.Scan(&u.ID, &u.Name, &u.Surname, &u.Email, &u.PasswordHash, &u.CreatedAt)
	return u, err
}

func (s *Store) User(ctx context.Context, id string) (users.User, error) {
	u, err := scanUser(s.DB.QueryRow(ctx, `SELECT `+userCols+` FROM users WHERE id=$1`, id))
	if err != nil {
		return users.User{}, notFound(err, "user")
	}
	return u, nil
}

func (s *Store) UserByEmail(ctx context.Context, email string) (users.User, error) {
	u, err := scanUser(s.DB.QueryRow(ctx, `SELECT `+userCols+` FROM users WHERE email=$1`, email))
	if err != nil {
		return users.User{}, notFound(err, "user")
	}
	return u, nil
}

func (s *Store) InsertUser(ctx context.Context, u users.User) error {
	_, err := s.exec(ctx, `INSERT INTO users(`+userCols+`) VALUES ($1,$2,$3,$4,$5,$6)`,
		u.ID, u.Name, u.Surname, u.Email, u.PasswordHash, u.CreatedAt)
	return conflict(err, "user is already registered")
}
