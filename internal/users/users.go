package users

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ariefcatur/go-commerce-api/internal/apperr"
	"github.com/ariefcatur/go-commerce-api/internal/auth"
)

type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Surname      string    `json:"surname"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created"`
}

type Input struct {
	Name     string `json:"name"`
	Surname  string `json:"surname"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type Repo interface {
	User(ctx context.Context, id string) (User, error)
	UserByEmail(ctx context.Context, email string) (User, error)
	InsertUser(ctx context.Context, u User) error
}

type TokenIssuer interface {
	Issue(id auth.Identity) (string, error)
}

type Service struct {
	repo   Repo
	tokens TokenIssuer
}

func NewService(repo Repo, tokens TokenIssuer) *Service {
	return &Service{repo: repo, tokens: tokens}
}

func (s *Service) Register(ctx context.Context, in Input) (User, error) {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Name = strings.TrimSpace(in.Name)
	in.Surname = strings.TrimSpace(in.Surname)
	if in.Name == "" || in.Surname == "" || in.Email == "" || in.Password == "" {
		return User{}, apperr.Invalid("name, surname, email and password are required")
	}

	_, err := s.repo.UserByEmail(ctx, in.Email)
	if err == nil {
		return User{}, apperr.Conflict("user is already registered")
	}
	if !apperr.Is(err, apperr.KindNotFound) {
		return User{}, err
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return User{}, err
	}
	u := User{
		ID:           uuid.NewString(),
		Name:         in.Name,
		Surname:      in.Surname,
		Email:        in.Email,
		PasswordHash: hash,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.repo.InsertUser(ctx, u); err != nil {
		return User{}, err
	}
	return u, nil
}

// Authenticate checks credentials and returns a signed bearer token.
func (s *Service) Authenticate(ctx context.Context, c Credentials) (string, error) {
	u, err := s.repo.UserByEmail(ctx, strings.ToLower(strings.TrimSpace(c.Email)))
	if apperr.Is(err, apperr.KindNotFound) {
		return "", apperr.NotFound("user does not exist")
	}
	if err != nil {
		return "", err
	}
	ok, err := auth.CheckPassword(u.PasswordHash, c.Password)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", apperr.Unauthenticated("incorrect password")
	}
	return s.tokens.Issue(auth.Identity{UserID: u.ID, Email: u.Email, Name: u.Name, Surname: u.Surname})
}

func (s *Service) Me(ctx context.Context, callerID string) (User, error) {
	if err := auth.RequireCaller(callerID); err != nil {
		return User{}, err
	}
	return s.repo.User(ctx, callerID)
}
