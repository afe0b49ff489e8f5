package clients

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ariefcatur/go-commerce-api/internal/apperr"
	"github.com/ariefcatur/go-commerce-api/internal/auth"
)

// Client is a customer contact owned by exactly one seller.
type Client struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Surname   string    `json:"surname"`
	Company   string    `json:"company"`
	Email     string    `json:"email"`
	Telephone string    `json:"telephone"`
	Seller    string    `json:"seller"`
	CreatedAt time.Time `json:"created"`
}

type Input struct {
	Name      string `json:"name"`
	Surname   string `json:"surname"`
	Company   string `json:"company"`
	Email     string `json:"email"`
	Telephone string `json:"telephone"`
}

// Repo is the client side of the record store. Client and ClientByEmail
// return an apperr NotFound when nothing matches.
type Repo interface {
	ListClients(ctx context.Context) ([]Client, error)
	ListClientsBySeller(ctx context.Context, seller string) ([]Client, error)
	Client(ctx context.Context, id string) (Client, error)
	ClientByEmail(ctx context.Context, email string) (Client, error)
	InsertClient(ctx context.Context, c Client) error
	UpdateClient(ctx context.Context, c Client) error
	DeleteClient(ctx context.Context, id string) error
}

type Service struct {
	Repo Repo
	Now  func() time.Time
}

func (in Input) normalized() (Input, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Surname = strings.TrimSpace(in.Surname)
	in.Company = strings.TrimSpace(in.Company)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Telephone = strings.TrimSpace(in.Telephone)
	if in.Name == "" || in.Surname == "" || in.Company == "" || in.Email == "" || in.Telephone == "" {
		return in, apperr.Invalid("name, surname, company, email and telephone are required")
	}
	return in, nil
}

func (s *Service) owned(ctx context.Context, id, callerID string) (Client, error) {
	return auth.Owned(ctx, callerID,
		func(ctx context.Context) (Client, error) { return s.Repo.Client(ctx, id) },
		func(c Client) string { return c.Seller },
	)
}

// emailTaken reports whether email belongs to a client other than exceptID.
func (s *Service) emailTaken(ctx context.Context, email, exceptID string) (bool, error) {
	c, err := s.Repo.ClientByEmail(ctx, email)
	if apperr.Is(err, apperr.KindNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return c.ID != exceptID, nil
}

func (s *Service) List(ctx context.Context, callerID string) ([]Client, error) {
	if err := auth.RequireCaller(callerID); err != nil {
		return nil, err
	}
	return s.Repo.ListClients(ctx)
}

func (s *Service) ListForSeller(ctx context.Context, callerID string) ([]Client, error) {
	if err := auth.RequireCaller(callerID); err != nil {
		return nil, err
	}
	return s.Repo.ListClientsBySeller(ctx, callerID)
}

func (s *Service) Get(ctx context.Context, id, callerID string) (Client, error) {
	return s.owned(ctx, id, callerID)
}

func (s *Service) Create(ctx context.Context, in Input, callerID string) (Client, error) {
	if err := auth.RequireCaller(callerID); err != nil {
		return Client{}, err
	}
	in, err := in.normalized()
	if err != nil {
		return Client{}, err
	}
	taken, err := s.emailTaken(ctx, in.Email, "")
	if err != nil {
		return Client{}, err
	}
	if taken {
		return Client{}, apperr.Conflict("client is already registered")
	}
	now := time.Now().UTC()
	if s.Now != nil {
		now = s.Now()
	}
	c := Client{
		ID:        uuid.NewString(),
		Name:      in.Name,
		Surname:   in.Surname,
		Company:   in.Company,
		Email:     in.Email,
		Telephone: in.Telephone,
		Seller:    callerID,
		CreatedAt: now,
	}
	if err := s.Repo.InsertClient(ctx, c); err != nil {
		return Client{}, err
	}
	return c, nil
}

func (s *Service) Update(ctx context.Context, id string, in Input, callerID string) (Client, error) {
	c, err := s.owned(ctx, id, callerID)
	if err != nil {
		return Client{}, err
	}
	in, err = in.normalized()
	if err != nil {
		return Client{}, err
	}
	if in.Email != c.Email {
		taken, err := s.emailTaken(ctx, in.Email, c.ID)
		if err != nil {
			return Client{}, err
		}
		if taken {
			return Client{}, apperr.Conflict("client is already registered")
		}
	}
	c.Name, c.Surname, c.Company = in.Name, in.Surname, in.Company
	c.Email, c.Telephone = in.Email, in.Telephone
	if err := s.Repo.UpdateClient(ctx, c); err != nil {
		return Client{}, err
	}
	return c, nil
}

func (s *Service) Delete(ctx context.Context, id, callerID string) error {
	if _, err := s.owned(ctx, id, callerID); err != nil {
		return err
	}
	return s.Repo.DeleteClient(ctx, id)
}
