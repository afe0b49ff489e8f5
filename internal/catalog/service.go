package catalog

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ariefcatur/go-commerce-api/internal/apperr"
)

const searchLimit = 10

type Service struct {
	Repo Repo
	Now  func() time.Time
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

func validate(in Input) error {
	if strings.TrimSpace(in.Name) == "" {
		return apperr.Invalid("product name is required")
	}
	if in.Existence < 0 {
		return apperr.Invalid("existence must not be negative")
	}
	if in.Price.IsNegative() {
		return apperr.Invalid("price must not be negative")
	}
	return nil
}

func (s *Service) List(ctx context.Context) ([]Product, error) {
	return s.Repo.ListProducts(ctx)
}

func (s *Service) Get(ctx context.Context, id string) (Product, error) {
	return s.Repo.Product(ctx, id)
}

func (s *Service) Search(ctx context.Context, text string) ([]Product, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, apperr.Invalid("search text is required")
	}
	return s.Repo.SearchProducts(ctx, text, searchLimit)
}

func (s *Service) Create(ctx context.Context, in Input) (Product, error) {
	if err := validate(in); err != nil {
		return Product{}, err
	}
	p := Product{
		ID:        uuid.NewString(),
		Name:      strings.TrimSpace(in.Name),
		Existence: in.Existence,
		Price:     in.Price,
		CreatedAt: s.now(),
	}
	if err := s.Repo.InsertProduct(ctx, p); err != nil {
		return Product{}, err
	}
	return p, nil
}

func (s *Service) Update(ctx context.Context, id string, in Input) (Product, error) {
	if err := validate(in); err != nil {
		return Product{}, err
	}
	p, err := s.Repo.Product(ctx, id)
	if err != nil {
		return Product{}, err
	}
	p.Name = strings.TrimSpace(in.Name)
	p.Existence = in.Existence
	p.Price = in.Price
	if err := s.Repo.UpdateProduct(ctx, p); err != nil {
		return Product{}, err
	}
	return p, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	if _, err := s.Repo.Product(ctx, id); err != nil {
		return err
	}
	return s.Repo.DeleteProduct(ctx, id)
}
