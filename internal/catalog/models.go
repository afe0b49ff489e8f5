package catalog

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

type Product struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Existence int             `json:"existence"`
	Price     decimal.Decimal `json:"price"`
	CreatedAt time.Time       `json:"created"`
}

type Input struct {
	Name      string          `json:"name"`
	Existence int             `json:"existence"`
	Price     decimal.Decimal `json:"price"`
}

// Repo is the product side of the record store. Product returns an
// apperr NotFound when id does not resolve.
type Repo interface {
	ListProducts(ctx context.Context) ([]Product, error)
	Product(ctx context.Context, id string) (Product, error)
	InsertProduct(ctx context.Context, p Product) error
	UpdateProduct(ctx context.Context, p Product) error
	DeleteProduct(ctx context.Context, id string) error
	SearchProducts(ctx context.Context, text string, limit int) ([]Product, error)
}
