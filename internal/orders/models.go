package orders

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ariefcatur/go-commerce-api/internal/clients"
)

// LineItem is one product and amount in an order, with the name and price
// captured when the order was placed.
type LineItem struct {
	ProductID string          `json:"id"`
	Amount    int             `json:"amount"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
}

type Order struct {
	ID        string          `json:"id"`
	Items     []LineItem      `json:"order"`
	Total     decimal.Decimal `json:"total"`
	ClientID  string          `json:"client"`
	Seller    string          `json:"seller"`
	State     State           `json:"state"`
	CreatedAt time.Time       `json:"date"`

	// Client is populated only by listings that join the client record.
	Client *clients.Client `json:"client_detail,omitempty"`
}

type Input struct {
	Items    []LineItem      `json:"order"`
	Total    decimal.Decimal `json:"total"`
	ClientID string          `json:"client"`
	State    State           `json:"state"`
}

// Patch is a partial update. A nil Items, nil Total or empty State leaves
// the stored value alone. ClientID is always required.
type Patch struct {
	Items    []LineItem       `json:"order"`
	Total    *decimal.Decimal `json:"total"`
	ClientID string           `json:"client"`
	State    State            `json:"state"`
}

// Repo is the order side of the record store. Order returns an apperr
// NotFound when id does not resolve.
type Repo interface {
	Order(ctx context.Context, id string) (Order, error)
	InsertOrder(ctx context.Context, o Order) error
	UpdateOrder(ctx context.Context, o Order) error
	DeleteOrder(ctx context.Context, id string) error
	ListOrders(ctx context.Context) ([]Order, error)
	// ListOrdersBySeller fills Order.Client.
	ListOrdersBySeller(ctx context.Context, seller string) ([]Order, error)
	ListOrdersBySellerState(ctx context.Context, seller string, st State) ([]Order, error)
}

// FreshReader is implemented by repos that put a read cache in front of the
// store. Update and Delete read through it when available.
type FreshReader interface {
	FreshOrder(ctx context.Context, id string) (Order, error)
}

type ClientFinder interface {
	Client(ctx context.Context, id string) (clients.Client, error)
}
