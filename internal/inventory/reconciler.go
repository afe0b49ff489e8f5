package inventory

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ariefcatur/go-commerce-api/internal/apperr"
	"github.com/ariefcatur/go-commerce-api/internal/catalog"
)

type Mode string

const (
	// ModeAtomic locks every referenced product in one transaction and
	// commits all decrements or none.
	ModeAtomic Mode = "atomic"
	// ModeSequential commits each item on its own with a conditional
	// decrement. Items before a failing one stay decremented.
	ModeSequential Mode = "sequential"
)

func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeAtomic, ModeSequential:
		return Mode(s), nil
	case "":
		return ModeAtomic, nil
	}
	return "", fmt.Errorf("unknown reconcile mode %q", s)
}

// Item is one line item to reserve.
type Item struct {
	ProductID string
	Amount    int
}

// Adjustment is a committed decrement, with the product as it was read.
type Adjustment struct {
	Product   catalog.Product
	Amount    int
	Remaining int
}

// Tx is a stock transaction. LockProduct holds the row until the
// transaction ends and sees earlier SetExistence calls in the same Tx.
type Tx interface {
	LockProduct(ctx context.Context, id string) (catalog.Product, error)
	SetExistence(ctx context.Context, id string, existence int) error
}

type Store interface {
	// WithStockTx commits when fn returns nil and rolls back otherwise.
	WithStockTx(ctx context.Context, fn func(tx Tx) error) error
	// DecrementStock subtracts amount only if existence >= amount. It returns
	// the product after the update, or as it stands when ok is false.
	DecrementStock(ctx context.Context, id string, amount int) (p catalog.Product, ok bool, err error)
}

type Reconciler struct {
	Store Store
	Mode  Mode
	Log   *slog.Logger
}

func validateItems(items []Item) error {
	for i, it := range items {
		if it.ProductID == "" {
			return apperr.Invalid("line item %d: product id is required", i+1)
		}
		if it.Amount <= 0 {
			return apperr.Invalid("line item %d: amount must be positive", i+1)
		}
	}
	return nil
}

// Reconcile validates items in order against current stock and commits the
// decrements. The first failing item decides the error.
func (r *Reconciler) Reconcile(ctx context.Context, items []Item) ([]Adjustment, error) {
	if err := validateItems(items); err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, nil
	}
	var (
		adj []Adjustment
		err error
	)
	if r.Mode == ModeSequential {
		adj, err = r.sequential(ctx, items)
	} else {
		adj, err = r.atomic(ctx, items)
	}
	if err != nil {
		return nil, err
	}
	if r.Log != nil {
		r.Log.DebugContext(ctx, "stock reconciled", "mode", r.mode(), "items", len(adj))
	}
	return adj, nil
}

func (r *Reconciler) mode() Mode {
	if r.Mode == "" {
		return ModeAtomic
	}
	return r.Mode
}

func (r *Reconciler) atomic(ctx context.Context, items []Item) ([]Adjustment, error) {
	var adj []Adjustment
	err := r.Store.WithStockTx(ctx, func(tx Tx) error {
		adj = make([]Adjustment, 0, len(items))
		for _, it := range items {
			p, err := tx.LockProduct(ctx, it.ProductID)
			if err != nil {
				return err
			}
			if it.Amount > p.Existence {
				return insufficient(p, it.Amount)
			}
			left := p.Existence - it.Amount
			if err := tx.SetExistence(ctx, p.ID, left); err != nil {
				return err
			}
			adj = append(adj, Adjustment{Product: p, Amount: it.Amount, Remaining: left})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return adj, nil
}

func (r *Reconciler) sequential(ctx context.Context, items []Item) ([]Adjustment, error) {
	adj := make([]Adjustment, 0, len(items))
	for _, it := range items {
		p, ok, err := r.Store.DecrementStock(ctx, it.ProductID, it.Amount)
		if err != nil {
			r.logPartial(ctx, adj, err)
			return nil, err
		}
		if !ok {
			err := insufficient(p, it.Amount)
			r.logPartial(ctx, adj, err)
			return nil, err
		}
		adj = append(adj, Adjustment{Product: p, Amount: it.Amount, Remaining: p.Existence})
	}
	return adj, nil
}

// Release credits adj back in one transaction. It undoes a Reconcile whose
// order could not be stored; it is not used when orders are deleted.
func (r *Reconciler) Release(ctx context.Context, adj []Adjustment) error {
	if len(adj) == 0 {
		return nil
	}
	return r.Store.WithStockTx(ctx, func(tx Tx) error {
		for _, a := range adj {
			p, err := tx.LockProduct(ctx, a.Product.ID)
			if err != nil {
				return err
			}
			if err := tx.SetExistence(ctx, p.ID, p.Existence+a.Amount); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *Reconciler) logPartial(ctx context.Context, done []Adjustment, err error) {
	if r.Log == nil || len(done) == 0 {
		return
	}
	ids := make([]string, 0, len(done))
	for _, a := range done {
		ids = append(ids, a.Product.ID)
	}
	r.Log.WarnContext(ctx, "reconcile stopped after partial decrement", "decremented", ids, "err", err)
}

func insufficient(p catalog.Product, requested int) error {
	return &apperr.InsufficientStockError{
		ProductID:   p.ID,
		ProductName: p.Name,
		Requested:   requested,
		Available:   p.Existence,
	}
}
