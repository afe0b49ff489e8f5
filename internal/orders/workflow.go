package orders

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/ariefcatur/go-commerce-api/internal/apperr"
	"github.com/ariefcatur/go-commerce-api/internal/auth"
	"github.com/ariefcatur/go-commerce-api/internal/clients"
	"github.com/ariefcatur/go-commerce-api/internal/events"
	"github.com/ariefcatur/go-commerce-api/internal/inventory"
	kafkax "github.com/ariefcatur/go-commerce-api/internal/kafka"
)

type StockReconciler interface {
	Reconcile(ctx context.Context, items []inventory.Item) ([]inventory.Adjustment, error)
	Release(ctx context.Context, adj []inventory.Adjustment) error
}

// Workflow places, updates and removes orders on behalf of an explicit
// caller. Event publishers are optional.
type Workflow struct {
	Orders      Repo
	Clients     ClientFinder
	Stock       StockReconciler
	OrderEvents kafkax.Publisher
	StockEvents kafkax.Publisher
	Service     string
	Log         *slog.Logger
	Now         func() time.Time
}

func (w *Workflow) now() time.Time {
	if w.Now != nil {
		return w.Now()
	}
	return time.Now().UTC()
}

func (w *Workflow) logger() *slog.Logger {
	if w.Log != nil {
		return w.Log
	}
	return slog.Default()
}

// ownedClient resolves clientID and requires the caller to be its seller.
func (w *Workflow) ownedClient(ctx context.Context, clientID, callerID string) (clients.Client, error) {
	return auth.Owned(ctx, callerID,
		func(ctx context.Context) (clients.Client, error) {
			if clientID == "" {
				return clients.Client{}, apperr.NotFound("client not found")
			}
			return w.Clients.Client(ctx, clientID)
		},
		func(c clients.Client) string { return c.Seller },
	)
}

// freshOrder bypasses any read cache on w.Orders.
func (w *Workflow) freshOrder(ctx context.Context, id string) (Order, error) {
	if fr, ok := w.Orders.(FreshReader); ok {
		return fr.FreshOrder(ctx, id)
	}
	return w.Orders.Order(ctx, id)
}

func (w *Workflow) ownedOrder(ctx context.Context, id, callerID string, load func(context.Context, string) (Order, error)) (Order, error) {
	return auth.Owned(ctx, callerID,
		func(ctx context.Context) (Order, error) { return load(ctx, id) },
		func(o Order) string { return o.Seller },
	)
}

func validateTotal(in Input) error {
	if in.Total.IsNegative() {
		return apperr.Invalid("total must not be negative")
	}
	return nil
}

func toStockItems(items []LineItem) []inventory.Item {
	out := make([]inventory.Item, 0, len(items))
	for _, it := range items {
		out = append(out, inventory.Item{ProductID: it.ProductID, Amount: it.Amount})
	}
	return out
}

// snapshot fills a blank name or zero price from the reconciled product.
func snapshot(items []LineItem, adj []inventory.Adjustment) []LineItem {
	out := make([]LineItem, len(items))
	copy(out, items)
	for i := range out {
		if i >= len(adj) {
			break
		}
		if out[i].Name == "" {
			out[i].Name = adj[i].Product.Name
		}
		if out[i].Price.IsZero() {
			out[i].Price = adj[i].Product.Price
		}
	}
	return out
}

// Create resolves the client, checks that callerID is its seller, reserves
// stock for every line item and persists the order.
func (w *Workflow) Create(ctx context.Context, in Input, callerID string) (Order, error) {
	if err := auth.RequireCaller(callerID); err != nil {
		return Order{}, err
	}
	if len(in.Items) == 0 {
		return Order{}, apperr.Invalid("an order needs at least one line item")
	}
	if in.State == "" {
		in.State = StatePending
	}
	if !in.State.Valid() {
		return Order{}, apperr.Invalid("unknown order state %q", in.State)
	}
	if err := validateTotal(in); err != nil {
		return Order{}, err
	}

	client, err := w.ownedClient(ctx, in.ClientID, callerID)
	if err != nil {
		return Order{}, err
	}

	adj, err := w.Stock.Reconcile(ctx, toStockItems(in.Items))
	if err != nil {
		return Order{}, err
	}

	o := Order{
		ID:        uuid.NewString(),
		Items:     snapshot(in.Items, adj),
		Total:     in.Total,
		ClientID:  client.ID,
		Seller:    callerID,
		State:     in.State,
		CreatedAt: w.now(),
	}
	if err := w.Orders.InsertOrder(ctx, o); err != nil {
		// Stock is already committed; hand it back.
		if rerr := w.Stock.Release(ctx, adj); rerr != nil {
			w.logger().ErrorContext(ctx, "order insert failed and reserved stock was not released",
				"order_id", o.ID, "client", client.ID, "err", err, "release_err", rerr)
		}
		return Order{}, err
	}

	w.emitOrder(ctx, events.OrderCreated, o)
	w.emitStock(ctx, o.ID, adj)
	return o, nil
}

// Update merges p into order id. Authorization uses the current seller of
// the client named in p, not the seller recorded on the order. A present
// Items list is reconciled in full; the previous list is not credited back.
func (w *Workflow) Update(ctx context.Context, id string, p Patch, callerID string) (Order, error) {
	if err := auth.RequireCaller(callerID); err != nil {
		return Order{}, err
	}
	o, err := w.freshOrder(ctx, id)
	if err != nil {
		return Order{}, err
	}
	client, err := w.ownedClient(ctx, p.ClientID, callerID)
	if err != nil {
		return Order{}, err
	}
	if p.State != "" && !p.State.Valid() {
		return Order{}, apperr.Invalid("unknown order state %q", p.State)
	}
	if p.Total != nil && p.Total.IsNegative() {
		return Order{}, apperr.Invalid("total must not be negative")
	}

	var adj []inventory.Adjustment
	if p.Items != nil {
		adj, err = w.Stock.Reconcile(ctx, toStockItems(p.Items))
		if err != nil {
			return Order{}, err
		}
		o.Items = snapshot(p.Items, adj)
	}
	o.ClientID = client.ID
	if p.Total != nil {
		o.Total = *p.Total
	}
	if p.State != "" {
		o.State = p.State
	}

	if err := w.Orders.UpdateOrder(ctx, o); err != nil {
		return Order{}, err
	}
	w.emitOrder(ctx, events.OrderUpdated, o)
	if len(adj) > 0 {
		w.emitStock(ctx, o.ID, adj)
	}
	return o, nil
}

// Delete removes order id when callerID is the seller recorded on it.
// Reserved stock is not restored.
func (w *Workflow) Delete(ctx context.Context, id, callerID string) error {
	o, err := w.ownedOrder(ctx, id, callerID, w.freshOrder)
	if err != nil {
		return err
	}
	if err := w.Orders.DeleteOrder(ctx, id); err != nil {
		return err
	}
	w.emitOrder(ctx, events.OrderDeleted, o)
	return nil
}

func (w *Workflow) Get(ctx context.Context, id, callerID string) (Order, error) {
	return w.ownedOrder(ctx, id, callerID, w.Orders.Order)
}

func (w *Workflow) List(ctx context.Context, callerID string) ([]Order, error) {
	if err := auth.RequireCaller(callerID); err != nil {
		return nil, err
	}
	return w.Orders.ListOrders(ctx)
}

func (w *Workflow) ListForSeller(ctx context.Context, callerID string) ([]Order, error) {
	if err := auth.RequireCaller(callerID); err != nil {
		return nil, err
	}
	return w.Orders.ListOrdersBySeller(ctx, callerID)
}

func (w *Workflow) ListByState(ctx context.Context, st State, callerID string) ([]Order, error) {
	if err := auth.RequireCaller(callerID); err != nil {
		return nil, err
	}
	if !st.Valid() {
		return nil, apperr.Invalid("unknown order state %q", st)
	}
	return w.Orders.ListOrdersBySellerState(ctx, callerID, st)
}

func (w *Workflow) emitOrder(ctx context.Context, eventType string, o Order) {
	if w.OrderEvents == nil {
		return
	}
	env, err := events.NewEnvelope(eventType, w.Service, o.ID, events.OrderPayload{
		OrderID: o.ID,
		Seller:  o.Seller,
		Client:  o.ClientID,
		State:   string(o.State),
		Total:   o.Total,
	})
	if err == nil {
		err = kafkax.PublishEnvelope(w.OrderEvents, events.PartitionKey(o.ID), env)
	}
	if err != nil {
		w.logger().WarnContext(ctx, "order event not published", "type", eventType, "order_id", o.ID, "err", err)
	}
}

func (w *Workflow) emitStock(ctx context.Context, orderID string, adj []inventory.Adjustment) {
	if w.StockEvents == nil || len(adj) == 0 {
		return
	}
	lines := make([]events.StockLine, 0, len(adj))
	for _, a := range adj {
		lines = append(lines, events.StockLine{
			ProductID: a.Product.ID,
			Name:      a.Product.Name,
			Amount:    a.Amount,
			Remaining: a.Remaining,
		})
	}
	env, err := events.NewEnvelope(events.StockAdjusted, w.Service, orderID, events.StockAdjustedPayload{
		OrderID: orderID,
		Lines:   lines,
	})
	if err == nil {
		err = kafkax.PublishEnvelope(w.StockEvents, events.PartitionKey(orderID), env)
	}
	if err != nil {
		w.logger().WarnContext(ctx, "stock event not published", "order_id", orderID, "err", err)
	}
}
