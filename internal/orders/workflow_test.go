package orders_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ariefcatur/go-commerce-api/internal/apperr"
	"github.com/ariefcatur/go-commerce-api/internal/catalog"
	"github.com/ariefcatur/go-commerce-api/internal/clients"
	"github.com/ariefcatur/go-commerce-api/internal/events"
	"github.com/ariefcatur/go-commerce-api/internal/inventory"
	"github.com/ariefcatur/go-commerce-api/internal/memstore"
	"github.com/ariefcatur/go-commerce-api/internal/orders"
)

type recorder struct {
	mu   sync.Mutex
	envs []events.Envelope
}

func (r *recorder) Publish(_ []byte, value []byte, _ ...kafkago.Header) {
	var env events.Envelope
	if err := json.Unmarshal(value, &env); err != nil {
		panic(err)
	}
	r.mu.Lock()
	r.envs = append(r.envs, env)
	r.mu.Unlock()
}

func (r *recorder) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.envs))
	for _, e := range r.envs {
		out = append(out, e.EventType)
	}
	return out
}

type fixture struct {
	store       *memstore.Store
	wf          *orders.Workflow
	orderEvents *recorder
	stockEvents *recorder
}

var fixedNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func newFixture(t *testing.T, mode inventory.Mode) *fixture {
	t.Helper()
	ctx := context.Background()
	s := memstore.New()
	for _, p := range []catalog.Product{
		{ID: "p1", Name: "Laptop", Existence: 5, Price: decimal.RequireFromString("999.90"), CreatedAt: fixedNow},
		{ID: "p2", Name: "Mouse", Existence: 2, Price: decimal.RequireFromString("19.99"), CreatedAt: fixedNow},
	} {
		require.NoError(t, s.InsertProduct(ctx, p))
	}
	for _, c := range []clients.Client{
		{ID: "c-ana", Name: "Bo", Surname: "Li", Company: "Acme", Email: "bo@acme.io", Telephone: "1", Seller: "ana", CreatedAt: fixedNow},
		{ID: "c-ben", Name: "Cy", Surname: "Ng", Company: "Initech", Email: "cy@initech.io", Telephone: "2", Seller: "ben", CreatedAt: fixedNow},
	} {
		require.NoError(t, s.InsertClient(ctx, c))
	}

	f := &fixture{store: s, orderEvents: &recorder{}, stockEvents: &recorder{}}
	f.wf = &orders.Workflow{
		Orders:      s,
		Clients:     s,
		Stock:       &inventory.Reconciler{Store: s, Mode: mode},
		OrderEvents: f.orderEvents,
		StockEvents: f.stockEvents,
		Service:     "test",
		Now:         func() time.Time { return fixedNow },
	}
	return f
}

func (f *fixture) existence(t *testing.T, id string) int {
	t.Helper()
	p, err := f.store.Product(context.Background(), id)
	require.NoError(t, err)
	return p.Existence
}

func (f *fixture) orderCount(t *testing.T) int {
	t.Helper()
	all, err := f.store.ListOrders(context.Background())
	require.NoError(t, err)
	return len(all)
}

func laptopOrder(client string, amount int) orders.Input {
	return orders.Input{
		Items:    []orders.LineItem{{ProductID: "p1", Amount: amount}},
		Total:    decimal.RequireFromString("999.90").Mul(decimal.NewFromInt(int64(amount))),
		ClientID: client,
	}
}

func TestCreate_PersistsAndReserves(t *testing.T) {
	f := newFixture(t, inventory.ModeAtomic)
	ctx := context.Background()

	o, err := f.wf.Create(ctx, orders.Input{
		Items: []orders.LineItem{
			{ProductID: "p1", Amount: 2},
			{ProductID: "p2", Amount: 1, Name: "Wireless mouse", Price: decimal.RequireFromString("15")},
		},
		Total:    decimal.RequireFromString("2014.80"),
		ClientID: "c-ana",
	}, "ana")
	require.NoError(t, err)

	assert.NotEmpty(t, o.ID)
	assert.Equal(t, "ana", o.Seller)
	assert.Equal(t, "c-ana", o.ClientID)
	assert.Equal(t, orders.StatePending, o.State)
	assert.Equal(t, fixedNow, o.CreatedAt)
	assert.Equal(t, "Laptop", o.Items[0].Name)
	assert.True(t, decimal.RequireFromString("999.90").Equal(o.Items[0].Price))
	assert.Equal(t, "Wireless mouse", o.Items[1].Name)
	assert.True(t, decimal.NewFromInt(15).Equal(o.Items[1].Price))

	assert.Equal(t, 3, f.existence(t, "p1"))
	assert.Equal(t, 1, f.existence(t, "p2"))

	stored, err := f.store.Order(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, o.Items, stored.Items)

	assert.Equal(t, []string{events.OrderCreated}, f.orderEvents.types())
	require.Equal(t, []string{events.StockAdjusted}, f.stockEvents.types())
	p, err := events.Decode[events.StockAdjustedPayload](f.stockEvents.envs[0])
	require.NoError(t, err)
	assert.Equal(t, o.ID, p.OrderID)
	assert.Equal(t, events.StockLine{ProductID: "p1", Name: "Laptop", Amount: 2, Remaining: 3}, p.Lines[0])
}

func TestCreate_ForbiddenLeavesNoTrace(t *testing.T) {
	for _, mode := range []inventory.Mode{inventory.ModeAtomic, inventory.ModeSequential} {
		t.Run(string(mode), func(t *testing.T) {
			f := newFixture(t, mode)
			_, err := f.wf.Create(context.Background(), laptopOrder("c-ben", 1), "ana")
			assert.True(t, apperr.Is(err, apperr.KindForbidden))
			assert.Equal(t, 5, f.existence(t, "p1"))
			assert.Zero(t, f.orderCount(t))
			assert.Empty(t, f.orderEvents.types())
			assert.Empty(t, f.stockEvents.types())
		})
	}
}

func TestCreate_Rejections(t *testing.T) {
	f := newFixture(t, inventory.ModeAtomic)
	ctx := context.Background()

	_, err := f.wf.Create(ctx, laptopOrder("c-ana", 1), "")
	assert.True(t, apperr.Is(err, apperr.KindUnauthenticated))

	_, err = f.wf.Create(ctx, laptopOrder("nobody", 1), "ana")
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	_, err = f.wf.Create(ctx, orders.Input{ClientID: "c-ana"}, "ana")
	assert.True(t, apperr.Is(err, apperr.KindInvalid))

	in := laptopOrder("c-ana", 1)
	in.State = "SHIPPED"
	_, err = f.wf.Create(ctx, in, "ana")
	assert.True(t, apperr.Is(err, apperr.KindInvalid))

	in = laptopOrder("c-ana", 1)
	in.Total = decimal.NewFromInt(-1)
	_, err = f.wf.Create(ctx, in, "ana")
	assert.True(t, apperr.Is(err, apperr.KindInvalid))

	assert.Equal(t, 5, f.existence(t, "p1"))
	assert.Zero(t, f.orderCount(t))
}

func TestCreate_InsufficientStockPersistsNothing(t *testing.T) {
	f := newFixture(t, inventory.ModeAtomic)

	_, err := f.wf.Create(context.Background(), laptopOrder("c-ana", 6), "ana")
	var se *apperr.InsufficientStockError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "Laptop", se.ProductName)
	assert.Equal(t, 6, se.Requested)
	assert.Equal(t, 5, se.Available)
	assert.Zero(t, f.orderCount(t))
	assert.Equal(t, 5, f.existence(t, "p1"))
}

func TestCreate_DrainsStockThenRejects(t *testing.T) {
	f := newFixture(t, inventory.ModeAtomic)
	ctx := context.Background()

	_, err := f.wf.Create(ctx, laptopOrder("c-ana", 5), "ana")
	require.NoError(t, err)
	assert.Equal(t, 0, f.existence(t, "p1"))

	_, err = f.wf.Create(ctx, laptopOrder("c-ana", 1), "ana")
	assert.True(t, apperr.Is(err, apperr.KindInsufficientStock))
	assert.Equal(t, 1, f.orderCount(t))
}

func TestUpdate_AuthorizesOnCurrentClientSeller(t *testing.T) {
	f := newFixture(t, inventory.ModeAtomic)
	ctx := context.Background()

	o, err := f.wf.Create(ctx, laptopOrder("c-ana", 1), "ana")
	require.NoError(t, err)

	// The client moves to ben; the order still records ana as its seller.
	require.NoError(t, f.store.SetClientSeller(ctx, "c-ana", "ben"))

	_, err = f.wf.Update(ctx, o.ID, orders.Patch{ClientID: "c-ana", State: orders.StateCompleted}, "ana")
	assert.True(t, apperr.Is(err, apperr.KindForbidden))

	got, err := f.wf.Update(ctx, o.ID, orders.Patch{ClientID: "c-ana", State: orders.StateCompleted}, "ben")
	require.NoError(t, err)
	assert.Equal(t, orders.StateCompleted, got.State)
	assert.Equal(t, "ana", got.Seller)
	assert.True(t, o.Total.Equal(got.Total))
	assert.Equal(t, o.Items, got.Items)
	assert.Equal(t, 4, f.existence(t, "p1"))
}

func TestUpdate_ItemsReconciledAgainWithoutCredit(t *testing.T) {
	f := newFixture(t, inventory.ModeAtomic)
	ctx := context.Background()

	o, err := f.wf.Create(ctx, laptopOrder("c-ana", 2), "ana")
	require.NoError(t, err)
	assert.Equal(t, 3, f.existence(t, "p1"))

	total := decimal.RequireFromString("2999.70")
	got, err := f.wf.Update(ctx, o.ID, orders.Patch{
		ClientID: "c-ana",
		Items:    []orders.LineItem{{ProductID: "p1", Amount: 3}},
		Total:    &total,
	}, "ana")
	require.NoError(t, err)
	assert.Equal(t, 3, got.Items[0].Amount)
	assert.True(t, total.Equal(got.Total))
	assert.Equal(t, 0, f.existence(t, "p1"))

	_, err = f.wf.Update(ctx, o.ID, orders.Patch{
		ClientID: "c-ana",
		Items:    []orders.LineItem{{ProductID: "p1", Amount: 1}},
	}, "ana")
	assert.True(t, apperr.Is(err, apperr.KindInsufficientStock))

	stored, err := f.store.Order(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, stored.Items[0].Amount)
	assert.Equal(t, []string{events.OrderCreated, events.OrderUpdated}, f.orderEvents.types())
	assert.Equal(t, []string{events.StockAdjusted, events.StockAdjusted}, f.stockEvents.types())
}

func TestUpdate_Rejections(t *testing.T) {
	f := newFixture(t, inventory.ModeAtomic)
	ctx := context.Background()
	o, err := f.wf.Create(ctx, laptopOrder("c-ana", 1), "ana")
	require.NoError(t, err)

	_, err = f.wf.Update(ctx, "missing", orders.Patch{ClientID: "c-ana"}, "ana")
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	_, err = f.wf.Update(ctx, o.ID, orders.Patch{}, "ana")
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	_, err = f.wf.Update(ctx, o.ID, orders.Patch{ClientID: "c-ana"}, "")
	assert.True(t, apperr.Is(err, apperr.KindUnauthenticated))

	_, err = f.wf.Update(ctx, o.ID, orders.Patch{ClientID: "c-ana", State: "LOST"}, "ana")
	assert.True(t, apperr.Is(err, apperr.KindInvalid))

	_, err = f.wf.Update(ctx, o.ID, orders.Patch{ClientID: "c-ben", Items: []orders.LineItem{{ProductID: "p1", Amount: 1}}}, "ana")
	assert.True(t, apperr.Is(err, apperr.KindForbidden))
	assert.Equal(t, 4, f.existence(t, "p1"))
}

func TestDelete_AuthorizesOnOrderSeller(t *testing.T) {
	f := newFixture(t, inventory.ModeAtomic)
	ctx := context.Background()

	o, err := f.wf.Create(ctx, laptopOrder("c-ana", 2), "ana")
	require.NoError(t, err)
	require.NoError(t, f.store.SetClientSeller(ctx, "c-ana", "ben"))

	assert.True(t, apperr.Is(f.wf.Delete(ctx, o.ID, "ben"), apperr.KindForbidden))
	assert.True(t, apperr.Is(f.wf.Delete(ctx, o.ID, ""), apperr.KindUnauthenticated))
	require.NoError(t, f.wf.Delete(ctx, o.ID, "ana"))

	_, err = f.store.Order(ctx, o.ID)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
	assert.True(t, apperr.Is(f.wf.Delete(ctx, o.ID, "ana"), apperr.KindNotFound))

	// Stock reserved by the order stays reserved.
	assert.Equal(t, 3, f.existence(t, "p1"))
	assert.Equal(t, []string{events.OrderCreated, events.OrderDeleted}, f.orderEvents.types())
}

func TestGet_IsReadOnlyAndRepeatable(t *testing.T) {
	f := newFixture(t, inventory.ModeAtomic)
	ctx := context.Background()
	o, err := f.wf.Create(ctx, laptopOrder("c-ana", 1), "ana")
	require.NoError(t, err)

	first, err := f.wf.Get(ctx, o.ID, "ana")
	require.NoError(t, err)
	second, err := f.wf.Get(ctx, o.ID, "ana")
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 4, f.existence(t, "p1"))

	_, err = f.wf.Get(ctx, o.ID, "ben")
	assert.True(t, apperr.Is(err, apperr.KindForbidden))
	_, err = f.wf.Get(ctx, "missing", "ana")
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestListings(t *testing.T) {
	f := newFixture(t, inventory.ModeAtomic)
	ctx := context.Background()

	_, err := f.wf.Create(ctx, laptopOrder("c-ana", 1), "ana")
	require.NoError(t, err)
	in := laptopOrder("c-ben", 1)
	in.State = orders.StateCompleted
	_, err = f.wf.Create(ctx, in, "ben")
	require.NoError(t, err)

	all, err := f.wf.List(ctx, "ana")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	mine, err := f.wf.ListForSeller(ctx, "ana")
	require.NoError(t, err)
	require.Len(t, mine, 1)
	require.NotNil(t, mine[0].Client)
	assert.Equal(t, "Acme", mine[0].Client.Company)

	done, err := f.wf.ListByState(ctx, orders.StateCompleted, "ben")
	require.NoError(t, err)
	assert.Len(t, done, 1)
	pending, err := f.wf.ListByState(ctx, orders.StatePending, "ben")
	require.NoError(t, err)
	assert.Empty(t, pending)

	_, err = f.wf.ListByState(ctx, "LOST", "ben")
	assert.True(t, apperr.Is(err, apperr.KindInvalid))
	_, err = f.wf.List(ctx, "")
	assert.True(t, apperr.Is(err, apperr.KindUnauthenticated))
}

func TestCreate_WithoutPublishers(t *testing.T) {
	f := newFixture(t, inventory.ModeSequential)
	f.wf.OrderEvents, f.wf.StockEvents = nil, nil

	_, err := f.wf.Create(context.Background(), laptopOrder("c-ana", 1), "ana")
	require.NoError(t, err)
	assert.Equal(t, 4, f.existence(t, "p1"))
}

type mockPublisher struct{ mock.Mock }

func (m *mockPublisher) Publish(key, value []byte, headers ...kafkago.Header) {
	m.Called(key, value, headers)
}

func TestDelete_PublishesKeyedEnvelope(t *testing.T) {
	f := newFixture(t, inventory.ModeAtomic)
	ctx := context.Background()
	o, err := f.wf.Create(ctx, laptopOrder("c-ana", 1), "ana")
	require.NoError(t, err)

	pub := &mockPublisher{}
	pub.On("Publish", []byte(o.ID), mock.MatchedBy(func(v []byte) bool {
		var env events.Envelope
		if json.Unmarshal(v, &env) != nil {
			return false
		}
		p, err := events.Decode[events.OrderPayload](env)
		return err == nil && env.EventType == events.OrderDeleted &&
			env.CorrelationID == o.ID && env.Producer == "test" && p.Seller == "ana"
	}), []kafkago.Header{
		{Key: "x-event-type", Value: []byte(events.OrderDeleted)},
		{Key: "x-event-version", Value: []byte("1")},
	}).Once()
	f.wf.OrderEvents = pub

	require.NoError(t, f.wf.Delete(ctx, o.ID, "ana"))
	pub.AssertExpectations(t)
}

type failingInsert struct{ *memstore.Store }

func (failingInsert) InsertOrder(context.Context, orders.Order) error {
	return errors.New("disk full")
}

func TestCreate_InsertFailureReleasesStock(t *testing.T) {
	for _, mode := range []inventory.Mode{inventory.ModeAtomic, inventory.ModeSequential} {
		t.Run(string(mode), func(t *testing.T) {
			f := newFixture(t, mode)
			f.wf.Orders = failingInsert{f.store}

			_, err := f.wf.Create(context.Background(), orders.Input{
				Items:    []orders.LineItem{{ProductID: "p1", Amount: 2}, {ProductID: "p2", Amount: 2}},
				Total:    decimal.RequireFromString("2039.78"),
				ClientID: "c-ana",
			}, "ana")
			require.EqualError(t, err, "disk full")

			assert.Equal(t, 5, f.existence(t, "p1"))
			assert.Equal(t, 2, f.existence(t, "p2"))
			assert.Zero(t, f.orderCount(t))
			assert.Empty(t, f.orderEvents.types())
			assert.Empty(t, f.stockEvents.types())
		})
	}
}
