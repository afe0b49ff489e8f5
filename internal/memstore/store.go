// Package memstore is an in-process record store for development and tests.
// A single mutex serialises every read and write, so stock transactions are
// trivially isolated.
package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ariefcatur/go-commerce-api/internal/apperr"
	"github.com/ariefcatur/go-commerce-api/internal/catalog"
	"github.com/ariefcatur/go-commerce-api/internal/clients"
	"github.com/ariefcatur/go-commerce-api/internal/inventory"
	"github.com/ariefcatur/go-commerce-api/internal/orders"
	"github.com/ariefcatur/go-commerce-api/internal/users"
)

type Store struct {
	mu       sync.RWMutex
	users    map[string]users.User
	products map[string]catalog.Product
	clients  map[string]clients.Client
	orders   map[string]orders.Order
}

var (
	_ catalog.Repo    = (*Store)(nil)
	_ clients.Repo    = (*Store)(nil)
	_ users.Repo      = (*Store)(nil)
	_ orders.Repo     = (*Store)(nil)
	_ inventory.Store = (*Store)(nil)
)

func New() *Store {
	return &Store{
		users:    make(map[string]users.User),
		products: make(map[string]catalog.Product),
		clients:  make(map[string]clients.Client),
		orders:   make(map[string]orders.Order),
	}
}

func byCreated[T any](items []T, created func(T) time.Time, id func(T) string) {
	sort.Slice(items, func(i, j int) bool {
		ci, cj := created(items[i]), created(items[j])
		if ci.Equal(cj) {
			return id(items[i]) < id(items[j])
		}
		return ci.Before(cj)
	})
}

// ---- users ----

func (s *Store) User(_ context.Context, id string) (users.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return users.User{}, apperr.NotFound("user not found")
	}
	return u, nil
}

func (s *Store) UserByEmail(_ context.Context, email string) (users.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.Email == email {
			return u, nil
		}
	}
	return users.User{}, apperr.NotFound("user not found")
}

func (s *Store) InsertUser(_ context.Context, u users.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, x := range s.users {
		if x.Email == u.Email {
			return apperr.Conflict("user is already registered")
		}
	}
	s.users[u.ID] = u
	return nil
}

// ---- products ----

func (s *Store) ListProducts(_ context.Context) ([]catalog.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]catalog.Product, 0, len(s.products))
	for _, p := range s.products {
		out = append(out, p)
	}
	byCreated(out, func(p catalog.Product) time.Time { return p.CreatedAt }, func(p catalog.Product) string { return p.ID })
	return out, nil
}

func (s *Store) Product(_ context.Context, id string) (catalog.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.products[id]
	if !ok {
		return catalog.Product{}, apperr.NotFound("product not found")
	}
	return p, nil
}

func (s *Store) InsertProduct(_ context.Context, p catalog.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products[p.ID] = p
	return nil
}

func (s *Store) UpdateProduct(_ context.Context, p catalog.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.products[p.ID]; !ok {
		return apperr.NotFound("product not found")
	}
	s.products[p.ID] = p
	return nil
}

func (s *Store) DeleteProduct(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.products[id]; !ok {
		return apperr.NotFound("product not found")
	}
	delete(s.products, id)
	return nil
}

func (s *Store) SearchProducts(ctx context.Context, text string, limit int) ([]catalog.Product, error) {
	all, _ := s.ListProducts(ctx)
	needle := strings.ToLower(text)
	out := make([]catalog.Product, 0)
	for _, p := range all {
		if strings.Contains(strings.ToLower(p.Name), needle) {
			out = append(out, p)
			if limit > 0 && len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

// ---- stock ----

type stockTx struct {
	s      *Store
	staged map[string]int
}

func (tx *stockTx) LockProduct(_ context.Context, id string) (catalog.Product, error) {
	p, ok := tx.s.products[id]
	if !ok {
		return catalog.Product{}, apperr.NotFound("product not found")
	}
	if n, ok := tx.staged[id]; ok {
		p.Existence = n
	}
	return p, nil
}

func (tx *stockTx) SetExistence(_ context.Context, id string, existence int) error {
	if _, ok := tx.s.products[id]; !ok {
		return apperr.NotFound("product not found")
	}
	tx.staged[id] = existence
	return nil
}

// WithStockTx holds the write lock for the whole of fn and applies staged
// changes only when fn succeeds.
func (s *Store) WithStockTx(_ context.Context, fn func(tx inventory.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx := &stockTx{s: s, staged: make(map[string]int)}
	if err := fn(tx); err != nil {
		return err
	}
	for id, n := range tx.staged {
		p := s.products[id]
		p.Existence = n
		s.products[id] = p
	}
	return nil
}

func (s *Store) DecrementStock(_ context.Context, id string, amount int) (catalog.Product, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[id]
	if !ok {
		return catalog.Product{}, false, apperr.NotFound("product not found")
	}
	if p.Existence < amount {
		return p, false, nil
	}
	p.Existence -= amount
	s.products[id] = p
	return p, true, nil
}

// ---- clients ----

func (s *Store) listClients(keep func(clients.Client) bool) []clients.Client {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]clients.Client, 0)
	for _, c := range s.clients {
		if keep(c) {
			out = append(out, c)
		}
	}
	byCreated(out, func(c clients.Client) time.Time { return c.CreatedAt }, func(c clients.Client) string { return c.ID })
	return out
}

func (s *Store) ListClients(_ context.Context) ([]clients.Client, error) {
	return s.listClients(func(clients.Client) bool { return true }), nil
}

func (s *Store) ListClientsBySeller(_ context.Context, seller string) ([]clients.Client, error) {
	return s.listClients(func(c clients.Client) bool { return c.Seller == seller }), nil
}

func (s *Store) Client(_ context.Context, id string) (clients.Client, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.clients[id]
	if !ok {
		return clients.Client{}, apperr.NotFound("client not found")
	}
	return c, nil
}

func (s *Store) ClientByEmail(_ context.Context, email string) (clients.Client, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.clients {
		if c.Email == email {
			return c, nil
		}
	}
	return clients.Client{}, apperr.NotFound("client not found")
}

func (s *Store) InsertClient(_ context.Context, c clients.Client) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, x := range s.clients {
		if x.Email == c.Email {
			return apperr.Conflict("client is already registered")
		}
	}
	s.clients[c.ID] = c
	return nil
}

func (s *Store) UpdateClient(_ context.Context, c clients.Client) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.clients[c.ID]; !ok {
		return apperr.NotFound("client not found")
	}
	s.clients[c.ID] = c
	return nil
}

func (s *Store) DeleteClient(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.clients[id]; !ok {
		return apperr.NotFound("client not found")
	}
	delete(s.clients, id)
	return nil
}

// ---- orders ----

func copyOrder(o orders.Order) orders.Order {
	o.Items = append([]orders.LineItem(nil), o.Items...)
	o.Client = nil
	return o
}

func (s *Store) Order(_ context.Context, id string) (orders.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.orders[id]
	if !ok {
		return orders.Order{}, apperr.NotFound("order not found")
	}
	return copyOrder(o), nil
}

func (s *Store) InsertOrder(_ context.Context, o orders.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders[o.ID] = copyOrder(o)
	return nil
}

func (s *Store) UpdateOrder(_ context.Context, o orders.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.orders[o.ID]; !ok {
		return apperr.NotFound("order not found")
	}
	s.orders[o.ID] = copyOrder(o)
	return nil
}

func (s *Store) DeleteOrder(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.orders[id]; !ok {
		return apperr.NotFound("order not found")
	}
	delete(s.orders, id)
	return nil
}

func (s *Store) listOrders(keep func(orders.Order) bool, populate bool) []orders.Order {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]orders.Order, 0)
	for _, o := range s.orders {
		if !keep(o) {
			continue
		}
		o = copyOrder(o)
		if populate {
			if c, ok := s.clients[o.ClientID]; ok {
				o.Client = &c
			}
		}
		out = append(out, o)
	}
	byCreated(out, func(o orders.Order) time.Time { return o.CreatedAt }, func(o orders.Order) string { return o.ID })
	return out
}

func (s *Store) ListOrders(_ context.Context) ([]orders.Order, error) {
	return s.listOrders(func(orders.Order) bool { return true }, false), nil
}

func (s *Store) ListOrdersBySeller(_ context.Context, seller string) ([]orders.Order, error) {
	return s.listOrders(func(o orders.Order) bool { return o.Seller == seller }, true), nil
}

func (s *Store) ListOrdersBySellerState(_ context.Context, seller string, st orders.State) ([]orders.Order, error) {
	return s.listOrders(func(o orders.Order) bool { return o.Seller == seller && o.State == st }, false), nil
}

// SetClientSeller reassigns a client to another seller. No API operation
// does this; it exists for administrative tooling and tests.
func (s *Store) SetClientSeller(_ context.Context, id, seller string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.clients[id]
	if !ok {
		return apperr.NotFound("client not found")
	}
	c.Seller = seller
	s.clients[id] = c
	return nil
}
