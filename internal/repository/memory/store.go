// Package memory is an in-process store used when no database is configured.
//
// Every operation runs under one lock, and InTx holds that lock for the whole
// transaction, so transactions are serializable. A failed transaction restores
// the snapshot taken when it began.
package memory

import (
	"context"
	"maps"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/rookgm/grocerycart/internal/models"
)

type txKey struct{}

// Store keeps products, orders, addresses and users in maps.
type Store struct {
	mu        sync.Mutex
	products  map[string]models.Product
	orders    map[string]models.Order
	addresses map[string]models.Address
	users     map[string]models.User
	nowFunc   func() time.Time
}

// New returns an empty store.
func New() *Store {
	return &Store{
		products:  map[string]models.Product{},
		orders:    map[string]models.Order{},
		addresses: map[string]models.Address{},
		users:     map[string]models.User{},
		nowFunc:   time.Now,
	}
}

type snapshot struct {
	products  map[string]models.Product
	orders    map[string]models.Order
	addresses map[string]models.Address
	users     map[string]models.User
}

// InTx runs fn while holding the store lock and rolls back on error.
func (s *Store) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if inTx(ctx) {
		return fn(ctx)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snap := snapshot{
		products:  maps.Clone(s.products),
		orders:    maps.Clone(s.orders),
		addresses: maps.Clone(s.addresses),
		users:     maps.Clone(s.users),
	}

	if err := fn(context.WithValue(ctx, txKey{}, true)); err != nil {
		s.products, s.orders, s.addresses, s.users = snap.products, snap.orders, snap.addresses, snap.users
		return err
	}
	return nil
}

func inTx(ctx context.Context) bool {
	v, _ := ctx.Value(txKey{}).(bool)
	return v
}

// lock takes the store lock unless ctx belongs to a running transaction.
func (s *Store) lock(ctx context.Context) func() {
	if inTx(ctx) {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

// PutProduct inserts or replaces a product.
func (s *Store) PutProduct(p models.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.LowStockThreshold == 0 {
		p.LowStockThreshold = models.DefaultLowStockThreshold
	}
	s.products[p.ID] = p
}

// PutUser inserts or replaces a user.
func (s *Store) PutUser(u models.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u.Cart = maps.Clone(u.Cart)
	s.users[u.ID] = u
}

// GetProduct returns product by id
func (s *Store) GetProduct(ctx context.Context, id string) (*models.Product, error) {
	defer s.lock(ctx)()
	p, ok := s.products[id]
	if !ok {
		return nil, models.ErrDataNotFound
	}
	return &p, nil
}

// AdjustStock adds delta to the product stock unless the result would be negative
func (s *Store) AdjustStock(ctx context.Context, id string, delta int) (*models.StockChange, error) {
	defer s.lock(ctx)()
	p, ok := s.products[id]
	if !ok {
		return nil, models.ErrDataNotFound
	}
	if p.Stock+delta < 0 {
		return nil, models.ErrInsufficientStock
	}
	prev := p.Stock
	p.Stock += delta
	p.InStock = p.Stock > 0
	s.products[id] = p
	return &models.StockChange{Product: p, Previous: prev}, nil
}

// SetStock replaces the product stock
func (s *Store) SetStock(ctx context.Context, id string, stock int) (*models.StockChange, error) {
	defer s.lock(ctx)()
	p, ok := s.products[id]
	if !ok {
		return nil, models.ErrDataNotFound
	}
	if stock < 0 {
		return nil, models.ErrInsufficientStock
	}
	prev := p.Stock
	p.Stock = stock
	p.InStock = stock > 0
	s.products[id] = p
	return &models.StockChange{Product: p, Previous: prev}, nil
}

// CreateOrder inserts new order
func (s *Store) CreateOrder(ctx context.Context, order *models.Order) (*models.Order, error) {
	defer s.lock(ctx)()
	if _, ok := s.orders[order.ID]; ok {
		return nil, models.ErrConflictData
	}
	now := s.nowFunc()
	order.CreatedAt, order.UpdatedAt = now, now
	stored := *order
	stored.Items = slices.Clone(order.Items)
	s.orders[order.ID] = stored
	return order, nil
}

// GetOrder returns order by id
func (s *Store) GetOrder(ctx context.Context, id string) (*models.Order, error) {
	defer s.lock(ctx)()
	o, ok := s.orders[id]
	if !ok {
		return nil, models.ErrDataNotFound
	}
	o.Items = slices.Clone(o.Items)
	return &o, nil
}

// UpdateOrder applies patch if the order is still in the expected state
func (s *Store) UpdateOrder(ctx context.Context, id string, expect models.OrderState, patch models.OrderPatch) (*models.Order, error) {
	defer s.lock(ctx)()
	o, ok := s.orders[id]
	if !ok {
		return nil, models.ErrDataNotFound
	}
	if o.State() != expect {
		return nil, models.ErrConflictData
	}
	o.Status = patch.Status
	o.IsPaid = patch.IsPaid
	o.Shipping = nil
	if patch.Shipping != nil && !patch.Shipping.IsZero() {
		sh := *patch.Shipping
		o.Shipping = &sh
	}
	if patch.Payment != nil {
		pd := *patch.Payment
		o.Payment = &pd
	}
	o.UpdatedAt = s.nowFunc()
	s.orders[id] = o

	o.Items = slices.Clone(o.Items)
	return &o, nil
}

// DeleteOrder removes order
func (s *Store) DeleteOrder(ctx context.Context, id string) error {
	defer s.lock(ctx)()
	if _, ok := s.orders[id]; !ok {
		return models.ErrDataNotFound
	}
	delete(s.orders, id)
	return nil
}

// ListOrdersByUser returns the visible orders of a user, newest first
func (s *Store) ListOrdersByUser(ctx context.Context, userID string) ([]models.Order, error) {
	return s.filter(ctx, func(o models.Order) bool {
		return o.UserID != nil && *o.UserID == userID && visible(o)
	}, false), nil
}

// ListOrders returns every visible order, newest first
func (s *Store) ListOrders(ctx context.Context) ([]models.Order, error) {
	return s.filter(ctx, visible, false), nil
}

// ListStalePending returns online orders still waiting for payment that were created before t
func (s *Store) ListStalePending(ctx context.Context, before time.Time, limit int) ([]models.Order, error) {
	orders := s.filter(ctx, func(o models.Order) bool {
		return o.Status == models.OrderStatusPendingPayment && o.CreatedAt.Before(before)
	}, true)
	if len(orders) > limit {
		orders = orders[:limit]
	}
	return orders, nil
}

func visible(o models.Order) bool {
	return o.PaymentType == models.PaymentCOD || o.IsPaid
}

func (s *Store) filter(ctx context.Context, keep func(models.Order) bool, oldestFirst bool) []models.Order {
	defer s.lock(ctx)()
	orders := []models.Order{}
	for _, o := range s.orders {
		if keep(o) {
			o.Items = slices.Clone(o.Items)
			orders = append(orders, o)
		}
	}
	sort.Slice(orders, func(i, j int) bool {
		if oldestFirst {
			return orders[i].CreatedAt.Before(orders[j].CreatedAt)
		}
		return orders[i].CreatedAt.After(orders[j].CreatedAt)
	})
	return orders
}

// CreateAddress inserts new address, addr.ID must be set
func (s *Store) CreateAddress(ctx context.Context, addr *models.Address) (*models.Address, error) {
	defer s.lock(ctx)()
	if _, ok := s.addresses[addr.ID]; ok {
		return nil, models.ErrConflictData
	}
	s.addresses[addr.ID] = *addr
	return addr, nil
}

// GetAddress returns address by id
func (s *Store) GetAddress(ctx context.Context, id string) (*models.Address, error) {
	defer s.lock(ctx)()
	a, ok := s.addresses[id]
	if !ok {
		return nil, models.ErrDataNotFound
	}
	return &a, nil
}

// AddressExists reports whether address exists
func (s *Store) AddressExists(ctx context.Context, id string) (bool, error) {
	defer s.lock(ctx)()
	_, ok := s.addresses[id]
	return ok, nil
}

// DeleteAddress removes address
func (s *Store) DeleteAddress(ctx context.Context, id string) error {
	defer s.lock(ctx)()
	if _, ok := s.addresses[id]; !ok {
		return models.ErrDataNotFound
	}
	delete(s.addresses, id)
	return nil
}

// GetUser returns user by id
func (s *Store) GetUser(ctx context.Context, id string) (*models.User, error) {
	defer s.lock(ctx)()
	u, ok := s.users[id]
	if !ok {
		return nil, models.ErrDataNotFound
	}
	u.Cart = maps.Clone(u.Cart)
	return &u, nil
}

// ClearCart empties the user cart
func (s *Store) ClearCart(ctx context.Context, id string) error {
	defer s.lock(ctx)()
	u, ok := s.users[id]
	if !ok {
		return models.ErrDataNotFound
	}
	u.Cart = models.Cart{}
	s.users[id] = u
	return nil
}
