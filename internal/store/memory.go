package store

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fairyhunter13/chat-order-service/internal/model"
)

// Memory is the in-process Storage used when no DATABASE_URL is set.
type Memory struct {
	mu        sync.RWMutex
	customers map[int64]model.Customer
	orders    map[int64]model.Order
	invoices  map[int64]model.Invoice
	messages  map[int64]model.MessageRecord
	prices    map[string]map[string]model.ProductPrice // businessAccount -> normalizedName

	seq atomic.Int64
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		customers: make(map[int64]model.Customer),
		orders:    make(map[int64]model.Order),
		invoices:  make(map[int64]model.Invoice),
		messages:  make(map[int64]model.MessageRecord),
		prices:    make(map[string]map[string]model.ProductPrice),
	}
}

func (s *Memory) nextID() int64 { return s.seq.Add(1) }

func (s *Memory) GetCustomers(ctx context.Context) ([]model.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Customer, 0, len(s.customers))
	for _, c := range s.customers {
		out = append(out, c)
	}
	sortNewestFirst(out, func(c model.Customer) (time.Time, int64) { return c.CreatedAt, c.ID })
	return out, nil
}

func (s *Memory) GetCustomerByPhone(ctx context.Context, phone string) (*model.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.customers {
		if c.PhoneNumber == phone {
			cc := c
			return &cc, nil
		}
	}
	return nil, nil
}

func (s *Memory) CreateCustomer(ctx context.Context, c model.Customer) (model.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c.ID = s.nextID()
	c.CreatedAt = time.Now().UTC()
	s.customers[c.ID] = c
	return c, nil
}

func (s *Memory) GetOrders(ctx context.Context) ([]model.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Order, 0, len(s.orders))
	for _, o := range s.orders {
		out = append(out, o)
	}
	sortNewestFirst(out, func(o model.Order) (time.Time, int64) { return o.CreatedAt, o.ID })
	return out, nil
}

func (s *Memory) GetOrder(ctx context.Context, id int64) (*model.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.orders[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &o, nil
}

func (s *Memory) CreateOrder(ctx context.Context, o model.Order) (model.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o.ID = s.nextID()
	o.CreatedAt = time.Now().UTC()
	s.orders[o.ID] = o
	return o, nil
}

func (s *Memory) UpdateOrderStatus(ctx context.Context, id int64, status string) (*model.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return nil, ErrNotFound
	}
	o.Status = status
	s.orders[id] = o
	return &o, nil
}

func (s *Memory) DeleteOrder(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.orders, id)
	return nil
}

func (s *Memory) GetInvoices(ctx context.Context) ([]model.Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Invoice, 0, len(s.invoices))
	for _, inv := range s.invoices {
		out = append(out, inv)
	}
	sortNewestFirst(out, func(i model.Invoice) (time.Time, int64) { return i.CreatedAt, i.ID })
	return out, nil
}

func (s *Memory) GetInvoice(ctx context.Context, id int64) (*model.Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	inv, ok := s.invoices[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &inv, nil
}

func (s *Memory) GetInvoiceByOrder(ctx context.Context, orderID int64) (*model.Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, inv := range s.invoices {
		if inv.OrderID == orderID {
			ii := inv
			return &ii, nil
		}
	}
	return nil, ErrNotFound
}

func (s *Memory) CreateInvoice(ctx context.Context, inv model.Invoice) (model.Invoice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	inv.ID = s.nextID()
	inv.CreatedAt = time.Now().UTC()
	s.invoices[inv.ID] = inv
	return inv, nil
}

func (s *Memory) DeleteInvoiceByOrder(ctx context.Context, orderID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, inv := range s.invoices {
		if inv.OrderID == orderID {
			delete(s.invoices, id)
		}
	}
	return nil
}

func (s *Memory) GetMessages(ctx context.Context) ([]model.MessageRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.MessageRecord, 0, len(s.messages))
	for _, m := range s.messages {
		out = append(out, m)
	}
	sortNewestFirst(out, func(m model.MessageRecord) (time.Time, int64) { return m.CreatedAt, m.ID })
	return out, nil
}

func (s *Memory) GetMessage(ctx context.Context, id int64) (*model.MessageRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.messages[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &m, nil
}

func (s *Memory) CreateMessage(ctx context.Context, m model.MessageRecord) (model.MessageRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m.ID = s.nextID()
	m.CreatedAt = time.Now().UTC()
	s.messages[m.ID] = m
	return m, nil
}

func (s *Memory) DeleteMessage(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.messages[id]; !ok {
		return ErrNotFound
	}
	delete(s.messages, id)
	return nil
}

func (s *Memory) DeleteAllMessages(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.messages)
	s.messages = make(map[int64]model.MessageRecord)
	return n, nil
}

func (s *Memory) GetProductPrices(ctx context.Context, businessAccount string) ([]model.ProductPrice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	byName := s.prices[businessAccount]
	out := make([]model.ProductPrice, 0, len(byName))
	for _, p := range byName {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].NormalizedName < out[j].NormalizedName })
	return out, nil
}

func (s *Memory) UpsertProductPrice(ctx context.Context, p model.ProductPrice) (model.ProductPrice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	byName, ok := s.prices[p.BusinessAccount]
	if !ok {
		byName = make(map[string]model.ProductPrice)
		s.prices[p.BusinessAccount] = byName
	}
	now := time.Now().UTC()
	if existing, ok := byName[p.NormalizedName]; ok {
		existing.ProductName = p.ProductName
		existing.UnitPrice = p.UnitPrice
		existing.UpdatedAt = now
		byName[p.NormalizedName] = existing
		return existing, nil
	}
	p.ID = s.nextID()
	p.CreatedAt = now
	p.UpdatedAt = now
	byName[p.NormalizedName] = p
	return p, nil
}

// sortNewestFirst orders records by creation time descending, breaking
// ties on ID so listings stay stable within one timestamp.
func sortNewestFirst[T any](items []T, key func(T) (time.Time, int64)) {
	sort.Slice(items, func(i, j int) bool {
		ti, ii := key(items[i])
		tj, ij := key(items[j])
		if ti.Equal(tj) {
			return ii > ij
		}
		return ti.After(tj)
	})
}
