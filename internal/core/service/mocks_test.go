package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rl1809/shop-inventory/internal/core/domain"
	"github.com/rl1809/shop-inventory/internal/port"
)

var errStoreDown = errors.New("connection refused")

// Mock Store without transaction support
type mockStore struct {
	mu           sync.Mutex
	products     map[string]domain.Product
	transactions []domain.Transaction

	getErr    error
	listErr   error
	appendErr error
	adjustErr error
	createErr error

	appendCalls int
	adjustCalls int
	setCalls    int
}

func newMockStore(products ...domain.Product) *mockStore {
	m := &mockStore{products: make(map[string]domain.Product)}
	for _, p := range products {
		m.products[p.ID] = p
	}
	return m
}

func (m *mockStore) GetProduct(ctx context.Context, ownerID, productID string) (*domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.getErr != nil {
		return nil, m.getErr
	}
	p, ok := m.products[productID]
	if !ok || p.OwnerID != ownerID {
		return nil, port.ErrNotFound
	}
	return &p, nil
}

func (m *mockStore) ListProducts(ctx context.Context, ownerID string, filter domain.ProductFilter) ([]domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.listErr != nil {
		return nil, m.listErr
	}
	var out []domain.Product
	for _, p := range m.products {
		if p.OwnerID != ownerID {
			continue
		}
		if filter.Search != "" && !strings.Contains(strings.ToLower(p.Name), strings.ToLower(filter.Search)) {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *mockStore) CreateProduct(ctx context.Context, product domain.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.createErr != nil {
		return m.createErr
	}
	m.products[product.ID] = product
	return nil
}

func (m *mockStore) AdjustStock(ctx context.Context, ownerID, productID string, delta decimal.Decimal) (*domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.adjustCalls++
	if m.adjustErr != nil {
		return nil, m.adjustErr
	}
	p, ok := m.products[productID]
	if !ok || p.OwnerID != ownerID {
		return nil, port.ErrNotFound
	}
	next := p.CurrentStock.Add(delta)
	if next.IsNegative() {
		return nil, port.ErrStockConflict
	}
	p.CurrentStock = next
	m.products[productID] = p
	return &p, nil
}

func (m *mockStore) SetStock(ctx context.Context, ownerID, productID string, stock decimal.Decimal) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.setCalls++
	p, ok := m.products[productID]
	if !ok || p.OwnerID != ownerID {
		return port.ErrNotFound
	}
	p.CurrentStock = stock
	m.products[productID] = p
	return nil
}

func (m *mockStore) AppendTransaction(ctx context.Context, tx domain.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.appendCalls++
	if m.appendErr != nil {
		return m.appendErr
	}
	m.transactions = append(m.transactions, tx)
	return nil
}

func (m *mockStore) ListTransactions(ctx context.Context, ownerID string, filter domain.TransactionFilter) ([]domain.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.listErr != nil {
		return nil, m.listErr
	}
	var out []domain.Transaction
	for i := len(m.transactions) - 1; i >= 0; i-- {
		tx := m.transactions[i]
		if tx.OwnerID != ownerID {
			continue
		}
		if filter.ProductID != "" && tx.ProductID != filter.ProductID {
			continue
		}
		if !filter.From.IsZero() && tx.CreatedAt.Before(filter.From) {
			continue
		}
		if !filter.To.IsZero() && !tx.CreatedAt.Before(filter.To) {
			continue
		}
		if p, ok := m.products[tx.ProductID]; ok {
			tx.ProductName = p.Name
			tx.ProductUnit = p.Unit
		}
		out = append(out, tx)
		if filter.Limit > 0 && len(out) == filter.Limit {
			break
		}
	}
	return out, nil
}

func (m *mockStore) stock(productID string) decimal.Decimal {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.products[productID].CurrentStock
}

// Mock IdempotencyStore
type mockIdempotency struct {
	mu   sync.Mutex
	keys map[string]bool
}

func newMockIdempotency() *mockIdempotency {
	return &mockIdempotency{keys: make(map[string]bool)}
}

func (m *mockIdempotency) SetIdempotency(ctx context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.keys[key] {
		return false, nil
	}
	m.keys[key] = true
	return true, nil
}

func (m *mockIdempotency) ReleaseIdempotency(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.keys, key)
	return nil
}

// Mock EventPublisher
type mockPublisher struct {
	mu     sync.Mutex
	events []domain.StockEvent
	err    error
}

func (m *mockPublisher) PublishStockEvent(ctx context.Context, event domain.StockEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.err != nil {
		return m.err
	}
	m.events = append(m.events, event)
	return nil
}

func (m *mockPublisher) Close() error { return nil }

var testNow = time.Date(2024, 3, 15, 14, 30, 0, 0, time.UTC)

func newProduct(id, name string, stock, minLevel int64, unit domain.Unit) domain.Product {
	return domain.Product{
		ID:            id,
		OwnerID:       "owner-1",
		Name:          name,
		CurrentStock:  decimal.NewFromInt(stock),
		OpeningStock:  decimal.NewFromInt(stock),
		Unit:          unit,
		MinStockLevel: decimal.NewFromInt(minLevel),
	}
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}
