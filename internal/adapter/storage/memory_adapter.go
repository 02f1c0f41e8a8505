package storage

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rl1809/shop-inventory/internal/core/domain"
	"github.com/rl1809/shop-inventory/internal/port"
)

// MemoryStore keeps products and transactions in process. Each call and
// each WithinTx unit of work holds a single mutex; a failed unit of work is
// rolled back to a snapshot.
type MemoryStore struct {
	mu         sync.Mutex
	state      memState
	categories []domain.Category
}

func NewMemoryStore(categories ...domain.Category) *MemoryStore {
	cs := append([]domain.Category(nil), categories...)
	sort.Slice(cs, func(i, j int) bool { return cs[i].Name < cs[j].Name })
	return &MemoryStore{
		state:      memState{products: make(map[string]domain.Product)},
		categories: cs,
	}
}

func (s *MemoryStore) view() *memView {
	return &memView{state: &s.state, categories: s.categories}
}

func (s *MemoryStore) WithinTx(ctx context.Context, fn func(ctx context.Context, store port.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.state.clone()
	if err := fn(ctx, s.view()); err != nil {
		s.state = snapshot
		return err
	}
	return nil
}

func (s *MemoryStore) GetProduct(ctx context.Context, ownerID, productID string) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view().GetProduct(ctx, ownerID, productID)
}

func (s *MemoryStore) ListProducts(ctx context.Context, ownerID string, filter domain.ProductFilter) ([]domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view().ListProducts(ctx, ownerID, filter)
}

func (s *MemoryStore) CreateProduct(ctx context.Context, product domain.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view().CreateProduct(ctx, product)
}

func (s *MemoryStore) AdjustStock(ctx context.Context, ownerID, productID string, delta decimal.Decimal) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view().AdjustStock(ctx, ownerID, productID, delta)
}

func (s *MemoryStore) SetStock(ctx context.Context, ownerID, productID string, stock decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view().SetStock(ctx, ownerID, productID, stock)
}

func (s *MemoryStore) AppendTransaction(ctx context.Context, tx domain.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view().AppendTransaction(ctx, tx)
}

func (s *MemoryStore) ListTransactions(ctx context.Context, ownerID string, filter domain.TransactionFilter) ([]domain.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view().ListTransactions(ctx, ownerID, filter)
}

func (s *MemoryStore) ListCategories(ctx context.Context) ([]domain.Category, error) {
	return append([]domain.Category(nil), s.categories...), nil
}

type memState struct {
	products     map[string]domain.Product
	transactions []domain.Transaction
}

func (st memState) clone() memState {
	products := make(map[string]domain.Product, len(st.products))
	for k, v := range st.products {
		products[k] = v
	}
	return memState{
		products:     products,
		transactions: append([]domain.Transaction(nil), st.transactions...),
	}
}

// memView is the unlocked store used while the mutex is held.
type memView struct {
	state      *memState
	categories []domain.Category
}

func (v *memView) categoryName(id *string) string {
	if id == nil {
		return ""
	}
	for _, c := range v.categories {
		if c.ID == *id {
			return c.Name
		}
	}
	return ""
}

func (v *memView) GetProduct(_ context.Context, ownerID, productID string) (*domain.Product, error) {
	p, ok := v.state.products[productID]
	if !ok || p.OwnerID != ownerID {
		return nil, port.ErrNotFound
	}
	p.CategoryName = v.categoryName(p.CategoryID)
	return &p, nil
}

func (v *memView) ListProducts(_ context.Context, ownerID string, filter domain.ProductFilter) ([]domain.Product, error) {
	search := strings.ToLower(filter.Search)
	out := []domain.Product{}
	for _, p := range v.state.products {
		if p.OwnerID != ownerID {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(p.Name), search) {
			continue
		}
		p.CategoryName = v.categoryName(p.CategoryID)
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (v *memView) CreateProduct(_ context.Context, product domain.Product) error {
	v.state.products[product.ID] = product
	return nil
}

func (v *memView) AdjustStock(ctx context.Context, ownerID, productID string, delta decimal.Decimal) (*domain.Product, error) {
	p, ok := v.state.products[productID]
	if !ok || p.OwnerID != ownerID {
		return nil, port.ErrNotFound
	}
	next := p.CurrentStock.Add(delta)
	if next.IsNegative() {
		return nil, port.ErrStockConflict
	}
	p.CurrentStock = next
	p.UpdatedAt = time.Now()
	v.state.products[productID] = p
	return v.GetProduct(ctx, ownerID, productID)
}

func (v *memView) SetStock(_ context.Context, ownerID, productID string, stock decimal.Decimal) error {
	p, ok := v.state.products[productID]
	if !ok || p.OwnerID != ownerID {
		return port.ErrNotFound
	}
	p.CurrentStock = stock
	p.UpdatedAt = time.Now()
	v.state.products[productID] = p
	return nil
}

func (v *memView) AppendTransaction(_ context.Context, tx domain.Transaction) error {
	v.state.transactions = append(v.state.transactions, tx)
	return nil
}

func (v *memView) ListTransactions(_ context.Context, ownerID string, filter domain.TransactionFilter) ([]domain.Transaction, error) {
	out := []domain.Transaction{}
	for _, tx := range v.state.transactions {
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
		if p, ok := v.state.products[tx.ProductID]; ok {
			tx.ProductName = p.Name
			tx.ProductUnit = p.Unit
		}
		out = append(out, tx)
	}
	// newest first; appends are chronological so ties keep reverse insertion order
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

var (
	_ port.Store         = (*MemoryStore)(nil)
	_ port.Transactor    = (*MemoryStore)(nil)
	_ port.CategoryStore = (*MemoryStore)(nil)
)
