package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/rl1809/shop-inventory/internal/core/domain"
	"github.com/rl1809/shop-inventory/internal/port"
)

// NewProduct is a product as entered by a user. Numeric fields are raw
// input; empty means default.
type NewProduct struct {
	OwnerID       string
	Name          string
	OpeningStock  string
	Unit          string
	MinStockLevel string
	CategoryID    string
}

type CatalogService struct {
	store      port.Store
	categories port.CategoryStore
	logger     *zap.Logger
	now        func() time.Time
}

func NewCatalogService(store port.Store, categories port.CategoryStore, logger *zap.Logger) *CatalogService {
	return &CatalogService{
		store:      store,
		categories: categories,
		logger:     logger,
		now:        time.Now,
	}
}

func (s *CatalogService) CreateProduct(ctx context.Context, in NewProduct) (*domain.Product, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidProduct)
	}
	unit, ok := domain.ParseUnit(in.Unit)
	if !ok {
		return nil, fmt.Errorf("%w: unknown unit %q", ErrInvalidProduct, in.Unit)
	}
	opening, err := parseLevel("opening stock", in.OpeningStock, decimal.Zero)
	if err != nil {
		return nil, err
	}
	minLevel, err := parseLevel("min stock level", in.MinStockLevel, domain.DefaultMinStockLevel)
	if err != nil {
		return nil, err
	}

	now := s.now()
	product := domain.Product{
		ID:            uuid.NewString(),
		OwnerID:       in.OwnerID,
		Name:          name,
		CurrentStock:  opening,
		OpeningStock:  opening,
		Unit:          unit,
		MinStockLevel: minLevel,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if id := strings.TrimSpace(in.CategoryID); id != "" {
		name, err := s.categoryName(ctx, id)
		if err != nil {
			return nil, err
		}
		product.CategoryID = &id
		product.CategoryName = name
	}

	if err := s.store.CreateProduct(ctx, product); err != nil {
		return nil, unavailable("create product", err)
	}

	s.logger.Info("product created",
		zap.String("owner_id", product.OwnerID),
		zap.String("product_id", product.ID),
		zap.String("name", product.Name))
	return &product, nil
}

func (s *CatalogService) categoryName(ctx context.Context, id string) (string, error) {
	categories, err := s.categories.ListCategories(ctx)
	if err != nil {
		return "", unavailable("list categories", err)
	}
	for _, c := range categories {
		if c.ID == id {
			return c.Name, nil
		}
	}
	return "", fmt.Errorf("%w: unknown category %q", ErrInvalidProduct, id)
}

func parseLevel(field, raw string, def decimal.Decimal) (decimal.Decimal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return def, nil
	}
	v, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %s %q is not a number", ErrInvalidProduct, field, raw)
	}
	if v.IsNegative() {
		return decimal.Zero, fmt.Errorf("%w: %s must not be negative", ErrInvalidProduct, field)
	}
	if err := checkRange(v); err != nil {
		return decimal.Zero, fmt.Errorf("%w: %s %v", ErrInvalidProduct, field, err)
	}
	return v, nil
}

func (s *CatalogService) GetProduct(ctx context.Context, ownerID, productID string) (*domain.Product, error) {
	p, err := s.store.GetProduct(ctx, ownerID, productID)
	if errors.Is(err, port.ErrNotFound) {
		return nil, fmt.Errorf("%w: product %s", ErrNotFound, productID)
	}
	if err != nil {
		return nil, unavailable("read product", err)
	}
	return p, nil
}

func (s *CatalogService) ListProducts(ctx context.Context, ownerID, search string) ([]domain.Product, error) {
	products, err := s.store.ListProducts(ctx, ownerID, domain.ProductFilter{Search: strings.TrimSpace(search)})
	if err != nil {
		return nil, unavailable("list products", err)
	}
	return products, nil
}

func (s *CatalogService) ListCategories(ctx context.Context) ([]domain.Category, error) {
	categories, err := s.categories.ListCategories(ctx)
	if err != nil {
		return nil, unavailable("list categories", err)
	}
	return categories, nil
}

// ProductHistory returns the movements of one product, newest first.
func (s *CatalogService) ProductHistory(ctx context.Context, ownerID, productID string, limit int) ([]domain.Transaction, error) {
	if _, err := s.GetProduct(ctx, ownerID, productID); err != nil {
		return nil, err
	}
	txs, err := s.store.ListTransactions(ctx, ownerID, domain.TransactionFilter{ProductID: productID, Limit: limit})
	if err != nil {
		return nil, unavailable("list transactions", err)
	}
	return txs, nil
}
