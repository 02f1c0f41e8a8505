package port

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/rl1809/shop-inventory/internal/core/domain"
)

var (
	// ErrNotFound is returned when a row does not exist for the given owner.
	ErrNotFound = errors.New("not found")

	// ErrStockConflict is returned when a guarded stock update would drive
	// current_stock below zero.
	ErrStockConflict = errors.New("stock conflict")
)

type ProductStore interface {
	// GetProduct returns the product owned by ownerID, or ErrNotFound.
	// Inside a Transactor unit of work the row stays locked until commit.
	GetProduct(ctx context.Context, ownerID, productID string) (*domain.Product, error)

	// ListProducts returns the owner's products ordered by name.
	ListProducts(ctx context.Context, ownerID string, filter domain.ProductFilter) ([]domain.Product, error)

	// CreateProduct inserts a new product.
	CreateProduct(ctx context.Context, product domain.Product) error

	// AdjustStock applies delta to current_stock server-side and returns the
	// updated product. Fails with ErrStockConflict if the result would be
	// negative and ErrNotFound if the product does not exist.
	AdjustStock(ctx context.Context, ownerID, productID string, delta decimal.Decimal) (*domain.Product, error)

	// SetStock overwrites current_stock. Used by reconciliation only.
	SetStock(ctx context.Context, ownerID, productID string, stock decimal.Decimal) error
}

type TransactionLog interface {
	// AppendTransaction records a movement. Records are never updated.
	AppendTransaction(ctx context.Context, tx domain.Transaction) error

	// ListTransactions returns matching transactions newest first, joined
	// with the product name.
	ListTransactions(ctx context.Context, ownerID string, filter domain.TransactionFilter) ([]domain.Transaction, error)
}

// Store bundles the product store and transaction log of one backend.
type Store interface {
	ProductStore
	TransactionLog
}

// Transactor is implemented by stores that can run several statements in a
// single database transaction. fn receives a Store bound to it; returning an
// error rolls back.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, store Store) error) error
}

type CategoryStore interface {
	// ListCategories returns all categories ordered by name.
	ListCategories(ctx context.Context) ([]domain.Category, error)
}
