package service

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/rl1809/shop-inventory/internal/core/domain"
)

var (
	ErrInvalidQuantity   = errors.New("invalid quantity")
	ErrInvalidDirection  = errors.New("invalid direction")
	ErrInvalidProduct    = errors.New("invalid product")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrNotFound          = errors.New("not found")
	ErrDuplicateRequest  = errors.New("duplicate request")
	ErrStoreUnavailable  = errors.New("store unavailable")
	ErrPartialMovement   = errors.New("partial movement")
	ErrLogInconsistent   = errors.New("transaction log inconsistent")
)

// InsufficientStockError carries the stock that was available when a
// stock-out was rejected.
type InsufficientStockError struct {
	Available decimal.Decimal
	Unit      domain.Unit
}

func (e *InsufficientStockError) Error() string {
	return "insufficient stock: " + e.Detail()
}

// Detail is the user-facing message, e.g. "Available: 10 kg".
func (e *InsufficientStockError) Detail() string {
	return fmt.Sprintf("Available: %s %s", e.Available.String(), e.Unit)
}

func (e *InsufficientStockError) Is(target error) bool {
	return target == ErrInsufficientStock
}

// PartialMovementError means the transaction was recorded but the stock
// counter was not updated. The product needs reconciliation.
type PartialMovementError struct {
	TransactionID string
	ProductID     string
	Err           error
}

func (e *PartialMovementError) Error() string {
	return fmt.Sprintf("transaction %s recorded but stock of product %s not updated: %v",
		e.TransactionID, e.ProductID, e.Err)
}

func (e *PartialMovementError) Is(target error) bool {
	return target == ErrPartialMovement
}

func (e *PartialMovementError) Unwrap() error {
	return e.Err
}

// Kind returns the stable name of err's category for transports.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidQuantity):
		return "invalid_quantity"
	case errors.Is(err, ErrInvalidDirection):
		return "invalid_direction"
	case errors.Is(err, ErrInvalidProduct):
		return "invalid_product"
	case errors.Is(err, ErrInsufficientStock):
		return "insufficient_stock"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrDuplicateRequest):
		return "duplicate_request"
	case errors.Is(err, ErrPartialMovement):
		return "partial_movement"
	case errors.Is(err, ErrLogInconsistent):
		return "log_inconsistent"
	default:
		return "store_unavailable"
	}
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrStoreUnavailable, err)
}
