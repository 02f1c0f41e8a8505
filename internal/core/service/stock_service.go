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

const publishTimeout = 5 * time.Second

// MovementRequest is one stock-in or stock-out as submitted by a user.
// Quantity is the raw input and is validated by ApplyStockMovement.
type MovementRequest struct {
	OwnerID   string
	ProductID string
	Direction domain.Direction
	Quantity  string
	Notes     string
	RequestID string // optional, deduplicates resubmissions
}

type StockService struct {
	store       port.Store
	idempotency port.IdempotencyStore
	publisher   port.EventPublisher
	logger      *zap.Logger
	now         func() time.Time
	newID       func() string
}

type Option func(*StockService)

func WithIdempotency(store port.IdempotencyStore) Option {
	return func(s *StockService) { s.idempotency = store }
}

func WithPublisher(publisher port.EventPublisher) Option {
	return func(s *StockService) { s.publisher = publisher }
}

func WithClock(now func() time.Time) Option {
	return func(s *StockService) { s.now = now }
}

func NewStockService(store port.Store, logger *zap.Logger, opts ...Option) *StockService {
	s := &StockService{
		store:  store,
		logger: logger,
		now:    time.Now,
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Quantities are stored as DECIMAL(20,4).
const QuantityScale = 4

// MaxQuantity is the exclusive upper bound of a stored quantity.
var MaxQuantity = decimal.New(1, 20-QuantityScale)

// ParseQuantity parses user input into a strictly positive decimal.
func ParseQuantity(raw string) (decimal.Decimal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.Zero, fmt.Errorf("%w: quantity is required", ErrInvalidQuantity)
	}
	q, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q is not a number", ErrInvalidQuantity, raw)
	}
	if !q.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: must be greater than 0", ErrInvalidQuantity)
	}
	if err := checkRange(q); err != nil {
		return decimal.Zero, fmt.Errorf("%w: %v", ErrInvalidQuantity, err)
	}
	return q, nil
}

// checkRange rejects values the store cannot hold exactly.
func checkRange(v decimal.Decimal) error {
	if !v.Equal(v.Truncate(QuantityScale)) {
		return fmt.Errorf("at most %d decimal places are allowed", QuantityScale)
	}
	if v.Abs().GreaterThanOrEqual(MaxQuantity) {
		return fmt.Errorf("must be less than %s", MaxQuantity.String())
	}
	return nil
}

// ApplyStockMovement records a movement and adjusts the product's stock.
// The transaction is always written before the counter.
func (s *StockService) ApplyStockMovement(ctx context.Context, req MovementRequest) (*domain.Product, error) {
	if !req.Direction.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidDirection, req.Direction)
	}
	qty, err := ParseQuantity(req.Quantity)
	if err != nil {
		return nil, err
	}
	if req.OwnerID == "" || req.ProductID == "" {
		return nil, fmt.Errorf("%w: product %q", ErrNotFound, req.ProductID)
	}

	key, err := s.claim(ctx, req)
	if err != nil {
		return nil, err
	}

	tx := domain.Transaction{
		ID:        s.newID(),
		ProductID: req.ProductID,
		OwnerID:   req.OwnerID,
		Direction: req.Direction,
		Quantity:  qty,
		Notes:     strings.TrimSpace(req.Notes),
		CreatedAt: s.now(),
	}

	product, written, err := s.apply(ctx, tx)
	if err != nil {
		if key != "" && !written {
			s.release(ctx, key)
		}
		if errors.Is(err, ErrPartialMovement) {
			s.logger.Error("stock counter out of sync, reconciliation required",
				zap.String("product_id", tx.ProductID),
				zap.String("transaction_id", tx.ID),
				zap.Error(err))
		}
		return nil, err
	}

	s.logger.Info("stock movement applied",
		zap.String("owner_id", tx.OwnerID),
		zap.String("product_id", tx.ProductID),
		zap.String("direction", string(tx.Direction)),
		zap.String("quantity", tx.Quantity.String()),
		zap.String("new_stock", product.CurrentStock.String()))

	s.publish(ctx, tx, product)
	return product, nil
}

// apply runs the movement against the store. written reports whether a
// write may have survived a failure: a partial movement, or a unit of work
// whose commit failed after every statement succeeded.
func (s *StockService) apply(ctx context.Context, tx domain.Transaction) (*domain.Product, bool, error) {
	t, ok := s.store.(port.Transactor)
	if !ok {
		p, err := s.move(ctx, s.store, tx, false)
		return p, errors.Is(err, ErrPartialMovement), err
	}

	var updated *domain.Product
	err := t.WithinTx(ctx, func(ctx context.Context, store port.Store) error {
		p, err := s.move(ctx, store, tx, true)
		if err != nil {
			return err
		}
		updated = p
		return nil
	})
	if err != nil {
		if isClassified(err) {
			return nil, false, err
		}
		// a failure after fn completed came from commit; its outcome is unknown
		return nil, updated != nil, unavailable("commit movement", err)
	}
	return updated, true, nil
}

// move runs read, validate, append, adjust against store. When atomic is
// false a failed adjustment leaves the appended transaction behind and is
// reported as a PartialMovementError.
func (s *StockService) move(ctx context.Context, store port.Store, tx domain.Transaction, atomic bool) (*domain.Product, error) {
	product, err := store.GetProduct(ctx, tx.OwnerID, tx.ProductID)
	if errors.Is(err, port.ErrNotFound) {
		return nil, fmt.Errorf("%w: product %s", ErrNotFound, tx.ProductID)
	}
	if err != nil {
		return nil, unavailable("read product", err)
	}

	if tx.Direction == domain.DirectionOut && tx.Quantity.GreaterThan(product.CurrentStock) {
		return nil, &InsufficientStockError{Available: product.CurrentStock, Unit: product.Unit}
	}

	if err := store.AppendTransaction(ctx, tx); err != nil {
		return nil, unavailable("record transaction", err)
	}

	updated, err := store.AdjustStock(ctx, tx.OwnerID, tx.ProductID, tx.Signed())
	if err != nil {
		if !atomic {
			return nil, &PartialMovementError{TransactionID: tx.ID, ProductID: tx.ProductID, Err: err}
		}
		if errors.Is(err, port.ErrStockConflict) {
			return nil, &InsufficientStockError{Available: product.CurrentStock, Unit: product.Unit}
		}
		return nil, unavailable("update stock", err)
	}
	return updated, nil
}

func (s *StockService) claim(ctx context.Context, req MovementRequest) (string, error) {
	if s.idempotency == nil || req.RequestID == "" {
		return "", nil
	}
	key := fmt.Sprintf("movement:%s:%s", req.OwnerID, req.RequestID)
	ok, err := s.idempotency.SetIdempotency(ctx, key)
	if err != nil {
		return "", unavailable("idempotency check", err)
	}
	if !ok {
		return "", ErrDuplicateRequest
	}
	return key, nil
}

func (s *StockService) release(ctx context.Context, key string) {
	if err := s.idempotency.ReleaseIdempotency(ctx, key); err != nil {
		s.logger.Warn("failed to release idempotency key", zap.String("key", key), zap.Error(err))
	}
}

func (s *StockService) publish(ctx context.Context, tx domain.Transaction, product *domain.Product) {
	if s.publisher == nil {
		return
	}
	event := domain.StockEvent{
		Type:          domain.EventStockMoved,
		TransactionID: tx.ID,
		ProductID:     product.ID,
		OwnerID:       tx.OwnerID,
		Direction:     tx.Direction,
		Quantity:      tx.Quantity,
		NewStock:      product.CurrentStock,
		LowStock:      product.IsLowStock(),
		Timestamp:     tx.CreatedAt,
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if err := s.publisher.PublishStockEvent(ctx, event); err != nil {
		s.logger.Warn("failed to publish stock event",
			zap.String("transaction_id", tx.ID),
			zap.Error(err))
	}
}

func isClassified(err error) bool {
	for _, target := range []error{
		ErrInvalidQuantity, ErrInvalidDirection, ErrInvalidProduct, ErrInsufficientStock,
		ErrNotFound, ErrDuplicateRequest, ErrStoreUnavailable, ErrPartialMovement, ErrLogInconsistent,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
