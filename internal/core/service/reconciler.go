package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/rl1809/shop-inventory/internal/core/domain"
	"github.com/rl1809/shop-inventory/internal/port"
)

// Reconciler repairs current_stock by replaying the transaction log. It is
// independent of the movement path and safe to run repeatedly.
type Reconciler struct {
	store  port.Store
	logger *zap.Logger
}

func NewReconciler(store port.Store, logger *zap.Logger) *Reconciler {
	return &Reconciler{store: store, logger: logger}
}

// Replay computes opening + the signed sum of txs.
func Replay(opening decimal.Decimal, txs []domain.Transaction) decimal.Decimal {
	stock := opening
	for _, tx := range txs {
		stock = stock.Add(tx.Signed())
	}
	return stock
}

func (r *Reconciler) Reconcile(ctx context.Context, ownerID, productID string) (domain.ReconcileResult, error) {
	t, ok := r.store.(port.Transactor)
	if !ok {
		return r.reconcile(ctx, r.store, ownerID, productID)
	}

	var result domain.ReconcileResult
	err := t.WithinTx(ctx, func(ctx context.Context, store port.Store) error {
		res, err := r.reconcile(ctx, store, ownerID, productID)
		if err != nil {
			return err
		}
		result = res
		return nil
	})
	if err != nil {
		if isClassified(err) {
			return domain.ReconcileResult{}, err
		}
		return domain.ReconcileResult{}, unavailable("commit reconciliation", err)
	}
	return result, nil
}

func (r *Reconciler) reconcile(ctx context.Context, store port.Store, ownerID, productID string) (domain.ReconcileResult, error) {
	product, err := store.GetProduct(ctx, ownerID, productID)
	if errors.Is(err, port.ErrNotFound) {
		return domain.ReconcileResult{}, fmt.Errorf("%w: product %s", ErrNotFound, productID)
	}
	if err != nil {
		return domain.ReconcileResult{}, unavailable("read product", err)
	}

	txs, err := store.ListTransactions(ctx, ownerID, domain.TransactionFilter{ProductID: productID})
	if err != nil {
		return domain.ReconcileResult{}, unavailable("list transactions", err)
	}

	result := domain.ReconcileResult{
		ProductID:  productID,
		Previous:   product.CurrentStock,
		Recomputed: Replay(product.OpeningStock, txs),
	}
	if result.Recomputed.Equal(result.Previous) {
		return result, nil
	}
	if result.Recomputed.IsNegative() {
		r.logger.Error("transaction log replays to negative stock",
			zap.String("product_id", productID),
			zap.String("opening", product.OpeningStock.String()),
			zap.String("recomputed", result.Recomputed.String()))
		return domain.ReconcileResult{}, fmt.Errorf("%w: product %s replays to %s",
			ErrLogInconsistent, productID, result.Recomputed.String())
	}

	if err := store.SetStock(ctx, ownerID, productID, result.Recomputed); err != nil {
		return domain.ReconcileResult{}, unavailable("set stock", err)
	}
	result.Corrected = true

	r.logger.Warn("stock drift corrected",
		zap.String("product_id", productID),
		zap.String("previous", result.Previous.String()),
		zap.String("recomputed", result.Recomputed.String()))
	return result, nil
}

// ReconcileAll reconciles every product of the owner.
func (r *Reconciler) ReconcileAll(ctx context.Context, ownerID string) ([]domain.ReconcileResult, error) {
	products, err := r.store.ListProducts(ctx, ownerID, domain.ProductFilter{})
	if err != nil {
		return nil, unavailable("list products", err)
	}
	results := make([]domain.ReconcileResult, 0, len(products))
	for _, p := range products {
		res, err := r.Reconcile(ctx, ownerID, p.ID)
		if err != nil {
			return results, err
		}
		results = append(results, res)
	}
	return results, nil
}
