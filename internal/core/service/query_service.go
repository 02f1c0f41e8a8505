package service

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/rl1809/shop-inventory/internal/core/domain"
	"github.com/rl1809/shop-inventory/internal/port"
)

// DefaultActivityLimit is used by RecentActivity when no positive limit is given.
const DefaultActivityLimit = 5

// QueryService derives read-only views of an owner's inventory.
type QueryService struct {
	store  port.Store
	logger *zap.Logger
}

func NewQueryService(store port.Store, logger *zap.Logger) *QueryService {
	return &QueryService{store: store, logger: logger}
}

// ListLowStock returns the owner's products with current_stock below
// min_stock_level, split into critical (empty) and warning.
func (s *QueryService) ListLowStock(ctx context.Context, ownerID string) (domain.LowStockReport, error) {
	products, err := s.store.ListProducts(ctx, ownerID, domain.ProductFilter{})
	if err != nil {
		return domain.LowStockReport{}, unavailable("list products", err)
	}
	return LowStock(products), nil
}

// LowStock partitions products below their minimum level. Each partition is
// ordered by ascending current stock, then name.
func LowStock(products []domain.Product) domain.LowStockReport {
	report := domain.LowStockReport{
		Critical: []domain.Product{},
		Warning:  []domain.Product{},
	}
	for _, p := range products {
		if !p.IsLowStock() {
			continue
		}
		if p.IsCritical() {
			report.Critical = append(report.Critical, p)
		} else {
			report.Warning = append(report.Warning, p)
		}
	}
	byStock := func(ps []domain.Product) {
		sort.SliceStable(ps, func(i, j int) bool {
			if c := ps[i].CurrentStock.Cmp(ps[j].CurrentStock); c != 0 {
				return c < 0
			}
			return ps[i].Name < ps[j].Name
		})
	}
	byStock(report.Critical)
	byStock(report.Warning)
	return report
}

// DailyMovementTotals sums stock in and out over the calendar day containing
// day, in day's location.
func (s *QueryService) DailyMovementTotals(ctx context.Context, ownerID string, day time.Time) (domain.MovementTotals, error) {
	start, end := DayBounds(day)
	txs, err := s.store.ListTransactions(ctx, ownerID, domain.TransactionFilter{From: start, To: end})
	if err != nil {
		return domain.MovementTotals{}, unavailable("list transactions", err)
	}
	return SumMovements(txs), nil
}

// DayBounds returns [start of day, start of next day).
func DayBounds(day time.Time) (time.Time, time.Time) {
	y, m, d := day.Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, day.Location())
	return start, start.AddDate(0, 0, 1)
}

func SumMovements(txs []domain.Transaction) domain.MovementTotals {
	totals := domain.MovementTotals{StockIn: decimal.Zero, StockOut: decimal.Zero}
	for _, tx := range txs {
		switch tx.Direction {
		case domain.DirectionIn:
			totals.StockIn = totals.StockIn.Add(tx.Quantity)
		case domain.DirectionOut:
			totals.StockOut = totals.StockOut.Add(tx.Quantity)
		}
	}
	return totals
}

// RecentActivity returns the owner's newest transactions with product names.
func (s *QueryService) RecentActivity(ctx context.Context, ownerID string, limit int) ([]domain.Transaction, error) {
	if limit <= 0 {
		limit = DefaultActivityLimit
	}
	txs, err := s.store.ListTransactions(ctx, ownerID, domain.TransactionFilter{Limit: limit})
	if err != nil {
		return nil, unavailable("list transactions", err)
	}
	if len(txs) > limit {
		txs = txs[:limit]
	}
	return txs, nil
}

// Overview builds the dashboard: product count, low-stock count, today's
// totals and recent activity.
func (s *QueryService) Overview(ctx context.Context, ownerID string, now time.Time) (domain.Overview, error) {
	products, err := s.store.ListProducts(ctx, ownerID, domain.ProductFilter{})
	if err != nil {
		return domain.Overview{}, unavailable("list products", err)
	}
	today, err := s.DailyMovementTotals(ctx, ownerID, now)
	if err != nil {
		return domain.Overview{}, err
	}
	recent, err := s.RecentActivity(ctx, ownerID, DefaultActivityLimit)
	if err != nil {
		return domain.Overview{}, err
	}
	return domain.Overview{
		TotalProducts: len(products),
		LowStockCount: LowStock(products).Count(),
		Today:         today,
		Recent:        recent,
	}, nil
}
