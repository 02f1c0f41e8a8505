package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// LowStockReport partitions products below their minimum level.
type LowStockReport struct {
	Critical []Product
	Warning  []Product
}

func (r LowStockReport) Count() int {
	return len(r.Critical) + len(r.Warning)
}

type MovementTotals struct {
	StockIn  decimal.Decimal
	StockOut decimal.Decimal
}

// Overview is the dashboard summary for one owner.
type Overview struct {
	TotalProducts int
	LowStockCount int
	Today         MovementTotals
	Recent        []Transaction
}

type ReconcileResult struct {
	ProductID  string
	Previous   decimal.Decimal
	Recomputed decimal.Decimal
	Corrected  bool
}

// StockEvent is published after a movement is committed.
type StockEvent struct {
	Type          string          `json:"type"`
	TransactionID string          `json:"transaction_id"`
	ProductID     string          `json:"product_id"`
	OwnerID       string          `json:"owner_id"`
	Direction     Direction       `json:"direction"`
	Quantity      decimal.Decimal `json:"quantity"`
	NewStock      decimal.Decimal `json:"new_stock"`
	LowStock      bool            `json:"low_stock"`
	Timestamp     time.Time       `json:"timestamp"`
}

const EventStockMoved = "stock.moved"
