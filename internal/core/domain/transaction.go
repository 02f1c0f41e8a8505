package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Direction string

const (
	DirectionIn  Direction = "in"
	DirectionOut Direction = "out"
)

func (d Direction) Valid() bool {
	return d == DirectionIn || d == DirectionOut
}

// Transaction is one stock movement. Transactions are append-only.
type Transaction struct {
	ID        string
	ProductID string
	OwnerID   string
	Direction Direction
	Quantity  decimal.Decimal
	Notes     string
	CreatedAt time.Time

	// Populated on reads that join the product.
	ProductName string
	ProductUnit Unit
}

// Signed returns the quantity with the sign of its direction.
func (t Transaction) Signed() decimal.Decimal {
	if t.Direction == DirectionOut {
		return t.Quantity.Neg()
	}
	return t.Quantity
}

// TransactionFilter selects transactions of one owner. Zero values mean
// "no constraint". Results are ordered newest first.
type TransactionFilter struct {
	ProductID string
	From      time.Time // inclusive
	To        time.Time // exclusive
	Limit     int
}
