package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type Unit string

const (
	UnitPieces     Unit = "pcs"
	UnitKilogram   Unit = "kg"
	UnitGram       Unit = "g"
	UnitLiter      Unit = "l"
	UnitMilliliter Unit = "ml"
	UnitPack       Unit = "pack"
	UnitBox        Unit = "box"
	UnitDozen      Unit = "dozen"
)

var units = []Unit{
	UnitPieces, UnitKilogram, UnitGram, UnitLiter,
	UnitMilliliter, UnitPack, UnitBox, UnitDozen,
}

// Units returns the supported units in display order.
func Units() []Unit {
	out := make([]Unit, len(units))
	copy(out, units)
	return out
}

// ParseUnit normalizes s and reports whether it names a supported unit.
// An empty string yields UnitPieces.
func ParseUnit(s string) (Unit, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return UnitPieces, true
	}
	for _, u := range units {
		if string(u) == s {
			return u, true
		}
	}
	return "", false
}

// DefaultMinStockLevel is applied when a product is created without one.
var DefaultMinStockLevel = decimal.NewFromInt(5)

type Product struct {
	ID            string
	OwnerID       string
	Name          string
	CurrentStock  decimal.Decimal
	OpeningStock  decimal.Decimal // stock seeded at creation
	Unit          Unit
	MinStockLevel decimal.Decimal
	CategoryID    *string
	CategoryName  string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// IsLowStock reports current_stock < min_stock_level.
func (p Product) IsLowStock() bool {
	return p.CurrentStock.LessThan(p.MinStockLevel)
}

// IsCritical reports an empty shelf.
func (p Product) IsCritical() bool {
	return p.CurrentStock.IsZero()
}

// ProductFilter narrows a product listing. Search matches the name
// case-insensitively.
type ProductFilter struct {
	Search string
}
