package handler

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rl1809/shop-inventory/internal/core/domain"
)

type productResponse struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	CurrentStock  decimal.Decimal `json:"current_stock"`
	Unit          string          `json:"unit"`
	MinStockLevel decimal.Decimal `json:"min_stock_level"`
	CategoryID    *string         `json:"category_id"`
	CategoryName  string          `json:"category_name,omitempty"`
	LowStock      bool            `json:"low_stock"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

func newProductResponse(p domain.Product) productResponse {
	return productResponse{
		ID:            p.ID,
		Name:          p.Name,
		CurrentStock:  p.CurrentStock,
		Unit:          string(p.Unit),
		MinStockLevel: p.MinStockLevel,
		CategoryID:    p.CategoryID,
		CategoryName:  p.CategoryName,
		LowStock:      p.IsLowStock(),
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
	}
}

func newProductResponses(ps []domain.Product) []productResponse {
	out := make([]productResponse, 0, len(ps))
	for _, p := range ps {
		out = append(out, newProductResponse(p))
	}
	return out
}

type transactionResponse struct {
	ID          string          `json:"id"`
	ProductID   string          `json:"product_id"`
	ProductName string          `json:"product_name"`
	Direction   string          `json:"direction"`
	Quantity    decimal.Decimal `json:"quantity"`
	Unit        string          `json:"unit"`
	Notes       string          `json:"notes,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

func newTransactionResponses(txs []domain.Transaction) []transactionResponse {
	out := make([]transactionResponse, 0, len(txs))
	for _, tx := range txs {
		out = append(out, transactionResponse{
			ID:          tx.ID,
			ProductID:   tx.ProductID,
			ProductName: tx.ProductName,
			Direction:   string(tx.Direction),
			Quantity:    tx.Quantity,
			Unit:        string(tx.ProductUnit),
			Notes:       tx.Notes,
			CreatedAt:   tx.CreatedAt,
		})
	}
	return out
}

type lowStockResponse struct {
	Critical []productResponse `json:"critical"`
	Warning  []productResponse `json:"warning"`
}

type totalsResponse struct {
	Date     string          `json:"date,omitempty"`
	StockIn  decimal.Decimal `json:"stock_in"`
	StockOut decimal.Decimal `json:"stock_out"`
}

type overviewResponse struct {
	TotalProducts int                   `json:"total_products"`
	LowStockCount int                   `json:"low_stock_count"`
	Today         totalsResponse        `json:"today"`
	Recent        []transactionResponse `json:"recent"`
}

type stockMovementRequest struct {
	ProductID string          `json:"product_id"`
	Direction string          `json:"direction"`
	Quantity  json.RawMessage `json:"quantity"`
	Notes     string          `json:"notes"`
	RequestID string          `json:"request_id"`
}

type createProductRequest struct {
	Name          string          `json:"name"`
	CurrentStock  json.RawMessage `json:"current_stock"`
	Unit          string          `json:"unit"`
	MinStockLevel json.RawMessage `json:"min_stock_level"`
	CategoryID    string          `json:"category_id"`
}

// rawNumber accepts a JSON number or a JSON string holding one and returns
// its text for validation by the service.
func rawNumber(raw json.RawMessage) string {
	s := strings.TrimSpace(string(raw))
	if s == "" || s == "null" {
		return ""
	}
	if strings.HasPrefix(s, `"`) {
		var str string
		if err := json.Unmarshal(raw, &str); err == nil {
			return str
		}
	}
	return s
}
