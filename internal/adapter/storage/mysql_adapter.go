package storage

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/rl1809/shop-inventory/internal/core/domain"
	"github.com/rl1809/shop-inventory/internal/port"
)

//go:embed schema.sql
var schema string

const productColumns = `
	p.id, p.user_id, p.name, p.current_stock, p.opening_stock, p.unit,
	p.min_stock_level, p.category_id, c.name AS category_name, p.created_at, p.updated_at`

type productRow struct {
	ID            string          `db:"id"`
	OwnerID       string          `db:"user_id"`
	Name          string          `db:"name"`
	CurrentStock  decimal.Decimal `db:"current_stock"`
	OpeningStock  decimal.Decimal `db:"opening_stock"`
	Unit          string          `db:"unit"`
	MinStockLevel decimal.Decimal `db:"min_stock_level"`
	CategoryID    sql.NullString  `db:"category_id"`
	CategoryName  sql.NullString  `db:"category_name"`
	CreatedAt     time.Time       `db:"created_at"`
	UpdatedAt     time.Time       `db:"updated_at"`
}

func (r productRow) toDomain() domain.Product {
	p := domain.Product{
		ID:            r.ID,
		OwnerID:       r.OwnerID,
		Name:          r.Name,
		CurrentStock:  r.CurrentStock,
		OpeningStock:  r.OpeningStock,
		Unit:          domain.Unit(r.Unit),
		MinStockLevel: r.MinStockLevel,
		CategoryName:  r.CategoryName.String,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
	if r.CategoryID.Valid {
		id := r.CategoryID.String
		p.CategoryID = &id
	}
	return p
}

type transactionRow struct {
	ID          string          `db:"id"`
	ProductID   string          `db:"product_id"`
	OwnerID     string          `db:"user_id"`
	Type        string          `db:"type"`
	Quantity    decimal.Decimal `db:"quantity"`
	Notes       sql.NullString  `db:"notes"`
	CreatedAt   time.Time       `db:"created_at"`
	ProductName string          `db:"product_name"`
	ProductUnit string          `db:"product_unit"`
}

func (r transactionRow) toDomain() domain.Transaction {
	return domain.Transaction{
		ID:          r.ID,
		ProductID:   r.ProductID,
		OwnerID:     r.OwnerID,
		Direction:   domain.Direction(r.Type),
		Quantity:    r.Quantity,
		Notes:       r.Notes.String,
		CreatedAt:   r.CreatedAt,
		ProductName: r.ProductName,
		ProductUnit: domain.Unit(r.ProductUnit),
	}
}

// MySQLAdapter implements the product store, transaction log and category
// store on MySQL. Inside WithinTx it is bound to a *sqlx.Tx.
type MySQLAdapter struct {
	db   *sqlx.DB
	q    sqlx.ExtContext
	inTx bool
}

func NewMySQLAdapter(db *sql.DB) *MySQLAdapter {
	x := sqlx.NewDb(db, "mysql")
	return &MySQLAdapter{db: x, q: x}
}

// Migrate creates the tables if they do not exist.
func (m *MySQLAdapter) Migrate(ctx context.Context) error {
	for _, stmt := range strings.Split(schema, ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := m.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

func (m *MySQLAdapter) WithinTx(ctx context.Context, fn func(ctx context.Context, store port.Store) error) error {
	if m.inTx {
		return fn(ctx, m)
	}

	tx, err := m.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := fn(ctx, &MySQLAdapter{db: m.db, q: tx, inTx: true}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (m *MySQLAdapter) GetProduct(ctx context.Context, ownerID, productID string) (*domain.Product, error) {
	query := `SELECT` + productColumns + `
		FROM products p LEFT JOIN categories c ON c.id = p.category_id
		WHERE p.id = ? AND p.user_id = ?`
	if m.inTx {
		query += ` FOR UPDATE OF p`
	}

	var row productRow
	err := sqlx.GetContext(ctx, m.q, &row, query, productID, ownerID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, port.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query product: %w", err)
	}

	p := row.toDomain()
	return &p, nil
}

func (m *MySQLAdapter) ListProducts(ctx context.Context, ownerID string, filter domain.ProductFilter) ([]domain.Product, error) {
	query := `SELECT` + productColumns + `
		FROM products p LEFT JOIN categories c ON c.id = p.category_id
		WHERE p.user_id = ?`
	args := []any{ownerID}
	if filter.Search != "" {
		query += ` AND LOWER(p.name) LIKE ?`
		args = append(args, "%"+escapeLike(strings.ToLower(filter.Search))+"%")
	}
	query += ` ORDER BY p.name, p.id`

	var rows []productRow
	if err := sqlx.SelectContext(ctx, m.q, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("query products: %w", err)
	}

	products := make([]domain.Product, 0, len(rows))
	for _, r := range rows {
		products = append(products, r.toDomain())
	}
	return products, nil
}

func (m *MySQLAdapter) CreateProduct(ctx context.Context, p domain.Product) error {
	_, err := m.q.ExecContext(ctx, `
		INSERT INTO products (id, user_id, name, current_stock, opening_stock, unit,
			min_stock_level, category_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.OwnerID, p.Name, p.CurrentStock, p.OpeningStock, string(p.Unit),
		p.MinStockLevel, p.CategoryID, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert product: %w", err)
	}
	return nil
}

func (m *MySQLAdapter) AdjustStock(ctx context.Context, ownerID, productID string, delta decimal.Decimal) (*domain.Product, error) {
	result, err := m.q.ExecContext(ctx, `
		UPDATE products
		SET current_stock = current_stock + ?, updated_at = ?
		WHERE id = ? AND user_id = ? AND current_stock + ? >= 0`,
		delta, time.Now(), productID, ownerID, delta,
	)
	if err != nil {
		return nil, fmt.Errorf("update stock: %w", err)
	}

	// updated_at always changes, so a matched row is also a changed row and
	// zero affected rows means the guard or the owner filter rejected it.
	rows, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("update stock: %w", err)
	}
	if rows == 0 {
		if _, err := m.GetProduct(ctx, ownerID, productID); err != nil {
			return nil, err
		}
		return nil, port.ErrStockConflict
	}

	return m.GetProduct(ctx, ownerID, productID)
}

func (m *MySQLAdapter) SetStock(ctx context.Context, ownerID, productID string, stock decimal.Decimal) error {
	result, err := m.q.ExecContext(ctx, `
		UPDATE products SET current_stock = ?, updated_at = ?
		WHERE id = ? AND user_id = ?`,
		stock, time.Now(), productID, ownerID,
	)
	if err != nil {
		return fmt.Errorf("set stock: %w", err)
	}

	// updated_at always changes, so zero affected rows means no row matched.
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("set stock: %w", err)
	}
	if rows == 0 {
		return port.ErrNotFound
	}
	return nil
}

func (m *MySQLAdapter) AppendTransaction(ctx context.Context, tx domain.Transaction) error {
	var notes sql.NullString
	if tx.Notes != "" {
		notes = sql.NullString{String: tx.Notes, Valid: true}
	}

	_, err := m.q.ExecContext(ctx, `
		INSERT INTO transactions (id, product_id, user_id, type, quantity, notes, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		tx.ID, tx.ProductID, tx.OwnerID, string(tx.Direction), tx.Quantity, notes, tx.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

func (m *MySQLAdapter) ListTransactions(ctx context.Context, ownerID string, filter domain.TransactionFilter) ([]domain.Transaction, error) {
	query := `
		SELECT t.id, t.product_id, t.user_id, t.type, t.quantity, t.notes, t.created_at,
			p.name AS product_name, p.unit AS product_unit
		FROM transactions t JOIN products p ON p.id = t.product_id
		WHERE t.user_id = ?`
	args := []any{ownerID}

	if filter.ProductID != "" {
		query += ` AND t.product_id = ?`
		args = append(args, filter.ProductID)
	}
	if !filter.From.IsZero() {
		query += ` AND t.created_at >= ?`
		args = append(args, filter.From)
	}
	if !filter.To.IsZero() {
		query += ` AND t.created_at < ?`
		args = append(args, filter.To)
	}
	query += ` ORDER BY t.created_at DESC, t.id DESC`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	var rows []transactionRow
	if err := sqlx.SelectContext(ctx, m.q, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}

	txs := make([]domain.Transaction, 0, len(rows))
	for _, r := range rows {
		txs = append(txs, r.toDomain())
	}
	return txs, nil
}

func (m *MySQLAdapter) ListCategories(ctx context.Context) ([]domain.Category, error) {
	var categories []domain.Category
	err := sqlx.SelectContext(ctx, m.q, &categories, `SELECT id, name FROM categories ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("query categories: %w", err)
	}
	return categories, nil
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

var (
	_ port.Store         = (*MySQLAdapter)(nil)
	_ port.Transactor    = (*MySQLAdapter)(nil)
	_ port.CategoryStore = (*MySQLAdapter)(nil)
)
