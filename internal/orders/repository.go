package orders

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/labcelsanantonio-byte/LABCEL/internal/domain"
)

// ErrDuplicateOrderID is returned by Create when the generated id is taken.
var ErrDuplicateOrderID = errors.New("duplicate order id")

const uniqueViolation = "23505"

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type OrderRepository struct {
	db *sql.DB
}

func NewOrderRepository(db *sql.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

func (r *OrderRepository) Create(ctx context.Context, order *domain.Order) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO orders (order_id, user_id, customer_name, customer_email, customer_phone,
			customer_whatsapp, shipping_address, total, payment_method, status,
			design_approved, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`, order.ID, order.UserID, order.CustomerName, order.CustomerEmail, order.CustomerPhone,
		order.CustomerWhatsApp, order.ShippingAddress, order.Total, order.PaymentMethod, order.Status,
		order.DesignApproved, order.Notes, order.CreatedAt, order.UpdatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return ErrDuplicateOrderID
		}
		return err
	}

	for i, item := range order.Items {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO order_items (order_id, position, product_id, product_name, quantity, price,
				phone_brand, phone_model, custom_image_url, preview_image_url)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		`, order.ID, i, item.ProductID, item.ProductName, item.Quantity, item.Price,
			item.PhoneBrand, item.PhoneModel, item.CustomImageURL, item.PreviewImageURL)
		if err != nil {
			return fmt.Errorf("insert item %d: %w", i, err)
		}
	}

	if err := insertHistory(ctx, tx, order.ID, 0, order.StatusHistory); err != nil {
		return err
	}

	return tx.Commit()
}

func (r *OrderRepository) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	return loadOrder(ctx, r.db, id, false)
}

// Update loads the order under a row lock, applies mutate and persists the
// new status, approval flag and any history entries mutate appended. When
// mutate reports no change nothing is written.
func (r *OrderRepository) Update(ctx context.Context, id string, mutate func(*domain.Order) (bool, error)) (*domain.Order, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	order, err := loadOrder(ctx, tx, id, true)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, nil
	}

	recorded := len(order.StatusHistory)
	changed, err := mutate(order)
	if err != nil {
		return nil, err
	}
	if !changed {
		return order, tx.Commit()
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE orders SET status = $2, design_approved = $3, updated_at = $4
		WHERE order_id = $1
	`, order.ID, order.Status, order.DesignApproved, order.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if err := insertHistory(ctx, tx, order.ID, recorded, order.StatusHistory[recorded:]); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return order, nil
}

type ListFilter struct {
	UserID string
	Status domain.OrderStatus
	Limit  int
}

// List returns matching orders newest first, loading items and history for
// the whole page in two extra queries.
func (r *OrderRepository) List(ctx context.Context, filter ListFilter) ([]domain.Order, error) {
	var (
		where []string
		args  []any
	)
	if filter.UserID != "" {
		args = append(args, filter.UserID)
		where = append(where, fmt.Sprintf("user_id = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}

	query := `SELECT ` + orderColumns + ` FROM orders`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC"
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	orderMap := make(map[string]*domain.Order)
	var orderIDs []string

	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orderMap[order.ID] = order
		orderIDs = append(orderIDs, order.ID)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	if len(orderIDs) == 0 {
		return []domain.Order{}, nil
	}

	if err := loadItems(ctx, r.db, orderIDs, orderMap); err != nil {
		return nil, err
	}
	if err := loadHistory(ctx, r.db, orderIDs, orderMap); err != nil {
		return nil, err
	}

	orders := make([]domain.Order, 0, len(orderIDs))
	for _, id := range orderIDs {
		orders = append(orders, *orderMap[id])
	}

	return orders, nil
}

type Stats struct {
	TotalOrders     int64           `json:"total_orders"`
	PendingOrders   int64           `json:"pending_orders"`
	CompletedOrders int64           `json:"completed_orders"`
	TotalRevenue    decimal.Decimal `json:"total_revenue"`
	OrdersToday     int64           `json:"orders_today"`
	TotalUsers      int64           `json:"total_users"`
}

func (r *OrderRepository) Stats(ctx context.Context, since time.Time) (*Stats, error) {
	stats := &Stats{}
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
			COUNT(*) FILTER (WHERE status = $1),
			COUNT(*) FILTER (WHERE status = $2),
			COALESCE(SUM(total) FILTER (WHERE status <> $3), 0),
			COUNT(*) FILTER (WHERE created_at >= $4)
		FROM orders
	`, domain.StatusPending, domain.StatusDelivered, domain.StatusCancelled, since).Scan(
		&stats.TotalOrders, &stats.PendingOrders, &stats.CompletedOrders, &stats.TotalRevenue, &stats.OrdersToday)
	if err != nil {
		return nil, err
	}
	return stats, nil
}

const orderColumns = `order_id, user_id, customer_name, customer_email, customer_phone,
	customer_whatsapp, shipping_address, total, payment_method, status,
	design_approved, notes, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (*domain.Order, error) {
	order := &domain.Order{}
	err := row.Scan(&order.ID, &order.UserID, &order.CustomerName, &order.CustomerEmail, &order.CustomerPhone,
		&order.CustomerWhatsApp, &order.ShippingAddress, &order.Total, &order.PaymentMethod, &order.Status,
		&order.DesignApproved, &order.Notes, &order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		return nil, err
	}
	order.Items = []domain.LineItem{}
	order.StatusHistory = []domain.StatusEntry{}
	return order, nil
}

func loadOrder(ctx context.Context, q queryer, id string, forUpdate bool) (*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE order_id = $1`
	if forUpdate {
		query += " FOR UPDATE"
	}

	order, err := scanOrder(q.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	orderMap := map[string]*domain.Order{order.ID: order}
	if err := loadItems(ctx, q, []string{order.ID}, orderMap); err != nil {
		return nil, err
	}
	if err := loadHistory(ctx, q, []string{order.ID}, orderMap); err != nil {
		return nil, err
	}
	return order, nil
}

func loadItems(ctx context.Context, q queryer, ids []string, orderMap map[string]*domain.Order) error {
	rows, err := q.QueryContext(ctx, `
		SELECT order_id, product_id, product_name, quantity, price,
			phone_brand, phone_model, custom_image_url, preview_image_url
		FROM order_items
		WHERE order_id = ANY($1)
		ORDER BY order_id, position
	`, pq.Array(ids))
	if err != nil {
		return err
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var orderID string
		var item domain.LineItem
		if err := rows.Scan(&orderID, &item.ProductID, &item.ProductName, &item.Quantity, &item.Price,
			&item.PhoneBrand, &item.PhoneModel, &item.CustomImageURL, &item.PreviewImageURL); err != nil {
			return err
		}
		if order, ok := orderMap[orderID]; ok {
			order.Items = append(order.Items, item)
		}
	}

	return rows.Err()
}

func loadHistory(ctx context.Context, q queryer, ids []string, orderMap map[string]*domain.Order) error {
	rows, err := q.QueryContext(ctx, `
		SELECT order_id, status, notes, created_at
		FROM order_status_history
		WHERE order_id = ANY($1)
		ORDER BY order_id, position
	`, pq.Array(ids))
	if err != nil {
		return err
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var orderID string
		var entry domain.StatusEntry
		if err := rows.Scan(&orderID, &entry.Status, &entry.Notes, &entry.Timestamp); err != nil {
			return err
		}
		if order, ok := orderMap[orderID]; ok {
			order.StatusHistory = append(order.StatusHistory, entry)
		}
	}

	return rows.Err()
}

func insertHistory(ctx context.Context, tx *sql.Tx, orderID string, offset int, entries []domain.StatusEntry) error {
	for i, entry := range entries {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO order_status_history (order_id, position, status, notes, created_at)
			VALUES ($1, $2, $3, $4, $5)
		`, orderID, offset+i, entry.Status, entry.Notes, entry.Timestamp)
		if err != nil {
			return fmt.Errorf("insert history entry: %w", err)
		}
	}
	return nil
}
