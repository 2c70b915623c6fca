package commerce

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/joao-fontenele/commentorder/internal/database"
	"github.com/joao-fontenele/commentorder/internal/domain"
)

type OrderRepository struct{}

func NewOrderRepository() *OrderRepository {
	return &OrderRepository{}
}

func (r *OrderRepository) Insert(ctx context.Context, q database.Querier, order *domain.Order) error {
	order.ID = uuid.New().String()
	order.UpdatedAt = order.CreatedAt

	_, err := q.ExecContext(ctx, `
		INSERT INTO orders (id, buyer_id, feed_id, total, arrived, paid, shipped, closed, created_at, updated_at)
		VALUES ($1, $2, $3, $4, FALSE, FALSE, FALSE, FALSE, $5, $5)
	`, order.ID, order.BuyerID, order.FeedID, order.Total, order.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	for _, item := range order.Items {
		_, err = q.ExecContext(ctx, `
			INSERT INTO order_items (id, order_id, product_id, variant, quantity, unit_price, subtotal)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`, uuid.New().String(), order.ID, item.ProductID, item.Variant, item.Quantity, item.UnitPrice, item.Subtotal)
		if err != nil {
			return fmt.Errorf("insert order item: %w", err)
		}
	}

	return nil
}

// AddToItem increases the order's line for productID by quantity, reprices
// the line at unitPrice and recomputes the order total. It returns the
// updated line and the new order total.
func (r *OrderRepository) AddToItem(ctx context.Context, q database.Querier, orderID, productID, variant string, quantity int, unitPrice decimal.Decimal, now time.Time) (*domain.OrderItem, decimal.Decimal, error) {
	item := &domain.OrderItem{ProductID: productID}

	err := q.QueryRowContext(ctx, `
		UPDATE order_items
		SET quantity = quantity + $3::int,
		    unit_price = $4::numeric,
		    subtotal = (quantity + $3::int) * $4::numeric,
		    variant = COALESCE(NULLIF($5::text, ''), variant)
		WHERE order_id = $1 AND product_id = $2
		RETURNING variant, quantity, unit_price, subtotal
	`, orderID, productID, quantity, unitPrice, variant).Scan(&item.Variant, &item.Quantity, &item.UnitPrice, &item.Subtotal)
	if err != nil {
		if database.IsNotFound(err) {
			return nil, decimal.Decimal{}, fmt.Errorf("order %s has no line for product %s: %w", orderID, productID, database.ErrOrderNotFound)
		}
		return nil, decimal.Decimal{}, fmt.Errorf("update order item: %w", err)
	}

	var total decimal.Decimal
	err = q.QueryRowContext(ctx, `
		UPDATE orders
		SET total = (SELECT COALESCE(SUM(subtotal), 0) FROM order_items WHERE order_id = $1),
		    updated_at = $2
		WHERE id = $1
		RETURNING total
	`, orderID, now).Scan(&total)
	if err != nil {
		return nil, decimal.Decimal{}, fmt.Errorf("update order total: %w", err)
	}

	return item, total, nil
}

func (r *OrderRepository) GetByID(ctx context.Context, q database.Querier, id string) (*domain.Order, error) {
	order := &domain.Order{}

	err := q.QueryRowContext(ctx, `
		SELECT id, buyer_id, feed_id, total, arrived, paid, shipped, closed, created_at, updated_at
		FROM orders
		WHERE id = $1
	`, id).Scan(&order.ID, &order.BuyerID, &order.FeedID, &order.Total, &order.Arrived, &order.Paid, &order.Shipped, &order.Closed, &order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		if database.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get order: %w", err)
	}

	rows, err := q.QueryContext(ctx, `
		SELECT product_id, variant, quantity, unit_price, subtotal
		FROM order_items
		WHERE order_id = $1
	`, id)
	if err != nil {
		return nil, fmt.Errorf("get order items: %w", err)
	}
	defer func() { _ = rows.Close() }()

	order.Items = []domain.OrderItem{}
	for rows.Next() {
		var item domain.OrderItem
		if err := rows.Scan(&item.ProductID, &item.Variant, &item.Quantity, &item.UnitPrice, &item.Subtotal); err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		order.Items = append(order.Items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return order, nil
}

func (r *OrderRepository) List(ctx context.Context, q database.Querier) ([]domain.Order, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, buyer_id, feed_id, total, arrived, paid, shipped, closed, created_at, updated_at
		FROM orders
		ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer func() { _ = rows.Close() }()

	orderMap := make(map[string]*domain.Order)
	var orderIDs []string

	for rows.Next() {
		var order domain.Order
		if err := rows.Scan(&order.ID, &order.BuyerID, &order.FeedID, &order.Total, &order.Arrived, &order.Paid, &order.Shipped, &order.Closed, &order.CreatedAt, &order.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		order.Items = []domain.OrderItem{}
		orderMap[order.ID] = &order
		orderIDs = append(orderIDs, order.ID)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	if len(orderIDs) == 0 {
		return []domain.Order{}, nil
	}

	itemRows, err := q.QueryContext(ctx, `
		SELECT order_id, product_id, variant, quantity, unit_price, subtotal
		FROM order_items
		WHERE order_id = ANY($1)
	`, pq.Array(orderIDs))
	if err != nil {
		return nil, fmt.Errorf("list order items: %w", err)
	}
	defer func() { _ = itemRows.Close() }()

	for itemRows.Next() {
		var orderID string
		var item domain.OrderItem
		if err := itemRows.Scan(&orderID, &item.ProductID, &item.Variant, &item.Quantity, &item.UnitPrice, &item.Subtotal); err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		order := orderMap[orderID]
		order.Items = append(order.Items, item)
	}

	if err := itemRows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	orders := make([]domain.Order, 0, len(orderIDs))
	for _, id := range orderIDs {
		orders = append(orders, *orderMap[id])
	}

	return orders, nil
}

// flag must be validated by the caller; it is interpolated as a column name.
func (r *OrderRepository) GetFlagForUpdate(ctx context.Context, q database.Querier, id string, flag domain.OrderFlag) (bool, error) {
	var value bool
	err := q.QueryRowContext(ctx, `SELECT `+string(flag)+` FROM orders WHERE id = $1 FOR UPDATE`, id).Scan(&value)
	if err != nil {
		if database.IsNotFound(err) {
			return false, database.ErrOrderNotFound
		}
		return false, fmt.Errorf("lock order flag: %w", err)
	}
	return value, nil
}

func (r *OrderRepository) SetFlag(ctx context.Context, q database.Querier, change domain.FlagChange) error {
	_, err := q.ExecContext(ctx, `UPDATE orders SET `+string(change.Flag)+` = $2, updated_at = $3 WHERE id = $1`,
		change.OrderID, change.NewValue, change.ChangedAt)
	if err != nil {
		return fmt.Errorf("set order flag: %w", err)
	}

	_, err = q.ExecContext(ctx, `
		INSERT INTO order_flag_changes (order_id, flag, old_value, new_value, actor, changed_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, change.OrderID, change.Flag, change.OldValue, change.NewValue, change.Actor, change.ChangedAt)
	if err != nil {
		return fmt.Errorf("insert flag change: %w", err)
	}
	return nil
}

func (r *OrderRepository) FlagHistory(ctx context.Context, q database.Querier, id string) ([]domain.FlagChange, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT order_id, flag, old_value, new_value, actor, changed_at
		FROM order_flag_changes
		WHERE order_id = $1
		ORDER BY changed_at, id
	`, id)
	if err != nil {
		return nil, fmt.Errorf("list flag changes: %w", err)
	}
	defer func() { _ = rows.Close() }()

	changes := []domain.FlagChange{}
	for rows.Next() {
		var change domain.FlagChange
		if err := rows.Scan(&change.OrderID, &change.Flag, &change.OldValue, &change.NewValue, &change.Actor, &change.ChangedAt); err != nil {
			return nil, fmt.Errorf("scan flag change: %w", err)
		}
		changes = append(changes, change)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return changes, nil
}
