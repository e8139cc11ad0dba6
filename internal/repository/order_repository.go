package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/vicraft/backend/internal/models"
)

type OrderRepository struct {
	db *sql.DB
}

func NewOrderRepository(db *sql.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

// Create inserts a pending order row and fills in the generated id.
func (r *OrderRepository) Create(ctx context.Context, order *models.Order) error {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO orders (user_id, type, amount, coins, subscription_tier, paypal_order_id, status)
		VALUES (?, ?, ?, ?, NULLIF(?, ''), NULLIF(?, ''), ?)`,
		order.UserID, order.Type, order.Amount, order.Coins,
		order.SubscriptionTier, order.PayPalOrderID, models.OrderPending,
	)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}
	order.ID = id
	order.Status = models.OrderPending
	return nil
}

// SetPayPalOrderID links a local order to the provider-side order handle.
func (r *OrderRepository) SetPayPalOrderID(ctx context.Context, id int64, paypalOrderID string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE orders SET paypal_order_id = ? WHERE id = ?`, paypalOrderID, id)
	if err != nil {
		return fmt.Errorf("set paypal order id: %w", err)
	}
	return nil
}

func (r *OrderRepository) FindByPayPalOrderID(ctx context.Context, paypalOrderID string) (*models.Order, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, type, amount, coins,
		       COALESCE(subscription_tier, ''), COALESCE(paypal_order_id, ''), status,
		       created_at, updated_at
		FROM orders WHERE paypal_order_id = ?`, paypalOrderID)

	var order models.Order
	err := row.Scan(
		&order.ID, &order.UserID, &order.Type, &order.Amount, &order.Coins,
		&order.SubscriptionTier, &order.PayPalOrderID, &order.Status,
		&order.CreatedAt, &order.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan order: %w", err)
	}
	return &order, nil
}

// MarkCompleted flips a pending order to completed. The conditional update is
// the idempotency gate for capture: only the caller that wins this transition
// may credit the user.
func (r *OrderRepository) MarkCompleted(ctx context.Context, paypalOrderID string) (bool, error) {
	return r.transition(ctx, paypalOrderID, models.OrderCompleted)
}

// MarkFailed flips a pending order to failed.
func (r *OrderRepository) MarkFailed(ctx context.Context, paypalOrderID string) (bool, error) {
	return r.transition(ctx, paypalOrderID, models.OrderFailed)
}

func (r *OrderRepository) transition(ctx context.Context, paypalOrderID, status string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE orders SET status = ?
		WHERE paypal_order_id = ? AND status = ?`,
		status, paypalOrderID, models.OrderPending,
	)
	if err != nil {
		return false, fmt.Errorf("transition order: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("transition order: %w", err)
	}
	return affected == 1, nil
}

func (r *OrderRepository) ListByUser(ctx context.Context, userID string, limit int) ([]models.Order, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, type, amount, coins,
		       COALESCE(subscription_tier, ''), COALESCE(paypal_order_id, ''), status,
		       created_at, updated_at
		FROM orders WHERE user_id = ?
		ORDER BY created_at DESC
		LIMIT ?`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	var orders []models.Order
	for rows.Next() {
		var order models.Order
		if err := rows.Scan(
			&order.ID, &order.UserID, &order.Type, &order.Amount, &order.Coins,
			&order.SubscriptionTier, &order.PayPalOrderID, &order.Status,
			&order.CreatedAt, &order.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, order)
	}
	return orders, rows.Err()
}
