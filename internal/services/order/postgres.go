package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"campusbite/internal/database"
	"campusbite/internal/models"
)

// PostgresStore persists orders in PostgreSQL. Checkout uses a real
// transaction, so the order write and the cart clear commit or roll
// back together.
type PostgresStore struct {
	db *database.DB
}

// NewPostgresStore creates an order store
func NewPostgresStore(db *database.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// CreateOrderClearingCart persists the order, its frozen line items
// and the initial status-log entry, and empties the user's cart, all
// in one transaction. Fills ID, Number and CreatedAt on success.
func (s *PostgresStore) CreateOrderClearingCart(ctx context.Context, order *models.Order) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("%w: failed to begin transaction: %v", models.ErrUnavailable, err)
	}
	defer tx.Rollback(ctx)

	number, err := nextOrderNumber(ctx, tx, time.Now().UTC())
	if err != nil {
		return err
	}
	order.Number = number

	err = tx.QueryRow(ctx, database.InsertOrderSQL,
		order.Number, order.UserID, order.StudentName, order.StudentEmail, order.TotalMinor,
		order.Status, order.PaymentMethod, order.PaymentStatus, order.PaymentRef, order.RequiredBy,
	).Scan(&order.ID, &order.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert order: %w", err)
	}

	for _, item := range order.Items {
		_, err := tx.Exec(ctx, database.InsertOrderItemSQL,
			order.ID, item.MenuItemID, item.Name, item.PriceMinor, item.Quantity)
		if err != nil {
			return fmt.Errorf("failed to insert order item: %w", err)
		}
	}

	_, err = tx.Exec(ctx, database.InsertOrderStatusLogSQL,
		order.ID, order.Status, "order-service", "order placed")
	if err != nil {
		return fmt.Errorf("failed to insert initial status: %w", err)
	}

	if _, err := tx.Exec(ctx, database.ClearCartSQL, order.UserID); err != nil {
		return fmt.Errorf("failed to clear cart: %w", err)
	}

	return tx.Commit(ctx)
}

// nextOrderNumber computes the day's next sequence inside the checkout
// transaction; the unique constraint on number catches rare races.
func nextOrderNumber(ctx context.Context, tx pgx.Tx, now time.Time) (string, error) {
	prefix := fmt.Sprintf("ORD_%s_%%", now.Format("20060102"))

	var sequence int
	if err := tx.QueryRow(ctx, database.GetNextOrderSequenceSQL, prefix).Scan(&sequence); err != nil {
		return "", fmt.Errorf("failed to compute order sequence: %w", err)
	}

	return models.GenerateOrderNumber(now, sequence), nil
}

// GetByNumber fetches an order with its frozen line items
func (s *PostgresStore) GetByNumber(ctx context.Context, number string) (*models.Order, error) {
	var order models.Order
	err := s.db.QueryRow(ctx, database.GetOrderByNumberSQL, number).Scan(
		&order.ID,
		&order.Number,
		&order.UserID,
		&order.StudentName,
		&order.StudentEmail,
		&order.TotalMinor,
		&order.Status,
		&order.PaymentMethod,
		&order.PaymentStatus,
		&order.PaymentRef,
		&order.RequiredBy,
		&order.CreatedAt,
		&order.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: order %s", models.ErrNotFound, number)
		}
		return nil, fmt.Errorf("%w: %v", models.ErrUnavailable, err)
	}

	items, err := s.loadItems(ctx, order.ID)
	if err != nil {
		return nil, err
	}
	order.Items = items

	return &order, nil
}

func (s *PostgresStore) loadItems(ctx context.Context, orderID int64) ([]models.OrderLine, error) {
	rows, err := s.db.Query(ctx, database.GetOrderItemsSQL, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to query order items: %w", err)
	}
	defer rows.Close()

	var items []models.OrderLine
	for rows.Next() {
		var item models.OrderLine
		if err := rows.Scan(&item.MenuItemID, &item.Name, &item.PriceMinor, &item.Quantity); err != nil {
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}
		items = append(items, item)
	}

	return items, rows.Err()
}

func (s *PostgresStore) listOrders(ctx context.Context, sql string, args ...interface{}) ([]models.Order, error) {
	rows, err := s.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to query orders: %v", models.ErrUnavailable, err)
	}
	defer rows.Close()

	var orders []models.Order
	for rows.Next() {
		var order models.Order
		err := rows.Scan(
			&order.ID,
			&order.Number,
			&order.UserID,
			&order.StudentName,
			&order.StudentEmail,
			&order.TotalMinor,
			&order.Status,
			&order.PaymentMethod,
			&order.PaymentStatus,
			&order.PaymentRef,
			&order.RequiredBy,
			&order.CreatedAt,
			&order.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range orders {
		items, err := s.loadItems(ctx, orders[i].ID)
		if err != nil {
			return nil, err
		}
		orders[i].Items = items
	}

	return orders, nil
}

// ListByUser returns a user's orders, newest first
func (s *PostgresStore) ListByUser(ctx context.Context, userID string) ([]models.Order, error) {
	return s.listOrders(ctx, database.ListOrdersByUserSQL, userID)
}

// ListAll returns every order, newest first
func (s *PostgresStore) ListAll(ctx context.Context) ([]models.Order, error) {
	return s.listOrders(ctx, database.ListAllOrdersSQL)
}

// History returns an order's status log in chronological order
func (s *PostgresStore) History(ctx context.Context, number string) ([]models.OrderStatusHistory, error) {
	rows, err := s.db.Query(ctx, database.GetOrderStatusHistorySQL, number)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to query status history: %v", models.ErrUnavailable, err)
	}
	defer rows.Close()

	var history []models.OrderStatusHistory
	for rows.Next() {
		var entry models.OrderStatusHistory
		if err := rows.Scan(&entry.Status, &entry.ChangedBy, &entry.ChangedAt, &entry.Notes); err != nil {
			return nil, fmt.Errorf("failed to scan status history: %w", err)
		}
		history = append(history, entry)
	}

	return history, rows.Err()
}

// TransitionStatus applies a compare-and-set status update and appends
// the status-log entry in the same transaction. A zero-row update
// means a concurrent attempt already moved the order.
func (s *PostgresStore) TransitionStatus(ctx context.Context, orderID int64, from, to models.OrderStatus, changedBy string) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("%w: failed to begin transaction: %v", models.ErrUnavailable, err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, database.UpdateOrderStatusCASSQL, to, orderID, from)
	if err != nil {
		return fmt.Errorf("failed to update order status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: order moved past %s concurrently", models.ErrInvalidTransition, from)
	}

	if _, err := tx.Exec(ctx, database.InsertOrderStatusLogSQL, orderID, to, changedBy, nil); err != nil {
		return fmt.Errorf("failed to insert status log: %w", err)
	}

	return tx.Commit(ctx)
}

// SetPaymentCompleted reconciles the payment status to completed. This
// is the only writer of payment_status after creation, disjoint from
// the status path.
func (s *PostgresStore) SetPaymentCompleted(ctx context.Context, orderID int64) error {
	if err := s.db.Exec(ctx, database.UpdatePaymentStatusSQL, models.PaymentCompleted, orderID); err != nil {
		return fmt.Errorf("failed to update payment status: %w", err)
	}
	return nil
}
