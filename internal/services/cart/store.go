package cart

import (
	"context"
	"fmt"

	"campusbite/internal/database"
	"campusbite/internal/models"
)

// Store persists per-user cart lines. A cart is exclusively owned by
// its user; the only cross-request hazard is concurrent adds for the
// same line, which the upsert resolves store-side.
type Store struct {
	db *database.DB
}

// NewStore creates a cart store
func NewStore(db *database.DB) *Store {
	return &Store{db: db}
}

// AddLine upserts a cart line, incrementing the quantity by delta and
// refreshing the denormalized display snapshot from the given item.
// Returns the resulting quantity.
func (s *Store) AddLine(ctx context.Context, userID string, item *models.MenuItem, delta int) (int, error) {
	if delta < 1 {
		return 0, models.ValidationError{Field: "quantity", Message: "quantity delta must be at least 1"}
	}

	var quantity int
	err := s.db.QueryRow(ctx, database.UpsertCartLineSQL,
		userID, item.ID, item.Name, item.PriceMinor, item.ImageURL, delta,
	).Scan(&quantity)
	if err != nil {
		return 0, fmt.Errorf("%w: failed to upsert cart line: %v", models.ErrUnavailable, err)
	}

	return quantity, nil
}

// SetQuantity sets a line to the exact quantity; zero or less deletes
// the line. Replace semantics, distinct from AddLine's increment.
func (s *Store) SetQuantity(ctx context.Context, userID string, menuItemID int64, quantity int) error {
	if quantity <= 0 {
		return s.RemoveLine(ctx, userID, menuItemID)
	}

	tag, err := s.db.Pool.Exec(ctx, database.SetCartQuantitySQL, quantity, userID, menuItemID)
	if err != nil {
		return fmt.Errorf("%w: failed to set cart quantity: %v", models.ErrUnavailable, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: cart line for item %d", models.ErrNotFound, menuItemID)
	}
	return nil
}

// RemoveLine deletes a line unconditionally; absent lines are a no-op
func (s *Store) RemoveLine(ctx context.Context, userID string, menuItemID int64) error {
	_, err := s.db.Pool.Exec(ctx, database.DeleteCartLineSQL, userID, menuItemID)
	if err != nil {
		return fmt.Errorf("%w: failed to remove cart line: %v", models.ErrUnavailable, err)
	}
	return nil
}

// ListLines returns the user's current cart lines
func (s *Store) ListLines(ctx context.Context, userID string) ([]models.CartLine, error) {
	rows, err := s.db.Query(ctx, database.ListCartLinesSQL, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to list cart lines: %v", models.ErrUnavailable, err)
	}
	defer rows.Close()

	var lines []models.CartLine
	for rows.Next() {
		var line models.CartLine
		err := rows.Scan(
			&line.UserID,
			&line.MenuItemID,
			&line.Name,
			&line.PriceMinor,
			&line.ImageURL,
			&line.Quantity,
			&line.AddedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan cart line: %w", err)
		}
		lines = append(lines, line)
	}

	return lines, rows.Err()
}

// Clear deletes all lines for the user. The checkout path does not use
// this; it clears the cart inside the order-creation transaction.
func (s *Store) Clear(ctx context.Context, userID string) error {
	_, err := s.db.Pool.Exec(ctx, database.ClearCartSQL, userID)
	if err != nil {
		return fmt.Errorf("%w: failed to clear cart: %v", models.ErrUnavailable, err)
	}
	return nil
}
