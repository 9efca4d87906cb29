package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"campusbite/internal/database"
	"campusbite/internal/models"
)

// Store provides menu catalog persistence. Items are mutated only by
// staff and read by many concurrent checkouts; readers never block on
// staff writes.
type Store struct {
	db *database.DB
}

// NewStore creates a catalog store
func NewStore(db *database.DB) *Store {
	return &Store{db: db}
}

// GetItem fetches a single menu item by id
func (s *Store) GetItem(ctx context.Context, id int64) (*models.MenuItem, error) {
	var item models.MenuItem
	err := s.db.QueryRow(ctx, database.GetMenuItemSQL, id).Scan(
		&item.ID,
		&item.Name,
		&item.PriceMinor,
		&item.Category,
		&item.ImageURL,
		&item.Available,
		&item.PrepMinutes,
		&item.CreatedAt,
		&item.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: menu item %d", models.ErrNotFound, id)
		}
		return nil, fmt.Errorf("%w: %v", models.ErrUnavailable, err)
	}
	return &item, nil
}

// ListItems returns the full catalog
func (s *Store) ListItems(ctx context.Context) ([]models.MenuItem, error) {
	rows, err := s.db.Query(ctx, database.ListMenuItemsSQL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrUnavailable, err)
	}
	defer rows.Close()

	var items []models.MenuItem
	for rows.Next() {
		var item models.MenuItem
		err := rows.Scan(
			&item.ID,
			&item.Name,
			&item.PriceMinor,
			&item.Category,
			&item.ImageURL,
			&item.Available,
			&item.PrepMinutes,
			&item.CreatedAt,
			&item.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan menu item: %w", err)
		}
		items = append(items, item)
	}

	return items, rows.Err()
}

// Create inserts a new menu item (staff only, enforced by the handler)
func (s *Store) Create(ctx context.Context, req *models.MenuItemRequest) (*models.MenuItem, error) {
	available := true
	if req.Available != nil {
		available = *req.Available
	}

	item := models.MenuItem{
		Name:        req.Name,
		PriceMinor:  req.PriceMinor,
		Category:    req.Category,
		ImageURL:    req.ImageURL,
		Available:   available,
		PrepMinutes: req.PrepMinutes,
	}

	err := s.db.QueryRow(ctx, database.InsertMenuItemSQL,
		item.Name, item.PriceMinor, item.Category, item.ImageURL, item.Available, item.PrepMinutes,
	).Scan(&item.ID, &item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert menu item: %w", err)
	}

	return &item, nil
}

// Update replaces a menu item's fields. Past orders keep their own
// frozen copies, so edits never touch order history.
func (s *Store) Update(ctx context.Context, id int64, req *models.MenuItemRequest) error {
	existing, err := s.GetItem(ctx, id)
	if err != nil {
		return err
	}

	available := existing.Available
	if req.Available != nil {
		available = *req.Available
	}

	tag, err := s.db.Pool.Exec(ctx, database.UpdateMenuItemSQL,
		req.Name, req.PriceMinor, req.Category, req.ImageURL, available, req.PrepMinutes, id)
	if err != nil {
		return fmt.Errorf("failed to update menu item: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: menu item %d", models.ErrNotFound, id)
	}
	return nil
}

// SetAvailability toggles the browsing availability flag
func (s *Store) SetAvailability(ctx context.Context, id int64, available bool) error {
	tag, err := s.db.Pool.Exec(ctx, database.SetMenuAvailabilitySQL, available, id)
	if err != nil {
		return fmt.Errorf("failed to set availability: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: menu item %d", models.ErrNotFound, id)
	}
	return nil
}

// Delete removes a menu item from the catalog
func (s *Store) Delete(ctx context.Context, id int64) error {
	tag, err := s.db.Pool.Exec(ctx, database.DeleteMenuItemSQL, id)
	if err != nil {
		return fmt.Errorf("failed to delete menu item: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: menu item %d", models.ErrNotFound, id)
	}
	return nil
}
