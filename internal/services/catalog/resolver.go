package catalog

import (
	"context"
	"errors"
	"fmt"

	"campusbite/internal/logger"
	"campusbite/internal/models"
)

// ItemGetter is the catalog read surface the resolver needs
type ItemGetter interface {
	GetItem(ctx context.Context, id int64) (*models.MenuItem, error)
}

// Resolver freezes cart lines against the live catalog at checkout
// time. The frozen name and price become the order's authoritative
// copy, independent of later catalog edits.
//
// Policy notes:
//   - A cart line whose menu item no longer exists falls back to the
//     line's own denormalized snapshot instead of failing the whole
//     checkout.
//   - The availability flag gates browsing only; checkout proceeds
//     regardless of it.
type Resolver struct {
	catalog ItemGetter
	logger  *logger.Logger
}

// NewResolver creates a snapshot resolver
func NewResolver(catalog ItemGetter, log *logger.Logger) *Resolver {
	return &Resolver{
		catalog: catalog,
		logger:  log,
	}
}

// Resolve freezes each cart line. Read-only; lines with non-positive
// quantity are dropped. Catalog infrastructure failures abort the
// resolution so checkout can surface a retryable error.
func (r *Resolver) Resolve(ctx context.Context, lines []models.CartLine) ([]models.OrderLine, error) {
	frozen := make([]models.OrderLine, 0, len(lines))

	for _, line := range lines {
		if line.Quantity <= 0 {
			continue
		}

		item, err := r.catalog.GetItem(ctx, line.MenuItemID)
		if err != nil {
			if errors.Is(err, models.ErrNotFound) {
				// item removed from the menu after it was carted;
				// keep the order alive on the cart's snapshot
				r.logger.Debug("resolver_fallback", "Menu item gone, using cart snapshot", "", map[string]interface{}{
					"menu_item_id": line.MenuItemID,
					"name":         line.Name,
				})
				frozen = append(frozen, models.OrderLine{
					MenuItemID: line.MenuItemID,
					Name:       fallbackName(line.Name),
					PriceMinor: line.PriceMinor,
					Quantity:   line.Quantity,
				})
				continue
			}
			return nil, fmt.Errorf("failed to resolve menu item %d: %w", line.MenuItemID, err)
		}

		frozen = append(frozen, models.OrderLine{
			MenuItemID: item.ID,
			Name:       fallbackName(item.Name),
			PriceMinor: item.PriceMinor,
			Quantity:   line.Quantity,
		})
	}

	return frozen, nil
}

// fallbackName is the single display-name fallback policy
func fallbackName(name string) string {
	if name == "" {
		return "Item"
	}
	return name
}
