package notification

import (
	"context"
	"fmt"

	"campusbite/internal/database"
	"campusbite/internal/models"
)

// PostgresTokenStore persists device push tokens
type PostgresTokenStore struct {
	db *database.DB
}

// NewPostgresTokenStore creates a token store
func NewPostgresTokenStore(db *database.DB) *PostgresTokenStore {
	return &PostgresTokenStore{db: db}
}

// Register records a device token for a user. Re-registering the same
// token is a no-op.
func (s *PostgresTokenStore) Register(ctx context.Context, userID, token string) error {
	if err := s.db.Exec(ctx, database.InsertPushTokenSQL, userID, token); err != nil {
		return fmt.Errorf("%w: failed to register push token: %v", models.ErrUnavailable, err)
	}
	return nil
}

// ListTokens returns every device token registered for a user
func (s *PostgresTokenStore) ListTokens(ctx context.Context, userID string) ([]string, error) {
	rows, err := s.db.Query(ctx, database.ListPushTokensSQL, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to query push tokens: %v", models.ErrUnavailable, err)
	}
	defer rows.Close()

	var tokens []string
	for rows.Next() {
		var token string
		if err := rows.Scan(&token); err != nil {
			return nil, fmt.Errorf("failed to scan push token: %w", err)
		}
		tokens = append(tokens, token)
	}

	return tokens, rows.Err()
}
