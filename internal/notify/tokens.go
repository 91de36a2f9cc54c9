package notify

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"group-chat/internal/db"
)

// TokenRepository maps members to their device push token.
type TokenRepository struct {
	db *sql.DB
}

func NewTokenRepository(database *db.Database) *TokenRepository {
	return &TokenRepository{db: database.Conn}
}

func (r *TokenRepository) Save(ctx context.Context, memberID int, token string) error {
	query := `
		INSERT INTO push_tokens (member_id, token, updated_at)
		VALUES ($1, $2, CURRENT_TIMESTAMP)
		ON CONFLICT (member_id) DO UPDATE
		SET token = excluded.token, updated_at = CURRENT_TIMESTAMP
	`
	if _, err := r.db.ExecContext(ctx, query, memberID, token); err != nil {
		return fmt.Errorf("save push token: %w", err)
	}
	return nil
}

func (r *TokenRepository) TokenFor(ctx context.Context, memberID int) (string, error) {
	var token string
	err := r.db.QueryRowContext(ctx, "SELECT token FROM push_tokens WHERE member_id = $1", memberID).Scan(&token)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNoToken
	}
	if err != nil {
		return "", fmt.Errorf("select push token: %w", err)
	}
	return token, nil
}
