package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"tradebidz-core-service/internal/domain/shared"
)

// UserDirectory implements the read-only user lookup on Postgres
type UserDirectory struct {
	conn *Connection
}

// NewUserDirectory creates a new user directory
func NewUserDirectory(conn *Connection) *UserDirectory {
	return &UserDirectory{conn: conn}
}

// GetByID retrieves a user by ID
func (d *UserDirectory) GetByID(ctx context.Context, id uuid.UUID) (*shared.User, error) {
	query := `
		SELECT id, email, full_name, address
		FROM users
		WHERE id = $1
	`

	var user shared.User
	err := d.conn.GetDB().QueryRowContext(ctx, query, id).Scan(
		&user.ID,
		&user.Email,
		&user.FullName,
		&user.Address,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, shared.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}
