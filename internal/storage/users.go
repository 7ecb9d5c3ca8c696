package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/claude/liftlog/internal/models"
	"github.com/google/uuid"
)

// CreateUser inserts u, assigning its id and created_at. A duplicate email
// reports ErrConflict.
func (db *DB) CreateUser(ctx context.Context, u *models.User) error {
	u.ID = uuid.NewString()
	u.Email = strings.ToLower(u.Email)
	err := db.Pool.QueryRow(ctx, `
		INSERT INTO users (id, email, full_name, password_hash)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at
	`, u.ID, u.Email, u.FullName, u.PasswordHash).Scan(&u.CreatedAt)
	if err != nil {
		return fmt.Errorf("creating user: %w", mapErr(err))
	}
	return nil
}

// GetUser looks a user up by id.
func (db *DB) GetUser(ctx context.Context, id string) (*models.User, error) {
	return db.scanUser(ctx, `SELECT id, email, full_name, password_hash, created_at FROM users WHERE id = $1`, id)
}

// GetUserByEmail looks a user up by (case-insensitive) email.
func (db *DB) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return db.scanUser(ctx, `SELECT id, email, full_name, password_hash, created_at FROM users WHERE email = $1`,
		strings.ToLower(email))
}

func (db *DB) scanUser(ctx context.Context, query string, arg string) (*models.User, error) {
	var u models.User
	err := db.Pool.QueryRow(ctx, query, arg).Scan(&u.ID, &u.Email, &u.FullName, &u.PasswordHash, &u.CreatedAt)
	if err != nil {
		return nil, mapErr(err)
	}
	return &u, nil
}
