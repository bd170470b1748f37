package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/opuscenter/tutor-center-api/internal/models"
)

// UserRepository provides persistence for staff accounts.
type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository creates a new user repository.
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

const userColumns = `id, email, password_hash, full_name, role, line_user_id, active, last_login, created_at, updated_at`

// FindByEmail loads a staff user by email.
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE LOWER(email) = LOWER($1)`
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, email); err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByID loads a staff user by id.
func (r *UserRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, id); err != nil {
		return nil, err
	}
	return &user, nil
}

// UpdateLastLogin records a successful login timestamp.
func (r *UserRepository) UpdateLastLogin(ctx context.Context, id string, ts time.Time) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE users SET last_login = $2, updated_at = $2 WHERE id = $1`, id, ts); err != nil {
		return fmt.Errorf("update last login: %w", err)
	}
	return nil
}

// ListNotifiableByRoles returns active staff in the given roles that have a
// bound LINE identity, i.e. staff reachable for booking notifications.
func (r *UserRepository) ListNotifiableByRoles(ctx context.Context, roles ...models.UserRole) ([]models.User, error) {
	names := make([]string, len(roles))
	for i, role := range roles {
		names[i] = string(role)
	}
	query := `SELECT ` + userColumns + ` FROM users WHERE role = ANY($1) AND active AND line_user_id IS NOT NULL ORDER BY id ASC`
	var users []models.User
	if err := r.db.SelectContext(ctx, &users, query, pq.Array(names)); err != nil {
		return nil, fmt.Errorf("list notifiable staff: %w", err)
	}
	return users, nil
}
