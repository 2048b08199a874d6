package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/tahsinku/tahsinku-api/internal/models"
)

// AdminRepository manages persistence for admin accounts.
type AdminRepository struct {
	db *sqlx.DB
}

// NewAdminRepository constructs an AdminRepository.
func NewAdminRepository(db *sqlx.DB) *AdminRepository {
	return &AdminRepository{db: db}
}

// FindByEmail fetches an admin by email, case-insensitively.
func (r *AdminRepository) FindByEmail(ctx context.Context, email string) (*models.Admin, error) {
	const query = `SELECT id, email, password_hash, display_name, created_at, updated_at
        FROM admins WHERE LOWER(email) = LOWER($1)`
	var admin models.Admin
	if err := r.db.GetContext(ctx, &admin, query, strings.TrimSpace(email)); err != nil {
		return nil, err
	}
	return &admin, nil
}

// FindByID fetches an admin by ID.
func (r *AdminRepository) FindByID(ctx context.Context, id string) (*models.Admin, error) {
	const query = `SELECT id, email, password_hash, display_name, created_at, updated_at
        FROM admins WHERE id = $1`
	var admin models.Admin
	if err := r.db.GetContext(ctx, &admin, query, id); err != nil {
		return nil, err
	}
	return &admin, nil
}

// UpsertByEmail inserts the admin or, when the email is already taken,
// refreshes the credential and display name in place. Used by the
// bootstrap operation, which must be idempotent per email.
func (r *AdminRepository) UpsertByEmail(ctx context.Context, admin *models.Admin) error {
	if admin.ID == "" {
		admin.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if admin.CreatedAt.IsZero() {
		admin.CreatedAt = now
	}
	admin.UpdatedAt = now
	const query = `INSERT INTO admins (id, email, password_hash, display_name, created_at, updated_at)
        VALUES (:id, :email, :password_hash, :display_name, :created_at, :updated_at)
        ON CONFLICT (email) DO UPDATE
        SET password_hash = EXCLUDED.password_hash,
            display_name = EXCLUDED.display_name,
            updated_at = EXCLUDED.updated_at`
	if _, err := r.db.NamedExecContext(ctx, query, admin); err != nil {
		return fmt.Errorf("upsert admin: %w", err)
	}
	return nil
}
