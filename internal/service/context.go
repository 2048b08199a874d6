package service

import (
	"context"

	"github.com/tahsinku/tahsinku-api/internal/models"
)

type contextKey string

const adminContextKey contextKey = "admin"

// WithAdmin binds the authenticated admin to the context.
func WithAdmin(ctx context.Context, admin *models.Admin) context.Context {
	return context.WithValue(ctx, adminContextKey, admin)
}

// AdminFromContext returns the authenticated admin, or nil when the
// context carries no admin session.
func AdminFromContext(ctx context.Context) *models.Admin {
	admin, _ := ctx.Value(adminContextKey).(*models.Admin)
	return admin
}
