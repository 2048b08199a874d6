package service

import (
	"context"
	"database/sql"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/tahsinku/tahsinku-api/internal/models"
	appErrors "github.com/tahsinku/tahsinku-api/pkg/errors"
)

type mockAdminRepo struct {
	admins map[string]models.Admin
}

func (m *mockAdminRepo) FindByEmail(ctx context.Context, email string) (*models.Admin, error) {
	if a, ok := m.admins[strings.ToLower(email)]; ok {
		copy := a
		return &copy, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockAdminRepo) FindByID(ctx context.Context, id string) (*models.Admin, error) {
	for _, a := range m.admins {
		if a.ID == id {
			copy := a
			return &copy, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockAdminRepo) UpsertByEmail(ctx context.Context, admin *models.Admin) error {
	if m.admins == nil {
		m.admins = make(map[string]models.Admin)
	}
	if existing, ok := m.admins[admin.Email]; ok {
		admin.ID = existing.ID
	}
	m.admins[admin.Email] = *admin
	return nil
}

func newAuthService(repo *mockAdminRepo) *AuthService {
	return NewAuthService(repo, nil, nil, AuthConfig{
		AccessTokenSecret: "test-secret",
		AccessTokenExpiry: time.Hour,
		SetupToken:        "setup-123",
	})
}

func hashOf(t *testing.T, password string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(hash)
}

func TestLoginIssuesValidToken(t *testing.T) {
	repo := &mockAdminRepo{admins: map[string]models.Admin{
		"admin@tahsinku.id": {ID: "adm-1", Email: "admin@tahsinku.id", PasswordHash: hashOf(t, "rahasia1")},
	}}
	svc := newAuthService(repo)

	resp, err := svc.Login(context.Background(), models.LoginRequest{Email: "admin@tahsinku.id", Password: "rahasia1"})
	require.NoError(t, err)
	assert.Equal(t, "adm-1", resp.Admin.ID)
	assert.Equal(t, int64(3600), resp.ExpiresIn)

	claims, err := svc.ValidateToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "adm-1", claims.AdminID)
	assert.Equal(t, "admin@tahsinku.id", claims.Email)
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	repo := &mockAdminRepo{admins: map[string]models.Admin{
		"admin@tahsinku.id": {ID: "adm-1", Email: "admin@tahsinku.id", PasswordHash: hashOf(t, "rahasia1")},
	}}
	svc := newAuthService(repo)

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "admin@tahsinku.id", Password: "salah"})
	require.Error(t, err)
	appErr, ok := err.(*appErrors.Error)
	require.True(t, ok)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErr.Code)
}

func TestLoginUnknownEmailSameError(t *testing.T) {
	svc := newAuthService(&mockAdminRepo{})

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "ghost@tahsinku.id", Password: "apapun"})
	require.Error(t, err)
	appErr, ok := err.(*appErrors.Error)
	require.True(t, ok)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErr.Code, "unknown email and wrong password are indistinguishable")
}

func TestValidateTokenRejectsTampered(t *testing.T) {
	svc := newAuthService(&mockAdminRepo{})
	other := NewAuthService(&mockAdminRepo{}, nil, nil, AuthConfig{AccessTokenSecret: "different", AccessTokenExpiry: time.Hour})

	token, err := other.generateAccessToken(&models.Admin{ID: "adm-1", Email: "a@b.c"})
	require.NoError(t, err)

	_, err = svc.ValidateToken(token)
	require.Error(t, err)
}

func TestBootstrapRequiresSetupToken(t *testing.T) {
	svc := newAuthService(&mockAdminRepo{})

	_, err := svc.Bootstrap(context.Background(), "wrong-token", models.BootstrapRequest{Email: "admin@tahsinku.id", Password: "rahasia1"})
	require.Error(t, err)
	appErr, ok := err.(*appErrors.Error)
	require.True(t, ok)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErr.Code)
}

func TestBootstrapRejectsMissingCredentials(t *testing.T) {
	svc := newAuthService(&mockAdminRepo{})

	_, err := svc.Bootstrap(context.Background(), "setup-123", models.BootstrapRequest{Email: "admin@tahsinku.id"})
	require.Error(t, err)
	appErr, ok := err.(*appErrors.Error)
	require.True(t, ok)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestBootstrapIsIdempotentPerEmail(t *testing.T) {
	repo := &mockAdminRepo{}
	svc := newAuthService(repo)

	first, err := svc.Bootstrap(context.Background(), "setup-123", models.BootstrapRequest{Email: "Admin@TahsinKu.id", Password: "rahasia1", DisplayName: "Admin"})
	require.NoError(t, err)
	assert.Equal(t, "admin@tahsinku.id", first.Email)

	second, err := svc.Bootstrap(context.Background(), "setup-123", models.BootstrapRequest{Email: "admin@tahsinku.id", Password: "rahasia-baru"})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID, "re-running bootstrap refreshes the credential, no second admin row")

	stored, err := repo.FindByEmail(context.Background(), "admin@tahsinku.id")
	require.NoError(t, err)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("rahasia-baru")))
}
