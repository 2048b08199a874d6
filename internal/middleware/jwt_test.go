package middleware

import (
	"context"
	"database/sql"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/tahsinku/tahsinku-api/internal/models"
	"github.com/tahsinku/tahsinku-api/internal/service"
)

type adminRepoStub struct {
	admin *models.Admin
}

func (s *adminRepoStub) FindByEmail(ctx context.Context, email string) (*models.Admin, error) {
	if s.admin != nil && s.admin.Email == email {
		return s.admin, nil
	}
	return nil, sql.ErrNoRows
}

func (s *adminRepoStub) FindByID(ctx context.Context, id string) (*models.Admin, error) {
	if s.admin != nil && s.admin.ID == id {
		return s.admin, nil
	}
	return nil, sql.ErrNoRows
}

func (s *adminRepoStub) UpsertByEmail(ctx context.Context, admin *models.Admin) error {
	s.admin = admin
	return nil
}

func newProtectedRouter(t *testing.T) (*gin.Engine, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	hash, err := bcrypt.GenerateFromPassword([]byte("rahasia1"), bcrypt.MinCost)
	require.NoError(t, err)
	repo := &adminRepoStub{admin: &models.Admin{ID: "admin-1", Email: "admin@tahsinku.id", PasswordHash: string(hash)}}
	authSvc := service.NewAuthService(repo, nil, nil, service.AuthConfig{
		AccessTokenSecret: "secret",
		AccessTokenExpiry: time.Hour,
	})

	login, err := authSvc.Login(context.Background(), models.LoginRequest{Email: "admin@tahsinku.id", Password: "rahasia1"})
	require.NoError(t, err)

	r := gin.New()
	r.GET("/whoami", JWT(authSvc), func(c *gin.Context) {
		admin := service.AdminFromContext(c.Request.Context())
		require.NotNil(t, admin)
		c.JSON(http.StatusOK, gin.H{"id": admin.ID})
	})
	return r, login.AccessToken
}

func TestJWTRejectsMissingHeader(t *testing.T) {
	router, _ := newProtectedRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestJWTRejectsMalformedHeader(t *testing.T) {
	router, token := newProtectedRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Token "+token)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestJWTBindsAdminToRequestContext(t *testing.T) {
	router, token := newProtectedRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "admin-1")
}

func TestJWTRejectsTamperedToken(t *testing.T) {
	router, token := newProtectedRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+token+"x")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
