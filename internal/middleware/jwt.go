package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tahsinku/tahsinku-api/internal/service"
	appErrors "github.com/tahsinku/tahsinku-api/pkg/errors"
	"github.com/tahsinku/tahsinku-api/pkg/response"
)

// ContextAdminKey is the gin context key storing the authenticated admin.
const ContextAdminKey = "currentAdmin"

// JWT protects routes by requiring a valid access token issued to a known
// admin. The resolved admin is attached to both the gin context and the
// request context so services can read the acting session.
func JWT(authService *service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "invalid authorization header"))
			c.Abort()
			return
		}

		claims, err := authService.ValidateToken(parts[1])
		if err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}

		admin, err := authService.ResolveAdmin(c.Request.Context(), claims)
		if err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}

		c.Set(ContextAdminKey, admin)
		c.Request = c.Request.WithContext(service.WithAdmin(c.Request.Context(), admin))
		c.Next()
	}
}
