package http

import (
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"

	"dopamine-dashboard/internal/domain"
)

const (
	tokenCookie = "token"
	userKey     = "user"
)

// tokenFromRequest reads the bearer header, then the cookie, then (when allowed) the query.
func tokenFromRequest(c *gin.Context, allowQuery bool) string {
	if h := c.GetHeader("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	if v, err := c.Cookie(tokenCookie); err == nil && v != "" {
		return v
	}
	if allowQuery {
		return c.Query("token")
	}
	return ""
}

func (s *Server) requireAuth(allowQuery bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := tokenFromRequest(c, allowQuery)
		if raw == "" {
			writeError(c, fmt.Errorf("%w: missing token", domain.ErrUnauthorized))
			return
		}
		claims, err := s.auth.Authenticate(raw)
		if err != nil {
			writeError(c, err)
			return
		}
		c.Set(userKey, domain.User{
			ID:    claims.UserID(),
			Role:  claims.Role,
			Name:  claims.Name,
			Email: claims.Email,
		})
		c.Next()
	}
}

func requireAdmin(c *gin.Context) {
	if !currentUser(c).IsAdmin() {
		writeError(c, fmt.Errorf("%w: admin role required", domain.ErrForbidden))
		return
	}
	c.Next()
}

func currentUser(c *gin.Context) domain.User {
	if v, ok := c.Get(userKey); ok {
		if u, ok := v.(domain.User); ok {
			return u
		}
	}
	return domain.User{}
}
