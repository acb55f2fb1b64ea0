package authorization

import (
	"net/http"
	"strings"

	jwt "github.com/appleboy/gin-jwt/v2"
	"github.com/gin-gonic/gin"
)

// Guard wraps the JWT middleware with authorization helpers.
type Guard struct {
	jwt *jwt.GinJWTMiddleware
}

// NewGuard builds a guard helper around the given JWT middleware.
func NewGuard(jwtMiddleware *jwt.GinJWTMiddleware) *Guard {
	if jwtMiddleware == nil {
		return nil
	}
	return &Guard{jwt: jwtMiddleware}
}

// Guard returns the module's guard instance for reuse by other packages.
func (m *Module) Guard() *Guard {
	if m == nil {
		return nil
	}
	return NewGuard(m.jwtMiddleware)
}

// RequireAuthenticated ensures the request carries a valid JWT.
func (g *Guard) RequireAuthenticated() gin.HandlerFunc {
	if g == nil || g.jwt == nil {
		return func(c *gin.Context) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		}
	}
	return g.jwt.MiddlewareFunc()
}

// RequireRole restricts the request to callers holding the given role.
func (g *Guard) RequireRole(role string) gin.HandlerFunc {
	expected := strings.ToLower(strings.TrimSpace(role))
	return func(c *gin.Context) {
		identity, ok := CurrentUser(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			return
		}
		if expected != "" && !strings.EqualFold(identity.Role, expected) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": expected + " role required"})
			return
		}
		c.Next()
	}
}

// CurrentUser extracts the authenticated identity from the request claims.
// The second return value is false when no verified identity is attached.
func CurrentUser(c *gin.Context) (*AuthenticatedUser, bool) {
	claims := jwt.ExtractClaims(c)
	if len(claims) == 0 {
		return nil, false
	}

	id := extractUserID(claims)
	if id == 0 {
		return nil, false
	}

	email, _ := claims[emailKey].(string)
	role, _ := claims[roleKey].(string)
	return &AuthenticatedUser{ID: id, Email: email, Role: role}, true
}
