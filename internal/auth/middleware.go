package auth

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	ContextUserKey      = "auth_user"
	ContextRoleKey      = "auth_role"
	ContextRequestIDKey = "request_id"
)

// CurrentUser returns the authenticated username from the request context.
func CurrentUser(c *gin.Context) string {
	if value, exists := c.Get(ContextUserKey); exists {
		if username, ok := value.(string); ok {
			return username
		}
	}
	return ""
}

// CurrentRole returns the authenticated role from the request context.
func CurrentRole(c *gin.Context) string {
	if value, exists := c.Get(ContextRoleKey); exists {
		if role, ok := value.(string); ok {
			return role
		}
	}
	return ""
}

// RequireAuth validates the Bearer token and stores the identity in context.
func RequireAuth(tokens *TokenManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
			return
		}
		claims, err := tokens.Parse(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			return
		}
		c.Set(ContextUserKey, claims.Username)
		c.Set(ContextRoleKey, claims.Role)
		c.Next()
	}
}

// RequireRole rejects callers whose role is not in the allow list.
func RequireRole(roles ...string) gin.HandlerFunc {
	allowed := make(map[string]struct{}, len(roles))
	for _, role := range roles {
		allowed[role] = struct{}{}
	}
	return func(c *gin.Context) {
		if _, ok := allowed[CurrentRole(c)]; !ok {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Insufficient permissions"})
			return
		}
		c.Next()
	}
}

// RequestLogger tags every request with an id and logs its outcome.
func RequestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := uuid.NewString()
		c.Set(ContextRequestIDKey, requestID)
		c.Header("X-Request-ID", requestID)
		start := time.Now()
		c.Next()
		logger.Info("http request",
			zap.String("request_id", requestID),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()))
	}
}
