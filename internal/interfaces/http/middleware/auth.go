package middleware

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	domainerrors "giveora.backend/internal/domain/errors"
	"giveora.backend/internal/interfaces/http/response"
	"giveora.backend/pkg/jwt"
	"giveora.backend/pkg/logger"
	"go.uber.org/zap"
)

const (
	// AuthorizationHeader is the header key for authorization
	AuthorizationHeader = "Authorization"
	// BearerPrefix is the prefix for bearer tokens
	BearerPrefix = "Bearer "
	// UserIDKey is the context key for user ID
	UserIDKey = "userId"
	// UserEmailKey is the context key for user email
	UserEmailKey = "userEmail"
	// UserRoleKey is the context key for user role
	UserRoleKey = "userRole"
)

// AuthMiddleware validates the bearer access token issued after verification
func AuthMiddleware(jwtService *jwt.JWTService) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader(AuthorizationHeader)
		if authHeader == "" {
			abortUnauthorized(c, "Authorization header is required", nil)
			return
		}

		tokenString, ok := bearerToken(authHeader)
		if !ok {
			abortUnauthorized(c, "Invalid authorization format. Use: Bearer <token>", nil)
			return
		}

		claims, err := jwtService.ValidateToken(tokenString)
		if err != nil {
			if errors.Is(err, jwt.ErrExpiredToken) {
				abortUnauthorized(c, "Token has expired", err)
				return
			}
			abortUnauthorized(c, "Invalid token", err)
			return
		}

		c.Set(UserIDKey, claims.UserID)
		c.Set(UserEmailKey, claims.Email)
		c.Set(UserRoleKey, claims.Role)

		c.Next()
	}
}

func bearerToken(header string) (string, bool) {
	if len(header) <= len(BearerPrefix) || header[:len(BearerPrefix)] != BearerPrefix {
		return "", false
	}
	return header[len(BearerPrefix):], true
}

func abortUnauthorized(c *gin.Context, message string, cause error) {
	logger.Debug(c.Request.Context(), "Request rejected by auth middleware",
		zap.String("path", c.Request.URL.Path),
		zap.String("reason", message),
		zap.Error(cause),
	)
	response.Error(c, domainerrors.Unauthorized(message))
	c.Abort()
}

// GetUserID gets the user ID from context
func GetUserID(c *gin.Context) (uuid.UUID, bool) {
	userID, exists := c.Get(UserIDKey)
	if !exists {
		return uuid.Nil, false
	}
	id, ok := userID.(uuid.UUID)
	return id, ok
}

// GetUserRole gets the user role from context
func GetUserRole(c *gin.Context) (string, bool) {
	role, exists := c.Get(UserRoleKey)
	if !exists {
		return "", false
	}
	s, ok := role.(string)
	return s, ok
}
