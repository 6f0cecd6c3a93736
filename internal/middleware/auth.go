package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"racingplate/internal/models"
	"racingplate/internal/services"
)

const userContextKey = "current_user"

// AuthUser is the typed identity attached to authenticated requests, instead
// of loose per-field context keys.
type AuthUser struct {
	ID           int
	Email        string
	Username     string
	Subscription string
	Verified     bool
}

// UserLookup is the slice of UserService the middleware needs.
type UserLookup interface {
	GetByID(ctx context.Context, id int) (*models.User, error)
}

func bearerToken(c *gin.Context) string {
	authHeader := strings.TrimSpace(c.GetHeader("Authorization"))
	if authHeader == "" {
		return ""
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func resolveUser(c *gin.Context, auth services.AuthService, users UserLookup, tokenStr string) (*AuthUser, int, string) {
	claims, err := auth.ParseToken(tokenStr)
	if err != nil {
		if errors.Is(err, services.ErrTokenExpired) {
			return nil, http.StatusUnauthorized, "Token expired"
		}
		return nil, http.StatusUnauthorized, "Invalid token"
	}

	// make sure the account still exists
	user, err := users.GetByID(c.Request.Context(), claims.UserID)
	if err != nil {
		return nil, http.StatusUnauthorized, "Invalid token"
	}

	return &AuthUser{
		ID:           user.ID,
		Email:        user.Email,
		Username:     user.Username,
		Subscription: user.Subscription,
		Verified:     user.IsVerified,
	}, 0, ""
}

// RequireAuth rejects requests without a valid bearer token. Missing,
// invalid and expired tokens each get their own message.
func RequireAuth(auth services.AuthService, users UserLookup) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenStr := bearerToken(c)
		if tokenStr == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "No token provided"})
			return
		}
		user, status, msg := resolveUser(c, auth, users, tokenStr)
		if user == nil {
			c.AbortWithStatusJSON(status, gin.H{"error": msg})
			return
		}
		c.Set(userContextKey, user)
		c.Next()
	}
}

// RequireVerified must run after RequireAuth.
func RequireVerified() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := CurrentUser(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "No token provided"})
			return
		}
		if !user.Verified {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Please verify your email first"})
			return
		}
		c.Next()
	}
}

// OptionalAuth attaches the user when a valid token is present and lets the
// request through either way. Used by the media endpoints.
func OptionalAuth(auth services.AuthService, users UserLookup) gin.HandlerFunc {
	return func(c *gin.Context) {
		if tokenStr := bearerToken(c); tokenStr != "" {
			if user, _, _ := resolveUser(c, auth, users, tokenStr); user != nil {
				c.Set(userContextKey, user)
			}
		}
		c.Next()
	}
}

// CurrentUser returns the authenticated identity, if any.
func CurrentUser(c *gin.Context) (*AuthUser, bool) {
	v, ok := c.Get(userContextKey)
	if !ok {
		return nil, false
	}
	user, ok := v.(*AuthUser)
	return user, ok
}
