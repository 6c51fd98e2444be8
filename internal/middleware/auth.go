package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"appdeck-core/internal/config"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// ContextUserKey is the gin context key holding the authenticated *User
const ContextUserKey = "user"

// AuthMiddleware handles HS256 bearer token authentication.
// With no secret configured every request is let through.
type AuthMiddleware struct {
	secret []byte
}

// NewAuthMiddleware creates a new authentication middleware
func NewAuthMiddleware(cfg *config.AuthConfig) *AuthMiddleware {
	return &AuthMiddleware{secret: []byte(cfg.JWTSecret)}
}

// Enabled reports whether tokens are checked
func (am *AuthMiddleware) Enabled() bool {
	return len(am.secret) > 0
}

// RequireAuth is a Gin middleware that requires authentication
func (am *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !am.Enabled() {
			c.Next()
			return
		}

		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abortUnauthorized(c, "Authorization header is required", nil)
			return
		}

		if !strings.HasPrefix(authHeader, "Bearer ") {
			abortUnauthorized(c, "Authorization header must start with 'Bearer '", nil)
			return
		}

		user, err := am.verifyToken(strings.TrimPrefix(authHeader, "Bearer "))
		if err != nil {
			abortUnauthorized(c, "Invalid token", err)
			return
		}

		c.Set(ContextUserKey, user)
		c.Next()
	}
}

func abortUnauthorized(c *gin.Context, message string, err error) {
	body := gin.H{
		"error":   "unauthorized",
		"message": message,
	}
	if err != nil {
		body["details"] = err.Error()
	}
	c.AbortWithStatusJSON(http.StatusUnauthorized, body)
}

// verifyToken checks the signature and expiry and extracts the subject
func (am *AuthMiddleware) verifyToken(token string) (*User, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return am.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}
	if !parsed.Valid {
		return nil, errors.New("invalid token")
	}
	if claims.Subject == "" {
		return nil, errors.New("token has no subject")
	}

	return &User{ID: claims.Subject, Email: claims.Email, Username: claims.Username}, nil
}

// Claims are the token claims the API understands
type Claims struct {
	Email    string `json:"email,omitempty"`
	Username string `json:"username,omitempty"`
	jwt.RegisteredClaims
}

// User is the authenticated caller
type User struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Username string `json:"username"`
}

// CurrentUser returns the authenticated user, if any
func CurrentUser(c *gin.Context) (*User, bool) {
	v, ok := c.Get(ContextUserKey)
	if !ok {
		return nil, false
	}
	u, ok := v.(*User)
	return u, ok
}
