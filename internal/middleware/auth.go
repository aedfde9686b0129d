package middleware

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/jgmap/core/internal/models"
	"github.com/jgmap/core/internal/pkg/jwt"
	"github.com/jgmap/core/internal/pkg/response"
	"gorm.io/gorm"
)

const ContextKeyUserID = "user_id"

// Auth returns a middleware that enforces JWT authentication.
func Auth(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, err := ValidateToken(db, extractToken(c))
		if err != nil {
			response.Unauthorized(c)
			return
		}
		c.Set(ContextKeyUserID, userID)
		c.Next()
	}
}

// OptionalAuth sets the user ID if a valid token is present, but does not block the request.
func OptionalAuth(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if userID, err := ValidateToken(db, extractToken(c)); err == nil && userID != "" {
			c.Set(ContextKeyUserID, userID)
		}
		c.Next()
	}
}

// RequireAdmin blocks requests from non-admin users. The role is read from the
// database on every request so a demoted admin loses access immediately.
func RequireAdmin(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := CurrentUserID(c)
		if userID == "" {
			response.Unauthorized(c)
			return
		}
		var role models.UserRole
		err := db.Model(&models.UserModel{}).
			Select("role").
			Where("id = ?", userID).
			Scan(&role).Error
		if err != nil || role != models.RoleAdmin {
			response.Forbidden(c)
			return
		}
		c.Next()
	}
}

// ValidateToken validates a JWT and returns the authenticated user id.
func ValidateToken(db *gorm.DB, rawToken string) (string, error) {
	token := NormalizeToken(rawToken)
	if token == "" {
		return "", errors.New("token is required")
	}

	claims, err := jwt.Parse(token)
	if err != nil {
		return "", err
	}

	var count int64
	if err := db.Model(&models.UserModel{}).Where("id = ?", claims.UserID).Count(&count).Error; err != nil {
		return "", err
	}
	if count == 0 {
		return "", errors.New("user no longer exists")
	}
	return claims.UserID, nil
}

// IsAdmin reports whether the authenticated caller currently holds the admin
// role. The role is always read fresh from the database.
func IsAdmin(db *gorm.DB, c *gin.Context) bool {
	userID := CurrentUserID(c)
	if userID == "" {
		return false
	}
	var role models.UserRole
	err := db.Model(&models.UserModel{}).
		Select("role").
		Where("id = ?", userID).
		Scan(&role).Error
	return err == nil && role == models.RoleAdmin
}

// CurrentUserID extracts the authenticated user ID from context.
func CurrentUserID(c *gin.Context) string {
	v, _ := c.Get(ContextKeyUserID)
	id, _ := v.(string)
	return id
}

// IsAuthenticated returns true if the request has a valid auth token.
func IsAuthenticated(c *gin.Context) bool {
	return CurrentUserID(c) != ""
}

func extractToken(c *gin.Context) string {
	auth := c.GetHeader("Authorization")
	if auth != "" {
		return NormalizeToken(auth)
	}
	return NormalizeToken(c.Query("token"))
}

// NormalizeToken trims spaces and strips optional Bearer prefix.
func NormalizeToken(raw string) string {
	token := strings.TrimSpace(raw)
	if token == "" {
		return ""
	}
	if strings.HasPrefix(strings.ToLower(token), "bearer ") {
		return strings.TrimSpace(token[7:])
	}
	return token
}
