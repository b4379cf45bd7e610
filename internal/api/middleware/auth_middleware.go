package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"careerbridge/internal/auth"
	"careerbridge/internal/database"
)

func abortUnauthorized(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
}

func abortForbidden(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": msg})
}

// AuthMiddleware validates the access token and injects userID and userType
// into the request context.
func AuthMiddleware(authService *auth.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			abortUnauthorized(c)
			return
		}

		parts := strings.Fields(header)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			abortUnauthorized(c)
			return
		}

		rawToken := parts[1]
		if strings.TrimSpace(rawToken) == "" {
			abortUnauthorized(c)
			return
		}

		claims, err := authService.ValidateToken(rawToken)
		if err != nil || claims.TokenType != "access" {
			abortUnauthorized(c)
			return
		}

		c.Set("userID", claims.UserID)
		c.Set("userType", claims.UserType)
		c.Next()
	}
}

// RequireStudent allows only student accounts past this point.
func RequireStudent() gin.HandlerFunc {
	return requireUserType(database.ActorStudent, "student account required")
}

// RequireRecruiter allows only recruiter accounts past this point.
func RequireRecruiter() gin.HandlerFunc {
	return requireUserType(database.ActorRecruiter, "recruiter account required")
}

func requireUserType(want, msg string) gin.HandlerFunc {
	return func(c *gin.Context) {
		value, ok := c.Get("userType")
		if !ok || value != want {
			abortForbidden(c, msg)
			return
		}
		c.Next()
	}
}

// RequireAdmin checks the admin flag on the actor's account row. The flag
// lives in the database, not the token, so a revocation takes effect on the
// next request.
func RequireAdmin(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		idValue, okID := c.Get("userID")
		typeValue, okType := c.Get("userType")
		if !okID || !okType {
			abortUnauthorized(c)
			return
		}
		userID, ok := idValue.(uint)
		if !ok {
			abortUnauthorized(c)
			return
		}

		ctx := c.Request.Context()
		isAdmin := false
		switch typeValue {
		case database.ActorStudent:
			var student database.Student
			if err := db.WithContext(ctx).Select("is_admin").First(&student, userID).Error; err == nil {
				isAdmin = student.IsAdmin
			}
		case database.ActorRecruiter:
			var recruiter database.Recruiter
			if err := db.WithContext(ctx).Select("is_admin").First(&recruiter, userID).Error; err == nil {
				isAdmin = recruiter.IsAdmin
			}
		}
		if !isAdmin {
			abortForbidden(c, "admin access required")
			return
		}
		c.Next()
	}
}
