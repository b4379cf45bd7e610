package api

import (
	"github.com/gin-gonic/gin"

	"careerbridge/internal/database"
)

// Context keys populated by the auth middleware.
const (
	ctxUserIDKey   = "userID"
	ctxUserTypeKey = "userType"
)

func userIDFromContext(c *gin.Context) (uint, bool) {
	value, ok := c.Get(ctxUserIDKey)
	if !ok {
		return 0, false
	}
	id, ok := value.(uint)
	return id, ok
}

func userTypeFromContext(c *gin.Context) (string, bool) {
	value, ok := c.Get(ctxUserTypeKey)
	if !ok {
		return "", false
	}
	t, ok := value.(string)
	return t, ok
}

// actorFromContext returns the authenticated actor's row ID and account table.
func actorFromContext(c *gin.Context) (uint, string, bool) {
	id, ok := userIDFromContext(c)
	if !ok {
		return 0, "", false
	}
	userType, ok := userTypeFromContext(c)
	if !ok {
		return 0, "", false
	}
	return id, userType, true
}

func isStudent(userType string) bool   { return userType == database.ActorStudent }
func isRecruiter(userType string) bool { return userType == database.ActorRecruiter }
