package api

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"careerbridge/internal/api/middleware"
	"careerbridge/internal/database"
)

// NotificationHandler serves the in-portal notification feed.
type NotificationHandler struct {
	db     *gorm.DB
	logger *slog.Logger
}

// NewNotificationHandler constructs the notification handler.
func NewNotificationHandler(db *gorm.DB, logger *slog.Logger) *NotificationHandler {
	return &NotificationHandler{db: db, logger: logger}
}

// List returns the actor's notifications newest first and marks them all read.
// Fetching the list is the act of reading it.
func (h *NotificationHandler) List(c *gin.Context) {
	userID, userType, ok := actorFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}
	ctx := c.Request.Context()
	logger := middleware.LoggerFromContext(c)

	var notifications []database.Notification
	if err := h.db.WithContext(ctx).
		Where("user_type = ? AND user_id = ?", userType, userID).
		Order("created_at DESC").
		Find(&notifications).Error; err != nil {
		logger.Error("list notifications failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	if err := h.db.WithContext(ctx).Model(&database.Notification{}).
		Where("user_type = ? AND user_id = ? AND read = ?", userType, userID, false).
		Update("read", true).Error; err != nil {
		logger.Warn("mark notifications read failed", slog.Any("error", err))
	}

	views := make([]gin.H, 0, len(notifications))
	for _, n := range notifications {
		views = append(views, gin.H{
			"id":         n.ID,
			"title":      n.Title,
			"message":    n.Message,
			"read":       n.Read,
			"created_at": n.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"notifications": views})
}

// UnreadCount returns the actor's unread notification count, polled by the
// navigation badge.
func (h *NotificationHandler) UnreadCount(c *gin.Context) {
	userID, userType, ok := actorFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}
	logger := middleware.LoggerFromContext(c)

	var count int64
	if err := h.db.WithContext(c.Request.Context()).Model(&database.Notification{}).
		Where("user_type = ? AND user_id = ? AND read = ?", userType, userID, false).
		Count(&count).Error; err != nil {
		logger.Error("count notifications failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}
	c.JSON(http.StatusOK, gin.H{"unread": count})
}
