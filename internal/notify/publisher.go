package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"careerbridge/internal/database"
)

// ChannelFor names the redis pub/sub channel carrying a user's live
// notification feed.
func ChannelFor(userType string, userID uint) string {
	return fmt.Sprintf("notify:%s:%d", userType, userID)
}

// Event is the wire format forwarded to WebSocket clients. Field names are
// part of the frontend contract.
type Event struct {
	NotificationID uint      `json:"notification_id"`
	Title          string    `json:"title"`
	Message        string    `json:"message"`
	CreatedAt      time.Time `json:"created_at"`
}

// Publisher fans committed notifications out over redis pub/sub.
type Publisher struct {
	redis  redis.UniversalClient
	logger *slog.Logger
}

// NewPublisher constructs the pub/sub publisher.
func NewPublisher(redisClient redis.UniversalClient, logger *slog.Logger) *Publisher {
	return &Publisher{redis: redisClient, logger: logger}
}

// PublishNotification pushes a notification event. Best-effort: a pub/sub
// failure only logs, the notification row is already durable.
func (p *Publisher) PublishNotification(ctx context.Context, n *database.Notification) {
	payload, err := json.Marshal(Event{
		NotificationID: n.ID,
		Title:          n.Title,
		Message:        n.Message,
		CreatedAt:      n.CreatedAt,
	})
	if err != nil {
		p.logger.Error("marshal notification event", slog.Any("error", err))
		return
	}
	channel := ChannelFor(n.UserType, n.UserID)
	if err := p.redis.Publish(ctx, channel, payload).Err(); err != nil {
		p.logger.Warn("publish notification event failed",
			slog.String("channel", channel), slog.Any("error", err))
	}
}
