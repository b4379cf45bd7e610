package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"careerbridge/internal/api/middleware"
	"careerbridge/internal/placement"
	"careerbridge/internal/tasks"
	"careerbridge/internal/worker"
)

// SummaryHandler requests and serves AI resume summaries. Generation is
// asynchronous: a request enqueues a background task and the result lands in
// the redis cache, announced over the recruiter's WebSocket feed.
type SummaryHandler struct {
	svc         *placement.Service
	asynqClient *asynq.Client
	redis       redis.UniversalClient
	logger      *slog.Logger
}

// NewSummaryHandler constructs the summary handler.
func NewSummaryHandler(svc *placement.Service, asynqClient *asynq.Client, redisClient redis.UniversalClient, logger *slog.Logger) *SummaryHandler {
	return &SummaryHandler{
		svc:         svc,
		asynqClient: asynqClient,
		redis:       redisClient,
		logger:      logger,
	}
}

// RequestSummary enqueues summary generation for an application on a job the
// recruiter owns.
func (h *SummaryHandler) RequestSummary(c *gin.Context) {
	recruiterID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}
	appID, ok := pathID(c, "id")
	if !ok {
		return
	}
	logger := middleware.LoggerFromContext(c)

	app, err := h.svc.ApplicationForRecruiter(c.Request.Context(), recruiterID, appID)
	if err != nil {
		serviceError(c, logger, err)
		return
	}

	correlationID := middleware.GetCorrelationID(c)
	task, err := tasks.NewResumeSummaryTask(app.ID, correlationID)
	if err != nil {
		logger.Error("build summary task failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}
	info, err := h.asynqClient.EnqueueContext(c.Request.Context(), task)
	if err != nil {
		logger.Error("enqueue summary task failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	logger.Info("summary task enqueued",
		slog.Uint64("application_id", uint64(app.ID)),
		slog.String("task_id", info.ID))
	c.JSON(http.StatusAccepted, gin.H{
		"application_id": app.ID,
		"task_id":        info.ID,
		"correlation_id": correlationID,
	})
}

// GetSummary serves a cached summary, or 202 while generation is pending.
func (h *SummaryHandler) GetSummary(c *gin.Context) {
	recruiterID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}
	appID, ok := pathID(c, "id")
	if !ok {
		return
	}
	logger := middleware.LoggerFromContext(c)

	app, err := h.svc.ApplicationForRecruiter(c.Request.Context(), recruiterID, appID)
	if err != nil {
		serviceError(c, logger, err)
		return
	}

	cached, err := h.redis.Get(c.Request.Context(), worker.SummaryCacheKey(app.ID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			c.JSON(http.StatusAccepted, gin.H{"status": "pending"})
			return
		}
		logger.Error("summary cache lookup failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	var summary json.RawMessage = cached
	c.JSON(http.StatusOK, gin.H{"status": "ready", "summary": summary})
}
