package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"careerbridge/internal/ai"
	"careerbridge/internal/database"
	"careerbridge/internal/errcode"
	"careerbridge/internal/extract"
	"careerbridge/internal/notify"
	"careerbridge/internal/storage"
	"careerbridge/internal/tasks"
)

// SummaryCacheKey names the redis key holding a generated summary.
func SummaryCacheKey(applicationID uint) string {
	return fmt.Sprintf("summary:application:%d", applicationID)
}

// SummaryCacheTTL bounds how long a generated summary is served before the
// worker has to regenerate it.
const SummaryCacheTTL = 24 * time.Hour

// Summarizer is the slice of the AI client the handler needs.
type Summarizer interface {
	Summarize(ctx context.Context, resumeText, jobTitle, jobDescription string) (*ai.Summary, error)
}

// ObjectStore is the slice of the storage client the handler needs.
type ObjectStore interface {
	GetObject(ctx context.Context, objectKey string) (ObjectReader, error)
}

// ObjectReader is what GetObject hands back: a readable, closable stream.
type ObjectReader interface {
	Read(p []byte) (int, error)
	Close() error
}

// minioStore adapts storage.Client to ObjectStore.
type minioStore struct{ client *storage.Client }

func (s minioStore) GetObject(ctx context.Context, objectKey string) (ObjectReader, error) {
	return s.client.GetObject(ctx, objectKey)
}

// NewObjectStore wraps the MinIO client for the summary handler.
func NewObjectStore(client *storage.Client) ObjectStore {
	return minioStore{client: client}
}

// SummaryTaskHandler consumes resume-summary tasks: fetch the resume, extract
// text, ask Gemini, cache the result, and notify the recruiter feed.
type SummaryTaskHandler struct {
	db         *gorm.DB
	store      ObjectStore
	redis      redis.UniversalClient
	summarizer Summarizer
	logger     *slog.Logger
}

// NewSummaryTaskHandler builds the handler.
func NewSummaryTaskHandler(db *gorm.DB, store ObjectStore, redisClient redis.UniversalClient, summarizer Summarizer, logger *slog.Logger) *SummaryTaskHandler {
	return &SummaryTaskHandler{
		db:         db,
		store:      store,
		redis:      redisClient,
		summarizer: summarizer,
		logger:     logger,
	}
}

// ProcessTask implements asynq.Handler.
func (h *SummaryTaskHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload tasks.ResumeSummaryPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}

	log := h.logger.With(
		slog.Uint64("application_id", uint64(payload.ApplicationID)),
		slog.String("correlation_id", payload.CorrelationID),
	)

	var app database.Application
	if err := h.db.WithContext(ctx).First(&app, payload.ApplicationID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Warn("summary task for missing application, dropping")
			return nil
		}
		return fmt.Errorf("load application: %w", err)
	}

	var job database.Job
	if err := h.db.WithContext(ctx).First(&job, app.JobID).Error; err != nil {
		return fmt.Errorf("load job: %w", err)
	}
	var student database.Student
	if err := h.db.WithContext(ctx).First(&student, app.StudentID).Error; err != nil {
		return fmt.Errorf("load student: %w", err)
	}

	if student.ResumeKey == "" {
		log.Warn("student has no resume on file")
		h.publishResult(ctx, job.RecruiterID, payload, errcode.ResumeMissing, "resume not found")
		return nil
	}

	text, err := h.extractResumeText(ctx, student.ResumeKey)
	if err != nil {
		// Extraction problems degrade: the summarizer renders the
		// "no content" placeholder instead of the task failing forever.
		log.Warn("resume text extraction failed", slog.Any("error", err))
		text = ""
	}

	summary, sumErr := h.summarizer.Summarize(ctx, text, job.Title, job.Description)
	if sumErr != nil {
		log.Warn("summary degraded", slog.Any("error", sumErr))
	}

	cached, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("marshal summary: %w", err)
	}
	if err := h.redis.Set(ctx, SummaryCacheKey(app.ID), cached, SummaryCacheTTL).Err(); err != nil {
		return fmt.Errorf("cache summary: %w", err)
	}

	code := errcode.OK
	if sumErr != nil {
		code = errcode.SummaryDegraded
	}
	h.publishResult(ctx, job.RecruiterID, payload, code, "")
	log.Info("resume summary ready")
	return nil
}

func (h *SummaryTaskHandler) extractResumeText(ctx context.Context, resumeKey string) (string, error) {
	ext := extract.Extension(resumeKey)
	if !extract.Supported(ext) {
		return "", fmt.Errorf("unsupported resume type %q", ext)
	}
	obj, err := h.store.GetObject(ctx, resumeKey)
	if err != nil {
		return "", fmt.Errorf("fetch resume: %w", err)
	}
	defer obj.Close()
	return extract.Text(obj, ext)
}

func (h *SummaryTaskHandler) publishResult(ctx context.Context, recruiterID uint, payload tasks.ResumeSummaryPayload, code int, errMsg string) {
	status := "completed"
	if code != errcode.OK {
		status = "degraded"
	}
	msg, err := json.Marshal(SummaryNotifyMessage{
		Status:        status,
		ApplicationID: payload.ApplicationID,
		CorrelationID: payload.CorrelationID,
		ErrorCode:     code,
		ErrorMessage:  errMsg,
	})
	if err != nil {
		h.logger.Error("marshal summary notify message", slog.Any("error", err))
		return
	}
	channel := notify.ChannelFor(database.ActorRecruiter, recruiterID)
	if err := h.redis.Publish(ctx, channel, msg).Err(); err != nil {
		h.logger.Warn("publish summary result failed", slog.Any("error", err))
	}
}
