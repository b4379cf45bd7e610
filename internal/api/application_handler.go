package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"careerbridge/internal/api/middleware"
	"careerbridge/internal/database"
	"careerbridge/internal/placement"
)

// ApplicationHandler drives the recruiter side of the application lifecycle
// and the interview views shared by both account types.
type ApplicationHandler struct {
	db     *gorm.DB
	svc    *placement.Service
	logger *slog.Logger
}

// NewApplicationHandler constructs the application handler.
func NewApplicationHandler(db *gorm.DB, svc *placement.Service, logger *slog.Logger) *ApplicationHandler {
	return &ApplicationHandler{db: db, svc: svc, logger: logger}
}

// ListForJob returns all applications for a job the recruiter owns.
func (h *ApplicationHandler) ListForJob(c *gin.Context) {
	recruiterID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}
	jobID, ok := pathID(c, "id")
	if !ok {
		return
	}
	logger := middleware.LoggerFromContext(c)

	apps, err := h.svc.ApplicationsForJob(c.Request.Context(), recruiterID, jobID)
	if err != nil {
		serviceError(c, logger, err)
		return
	}

	views := make([]gin.H, 0, len(apps))
	for i := range apps {
		views = append(views, applicationView(&apps[i]))
	}
	c.JSON(http.StatusOK, gin.H{"applications": views})
}

// GetApplication returns one application after the ownership check.
func (h *ApplicationHandler) GetApplication(c *gin.Context) {
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
	c.JSON(http.StatusOK, applicationView(app))
}

type updateStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// UpdateStatus moves an application to a new lifecycle state. Shortlisted and
// Selected additionally trigger a best-effort SMS; the response says whether
// it went out.
func (h *ApplicationHandler) UpdateStatus(c *gin.Context) {
	recruiterID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}
	appID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req updateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}
	logger := middleware.LoggerFromContext(c)

	status, err := placement.ParseStatus(req.Status)
	if err != nil {
		serviceError(c, logger, err)
		return
	}

	res, err := h.svc.UpdateStatus(c.Request.Context(), recruiterID, appID, status)
	if err != nil {
		serviceError(c, logger, err)
		return
	}

	logger.Info("application status updated",
		slog.Uint64("application_id", uint64(appID)),
		slog.String("status", status.String()))
	c.JSON(http.StatusOK, transitionResponse(gin.H{"status": status.String()}, res))
}

type interviewRequest struct {
	Date     string `json:"date" binding:"required"`
	Time     string `json:"time" binding:"required"`
	Location string `json:"location" binding:"required"`
	Type     string `json:"type" binding:"required"`
	Details  string `json:"details"`
}

func (r interviewRequest) toServiceRequest() (placement.InterviewRequest, error) {
	at, err := time.ParseInLocation("2006-01-02 15:04", r.Date+" "+r.Time, time.Local)
	if err != nil {
		return placement.InterviewRequest{}, err
	}
	return placement.InterviewRequest{
		ScheduledAt: at,
		Location:    r.Location,
		Type:        r.Type,
		Details:     r.Details,
	}, nil
}

// ScheduleInterview creates an interview and moves the application to the
// Interview Scheduled state.
func (h *ApplicationHandler) ScheduleInterview(c *gin.Context) {
	recruiterID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}
	appID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req interviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}
	svcReq, err := req.toServiceRequest()
	if err != nil {
		BadRequest(c, "date must be YYYY-MM-DD and time HH:MM")
		return
	}
	logger := middleware.LoggerFromContext(c)

	iv, res, err := h.svc.ScheduleInterview(c.Request.Context(), recruiterID, appID, svcReq)
	if err != nil {
		serviceError(c, logger, err)
		return
	}

	logger.Info("interview scheduled",
		slog.Uint64("interview_id", uint64(iv.ID)),
		slog.Uint64("application_id", uint64(appID)))
	c.JSON(http.StatusCreated, transitionResponse(interviewView(iv), res))
}

// CreateInterview adds a further round for an already-selected candidate
// without changing the application status.
func (h *ApplicationHandler) CreateInterview(c *gin.Context) {
	recruiterID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}
	appID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req interviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}
	svcReq, err := req.toServiceRequest()
	if err != nil {
		BadRequest(c, "date must be YYYY-MM-DD and time HH:MM")
		return
	}
	logger := middleware.LoggerFromContext(c)

	iv, res, err := h.svc.CreateInterview(c.Request.Context(), recruiterID, appID, svcReq)
	if err != nil {
		serviceError(c, logger, err)
		return
	}

	logger.Info("interview created",
		slog.Uint64("interview_id", uint64(iv.ID)),
		slog.Uint64("application_id", uint64(appID)))
	c.JSON(http.StatusCreated, transitionResponse(interviewView(iv), res))
}

// ListInterviews returns the actor's interviews, soonest first.
func (h *ApplicationHandler) ListInterviews(c *gin.Context) {
	userID, userType, ok := actorFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}
	logger := middleware.LoggerFromContext(c)

	interviews, err := h.svc.InterviewsForActor(c.Request.Context(), userType, userID)
	if err != nil {
		serviceError(c, logger, err)
		return
	}

	views := make([]gin.H, 0, len(interviews))
	for i := range interviews {
		views = append(views, interviewView(&interviews[i]))
	}
	c.JSON(http.StatusOK, gin.H{"interviews": views})
}

// GetInterview returns one interview visible to the actor.
func (h *ApplicationHandler) GetInterview(c *gin.Context) {
	userID, userType, ok := actorFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}
	interviewID, ok := pathID(c, "id")
	if !ok {
		return
	}
	logger := middleware.LoggerFromContext(c)

	iv, err := h.svc.InterviewForActor(c.Request.Context(), userType, userID, interviewID)
	if err != nil {
		serviceError(c, logger, err)
		return
	}
	c.JSON(http.StatusOK, interviewView(iv))
}

type recordResultRequest struct {
	Result   string `json:"result" binding:"required,oneof=Pass Fail"`
	Feedback string `json:"feedback"`
}

// RecordResult completes a scheduled interview. Pass selects the candidate,
// Fail rejects them.
func (h *ApplicationHandler) RecordResult(c *gin.Context) {
	recruiterID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}
	interviewID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req recordResultRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}
	logger := middleware.LoggerFromContext(c)

	res, err := h.svc.RecordResult(c.Request.Context(), recruiterID, interviewID, req.Result, req.Feedback)
	if err != nil {
		serviceError(c, logger, err)
		return
	}

	logger.Info("interview result recorded",
		slog.Uint64("interview_id", uint64(interviewID)),
		slog.String("result", req.Result))
	c.JSON(http.StatusOK, transitionResponse(gin.H{"result": req.Result}, res))
}

// transitionResponse attaches SMS delivery info to a transition's response
// body so the UI can show a warning when the text did not go out.
func transitionResponse(body gin.H, res *placement.TransitionResult) gin.H {
	if res != nil && res.SMSAttempted {
		body["sms_sent"] = res.SMSSent
		if !res.SMSSent {
			body["warning"] = "status updated but SMS notification could not be sent"
		}
	}
	return body
}

func interviewView(iv *database.Interview) gin.H {
	return gin.H{
		"id":             iv.ID,
		"application_id": iv.ApplicationID,
		"job_id":         iv.JobID,
		"student_id":     iv.StudentID,
		"recruiter_id":   iv.RecruiterID,
		"scheduled_at":   iv.ScheduledAt,
		"location":       iv.Location,
		"type":           iv.Type,
		"details":        iv.Details,
		"status":         iv.Status,
		"result":         iv.Result,
		"feedback":       iv.Feedback,
		"completed_at":   iv.CompletedAt,
	}
}
