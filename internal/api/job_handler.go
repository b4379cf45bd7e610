package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"careerbridge/internal/api/middleware"
	"careerbridge/internal/database"
	"careerbridge/internal/placement"
)

// JobHandler serves job postings: browsing for students, CRUD for recruiters.
type JobHandler struct {
	db     *gorm.DB
	svc    *placement.Service
	logger *slog.Logger
}

// NewJobHandler constructs the job handler.
func NewJobHandler(db *gorm.DB, svc *placement.Service, logger *slog.Logger) *JobHandler {
	return &JobHandler{db: db, svc: svc, logger: logger}
}

type jobRequest struct {
	Title               string   `json:"title" binding:"required"`
	Description         string   `json:"description" binding:"required"`
	Location            string   `json:"location"`
	JobType             string   `json:"job_type"`
	SalaryRange         string   `json:"salary_range"`
	MinCGPA             float64  `json:"min_cgpa" binding:"gte=0,lte=10"`
	EligibleBranches    []string `json:"eligible_branches"`
	ApplicationDeadline string   `json:"application_deadline"`
}

func (r jobRequest) deadline() (time.Time, error) {
	if r.ApplicationDeadline == "" {
		return time.Time{}, nil
	}
	return time.Parse("2006-01-02", r.ApplicationDeadline)
}

// CreateJob publishes a new posting owned by the calling recruiter. The
// company name is stamped from the recruiter's profile.
func (h *JobHandler) CreateJob(c *gin.Context) {
	recruiterID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}
	var req jobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}
	deadline, err := req.deadline()
	if err != nil {
		BadRequest(c, "application_deadline must be YYYY-MM-DD")
		return
	}

	ctx := c.Request.Context()
	logger := middleware.LoggerFromContext(c)

	var recruiter database.Recruiter
	if err := h.db.WithContext(ctx).First(&recruiter, recruiterID).Error; err != nil {
		NotFound(c, "recruiter not found")
		return
	}

	job := database.Job{
		RecruiterID:         recruiterID,
		Title:               strings.TrimSpace(req.Title),
		Description:         req.Description,
		CompanyName:         recruiter.CompanyName,
		Location:            req.Location,
		JobType:             req.JobType,
		SalaryRange:         req.SalaryRange,
		MinCGPA:             req.MinCGPA,
		EligibleBranches:    datatypes.JSONSlice[string](req.EligibleBranches),
		ApplicationDeadline: deadline,
	}
	if err := h.db.WithContext(ctx).Create(&job).Error; err != nil {
		logger.Error("create job failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	logger.Info("job created", slog.Uint64("job_id", uint64(job.ID)))
	c.JSON(http.StatusCreated, jobView(&job, nil))
}

// UpdateJob edits a posting the recruiter owns.
func (h *JobHandler) UpdateJob(c *gin.Context) {
	recruiterID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}
	jobID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req jobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}
	deadline, err := req.deadline()
	if err != nil {
		BadRequest(c, "application_deadline must be YYYY-MM-DD")
		return
	}

	ctx := c.Request.Context()
	logger := middleware.LoggerFromContext(c)

	job, ok := h.ownedJob(c, recruiterID, jobID)
	if !ok {
		return
	}

	job.Title = strings.TrimSpace(req.Title)
	job.Description = req.Description
	job.Location = req.Location
	job.JobType = req.JobType
	job.SalaryRange = req.SalaryRange
	job.MinCGPA = req.MinCGPA
	job.EligibleBranches = datatypes.JSONSlice[string](req.EligibleBranches)
	job.ApplicationDeadline = deadline

	if err := h.db.WithContext(ctx).Save(job).Error; err != nil {
		logger.Error("update job failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}
	c.JSON(http.StatusOK, jobView(job, nil))
}

// DeleteJob removes a posting the recruiter owns, along with its applications
// through the cascade.
func (h *JobHandler) DeleteJob(c *gin.Context) {
	recruiterID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}
	jobID, ok := pathID(c, "id")
	if !ok {
		return
	}

	ctx := c.Request.Context()
	logger := middleware.LoggerFromContext(c)

	job, ok := h.ownedJob(c, recruiterID, jobID)
	if !ok {
		return
	}

	if err := h.db.WithContext(ctx).Delete(job).Error; err != nil {
		logger.Error("delete job failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}
	logger.Info("job deleted", slog.Uint64("job_id", uint64(job.ID)))
	c.Status(http.StatusNoContent)
}

// BrowseJobs lists open postings with optional filters. Student callers get
// an eligibility flag computed against their profile.
func (h *JobHandler) BrowseJobs(c *gin.Context) {
	userID, userType, ok := actorFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}
	ctx := c.Request.Context()
	logger := middleware.LoggerFromContext(c)

	q := h.db.WithContext(ctx).Model(&database.Job{}).Order("created_at DESC")
	if company := c.Query("company"); company != "" {
		q = q.Where("company_name ILIKE ?", "%"+company+"%")
	}
	if location := c.Query("location"); location != "" {
		q = q.Where("location ILIKE ?", "%"+location+"%")
	}
	if jobType := c.Query("job_type"); jobType != "" {
		q = q.Where("job_type = ?", jobType)
	}
	if search := c.Query("search"); search != "" {
		q = q.Where("title ILIKE ? OR description ILIKE ?", "%"+search+"%", "%"+search+"%")
	}

	var jobs []database.Job
	if err := q.Find(&jobs).Error; err != nil {
		logger.Error("list jobs failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	var student *database.Student
	if isStudent(userType) {
		var s database.Student
		if err := h.db.WithContext(ctx).First(&s, userID).Error; err == nil {
			student = &s
		}
	}

	views := make([]gin.H, 0, len(jobs))
	for i := range jobs {
		views = append(views, jobView(&jobs[i], student))
	}
	c.JSON(http.StatusOK, gin.H{"jobs": views})
}

// GetJob returns one posting.
func (h *JobHandler) GetJob(c *gin.Context) {
	userID, userType, ok := actorFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}
	jobID, ok := pathID(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()

	var job database.Job
	if err := h.db.WithContext(ctx).First(&job, jobID).Error; err != nil {
		NotFound(c, "job not found")
		return
	}

	var student *database.Student
	if isStudent(userType) {
		var s database.Student
		if err := h.db.WithContext(ctx).First(&s, userID).Error; err == nil {
			student = &s
		}
	}
	c.JSON(http.StatusOK, jobView(&job, student))
}

// MyListings returns the recruiter's postings with application counts.
func (h *JobHandler) MyListings(c *gin.Context) {
	recruiterID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}
	ctx := c.Request.Context()
	logger := middleware.LoggerFromContext(c)

	var jobs []database.Job
	if err := h.db.WithContext(ctx).
		Where("recruiter_id = ?", recruiterID).
		Order("created_at DESC").
		Find(&jobs).Error; err != nil {
		logger.Error("list my jobs failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	views := make([]gin.H, 0, len(jobs))
	for i := range jobs {
		var count int64
		if err := h.db.WithContext(ctx).Model(&database.Application{}).
			Where("job_id = ?", jobs[i].ID).Count(&count).Error; err != nil {
			logger.Error("count applications failed", slog.Any("error", err))
			Internal(c, "internal error")
			return
		}
		view := jobView(&jobs[i], nil)
		view["application_count"] = count
		views = append(views, view)
	}
	c.JSON(http.StatusOK, gin.H{"jobs": views})
}

// Apply submits the calling student's application for a job.
func (h *JobHandler) Apply(c *gin.Context) {
	studentID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}
	jobID, ok := pathID(c, "id")
	if !ok {
		return
	}

	logger := middleware.LoggerFromContext(c)
	app, err := h.svc.Apply(c.Request.Context(), studentID, jobID)
	if err != nil {
		serviceError(c, logger, err)
		return
	}

	logger.Info("application submitted",
		slog.Uint64("application_id", uint64(app.ID)),
		slog.Uint64("job_id", uint64(jobID)))
	c.JSON(http.StatusCreated, applicationView(app))
}

// MyApplications lists the calling student's applications.
func (h *JobHandler) MyApplications(c *gin.Context) {
	studentID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}
	logger := middleware.LoggerFromContext(c)

	apps, err := h.svc.StudentApplications(c.Request.Context(), studentID)
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

func (h *JobHandler) ownedJob(c *gin.Context, recruiterID, jobID uint) (*database.Job, bool) {
	var job database.Job
	err := h.db.WithContext(c.Request.Context()).First(&job, jobID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			NotFound(c, "job not found")
		} else {
			Internal(c, "internal error")
		}
		return nil, false
	}
	if job.RecruiterID != recruiterID {
		Forbidden(c, "not your job posting")
		return nil, false
	}
	return &job, true
}

func pathID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		BadRequest(c, "invalid id")
		return 0, false
	}
	return uint(id), true
}

func jobView(job *database.Job, student *database.Student) gin.H {
	view := gin.H{
		"id":                   job.ID,
		"recruiter_id":         job.RecruiterID,
		"title":                job.Title,
		"description":          job.Description,
		"company_name":         job.CompanyName,
		"location":             job.Location,
		"job_type":             job.JobType,
		"salary_range":         job.SalaryRange,
		"min_cgpa":             job.MinCGPA,
		"eligible_branches":    []string(job.EligibleBranches),
		"application_deadline": job.ApplicationDeadline,
		"created_at":           job.CreatedAt,
	}
	if student != nil {
		view["eligible"] = placement.IsEligible(student, job)
	}
	return view
}

func applicationView(app *database.Application) gin.H {
	return gin.H{
		"id":                app.ID,
		"job_id":            app.JobID,
		"student_id":        app.StudentID,
		"status":            app.Status,
		"status_updated_at": app.StatusUpdatedAt,
		"student_name":      app.StudentName,
		"student_email":     app.StudentEmail,
		"student_phone":     app.StudentPhone,
		"student_branch":    app.StudentBranch,
		"student_cgpa":      app.StudentCGPA,
		"job_title":         app.JobTitle,
		"company_name":      app.CompanyName,
		"applied_at":        app.CreatedAt,
	}
}
