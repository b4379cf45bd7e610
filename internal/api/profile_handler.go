package api

import (
	"errors"
	"fmt"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dutchcoders/go-clamd"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"careerbridge/internal/api/middleware"
	"careerbridge/internal/database"
	"careerbridge/internal/extract"
	"careerbridge/internal/storage"
)

const maxUploadBytes = 10 << 20

// ProfileHandler manages account profiles plus resume and photo uploads.
type ProfileHandler struct {
	db        *gorm.DB
	storage   *storage.Client
	logger    *slog.Logger
	clamdAddr string
}

// NewProfileHandler constructs the profile handler.
func NewProfileHandler(db *gorm.DB, storageClient *storage.Client, logger *slog.Logger, clamdAddr string) *ProfileHandler {
	return &ProfileHandler{
		db:        db,
		storage:   storageClient,
		logger:    logger,
		clamdAddr: clamdAddr,
	}
}

// GetProfile returns the caller's own profile.
func (h *ProfileHandler) GetProfile(c *gin.Context) {
	userID, userType, ok := actorFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}
	ctx := c.Request.Context()

	if isStudent(userType) {
		var student database.Student
		if err := h.db.WithContext(ctx).First(&student, userID).Error; err != nil {
			NotFound(c, "profile not found")
			return
		}
		c.JSON(http.StatusOK, studentProfileView(&student))
		return
	}

	var recruiter database.Recruiter
	if err := h.db.WithContext(ctx).First(&recruiter, userID).Error; err != nil {
		NotFound(c, "profile not found")
		return
	}
	c.JSON(http.StatusOK, recruiterProfileView(&recruiter))
}

type studentProfileRequest struct {
	FullName       string  `json:"full_name" binding:"required"`
	Phone          string  `json:"phone" binding:"required"`
	Branch         string  `json:"branch" binding:"required"`
	CGPA           float64 `json:"cgpa" binding:"required,gte=0,lte=10"`
	Degree         string  `json:"degree"`
	GraduationYear int     `json:"graduation_year"`
}

// UpdateStudentProfile saves the academic profile. A profile counts as
// complete once the apply-relevant fields and a resume are in place; only
// complete profiles may apply to jobs.
func (h *ProfileHandler) UpdateStudentProfile(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}
	var req studentProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	ctx := c.Request.Context()
	logger := middleware.LoggerFromContext(c)

	var student database.Student
	if err := h.db.WithContext(ctx).First(&student, userID).Error; err != nil {
		NotFound(c, "profile not found")
		return
	}

	student.FullName = strings.TrimSpace(req.FullName)
	student.Phone = strings.TrimSpace(req.Phone)
	student.Branch = strings.TrimSpace(req.Branch)
	student.CGPA = req.CGPA
	student.Degree = strings.TrimSpace(req.Degree)
	student.GraduationYear = req.GraduationYear
	student.ProfileComplete = studentProfileComplete(&student)

	if err := h.db.WithContext(ctx).Save(&student).Error; err != nil {
		logger.Error("save student profile failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}
	c.JSON(http.StatusOK, studentProfileView(&student))
}

type recruiterProfileRequest struct {
	FullName       string `json:"full_name" binding:"required"`
	Phone          string `json:"phone"`
	CompanyName    string `json:"company_name" binding:"required"`
	CompanyWebsite string `json:"company_website"`
	Designation    string `json:"designation"`
}

// UpdateRecruiterProfile saves the company-side profile.
func (h *ProfileHandler) UpdateRecruiterProfile(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}
	var req recruiterProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	ctx := c.Request.Context()
	logger := middleware.LoggerFromContext(c)

	var recruiter database.Recruiter
	if err := h.db.WithContext(ctx).First(&recruiter, userID).Error; err != nil {
		NotFound(c, "profile not found")
		return
	}

	recruiter.FullName = strings.TrimSpace(req.FullName)
	recruiter.Phone = strings.TrimSpace(req.Phone)
	recruiter.CompanyName = strings.TrimSpace(req.CompanyName)
	recruiter.CompanyWebsite = strings.TrimSpace(req.CompanyWebsite)
	recruiter.Designation = strings.TrimSpace(req.Designation)
	recruiter.ProfileComplete = recruiter.FullName != "" && recruiter.CompanyName != ""

	if err := h.db.WithContext(ctx).Save(&recruiter).Error; err != nil {
		logger.Error("save recruiter profile failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}
	c.JSON(http.StatusOK, recruiterProfileView(&recruiter))
}

// UploadResume scans and stores a student's resume file, replacing any
// previous one.
func (h *ProfileHandler) UploadResume(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	file, err := c.FormFile("file")
	if err != nil {
		BadRequest(c, "missing file")
		return
	}
	if file.Size > maxUploadBytes {
		BadRequest(c, "file too large")
		return
	}
	ext := extract.Extension(file.Filename)
	if !extract.Supported(ext) {
		BadRequest(c, "unsupported resume file type")
		return
	}

	ctx := c.Request.Context()
	logger := middleware.LoggerFromContext(c)

	var student database.Student
	if err := h.db.WithContext(ctx).First(&student, userID).Error; err != nil {
		NotFound(c, "profile not found")
		return
	}

	if !h.scanUpload(c, file) {
		return
	}

	objectKey := fmt.Sprintf("resumes/%d/%s.%s", userID, uuid.NewString(), ext)
	if !h.putUpload(c, file, objectKey) {
		return
	}

	oldKey := student.ResumeKey
	student.ResumeKey = objectKey
	student.ProfileComplete = studentProfileComplete(&student)
	if err := h.db.WithContext(ctx).Save(&student).Error; err != nil {
		logger.Error("save resume key failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}
	if oldKey != "" {
		if err := h.storage.DeleteObject(ctx, oldKey); err != nil {
			logger.Warn("delete replaced resume failed", slog.Any("error", err))
		}
	}

	c.JSON(http.StatusCreated, gin.H{"object_key": objectKey})
}

// UploadPhoto scans and stores a profile photo for either account type.
func (h *ProfileHandler) UploadPhoto(c *gin.Context) {
	userID, userType, ok := actorFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	file, err := c.FormFile("file")
	if err != nil {
		BadRequest(c, "missing file")
		return
	}
	if file.Size > maxUploadBytes {
		BadRequest(c, "file too large")
		return
	}

	ctx := c.Request.Context()
	logger := middleware.LoggerFromContext(c)

	if !h.scanUpload(c, file) {
		return
	}

	objectKey := fmt.Sprintf("photos/%s/%d/%s.png", userType, userID, uuid.NewString())
	if !h.putUpload(c, file, objectKey) {
		return
	}

	var saveErr error
	if isStudent(userType) {
		saveErr = h.db.WithContext(ctx).Model(&database.Student{}).
			Where("id = ?", userID).Update("photo_key", objectKey).Error
	} else {
		saveErr = h.db.WithContext(ctx).Model(&database.Recruiter{}).
			Where("id = ?", userID).Update("photo_key", objectKey).Error
	}
	if saveErr != nil {
		logger.Error("save photo key failed", slog.Any("error", saveErr))
		Internal(c, "internal error")
		return
	}

	c.JSON(http.StatusCreated, gin.H{"object_key": objectKey})
}

// ResumeLink returns a presigned download URL for a resume. Students get their
// own resume; recruiters get one only through an application to a job they
// own.
func (h *ProfileHandler) ResumeLink(c *gin.Context) {
	userID, userType, ok := actorFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}
	ctx := c.Request.Context()
	logger := middleware.LoggerFromContext(c)

	var resumeKey string
	if isStudent(userType) {
		var student database.Student
		if err := h.db.WithContext(ctx).First(&student, userID).Error; err != nil {
			NotFound(c, "profile not found")
			return
		}
		resumeKey = student.ResumeKey
	} else {
		appID, err := strconv.ParseUint(c.Query("application_id"), 10, 64)
		if err != nil {
			BadRequest(c, "application_id is required")
			return
		}
		key, err := h.resumeKeyForRecruiter(c, userID, uint(appID))
		if err != nil {
			return
		}
		resumeKey = key
	}

	if resumeKey == "" {
		NotFound(c, "no resume on file")
		return
	}
	url, err := h.storage.GeneratePresignedURL(ctx, resumeKey, 10*time.Minute)
	if err != nil {
		logger.Error("presign resume failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": url, "expires_in": int((10 * time.Minute).Seconds())})
}

func (h *ProfileHandler) resumeKeyForRecruiter(c *gin.Context, recruiterID, applicationID uint) (string, error) {
	ctx := c.Request.Context()

	var app database.Application
	if err := h.db.WithContext(ctx).First(&app, applicationID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			NotFound(c, "application not found")
		} else {
			Internal(c, "internal error")
		}
		return "", err
	}
	var job database.Job
	if err := h.db.WithContext(ctx).First(&job, app.JobID).Error; err != nil {
		Internal(c, "internal error")
		return "", err
	}
	if job.RecruiterID != recruiterID {
		Forbidden(c, "not your job posting")
		return "", errors.New("not owner")
	}
	var student database.Student
	if err := h.db.WithContext(ctx).First(&student, app.StudentID).Error; err != nil {
		NotFound(c, "student not found")
		return "", err
	}
	return student.ResumeKey, nil
}

// scanUpload streams the file through clamd. A detected threat or scanner
// failure rejects the upload; the response is already written on false.
func (h *ProfileHandler) scanUpload(c *gin.Context, file *multipart.FileHeader) bool {
	logger := middleware.LoggerFromContext(c)

	fileReader, err := file.Open()
	if err != nil {
		Internal(c, "failed to open file")
		return false
	}

	clamdClient := clamd.NewClamd(h.clamdAddr)
	abortChan := make(chan bool)
	scanChan, err := clamdClient.ScanStream(fileReader, abortChan)
	fileReader.Close()
	if err != nil {
		logger.Error("scan file", slog.Any("error", err))
		Internal(c, "failed to scan file")
		return false
	}
	defer close(abortChan)

	for result := range scanChan {
		if result.Status != clamd.RES_OK {
			BadRequest(c, "malicious file detected")
			return false
		}
	}
	return true
}

func (h *ProfileHandler) putUpload(c *gin.Context, file *multipart.FileHeader, objectKey string) bool {
	logger := middleware.LoggerFromContext(c)

	fileReader, err := file.Open()
	if err != nil {
		Internal(c, "failed to reopen file")
		return false
	}
	defer fileReader.Close()

	contentType := file.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	if _, err := h.storage.UploadFile(c.Request.Context(), objectKey, fileReader, file.Size, contentType); err != nil {
		logger.Error("upload file", slog.Any("error", err))
		Internal(c, "failed to upload file")
		return false
	}
	return true
}

func studentProfileComplete(s *database.Student) bool {
	return s.FullName != "" && s.Phone != "" && s.Branch != "" && s.CGPA > 0 && s.ResumeKey != ""
}

func studentProfileView(s *database.Student) gin.H {
	return gin.H{
		"id":               s.ID,
		"username":         s.Username,
		"email":            s.Email,
		"full_name":        s.FullName,
		"phone":            s.Phone,
		"branch":           s.Branch,
		"cgpa":             s.CGPA,
		"degree":           s.Degree,
		"graduation_year":  s.GraduationYear,
		"has_resume":       s.ResumeKey != "",
		"profile_complete": s.ProfileComplete,
		"is_admin":         s.IsAdmin,
		"last_login":       s.LastLogin,
	}
}

func recruiterProfileView(r *database.Recruiter) gin.H {
	return gin.H{
		"id":               r.ID,
		"username":         r.Username,
		"email":            r.Email,
		"full_name":        r.FullName,
		"phone":            r.Phone,
		"company_name":     r.CompanyName,
		"company_website":  r.CompanyWebsite,
		"designation":      r.Designation,
		"profile_complete": r.ProfileComplete,
		"is_admin":         r.IsAdmin,
		"last_login":       r.LastLogin,
	}
}
