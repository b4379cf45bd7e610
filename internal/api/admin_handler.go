package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"careerbridge/internal/api/middleware"
	"careerbridge/internal/auditlog"
	"careerbridge/internal/database"
)

// AdminHandler serves the back office: dashboard stats, user management,
// admin flag changes and the audit log view. Every route behind it already
// passed the RequireAdmin middleware.
type AdminHandler struct {
	db     *gorm.DB
	audit  *auditlog.Trail
	logger *slog.Logger
}

// NewAdminHandler constructs the admin handler.
func NewAdminHandler(db *gorm.DB, audit *auditlog.Trail, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{db: db, audit: audit, logger: logger}
}

// Dashboard returns portal-wide counts and the application status breakdown.
func (h *AdminHandler) Dashboard(c *gin.Context) {
	ctx := c.Request.Context()
	logger := middleware.LoggerFromContext(c)

	counts := map[string]int64{}
	for name, model := range map[string]interface{}{
		"students":     &database.Student{},
		"recruiters":   &database.Recruiter{},
		"jobs":         &database.Job{},
		"applications": &database.Application{},
		"interviews":   &database.Interview{},
	} {
		var n int64
		if err := h.db.WithContext(ctx).Model(model).Count(&n).Error; err != nil {
			logger.Error("dashboard count failed", slog.String("entity", name), slog.Any("error", err))
			Internal(c, "internal error")
			return
		}
		counts[name] = n
	}

	type statusCount struct {
		Status string `json:"status"`
		Count  int64  `json:"count"`
	}
	var byStatus []statusCount
	if err := h.db.WithContext(ctx).Model(&database.Application{}).
		Select("status, count(*) as count").
		Group("status").
		Scan(&byStatus).Error; err != nil {
		logger.Error("dashboard status breakdown failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"counts":                 counts,
		"applications_by_status": byStatus,
	})
}

// adminUserView is the combined shape the user management table renders.
type adminUserView struct {
	ID        uint   `json:"id"`
	UserType  string `json:"user_type"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	FullName  string `json:"full_name"`
	IsAdmin   bool   `json:"is_admin"`
	CreatedAt string `json:"created_at"`
}

// ListUsers returns every account from both tables.
func (h *AdminHandler) ListUsers(c *gin.Context) {
	ctx := c.Request.Context()
	logger := middleware.LoggerFromContext(c)

	var students []database.Student
	if err := h.db.WithContext(ctx).Order("created_at ASC").Find(&students).Error; err != nil {
		logger.Error("list students failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}
	var recruiters []database.Recruiter
	if err := h.db.WithContext(ctx).Order("created_at ASC").Find(&recruiters).Error; err != nil {
		logger.Error("list recruiters failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	users := make([]adminUserView, 0, len(students)+len(recruiters))
	for _, s := range students {
		users = append(users, adminUserView{
			ID: s.ID, UserType: database.ActorStudent,
			Username: s.Username, Email: s.Email, FullName: s.FullName,
			IsAdmin: s.IsAdmin, CreatedAt: s.CreatedAt.Format("2006-01-02 15:04:05"),
		})
	}
	for _, r := range recruiters {
		users = append(users, adminUserView{
			ID: r.ID, UserType: database.ActorRecruiter,
			Username: r.Username, Email: r.Email, FullName: r.FullName,
			IsAdmin: r.IsAdmin, CreatedAt: r.CreatedAt.Format("2006-01-02 15:04:05"),
		})
	}
	c.JSON(http.StatusOK, gin.H{"users": users})
}

type setAdminRequest struct {
	UserType string `json:"user_type" binding:"required,oneof=student recruiter"`
	IsAdmin  *bool  `json:"is_admin" binding:"required"`
}

// SetAdmin grants or revokes the admin flag. Self-revocation is refused, and
// so is revoking the portal's last administrator.
func (h *AdminHandler) SetAdmin(c *gin.Context) {
	actorID, actorType, ok := actorFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}
	targetID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req setAdminRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}
	grant := *req.IsAdmin
	logger := middleware.LoggerFromContext(c)

	if !grant {
		if targetID == actorID && req.UserType == actorType {
			BadRequest(c, "cannot revoke your own admin access")
			return
		}
		total, err := h.adminCount(c)
		if err != nil {
			return
		}
		if total <= 1 {
			BadRequest(c, "cannot revoke the last administrator")
			return
		}
	}

	username, email, err := h.setAdminFlag(c, req.UserType, targetID, grant)
	if err != nil {
		return
	}

	action := "admin_promotion"
	verb := "granted"
	if !grant {
		action = "admin_revocation"
		verb = "revoked"
	}
	h.audit.EventFor(action,
		fmt.Sprintf("Admin access %s for %s %s", verb, req.UserType, username),
		h.actorEmail(c, actorID, actorType), c.ClientIP())

	logger.Info("admin flag changed",
		slog.String("target_type", req.UserType),
		slog.Uint64("target_id", uint64(targetID)),
		slog.Bool("is_admin", grant))
	c.JSON(http.StatusOK, gin.H{"id": targetID, "user_type": req.UserType, "email": email, "is_admin": grant})
}

// DeleteUser removes an account. Admins cannot delete themselves.
func (h *AdminHandler) DeleteUser(c *gin.Context) {
	actorID, actorType, ok := actorFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}
	targetID, ok := pathID(c, "id")
	if !ok {
		return
	}
	userType := c.Query("user_type")
	if userType != database.ActorStudent && userType != database.ActorRecruiter {
		BadRequest(c, "user_type must be student or recruiter")
		return
	}
	if targetID == actorID && userType == actorType {
		BadRequest(c, "cannot delete your own account")
		return
	}

	ctx := c.Request.Context()
	logger := middleware.LoggerFromContext(c)

	var username, email string
	var deleteErr error
	if userType == database.ActorStudent {
		var s database.Student
		if err := h.db.WithContext(ctx).First(&s, targetID).Error; err != nil {
			NotFound(c, "user not found")
			return
		}
		username, email = s.Username, s.Email
		deleteErr = h.db.WithContext(ctx).Delete(&s).Error
	} else {
		var r database.Recruiter
		if err := h.db.WithContext(ctx).First(&r, targetID).Error; err != nil {
			NotFound(c, "user not found")
			return
		}
		username, email = r.Username, r.Email
		deleteErr = h.db.WithContext(ctx).Delete(&r).Error
	}
	if deleteErr != nil {
		logger.Error("delete user failed", slog.Any("error", deleteErr))
		Internal(c, "internal error")
		return
	}

	h.audit.EventFor("user_deletion",
		fmt.Sprintf("Deleted %s account %s (%s)", userType, username, email),
		h.actorEmail(c, actorID, actorType), c.ClientIP())

	logger.Info("user deleted",
		slog.String("target_type", userType),
		slog.Uint64("target_id", uint64(targetID)))
	c.Status(http.StatusNoContent)
}

// Logs returns the audit trail, newest entry first.
func (h *AdminHandler) Logs(c *gin.Context) {
	logger := middleware.LoggerFromContext(c)

	entries, err := h.audit.ReadEntries()
	if err != nil {
		logger.Error("read audit log failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}
	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}

	limit := 200
	if raw := c.Query("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n < limit {
			limit = n
		}
	}
	if len(entries) > limit {
		entries = entries[:limit]
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries})
}

// Activity returns the login and registration chart series.
func (h *AdminHandler) Activity(c *gin.Context) {
	logger := middleware.LoggerFromContext(c)

	days := 7
	if raw := c.Query("days"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 90 {
			days = n
		}
	}

	activity, err := h.audit.ActivityData(days)
	if err != nil {
		logger.Error("read activity data failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}
	c.JSON(http.StatusOK, activity)
}

func (h *AdminHandler) adminCount(c *gin.Context) (int64, error) {
	ctx := c.Request.Context()
	var students, recruiters int64
	if err := h.db.WithContext(ctx).Model(&database.Student{}).Where("is_admin = ?", true).Count(&students).Error; err != nil {
		Internal(c, "internal error")
		return 0, err
	}
	if err := h.db.WithContext(ctx).Model(&database.Recruiter{}).Where("is_admin = ?", true).Count(&recruiters).Error; err != nil {
		Internal(c, "internal error")
		return 0, err
	}
	return students + recruiters, nil
}

func (h *AdminHandler) setAdminFlag(c *gin.Context, userType string, id uint, grant bool) (username, email string, err error) {
	ctx := c.Request.Context()
	if userType == database.ActorStudent {
		var s database.Student
		if err = h.db.WithContext(ctx).First(&s, id).Error; err != nil {
			NotFound(c, "user not found")
			return
		}
		username, email = s.Username, s.Email
		err = h.db.WithContext(ctx).Model(&s).Update("is_admin", grant).Error
	} else {
		var r database.Recruiter
		if err = h.db.WithContext(ctx).First(&r, id).Error; err != nil {
			NotFound(c, "user not found")
			return
		}
		username, email = r.Username, r.Email
		err = h.db.WithContext(ctx).Model(&r).Update("is_admin", grant).Error
	}
	if err != nil {
		Internal(c, "internal error")
	}
	return
}

func (h *AdminHandler) actorEmail(c *gin.Context, id uint, userType string) string {
	ctx := c.Request.Context()
	if userType == database.ActorStudent {
		var s database.Student
		if err := h.db.WithContext(ctx).Select("email").First(&s, id).Error; err == nil {
			return s.Email
		}
		return ""
	}
	var r database.Recruiter
	if err := h.db.WithContext(ctx).Select("email").First(&r, id).Error; err == nil {
		return r.Email
	}
	return ""
}
