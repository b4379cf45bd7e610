package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	stdhttp "net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"careerbridge/internal/api/middleware"
	"careerbridge/internal/auditlog"
	"careerbridge/internal/auth"
	"careerbridge/internal/database"
	"careerbridge/internal/placement"
)

const refreshTokenCookieName = "refresh_token"
const refreshTokenBlacklistKeyPrefix = "auth:refresh:blacklist:"

// AuthHandler handles registration, login, refresh and logout for both
// account types.
type AuthHandler struct {
	db                    *gorm.DB
	svc                   *placement.Service
	authService           *auth.AuthService
	redis                 redis.UniversalClient
	audit                 *auditlog.Trail
	logger                *slog.Logger
	loginRateLimitPerHour int
	loginLockThreshold    int
	loginLockTTL          time.Duration
	cookieDomain          string
}

// NewAuthHandler constructs the auth handler.
func NewAuthHandler(db *gorm.DB, svc *placement.Service, authService *auth.AuthService, redisClient redis.UniversalClient, audit *auditlog.Trail, logger *slog.Logger, loginRateLimitPerHour, loginLockThreshold int, loginLockTTL time.Duration, cookieDomain string) *AuthHandler {
	return &AuthHandler{
		db:                    db,
		svc:                   svc,
		authService:           authService,
		redis:                 redisClient,
		audit:                 audit,
		logger:                logger,
		loginRateLimitPerHour: loginRateLimitPerHour,
		loginLockThreshold:    loginLockThreshold,
		loginLockTTL:          loginLockTTL,
		cookieDomain:          cookieDomain,
	}
}

type registerStudentRequest struct {
	Username string `json:"username" binding:"required,min=3,max=64"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,max=72"`
	FullName string `json:"full_name"`
	Phone    string `json:"phone"`
}

// RegisterStudent creates a new student account. The first account across
// both tables is promoted to administrator.
func (h *AuthHandler) RegisterStudent(c *gin.Context) {
	var req registerStudentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}
	if !auth.ValidatePasswordStrength(req.Password) {
		BadRequest(c, "password must be at least 8 characters with uppercase, lowercase and a digit")
		return
	}

	ctx := c.Request.Context()
	logger := h.loggerFromContext(c).With(slog.String("username", req.Username))

	if conflict, err := h.identityTaken(ctx, req.Username, req.Email); err != nil {
		logger.Error("register lookup failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	} else if conflict {
		Conflict(c, "username or email already registered")
		return
	}

	hashed, err := auth.HashPassword(req.Password)
	if err != nil {
		logger.Error("hash password failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	student := database.Student{
		Username:     req.Username,
		Email:        strings.ToLower(req.Email),
		PasswordHash: hashed,
		FullName:     req.FullName,
		Phone:        req.Phone,
	}
	promoted, err := h.svc.RegisterStudent(ctx, &student)
	if err != nil {
		logger.Error("create student failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	h.audit.EventFor("student_registration",
		fmt.Sprintf("New student registered: %s", student.Username), student.Email, c.ClientIP())

	logger.Info("student registered",
		slog.Uint64("student_id", uint64(student.ID)),
		slog.Bool("promoted_to_admin", promoted))
	c.JSON(http.StatusCreated, gin.H{"id": student.ID, "is_admin": student.IsAdmin})
}

type registerRecruiterRequest struct {
	Username    string `json:"username" binding:"required,min=3,max=64"`
	Email       string `json:"email" binding:"required,email"`
	Password    string `json:"password" binding:"required,max=72"`
	FullName    string `json:"full_name"`
	Phone       string `json:"phone"`
	CompanyName string `json:"company_name" binding:"required"`
}

// RegisterRecruiter creates a new recruiter account.
func (h *AuthHandler) RegisterRecruiter(c *gin.Context) {
	var req registerRecruiterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}
	if !auth.ValidatePasswordStrength(req.Password) {
		BadRequest(c, "password must be at least 8 characters with uppercase, lowercase and a digit")
		return
	}

	ctx := c.Request.Context()
	logger := h.loggerFromContext(c).With(slog.String("username", req.Username))

	if conflict, err := h.identityTaken(ctx, req.Username, req.Email); err != nil {
		logger.Error("register lookup failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	} else if conflict {
		Conflict(c, "username or email already registered")
		return
	}

	hashed, err := auth.HashPassword(req.Password)
	if err != nil {
		logger.Error("hash password failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	recruiter := database.Recruiter{
		Username:     req.Username,
		Email:        strings.ToLower(req.Email),
		PasswordHash: hashed,
		FullName:     req.FullName,
		Phone:        req.Phone,
		CompanyName:  req.CompanyName,
	}
	promoted, err := h.svc.RegisterRecruiter(ctx, &recruiter)
	if err != nil {
		logger.Error("create recruiter failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	h.audit.EventFor("recruiter_registration",
		fmt.Sprintf("New recruiter registered: %s (%s)", recruiter.Username, recruiter.CompanyName), recruiter.Email, c.ClientIP())

	logger.Info("recruiter registered",
		slog.Uint64("recruiter_id", uint64(recruiter.ID)),
		slog.Bool("promoted_to_admin", promoted))
	c.JSON(http.StatusCreated, gin.H{"id": recruiter.ID, "is_admin": recruiter.IsAdmin})
}

// identityTaken reports whether the username or email exists in either table.
// Registration refuses cross-table duplicates so a login identity is
// unambiguous.
func (h *AuthHandler) identityTaken(ctx context.Context, username, email string) (bool, error) {
	email = strings.ToLower(email)
	var n int64
	if err := h.db.WithContext(ctx).Model(&database.Student{}).
		Where("username = ? OR email = ?", username, email).Count(&n).Error; err != nil {
		return false, err
	}
	if n > 0 {
		return true, nil
	}
	if err := h.db.WithContext(ctx).Model(&database.Recruiter{}).
		Where("username = ? OR email = ?", username, email).Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
	UserType string `json:"user_type" binding:"required,oneof=student recruiter"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
	UserType    string `json:"user_type"`
	IsAdmin     bool   `json:"is_admin"`
}

// Login checks credentials and issues a token pair.
func (h *AuthHandler) Login(c *gin.Context) {
	ip := c.ClientIP()
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	ctx := c.Request.Context()
	logger := h.loggerFromContext(c).With(
		slog.String("username", req.Username),
		slog.String("user_type", req.UserType),
	)

	// Rate limit: per IP+username per hour.
	rateKey := "rate:login:" + ip + ":" + strings.ToLower(req.Username) + ":" + time.Now().UTC().Format("2006010215")
	count, err := incrWithTTL(ctx, h.redis, rateKey, time.Hour)
	if err != nil {
		count = 0
	}
	if count > int64(h.loginRateLimitPerHour) {
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
		return
	}

	lockKey := "lock:login:" + strings.ToLower(req.Username)
	if ttl, _ := h.redis.TTL(ctx, lockKey).Result(); ttl > 0 {
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "account temporarily locked"})
		return
	}

	account, err := h.findAccount(ctx, req.UserType, req.Username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Info("login failed: account not found")
			h.noteLoginFailure(ctx, c, req.Username)
			Unauthorized(c)
			return
		}
		logger.Error("login query failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	if !auth.CheckPasswordHash(req.Password, account.passwordHash) {
		logger.Info("login failed: password mismatch", slog.Uint64("user_id", uint64(account.id)))
		h.noteLoginFailure(ctx, c, req.Username)
		Unauthorized(c)
		return
	}

	_ = h.redis.Del(ctx, "lock:login:fail:"+strings.ToLower(req.Username)).Err()

	now := time.Now()
	if err := h.touchLastLogin(ctx, req.UserType, account.id, now); err != nil {
		logger.Warn("update last login failed", slog.Any("error", err))
	}

	tokenPair, err := h.authService.GenerateTokenPair(account.id, req.UserType)
	if err != nil {
		logger.Error("generate token pair failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	h.audit.EventFor("LOGIN_SUCCESS",
		fmt.Sprintf("%s logged in: %s", actorLabel(req.UserType), req.Username), account.email, ip)

	h.replyWithTokenPair(c, tokenPair, req.UserType, account.isAdmin)
}

type accountRecord struct {
	id           uint
	email        string
	passwordHash string
	isAdmin      bool
}

func (h *AuthHandler) findAccount(ctx context.Context, userType, username string) (*accountRecord, error) {
	if userType == database.ActorStudent {
		var s database.Student
		if err := h.db.WithContext(ctx).Where("username = ?", username).First(&s).Error; err != nil {
			return nil, err
		}
		return &accountRecord{id: s.ID, email: s.Email, passwordHash: s.PasswordHash, isAdmin: s.IsAdmin}, nil
	}
	var r database.Recruiter
	if err := h.db.WithContext(ctx).Where("username = ?", username).First(&r).Error; err != nil {
		return nil, err
	}
	return &accountRecord{id: r.ID, email: r.Email, passwordHash: r.PasswordHash, isAdmin: r.IsAdmin}, nil
}

func (h *AuthHandler) touchLastLogin(ctx context.Context, userType string, id uint, ts time.Time) error {
	if userType == database.ActorStudent {
		return h.db.WithContext(ctx).Model(&database.Student{}).Where("id = ?", id).Update("last_login", ts).Error
	}
	return h.db.WithContext(ctx).Model(&database.Recruiter{}).Where("id = ?", id).Update("last_login", ts).Error
}

func (h *AuthHandler) noteLoginFailure(ctx context.Context, c *gin.Context, username string) {
	h.audit.EventFor("LOGIN_FAILED",
		fmt.Sprintf("Failed login attempt for username: %s", username), "", c.ClientIP())
	_ = h.incrementLoginFail(ctx, strings.ToLower(username))
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// Refresh validates the refresh token and issues a fresh pair.
func (h *AuthHandler) Refresh(c *gin.Context) {
	refreshToken := h.extractRefreshToken(c)
	if refreshToken == "" {
		Unauthorized(c)
		return
	}

	ctx := c.Request.Context()
	logger := h.loggerFromContext(c)

	claims, err := h.authService.ValidateToken(refreshToken)
	if err != nil {
		logger.Info("refresh token invalid", slog.Any("error", err))
		Unauthorized(c)
		return
	}
	if claims.TokenType != "refresh" {
		logger.Info("refresh token wrong type", slog.String("token_type", claims.TokenType))
		Unauthorized(c)
		return
	}
	if claims.ID == "" {
		logger.Info("refresh token missing jti")
		Unauthorized(c)
		return
	}

	key := refreshTokenBlacklistKeyPrefix + claims.ID
	if err := h.redis.Get(ctx, key).Err(); err == nil {
		logger.Info("refresh token revoked", slog.String("jti", claims.ID))
		Unauthorized(c)
		return
	} else if !errors.Is(err, redis.Nil) {
		logger.Error("refresh token blacklist lookup failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	account, err := h.accountByID(ctx, claims.UserType, claims.UserID)
	if err != nil {
		logger.Info("refresh account not found", slog.Any("error", err))
		Unauthorized(c)
		return
	}

	tokenPair, err := h.authService.GenerateTokenPair(claims.UserID, claims.UserType)
	if err != nil {
		logger.Error("refresh generate token pair failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	// Rotate the old refresh token so it cannot be replayed.
	if err := h.revokeRefreshToken(ctx, key, claims.ExpiresAt); err != nil {
		logger.Error("refresh revoke old token failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	h.replyWithTokenPair(c, tokenPair, claims.UserType, account.isAdmin)
}

func (h *AuthHandler) accountByID(ctx context.Context, userType string, id uint) (*accountRecord, error) {
	if userType == database.ActorStudent {
		var s database.Student
		if err := h.db.WithContext(ctx).First(&s, id).Error; err != nil {
			return nil, err
		}
		return &accountRecord{id: s.ID, email: s.Email, passwordHash: s.PasswordHash, isAdmin: s.IsAdmin}, nil
	}
	var r database.Recruiter
	if err := h.db.WithContext(ctx).First(&r, id).Error; err != nil {
		return nil, err
	}
	return &accountRecord{id: r.ID, email: r.Email, passwordHash: r.PasswordHash, isAdmin: r.IsAdmin}, nil
}

// Logout blacklists the refresh token and clears the cookie.
func (h *AuthHandler) Logout(c *gin.Context) {
	refreshToken := h.extractRefreshToken(c)
	if refreshToken == "" {
		BadRequest(c, "refresh token missing")
		return
	}

	ctx := c.Request.Context()
	logger := h.loggerFromContext(c)

	claims, err := h.authService.ValidateToken(refreshToken)
	if err != nil {
		logger.Info("logout token invalid", slog.Any("error", err))
		Unauthorized(c)
		return
	}
	if claims.TokenType != "refresh" || claims.ID == "" {
		Unauthorized(c)
		return
	}

	key := refreshTokenBlacklistKeyPrefix + claims.ID
	if err := h.revokeRefreshToken(ctx, key, claims.ExpiresAt); err != nil {
		logger.Error("logout revoke token failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	stdhttp.SetCookie(c.Writer, &stdhttp.Cookie{
		Name:     refreshTokenCookieName,
		Value:    "",
		MaxAge:   -1,
		Path:     "/",
		Secure:   h.isHTTPSRequest(c),
		HttpOnly: true,
		SameSite: stdhttp.SameSiteLaxMode,
		Domain:   h.getCookieDomain(),
	})
	c.Status(http.StatusOK)
}

func (h *AuthHandler) replyWithTokenPair(c *gin.Context, tokenPair auth.TokenPair, userType string, isAdmin bool) {
	h.setRefreshCookie(c, tokenPair.RefreshToken)
	c.JSON(http.StatusOK, tokenResponse{
		AccessToken: tokenPair.AccessToken,
		TokenType:   "Bearer",
		ExpiresIn:   int(h.authService.AccessTokenTTL().Seconds()),
		UserType:    userType,
		IsAdmin:     isAdmin,
	})
}

func (h *AuthHandler) extractRefreshToken(c *gin.Context) string {
	if token, err := c.Cookie(refreshTokenCookieName); err == nil && token != "" {
		return token
	}

	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err == nil && req.RefreshToken != "" {
		return req.RefreshToken
	}
	return ""
}

func (h *AuthHandler) setRefreshCookie(c *gin.Context, refreshToken string) {
	maxAge := int(h.authService.RefreshTokenTTL().Seconds())
	if maxAge <= 0 {
		maxAge = int(time.Hour.Seconds())
	}
	cookie := &stdhttp.Cookie{
		Name:     refreshTokenCookieName,
		Value:    refreshToken,
		MaxAge:   maxAge,
		Path:     "/",
		Secure:   h.isHTTPSRequest(c),
		HttpOnly: true,
		SameSite: stdhttp.SameSiteLaxMode,
		Domain:   h.getCookieDomain(),
		Expires:  time.Now().Add(h.authService.RefreshTokenTTL()),
	}
	stdhttp.SetCookie(c.Writer, cookie)
}

func (h *AuthHandler) revokeRefreshToken(ctx context.Context, key string, expiresAt *jwt.NumericDate) error {
	var ttl time.Duration
	if expiresAt == nil {
		ttl = h.authService.RefreshTokenTTL()
	} else {
		ttl = time.Until(expiresAt.Time)
	}
	if ttl <= 0 {
		ttl = time.Second
	}
	return h.redis.Set(ctx, key, "revoked", ttl).Err()
}

func (h *AuthHandler) loggerFromContext(c *gin.Context) *slog.Logger {
	if logger := middleware.LoggerFromContext(c); logger != nil {
		return logger
	}
	if h.logger != nil {
		return h.logger
	}
	return slog.Default()
}

func (h *AuthHandler) isHTTPSRequest(c *gin.Context) bool {
	if c.Request == nil {
		return false
	}
	if c.Request.TLS != nil {
		return true
	}
	return strings.EqualFold(c.Request.Header.Get("X-Forwarded-Proto"), "https")
}

func (h *AuthHandler) getCookieDomain() string { return strings.TrimSpace(h.cookieDomain) }

func actorLabel(userType string) string {
	if userType == database.ActorStudent {
		return "Student"
	}
	return "Recruiter"
}

func (h *AuthHandler) incrementLoginFail(ctx context.Context, username string) error {
	failKey := "lock:login:fail:" + username
	count, err := h.redis.Incr(ctx, failKey).Result()
	if err != nil {
		return err
	}
	if count == 1 {
		_ = h.redis.Expire(ctx, failKey, h.loginLockTTL).Err()
	}
	if count >= int64(h.loginLockThreshold) {
		_ = h.redis.Set(ctx, "lock:login:"+username, "1", h.loginLockTTL).Err()
	}
	return nil
}
