package api

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"careerbridge/internal/api/middleware"
	"careerbridge/internal/auditlog"
	"careerbridge/internal/auth"
	"careerbridge/internal/database"
	"careerbridge/internal/placement"
)

type authFixture struct {
	db          *gorm.DB
	authService *auth.AuthService
	router      *gin.Engine
}

// newAuthFixture wires the auth handler against sqlite, a temp-dir audit
// trail and a redis client pointing nowhere. Login treats an unreachable
// redis as "no limit recorded", so the flow works without a server.
func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := newTestDB(t)
	authService := newTestAuthService(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	trail, err := auditlog.NewTrail(filepath.Join(t.TempDir(), "admin.log"), logger)
	if err != nil {
		t.Fatalf("new trail: %v", err)
	}
	svc := placement.NewService(db, nil, nil, trail)
	redisClient := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"})

	authHandler := NewAuthHandler(db, svc, authService, redisClient, trail, logger,
		100, 5, 15*time.Minute, "")
	adminHandler := NewAdminHandler(db, trail, logger)

	router := gin.New()
	authGroup := router.Group("/v1/auth")
	authGroup.POST("/register/student", authHandler.RegisterStudent)
	authGroup.POST("/register/recruiter", authHandler.RegisterRecruiter)
	authGroup.POST("/login", authHandler.Login)

	adminGroup := router.Group("/v1/admin")
	adminGroup.Use(middleware.AuthMiddleware(authService), middleware.RequireAdmin(db))
	adminGroup.GET("/dashboard", adminHandler.Dashboard)

	return &authFixture{db: db, authService: authService, router: router}
}

func (f *authFixture) postJSON(t *testing.T, path string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func (f *authFixture) registerStudent(t *testing.T, username, email string) map[string]any {
	t.Helper()
	w := f.postJSON(t, "/v1/auth/register/student", map[string]string{
		"username": username,
		"email":    email,
		"password": "Sup3rSecret",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("register %s: status = %d, body = %s", username, w.Code, w.Body.String())
	}
	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	return body
}

func TestRegisterFirstStudentGetsAdmin(t *testing.T) {
	f := newAuthFixture(t)

	first := f.registerStudent(t, "asha", "asha@example.com")
	if first["is_admin"] != true {
		t.Fatalf("first account is_admin = %v, want true", first["is_admin"])
	}

	second := f.registerStudent(t, "ravi", "ravi@example.com")
	if second["is_admin"] != false {
		t.Fatalf("second account is_admin = %v, want false", second["is_admin"])
	}
}

func TestRegisterRejectsWeakPassword(t *testing.T) {
	f := newAuthFixture(t)
	w := f.postJSON(t, "/v1/auth/register/student", map[string]string{
		"username": "asha",
		"email":    "asha@example.com",
		"password": "alllowercase",
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestRegisterRefusesCrossTableDuplicate(t *testing.T) {
	f := newAuthFixture(t)
	f.registerStudent(t, "asha", "asha@example.com")

	w := f.postJSON(t, "/v1/auth/register/recruiter", map[string]string{
		"username":     "asha",
		"email":        "other@corp.example.com",
		"password":     "Sup3rSecret",
		"company_name": "Initech",
	})
	if w.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", w.Code)
	}
}

func TestLoginIssuesTokenPair(t *testing.T) {
	f := newAuthFixture(t)
	f.registerStudent(t, "asha", "asha@example.com")

	w := f.postJSON(t, "/v1/auth/login", map[string]string{
		"username":  "asha",
		"password":  "Sup3rSecret",
		"user_type": "student",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	var body tokenResponse
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.TokenType != "Bearer" || body.UserType != database.ActorStudent {
		t.Fatalf("token response = %+v", body)
	}
	claims, err := f.authService.ValidateToken(body.AccessToken)
	if err != nil {
		t.Fatalf("issued access token invalid: %v", err)
	}
	if claims.UserType != database.ActorStudent || claims.TokenType != "access" {
		t.Fatalf("claims = %+v", claims)
	}

	var refreshCookie *http.Cookie
	for _, cookie := range w.Result().Cookies() {
		if cookie.Name == "refresh_token" {
			refreshCookie = cookie
		}
	}
	if refreshCookie == nil {
		t.Fatalf("refresh_token cookie not set")
	}
	if !refreshCookie.HttpOnly {
		t.Fatalf("refresh cookie not HttpOnly")
	}

	var student database.Student
	f.db.Where("username = ?", "asha").First(&student)
	if student.LastLogin == nil {
		t.Fatalf("last login not recorded")
	}
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	f := newAuthFixture(t)
	f.registerStudent(t, "asha", "asha@example.com")

	w := f.postJSON(t, "/v1/auth/login", map[string]string{
		"username":  "asha",
		"password":  "WrongPass1",
		"user_type": "student",
	})
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}
}

func TestAdminGuardChecksDatabaseFlag(t *testing.T) {
	f := newAuthFixture(t)
	f.registerStudent(t, "asha", "asha@example.com")
	f.registerStudent(t, "ravi", "ravi@example.com")

	var admin, regular database.Student
	f.db.Where("username = ?", "asha").First(&admin)
	f.db.Where("username = ?", "ravi").First(&regular)

	get := func(userID uint) int {
		pair, err := f.authService.GenerateTokenPair(userID, database.ActorStudent)
		if err != nil {
			t.Fatalf("generate token: %v", err)
		}
		req := httptest.NewRequest(http.MethodGet, "/v1/admin/dashboard", nil)
		req.Header.Set("Authorization", "Bearer "+pair.AccessToken)
		w := httptest.NewRecorder()
		f.router.ServeHTTP(w, req)
		return w.Code
	}

	if code := get(admin.ID); code != http.StatusOK {
		t.Fatalf("admin dashboard status = %d, want 200", code)
	}
	if code := get(regular.ID); code != http.StatusForbidden {
		t.Fatalf("non-admin dashboard status = %d, want 403", code)
	}
}
