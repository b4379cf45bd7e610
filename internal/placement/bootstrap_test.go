package placement

import (
	"context"
	"strings"
	"testing"
	"time"

	"careerbridge/internal/database"
)

func TestRegisterFirstStudentBecomesAdmin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	student := &database.Student{Username: "first", Email: "first@example.com"}
	promoted, err := f.svc.RegisterStudent(ctx, student)
	if err != nil {
		t.Fatalf("RegisterStudent: %v", err)
	}
	if !promoted || !student.IsAdmin {
		t.Fatalf("first student not promoted: promoted=%v is_admin=%v", promoted, student.IsAdmin)
	}

	second := &database.Student{Username: "second", Email: "second@example.com"}
	promoted, err = f.svc.RegisterStudent(ctx, second)
	if err != nil {
		t.Fatalf("RegisterStudent: %v", err)
	}
	if promoted || second.IsAdmin {
		t.Fatalf("second student promoted unexpectedly")
	}

	if len(f.audit.events) != 1 || !strings.Contains(f.audit.events[0], "admin_creation") {
		t.Fatalf("audit events = %v", f.audit.events)
	}
}

func TestRegisterFirstRecruiterBecomesAdmin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	recruiter := &database.Recruiter{Username: "hr", Email: "hr@corp.example.com", CompanyName: "Initech"}
	promoted, err := f.svc.RegisterRecruiter(ctx, recruiter)
	if err != nil {
		t.Fatalf("RegisterRecruiter: %v", err)
	}
	if !promoted || !recruiter.IsAdmin {
		t.Fatalf("first recruiter not promoted")
	}

	// A student arriving after the recruiter is an ordinary account.
	student := &database.Student{Username: "late", Email: "late@example.com"}
	promoted, err = f.svc.RegisterStudent(ctx, student)
	if err != nil {
		t.Fatalf("RegisterStudent: %v", err)
	}
	if promoted || student.IsAdmin {
		t.Fatalf("later student promoted unexpectedly")
	}
}

func TestEnsureAdminPromotesEarliestAccount(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	older := database.Recruiter{Username: "older", Email: "older@corp.example.com"}
	older.CreatedAt = time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC)
	if err := f.db.Create(&older).Error; err != nil {
		t.Fatalf("seed recruiter: %v", err)
	}
	newer := database.Student{Username: "newer", Email: "newer@example.com"}
	newer.CreatedAt = time.Date(2026, 1, 12, 9, 0, 0, 0, time.UTC)
	if err := f.db.Create(&newer).Error; err != nil {
		t.Fatalf("seed student: %v", err)
	}

	if err := f.svc.EnsureAdmin(ctx); err != nil {
		t.Fatalf("EnsureAdmin: %v", err)
	}

	var recruiter database.Recruiter
	f.db.First(&recruiter, older.ID)
	if !recruiter.IsAdmin {
		t.Fatalf("earliest account not promoted")
	}
	var student database.Student
	f.db.First(&student, newer.ID)
	if student.IsAdmin {
		t.Fatalf("later account promoted")
	}
}

func TestEnsureAdminTieBreakPrefersStudent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ts := time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC)

	student := database.Student{Username: "tied-s", Email: "tied-s@example.com"}
	student.CreatedAt = ts
	if err := f.db.Create(&student).Error; err != nil {
		t.Fatalf("seed student: %v", err)
	}
	recruiter := database.Recruiter{Username: "tied-r", Email: "tied-r@corp.example.com"}
	recruiter.CreatedAt = ts
	if err := f.db.Create(&recruiter).Error; err != nil {
		t.Fatalf("seed recruiter: %v", err)
	}

	if err := f.svc.EnsureAdmin(ctx); err != nil {
		t.Fatalf("EnsureAdmin: %v", err)
	}

	var s database.Student
	f.db.First(&s, student.ID)
	var r database.Recruiter
	f.db.First(&r, recruiter.ID)
	if !s.IsAdmin || r.IsAdmin {
		t.Fatalf("tie-break wrong: student=%v recruiter=%v", s.IsAdmin, r.IsAdmin)
	}
}

func TestEnsureAdminNoopWhenAdminExists(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	admin := database.Student{Username: "boss", Email: "boss@example.com", IsAdmin: true}
	if err := f.db.Create(&admin).Error; err != nil {
		t.Fatalf("seed admin: %v", err)
	}
	other := database.Recruiter{Username: "hr", Email: "hr@corp.example.com"}
	if err := f.db.Create(&other).Error; err != nil {
		t.Fatalf("seed recruiter: %v", err)
	}

	if err := f.svc.EnsureAdmin(ctx); err != nil {
		t.Fatalf("EnsureAdmin: %v", err)
	}
	var r database.Recruiter
	f.db.First(&r, other.ID)
	if r.IsAdmin {
		t.Fatalf("extra admin created")
	}
	if len(f.audit.events) != 0 {
		t.Fatalf("audit events = %v, want none", f.audit.events)
	}
}

func TestEnsureAdminEmptyDatabaseIsNoop(t *testing.T) {
	f := newFixture(t)
	if err := f.svc.EnsureAdmin(context.Background()); err != nil {
		t.Fatalf("EnsureAdmin on empty db: %v", err)
	}
}
