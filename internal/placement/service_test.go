package placement

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"careerbridge/internal/database"
)

type fakeSMS struct {
	calls []string
	fail  bool
}

func (f *fakeSMS) record(kind string) bool {
	f.calls = append(f.calls, kind)
	return !f.fail
}

func (f *fakeSMS) Shortlisted(context.Context, *database.Student, *database.Application) bool {
	return f.record("shortlisted")
}
func (f *fakeSMS) Selected(context.Context, *database.Student, *database.Application) bool {
	return f.record("selected")
}
func (f *fakeSMS) InterviewScheduled(context.Context, *database.Student, *database.Application, *database.Interview) bool {
	return f.record("interview_scheduled")
}
func (f *fakeSMS) InterviewResult(context.Context, *database.Student, *database.Application, *database.Interview) bool {
	return f.record("interview_result")
}

type fakePublisher struct {
	published []database.Notification
}

func (p *fakePublisher) PublishNotification(_ context.Context, n *database.Notification) {
	p.published = append(p.published, *n)
}

type fakeAudit struct {
	events []string
}

func (a *fakeAudit) Event(eventType, message string) {
	a.events = append(a.events, eventType+": "+message)
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

type fixture struct {
	svc   *Service
	sms   *fakeSMS
	pub   *fakePublisher
	audit *fakeAudit
	db    *gorm.DB
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := newTestDB(t)
	sms := &fakeSMS{}
	pub := &fakePublisher{}
	audit := &fakeAudit{}
	return &fixture{
		svc:   NewService(db, sms, pub, audit),
		sms:   sms,
		pub:   pub,
		audit: audit,
		db:    db,
	}
}

func (f *fixture) seedStudent(t *testing.T, complete bool) *database.Student {
	t.Helper()
	student := database.Student{
		Username:        "asha",
		Email:           "asha@example.com",
		Phone:           "9876543210",
		FullName:        "Asha Rao",
		Branch:          "CSE",
		CGPA:            8.2,
		ProfileComplete: complete,
	}
	if err := f.db.Create(&student).Error; err != nil {
		t.Fatalf("seed student: %v", err)
	}
	return &student
}

func (f *fixture) seedRecruiter(t *testing.T, username string) *database.Recruiter {
	t.Helper()
	recruiter := database.Recruiter{
		Username:    username,
		Email:       username + "@corp.example.com",
		CompanyName: "Initech",
	}
	if err := f.db.Create(&recruiter).Error; err != nil {
		t.Fatalf("seed recruiter: %v", err)
	}
	return &recruiter
}

func (f *fixture) seedJob(t *testing.T, recruiterID uint, minCGPA float64, branches []string) *database.Job {
	t.Helper()
	job := database.Job{
		RecruiterID:      recruiterID,
		Title:            "Backend Engineer",
		Description:      "Build services",
		CompanyName:      "Initech",
		MinCGPA:          minCGPA,
		EligibleBranches: datatypes.JSONSlice[string](branches),
	}
	if err := f.db.Create(&job).Error; err != nil {
		t.Fatalf("seed job: %v", err)
	}
	return &job
}

func TestIsEligible(t *testing.T) {
	cases := []struct {
		name     string
		cgpa     float64
		branch   string
		minCGPA  float64
		branches []string
		want     bool
	}{
		{"meets floor, open branches", 8.0, "CSE", 7.0, nil, true},
		{"below floor", 6.9, "CSE", 7.0, nil, false},
		{"exactly at floor", 7.0, "CSE", 7.0, nil, true},
		{"branch listed", 8.0, "ECE", 7.0, []string{"CSE", "ECE"}, true},
		{"branch not listed", 8.0, "MECH", 7.0, []string{"CSE", "ECE"}, false},
		{"empty branch list admits all", 8.0, "MECH", 7.0, []string{}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			student := &database.Student{CGPA: tc.cgpa, Branch: tc.branch}
			job := &database.Job{
				MinCGPA:          tc.minCGPA,
				EligibleBranches: datatypes.JSONSlice[string](tc.branches),
			}
			if got := IsEligible(student, job); got != tc.want {
				t.Fatalf("IsEligible = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestApplyGuards(t *testing.T) {
	ctx := context.Background()

	t.Run("incomplete profile", func(t *testing.T) {
		f := newFixture(t)
		student := f.seedStudent(t, false)
		recruiter := f.seedRecruiter(t, "rhea")
		job := f.seedJob(t, recruiter.ID, 7.0, nil)

		if _, err := f.svc.Apply(ctx, student.ID, job.ID); err != ErrProfileIncomplete {
			t.Fatalf("Apply = %v, want ErrProfileIncomplete", err)
		}
	})

	t.Run("not eligible", func(t *testing.T) {
		f := newFixture(t)
		student := f.seedStudent(t, true)
		recruiter := f.seedRecruiter(t, "rhea")
		job := f.seedJob(t, recruiter.ID, 9.5, nil)

		if _, err := f.svc.Apply(ctx, student.ID, job.ID); err != ErrNotEligible {
			t.Fatalf("Apply = %v, want ErrNotEligible", err)
		}
	})

	t.Run("duplicate", func(t *testing.T) {
		f := newFixture(t)
		student := f.seedStudent(t, true)
		recruiter := f.seedRecruiter(t, "rhea")
		job := f.seedJob(t, recruiter.ID, 7.0, nil)

		if _, err := f.svc.Apply(ctx, student.ID, job.ID); err != nil {
			t.Fatalf("first Apply: %v", err)
		}
		if _, err := f.svc.Apply(ctx, student.ID, job.ID); err != ErrAlreadyApplied {
			t.Fatalf("second Apply = %v, want ErrAlreadyApplied", err)
		}

		var count int64
		f.db.Model(&database.Application{}).Count(&count)
		if count != 1 {
			t.Fatalf("application count = %d, want 1", count)
		}
	})
}

func TestApplySnapshotsStudentAndJob(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	student := f.seedStudent(t, true)
	recruiter := f.seedRecruiter(t, "rhea")
	job := f.seedJob(t, recruiter.ID, 7.0, []string{"CSE"})

	app, err := f.svc.Apply(ctx, student.ID, job.ID)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if app.Status != StatusApplied.String() {
		t.Fatalf("status = %q, want %q", app.Status, StatusApplied)
	}
	if app.StudentName != student.FullName || app.StudentEmail != student.Email {
		t.Fatalf("student snapshot not copied: %+v", app)
	}
	if app.JobTitle != job.Title || app.CompanyName != job.CompanyName {
		t.Fatalf("job snapshot not copied: %+v", app)
	}

	// Later profile edits must not rewrite the snapshot.
	f.db.Model(student).Update("full_name", "Renamed")
	var reloaded database.Application
	f.db.First(&reloaded, app.ID)
	if reloaded.StudentName != "Asha Rao" {
		t.Fatalf("snapshot changed after profile edit: %q", reloaded.StudentName)
	}
}

func TestUpdateStatusNotifiesAndSends(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	student := f.seedStudent(t, true)
	recruiter := f.seedRecruiter(t, "rhea")
	job := f.seedJob(t, recruiter.ID, 7.0, nil)
	app, err := f.svc.Apply(ctx, student.ID, job.ID)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}

	res, err := f.svc.UpdateStatus(ctx, recruiter.ID, app.ID, StatusShortlisted)
	if err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	if !res.SMSAttempted || !res.SMSSent {
		t.Fatalf("sms result = %+v, want attempted and sent", res)
	}
	if len(f.sms.calls) != 1 || f.sms.calls[0] != "shortlisted" {
		t.Fatalf("sms calls = %v", f.sms.calls)
	}

	var notif database.Notification
	if err := f.db.Where("user_type = ? AND user_id = ?", database.ActorStudent, student.ID).First(&notif).Error; err != nil {
		t.Fatalf("load notification: %v", err)
	}
	for _, want := range []string{job.Title, job.CompanyName, StatusShortlisted.String()} {
		if !strings.Contains(notif.Message, want) {
			t.Fatalf("notification %q missing %q", notif.Message, want)
		}
	}
	if len(f.pub.published) != 1 {
		t.Fatalf("published events = %d, want 1", len(f.pub.published))
	}
}

func TestUpdateStatusNoSMSForRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	student := f.seedStudent(t, true)
	recruiter := f.seedRecruiter(t, "rhea")
	job := f.seedJob(t, recruiter.ID, 7.0, nil)
	app, _ := f.svc.Apply(ctx, student.ID, job.ID)

	res, err := f.svc.UpdateStatus(ctx, recruiter.ID, app.ID, StatusRejected)
	if err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	if res.SMSAttempted {
		t.Fatalf("rejected must not attempt sms: %+v", res)
	}
	if len(f.sms.calls) != 0 {
		t.Fatalf("sms calls = %v, want none", f.sms.calls)
	}
}

func TestUpdateStatusOwnershipEnforced(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	student := f.seedStudent(t, true)
	owner := f.seedRecruiter(t, "rhea")
	intruder := f.seedRecruiter(t, "mallory")
	job := f.seedJob(t, owner.ID, 7.0, nil)
	app, _ := f.svc.Apply(ctx, student.ID, job.ID)

	if _, err := f.svc.UpdateStatus(ctx, intruder.ID, app.ID, StatusSelected); err != ErrNotOwner {
		t.Fatalf("UpdateStatus = %v, want ErrNotOwner", err)
	}

	var reloaded database.Application
	f.db.First(&reloaded, app.ID)
	if reloaded.Status != StatusApplied.String() {
		t.Fatalf("status mutated to %q despite ownership failure", reloaded.Status)
	}
	var count int64
	f.db.Model(&database.Notification{}).Count(&count)
	if count != 0 {
		t.Fatalf("notification created despite ownership failure")
	}
}

func TestScheduleInterviewTransitionsApplication(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	student := f.seedStudent(t, true)
	recruiter := f.seedRecruiter(t, "rhea")
	job := f.seedJob(t, recruiter.ID, 7.0, nil)
	app, _ := f.svc.Apply(ctx, student.ID, job.ID)

	iv, res, err := f.svc.ScheduleInterview(ctx, recruiter.ID, app.ID, InterviewRequest{
		ScheduledAt: time.Now().Add(48 * time.Hour),
		Location:    "Main Campus, Room 4",
		Type:        "Technical",
	})
	if err != nil {
		t.Fatalf("ScheduleInterview: %v", err)
	}
	if iv.Status != database.InterviewScheduled {
		t.Fatalf("interview status = %q", iv.Status)
	}
	if !res.SMSAttempted {
		t.Fatalf("interview sms not attempted")
	}

	var reloaded database.Application
	f.db.First(&reloaded, app.ID)
	if reloaded.Status != StatusInterviewScheduled.String() {
		t.Fatalf("application status = %q, want %q", reloaded.Status, StatusInterviewScheduled)
	}
}

func TestScheduleInterviewRequiresAllFields(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	student := f.seedStudent(t, true)
	recruiter := f.seedRecruiter(t, "rhea")
	job := f.seedJob(t, recruiter.ID, 7.0, nil)
	app, _ := f.svc.Apply(ctx, student.ID, job.ID)

	_, _, err := f.svc.ScheduleInterview(ctx, recruiter.ID, app.ID, InterviewRequest{
		ScheduledAt: time.Now().Add(24 * time.Hour),
		Type:        "Technical",
	})
	if !errors.Is(err, ErrMissingField) {
		t.Fatalf("ScheduleInterview = %v, want ErrMissingField", err)
	}

	var count int64
	f.db.Model(&database.Interview{}).Count(&count)
	if count != 0 {
		t.Fatalf("interview created despite validation failure")
	}
}

func TestCreateInterviewRequiresSelected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	student := f.seedStudent(t, true)
	recruiter := f.seedRecruiter(t, "rhea")
	job := f.seedJob(t, recruiter.ID, 7.0, nil)
	app, _ := f.svc.Apply(ctx, student.ID, job.ID)

	req := InterviewRequest{
		ScheduledAt: time.Now().Add(24 * time.Hour),
		Location:    "HQ",
		Type:        "HR",
	}
	if _, _, err := f.svc.CreateInterview(ctx, recruiter.ID, app.ID, req); err != ErrNotSelected {
		t.Fatalf("CreateInterview = %v, want ErrNotSelected", err)
	}

	if _, err := f.svc.UpdateStatus(ctx, recruiter.ID, app.ID, StatusSelected); err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	if _, _, err := f.svc.CreateInterview(ctx, recruiter.ID, app.ID, req); err != nil {
		t.Fatalf("CreateInterview after selection: %v", err)
	}

	// A further round does not disturb the application status.
	var reloaded database.Application
	f.db.First(&reloaded, app.ID)
	if reloaded.Status != StatusSelected.String() {
		t.Fatalf("application status = %q, want %q", reloaded.Status, StatusSelected)
	}
}

func TestRecordResultPassSelectsCandidate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	student := f.seedStudent(t, true)
	recruiter := f.seedRecruiter(t, "rhea")
	job := f.seedJob(t, recruiter.ID, 7.0, nil)
	app, _ := f.svc.Apply(ctx, student.ID, job.ID)
	iv, _, err := f.svc.ScheduleInterview(ctx, recruiter.ID, app.ID, InterviewRequest{
		ScheduledAt: time.Now().Add(24 * time.Hour),
		Location:    "HQ",
		Type:        "Technical",
	})
	if err != nil {
		t.Fatalf("ScheduleInterview: %v", err)
	}

	res, err := f.svc.RecordResult(ctx, recruiter.ID, iv.ID, database.ResultPass, "strong fundamentals")
	if err != nil {
		t.Fatalf("RecordResult: %v", err)
	}
	if !res.SMSAttempted {
		t.Fatalf("result sms not attempted")
	}

	var reloadedIv database.Interview
	f.db.First(&reloadedIv, iv.ID)
	if reloadedIv.Status != database.InterviewCompleted || reloadedIv.Result != database.ResultPass {
		t.Fatalf("interview = %q/%q, want Completed/Pass", reloadedIv.Status, reloadedIv.Result)
	}
	if reloadedIv.CompletedAt == nil || reloadedIv.CompletedBy != recruiter.ID {
		t.Fatalf("completion metadata missing: %+v", reloadedIv)
	}

	var reloadedApp database.Application
	f.db.First(&reloadedApp, app.ID)
	if reloadedApp.Status != StatusSelected.String() {
		t.Fatalf("application status = %q, want Selected", reloadedApp.Status)
	}

	// Completing an interview twice is rejected and changes nothing.
	if _, err := f.svc.RecordResult(ctx, recruiter.ID, iv.ID, database.ResultFail, ""); err != ErrInterviewNotScheduled {
		t.Fatalf("second RecordResult = %v, want ErrInterviewNotScheduled", err)
	}
	f.db.First(&reloadedIv, iv.ID)
	if reloadedIv.Result != database.ResultPass {
		t.Fatalf("result rewritten to %q", reloadedIv.Result)
	}
}

func TestRecordResultFailRejectsCandidate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	student := f.seedStudent(t, true)
	recruiter := f.seedRecruiter(t, "rhea")
	job := f.seedJob(t, recruiter.ID, 7.0, nil)
	app, _ := f.svc.Apply(ctx, student.ID, job.ID)
	iv, _, _ := f.svc.ScheduleInterview(ctx, recruiter.ID, app.ID, InterviewRequest{
		ScheduledAt: time.Now().Add(24 * time.Hour),
		Location:    "HQ",
		Type:        "Technical",
	})

	if _, err := f.svc.RecordResult(ctx, recruiter.ID, iv.ID, database.ResultFail, "not a fit"); err != nil {
		t.Fatalf("RecordResult: %v", err)
	}

	var reloadedApp database.Application
	f.db.First(&reloadedApp, app.ID)
	if reloadedApp.Status != StatusRejected.String() {
		t.Fatalf("application status = %q, want Rejected", reloadedApp.Status)
	}
}

func TestRecordResultOwnership(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	student := f.seedStudent(t, true)
	owner := f.seedRecruiter(t, "rhea")
	intruder := f.seedRecruiter(t, "mallory")
	job := f.seedJob(t, owner.ID, 7.0, nil)
	app, _ := f.svc.Apply(ctx, student.ID, job.ID)
	iv, _, _ := f.svc.ScheduleInterview(ctx, owner.ID, app.ID, InterviewRequest{
		ScheduledAt: time.Now().Add(24 * time.Hour),
		Location:    "HQ",
		Type:        "Technical",
	})

	if _, err := f.svc.RecordResult(ctx, intruder.ID, iv.ID, database.ResultPass, ""); err != ErrNotOwner {
		t.Fatalf("RecordResult = %v, want ErrNotOwner", err)
	}
}

func TestParseStatusRejectsFreeText(t *testing.T) {
	for _, raw := range []string{"", "applied", "Hired", "SELECTED", "Interview scheduled"} {
		if _, err := ParseStatus(raw); err == nil {
			t.Fatalf("ParseStatus(%q) accepted", raw)
		}
	}
	for _, raw := range []string{"Applied", "Shortlisted", "Interview Scheduled", "Selected", "Rejected"} {
		if _, err := ParseStatus(raw); err != nil {
			t.Fatalf("ParseStatus(%q) rejected: %v", raw, err)
		}
	}
}
