package placement

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"careerbridge/internal/database"
)

// SMSDispatcher sends best-effort text messages for lifecycle transitions.
// Implementations must never return an error: a false return means the message
// did not go out, and the caller carries on regardless.
type SMSDispatcher interface {
	Shortlisted(ctx context.Context, student *database.Student, app *database.Application) bool
	Selected(ctx context.Context, student *database.Student, app *database.Application) bool
	InterviewScheduled(ctx context.Context, student *database.Student, app *database.Application, iv *database.Interview) bool
	InterviewResult(ctx context.Context, student *database.Student, app *database.Application, iv *database.Interview) bool
}

// EventPublisher pushes a just-committed notification to the live feed.
// Publishing is best-effort; failures are ignored by callers.
type EventPublisher interface {
	PublishNotification(ctx context.Context, n *database.Notification)
}

// AuditLogger records administrative and security events.
type AuditLogger interface {
	Event(eventType, message string)
}

// Service implements the application/interview lifecycle. Every transition
// checks that the acting recruiter owns the job behind the application, runs
// its writes in one transaction, and only then fires notifications.
type Service struct {
	db     *gorm.DB
	sms    SMSDispatcher
	events EventPublisher
	audit  AuditLogger
}

// NewService constructs the lifecycle service. sms, events and audit may be nil
// in contexts that do not dispatch (migrations, some tests).
func NewService(db *gorm.DB, sms SMSDispatcher, events EventPublisher, audit AuditLogger) *Service {
	return &Service{db: db, sms: sms, events: events, audit: audit}
}

// IsEligible evaluates the apply gate predicate: the student's CGPA meets the
// job's floor and, when the job restricts branches, the student's branch is
// listed.
func IsEligible(student *database.Student, job *database.Job) bool {
	if student.CGPA < job.MinCGPA {
		return false
	}
	if len(job.EligibleBranches) == 0 {
		return true
	}
	for _, b := range job.EligibleBranches {
		if b == student.Branch {
			return true
		}
	}
	return false
}

// TransitionResult reports what happened after the primary write committed.
type TransitionResult struct {
	SMSAttempted bool
	SMSSent      bool
}

// Apply creates an application in state Applied with snapshot fields copied
// from the current student and job records. Guard order follows the original
// flow: profile completeness, duplicate check, eligibility.
func (s *Service) Apply(ctx context.Context, studentID, jobID uint) (*database.Application, error) {
	var student database.Student
	if err := s.db.WithContext(ctx).First(&student, studentID).Error; err != nil {
		return nil, wrapNotFound(err, "student")
	}
	if !student.ProfileComplete {
		return nil, ErrProfileIncomplete
	}

	var job database.Job
	if err := s.db.WithContext(ctx).First(&job, jobID).Error; err != nil {
		return nil, wrapNotFound(err, "job")
	}

	var existing database.Application
	err := s.db.WithContext(ctx).
		Where("job_id = ? AND student_id = ?", jobID, studentID).
		First(&existing).Error
	switch {
	case err == nil:
		return nil, ErrAlreadyApplied
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, fmt.Errorf("lookup application: %w", err)
	}

	if !IsEligible(&student, &job) {
		return nil, ErrNotEligible
	}

	app := database.Application{
		JobID:           job.ID,
		StudentID:       student.ID,
		Status:          StatusApplied.String(),
		StatusUpdatedAt: time.Now(),
		StudentName:     student.FullName,
		StudentEmail:    student.Email,
		StudentPhone:    student.Phone,
		StudentBranch:   student.Branch,
		StudentCGPA:     student.CGPA,
		JobTitle:        job.Title,
		CompanyName:     job.CompanyName,
	}
	if err := s.db.WithContext(ctx).Create(&app).Error; err != nil {
		// The unique (job_id, student_id) index closes the check-then-insert
		// race between concurrent submissions of the same form.
		if isDuplicateKey(err) {
			return nil, ErrAlreadyApplied
		}
		return nil, fmt.Errorf("create application: %w", err)
	}
	return &app, nil
}

// UpdateStatus sets the application status and notifies the student. Repeating
// the same value is allowed: it re-timestamps and re-notifies, which recruiters
// use as a nudge.
func (s *Service) UpdateStatus(ctx context.Context, recruiterID, applicationID uint, status Status) (*TransitionResult, error) {
	app, _, err := s.ownedApplication(ctx, recruiterID, applicationID)
	if err != nil {
		return nil, err
	}

	notif := database.Notification{
		UserType: database.ActorStudent,
		UserID:   app.StudentID,
		Title:    "Application Status Updated",
		Message: fmt.Sprintf("Your application for %s at %s has been updated to: %s",
			app.JobTitle, app.CompanyName, status),
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&database.Application{}).
			Where("id = ?", app.ID).
			Updates(map[string]interface{}{
				"status":            status.String(),
				"status_updated_at": time.Now(),
				"status_updated_by": recruiterID,
			}).Error; err != nil {
			return fmt.Errorf("update application status: %w", err)
		}
		if err := tx.Create(&notif).Error; err != nil {
			return fmt.Errorf("create notification: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, &notif)

	res := &TransitionResult{}
	if status == StatusShortlisted || status == StatusSelected {
		res.SMSAttempted = true
		if student, err := s.loadStudent(ctx, app.StudentID); err == nil {
			if status == StatusShortlisted {
				res.SMSSent = s.dispatch(func() bool { return s.sms.Shortlisted(ctx, student, app) })
			} else {
				res.SMSSent = s.dispatch(func() bool { return s.sms.Selected(ctx, student, app) })
			}
		}
	}
	return res, nil
}

// InterviewRequest carries the scheduling form fields. Date, time, location
// and type are all required.
type InterviewRequest struct {
	ScheduledAt time.Time
	Location    string
	Type        string
	Details     string
}

func (r InterviewRequest) validate() error {
	if r.ScheduledAt.IsZero() {
		return fmt.Errorf("%w: interview date and time", ErrMissingField)
	}
	if strings.TrimSpace(r.Location) == "" {
		return fmt.Errorf("%w: interview location", ErrMissingField)
	}
	if strings.TrimSpace(r.Type) == "" {
		return fmt.Errorf("%w: interview type", ErrMissingField)
	}
	return nil
}

// ScheduleInterview creates an interview and moves the application to
// Interview Scheduled in the same transaction.
func (s *Service) ScheduleInterview(ctx context.Context, recruiterID, applicationID uint, req InterviewRequest) (*database.Interview, *TransitionResult, error) {
	if err := req.validate(); err != nil {
		return nil, nil, err
	}
	app, job, err := s.ownedApplication(ctx, recruiterID, applicationID)
	if err != nil {
		return nil, nil, err
	}

	iv := s.newInterview(app, job, recruiterID, req)
	notif := database.Notification{
		UserType: database.ActorStudent,
		UserID:   app.StudentID,
		Title:    "Interview Scheduled",
		Message: fmt.Sprintf("An interview has been scheduled for your application to %s at %s. Date: %s, Time: %s",
			app.JobTitle, app.CompanyName,
			req.ScheduledAt.Format("2006-01-02"), req.ScheduledAt.Format("15:04")),
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(iv).Error; err != nil {
			return fmt.Errorf("create interview: %w", err)
		}
		if err := tx.Model(&database.Application{}).
			Where("id = ?", app.ID).
			Updates(map[string]interface{}{
				"status":            StatusInterviewScheduled.String(),
				"status_updated_at": time.Now(),
				"status_updated_by": recruiterID,
			}).Error; err != nil {
			return fmt.Errorf("update application status: %w", err)
		}
		if err := tx.Create(&notif).Error; err != nil {
			return fmt.Errorf("create notification: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	s.publish(ctx, &notif)
	res := s.notifyInterviewScheduled(ctx, app, iv)
	return iv, res, nil
}

// CreateInterview adds a further interview round for an already-selected
// candidate. The application status is left untouched.
func (s *Service) CreateInterview(ctx context.Context, recruiterID, applicationID uint, req InterviewRequest) (*database.Interview, *TransitionResult, error) {
	if err := req.validate(); err != nil {
		return nil, nil, err
	}
	app, job, err := s.ownedApplication(ctx, recruiterID, applicationID)
	if err != nil {
		return nil, nil, err
	}
	if app.Status != StatusSelected.String() {
		return nil, nil, ErrNotSelected
	}

	iv := s.newInterview(app, job, recruiterID, req)
	notif := database.Notification{
		UserType: database.ActorStudent,
		UserID:   app.StudentID,
		Title:    "Interview Created",
		Message: fmt.Sprintf("An interview has been created for your application to %s at %s. Date: %s, Time: %s",
			app.JobTitle, app.CompanyName,
			req.ScheduledAt.Format("2006-01-02"), req.ScheduledAt.Format("15:04")),
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(iv).Error; err != nil {
			return fmt.Errorf("create interview: %w", err)
		}
		if err := tx.Create(&notif).Error; err != nil {
			return fmt.Errorf("create notification: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	s.publish(ctx, &notif)
	res := s.notifyInterviewScheduled(ctx, app, iv)
	return iv, res, nil
}

// RecordResult completes a scheduled interview and derives the application
// status from the result: Pass selects the candidate, Fail rejects them.
// Recording a result twice is rejected.
func (s *Service) RecordResult(ctx context.Context, recruiterID, interviewID uint, result, feedback string) (*TransitionResult, error) {
	if result != database.ResultPass && result != database.ResultFail {
		return nil, fmt.Errorf("%w: result must be Pass or Fail", ErrMissingField)
	}

	var iv database.Interview
	if err := s.db.WithContext(ctx).First(&iv, interviewID).Error; err != nil {
		return nil, wrapNotFound(err, "interview")
	}
	if iv.RecruiterID != recruiterID {
		return nil, ErrNotOwner
	}
	if iv.Status != database.InterviewScheduled {
		return nil, ErrInterviewNotScheduled
	}

	var app database.Application
	if err := s.db.WithContext(ctx).First(&app, iv.ApplicationID).Error; err != nil {
		return nil, wrapNotFound(err, "application")
	}

	newStatus := StatusSelected
	if result == database.ResultFail {
		newStatus = StatusRejected
	}
	now := time.Now()
	notif := database.Notification{
		UserType: database.ActorStudent,
		UserID:   app.StudentID,
		Title:    fmt.Sprintf("Interview Result: %s", result),
		Message: strings.TrimSpace(fmt.Sprintf("Your interview for %s at %s has been marked as %s. %s",
			app.JobTitle, app.CompanyName, result, feedback)),
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&database.Interview{}).
			Where("id = ? AND status = ?", iv.ID, database.InterviewScheduled).
			Updates(map[string]interface{}{
				"status":       database.InterviewCompleted,
				"result":       result,
				"feedback":     feedback,
				"completed_at": now,
				"completed_by": recruiterID,
			})
		if res.Error != nil {
			return fmt.Errorf("complete interview: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrInterviewNotScheduled
		}
		if err := tx.Model(&database.Application{}).
			Where("id = ?", app.ID).
			Updates(map[string]interface{}{
				"status":            newStatus.String(),
				"status_updated_at": now,
				"status_updated_by": recruiterID,
			}).Error; err != nil {
			return fmt.Errorf("update application status: %w", err)
		}
		if err := tx.Create(&notif).Error; err != nil {
			return fmt.Errorf("create notification: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, &notif)

	res := &TransitionResult{SMSAttempted: true}
	if student, err := s.loadStudent(ctx, app.StudentID); err == nil {
		iv.Result = result
		res.SMSSent = s.dispatch(func() bool { return s.sms.InterviewResult(ctx, student, &app, &iv) })
		if result == database.ResultPass {
			s.dispatch(func() bool { return s.sms.Selected(ctx, student, &app) })
		}
	}
	return res, nil
}

// ApplicationsForJob lists applications for a job the recruiter owns, newest
// first.
func (s *Service) ApplicationsForJob(ctx context.Context, recruiterID, jobID uint) ([]database.Application, error) {
	var job database.Job
	if err := s.db.WithContext(ctx).First(&job, jobID).Error; err != nil {
		return nil, wrapNotFound(err, "job")
	}
	if job.RecruiterID != recruiterID {
		return nil, ErrNotOwner
	}
	var apps []database.Application
	if err := s.db.WithContext(ctx).
		Where("job_id = ?", jobID).
		Order("created_at DESC").
		Find(&apps).Error; err != nil {
		return nil, fmt.Errorf("list applications: %w", err)
	}
	return apps, nil
}

// ApplicationForRecruiter fetches one application after the ownership check.
func (s *Service) ApplicationForRecruiter(ctx context.Context, recruiterID, applicationID uint) (*database.Application, error) {
	app, _, err := s.ownedApplication(ctx, recruiterID, applicationID)
	return app, err
}

// StudentApplications lists a student's own applications, newest first.
func (s *Service) StudentApplications(ctx context.Context, studentID uint) ([]database.Application, error) {
	var apps []database.Application
	if err := s.db.WithContext(ctx).
		Where("student_id = ?", studentID).
		Order("created_at DESC").
		Find(&apps).Error; err != nil {
		return nil, fmt.Errorf("list applications: %w", err)
	}
	return apps, nil
}

// InterviewsForActor lists interviews visible to the actor, soonest first.
func (s *Service) InterviewsForActor(ctx context.Context, userType string, userID uint) ([]database.Interview, error) {
	q := s.db.WithContext(ctx).Order("scheduled_at ASC")
	if userType == database.ActorStudent {
		q = q.Where("student_id = ?", userID)
	} else {
		q = q.Where("recruiter_id = ?", userID)
	}
	var interviews []database.Interview
	if err := q.Find(&interviews).Error; err != nil {
		return nil, fmt.Errorf("list interviews: %w", err)
	}
	return interviews, nil
}

// InterviewForActor fetches one interview if the actor is its student or its
// recruiter.
func (s *Service) InterviewForActor(ctx context.Context, userType string, userID, interviewID uint) (*database.Interview, error) {
	var iv database.Interview
	if err := s.db.WithContext(ctx).First(&iv, interviewID).Error; err != nil {
		return nil, wrapNotFound(err, "interview")
	}
	switch userType {
	case database.ActorStudent:
		if iv.StudentID != userID {
			return nil, ErrNotOwner
		}
	default:
		if iv.RecruiterID != userID {
			return nil, ErrNotOwner
		}
	}
	return &iv, nil
}

func (s *Service) newInterview(app *database.Application, job *database.Job, recruiterID uint, req InterviewRequest) *database.Interview {
	return &database.Interview{
		ApplicationID: app.ID,
		JobID:         job.ID,
		StudentID:     app.StudentID,
		RecruiterID:   recruiterID,
		ScheduledAt:   req.ScheduledAt,
		Location:      req.Location,
		Type:          req.Type,
		Details:       req.Details,
		Status:        database.InterviewScheduled,
	}
}

func (s *Service) notifyInterviewScheduled(ctx context.Context, app *database.Application, iv *database.Interview) *TransitionResult {
	res := &TransitionResult{SMSAttempted: true}
	if student, err := s.loadStudent(ctx, app.StudentID); err == nil {
		res.SMSSent = s.dispatch(func() bool { return s.sms.InterviewScheduled(ctx, student, app, iv) })
	}
	return res
}

// ownedApplication loads an application plus its job and enforces that the
// recruiter owns the job. Called before every recruiter-driven transition.
func (s *Service) ownedApplication(ctx context.Context, recruiterID, applicationID uint) (*database.Application, *database.Job, error) {
	var app database.Application
	if err := s.db.WithContext(ctx).First(&app, applicationID).Error; err != nil {
		return nil, nil, wrapNotFound(err, "application")
	}
	var job database.Job
	if err := s.db.WithContext(ctx).First(&job, app.JobID).Error; err != nil {
		return nil, nil, wrapNotFound(err, "job")
	}
	if job.RecruiterID != recruiterID {
		return nil, nil, ErrNotOwner
	}
	return &app, &job, nil
}

func (s *Service) loadStudent(ctx context.Context, studentID uint) (*database.Student, error) {
	var student database.Student
	if err := s.db.WithContext(ctx).First(&student, studentID).Error; err != nil {
		return nil, wrapNotFound(err, "student")
	}
	return &student, nil
}

func (s *Service) dispatch(send func() bool) bool {
	if s.sms == nil {
		return false
	}
	return send()
}

func (s *Service) publish(ctx context.Context, n *database.Notification) {
	if s.events != nil {
		s.events.PublishNotification(ctx, n)
	}
}

func wrapNotFound(err error, what string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: %s", ErrNotFound, what)
	}
	return err
}

func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate key") || strings.Contains(msg, "unique constraint")
}
