package database

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Actor kinds stored in Notification.UserType and carried in JWT claims.
const (
	ActorStudent   = "student"
	ActorRecruiter = "recruiter"
)

// Student is a job-seeking account with an academic profile.
type Student struct {
	gorm.Model
	Username        string  `gorm:"uniqueIndex;size:64"`
	Email           string  `gorm:"uniqueIndex;size:255"`
	PasswordHash    string  `gorm:"size:255"`
	Phone           string  `gorm:"size:32"`
	FullName        string  `gorm:"size:255"`
	Branch          string  `gorm:"size:128"`
	CGPA            float64 `gorm:"default:0"`
	Degree          string  `gorm:"size:128"`
	GraduationYear  int
	ResumeKey       string `gorm:"size:512"`
	PhotoKey        string `gorm:"size:512"`
	ProfileComplete bool   `gorm:"default:false"`
	IsAdmin         bool   `gorm:"default:false;index"`
	LastLogin       *time.Time
}

// Recruiter is a company-side account that owns job postings.
type Recruiter struct {
	gorm.Model
	Username        string `gorm:"uniqueIndex;size:64"`
	Email           string `gorm:"uniqueIndex;size:255"`
	PasswordHash    string `gorm:"size:255"`
	Phone           string `gorm:"size:32"`
	FullName        string `gorm:"size:255"`
	CompanyName     string `gorm:"size:255;index"`
	CompanyWebsite  string `gorm:"size:512"`
	Designation     string `gorm:"size:128"`
	PhotoKey        string `gorm:"size:512"`
	ProfileComplete bool   `gorm:"default:false"`
	IsAdmin         bool   `gorm:"default:false;index"`
	LastLogin       *time.Time
}

// Job is a posting owned by exactly one recruiter. EligibleBranches empty means
// every branch qualifies.
type Job struct {
	gorm.Model
	RecruiterID         uint      `gorm:"index"`
	Recruiter           Recruiter `gorm:"constraint:OnDelete:CASCADE"`
	Title               string    `gorm:"size:255"`
	Description         string    `gorm:"type:text"`
	CompanyName         string    `gorm:"size:255;index"`
	Location            string    `gorm:"size:255"`
	JobType             string    `gorm:"size:64"`
	SalaryRange         string    `gorm:"size:128"`
	MinCGPA             float64
	EligibleBranches    datatypes.JSONSlice[string]
	ApplicationDeadline time.Time
}

// Application links one student to one job, at most once per pair. Snapshot
// fields are copied at apply time so the record survives later profile edits.
type Application struct {
	gorm.Model
	JobID           uint    `gorm:"uniqueIndex:idx_app_job_student"`
	Job             Job     `gorm:"constraint:OnDelete:CASCADE"`
	StudentID       uint    `gorm:"uniqueIndex:idx_app_job_student"`
	Student         Student `gorm:"constraint:OnDelete:CASCADE"`
	Status          string  `gorm:"size:32;index"`
	StatusUpdatedAt time.Time
	StatusUpdatedBy uint
	StudentName     string `gorm:"size:255"`
	StudentEmail    string `gorm:"size:255"`
	StudentPhone    string `gorm:"size:32"`
	StudentBranch   string `gorm:"size:128"`
	StudentCGPA     float64
	JobTitle        string `gorm:"size:255"`
	CompanyName     string `gorm:"size:255"`
}

// Interview statuses and results. Result is set exactly once, when the
// interview moves from Scheduled to Completed.
const (
	InterviewScheduled = "Scheduled"
	InterviewCompleted = "Completed"

	ResultPass = "Pass"
	ResultFail = "Fail"
)

// Interview is owned by the system; an application may accumulate several.
type Interview struct {
	gorm.Model
	ApplicationID uint        `gorm:"index"`
	Application   Application `gorm:"constraint:OnDelete:CASCADE"`
	JobID         uint        `gorm:"index"`
	StudentID     uint        `gorm:"index"`
	RecruiterID   uint        `gorm:"index"`
	ScheduledAt   time.Time
	Location      string `gorm:"size:255"`
	Type          string `gorm:"size:64"`
	Details       string `gorm:"type:text"`
	Status        string `gorm:"size:32"`
	Result        string `gorm:"size:16"`
	Feedback      string `gorm:"type:text"`
	CompletedAt   *time.Time
	CompletedBy   uint
}

// Notification is created by lifecycle transitions and mutated only by the
// recipient marking it read.
type Notification struct {
	gorm.Model
	UserType string `gorm:"size:16;index:idx_notif_user"`
	UserID   uint   `gorm:"index:idx_notif_user"`
	Title    string `gorm:"size:255"`
	Message  string `gorm:"type:text"`
	Read     bool   `gorm:"default:false"`
}
