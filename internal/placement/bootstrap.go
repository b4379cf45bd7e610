package placement

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"careerbridge/internal/database"
)

// The portal must never run adminless once any account exists. Two mechanisms
// guarantee at least one administrator: a startup scan and a registration-time
// first-user check. They can race under concurrent first-time initialization;
// the guarantee is at-least-one, not exactly-one, and every promotion lands in
// the audit trail so a double promotion is visible.

// EnsureAdmin runs at process startup. If no account in either table holds the
// admin flag, the chronologically first-created account is promoted; when a
// student and a recruiter share the earliest timestamp, the student wins.
func (s *Service) EnsureAdmin(ctx context.Context) error {
	db := s.db.WithContext(ctx)

	var adminStudents, adminRecruiters int64
	if err := db.Model(&database.Student{}).Where("is_admin = ?", true).Count(&adminStudents).Error; err != nil {
		return fmt.Errorf("count admin students: %w", err)
	}
	if err := db.Model(&database.Recruiter{}).Where("is_admin = ?", true).Count(&adminRecruiters).Error; err != nil {
		return fmt.Errorf("count admin recruiters: %w", err)
	}
	if adminStudents+adminRecruiters > 0 {
		return nil
	}

	var firstStudent database.Student
	studentErr := db.Order("created_at ASC").First(&firstStudent).Error
	if studentErr != nil && !errors.Is(studentErr, gorm.ErrRecordNotFound) {
		return fmt.Errorf("find first student: %w", studentErr)
	}
	var firstRecruiter database.Recruiter
	recruiterErr := db.Order("created_at ASC").First(&firstRecruiter).Error
	if recruiterErr != nil && !errors.Is(recruiterErr, gorm.ErrRecordNotFound) {
		return fmt.Errorf("find first recruiter: %w", recruiterErr)
	}

	hasStudent := studentErr == nil
	hasRecruiter := recruiterErr == nil

	switch {
	case hasStudent && hasRecruiter:
		// Tie-break: equal timestamps promote the student.
		if !firstStudent.CreatedAt.After(firstRecruiter.CreatedAt) {
			return s.promoteStudent(ctx, &firstStudent)
		}
		return s.promoteRecruiter(ctx, &firstRecruiter)
	case hasStudent:
		return s.promoteStudent(ctx, &firstStudent)
	case hasRecruiter:
		return s.promoteRecruiter(ctx, &firstRecruiter)
	default:
		// Empty population; the registration path handles the first user.
		return nil
	}
}

// RegisterStudent inserts a new student account. The first account created
// across both tables becomes administrator; the count and the insert share one
// transaction so the check cannot observe its own insert.
func (s *Service) RegisterStudent(ctx context.Context, student *database.Student) (promoted bool, err error) {
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		first, err := noUsersExist(tx)
		if err != nil {
			return err
		}
		student.IsAdmin = student.IsAdmin || first
		promoted = first
		if err := tx.Create(student).Error; err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	if promoted {
		s.auditEvent("admin_creation",
			fmt.Sprintf("Student %s (%s) automatically promoted to admin as first user", student.Username, student.Email))
	}
	return promoted, nil
}

// RegisterRecruiter mirrors RegisterStudent for the recruiter table.
func (s *Service) RegisterRecruiter(ctx context.Context, recruiter *database.Recruiter) (promoted bool, err error) {
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		first, err := noUsersExist(tx)
		if err != nil {
			return err
		}
		recruiter.IsAdmin = recruiter.IsAdmin || first
		promoted = first
		if err := tx.Create(recruiter).Error; err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	if promoted {
		s.auditEvent("admin_creation",
			fmt.Sprintf("Recruiter %s (%s) automatically promoted to admin as first user", recruiter.Username, recruiter.Email))
	}
	return promoted, nil
}

func noUsersExist(tx *gorm.DB) (bool, error) {
	var students, recruiters int64
	if err := tx.Model(&database.Student{}).Count(&students).Error; err != nil {
		return false, fmt.Errorf("count students: %w", err)
	}
	if err := tx.Model(&database.Recruiter{}).Count(&recruiters).Error; err != nil {
		return false, fmt.Errorf("count recruiters: %w", err)
	}
	return students == 0 && recruiters == 0, nil
}

func (s *Service) promoteStudent(ctx context.Context, student *database.Student) error {
	if err := s.db.WithContext(ctx).Model(student).Update("is_admin", true).Error; err != nil {
		return fmt.Errorf("promote student: %w", err)
	}
	s.auditEvent("admin_creation",
		fmt.Sprintf("Student %s automatically promoted to admin as first user", student.Email))
	return nil
}

func (s *Service) promoteRecruiter(ctx context.Context, recruiter *database.Recruiter) error {
	if err := s.db.WithContext(ctx).Model(recruiter).Update("is_admin", true).Error; err != nil {
		return fmt.Errorf("promote recruiter: %w", err)
	}
	s.auditEvent("admin_creation",
		fmt.Sprintf("Recruiter %s automatically promoted to admin as first user", recruiter.Email))
	return nil
}

func (s *Service) auditEvent(eventType, message string) {
	if s.audit != nil {
		s.audit.Event(eventType, message)
	}
}
