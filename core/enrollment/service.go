package enrollment

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core/user"
)

var (
	// errors
	ErrInvalidGradeLevel = errors.New("invalid grade level")
	ErrSubjectNotFound   = errors.New("subject not found")

	nowFunc = time.Now // mockable
)

type (
	Repository interface {
		GetSubjectByNameAndGrade(ctx context.Context, name, gradeLevel string) (Subject, error)
		CreateEnrollment(ctx context.Context, enr Enrollment) (Enrollment, error)
		ListEnrollmentsByStudent(ctx context.Context, studentID string) ([]Enrollment, error)
	}

	Service interface {
		// EnrollStudentForGrade subscribes a student to the canonical subject list
		// for their grade and returns the resolved subject IDs.
		EnrollStudentForGrade(ctx context.Context, studentID, gradeLevel string) ([]string, error)
		ListByStudent(ctx context.Context, studentID string) ([]Enrollment, error)
	}

	service struct {
		repo     Repository
		userRepo user.Repository
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, userRepo user.Repository) Service {
	return &service{repo: repo, userRepo: userRepo}
}

// EnrollStudentForGrade resolves the fixed subject list for the grade, creates one
// active enrollment per subject for the current academic year, and overwrites the
// student's subject collection with the resolved subject IDs.
//
// An unknown grade level aborts before any write. A failure partway through the
// subject loop leaves prior enrollments committed; the subject collection is only
// written after the full loop succeeds.
func (svc *service) EnrollStudentForGrade(ctx context.Context, studentID, gradeLevel string) ([]string, error) {
	names, ok := CanonicalSubjects(gradeLevel)
	if !ok {
		return nil, ErrInvalidGradeLevel
	}

	now := nowFunc().UTC()
	year := AcademicYear(now)
	subjectIDs := make([]string, 0, len(names))
	for _, name := range names {
		subj, err := svc.repo.GetSubjectByNameAndGrade(ctx, name, gradeLevel)
		if err != nil {
			return nil, errors.Wrapf(err, "resolving subject %q for %s", name, gradeLevel)
		}
		enr := Enrollment{
			ID:           uuid.NewString(),
			StudentID:    studentID,
			SubjectID:    subj.ID,
			AcademicYear: year,
			Status:       StatusActive,
			EnrolledAt:   now,
		}
		if _, err = svc.repo.CreateEnrollment(ctx, enr); err != nil {
			return nil, errors.Wrapf(err, "enrolling into %q", name)
		}
		subjectIDs = append(subjectIDs, subj.ID)
	}

	if err := svc.userRepo.SetStudentSubjects(ctx, studentID, subjectIDs); err != nil {
		return nil, errors.Wrap(err, "saving student subjects")
	}
	return subjectIDs, nil
}

func (svc *service) ListByStudent(ctx context.Context, studentID string) ([]Enrollment, error) {
	return svc.repo.ListEnrollmentsByStudent(ctx, studentID)
}
