package enrollment_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/shule/core/enrollment"
	"github.com/trezcool/shule/core/user"
	"github.com/trezcool/shule/storage/database/inmem"
)

func newTestStudent(t *testing.T, repo user.Repository, gradeLevel string) user.User {
	t.Helper()
	now := time.Now().UTC()
	usr, err := repo.CreateUser(context.Background(), user.User{
		Role:      user.RoleStudent,
		Name:      "Aisha Mwangi",
		Email:     "aisha@example.com",
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
		Student:   &user.StudentProfile{GradeLevel: gradeLevel},
	})
	require.NoError(t, err)
	return usr
}

func TestEnrollStudentForGrade(t *testing.T) {
	db := inmem.NewDB()
	usrRepo := inmem.NewUserRepository(db)
	svc := enrollment.NewService(inmem.NewEnrollmentRepository(db), usrRepo)
	ctx := context.Background()

	usr := newTestStudent(t, usrRepo, "grade-9")

	subjectIDs, err := svc.EnrollStudentForGrade(ctx, usr.ID, "grade-9")
	require.NoError(t, err)
	assert.Len(t, subjectIDs, 7) // upper grades carry the science list

	enrs, err := svc.ListByStudent(ctx, usr.ID)
	require.NoError(t, err)
	require.Len(t, enrs, 7)

	year := enrollment.AcademicYear(time.Now().UTC())
	for _, enr := range enrs {
		assert.Equal(t, usr.ID, enr.StudentID)
		assert.Equal(t, enrollment.StatusActive, enr.Status)
		assert.Equal(t, year, enr.AcademicYear)
	}

	// the student's subject collection mirrors the enrollments
	got, err := usrRepo.GetUserByID(ctx, usr.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, subjectIDs, got.Student.SubjectIDs)
}

func TestEnrollStudentForGradeUnknownGrade(t *testing.T) {
	db := inmem.NewDB()
	usrRepo := inmem.NewUserRepository(db)
	svc := enrollment.NewService(inmem.NewEnrollmentRepository(db), usrRepo)
	ctx := context.Background()

	usr := newTestStudent(t, usrRepo, "grade-13")

	_, err := svc.EnrollStudentForGrade(ctx, usr.ID, "grade-13")
	assert.Equal(t, enrollment.ErrInvalidGradeLevel, err)

	// nothing written
	enrs, err := svc.ListByStudent(ctx, usr.ID)
	require.NoError(t, err)
	assert.Empty(t, enrs)
}

func TestAcademicYear(t *testing.T) {
	got := enrollment.AcademicYear(time.Date(2026, time.September, 1, 0, 0, 0, 0, time.UTC))
	assert.Equal(t, "2026-2027", got)
}

func TestCanonicalSubjects(t *testing.T) {
	lower, ok := enrollment.CanonicalSubjects("grade-1")
	require.True(t, ok)
	assert.Len(t, lower, 5)
	assert.Contains(t, lower, "Art")

	middle, ok := enrollment.CanonicalSubjects("grade-5")
	require.True(t, ok)
	assert.Contains(t, middle, "ICT")

	upper, ok := enrollment.CanonicalSubjects("grade-12")
	require.True(t, ok)
	assert.Len(t, upper, 7)

	_, ok = enrollment.CanonicalSubjects("kindergarten")
	assert.False(t, ok)
}
