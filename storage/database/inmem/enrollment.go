package inmem

import (
	"context"
	"sort"

	"github.com/trezcool/shule/core/enrollment"
)

type enrollmentRepository struct {
	db *DB
}

var _ enrollment.Repository = (*enrollmentRepository)(nil)

func NewEnrollmentRepository(db *DB) enrollment.Repository {
	return &enrollmentRepository{db: db}
}

func (repo *enrollmentRepository) GetSubjectByNameAndGrade(_ context.Context, name, gradeLevel string) (enrollment.Subject, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	for _, subj := range repo.db.subjects {
		if subj.Name == name && subj.GradeLevel == gradeLevel {
			return subj, nil
		}
	}
	return enrollment.Subject{}, enrollment.ErrSubjectNotFound
}

func (repo *enrollmentRepository) CreateEnrollment(_ context.Context, enr enrollment.Enrollment) (enrollment.Enrollment, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	repo.db.enrollments[enr.ID] = enr
	return enr, nil
}

func (repo *enrollmentRepository) ListEnrollmentsByStudent(_ context.Context, studentID string) ([]enrollment.Enrollment, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	enrs := make([]enrollment.Enrollment, 0)
	for _, enr := range repo.db.enrollments {
		if enr.StudentID == studentID {
			enrs = append(enrs, enr)
		}
	}
	sort.Slice(enrs, func(i, j int) bool { return enrs[i].EnrolledAt.Before(enrs[j].EnrolledAt) })
	return enrs, nil
}
