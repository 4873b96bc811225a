package database

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core/enrollment"
)

type enrollmentRepository struct {
	db *sqlx.DB
}

var _ enrollment.Repository = (*enrollmentRepository)(nil)

func NewEnrollmentRepository(db *sqlx.DB) enrollment.Repository {
	return &enrollmentRepository{db: db}
}

func (repo *enrollmentRepository) GetSubjectByNameAndGrade(ctx context.Context, name, gradeLevel string) (enrollment.Subject, error) {
	const q = `SELECT * FROM subjects WHERE name = $1 AND grade_level = $2`
	var subj enrollment.Subject
	if err := repo.db.GetContext(ctx, &subj, q, name, gradeLevel); err != nil {
		if err == sql.ErrNoRows {
			return enrollment.Subject{}, enrollment.ErrSubjectNotFound
		}
		return enrollment.Subject{}, err
	}
	return subj, nil
}

func (repo *enrollmentRepository) CreateEnrollment(ctx context.Context, enr enrollment.Enrollment) (enrollment.Enrollment, error) {
	const q = `
INSERT INTO enrollments (id, student_id, subject_id, academic_year, status, enrolled_at)
VALUES (:id, :student_id, :subject_id, :academic_year, :status, :enrolled_at)`
	if _, err := repo.db.NamedExecContext(ctx, q, enr); err != nil {
		return enrollment.Enrollment{}, errors.Wrap(err, "creating enrollment")
	}
	return enr, nil
}

func (repo *enrollmentRepository) ListEnrollmentsByStudent(ctx context.Context, studentID string) ([]enrollment.Enrollment, error) {
	const q = `SELECT * FROM enrollments WHERE student_id = $1 ORDER BY enrolled_at`
	enrs := make([]enrollment.Enrollment, 0)
	if err := repo.db.SelectContext(ctx, &enrs, q, studentID); err != nil {
		return nil, errors.Wrap(err, "listing enrollments")
	}
	return enrs, nil
}
