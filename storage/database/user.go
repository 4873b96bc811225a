package database

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/shule/core/user"
)

const uniqueViolation = "23505"

type userRow struct {
	ID                        string      `db:"id"`
	Role                      string      `db:"role"`
	Name                      string      `db:"name"`
	Email                     string      `db:"email"`
	IsActive                  bool        `db:"is_active"`
	EmailVerified             bool        `db:"email_verified"`
	PasswordHash              []byte      `db:"password_hash"`
	CreatedAt                 time.Time   `db:"created_at"`
	UpdatedAt                 time.Time   `db:"updated_at"`
	LastLogin                 time.Time   `db:"last_login"`
	PasswordResetTokenHash    null.String `db:"password_reset_token_hash"`
	PasswordResetTokenExpires null.Time   `db:"password_reset_token_expires"`
	EmailVerifyTokenHash      null.String `db:"email_verify_token_hash"`
	EmailVerifyTokenExpires   null.Time   `db:"email_verify_token_expires"`
}

func (r userRow) toModel() user.User {
	return user.User{
		ID:                        r.ID,
		Role:                      r.Role,
		Name:                      r.Name,
		Email:                     r.Email,
		IsActive:                  r.IsActive,
		EmailVerified:             r.EmailVerified,
		PasswordHash:              r.PasswordHash,
		CreatedAt:                 r.CreatedAt,
		UpdatedAt:                 r.UpdatedAt,
		LastLogin:                 r.LastLogin,
		PasswordResetTokenHash:    r.PasswordResetTokenHash,
		PasswordResetTokenExpires: r.PasswordResetTokenExpires,
		EmailVerifyTokenHash:      r.EmailVerifyTokenHash,
		EmailVerifyTokenExpires:   r.EmailVerifyTokenExpires,
	}
}

func newUserRow(usr user.User) userRow {
	return userRow{
		ID:                        usr.ID,
		Role:                      usr.Role,
		Name:                      usr.Name,
		Email:                     usr.Email,
		IsActive:                  usr.IsActive,
		EmailVerified:             usr.EmailVerified,
		PasswordHash:              usr.PasswordHash,
		CreatedAt:                 usr.CreatedAt,
		UpdatedAt:                 usr.UpdatedAt,
		LastLogin:                 usr.LastLogin,
		PasswordResetTokenHash:    usr.PasswordResetTokenHash,
		PasswordResetTokenExpires: usr.PasswordResetTokenExpires,
		EmailVerifyTokenHash:      usr.EmailVerifyTokenHash,
		EmailVerifyTokenExpires:   usr.EmailVerifyTokenExpires,
	}
}

type studentProfileRow struct {
	UserID     string      `db:"user_id"`
	GradeLevel string      `db:"grade_level"`
	ParentID   null.String `db:"parent_id"`
}

type userRepository struct {
	db *sqlx.DB
}

var _ user.Repository = (*userRepository)(nil)

func NewUserRepository(db *sqlx.DB) user.Repository {
	return &userRepository{db: db}
}

func (repo *userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	if usr.ID == "" {
		usr.ID = uuid.New().String()
	}

	const q = `
INSERT INTO users (
	id, role, name, email, is_active, email_verified, password_hash, created_at, updated_at, last_login,
	password_reset_token_hash, password_reset_token_expires, email_verify_token_hash, email_verify_token_expires
) VALUES (
	:id, :role, :name, :email, :is_active, :email_verified, :password_hash, :created_at, :updated_at, :last_login,
	:password_reset_token_hash, :password_reset_token_expires, :email_verify_token_hash, :email_verify_token_expires
)`
	if _, err := repo.db.NamedExecContext(ctx, q, newUserRow(usr)); err != nil {
		if pqErr, ok := errors.Cause(err).(*pq.Error); ok && pqErr.Code == uniqueViolation {
			return user.User{}, user.ErrEmailExists
		}
		return user.User{}, err
	}

	switch {
	case usr.Student != nil:
		const sq = `INSERT INTO student_profiles (user_id, grade_level, parent_id) VALUES ($1, $2, $3)`
		if _, err := repo.db.ExecContext(ctx, sq, usr.ID, usr.Student.GradeLevel, usr.Student.ParentID); err != nil {
			return user.User{}, errors.Wrap(err, "creating student profile")
		}
	case usr.Tutor != nil:
		const tq = `INSERT INTO tutor_profiles (user_id, subjects) VALUES ($1, $2)`
		if _, err := repo.db.ExecContext(ctx, tq, usr.ID, pq.StringArray(usr.Tutor.Subjects)); err != nil {
			return user.User{}, errors.Wrap(err, "creating tutor profile")
		}
	}
	return usr, nil
}

func (repo *userRepository) getOne(ctx context.Context, q string, args ...interface{}) (user.User, error) {
	var row userRow
	if err := repo.db.GetContext(ctx, &row, q, args...); err != nil {
		if err == sql.ErrNoRows {
			return user.User{}, user.ErrNotFound
		}
		return user.User{}, promoteErr(err)
	}
	usr := row.toModel()
	if err := repo.loadProfile(ctx, &usr); err != nil {
		return user.User{}, err
	}
	return usr, nil
}

func (repo *userRepository) loadProfile(ctx context.Context, usr *user.User) error {
	switch usr.Role {
	case user.RoleStudent:
		var row studentProfileRow
		err := repo.db.GetContext(ctx, &row, `SELECT * FROM student_profiles WHERE user_id = $1`, usr.ID)
		if err != nil && err != sql.ErrNoRows {
			return errors.Wrap(err, "loading student profile")
		}
		profile := &user.StudentProfile{GradeLevel: row.GradeLevel, ParentID: row.ParentID}
		const sq = `SELECT subject_id FROM student_subjects WHERE student_id = $1 ORDER BY subject_id`
		if err = repo.db.SelectContext(ctx, &profile.SubjectIDs, sq, usr.ID); err != nil {
			return errors.Wrap(err, "loading student subjects")
		}
		usr.Student = profile

	case user.RoleTutor:
		var subjects pq.StringArray
		err := repo.db.GetContext(ctx, &subjects, `SELECT subjects FROM tutor_profiles WHERE user_id = $1`, usr.ID)
		if err != nil && err != sql.ErrNoRows {
			return errors.Wrap(err, "loading tutor profile")
		}
		usr.Tutor = &user.TutorProfile{Subjects: subjects}

	case user.RoleParent:
		profile := &user.ParentProfile{}
		const cq = `SELECT user_id FROM student_profiles WHERE parent_id = $1 ORDER BY user_id`
		if err := repo.db.SelectContext(ctx, &profile.ChildIDs, cq, usr.ID); err != nil {
			return errors.Wrap(err, "loading parent children")
		}
		usr.Parent = profile
	}
	return nil
}

func (repo *userRepository) GetUserByID(ctx context.Context, id string) (user.User, error) {
	return repo.getOne(ctx, `SELECT * FROM users WHERE id = $1`, id)
}

func (repo *userRepository) GetUserByEmail(ctx context.Context, email string) (user.User, error) {
	return repo.getOne(ctx, `SELECT * FROM users WHERE email = $1`, email)
}

func (repo *userRepository) GetUserByPasswordResetToken(ctx context.Context, hash string, now time.Time) (user.User, error) {
	const q = `SELECT * FROM users WHERE password_reset_token_hash = $1 AND password_reset_token_expires > $2`
	return repo.getOne(ctx, q, hash, now)
}

func (repo *userRepository) GetUserByEmailVerifyToken(ctx context.Context, hash string, now time.Time) (user.User, error) {
	const q = `SELECT * FROM users WHERE email_verify_token_hash = $1 AND email_verify_token_expires > $2`
	return repo.getOne(ctx, q, hash, now)
}

func (repo *userRepository) UpdateUser(ctx context.Context, usr user.User) (user.User, error) {
	const q = `
UPDATE users SET
	name = :name,
	email = :email,
	is_active = :is_active,
	email_verified = :email_verified,
	password_hash = :password_hash,
	updated_at = :updated_at,
	password_reset_token_hash = :password_reset_token_hash,
	password_reset_token_expires = :password_reset_token_expires,
	email_verify_token_hash = :email_verify_token_hash,
	email_verify_token_expires = :email_verify_token_expires
WHERE id = :id`
	res, err := repo.db.NamedExecContext(ctx, q, newUserRow(usr))
	if err != nil {
		if pqErr, ok := errors.Cause(err).(*pq.Error); ok && pqErr.Code == uniqueViolation {
			return user.User{}, user.ErrEmailExists
		}
		return user.User{}, err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return user.User{}, user.ErrNotFound
	}

	if usr.Student != nil {
		const sq = `UPDATE student_profiles SET grade_level = $1, parent_id = $2 WHERE user_id = $3`
		if _, err = repo.db.ExecContext(ctx, sq, usr.Student.GradeLevel, usr.Student.ParentID, usr.ID); err != nil {
			return user.User{}, errors.Wrap(err, "updating student profile")
		}
	}
	return usr, nil
}

func (repo *userRepository) SetUserLastLogin(ctx context.Context, id string, t time.Time) (user.User, error) {
	const q = `UPDATE users SET last_login = $1 WHERE id = $2`
	if _, err := repo.db.ExecContext(ctx, q, t, id); err != nil {
		return user.User{}, errors.Wrap(err, "setting last login")
	}
	return repo.GetUserByID(ctx, id)
}

func (repo *userRepository) SetStudentSubjects(ctx context.Context, userID string, subjectIDs []string) error {
	if _, err := repo.db.ExecContext(ctx, `DELETE FROM student_subjects WHERE student_id = $1`, userID); err != nil {
		return errors.Wrap(err, "clearing student subjects")
	}
	const q = `INSERT INTO student_subjects (student_id, subject_id) VALUES ($1, $2)`
	for _, subjectID := range subjectIDs {
		if _, err := repo.db.ExecContext(ctx, q, userID, subjectID); err != nil {
			return errors.Wrap(err, "adding student subject")
		}
	}
	return nil
}

func (repo *userRepository) LinkParentChild(ctx context.Context, parentID, childID string) error {
	const q = `UPDATE student_profiles SET parent_id = $1 WHERE user_id = $2`
	res, err := repo.db.ExecContext(ctx, q, parentID, childID)
	if err != nil {
		return errors.Wrap(err, "linking parent and child")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return user.ErrNotFound
	}
	return nil
}
