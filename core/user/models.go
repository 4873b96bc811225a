package user

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"
	"golang.org/x/crypto/bcrypt"

	"github.com/trezcool/shule/core"
)

// Roles. An account is exactly one of these; role-specific data lives in the
// matching profile record.
const (
	RoleStudent = "student"
	RoleTutor   = "tutor"
	RoleParent  = "parent"
	RoleAdmin   = "admin"
)

var AllRoles = []string{RoleStudent, RoleTutor, RoleParent, RoleAdmin}

type (
	// StudentProfile holds the student-only account fields.
	StudentProfile struct {
		GradeLevel string      `db:"grade_level" json:"grade_level"`
		SubjectIDs []string    `db:"-" json:"subject_ids"`
		ParentID   null.String `db:"parent_id" json:"parent_id,omitempty"`
	}

	// TutorProfile holds the tutor-only account fields.
	TutorProfile struct {
		Subjects []string `db:"-" json:"subjects"`
	}

	// ParentProfile holds the parent-only account fields.
	ParentProfile struct {
		ChildIDs []string `db:"-" json:"child_ids"`
	}

	User struct {
		ID            string    `db:"id" json:"id"`
		Role          string    `db:"role" json:"role"`
		Name          string    `db:"name" json:"name"`
		Email         string    `db:"email" json:"email"`
		IsActive      bool      `db:"is_active" json:"is_active"`
		EmailVerified bool      `db:"email_verified" json:"email_verified"`
		PasswordHash  []byte    `db:"password_hash" json:"-"`
		CreatedAt     time.Time `db:"created_at" json:"created_at"` // UTC
		UpdatedAt     time.Time `db:"updated_at" json:"updated_at"` // UTC
		LastLogin     time.Time `db:"last_login" json:"last_login"` // UTC

		// exactly one of these is set, matching Role
		Student *StudentProfile `json:"student,omitempty"`
		Tutor   *TutorProfile   `json:"tutor,omitempty"`
		Parent  *ParentProfile  `json:"parent,omitempty"`

		// outstanding single-use secrets; hash and expiry are always set and cleared together
		PasswordResetTokenHash    null.String `db:"password_reset_token_hash" json:"-"`
		PasswordResetTokenExpires null.Time   `db:"password_reset_token_expires" json:"-"`
		EmailVerifyTokenHash      null.String `db:"email_verify_token_hash" json:"-"`
		EmailVerifyTokenExpires   null.Time   `db:"email_verify_token_expires" json:"-"`
	}
)

func (u *User) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	return nil
}

func (u *User) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(pwd))
}

func (u *User) IsStudent() bool { return u.Role == RoleStudent }
func (u *User) IsTutor() bool   { return u.Role == RoleTutor }
func (u *User) IsParent() bool  { return u.Role == RoleParent }
func (u *User) IsAdmin() bool   { return u.Role == RoleAdmin }

// NewAccount contains information needed to create a new account.
// Accounts are only ever created through invite redemption or ops tooling,
// never through an open registration endpoint.
type NewAccount struct {
	Role       string `json:"role" validate:"required,accountrole"`
	Name       string `json:"name" validate:"required"`
	Email      string `json:"email" validate:"required,email"`
	Password   string `json:"password" validate:"required"`
	GradeLevel string `json:"grade_level" validate:"required_if=Role student"`
	Subjects   []string
}

func (na *NewAccount) Validate(validate *validator.Validate) error {
	na.Name = core.CleanString(na.Name)
	na.Email = core.CleanString(na.Email, true /* lower */)
	return validate.Struct(na)
}

// SetUserPassword carries a chosen password plus its confirmation.
type SetUserPassword struct {
	Password        string `json:"password" validate:"required"`
	PasswordConfirm string `json:"password_confirm" validate:"required,eqfield=Password"`
}

func (sp SetUserPassword) Validate(validate *validator.Validate) error {
	return validate.Struct(sp)
}

// ResetUserPassword confirms a password reset using an emailed token.
type ResetUserPassword struct {
	Token           string `json:"token" validate:"required"`
	Password        string `json:"password" validate:"required"`
	PasswordConfirm string `json:"password_confirm" validate:"required,eqfield=Password"`
}

func (rp ResetUserPassword) Validate(validate *validator.Validate) error {
	return validate.Struct(rp)
}
