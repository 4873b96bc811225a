package application

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/shule/core"
)

// Application kinds.
const (
	KindStudent = "student"
	KindTutor   = "tutor"
)

// Application statuses. Transitions are forward-only except the compensating
// approved → pending edge taken when the invite email cannot be delivered.
const (
	StatusPending        = "pending"
	StatusApproved       = "approved"
	StatusRejected       = "rejected"
	StatusAccountCreated = "account_created"
)

type (
	// Application is a persisted request to join as a student or tutor,
	// distinct from the eventual account. Applications are never hard-deleted;
	// rejected and redeemed ones remain as an audit trail.
	Application struct {
		ID     string `db:"id" json:"id"`
		Kind   string `db:"kind" json:"kind"`
		Status string `db:"status" json:"status"`
		Name   string `db:"name" json:"name"`
		Email  string `db:"email" json:"email"` // applicant identity; immutable after creation

		// student applications only
		GradeLevel  null.String `db:"grade_level" json:"grade_level,omitempty"`
		ParentName  null.String `db:"parent_name" json:"parent_name,omitempty"`
		ParentEmail null.String `db:"parent_email" json:"parent_email,omitempty"`
		ParentPhone null.String `db:"parent_phone" json:"parent_phone,omitempty"`

		// tutor applications only
		Subjects []string `db:"-" json:"subjects,omitempty"`

		// outstanding invite secrets; each hash/expiry pair is set and cleared together.
		// The parent pair is a second, independent lifecycle on student applications.
		TokenHash          null.String `db:"token_hash" json:"-"`
		TokenExpires       null.Time   `db:"token_expires" json:"-"`
		ParentTokenHash    null.String `db:"parent_token_hash" json:"-"`
		ParentTokenExpires null.Time   `db:"parent_token_expires" json:"-"`

		RejectReason null.String `db:"reject_reason" json:"reject_reason,omitempty"`
		RejectedAt   null.Time   `db:"rejected_at" json:"rejected_at,omitempty"`

		CreatedAt time.Time `db:"created_at" json:"created_at"` // UTC
		UpdatedAt time.Time `db:"updated_at" json:"updated_at"` // UTC
	}
)

// IsTerminal reports whether no further workflow transition is possible.
func (a *Application) IsTerminal() bool {
	return a.Status == StatusRejected || a.Status == StatusAccountCreated
}

func (a *Application) clearApplicantToken() {
	a.TokenHash = null.String{}
	a.TokenExpires = null.Time{}
}

func (a *Application) clearParentToken() {
	a.ParentTokenHash = null.String{}
	a.ParentTokenExpires = null.Time{}
}

func (a *Application) clearTokens() {
	a.clearApplicantToken()
	a.clearParentToken()
}

// ParentContact is the parent/guardian contact block on a student application.
type ParentContact struct {
	Name  string `json:"name" validate:"required"`
	Email string `json:"email" validate:"omitempty,email"`
	Phone string `json:"phone" validate:"omitempty,phone"`
}

// NewStudentApplication contains information needed to submit a student application.
type NewStudentApplication struct {
	Name       string        `json:"name" validate:"required"`
	Email      string        `json:"email" validate:"required,email"`
	GradeLevel string        `json:"grade_level" validate:"required,gradelevel"`
	Parent     ParentContact `json:"parent" validate:"required"`
}

func (na *NewStudentApplication) Validate(validate *validator.Validate) error {
	na.Name = core.CleanString(na.Name)
	na.Email = core.CleanString(na.Email, true /* lower */)
	na.GradeLevel = core.CleanString(na.GradeLevel, true /* lower */)
	na.Parent.Name = core.CleanString(na.Parent.Name)
	na.Parent.Email = core.CleanString(na.Parent.Email, true /* lower */)
	na.Parent.Phone = core.CleanString(na.Parent.Phone)
	return validate.Struct(na)
}

// NewTutorApplication contains information needed to submit a tutor application.
type NewTutorApplication struct {
	Name     string   `json:"name" validate:"required"`
	Email    string   `json:"email" validate:"required,email"`
	Subjects []string `json:"subjects" validate:"required,min=1,dive,required"`
}

func (na *NewTutorApplication) Validate(validate *validator.Validate) error {
	na.Name = core.CleanString(na.Name)
	na.Email = core.CleanString(na.Email, true /* lower */)
	for i, s := range na.Subjects {
		na.Subjects[i] = core.CleanString(s)
	}
	return validate.Struct(na)
}

// RejectApplication carries the optional free-text rejection reason.
type RejectApplication struct {
	Reason string `json:"reason"`
}

// QueryFilter applies an AND operation on its set fields.
type QueryFilter struct {
	Kind        string    `query:"kind"`
	Status      string    `query:"status"`
	Search      string    `query:"search"` // case-insensitive match on name or email
	CreatedFrom time.Time `query:"created_from"`
	CreatedTo   time.Time `query:"created_to"`
}

func (qf *QueryFilter) Clean() {
	qf.Kind = core.CleanString(qf.Kind, true /* lower */)
	qf.Status = core.CleanString(qf.Status, true /* lower */)
	qf.Search = core.CleanString(qf.Search)
}
