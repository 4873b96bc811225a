package user

import (
	"context"
	"net/mail"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/token"
)

var (
	// errors
	ErrNotFound           = errors.New("user not found")
	ErrEmailExists        = errors.New("an account with this email already exists")
	ErrInvalidOrExpired   = errors.New("invalid or expired token")
	ErrAccountDeactivated = errors.New("account deactivated")
	ErrInvalidCredentials = errors.New("invalid credentials")

	nowFunc = time.Now // mockable
)

type (
	Repository interface {
		CreateUser(ctx context.Context, usr User) (User, error)
		GetUserByID(ctx context.Context, id string) (User, error)
		GetUserByEmail(ctx context.Context, email string) (User, error)
		UpdateUser(ctx context.Context, usr User) (User, error)
		SetUserLastLogin(ctx context.Context, id string, t time.Time) (User, error)
		SetStudentSubjects(ctx context.Context, userID string, subjectIDs []string) error
		LinkParentChild(ctx context.Context, parentID, childID string) error
		// GetUserByPasswordResetToken matches the token hash AND expiry > now in one predicate.
		GetUserByPasswordResetToken(ctx context.Context, hash string, now time.Time) (User, error)
		GetUserByEmailVerifyToken(ctx context.Context, hash string, now time.Time) (User, error)
	}

	Service interface {
		Create(ctx context.Context, na NewAccount) (User, error)
		GetByID(ctx context.Context, id string) (User, error)
		GetByEmail(ctx context.Context, email string) (User, error)
		Authenticate(ctx context.Context, email, pwd string) (User, error)
		LinkParentChild(ctx context.Context, parentID, childID string) error
		RequestPasswordReset(ctx context.Context, email string) error
		ResetPassword(ctx context.Context, rp ResetUserPassword) error
		RequestEmailVerification(ctx context.Context, email string) error
		VerifyEmail(ctx context.Context, rawToken string) error
	}

	service struct {
		repo    Repository
		mailSvc core.EmailService
		conf    *core.Config
		logger  core.Logger
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, mailSvc core.EmailService, conf *core.Config, logger core.Logger) Service {
	return &service{
		repo:    repo,
		mailSvc: mailSvc,
		conf:    conf,
		logger:  logger,
	}
}

// Create persists a new account with a hashed password. The caller is expected
// to have validated the payload; email uniqueness is enforced by the repository.
func (svc *service) Create(ctx context.Context, na NewAccount) (User, error) {
	now := nowFunc().UTC()
	usr := User{
		Role:          na.Role,
		Name:          na.Name,
		Email:         na.Email,
		IsActive:      true,
		EmailVerified: true, // the invite was delivered to this address
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	switch na.Role {
	case RoleStudent:
		usr.Student = &StudentProfile{GradeLevel: na.GradeLevel}
	case RoleTutor:
		usr.Tutor = &TutorProfile{Subjects: na.Subjects}
	case RoleParent:
		usr.Parent = &ParentProfile{}
	}
	if err := usr.SetPassword(na.Password); err != nil {
		return User{}, errors.Wrap(err, "hashing password")
	}
	return svc.repo.CreateUser(ctx, usr)
}

func (svc *service) GetByID(ctx context.Context, id string) (User, error) {
	return svc.repo.GetUserByID(ctx, id)
}

func (svc *service) GetByEmail(ctx context.Context, email string) (User, error) {
	return svc.repo.GetUserByEmail(ctx, core.CleanString(email, true /* lower */))
}

func (svc *service) Authenticate(ctx context.Context, email, pwd string) (User, error) {
	usr, err := svc.GetByEmail(ctx, email)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return User{}, ErrInvalidCredentials
		}
		return User{}, errors.Wrap(err, "finding user by email")
	}
	if err = usr.CheckPassword(pwd); err != nil {
		return User{}, ErrInvalidCredentials
	}
	if !usr.IsActive {
		return User{}, ErrAccountDeactivated
	}
	return svc.repo.SetUserLastLogin(ctx, usr.ID, nowFunc().UTC())
}

func (svc *service) LinkParentChild(ctx context.Context, parentID, childID string) error {
	return svc.repo.LinkParentChild(ctx, parentID, childID)
}

// RequestPasswordReset issues a short-lived reset token and emails the link.
func (svc *service) RequestPasswordReset(ctx context.Context, email string) error {
	usr, err := svc.GetByEmail(ctx, email)
	if err != nil {
		return err
	}

	raw, hash, err := token.Issue()
	if err != nil {
		return err
	}
	usr.PasswordResetTokenHash = null.StringFrom(hash)
	usr.PasswordResetTokenExpires = null.TimeFrom(nowFunc().UTC().Add(token.PurposePasswordReset.TTL(svc.conf)))
	usr.UpdatedAt = nowFunc().UTC()
	if usr, err = svc.repo.UpdateUser(ctx, usr); err != nil {
		return errors.Wrap(err, "saving reset token")
	}

	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: usr.Name, Address: usr.Email}},
		Subject:      "Password Reset",
		TemplateName: "password-reset",
		TemplateData: struct {
			Name  string
			Token string
		}{usr.Name, raw},
	})
	return nil
}

// ResetPassword redeems a reset token and installs the new password.
// A hash miss and an expired token are indistinguishable to the caller.
func (svc *service) ResetPassword(ctx context.Context, rp ResetUserPassword) error {
	usr, err := svc.repo.GetUserByPasswordResetToken(ctx, token.Hash(rp.Token), nowFunc().UTC())
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return ErrInvalidOrExpired
		}
		return errors.Wrap(err, "finding user by reset token")
	}

	if err = usr.SetPassword(rp.Password); err != nil {
		return errors.Wrap(err, "hashing password")
	}
	usr.PasswordResetTokenHash = null.String{}
	usr.PasswordResetTokenExpires = null.Time{}
	usr.UpdatedAt = nowFunc().UTC()
	if _, err = svc.repo.UpdateUser(ctx, usr); err != nil {
		return errors.Wrap(err, "saving new password")
	}
	return nil
}

// RequestEmailVerification issues a verification token for an unverified address.
func (svc *service) RequestEmailVerification(ctx context.Context, email string) error {
	usr, err := svc.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	if usr.EmailVerified {
		return nil
	}

	raw, hash, err := token.Issue()
	if err != nil {
		return err
	}
	usr.EmailVerifyTokenHash = null.StringFrom(hash)
	usr.EmailVerifyTokenExpires = null.TimeFrom(nowFunc().UTC().Add(token.PurposeEmailVerification.TTL(svc.conf)))
	usr.UpdatedAt = nowFunc().UTC()
	if usr, err = svc.repo.UpdateUser(ctx, usr); err != nil {
		return errors.Wrap(err, "saving verification token")
	}

	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: usr.Name, Address: usr.Email}},
		Subject:      "Verify Your Email",
		TemplateName: "email-verification",
		TemplateData: struct {
			Name  string
			Token string
		}{usr.Name, raw},
	})
	return nil
}

func (svc *service) VerifyEmail(ctx context.Context, rawToken string) error {
	usr, err := svc.repo.GetUserByEmailVerifyToken(ctx, token.Hash(rawToken), nowFunc().UTC())
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return ErrInvalidOrExpired
		}
		return errors.Wrap(err, "finding user by verification token")
	}

	usr.EmailVerified = true
	usr.EmailVerifyTokenHash = null.String{}
	usr.EmailVerifyTokenExpires = null.Time{}
	usr.UpdatedAt = nowFunc().UTC()
	if _, err = svc.repo.UpdateUser(ctx, usr); err != nil {
		return errors.Wrap(err, "saving verified email")
	}
	return nil
}
