package application

import (
	"context"
	"net/mail"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/enrollment"
	"github.com/trezcool/shule/core/token"
	"github.com/trezcool/shule/core/user"
)

var (
	// errors
	ErrNotFound             = errors.New("application not found")
	ErrDuplicateApplication = errors.New("an application for this email is already in progress")
	ErrInvalidState         = errors.New("operation not allowed in the application's current state")
	ErrMissingContactInfo   = errors.New("a required contact email address is missing")
	ErrAccountAlreadyExists = errors.New("an account with this email already exists")
	// ErrInvalidOrExpiredToken deliberately does not distinguish a wrong token
	// from an expired or already-consumed one.
	ErrInvalidOrExpiredToken = errors.New("invalid or expired token")
	ErrNotificationFailed    = errors.New("the notification email could not be sent")

	defaultRejectReason = "We regret to inform you that your application was not successful at this time."

	nowFunc = time.Now // mockable
)

// notifyFailurePolicy decides what a failed email send does to the operation
// that triggered it.
type notifyFailurePolicy int

const (
	// notifySwallow logs the failure and lets the operation succeed.
	notifySwallow notifyFailurePolicy = iota
	// notifyRollback propagates the failure so the caller can compensate.
	notifyRollback
)

type (
	Repository interface {
		CreateApplication(ctx context.Context, app Application) (Application, error)
		GetApplicationByID(ctx context.Context, id string) (Application, error)
		// GetActiveApplicationByEmail finds a pending or approved application for the email.
		GetActiveApplicationByEmail(ctx context.Context, email string) (Application, error)
		// GetApplicationByToken matches the applicant token hash AND expiry > now in one predicate.
		GetApplicationByToken(ctx context.Context, hash string, now time.Time) (Application, error)
		// GetApplicationByParentToken is the same lookup against the parent token pair.
		GetApplicationByParentToken(ctx context.Context, hash string, now time.Time) (Application, error)
		UpdateApplication(ctx context.Context, app Application) (Application, error)
		FilterApplications(ctx context.Context, filter QueryFilter) ([]Application, error)
	}

	Service interface {
		SubmitStudent(ctx context.Context, na NewStudentApplication) (Application, error)
		SubmitTutor(ctx context.Context, na NewTutorApplication) (Application, error)
		GetByID(ctx context.Context, id string) (Application, error)
		Filter(ctx context.Context, filter QueryFilter) ([]Application, error)
		Approve(ctx context.Context, id string) (Application, error)
		Reject(ctx context.Context, id, reason string) (Application, error)
		RedeemStudent(ctx context.Context, rawToken, password string) (user.User, error)
		RedeemTutor(ctx context.Context, rawToken, password string) (user.User, error)
		RedeemParent(ctx context.Context, rawToken, password string) (user.User, error)
	}

	service struct {
		repo    Repository
		usrSvc  user.Service
		enrSvc  enrollment.Service
		mailSvc core.EmailService
		conf    *core.Config
		logger  core.Logger
	}
)

var _ Service = (*service)(nil)

func NewService(
	repo Repository,
	usrSvc user.Service,
	enrSvc enrollment.Service,
	mailSvc core.EmailService,
	conf *core.Config,
	logger core.Logger,
) Service {
	return &service{
		repo:    repo,
		usrSvc:  usrSvc,
		enrSvc:  enrSvc,
		mailSvc: mailSvc,
		conf:    conf,
		logger:  logger,
	}
}

// notify sends messages synchronously, applying a single failure policy to all of them.
func (svc *service) notify(policy notifyFailurePolicy, messages ...*core.EmailMessage) error {
	for _, msg := range messages {
		if err := svc.mailSvc.Send(msg); err != nil {
			if policy == notifyRollback {
				return errors.Wrap(err, "sending notification")
			}
			svc.logger.Error("sending notification", err)
		}
	}
	return nil
}

// checkDuplicate rejects a submission when a non-terminal application already
// exists for the email.
func (svc *service) checkDuplicate(ctx context.Context, email string) error {
	if _, err := svc.repo.GetActiveApplicationByEmail(ctx, email); err == nil {
		return ErrDuplicateApplication
	} else if errors.Cause(err) != ErrNotFound {
		return errors.Wrap(err, "checking for active application")
	}
	return nil
}

func (svc *service) SubmitStudent(ctx context.Context, na NewStudentApplication) (Application, error) {
	if err := svc.checkDuplicate(ctx, na.Email); err != nil {
		return Application{}, err
	}

	now := nowFunc().UTC()
	app := Application{
		ID:          uuid.NewString(),
		Kind:        KindStudent,
		Status:      StatusPending,
		Name:        na.Name,
		Email:       na.Email,
		GradeLevel:  null.StringFrom(na.GradeLevel),
		ParentName:  null.StringFrom(na.Parent.Name),
		ParentEmail: null.NewString(na.Parent.Email, na.Parent.Email != ""),
		ParentPhone: null.NewString(na.Parent.Phone, na.Parent.Phone != ""),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	app, err := svc.repo.CreateApplication(ctx, app)
	if err != nil {
		return Application{}, errors.Wrap(err, "creating student application")
	}

	// submission must never be blocked by notification infrastructure
	msgs := []*core.EmailMessage{{
		To:           []mail.Address{{Name: app.Name, Address: app.Email}},
		Subject:      "Application Received",
		TemplateName: "application-received",
		TemplateData: appMailData(app),
	}}
	if app.ParentEmail.Valid {
		msgs = append(msgs, &core.EmailMessage{
			To:           []mail.Address{{Name: app.ParentName.String, Address: app.ParentEmail.String}},
			Subject:      "Student Application Submitted",
			TemplateName: "parent-notice",
			TemplateData: appMailData(app),
		})
	}
	_ = svc.notify(notifySwallow, msgs...)

	return app, nil
}

func (svc *service) SubmitTutor(ctx context.Context, na NewTutorApplication) (Application, error) {
	if err := svc.checkDuplicate(ctx, na.Email); err != nil {
		return Application{}, err
	}

	now := nowFunc().UTC()
	app := Application{
		ID:        uuid.NewString(),
		Kind:      KindTutor,
		Status:    StatusPending,
		Name:      na.Name,
		Email:     na.Email,
		Subjects:  na.Subjects,
		CreatedAt: now,
		UpdatedAt: now,
	}
	app, err := svc.repo.CreateApplication(ctx, app)
	if err != nil {
		return Application{}, errors.Wrap(err, "creating tutor application")
	}

	_ = svc.notify(notifySwallow, &core.EmailMessage{
		To:           []mail.Address{{Name: app.Name, Address: app.Email}},
		Subject:      "Application Received",
		TemplateName: "application-received",
		TemplateData: appMailData(app),
	})

	return app, nil
}

func (svc *service) GetByID(ctx context.Context, id string) (Application, error) {
	return svc.repo.GetApplicationByID(ctx, id)
}

func (svc *service) Filter(ctx context.Context, filter QueryFilter) ([]Application, error) {
	return svc.repo.FilterApplications(ctx, filter)
}

// Approve transitions pending → approved, issuing the invite token(s) and
// emailing the account-creation link(s).
//
// The approved state and token hashes are persisted before the send; a failed
// send triggers the compensating action: the application reverts to pending
// and both token pairs are cleared. A crash between the persist and the
// compensation can leave a live token on a pending application; the token
// lookup conditions on the hash alone, so such a token remains redeemable
// until it expires. This window is accepted.
func (svc *service) Approve(ctx context.Context, id string) (Application, error) {
	app, err := svc.repo.GetApplicationByID(ctx, id)
	if err != nil {
		return Application{}, err
	}
	if app.Status != StatusPending {
		return Application{}, ErrInvalidState
	}
	if app.Email == "" {
		return Application{}, ErrMissingContactInfo
	}
	if app.Kind == KindStudent && app.ParentEmail.String == "" {
		return Application{}, ErrMissingContactInfo
	}

	now := nowFunc().UTC()
	expires := now.Add(token.PurposeAccountInvite.TTL(svc.conf))

	rawToken, hash, err := token.Issue()
	if err != nil {
		return Application{}, err
	}
	app.TokenHash = null.StringFrom(hash)
	app.TokenExpires = null.TimeFrom(expires)

	var rawParentToken string
	if app.Kind == KindStudent {
		var parentHash string
		if rawParentToken, parentHash, err = token.Issue(); err != nil {
			return Application{}, err
		}
		app.ParentTokenHash = null.StringFrom(parentHash)
		app.ParentTokenExpires = null.TimeFrom(expires)
	}

	app.Status = StatusApproved
	app.UpdatedAt = now
	if app, err = svc.repo.UpdateApplication(ctx, app); err != nil {
		return Application{}, errors.Wrap(err, "saving approved application")
	}

	msgs := []*core.EmailMessage{{
		To:           []mail.Address{{Name: app.Name, Address: app.Email}},
		Subject:      "Your Application Was Approved",
		TemplateName: "account-invite",
		TemplateData: inviteMailData(app, app.Kind, rawToken),
	}}
	if app.Kind == KindStudent {
		msgs = append(msgs, &core.EmailMessage{
			To:           []mail.Address{{Name: app.ParentName.String, Address: app.ParentEmail.String}},
			Subject:      "Create Your Parent Account",
			TemplateName: "parent-invite",
			TemplateData: inviteMailData(app, user.RoleParent, rawParentToken),
		})
	}
	if err = svc.notify(notifyRollback, msgs...); err != nil {
		// compensating action: an approval without a delivered invite is worse
		// than a reverted approval
		app.Status = StatusPending
		app.clearTokens()
		app.UpdatedAt = nowFunc().UTC()
		if _, rbErr := svc.repo.UpdateApplication(ctx, app); rbErr != nil {
			svc.logger.Error("rolling back failed approval", rbErr)
		}
		return Application{}, ErrNotificationFailed
	}

	return app, nil
}

// Reject transitions pending|approved → rejected, recording the reason and
// clearing any outstanding invite.
func (svc *service) Reject(ctx context.Context, id, reason string) (Application, error) {
	app, err := svc.repo.GetApplicationByID(ctx, id)
	if err != nil {
		return Application{}, err
	}
	if app.IsTerminal() {
		return Application{}, ErrInvalidState
	}

	if reason = core.CleanString(reason); reason == "" {
		reason = defaultRejectReason
	}
	now := nowFunc().UTC()
	app.Status = StatusRejected
	app.RejectReason = null.StringFrom(reason)
	app.RejectedAt = null.TimeFrom(now)
	app.clearTokens()
	app.UpdatedAt = now
	if app, err = svc.repo.UpdateApplication(ctx, app); err != nil {
		return Application{}, errors.Wrap(err, "saving rejected application")
	}

	_ = svc.notify(notifySwallow, &core.EmailMessage{
		To:           []mail.Address{{Name: app.Name, Address: app.Email}},
		Subject:      "Your Application Status",
		TemplateName: "application-rejected",
		TemplateData: struct {
			Name   string
			Reason string
		}{app.Name, reason},
	})

	return app, nil
}

func (svc *service) RedeemStudent(ctx context.Context, rawToken, password string) (user.User, error) {
	return svc.redeemApplicant(ctx, KindStudent, rawToken, password)
}

func (svc *service) RedeemTutor(ctx context.Context, rawToken, password string) (user.User, error) {
	return svc.redeemApplicant(ctx, KindTutor, rawToken, password)
}

// redeemApplicant exchanges a live applicant invite token plus a chosen
// password for a new account, then marks the application account_created.
//
// Account creation deliberately precedes the application-status write: a
// failure in between leaves the application approved with a token that can no
// longer be redeemed (the next attempt hits ErrAccountAlreadyExists), never a
// silent double-create.
func (svc *service) redeemApplicant(ctx context.Context, kind, rawToken, password string) (user.User, error) {
	now := nowFunc().UTC()
	app, err := svc.repo.GetApplicationByToken(ctx, token.Hash(rawToken), now)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return user.User{}, ErrInvalidOrExpiredToken
		}
		return user.User{}, errors.Wrap(err, "finding application by token")
	}
	if app.Kind != kind {
		return user.User{}, ErrInvalidOrExpiredToken
	}

	if err = svc.checkNoAccount(ctx, app.Email); err != nil {
		return user.User{}, err
	}

	na := user.NewAccount{
		Role:       kind, // application kinds are account roles
		Name:       app.Name,
		Email:      app.Email,
		Password:   password,
		GradeLevel: app.GradeLevel.String,
		Subjects:   app.Subjects,
	}
	usr, err := svc.usrSvc.Create(ctx, na)
	if err != nil {
		if errors.Cause(err) == user.ErrEmailExists {
			return user.User{}, ErrAccountAlreadyExists
		}
		return user.User{}, errors.Wrap(err, "creating account")
	}

	if kind == KindStudent {
		if _, err = svc.enrSvc.EnrollStudentForGrade(ctx, usr.ID, app.GradeLevel.String); err != nil {
			// the account exists; the application stays approved and the next
			// redemption attempt terminates on ErrAccountAlreadyExists
			return user.User{}, errors.Wrap(err, "enrolling student")
		}
		// covers a parent account that was redeemed before the student's
		if parent, pErr := svc.usrSvc.GetByEmail(ctx, app.ParentEmail.String); pErr == nil && parent.IsParent() {
			if lErr := svc.usrSvc.LinkParentChild(ctx, parent.ID, usr.ID); lErr != nil {
				svc.logger.Error("linking parent and student", lErr)
			}
		}
	}

	app.clearApplicantToken()
	app.Status = StatusAccountCreated
	app.UpdatedAt = nowFunc().UTC()
	if _, err = svc.repo.UpdateApplication(ctx, app); err != nil {
		return user.User{}, errors.Wrap(err, "saving redeemed application")
	}

	return usr, nil
}

// RedeemParent exchanges a live parent invite token for a parent account and
// links it to the student account if one already exists. The application's
// status is owned by the applicant lifecycle and is not touched here.
func (svc *service) RedeemParent(ctx context.Context, rawToken, password string) (user.User, error) {
	now := nowFunc().UTC()
	app, err := svc.repo.GetApplicationByParentToken(ctx, token.Hash(rawToken), now)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return user.User{}, ErrInvalidOrExpiredToken
		}
		return user.User{}, errors.Wrap(err, "finding application by parent token")
	}

	if err = svc.checkNoAccount(ctx, app.ParentEmail.String); err != nil {
		return user.User{}, err
	}

	na := user.NewAccount{
		Role:     user.RoleParent,
		Name:     app.ParentName.String,
		Email:    app.ParentEmail.String,
		Password: password,
	}
	usr, err := svc.usrSvc.Create(ctx, na)
	if err != nil {
		if errors.Cause(err) == user.ErrEmailExists {
			return user.User{}, ErrAccountAlreadyExists
		}
		return user.User{}, errors.Wrap(err, "creating parent account")
	}

	if student, sErr := svc.usrSvc.GetByEmail(ctx, app.Email); sErr == nil && student.IsStudent() {
		if lErr := svc.usrSvc.LinkParentChild(ctx, usr.ID, student.ID); lErr != nil {
			svc.logger.Error("linking parent and student", lErr)
		}
	}

	app.clearParentToken()
	app.UpdatedAt = nowFunc().UTC()
	if _, err = svc.repo.UpdateApplication(ctx, app); err != nil {
		return user.User{}, errors.Wrap(err, "saving redeemed application")
	}

	return usr, nil
}

// checkNoAccount enforces the account-email-uniqueness backstop at redemption time.
func (svc *service) checkNoAccount(ctx context.Context, email string) error {
	if _, err := svc.usrSvc.GetByEmail(ctx, email); err == nil {
		return ErrAccountAlreadyExists
	} else if errors.Cause(err) != user.ErrNotFound {
		return errors.Wrap(err, "checking for existing account")
	}
	return nil
}

func appMailData(app Application) interface{} {
	return struct {
		Name string
		Kind string
	}{app.Name, app.Kind}
}

func inviteMailData(app Application, role, rawToken string) interface{} {
	name := app.Name
	if role == user.RoleParent {
		name = app.ParentName.String
	}
	return struct {
		Name  string
		Role  string
		Token string
	}{name, role, rawToken}
}
