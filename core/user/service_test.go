package user_test

import (
	"context"
	"log"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/user"
	appfs "github.com/trezcool/shule/fs"
	emailsvc "github.com/trezcool/shule/services/email"
	logsvc "github.com/trezcool/shule/services/logger"
	"github.com/trezcool/shule/storage/database/inmem"
)

func newTestService(t *testing.T) (user.Service, user.Repository, *emailsvc.DummyService) {
	t.Helper()

	conf := &core.Config{
		TestMode:         true,
		Env:              "TEST",
		AppName:          "Shule",
		FrontendBaseURL:  "http://localhost:3000",
		DefaultFromEmail: "noreply@localhost",

		AccountInviteTimeoutDelta:     24 * time.Hour,
		PasswordResetTimeoutDelta:     10 * time.Minute,
		EmailVerificationTimeoutDelta: time.Hour,
	}
	logger := logsvc.NewStdLogger(log.New(os.Stdout, "TEST : ", log.LstdFlags))
	core.ParseEmailTemplates(conf, appfs.FS, logger)

	repo := inmem.NewUserRepository(inmem.NewDB())
	mailSvc := emailsvc.NewDummyService()
	svc := user.NewService(repo, mailSvc, conf, logger)
	return svc, repo, mailSvc
}

func createAccount(t *testing.T, svc user.Service, email string) user.User {
	t.Helper()
	usr, err := svc.Create(context.Background(), user.NewAccount{
		Role:       user.RoleStudent,
		Name:       "Aisha Mwangi",
		Email:      email,
		Password:   "Secret123",
		GradeLevel: "grade-2",
	})
	require.NoError(t, err)
	return usr
}

// mailToken digs the raw token out of a recorded account email.
func mailToken(t *testing.T, msg core.EmailMessage) string {
	t.Helper()
	data, ok := msg.TemplateData.(struct {
		Name  string
		Token string
	})
	require.True(t, ok, "unexpected mail data %T", msg.TemplateData)
	return data.Token
}

func TestCreate(t *testing.T) {
	svc, _, _ := newTestService(t)

	usr := createAccount(t, svc, "aisha@example.com")
	assert.NotEmpty(t, usr.ID)
	assert.Equal(t, user.RoleStudent, usr.Role)
	assert.True(t, usr.IsActive)
	assert.True(t, usr.EmailVerified)
	require.NotNil(t, usr.Student)
	assert.Equal(t, "grade-2", usr.Student.GradeLevel)
	assert.NoError(t, usr.CheckPassword("Secret123"))
	assert.Error(t, usr.CheckPassword("wrong"))

	// email is the account identity; no two accounts share one
	_, err := svc.Create(context.Background(), user.NewAccount{
		Role:     user.RoleParent,
		Name:     "Someone Else",
		Email:    "aisha@example.com",
		Password: "Other1234",
	})
	assert.Equal(t, user.ErrEmailExists, err)
}

func TestAuthenticate(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := context.Background()

	usr := createAccount(t, svc, "aisha@example.com")

	got, err := svc.Authenticate(ctx, "Aisha@Example.com", "Secret123")
	require.NoError(t, err)
	assert.Equal(t, usr.ID, got.ID)
	assert.False(t, got.LastLogin.IsZero())

	_, err = svc.Authenticate(ctx, "aisha@example.com", "wrong")
	assert.Equal(t, user.ErrInvalidCredentials, err)

	_, err = svc.Authenticate(ctx, "nobody@example.com", "Secret123")
	assert.Equal(t, user.ErrInvalidCredentials, err)

	// deactivated accounts cannot log in
	usr.IsActive = false
	_, err = repo.UpdateUser(ctx, usr)
	require.NoError(t, err)
	_, err = svc.Authenticate(ctx, "aisha@example.com", "Secret123")
	assert.Equal(t, user.ErrAccountDeactivated, err)
}

func TestPasswordReset(t *testing.T) {
	svc, _, mailSvc := newTestService(t)
	ctx := context.Background()

	createAccount(t, svc, "aisha@example.com")
	mailSvc.Reset()

	require.NoError(t, svc.RequestPasswordReset(ctx, "aisha@example.com"))
	require.Len(t, mailSvc.SentMessages, 1)
	rawToken := mailToken(t, mailSvc.SentMessages[0])

	err := svc.ResetPassword(ctx, user.ResetUserPassword{
		Token:           rawToken,
		Password:        "Changed456",
		PasswordConfirm: "Changed456",
	})
	require.NoError(t, err)

	got, err := svc.Authenticate(ctx, "aisha@example.com", "Changed456")
	require.NoError(t, err)
	assert.False(t, got.PasswordResetTokenHash.Valid)

	// single use
	err = svc.ResetPassword(ctx, user.ResetUserPassword{
		Token:           rawToken,
		Password:        "Changed789",
		PasswordConfirm: "Changed789",
	})
	assert.Equal(t, user.ErrInvalidOrExpired, err)
}

func TestPasswordResetExpiredToken(t *testing.T) {
	svc, repo, mailSvc := newTestService(t)
	ctx := context.Background()

	usr := createAccount(t, svc, "aisha@example.com")
	mailSvc.Reset()

	require.NoError(t, svc.RequestPasswordReset(ctx, "aisha@example.com"))
	rawToken := mailToken(t, mailSvc.SentMessages[0])

	usr, err := repo.GetUserByID(ctx, usr.ID)
	require.NoError(t, err)
	usr.PasswordResetTokenExpires = null.TimeFrom(time.Now().UTC().Add(-time.Minute))
	_, err = repo.UpdateUser(ctx, usr)
	require.NoError(t, err)

	err = svc.ResetPassword(ctx, user.ResetUserPassword{
		Token:           rawToken,
		Password:        "Changed456",
		PasswordConfirm: "Changed456",
	})
	assert.Equal(t, user.ErrInvalidOrExpired, err)
}

func TestEmailVerification(t *testing.T) {
	svc, repo, mailSvc := newTestService(t)
	ctx := context.Background()

	usr := createAccount(t, svc, "aisha@example.com")

	// invite-created accounts are already verified; requesting again is a no-op
	require.NoError(t, svc.RequestEmailVerification(ctx, "aisha@example.com"))
	assert.Empty(t, mailSvc.SentMessages)

	usr, err := repo.GetUserByID(ctx, usr.ID)
	require.NoError(t, err)
	usr.EmailVerified = false
	_, err = repo.UpdateUser(ctx, usr)
	require.NoError(t, err)

	require.NoError(t, svc.RequestEmailVerification(ctx, "aisha@example.com"))
	require.Len(t, mailSvc.SentMessages, 1)
	rawToken := mailToken(t, mailSvc.SentMessages[0])

	require.NoError(t, svc.VerifyEmail(ctx, rawToken))

	got, err := repo.GetUserByID(ctx, usr.ID)
	require.NoError(t, err)
	assert.True(t, got.EmailVerified)
	assert.False(t, got.EmailVerifyTokenHash.Valid)

	// single use
	assert.Equal(t, user.ErrInvalidOrExpired, svc.VerifyEmail(ctx, rawToken))
}
