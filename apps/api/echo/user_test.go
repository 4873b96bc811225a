package echoapi

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/shule/core/enrollment"
	"github.com/trezcool/shule/core/user"
)

func TestLoginAPI(t *testing.T) {
	srv, deps := newTestServer(t)

	createTestAccount(t, deps.usrSvc, user.RoleTutor, "john@example.com")

	body := marshallObj(t, map[string]string{"email": "john@example.com", "password": "Secret123"})
	req, rec := newRequest(http.MethodPost, "/v1/users/login", body)
	srv.ServeHTTP(rec, req)
	checkCode(t, rec, http.StatusOK)

	var res LoginResponse
	decodeBody(t, rec, &res)
	assert.NotEmpty(t, res.Token)

	body = marshallObj(t, map[string]string{"email": "john@example.com", "password": "wrong"})
	req, rec = newRequest(http.MethodPost, "/v1/users/login", body)
	srv.ServeHTTP(rec, req)
	checkCode(t, rec, http.StatusBadRequest)

	var herr httpErr
	decodeBody(t, rec, &herr)
	assert.Equal(t, "invalid credentials", herr.Error)
}

func TestMeAPI(t *testing.T) {
	srv, deps := newTestServer(t)

	usr := createTestAccount(t, deps.usrSvc, user.RoleTutor, "john@example.com")

	req, rec := newAuthRequest(http.MethodGet, "/v1/users/me", getToken(t, usr))
	srv.ServeHTTP(rec, req)
	checkCode(t, rec, http.StatusOK)

	var got user.User
	decodeBody(t, rec, &got)
	assert.Equal(t, usr.ID, got.ID)
	assert.Equal(t, user.RoleTutor, got.Role)

	// password material never leaks
	assert.NotContains(t, rec.Body.String(), "password")

	req, rec = newRequest(http.MethodGet, "/v1/users/me")
	srv.ServeHTTP(rec, req)
	checkCode(t, rec, http.StatusUnauthorized)
}

func TestMyEnrollmentsAPI(t *testing.T) {
	srv, deps := newTestServer(t)
	ctx := context.Background()

	student := createTestAccount(t, deps.usrSvc, user.RoleStudent, "aisha@example.com")
	_, err := deps.enrSvc.EnrollStudentForGrade(ctx, student.ID, "grade-2")
	require.NoError(t, err)

	req, rec := newAuthRequest(http.MethodGet, "/v1/users/me/enrollments", getToken(t, student))
	srv.ServeHTTP(rec, req)
	checkCode(t, rec, http.StatusOK)

	var enrs []enrollment.Enrollment
	decodeBody(t, rec, &enrs)
	assert.Len(t, enrs, 5)

	// tutors have no enrollments to see
	tutor := createTestAccount(t, deps.usrSvc, user.RoleTutor, "john@example.com")
	req, rec = newAuthRequest(http.MethodGet, "/v1/users/me/enrollments", getToken(t, tutor))
	srv.ServeHTTP(rec, req)
	checkCode(t, rec, http.StatusForbidden)
}

func TestPasswordResetAPI(t *testing.T) {
	srv, deps := newTestServer(t)

	createTestAccount(t, deps.usrSvc, user.RoleTutor, "john@example.com")
	deps.mailSvc.Reset()

	// known and unknown addresses get the same answer
	for _, email := range []string{"john@example.com", "nobody@example.com"} {
		body := marshallObj(t, map[string]string{"email": email})
		req, rec := newRequest(http.MethodPost, "/v1/users/password-reset", body)
		srv.ServeHTTP(rec, req)
		checkCode(t, rec, http.StatusOK)
	}
	require.Len(t, deps.mailSvc.SentMessages, 1)

	data, ok := deps.mailSvc.SentMessages[0].TemplateData.(struct {
		Name  string
		Token string
	})
	require.True(t, ok)

	body := marshallObj(t, map[string]string{
		"token":            data.Token,
		"password":         "Changed456",
		"password_confirm": "Changed456",
	})
	req, rec := newRequest(http.MethodPost, "/v1/users/password-reset-confirm", body)
	srv.ServeHTTP(rec, req)
	checkCode(t, rec, http.StatusOK)

	body = marshallObj(t, map[string]string{"email": "john@example.com", "password": "Changed456"})
	req, rec = newRequest(http.MethodPost, "/v1/users/login", body)
	srv.ServeHTTP(rec, req)
	checkCode(t, rec, http.StatusOK)
}

func TestTokenRefreshAPI(t *testing.T) {
	srv, deps := newTestServer(t)

	usr := createTestAccount(t, deps.usrSvc, user.RoleTutor, "john@example.com")

	req, rec := newAuthRequest(http.MethodPost, "/v1/users/token-refresh", getToken(t, usr))
	srv.ServeHTTP(rec, req)
	checkCode(t, rec, http.StatusOK)

	var res LoginResponse
	decodeBody(t, rec, &res)
	assert.NotEmpty(t, res.Token)
}
