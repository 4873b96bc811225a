package echoapi

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/shule/core/application"
	"github.com/trezcool/shule/core/user"
)

func studentApplicationBody(t *testing.T, email string) []byte {
	return marshallObj(t, map[string]interface{}{
		"name":        "Aisha Mwangi",
		"email":       email,
		"grade_level": "grade-2",
		"parent": map[string]string{
			"name":  "Fatuma Mwangi",
			"email": "fatuma@example.com",
			"phone": "+254700000000",
		},
	})
}

func TestSubmitStudentApplicationAPI(t *testing.T) {
	srv, _ := newTestServer(t)

	req, rec := newRequest(http.MethodPost, "/v1/applications/student", studentApplicationBody(t, "aisha@example.com"))
	srv.ServeHTTP(rec, req)
	checkCode(t, rec, http.StatusCreated)

	var app application.Application
	decodeBody(t, rec, &app)
	assert.Equal(t, application.StatusPending, app.Status)
	assert.Equal(t, application.KindStudent, app.Kind)

	// duplicate submission
	req, rec = newRequest(http.MethodPost, "/v1/applications/student", studentApplicationBody(t, "aisha@example.com"))
	srv.ServeHTTP(rec, req)
	checkCode(t, rec, http.StatusBadRequest)
}

func TestSubmitStudentApplicationAPIValidation(t *testing.T) {
	srv, _ := newTestServer(t)

	body := marshallObj(t, map[string]interface{}{
		"name":        "Aisha Mwangi",
		"email":       "aisha@example.com",
		"grade_level": "grade-13",
		"parent":      map[string]string{"name": "Fatuma Mwangi"},
	})
	req, rec := newRequest(http.MethodPost, "/v1/applications/student", body)
	srv.ServeHTTP(rec, req)
	checkCode(t, rec, http.StatusBadRequest)

	var fldErrs map[string]string
	decodeBody(t, rec, &fldErrs)
	assert.Contains(t, fldErrs, "grade_level")

	body = marshallObj(t, map[string]interface{}{
		"name":        "Aisha Mwangi",
		"email":       "aisha@example.com",
		"grade_level": "grade-2",
		"parent": map[string]string{
			"name":  "Fatuma Mwangi",
			"email": "fatuma@example.com",
			"phone": "not-a-number",
		},
	})
	req, rec = newRequest(http.MethodPost, "/v1/applications/student", body)
	srv.ServeHTTP(rec, req)
	checkCode(t, rec, http.StatusBadRequest)

	fldErrs = nil
	decodeBody(t, rec, &fldErrs)
	assert.Contains(t, fldErrs, "phone")
}

func TestSubmitTutorApplicationAPI(t *testing.T) {
	srv, _ := newTestServer(t)

	body := marshallObj(t, map[string]interface{}{
		"name":     "John Otieno",
		"email":    "john@example.com",
		"subjects": []string{"Mathematics"},
	})
	req, rec := newRequest(http.MethodPost, "/v1/applications/tutor", body)
	srv.ServeHTTP(rec, req)
	checkCode(t, rec, http.StatusCreated)

	var app application.Application
	decodeBody(t, rec, &app)
	assert.Equal(t, application.KindTutor, app.Kind)
}

func TestApplicationAdminAPIPermissions(t *testing.T) {
	srv, deps := newTestServer(t)

	student := createTestAccount(t, deps.usrSvc, user.RoleStudent, "student@example.com")
	admin := createTestAccount(t, deps.usrSvc, user.RoleAdmin, "admin@example.com")

	// no token
	req, rec := newRequest(http.MethodGet, "/v1/applications")
	srv.ServeHTTP(rec, req)
	checkCode(t, rec, http.StatusUnauthorized)

	// non-admin token
	req, rec = newAuthRequest(http.MethodGet, "/v1/applications", getToken(t, student))
	srv.ServeHTTP(rec, req)
	checkCode(t, rec, http.StatusForbidden)

	// admin token
	req, rec = newAuthRequest(http.MethodGet, "/v1/applications", getToken(t, admin))
	srv.ServeHTTP(rec, req)
	checkCode(t, rec, http.StatusOK)
}

func TestApplicationQueryAPIBadFilter(t *testing.T) {
	srv, deps := newTestServer(t)

	admin := createTestAccount(t, deps.usrSvc, user.RoleAdmin, "admin@example.com")

	// an unparseable filter is an error, not an empty result set
	req, rec := newAuthRequest(http.MethodGet, "/v1/applications?created_from=lol", getToken(t, admin))
	srv.ServeHTTP(rec, req)
	checkCode(t, rec, http.StatusBadRequest)
}

func TestApplicationApproveAndRedeemAPI(t *testing.T) {
	srv, deps := newTestServer(t)
	ctx := context.Background()

	admin := createTestAccount(t, deps.usrSvc, user.RoleAdmin, "admin@example.com")
	adminToken := getToken(t, admin)

	app, err := deps.appSvc.SubmitStudent(ctx, application.NewStudentApplication{
		Name:       "Aisha Mwangi",
		Email:      "aisha@example.com",
		GradeLevel: "grade-2",
		Parent: application.ParentContact{
			Name:  "Fatuma Mwangi",
			Email: "fatuma@example.com",
		},
	})
	require.NoError(t, err)
	deps.mailSvc.Reset()

	req, rec := newAuthRequest(http.MethodPost, "/v1/applications/"+app.ID+"/approve", adminToken)
	srv.ServeHTTP(rec, req)
	checkCode(t, rec, http.StatusOK)

	var approved application.Application
	decodeBody(t, rec, &approved)
	assert.Equal(t, application.StatusApproved, approved.Status)
	require.Len(t, deps.mailSvc.SentMessages, 2)

	// token hashes never leak through the API
	assert.NotContains(t, rec.Body.String(), "token_hash")

	data, ok := deps.mailSvc.SentMessages[0].TemplateData.(struct{ Name, Role, Token string })
	require.True(t, ok)

	// approving again is refused
	req, rec = newAuthRequest(http.MethodPost, "/v1/applications/"+app.ID+"/approve", adminToken)
	srv.ServeHTTP(rec, req)
	checkCode(t, rec, http.StatusBadRequest)

	// redeem the invite
	body := marshallObj(t, map[string]string{
		"token":            data.Token,
		"password":         "Secret123",
		"password_confirm": "Secret123",
	})
	req, rec = newRequest(http.MethodPost, "/v1/accounts/student", body)
	srv.ServeHTTP(rec, req)
	checkCode(t, rec, http.StatusCreated)

	var created AccountCreatedResponse
	decodeBody(t, rec, &created)
	assert.Equal(t, user.RoleStudent, created.User.Role)
	assert.NotEmpty(t, created.Token)

	// and log in with the chosen password
	body = marshallObj(t, map[string]string{"email": "aisha@example.com", "password": "Secret123"})
	req, rec = newRequest(http.MethodPost, "/v1/users/login", body)
	srv.ServeHTTP(rec, req)
	checkCode(t, rec, http.StatusOK)
}

func TestApplicationRejectAPI(t *testing.T) {
	srv, deps := newTestServer(t)
	ctx := context.Background()

	admin := createTestAccount(t, deps.usrSvc, user.RoleAdmin, "admin@example.com")

	app, err := deps.appSvc.SubmitTutor(ctx, application.NewTutorApplication{
		Name:     "John Otieno",
		Email:    "john@example.com",
		Subjects: []string{"Mathematics"},
	})
	require.NoError(t, err)

	body := marshallObj(t, map[string]string{"reason": "no openings"})
	req, rec := newAuthRequest(http.MethodPost, "/v1/applications/"+app.ID+"/reject", getToken(t, admin), body)
	srv.ServeHTTP(rec, req)
	checkCode(t, rec, http.StatusOK)

	var rejected application.Application
	decodeBody(t, rec, &rejected)
	assert.Equal(t, application.StatusRejected, rejected.Status)
	assert.Equal(t, "no openings", rejected.RejectReason.String)
}

func TestRedeemAPIInvalidToken(t *testing.T) {
	srv, _ := newTestServer(t)

	body := marshallObj(t, map[string]string{
		"token":            "bogus",
		"password":         "Secret123",
		"password_confirm": "Secret123",
	})
	req, rec := newRequest(http.MethodPost, "/v1/accounts/student", body)
	srv.ServeHTTP(rec, req)
	checkCode(t, rec, http.StatusBadRequest)

	var herr httpErr
	decodeBody(t, rec, &herr)
	assert.Equal(t, "invalid or expired token", herr.Error)
}

func TestRedeemAPIWeakPassword(t *testing.T) {
	srv, _ := newTestServer(t)

	body := marshallObj(t, map[string]string{
		"token":            "whatever",
		"password":         "12345678",
		"password_confirm": "12345678",
	})
	req, rec := newRequest(http.MethodPost, "/v1/accounts/student", body)
	srv.ServeHTTP(rec, req)
	checkCode(t, rec, http.StatusBadRequest)

	var fldErrs map[string]string
	decodeBody(t, rec, &fldErrs)
	assert.Contains(t, fldErrs, "password")
}
