package echoapi

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/trezcool/shule/core/user"
)

// The token parsed by the JWT middleware must carry our Claims type;
// getContextClaims and the admin check both depend on it.
func TestAuthClaimsRoundTrip(t *testing.T) {
	srv, deps := newTestServer(t)

	admin := createTestAccount(t, deps.usrSvc, user.RoleAdmin, "admin@example.com")
	tutor := createTestAccount(t, deps.usrSvc, user.RoleTutor, "john@example.com")

	// an admin token clears both the JWT middleware and the role check
	req, rec := newAuthRequest(http.MethodGet, "/v1/applications", getToken(t, admin))
	srv.ServeHTTP(rec, req)
	checkCode(t, rec, http.StatusOK)

	// a non-admin token clears the middleware but keeps its own role
	req, rec = newAuthRequest(http.MethodGet, "/v1/users/me", getToken(t, tutor))
	srv.ServeHTTP(rec, req)
	checkCode(t, rec, http.StatusOK)

	var got user.User
	decodeBody(t, rec, &got)
	assert.Equal(t, tutor.ID, got.ID)
	assert.Equal(t, user.RoleTutor, got.Role)
}
