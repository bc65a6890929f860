// Copyright (c) 2026 Folio Works. All rights reserved.

package middleware_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/folioworks/folio/internal/auth"
	"github.com/folioworks/folio/internal/platform/ctxutil"
	"github.com/folioworks/folio/internal/platform/middleware"
	"github.com/folioworks/folio/internal/platform/sec"
)

// fakeVerifier resolves any token of the form "user:role" into claims and
// rejects everything else.
type fakeVerifier struct{}

func (fakeVerifier) VerifyToken(tokenStr string) (*sec.AuthClaims, error) {
	switch tokenStr {
	case "alice:user":
		return &sec.AuthClaims{UserID: "alice", Role: "user"}, nil
	case "root:admin":
		return &sec.AuthClaims{UserID: "root", Role: "admin"}, nil
	default:
		return nil, errors.New("bad token")
	}
}

// okHandler records that the guard let the request through.
func okHandler(hit *bool) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, _ *http.Request) {
		*hit = true
		writer.WriteHeader(http.StatusOK)
	})
}

// serve runs one request through Authenticate and the given handler.
func serve(t *testing.T, handler http.Handler, token string) *httptest.ResponseRecorder {
	t.Helper()
	chain := middleware.Authenticate(fakeVerifier{})(handler)
	request := httptest.NewRequest(http.MethodGet, "/", nil)
	if token != "" {
		request.Header.Set("Authorization", "Bearer "+token)
	}
	recorder := httptest.NewRecorder()
	chain.ServeHTTP(recorder, request)
	return recorder
}

/*
TestAuthenticate verifies the three entry states: anonymous requests pass
through with no claims, valid tokens inject claims, and garbage tokens are
rejected before reaching the handler.
*/
func TestAuthenticate(t *testing.T) {
	var seen *sec.AuthClaims
	inner := http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		seen = ctxutil.GetAuthUser(request.Context())
		writer.WriteHeader(http.StatusOK)
	})

	t.Run("anonymous", func(t *testing.T) {
		seen = nil
		recorder := serve(t, inner, "")
		assert.Equal(t, http.StatusOK, recorder.Code)
		assert.Nil(t, seen, "anonymous requests carry no claims")
	})

	t.Run("valid_token", func(t *testing.T) {
		seen = nil
		recorder := serve(t, inner, "alice:user")
		assert.Equal(t, http.StatusOK, recorder.Code)
		assert.NotNil(t, seen)
		assert.Equal(t, "alice", seen.UserID)
	})

	t.Run("invalid_token", func(t *testing.T) {
		seen = nil
		recorder := serve(t, inner, "garbage")
		assert.Equal(t, http.StatusUnauthorized, recorder.Code)
		assert.Nil(t, seen)
	})
}

/*
TestRequireAuth verifies that protected routes reject anonymous callers with
401 and admit authenticated ones.
*/
func TestRequireAuth(t *testing.T) {
	var hit bool
	guarded := middleware.RequireAuth(okHandler(&hit))

	recorder := serve(t, guarded, "")
	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
	assert.False(t, hit)

	recorder = serve(t, guarded, "alice:user")
	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.True(t, hit)
}

/*
TestRequireGuest verifies that guest-only routes turn away signed-in callers.
*/
func TestRequireGuest(t *testing.T) {
	var hit bool
	guarded := middleware.RequireGuest(okHandler(&hit))

	recorder := serve(t, guarded, "alice:user")
	assert.Equal(t, http.StatusConflict, recorder.Code)
	assert.False(t, hit)

	recorder = serve(t, guarded, "")
	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.True(t, hit)
}

/*
TestRequireRole verifies set membership on the role claim: members pass,
non-members get 403, anonymous callers get 401, and an empty role never
satisfies any set.
*/
func TestRequireRole(t *testing.T) {
	var hit bool
	adminOnly := middleware.RequireRole(auth.UserRoleAdmin)(okHandler(&hit))

	t.Run("anonymous", func(t *testing.T) {
		hit = false
		recorder := serve(t, adminOnly, "")
		assert.Equal(t, http.StatusUnauthorized, recorder.Code)
		assert.False(t, hit)
	})

	t.Run("wrong_role", func(t *testing.T) {
		hit = false
		recorder := serve(t, adminOnly, "alice:user")
		assert.Equal(t, http.StatusForbidden, recorder.Code)
		assert.False(t, hit)
	})

	t.Run("member", func(t *testing.T) {
		hit = false
		recorder := serve(t, adminOnly, "root:admin")
		assert.Equal(t, http.StatusOK, recorder.Code)
		assert.True(t, hit)
	})

	t.Run("either_of_two_roles", func(t *testing.T) {
		hit = false
		both := middleware.RequireRole(auth.UserRoleUser, auth.UserRoleAdmin)(okHandler(&hit))
		recorder := serve(t, both, "alice:user")
		assert.Equal(t, http.StatusOK, recorder.Code)
		assert.True(t, hit)
	})
}
