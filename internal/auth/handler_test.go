package auth_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quotedesk/quotedesk/internal/auth"
	"github.com/quotedesk/quotedesk/internal/shared"
	"github.com/quotedesk/quotedesk/internal/view"
	_ "github.com/quotedesk/quotedesk/testing"
)

func newHandler(t *testing.T) *auth.Handler {
	t.Helper()
	templates, err := view.NewEngine()
	require.NoError(t, err)
	return auth.NewHandler(nil, templates, nil, shared.NewCSRFManager("csrfsecret"), auth.Config{})
}

func withSession(r *http.Request, sess *shared.Session) *http.Request {
	return r.WithContext(shared.ContextWithSession(r.Context(), sess))
}

func TestRequireIdentityFromHeader(t *testing.T) {
	h := newHandler(t)
	sess := shared.NewSession("s1")

	var seen string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = shared.ActorFromContext(r.Context())
	})
	req := withSession(httptest.NewRequest(http.MethodGet, "/quotations", nil), sess)
	req.Header.Set("X-Forwarded-User", "ana@example.com")
	rec := httptest.NewRecorder()
	h.RequireIdentity(next).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ana@example.com", seen)
	assert.Equal(t, "ana@example.com", sess.Actor())
}

func TestRequireIdentityFallsBackToSession(t *testing.T) {
	h := newHandler(t)
	sess := shared.NewSession("s1")
	sess.SetActor("ben@example.com")

	var seen string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = shared.ActorFromContext(r.Context())
	})
	rec := httptest.NewRecorder()
	h.RequireIdentity(next).ServeHTTP(rec, withSession(httptest.NewRequest(http.MethodGet, "/quotations", nil), sess))
	assert.Equal(t, "ben@example.com", seen)
}

func TestRequireIdentityRedirectsAnonymous(t *testing.T) {
	h := newHandler(t)
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	})

	rec := httptest.NewRecorder()
	h.RequireIdentity(next).ServeHTTP(rec, withSession(httptest.NewRequest(http.MethodGet, "/quotations", nil), shared.NewSession("s1")))
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/auth/required", rec.Header().Get("Location"))

	rec = httptest.NewRecorder()
	h.RequireIdentity(next).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/quotations", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
}
