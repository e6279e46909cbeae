package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func signed(t *testing.T, secret string, claims jwt.RegisteredClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return s
}

func resolve(t *testing.T, m *SessionMiddleware, req *http.Request) (Session, *httptest.ResponseRecorder) {
	t.Helper()
	var got Session
	rec := httptest.NewRecorder()
	m.Resolve(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = SessionFromContext(r.Context())
	})).ServeHTTP(rec, req)
	return got, rec
}

func TestResolve_BearerTokenSubject(t *testing.T) {
	m := NewSessionMiddleware(testSecret, "")
	req := httptest.NewRequest(http.MethodGet, "/conversation?session_id=query", nil)
	req.Header.Set("Authorization", "Bearer "+signed(t, testSecret, jwt.RegisteredClaims{Subject: "alice"}))
	req.Header.Set("X-Session-ID", "header")

	sess, rec := resolve(t, m, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, Session{ID: "alice", Verified: true}, sess)
}

func TestResolve_InvalidTokenRejected(t *testing.T) {
	m := NewSessionMiddleware(testSecret, "")

	cases := map[string]string{
		"wrong secret": signed(t, "other", jwt.RegisteredClaims{Subject: "alice"}),
		"expired": signed(t, testSecret, jwt.RegisteredClaims{
			Subject:   "alice",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		}),
		"no subject": signed(t, testSecret, jwt.RegisteredClaims{}),
		"garbage":    "not-a-token",
	}
	for name, token := range cases {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Header.Set("Authorization", "Bearer "+token)
			_, rec := resolve(t, m, req)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.JSONEq(t, `{"detail":"invalid session token"}`, rec.Body.String())
		})
	}
}

func TestResolve_HeaderThenQuery(t *testing.T) {
	m := NewSessionMiddleware("", "X-Session-ID")

	req := httptest.NewRequest(http.MethodGet, "/conversation?session_id=query", nil)
	req.Header.Set("X-Session-ID", "header")
	sess, _ := resolve(t, m, req)
	assert.Equal(t, Session{ID: "header"}, sess)

	req = httptest.NewRequest(http.MethodGet, "/conversation?session_id=query", nil)
	sess, _ = resolve(t, m, req)
	assert.Equal(t, Session{ID: "query"}, sess)

	req = httptest.NewRequest(http.MethodGet, "/conversation", nil)
	sess, _ = resolve(t, m, req)
	assert.Equal(t, Session{}, sess)
}

func TestResolve_BearerIgnoredWithoutSecret(t *testing.T) {
	m := NewSessionMiddleware("", "")
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer whatever")
	req.Header.Set("X-Session-ID", "header")

	sess, rec := resolve(t, m, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "header", sess.ID)
	assert.False(t, sess.Verified)
}

func TestSessionID_Precedence(t *testing.T) {
	m := NewSessionMiddleware(testSecret, "")

	req := httptest.NewRequest(http.MethodPost, "/chat", nil)
	req.Header.Set("Authorization", "Bearer "+signed(t, testSecret, jwt.RegisteredClaims{Subject: "alice"}))
	var verified, unverified, empty string
	m.Resolve(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		verified = SessionID(r.Context(), "body", "default")
	})).ServeHTTP(httptest.NewRecorder(), req)
	assert.Equal(t, "alice", verified)

	req = httptest.NewRequest(http.MethodPost, "/chat", nil)
	req.Header.Set("X-Session-ID", "header")
	m.Resolve(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		unverified = SessionID(r.Context(), "body", "default")
		empty = SessionID(r.Context(), " ", "default")
	})).ServeHTTP(httptest.NewRecorder(), req)
	assert.Equal(t, "body", unverified)
	assert.Equal(t, "header", empty)

	assert.Equal(t, "default", SessionID(httptest.NewRequest(http.MethodGet, "/", nil).Context(), "", "default"))
}
