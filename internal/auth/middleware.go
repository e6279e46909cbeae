package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// Session identifies the conversation a request belongs to. Verified is set
// when the ID came from a signed bearer token.
type Session struct {
	ID       string
	Verified bool
}

type SessionMiddleware struct {
	secret []byte
	header string
}

// NewSessionMiddleware resolves sessions from a bearer token signed with
// secret, then the named header, then the session_id query parameter. An
// empty secret disables bearer tokens.
func NewSessionMiddleware(secret, header string) *SessionMiddleware {
	if header == "" {
		header = "X-Session-ID"
	}
	m := &SessionMiddleware{header: header}
	if secret != "" {
		m.secret = []byte(secret)
	}
	return m
}

func (m *SessionMiddleware) Resolve(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var sess Session

		if tokenStr := extractBearerToken(r); tokenStr != "" && m.secret != nil {
			sub, err := m.subject(tokenStr)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "invalid session token")
				return
			}
			sess = Session{ID: sub, Verified: true}
		} else if id := strings.TrimSpace(r.Header.Get(m.header)); id != "" {
			sess.ID = id
		} else if id := strings.TrimSpace(r.URL.Query().Get("session_id")); id != "" {
			sess.ID = id
		}

		ctx := context.WithValue(r.Context(), sessionKey, sess)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (m *SessionMiddleware) subject(tokenStr string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil {
		return "", fmt.Errorf("parse token: %w", err)
	}
	if !token.Valid || claims.Subject == "" {
		return "", fmt.Errorf("token has no subject")
	}
	return claims.Subject, nil
}

type ctxKey string

const sessionKey ctxKey = "session"

func SessionFromContext(ctx context.Context) Session {
	s, _ := ctx.Value(sessionKey).(Session)
	return s
}

// SessionID picks the session for a request. A verified token always wins;
// otherwise an explicit value from the request body beats the header or
// query, and fallback is used when nothing was supplied.
func SessionID(ctx context.Context, bodyValue, fallback string) string {
	s := SessionFromContext(ctx)
	if s.Verified {
		return s.ID
	}
	if v := strings.TrimSpace(bodyValue); v != "" {
		return v
	}
	if s.ID != "" {
		return s.ID
	}
	return fallback
}

func extractBearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	return ""
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"detail": msg})
}
