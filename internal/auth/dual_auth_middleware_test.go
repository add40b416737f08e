package auth

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type fakeSessions struct {
	data *SessionData
}

func (f *fakeSessions) GetSessionData(r *http.Request) (*SessionData, error) {
	if f.data == nil {
		return nil, errors.New("no session")
	}
	return f.data, nil
}

func principalEcho(t *testing.T) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, ok := PrincipalFromContext(r.Context())
		if !ok {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		_, _ = w.Write([]byte(p.Type + ":" + p.UserID.String()))
	})
}

func TestDualAuthMiddleware(t *testing.T) {
	issuer, err := NewTokenIssuer(testSecret, time.Hour)
	require.NoError(t, err)

	tokenUser := uuid.New()
	token, _, err := issuer.Issue(tokenUser, "cli@grace.org")
	require.NoError(t, err)

	sessionUser := uuid.New()
	withSession := &fakeSessions{data: &SessionData{SessionID: uuid.New(), UserID: sessionUser, Email: "web@grace.org"}}
	noSession := &fakeSessions{}

	tests := []struct {
		name       string
		sessions   SessionProvider
		authHeader string
		wantStatus int
		wantBody   string
	}{
		{"jwt wins over session", withSession, "Bearer " + token, http.StatusOK, "token:" + tokenUser.String()},
		{"invalid jwt does not fall back", withSession, "Bearer nope", http.StatusUnauthorized, ""},
		{"invalid jwt without session", noSession, "Bearer nope", http.StatusUnauthorized, ""},
		{"session cookie", withSession, "", http.StatusOK, "user:" + sessionUser.String()},
		{"anonymous passes through", noSession, "", http.StatusNoContent, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mw := OptionalDualAuthMiddleware(issuer, tt.sessions)

			req := httptest.NewRequest(http.MethodPost, "/rpc", nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}
			rec := httptest.NewRecorder()
			mw(principalEcho(t)).ServeHTTP(rec, req)

			require.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantBody != "" {
				require.Equal(t, tt.wantBody, rec.Body.String())
			}
		})
	}
}
