package login

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/wolfeidau/steeple/internal/models"
)

func TestSessionIDEncoding(t *testing.T) {
	id := uuid.New()
	encoded := EncodeSessionID(id)
	require.NotContains(t, encoded, "-")

	decoded, err := DecodeSessionID(encoded)
	require.NoError(t, err)
	require.Equal(t, id, decoded)

	_, err = DecodeSessionID("0OIl")
	require.ErrorIs(t, err, ErrInvalidSession)

	_, err = DecodeSessionID(id.String())
	require.ErrorIs(t, err, ErrInvalidSession)
}

// signedInRequest creates a user and session and returns a request carrying the cookie
func signedInRequest(t *testing.T, svc *Service, target string) (*http.Request, *models.Session) {
	t.Helper()
	_, session, err := svc.SignUp(context.Background(), "user@grace.org", "long-enough", "Grace User", nil, ClientMeta{})
	require.NoError(t, err)

	r := httptest.NewRequest(http.MethodGet, target, nil)
	r.AddCookie(&http.Cookie{Name: "_session", Value: EncodeSessionID(session.SessionID)})
	return r, session
}

func TestService_GetSession(t *testing.T) {
	svc := newTestService(t, createTestStores())
	r, session := signedInRequest(t, svc, "/")

	data, err := svc.GetSession(r)
	require.NoError(t, err)
	require.Equal(t, session.SessionID, data.SessionID)
	require.Equal(t, "user@grace.org", data.Email)
	require.Equal(t, "Grace User", data.Name)

	authData, err := svc.GetSessionData(r)
	require.NoError(t, err)
	require.Equal(t, data.UserID, authData.UserID)
}

func TestService_GetSession_failures(t *testing.T) {
	stores := createTestStores()
	svc := newTestService(t, stores)
	ctx := context.Background()

	expiredID := uuid.New()
	require.NoError(t, stores.Sessions.Create(ctx, &models.Session{
		SessionID: expiredID,
		UserID:    uuid.New(),
		CreatedAt: time.Now().Add(-2 * time.Hour),
		ExpiresAt: time.Now().Add(-time.Hour),
	}))

	orphanID := uuid.New()
	require.NoError(t, stores.Sessions.Create(ctx, &models.Session{
		SessionID: orphanID,
		UserID:    uuid.New(),
		CreatedAt: time.Now(),
		ExpiresAt: time.Now().Add(time.Hour),
	}))

	tests := []struct {
		name    string
		cookie  string
		wantErr error
	}{
		{"no cookie", "", ErrInvalidSession},
		{"garbage cookie", "not-base58!", ErrInvalidSession},
		{"unknown session", EncodeSessionID(uuid.New()), ErrInvalidSession},
		{"expired session", EncodeSessionID(expiredID), ErrExpiredSession},
		{"session for missing user", EncodeSessionID(orphanID), ErrInvalidSession},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.cookie != "" {
				r.AddCookie(&http.Cookie{Name: "_session", Value: tt.cookie})
			}
			data, err := svc.GetSession(r)
			require.ErrorIs(t, err, tt.wantErr)
			require.Nil(t, data)
		})
	}
}

func TestService_OptionalAuth(t *testing.T) {
	svc := newTestService(t, createTestStores())

	var seen bool
	handler := svc.OptionalAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, seen = SessionFromContext(r.Context())
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	require.False(t, seen)

	r, _ := signedInRequest(t, svc, "/")
	handler.ServeHTTP(httptest.NewRecorder(), r)
	require.True(t, seen)
}

func TestSessionFromContext_notPresent(t *testing.T) {
	session, ok := SessionFromContext(context.Background())
	require.False(t, ok)
	require.Nil(t, session)
}
