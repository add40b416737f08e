package login

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mr-tron/base58"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/steeple/internal/auth"
	"github.com/wolfeidau/steeple/internal/store"
)

const sessionCookieName = "_session"

type contextKey string

const sessionContextKey contextKey = "session"

// SessionData holds the authenticated user's session information.
type SessionData struct {
	SessionID uuid.UUID
	UserID    uuid.UUID
	Email     string
	Name      string
	ExpiresAt time.Time
}

// EncodeSessionID returns the opaque cookie value for a session ID.
func EncodeSessionID(id uuid.UUID) string {
	return base58.Encode(id[:])
}

// DecodeSessionID parses a cookie value produced by EncodeSessionID.
func DecodeSessionID(value string) (uuid.UUID, error) {
	raw, err := base58.Decode(value)
	if err != nil {
		return uuid.Nil, ErrInvalidSession
	}
	id, err := uuid.FromBytes(raw)
	if err != nil {
		return uuid.Nil, ErrInvalidSession
	}
	return id, nil
}

// GetSession extracts and validates the session from a request.
func (s *Service) GetSession(r *http.Request) (*SessionData, error) {
	cookie, err := r.Cookie(sessionCookieName)
	if err != nil {
		return nil, ErrInvalidSession
	}

	sessionID, err := DecodeSessionID(cookie.Value)
	if err != nil {
		log.Debug().Msg("Invalid session cookie encoding")
		return nil, err
	}

	ctx := r.Context()
	session, err := s.stores.Sessions.Get(ctx, sessionID)
	switch {
	case errors.Is(err, store.ErrSessionExpired):
		return nil, ErrExpiredSession
	case errors.Is(err, store.ErrSessionNotFound):
		return nil, ErrInvalidSession
	case err != nil:
		log.Error().Err(err).Msg("Failed to get session")
		return nil, ErrInvalidSession
	}

	user, err := s.stores.Users.Get(ctx, session.UserID)
	if err != nil {
		log.Warn().Err(err).Str("user_id", session.UserID.String()).Msg("Session refers to unknown user")
		return nil, ErrInvalidSession
	}

	if err := s.stores.Sessions.UpdateLastUsed(ctx, sessionID); err != nil {
		log.Debug().Err(err).Msg("Failed to update session last used")
	}

	return &SessionData{
		SessionID: session.SessionID,
		UserID:    user.UserID,
		Email:     user.Email,
		Name:      user.Name,
		ExpiresAt: session.ExpiresAt,
	}, nil
}

// GetSessionData adapts GetSession for the auth middleware.
func (s *Service) GetSessionData(r *http.Request) (*auth.SessionData, error) {
	session, err := s.GetSession(r)
	if err != nil {
		return nil, err
	}
	return &auth.SessionData{
		SessionID: session.SessionID,
		UserID:    session.UserID,
		Email:     session.Email,
	}, nil
}

func (s *Service) setSessionCookie(w http.ResponseWriter, r *http.Request, sessionID uuid.UUID, expiresAt time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    EncodeSessionID(sessionID),
		Path:     "/",
		Domain:   s.cookieDomain(r.Host),
		HttpOnly: true,
		Secure:   !s.cfg.InsecureCookies,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(time.Until(expiresAt).Seconds()),
	})
}

func (s *Service) clearSessionCookie(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		Domain:   s.cookieDomain(r.Host),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   !s.cfg.InsecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

// cookieDomain is ".<apex>" for hosts under the apex. Development and custom
// domain hosts get a host-only cookie since browsers reject a foreign Domain.
func (s *Service) cookieDomain(host string) string {
	apex := s.cfg.CookieDomain
	if apex == "" {
		return ""
	}
	if s.cfg.DevelopmentHost != nil && s.cfg.DevelopmentHost(host) {
		return ""
	}

	host = strings.ToLower(host)
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	if host != apex && !strings.HasSuffix(host, "."+apex) {
		return ""
	}
	return "." + apex
}

// OptionalAuth attaches the session to the request context when one is
// present and lets every request through.
func (s *Service) OptionalAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if session, err := s.GetSession(r); err == nil {
			r = r.WithContext(WithSession(r.Context(), session))
		}
		next.ServeHTTP(w, r)
	})
}

// WithSession returns a copy of ctx carrying session.
func WithSession(ctx context.Context, session *SessionData) context.Context {
	return context.WithValue(ctx, sessionContextKey, session)
}

// SessionFromContext extracts the session data from the request context.
// Handlers behind OptionalAuth see the session when one is present.
func SessionFromContext(ctx context.Context) (*SessionData, bool) {
	session, ok := ctx.Value(sessionContextKey).(*SessionData)
	return session, ok && session != nil
}
