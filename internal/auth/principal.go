package auth

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"
)

// ErrUnauthenticated is returned when authentication fails.
var ErrUnauthenticated = errors.New("unauthenticated")

// Principal types.
const (
	PrincipalTypeUser  = "user"
	PrincipalTypeToken = "token"
)

// Principal is the authenticated caller attached to a request context.
type Principal struct {
	UserID uuid.UUID
	Email  string
	Type   string // "user" for browser sessions, "token" for bearer JWTs
}

type contextKey int

const principalContextKey contextKey = iota

// WithPrincipal returns a copy of ctx carrying p.
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalContextKey, p)
}

// PrincipalFromContext returns the principal stored by the auth middleware.
func PrincipalFromContext(ctx context.Context) (*Principal, bool) {
	p, ok := ctx.Value(principalContextKey).(*Principal)
	return p, ok && p != nil
}

// SessionData represents session information from a session store.
type SessionData struct {
	SessionID uuid.UUID
	UserID    uuid.UUID
	Email     string
}

// SessionProvider provides access to session data from HTTP requests.
// This interface allows the auth middleware to be decoupled from the login package.
type SessionProvider interface {
	// GetSessionData extracts and validates the session from a request.
	GetSessionData(r *http.Request) (*SessionData, error)
}
