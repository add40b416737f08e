package credentials

import (
	"context"
	"fmt"
	"sync"
	"time"

	"connectrpc.com/connect"
	"github.com/rs/zerolog/log"
)

// AuthInterceptor adds the stored bearer token to Connect RPC requests.
type AuthInterceptor struct {
	store  *Store
	server string
	now    func() time.Time

	mu   sync.Mutex
	cred *Credential
}

// NewAuthInterceptor creates an interceptor for server. It fails when no
// token has been stored for that server.
func NewAuthInterceptor(store *Store, server string) (*AuthInterceptor, error) {
	cred, err := store.Get(server)
	if err != nil {
		if err == ErrCredentialNotFound {
			return nil, fmt.Errorf("no token stored for %s\n\n"+
				"Sign in first:\n"+
				"  steeple-cli token --server %s --email <email>", server, server)
		}
		return nil, fmt.Errorf("failed to load credential: %w", err)
	}

	log.Debug().
		Str("server", server).
		Str("email", cred.Email).
		Msg("initialized auth interceptor")

	return &AuthInterceptor{
		store:  store,
		server: server,
		now:    time.Now,
		cred:   cred,
	}, nil
}

// WrapUnary implements connect.Interceptor.
func (i *AuthInterceptor) WrapUnary(next connect.UnaryFunc) connect.UnaryFunc {
	return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
		header, err := i.AuthorizationHeader()
		if err != nil {
			return nil, connect.NewError(connect.CodeUnauthenticated, err)
		}
		req.Header().Set("Authorization", header)
		return next(ctx, req)
	}
}

// WrapStreamingClient implements connect.Interceptor.
func (i *AuthInterceptor) WrapStreamingClient(next connect.StreamingClientFunc) connect.StreamingClientFunc {
	return func(ctx context.Context, spec connect.Spec) connect.StreamingClientConn {
		conn := next(ctx, spec)
		header, err := i.AuthorizationHeader()
		if err != nil {
			log.Error().Err(err).Msg("Failed to add auth header to streaming request")
			return conn
		}
		conn.RequestHeader().Set("Authorization", header)
		return conn
	}
}

// WrapStreamingHandler is not used for client interceptors.
func (i *AuthInterceptor) WrapStreamingHandler(next connect.StreamingHandlerFunc) connect.StreamingHandlerFunc {
	return next
}

// AuthorizationHeader returns the Authorization header value, or
// ErrTokenExpired once the stored token has lapsed.
func (i *AuthInterceptor) AuthorizationHeader() (string, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.cred.Expired(i.now()) {
		return "", fmt.Errorf("%w for %s, run steeple-cli token again", ErrTokenExpired, i.server)
	}
	return "Bearer " + i.cred.Token, nil
}
