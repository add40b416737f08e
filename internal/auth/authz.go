package auth

import (
	"context"

	"connectrpc.com/connect"
)

// RequirePrincipal returns the authenticated principal or a connect
// Unauthenticated error for RPC handlers.
func RequirePrincipal(ctx context.Context) (*Principal, error) {
	p, ok := PrincipalFromContext(ctx)
	if !ok {
		return nil, connect.NewError(connect.CodeUnauthenticated, ErrUnauthenticated)
	}
	return p, nil
}
