package client

import (
	"context"
	"time"

	"connectrpc.com/connect"
	"github.com/wolfeidau/steeple/api/tenant/v1/tenantv1connect"
)

// Config holds common client configuration
type Config struct {
	ServerURL string
	Timeout   time.Duration

	// CacheDir persists cached ResolveTenant responses, empty keeps them in memory.
	CacheDir string

	// Token is sent as a bearer token when set.
	Token string
}

// Clients holds the RPC clients
type Clients struct {
	Tenant tenantv1connect.TenantServiceClient
}

// NewClients creates new RPC clients with the given configuration.
// Idempotent procedures are sent as HTTP GET so their responses can be cached.
func NewClients(config Config, opts ...connect.ClientOption) *Clients {
	httpClient := NewCachingHTTPClient(config.CacheDir, config.Timeout)

	opts = append([]connect.ClientOption{connect.WithHTTPGet()}, opts...)
	if config.Token != "" {
		opts = append(opts, connect.WithInterceptors(BearerToken(config.Token)))
	}

	return &Clients{
		Tenant: tenantv1connect.NewTenantServiceClient(httpClient, config.ServerURL, opts...),
	}
}

// BearerToken adds an Authorization header to every unary request.
func BearerToken(token string) connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			if req.Spec().IsClient {
				req.Header().Set("Authorization", "Bearer "+token)
			}
			return next(ctx, req)
		}
	}
}

// DefaultConfig returns a default client configuration
func DefaultConfig() Config {
	return Config{
		ServerURL: "http://localhost:8080",
		Timeout:   30 * time.Second,
	}
}
