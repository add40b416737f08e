// Package tenantv1connect wires TenantService to connect handlers and clients.
package tenantv1connect

import (
	"context"
	"net/http"
	"strings"

	"connectrpc.com/connect"
	tenantv1 "github.com/wolfeidau/steeple/api/tenant/v1"
)

// TenantServiceName is the fully-qualified name of the TenantService service.
const TenantServiceName = "steeple.tenant.v1.TenantService"

// Procedure paths, used to route requests and to configure clients.
const (
	TenantServiceResolveTenantProcedure  = "/steeple.tenant.v1.TenantService/ResolveTenant"
	TenantServiceRouteDashboardProcedure = "/steeple.tenant.v1.TenantService/RouteDashboard"
)

// TenantServiceClient is a client for the steeple.tenant.v1.TenantService service.
type TenantServiceClient interface {
	// ResolveTenant classifies a host and resolves its organization. It has no
	// side effects and may be called with HTTP GET.
	ResolveTenant(context.Context, *connect.Request[tenantv1.ResolveTenantRequest]) (*connect.Response[tenantv1.ResolveTenantResponse], error)
	// RouteDashboard picks the dashboard view for the authenticated caller.
	RouteDashboard(context.Context, *connect.Request[tenantv1.RouteDashboardRequest]) (*connect.Response[tenantv1.RouteDashboardResponse], error)
}

// NewTenantServiceClient constructs a client for the steeple.tenant.v1.TenantService
// service. Pass connect.WithHTTPGet() to send ResolveTenant as a cacheable GET.
func NewTenantServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) TenantServiceClient {
	baseURL = strings.TrimRight(baseURL, "/")
	return &tenantServiceClient{
		resolveTenant: connect.NewClient[tenantv1.ResolveTenantRequest, tenantv1.ResolveTenantResponse](
			httpClient,
			baseURL+TenantServiceResolveTenantProcedure,
			connect.WithCodec(tenantv1.JSONCodec{}),
			connect.WithIdempotency(connect.IdempotencyNoSideEffects),
			connect.WithClientOptions(opts...),
		),
		routeDashboard: connect.NewClient[tenantv1.RouteDashboardRequest, tenantv1.RouteDashboardResponse](
			httpClient,
			baseURL+TenantServiceRouteDashboardProcedure,
			connect.WithCodec(tenantv1.JSONCodec{}),
			connect.WithClientOptions(opts...),
		),
	}
}

type tenantServiceClient struct {
	resolveTenant  *connect.Client[tenantv1.ResolveTenantRequest, tenantv1.ResolveTenantResponse]
	routeDashboard *connect.Client[tenantv1.RouteDashboardRequest, tenantv1.RouteDashboardResponse]
}

func (c *tenantServiceClient) ResolveTenant(ctx context.Context, req *connect.Request[tenantv1.ResolveTenantRequest]) (*connect.Response[tenantv1.ResolveTenantResponse], error) {
	return c.resolveTenant.CallUnary(ctx, req)
}

func (c *tenantServiceClient) RouteDashboard(ctx context.Context, req *connect.Request[tenantv1.RouteDashboardRequest]) (*connect.Response[tenantv1.RouteDashboardResponse], error) {
	return c.routeDashboard.CallUnary(ctx, req)
}

// TenantServiceHandler is implemented by the steeple.tenant.v1.TenantService server.
type TenantServiceHandler interface {
	ResolveTenant(context.Context, *connect.Request[tenantv1.ResolveTenantRequest]) (*connect.Response[tenantv1.ResolveTenantResponse], error)
	RouteDashboard(context.Context, *connect.Request[tenantv1.RouteDashboardRequest]) (*connect.Response[tenantv1.RouteDashboardResponse], error)
}

// NewTenantServiceHandler builds an HTTP handler from the service implementation.
// It returns the path on which to mount the handler and the handler itself.
func NewTenantServiceHandler(svc TenantServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	resolveTenantHandler := connect.NewUnaryHandler(
		TenantServiceResolveTenantProcedure,
		svc.ResolveTenant,
		connect.WithCodec(tenantv1.JSONCodec{}),
		connect.WithIdempotency(connect.IdempotencyNoSideEffects),
		connect.WithHandlerOptions(opts...),
	)
	routeDashboardHandler := connect.NewUnaryHandler(
		TenantServiceRouteDashboardProcedure,
		svc.RouteDashboard,
		connect.WithCodec(tenantv1.JSONCodec{}),
		connect.WithHandlerOptions(opts...),
	)
	return "/" + TenantServiceName + "/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case TenantServiceResolveTenantProcedure:
			resolveTenantHandler.ServeHTTP(w, r)
		case TenantServiceRouteDashboardProcedure:
			routeDashboardHandler.ServeHTTP(w, r)
		default:
			http.NotFound(w, r)
		}
	})
}
