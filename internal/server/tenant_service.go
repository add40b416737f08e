package server

import (
	"context"
	"errors"

	"connectrpc.com/connect"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	tenantv1 "github.com/wolfeidau/steeple/api/tenant/v1"
	"github.com/wolfeidau/steeple/api/tenant/v1/tenantv1connect"
	"github.com/wolfeidau/steeple/internal/auth"
	"github.com/wolfeidau/steeple/internal/hostname"
	"github.com/wolfeidau/steeple/internal/routing"
	"github.com/wolfeidau/steeple/internal/tenant"
)

// resolveCacheControl lets clients and proxies reuse ResolveTenant answers briefly.
const resolveCacheControl = "max-age=60"

// Verify TenantServiceServer implements the handler interface
var _ tenantv1connect.TenantServiceHandler = &TenantServiceServer{}

// TenantServiceServer implements the TenantService RPC service.
// ResolveTenant is public; RouteDashboard requires an authenticated caller.
type TenantServiceServer struct {
	classifier *hostname.Classifier
	resolver   tenant.OrganizationResolver
	router     *routing.Router
}

// NewTenantServiceServer creates a new TenantService server.
func NewTenantServiceServer(
	classifier *hostname.Classifier,
	resolver tenant.OrganizationResolver,
	router *routing.Router,
) *TenantServiceServer {
	return &TenantServiceServer{
		classifier: classifier,
		resolver:   resolver,
		router:     router,
	}
}

// ResolveTenant classifies the host and resolves its organization, or
// resolves an explicit token when one is given.
func (s *TenantServiceServer) ResolveTenant(
	ctx context.Context,
	req *connect.Request[tenantv1.ResolveTenantRequest],
) (*connect.Response[tenantv1.ResolveTenantResponse], error) {
	if req.Msg.Host == "" && req.Msg.Token == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("host or token is required"))
	}

	host := s.classifier.Normalize(req.Msg.Host)

	var msg *tenantv1.ResolveTenantResponse
	if req.Msg.Token != "" {
		res, err := s.resolver.Resolve(ctx, req.Msg.Token, host)
		if err != nil {
			return nil, resolutionConnectError(err)
		}
		msg = &tenantv1.ResolveTenantResponse{
			Host:             host,
			HostKind:         tenantv1.HostKindTenant,
			OrganizationID:   res.OrgID.String(),
			OrganizationName: res.Name,
			Subdomain:        res.Subdomain,
		}
	} else {
		state, err := s.tenantState(ctx, req.Msg.Host)
		if err != nil {
			return nil, err
		}
		if state.Err != nil {
			return nil, resolutionConnectError(state.Err)
		}
		msg = resolveResponse(state)
	}
	msg.Development = s.classifier.IsDevelopmentEnvironment(req.Msg.Host)

	res := connect.NewResponse(msg)
	res.Header().Set("Cache-Control", resolveCacheControl)
	return res, nil
}

// RouteDashboard runs the dashboard router for the authenticated caller on
// the requested host.
func (s *TenantServiceServer) RouteDashboard(
	ctx context.Context,
	req *connect.Request[tenantv1.RouteDashboardRequest],
) (*connect.Response[tenantv1.RouteDashboardResponse], error) {
	principal, err := auth.RequirePrincipal(ctx)
	if err != nil {
		return nil, err
	}

	if req.Msg.Host == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("host is required"))
	}

	state, err := s.tenantState(ctx, req.Msg.Host)
	if err != nil {
		return nil, err
	}

	userID := principal.UserID
	decision := s.router.Route(ctx, routing.Input{
		Tenant:     state,
		UserID:     &userID,
		OrgParam:   req.Msg.Org,
		AdminParam: req.Msg.Admin,
		Continue:   req.Msg.Continue,
		MainDomain: s.classifier.IsMainDomain(req.Msg.Host),
		Path:       req.Msg.Path,
	})

	log.Debug().
		Str("user_id", userID.String()).
		Str("host", state.Host).
		Str("view", string(decision.View)).
		Msg("RouteDashboard")

	return connect.NewResponse(routeResponse(decision)), nil
}

func (s *TenantServiceServer) tenantState(ctx context.Context, host string) (tenant.State, error) {
	tc := tenant.NewContext(host, s.classifier, s.resolver)
	if err := tc.Initialize(ctx); err != nil {
		return tenant.State{}, connect.NewError(connect.CodeInternal, err)
	}
	return tc.State(), nil
}

func resolveResponse(state tenant.State) *tenantv1.ResolveTenantResponse {
	msg := &tenantv1.ResolveTenantResponse{
		Host:     state.Host,
		HostKind: tenantv1.HostKindMainDomain,
	}
	switch {
	case state.Preview:
		msg.HostKind = tenantv1.HostKindPreview
		msg.PreviewID = state.PreviewID
	case state.HasOrganization():
		msg.HostKind = tenantv1.HostKindTenant
		msg.OrganizationID = state.OrgID.String()
		msg.OrganizationName = state.OrgName
		msg.Subdomain = state.Subdomain
		msg.SubdomainAccess = state.SubdomainAccess
	}
	return msg
}

func routeResponse(d routing.Decision) *tenantv1.RouteDashboardResponse {
	msg := &tenantv1.RouteDashboardResponse{
		View:            string(d.View),
		Phase:           string(d.Phase),
		RedirectURL:     d.RedirectURL,
		Role:            string(d.Role),
		TimedOut:        d.TimedOut,
		ContinueOffered: d.ContinueOffered,
		AdminOverride:   d.AdminOverride,
	}
	if d.OrganizationID != uuid.Nil {
		msg.OrganizationID = d.OrganizationID.String()
	}
	if d.Error != nil {
		msg.Error = &tenantv1.Error{
			Kind:    string(tenant.KindOf(d.Error)),
			Message: d.Error.Error(),
		}
	}
	return msg
}

// resolutionConnectError maps a resolution failure to a connect error and
// carries its kind in the error metadata.
func resolutionConnectError(err error) error {
	kind := tenant.KindOf(err)

	code := connect.CodeInternal
	switch kind {
	case tenant.KindNotFound:
		code = connect.CodeNotFound
	case tenant.KindDisabled:
		code = connect.CodeFailedPrecondition
	case tenant.KindUnavailable:
		code = connect.CodeUnavailable
	}

	cerr := connect.NewError(code, err)
	if kind != "" {
		cerr.Meta().Set(tenantv1.ErrorKindHeader, string(kind))
	}
	return cerr
}
