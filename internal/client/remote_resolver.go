package client

import (
	"context"
	"errors"
	"fmt"

	"connectrpc.com/connect"
	"github.com/google/uuid"
	tenantv1 "github.com/wolfeidau/steeple/api/tenant/v1"
	"github.com/wolfeidau/steeple/api/tenant/v1/tenantv1connect"
	"github.com/wolfeidau/steeple/internal/tenant"
)

// RemoteResolver adapts a TenantService client to tenant.OrganizationResolver.
// This lets an edge process build tenant contexts without direct database
// access; resolution errors keep their kind across the wire.
type RemoteResolver struct {
	client tenantv1connect.TenantServiceClient
}

var _ tenant.OrganizationResolver = (*RemoteResolver)(nil)

// NewRemoteResolver creates a resolver backed by client.
func NewRemoteResolver(client tenantv1connect.TenantServiceClient) *RemoteResolver {
	return &RemoteResolver{client: client}
}

// Resolve looks up token through ResolveTenant.
func (r *RemoteResolver) Resolve(ctx context.Context, token, host string) (*tenant.Resolution, error) {
	resp, err := r.client.ResolveTenant(ctx, connect.NewRequest(&tenantv1.ResolveTenantRequest{
		Host:  host,
		Token: token,
	}))
	if err != nil {
		return nil, resolutionError(token, err)
	}

	orgID, err := uuid.Parse(resp.Msg.OrganizationID)
	if err != nil {
		return nil, fmt.Errorf("invalid organization_id: %w", err)
	}

	return &tenant.Resolution{
		OrgID:     orgID,
		Name:      resp.Msg.OrganizationName,
		Subdomain: resp.Msg.Subdomain,
	}, nil
}

func resolutionError(token string, err error) *tenant.ResolutionError {
	re := &tenant.ResolutionError{
		Kind:    tenant.KindUnavailable,
		Token:   token,
		Message: "organization lookup is temporarily unavailable, please try again",
		Err:     err,
	}

	var cerr *connect.Error
	if !errors.As(err, &cerr) {
		return re
	}

	switch kind := tenant.Kind(cerr.Meta().Get(tenantv1.ErrorKindHeader)); kind {
	case tenant.KindNotFound, tenant.KindDisabled:
		re.Kind = kind
		re.Message = cerr.Message()
	default:
		if cerr.Code() == connect.CodeNotFound {
			re.Kind = tenant.KindNotFound
			re.Message = cerr.Message()
		}
	}
	return re
}
