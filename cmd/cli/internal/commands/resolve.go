package commands

import (
	"context"
	"errors"
	"fmt"

	"connectrpc.com/connect"
	tenantv1 "github.com/wolfeidau/steeple/api/tenant/v1"
	"github.com/wolfeidau/steeple/internal/client"
)

type ResolveCmd struct {
	ServerFlags `embed:""`

	Host  string `help:"host to classify and resolve" default:""`
	Token string `help:"subdomain, organization ID or custom domain to resolve directly" default:""`
}

func (c *ResolveCmd) Run(ctx context.Context) error {
	if c.Host == "" && c.Token == "" {
		return errors.New("one of --host or --token is required")
	}

	res, err := c.clients().Tenant.ResolveTenant(ctx, connect.NewRequest(&tenantv1.ResolveTenantRequest{
		Host:  c.Host,
		Token: c.Token,
	}))
	if err != nil {
		return describeError("failed to resolve tenant", err)
	}

	if c.JSON {
		return printJSON(res.Msg)
	}

	msg := res.Msg
	printField("Host", msg.Host)
	printField("Kind", msg.HostKind)
	if msg.OrganizationID != "" {
		printField("Organization", fmt.Sprintf("%s (%s)", msg.OrganizationName, msg.OrganizationID))
		printField("Subdomain", msg.Subdomain)
		printField("Subdomain access", msg.SubdomainAccess)
	}
	if msg.PreviewID != "" {
		printField("Preview", msg.PreviewID)
	}
	printField("Development", msg.Development)
	printField("Cached", client.FromCache(res.Header()))
	return nil
}

// describeError adds the resolution kind carried in error metadata.
func describeError(prefix string, err error) error {
	var cerr *connect.Error
	if errors.As(err, &cerr) {
		if kind := cerr.Meta().Get(tenantv1.ErrorKindHeader); kind != "" {
			return fmt.Errorf("%s (%s): %s", prefix, kind, cerr.Message())
		}
	}
	return fmt.Errorf("%s: %w", prefix, err)
}
