package commands

import (
	"context"

	"connectrpc.com/connect"
	tenantv1 "github.com/wolfeidau/steeple/api/tenant/v1"
)

type RouteCmd struct {
	ServerFlags `embed:""`

	Host     string `help:"host the dashboard is opened on" required:""`
	Path     string `help:"request path used as the post-login destination" default:"/dashboard"`
	Org      string `help:"organization ID to open" default:""`
	Admin    bool   `help:"ask for the super admin console" default:"false"`
	Continue bool   `help:"skip role classification" default:"false"`
}

func (c *RouteCmd) Run(ctx context.Context) error {
	clients, err := c.authenticatedClients()
	if err != nil {
		return err
	}

	res, err := clients.Tenant.RouteDashboard(ctx, connect.NewRequest(&tenantv1.RouteDashboardRequest{
		Host:     c.Host,
		Path:     c.Path,
		Org:      c.Org,
		Admin:    c.Admin,
		Continue: c.Continue,
	}))
	if err != nil {
		return describeError("failed to route dashboard", err)
	}

	if c.JSON {
		return printJSON(res.Msg)
	}

	msg := res.Msg
	printField("View", msg.View)
	printField("Phase", msg.Phase)
	if msg.Role != "" {
		printField("Role", msg.Role)
	}
	if msg.OrganizationID != "" {
		printField("Organization", msg.OrganizationID)
	}
	if msg.RedirectURL != "" {
		printField("Redirect", msg.RedirectURL)
	}
	if msg.AdminOverride {
		printField("Admin override", true)
	}
	if msg.TimedOut {
		printField("Timed out", true)
	}
	if msg.Error != nil {
		printField("Error", msg.Error.Kind+": "+msg.Error.Message)
	}
	return nil
}
