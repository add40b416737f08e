// Package routing selects the top-level dashboard view for a request from the
// tenant context, the signed-in user and the URL parameters.
package routing

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/steeple/internal/models"
	"github.com/wolfeidau/steeple/internal/telemetry"
	"github.com/wolfeidau/steeple/internal/tenant"
)

// DefaultTimeout bounds role classification before falling back to the landing view.
const DefaultTimeout = 10 * time.Second

// View is the top-level screen selected for a request.
type View string

const (
	ViewSuperAdminConsole     View = "super_admin_console"
	ViewOrganizationDashboard View = "organization_dashboard"
	ViewMainLanding           View = "main_landing"
	ViewAccessDenied          View = "access_denied"
	ViewRedirect              View = "redirect"
	ViewError                 View = "error"
)

// Phase is the router state a decision was reached in.
type Phase string

const (
	PhaseCheckingContext Phase = "checking_context"
	PhaseCheckingAuth    Phase = "checking_auth"
	PhaseCheckingRole    Phase = "checking_role"
	PhaseRouted          Phase = "routed"
)

// RoleClassifier is the subset of role.Classifier the router needs.
type RoleClassifier interface {
	Classify(ctx context.Context, userID uuid.UUID) models.Role
	Organizations(ctx context.Context, userID uuid.UUID) []uuid.UUID
}

// Input is everything a routing decision depends on.
type Input struct {
	Tenant tenant.State

	// UserID is nil when nobody is signed in.
	UserID *uuid.UUID

	// OrgParam is the "org" query parameter, PathOrgID the organizationId path segment.
	OrgParam  string
	PathOrgID string

	// AdminParam is set when the "admin" query parameter asks for the console.
	AdminParam bool

	// Continue is set when the user chose to skip waiting for classification.
	Continue bool

	// MainDomain is true when the request arrived on the apex, an alias or a development host.
	MainDomain bool

	// Path is the request path used as the post-login destination.
	Path string
}

// Decision is the outcome of Route.
type Decision struct {
	View           View
	Phase          Phase
	OrganizationID uuid.UUID
	RedirectURL    string
	Role           models.Role

	// TimedOut is set when classification exceeded the timeout, ContinueOffered
	// when the view should offer a manual continue action.
	TimedOut        bool
	ContinueOffered bool

	// AdminOverride lets a super admin reach the console from a tenant host.
	AdminOverride bool

	Error error
}

// Router implements the dashboard decision tree.
type Router struct {
	Roles   RoleClassifier
	Timeout time.Duration

	// LoginPath receives unauthenticated users, MainURL preview hosts.
	LoginPath string
	MainURL   string
}

// New creates a Router with the default timeout.
func New(roles RoleClassifier, mainURL string) *Router {
	return &Router{
		Roles:     roles,
		Timeout:   DefaultTimeout,
		LoginPath: "/login",
		MainURL:   mainURL,
	}
}

// Route selects the view for in. It never panics; unexpected failures while
// classifying degrade to the main landing view.
func (r *Router) Route(ctx context.Context, in Input) (d Decision) {
	defer func() {
		if p := recover(); p != nil {
			d = r.recovered(ctx, p)
		}
		telemetry.GetMetrics().RecordRoutingDecision(ctx, string(d.View), d.TimedOut)
		log.Debug().
			Str("view", string(d.View)).
			Str("phase", string(d.Phase)).
			Str("org_id", d.OrganizationID.String()).
			Str("role", d.Role.String()).
			Bool("timed_out", d.TimedOut).
			Msg("routing decision")
	}()

	// checking_context
	if in.Tenant.Err != nil {
		return Decision{View: ViewError, Phase: PhaseRouted, Error: in.Tenant.Err}
	}
	if !in.Tenant.Ready {
		return Decision{Phase: PhaseCheckingContext}
	}
	if in.Tenant.Preview {
		return Decision{View: ViewRedirect, Phase: PhaseRouted, RedirectURL: r.MainURL}
	}

	// checking_auth
	if in.UserID == nil {
		return Decision{View: ViewRedirect, Phase: PhaseRouted, RedirectURL: r.loginURL(in.Path)}
	}

	// an explicit organization wins; access is enforced by the dashboard's own data fetch
	if raw := firstNonEmpty(in.OrgParam, in.PathOrgID); raw != "" {
		orgID, err := uuid.Parse(raw)
		if err != nil || len(raw) != 36 {
			return Decision{View: ViewError, Phase: PhaseRouted, Error: fmt.Errorf("invalid organization id %q", raw)}
		}
		return Decision{View: ViewOrganizationDashboard, Phase: PhaseRouted, OrganizationID: orgID}
	}

	if in.Continue {
		return Decision{View: ViewMainLanding, Phase: PhaseRouted}
	}

	// checking_role, bounded by the timeout
	return r.routeByRole(ctx, in, *in.UserID)
}

type roleResult struct {
	decision Decision
	panicked any
}

func (r *Router) routeByRole(ctx context.Context, in Input, userID uuid.UUID) Decision {
	timeout := r.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	// buffered so a late classification never blocks after a timeout
	results := make(chan roleResult, 1)
	go func() {
		var res roleResult
		defer func() {
			if p := recover(); p != nil {
				res.panicked = p
			}
			results <- res
		}()
		res.decision = r.decideByRole(cctx, in, userID)
	}()

	select {
	case res := <-results:
		if res.panicked != nil {
			return r.recovered(ctx, res.panicked)
		}
		// a result produced after the deadline may reflect cancelled lookups
		if cctx.Err() == nil {
			return res.decision
		}
	case <-cctx.Done():
	}

	log.Warn().
		Str("user_id", userID.String()).
		Dur("timeout", timeout).
		Msg("role classification timed out, falling back to landing")

	return Decision{
		View:            ViewMainLanding,
		Phase:           PhaseRouted,
		TimedOut:        true,
		ContinueOffered: true,
	}
}

func (r *Router) decideByRole(ctx context.Context, in Input, userID uuid.UUID) Decision {
	role := r.Roles.Classify(ctx, userID)
	superAdmin := role == models.RoleSuperAdmin

	if in.AdminParam {
		if superAdmin {
			return Decision{View: ViewSuperAdminConsole, Phase: PhaseRouted, Role: role}
		}
		return Decision{View: ViewAccessDenied, Phase: PhaseRouted, Role: role}
	}

	if !in.MainDomain && in.Tenant.HasOrganization() {
		return Decision{
			View:           ViewOrganizationDashboard,
			Phase:          PhaseRouted,
			OrganizationID: in.Tenant.OrgID,
			Role:           role,
			AdminOverride:  superAdmin,
		}
	}

	if superAdmin {
		return Decision{View: ViewSuperAdminConsole, Phase: PhaseRouted, Role: role}
	}

	orgs := r.Roles.Organizations(ctx, userID)
	if len(orgs) == 1 {
		return Decision{
			View:           ViewRedirect,
			Phase:          PhaseRouted,
			OrganizationID: orgs[0],
			RedirectURL:    "/dashboard/" + orgs[0].String(),
			Role:           role,
		}
	}

	return Decision{View: ViewMainLanding, Phase: PhaseRouted, Role: role}
}

func (r *Router) recovered(ctx context.Context, p any) Decision {
	telemetry.GetMetrics().RoutingPanicsTotal.Add(ctx, 1)
	log.Error().
		Str("panic", fmt.Sprint(p)).
		Msg("recovered panic during routing, falling back to landing")
	return Decision{View: ViewMainLanding, Phase: PhaseRouted}
}

func (r *Router) loginURL(next string) string {
	if next == "" {
		return r.LoginPath
	}
	return r.LoginPath + "?next=" + url.QueryEscape(next)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
