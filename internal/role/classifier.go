// Package role classifies a signed-in user as super admin, organization admin
// or regular user.
package role

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/steeple/internal/models"
	"github.com/wolfeidau/steeple/internal/store"
	"github.com/wolfeidau/steeple/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Classifier derives a user's role from the privileged super admin check and
// their organization memberships. It never fails: any store error degrades to
// the least privileged answer.
type Classifier struct {
	Privileges  store.PrivilegeChecker
	Memberships store.MembershipStore
}

// New creates a Classifier.
func New(privileges store.PrivilegeChecker, memberships store.MembershipStore) *Classifier {
	return &Classifier{
		Privileges:  privileges,
		Memberships: memberships,
	}
}

// IsSuperAdmin reports whether userID holds global super admin status.
// Errors are logged and treated as false.
func (c *Classifier) IsSuperAdmin(ctx context.Context, userID uuid.UUID) bool {
	ok, err := c.Privileges.IsSuperAdmin(ctx, userID)
	if err != nil {
		log.Warn().Err(err).Str("user_id", userID.String()).Msg("super admin check failed, assuming not super admin")
		return false
	}
	return ok
}

// Classify returns the user's role. A super admin short-circuits; otherwise
// any admin, editor or owner membership yields org_admin.
func (c *Classifier) Classify(ctx context.Context, userID uuid.UUID) models.Role {
	r, outcome := c.classify(ctx, userID)

	telemetry.GetMetrics().RoleClassificationsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("role", r.String()),
		attribute.String("outcome", outcome),
	))

	log.Debug().
		Str("user_id", userID.String()).
		Str("role", r.String()).
		Str("outcome", outcome).
		Msg("classified role")

	return r
}

func (c *Classifier) classify(ctx context.Context, userID uuid.UUID) (models.Role, string) {
	outcome := "ok"

	ok, err := c.Privileges.IsSuperAdmin(ctx, userID)
	switch {
	case err != nil:
		log.Warn().Err(err).Str("user_id", userID.String()).Msg("super admin check failed")
		outcome = "error"
	case ok:
		return models.RoleSuperAdmin, outcome
	}

	memberships, err := c.Memberships.ListByUser(ctx, userID, models.AdministrativeRoles...)
	if err != nil {
		log.Warn().Err(err).Str("user_id", userID.String()).Msg("membership lookup failed, defaulting to regular user")
		return models.RoleRegularUser, "error"
	}

	if len(memberships) > 0 {
		return models.RoleOrgAdmin, outcome
	}

	return models.RoleRegularUser, outcome
}

// Organizations returns the organizations userID can access, or nil on error.
func (c *Classifier) Organizations(ctx context.Context, userID uuid.UUID) []uuid.UUID {
	ids, err := c.Memberships.ListOrganizationIDs(ctx, userID)
	if err != nil {
		log.Warn().Err(err).Str("user_id", userID.String()).Msg("failed to list user organizations")
		return nil
	}
	return ids
}

// CanAccess reports whether userID may open orgID's dashboard: super admins
// may open any organization, everyone else needs a membership.
func (c *Classifier) CanAccess(ctx context.Context, userID, orgID uuid.UUID) bool {
	if c.IsSuperAdmin(ctx, userID) {
		return true
	}

	_, err := c.Memberships.Get(ctx, orgID, userID)
	switch {
	case err == nil:
		return true
	case !errors.Is(err, store.ErrMembershipNotFound):
		log.Warn().Err(err).
			Str("user_id", userID.String()).
			Str("org_id", orgID.String()).
			Msg("membership check failed, denying access")
	}
	return false
}
