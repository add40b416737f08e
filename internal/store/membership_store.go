package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/wolfeidau/steeple/internal/models"
)

// Sentinel errors for membership store operations
var (
	ErrMembershipNotFound      = errors.New("membership not found")
	ErrMembershipAlreadyExists = errors.New("membership already exists")
)

// MembershipStore manages (organization, user, role) tuples.
type MembershipStore interface {
	// Create adds a membership. Returns ErrMembershipAlreadyExists for a duplicate (org, user).
	Create(ctx context.Context, m *models.Membership) error

	// Get returns the membership of a user in an organization.
	Get(ctx context.Context, orgID, userID uuid.UUID) (*models.Membership, error)

	// ListByUser returns a user's memberships, optionally filtered to the given roles.
	// An empty roles slice returns every membership.
	ListByUser(ctx context.Context, userID uuid.UUID, roles ...models.MembershipRole) ([]*models.Membership, error)

	// ListOrganizationIDs returns the organizations a user can access.
	ListOrganizationIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error)
}
