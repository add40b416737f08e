package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/wolfeidau/steeple/internal/models"
)

// Sentinel errors for organization store operations
var (
	ErrOrganizationNotFound      = errors.New("organization not found")
	ErrOrganizationAlreadyExists = errors.New("organization already exists")
)

// OrganizationStore defines the interface for organization storage operations.
// Organizations represent tenants; every lookup that finds no row returns
// ErrOrganizationNotFound so callers can tell "no row" apart from real failures.
type OrganizationStore interface {
	// Create creates a new organization in the store.
	// Returns ErrOrganizationAlreadyExists if the ID, subdomain or custom domain is taken.
	Create(ctx context.Context, org *models.Organization) error

	// Get retrieves an organization by ID.
	Get(ctx context.Context, orgID uuid.UUID) (*models.Organization, error)

	// GetBySubdomain retrieves an organization by exact subdomain match.
	GetBySubdomain(ctx context.Context, subdomain string) (*models.Organization, error)

	// GetByCustomDomain retrieves an organization by exact custom domain match.
	GetByCustomDomain(ctx context.Context, domain string) (*models.Organization, error)

	// Update updates an existing organization.
	// Returns ErrOrganizationNotFound if the organization doesn't exist.
	Update(ctx context.Context, org *models.Organization) error

	// Delete removes an organization that has no members.
	// Returns ErrOrganizationNotFound if the organization doesn't exist.
	Delete(ctx context.Context, orgID uuid.UUID) error

	// ListByIDs returns the organizations matching the given IDs, skipping unknown IDs.
	ListByIDs(ctx context.Context, orgIDs []uuid.UUID) ([]*models.Organization, error)
}
