package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/steeple/internal/models"
	"github.com/wolfeidau/steeple/internal/store"
)

const organizationColumns = `org_id, name, subdomain, custom_domain, website_enabled, created_at, updated_at`

// OrganizationStore implements store.OrganizationStore using PostgreSQL.
type OrganizationStore struct {
	pool *pgxpool.Pool
}

// NewOrganizationStore creates a new PostgreSQL-backed organization store.
// It shares the connection pool with other stores.
func NewOrganizationStore(pool *pgxpool.Pool) *OrganizationStore {
	return &OrganizationStore{
		pool: pool,
	}
}

// Create creates a new organization in the database.
func (s *OrganizationStore) Create(ctx context.Context, org *models.Organization) error {
	query := `
		INSERT INTO organizations (` + organizationColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := s.pool.Exec(ctx, query,
		org.OrgID,
		org.Name,
		lowerPtr(org.Subdomain),
		lowerPtr(org.CustomDomain),
		org.WebsiteEnabled,
		org.CreatedAt,
		org.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrOrganizationAlreadyExists
		}
		return fmt.Errorf("failed to create organization: %w", mapPostgresError(err, store.ErrOrganizationNotFound))
	}

	log.Debug().
		Str("org_id", org.OrgID.String()).
		Str("name", org.Name).
		Msg("Created organization")

	return nil
}

// Get retrieves an organization by ID.
func (s *OrganizationStore) Get(ctx context.Context, orgID uuid.UUID) (*models.Organization, error) {
	return s.getOne(ctx, `SELECT `+organizationColumns+` FROM organizations WHERE org_id = $1`, orgID)
}

// GetBySubdomain retrieves an organization by exact subdomain match.
func (s *OrganizationStore) GetBySubdomain(ctx context.Context, subdomain string) (*models.Organization, error) {
	return s.getOne(ctx, `SELECT `+organizationColumns+` FROM organizations WHERE subdomain = $1`, strings.ToLower(subdomain))
}

// GetByCustomDomain retrieves an organization by exact custom domain match.
func (s *OrganizationStore) GetByCustomDomain(ctx context.Context, domain string) (*models.Organization, error) {
	return s.getOne(ctx, `SELECT `+organizationColumns+` FROM organizations WHERE custom_domain = $1`, strings.ToLower(domain))
}

func (s *OrganizationStore) getOne(ctx context.Context, query string, arg any) (*models.Organization, error) {
	org, err := scanOrganization(s.pool.QueryRow(ctx, query, arg))
	if err != nil {
		return nil, mapPostgresError(err, store.ErrOrganizationNotFound)
	}
	return org, nil
}

// Update updates an existing organization.
func (s *OrganizationStore) Update(ctx context.Context, org *models.Organization) error {
	org.UpdatedAt = time.Now()

	query := `
		UPDATE organizations SET
			name = $2,
			subdomain = $3,
			custom_domain = $4,
			website_enabled = $5,
			updated_at = $6
		WHERE org_id = $1
	`

	result, err := s.pool.Exec(ctx, query,
		org.OrgID,
		org.Name,
		lowerPtr(org.Subdomain),
		lowerPtr(org.CustomDomain),
		org.WebsiteEnabled,
		org.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrOrganizationAlreadyExists
		}
		return fmt.Errorf("failed to update organization: %w", mapPostgresError(err, store.ErrOrganizationNotFound))
	}

	if result.RowsAffected() == 0 {
		return store.ErrOrganizationNotFound
	}

	log.Debug().
		Str("org_id", org.OrgID.String()).
		Msg("Updated organization")

	return nil
}

// Delete removes an organization. Organizations that still have members are
// refused by the organization_members foreign key.
func (s *OrganizationStore) Delete(ctx context.Context, orgID uuid.UUID) error {
	result, err := s.pool.Exec(ctx, `DELETE FROM organizations WHERE org_id = $1`, orgID)
	if err != nil {
		return fmt.Errorf("failed to delete organization: %w", mapPostgresError(err, store.ErrOrganizationNotFound))
	}

	if result.RowsAffected() == 0 {
		return store.ErrOrganizationNotFound
	}

	log.Debug().Str("org_id", orgID.String()).Msg("Deleted organization")

	return nil
}

// ListByIDs returns the organizations matching the given IDs.
func (s *OrganizationStore) ListByIDs(ctx context.Context, orgIDs []uuid.UUID) ([]*models.Organization, error) {
	if len(orgIDs) == 0 {
		return nil, nil
	}

	query := `
		SELECT ` + organizationColumns + `
		FROM organizations
		WHERE org_id = ANY($1)
		ORDER BY name
	`

	rows, err := s.pool.Query(ctx, query, orgIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to list organizations: %w", mapPostgresError(err, store.ErrOrganizationNotFound))
	}
	defer rows.Close()

	var orgs []*models.Organization
	for rows.Next() {
		org, err := scanOrganization(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan organization: %w", err)
		}
		orgs = append(orgs, org)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating organizations: %w", mapPostgresError(err, store.ErrOrganizationNotFound))
	}

	return orgs, nil
}

func scanOrganization(row pgx.Row) (*models.Organization, error) {
	var org models.Organization
	err := row.Scan(
		&org.OrgID,
		&org.Name,
		&org.Subdomain,
		&org.CustomDomain,
		&org.WebsiteEnabled,
		&org.CreatedAt,
		&org.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &org, nil
}

func lowerPtr(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.ToLower(*s)
	return &v
}
