package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/steeple/internal/models"
	"github.com/wolfeidau/steeple/internal/store"
)

// MembershipStore implements store.MembershipStore using PostgreSQL.
type MembershipStore struct {
	pool *pgxpool.Pool
}

// NewMembershipStore creates a new PostgreSQL-backed membership store.
func NewMembershipStore(pool *pgxpool.Pool) *MembershipStore {
	return &MembershipStore{
		pool: pool,
	}
}

// Create adds a membership.
func (s *MembershipStore) Create(ctx context.Context, m *models.Membership) error {
	query := `
		INSERT INTO organization_members (org_id, user_id, role, created_at)
		VALUES ($1, $2, $3, $4)
	`

	_, err := s.pool.Exec(ctx, query, m.OrgID, m.UserID, string(m.Role), m.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrMembershipAlreadyExists
		}
		return fmt.Errorf("failed to create membership: %w", mapPostgresError(err, store.ErrMembershipNotFound))
	}

	log.Debug().
		Str("org_id", m.OrgID.String()).
		Str("user_id", m.UserID.String()).
		Str("role", string(m.Role)).
		Msg("Created membership")

	return nil
}

// Get returns the membership of a user in an organization.
func (s *MembershipStore) Get(ctx context.Context, orgID, userID uuid.UUID) (*models.Membership, error) {
	query := `
		SELECT org_id, user_id, role, created_at
		FROM organization_members
		WHERE org_id = $1 AND user_id = $2
	`

	var m models.Membership
	var role string
	err := s.pool.QueryRow(ctx, query, orgID, userID).Scan(&m.OrgID, &m.UserID, &role, &m.CreatedAt)
	if err != nil {
		return nil, mapPostgresError(err, store.ErrMembershipNotFound)
	}
	m.Role = models.MembershipRole(role)

	return &m, nil
}

// ListByUser returns a user's memberships, filtered to roles when given.
func (s *MembershipStore) ListByUser(ctx context.Context, userID uuid.UUID, roles ...models.MembershipRole) ([]*models.Membership, error) {
	query := `
		SELECT org_id, user_id, role, created_at
		FROM organization_members
		WHERE user_id = $1 AND (cardinality($2::text[]) = 0 OR role = ANY($2::text[]))
		ORDER BY created_at
	`

	roleNames := make([]string, 0, len(roles))
	for _, r := range roles {
		roleNames = append(roleNames, string(r))
	}

	rows, err := s.pool.Query(ctx, query, userID, roleNames)
	if err != nil {
		return nil, fmt.Errorf("failed to list memberships: %w", mapPostgresError(err, store.ErrMembershipNotFound))
	}
	defer rows.Close()

	var memberships []*models.Membership
	for rows.Next() {
		var m models.Membership
		var role string
		if err := rows.Scan(&m.OrgID, &m.UserID, &role, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan membership: %w", err)
		}
		m.Role = models.MembershipRole(role)
		memberships = append(memberships, &m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating memberships: %w", mapPostgresError(err, store.ErrMembershipNotFound))
	}

	return memberships, nil
}

// ListOrganizationIDs calls the fetch_user_organizations database function.
func (s *MembershipStore) ListOrganizationIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := s.pool.Query(ctx, `SELECT fetch_user_organizations($1)`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch user organizations: %w", mapPostgresError(err, store.ErrMembershipNotFound))
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan organization id: %w", err)
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating organization ids: %w", mapPostgresError(err, store.ErrMembershipNotFound))
	}

	return ids, nil
}
