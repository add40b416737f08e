package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/google/uuid"
	"github.com/wolfeidau/steeple/internal/models"
	"github.com/wolfeidau/steeple/internal/store"
)

type membershipKey struct {
	orgID  uuid.UUID
	userID uuid.UUID
}

// MembershipStore implements store.MembershipStore using in-memory storage.
type MembershipStore struct {
	mu sync.RWMutex

	memberships map[membershipKey]*models.Membership
	byUser      map[uuid.UUID][]membershipKey // user_id -> keys, in insertion order
}

// NewMembershipStore creates a new in-memory membership store.
func NewMembershipStore() *MembershipStore {
	return &MembershipStore{
		memberships: make(map[membershipKey]*models.Membership),
		byUser:      make(map[uuid.UUID][]membershipKey),
	}
}

// Create adds a membership.
func (s *MembershipStore) Create(ctx context.Context, m *models.Membership) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := membershipKey{orgID: m.OrgID, userID: m.UserID}
	if _, exists := s.memberships[key]; exists {
		return store.ErrMembershipAlreadyExists
	}

	clone := *m
	s.memberships[key] = &clone
	s.byUser[m.UserID] = append(s.byUser[m.UserID], key)

	return nil
}

// Get returns the membership of a user in an organization.
func (s *MembershipStore) Get(ctx context.Context, orgID, userID uuid.UUID) (*models.Membership, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, exists := s.memberships[membershipKey{orgID: orgID, userID: userID}]
	if !exists {
		return nil, store.ErrMembershipNotFound
	}

	clone := *m
	return &clone, nil
}

// ListByUser returns a user's memberships filtered to roles when given.
func (s *MembershipStore) ListByUser(ctx context.Context, userID uuid.UUID, roles ...models.MembershipRole) ([]*models.Membership, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*models.Membership
	for _, key := range s.byUser[userID] {
		m := s.memberships[key]
		if len(roles) > 0 && !slices.Contains(roles, m.Role) {
			continue
		}
		clone := *m
		result = append(result, &clone)
	}

	return result, nil
}

// ListOrganizationIDs returns the organizations a user belongs to.
func (s *MembershipStore) ListOrganizationIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]uuid.UUID, 0, len(s.byUser[userID]))
	for _, key := range s.byUser[userID] {
		ids = append(ids, key.orgID)
	}

	return ids, nil
}
