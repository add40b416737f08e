package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/wolfeidau/steeple/internal/models"
	"github.com/wolfeidau/steeple/internal/store"
)

// OrganizationStore implements store.OrganizationStore using in-memory storage.
// This implementation is for testing and development - data is lost on restart.
type OrganizationStore struct {
	mu sync.RWMutex

	organizations map[uuid.UUID]*models.Organization // org_id -> Organization
	bySubdomain   map[string]uuid.UUID               // subdomain -> org_id
	byDomain      map[string]uuid.UUID               // custom domain -> org_id
}

// NewOrganizationStore creates a new in-memory organization store.
func NewOrganizationStore() *OrganizationStore {
	return &OrganizationStore{
		organizations: make(map[uuid.UUID]*models.Organization),
		bySubdomain:   make(map[string]uuid.UUID),
		byDomain:      make(map[string]uuid.UUID),
	}
}

// Create creates a new organization in memory.
func (s *OrganizationStore) Create(ctx context.Context, org *models.Organization) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.organizations[org.OrgID]; exists {
		return store.ErrOrganizationAlreadyExists
	}

	clone := cloneOrganization(org)
	if err := s.checkUniqueLocked(clone); err != nil {
		return err
	}

	s.organizations[clone.OrgID] = clone
	s.indexLocked(clone)

	return nil
}

// Delete removes an organization and frees its subdomain and custom domain.
func (s *OrganizationStore) Delete(ctx context.Context, orgID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	org, exists := s.organizations[orgID]
	if !exists {
		return store.ErrOrganizationNotFound
	}
	s.unindexLocked(org)
	delete(s.organizations, orgID)

	return nil
}

// Get retrieves an organization by ID.
func (s *OrganizationStore) Get(ctx context.Context, orgID uuid.UUID) (*models.Organization, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	org, exists := s.organizations[orgID]
	if !exists {
		return nil, store.ErrOrganizationNotFound
	}

	return cloneOrganization(org), nil
}

// GetBySubdomain retrieves an organization by subdomain.
func (s *OrganizationStore) GetBySubdomain(ctx context.Context, subdomain string) (*models.Organization, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	orgID, exists := s.bySubdomain[strings.ToLower(subdomain)]
	if !exists {
		return nil, store.ErrOrganizationNotFound
	}

	return cloneOrganization(s.organizations[orgID]), nil
}

// GetByCustomDomain retrieves an organization by custom domain.
func (s *OrganizationStore) GetByCustomDomain(ctx context.Context, domain string) (*models.Organization, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	orgID, exists := s.byDomain[strings.ToLower(domain)]
	if !exists {
		return nil, store.ErrOrganizationNotFound
	}

	return cloneOrganization(s.organizations[orgID]), nil
}

// Update updates an existing organization.
func (s *OrganizationStore) Update(ctx context.Context, org *models.Organization) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, exists := s.organizations[org.OrgID]
	if !exists {
		return store.ErrOrganizationNotFound
	}

	org.UpdatedAt = time.Now()

	clone := cloneOrganization(org)

	s.unindexLocked(existing)
	if err := s.checkUniqueLocked(clone); err != nil {
		s.indexLocked(existing)
		return err
	}

	s.organizations[clone.OrgID] = clone
	s.indexLocked(clone)

	return nil
}

// ListByIDs returns the organizations matching the given IDs.
func (s *OrganizationStore) ListByIDs(ctx context.Context, orgIDs []uuid.UUID) ([]*models.Organization, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*models.Organization
	for _, id := range orgIDs {
		if org, ok := s.organizations[id]; ok {
			result = append(result, cloneOrganization(org))
		}
	}

	return result, nil
}

func (s *OrganizationStore) checkUniqueLocked(org *models.Organization) error {
	if org.Subdomain != nil {
		if id, taken := s.bySubdomain[*org.Subdomain]; taken && id != org.OrgID {
			return store.ErrOrganizationAlreadyExists
		}
	}
	if org.CustomDomain != nil {
		if id, taken := s.byDomain[*org.CustomDomain]; taken && id != org.OrgID {
			return store.ErrOrganizationAlreadyExists
		}
	}
	return nil
}

func (s *OrganizationStore) indexLocked(org *models.Organization) {
	if org.Subdomain != nil {
		s.bySubdomain[*org.Subdomain] = org.OrgID
	}
	if org.CustomDomain != nil {
		s.byDomain[*org.CustomDomain] = org.OrgID
	}
}

func (s *OrganizationStore) unindexLocked(org *models.Organization) {
	if org.Subdomain != nil {
		delete(s.bySubdomain, *org.Subdomain)
	}
	if org.CustomDomain != nil {
		delete(s.byDomain, *org.CustomDomain)
	}
}

// cloneOrganization copies an organization, lowercasing the lookup keys.
func cloneOrganization(org *models.Organization) *models.Organization {
	clone := *org
	if org.Subdomain != nil {
		v := strings.ToLower(*org.Subdomain)
		clone.Subdomain = &v
	}
	if org.CustomDomain != nil {
		v := strings.ToLower(*org.CustomDomain)
		clone.CustomDomain = &v
	}
	return &clone
}
