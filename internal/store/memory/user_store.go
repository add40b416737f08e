package memory

import (
	"context"
	"maps"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/wolfeidau/steeple/internal/models"
	"github.com/wolfeidau/steeple/internal/store"
)

// UserStore implements store.UserStore and store.PrivilegeChecker using in-memory storage.
type UserStore struct {
	mu sync.RWMutex

	users   map[uuid.UUID]*models.User // user_id -> User
	byEmail map[string]uuid.UUID       // email -> user_id
}

// NewUserStore creates a new in-memory user store.
func NewUserStore() *UserStore {
	return &UserStore{
		users:   make(map[uuid.UUID]*models.User),
		byEmail: make(map[string]uuid.UUID),
	}
}

// Create creates a new user.
func (s *UserStore) Create(ctx context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	email := strings.ToLower(user.Email)
	if _, exists := s.users[user.UserID]; exists {
		return store.ErrUserAlreadyExists
	}
	if _, exists := s.byEmail[email]; exists {
		return store.ErrUserAlreadyExists
	}

	clone := cloneUser(user)
	clone.Email = email
	s.users[user.UserID] = clone
	s.byEmail[email] = user.UserID

	return nil
}

// Delete removes a user.
func (s *UserStore) Delete(ctx context.Context, userID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, exists := s.users[userID]
	if !exists {
		return store.ErrUserNotFound
	}
	delete(s.byEmail, user.Email)
	delete(s.users, userID)

	return nil
}

// Get retrieves a user by ID.
func (s *UserStore) Get(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, exists := s.users[userID]
	if !exists {
		return nil, store.ErrUserNotFound
	}

	return cloneUser(user), nil
}

// GetByEmail retrieves a user by email.
func (s *UserStore) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	userID, exists := s.byEmail[strings.ToLower(email)]
	if !exists {
		return nil, store.ErrUserNotFound
	}

	return cloneUser(s.users[userID]), nil
}

// SetSuperAdmin grants or revokes global super admin status.
func (s *UserStore) SetSuperAdmin(ctx context.Context, userID uuid.UUID, superAdmin bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, exists := s.users[userID]
	if !exists {
		return store.ErrUserNotFound
	}

	user.IsSuperAdmin = superAdmin
	user.UpdatedAt = time.Now()

	return nil
}

// IsSuperAdmin implements store.PrivilegeChecker.
func (s *UserStore) IsSuperAdmin(ctx context.Context, userID uuid.UUID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, exists := s.users[userID]
	if !exists {
		return false, nil
	}

	return user.IsSuperAdmin, nil
}

func cloneUser(user *models.User) *models.User {
	clone := *user
	clone.PasswordHash = append([]byte(nil), user.PasswordHash...)
	clone.Metadata = maps.Clone(user.Metadata)
	return &clone
}
