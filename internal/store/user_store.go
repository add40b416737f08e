package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/wolfeidau/steeple/internal/models"
)

// Errors
var (
	ErrUserNotFound      = errors.New("user not found")
	ErrUserAlreadyExists = errors.New("user already exists")
)

// UserStore manages user accounts.
type UserStore interface {
	// Create creates a new user. Returns ErrUserAlreadyExists if the email is taken.
	Create(ctx context.Context, user *models.User) error

	// Get retrieves a user by ID.
	Get(ctx context.Context, userID uuid.UUID) (*models.User, error)

	// GetByEmail retrieves a user by (lowercase) email.
	GetByEmail(ctx context.Context, email string) (*models.User, error)

	// Delete removes a user along with their memberships and sessions.
	// Returns ErrUserNotFound if the user doesn't exist.
	Delete(ctx context.Context, userID uuid.UUID) error

	// SetSuperAdmin grants or revokes global super admin status.
	SetSuperAdmin(ctx context.Context, userID uuid.UUID, superAdmin bool) error
}

// PrivilegeChecker answers the privileged "is super admin" question.
type PrivilegeChecker interface {
	IsSuperAdmin(ctx context.Context, userID uuid.UUID) (bool, error)
}
