package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/steeple/internal/models"
	"github.com/wolfeidau/steeple/internal/store"
)

// UserStore implements store.UserStore and store.PrivilegeChecker using PostgreSQL.
type UserStore struct {
	pool *pgxpool.Pool
}

// NewUserStore creates a new PostgreSQL-backed user store.
func NewUserStore(pool *pgxpool.Pool) *UserStore {
	return &UserStore{
		pool: pool,
	}
}

// Create creates a new user.
func (s *UserStore) Create(ctx context.Context, user *models.User) error {
	metadata, err := json.Marshal(nonNilMetadata(user.Metadata))
	if err != nil {
		return fmt.Errorf("failed to marshal user metadata: %w", err)
	}

	query := `
		INSERT INTO users (
			user_id, email, name, password_hash, is_super_admin, metadata, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8
		)
	`

	_, err = s.pool.Exec(ctx, query,
		user.UserID,
		strings.ToLower(user.Email),
		user.Name,
		user.PasswordHash,
		user.IsSuperAdmin,
		metadata,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrUserAlreadyExists
		}
		return fmt.Errorf("failed to create user: %w", mapPostgresError(err, store.ErrUserNotFound))
	}

	log.Debug().Str("user_id", user.UserID.String()).Msg("Created user")

	return nil
}

// Get retrieves a user by ID.
func (s *UserStore) Get(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	return s.getOne(ctx, `WHERE user_id = $1`, userID)
}

// GetByEmail retrieves a user by email.
func (s *UserStore) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.getOne(ctx, `WHERE email = $1`, strings.ToLower(email))
}

func (s *UserStore) getOne(ctx context.Context, where string, arg any) (*models.User, error) {
	query := `
		SELECT user_id, email, name, password_hash, is_super_admin, metadata, created_at, updated_at
		FROM users
	` + where

	var user models.User
	var metadata []byte
	err := s.pool.QueryRow(ctx, query, arg).Scan(
		&user.UserID,
		&user.Email,
		&user.Name,
		&user.PasswordHash,
		&user.IsSuperAdmin,
		&metadata,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, mapPostgresError(err, store.ErrUserNotFound)
	}

	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &user.Metadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal user metadata: %w", err)
		}
	}

	return &user, nil
}

// Delete removes a user; memberships and sessions go with it through
// ON DELETE CASCADE.
func (s *UserStore) Delete(ctx context.Context, userID uuid.UUID) error {
	result, err := s.pool.Exec(ctx, `DELETE FROM users WHERE user_id = $1`, userID)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", mapPostgresError(err, store.ErrUserNotFound))
	}

	if result.RowsAffected() == 0 {
		return store.ErrUserNotFound
	}

	log.Info().Str("user_id", userID.String()).Msg("Deleted user")

	return nil
}

// SetSuperAdmin grants or revokes global super admin status.
func (s *UserStore) SetSuperAdmin(ctx context.Context, userID uuid.UUID, superAdmin bool) error {
	result, err := s.pool.Exec(ctx,
		`UPDATE users SET is_super_admin = $2, updated_at = $3 WHERE user_id = $1`,
		userID, superAdmin, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("failed to update super admin flag: %w", mapPostgresError(err, store.ErrUserNotFound))
	}

	if result.RowsAffected() == 0 {
		return store.ErrUserNotFound
	}

	log.Info().
		Str("user_id", userID.String()).
		Bool("super_admin", superAdmin).
		Msg("Updated super admin flag")

	return nil
}

// IsSuperAdmin calls the is_super_admin_check database function.
func (s *UserStore) IsSuperAdmin(ctx context.Context, userID uuid.UUID) (bool, error) {
	var ok bool
	if err := s.pool.QueryRow(ctx, `SELECT is_super_admin_check($1)`, userID).Scan(&ok); err != nil {
		return false, fmt.Errorf("super admin check failed: %w", mapPostgresError(err, store.ErrUserNotFound))
	}
	return ok, nil
}

func nonNilMetadata(m map[string]string) map[string]string {
	if m == nil {
		return map[string]string{}
	}
	return m
}
