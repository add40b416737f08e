// Package login implements password sign-up and sign-in backed by server-side
// sessions. The session cookie is scoped to the apex domain so a signed-in user
// stays signed in across every tenant subdomain.
package login

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/steeple/internal/hostname"
	"github.com/wolfeidau/steeple/internal/models"
	"github.com/wolfeidau/steeple/internal/store"
	"github.com/wolfeidau/steeple/internal/telemetry"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidSession     = errors.New("invalid session")
	ErrExpiredSession     = errors.New("session expired")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidSignUp      = errors.New("invalid sign up")
)

const (
	minPasswordLength = 8
	maxPasswordLength = 72 // bcrypt input limit
)

// Stores groups the stores the login service depends on.
type Stores struct {
	Users         store.UserStore
	Sessions      store.SessionStore
	Organizations store.OrganizationStore
	Memberships   store.MembershipStore
}

func (s Stores) complete() bool {
	return s.Users != nil && s.Sessions != nil && s.Organizations != nil && s.Memberships != nil
}

// Config controls session lifetime and cookie attributes.
type Config struct {
	SessionTTL time.Duration
	// CookieDomain is the apex domain; the cookie is issued for ".<apex>".
	CookieDomain string
	// DevelopmentHost reports hosts that get a host-only cookie.
	DevelopmentHost func(host string) bool
	// InsecureCookies drops the Secure attribute for plain-http development.
	InsecureCookies bool
	// LoginPath is where failed sign-ins and unauthenticated requests land.
	LoginPath string
}

// ClientMeta is audit metadata recorded on new sessions.
type ClientMeta struct {
	UserAgent string
	IPAddress string
}

// Service handles sign-up, sign-in and session lookup.
type Service struct {
	stores Stores
	cfg    Config

	// compared against when the email is unknown so both paths cost a bcrypt round
	dummyHash []byte
}

// NewService validates its inputs and returns a Service.
func NewService(stores Stores, cfg Config) (*Service, error) {
	if !stores.complete() {
		return nil, fmt.Errorf("all stores are required")
	}
	if cfg.SessionTTL <= 0 {
		return nil, fmt.Errorf("session TTL must be greater than 0")
	}
	if cfg.LoginPath == "" {
		cfg.LoginPath = "/login"
	}

	dummy, err := bcrypt.GenerateFromPassword([]byte("steeple-dummy-password"), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare password hashing: %w", err)
	}

	return &Service{stores: stores, cfg: cfg, dummyHash: dummy}, nil
}

// SignUp creates a user, applies the onboarding intent carried in metadata and
// opens a session for the new user.
func (s *Service) SignUp(ctx context.Context, email, password, name string, metadata map[string]string, meta ClientMeta) (*models.User, *models.Session, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return nil, nil, err
	}
	if err := validatePassword(password); err != nil {
		return nil, nil, err
	}

	intent, err := s.parseIntent(ctx, metadata)
	if err != nil {
		return nil, nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to hash password: %w", err)
	}

	userID, err := uuid.NewV7()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to generate user ID: %w", err)
	}

	now := time.Now()
	user := &models.User{
		UserID:       userID,
		Email:        email,
		Name:         strings.TrimSpace(name),
		PasswordHash: hash,
		Metadata:     metadata,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.stores.Users.Create(ctx, user); err != nil {
		if errors.Is(err, store.ErrUserAlreadyExists) {
			return nil, nil, fmt.Errorf("%w: email already registered", ErrInvalidSignUp)
		}
		return nil, nil, fmt.Errorf("failed to create user: %w", err)
	}

	if intent != nil {
		if err := s.applyIntent(ctx, user, intent); err != nil {
			// the email stays free for another attempt
			s.rollback(ctx, "user", user.UserID, s.stores.Users.Delete)
			return nil, nil, err
		}
	}

	session, err := s.createSession(ctx, user.UserID, meta)
	if err != nil {
		return nil, nil, err
	}

	log.Info().Str("user_id", user.UserID.String()).Str("email", user.Email).Msg("User signed up")

	return user, session, nil
}

// SignIn checks credentials and opens a new session.
func (s *Service) SignIn(ctx context.Context, email, password string, meta ClientMeta) (*models.User, *models.Session, error) {
	user, err := s.Authenticate(ctx, email, password)
	if err != nil {
		return nil, nil, err
	}

	session, err := s.createSession(ctx, user.UserID, meta)
	if err != nil {
		return nil, nil, err
	}

	log.Info().Str("user_id", user.UserID.String()).Msg("User signed in")

	return user, session, nil
}

// Authenticate checks credentials without creating a session.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	metrics := telemetry.GetMetrics()

	user, err := s.stores.Users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if !errors.Is(err, store.ErrUserNotFound) {
			metrics.RecordSignIn(ctx, "error")
			return nil, fmt.Errorf("failed to get user: %w", err)
		}
		_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(password))
		metrics.RecordSignIn(ctx, "invalid")
		return nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword(user.PasswordHash, []byte(password)); err != nil {
		log.Debug().Str("user_id", user.UserID.String()).Msg("Password mismatch")
		metrics.RecordSignIn(ctx, "invalid")
		return nil, ErrInvalidCredentials
	}

	metrics.RecordSignIn(ctx, "ok")
	return user, nil
}

// SignOut deletes a session. Signing out an unknown session is not an error.
func (s *Service) SignOut(ctx context.Context, sessionID uuid.UUID) error {
	if err := s.stores.Sessions.Delete(ctx, sessionID); err != nil && !errors.Is(err, store.ErrSessionNotFound) {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// GetUser returns a user by ID.
func (s *Service) GetUser(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	return s.stores.Users.Get(ctx, userID)
}

func (s *Service) createSession(ctx context.Context, userID uuid.UUID, meta ClientMeta) (*models.Session, error) {
	sessionID, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("failed to generate session ID: %w", err)
	}

	now := time.Now()
	session := &models.Session{
		SessionID:  sessionID,
		UserID:     userID,
		CreatedAt:  now,
		ExpiresAt:  now.Add(s.cfg.SessionTTL),
		LastUsedAt: now,
		UserAgent:  meta.UserAgent,
		IPAddress:  meta.IPAddress,
	}
	if err := s.stores.Sessions.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	return session, nil
}

type intent struct {
	kind      string
	orgName   string
	subdomain string
	orgID     uuid.UUID
}

// parseIntent validates onboarding metadata before any user is created.
func (s *Service) parseIntent(ctx context.Context, metadata map[string]string) (*intent, error) {
	switch metadata[models.MetaIntent] {
	case "":
		return nil, nil
	case models.IntentCreateOrganization:
		name := strings.TrimSpace(metadata[models.MetaOrganizationName])
		subdomain := strings.ToLower(strings.TrimSpace(metadata[models.MetaSubdomain]))
		if name == "" {
			return nil, fmt.Errorf("%w: organization name is required", ErrInvalidSignUp)
		}
		if !hostname.ValidSubdomain(subdomain) {
			return nil, fmt.Errorf("%w: subdomain %q is not available", ErrInvalidSignUp, subdomain)
		}
		_, err := s.stores.Organizations.GetBySubdomain(ctx, subdomain)
		switch {
		case err == nil:
			return nil, fmt.Errorf("%w: subdomain %q is already taken", ErrInvalidSignUp, subdomain)
		case !errors.Is(err, store.ErrOrganizationNotFound):
			return nil, fmt.Errorf("failed to check subdomain: %w", err)
		}
		return &intent{kind: models.IntentCreateOrganization, orgName: name, subdomain: subdomain}, nil
	case models.IntentJoinOrganization:
		orgID, err := uuid.Parse(metadata[models.MetaOrganizationID])
		if err != nil {
			return nil, fmt.Errorf("%w: invalid organization ID", ErrInvalidSignUp)
		}
		if _, err := s.stores.Organizations.Get(ctx, orgID); err != nil {
			if errors.Is(err, store.ErrOrganizationNotFound) {
				return nil, fmt.Errorf("%w: organization not found", ErrInvalidSignUp)
			}
			return nil, fmt.Errorf("failed to get organization: %w", err)
		}
		return &intent{kind: models.IntentJoinOrganization, orgID: orgID}, nil
	default:
		return nil, fmt.Errorf("%w: unknown intent %q", ErrInvalidSignUp, metadata[models.MetaIntent])
	}
}

func (s *Service) applyIntent(ctx context.Context, user *models.User, in *intent) error {
	now := time.Now()
	role := models.MembershipRoleMember
	orgID := in.orgID

	if in.kind == models.IntentCreateOrganization {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("failed to generate organization ID: %w", err)
		}
		subdomain := in.subdomain
		org := &models.Organization{
			OrgID:          id,
			Name:           in.orgName,
			Subdomain:      &subdomain,
			WebsiteEnabled: true,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		if err := s.stores.Organizations.Create(ctx, org); err != nil {
			if errors.Is(err, store.ErrOrganizationAlreadyExists) {
				return fmt.Errorf("%w: subdomain %q is already taken", ErrInvalidSignUp, subdomain)
			}
			return fmt.Errorf("failed to create organization: %w", err)
		}
		orgID = id
		role = models.MembershipRoleAdmin

		log.Info().Str("org_id", id.String()).Str("subdomain", subdomain).Msg("Organization created")
	}

	err := s.stores.Memberships.Create(ctx, &models.Membership{
		OrgID:     orgID,
		UserID:    user.UserID,
		Role:      role,
		CreatedAt: now,
	})
	if err != nil && !errors.Is(err, store.ErrMembershipAlreadyExists) {
		if in.kind == models.IntentCreateOrganization {
			s.rollback(ctx, "organization", orgID, s.stores.Organizations.Delete)
		}
		return fmt.Errorf("failed to create membership: %w", err)
	}
	return nil
}

// rollback undoes a partial sign-up. It runs even when ctx is cancelled.
func (s *Service) rollback(ctx context.Context, kind string, id uuid.UUID, del func(context.Context, uuid.UUID) error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	if err := del(ctx, id); err != nil {
		log.Error().Err(err).Str("kind", kind).Str("id", id.String()).Msg("Failed to roll back sign up")
		return
	}
	log.Warn().Str("kind", kind).Str("id", id.String()).Msg("Rolled back partial sign up")
}

func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", fmt.Errorf("%w: invalid email address", ErrInvalidSignUp)
	}
	return email, nil
}

func validatePassword(password string) error {
	if len(password) < minPasswordLength {
		return fmt.Errorf("%w: password must be at least %d characters", ErrInvalidSignUp, minPasswordLength)
	}
	if len(password) > maxPasswordLength {
		return fmt.Errorf("%w: password must be at most %d bytes", ErrInvalidSignUp, maxPasswordLength)
	}
	return nil
}
