package models

import (
	"time"

	"github.com/google/uuid"
)

// Onboarding intents carried in user metadata at sign-up.
const (
	IntentCreateOrganization = "create_organization"
	IntentJoinOrganization   = "join_organization"
)

// Metadata keys used by the onboarding flow.
const (
	MetaIntent           = "intent"
	MetaOrganizationName = "organization_name"
	MetaSubdomain        = "subdomain"
	MetaOrganizationID   = "organization_id"
)

// User represents a person who can sign in. Super admin status is global and
// independent of any organization membership.
type User struct {
	UserID       uuid.UUID // UUIDv7
	Email        string    // lowercase, unique
	Name         string
	PasswordHash []byte // bcrypt
	IsSuperAdmin bool

	// Metadata holds free-form sign-up data such as onboarding intent.
	Metadata map[string]string

	CreatedAt time.Time
	UpdatedAt time.Time
}
