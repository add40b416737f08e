package models

import (
	"time"

	"github.com/google/uuid"
)

// Organization represents a church (tenant) hosted by the platform.
// Each organization is reachable through its subdomain of the apex domain and,
// optionally, a custom domain.
type Organization struct {
	OrgID          uuid.UUID // UUIDv7
	Name           string
	Subdomain      *string // unique, lowercase
	CustomDomain   *string // unique, lowercase
	WebsiteEnabled bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// SubdomainOrEmpty returns the organization's subdomain or an empty string when unset.
func (o *Organization) SubdomainOrEmpty() string {
	if o.Subdomain == nil {
		return ""
	}
	return *o.Subdomain
}
