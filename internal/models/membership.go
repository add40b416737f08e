package models

import (
	"time"

	"github.com/google/uuid"
)

// MembershipRole is the role a user holds within a single organization.
type MembershipRole string

const (
	MembershipRoleSuperAdmin MembershipRole = "super_admin"
	MembershipRoleOwner      MembershipRole = "owner"
	MembershipRoleAdmin      MembershipRole = "admin"
	MembershipRoleEditor     MembershipRole = "editor"
	MembershipRoleMember     MembershipRole = "member"
)

// AdministrativeRoles are the membership roles that grant organization admin access.
var AdministrativeRoles = []MembershipRole{
	MembershipRoleAdmin,
	MembershipRoleEditor,
	MembershipRoleOwner,
}

// Valid reports whether r is a known membership role.
func (r MembershipRole) Valid() bool {
	switch r {
	case MembershipRoleSuperAdmin, MembershipRoleOwner, MembershipRoleAdmin,
		MembershipRoleEditor, MembershipRoleMember:
		return true
	}
	return false
}

// Membership links a user to an organization with a role.
type Membership struct {
	OrgID     uuid.UUID
	UserID    uuid.UUID
	Role      MembershipRole
	CreatedAt time.Time
}
