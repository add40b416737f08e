package models

// Role is the platform-wide classification of a signed-in user, used to pick
// which dashboard surfaces they can see.
type Role string

const (
	RoleSuperAdmin  Role = "super_admin"
	RoleOrgAdmin    Role = "org_admin"
	RoleRegularUser Role = "regular_user"
)

func (r Role) String() string {
	return string(r)
}
