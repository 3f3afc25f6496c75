package models

// Role controls access to the application surfaces.
type Role string

const (
	RoleGuest      Role = "GUEST"
	RoleUser       Role = "USER"
	RoleAffiliate  Role = "AFFILIATE"
	RoleSuperAdmin Role = "SUPERADMIN"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleGuest, RoleUser, RoleAffiliate, RoleSuperAdmin:
		return true
	}
	return false
}
