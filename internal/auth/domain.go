package auth

// Role is a closed enumeration of recognized back-office roles.
type Role string

const (
	// RoleAdmin grants access to the admin console.
	RoleAdmin Role = "admin"
	// RoleViewer grants access to the viewer console.
	RoleViewer Role = "viewer"
)

// ParseRole maps a directory role string onto the closed enumeration.
// Unknown values report false and confer no access.
func ParseRole(s string) (Role, bool) {
	switch Role(s) {
	case RoleAdmin:
		return RoleAdmin, true
	case RoleViewer:
		return RoleViewer, true
	default:
		return "", false
	}
}

// Principal is an authenticated actor as known to the identity store.
type Principal struct {
	ID    string
	Email string
}

// RoleAssignment binds a principal to a role. IsSuper marks the single
// distinguished super-administrator assignment; the directory owns that
// uniqueness, this package only reads it.
type RoleAssignment struct {
	PrincipalID string
	Role        Role
	IsSuper     bool
}

// Snapshot is the resolved authorization state for one session. The access
// flags are pure projections of the role assignments and are never settable
// independently.
type Snapshot struct {
	User  *Principal
	Roles []RoleAssignment
}

// IsAdmin reports whether any assignment carries the admin role.
func (s Snapshot) IsAdmin() bool {
	for _, a := range s.Roles {
		if a.Role == RoleAdmin {
			return true
		}
	}
	return false
}

// IsSuperAdmin reports whether an admin assignment is additionally flagged
// super. IsSuperAdmin implies IsAdmin by construction.
func (s Snapshot) IsSuperAdmin() bool {
	for _, a := range s.Roles {
		if a.Role == RoleAdmin && a.IsSuper {
			return true
		}
	}
	return false
}

// IsViewer reports whether any assignment carries the viewer role.
func (s Snapshot) IsViewer() bool {
	for _, a := range s.Roles {
		if a.Role == RoleViewer {
			return true
		}
	}
	return false
}

// HasRole reports whether any assignment carries exactly the given role.
func (s Snapshot) HasRole(role Role) bool {
	for _, a := range s.Roles {
		if a.Role == role {
			return true
		}
	}
	return false
}

// SignedOut is the snapshot of a session with no principal.
func SignedOut() Snapshot {
	return Snapshot{}
}
