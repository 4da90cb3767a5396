package users

import (
	"time"

	"github.com/himalclinic/himalclinic/internal/auth"
)

// Account is a user record with its directory role assignments.
type Account struct {
	ID        string
	Email     string
	Name      string
	IsActive  bool
	CreatedAt time.Time
	Roles     []auth.RoleAssignment
}

// HasRole reports whether the account holds the given role.
func (a Account) HasRole(role auth.Role) bool {
	for _, r := range a.Roles {
		if r.Role == role {
			return true
		}
	}
	return false
}
