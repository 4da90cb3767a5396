// Package authz decides render-vs-redirect for the two back-office consoles.
// Decisions are pure functions over resolved session state; the HTTP
// middleware only translates a decision into navigation.
package authz

import "github.com/himalclinic/himalclinic/internal/auth"

// Capability is the optional finer-grained check an admin screen may demand.
type Capability int

const (
	// CapabilityNone requires nothing beyond admin console access.
	CapabilityNone Capability = iota
	// CapabilityContent tags content management screens.
	CapabilityContent
	// CapabilityContacts tags contact intake screens.
	CapabilityContacts
	// CapabilitySuper tags user-management-tier screens.
	CapabilitySuper
)

// capabilityChecks maps each capability onto its predicate. Content and
// contacts both admit any admin today; keeping them as distinct entries makes
// that a one-line change to tighten later instead of a silent gap.
var capabilityChecks = map[Capability]func(auth.Snapshot) bool{
	CapabilityNone:     func(auth.Snapshot) bool { return true },
	CapabilityContent:  func(s auth.Snapshot) bool { return s.IsAdmin() },
	CapabilityContacts: func(s auth.Snapshot) bool { return s.IsAdmin() },
	CapabilitySuper:    func(s auth.Snapshot) bool { return s.IsSuperAdmin() },
}

// Granted reports whether the snapshot satisfies the capability.
func (c Capability) Granted(s auth.Snapshot) bool {
	check, ok := capabilityChecks[c]
	if !ok {
		return false
	}
	return check(s)
}
