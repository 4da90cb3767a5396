package authz

import "github.com/himalclinic/himalclinic/internal/auth"

// Console landing and login locations used by redirect decisions.
const (
	AdminLoginPath  = "/admin/login"
	AdminHomePath   = "/admin"
	ViewerLoginPath = "/viewer/login"
	ViewerHomePath  = "/viewer"
)

// DecisionKind enumerates guard outcomes.
type DecisionKind int

const (
	// DecisionAllow renders the protected content.
	DecisionAllow DecisionKind = iota
	// DecisionRedirect navigates elsewhere; denial is control flow, not an error.
	DecisionRedirect
	// DecisionLoading renders a loading placeholder because session
	// resolution has not settled. Never a redirect: deciding access while
	// loading would bounce a signed-in user to login on every refresh.
	DecisionLoading
)

// Decision is the outcome of a guard evaluation.
type Decision struct {
	Kind DecisionKind
	// Location is the redirect target when Kind is DecisionRedirect.
	Location string
	// ReturnTo carries the originally requested path so the login flow can
	// come back. Advisory metadata only, never a security input.
	ReturnTo string
}

// Allow admits the request.
func Allow() Decision {
	return Decision{Kind: DecisionAllow}
}

// ShowLoading defers the access decision.
func ShowLoading() Decision {
	return Decision{Kind: DecisionLoading}
}

// RedirectTo denies by navigation.
func RedirectTo(location, returnTo string) Decision {
	return Decision{Kind: DecisionRedirect, Location: location, ReturnTo: returnTo}
}

// DecideAdmin evaluates the admin console guard for a resolved view.
//
// Order matters: loading defers, a missing user or missing admin role sends
// the visitor to the admin login, and an admin lacking a super-only
// capability lands on the dashboard rather than login because they are
// authenticated, just under-privileged.
func DecideAdmin(v auth.View, capability Capability, requested string) Decision {
	if v.Loading() {
		return ShowLoading()
	}
	snap := v.Snapshot
	if snap.User == nil || !snap.IsAdmin() {
		return RedirectTo(AdminLoginPath, requested)
	}
	if capability == CapabilitySuper && !snap.IsSuperAdmin() {
		return RedirectTo(AdminHomePath, "")
	}
	if !capability.Granted(snap) {
		return RedirectTo(AdminHomePath, "")
	}
	return Allow()
}

// DecideViewer evaluates the viewer console guard. The consoles are
// authorization-disjoint: holding admin does not imply viewer access, so only
// the viewer flag is consulted.
func DecideViewer(v auth.View, requested string) Decision {
	if v.Loading() {
		return ShowLoading()
	}
	snap := v.Snapshot
	if snap.User == nil || !snap.IsViewer() {
		return RedirectTo(ViewerLoginPath, requested)
	}
	return Allow()
}
