package shared

import "errors"

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrInvalidCredentials indicates the email/password pair was rejected.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrRoleMismatch indicates valid credentials presented at the wrong console.
	ErrRoleMismatch = errors.New("role mismatch")
	// ErrAuthUnavailable indicates the identity or role directory could not be reached.
	ErrAuthUnavailable = errors.New("authentication service unavailable")
	// ErrDuplicate indicates a uniqueness conflict on insert.
	ErrDuplicate = errors.New("duplicate entry")
	// ErrCSRFTokenMissing occurs when CSRF token missing.
	ErrCSRFTokenMissing = errors.New("csrf token missing")
	// ErrCSRFTokenMismatch occurs when CSRF tokens do not match.
	ErrCSRFTokenMismatch = errors.New("csrf token mismatch")
)

// UserSafeMessage maps internal errors to text suitable for inline form rendering.
func UserSafeMessage(err error) string {
	switch {
	case errors.Is(err, ErrInvalidCredentials):
		return "Email or password is incorrect"
	case errors.Is(err, ErrRoleMismatch):
		return "This account is not authorized for this console"
	case errors.Is(err, ErrAuthUnavailable):
		return "Sign-in is temporarily unavailable, please try again"
	case errors.Is(err, ErrDuplicate):
		return "An entry with that identifier already exists"
	case errors.Is(err, ErrNotFound):
		return "The requested record was not found"
	default:
		return "Something went wrong, please try again"
	}
}
