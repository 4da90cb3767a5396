package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/himalclinic/himalclinic/internal/shared"
)

// Service wraps the login and logout business rules shared by both consoles.
//
// The central rule: valid credentials are necessary but not sufficient. The
// principal's directory role must match the console the login form asserts,
// otherwise the attempt is reverted and rejected.
type Service struct {
	identity  IdentityProvider
	directory RoleDirectory
	resolver  *Resolver
	ttl       time.Duration
	logger    *slog.Logger
}

// NewService constructs a Service.
func NewService(identity IdentityProvider, directory RoleDirectory, resolver *Resolver, ttl time.Duration, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{identity: identity, directory: directory, resolver: resolver, ttl: ttl, logger: logger}
}

// Resolver exposes the session state machine for guards and middleware.
func (s *Service) Resolver() *Resolver {
	return s.resolver
}

// Login authenticates the credentials, binds the session, and cross-checks
// the directory role against the console's expectation.
//
// On a role mismatch the identity-side binding is torn down before the error
// is reported, so no partially-authenticated state survives: afterwards the
// session resolves to signed out exactly as if the login never happened.
func (s *Service) Login(ctx context.Context, sessionID, email, password string, expected Role) (Snapshot, error) {
	principal, err := s.identity.SignIn(ctx, email, password)
	if err != nil {
		if errors.Is(err, shared.ErrInvalidCredentials) {
			return SignedOut(), shared.ErrInvalidCredentials
		}
		return SignedOut(), fmt.Errorf("%w: %v", shared.ErrAuthUnavailable, err)
	}

	if err := s.identity.BindSession(ctx, sessionID, principal.ID, time.Now().Add(s.ttl)); err != nil {
		return SignedOut(), fmt.Errorf("%w: %v", shared.ErrAuthUnavailable, err)
	}

	roles, err := s.directory.RolesFor(ctx, principal.ID)
	if err != nil {
		s.revert(ctx, sessionID)
		return SignedOut(), fmt.Errorf("%w: %v", shared.ErrAuthUnavailable, err)
	}

	snap := Snapshot{User: &principal, Roles: roles}
	if !snap.HasRole(expected) {
		s.revert(ctx, sessionID)
		s.logger.Warn("login rejected for wrong console",
			slog.String("principal", principal.ID),
			slog.String("expected", string(expected)))
		return SignedOut(), shared.ErrRoleMismatch
	}

	s.resolver.Seed(sessionID, snap)
	return snap, nil
}

// Logout tears down the identity-side binding and resets the resolved state.
// Calling it on an already signed-out session is harmless.
func (s *Service) Logout(ctx context.Context, sessionID string) error {
	if err := s.identity.SignOut(ctx, sessionID); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAuthUnavailable, err)
	}
	s.resolver.Reset(sessionID)
	return nil
}

// revert undoes a session binding after a post-credential failure. Best
// effort: the resolver is reset regardless so guards never see the
// half-established session.
func (s *Service) revert(ctx context.Context, sessionID string) {
	if err := s.identity.SignOut(ctx, sessionID); err != nil {
		s.logger.Error("revert session binding", slog.Any("error", err))
	}
	s.resolver.Reset(sessionID)
}
