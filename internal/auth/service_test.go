package auth_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/himalclinic/himalclinic/internal/auth"
	"github.com/himalclinic/himalclinic/internal/shared"
	_ "github.com/himalclinic/himalclinic/testing"
)

func newService(t *testing.T, identity *stubIdentity, directory *stubDirectory) (*auth.Service, *auth.Resolver) {
	t.Helper()
	resolver := auth.NewResolver(identity, directory, nil)
	t.Cleanup(resolver.Close)
	service := auth.NewService(identity, directory, resolver, time.Hour, nil)
	return service, resolver
}

func TestLoginSuccessSeedsResolver(t *testing.T) {
	identity := &stubIdentity{principal: &auth.Principal{ID: "u1", Email: "doc@test.local"}}
	directory := &stubDirectory{roles: adminAssignment("u1")}
	service, resolver := newService(t, identity, directory)

	snap, err := service.Login(context.Background(), "s1", "doc@test.local", "pw", auth.RoleAdmin)
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if snap.User == nil || !snap.IsAdmin() {
		t.Fatalf("expected resolved admin snapshot, got %+v", snap)
	}
	if len(identity.binds) != 1 || identity.binds[0] != "s1" {
		t.Fatalf("expected one session binding for s1, got %v", identity.binds)
	}

	v := resolver.View("s1")
	if v.Loading() {
		t.Fatalf("login must leave the session resolved")
	}
	if v.Snapshot.User == nil || v.Snapshot.User.ID != "u1" {
		t.Fatalf("resolver must hold the login snapshot, got %+v", v.Snapshot.User)
	}
}

func TestLoginInvalidCredentials(t *testing.T) {
	identity := &stubIdentity{err: shared.ErrInvalidCredentials}
	service, _ := newService(t, identity, &stubDirectory{})

	snap, err := service.Login(context.Background(), "s1", "doc@test.local", "bad", auth.RoleAdmin)
	if !errors.Is(err, shared.ErrInvalidCredentials) {
		t.Fatalf("expected invalid credentials, got %v", err)
	}
	if snap.User != nil {
		t.Fatalf("rejected login must return a signed-out snapshot")
	}
	if len(identity.binds) != 0 {
		t.Fatalf("rejected credentials must not bind a session")
	}
}

func TestLoginRoleMismatchRevertsSession(t *testing.T) {
	// A real viewer signing in through the admin console: credentials are
	// valid, the role check is what rejects.
	identity := &stubIdentity{principal: &auth.Principal{ID: "u1", Email: "viewer@test.local"}}
	directory := &stubDirectory{roles: []auth.RoleAssignment{
		{PrincipalID: "u1", Role: auth.RoleViewer},
	}}
	service, resolver := newService(t, identity, directory)

	snap, err := service.Login(context.Background(), "s1", "viewer@test.local", "pw", auth.RoleAdmin)
	if !errors.Is(err, shared.ErrRoleMismatch) {
		t.Fatalf("expected role mismatch, got %v", err)
	}
	if snap.User != nil {
		t.Fatalf("mismatch must not hand back a principal")
	}
	if identity.signOutCount() != 1 {
		t.Fatalf("mismatch must tear the session binding down, signouts=%d", identity.signOutCount())
	}

	// Afterwards the session resolves signed out, as if the attempt never
	// happened.
	v := resolver.View("s1")
	if v.Loading() || v.Snapshot.User != nil {
		t.Fatalf("session must resolve signed out after mismatch, got %+v", v)
	}
}

func TestLoginDirectoryFailureIsUnavailable(t *testing.T) {
	identity := &stubIdentity{principal: &auth.Principal{ID: "u1", Email: "doc@test.local"}}
	directory := &stubDirectory{err: errors.New("connection refused")}
	service, resolver := newService(t, identity, directory)

	_, err := service.Login(context.Background(), "s1", "doc@test.local", "pw", auth.RoleAdmin)
	if !errors.Is(err, shared.ErrAuthUnavailable) {
		t.Fatalf("expected auth unavailable, got %v", err)
	}
	if identity.signOutCount() != 1 {
		t.Fatalf("post-credential failure must revert the binding")
	}
	if v := resolver.View("s1"); v.Loading() || v.Snapshot.User != nil {
		t.Fatalf("session must resolve signed out after revert, got %+v", v)
	}
}

func TestLoginIdentityOutageIsUnavailable(t *testing.T) {
	identity := &stubIdentity{err: errors.New("dial tcp: connection refused")}
	service, _ := newService(t, identity, &stubDirectory{})

	_, err := service.Login(context.Background(), "s1", "doc@test.local", "pw", auth.RoleAdmin)
	if !errors.Is(err, shared.ErrAuthUnavailable) {
		t.Fatalf("expected auth unavailable, got %v", err)
	}
	if errors.Is(err, shared.ErrInvalidCredentials) {
		t.Fatalf("an outage must not masquerade as bad credentials")
	}
}

func TestLogoutIsIdempotent(t *testing.T) {
	identity := &stubIdentity{principal: &auth.Principal{ID: "u1", Email: "doc@test.local"}}
	directory := &stubDirectory{roles: adminAssignment("u1")}
	service, resolver := newService(t, identity, directory)

	if _, err := service.Login(context.Background(), "s1", "doc@test.local", "pw", auth.RoleAdmin); err != nil {
		t.Fatalf("login: %v", err)
	}
	if err := service.Logout(context.Background(), "s1"); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if err := service.Logout(context.Background(), "s1"); err != nil {
		t.Fatalf("second logout must be harmless: %v", err)
	}
	if v := resolver.View("s1"); v.Loading() || v.Snapshot.User != nil {
		t.Fatalf("logout must leave the session resolved signed out, got %+v", v)
	}
}
