package shared_test

import (
	"context"
	"errors"
	"testing"

	"github.com/himalclinic/himalclinic/internal/shared"
	_ "github.com/himalclinic/himalclinic/testing"
)

func TestCSRFTokenLifecycle(t *testing.T) {
	m := shared.NewCSRFManager("csrfsecret")
	sess := &shared.Session{ID: "s1"}
	ctx := context.Background()

	token, err := m.EnsureToken(ctx, sess)
	if err != nil {
		t.Fatalf("ensure: %v", err)
	}
	if token == "" {
		t.Fatalf("expected a token")
	}

	// EnsureToken is stable per session.
	again, err := m.EnsureToken(ctx, sess)
	if err != nil || again != token {
		t.Fatalf("expected stable token, got %q vs %q (err %v)", again, token, err)
	}

	if err := m.VerifyToken(ctx, sess, token); err != nil {
		t.Fatalf("verify: %v", err)
	}
	if err := m.VerifyToken(ctx, sess, "forged"); !errors.Is(err, shared.ErrCSRFTokenMismatch) {
		t.Fatalf("expected mismatch, got %v", err)
	}
	if err := m.VerifyToken(ctx, sess, ""); !errors.Is(err, shared.ErrCSRFTokenMissing) {
		t.Fatalf("expected missing token error, got %v", err)
	}
	if err := m.VerifyToken(ctx, nil, token); !errors.Is(err, shared.ErrCSRFTokenMissing) {
		t.Fatalf("expected missing token error for nil session, got %v", err)
	}
}

func TestCSRFTokenIsBoundToSession(t *testing.T) {
	m := shared.NewCSRFManager("csrfsecret")
	ctx := context.Background()

	first := &shared.Session{ID: "s1"}
	token, err := m.EnsureToken(ctx, first)
	if err != nil {
		t.Fatalf("ensure: %v", err)
	}

	// A token lifted from one session must not verify against another,
	// even if it somehow ends up stored there.
	other := &shared.Session{ID: "s2"}
	other.Set(shared.CSRFSessionKey, token)
	if err := m.VerifyToken(ctx, other, token); !errors.Is(err, shared.ErrCSRFTokenMismatch) {
		t.Fatalf("expected mismatch across sessions, got %v", err)
	}
}

func TestUserSafeMessage(t *testing.T) {
	cases := map[error]string{
		shared.ErrInvalidCredentials: "Email or password is incorrect",
		shared.ErrRoleMismatch:       "This account is not authorized for this console",
		shared.ErrAuthUnavailable:    "Sign-in is temporarily unavailable, please try again",
		shared.ErrDuplicate:          "An entry with that identifier already exists",
		shared.ErrNotFound:           "The requested record was not found",
		errors.New("pq: boom"):       "Something went wrong, please try again",
	}
	for err, want := range cases {
		if got := shared.UserSafeMessage(err); got != want {
			t.Fatalf("%v: expected %q, got %q", err, want, got)
		}
	}
}
