package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/bcrypt"

	"github.com/himalclinic/himalclinic/internal/shared"
)

// IdentityProvider is the identity store the authorization core consumes.
// Credential verification, session binding and teardown all happen here;
// the core never inspects password material itself.
type IdentityProvider interface {
	// SignIn verifies the email/password pair and returns the matching
	// principal. Rejections surface shared.ErrInvalidCredentials.
	SignIn(ctx context.Context, email, password string) (Principal, error)
	// BindSession records that the given session now belongs to the principal.
	BindSession(ctx context.Context, sessionID, principalID string, expiresAt time.Time) error
	// SignOut removes the session binding. Unbinding an unknown session is a no-op.
	SignOut(ctx context.Context, sessionID string) error
	// CurrentPrincipal resolves the principal bound to a session, or nil when
	// the session is anonymous or the binding has expired.
	CurrentPrincipal(ctx context.Context, sessionID string) (*Principal, error)
}

// PGIdentity implements IdentityProvider on PostgreSQL with bcrypt hashes.
type PGIdentity struct {
	pool *pgxpool.Pool
}

// NewPGIdentity constructs a PostgreSQL backed identity provider.
func NewPGIdentity(pool *pgxpool.Pool) *PGIdentity {
	return &PGIdentity{pool: pool}
}

// SignIn verifies credentials against the users table.
func (p *PGIdentity) SignIn(ctx context.Context, email, password string) (Principal, error) {
	var (
		principal Principal
		hash      string
		active    bool
	)
	err := p.pool.QueryRow(ctx,
		`SELECT id, email, password_hash, is_active FROM users WHERE lower(email) = lower($1)`,
		email,
	).Scan(&principal.ID, &principal.Email, &hash, &active)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Principal{}, shared.ErrInvalidCredentials
		}
		return Principal{}, fmt.Errorf("auth: find principal: %w", err)
	}
	if !active {
		return Principal{}, shared.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return Principal{}, shared.ErrInvalidCredentials
	}
	return principal, nil
}

// BindSession upserts the session binding so a re-login on the same cookie
// replaces the previous principal.
func (p *PGIdentity) BindSession(ctx context.Context, sessionID, principalID string, expiresAt time.Time) error {
	_, err := p.pool.Exec(ctx,
		`INSERT INTO auth_sessions (id, principal_id, created_at, expires_at)
		 VALUES ($1, $2, now(), $3)
		 ON CONFLICT (id) DO UPDATE SET principal_id = EXCLUDED.principal_id, expires_at = EXCLUDED.expires_at`,
		sessionID, principalID, expiresAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("auth: bind session: %w", err)
	}
	return nil
}

// SignOut deletes the session binding.
func (p *PGIdentity) SignOut(ctx context.Context, sessionID string) error {
	if _, err := p.pool.Exec(ctx, `DELETE FROM auth_sessions WHERE id = $1`, sessionID); err != nil {
		return fmt.Errorf("auth: sign out: %w", err)
	}
	return nil
}

// CurrentPrincipal resolves the principal bound to an unexpired session.
func (p *PGIdentity) CurrentPrincipal(ctx context.Context, sessionID string) (*Principal, error) {
	var principal Principal
	err := p.pool.QueryRow(ctx,
		`SELECT u.id, u.email
		 FROM auth_sessions s
		 JOIN users u ON u.id = s.principal_id
		 WHERE s.id = $1 AND s.expires_at > now() AND u.is_active`,
		sessionID,
	).Scan(&principal.ID, &principal.Email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("auth: current principal: %w", err)
	}
	return &principal, nil
}

var _ IdentityProvider = (*PGIdentity)(nil)
