package auth

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// RoleDirectory supplies role assignments for a principal. The directory is
// read-only from the core's perspective; writes happen through the user
// management surface.
type RoleDirectory interface {
	RolesFor(ctx context.Context, principalID string) ([]RoleAssignment, error)
}

// PGDirectory implements RoleDirectory over the roles table.
type PGDirectory struct {
	pool *pgxpool.Pool
}

// NewPGDirectory constructs a PostgreSQL backed role directory.
func NewPGDirectory(pool *pgxpool.Pool) *PGDirectory {
	return &PGDirectory{pool: pool}
}

// RolesFor fetches all recognized role assignments for a principal. Rows with
// role strings outside the closed enumeration are dropped rather than guessed at.
func (d *PGDirectory) RolesFor(ctx context.Context, principalID string) ([]RoleAssignment, error) {
	rows, err := d.pool.Query(ctx,
		`SELECT principal_id, role, is_super FROM roles WHERE principal_id = $1`,
		principalID,
	)
	if err != nil {
		return nil, fmt.Errorf("auth: fetch roles: %w", err)
	}
	defer rows.Close()

	var assignments []RoleAssignment
	for rows.Next() {
		var (
			a   RoleAssignment
			raw string
		)
		if err := rows.Scan(&a.PrincipalID, &raw, &a.IsSuper); err != nil {
			return nil, fmt.Errorf("auth: scan role: %w", err)
		}
		role, ok := ParseRole(raw)
		if !ok {
			continue
		}
		a.Role = role
		assignments = append(assignments, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("auth: iterate roles: %w", err)
	}
	return assignments, nil
}

var _ RoleDirectory = (*PGDirectory)(nil)
