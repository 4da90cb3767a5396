package users

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/himalclinic/himalclinic/internal/auth"
	"github.com/himalclinic/himalclinic/internal/platform/db"
	"github.com/himalclinic/himalclinic/internal/shared"
)

// Repository defines persistence for user management.
type Repository interface {
	List(ctx context.Context) ([]Account, error)
	Create(ctx context.Context, email, name, passwordHash string) (Account, error)
	SetActive(ctx context.Context, id string, active bool) error
	GrantRole(ctx context.Context, id string, role auth.Role) error
	RevokeRole(ctx context.Context, id string, role auth.Role) error
}

// PGRepository implements Repository on PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// List returns all accounts with their role assignments.
func (r *PGRepository) List(ctx context.Context) ([]Account, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, email, name, is_active, created_at FROM users ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("users: list: %w", err)
	}
	defer rows.Close()

	var accounts []Account
	index := make(map[string]int)
	for rows.Next() {
		var a Account
		if err := rows.Scan(&a.ID, &a.Email, &a.Name, &a.IsActive, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("users: scan: %w", err)
		}
		index[a.ID] = len(accounts)
		accounts = append(accounts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	roleRows, err := r.pool.Query(ctx, `SELECT principal_id, role, is_super FROM roles`)
	if err != nil {
		return nil, fmt.Errorf("users: list roles: %w", err)
	}
	defer roleRows.Close()
	for roleRows.Next() {
		var (
			a   auth.RoleAssignment
			raw string
		)
		if err := roleRows.Scan(&a.PrincipalID, &raw, &a.IsSuper); err != nil {
			return nil, fmt.Errorf("users: scan role: %w", err)
		}
		role, ok := auth.ParseRole(raw)
		if !ok {
			continue
		}
		a.Role = role
		if i, ok := index[a.PrincipalID]; ok {
			accounts[i].Roles = append(accounts[i].Roles, a)
		}
	}
	return accounts, roleRows.Err()
}

// Create inserts a new active account.
func (r *PGRepository) Create(ctx context.Context, email, name, passwordHash string) (Account, error) {
	id := uuid.NewString()
	row := r.pool.QueryRow(ctx,
		`INSERT INTO users (id, email, name, password_hash, is_active, created_at, updated_at)
		 VALUES ($1, lower($2), $3, $4, true, now(), now())
		 RETURNING id, email, name, is_active, created_at`,
		id, email, name, passwordHash)
	var a Account
	if err := row.Scan(&a.ID, &a.Email, &a.Name, &a.IsActive, &a.CreatedAt); err != nil {
		if isUniqueViolation(err) {
			return Account{}, shared.ErrDuplicate
		}
		return Account{}, fmt.Errorf("users: create: %w", err)
	}
	return a, nil
}

// SetActive toggles an account. Deactivation also ends any live sessions,
// atomically with the flag flip so a half-applied deactivation cannot leave
// a disabled account with a working session.
func (r *PGRepository) SetActive(ctx context.Context, id string, active bool) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx,
			`UPDATE users SET is_active = $2, updated_at = now() WHERE id = $1`, id, active)
		if err != nil {
			return fmt.Errorf("users: set active: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return shared.ErrNotFound
		}
		if !active {
			if _, err := tx.Exec(ctx, `DELETE FROM auth_sessions WHERE principal_id = $1`, id); err != nil {
				return fmt.Errorf("users: drop sessions: %w", err)
			}
		}
		return nil
	})
}

// GrantRole adds a role assignment. Granting an already-held role is a no-op.
func (r *PGRepository) GrantRole(ctx context.Context, id string, role auth.Role) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO roles (principal_id, role, is_super)
		 VALUES ($1, $2, false)
		 ON CONFLICT (principal_id, role) DO NOTHING`,
		id, string(role))
	if err != nil {
		return fmt.Errorf("users: grant role: %w", err)
	}
	return nil
}

// RevokeRole removes a role assignment. The super flag rides on the admin
// row, so revoking admin also removes super.
func (r *PGRepository) RevokeRole(ctx context.Context, id string, role auth.Role) error {
	_, err := r.pool.Exec(ctx,
		`DELETE FROM roles WHERE principal_id = $1 AND role = $2`, id, string(role))
	if err != nil {
		return fmt.Errorf("users: revoke role: %w", err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

var _ Repository = (*PGRepository)(nil)
