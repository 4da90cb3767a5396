package users

import (
	"context"
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/himalclinic/himalclinic/internal/auth"
)

// Service handles user management business logic. Role writes here are the
// only mutation path into the directory the authorization core reads.
type Service struct {
	repo Repository
}

// NewService constructs a Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// List returns all accounts with roles.
func (s *Service) List(ctx context.Context) ([]Account, error) {
	return s.repo.List(ctx)
}

// Create hashes the password and stores a new account with the given role.
func (s *Service) Create(ctx context.Context, email, name, password string, role auth.Role) (Account, error) {
	email = strings.TrimSpace(email)
	name = strings.TrimSpace(name)
	if email == "" || len(password) < 8 {
		return Account{}, errors.New("users: email and a password of at least 8 characters are required")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return Account{}, err
	}
	account, err := s.repo.Create(ctx, email, name, string(hash))
	if err != nil {
		return Account{}, err
	}
	if err := s.repo.GrantRole(ctx, account.ID, role); err != nil {
		return Account{}, err
	}
	account.Roles = append(account.Roles, auth.RoleAssignment{PrincipalID: account.ID, Role: role})
	return account, nil
}

// SetActive toggles an account.
func (s *Service) SetActive(ctx context.Context, id string, active bool) error {
	return s.repo.SetActive(ctx, id, active)
}

// GrantRole adds a role assignment.
func (s *Service) GrantRole(ctx context.Context, id string, role auth.Role) error {
	return s.repo.GrantRole(ctx, id, role)
}

// RevokeRole removes a role assignment.
func (s *Service) RevokeRole(ctx context.Context, id string, role auth.Role) error {
	return s.repo.RevokeRole(ctx, id, role)
}
