package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/yogastudio/internal/model"
	"github.com/yogastudio/internal/repository"
)

const (
	RoleUser  = "ROLE_USER"
	RoleAdmin = "ROLE_ADMIN"
)

var ErrPrincipalNotFound = errors.New("principal not found")

// Principal is the authenticated user as seen by authorization checks.
// It is loaded per request and never cached.
type Principal struct {
	ID           int64
	Username     string
	FirstName    string
	LastName     string
	PasswordHash string
	Admin        bool
}

func PrincipalFromUser(u *model.User) *Principal {
	return &Principal{
		ID:           u.ID,
		Username:     u.Email,
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		PasswordHash: u.PasswordHash,
		Admin:        u.Admin,
	}
}

// Authorities lists the granted roles.
func (p *Principal) Authorities() []string {
	if p.Admin {
		return []string{RoleUser, RoleAdmin}
	}
	return []string{RoleUser}
}

// UserFinder is the slice of user storage the principal store needs.
type UserFinder interface {
	GetByEmail(ctx context.Context, email string) (*model.User, error)
}

// PrincipalStore loads principals by username (the user's email).
type PrincipalStore struct {
	users UserFinder
}

func NewPrincipalStore(users UserFinder) *PrincipalStore {
	return &PrincipalStore{users: users}
}

func (s *PrincipalStore) LoadByUsername(ctx context.Context, username string) (*Principal, error) {
	u, err := s.users.GetByEmail(ctx, username)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrPrincipalNotFound, username)
	}
	if err != nil {
		return nil, fmt.Errorf("load principal: %w", err)
	}
	return PrincipalFromUser(u), nil
}
