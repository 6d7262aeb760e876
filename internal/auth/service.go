package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/taskforge/taskforge/internal/rbac"
	"github.com/taskforge/taskforge/internal/shared"
)

// Service wraps authentication business rules.
type Service struct {
	repo     Repository
	issuer   *TokenIssuer
	denylist Denylist
	cost     int
}

// NewService constructs a new Service. denylist may be nil.
func NewService(repo Repository, issuer *TokenIssuer, denylist Denylist) *Service {
	return &Service{repo: repo, issuer: issuer, denylist: denylist, cost: bcrypt.DefaultCost}
}

// Authenticate validates email/password credentials.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*User, error) {
	user, err := s.repo.FindByEmail(ctx, strings.TrimSpace(email))
	if errors.Is(err, shared.ErrNotFound) {
		return nil, shared.ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("auth: find user: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, shared.ErrInvalidCredentials
	}
	return user, nil
}

// Login authenticates and returns a signed access token.
func (s *Service) Login(ctx context.Context, email, password string) (string, error) {
	user, err := s.Authenticate(ctx, email, password)
	if err != nil {
		return "", err
	}
	token, _, err := s.issuer.Issue(ClaimsForUser(*user))
	return token, err
}

// RegisterInput holds the data for a new account.
type RegisterInput struct {
	Email          string
	Password       string
	Name           string
	Role           rbac.Role
	OrganizationID int64
}

// Register creates an account in an existing organization and returns a token for it.
func (s *Service) Register(ctx context.Context, in RegisterInput) (string, error) {
	if _, err := s.repo.FindByEmail(ctx, in.Email); err == nil {
		return "", fmt.Errorf("%w: User with this email already exists", shared.ErrDuplicate)
	} else if !errors.Is(err, shared.ErrNotFound) {
		return "", err
	}
	org, err := s.repo.FindOrganization(ctx, in.OrganizationID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return "", fmt.Errorf("%w: Invalid organization", shared.ErrAuthenticationRequired)
		}
		return "", err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cost)
	if err != nil {
		return "", fmt.Errorf("auth: hash password: %w", err)
	}
	user, err := s.repo.CreateUser(ctx, NewUser{
		Email:        in.Email,
		Name:         in.Name,
		PasswordHash: string(hash),
		Role:         in.Role,
		OrgID:        org.ID,
	})
	if err != nil {
		return "", err
	}
	user.ParentOrgID = org.ParentID
	token, _, err := s.issuer.Issue(ClaimsForUser(*user))
	return token, err
}

// Logout revokes the token described by claims until it expires.
func (s *Service) Logout(ctx context.Context, claims Claims) error {
	if s.denylist == nil || claims.ExpiresAt == nil {
		return nil
	}
	return s.denylist.Revoke(ctx, claims.ID, claims.ExpiresAt.Time)
}
