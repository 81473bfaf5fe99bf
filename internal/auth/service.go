package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/smartexpense/smartexpense/internal/shared"
)

// Service wraps authentication business rules.
type Service struct {
	repo      Repository
	tokens    *Tokens
	validator *validator.Validate
}

// NewService constructs a new Service.
func NewService(repo Repository, tokens *Tokens) *Service {
	return &Service{repo: repo, tokens: tokens, validator: shared.NewValidator()}
}

// Register creates an account and returns it.
func (s *Service) Register(ctx context.Context, input RegisterInput) (*User, error) {
	input.Name = strings.TrimSpace(input.Name)
	input.Email = normalizeEmail(input.Email)
	if err := shared.ValidateStruct(s.validator, input); err != nil {
		return nil, err
	}

	if _, err := s.repo.FindByEmail(ctx, input.Email); err == nil {
		return nil, shared.ErrDuplicateEmail
	} else if !errors.Is(err, shared.ErrNotFound) {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	user := &User{
		ID:           uuid.New(),
		Name:         input.Name,
		Email:        input.Email,
		PasswordHash: string(hash),
	}
	if err := s.repo.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Login validates credentials and issues a bearer token.
func (s *Service) Login(ctx context.Context, input LoginInput) (string, *User, error) {
	input.Email = normalizeEmail(input.Email)
	if err := shared.ValidateStruct(s.validator, input); err != nil {
		return "", nil, err
	}
	user, err := s.repo.FindByEmail(ctx, input.Email)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return "", nil, shared.ErrInvalidCredentials
		}
		return "", nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)); err != nil {
		return "", nil, shared.ErrInvalidCredentials
	}
	token, err := s.tokens.Issue(user)
	if err != nil {
		return "", nil, err
	}
	return token, user, nil
}

// IssueToken signs a bearer token for an already authenticated user.
func (s *Service) IssueToken(user *User) (string, error) {
	return s.tokens.Issue(user)
}

// Current loads the account behind an identity.
func (s *Service) Current(ctx context.Context, id shared.Identity) (*User, error) {
	user, err := s.repo.FindByID(ctx, id.UserID)
	if errors.Is(err, shared.ErrNotFound) {
		return nil, shared.ErrUnauthorized
	}
	return user, err
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
