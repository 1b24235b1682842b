// internal/services/members.go
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"beef-back/internal/apperrors"
	"beef-back/internal/auth"
	"beef-back/internal/logging"
	"beef-back/internal/models"

	"go.uber.org/zap"
)

// MemberStore persists accounts.
type MemberStore interface {
	Create(ctx context.Context, member *models.Member) error
	FindByEmail(ctx context.Context, email string) (*models.Member, error)
}

// TokenMinter issues a token for a subject.
type TokenMinter interface {
	Mint(subject string) (string, error)
}

type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) error
}

type MemberService struct {
	store  MemberStore
	hasher PasswordHasher
	tokens TokenMinter
	logger *zap.Logger
}

func NewMemberService(store MemberStore, hasher PasswordHasher, tokens TokenMinter, logger *zap.Logger) *MemberService {
	return &MemberService{store: store, hasher: hasher, tokens: tokens, logger: logger}
}

// Register creates an account and returns its id.
func (s *MemberService) Register(ctx context.Context, email, password, name string) (uint, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return 0, apperrors.Validation("email and password are required")
	}

	hashed, err := s.hasher.Hash(password)
	if err != nil {
		return 0, apperrors.Validation("password cannot be used")
	}

	member := &models.Member{Email: email, Password: hashed, Name: strings.TrimSpace(name)}
	if err := s.store.Create(ctx, member); err != nil {
		if !errors.Is(err, apperrors.ErrDuplicateEmail) {
			s.logger.Error("Failed to register member", logging.Error(err))
		}
		return 0, err
	}

	s.logger.Info("Member registered", zap.Uint("member_id", member.ID))
	return member.ID, nil
}

// FindByEmail returns nil, nil when the email is unknown.
func (s *MemberService) FindByEmail(ctx context.Context, email string) (*models.Member, error) {
	return s.store.FindByEmail(ctx, normalizeEmail(email))
}

// Login checks credentials and mints a token for the member's email.
// Unknown email and wrong password both yield ErrInvalidCredentials.
func (s *MemberService) Login(ctx context.Context, email, password string) (string, error) {
	member, err := s.store.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return "", err
	}
	if member == nil {
		return "", apperrors.ErrInvalidCredentials
	}
	if err := s.hasher.Compare(member.Password, password); err != nil {
		return "", apperrors.ErrInvalidCredentials
	}

	token, err := s.tokens.Mint(member.Email)
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return token, nil
}

// Profile returns the account behind an authenticated identity.
func (s *MemberService) Profile(ctx context.Context, id *auth.Identity) (*models.Member, error) {
	if id == nil {
		return nil, apperrors.ErrUnauthenticated
	}
	member, err := s.store.FindByEmail(ctx, id.Subject)
	if err != nil {
		return nil, err
	}
	if member == nil {
		return nil, apperrors.ErrNotFound
	}
	return member, nil
}

func normalizeEmail(email string) string {
	return strings.TrimSpace(email)
}
