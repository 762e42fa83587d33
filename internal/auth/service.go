// Package auth registers users and exchanges credentials for access tokens.
package auth

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/AnvithShetty10/expense-share/internal/apperrors"
	"github.com/AnvithShetty10/expense-share/internal/user"
)

var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]{3,50}$`)

// errBadCredentials is the single answer to every failed login.
var errBadCredentials = &apperrors.UnauthorizedError{Message: "Incorrect email/username or password"}

// Users is the part of the user service auth depends on.
type Users interface {
	Create(ctx context.Context, in *user.NewUser) (*user.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*user.User, error)
	GetByLogin(ctx context.Context, identifier string) (*user.User, error)
}

// Service handles registration and login
type Service struct {
	users  Users
	tokens *Tokens
	cost   int
	logger *zap.Logger
}

// NewService creates an auth service
func NewService(users Users, tokens *Tokens, logger *zap.Logger) *Service {
	return &Service{
		users:  users,
		tokens: tokens,
		cost:   bcrypt.DefaultCost,
		logger: logger,
	}
}

// Register creates an active user with a hashed password.
func (s *Service) Register(ctx context.Context, req *RegisterRequest) (*user.User, error) {
	if !usernamePattern.MatchString(req.Username) {
		return nil, apperrors.Validationf("username may only contain letters, digits, underscores and hyphens")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.cost)
	if err != nil {
		return nil, err
	}

	u, err := s.users.Create(ctx, &user.NewUser{
		Email:        strings.TrimSpace(req.Email),
		Username:     req.Username,
		FullName:     req.FullName,
		PasswordHash: string(hash),
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("user registered", zap.String("user_id", u.ID.String()))
	return u, nil
}

// Login checks the credentials of the user identified by email or username
// and issues an access token.
func (s *Service) Login(ctx context.Context, identifier, password string) (*TokenResponse, error) {
	u, err := s.users.GetByLogin(ctx, identifier)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, errBadCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		if !errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			s.logger.Warn("stored password hash unusable", zap.String("user_id", u.ID.String()), zap.Error(err))
		}
		return nil, errBadCredentials
	}
	if !u.IsActive {
		return nil, errBadCredentials
	}

	token, err := s.tokens.Issue(u.ID)
	if err != nil {
		return nil, err
	}

	return &TokenResponse{
		AccessToken: token,
		TokenType:   "bearer",
		ExpiresIn:   int(s.tokens.TTL().Seconds()),
	}, nil
}

// Me returns the authenticated user
func (s *Service) Me(ctx context.Context, userID uuid.UUID) (*user.User, error) {
	return s.users.GetByID(ctx, userID)
}

var _ Users = (*user.Service)(nil)
