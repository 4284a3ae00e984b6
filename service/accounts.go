package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"pollblog-backend/auth"
	"pollblog-backend/models"
	"pollblog-backend/repository"
)

// LoginResult is returned to a client after a successful login.
type LoginResult struct {
	Token  string `json:"token"`
	Caller Caller `json:"user"`
}

type AccountService struct {
	users  repository.UserRepository
	tokens *auth.TokenIssuer
	logger *slog.Logger
}

func NewAccountService(users repository.UserRepository, tokens *auth.TokenIssuer, logger *slog.Logger) *AccountService {
	return &AccountService{
		users:  users,
		tokens: tokens,
		logger: logger.With("component", "accounts"),
	}
}

// Login checks the password and issues a token. Unknown users and wrong
// passwords produce the same error.
func (s *AccountService) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	user, err := s.users.FindByUsername(ctx, username)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	if err := auth.CheckPassword(user.PasswordHash, password); err != nil {
		s.logger.Info("login rejected", "username", username)
		return nil, ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(user.ID, user.Username, user.IsStaff)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}
	return &LoginResult{
		Token:  token,
		Caller: Caller{UserID: user.ID, Username: user.Username, IsStaff: user.IsStaff},
	}, nil
}

// Authenticate turns a bearer token into a Caller.
func (s *AccountService) Authenticate(token string) (*Caller, error) {
	claims, err := s.tokens.Verify(token)
	if err != nil {
		return nil, ErrAuthenticationRequired
	}
	id, err := claims.UserID()
	if err != nil {
		return nil, ErrAuthenticationRequired
	}
	return &Caller{UserID: id, Username: claims.Username, IsStaff: claims.IsStaff}, nil
}

// EnsureUser creates the account or resets its password and staff flag.
func (s *AccountService) EnsureUser(ctx context.Context, username, password string, staff bool) (*models.User, error) {
	if err := validateShort("username", username); err != nil {
		return nil, err
	}
	if password == "" {
		return nil, fmt.Errorf("%w: password is required", ErrInvalidInput)
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user, err := s.users.FindByUsername(ctx, username)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		user = &models.User{Username: username, PasswordHash: hash, IsStaff: staff}
		if err := s.users.CreateUser(ctx, user); err != nil {
			return nil, fmt.Errorf("create user: %w", err)
		}
		s.logger.Info("user created", "username", username, "staff", staff)
	case err != nil:
		return nil, fmt.Errorf("find user: %w", err)
	default:
		user.PasswordHash = hash
		user.IsStaff = staff
		if err := s.users.SaveUser(ctx, user); err != nil {
			return nil, fmt.Errorf("save user: %w", err)
		}
		s.logger.Info("user updated", "username", username, "staff", staff)
	}
	return user, nil
}
