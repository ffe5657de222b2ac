package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/vivekr077/CodePilot/internal/ids"
	"github.com/vivekr077/CodePilot/internal/models"
	"github.com/vivekr077/CodePilot/internal/repository"
	"github.com/vivekr077/CodePilot/internal/security"
)

type AuthService struct {
	users  repository.UserStore
	hasher *security.PasswordHasher
	tokens *security.SessionTokens
	log    zerolog.Logger
}

func NewAuthService(
	users repository.UserStore,
	hasher *security.PasswordHasher,
	tokens *security.SessionTokens,
	log zerolog.Logger,
) *AuthService {
	return &AuthService{
		users:  users,
		hasher: hasher,
		tokens: tokens,
		log:    log,
	}
}

type CreateUserInput struct {
	Name     string
	Email    string
	Password string
}

func (s *AuthService) CreateUser(ctx context.Context, input CreateUserInput) (models.User, error) {
	name := strings.TrimSpace(input.Name)
	email := strings.TrimSpace(input.Email)

	switch {
	case name == "":
		return models.User{}, validationError("name is required")
	case email == "":
		return models.User{}, validationError("email is required")
	case strings.TrimSpace(input.Password) == "":
		return models.User{}, validationError("password is required")
	}
	if !validEmail(email) {
		return models.User{}, validationError("email %q is not a valid address", email)
	}

	passwordHash, err := s.hasher.Hash(input.Password)
	if err != nil {
		if errors.Is(err, security.ErrPasswordTooLong) {
			return models.User{}, validationError("password is too long")
		}
		return models.User{}, fmt.Errorf("hash password: %w", err)
	}

	user, err := s.users.Create(ctx, models.User{
		ID:           ids.New(),
		Name:         name,
		Email:        email,
		PasswordHash: passwordHash,
	})
	if err != nil {
		if errors.Is(err, repository.ErrEmailTaken) {
			return models.User{}, ErrDuplicateEmail
		}
		return models.User{}, storageError("create user", err)
	}

	s.log.Info().Str("user_id", user.ID).Msg("user registered")
	return user, nil
}

// VerifyCredentials checks a password against the stored hash for email. The
// lookup is an exact match on the trimmed address.
func (s *AuthService) VerifyCredentials(ctx context.Context, email, password string) (models.User, error) {
	email = strings.TrimSpace(email)

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			s.hasher.BurnVerify(password)
			return models.User{}, ErrNotFound
		}
		return models.User{}, storageError("find user", err)
	}

	ok, err := s.hasher.Verify(password, user.PasswordHash)
	if err != nil {
		s.log.Error().Err(err).Str("user_id", user.ID).Msg("stored password hash unreadable")
		return models.User{}, ErrInvalidCredentials
	}
	if !ok {
		return models.User{}, ErrInvalidCredentials
	}
	return user, nil
}

type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	User      models.User
}

// Login verifies credentials and issues a session token. Unknown email and
// wrong password both surface as ErrUnauthorized.
func (s *AuthService) Login(ctx context.Context, email, password string) (LoginResult, error) {
	user, err := s.VerifyCredentials(ctx, email, password)
	if err != nil {
		if errors.Is(err, ErrNotFound) || errors.Is(err, ErrInvalidCredentials) {
			return LoginResult{}, fmt.Errorf("%w: %w", ErrUnauthorized, err)
		}
		return LoginResult{}, err
	}

	token, expiresAt, err := s.tokens.Issue(user.ID)
	if err != nil {
		return LoginResult{}, fmt.Errorf("issue session: %w", err)
	}

	s.log.Debug().Str("user_id", user.ID).Time("expires_at", expiresAt).Msg("session issued")
	return LoginResult{Token: token, ExpiresAt: expiresAt, User: user}, nil
}

func (s *AuthService) CurrentUser(ctx context.Context, userID string) (models.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return models.User{}, ErrNotFound
		}
		return models.User{}, storageError("get user", err)
	}
	return user, nil
}

func validEmail(email string) bool {
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Address == email
}
