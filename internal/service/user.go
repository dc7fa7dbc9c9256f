// Package service provides business logic for the application.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/matchpost/matchpost/internal/auth"
	"github.com/matchpost/matchpost/internal/metrics"
	"github.com/matchpost/matchpost/internal/model"
	"github.com/matchpost/matchpost/internal/repository"
)

// UserStore is the persistence surface UserService needs.
// *repository.Repository implements it.
type UserStore interface {
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, id int64) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
}

// UserService handles registration, credential checks and sessions.
type UserService struct {
	users    UserStore
	hasher   *auth.Hasher
	tokens   *auth.TokenIssuer
	validate *validator.Validate
	cleaner  *textCleaner
	metrics  metrics.Recorder
	logger   *slog.Logger

	// dummyHash is verified for unknown emails so both login failure
	// paths do the same amount of work.
	dummyHash func() (string, error)
}

// NewUserService creates a new UserService.
func NewUserService(users UserStore, hasher *auth.Hasher, tokens *auth.TokenIssuer, recorder metrics.Recorder, logger *slog.Logger) *UserService {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &UserService{
		users:    users,
		hasher:   hasher,
		tokens:   tokens,
		validate: newValidator(),
		cleaner:  newTextCleaner(),
		metrics:  recorder,
		logger:   logger,
		dummyHash: sync.OnceValues(func() (string, error) {
			return hasher.Hash("dummy-password-for-timing")
		}),
	}
}

// RegisterInput defines input for creating an account.
type RegisterInput struct {
	Email    string  `json:"email" validate:"required,email,max=254"`
	Password string  `json:"password" validate:"required,max=1024"`
	Name     string  `json:"name" validate:"required,max=200"`
	Phone    *string `json:"phone" validate:"omitempty,max=50"`
}

// Register creates a new user. The email must not be registered yet.
func (s *UserService) Register(ctx context.Context, input RegisterInput) (*model.User, error) {
	input.Name = s.cleaner.Clean(input.Name)
	input.Phone = s.cleaner.CleanOptional(input.Phone)

	if err := checkStruct(s.validate, input); err != nil {
		return nil, err
	}
	if len(input.Password) < s.hasher.MinLength() {
		return nil, validationError(fmt.Sprintf("password: must be at least %d characters", s.hasher.MinLength()), auth.ErrSecretTooShort)
	}

	existing, err := s.FindByEmail(ctx, input.Email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrEmailTaken
	}

	hash, err := s.hasher.Hash(input.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &model.User{
		Email:        input.Email,
		PasswordHash: hash,
		Name:         input.Name,
		Phone:        input.Phone,
	}

	if err := s.users.CreateUser(ctx, user); err != nil {
		// A concurrent registration can pass the pre-check; the unique
		// index decides.
		if errors.Is(err, repository.ErrEmailExists) {
			return nil, ErrEmailTaken
		}
		return nil, persistenceError("failed to create user", err)
	}

	s.metrics.IncUserRegistered()
	s.logger.Info("user registered", "user_id", user.ID)

	return user, nil
}

// FindByEmail returns the user with exactly this email, or nil if none.
func (s *UserService) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, nil
		}
		return nil, persistenceError("failed to look up user", err)
	}
	return user, nil
}

// FindByID returns the user with this id, or nil if none.
func (s *UserService) FindByID(ctx context.Context, id int64) (*model.User, error) {
	user, err := s.users.GetUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, nil
		}
		return nil, persistenceError("failed to look up user", err)
	}
	return user, nil
}

// Authenticate checks a password against the stored credential.
// Unknown emails and wrong passwords fail with the same ErrInvalidCredentials.
func (s *UserService) Authenticate(ctx context.Context, email, password string) (*model.User, error) {
	user, err := s.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}

	if user == nil {
		if dummy, err := s.dummyHash(); err == nil {
			s.hasher.Verify(password, dummy)
		}
		return nil, ErrInvalidCredentials
	}

	if !s.hasher.Verify(password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	return user, nil
}

// LoginInput defines input for starting a session.
type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// LoginResult is a successful login.
type LoginResult struct {
	User      *model.User
	Token     string
	ExpiresAt time.Time
}

// Login authenticates the caller and issues a session token.
func (s *UserService) Login(ctx context.Context, input LoginInput) (*LoginResult, error) {
	if err := checkStruct(s.validate, input); err != nil {
		return nil, err
	}

	user, err := s.Authenticate(ctx, input.Email, input.Password)
	if err != nil {
		if errors.Is(err, ErrAuth) {
			s.metrics.IncLogin(metrics.LoginFailure)
		}
		return nil, err
	}

	token, expiresAt, err := s.tokens.Issue(user)
	if err != nil {
		return nil, fmt.Errorf("failed to issue session token: %w", err)
	}

	s.metrics.IncLogin(metrics.LoginSuccess)
	s.logger.Info("user logged in", "user_id", user.ID)

	return &LoginResult{User: user, Token: token, ExpiresAt: expiresAt}, nil
}

// ValidateToken decodes a bearer token into the caller identity.
func (s *UserService) ValidateToken(token string) (*auth.Identity, error) {
	identity, err := s.tokens.Validate(token)
	if err != nil {
		if errors.Is(err, auth.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}
	return identity, nil
}
