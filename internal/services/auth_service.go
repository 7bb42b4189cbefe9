package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/kitovu/farmreg/api/internal/auth"
	"github.com/kitovu/farmreg/api/internal/logger"
	"github.com/kitovu/farmreg/api/internal/models"
	"github.com/kitovu/farmreg/api/internal/repository"
)

// Service-level errors
var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrDuplicateUser      = errors.New("email or username already exists")
	ErrUserNotFound       = errors.New("user not found")
	ErrWrongPassword      = errors.New("current password is incorrect")
)

// AuthService defines the account and session operations of the registry.
type AuthService interface {
	// Login verifies credentials and issues a signed token.
	// Returns ErrInvalidCredentials when the email is unknown or the
	// password does not match; the two cases are indistinguishable to the
	// caller.
	Login(ctx context.Context, email, password string) (string, *models.User, error)

	// CreateEnumerator provisions a new enumerator account. The role check
	// happens at the transport layer; this method assumes an administrator
	// caller. Returns ErrDuplicateUser when email or username is taken.
	CreateEnumerator(ctx context.Context, email, username, password string) (*models.User, error)

	// ResetPassword replaces the caller's credential after verifying the
	// current one.
	ResetPassword(ctx context.Context, userID uuid.UUID, currentPassword, newPassword string) (*models.User, error)

	// SeedAdmin creates the bootstrap administrator account if it does not
	// exist yet. Called once on startup.
	SeedAdmin(ctx context.Context, email, username, password string) error
}

// authService is the concrete implementation of AuthService.
type authService struct {
	repo   repository.UserRepository
	tokens *auth.TokenManager
	log    *logger.Logger
}

// NewAuthService creates a new instance of AuthService.
func NewAuthService(repo repository.UserRepository, tokens *auth.TokenManager, log *logger.Logger) AuthService {
	return &authService{
		repo:   repo,
		tokens: tokens,
		log:    log,
	}
}

// Login verifies the email/password pair and issues a token carrying the
// user's id, email, and role.
func (s *authService) Login(ctx context.Context, email, password string) (string, *models.User, error) {
	user, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		s.log.Error("Failed to query user for login", err, map[string]interface{}{
			"email": email,
		})
		return "", nil, fmt.Errorf("failed to query user: %w", err)
	}

	if user == nil || !auth.CheckPassword(user.PasswordHash, password) {
		s.log.Warn("Login rejected", map[string]interface{}{
			"email": email,
		})
		return "", nil, ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(user.ID, user.Email, user.Role)
	if err != nil {
		s.log.Error("Failed to issue token", err, map[string]interface{}{
			"user_id": user.ID,
		})
		return "", nil, fmt.Errorf("failed to issue token: %w", err)
	}

	s.log.Info("User logged in", map[string]interface{}{
		"user_id": user.ID,
		"role":    user.Role,
	})

	return token, user, nil
}

// CreateEnumerator hashes the credential and inserts the account with the
// enumerator role.
func (s *authService) CreateEnumerator(ctx context.Context, email, username, password string) (*models.User, error) {
	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user, err := s.repo.CreateEnumerator(ctx, email, username, hash)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			s.log.Warn("Enumerator creation hit a uniqueness conflict", map[string]interface{}{
				"email":    email,
				"username": username,
			})
			return nil, ErrDuplicateUser
		}
		s.log.Error("Failed to create enumerator", err, map[string]interface{}{
			"email": email,
		})
		return nil, fmt.Errorf("failed to create enumerator: %w", err)
	}

	s.log.Info("Enumerator created", map[string]interface{}{
		"user_id":  user.ID,
		"username": user.Username,
	})

	return user, nil
}

// ResetPassword verifies the current credential before storing the new one.
func (s *authService) ResetPassword(ctx context.Context, userID uuid.UUID, currentPassword, newPassword string) (*models.User, error) {
	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		s.log.Error("Failed to query user for password reset", err, map[string]interface{}{
			"user_id": userID,
		})
		return nil, fmt.Errorf("failed to query user: %w", err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}

	if !auth.CheckPassword(user.PasswordHash, currentPassword) {
		s.log.Warn("Password reset rejected", map[string]interface{}{
			"user_id": userID,
		})
		return nil, ErrWrongPassword
	}

	hash, err := auth.HashPassword(newPassword)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	if err := s.repo.UpdatePassword(ctx, userID, hash); err != nil {
		s.log.Error("Failed to update password", err, map[string]interface{}{
			"user_id": userID,
		})
		return nil, fmt.Errorf("failed to update password: %w", err)
	}

	s.log.Info("Password reset", map[string]interface{}{
		"user_id": userID,
	})

	return user, nil
}

// SeedAdmin inserts the configured administrator account when missing.
func (s *authService) SeedAdmin(ctx context.Context, email, username, password string) error {
	hash, err := auth.HashPassword(password)
	if err != nil {
		return fmt.Errorf("failed to hash bootstrap password: %w", err)
	}

	if err := s.repo.EnsureAdmin(ctx, email, username, hash); err != nil {
		return err
	}

	s.log.Debug("Bootstrap administrator ensured", map[string]interface{}{
		"email": email,
	})

	return nil
}
