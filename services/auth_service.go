package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/nhsf/dharmic-games/models"
	"github.com/nhsf/dharmic-games/repositories"
	"github.com/nhsf/dharmic-games/utils"
	"golang.org/x/crypto/bcrypt"
)

type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type AuthService interface {
	Login(ctx context.Context, input LoginInput) (*models.User, error)
	// EnsureSuperAdmin creates the bootstrap superadmin when no account uses email yet.
	EnsureSuperAdmin(ctx context.Context, name, email, password string) (*models.User, bool, error)
}

type authService struct {
	userRepo repositories.UserRepository
	logger   *slog.Logger
}

func NewAuthService(userRepo repositories.UserRepository, logger *slog.Logger) AuthService {
	return &authService{
		userRepo: userRepo,
		logger:   logger,
	}
}

func (s *authService) Login(ctx context.Context, input LoginInput) (*models.User, error) {
	user, err := s.userRepo.GetByEmail(ctx, input.Email)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to find user by email: %w", err)
	}

	err = bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password))
	if err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to compare password hash: %w", err)
	}

	user.PasswordHash = ""
	return user, nil
}

func (s *authService) EnsureSuperAdmin(ctx context.Context, name, email, password string) (*models.User, bool, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if !utils.IsValidEmail(email) {
		return nil, false, fmt.Errorf("%w: superadmin email is invalid", ErrValidationFailed)
	}

	existing, err := s.userRepo.GetByEmail(ctx, email)
	if err == nil {
		existing.PasswordHash = ""
		return existing, false, nil
	}
	if !errors.Is(err, repositories.ErrUserNotFound) {
		return nil, false, fmt.Errorf("failed to look up superadmin: %w", err)
	}

	if len(password) < utils.MinPasswordLength {
		return nil, false, ErrPasswordTooShort
	}
	hash, err := utils.HashPassword(password)
	if err != nil {
		return nil, false, fmt.Errorf("ошибка хеширования пароля: %w", err)
	}

	user := &models.User{
		Name:         strings.TrimSpace(name),
		Email:        email,
		PasswordHash: hash,
		Role:         models.RoleSuperAdmin,
	}
	if err := s.userRepo.Create(ctx, nil, user); err != nil {
		return nil, false, handleRepositoryError(err)
	}
	s.logger.InfoContext(ctx, "Superadmin account created", slog.Int("user_id", user.ID), slog.String("email", user.Email))
	user.PasswordHash = ""
	return user, true, nil
}
