package services

import (
	"context"
	"errors"
	"log"
	"strings"

	"racingplate/internal/models"
	"racingplate/internal/repositories"
)

type UserService interface {
	// Register creates an unverified account and best-effort sends a
	// verification code; signup itself does not fail on delivery problems.
	Register(ctx context.Context, email, password, username string) (*models.User, error)
	// Authenticate returns one undifferentiated error for "no such user"
	// and "wrong password".
	Authenticate(ctx context.Context, email, password string) (*models.User, string, error)
	VerifyEmail(ctx context.Context, email, code string) (*models.User, string, error)
	ResendVerification(ctx context.Context, email string) error
	// RequestPasswordReset succeeds silently for unknown emails; only a
	// delivery failure is surfaced.
	RequestPasswordReset(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, email, code, newPassword string) error
	GetByID(ctx context.Context, id int) (*models.User, error)
}

type userService struct {
	repo   repositories.UserRepository
	codes  VerificationService
	emails EmailService
	auth   AuthService
}

func NewUserService(repo repositories.UserRepository, codes VerificationService, emails EmailService, auth AuthService) UserService {
	return &userService{
		repo:   repo,
		codes:  codes,
		emails: emails,
		auth:   auth,
	}
}

func (s *userService) Register(ctx context.Context, email, password, username string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	hash, err := s.auth.HashPassword(password)
	if err != nil {
		return nil, err
	}
	user := &models.User{
		Email:        email,
		Username:     strings.TrimSpace(username),
		PasswordHash: hash,
		Subscription: "free",
	}
	if err := s.repo.Create(ctx, user); err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			return nil, ErrEmailTaken
		}
		return nil, err
	}

	// raw password is never persisted or logged
	if err := s.sendVerificationCode(ctx, user); err != nil {
		log.Printf("[auth][signup] warning: verification email to %s not sent: %v", user.Email, err)
	}
	return user, nil
}

func (s *userService) sendVerificationCode(ctx context.Context, user *models.User) error {
	code, err := s.codes.Issue(ctx, user.Email, models.PurposeVerifyEmail, user.ID)
	if err != nil {
		return err
	}
	return s.emails.SendVerificationEmail(user.Email, code)
}

func (s *userService) Authenticate(ctx context.Context, email, password string) (*models.User, string, error) {
	user, err := s.repo.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", err
	}
	if !s.auth.CheckPassword(user.PasswordHash, password) {
		return nil, "", ErrInvalidCredentials
	}

	token, err := s.auth.GenerateToken(user)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

func (s *userService) VerifyEmail(ctx context.Context, email, code string) (*models.User, string, error) {
	userID, err := s.codes.Consume(ctx, email, code, models.PurposeVerifyEmail)
	if err != nil {
		return nil, "", err
	}
	if err := s.repo.MarkVerified(ctx, userID); err != nil {
		return nil, "", err
	}
	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return nil, "", err
	}
	token, err := s.auth.GenerateToken(user)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

func (s *userService) ResendVerification(ctx context.Context, email string) error {
	user, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			// don't leak existence
			log.Printf("[auth][resend] request for unknown email %q", email)
			return nil
		}
		return err
	}
	if user.IsVerified {
		return nil
	}
	return s.sendVerificationCode(ctx, user)
}

func (s *userService) RequestPasswordReset(ctx context.Context, email string) error {
	user, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			log.Printf("[auth][forgot-password] request for unknown email %q", email)
			return nil
		}
		return err
	}

	code, err := s.codes.Issue(ctx, user.Email, models.PurposePasswordReset, user.ID)
	if err != nil {
		return err
	}
	return s.emails.SendPasswordResetEmail(user.Email, code)
}

func (s *userService) ResetPassword(ctx context.Context, email, code, newPassword string) error {
	userID, err := s.codes.Consume(ctx, email, code, models.PurposePasswordReset)
	if err != nil {
		return err
	}
	hash, err := s.auth.HashPassword(newPassword)
	if err != nil {
		return err
	}
	return s.repo.UpdatePassword(ctx, userID, hash)
}

func (s *userService) GetByID(ctx context.Context, id int) (*models.User, error) {
	return s.repo.GetByID(ctx, id)
}
