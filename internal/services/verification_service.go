package services

import (
	"context"
	"log"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"racingplate/internal/models"
	"racingplate/internal/repositories"
	"racingplate/internal/utils"
)

const codeTTL = 10 * time.Minute

// VerificationService issues and consumes one-time 6-digit codes, keyed by
// (lower-cased email, purpose). Codes live in postgres so they survive
// restarts and are shared across instances; only a bcrypt hash is stored.
type VerificationService interface {
	// Issue generates a code, overwriting any pending one for the same
	// email+purpose, and returns the plaintext for the mailer.
	Issue(ctx context.Context, email, purpose string, userID int) (string, error)
	// Consume validates and deletes the code (at-most-once). A mismatch
	// keeps the pending code; an expired code is deleted as a side effect.
	Consume(ctx context.Context, email, suppliedCode, purpose string) (userID int, err error)
	// PurgeExpired deletes expired rows consume never touched, i.e. codes
	// for emails that never came back.
	PurgeExpired(ctx context.Context) (int64, error)
	// RunCleanup purges expired codes every period until ctx ends.
	RunCleanup(ctx context.Context, period time.Duration)
}

type verificationService struct {
	repo repositories.VerificationRepository
	now  func() time.Time
}

func NewVerificationService(repo repositories.VerificationRepository) VerificationService {
	return &verificationService{repo: repo, now: time.Now}
}

func (s *verificationService) Issue(ctx context.Context, email, purpose string, userID int) (string, error) {
	code, err := utils.NewVerificationCode()
	if err != nil {
		return "", err
	}
	// codes are short-lived, a low cost keeps consume cheap
	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}

	now := s.now()
	rec := &models.VerificationCode{
		Email:     strings.ToLower(strings.TrimSpace(email)),
		Purpose:   purpose,
		CodeHash:  string(hash),
		UserID:    userID,
		SentAt:    now,
		ExpiresAt: now.Add(codeTTL),
	}
	if err := s.repo.Upsert(ctx, rec); err != nil {
		return "", err
	}
	return code, nil
}

func (s *verificationService) Consume(ctx context.Context, email, suppliedCode, purpose string) (int, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	rec, err := s.repo.Get(ctx, email, purpose)
	if err != nil {
		if err == repositories.ErrNotFound {
			return 0, ErrCodeNotFound
		}
		return 0, err
	}

	if s.now().After(rec.ExpiresAt) {
		_ = s.repo.Delete(ctx, rec.ID)
		return 0, ErrCodeExpired
	}

	if bcrypt.CompareHashAndPassword([]byte(rec.CodeHash), []byte(suppliedCode)) != nil {
		// entry is retained: the user can retry until it expires
		return 0, ErrCodeMismatch
	}

	if err := s.repo.Delete(ctx, rec.ID); err != nil {
		return 0, err
	}
	return rec.UserID, nil
}

func (s *verificationService) PurgeExpired(ctx context.Context) (int64, error) {
	return s.repo.DeleteExpired(ctx, s.now())
}

func (s *verificationService) RunCleanup(ctx context.Context, period time.Duration) {
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := s.PurgeExpired(ctx)
			if err != nil {
				log.Printf("[auth][codes] purge expired: %v", err)
				continue
			}
			if n > 0 {
				log.Printf("[auth][codes] purged %d expired codes", n)
			}
		}
	}
}
