package models

import "time"

const (
	PurposeVerifyEmail   = "verify-email"
	PurposePasswordReset = "password-reset"
)

// VerificationCode — одна pending-запись на пару (email, purpose).
// Храним только bcrypt-хэш кода; повторная выдача перезаписывает запись.
type VerificationCode struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	Purpose   string    `json:"purpose"`
	CodeHash  string    `json:"-"`
	UserID    int       `json:"user_id"`
	SentAt    time.Time `json:"sent_at"`
	ExpiresAt time.Time `json:"expires_at"`
}
