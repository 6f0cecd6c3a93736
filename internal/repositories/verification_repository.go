package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"racingplate/internal/models"
)

type VerificationRepository interface {
	// Upsert replaces any pending code for the same (email, purpose).
	Upsert(ctx context.Context, code *models.VerificationCode) error
	Get(ctx context.Context, email, purpose string) (*models.VerificationCode, error)
	Delete(ctx context.Context, id int64) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

type verificationRepository struct {
	DB *sql.DB
}

func NewVerificationRepository(db *sql.DB) VerificationRepository {
	return &verificationRepository{DB: db}
}

func (r *verificationRepository) Upsert(ctx context.Context, code *models.VerificationCode) error {
	const q = `
		INSERT INTO verification_codes (email, purpose, code_hash, user_id, sent_at, expires_at)
		VALUES ($1,$2,$3,$4,$5,$6)
		ON CONFLICT (email, purpose) DO UPDATE SET
			code_hash  = EXCLUDED.code_hash,
			user_id    = EXCLUDED.user_id,
			sent_at    = EXCLUDED.sent_at,
			expires_at = EXCLUDED.expires_at
		RETURNING id
	`
	return r.DB.QueryRowContext(ctx, q,
		code.Email,
		code.Purpose,
		code.CodeHash,
		code.UserID,
		code.SentAt,
		code.ExpiresAt,
	).Scan(&code.ID)
}

func (r *verificationRepository) Get(ctx context.Context, email, purpose string) (*models.VerificationCode, error) {
	const q = `
		SELECT id, email, purpose, code_hash, user_id, sent_at, expires_at
		FROM verification_codes
		WHERE email = $1 AND purpose = $2
	`
	v := &models.VerificationCode{}
	err := r.DB.QueryRowContext(ctx, q, email, purpose).Scan(
		&v.ID, &v.Email, &v.Purpose, &v.CodeHash, &v.UserID, &v.SentAt, &v.ExpiresAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return v, nil
}

func (r *verificationRepository) Delete(ctx context.Context, id int64) error {
	_, err := r.DB.ExecContext(ctx, `DELETE FROM verification_codes WHERE id=$1`, id)
	return err
}

// DeleteExpired backs the periodic cleanup; consume already deletes the
// expired rows it touches, this reaps the ones nobody retried.
func (r *verificationRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM verification_codes WHERE expires_at < $1`, now)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
