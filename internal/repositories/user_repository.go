package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"

	"racingplate/internal/models"
)

type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id int) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	UpdatePassword(ctx context.Context, userID int, passwordHash string) error
	MarkVerified(ctx context.Context, userID int) error
}

type userRepository struct {
	DB *sql.DB
}

func NewUserRepository(db *sql.DB) UserRepository {
	return &userRepository{DB: db}
}

const userColumns = `
	id, email, username, password_hash, is_verified, verified_at,
	COALESCE(subscription,'free'), created_at
`

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	const q = `
		INSERT INTO users (email, username, password_hash, is_verified, subscription)
		VALUES ($1,$2,$3,$4,$5)
		RETURNING id, created_at
	`
	err := r.DB.QueryRowContext(ctx, q,
		user.Email,
		user.Username,
		user.PasswordHash,
		user.IsVerified,
		user.Subscription,
	).Scan(&user.ID, &user.CreatedAt)
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
		return ErrDuplicate
	}
	return err
}

func (r *userRepository) scanUser(row *sql.Row) (*models.User, error) {
	u := &models.User{}
	var verifiedAt sql.NullTime
	err := row.Scan(
		&u.ID, &u.Email, &u.Username, &u.PasswordHash, &u.IsVerified, &verifiedAt,
		&u.Subscription, &u.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if verifiedAt.Valid {
		t := verifiedAt.Time
		u.VerifiedAt = &t
	}
	return u, nil
}

func (r *userRepository) GetByID(ctx context.Context, id int) (*models.User, error) {
	return r.scanUser(r.DB.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

// GetByEmail matches case-insensitively; emails are stored lower-cased but
// older rows may predate that convention.
func (r *userRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.scanUser(r.DB.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE LOWER(email) = LOWER($1)`, email))
}

func (r *userRepository) UpdatePassword(ctx context.Context, userID int, passwordHash string) error {
	res, err := r.DB.ExecContext(ctx,
		`UPDATE users SET password_hash=$1 WHERE id=$2`, passwordHash, userID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *userRepository) MarkVerified(ctx context.Context, userID int) error {
	res, err := r.DB.ExecContext(ctx,
		`UPDATE users SET is_verified=TRUE, verified_at=NOW() WHERE id=$1`, userID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
