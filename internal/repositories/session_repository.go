package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"racingplate/internal/models"
)

type SessionRepository interface {
	Create(ctx context.Context, s *models.GameSession) error
	GetByID(ctx context.Context, id int64) (*models.GameSession, error)
	// Complete transitions active -> completed for the owner's session and
	// stamps end_time; duration is derived server-side from start_time.
	Complete(ctx context.Context, id int64, userID int, score int64, endTime time.Time) (*models.GameSession, error)
	// Abandon transitions active -> abandoned. No leaderboard effect.
	Abandon(ctx context.Context, id int64, userID int, endTime time.Time) error
	Stats(ctx context.Context, userID int) (*models.UserStats, error)
	// UnappliedCompleted lists completed sessions whose leaderboard fold has
	// not been recorded yet, oldest first.
	UnappliedCompleted(ctx context.Context, limit int) ([]int64, error)
}

type sessionRepository struct {
	DB *sql.DB
}

func NewSessionRepository(db *sql.DB) SessionRepository {
	return &sessionRepository{DB: db}
}

func (r *sessionRepository) Create(ctx context.Context, s *models.GameSession) error {
	const q = `
		INSERT INTO game_sessions (user_id, game_mode, difficulty, status)
		VALUES ($1,$2,$3,'active')
		RETURNING id, start_time, status
	`
	return r.DB.QueryRowContext(ctx, q, s.UserID, s.GameMode, s.Difficulty).
		Scan(&s.ID, &s.StartTime, &s.Status)
}

const sessionColumns = `
	id, user_id, game_mode, difficulty, start_time, end_time,
	duration_seconds, score, status, leaderboard_applied
`

func scanSession(row *sql.Row) (*models.GameSession, error) {
	s := &models.GameSession{}
	var endTime sql.NullTime
	var duration sql.NullInt64
	err := row.Scan(
		&s.ID, &s.UserID, &s.GameMode, &s.Difficulty, &s.StartTime, &endTime,
		&duration, &s.Score, &s.Status, &s.LeaderboardApplied,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if endTime.Valid {
		t := endTime.Time
		s.EndTime = &t
	}
	if duration.Valid {
		d := duration.Int64
		s.DurationSeconds = &d
	}
	return s, nil
}

func (r *sessionRepository) GetByID(ctx context.Context, id int64) (*models.GameSession, error) {
	return scanSession(r.DB.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM game_sessions WHERE id = $1`, id))
}

func (r *sessionRepository) Complete(ctx context.Context, id int64, userID int, score int64, endTime time.Time) (*models.GameSession, error) {
	// Conditional update: only the owner's active session transitions, so a
	// double end or a foreign session id comes back as ErrNotFound.
	const q = `
		UPDATE game_sessions
		SET status='completed',
		    score=$1,
		    end_time=$2,
		    duration_seconds=GREATEST(0, FLOOR(EXTRACT(EPOCH FROM ($2 - start_time))))::BIGINT
		WHERE id=$3 AND user_id=$4 AND status='active'
		RETURNING ` + sessionColumns
	return scanSession(r.DB.QueryRowContext(ctx, q, score, endTime, id, userID))
}

func (r *sessionRepository) Abandon(ctx context.Context, id int64, userID int, endTime time.Time) error {
	const q = `
		UPDATE game_sessions
		SET status='abandoned',
		    end_time=$1,
		    duration_seconds=GREATEST(0, FLOOR(EXTRACT(EPOCH FROM ($1 - start_time))))::BIGINT
		WHERE id=$2 AND user_id=$3 AND status='active'
	`
	res, err := r.DB.ExecContext(ctx, q, endTime, id, userID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// Stats aggregates over completed session rows; the leaderboard table is a
// separate read path and the two must agree on best score and game count.
func (r *sessionRepository) Stats(ctx context.Context, userID int) (*models.UserStats, error) {
	const q = `
		SELECT
			COUNT(*),
			COALESCE(SUM(score), 0),
			COALESCE(AVG(score), 0),
			COALESCE(MAX(score), 0),
			COALESCE(SUM(duration_seconds), 0)
		FROM game_sessions
		WHERE user_id = $1 AND status = 'completed'
	`
	st := &models.UserStats{}
	err := r.DB.QueryRowContext(ctx, q, userID).Scan(
		&st.TotalGames, &st.TotalScore, &st.AverageScore, &st.BestScore, &st.TotalPlaytime,
	)
	if err != nil {
		return nil, err
	}
	return st, nil
}

func (r *sessionRepository) UnappliedCompleted(ctx context.Context, limit int) ([]int64, error) {
	const q = `
		SELECT id FROM game_sessions
		WHERE status='completed' AND leaderboard_applied=FALSE
		ORDER BY id
		LIMIT $1
	`
	rows, err := r.DB.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
