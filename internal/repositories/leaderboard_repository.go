package repositories

import (
	"context"
	"database/sql"
	"errors"

	"racingplate/internal/models"
)

type LeaderboardRepository interface {
	// ApplySession folds one completed session into the owner's leaderboard
	// row. Idempotent keyed by session id: a retried or replayed call is a
	// no-op once the session is marked applied.
	ApplySession(ctx context.Context, sessionID int64) error
	Top(ctx context.Context, limit int) ([]*models.LeaderboardEntry, error)
	// Rank is (count of users with strictly greater best score) + 1,
	// nil when the user has no entry.
	Rank(ctx context.Context, userID int) (*int, error)
	ByUser(ctx context.Context, userID int) (*models.LeaderboardEntry, error)
}

type leaderboardRepository struct {
	DB *sql.DB
}

func NewLeaderboardRepository(db *sql.DB) LeaderboardRepository {
	return &leaderboardRepository{DB: db}
}

func (r *leaderboardRepository) ApplySession(ctx context.Context, sessionID int64) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	// Lock the session row so two concurrent retries cannot both fold it in.
	var userID int
	var score, playtime int64
	err = tx.QueryRowContext(ctx, `
		SELECT user_id, score, COALESCE(duration_seconds, 0)
		FROM game_sessions
		WHERE id=$1 AND status='completed' AND leaderboard_applied=FALSE
		FOR UPDATE
	`, sessionID).Scan(&userID, &score, &playtime)
	if errors.Is(err, sql.ErrNoRows) {
		// already applied, or not a completed session: nothing to do
		return nil
	}
	if err != nil {
		return err
	}

	// Atomic upsert with server-side max/increment expressions. A plain
	// read-modify-write here loses updates under concurrent session ends.
	_, err = tx.ExecContext(ctx, `
		INSERT INTO leaderboard (user_id, username, best_score, total_games, total_playtime, last_played, updated_at)
		SELECT u.id, u.username, $2, 1, $3, NOW(), NOW()
		FROM users u WHERE u.id = $1
		ON CONFLICT (user_id) DO UPDATE SET
			best_score     = GREATEST(leaderboard.best_score, EXCLUDED.best_score),
			total_games    = leaderboard.total_games + 1,
			total_playtime = leaderboard.total_playtime + EXCLUDED.total_playtime,
			username       = EXCLUDED.username,
			last_played    = NOW(),
			updated_at     = NOW()
	`, userID, score, playtime)
	if err != nil {
		return err
	}

	if _, err = tx.ExecContext(ctx,
		`UPDATE game_sessions SET leaderboard_applied=TRUE WHERE id=$1`, sessionID); err != nil {
		return err
	}
	return tx.Commit()
}

func (r *leaderboardRepository) Top(ctx context.Context, limit int) ([]*models.LeaderboardEntry, error) {
	const q = `
		SELECT user_id, username, best_score, total_games, total_playtime, last_played
		FROM leaderboard
		ORDER BY best_score DESC, user_id
		LIMIT $1
	`
	rows, err := r.DB.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*models.LeaderboardEntry
	for rows.Next() {
		e := &models.LeaderboardEntry{}
		var lastPlayed sql.NullTime
		if err := rows.Scan(
			&e.UserID, &e.Username, &e.BestScore, &e.TotalGames, &e.TotalPlaytime, &lastPlayed,
		); err != nil {
			return nil, err
		}
		if lastPlayed.Valid {
			t := lastPlayed.Time
			e.LastPlayed = &t
		}
		e.Rank = len(entries) + 1 // dense rank by position in the page
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (r *leaderboardRepository) Rank(ctx context.Context, userID int) (*int, error) {
	const q = `
		SELECT (SELECT COUNT(*) FROM leaderboard WHERE best_score > l.best_score) + 1
		FROM leaderboard l
		WHERE l.user_id = $1
	`
	var rank int
	err := r.DB.QueryRowContext(ctx, q, userID).Scan(&rank)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rank, nil
}

func (r *leaderboardRepository) ByUser(ctx context.Context, userID int) (*models.LeaderboardEntry, error) {
	const q = `
		SELECT user_id, username, best_score, total_games, total_playtime, last_played
		FROM leaderboard
		WHERE user_id = $1
	`
	e := &models.LeaderboardEntry{}
	var lastPlayed sql.NullTime
	err := r.DB.QueryRowContext(ctx, q, userID).Scan(
		&e.UserID, &e.Username, &e.BestScore, &e.TotalGames, &e.TotalPlaytime, &lastPlayed,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if lastPlayed.Valid {
		t := lastPlayed.Time
		e.LastPlayed = &t
	}
	return e, nil
}
