package services

import (
	"context"
	"errors"
	"log"
	"time"

	"racingplate/internal/models"
	"racingplate/internal/repositories"
)

const (
	defaultDifficulty  = "medium"
	defaultTopLimit    = 10
	maxTopLimit        = 100
	sweepBatchSize     = 50
	defaultSweepPeriod = 30 * time.Second
)

var ErrSessionNotFound = errors.New("game session not found")

type GameService interface {
	StartSession(ctx context.Context, userID int, gameMode, difficulty string) (*models.GameSession, error)
	// EndSession completes the session and folds it into the leaderboard.
	// The two writes are not atomic: if the fold fails the session stays
	// completed-but-unapplied and the sweeper retries it.
	EndSession(ctx context.Context, userID int, sessionID, score int64) (*models.GameSession, error)
	AbandonSession(ctx context.Context, userID int, sessionID int64) error
	Leaderboard(ctx context.Context, limit int) ([]*models.LeaderboardEntry, error)
	UserRank(ctx context.Context, userID int) (*int, error)
	UserStats(ctx context.Context, userID int) (*models.UserStats, error)
	PersonalBests(ctx context.Context, userID int) (*models.LeaderboardEntry, error)
	// RunSweeper retries unapplied session->leaderboard folds until ctx ends.
	RunSweeper(ctx context.Context, period time.Duration)
}

type gameService struct {
	sessions    repositories.SessionRepository
	leaderboard repositories.LeaderboardRepository
	now         func() time.Time
}

func NewGameService(sessions repositories.SessionRepository, leaderboard repositories.LeaderboardRepository) GameService {
	return &gameService{
		sessions:    sessions,
		leaderboard: leaderboard,
		now:         time.Now,
	}
}

func (s *gameService) StartSession(ctx context.Context, userID int, gameMode, difficulty string) (*models.GameSession, error) {
	if difficulty == "" {
		difficulty = defaultDifficulty
	}
	session := &models.GameSession{
		UserID:     userID,
		GameMode:   gameMode,
		Difficulty: difficulty,
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

func (s *gameService) EndSession(ctx context.Context, userID int, sessionID, score int64) (*models.GameSession, error) {
	session, err := s.sessions.Complete(ctx, sessionID, userID, score, s.now())
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}

	// At-least-once: the session is valid even if the fold fails here.
	if err := s.leaderboard.ApplySession(ctx, session.ID); err != nil {
		log.Printf("[game][end] leaderboard apply failed for session=%d, left for retry: %v", session.ID, err)
	}
	return session, nil
}

func (s *gameService) AbandonSession(ctx context.Context, userID int, sessionID int64) error {
	err := s.sessions.Abandon(ctx, sessionID, userID, s.now())
	if errors.Is(err, repositories.ErrNotFound) {
		return ErrSessionNotFound
	}
	return err
}

func (s *gameService) Leaderboard(ctx context.Context, limit int) ([]*models.LeaderboardEntry, error) {
	if limit <= 0 {
		limit = defaultTopLimit
	}
	if limit > maxTopLimit {
		limit = maxTopLimit
	}
	return s.leaderboard.Top(ctx, limit)
}

func (s *gameService) UserRank(ctx context.Context, userID int) (*int, error) {
	return s.leaderboard.Rank(ctx, userID)
}

func (s *gameService) UserStats(ctx context.Context, userID int) (*models.UserStats, error) {
	return s.sessions.Stats(ctx, userID)
}

func (s *gameService) PersonalBests(ctx context.Context, userID int) (*models.LeaderboardEntry, error) {
	entry, err := s.leaderboard.ByUser(ctx, userID)
	if errors.Is(err, repositories.ErrNotFound) {
		// first-session-pending users simply have an empty summary
		return &models.LeaderboardEntry{UserID: userID}, nil
	}
	return entry, err
}

func (s *gameService) RunSweeper(ctx context.Context, period time.Duration) {
	if period <= 0 {
		period = defaultSweepPeriod
	}
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweepOnce(ctx)
		}
	}
}

func (s *gameService) sweepOnce(ctx context.Context) {
	ids, err := s.sessions.UnappliedCompleted(ctx, sweepBatchSize)
	if err != nil {
		log.Printf("[game][sweeper] list unapplied sessions: %v", err)
		return
	}
	for _, id := range ids {
		if err := s.leaderboard.ApplySession(ctx, id); err != nil {
			log.Printf("[game][sweeper] retry apply session=%d: %v", id, err)
		}
	}
}
