package models

import "time"

const (
	SessionActive    = "active"
	SessionCompleted = "completed"
	SessionAbandoned = "abandoned"
)

type GameSession struct {
	ID                 int64      `json:"id"`
	UserID             int        `json:"user_id"`
	GameMode           string     `json:"game_mode"`
	Difficulty         string     `json:"difficulty"`
	StartTime          time.Time  `json:"start_time"`
	EndTime            *time.Time `json:"end_time,omitempty"`
	DurationSeconds    *int64     `json:"duration,omitempty"`
	Score              int64      `json:"score"`
	Status             string     `json:"status"`
	LeaderboardApplied bool       `json:"-"`
}

type StartSessionRequest struct {
	GameMode   string `json:"gameMode" binding:"required"`
	Difficulty string `json:"difficulty" binding:"omitempty,oneof=easy medium hard"`
}

type EndSessionRequest struct {
	SessionID int64 `json:"sessionId" binding:"required"`
	Score     int64 `json:"score" binding:"min=0"`
	// accepted for compatibility with older clients; the server derives
	// duration from start/end timestamps
	Duration int64 `json:"duration" binding:"omitempty,min=0"`
}

type AbandonSessionRequest struct {
	SessionID int64 `json:"sessionId" binding:"required"`
}

// UserStats is aggregated over completed session rows, not the leaderboard table.
type UserStats struct {
	TotalGames    int64   `json:"total_games"`
	TotalScore    int64   `json:"total_score"`
	AverageScore  float64 `json:"average_score"`
	BestScore     int64   `json:"best_score"`
	TotalPlaytime int64   `json:"total_playtime"`
}
