package models

import "time"

// LeaderboardEntry is the per-user running summary. One row per user,
// global across game modes; per-mode breakdowns derive from session rows.
type LeaderboardEntry struct {
	UserID        int        `json:"user_id"`
	Username      string     `json:"username"`
	BestScore     int64      `json:"score"`
	TotalGames    int64      `json:"total_games"`
	TotalPlaytime int64      `json:"total_playtime"`
	LastPlayed    *time.Time `json:"last_played,omitempty"`
	Rank          int        `json:"rank,omitempty"` // assigned by position on read, not stored
}
