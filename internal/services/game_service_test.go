package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"racingplate/internal/models"
)

type gameFixture struct {
	svc      *gameService
	users    *fakeUserRepo
	sessions *fakeSessionRepo
	board    *fakeLeaderboardRepo
}

func newGameFixture() *gameFixture {
	users := newFakeUserRepo()
	sessions := newFakeSessionRepo(users)
	board := newFakeLeaderboardRepo(sessions)
	return &gameFixture{
		svc:      &gameService{sessions: sessions, leaderboard: board, now: time.Now},
		users:    users,
		sessions: sessions,
		board:    board,
	}
}

func (f *gameFixture) addUser(t *testing.T, username string) int {
	t.Helper()
	u := &models.User{Email: username + "@example.com", Username: username, PasswordHash: "x"}
	require.NoError(t, f.users.Create(context.Background(), u))
	return u.ID
}

func (f *gameFixture) playSession(t *testing.T, userID int, score int64) {
	t.Helper()
	ctx := context.Background()
	s, err := f.svc.StartSession(ctx, userID, "race", "")
	require.NoError(t, err)
	_, err = f.svc.EndSession(ctx, userID, s.ID, score)
	require.NoError(t, err)
}

func TestStartSession_Defaults(t *testing.T) {
	f := newGameFixture()
	userID := f.addUser(t, "alice")

	s, err := f.svc.StartSession(context.Background(), userID, "race", "")
	require.NoError(t, err)
	assert.Equal(t, models.SessionActive, s.Status)
	assert.Equal(t, "medium", s.Difficulty)
	assert.NotZero(t, s.ID)
	assert.False(t, s.StartTime.IsZero())
}

func TestEndSession_UnknownOrForeign(t *testing.T) {
	f := newGameFixture()
	ctx := context.Background()
	alice := f.addUser(t, "alice")
	bob := f.addUser(t, "bob")

	s, err := f.svc.StartSession(ctx, alice, "race", "easy")
	require.NoError(t, err)

	_, err = f.svc.EndSession(ctx, bob, s.ID, 10)
	assert.ErrorIs(t, err, ErrSessionNotFound)

	_, err = f.svc.EndSession(ctx, alice, 9999, 10)
	assert.ErrorIs(t, err, ErrSessionNotFound)

	// ending twice: second call sees no active session
	_, err = f.svc.EndSession(ctx, alice, s.ID, 10)
	require.NoError(t, err)
	_, err = f.svc.EndSession(ctx, alice, s.ID, 10)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestLeaderboard_BestScoreFold(t *testing.T) {
	f := newGameFixture()
	ctx := context.Background()
	alice := f.addUser(t, "alice")

	for _, score := range []int64{50, 120, 80} {
		f.playSession(t, alice, score)
	}

	entry, err := f.svc.PersonalBests(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, int64(120), entry.BestScore)
	assert.Equal(t, int64(3), entry.TotalGames)
	assert.Equal(t, "alice", entry.Username)
}

func TestLeaderboard_ConcurrentEnds(t *testing.T) {
	f := newGameFixture()
	ctx := context.Background()
	alice := f.addUser(t, "alice")

	const n = 16
	scores := make([]int64, n)
	ids := make([]int64, n)
	var max int64
	for i := range scores {
		scores[i] = int64((i*37)%200 + 1)
		if scores[i] > max {
			max = scores[i]
		}
		s, err := f.svc.StartSession(ctx, alice, "race", "hard")
		require.NoError(t, err)
		ids[i] = s.ID
	}

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := f.svc.EndSession(ctx, alice, ids[i], scores[i])
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	entry, err := f.svc.PersonalBests(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, max, entry.BestScore, "best score must be the max regardless of arrival order")
	assert.Equal(t, int64(n), entry.TotalGames)
}

func TestRankConsistentWithTop(t *testing.T) {
	f := newGameFixture()
	ctx := context.Background()

	users := map[string]int64{"alice": 300, "bob": 200, "carol": 100}
	for name, score := range users {
		f.playSession(t, f.addUser(t, name), score)
	}

	top, err := f.svc.Leaderboard(ctx, 10)
	require.NoError(t, err)
	require.Len(t, top, 3)

	for pos, entry := range top {
		rank, err := f.svc.UserRank(ctx, entry.UserID)
		require.NoError(t, err)
		require.NotNil(t, rank)
		assert.Equal(t, pos+1, *rank)
		assert.Equal(t, pos+1, entry.Rank)
	}

	// a user with no completed sessions has no rank
	ghost := f.addUser(t, "ghost")
	rank, err := f.svc.UserRank(ctx, ghost)
	require.NoError(t, err)
	assert.Nil(t, rank)
}

func TestLeaderboard_LimitPage(t *testing.T) {
	f := newGameFixture()
	ctx := context.Background()

	for name, score := range map[string]int64{"alice": 300, "bob": 200, "carol": 100} {
		f.playSession(t, f.addUser(t, name), score)
	}

	top, err := f.svc.Leaderboard(ctx, 2)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, 1, top[0].Rank)
	assert.Equal(t, 2, top[1].Rank)
	assert.GreaterOrEqual(t, top[0].BestScore, top[1].BestScore)
}

func TestStatsAgreeWithLeaderboard(t *testing.T) {
	f := newGameFixture()
	ctx := context.Background()
	alice := f.addUser(t, "alice")

	for _, score := range []int64{50, 120, 80} {
		f.playSession(t, alice, score)
	}

	stats, err := f.svc.UserStats(ctx, alice)
	require.NoError(t, err)
	entry, err := f.svc.PersonalBests(ctx, alice)
	require.NoError(t, err)

	// the session-row read path and the summary row must agree
	assert.Equal(t, entry.BestScore, stats.BestScore)
	assert.Equal(t, entry.TotalGames, stats.TotalGames)
	assert.Equal(t, entry.TotalPlaytime, stats.TotalPlaytime)
	assert.InDelta(t, float64(50+120+80)/3.0, stats.AverageScore, 0.001)
}

func TestAbandonedSessionsDontScore(t *testing.T) {
	f := newGameFixture()
	ctx := context.Background()
	alice := f.addUser(t, "alice")

	s, err := f.svc.StartSession(ctx, alice, "race", "")
	require.NoError(t, err)
	require.NoError(t, f.svc.AbandonSession(ctx, alice, s.ID))

	stats, err := f.svc.UserStats(ctx, alice)
	require.NoError(t, err)
	assert.Zero(t, stats.TotalGames)

	rank, err := f.svc.UserRank(ctx, alice)
	require.NoError(t, err)
	assert.Nil(t, rank)

	// an abandoned session cannot be ended
	_, err = f.svc.EndSession(ctx, alice, s.ID, 10)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestSweeperRetriesFailedFold(t *testing.T) {
	f := newGameFixture()
	ctx := context.Background()
	alice := f.addUser(t, "alice")

	s, err := f.svc.StartSession(ctx, alice, "race", "")
	require.NoError(t, err)

	// first fold fails; the session still completes
	f.board.failNext = true
	ended, err := f.svc.EndSession(ctx, alice, s.ID, 90)
	require.NoError(t, err)
	assert.Equal(t, models.SessionCompleted, ended.Status)

	_, err = f.svc.PersonalBests(ctx, alice)
	require.NoError(t, err)
	rank, err := f.svc.UserRank(ctx, alice)
	require.NoError(t, err)
	assert.Nil(t, rank, "fold failed, no leaderboard entry yet")

	// the sweeper picks it up
	f.svc.sweepOnce(ctx)

	entry, err := f.svc.PersonalBests(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, int64(90), entry.BestScore)
	assert.Equal(t, int64(1), entry.TotalGames)

	// replaying the sweep must not double-count
	f.svc.sweepOnce(ctx)
	entry, err = f.svc.PersonalBests(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, int64(1), entry.TotalGames)
}

func TestEndSession_DurationDerivedFromTimestamps(t *testing.T) {
	f := newGameFixture()
	ctx := context.Background()
	alice := f.addUser(t, "alice")

	s, err := f.svc.StartSession(ctx, alice, "race", "")
	require.NoError(t, err)

	f.svc.now = func() time.Time { return s.StartTime.Add(90 * time.Second) }
	ended, err := f.svc.EndSession(ctx, alice, s.ID, 10)
	require.NoError(t, err)
	require.NotNil(t, ended.DurationSeconds)
	assert.Equal(t, int64(90), *ended.DurationSeconds)
}
