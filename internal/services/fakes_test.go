package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"racingplate/internal/models"
	"racingplate/internal/repositories"
)

// In-memory repository fakes mirroring the SQL implementations' semantics,
// including the atomic leaderboard fold.

type fakeUserRepo struct {
	mu    sync.Mutex
	seq   int
	users map[int]*models.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[int]*models.User)}
}

func (r *fakeUserRepo) Create(ctx context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if strings.EqualFold(u.Email, user.Email) {
			return repositories.ErrDuplicate
		}
	}
	r.seq++
	user.ID = r.seq
	user.CreatedAt = time.Now()
	cp := *user
	r.users[user.ID] = &cp
	return nil
}

func (r *fakeUserRepo) GetByID(ctx context.Context, id int) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if strings.EqualFold(u.Email, email) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (r *fakeUserRepo) UpdatePassword(ctx context.Context, userID int, passwordHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[userID]
	if !ok {
		return repositories.ErrNotFound
	}
	u.PasswordHash = passwordHash
	return nil
}

func (r *fakeUserRepo) MarkVerified(ctx context.Context, userID int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[userID]
	if !ok {
		return repositories.ErrNotFound
	}
	now := time.Now()
	u.IsVerified = true
	u.VerifiedAt = &now
	return nil
}

type fakeVerificationRepo struct {
	mu   sync.Mutex
	seq  int64
	recs map[string]*models.VerificationCode // keyed email|purpose
}

func newFakeVerificationRepo() *fakeVerificationRepo {
	return &fakeVerificationRepo{recs: make(map[string]*models.VerificationCode)}
}

func vkey(email, purpose string) string { return email + "|" + purpose }

func (r *fakeVerificationRepo) Upsert(ctx context.Context, code *models.VerificationCode) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	code.ID = r.seq
	cp := *code
	r.recs[vkey(code.Email, code.Purpose)] = &cp
	return nil
}

func (r *fakeVerificationRepo) Get(ctx context.Context, email, purpose string) (*models.VerificationCode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.recs[vkey(email, purpose)]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	cp := *rec
	return &cp, nil
}

func (r *fakeVerificationRepo) Delete(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for k, rec := range r.recs {
		if rec.ID == id {
			delete(r.recs, k)
		}
	}
	return nil
}

func (r *fakeVerificationRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for k, rec := range r.recs {
		if rec.ExpiresAt.Before(now) {
			delete(r.recs, k)
			n++
		}
	}
	return n, nil
}

type fakeEmailService struct {
	mu    sync.Mutex
	sent  []string // "verify:<email>" / "reset:<email>"
	fail  bool
	codes map[string]string // last code per email
}

func newFakeEmailService() *fakeEmailService {
	return &fakeEmailService{codes: make(map[string]string)}
}

func (s *fakeEmailService) record(kind, email, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return fmt.Errorf("%w: smtp unreachable", ErrDeliveryFailed)
	}
	s.sent = append(s.sent, kind+":"+email)
	s.codes[email] = code
	return nil
}

func (s *fakeEmailService) SendVerificationEmail(email, code string) error {
	return s.record("verify", email, code)
}

func (s *fakeEmailService) SendPasswordResetEmail(email, code string) error {
	return s.record("reset", email, code)
}

func (s *fakeEmailService) lastCode(email string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.codes[email]
}

type fakeSessionRepo struct {
	mu       sync.Mutex
	seq      int64
	sessions map[int64]*models.GameSession
	users    *fakeUserRepo
}

func newFakeSessionRepo(users *fakeUserRepo) *fakeSessionRepo {
	return &fakeSessionRepo{sessions: make(map[int64]*models.GameSession), users: users}
}

func (r *fakeSessionRepo) Create(ctx context.Context, s *models.GameSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	s.ID = r.seq
	s.StartTime = time.Now()
	s.Status = models.SessionActive
	cp := *s
	r.sessions[s.ID] = &cp
	return nil
}

func (r *fakeSessionRepo) GetByID(ctx context.Context, id int64) (*models.GameSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (r *fakeSessionRepo) Complete(ctx context.Context, id int64, userID int, score int64, endTime time.Time) (*models.GameSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok || s.UserID != userID || s.Status != models.SessionActive {
		return nil, repositories.ErrNotFound
	}
	s.Status = models.SessionCompleted
	s.Score = score
	t := endTime
	s.EndTime = &t
	d := int64(endTime.Sub(s.StartTime).Seconds())
	if d < 0 {
		d = 0
	}
	s.DurationSeconds = &d
	cp := *s
	return &cp, nil
}

func (r *fakeSessionRepo) Abandon(ctx context.Context, id int64, userID int, endTime time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok || s.UserID != userID || s.Status != models.SessionActive {
		return repositories.ErrNotFound
	}
	s.Status = models.SessionAbandoned
	t := endTime
	s.EndTime = &t
	return nil
}

func (r *fakeSessionRepo) Stats(ctx context.Context, userID int) (*models.UserStats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	st := &models.UserStats{}
	for _, s := range r.sessions {
		if s.UserID != userID || s.Status != models.SessionCompleted {
			continue
		}
		st.TotalGames++
		st.TotalScore += s.Score
		if s.Score > st.BestScore {
			st.BestScore = s.Score
		}
		if s.DurationSeconds != nil {
			st.TotalPlaytime += *s.DurationSeconds
		}
	}
	if st.TotalGames > 0 {
		st.AverageScore = float64(st.TotalScore) / float64(st.TotalGames)
	}
	return st, nil
}

func (r *fakeSessionRepo) UnappliedCompleted(ctx context.Context, limit int) ([]int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var ids []int64
	for id, s := range r.sessions {
		if s.Status == models.SessionCompleted && !s.LeaderboardApplied {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	if len(ids) > limit {
		ids = ids[:limit]
	}
	return ids, nil
}

// fakeLeaderboardRepo reproduces the SQL fold: idempotent per session,
// atomic under its lock, server-side max/increment semantics.
type fakeLeaderboardRepo struct {
	mu       sync.Mutex
	entries  map[int]*models.LeaderboardEntry
	sessions *fakeSessionRepo
	failNext bool
}

func newFakeLeaderboardRepo(sessions *fakeSessionRepo) *fakeLeaderboardRepo {
	return &fakeLeaderboardRepo{entries: make(map[int]*models.LeaderboardEntry), sessions: sessions}
}

func (r *fakeLeaderboardRepo) ApplySession(ctx context.Context, sessionID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failNext {
		r.failNext = false
		return fmt.Errorf("storage unavailable")
	}

	r.sessions.mu.Lock()
	defer r.sessions.mu.Unlock()
	s, ok := r.sessions.sessions[sessionID]
	if !ok || s.Status != models.SessionCompleted || s.LeaderboardApplied {
		return nil
	}

	var playtime int64
	if s.DurationSeconds != nil {
		playtime = *s.DurationSeconds
	}
	now := time.Now()
	e, ok := r.entries[s.UserID]
	if !ok {
		var username string
		if u, found := r.sessions.users.users[s.UserID]; found {
			username = u.Username
		}
		e = &models.LeaderboardEntry{UserID: s.UserID, Username: username}
		r.entries[s.UserID] = e
	}
	if s.Score > e.BestScore || e.TotalGames == 0 {
		e.BestScore = s.Score
	}
	e.TotalGames++
	e.TotalPlaytime += playtime
	e.LastPlayed = &now
	s.LeaderboardApplied = true
	return nil
}

func (r *fakeLeaderboardRepo) sorted() []*models.LeaderboardEntry {
	var all []*models.LeaderboardEntry
	for _, e := range r.entries {
		cp := *e
		all = append(all, &cp)
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].BestScore != all[j].BestScore {
			return all[i].BestScore > all[j].BestScore
		}
		return all[i].UserID < all[j].UserID
	})
	return all
}

func (r *fakeLeaderboardRepo) Top(ctx context.Context, limit int) ([]*models.LeaderboardEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	all := r.sorted()
	if len(all) > limit {
		all = all[:limit]
	}
	for i, e := range all {
		e.Rank = i + 1
	}
	return all, nil
}

func (r *fakeLeaderboardRepo) Rank(ctx context.Context, userID int) (*int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[userID]
	if !ok {
		return nil, nil
	}
	rank := 1
	for _, other := range r.entries {
		if other.BestScore > e.BestScore {
			rank++
		}
	}
	return &rank, nil
}

func (r *fakeLeaderboardRepo) ByUser(ctx context.Context, userID int) (*models.LeaderboardEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[userID]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	cp := *e
	return &cp, nil
}
