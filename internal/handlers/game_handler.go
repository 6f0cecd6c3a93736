package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"racingplate/internal/middleware"
	"racingplate/internal/models"
	"racingplate/internal/services"
)

type GameHandler struct {
	games services.GameService
}

func NewGameHandler(games services.GameService) *GameHandler {
	return &GameHandler{games: games}
}

// @Summary      Start a game session
// @Tags         Game
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        start  body      models.StartSessionRequest  true  "Game mode and difficulty"
// @Success      200    {object}  map[string]interface{}
// @Failure      401    {object}  map[string]string
// @Router       /api/game/session/start [post]
func (h *GameHandler) StartSession(c *gin.Context) {
	user, _ := middleware.CurrentUser(c)

	var req models.StartSessionRequest
	if !bindJSON(c, &req) {
		return
	}

	session, err := h.games.StartSession(c.Request.Context(), user.ID, req.GameMode, req.Difficulty)
	if err != nil {
		serverError(c, "game.start", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":   "Game session started",
		"sessionId": session.ID,
		"startTime": session.StartTime,
	})
}

// @Summary      End a game session
// @Description  Completes the session and folds the score into the leaderboard
// @Tags         Game
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        end  body      models.EndSessionRequest  true  "Session id and score"
// @Success      200  {object}  map[string]interface{}
// @Failure      404  {object}  map[string]string
// @Router       /api/game/session/end [post]
func (h *GameHandler) EndSession(c *gin.Context) {
	user, _ := middleware.CurrentUser(c)

	var req models.EndSessionRequest
	if !bindJSON(c, &req) {
		return
	}

	session, err := h.games.EndSession(c.Request.Context(), user.ID, req.SessionID, req.Score)
	if err != nil {
		if errors.Is(err, services.ErrSessionNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Game session not found"})
			return
		}
		serverError(c, "game.end", err)
		return
	}

	var duration int64
	if session.DurationSeconds != nil {
		duration = *session.DurationSeconds
	}
	c.JSON(http.StatusOK, gin.H{
		"message":    "Game session ended",
		"sessionId":  session.ID,
		"finalScore": session.Score,
		"duration":   duration,
	})
}

// @Summary      Abandon a game session
// @Tags         Game
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        abandon  body      models.AbandonSessionRequest  true  "Session id"
// @Success      200      {object}  map[string]string
// @Failure      404      {object}  map[string]string
// @Router       /api/game/session/abandon [post]
func (h *GameHandler) AbandonSession(c *gin.Context) {
	user, _ := middleware.CurrentUser(c)

	var req models.AbandonSessionRequest
	if !bindJSON(c, &req) {
		return
	}

	if err := h.games.AbandonSession(c.Request.Context(), user.ID, req.SessionID); err != nil {
		if errors.Is(err, services.ErrSessionNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Game session not found"})
			return
		}
		serverError(c, "game.abandon", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Game session abandoned"})
}

// @Summary      Leaderboard top scores
// @Tags         Game
// @Produce      json
// @Param        limit  query     int  false  "Page size (default 10, max 100)"
// @Success      200    {object}  map[string]interface{}
// @Router       /api/game/leaderboard [get]
func (h *GameHandler) Leaderboard(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))

	entries, err := h.games.Leaderboard(c.Request.Context(), limit)
	if err != nil {
		serverError(c, "game.leaderboard", err)
		return
	}
	if entries == nil {
		entries = []*models.LeaderboardEntry{}
	}
	c.JSON(http.StatusOK, gin.H{
		"message":     "Leaderboard retrieved",
		"leaderboard": entries,
	})
}

// @Summary      Aggregate stats for the current user
// @Description  Computed over completed session rows, not the leaderboard table
// @Tags         Game
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  map[string]interface{}
// @Router       /api/game/stats [get]
func (h *GameHandler) Stats(c *gin.Context) {
	user, _ := middleware.CurrentUser(c)

	stats, err := h.games.UserStats(c.Request.Context(), user.ID)
	if err != nil {
		serverError(c, "game.stats", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"stats": stats})
}

// @Summary      Personal bests for the current user
// @Tags         Game
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  map[string]interface{}
// @Router       /api/game/personal-bests [get]
func (h *GameHandler) PersonalBests(c *gin.Context) {
	user, _ := middleware.CurrentUser(c)

	entry, err := h.games.PersonalBests(c.Request.Context(), user.ID)
	if err != nil {
		serverError(c, "game.personal-bests", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"personalBests": entry})
}

// @Summary      Leaderboard rank for the current user
// @Tags         Game
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  map[string]interface{}
// @Router       /api/game/rank [get]
func (h *GameHandler) Rank(c *gin.Context) {
	user, _ := middleware.CurrentUser(c)

	rank, err := h.games.UserRank(c.Request.Context(), user.ID)
	if err != nil {
		serverError(c, "game.rank", err)
		return
	}
	// rank is null until the user has a leaderboard entry
	c.JSON(http.StatusOK, gin.H{"rank": rank})
}
