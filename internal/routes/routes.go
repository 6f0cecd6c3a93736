package routes

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"racingplate/internal/handlers"
	"racingplate/internal/middleware"
	"racingplate/internal/services"
)

func SetupRoutes(
	r *gin.Engine,
	authHandler *handlers.AuthHandler,
	gameHandler *handlers.GameHandler,
	mediaHandler *handlers.MediaHandler,
	authService services.AuthService,
	users middleware.UserLookup,
) *gin.Engine {

	r.GET("/api/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "OK", "time": time.Now().UTC().Format(time.RFC3339)})
	})

	// ---- auth (public)
	auth := r.Group("/api/auth")
	{
		auth.POST("/signup", authHandler.Signup)
		auth.POST("/register", authHandler.Signup) // alias kept for older clients
		auth.POST("/login", authHandler.Login)
		auth.POST("/verify-email", authHandler.VerifyEmail)
		auth.POST("/resend-code", authHandler.ResendCode)
		auth.POST("/forgot-password", authHandler.ForgotPassword)
		auth.POST("/reset-password", authHandler.ResetPassword)
	}

	// ---- game
	game := r.Group("/api/game")
	game.GET("/leaderboard", gameHandler.Leaderboard)

	gameAuth := game.Group("",
		middleware.RequireAuth(authService, users),
		middleware.RequireVerified(),
	)
	{
		gameAuth.POST("/session/start", gameHandler.StartSession)
		gameAuth.POST("/session/end", gameHandler.EndSession)
		gameAuth.POST("/session/abandon", gameHandler.AbandonSession)
		gameAuth.GET("/stats", gameHandler.Stats)
		gameAuth.GET("/personal-bests", gameHandler.PersonalBests)
		gameAuth.GET("/rank", gameHandler.Rank)
	}

	// ---- media (auth optional)
	media := r.Group("/api/media", middleware.OptionalAuth(authService, users))
	{
		media.POST("/upload", mediaHandler.Upload)
		media.GET("/list", mediaHandler.List)
	}
	r.GET("/media/:prefix/:filename", mediaHandler.Serve)

	return r
}
