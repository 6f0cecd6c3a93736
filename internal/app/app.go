package app

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "racingplate/docs"
	"racingplate/internal/config"
	"racingplate/internal/db"
	"racingplate/internal/handlers"
	"racingplate/internal/ratelimit"
	"racingplate/internal/repositories"
	"racingplate/internal/routes"
	"racingplate/internal/services"
	"racingplate/internal/storage"
)

const (
	authAttemptLimit  = 5
	authAttemptWindow = 15 * time.Minute
	sweepPeriod       = 30 * time.Second
	cleanupPeriod     = 10 * time.Minute
)

func Run() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("configuration error: ", err)
	}

	if cfg.Server.Mode == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// === DB ===
	conn, err := db.Open(ctx, cfg.Database.DSN)
	if err != nil {
		log.Fatal("database connection error: ", err)
	}
	defer func() {
		if err := conn.Close(); err != nil {
			log.Printf("database close error: %v", err)
		}
	}()
	if err := db.Migrate(conn); err != nil {
		log.Fatal("migration error: ", err)
	}

	// === Media storage ===
	var mediaStore storage.Storage
	switch cfg.Media.Backend {
	case "minio":
		minioStore, err := storage.NewMinioStorage(cfg.Minio)
		if err != nil {
			log.Fatal("minio storage error: ", err)
		}
		if err := minioStore.EnsureBucket(ctx); err != nil {
			log.Fatal("minio bucket error: ", err)
		}
		mediaStore = minioStore
	default:
		diskStore, err := storage.NewDiskStorage(cfg.Media.RootDir)
		if err != nil {
			log.Fatal("media storage error: ", err)
		}
		mediaStore = diskStore
	}

	// === Repos ===
	userRepo := repositories.NewUserRepository(conn)
	verificationRepo := repositories.NewVerificationRepository(conn)
	sessionRepo := repositories.NewSessionRepository(conn)
	leaderboardRepo := repositories.NewLeaderboardRepository(conn)
	mediaRepo := repositories.NewMediaRepository(conn)

	// === Services ===
	authService := services.NewAuthService(cfg.Auth.JWTSecret, cfg.TokenTTL())
	emailService := services.NewEmailService(cfg.Email)
	verificationService := services.NewVerificationService(verificationRepo)
	userService := services.NewUserService(userRepo, verificationService, emailService, authService)
	gameService := services.NewGameService(sessionRepo, leaderboardRepo)
	mediaService := services.NewMediaService(mediaRepo, mediaStore)

	// retries completed sessions whose leaderboard fold failed
	go gameService.RunSweeper(ctx, sweepPeriod)
	// reaps expired verification codes nobody consumed
	go verificationService.RunCleanup(ctx, cleanupPeriod)

	// === Handlers ===
	limiter := ratelimit.New(authAttemptLimit, authAttemptWindow)
	// reclaims attempt counters once their window has passed
	go limiter.Run(ctx, authAttemptWindow)
	authHandler := handlers.NewAuthHandler(userService, limiter)
	gameHandler := handlers.NewGameHandler(gameService)
	mediaHandler := handlers.NewMediaHandler(mediaService, mediaStore)

	if err := handlers.RegisterValidators(); err != nil {
		log.Fatal("validator registration error: ", err)
	}

	// === Gin ===
	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(corsMiddleware())

	// Swagger
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	routes.SetupRoutes(
		router,
		authHandler,
		gameHandler,
		mediaHandler,
		authService,
		userService,
	)

	// === Run ===
	listenAddr := fmt.Sprintf(":%d", cfg.Server.Port)
	log.Printf("server listening on %s", listenAddr)
	if err := router.Run(listenAddr); err != nil {
		log.Fatal("server error: ", err)
	}
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Authorization")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	}
}
