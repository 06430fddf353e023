package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/yourusername/studyhub-api/internal/config"
	"github.com/yourusername/studyhub-api/internal/handler"
	"github.com/yourusername/studyhub-api/internal/handler/helper"
	"github.com/yourusername/studyhub-api/internal/middleware"
	pgRepo "github.com/yourusername/studyhub-api/internal/repository/postgres"
	redisRepo "github.com/yourusername/studyhub-api/internal/repository/redis"
	"github.com/yourusername/studyhub-api/internal/service"
	"github.com/yourusername/studyhub-api/internal/service/liveavatar"
	"github.com/yourusername/studyhub-api/internal/service/practice"
	ws "github.com/yourusername/studyhub-api/internal/websocket"
	"github.com/yourusername/studyhub-api/pkg/auth"
	"github.com/yourusername/studyhub-api/pkg/avatarapi"
	"github.com/yourusername/studyhub-api/pkg/database"
	"github.com/yourusername/studyhub-api/pkg/llm"
	"github.com/yourusername/studyhub-api/pkg/logger"
	"github.com/yourusername/studyhub-api/pkg/storage"
	"github.com/yourusername/studyhub-api/pkg/telemetry"
)

func main() {
	// .env нужен только локально
	_ = godotenv.Load()

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config/config.yaml"
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		// Логгер еще не создан
		_, _ = os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}

	log, err := logger.New(cfg.Log.Mode)
	if err != nil {
		_, _ = os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(1)
	}
	defer log.Sync()
	log.Info("config loaded", "path", configPath)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownTelemetry := telemetry.Init(ctx, log, cfg.Telemetry)

	// PostgreSQL + миграции
	db, err := database.NewPostgresDB(cfg.Database.PostgresConnectionString())
	if err != nil {
		log.Fatal("failed to connect to database", "error", err)
	}
	if err := database.MigrateDB(db, cfg.Database.MigrationsPath, log); err != nil {
		log.Fatal("failed to migrate database", "error", err)
	}

	redisClient, err := database.NewUniversalRedisClient(ctx, cfg.Redis)
	if err != nil {
		log.Fatal("failed to connect to redis", "error", err)
	}
	log.Info("connected to redis", "mode", cfg.Redis.Mode)

	// Репозитории
	contentRepo := pgRepo.NewContentRepo(db)
	flashcardRepo := pgRepo.NewFlashcardRepo(db)
	packRepo := pgRepo.NewCountryPackRepo(db)
	profileRepo := pgRepo.NewProfileRepo(db)
	questionRepo := pgRepo.NewPracticeQuestionRepo(db)
	sessionRepo := pgRepo.NewPracticeSessionRepo(db)
	answerRepo := pgRepo.NewPracticeAnswerRepo(db)
	avatarRepo := pgRepo.NewAvatarSessionRepo(db)

	cacheRepo, err := redisRepo.NewCacheRepo(redisClient, "studyhub:")
	if err != nil {
		log.Fatal("failed to initialize cache repo", "error", err)
	}

	// Внешние клиенты
	store, err := storage.NewGCSService(ctx, cfg.Storage, log)
	if err != nil {
		log.Fatal("failed to initialize object storage", "error", err)
	}
	llmClient := llm.NewClient(cfg.LLM)
	avatarClient := avatarapi.NewClient(cfg.LiveAvatar)

	verifier, err := auth.NewVerifier(cfg.Auth.JWTSecret, cfg.Auth.Audience, cfg.Auth.Issuer)
	if err != nil {
		log.Fatal("failed to initialize token verifier", "error", err)
	}

	// Сервисы
	mixer := practice.NewMixer(&practice.Dependencies{
		QuestionRepo: questionRepo,
		CacheRepo:    cacheRepo,
		LLM:          llmClient,
		Documents:    practice.NewStorageDocuments(store, cfg.Storage.MaxUploadMB<<20),
		Logger:       log.With("component", "practice.mixer"),
		Config: &practice.Config{
			ContextBudget:    cfg.Practice.ContextBudget,
			ContextCacheTTL:  cfg.Practice.ContextCacheTTL,
			MaxDocumentBytes: cfg.Storage.MaxUploadMB << 20,
		},
	})
	practiceService := service.NewPracticeService(sessionRepo, answerRepo, contentRepo, mixer, log, cfg.Practice.MockExamQuestions)
	contentService := service.NewContentService(contentRepo, packRepo, store, mixer, log)
	flashcardService := service.NewFlashcardService(flashcardRepo, contentService, store, log)
	questionAdminService := service.NewQuestionAdminService(questionRepo, contentRepo, sessionRepo)
	profileService := service.NewProfileService(profileRepo, packRepo, store, log)
	dashboardService := service.NewDashboardService(sessionRepo, answerRepo)

	avatarManager := liveavatar.NewManager(avatarRepo, avatarClient, log.With("component", "liveavatar"))
	relay := ws.NewManager(avatarManager, ws.NewMetrics(), log.With("component", "ws"))

	scheduler, err := service.NewScheduler(cfg.Scheduler, practiceService, log)
	if err != nil {
		log.Fatal("failed to initialize scheduler", "error", err)
	}
	if cfg.Scheduler.Enabled {
		scheduler.Start()
	}

	// Middleware и обработчики
	authMiddleware := middleware.NewAuthMiddleware(verifier, profileService, log)
	rateLimiter := middleware.NewRateLimiter(redisClient, log)

	practiceHandler := handler.NewPracticeHandler(practiceService, log)
	adminHandler := handler.NewAdminHandler(contentService, flashcardService, questionAdminService, log)
	profileHandler := handler.NewProfileHandler(profileService, dashboardService, log)
	avatarHandler := handler.NewLiveAvatarHandler(avatarManager, relay.Metrics(), log)
	wsHandler := handler.NewWSHandler(relay, cfg.Server.AllowedOrigins, log)

	if cfg.Log.Mode == "production" || cfg.Log.Mode == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware(cfg.Telemetry.ServiceName))
	router.Use(middleware.RequestLogger(log))

	if gin.Mode() == gin.ReleaseMode {
		// Прокси-заголовкам не доверяем
		if err := router.SetTrustedProxies(nil); err != nil {
			log.Warn("failed to set trusted proxies", "error", err)
		}
	} else {
		if err := router.SetTrustedProxies([]string{"127.0.0.1", "::1"}); err != nil {
			log.Warn("failed to set trusted proxies", "error", err)
		}
	}

	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Server.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	uploadLimit := helper.LimitBody(cfg.Storage.MaxUploadMB)

	api := router.Group("/api")
	api.Use(authMiddleware.RequireAuth())
	{
		api.GET("/profile", profileHandler.GetProfile)
		api.PUT("/profile", profileHandler.UpdateProfile)
		api.POST("/profile/avatar", uploadLimit, profileHandler.UploadAvatar)
		api.GET("/dashboard", profileHandler.Dashboard)

		api.GET("/country-packs", adminHandler.ListCountryPacks)
		api.GET("/content", adminHandler.ListContent)
		api.GET("/flashcards", adminHandler.ListFlashcards)

		startLimit := rateLimiter.LimitByUser(middleware.PracticeStartRateLimitConfig(cfg.Practice.StartRateLimit, cfg.Practice.StartRateWindow))
		practiceGroup := api.Group("/practice")
		{
			practiceGroup.POST("", startLimit, practiceHandler.Start)
			practiceGroup.PUT("", practiceHandler.Update)
			practiceGroup.GET("/history", practiceHandler.History)
			practiceGroup.GET("/mistakes", practiceHandler.Mistakes)
			practiceGroup.GET("/:id", middleware.ExtractUUIDParam("id", "sessionID"), practiceHandler.GetSession)
		}
		api.POST("/mock-exam", startLimit, practiceHandler.StartMockExam)

		avatar := api.Group("/liveavatar/session")
		{
			avatar.POST("", avatarHandler.OpenSession)
			withID := avatar.Group("/:id")
			withID.Use(middleware.ExtractUUIDParam("id", "avatarSessionID"))
			{
				withID.POST("/events", avatarHandler.PostEvent)
				withID.POST("/messages", avatarHandler.PostMessage)
				withID.POST("/stop", avatarHandler.StopSession)
				withID.GET("/transcript", avatarHandler.Transcript)
			}
		}

		admin := api.Group("/admin")
		admin.Use(authMiddleware.AdminOnly())
		{
			uploads := rateLimiter.LimitByUser(middleware.UploadRateLimitConfig())

			admin.POST("/content", uploads, uploadLimit, adminHandler.UploadContent)
			admin.DELETE("/content/:id", middleware.ExtractUUIDParam("id", "contentID"), adminHandler.DeleteContent)

			admin.POST("/flashcards", uploads, uploadLimit, adminHandler.CreateFlashcard)
			admin.DELETE("/flashcards/:id", middleware.ExtractUUIDParam("id", "flashcardID"), adminHandler.DeleteFlashcard)

			admin.GET("/questions", adminHandler.ListQuestions)
			admin.POST("/questions", adminHandler.CreateQuestion)
			admin.DELETE("/questions/:id", middleware.ExtractUUIDParam("id", "questionID"), adminHandler.DeleteQuestion)

			admin.GET("/practice/:studyGuideId/export", middleware.ExtractUUIDParam("studyGuideId", "studyGuideID"), adminHandler.ExportResults)

			admin.GET("/liveavatar/metrics", avatarHandler.Metrics)
		}
	}

	// WebSocket: токен берется из ?token=, т.к. браузер не передает заголовки при апгрейде
	router.GET("/ws/liveavatar",
		rateLimiter.Limit(middleware.WSConnectRateLimitConfig()),
		authMiddleware.RequireAuth(),
		wsHandler.HandleConnection,
	)

	// Тайм-ауты защищают от slow client
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		log.Info("starting server", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server failed", "error", err)
			cancel()
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case <-ctx.Done():
	}
	log.Info("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	// Сессии аватара закрываем первыми: это разрывает WebSocket-соединения
	avatarManager.Shutdown(shutdownCtx)

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", "error", err)
	}
	scheduler.Stop(shutdownCtx)
	cancel()

	if err := redisClient.Close(); err != nil {
		log.Warn("failed to close redis", "error", err)
	}
	if sqlDB, err := database.GetSQLDB(db); err == nil {
		_ = sqlDB.Close()
	}
	if err := shutdownTelemetry(shutdownCtx); err != nil {
		log.Warn("telemetry shutdown failed", "error", err)
	}
	log.Info("server exited properly")
}
