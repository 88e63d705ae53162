package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/yourusername/testhub-api/internal/config"
	"github.com/yourusername/testhub-api/internal/handler"
	"github.com/yourusername/testhub-api/internal/middleware"
	pgRepo "github.com/yourusername/testhub-api/internal/repository/postgres"
	redisRepo "github.com/yourusername/testhub-api/internal/repository/redis"
	"github.com/yourusername/testhub-api/internal/service"
	"github.com/yourusername/testhub-api/internal/service/attemptsession"
	ws "github.com/yourusername/testhub-api/internal/websocket"
	"github.com/yourusername/testhub-api/pkg/auth"
	"github.com/yourusername/testhub-api/pkg/database"
)

func main() {
	// Загружаем конфигурацию
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config/config.yaml"
	}
	log.Printf("Загрузка конфигурации из %s", configPath)

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Printf("Failed to load config: %v", err)
		os.Exit(1)
	}

	// Инициализируем подключение к PostgreSQL
	db, err := database.NewPostgresDB(cfg.Database.PostgresConnectionString())
	if err != nil {
		log.Printf("Failed to connect to database: %v", err)
		os.Exit(1)
	}

	// Применяем миграции
	if err := database.MigrateDB(db); err != nil {
		log.Printf("Failed to migrate database: %v", err)
		os.Exit(1)
	}

	// Инициализируем подключение к Redis
	redisClient, err := database.NewUniversalRedisClient(cfg.Redis)
	if err != nil {
		log.Printf("Failed to connect to Redis: %v", err)
		os.Exit(1)
	}
	log.Println("Successfully connected to Redis")

	// Инициализируем репозитории
	quizRepo := pgRepo.NewQuizRepo(db)
	attemptRepo := pgRepo.NewAttemptRepo(db)

	cacheRepo, err := redisRepo.NewCacheRepo(redisClient)
	if err != nil {
		log.Printf("Failed to initialize CacheRepo: %v", err)
		os.Exit(1)
	}

	// Инициализируем JWT сервис
	jwtService, err := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.ExpirationHrs)
	if err != nil {
		log.Printf("Failed to initialize JWTService: %v", err)
		os.Exit(1)
	}

	// Инициализируем WebSocket менеджер
	wsManager := ws.NewManager(nil)

	// Инициализируем клиент сервиса проверки
	gradingService, err := service.NewHTTPGradingService(cfg.Grading.BaseURL, cfg.Grading.APIKey, cfg.Grading.RequestTimeout)
	if err != nil {
		log.Printf("Failed to initialize GradingService: %v", err)
		os.Exit(1)
	}

	// Инициализируем email сервис (Noop, если отключен)
	var emailService service.EmailService
	if cfg.Email.Enabled {
		emailService, err = service.NewResendEmailService(cfg.Email.ResendAPIKey, cfg.Email.From)
		if err != nil {
			log.Printf("Failed to initialize EmailService: %v", err)
			os.Exit(1)
		}
	} else {
		emailService = &service.NoopEmailService{}
	}

	// Собираем конфигурацию сессий прохождения
	attemptConfig := attemptsession.DefaultConfig()
	if cfg.Attempt.SubmitMaxRetries > 0 {
		attemptConfig.SubmitMaxRetries = cfg.Attempt.SubmitMaxRetries
	}
	if cfg.Attempt.SubmitRetryIntervalMs > 0 {
		attemptConfig.SubmitRetryInterval = time.Duration(cfg.Attempt.SubmitRetryIntervalMs) * time.Millisecond
	}
	if len(cfg.Attempt.TimeWarningThresholds) > 0 {
		attemptConfig.TimeWarningThresholds = cfg.Attempt.TimeWarningThresholds
	}
	if cfg.Attempt.SnapshotTTLMinutes > 0 {
		attemptConfig.SnapshotTTL = time.Duration(cfg.Attempt.SnapshotTTLMinutes) * time.Minute
	}
	if cfg.Attempt.ResultTTLHours > 0 {
		attemptConfig.ResultTTL = time.Duration(cfg.Attempt.ResultTTLHours) * time.Hour
	}

	// Инициализируем сервисы
	quizService := service.NewQuizService(quizRepo)
	attemptManager := service.NewAttemptManager(quizRepo, attemptRepo, cacheRepo, gradingService, wsManager, emailService, attemptConfig)

	// Инициализируем обработчики
	quizHandler := handler.NewQuizHandler(quizService)
	attemptHandler := handler.NewAttemptHandler(attemptManager)
	wsHandler := handler.NewWSHandler(wsManager)

	// Инициализируем middleware
	authMiddleware := middleware.NewAuthMiddleware(jwtService)

	// Инициализируем роутер Gin
	router := gin.Default()

	isProduction := gin.Mode() == gin.ReleaseMode
	if isProduction {
		// Production: не доверять прокси-заголовкам
		if err := router.SetTrustedProxies(nil); err != nil {
			log.Printf("Warning: failed to set trusted proxies: %v", err)
		}
	} else {
		// Development: доверяем localhost
		if err := router.SetTrustedProxies([]string{"127.0.0.1", "::1"}); err != nil {
			log.Printf("Warning: failed to set trusted proxies: %v", err)
		}
	}

	// Настройка CORS
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:5173", "http://localhost:3000"},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Настраиваем маршруты API
	api := router.Group("/api")
	{
		// Тесты
		quizzes := api.Group("/quizzes")
		{
			quizzes.GET("", quizHandler.ListQuizzes)

			// Группа маршрутов, требующих quizID
			quizWithID := quizzes.Group("/:id")
			quizWithID.Use(middleware.ExtractUintParam("id", "quizID"))
			{
				quizWithID.GET("", quizHandler.GetQuiz)
				quizWithID.GET("/questions", quizHandler.GetQuizWithQuestions)

				// Маршруты для авторов
				authorQuizzes := quizWithID.Group("")
				authorQuizzes.Use(authMiddleware.RequireAuth(), authMiddleware.AuthorOnly())
				{
					authorQuizzes.POST("/publish", quizHandler.PublishQuiz)
					authorQuizzes.GET("/questions/export", quizHandler.ExportQuestions)
					authorQuizzes.DELETE("", quizHandler.DeleteQuiz)
				}
			}

			// Маршрут создания теста
			authorCreateQuiz := quizzes.Group("")
			authorCreateQuiz.Use(authMiddleware.RequireAuth(), authMiddleware.AuthorOnly())
			{
				authorCreateQuiz.POST("", quizHandler.CreateQuiz)
			}
		}

		// Попытки прохождения
		attempts := api.Group("/attempts")
		attempts.Use(authMiddleware.RequireAuth())
		{
			attempts.POST("", attemptHandler.StartAttempt)
			attempts.GET("", attemptHandler.ListAttempts)

			attemptWithID := attempts.Group("/:attempt_id")
			attemptWithID.Use(middleware.ExtractUUIDParam("attempt_id", "attemptID"))
			{
				attemptWithID.GET("", attemptHandler.GetState)
				attemptWithID.PUT("/answers", attemptHandler.SetAnswer)
				attemptWithID.POST("/navigate", attemptHandler.Navigate)
				attemptWithID.POST("/advance", attemptHandler.Advance)
				attemptWithID.POST("/submit", attemptHandler.Submit)
				attemptWithID.POST("/abandon", attemptHandler.Abandon)
				attemptWithID.GET("/result", attemptHandler.GetResult)
			}
		}
	}

	// WebSocket маршрут
	router.GET("/ws", authMiddleware.RequireAuth(), wsHandler.HandleConnection)

	// Настраиваем HTTP сервер с тайм-аутами для защиты от slow client attacks
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	// Запускаем сервер в горутине
	go func() {
		log.Printf("Starting server on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("Failed to start server: %v", err)
		}
	}()

	log.Printf("Server started on port %s", cfg.Server.Port)

	// Ожидаем сигнал остановки
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	// Закрываем активные сессии и WebSocket перед остановкой HTTP сервера
	attemptManager.Shutdown()
	wsManager.Shutdown()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	if sqlDB, err := database.GetSQLDB(db); err == nil {
		sqlDB.Close()
	}
	redisClient.Close()

	log.Println("Server exited")
}
