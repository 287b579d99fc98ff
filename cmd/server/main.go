package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"

	"giveora.backend/internal/config"
	"giveora.backend/internal/infrastructure/datasources/postgres"
	"giveora.backend/internal/infrastructure/jobs"
	"giveora.backend/internal/infrastructure/notification"
	"giveora.backend/internal/infrastructure/repositories"
	"giveora.backend/internal/interfaces/http/handlers"
	"giveora.backend/internal/interfaces/http/middleware"
	"giveora.backend/internal/usecases"
	"giveora.backend/pkg/crypto"
	"giveora.backend/pkg/jwt"
	"giveora.backend/pkg/logger"
	"giveora.backend/pkg/redis"
)

var (
	loadDotenv = godotenv.Load
	loadCfg    = config.Load
	initLog    = logger.Init
	initRedis  = redis.Init
	openSQL    = postgres.NewConnection
	openDB     = func(sqlDB *sql.DB) (*gorm.DB, error) {
		return gorm.Open(gormpostgres.New(gormpostgres.Config{
			Conn: sqlDB,
		}), &gorm.Config{
			TranslateError: true,
		})
	}
	newSessionStore = redis.NewSessionStore
	newSender       = notification.NewSender
	runServer       = func(r *gin.Engine, port string) error { return r.Run(":" + port) }
)

func main() {
	if err := runMainProcess(); err != nil {
		log.Fatal(err)
	}
}

func runMainProcess() error {
	if err := loadDotenv(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := loadCfg()

	initLog(cfg.Server.Env)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	logger.Info(ctx, "Logger initialized", zap.String("env", cfg.Server.Env))

	if err := initRedis(cfg.Redis.URL, cfg.Redis.PASSWORD); err != nil {
		logger.Error(ctx, "Failed to initialize Redis", zap.Error(err))
		return fmt.Errorf("failed to initialize redis: %w", err)
	}
	logger.Info(ctx, "Redis initialized")

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	sqlDB, err := openSQL(cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer sqlDB.Close()

	db, err := openDB(sqlDB)
	if err != nil {
		return fmt.Errorf("failed to initialize gorm: %w", err)
	}
	logger.Info(ctx, "Connected to PostgreSQL", zap.String("host", cfg.Database.Host), zap.String("database", cfg.Database.DBName))

	if err := handlers.RegisterValidators(); err != nil {
		return fmt.Errorf("failed to register validators: %w", err)
	}

	jwtService := jwt.NewJWTService(
		cfg.JWT.Secret,
		cfg.JWT.AccessExpiry,
		cfg.JWT.RefreshExpiry,
	)

	// Repositories
	sessionStore, err := newSessionStore(cfg.Security.SessionEncryptionKey, "registration")
	if err != nil {
		return fmt.Errorf("failed to initialize session store: %w", err)
	}
	userRepo := repositories.NewUserRepository(db)
	profileRepo := repositories.NewProfileRepository(db)
	pendingRepo := repositories.NewPendingRegistrationRepository(db)
	pendingSessionRepo := repositories.NewPendingRegistrationSessionRepository(sessionStore, cfg.Security.RegistrationTTL)
	resetRepo := repositories.NewPasswordResetCodeRepository(db)
	limiter := repositories.NewRedisRateLimiter(redis.GetClient(), "ratelimit")
	uow := repositories.NewUnitOfWork(db)

	// Notifications
	sender, err := newSender(cfg.Mail)
	if err != nil {
		return fmt.Errorf("failed to initialize mail sender: %w", err)
	}
	renderer, err := notification.NewRenderer(cfg.Server.AppName)
	if err != nil {
		return fmt.Errorf("failed to load notification templates: %w", err)
	}
	dispatcher := notification.NewDispatcher(sender, renderer, notification.DispatcherConfig{
		Workers:     cfg.Notifier.Workers,
		QueueSize:   cfg.Notifier.QueueSize,
		MaxAttempts: cfg.Notifier.MaxAttempts,
		RetryDelay:  cfg.Notifier.RetryDelay,
	})
	dispatcher.Start(ctx)
	defer dispatcher.Stop()

	// Usecases
	policy := usecases.CodePolicyFromConfig(cfg.Verification)
	codeHasher := crypto.NewCodeHasher()
	passwordHasher := crypto.NewPasswordHasher()
	registrationUsecase := usecases.NewRegistrationUsecase(
		userRepo, profileRepo, pendingSessionRepo, pendingRepo, uow,
		passwordHasher, codeHasher, jwtService, dispatcher, policy, cfg.Server.FrontendURL,
	)
	passwordResetUsecase := usecases.NewPasswordResetUsecase(
		userRepo, resetRepo, limiter, uow, passwordHasher, codeHasher, dispatcher, policy,
		usecases.RateLimitPolicy{
			MaxAttempts: cfg.Verification.ForgotPasswordLimit,
			Window:      cfg.Verification.ForgotPasswordWindow,
		},
	)
	accountUsecase := usecases.NewAccountUsecase(userRepo)

	// Background jobs
	cleanupJob := jobs.NewPendingRegistrationCleanupJob(pendingRepo, cfg.Jobs.PendingCleanupInterval, cfg.Jobs.PendingCleanupGrace)
	go cleanupJob.Start(ctx)

	r, err := newEngine(cfg.HTTP.TrustedProxies)
	if err != nil {
		return err
	}

	applyCORSMiddleware(r, cfg.HTTP.AllowedOrigins)
	registerOperationalRoutes(r, handlers.NewHealthHandler(map[string]handlers.HealthCheck{
		"database": sqlDB.PingContext,
		"redis":    redis.Ping,
	}))
	registerAPIV1Routes(r, routeDeps{
		registrationHandler:  handlers.NewRegistrationHandler(registrationUsecase),
		passwordResetHandler: handlers.NewPasswordResetHandler(passwordResetUsecase),
		accountHandler:       handlers.NewAccountHandler(accountUsecase),
		authMiddleware:       middleware.AuthMiddleware(jwtService),
		sessionMiddleware: middleware.RegistrationSession(middleware.RegistrationSessionConfig{
			CookieName: cfg.Security.SessionCookieName,
			Secure:     cfg.Security.SessionCookieSecure,
			TTL:        cfg.Security.RegistrationTTL,
		}),
		ipLimiter: middleware.NewIPRateLimiter(cfg.HTTP.AuthRatePerSecond, cfg.HTTP.AuthBurst, 10*time.Minute),
	})

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		select {
		case <-quit:
		case <-ctx.Done():
			return
		}
		logger.Info(ctx, "Shutting down server")
		cleanupJob.Stop()
		dispatcher.Stop()
		cancel()
		os.Exit(0)
	}()

	logger.Info(ctx, "Giveora backend starting",
		zap.String("port", cfg.Server.Port),
		zap.String("api", "/api/v1"),
	)
	if err := runServer(r, cfg.Server.Port); err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}
