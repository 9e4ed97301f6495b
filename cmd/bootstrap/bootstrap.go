package bootstrap

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"consultation-service/config"
	"consultation-service/internal/delivery/dto"
	deliveryHttp "consultation-service/internal/delivery/http"
	"consultation-service/internal/delivery/http/handler"
	"consultation-service/internal/delivery/http/middleware"
	"consultation-service/internal/domain/entity"
	"consultation-service/internal/domain/repository"
	"consultation-service/internal/infrastructure/cache"
	"consultation-service/internal/infrastructure/database"
	"consultation-service/internal/infrastructure/messaging"
	repositoryImpl "consultation-service/internal/repository"
	"consultation-service/internal/service"
	"consultation-service/internal/usecase"
	"consultation-service/pkg/jwt"
	"consultation-service/pkg/password"
	"consultation-service/pkg/validator"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const (
	shutdownTimeout = 10 * time.Second
	seedTimeout     = 10 * time.Second
)

// App holds all dependencies for the application
type App struct {
	Config      *config.Config
	DB          *gorm.DB
	RedisClient *redis.Client
	Publisher   messaging.Publisher
	MedicLocker *service.MedicLocker
	Server      *http.Server
}

// New creates a new App instance with all dependencies initialized
func New() (*App, error) {
	app := &App{}

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	app.Config = cfg

	setupLogger(cfg.App.LogLevel)
	logrus.Info("Configuration loaded successfully")

	if cfg.JWT.Secret == "" {
		cfg.JWT.Secret = strings.ReplaceAll(uuid.NewString()+uuid.NewString(), "-", "")
		logrus.Warn("JWT_SECRET not set, using a random secret; tokens will not survive a restart")
	}

	// Initialize database
	db, err := database.NewPostgresConnection(cfg.DB, cfg.App.Env)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	app.DB = db

	// Initialize Redis
	redisClient, err := cache.NewRedisClient(cfg.Redis)
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	app.RedisClient = redisClient

	publisher, err := messaging.NewPublisher(cfg.RabbitMQ)
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	app.Publisher = publisher

	if err := app.initializeServer(); err != nil {
		app.Close()
		return nil, err
	}

	return app, nil
}

// setupLogger configures the logrus logger
func setupLogger(level string) {
	logrus.SetFormatter(&logrus.JSONFormatter{})
	logrus.SetOutput(os.Stdout)

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	logrus.SetLevel(lvl)
}

// initializeServer wires every layer and seeds the administrator account.
func (app *App) initializeServer() error {
	cfg := app.Config
	log := logrus.StandardLogger()
	loc := cfg.Location()

	jwtService := jwt.NewJWTService(cfg.JWT)
	customValidator := validator.NewValidator()
	hasher := password.NewBcryptHasher(cfg.Security.BcryptCost)

	// Repositories
	userRepo := repositoryImpl.NewUserRepository(app.DB)
	consultationRepo := repositoryImpl.NewConsultationRepository(app.DB)
	auditLogRepo := repositoryImpl.NewAuditLogRepository(app.DB)

	// Services
	app.MedicLocker = service.NewMedicLocker(log)
	tokenStore := service.NewRedisTokenStore(app.RedisClient, log)
	auditService := service.NewAuditService(log, auditLogRepo)
	notifier := service.NewConsultationNotifier(app.Publisher, cfg.RabbitMQ.RoutingKey, loc, log)

	// Usecases
	userUsecase := usecase.NewUserUsecase(log, loc, userRepo, hasher, tokenStore, auditService)
	authUsecase := usecase.NewAuthUsecase(log, loc, userRepo, userUsecase, hasher, jwtService, tokenStore, auditService)
	consultationUsecase := usecase.NewConsultationUsecase(log, loc, consultationRepo, userRepo, app.MedicLocker, notifier, auditService)
	auditLogUsecase := usecase.NewAuditLogUsecase(log, loc, auditLogRepo)

	if err := seedAdmin(cfg.Admin, userRepo, userUsecase); err != nil {
		return fmt.Errorf("failed to seed admin: %w", err)
	}

	// Handlers
	authHandler := handler.NewAuthHandler(authUsecase, customValidator)
	userHandler := handler.NewUserHandler(userUsecase, customValidator)
	consultationHandler := handler.NewConsultationHandler(consultationUsecase, customValidator)
	auditLogHandler := handler.NewAuditLogHandler(auditLogUsecase)

	// Middleware
	authMiddleware := middleware.NewAuthMiddleware(jwtService, tokenStore, log)
	corsMiddleware := middleware.NewCORSMiddleware()
	loggingMiddleware := middleware.NewLoggingMiddleware(log)

	router := deliveryHttp.NewRouter(
		authHandler,
		userHandler,
		consultationHandler,
		auditLogHandler,
		authMiddleware,
		corsMiddleware,
		loggingMiddleware,
	)

	app.Server = &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.App.Port),
		Handler:           router.Setup(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return nil
}

// seedAdmin creates the configured administrator unless the email is taken.
func seedAdmin(cfg config.AdminConfig, userRepo repository.UserRepository, userUsecase usecase.UserUsecase) error {
	ctx, cancel := context.WithTimeout(context.Background(), seedTimeout)
	defer cancel()

	exists, err := userRepo.ExistsByEmail(ctx, cfg.Email)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	_, err = userUsecase.Create(ctx, entity.Principal{}, &dto.CreateUserRequest{
		Name:     cfg.Name,
		Email:    cfg.Email,
		Password: cfg.Password,
		Role:     string(entity.RoleAdmin),
	})
	if err != nil {
		return err
	}
	logrus.WithField("email", cfg.Email).Info("Administrator account created")
	return nil
}

// Run starts the HTTP server and handles graceful shutdown
func (app *App) Run() {
	go func() {
		logrus.Infof("Server starting on port %s", app.Config.App.Port)
		logrus.Infof("Environment: %s", app.Config.App.Env)
		if err := app.Server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.Fatalf("Failed to start server: %v", err)
		}
	}()

	app.waitForShutdown()
}

// waitForShutdown blocks until an interrupt signal is received
func (app *App) waitForShutdown() {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logrus.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := app.Server.Shutdown(ctx); err != nil {
		logrus.Errorf("Server forced to shutdown: %v", err)
	}

	app.Close()

	logrus.Info("Server shutdown complete")
}

// Close releases every resource that was opened, in reverse order.
func (app *App) Close() {
	if app.MedicLocker != nil {
		app.MedicLocker.Stop()
	}

	if app.Publisher != nil {
		if err := app.Publisher.Close(); err != nil {
			logrus.Warnf("Failed to close publisher: %v", err)
		}
	}

	if app.RedisClient != nil {
		app.RedisClient.Close()
	}

	if app.DB != nil {
		sqlDB, err := app.DB.DB()
		if err == nil {
			sqlDB.Close()
		}
	}
}
