package bootstrap

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	appControllers "github.com/supersix/academy/internal/app/controllers"
	appMigrations "github.com/supersix/academy/internal/app/migrations"
	appRepos "github.com/supersix/academy/internal/app/repositories"
	appRoutes "github.com/supersix/academy/internal/app/routes"
	appServices "github.com/supersix/academy/internal/app/services"
	"github.com/supersix/academy/internal/config"
	"github.com/supersix/academy/internal/db"
	appMiddleware "github.com/supersix/academy/internal/middleware"
	pkgAuth "github.com/supersix/academy/internal/pkg/auth"
	"github.com/supersix/academy/internal/pkg/helpers"
	"github.com/supersix/academy/internal/pkg/logger"
	"github.com/supersix/academy/internal/seed"
)

// DefaultConfigPath is read unless ACADEMY_CONFIG_PATH points elsewhere
const DefaultConfigPath = "configs/config.yaml"

// Dependencies holds all the application dependencies
type Dependencies struct {
	Registry          *appServices.BranchRegistry
	Allocator         *appServices.StudentIDAllocator
	AuthService       *appServices.AuthService
	StudentService    appServices.StudentService
	AuthController    *appControllers.AuthController
	StudentController *appControllers.StudentController
	AuthMiddleware    *appMiddleware.AuthMiddleware
	Repos             *appRepos.Repositories
	JWTService        *pkgAuth.JWTService
	Logger            zerolog.Logger
}

// Storage is the opened backend and the repositories bound to it
type Storage struct {
	Driver string
	Repos  *appRepos.Repositories
	close  func() error
}

// Close releases the backend's connections
func (s *Storage) Close() error {
	if s == nil || s.close == nil {
		return nil
	}
	return s.close()
}

// LoadConfigAndSetupLogger loads configuration and initializes the logger.
func LoadConfigAndSetupLogger(configPath string) (*config.Config, zerolog.Logger, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		logger.Error().Err(err).Str("path", configPath).Msg("Failed to load configuration")
		return nil, zerolog.Logger{}, err
	}

	logLevel := logger.ParseLevel(cfg.Logging.Level)
	lgr := logger.Configure(logger.Config{
		Level:   logLevel,
		Pretty:  strings.ToLower(cfg.Logging.Format) == "text",
		Service: "academy",
	})

	lgr.Info().Str("logLevel", string(logLevel)).Str("logFormat", cfg.Logging.Format).Msg("Logger configured")
	return cfg, lgr, nil
}

// SetupStorage opens the configured backend and brings its schema up to date
func SetupStorage(ctx context.Context, cfg *config.Config, lgr zerolog.Logger) (*Storage, error) {
	switch cfg.Storage.Driver {
	case config.DriverPostgres:
		lgr.Info().Str("host", cfg.Database.Host).Str("db", cfg.Database.DBName).Msg("Establishing database connection...")
		database, err := db.NewPostgresDB(cfg)
		if err != nil {
			lgr.Error().Err(err).Msg("Failed to connect to database")
			return nil, err
		}
		lgr.Info().Msg("Database connection successfully established.")

		lgr.Info().Msg("Running database migrations...")
		migrator := appMigrations.NewMigrator(database.Pool, lgr)
		if err := migrator.MigrateFS(ctx, appMigrations.PostgresFS()); err != nil {
			database.Close()
			lgr.Error().Err(err).Msg("Database migration error")
			return nil, fmt.Errorf("database migrations failed: %w", err)
		}
		lgr.Info().Msg("Database migrations successfully applied.")

		return &Storage{
			Driver: cfg.Storage.Driver,
			Repos:  appRepos.NewPostgresRepositories(database, lgr),
			close: func() error {
				database.Close()
				return nil
			},
		}, nil

	case config.DriverSQLite:
		lgr.Info().Str("path", cfg.Storage.SQLitePath).Msg("Opening SQLite database...")
		database, err := db.OpenSQLite(cfg.Storage.SQLitePath)
		if err != nil {
			lgr.Error().Err(err).Msg("Failed to open SQLite database")
			return nil, err
		}
		if err := appMigrations.ApplySQLite(ctx, database.DB, appMigrations.SQLiteFS()); err != nil {
			_ = database.Close()
			lgr.Error().Err(err).Msg("SQLite migration error")
			return nil, fmt.Errorf("sqlite migrations failed: %w", err)
		}
		lgr.Info().Msg("SQLite schema is up to date.")

		return &Storage{
			Driver: cfg.Storage.Driver,
			Repos:  appRepos.NewSQLiteRepositories(database, lgr),
			close:  database.Close,
		}, nil

	case config.DriverMemory:
		lgr.Warn().Msg("Using in-memory storage; student IDs restart from 1 on every boot")
		return &Storage{
			Driver: cfg.Storage.Driver,
			Repos:  appRepos.NewMemoryRepositories(),
		}, nil

	default:
		return nil, fmt.Errorf("unsupported storage driver %q", cfg.Storage.Driver)
	}
}

// SeedDefaultData creates the administrator account when configured
func SeedDefaultData(ctx context.Context, cfg *config.Config, repos *appRepos.Repositories, lgr zerolog.Logger) error {
	return seed.EnsureAdmin(ctx, repos.UserRepository, seed.AdminAccount{
		Email:    cfg.Admin.Email,
		Password: cfg.Admin.Password,
		Name:     cfg.Admin.Name,
	}, lgr)
}

// BuildDependencies initializes application services and controllers.
func BuildDependencies(cfg *config.Config, repos *appRepos.Repositories, lgr zerolog.Logger) (*Dependencies, error) {
	deps := &Dependencies{Logger: lgr, Repos: repos}

	registry, err := appServices.NewBranchRegistry(cfg.Branches, cfg.Allocator.IDWidth)
	if err != nil {
		return nil, fmt.Errorf("failed to build branch registry: %w", err)
	}
	deps.Registry = registry

	deps.Allocator = appServices.NewStudentIDAllocator(repos.CounterStore, registry, appServices.RetryPolicy{
		MaxAttempts:    cfg.Allocator.MaxAttempts,
		InitialBackoff: cfg.Allocator.InitialBackoff,
		MaxBackoff:     cfg.Allocator.MaxBackoff,
	}, lgr)

	deps.JWTService = pkgAuth.NewJWTService(pkgAuth.JWTConfig{
		SecretKey:      cfg.JWT.Secret,
		AccessTokenExp: helpers.ParseDuration(cfg.JWT.AccessTokenExpiration, 24*time.Hour),
		TokenIssuer:    cfg.JWT.Issuer,
	})

	deps.AuthService = appServices.NewAuthService(repos.UserRepository, deps.Allocator, deps.JWTService, lgr)
	deps.StudentService = appServices.NewStudentService(repos.UserRepository, repos.CounterStore, deps.Allocator, lgr)

	deps.AuthMiddleware = appMiddleware.NewAuthMiddleware(deps.JWTService)

	deps.AuthController = appControllers.NewAuthController(deps.AuthService, logger.Component("auth_controller"))
	deps.StudentController = appControllers.NewStudentController(deps.StudentService, logger.Component("student_controller"))

	return deps, nil
}

// SetupRouter configures the Gin engine with middleware and routes.
func SetupRouter(cfg *config.Config, deps *Dependencies, lgr zerolog.Logger) *gin.Engine {
	if strings.ToLower(cfg.Server.Mode) == "production" {
		gin.SetMode(gin.ReleaseMode)
		lgr.Info().Msg("Setting Gin mode to release")
	} else {
		gin.SetMode(gin.DebugMode)
		lgr.Info().Msg("Setting Gin mode to debug")
	}

	router := gin.New()
	router.Use(gin.Recovery(), appMiddleware.RequestLogger(lgr))

	appRoutes.SetupRouter(router,
		deps.AuthController,
		deps.StudentController,
		deps.AuthMiddleware,
		cfg.Storage.Driver,
	)

	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong", "status": "success"})
	})

	return router
}
