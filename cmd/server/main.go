package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"inventar-backend/internal/auth"
	"inventar-backend/internal/cache"
	"inventar-backend/internal/config"
	"inventar-backend/internal/database"
	"inventar-backend/internal/db"
	h "inventar-backend/internal/http"
	"inventar-backend/internal/handlers"
	"inventar-backend/internal/health"
	"inventar-backend/internal/logging"
	"inventar-backend/internal/middleware"
	"inventar-backend/internal/models"
	"inventar-backend/internal/objectstore"
	"inventar-backend/internal/realtime"
	"inventar-backend/internal/repositories"
	"inventar-backend/internal/repositories/sqlite"
	"inventar-backend/internal/services"
	"inventar-backend/internal/store"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

// openStore connects the configured backend and brings its schema up to date
func openStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	switch cfg.Database.Driver {
	case config.DriverSQLite:
		st, err := sqlite.Open(cfg.Database.Path)
		if err != nil {
			return nil, err
		}
		if err := database.NewSQLiteMigrator(st.DB()).RunMigrations(); err != nil {
			st.Close()
			return nil, fmt.Errorf("migrations: %w", err)
		}
		log.WithFields(log.Fields{"component": "db", "path": st.Path()}).Info("Using SQLite store")
		return st, nil
	default:
		if err := database.NewPostgresMigrator(cfg.PostgresDSN()).RunMigrations(); err != nil {
			return nil, fmt.Errorf("migrations: %w", err)
		}
		pool, err := db.Connect(ctx, cfg)
		if err != nil {
			return nil, err
		}
		log.WithFields(log.Fields{"component": "db", "host": cfg.Database.Host, "name": cfg.Database.Name}).Info("Connected to PostgreSQL")
		return repositories.NewStore(pool), nil
	}
}

// openCache prefers Redis and falls back to process memory when Redis is off or unreachable
func openCache(cfg *config.Config) (cache.Cache, *redis.Client) {
	if !cfg.Redis.Enabled {
		log.WithField("component", "cache").Info("Redis disabled, using in-memory cache")
		return cache.NewMemoryCache(), nil
	}
	client, err := cache.Connect(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		log.WithField("component", "cache").WithError(err).Warn("Redis unavailable, using in-memory cache")
		return cache.NewMemoryCache(), nil
	}
	log.WithFields(log.Fields{"component": "cache", "addr": cfg.Redis.Addr}).Info("Redis cache connected")
	return cache.NewRedisCache(client), client
}

// openObjectStore returns nil when no backup bucket is configured
func openObjectStore(ctx context.Context, cfg *config.Config) objectstore.Store {
	if !cfg.BackupUploadEnabled() {
		return nil
	}
	objects, err := objectstore.NewS3Store(ctx, objectstore.Config{
		Bucket:          cfg.Backup.Bucket,
		Region:          cfg.Backup.Region,
		Endpoint:        cfg.Backup.Endpoint,
		AccessKeyID:     cfg.Backup.AccessKeyID,
		SecretAccessKey: cfg.Backup.SecretAccessKey,
		PathStyle:       cfg.Backup.UsePathStyle,
	})
	if err != nil {
		log.WithField("component", "backup").WithError(err).Warn("Backup bucket unavailable, uploads disabled")
		return nil
	}
	return objects
}

// createAdmin handles -create-admin email:password
func createAdmin(ctx context.Context, users *services.UserService, arg string) error {
	email, password, ok := strings.Cut(arg, ":")
	if !ok {
		return errors.New("expected email:password")
	}
	name, _, _ := strings.Cut(email, "@")
	user, err := users.CreateUser(ctx, &models.SignupRequest{Name: name, Email: email, Password: password}, models.RoleAdmin)
	if err != nil {
		return err
	}
	log.WithFields(log.Fields{"user_id": user.ID, "email": user.Email}).Info("Admin account created")
	return nil
}

func main() {
	// Parse command-line flags
	port := flag.Int("port", 0, "Server port (overrides config)")
	migrateOnly := flag.Bool("migrate-only", false, "Run database migrations and exit")
	adminAccount := flag.String("create-admin", "", "Create an admin account (email:password) and exit")
	flag.Parse()

	// Load configuration
	cfg := config.Load()
	logging.Setup(cfg.Log.Level, cfg.Log.Format)
	if *port != 0 {
		cfg.Server.Port = *port
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openStore(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer st.Close()
	if *migrateOnly {
		log.Info("Migrations applied")
		return
	}

	jwtManager := auth.NewJWTManager(cfg)
	userService := services.NewUserService(st.Users(), jwtManager)
	if *adminAccount != "" {
		if err := createAdmin(ctx, userService, *adminAccount); err != nil {
			log.Fatalf("Failed to create admin: %v", err)
		}
		return
	}

	appCache, redisClient := openCache(cfg)
	if redisClient != nil {
		defer redisClient.Close()
	}
	cacheTTL := time.Duration(cfg.Cache.TTLSeconds) * time.Second

	hub := realtime.NewHub(cfg.Server.CorsAllowedOrigins)
	go hub.Run(ctx)

	// Initialize services
	feed := services.NewChangeFeed(appCache, hub)
	entityHandlers := services.DefaultEntityHandlers()
	itemService := services.NewItemService(st, appCache, cacheTTL, feed)
	locationService := services.NewLocationService(st, feed)
	changelogService := services.NewChangelogService(st, cfg.Changelog.DefaultPageSize, cfg.Changelog.MaxPageSize, entityHandlers...)
	undoService := services.NewUndoService(st, feed, entityHandlers...)
	conflictDetector := services.NewConflictDetector(st)
	reportService := services.NewReportService(changelogService, cfg.Changelog.ReportLimit)
	statsService := services.NewStatsService(st, appCache, cacheTTL)
	backupService := services.NewBackupService(st, openObjectStore(ctx, cfg), cfg.Backup.Prefix)
	healthChecker := health.NewHealthChecker(st, cfg.Database.Driver, redisClient)

	collector := services.NewMetricsCollector(st, hub, 30*time.Second)
	collector.Start()
	defer collector.Stop()

	// Initialize handlers
	router := h.NewRouter(
		handlers.NewAuthHandler(userService, cfg),
		handlers.NewUserHandler(userService),
		handlers.NewItemHandler(itemService, changelogService),
		handlers.NewLocationHandler(locationService, changelogService),
		handlers.NewChangelogHandler(changelogService, undoService, conflictDetector),
		handlers.NewReportHandler(reportService),
		handlers.NewStatsHandler(statsService),
		handlers.NewBackupHandler(backupService),
		handlers.NewHealthHandler(healthChecker),
		hub,
		middleware.NewAuthMiddleware(jwtManager, st.Users(), cfg.JWT.CookieName),
	)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           h.Wrap(router, middleware.NewCORS(cfg)),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.WithField("addr", server.Addr).Info("Server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownTimeoutSeconds)*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("Graceful shutdown failed")
	}
}
