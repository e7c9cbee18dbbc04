package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"meowchi_miniapp/internal/api"
	"meowchi_miniapp/internal/job"
	"meowchi_miniapp/internal/middleware"
	"meowchi_miniapp/internal/repository"
	"meowchi_miniapp/internal/service"
	"meowchi_miniapp/pkg/auth"
	"meowchi_miniapp/pkg/calendar"
	"meowchi_miniapp/pkg/logger"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	err = logger.Initialize(cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()
	zapLogger := logger.Logger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	repo, err := repository.New(cfg.Database)
	if err != nil {
		zapLogger.Fatal("Failed to initialize repository", zap.Error(err))
	}
	defer repo.Close()

	if cfg.Database.Migrate {
		if err := repo.Migrate(ctx); err != nil {
			zapLogger.Fatal("Failed to apply schema", zap.Error(err))
		}
		zapLogger.Info("Schema applied")
	}

	cal := calendar.New()
	hub := service.NewQuotaHub()

	var redisClient redis.UniversalClient
	if cfg.Meow.ThrottleBackend == service.ThrottleRedis {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()

		if err := redisClient.Ping(ctx).Err(); err != nil {
			zapLogger.Warn("Redis unreachable, tap throttle will fail open", zap.Error(err))
		}
	}
	throttle := service.NewThrottle(cfg.Meow, redisClient)

	meowOpts := []service.MeowOption{service.WithQuotaPublisher(hub)}
	if cfg.TelegramAuth.NotifyClaims && cfg.TelegramAuth.TelegramBotToken != "" {
		notifier, err := service.NewTelegramNotifier(cfg.TelegramAuth.TelegramBotToken)
		if err != nil {
			zapLogger.Warn("Claim notifications disabled", zap.Error(err))
		} else {
			meowOpts = append(meowOpts, service.WithNotifier(notifier))
		}
	}

	userService := service.NewUserService(repo)
	streakService := service.NewStreakService(repo, cal)
	meowService := service.NewMeowService(repo, cal, cfg.Meow, meowOpts...)

	telegramAuth := auth.NewTelegramAuth(cfg.TelegramAuth.TelegramBotToken, cfg.TelegramAuth.DebugMode)
	authz := middleware.NewAuthorization(userService)

	reset := job.NewDailyReset(repo, cal, hub, cfg.Meow.DailyQuota, logger.Named("daily_reset"))
	go reset.Run(ctx)

	router := gin.New()
	router.Use(gin.Recovery())

	config := cors.DefaultConfig()
	config.AllowAllOrigins = true
	config.AllowMethods = []string{
		http.MethodHead,
		http.MethodGet,
		http.MethodPost,
		http.MethodPut,
		http.MethodPatch,
		http.MethodDelete,
	}
	config.AllowHeaders = []string{"*"}
	config.AllowCredentials = true
	config.MaxAge = 12 * time.Hour

	router.Use(cors.New(config))

	a := router.Group("/api/v1")
	api.NewUserRoutes(a, userService, telegramAuth)
	api.NewStreakRoutes(a, streakService, telegramAuth)
	api.NewMeowRoutes(a, meowService, throttle, hub, cal, telegramAuth)
	api.NewAdminRoutes(a, reset, cal, telegramAuth, authz)

	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	go func() {
		zapLogger.Info("Starting server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLogger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	zapLogger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLogger.Error("Server shutdown failed", zap.Error(err))
	}
}
