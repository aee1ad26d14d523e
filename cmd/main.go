package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	redisclient "github.com/lumahealth/luma-backend/internal/clients/redis"
	"github.com/lumahealth/luma-backend/internal/data/db"
	"github.com/lumahealth/luma-backend/internal/data/repos"
	"github.com/lumahealth/luma-backend/internal/events"
	"github.com/lumahealth/luma-backend/internal/events/janitor"
	"github.com/lumahealth/luma-backend/internal/events/runtime"
	"github.com/lumahealth/luma-backend/internal/events/worker"
	"github.com/lumahealth/luma-backend/internal/http/handlers"
	"github.com/lumahealth/luma-backend/internal/http/middleware"
	"github.com/lumahealth/luma-backend/internal/pkg/env"
	"github.com/lumahealth/luma-backend/internal/pkg/logger"
	"github.com/lumahealth/luma-backend/internal/platform/genai"
	"github.com/lumahealth/luma-backend/internal/server"
	"github.com/lumahealth/luma-backend/internal/services"
	"github.com/lumahealth/luma-backend/internal/workflows"
)

func main() {
	_ = godotenv.Load()

	// Logger
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// Postgres
	postgresService, err := db.NewPostgresService(log)
	if err != nil {
		log.Error("Postgres init failed", "error", err)
		os.Exit(1)
	}
	thePG := postgresService.DB()
	if err := db.AutoMigrateAll(thePG); err != nil {
		log.Error("Postgres auto migration failed", "error", err)
		os.Exit(1)
	}

	// Redis (rate limiting). The API still serves without it.
	rdb, err := redisclient.NewClient(log)
	if err != nil {
		log.Warn("Redis init failed, rate limiting disabled", "error", err)
		rdb = nil
	}

	// Repos
	log.Info("Setting up repos...")
	userRepo := repos.NewUserRepo(thePG, log)
	moodRepo := repos.NewMoodRepo(thePG, log)
	activityRepo := repos.NewActivityRepo(thePG, log)
	chatSessionRepo := repos.NewChatSessionRepo(thePG, log)
	chatMessageRepo := repos.NewChatMessageRepo(thePG, log)
	recommendationRepo := repos.NewRecommendationRepo(thePG, log)
	analysisRepo := repos.NewSessionAnalysisRepo(thePG, log)
	deliveryRepo := repos.NewEventDeliveryRepo(thePG, log)

	// Model client
	genaiClient, err := genai.NewClient(log)
	if err != nil {
		log.Error("Could not init model client", "error", err)
		os.Exit(1)
	}

	// Event handlers
	log.Info("Registering event handlers...")
	registry := runtime.NewRegistry()
	for _, h := range []runtime.Handler{
		workflows.NewChatMessageHandler(genaiClient, log),
		workflows.NewSessionAnalysisHandler(genaiClient, chatSessionRepo, analysisRepo, log),
		workflows.NewMoodUpdateHandler(moodRepo, log),
		workflows.NewActivityCompletionHandler(activityRepo, log),
		workflows.NewRecommendationHandler(genaiClient, userRepo, moodRepo, activityRepo, recommendationRepo, log),
	} {
		if err := registry.Register(h); err != nil {
			log.Error("Handler registration failed", "error", err)
			os.Exit(1)
		}
	}
	bus := events.NewBus(deliveryRepo, registry, log)

	// Services
	log.Info("Setting up services...")
	chatService := services.NewChatService(log, chatSessionRepo, chatMessageRepo, bus, genaiClient)
	moodService := services.NewMoodService(log, moodRepo, bus)
	activityService := services.NewActivityService(log, activityRepo, bus)
	recommendationService := services.NewRecommendationService(log, recommendationRepo, bus)
	dashboardService := services.NewDashboardService(log, moodRepo, activityRepo, chatSessionRepo, recommendationRepo)
	eventService := services.NewEventService(log, deliveryRepo)

	// Handlers and middleware
	jwtSecret := os.Getenv("JWT_SECRET_KEY")
	if jwtSecret == "" {
		log.Error("JWT_SECRET_KEY is required")
		os.Exit(1)
	}
	authMiddleware := middleware.NewAuthMiddleware(log, userRepo, jwtSecret)
	router := server.NewRouter(server.RouterConfig{
		Log:                   log,
		Redis:                 rdb,
		AuthMiddleware:        authMiddleware,
		ChatHandler:           handlers.NewChatHandler(log, chatService),
		MoodHandler:           handlers.NewMoodHandler(log, moodService),
		ActivityHandler:       handlers.NewActivityHandler(log, activityService),
		RecommendationHandler: handlers.NewRecommendationHandler(log, recommendationService),
		DashboardHandler:      handlers.NewDashboardHandler(log, dashboardService),
		EventHandler:          handlers.NewEventHandler(log, eventService),
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Background workers
	eventWorker := worker.NewWorker(thePG, log, deliveryRepo, registry)
	eventWorker.Start(ctx)

	eventJanitor, err := janitor.New(deliveryRepo, log)
	if err != nil {
		log.Error("Janitor init failed", "error", err)
		os.Exit(1)
	}
	if err := eventJanitor.Start(ctx); err != nil {
		log.Error("Janitor start failed", "error", err)
		os.Exit(1)
	}

	port := env.Get("PORT", "8080", log)
	srv := &http.Server{
		Addr:    ":" + port,
		Handler: router,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("Server listening", "port", port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = eventJanitor.Stop()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("Server exited", "error", err)
		os.Exit(1)
	}
	log.Info("Shutdown complete")
}
