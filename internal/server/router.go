package server

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/lumahealth/luma-backend/internal/http/handlers"
	"github.com/lumahealth/luma-backend/internal/http/middleware"
	"github.com/lumahealth/luma-backend/internal/pkg/env"
	"github.com/lumahealth/luma-backend/internal/pkg/logger"
)

type RouterConfig struct {
	Log                   *logger.Logger
	Redis                 *redis.Client
	AuthMiddleware        *middleware.AuthMiddleware
	ChatHandler           *handlers.ChatHandler
	MoodHandler           *handlers.MoodHandler
	ActivityHandler       *handlers.ActivityHandler
	RecommendationHandler *handlers.RecommendationHandler
	DashboardHandler      *handlers.DashboardHandler
	EventHandler          *handlers.EventHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()

	// Cors
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{
			"http://localhost:80",
			"http://localhost:3000",
			"http://localhost:5173",
		},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
	}))

	// ===============
	// || Public    ||
	// ===============
	router.GET("/healthcheck", handlers.HealthCheck)

	// ===============
	// || Protected ||
	// ===============
	api := router.Group("/api")
	api.Use(cfg.AuthMiddleware.RequireAuth())
	api.Use(middleware.RequestLogger(cfg.Log))
	if cfg.Redis != nil {
		api.Use(middleware.RateLimiter(cfg.Log, cfg.Redis, middleware.RateLimiterOptions{
			Window:      env.GetDuration("RATE_LIMIT_WINDOW", time.Minute, cfg.Log),
			MaxRequests: int64(env.GetInt("RATE_LIMIT_MAX_REQUESTS", 100, cfg.Log)),
		}))
	}

	// Chat
	api.POST("/chat/sessions", cfg.ChatHandler.CreateSession)
	api.GET("/chat/sessions", cfg.ChatHandler.ListSessions)
	api.POST("/chat/message", cfg.ChatHandler.SendMessage)
	api.GET("/chat/sessions/:sessionId", cfg.ChatHandler.GetSession)
	api.GET("/chat/sessions/:sessionId/history", cfg.ChatHandler.GetHistory)
	api.POST("/chat/sessions/:sessionId/analyze", cfg.ChatHandler.AnalyzeSession)
	api.DELETE("/chat/sessions/:sessionId", cfg.ChatHandler.DeleteSession)
	// Mood
	api.POST("/moods", cfg.MoodHandler.Create)
	api.GET("/moods", cfg.MoodHandler.List)
	// Activity
	api.POST("/activities", cfg.ActivityHandler.Log)
	api.GET("/activities", cfg.ActivityHandler.List)
	// Recommendations
	api.GET("/recommendations", cfg.RecommendationHandler.Active)
	api.GET("/recommendations/history", cfg.RecommendationHandler.History)
	api.POST("/recommendations/:id/complete", cfg.RecommendationHandler.Complete)
	api.POST("/recommendations/generate", cfg.RecommendationHandler.RequestNew)
	api.GET("/recommendations/stats", cfg.RecommendationHandler.Stats)
	// Dashboard
	api.GET("/dashboard/summary", cfg.DashboardHandler.Summary)
	api.GET("/dashboard/activity-history", cfg.DashboardHandler.ActivityHistory)
	api.GET("/dashboard/mood-trends", cfg.DashboardHandler.MoodTrends)
	// Events
	api.GET("/events/deliveries/:id", cfg.EventHandler.GetDelivery)
	api.GET("/events/:eventId/deliveries", cfg.EventHandler.ListByEvent)

	return router
}
