package http

import (
	"log/slog"

	"github.com/gdugdh24/swipematch/internal/delivery/http/handler"
	"github.com/gdugdh24/swipematch/internal/delivery/http/middleware"
	"github.com/gin-gonic/gin"
)

type Router struct {
	swipeHandler   *handler.SwipeHandler
	feedHandler    *handler.FeedHandler
	authMiddleware *middleware.AuthMiddleware
	logger         *slog.Logger
}

func NewRouter(
	swipeHandler *handler.SwipeHandler,
	feedHandler *handler.FeedHandler,
	authMiddleware *middleware.AuthMiddleware,
	logger *slog.Logger,
) *Router {
	return &Router{
		swipeHandler:   swipeHandler,
		feedHandler:    feedHandler,
		authMiddleware: authMiddleware,
		logger:         logger,
	}
}

func (r *Router) Setup() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestLogger(r.logger))

	// Health check (supports both GET and HEAD)
	healthHandler := func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status": "ok",
		})
	}
	router.GET("/health", healthHandler)
	router.HEAD("/health", healthHandler)

	// API v1
	v1 := router.Group("/api/v1")
	protected := v1.Group("")
	protected.Use(r.authMiddleware.RequireAuth())
	{
		swipes := protected.Group("/swipes")
		{
			swipes.POST("", r.swipeHandler.CreateSwipe)
			swipes.GET("/:user_id", r.swipeHandler.GetPairState)
		}

		protected.GET("/matches", r.swipeHandler.GetMatches)

		feed := protected.Group("/feed")
		{
			feed.GET("/next", r.feedHandler.GetNext)
		}
	}

	return router
}
