package router

import (
	"stumbleDiscovery/internal/middleware"
	"stumbleDiscovery/internal/rest"

	"github.com/labstack/echo/v4"
)

func SetDiscoveryRoutes(api *echo.Group, handler *rest.DiscoveryHandler) {
	disc := api.Group("/discovery", middleware.AuthMiddleware())
	disc.GET("/next", handler.Discover)
	disc.GET("/debug", handler.DebugDiscover, middleware.AdminOnly())
	disc.POST("/feedback", handler.Feedback)
}

func SetTrendingRoutes(api *echo.Group, handler *rest.TrendingHandler) {
	api.GET("/trending", handler.ListTrending)
}

func SetSimilarityRoutes(api *echo.Group, handler *rest.SimilarityHandler) {
	api.GET("/similar/:contentId", handler.FindSimilar)
}

func SetExperimentRoutes(api *echo.Group, handler *rest.ExperimentHandler) {
	exps := api.Group("/experiments", middleware.AuthMiddleware())
	exps.GET("/:id/variant", handler.MyVariant)

	admin := api.Group("/admin/experiments", middleware.AuthMiddleware(), middleware.AdminOnly())
	admin.POST("", handler.Create)
	admin.GET("", handler.List)
	admin.GET("/:id", handler.Get)
	admin.POST("/:id/activate", handler.Activate)
	admin.POST("/:id/pause", handler.Pause)
	admin.POST("/:id/complete", handler.Complete)
	admin.GET("/:id/metrics", handler.Metrics)
}

func SetScoringConfigRoutes(api *echo.Group, handler *rest.ScoringConfigHandler) {
	admin := api.Group("/admin/scoring", middleware.AuthMiddleware(), middleware.AdminOnly())
	admin.GET("/config", handler.GetActive)
	admin.PUT("/config", handler.Upsert)
}

func SetModerationRoutes(api *echo.Group, handler *rest.ModerationHandler) {
	internal := api.Group("/internal", middleware.AuthMiddleware(), middleware.AdminOnly())
	internal.POST("/moderation-decision", handler.RecordDecision)
}
