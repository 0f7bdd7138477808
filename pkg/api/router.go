package api

import (
	"github.com/LENAX/roadmap-engine/pkg/api/handler"
	"github.com/LENAX/roadmap-engine/pkg/api/middleware"
	"github.com/LENAX/roadmap-engine/pkg/core/engine"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// SetupRouter 设置路由
func SetupRouter(eng *engine.Engine, logger *zap.Logger, version string) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	// 全局中间件
	router.Use(middleware.Recovery(logger))
	router.Use(middleware.Logger(logger.Named("http")))
	router.Use(middleware.CORS())

	roadmapHandler := handler.NewRoadmapHandler(eng)
	eventsHandler := handler.NewEventsHandler(eng, logger)
	healthHandler := handler.NewHealthHandler(eng, version)

	// 健康检查路由（不带前缀）
	router.GET("/health", healthHandler.Health)
	router.GET("/ready", healthHandler.Ready)

	v1 := router.Group("/api/v1")
	{
		roadmaps := v1.Group("/roadmaps")
		{
			roadmaps.GET("", roadmapHandler.List)
			roadmaps.POST("", roadmapHandler.Submit)
			roadmaps.POST("/validate", roadmapHandler.Validate)
			roadmaps.POST("/generated", roadmapHandler.SubmitGenerated)
			roadmaps.GET("/:id", roadmapHandler.Get)
			roadmaps.DELETE("/:id", roadmapHandler.Delete)
			roadmaps.GET("/:id/order", roadmapHandler.Order)
			roadmaps.GET("/:id/graph", roadmapHandler.Graph)
			roadmaps.GET("/:id/validation", roadmapHandler.Validation)
			roadmaps.GET("/:id/export", roadmapHandler.Export)
		}

		v1.GET("/events", eventsHandler.Stream)
	}

	return router
}
