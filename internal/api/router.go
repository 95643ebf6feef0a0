package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/James-Fry-2/train-data-api/internal/config"
	"github.com/James-Fry-2/train-data-api/internal/handler"
	"github.com/James-Fry-2/train-data-api/internal/middleware"
)

// Handlers groups the HTTP handlers mounted by the router
type Handlers struct {
	Journey *handler.JourneyHandler
	Station *handler.StationHandler
	Health  *handler.HealthHandler
}

// SetupRouter 设置路由，ctx 结束时停止限流清理
func SetupRouter(ctx context.Context, cfg *config.Config, h Handlers) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.Logger())

	// CORS 中间件
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	// 健康检查
	r.GET("/health", h.Health.Health)

	// API 路由组
	api := r.Group("/api/v1")
	api.Use(middleware.Auth(cfg.JWTSecret), middleware.RateLimit(ctx, cfg.RateLimit, cfg.RateLimitWindow))
	{
		// 行程检测接口
		journey := api.Group("/journey")
		{
			journey.POST("/location", h.Journey.PostLocation)
			journey.POST("/motion/start", h.Journey.StartMotion)
			journey.POST("/motion/stop", h.Journey.StopMotion)
			journey.POST("/motion/samples", h.Journey.PostMotionSamples)
			journey.GET("/current", h.Journey.GetCurrent)
			journey.DELETE("/session", h.Journey.EndSession)
			journey.GET("/visits", h.Journey.GetVisits)
			journey.GET("/services", h.Journey.GetServices)
			journey.POST("/match", h.Journey.PostMatch)
		}

		// 车站接口
		stations := api.Group("/stations")
		{
			stations.GET("", h.Station.Search)
			stations.GET("/nearest", h.Station.Nearest)
			stations.GET("/:code", h.Station.Get)
			stations.GET("/:code/next", h.Station.NextDepartures)
		}
	}

	return r
}
