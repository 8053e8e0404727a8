package api

import (
	"net/http"

	"voicecmd-backend/internal/auth/delivery"
	commandDelivery "voicecmd-backend/internal/command/delivery"
	deviceDelivery "voicecmd-backend/internal/device/delivery"
	"voicecmd-backend/pkg/config"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func SetupRoutes(r *gin.Engine, cfg *config.Config, commandHandler *commandDelivery.CommandHandler, deviceHandler *deviceDelivery.DeviceHandler, settingsHandler *SettingsHandler) {
	auth := delivery.AuthMiddleware(cfg.JWTSecret, cfg.AuthEnabled)
	limiter := delivery.NewRateLimiter(cfg.RateLimitPerMinute)

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	{
		// Health check (no auth required)
		api.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
		})

		// Command routes (protected)
		commands := api.Group("/commands")
		commands.Use(auth)
		{
			commands.POST("/text", delivery.RateLimitMiddleware(limiter), commandHandler.SubmitText)
			commands.POST("/voice", delivery.RateLimitMiddleware(limiter), commandHandler.SubmitVoice)
			commands.GET("/runs", commandHandler.GetRuns)
			commands.GET("/runs/:id", commandHandler.GetRunByID)
		}

		// Reply device routes (protected)
		devices := api.Group("/devices")
		devices.Use(auth)
		{
			devices.POST("", deviceHandler.Register)
			devices.DELETE("/:token", deviceHandler.Unregister)
		}

		// Settings routes - pipeline configuration, Ollama switchable at runtime
		settings := api.Group("/settings")
		settings.Use(auth)
		{
			settings.GET("", settingsHandler.GetSettings)
			settings.PUT("/ollama", settingsHandler.UpdateOllama)
			settings.POST("/ollama/test", settingsHandler.TestOllama)
		}
	}
}
