// internal/api/api.go
package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/OthmaneWahbi/gab-flow-insights/internal/api/handlers"
	"github.com/OthmaneWahbi/gab-flow-insights/internal/api/middleware"
	"github.com/OthmaneWahbi/gab-flow-insights/internal/service"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

type Services struct {
	ReplenishmentService *service.ReplenishmentService
	// Sources serves /api/sources/*; it is a gorilla/mux router.
	Sources        http.Handler
	MaxUploadBytes int64
}

func NewRouter(services *Services, allowedOrigins []string) *gin.Engine {
	router := gin.New()

	// Add middleware
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger())
	router.Use(middleware.Recovery())
	defaultOrigins := []string{"http://localhost:3000", "http://127.0.0.1:3000"}
	corsConfig := cors.Config{
		AllowOrigins:     defaultOrigins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.RequestIDHeader},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition", middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(allowedOrigins) > 0 {
		normalizedOrigins, allowAll := normalizeAllowedOrigins(allowedOrigins)
		if allowAll {
			corsConfig.AllowOrigins = nil
			corsConfig.AllowOriginFunc = func(origin string) bool { return true }
		} else if len(normalizedOrigins) > 0 {
			corsConfig.AllowOrigins = normalizedOrigins
		}
	}
	router.Use(cors.New(corsConfig))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	apiGroup := router.Group("/api/v1")

	if services != nil {
		if services.ReplenishmentService != nil {
			h := handlers.NewReplenishmentHandler(services.ReplenishmentService, services.MaxUploadBytes)
			apiGroup.GET("/health", func(c *gin.Context) {
				c.JSON(http.StatusOK, gin.H{"status": "ok"})
			})
			apiGroup.GET("/trends", h.GetTrends)

			uploadGroup := apiGroup.Group("/uploads")
			{
				uploadGroup.POST("", h.Upload)
				uploadGroup.GET("", h.ListUploads)
				uploadGroup.GET("/:id/results", h.GetResults)
				uploadGroup.GET("/:id/dashboard", h.GetDashboard)
				uploadGroup.GET("/:id/trends", h.GetTrends)
				uploadGroup.GET("/:id/export", h.Export)
			}
		}

		if services.Sources != nil {
			router.Any("/api/sources/*path", gin.WrapH(services.Sources))
		}
	}

	return router
}

func normalizeAllowedOrigins(origins []string) ([]string, bool) {
	var (
		parsed   []string
		allowAll bool
	)
	for _, origin := range origins {
		parts := strings.Split(origin, ",")
		for _, part := range parts {
			trimmed := strings.TrimSpace(part)
			if trimmed == "" {
				continue
			}
			if trimmed == "*" {
				allowAll = true
				continue
			}
			parsed = append(parsed, trimmed)
		}
	}
	return parsed, allowAll
}
