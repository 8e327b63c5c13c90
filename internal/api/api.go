// internal/api/api.go
package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/andresuchdata/autopo-reorder/internal/api/handlers"
	"github.com/andresuchdata/autopo-reorder/internal/api/middleware"
	"github.com/andresuchdata/autopo-reorder/internal/service"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

type Services struct {
	ReorderService *service.ReorderService
	// Metrics serves the Prometheus scrape endpoint when set.
	Metrics http.Handler
}

func NewRouter(services *Services, allowedOrigins []string) *gin.Engine {
	router := gin.New()

	// Add middleware
	router.Use(middleware.Logger("/health", "/metrics"))
	router.Use(middleware.Recovery())
	defaultOrigins := []string{"http://localhost:3000", "http://127.0.0.1:3000"}
	corsConfig := cors.Config{
		AllowOrigins:     defaultOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
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
		if services.Metrics != nil {
			router.GET("/metrics", gin.WrapH(services.Metrics))
		}

		if services.ReorderService != nil {
			reorderHandler := handlers.NewReorderHandler(services.ReorderService)
			reorderGroup := apiGroup.Group("/reorder")
			{
				reorderGroup.GET("/plan", reorderHandler.GetPlan)
				reorderGroup.POST("/plan", reorderHandler.PostPlan)
			}
			apiGroup.GET("/catalog/items", reorderHandler.GetItems)

			promotionHandler := handlers.NewPromotionHandler(services.ReorderService)
			promotionGroup := apiGroup.Group("/promotions")
			{
				promotionGroup.GET("", promotionHandler.ListPromotions)
				promotionGroup.PUT("/:sku", promotionHandler.StartPromotion)
				promotionGroup.DELETE("/:sku", promotionHandler.EndPromotion)
			}
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
