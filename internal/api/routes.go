package api

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/codyseavey/tcg-market/internal/api/handlers"
	"github.com/codyseavey/tcg-market/internal/config"
	"github.com/codyseavey/tcg-market/internal/metrics"
	"github.com/codyseavey/tcg-market/internal/services"
	"github.com/codyseavey/tcg-market/internal/session"
)

// Services groups everything the HTTP layer calls into
type Services struct {
	Valuation  *services.ValuationService
	Collection *services.CollectionService
	Price      *services.PriceService
	Snapshot   *services.SnapshotService
	Catalog    *services.CatalogService
}

func SetupRouter(cfg config.HTTPConfig, jwtSecret string, svc Services, limiter *RateLimiter, log *zap.Logger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), RequestLogger(log), metrics.GinMiddleware())

	frontendPath := cfg.FrontendDistPath
	serveFrontend := frontendPath != "" && dirExists(frontendPath)

	corsConfig := cors.DefaultConfig()
	if len(cfg.CORSAllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.CORSAllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization", session.UserIDHeader}
	corsConfig.AllowCredentials = false // Explicitly set
	router.Use(cors.New(corsConfig))

	cardHandler := handlers.NewCardHandler(svc.Catalog)
	collectionHandler := handlers.NewCollectionHandler(svc.Collection, svc.Valuation, svc.Snapshot)
	holdingHandler := handlers.NewHoldingHandler(svc.Collection)
	priceHandler := handlers.NewPriceHandler(svc.Price)

	// API routes
	api := router.Group("/api")
	if limiter != nil {
		api.Use(limiter.Middleware())
	}
	api.Use(session.Middleware(jwtSecret))
	{
		cards := api.Group("/cards")
		{
			cards.GET("/search", cardHandler.SearchCards)
			cards.GET("/:id", cardHandler.GetCard)
			cards.GET("/:id/prices", priceHandler.GetCardPrices)
			cards.GET("/:id/prices/latest", priceHandler.GetLatestPrice)
		}

		collection := api.Group("/collection")
		{
			collection.GET("/value", collectionHandler.GetValue)
			collection.GET("/editions", collectionHandler.GetEditions)
			collection.GET("/cards", collectionHandler.GetCards)
			collection.GET("/history", collectionHandler.GetValueHistory)
			collection.GET("/history/latest", collectionHandler.GetLastSnapshot)
			collection.POST("/snapshot", collectionHandler.TakeSnapshot)
		}

		holdings := api.Group("/holdings")
		{
			holdings.POST("", holdingHandler.AddHolding)
			holdings.PUT("/:id/price", holdingHandler.SetPrice)
			holdings.POST("/:id/sold", holdingHandler.MarkSold)
		}
	}

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Serve frontend static files
	if serveFrontend {
		indexPath := filepath.Join(frontendPath, "index.html")

		router.Static("/assets", filepath.Join(frontendPath, "assets"))
		router.StaticFile("/vite.svg", filepath.Join(frontendPath, "vite.svg"))

		router.GET("/", func(c *gin.Context) {
			c.File(indexPath)
		})

		// SPA fallback - serve index.html for all non-API routes
		router.NoRoute(func(c *gin.Context) {
			if strings.HasPrefix(c.Request.URL.Path, "/api") {
				c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
				return
			}
			c.File(indexPath)
		})
	}

	return router
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.IsDir()
}
