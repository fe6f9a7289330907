// internal/api/api.go
package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/wb-unit/backend-go/internal/api/handlers"
	"github.com/wb-unit/backend-go/internal/api/middleware"
	"github.com/wb-unit/backend-go/internal/service"
)

type Services struct {
	ReportService  *service.ReportService
	CostService    *service.CostService
	BatchService   *service.BatchService
	ExportService  *service.ExportService
	ManagerService *service.ManagerService
}

func NewRouter(services *Services, allowedOrigins []string) *gin.Engine {
	router := gin.New()

	// Add middleware
	router.Use(middleware.Logger())
	router.Use(gin.Recovery())
	defaultOrigins := []string{"http://localhost:3000", "http://127.0.0.1:3000"}
	corsConfig := cors.Config{
		AllowOrigins:     defaultOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
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
		if services.ReportService != nil {
			reportHandler := handlers.NewReportHandler(services.ReportService, services.ExportService)
			reportGroup := apiGroup.Group("/reports")
			{
				reportGroup.GET("/range", reportHandler.GetRange)
				reportGroup.GET("/bundles/:imt_id", reportHandler.GetBundleVariants)
				reportGroup.GET("/bundles/:imt_id/daily", reportHandler.GetBundleDaily)
			}
			if services.ExportService != nil {
				apiGroup.GET("/exports", reportHandler.ListExports)
				apiGroup.GET("/exports/ledger", reportHandler.ExportLedger)
			}
		}

		if services.ManagerService != nil {
			managerHandler := handlers.NewManagerHandler(services.ManagerService)
			apiGroup.POST("/managers", managerHandler.AssignManager)
		}

		if services.CostService != nil {
			costHandler := handlers.NewCostHandler(services.CostService, services.ReportService)
			costGroup := apiGroup.Group("/costs")
			{
				costGroup.POST("", costHandler.UpdateCosts)
				costGroup.GET("/missing", costHandler.GetMissingCosts)
			}
		}

		if services.BatchService != nil {
			batchHandler := handlers.NewBatchHandler(services.BatchService)
			batchGroup := apiGroup.Group("/batches")
			{
				batchGroup.POST("", batchHandler.CreateBatch)
				batchGroup.GET("", batchHandler.ListBatches)
				batchGroup.PUT("/:id", batchHandler.UpdateBatch)
				batchGroup.DELETE("/:id", batchHandler.DeleteBatch)
				batchGroup.POST("/check", batchHandler.CheckBatches)
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
