package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jpgomezm1/selecta-eventos-manager-sub001/config"
	"github.com/jpgomezm1/selecta-eventos-manager-sub001/middlewares"
	"github.com/jpgomezm1/selecta-eventos-manager-sub001/models"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

const defaultPort = "8080"

// customErrorLogger writes the errors handlers attached to the gin context.
func customErrorLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) > 0 {
			logger.Error(c.Errors.String())
		}
	}
}

func customNotFoundHandler(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{"error": "route not found"})
}

// readinessGate answers 503 until the database and the redis setup are done.
func readinessGate() gin.HandlerFunc {
	return func(c *gin.Context) {
		if config.GetDB() == nil || !config.RedisReady() {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "service is starting"})
			return
		}
		c.Next()
	}
}

func splitAndTrim(csv string) []string {
	if strings.TrimSpace(csv) == "" {
		return nil
	}
	parts := strings.Split(csv, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func corsMiddleware() gin.HandlerFunc {
	corsConfig := cors.DefaultConfig()
	// release mode needs an explicit allowlist; an empty one denies every origin
	if gin.Mode() == gin.ReleaseMode {
		corsConfig.AllowOrigins = splitAndTrim(os.Getenv("CORS_ALLOWED_ORIGINS"))
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AddAllowMethods("GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS")
	corsConfig.AddAllowHeaders("Origin", "Content-Type", "Authorization", "Idempotency-Key", middlewares.CorrelationIdHeader)
	corsConfig.AddExposeHeaders("Content-Length", "Content-Disposition", middlewares.CorrelationIdHeader)
	corsConfig.AllowCredentials = true
	return cors.New(corsConfig)
}

func rateLimitFromEnv() (limit int64, window time.Duration, enabled bool) {
	if !strings.EqualFold(strings.TrimSpace(os.Getenv("RATE_LIMIT_ENABLED")), "true") {
		return 0, 0, false
	}
	limit = 600
	if n, err := strconv.ParseInt(strings.TrimSpace(os.Getenv("RATE_LIMIT_MAX_REQUESTS")), 10, 64); err == nil && n > 0 {
		limit = n
	}
	windowSec := int64(60)
	if n, err := strconv.ParseInt(strings.TrimSpace(os.Getenv("RATE_LIMIT_WINDOW_SECONDS")), 10, 64); err == nil && n > 0 {
		windowSec = n
	}
	return limit, time.Duration(windowSec) * time.Second, true
}

func setupRouter(logger *logrus.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middlewares.CorrelationMiddleware())
	r.Use(middlewares.MetricsMiddleware())
	r.Use(corsMiddleware())
	r.Use(customErrorLogger(logger))

	r.GET("/healthz", func(c *gin.Context) {
		if config.GetDB() == nil || !config.RedisReady() {
			c.Status(http.StatusServiceUnavailable)
			return
		}
		c.Status(http.StatusNoContent)
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.POST("/auth/login", readinessGate(), loginHandler)

	api := r.Group("/api")
	api.Use(readinessGate())
	if limit, window, ok := rateLimitFromEnv(); ok {
		api.Use(middlewares.RateLimitMiddleware(limit, window))
	}
	api.Use(middlewares.AuthMiddleware())
	api.Use(middlewares.LoaderMiddleware())
	adminOnly := middlewares.RequireRole(models.UserRoleAdmin)

	api.POST("/ingredients", createIngredientHandler)
	api.GET("/ingredients", listIngredientsHandler)
	api.GET("/ingredients/:id", getIngredientHandler)
	api.PUT("/ingredients/:id", updateIngredientHandler)
	api.POST("/ingredients/:id/suppliers", createIngredientSupplierHandler)
	api.PUT("/ingredient-suppliers/:id", updateIngredientSupplierHandler)
	api.POST("/ingredient-suppliers/:id/primary", setPrimaryIngredientSupplierHandler)

	api.POST("/recipes", createRecipeHandler)
	api.GET("/recipes", listRecipesHandler)
	api.GET("/recipes/:id", getRecipeHandler)
	api.PUT("/recipes/:id", updateRecipeHandler)

	api.POST("/quotations", createQuotationHandler)
	api.GET("/quotations/:id", getQuotationHandler)

	api.POST("/events", createEventHandler)
	api.GET("/events", listEventsHandler)
	api.GET("/events/:id", getEventHandler)
	api.PUT("/events/:id/planned-dishes", setEventPlannedDishesHandler)

	api.POST("/staff", createStaffHandler)
	api.GET("/staff", listStaffHandler)
	api.POST("/events/:id/staff-assignments", createStaffAssignmentHandler)
	api.GET("/events/:id/staff-assignments", listStaffAssignmentsHandler)
	api.GET("/events/:id/staff-cost", getEventStaffCostHandler)
	api.PUT("/staff-assignments/:id", updateStaffAssignmentHandler)
	api.POST("/staff-assignments/import", importStaffAssignmentsHandler)
	api.POST("/pay/calculate", calculatePayHandler)

	api.POST("/events/:id/purchase-orders", generatePurchaseOrderHandler)
	api.POST("/events/:id/purchase-orders/regenerate", regeneratePurchaseOrderHandler)
	api.GET("/events/:id/purchase-orders", listEventPurchaseOrdersHandler)
	api.GET("/purchase-orders/:id", getPurchaseOrderHandler)
	api.GET("/purchase-orders/:id/export", exportPurchaseOrderHandler)
	api.PATCH("/purchase-orders/:id/lines/:lineId", updatePurchaseOrderLineHandler)
	api.POST("/purchase-orders/:id/recalculate", recalculatePurchaseOrderHandler)
	api.POST("/purchase-orders/:id/approve", adminOnly, purchaseOrderTransitionHandler("approve", models.ApprovePurchaseOrder))
	api.POST("/purchase-orders/:id/purchase", purchaseOrderTransitionHandler("purchase", models.MarkPurchaseOrderPurchased))
	api.POST("/purchase-orders/:id/cancel", adminOnly, purchaseOrderTransitionHandler("cancel", models.CancelPurchaseOrder))
	api.POST("/events/:id/dispatch", dispatchEventHandler)

	api.POST("/inventory-movements", createInventoryMovementHandler)
	api.GET("/inventory-movements", listInventoryMovementsHandler)
	api.PUT("/inventory-movements/:id", updateInventoryMovementHandler)
	api.DELETE("/inventory-movements/:id", deleteInventoryMovementHandler)
	api.POST("/inventory-movements/:id/confirm", confirmInventoryMovementHandler)
	api.GET("/stock-audit", adminOnly, stockAuditHandler)

	r.NoRoute(customNotFoundHandler)
	return r
}

func main() {
	port := os.Getenv("PORT")
	if port == "" {
		port = defaultPort
	}

	logger := config.GetLogger()

	sigCtx, stopSignals := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stopSignals()

	// Start the HTTP server first; /api answers 503 until DB and Redis are ready.
	srv := &http.Server{
		Addr:    ":" + port,
		Handler: setupRouter(logger),
	}
	serverErrCh := make(chan error, 1)
	go func() {
		serverErrCh <- srv.ListenAndServe()
	}()

	config.ConnectDatabaseWithRetry()
	config.ConnectRedisWithRetry()

	db := config.GetDB()
	sqlDB, _ := db.DB()
	defer func() {
		if sqlDB != nil {
			_ = sqlDB.Close()
		}
	}()
	// AutoMigrate can block tables; run it as a separate job when SKIP_MIGRATIONS is set.
	if !config.SkipMigrations() {
		models.MigrateTable()
	} else {
		logger.WithFields(logrus.Fields{"field": "migrations"}).Warn("SKIP_MIGRATIONS=true; skipping AutoMigrate on startup")
	}

	logger.WithFields(logrus.Fields{
		"field": "http",
		"port":  port,
	}).Info("stores ready")
	log.Printf("catering backend ready on :%s", port)

	select {
	case <-sigCtx.Done():
	case err := <-serverErrCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithFields(logrus.Fields{"field": "http"}).Error("server stopped unexpectedly: " + err.Error())
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithFields(logrus.Fields{"field": "http"}).Error("graceful shutdown failed: " + err.Error())
	}

	if rdb := config.GetRedisDB(); rdb != nil {
		_ = rdb.Close()
	}
}
