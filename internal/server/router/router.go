package router

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/agritrace/internal/server/handlers"
)

// New wires the Gin engine with required routes and middlewares.
func New(accountHandler *handlers.AccountHandler, batchHandler *handlers.BatchHandler, jwtSecret string, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(zapLoggerMiddleware(logger))

	api := r.Group("/api")

	api.POST("/register", accountHandler.Register)
	api.POST("/login", accountHandler.Login)

	api.POST("/wallet/connect", batchHandler.ConnectWallet)
	api.DELETE("/wallet", batchHandler.DisconnectWallet)
	api.GET("/wallet", batchHandler.WalletStatus)

	api.GET("/batches/:id", batchHandler.GetBatch)
	api.GET("/batches/:id/qr", batchHandler.QRPayload)
	api.GET("/farmers/:address/batches", batchHandler.ListFarmerBatches)
	api.GET("/ledger/status", batchHandler.LedgerStatus)

	writes := api.Group("", handlers.RequireAuth(jwtSecret))
	writes.POST("/batches", batchHandler.CreateBatch)
	writes.POST("/batches/:id/distributors", batchHandler.AppendDistributor)
	writes.POST("/batches/:id/retailers", batchHandler.AppendRetailer)

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	if logger != nil {
		logger.Info("router initialized")
	}

	return r
}

func zapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}

	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.Info("request completed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("client_ip", c.ClientIP()))
	}
}
