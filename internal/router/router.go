package router

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"invscreen/internal/handler"
	"invscreen/internal/middleware"
)

// Handlers groups the HTTP handlers mounted by Setup.
type Handlers struct {
	Health    *handler.HealthHandler
	Screening *handler.ScreeningHandler
	Ledger    *handler.LedgerHandler
}

// Setup configures the Gin engine with all routes and middleware.
func Setup(h Handlers, allowedOrigins []string, log *zap.Logger) *gin.Engine {
	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery(log))
	r.Use(middleware.CORS(allowedOrigins))
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(log))

	// Health checks
	r.GET("/healthz", h.Health.Liveness)
	r.GET("/readyz", h.Health.Readiness)

	v1 := r.Group("/api/v1")

	ledgers := v1.Group("/ledgers")
	ledgers.GET("", h.Ledger.List)
	ledgers.GET("/:ledger/invoices", h.Ledger.Entries)
	ledgers.POST("/:ledger/invoices", h.Screening.Submit)
	ledgers.GET("/:ledger/export", h.Ledger.Export)
	ledgers.POST("/:ledger/screenings", h.Screening.Screen)
	ledgers.POST("/:ledger/screenings/batch", h.Screening.ScreenBatch)
	ledgers.GET("/:ledger/screenings", h.Screening.ListByLedger)

	v1.GET("/screenings/:id", h.Screening.GetByID)

	return r
}
