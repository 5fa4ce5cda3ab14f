package handlers

import (
	"time"

	"pv_informant/internal/logger"
	"pv_informant/internal/metrics"
	"pv_informant/internal/service"

	"github.com/gin-gonic/gin"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// Handler wires HTTP layer to services and logging.
type Handler struct {
	services *service.Service
	log      *logger.Logger
	metrics  *metrics.Metrics
	now      func() time.Time
}

// NewHandler constructs a new HTTP handler with dependencies. log and m may be nil.
func NewHandler(services *service.Service, log *logger.Logger, m *metrics.Metrics) *Handler {
	return &Handler{services: services, log: log, metrics: m, now: time.Now}
}

// InitRoutes builds and returns the Gin router with all routes registered.
func (h *Handler) InitRoutes() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), h.metrics.Middleware())

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	router.GET("/health", h.health)
	router.GET("/metrics", gin.WrapH(h.metrics.Handler()))

	h.registerAuthRoutes(router)
	h.registerPVRoutes(router)
	h.registerWorkerRoutes(router)
	h.registerPolicyRoutes(router)

	// live tick stream, same port
	router.GET("/ws", h.wsConnect)

	return router
}

func (h *Handler) registerAuthRoutes(r *gin.Engine) {
	auth := r.Group("/auth")
	{
		auth.POST("/sign-up", h.signUp)
		auth.POST("/sign-in", h.signIn)
	}
}

func (h *Handler) registerPVRoutes(r *gin.Engine) {
	pv := r.Group("/pv")
	{
		pv.GET("", h.getExcess)
		pv.GET("/status", h.getStatus)
	}
}

func (h *Handler) registerWorkerRoutes(r *gin.Engine) {
	r.GET("/workers", h.listWorkers)

	worker := r.Group("/worker")
	{
		worker.GET("/:address", h.getActivity)
		worker.POST("/:address/report", h.report)
		worker.POST("/:address", h.requireOperator, h.register)
	}
}

func (h *Handler) registerPolicyRoutes(r *gin.Engine) {
	r.GET("/policy", h.getPolicy)
	r.PUT("/policy", h.requireOperator, h.putPolicy)
}
