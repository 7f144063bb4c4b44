package http

import (
	"time"

	"sbr_farm/internal/http/handlers"
	"sbr_farm/internal/http/middleware"
	"sbr_farm/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RateLimits configures the per-IP and per-player fixed windows.
type RateLimits struct {
	APILimit     int
	APIWindow    time.Duration
	ActionLimit  int
	ActionWindow time.Duration
}

// Deps is everything the router needs.
type Deps struct {
	Player  *handlers.Handler
	Admin   *handlers.AdminHandler
	// nil when no bot token is configured
	Auth    *handlers.AuthHandler
	Health  *handlers.HealthHandler
	Tokens  *service.Tokens
	Limiter *middleware.RateLimiter
	Limits  RateLimits
}

func RegisterRoutes(r *gin.Engine, d Deps) {
	r.Use(middleware.RequestLogger(), middleware.Metrics())

	// Health checks (no rate limiting)
	r.GET("/health", d.Health.Health)
	r.GET("/healthz", d.Health.Liveness)
	r.GET("/readyz", d.Health.Readiness)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	auth := middleware.JWT(d.Tokens)

	// API v1 routes
	v1 := r.Group("/api/v1")
	v1.Use(d.Limiter.ByIP(d.Limits.APILimit, d.Limits.APIWindow))
	registerAPIRoutes(v1, d, auth)

	admin := r.Group("/admin")
	admin.Use(auth, middleware.RequireAdmin())
	registerAdminRoutes(admin, d.Admin)
}

func registerAPIRoutes(api *gin.RouterGroup, d Deps, auth gin.HandlerFunc) {
	h := d.Player

	if d.Auth != nil {
		api.POST("/auth/telegram", d.Auth.TelegramLogin)
	}

	// Game actions are limited per player, not per IP
	actionRL := d.Limiter.ByUser(d.Limits.ActionLimit, d.Limits.ActionWindow)
	api.POST("/actions", auth, actionRL, h.PostAction)
	api.POST("/callback", auth, actionRL, h.PostCallback)

	me := api.Group("/me")
	me.Use(auth)
	{
		me.GET("", h.Me)
		me.GET("/wallet", h.MyWallet)
		me.GET("/crops", h.MyCrops)
		me.GET("/inventory", h.MyInventory)
		me.GET("/ledger", h.MyLedger)
		me.GET("/vip/grants", h.MyGrants)
		me.GET("/payments", h.MyPayments)
	}

	api.GET("/contests/:type", h.GetContest)

	payments := api.Group("/payments")
	payments.Use(auth)
	{
		payments.POST("/withdraw", h.RequestWithdrawal)
		payments.POST("/deposit", h.RecordDeposit)
	}
}

func registerAdminRoutes(admin *gin.RouterGroup, h *handlers.AdminHandler) {
	admin.POST("/users", h.CreateUser)
	admin.GET("/users/:id", h.FindUser)
	admin.POST("/users/:id/adjust", h.AdjustResource)
	admin.POST("/users/:id/vip", h.SetVipTier)

	admin.GET("/payments", h.PendingPayments)
	admin.POST("/payments/:id/approve", h.ApprovePayment)
	admin.POST("/payments/:id/reject", h.RejectPayment)

	admin.GET("/stats", h.Stats)
	admin.GET("/audit", h.AuditLog)

	admin.GET("/jobs", h.Jobs)
	admin.POST("/jobs/:name/run", h.RunJob)
}
