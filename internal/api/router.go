package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/parlaycity/core/internal/api/handler"
	"github.com/parlaycity/core/internal/api/middleware"
	"github.com/parlaycity/core/internal/config"
	"github.com/parlaycity/core/internal/engine"
	"github.com/parlaycity/core/internal/lockup"
	"github.com/parlaycity/core/internal/oracle"
	"github.com/parlaycity/core/internal/pool"
	"github.com/parlaycity/core/internal/registry"
	"github.com/parlaycity/core/internal/ws"
)

// RouterDeps bundles every dependency needed to build the router.
// Populated once in main() and passed to SetupRouter.
type RouterDeps struct {
	Engine   *engine.Engine
	Pool     *pool.Pool
	Facility *lockup.Facility
	Registry *registry.Registry
	Admin    *oracle.AdminOracle
	Slow     *oracle.OptimisticOracle
	Hub      *ws.Hub
	Cfg      *config.Config
}

// SetupRouter creates and configures the main Gin engine with all routes,
// middleware, CORS, and rate limiting rules.
func SetupRouter(deps RouterDeps) *gin.Engine {
	if deps.Cfg.IsProd() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Logger())
	r.Use(gin.Recovery())

	// ── CORS ─────────────────────────────────────────────────────────────────
	r.Use(corsMiddleware(deps.Cfg))

	// ── Health & metrics ─────────────────────────────────────────────────────
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// ── Handlers ─────────────────────────────────────────────────────────────
	poolH := handler.NewPoolHandler(deps.Pool)
	ticketH := handler.NewTicketHandler(deps.Engine)
	lockH := handler.NewLockHandler(deps.Facility)
	adminH := handler.NewAdminHandler(deps.Registry, deps.Admin, deps.Slow)

	// ── Middleware ───────────────────────────────────────────────────────────
	identity := middleware.IdentityMiddleware()
	writeRL := middleware.RateLimitMiddleware(30) // 30 req/s per IP on write endpoints

	api := r.Group("/api")
	{
		// ── Pool ─────────────────────────────────────────────────────────────
		poolGroup := api.Group("/pool")
		{
			poolGroup.GET("", poolH.State)
			authed := poolGroup.Group("")
			authed.Use(identity, writeRL)
			{
				authed.POST("/deposit", poolH.Deposit)
				authed.POST("/withdraw", poolH.Withdraw)
				authed.GET("/shares", poolH.Shares)
			}
		}

		// ── Tickets ──────────────────────────────────────────────────────────
		tickets := api.Group("/tickets")
		{
			tickets.GET("/count", ticketH.Count)
			tickets.GET("/:id", ticketH.Get)
			// Settlement is permissionless; still rate limited.
			tickets.POST("/:id/settle", writeRL, ticketH.Settle)

			authed := tickets.Group("")
			authed.Use(identity, writeRL)
			{
				authed.POST("", ticketH.Buy)
				authed.POST("/:id/claim-progressive", ticketH.ClaimProgressive)
				authed.POST("/:id/cashout", ticketH.Cashout)
				authed.POST("/:id/claim", ticketH.Claim)
			}
		}

		// ── Lock facility ────────────────────────────────────────────────────
		locks := api.Group("/locks")
		{
			locks.GET("/:id", lockH.GetPosition)
			locks.GET("/:id/pending", lockH.PendingReward)
			locks.POST("/:id/settle", writeRL, lockH.SettleRewards)

			authed := locks.Group("")
			authed.Use(identity, writeRL)
			{
				authed.POST("", lockH.Lock)
				authed.POST("/:id/unlock", lockH.Unlock)
				authed.POST("/:id/early-withdraw", lockH.EarlyWithdraw)
				authed.POST("/claim", lockH.ClaimFees)
				authed.GET("/pending", lockH.PendingRewards)
				authed.POST("/sweep", lockH.Sweep)
			}
		}

		// ── Legs & oracles ───────────────────────────────────────────────────
		legs := api.Group("/legs")
		{
			legs.GET("", adminH.ListLegs)
			legs.GET("/:id", adminH.GetLeg)
			legs.GET("/:id/status", adminH.Status)
			legs.POST("/:id/finalize", writeRL, adminH.Finalize)

			authed := legs.Group("")
			authed.Use(identity, writeRL)
			{
				authed.POST("", adminH.CreateLeg)
				authed.POST("/:id/deactivate", adminH.Deactivate)
				authed.POST("/:id/resolve", adminH.Resolve)
				authed.POST("/:id/propose", adminH.Propose)
				authed.POST("/:id/challenge", adminH.Challenge)
				authed.POST("/:id/resolve-dispute", adminH.ResolveDispute)
			}
		}
	}

	// ── WebSocket ─────────────────────────────────────────────────────────────
	if deps.Hub != nil {
		r.GET("/ws", func(c *gin.Context) {
			deps.Hub.ServeWs(c.Writer, c.Request)
		})
	}

	return r
}

// ── CORS helper ───────────────────────────────────────────────────────────────

// corsMiddleware returns a gin middleware that sets appropriate CORS headers.
// In development all origins are allowed; in production only configured WS
// origins.
func corsMiddleware(cfg *config.Config) gin.HandlerFunc {
	allowed := map[string]bool{}
	if cfg.Server.WSAllowedOrigins != "" {
		for _, o := range splitAndTrim(cfg.Server.WSAllowedOrigins) {
			allowed[o] = true
		}
	}

	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")

		if !cfg.IsProd() {
			// Development: allow any origin
			c.Header("Access-Control-Allow-Origin", "*")
		} else if origin != "" && allowed[origin] {
			c.Header("Access-Control-Allow-Origin", origin)
		}

		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, X-Request-ID, X-Account-ID")
		c.Header("Access-Control-Max-Age", "86400")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// splitAndTrim splits a comma-separated list and trims whitespace.
func splitAndTrim(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
