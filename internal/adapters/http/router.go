package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/fiber/v2/middleware/timeout"
	"github.com/gofiber/websocket/v2"

	"github.com/emberline/faregate/internal/pkg/metrics"
)

// SetupRoutes registers all REST, GraphQL, and WebSocket routes.
func SetupRoutes(app *fiber.App, deps *Dependencies) {
	// Prometheus metrics
	app.Use(metrics.Middleware())
	app.Get("/metrics", metrics.Handler())

	// Response compression (gzip)
	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed, // Balance speed vs compression ratio
	}))

	// Request ID
	app.Use(requestid.New())

	// Propagate request ID into slog context
	app.Use(RequestIDLogMiddleware())

	// Access logs (structured HTTP request logging)
	app.Use(AccessLogMiddleware())

	// Rate limiting: 240 requests per minute per IP. Tap endpoints are hit
	// by every gate, so the ceiling is higher than a read-only API's.
	app.Use(limiter.New(limiter.Config{
		Max:        240,
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(429).JSON(fiber.Map{
				"error":   "rate limit exceeded",
				"message": "too many requests, please try again later",
			})
		},
		SkipFailedRequests: false,
	}))

	// Security headers + API version
	app.Use(func(c *fiber.Ctx) error {
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("X-Frame-Options", "DENY")
		c.Set("X-XSS-Protection", "1; mode=block")
		c.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Set("X-API-Version", "1.0.0")
		return c.Next()
	})

	// ETag for conditional caching
	app.Use(ETagMiddleware())

	// Default Cache-Control headers
	app.Use(CachingMiddleware())

	// Health & readiness (no timeout — fast internal checks)
	app.Get("/v1/health", HealthHandler(deps))
	app.Get("/v1/ready", ReadyHandler(deps))

	// REST API v1 — 15s per-request timeout
	v1 := app.Group("/v1")
	to := func(h fiber.Handler) fiber.Handler {
		return timeout.NewWithContext(h, 15*time.Second)
	}

	// Systems
	v1.Get("/systems", to(ListSystemsHandler(deps)))
	v1.Get("/systems/:id", to(GetSystemHandler(deps)))
	v1.Get("/systems/:id/stats", to(SystemStatsHandler(deps)))
	v1.Get("/systems/:id/transactions", to(SystemTransactionsHandler(deps)))

	// Stations
	v1.Post("/systems/:id/stations", to(CreateStationHandler(deps)))
	v1.Get("/systems/:id/stations", to(ListStationsHandler(deps)))
	v1.Get("/stations/nearest", to(NearestStationHandler(deps)))
	v1.Get("/stations/:id", to(GetStationHandler(deps)))
	v1.Patch("/stations/:id", to(UpdateStationHandler(deps)))
	v1.Delete("/stations/:id", to(DeleteStationHandler(deps)))
	v1.Get("/stations/:id/gates", to(StationGatesHandler(deps)))
	v1.Get("/stations/:id/stats", to(StationStatsHandler(deps)))

	// Routes
	v1.Post("/systems/:id/routes", to(CreateRouteHandler(deps)))
	v1.Get("/systems/:id/routes", to(ListRoutesHandler(deps)))
	v1.Get("/routes/:id", to(GetRouteHandler(deps)))
	v1.Post("/routes/:id/stations", to(AddRouteStationHandler(deps)))
	v1.Delete("/routes/:id/stations/:stationID", to(RemoveRouteStationHandler(deps)))
	v1.Put("/routes/:id/order", to(ReorderRouteHandler(deps)))
	v1.Delete("/routes/:id", to(DeleteRouteHandler(deps)))
	v1.Get("/routes/:id/stats", to(RouteStatsHandler(deps)))

	// Gates
	v1.Post("/gates", to(RegisterGateHandler(deps)))
	v1.Get("/gates/:id", to(GetGateHandler(deps)))
	v1.Patch("/gates/:id", to(SetGateEnabledHandler(deps)))
	v1.Delete("/gates/:id", to(DeleteGateHandler(deps)))

	// Taps & journeys
	v1.Post("/taps", to(GateTapHandler(deps)))
	v1.Post("/taps/in", to(TapInHandler(deps)))
	v1.Post("/taps/out", to(TapOutHandler(deps)))
	v1.Get("/riders/:id/journey", to(RiderJourneyHandler(deps)))
	v1.Post("/riders/:id/force-close", to(ForceCloseHandler(deps)))
	v1.Get("/riders/:id/transactions", to(RiderTransactionsHandler(deps)))
	v1.Get("/riders/:id/pending-payments", to(PendingPaymentsHandler(deps)))

	// Transactions
	v1.Get("/transactions/:id", to(GetTransactionHandler(deps)))
	v1.Post("/transactions/:id/refund", to(RefundHandler(deps)))

	// Staff & payroll
	v1.Post("/systems/:id/staff", to(HireStaffHandler(deps)))
	v1.Get("/systems/:id/staff", to(ListStaffHandler(deps)))
	v1.Get("/systems/:id/staff/:rider", to(GetStaffHandler(deps)))
	v1.Delete("/systems/:id/staff/:rider", to(DismissStaffHandler(deps)))
	v1.Post("/systems/:id/staff/:rider/shift", to(StartShiftHandler(deps)))
	v1.Delete("/systems/:id/staff/:rider/shift", to(EndShiftHandler(deps)))
	v1.Put("/staff/:rider/performance", to(UpdatePerformanceHandler(deps)))
	v1.Get("/staff/:rider/performance", to(GetPerformanceHandler(deps)))

	// Presence
	v1.Post("/presence/:id", to(ConnectHandler(deps)))
	v1.Delete("/presence/:id", to(DisconnectHandler(deps)))

	// Persistence status
	v1.Get("/ledger/status", to(LedgerStatusHandler(deps)))

	// GraphQL
	app.Post("/graphql", GraphQLHandler(deps))

	// WebSocket
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws", websocket.New(WebSocketHandler(deps.NATS)))
}
