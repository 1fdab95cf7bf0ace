// Package router provides HTTP routing, middleware configuration, and server setup for the web application
package router

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"log"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/gofiber/fiber/v3/middleware/compress"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/helmet"
	"github.com/gofiber/fiber/v3/middleware/limiter"
	"github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/gofiber/fiber/v3/middleware/requestid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/propertyshodh/lead-pipeline/app/dto"
	"github.com/propertyshodh/lead-pipeline/app/handlers"
	"github.com/propertyshodh/lead-pipeline/app/middleware"
	"github.com/propertyshodh/lead-pipeline/config"
	"github.com/propertyshodh/lead-pipeline/utils"
)

// Router interface for HTTP routing
type Router interface {
	SetupRoutes()
	Start(address string) error
	GetApp() *fiber.App
}

// FiberRouter implements Router using Fiber v3
type FiberRouter struct {
	app                 *fiber.App
	cfg                 *config.ProductionConfig
	authMiddleware      *middleware.AuthMiddleware
	adminAuthHandler    handlers.AdminAuthHandlerInterface
	pipelineHandler     handlers.PipelineHandlerInterface
	leadIntakeHandler   handlers.LeadIntakeHandlerInterface
	adminAccountHandler handlers.AdminAccountHandlerInterface
}

// NewFiberRouter creates a new Fiber router
func NewFiberRouter(
	cfg *config.ProductionConfig,
	authMiddleware *middleware.AuthMiddleware,
	adminAuthHandler handlers.AdminAuthHandlerInterface,
	pipelineHandler handlers.PipelineHandlerInterface,
	leadIntakeHandler handlers.LeadIntakeHandlerInterface,
	adminAccountHandler handlers.AdminAccountHandlerInterface,
) Router {
	app := fiber.New(fiber.Config{
		AppName:      "Lead Pipeline API",
		ServerHeader: "lead-pipeline",
		ErrorHandler: errorHandler,
		BodyLimit:    cfg.Server.BodyLimit,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
		JSONEncoder:  json.Marshal,
		JSONDecoder:  json.Unmarshal,
	})

	return &FiberRouter{
		app:                 app,
		cfg:                 cfg,
		authMiddleware:      authMiddleware,
		adminAuthHandler:    adminAuthHandler,
		pipelineHandler:     pipelineHandler,
		leadIntakeHandler:   leadIntakeHandler,
		adminAccountHandler: adminAccountHandler,
	}
}

// SetupRoutes configures all application routes
func (r *FiberRouter) SetupRoutes() {
	log.Println("Setting up routes...")

	// Global middleware
	r.setupMiddleware()

	if r.cfg.Metrics.Enabled {
		path := r.cfg.Metrics.Path
		if path == "" {
			path = "/metrics"
		}
		r.app.Get(path, adaptor.HTTPHandler(promhttp.Handler()))
	}

	api := r.app.Group("/api/v1")

	// Health check route (no rate limiting)
	api.Get("/health", r.healthCheck)

	// General rate limiting for all API routes
	api.Use(limiter.New(limiter.Config{
		Max:        r.cfg.Security.GlobalRateLimit,
		Expiration: r.cfg.Security.RateLimitWindow,
		KeyGenerator: func(c fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: rateLimitReached,
		Next: func(c fiber.Ctx) bool {
			// Health checks and open event streams stay outside the limiter
			return c.Path() == "/api/v1/health" || c.Path() == "/api/v1/pipeline/stream"
		},
	}))

	// Auth routes with stricter rate limiting
	auth := api.Group("/auth/admin")
	auth.Use(limiter.New(limiter.Config{
		Max:        r.cfg.Security.AuthRateLimit,
		Expiration: r.cfg.Security.RateLimitWindow,
		KeyGenerator: func(c fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: rateLimitReached,
	}))

	auth.Post("/login", r.adminAuthHandler.Login)
	auth.Post("/refresh", r.adminAuthHandler.Refresh)
	auth.Post("/logout", r.authMiddleware.AdminAuthenticate(), r.adminAuthHandler.Logout)

	// Operator pipeline routes: every endpoint operates on the caller's own leads
	pipeline := api.Group("/pipeline", r.authMiddleware.AdminAuthenticate())
	pipeline.Get("/leads", r.pipelineHandler.ListMyLeads)
	pipeline.Get("/leads/export", r.pipelineHandler.Export)
	pipeline.Get("/leads/:id", r.pipelineHandler.GetMyLead)
	pipeline.Put("/leads/:id/status", r.pipelineHandler.SetStatus)
	pipeline.Post("/leads/:id/notes", r.pipelineHandler.AddNote)
	pipeline.Get("/leads/:id/notes", r.pipelineHandler.ListNotes)
	pipeline.Post("/leads/:id/unassign", r.pipelineHandler.Unassign)
	pipeline.Get("/stream", r.pipelineHandler.Stream)

	// Administration routes: intake, distribution and account management
	admin := api.Group("/admin", r.authMiddleware.AdminAuthenticate())
	admin.Post("/leads", r.leadIntakeHandler.CreateLead)
	admin.Put("/leads/:id/assign", r.authMiddleware.RequireSuperAdmin(), r.leadIntakeHandler.AssignLead)

	accounts := admin.Group("/admins", r.authMiddleware.RequireSuperAdmin())
	accounts.Post("/", r.adminAccountHandler.CreateAdmin)
	accounts.Get("/", r.adminAccountHandler.ListAdmins)
	accounts.Put("/:id", r.adminAccountHandler.UpdateAdmin)
	accounts.Post("/:id/deactivate", r.adminAccountHandler.DeactivateAdmin)

	// Not found handler
	r.app.Use(r.notFoundHandler)

	log.Println("Routes configured successfully")
}

// setupMiddleware configures global middleware
func (r *FiberRouter) setupMiddleware() {
	// Request ID middleware - must be first
	r.app.Use(requestid.New(requestid.Config{
		Header: "X-Request-ID",
		Generator: func() string {
			return generateRequestID()
		},
	}))

	// Security headers middleware
	r.app.Use(helmet.New(helmet.Config{
		XSSProtection:         "1; mode=block",
		ContentTypeNosniff:    "nosniff",
		XFrameOptions:         "DENY",
		HSTSMaxAge:            31536000,
		ContentSecurityPolicy: "default-src 'self'; frame-ancestors 'none';",
		ReferrerPolicy:        "strict-origin-when-cross-origin",
	}))

	// CORS middleware with production settings
	r.app.Use(cors.New(cors.Config{
		AllowOrigins: r.cfg.Security.AllowedOrigins,
		AllowMethods: r.cfg.Security.AllowedMethods,
		AllowHeaders: r.cfg.Security.AllowedHeaders,
		ExposeHeaders: []string{
			"X-Request-ID",
		},
		AllowCredentials: r.cfg.Security.AllowCredentials,
		MaxAge:           r.cfg.Security.CORSMaxAge,
	}))

	// Compression; event streams must pass through unbuffered
	if r.cfg.Server.EnableCompression {
		r.app.Use(compress.New(compress.Config{
			Level: compress.LevelBestSpeed,
			Next: func(c fiber.Ctx) bool {
				return c.Path() == "/api/v1/pipeline/stream"
			},
		}))
	}

	// Structured request logging
	r.app.Use(logger.New(logger.Config{
		Format:     `{"time":"${time}","pid":"${pid}","request_id":"${locals:requestid}","level":"info","method":"${method}","path":"${path}","protocol":"${protocol}","ip":"${ip}","user_agent":"${ua}","status":${status},"latency":"${latency}","bytes_in":${bytesReceived},"bytes_out":${bytesSent},"referer":"${referer}"}` + "\n",
		TimeFormat: time.RFC3339,
		TimeZone:   "UTC",
		Next: func(c fiber.Ctx) bool {
			return c.Path() == "/api/v1/health"
		},
	}))

	// HTTP metrics collection
	r.app.Use(middleware.Metrics())

	// Recovery middleware with custom error handling
	r.app.Use(recover.New(recover.Config{
		EnableStackTrace: true,
		StackTraceHandler: func(c fiber.Ctx, e interface{}) {
			log.Printf(`{"time":"%s","level":"error","request_id":"%s","event":"panic","error":"%v","path":"%s","method":"%s","ip":"%s"}`,
				utils.UTCNow().Format(time.RFC3339),
				c.Locals("requestid"),
				e,
				c.Path(),
				c.Method(),
				c.IP(),
			)
		},
	}))
}

// Start starts the HTTP server
func (r *FiberRouter) Start(address string) error {
	log.Printf("Starting server on %s", address)
	return r.app.Listen(address)
}

// GetApp returns the Fiber app instance
func (r *FiberRouter) GetApp() *fiber.App {
	return r.app
}

// Health check endpoint
func (r *FiberRouter) healthCheck(c fiber.Ctx) error {
	return c.JSON(dto.APIResponse{
		Success: true,
		Message: "Service is healthy",
		Data: fiber.Map{
			"status":    "ok",
			"timestamp": utils.UTCNow().Unix(),
			"version":   "1.0.0",
			"service":   "lead-pipeline-api",
		},
	})
}

// Not found handler
func (r *FiberRouter) notFoundHandler(c fiber.Ctx) error {
	requestID := c.Locals("requestid")

	return c.Status(fiber.StatusNotFound).JSON(dto.APIResponse{
		Success: false,
		Message: "The requested resource was not found",
		Error: dto.ErrorDetail{
			Code: "NOT_FOUND",
			Details: fiber.Map{
				"path":       c.Path(),
				"method":     c.Method(),
				"request_id": requestID,
			},
		},
	})
}

// rateLimitReached is the shared limiter response
func rateLimitReached(c fiber.Ctx) error {
	return c.Status(fiber.StatusTooManyRequests).JSON(dto.APIResponse{
		Success: false,
		Message: "Too many requests. Please try again later.",
		Error: dto.ErrorDetail{
			Code: "RATE_LIMIT_EXCEEDED",
		},
	})
}

// Global error handler
func errorHandler(c fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
	}

	log.Printf("Error %d: %v", code, err)

	requestID := c.Locals("requestid")

	return c.Status(code).JSON(dto.APIResponse{
		Success: false,
		Message: "An internal server error occurred",
		Error: dto.ErrorDetail{
			Code: "INTERNAL_ERROR",
			Details: fiber.Map{
				"timestamp":  utils.UTCNow().Unix(),
				"request_id": requestID,
			},
		},
	})
}

// generateRequestID creates a unique request ID
func generateRequestID() string {
	bytes := make([]byte, 8)
	rand.Read(bytes)
	return hex.EncodeToString(bytes)
}
