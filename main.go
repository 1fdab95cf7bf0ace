// Package main provides the main entry point for the lead pipeline service
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/propertyshodh/lead-pipeline/app/handlers"
	"github.com/propertyshodh/lead-pipeline/app/middleware"
	"github.com/propertyshodh/lead-pipeline/app/router"
	"github.com/propertyshodh/lead-pipeline/app/scheduler"
	"github.com/propertyshodh/lead-pipeline/app/services"
	"github.com/propertyshodh/lead-pipeline/authz"
	businessflow "github.com/propertyshodh/lead-pipeline/business_flow"
	"github.com/propertyshodh/lead-pipeline/config"
	"github.com/propertyshodh/lead-pipeline/models"
	"github.com/propertyshodh/lead-pipeline/repository"
	"github.com/propertyshodh/lead-pipeline/utils"
)

// Application represents the main application structure
type Application struct {
	router    *router.FiberRouter
	config    *config.ProductionConfig
	server    *fiber.App
	stopFuncs []func()
}

func main() {
	log.Println("Starting lead pipeline service...")

	// Load production configuration
	cfg, err := config.LoadProductionConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize application
	app, err := initializeApplication(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}

	// Setup routes
	app.router.SetupRoutes()

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// Start server in goroutine
	go func() {
		address := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		log.Printf("Server starting on %s", address)

		if err := app.server.Listen(address); err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for shutdown signal
	<-sigChan
	log.Println("Shutting down gracefully...")

	// Stop background workers
	for _, fn := range app.stopFuncs {
		fn()
	}

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := app.server.ShutdownWithContext(shutdownCtx); err != nil {
		log.Printf("Error during shutdown: %v", err)
	}

	log.Println("Server stopped")
}

// initializeDatabase initializes the database connection with connection pooling
func initializeDatabase(cfg config.DatabaseConfig) (*gorm.DB, error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Name, cfg.SSLMode)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Get underlying sql.DB for connection pooling configuration
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	// Configure connection pooling
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	// Test the connection
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := db.AutoMigrate(
		&models.Admin{},
		&models.Lead{},
		&models.LeadNote{},
		&models.AuditLog{},
	); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	log.Printf("Database connection established with %d max open connections, %d max idle connections",
		cfg.MaxOpenConns, cfg.MaxIdleConns)

	return db, nil
}

// initializeRedis initializes the Redis client backing the change bus
func initializeRedis(cfg config.CacheConfig) (*redis.Client, error) {
	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	// Override DB if provided in config
	opt.DB = cfg.RedisDB

	rc := redis.NewClient(opt)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rc.Ping(ctx).Err(); err != nil {
		_ = rc.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	log.Printf("Redis connection established (db=%d)", cfg.RedisDB)
	return rc, nil
}

// startRedisHealthMonitor starts a background goroutine that periodically pings Redis
// to detect connectivity issues. The returned cancel function stops the monitor.
func startRedisHealthMonitor(parent context.Context, client *redis.Client, interval time.Duration) func() {
	monitorCtx, cancel := context.WithCancel(parent)
	if interval <= 0 {
		interval = 30 * time.Second
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-monitorCtx.Done():
				return
			case <-ticker.C:
				ctx, c := context.WithTimeout(context.Background(), 3*time.Second)
				if err := client.Ping(ctx).Err(); err != nil {
					log.Printf("Redis healthcheck failed: %v", err)
				}
				c()
			}
		}
	}()
	return cancel
}

// initializeNotificationService initializes the follow-up reminder service
func initializeNotificationService(cfg *config.ProductionConfig) services.NotificationService {
	var smsService services.SMSService

	switch cfg.SMS.ProviderDomain {
	case "mock":
		smsService = services.NewMockSMSService()
	default:
		smsService = services.NewSMSService(&cfg.SMS)
	}

	return services.NewNotificationService(smsService)
}

// bootstrapRootAccount seeds the first super_super_admin on an empty database
func bootstrapRootAccount(db *gorm.DB, adminRepo repository.AdminRepository, cfg config.BootstrapConfig) error {
	if cfg.AdminUsername == "" || cfg.AdminPassword == "" {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	roots, err := adminRepo.ListByRoles(ctx, []string{string(authz.RoleSuperSuperAdmin)})
	if err != nil {
		return fmt.Errorf("failed to check existing root accounts: %w", err)
	}
	if len(roots) > 0 {
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(cfg.AdminPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash bootstrap password: %w", err)
	}

	root := &models.Admin{
		Username:     cfg.AdminUsername,
		PasswordHash: string(hash),
		Role:         string(authz.RoleSuperSuperAdmin),
		IsActive:     utils.ToPtr(true),
	}
	if cfg.AdminPhone != "" {
		root.Phone = utils.ToPtr(cfg.AdminPhone)
	}

	if err := adminRepo.Save(ctx, root); err != nil {
		return fmt.Errorf("failed to create bootstrap account: %w", err)
	}

	log.Printf("Bootstrap super_super_admin %q created", cfg.AdminUsername)
	return nil
}

// initializeApplication initializes the main application components
func initializeApplication(cfg *config.ProductionConfig) (*Application, error) {
	var stopFuncs []func()

	// Initialize database
	db, err := initializeDatabase(cfg.Database)
	if err != nil {
		return nil, err
	}

	rc, err := initializeRedis(cfg.Cache)
	if err != nil {
		return nil, err
	}

	cancel := startRedisHealthMonitor(context.Background(), rc, 30*time.Second)
	stopFuncs = append(stopFuncs, cancel)

	// Initialize repositories
	adminRepo := repository.NewAdminRepository(db)
	leadRepo := repository.NewLeadRepository(db)
	noteRepo := repository.NewLeadNoteRepository(db)
	auditRepo := repository.NewAuditLogRepository(db)

	// Seed the root account before anything can authenticate
	if err := bootstrapRootAccount(db, adminRepo, cfg.Bootstrap); err != nil {
		return nil, err
	}

	// Initialize services
	notificationService := initializeNotificationService(cfg)

	tokenService, err := services.NewTokenService(
		cfg.JWT.AccessTokenTTL,
		cfg.JWT.RefreshTokenTTL,
		cfg.JWT.Issuer,
		cfg.JWT.Audience,
		cfg.JWT.UseRSAKeys,
		cfg.JWT.PrivateKey,
		cfg.JWT.PublicKey,
		cfg.JWT.SecretKey,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize token service: %w", err)
	}

	log.Printf("Token service initialized with issuer: %s, audience: %s", cfg.JWT.Issuer, cfg.JWT.Audience)

	changeBus := services.NewRedisChangeBus(rc)

	// Initialize flows
	adminAuthFlow := businessflow.NewAdminAuthFlow(adminRepo, auditRepo, tokenService)
	pipelineFlow := businessflow.NewPipelineFlow(leadRepo, noteRepo, auditRepo, changeBus, db)
	leadIntakeFlow := businessflow.NewLeadIntakeFlow(leadRepo, adminRepo, auditRepo, changeBus, db)
	adminAccountFlow := businessflow.NewAdminAccountFlow(adminRepo, auditRepo, db)

	// Initialize handlers
	adminAuthHandler := handlers.NewAdminAuthHandler(adminAuthFlow)
	pipelineHandler := handlers.NewPipelineHandler(pipelineFlow, changeBus)
	leadIntakeHandler := handlers.NewLeadIntakeHandler(leadIntakeFlow)
	adminAccountHandler := handlers.NewAdminAccountHandler(adminAccountFlow)

	// Initialize auth middleware
	authMiddleware := middleware.NewAuthMiddleware(tokenService)

	// Initialize router
	appRouter := router.NewFiberRouter(
		cfg,
		authMiddleware,
		adminAuthHandler,
		pipelineHandler,
		leadIntakeHandler,
		adminAccountHandler,
	)

	if cfg.Scheduler.Enabled {
		sched := scheduler.NewFollowUpScheduler(leadRepo, adminRepo, notificationService, cfg.Scheduler)
		stopScheduler := sched.Start(context.Background())
		stopFuncs = append(stopFuncs, stopScheduler)
	}

	// Create application struct from FiberRouter
	fiberRouter := appRouter.(*router.FiberRouter)
	application := &Application{
		router:    fiberRouter,
		config:    cfg,
		server:    fiberRouter.GetApp(),
		stopFuncs: stopFuncs,
	}

	return application, nil
}
